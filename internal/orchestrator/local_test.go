package orchestrator

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dfoddav2/SS25-dsitributed-systems-assignment/internal/coord"
	"github.com/dfoddav2/SS25-dsitributed-systems-assignment/internal/domain"
	"github.com/dfoddav2/SS25-dsitributed-systems-assignment/internal/scorer"
	"github.com/dfoddav2/SS25-dsitributed-systems-assignment/internal/worker"
)

// Orchestrator и настоящие worker'ы поверх локальных каналов.
func TestLocalGroup_EndToEnd(t *testing.T) {
	groups, err := coord.NewLocal(4, nil)
	require.NoError(t, err)

	exec := worker.NewExecutor(worker.ExecutorConfig{
		Scorer: scorer.Func(func(v domain.FeatureVector) (int, float64, error) {
			if v.Status == domain.StatusRejected {
				return domain.LabelFraudulent, 0.95, nil
			}
			return domain.LabelLegit, 0.85, nil
		}),
		Logger: testLogger(),
	})

	var wg sync.WaitGroup
	workerErrs := make([]error, 3)
	for rank := 1; rank < 4; rank++ {
		ep, err := groups[rank].Endpoint()
		require.NoError(t, err)

		w := worker.New(worker.Config{Endpoint: ep, Executor: exec, Logger: testLogger()})
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			workerErrs[i] = w.Run(context.Background())
		}(rank - 1)
	}

	batch := []domain.Task{
		{ID: domain.StringID("1"), Status: "accepted", Timestamp: "2023-01-01T12:00:00Z"},
		{ID: domain.StringID("2"), Status: "REJECTED", Timestamp: "2023-01-01T12:00:00Z"},
		{ID: domain.StringID("3"), Status: "accepted", Timestamp: "not a timestamp"},
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	q := &fakeQueue{batches: [][]domain.Task{batch}, pushOK: true}
	q.onPull = func() {
		if len(q.requests) == 2 {
			cancel()
		}
	}

	o, err := New(Config{
		Queue:        q,
		Links:        groups[0].Links(),
		PollInterval: 10 * time.Millisecond,
		Logger:       testLogger(),
	})
	require.NoError(t, err)
	require.NoError(t, o.Run(ctx))

	waited := make(chan struct{})
	go func() { wg.Wait(); close(waited) }()
	select {
	case <-waited:
	case <-time.After(2 * time.Second):
		t.Fatal("workers did not stop")
	}
	for _, err := range workerErrs {
		assert.NoError(t, err)
	}

	require.Len(t, q.pushed, 1)
	results := q.pushed[0]
	require.Len(t, results, 3)

	assert.Equal(t, domain.LabelLegit, results[0].IsFraudulent)
	assert.Equal(t, domain.LabelFraudulent, results[1].IsFraudulent)
	assert.Equal(t, 0.95, results[1].Confidence)
	assert.Equal(t, domain.LabelError, results[2].IsFraudulent)
	assert.Empty(t, results[2].Error)
	assert.Equal(t, 1, q.closed)
}

// Worker, который не читает свой канал: раунды не должны вставать,
// когда буфер канала заполнен.
func TestRunRound_HungWorkerDoesNotStallRounds(t *testing.T) {
	link, ep := coord.NewLocalPair(1)
	defer ep.Close()

	q := &fakeQueue{
		batches: [][]domain.Task{tasks("1"), tasks("2"), tasks("3"), tasks("4")},
		pushOK:  true,
	}
	o := newTestOrchestrator(t, q, []coord.Link{link}, func(c *Config) {
		c.CollectTimeout = 20 * time.Millisecond
	})

	done := make(chan []*Round, 1)
	go func() {
		var rounds []*Round
		for i := 0; i < 4; i++ {
			round, err := o.RunRound(context.Background())
			if err != nil || round == nil {
				break
			}
			rounds = append(rounds, round)
		}
		done <- rounds
	}()

	var rounds []*Round
	select {
	case rounds = <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("rounds blocked on a hung worker")
	}

	require.Len(t, rounds, 4)
	for i, round := range rounds {
		assert.Equal(t, []int{1}, round.Synthesized, "round %d", i+1)
		assert.Equal(t, "Failed to receive result from worker 1", round.Results[0].Error)
	}
	assert.Len(t, q.pushed, 4)
}
