package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dfoddav2/SS25-dsitributed-systems-assignment/internal/coord"
	"github.com/dfoddav2/SS25-dsitributed-systems-assignment/internal/domain"
)

var fixedNow = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// --- fakes ---

// eventLog — общая для fakes последовательность событий.
type eventLog struct {
	mu    sync.Mutex
	items []string
}

func (e *eventLog) add(event string) {
	if e == nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.items = append(e.items, event)
}

func (e *eventLog) list() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.items...)
}

type fakeQueue struct {
	mu       sync.Mutex
	batches  [][]domain.Task
	requests []int
	pushed   [][]domain.Result
	pushOK   bool
	closed   int
	onPull   func()
	events   *eventLog
}

func (q *fakeQueue) Pull(_ context.Context, maxCount int) []domain.Task {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.requests = append(q.requests, maxCount)
	if q.onPull != nil {
		q.onPull()
	}
	if len(q.batches) == 0 {
		return nil
	}
	b := q.batches[0]
	q.batches = q.batches[1:]
	return b
}

func (q *fakeQueue) Push(_ context.Context, results []domain.Result) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.pushed = append(q.pushed, append([]domain.Result(nil), results...))
	return q.pushOK
}

func (q *fakeQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.closed++
	q.events.add("close")
	return nil
}

// fakeLink отвечает на каждый task scored result'ом с confidence 0.75.
type fakeLink struct {
	slot int

	mu      sync.Mutex
	sent    []coord.Message
	pending []coord.Reply

	sendErr    error
	recvErr    error
	hang       bool
	stale      int
	stopFail   bool
	replyDelay time.Duration
	events     *eventLog
}

func (l *fakeLink) Slot() int { return l.slot }

func (l *fakeLink) Send(_ context.Context, msg coord.Message) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.sent = append(l.sent, msg)
	if l.sendErr != nil {
		return l.sendErr
	}
	if msg.Kind != coord.KindTask || l.hang {
		return nil
	}

	for i := 0; i < l.stale; i++ {
		l.pending = append(l.pending, coord.Reply{
			RoundID: "old-round",
			Result:  domain.NewScoredResult(domain.StringID("stale"), domain.LabelFraudulent, 1, fixedNow),
		})
	}
	l.pending = append(l.pending, coord.Reply{
		RoundID: msg.RoundID,
		Result:  domain.NewScoredResult(msg.Task.ID, domain.LabelLegit, 0.75, fixedNow),
	})
	return nil
}

func (l *fakeLink) TrySend(msg coord.Message) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.sent = append(l.sent, msg)
	l.events.add(fmt.Sprintf("stop %d", l.slot))
	return !l.stopFail
}

func (l *fakeLink) Receive(ctx context.Context) (coord.Reply, error) {
	l.mu.Lock()
	if l.recvErr != nil {
		l.mu.Unlock()
		return coord.Reply{}, l.recvErr
	}
	if len(l.pending) > 0 {
		r := l.pending[0]
		l.pending = l.pending[1:]
		delay := l.replyDelay
		l.mu.Unlock()

		if delay > 0 {
			select {
			case <-ctx.Done():
				return coord.Reply{}, ctx.Err()
			case <-time.After(delay):
			}
		}
		return r, nil
	}
	l.mu.Unlock()

	<-ctx.Done()
	return coord.Reply{}, ctx.Err()
}

func (l *fakeLink) Close() error { return nil }

func (l *fakeLink) messages() []coord.Message {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]coord.Message(nil), l.sent...)
}

func (l *fakeLink) stops() int {
	n := 0
	for _, m := range l.messages() {
		if m.Kind == coord.KindStop {
			n++
		}
	}
	return n
}

func newLinks(n int) ([]*fakeLink, []coord.Link) {
	fakes := make([]*fakeLink, n)
	links := make([]coord.Link, n)
	for i := range fakes {
		fakes[i] = &fakeLink{slot: i + 1}
		links[i] = fakes[i]
	}
	return fakes, links
}

func tasks(ids ...string) []domain.Task {
	out := make([]domain.Task, len(ids))
	for i, id := range ids {
		out[i] = domain.Task{ID: domain.StringID(id), Status: "accepted", Timestamp: "2023-01-01T12:00:00Z"}
	}
	return out
}

func newTestOrchestrator(t *testing.T, q *fakeQueue, links []coord.Link, mod func(*Config)) *Orchestrator {
	t.Helper()

	var n int
	cfg := Config{
		Queue:        q,
		Links:        links,
		PollInterval: 10 * time.Millisecond,
		RoundID: func() string {
			n++
			return fmt.Sprintf("round-%d", n)
		},
		Clock:  func() time.Time { return fixedNow },
		Logger: testLogger(),
	}
	if mod != nil {
		mod(&cfg)
	}

	o, err := New(cfg)
	require.NoError(t, err)
	return o
}

func resultIDs(results []domain.Result) []string {
	ids := make([]string, len(results))
	for i, r := range results {
		ids[i] = r.TransactionID.String()
	}
	return ids
}

// --- New ---

func TestNew_Validation(t *testing.T) {
	_, err := New(Config{})
	assert.ErrorIs(t, err, ErrNoQueue)

	_, err = New(Config{Queue: &fakeQueue{}})
	assert.ErrorIs(t, err, ErrNoSlots)

	o, err := New(Config{Queue: &fakeQueue{}, Inline: inlineFunc(nil)})
	require.NoError(t, err)
	assert.Equal(t, 0, o.Slots())
	assert.Equal(t, defaultPollInterval, o.pollInterval)
}

// --- RunRound ---

func TestRunRound_AllSlotsReply(t *testing.T) {
	q := &fakeQueue{batches: [][]domain.Task{tasks("1", "2", "3")}, pushOK: true}
	fakes, links := newLinks(3)
	o := newTestOrchestrator(t, q, links, nil)

	round, err := o.RunRound(context.Background())
	require.NoError(t, err)
	require.NotNil(t, round)

	assert.Equal(t, []int{3}, q.requests)
	assert.Equal(t, "round-1", round.ID)
	assert.True(t, round.Pushed)
	assert.Empty(t, round.Synthesized)

	require.Len(t, q.pushed, 1)
	assert.Equal(t, []string{"1", "2", "3"}, resultIDs(q.pushed[0]))
	for i, f := range fakes {
		msgs := f.messages()
		require.Len(t, msgs, 1)
		assert.Equal(t, coord.KindTask, msgs[0].Kind)
		assert.Equal(t, "round-1", msgs[0].RoundID)
		assert.Equal(t, domain.StringID(fmt.Sprint(i+1)), msgs[0].Task.ID)
	}
}

func TestRunRound_SlotFailureSynthesizesResult(t *testing.T) {
	q := &fakeQueue{batches: [][]domain.Task{tasks("a", "b", "c")}, pushOK: true}
	fakes, links := newLinks(3)
	fakes[1].recvErr = coord.ErrLinkClosed
	o := newTestOrchestrator(t, q, links, nil)

	round, err := o.RunRound(context.Background())
	require.NoError(t, err)

	require.Len(t, q.pushed, 1)
	results := q.pushed[0]
	require.Len(t, results, 3)

	assert.Equal(t, domain.LabelLegit, results[0].IsFraudulent)
	assert.Equal(t, domain.LabelLegit, results[2].IsFraudulent)

	assert.Equal(t, domain.StringID("b"), results[1].TransactionID)
	assert.Equal(t, domain.LabelError, results[1].IsFraudulent)
	assert.Equal(t, 0.0, results[1].Confidence)
	assert.Equal(t, "Failed to receive result from worker 2", results[1].Error)

	assert.Equal(t, []int{2}, round.Synthesized)
	assert.Equal(t, 1, round.Degraded())
}

func TestRunRound_SendFailureSynthesizesResult(t *testing.T) {
	q := &fakeQueue{batches: [][]domain.Task{tasks("x", "y")}, pushOK: true}
	fakes, links := newLinks(2)
	fakes[0].sendErr = errors.New("broker unavailable")
	o := newTestOrchestrator(t, q, links, nil)

	round, err := o.RunRound(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []int{1}, round.Synthesized)
	results := q.pushed[0]
	assert.Equal(t, "Failed to receive result from worker 1", results[0].Error)
	assert.Equal(t, domain.StringID("x"), results[0].TransactionID)
	assert.Equal(t, domain.StringID("y"), results[1].TransactionID)
	assert.False(t, results[1].IsDegraded())
}

func TestRunRound_PartialBatchUsesLeadingSlots(t *testing.T) {
	q := &fakeQueue{batches: [][]domain.Task{tasks("1", "2")}, pushOK: true}
	fakes, links := newLinks(3)
	o := newTestOrchestrator(t, q, links, nil)

	round, err := o.RunRound(context.Background())
	require.NoError(t, err)

	assert.Len(t, round.Results, 2)
	assert.Len(t, fakes[0].messages(), 1)
	assert.Len(t, fakes[1].messages(), 1)
	assert.Empty(t, fakes[2].messages())
}

func TestRunRound_OverflowCarriedToNextRound(t *testing.T) {
	q := &fakeQueue{
		batches: [][]domain.Task{
			tasks("1", "2", "3", "4", "5"),
			tasks("6"),
		},
		pushOK: true,
	}
	_, links := newLinks(3)
	o := newTestOrchestrator(t, q, links, nil)
	ctx := context.Background()

	first, err := o.RunRound(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, first.Carried)
	assert.Equal(t, []string{"1", "2", "3"}, resultIDs(first.Results))

	second, err := o.RunRound(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, second.Carried)
	assert.Equal(t, []string{"4", "5", "6"}, resultIDs(second.Results))

	// Во втором раунде запрашивается только остаток до числа слотов.
	assert.Equal(t, []int{3, 1}, q.requests)
	require.Len(t, q.pushed, 2)
}

func TestRunRound_CarryFillsWholeRound(t *testing.T) {
	q := &fakeQueue{batches: [][]domain.Task{tasks("1", "2", "3", "4")}, pushOK: true}
	_, links := newLinks(2)
	o := newTestOrchestrator(t, q, links, nil)
	ctx := context.Background()

	_, err := o.RunRound(ctx)
	require.NoError(t, err)

	second, err := o.RunRound(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"3", "4"}, resultIDs(second.Results))

	// Перенесённых задач хватило на весь раунд: pull не вызывался.
	assert.Equal(t, []int{2}, q.requests)
}

func TestRunRound_StaleRepliesDiscarded(t *testing.T) {
	q := &fakeQueue{batches: [][]domain.Task{tasks("1")}, pushOK: true}
	fakes, links := newLinks(1)
	fakes[0].stale = 2
	o := newTestOrchestrator(t, q, links, nil)

	round, err := o.RunRound(context.Background())
	require.NoError(t, err)

	require.Len(t, round.Results, 1)
	assert.Equal(t, domain.StringID("1"), round.Results[0].TransactionID)
	assert.Equal(t, 0.75, round.Results[0].Confidence)
}

func TestRunRound_CollectTimeout(t *testing.T) {
	q := &fakeQueue{batches: [][]domain.Task{tasks("1", "2")}, pushOK: true}
	fakes, links := newLinks(2)
	fakes[0].hang = true
	o := newTestOrchestrator(t, q, links, func(c *Config) {
		c.CollectTimeout = 20 * time.Millisecond
	})

	round, err := o.RunRound(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []int{1}, round.Synthesized)
	assert.Equal(t, "Failed to receive result from worker 1", round.Results[0].Error)
	assert.False(t, round.Results[1].IsDegraded())
}

func TestRunRound_PushFailureNotRetried(t *testing.T) {
	q := &fakeQueue{batches: [][]domain.Task{tasks("1")}, pushOK: false}
	_, links := newLinks(1)
	o := newTestOrchestrator(t, q, links, nil)

	round, err := o.RunRound(context.Background())
	require.NoError(t, err)

	assert.False(t, round.Pushed)
	assert.Len(t, q.pushed, 1)
}

func TestRunRound_EmptyPollBacksOff(t *testing.T) {
	q := &fakeQueue{}
	_, links := newLinks(2)
	o := newTestOrchestrator(t, q, links, func(c *Config) {
		c.PollInterval = 30 * time.Millisecond
	})

	start := time.Now()
	round, err := o.RunRound(context.Background())

	assert.NoError(t, err)
	assert.Nil(t, round)
	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
	assert.Empty(t, q.pushed)
	assert.Equal(t, []int{2}, q.requests)
}

func TestRunRound_CancelDuringBackoff(t *testing.T) {
	q := &fakeQueue{}
	_, links := newLinks(1)
	o := newTestOrchestrator(t, q, links, func(c *Config) {
		c.PollInterval = time.Hour
	})

	ctx, cancel := context.WithCancel(context.Background())
	q.onPull = cancel

	round, err := o.RunRound(ctx)
	assert.Nil(t, round)
	assert.ErrorIs(t, err, context.Canceled)
}

// --- Run ---

func TestRun_InterruptWhilePolling(t *testing.T) {
	events := &eventLog{}
	q := &fakeQueue{events: events}
	fakes, links := newLinks(3)
	for _, f := range fakes {
		f.events = events
	}
	o := newTestOrchestrator(t, q, links, func(c *Config) {
		c.PollInterval = time.Hour
	})

	ctx, cancel := context.WithCancel(context.Background())
	q.onPull = cancel

	done := make(chan error, 1)
	go func() { done <- o.Run(ctx) }()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("orchestrator did not stop")
	}

	for _, f := range fakes {
		assert.Equal(t, 1, f.stops(), "slot %d", f.slot)
	}
	assert.Equal(t, 1, q.closed)
	assert.Empty(t, q.pushed)

	// Сначала STOP всем слотам, затем закрытие клиента очереди.
	assert.Equal(t, []string{"stop 1", "stop 2", "stop 3", "close"}, events.list())
}

func TestRun_InterruptMidRoundKeepsRealResults(t *testing.T) {
	q := &fakeQueue{batches: [][]domain.Task{tasks("7")}, pushOK: true}
	fakes, links := newLinks(1)
	fakes[0].replyDelay = 50 * time.Millisecond
	o := newTestOrchestrator(t, q, links, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	q.onPull = func() {
		time.AfterFunc(10*time.Millisecond, cancel)
	}

	require.NoError(t, o.Run(ctx))

	require.Len(t, q.pushed, 1)
	require.Len(t, q.pushed[0], 1)
	r := q.pushed[0][0]
	assert.Equal(t, domain.StringID("7"), r.TransactionID)
	assert.False(t, r.IsDegraded())
	assert.Equal(t, 0.75, r.Confidence)

	assert.Equal(t, []int{1}, q.requests)
	assert.Equal(t, 1, fakes[0].stops())
	assert.Equal(t, 1, q.closed)
}

func TestRun_UndeliverableStopDoesNotBlock(t *testing.T) {
	q := &fakeQueue{}
	fakes, links := newLinks(2)
	fakes[0].stopFail = true
	o := newTestOrchestrator(t, q, links, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, o.Run(ctx))
	assert.Equal(t, 1, fakes[1].stops())
	assert.Equal(t, 1, q.closed)
	assert.Empty(t, q.requests)
}

func TestRun_ProcessesRoundsUntilCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	q := &fakeQueue{batches: [][]domain.Task{tasks("1", "2"), tasks("3")}, pushOK: true}
	q.onPull = func() {
		if len(q.requests) == 3 {
			cancel()
		}
	}
	_, links := newLinks(2)
	o := newTestOrchestrator(t, q, links, nil)

	require.NoError(t, o.Run(ctx))

	require.Len(t, q.pushed, 2)
	assert.Equal(t, []string{"1", "2"}, resultIDs(q.pushed[0]))
	assert.Equal(t, []string{"3"}, resultIDs(q.pushed[1]))
	assert.Equal(t, 1, q.closed)
}

// --- inline ---

type inlineFunc func(domain.Task) domain.Result

func (f inlineFunc) Execute(task domain.Task) domain.Result { return f(task) }

func TestRunRound_InlineWithoutSlots(t *testing.T) {
	q := &fakeQueue{batches: [][]domain.Task{tasks("1", "2")}, pushOK: true}
	o := newTestOrchestrator(t, q, nil, func(c *Config) {
		c.Inline = inlineFunc(func(task domain.Task) domain.Result {
			return domain.NewScoredResult(task.ID, domain.LabelFraudulent, 0.6, fixedNow)
		})
	})
	ctx := context.Background()

	first, err := o.RunRound(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"1"}, resultIDs(first.Results))
	assert.Equal(t, 1, first.Carried)

	second, err := o.RunRound(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"2"}, resultIDs(second.Results))
	assert.Equal(t, []int{1}, q.requests)
}
