package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dfoddav2/SS25-dsitributed-systems-assignment/internal/domain"
	"github.com/dfoddav2/SS25-dsitributed-systems-assignment/internal/scorer"
	"github.com/dfoddav2/SS25-dsitributed-systems-assignment/internal/worker"
)

// modelSummary — краткое описание артефакта для `model inspect`.
type modelSummary struct {
	Path         string   `json:"path"`
	Kind         string   `json:"kind"`
	Features     []string `json:"features"`
	Classes      []int    `json:"classes,omitempty"`
	Trees        int      `json:"trees,omitempty"`
	Nodes        int      `json:"nodes,omitempty"`
	Coefficients int      `json:"coefficients,omitempty"`
}

func newModelCmd(opts *globalOpts) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "model",
		Short: "Inspect and try model artifacts",
	}

	cmd.AddCommand(newModelInspectCmd(opts), newModelScoreCmd(opts))

	return cmd
}

func newModelInspectCmd(opts *globalOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <path>",
		Short: "Validate a model artifact and print its shape",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]

			art, err := scorer.LoadArtifact(path)
			if err != nil {
				return err
			}
			if _, err := scorer.FromArtifact(art); err != nil {
				return err
			}

			sum := summarize(path, art)
			rows := [][]string{
				{"path", sum.Path},
				{"kind", sum.Kind},
				{"features", strings.Join(sum.Features, ", ")},
			}
			switch art.Kind {
			case scorer.KindRandomForest:
				rows = append(rows,
					[]string{"classes", joinInts(sum.Classes)},
					[]string{"trees", strconv.Itoa(sum.Trees)},
					[]string{"nodes", strconv.Itoa(sum.Nodes)},
				)
			case scorer.KindLogistic:
				rows = append(rows, []string{"coefficients", strconv.Itoa(sum.Coefficients)})
			}

			return opts.output(cmd).Print([]string{"FIELD", "VALUE"}, rows, sum)
		},
	}
}

func newModelScoreCmd(opts *globalOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "score <path> <task-json>",
		Short: "Score one transaction with a model artifact",
		Example: `  fraudnode model score fraud_model.json \
    '{"id": 7, "timestamp": "2025-05-01T10:00:00Z", "status": "submitted", "vendor_id": 3, "amount": 42.5}'`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			model, err := scorer.Load(args[0])
			if err != nil {
				return err
			}

			task, err := domain.DecodeTask(args[1])
			if err != nil {
				return fmt.Errorf("decode task: %w", err)
			}

			exec := worker.NewExecutor(worker.ExecutorConfig{Scorer: model})
			res := exec.Execute(task)

			rows := [][]string{{
				res.TransactionID.String(),
				strconv.Itoa(res.IsFraudulent),
				strconv.FormatFloat(res.Confidence, 'f', 4, 64),
				res.Error,
			}}

			return opts.output(cmd).Print(
				[]string{"TRANSACTION_ID", "IS_FRAUDULENT", "CONFIDENCE", "ERROR"},
				rows, res)
		},
	}
}

func summarize(path string, art *scorer.Artifact) modelSummary {
	features := art.Features
	if len(features) == 0 {
		features = domain.FeatureNames
	}

	sum := modelSummary{
		Path:     path,
		Kind:     string(art.Kind),
		Features: features,
	}

	switch art.Kind {
	case scorer.KindRandomForest:
		sum.Classes = art.Classes
		if len(sum.Classes) == 0 {
			sum.Classes = []int{domain.LabelLegit, domain.LabelFraudulent}
		}
		sum.Trees = len(art.Trees)
		for _, t := range art.Trees {
			sum.Nodes += len(t.Nodes)
		}
	case scorer.KindLogistic:
		sum.Coefficients = len(art.Coefficients)
	}

	return sum
}

func joinInts(xs []int) string {
	parts := make([]string, len(xs))
	for i, x := range xs {
		parts[i] = strconv.Itoa(x)
	}
	return strings.Join(parts, ", ")
}
