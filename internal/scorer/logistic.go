package scorer

import (
	"fmt"
	"math"

	"github.com/dfoddav2/SS25-dsitributed-systems-assignment/internal/domain"
)

const defaultLogisticThreshold = 0.5

// logistic — логистическая регрессия: p = sigmoid(w·x + b).
type logistic struct {
	weights   []float64
	intercept float64
	threshold float64
}

func newLogistic(art *Artifact) (*logistic, error) {
	if len(art.Coefficients) != len(domain.FeatureNames) {
		return nil, fmt.Errorf("%w: logistic model needs %d coefficients, got %d",
			ErrArtifact, len(domain.FeatureNames), len(art.Coefficients))
	}

	threshold := art.Threshold
	if threshold <= 0 || threshold >= 1 {
		threshold = defaultLogisticThreshold
	}

	return &logistic{
		weights:   art.Coefficients,
		intercept: art.Intercept,
		threshold: threshold,
	}, nil
}

// Score реализует Scorer.
func (m *logistic) Score(v domain.FeatureVector) (int, float64, error) {
	z := m.intercept
	for i, x := range v.Values() {
		z += m.weights[i] * x
	}
	if math.IsNaN(z) {
		return 0, 0, fmt.Errorf("%w: decision value is NaN", ErrPrediction)
	}

	p := 1 / (1 + math.Exp(-z))
	if p >= m.threshold {
		return domain.LabelFraudulent, p, nil
	}
	return domain.LabelLegit, 1 - p, nil
}
