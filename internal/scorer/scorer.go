package scorer

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/dfoddav2/SS25-dsitributed-systems-assignment/internal/domain"
)

// Scorer — непрозрачная функция предсказания.
//
// Score возвращает метку (0/1) и вероятность этой метки.
// Встроенные модели только читают свои параметры, поэтому одну
// загруженную модель можно делить между worker'ами одного процесса.
type Scorer interface {
	Score(v domain.FeatureVector) (label int, confidence float64, err error)
}

// Func — адаптер для использования функции как Scorer.
type Func func(v domain.FeatureVector) (int, float64, error)

// Score вызывает f(v).
func (f Func) Score(v domain.FeatureVector) (int, float64, error) {
	return f(v)
}

// Kind — тип модели в артефакте.
type Kind string

// Поддерживаемые типы моделей.
const (
	KindRandomForest Kind = "random_forest"
	KindLogistic     Kind = "logistic"
)

// Artifact — сериализованная модель (JSON или YAML).
//
// Пример random forest:
//
//	{
//	  "kind": "random_forest",
//	  "features": ["timestamp", "status", "vendor_id", "amount"],
//	  "classes": [0, 1],
//	  "trees": [{"nodes": [
//	    {"feature": 3, "threshold": 500, "left": 1, "right": 2},
//	    {"left": -1, "right": -1, "value": [90, 10]},
//	    {"left": -1, "right": -1, "value": [20, 80]}
//	  ]}]
//	}
type Artifact struct {
	Kind     Kind     `json:"kind" yaml:"kind"`
	Features []string `json:"features,omitempty" yaml:"features,omitempty"`
	Classes  []int    `json:"classes,omitempty" yaml:"classes,omitempty"`

	// random_forest
	Trees []Tree `json:"trees,omitempty" yaml:"trees,omitempty"`

	// logistic
	Coefficients []float64 `json:"coefficients,omitempty" yaml:"coefficients,omitempty"`
	Intercept    float64   `json:"intercept,omitempty" yaml:"intercept,omitempty"`
	Threshold    float64   `json:"threshold,omitempty" yaml:"threshold,omitempty"`
}

// Load читает артефакт модели и строит Scorer.
//
// Любая ошибка оборачивается в ErrArtifact: вызывающий код обязан
// завершить всю группу процессов.
func Load(path string) (Scorer, error) {
	art, err := LoadArtifact(path)
	if err != nil {
		return nil, err
	}
	return FromArtifact(art)
}

// LoadArtifact читает и декодирует артефакт без построения модели.
// Формат определяется по расширению: .yaml/.yml — YAML, иначе JSON.
func LoadArtifact(path string) (*Artifact, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: model file %q not found", ErrArtifact, path)
		}
		return nil, fmt.Errorf("%w: read %q: %v", ErrArtifact, path, err)
	}

	var art Artifact
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &art)
	default:
		err = json.Unmarshal(data, &art)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: decode %q: %v", ErrArtifact, path, err)
	}

	return &art, nil
}

// FromArtifact строит Scorer из уже декодированного артефакта.
func FromArtifact(art *Artifact) (Scorer, error) {
	if err := validateFeatures(art.Features); err != nil {
		return nil, err
	}

	switch art.Kind {
	case KindRandomForest:
		return newForest(art)
	case KindLogistic:
		return newLogistic(art)
	default:
		return nil, fmt.Errorf("%w: %w: %q", ErrArtifact, ErrUnknownModelKind, art.Kind)
	}
}

// validateFeatures проверяет, что модель обучена на том же порядке признаков.
func validateFeatures(names []string) error {
	if len(names) == 0 {
		return nil
	}
	if len(names) != len(domain.FeatureNames) {
		return fmt.Errorf("%w: model expects %d features, have %d", ErrArtifact, len(names), len(domain.FeatureNames))
	}
	for i, name := range names {
		if name != domain.FeatureNames[i] {
			return fmt.Errorf("%w: feature %d is %q, expected %q", ErrArtifact, i, name, domain.FeatureNames[i])
		}
	}
	return nil
}
