package scorer

import (
	"fmt"
	"math"

	"github.com/dfoddav2/SS25-dsitributed-systems-assignment/internal/domain"
)

// Node — узел дерева решений. Лист — узел с Left < 0.
//
// Переход влево при x[Feature] <= Threshold.
// Value — количество (или веса) обучающих примеров каждого класса в листе.
type Node struct {
	Feature   int       `json:"feature" yaml:"feature"`
	Threshold float64   `json:"threshold" yaml:"threshold"`
	Left      int       `json:"left" yaml:"left"`
	Right     int       `json:"right" yaml:"right"`
	Value     []float64 `json:"value,omitempty" yaml:"value,omitempty"`
}

// Tree — одно дерево ансамбля, корень — nodes[0].
type Tree struct {
	Nodes []Node `json:"nodes" yaml:"nodes"`
}

// forest — random forest: вероятности классов усредняются по деревьям,
// метка — класс с максимальной средней вероятностью.
type forest struct {
	classes []int
	trees   []Tree
}

func newForest(art *Artifact) (*forest, error) {
	classes := art.Classes
	if len(classes) == 0 {
		classes = []int{domain.LabelLegit, domain.LabelFraudulent}
	}
	for _, c := range classes {
		if c != domain.LabelLegit && c != domain.LabelFraudulent {
			return nil, fmt.Errorf("%w: unsupported class label %d", ErrArtifact, c)
		}
	}

	if len(art.Trees) == 0 {
		return nil, fmt.Errorf("%w: random forest has no trees", ErrArtifact)
	}

	for ti, tree := range art.Trees {
		if err := validateTree(tree, len(classes)); err != nil {
			return nil, fmt.Errorf("%w: tree %d: %v", ErrArtifact, ti, err)
		}
	}

	return &forest{classes: classes, trees: art.Trees}, nil
}

func validateTree(tree Tree, numClasses int) error {
	n := len(tree.Nodes)
	if n == 0 {
		return fmt.Errorf("empty tree")
	}

	for i, node := range tree.Nodes {
		if node.Left < 0 {
			if len(node.Value) != numClasses {
				return fmt.Errorf("leaf %d has %d values, expected %d", i, len(node.Value), numClasses)
			}
			if err := validateLeaf(node.Value); err != nil {
				return fmt.Errorf("leaf %d: %w", i, err)
			}
			continue
		}
		if node.Left >= n || node.Right < 0 || node.Right >= n {
			return fmt.Errorf("node %d has child out of range", i)
		}
		if node.Left <= i || node.Right <= i {
			// дети всегда идут после родителя, иначе возможен цикл
			return fmt.Errorf("node %d points backwards", i)
		}
		if node.Feature < 0 || node.Feature >= len(domain.FeatureNames) {
			return fmt.Errorf("node %d uses unknown feature %d", i, node.Feature)
		}
	}
	return nil
}

// validateLeaf — веса листа неотрицательны, конечны и не все нулевые,
// иначе вероятности классов выходят за [0, 1].
func validateLeaf(values []float64) error {
	total := 0.0
	for c, w := range values {
		if math.IsNaN(w) || math.IsInf(w, 0) || w < 0 {
			return fmt.Errorf("class %d weight %v must be a finite non-negative number", c, w)
		}
		total += w
	}
	if total <= 0 {
		return fmt.Errorf("all class weights are zero")
	}
	return nil
}

// Score реализует Scorer.
func (f *forest) Score(v domain.FeatureVector) (int, float64, error) {
	x := v.Values()
	for i, val := range x {
		if math.IsNaN(val) || math.IsInf(val, 0) {
			return 0, 0, fmt.Errorf("%w: feature %s is not finite", ErrPrediction, domain.FeatureNames[i])
		}
	}

	proba := make([]float64, len(f.classes))
	for _, tree := range f.trees {
		leaf := tree.leaf(x)
		total := 0.0
		for _, w := range leaf.Value {
			total += w
		}
		if total <= 0 {
			return 0, 0, fmt.Errorf("%w: leaf with zero weight", ErrPrediction)
		}
		for c, w := range leaf.Value {
			proba[c] += w / total
		}
	}

	best := 0
	for c := range proba {
		proba[c] /= float64(len(f.trees))
		if proba[c] > proba[best] {
			best = c
		}
	}

	return f.classes[best], proba[best], nil
}

// leaf спускается от корня до листа.
func (t Tree) leaf(x []float64) Node {
	i := 0
	for {
		node := t.Nodes[i]
		if node.Left < 0 {
			return node
		}
		if x[node.Feature] <= node.Threshold {
			i = node.Left
		} else {
			i = node.Right
		}
	}
}
