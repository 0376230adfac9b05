package predictor

import (
	"fmt"
	"math"
)

// Node is one split or leaf of a regression tree. Samples with
// features[Feature] <= Threshold go to Left.
type Node struct {
	Leaf      bool    `yaml:"leaf"`
	Value     float64 `yaml:"value"`
	Feature   int     `yaml:"feature"`
	Threshold float64 `yaml:"threshold"`
	Left      int     `yaml:"left"`
	Right     int     `yaml:"right"`
}

// Tree is a regression tree stored as a flat node array rooted at index 0.
type Tree struct {
	Nodes []Node `yaml:"nodes"`
}

// GradientBoosting is a binary gradient-boosted tree ensemble with log-loss.
type GradientBoosting struct {
	NFeatures    int
	InitScore    float64
	LearningRate float64
	Trees        []Tree
}

// PredictProba sums the tree outputs into a log-odds score and maps it to [0,1].
func (g *GradientBoosting) PredictProba(features []float64) (float64, error) {
	if len(features) != g.NFeatures {
		return 0, fmt.Errorf("%w: got %d, want %d", ErrFeatureCount, len(features), g.NFeatures)
	}
	score := g.InitScore
	for _, tree := range g.Trees {
		score += g.LearningRate * tree.eval(features)
	}
	p := sigmoid(score)
	if math.IsNaN(p) {
		return 0, fmt.Errorf("model produced NaN score")
	}
	return p, nil
}

func (t Tree) eval(features []float64) float64 {
	i := 0
	for {
		n := t.Nodes[i]
		if n.Leaf {
			return n.Value
		}
		if features[n.Feature] <= n.Threshold {
			i = n.Left
		} else {
			i = n.Right
		}
	}
}

// validate guarantees eval terminates and never indexes out of range:
// every child index points strictly forward in the node array.
func (t Tree) validate(nFeatures int) error {
	if len(t.Nodes) == 0 {
		return fmt.Errorf("tree has no nodes")
	}
	for i, n := range t.Nodes {
		if n.Leaf {
			continue
		}
		if n.Feature < 0 || n.Feature >= nFeatures {
			return fmt.Errorf("node %d: feature index %d out of range", i, n.Feature)
		}
		for _, child := range []int{n.Left, n.Right} {
			if child <= i || child >= len(t.Nodes) {
				return fmt.Errorf("node %d: child index %d invalid", i, child)
			}
		}
	}
	return nil
}
