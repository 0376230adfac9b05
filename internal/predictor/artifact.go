package predictor

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Artifact kinds.
const (
	KindGradientBoosting = "gradient_boosting"
	KindLogistic         = "logistic"
)

// Artifact is the on-disk description of a trained model. It is YAML, which
// also accepts JSON exports.
type Artifact struct {
	Kind         string    `yaml:"kind"`
	NFeatures    int       `yaml:"n_features"`
	InitScore    float64   `yaml:"init_score"`
	LearningRate float64   `yaml:"learning_rate"`
	Trees        []Tree    `yaml:"trees"`
	Weights      []float64 `yaml:"weights"`
	Bias         float64   `yaml:"bias"`
}

// Load reads the artifact at path and builds a panic-safe Model expecting nFeatures inputs.
func Load(path string, nFeatures int) (Model, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open model artifact: %w", err)
	}
	defer f.Close()
	return Decode(f, nFeatures)
}

// Decode parses an artifact from r.
func Decode(r io.Reader, nFeatures int) (Model, error) {
	var a Artifact
	if err := yaml.NewDecoder(r).Decode(&a); err != nil {
		return nil, fmt.Errorf("failed to decode model artifact: %w", err)
	}
	m, err := a.Build(nFeatures)
	if err != nil {
		return nil, err
	}
	return Safe(m), nil
}

// Build validates the artifact and returns the concrete model.
func (a Artifact) Build(nFeatures int) (Model, error) {
	if a.NFeatures != 0 && a.NFeatures != nFeatures {
		return nil, fmt.Errorf("artifact declares %d features, service expects %d", a.NFeatures, nFeatures)
	}

	switch a.Kind {
	case KindGradientBoosting:
		if len(a.Trees) == 0 {
			return nil, fmt.Errorf("gradient boosting artifact has no trees")
		}
		if a.LearningRate <= 0 {
			return nil, fmt.Errorf("gradient boosting artifact needs a positive learning_rate")
		}
		for i, t := range a.Trees {
			if err := t.validate(nFeatures); err != nil {
				return nil, fmt.Errorf("tree %d: %w", i, err)
			}
		}
		return &GradientBoosting{
			NFeatures:    nFeatures,
			InitScore:    a.InitScore,
			LearningRate: a.LearningRate,
			Trees:        a.Trees,
		}, nil
	case KindLogistic:
		if len(a.Weights) != nFeatures {
			return nil, fmt.Errorf("logistic artifact has %d weights, expected %d", len(a.Weights), nFeatures)
		}
		return &Logistic{Weights: a.Weights, Bias: a.Bias}, nil
	default:
		return nil, fmt.Errorf("unknown model kind %q", a.Kind)
	}
}
