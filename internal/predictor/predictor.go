// Package predictor loads the survival classifier artifact and scores feature vectors.
package predictor

import (
	"errors"
	"fmt"
	"math"
)

// ErrFeatureCount is returned when a vector does not match the model's input width.
var ErrFeatureCount = errors.New("unexpected number of features")

// Model returns the probability of the positive class for one feature vector.
type Model interface {
	PredictProba(features []float64) (float64, error)
}

// Func adapts a plain function to Model.
type Func func(features []float64) (float64, error)

// PredictProba calls f.
func (f Func) PredictProba(features []float64) (float64, error) {
	return f(features)
}

type safeModel struct {
	inner Model
}

// Safe wraps m so that a panic inside the model surfaces as an error.
func Safe(m Model) Model {
	if m == nil {
		return nil
	}
	return &safeModel{inner: m}
}

func (s *safeModel) PredictProba(features []float64) (p float64, err error) {
	defer func() {
		if r := recover(); r != nil {
			p, err = 0, fmt.Errorf("model panicked: %v", r)
		}
	}()
	return s.inner.PredictProba(features)
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}
