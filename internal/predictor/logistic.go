package predictor

import (
	"fmt"
	"math"
)

// Logistic is a linear model with a logistic link.
type Logistic struct {
	Weights []float64
	Bias    float64
}

// PredictProba returns sigmoid(w·x + b).
func (l *Logistic) PredictProba(features []float64) (float64, error) {
	if len(features) != len(l.Weights) {
		return 0, fmt.Errorf("%w: got %d, want %d", ErrFeatureCount, len(features), len(l.Weights))
	}
	z := l.Bias
	for i, w := range l.Weights {
		z += w * features[i]
	}
	p := sigmoid(z)
	if math.IsNaN(p) {
		return 0, fmt.Errorf("model produced NaN score")
	}
	return p, nil
}
