package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"oncoai/internal/metrics"
	"oncoai/internal/models"
	"oncoai/internal/predictor"
	"oncoai/internal/tabular"

	log "github.com/sirupsen/logrus"
	"github.com/sourcegraph/conc/iter"
)

// Prediction modes used as metric labels.
const (
	modeSingle = "single"
	modeBatch  = "batch"
)

// PredictionService validates feature vectors and scores them with the model.
type PredictionService struct {
	model   predictor.Model
	workers int
	events  EventPublisher
	metrics *metrics.Metrics
}

// PredictionOption customizes a PredictionService.
type PredictionOption func(*PredictionService)

// WithBatchWorkers bounds how many batch rows are scored concurrently.
func WithBatchWorkers(n int) PredictionOption {
	return func(s *PredictionService) {
		if n > 0 {
			s.workers = n
		}
	}
}

// WithPredictionEvents publishes prediction.batch_completed events to p.
func WithPredictionEvents(p EventPublisher) PredictionOption {
	return func(s *PredictionService) {
		s.events = p
	}
}

// WithPredictionMetrics records prediction outcomes on m.
func WithPredictionMetrics(m *metrics.Metrics) PredictionOption {
	return func(s *PredictionService) {
		s.metrics = m
	}
}

// NewPredictionService creates a PredictionService around model. A nil model
// is allowed; every prediction then fails with ErrInfrastructure. Panics in
// the model are reported as ErrPredictionFailed.
func NewPredictionService(model predictor.Model, opts ...PredictionOption) *PredictionService {
	s := &PredictionService{
		model:   predictor.Safe(model),
		workers: 1,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ModelLoaded reports whether a model is available.
func (s *PredictionService) ModelLoaded() bool {
	return s.model != nil
}

// ParseFeatures checks that raw holds exactly models.FeatureCount numeric
// values and converts them. The count is checked before any element.
func ParseFeatures(raw []any) (models.FeatureVector, error) {
	if len(raw) != models.FeatureCount {
		return nil, &ValidationError{
			Reason: fmt.Sprintf("%s: expected %d features, got %d", ReasonFeatureCount, models.FeatureCount, len(raw)),
		}
	}
	vec := make(models.FeatureVector, len(raw))
	for i, v := range raw {
		f, ok := toFloat(v)
		if !ok {
			return nil, &ValidationError{Reason: ReasonNonNumeric, Columns: []string{models.FeatureColumns[i]}}
		}
		vec[i] = f
	}
	return vec, nil
}

func toFloat(v any) (float64, bool) {
	var f float64
	switch x := v.(type) {
	case float64:
		f = x
	case float32:
		f = float64(x)
	case int:
		f = float64(x)
	case int32:
		f = float64(x)
	case int64:
		f = float64(x)
	case json.Number:
		parsed, err := x.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// PredictOne validates features and returns the survival probability. The
// caller must already have passed AuthService.ResolveCaller.
func (s *PredictionService) PredictOne(ctx context.Context, features []any, caller *models.User) (*models.PredictionResult, error) {
	vec, err := ParseFeatures(features)
	if err != nil {
		s.metrics.Prediction(modeSingle, metrics.OutcomeInvalidInput)
		return nil, err
	}

	if s.model == nil {
		s.metrics.Prediction(modeSingle, metrics.OutcomeInfrastructure)
		return nil, infrastructure("predict", errors.New("model not loaded"))
	}

	p, err := s.score(vec)
	if err != nil {
		s.metrics.Prediction(modeSingle, metrics.OutcomeFailed)
		log.WithError(err).WithField("username", username(caller)).Error("prediction failed")
		return nil, err
	}

	s.metrics.Prediction(modeSingle, metrics.OutcomeSuccess)
	return &models.PredictionResult{SurvivalProbability: p}, nil
}

type indexedRow struct {
	index int
	cells []string
}

// PredictBatch scores every row of table. The table must contain all
// models.FeatureColumns, otherwise nothing is scored. Rows that fail
// validation or make the model fail get a nil probability at their index.
func (s *PredictionService) PredictBatch(ctx context.Context, table *tabular.Table, caller *models.User) ([]models.BatchPrediction, error) {
	if s.model == nil {
		return nil, infrastructure("batch predict", errors.New("model not loaded"))
	}

	rows, err := table.Select(models.FeatureColumns)
	if err != nil {
		var missing *tabular.MissingColumnsError
		if errors.As(err, &missing) {
			return nil, &ValidationError{Reason: ReasonMissingColumns, Columns: missing.Columns}
		}
		return nil, &ValidationError{Reason: err.Error()}
	}
	s.metrics.ObserveBatch(len(rows))

	input := make([]indexedRow, len(rows))
	for i, cells := range rows {
		input[i] = indexedRow{index: i, cells: cells}
	}

	mapper := iter.Mapper[indexedRow, models.BatchPrediction]{MaxGoroutines: s.workers}
	results := mapper.Map(input, func(row *indexedRow) models.BatchPrediction {
		return s.scoreRow(row, caller)
	})

	failed := 0
	for _, r := range results {
		if r.SurvivalProbability == nil {
			failed++
		}
	}
	log.WithFields(log.Fields{
		"username": username(caller),
		"rows":     len(results),
		"failed":   failed,
	}).Info("batch prediction completed")
	publishEvent(s.events, EventPredictionBatchComplete, map[string]any{
		"username":    username(caller),
		"rows":        len(results),
		"failed_rows": failed,
	})

	return results, nil
}

func (s *PredictionService) scoreRow(row *indexedRow, caller *models.User) models.BatchPrediction {
	out := models.BatchPrediction{Row: row.index}

	raw := make([]any, len(row.cells))
	for i, c := range row.cells {
		raw[i] = c
	}
	vec, err := ParseFeatures(raw)
	if err != nil {
		s.metrics.Prediction(modeBatch, metrics.OutcomeInvalidInput)
		log.WithError(err).WithFields(log.Fields{"row": row.index, "username": username(caller)}).Warn("batch row rejected")
		return out
	}

	p, err := s.score(vec)
	if err != nil {
		s.metrics.Prediction(modeBatch, metrics.OutcomeFailed)
		log.WithError(err).WithFields(log.Fields{"row": row.index, "username": username(caller)}).Warn("batch row prediction failed")
		return out
	}

	s.metrics.Prediction(modeBatch, metrics.OutcomeSuccess)
	out.SurvivalProbability = &p
	return out
}

func (s *PredictionService) score(vec models.FeatureVector) (float64, error) {
	start := time.Now()
	p, err := s.model.PredictProba(vec)
	s.metrics.ObserveModel(time.Since(start))
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrPredictionFailed, err)
	}
	return p, nil
}

func username(u *models.User) string {
	if u == nil {
		return ""
	}
	return u.Username
}
