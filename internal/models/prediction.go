package models

// Biomarkers lists the genes the classifier was trained on, in model order.
var Biomarkers = []string{
	"B2M", "C1QB", "C1QC", "CASP1", "CD2", "CD3E", "CD4", "CD74",
	"FCER1G", "FCGR3A", "IL10", "LCK", "LCP2", "LYN", "PTPRC", "SERPING1",
}

// FeatureCount is the length every feature vector must have.
const FeatureCount = 32

// FeatureColumns is the canonical column order of a feature vector:
// <GENE>_expression followed by <GENE>_scna for each biomarker.
var FeatureColumns = func() []string {
	cols := make([]string, 0, 2*len(Biomarkers))
	for _, gene := range Biomarkers {
		cols = append(cols, gene+"_expression", gene+"_scna")
	}
	return cols
}()

// FeatureVector is a validated, model-ready input of FeatureCount values.
type FeatureVector []float64

// PredictionRequest is the body of a single prediction call. Elements are
// left untyped so non-numeric entries can be reported precisely.
type PredictionRequest struct {
	Features []any `json:"features" validate:"required"`
}

// PredictionResult is the classifier output for one feature vector.
type PredictionResult struct {
	SurvivalProbability float64 `json:"survival_probability"`
}

// BatchPrediction is the outcome for one uploaded row. A nil probability
// marks a row the model could not score.
type BatchPrediction struct {
	Row                 int      `json:"row"`
	SurvivalProbability *float64 `json:"survival_probability"`
}

// BatchPredictionResponse is the body returned by the batch endpoint.
type BatchPredictionResponse struct {
	Predictions []BatchPrediction `json:"predictions"`
}
