package models

import "time"

// AnomalyLabel is the verdict label of the mouse path.
type AnomalyLabel string

const (
	LabelAnomalous AnomalyLabel = "ANOMALOUS"
	LabelNormal    AnomalyLabel = "NORMAL"
)

// FraudLabel is the verdict label of the fraud path, as sent on the wire.
type FraudLabel string

const (
	LabelFraud    FraudLabel = "FRAUD"
	LabelNotFraud FraudLabel = "NOT FRAUD"
)

// OutlierOutput is the raw mouse-model output: the decision-function score
// and the predicted class.
type OutlierOutput struct {
	Score float64 `json:"score"`
	Class int     `json:"class"`
}

// ClassifierOutput is the raw tabular-model output, one entry per row.
// Probabilities holds the class-1 probability.
type ClassifierOutput struct {
	Predictions   []int     `json:"predictions"`
	Probabilities []float64 `json:"probabilities"`
}

// MouseVerdict is the response of the movement anomaly endpoint.
type MouseVerdict struct {
	AnomalyScore float64      `json:"anomaly_score"`
	IsAnomaly    bool         `json:"is_anomaly"`
	Label        AnomalyLabel `json:"-"`
}

// FraudVerdict is the response of the fraud endpoint.
type FraudVerdict struct {
	Prediction  FraudLabel `json:"prediction"`
	Probability float64    `json:"probability"`
}

// TabularVerdict is one output record of the tabular anomaly endpoint.
type TabularVerdict struct {
	PredictedIsAnomaly int     `json:"predicted_is_anomaly"`
	AnomalyProbability float64 `json:"anomaly_probability"`
	IsAnomaly          *int    `json:"is_anomaly,omitempty"`
}

// VerdictKind names the request kind a verdict came from.
type VerdictKind string

const (
	KindMouse   VerdictKind = "mouse"
	KindFraud   VerdictKind = "fraud"
	KindTabular VerdictKind = "tabular"
)

// VerdictEvent is the audit record published for each verdict.
type VerdictEvent struct {
	ID    string      `json:"id"`
	Kind  VerdictKind `json:"kind"`
	Label string      `json:"label"`
	Score float64     `json:"score"`
	At    time.Time   `json:"at"`
}
