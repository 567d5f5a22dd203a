package models

// Field names with fixed meaning inside an AnomalyRecord.
const (
	FieldIPClass     = "ip_class"
	FieldCountryCode = "country_code"
	FieldNetworkType = "network_type"

	FieldUserID      = "user_id"
	FieldTimestamp   = "timestamp"
	FieldAnomalyType = "anomaly_type"

	FieldIsAnomaly = "is_anomaly"
)

// CategoricalFields are encoded through the encoding table.
var CategoricalFields = []string{FieldIPClass, FieldCountryCode, FieldNetworkType}

// MetadataFields carry no predictive signal and never reach the model.
var MetadataFields = []string{FieldUserID, FieldTimestamp, FieldAnomalyType}

// AnomalyRecord is one arbitrary-width row of the tabular anomaly endpoint,
// keyed by column name. Values keep their decoded JSON type
// (json.Number, string, bool, nil).
type AnomalyRecord map[string]any

// FeatureMatrix is the encoded, scaled input to the tabular model.
// Labels[i] is the ground-truth echoed for Rows[i], nil when absent.
type FeatureMatrix struct {
	Columns []string
	Rows    [][]float64
	Labels  []*int
}

// Len returns the number of rows.
func (m FeatureMatrix) Len() int { return len(m.Rows) }
