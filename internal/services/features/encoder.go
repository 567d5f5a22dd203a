package features

import (
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"sort"

	"RiskScore/internal/domain/models"
)

// EncodingTable maps field name -> category label -> integer code, as
// produced at training time.
type EncodingTable map[string]map[string]int

// Code looks up the code of value in field.
func (t EncodingTable) Code(field, value string) (int, bool) {
	codes, ok := t[field]
	if !ok {
		return 0, false
	}
	code, ok := codes[value]
	return code, ok
}

// Scaler holds training-time standardization parameters per column.
type Scaler struct {
	Mean  map[string]float64 `yaml:"mean" json:"mean"`
	Scale map[string]float64 `yaml:"scale" json:"scale"`
}

// Has reports whether col has persisted parameters.
func (s Scaler) Has(col string) bool {
	_, ok := s.Mean[col]
	return ok
}

// Transform standardizes v with the parameters of col. A zero scale is
// treated as 1, matching a constant training column.
func (s Scaler) Transform(col string, v float64) float64 {
	mean, ok := s.Mean[col]
	if !ok {
		return v
	}
	scale := s.Scale[col]
	if scale == 0 || math.IsNaN(scale) {
		scale = 1
	}
	return (v - mean) / scale
}

// Encoder turns AnomalyRecords into the tabular model's feature matrix.
// It is immutable after construction and safe for concurrent use.
type Encoder struct {
	columns     []string
	categorical map[string]bool
	table       EncodingTable
	scaler      Scaler
}

// NewEncoder checks the artifact pieces against each other and builds an
// Encoder. Every numeric column needs scaler parameters and every
// categorical column needs an encoding table entry.
func NewEncoder(columns []string, table EncodingTable, scaler Scaler) (*Encoder, error) {
	if len(columns) == 0 {
		return nil, fmt.Errorf("feature columns are required")
	}
	e := &Encoder{
		columns:     slices.Clone(columns),
		categorical: make(map[string]bool),
		table:       table,
		scaler:      scaler,
	}
	seen := make(map[string]bool, len(columns))
	for _, col := range columns {
		if seen[col] {
			return nil, fmt.Errorf("duplicate feature column %q", col)
		}
		seen[col] = true
		if isReserved(col) {
			return nil, fmt.Errorf("column %q cannot be a feature", col)
		}
		if slices.Contains(models.CategoricalFields, col) {
			if len(table[col]) == 0 {
				return nil, fmt.Errorf("no encoding table for categorical column %q", col)
			}
			e.categorical[col] = true
			continue
		}
		if !scaler.Has(col) {
			return nil, fmt.Errorf("no scaler parameters for numeric column %q", col)
		}
	}
	return e, nil
}

// Columns returns the feature column order.
func (e *Encoder) Columns() []string { return slices.Clone(e.columns) }

// EncodeCategory returns the code of a categorical value.
func (e *Encoder) EncodeCategory(field, value string) (int, error) {
	code, ok := e.table.Code(field, value)
	if !ok {
		return 0, &EncodingError{Field: field, Value: value}
	}
	return code, nil
}

// Encode maps records to a feature matrix, preserving record order.
// Metadata columns are dropped and the is_anomaly label is split off into
// FeatureMatrix.Labels.
func (e *Encoder) Encode(records []models.AnomalyRecord) (models.FeatureMatrix, error) {
	m := models.FeatureMatrix{
		Columns: e.Columns(),
		Rows:    make([][]float64, 0, len(records)),
		Labels:  make([]*int, 0, len(records)),
	}
	for i, rec := range records {
		row, err := e.encodeRow(i, rec)
		if err != nil {
			return models.FeatureMatrix{}, err
		}
		label, err := labelOf(i, rec)
		if err != nil {
			return models.FeatureMatrix{}, err
		}
		m.Rows = append(m.Rows, row)
		m.Labels = append(m.Labels, label)
	}
	return m, nil
}

func (e *Encoder) encodeRow(i int, rec models.AnomalyRecord) ([]float64, error) {
	if err := e.checkUnknown(i, rec); err != nil {
		return nil, err
	}
	row := make([]float64, len(e.columns))
	for j, col := range e.columns {
		raw, ok := rec[col]
		if !ok || raw == nil {
			return nil, &SchemaError{Row: i, Field: col, Reason: "is required"}
		}
		var v float64
		if e.categorical[col] {
			label, ok := categoryLabel(raw)
			if !ok {
				return nil, &EncodingError{Row: i, Field: col, Value: fmt.Sprintf("%v", raw)}
			}
			code, err := e.EncodeCategory(col, label)
			if err != nil {
				return nil, &EncodingError{Row: i, Field: col, Value: label}
			}
			v = float64(code)
		} else {
			f, err := numberOf(raw)
			if err != nil {
				return nil, &SchemaError{Row: i, Field: col, Reason: err.Error()}
			}
			v = f
		}
		row[j] = e.scaler.Transform(col, v)
	}
	return row, nil
}

func (e *Encoder) checkUnknown(i int, rec models.AnomalyRecord) error {
	var unknown []string
	for k := range rec {
		if isReserved(k) || slices.Contains(e.columns, k) {
			continue
		}
		unknown = append(unknown, k)
	}
	if len(unknown) == 0 {
		return nil
	}
	sort.Strings(unknown)
	return &SchemaError{Row: i, Field: unknown[0], Reason: "is not a model feature"}
}

func labelOf(i int, rec models.AnomalyRecord) (*int, error) {
	raw, ok := rec[models.FieldIsAnomaly]
	if !ok || raw == nil {
		return nil, nil
	}
	var v int
	switch x := raw.(type) {
	case bool:
		if x {
			v = 1
		}
	case json.Number:
		f, err := x.Float64()
		if err != nil || f != math.Trunc(f) {
			return nil, &SchemaError{Row: i, Field: models.FieldIsAnomaly, Reason: "must be an integer"}
		}
		if f < math.MinInt32 || f > math.MaxInt32 {
			return nil, &SchemaError{Row: i, Field: models.FieldIsAnomaly, Reason: "is out of range"}
		}
		v = int(f)
	default:
		return nil, &SchemaError{Row: i, Field: models.FieldIsAnomaly, Reason: "must be an integer"}
	}
	return &v, nil
}

func categoryLabel(raw any) (string, bool) {
	switch x := raw.(type) {
	case string:
		return x, true
	case json.Number:
		return x.String(), true
	default:
		return "", false
	}
}

func numberOf(raw any) (float64, error) {
	switch x := raw.(type) {
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return 0, fmt.Errorf("must be a number")
		}
		return f, nil
	case float64:
		return x, nil
	default:
		return 0, fmt.Errorf("must be a number")
	}
}

func isReserved(col string) bool {
	return col == models.FieldIsAnomaly || slices.Contains(models.MetadataFields, col)
}
