package inference

import (
	"context"
	"fmt"
	"math"

	"RiskScore/internal/domain/models"
	domsvc "RiskScore/internal/domain/service"
)

const (
	mousePath   = "/models/mouse/score"
	fraudPath   = "/models/fraud/predict"
	tabularPath = "/models/tabular/classify"
)

// HTTPMouseModel scores kinematic vectors with the outlier model.
type HTTPMouseModel struct {
	base *HTTPServiceBase
}

func NewHTTPMouseModel(base *HTTPServiceBase) *HTTPMouseModel {
	return &HTTPMouseModel{base: base}
}

type mouseReq struct {
	Columns  []string  `json:"columns"`
	Features []float64 `json:"features"`
}

type mouseResp struct {
	Score *float64 `json:"score"`
	Class *int     `json:"class"`
}

func (m *HTTPMouseModel) Score(ctx context.Context, v models.KinematicFeatureVector) (models.OutlierOutput, error) {
	var resp mouseResp
	req := mouseReq{Columns: models.KinematicColumns, Features: v.Values()}
	if err := m.base.PostJSON(ctx, "mouse", mousePath, req, &resp); err != nil {
		return models.OutlierOutput{}, err
	}
	if resp.Score == nil || resp.Class == nil {
		return models.OutlierOutput{}, &ModelError{Model: "mouse", Err: fmt.Errorf("response misses score or class")}
	}
	if !finite(*resp.Score) {
		return models.OutlierOutput{}, &ModelError{Model: "mouse", Err: fmt.Errorf("non-finite score")}
	}
	return models.OutlierOutput{Score: *resp.Score, Class: *resp.Class}, nil
}

// HTTPFraudModel returns fraud probabilities for transaction rows.
type HTTPFraudModel struct {
	base *HTTPServiceBase
}

func NewHTTPFraudModel(base *HTTPServiceBase) *HTTPFraudModel {
	return &HTTPFraudModel{base: base}
}

type fraudReq struct {
	Row models.FraudFeatureRow `json:"row"`
}

type fraudResp struct {
	Probability *float64 `json:"probability"`
}

func (m *HTTPFraudModel) Predict(ctx context.Context, row models.FraudFeatureRow) (float64, error) {
	var resp fraudResp
	if err := m.base.PostJSON(ctx, "fraud", fraudPath, fraudReq{Row: row}, &resp); err != nil {
		return 0, err
	}
	if resp.Probability == nil || !isProbability(*resp.Probability) {
		return 0, &ModelError{Model: "fraud", Err: fmt.Errorf("response has no probability in [0,1]")}
	}
	return *resp.Probability, nil
}

// HTTPTabularModel classifies encoded anomaly records.
type HTTPTabularModel struct {
	base *HTTPServiceBase
}

func NewHTTPTabularModel(base *HTTPServiceBase) *HTTPTabularModel {
	return &HTTPTabularModel{base: base}
}

type tabularReq struct {
	Columns []string    `json:"columns"`
	Rows    [][]float64 `json:"rows"`
}

func (m *HTTPTabularModel) Classify(ctx context.Context, fm models.FeatureMatrix) (models.ClassifierOutput, error) {
	var out models.ClassifierOutput
	if err := m.base.PostJSON(ctx, "tabular", tabularPath, tabularReq{Columns: fm.Columns, Rows: fm.Rows}, &out); err != nil {
		return models.ClassifierOutput{}, err
	}
	n := fm.Len()
	if len(out.Predictions) != n || len(out.Probabilities) != n {
		return models.ClassifierOutput{}, &ModelError{Model: "tabular", Err: fmt.Errorf(
			"expected %d rows, got %d predictions and %d probabilities", n, len(out.Predictions), len(out.Probabilities))}
	}
	for i, p := range out.Probabilities {
		if !isProbability(p) {
			return models.ClassifierOutput{}, &ModelError{Model: "tabular", Err: fmt.Errorf("row %d: probability %v outside [0,1]", i, p)}
		}
	}
	return out, nil
}

func finite(x float64) bool { return !math.IsNaN(x) && !math.IsInf(x, 0) }

func isProbability(p float64) bool { return finite(p) && p >= 0 && p <= 1 }

var (
	_ domsvc.MouseModel   = (*HTTPMouseModel)(nil)
	_ domsvc.FraudModel   = (*HTTPFraudModel)(nil)
	_ domsvc.TabularModel = (*HTTPTabularModel)(nil)
)
