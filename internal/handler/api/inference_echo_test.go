package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	models "RiskScore/internal/domain/models"
	domrepo "RiskScore/internal/domain/repository"
	"RiskScore/internal/service/ratelimit"
	"RiskScore/internal/services/features"
	"RiskScore/internal/services/inference"
	xhttp "RiskScore/pkg/http"
	xlogger "RiskScore/pkg/logger"
)

type fakeScorer struct {
	samples []models.MovementSample
	tx      models.TransactionRecord
	records []models.AnomalyRecord
	err     error
}

func (f *fakeScorer) AnalyzeMouse(_ context.Context, s []models.MovementSample) (models.MouseVerdict, error) {
	f.samples = s
	if f.err != nil {
		return models.MouseVerdict{}, f.err
	}
	return models.MouseVerdict{AnomalyScore: -0.2, IsAnomaly: true, Label: models.LabelAnomalous}, nil
}

func (f *fakeScorer) PredictFraud(_ context.Context, tx models.TransactionRecord) (models.FraudVerdict, error) {
	f.tx = tx
	if f.err != nil {
		return models.FraudVerdict{}, f.err
	}
	return models.FraudVerdict{Prediction: models.LabelFraud, Probability: 0.97}, nil
}

func (f *fakeScorer) DetectAnomalies(_ context.Context, recs []models.AnomalyRecord) ([]models.TabularVerdict, error) {
	f.records = recs
	if f.err != nil {
		return nil, f.err
	}
	out := make([]models.TabularVerdict, len(recs))
	for i := range recs {
		out[i] = models.TabularVerdict{PredictedIsAnomaly: i % 2, AnomalyProbability: 0.5}
	}
	return out, nil
}

func newEcho(hs ...xhttp.Handler) *echo.Echo {
	e := echo.New()
	e.HTTPErrorHandler = xhttp.HTTPErrorHandler
	xhttp.Handlers(hs).RegisterRoutes(e)
	return e
}

func do(e *echo.Echo, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) xhttp.ErrorResponse {
	t.Helper()
	var body xhttp.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestAnalyzeMouseEndpoint(t *testing.T) {
	sc := &fakeScorer{}
	e := newEcho(NewInferenceEchoHandler(xlogger.Nop(), sc))

	rec := do(e, http.MethodPost, "/analyze-mouse", `[{"x":0,"y":0,"time_ms":0},{"x":3,"y":4,"time_ms":10}]`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"anomaly_score":-0.2,"is_anomaly":true}`, rec.Body.String())
	assert.Equal(t, []models.MovementSample{{X: 0, Y: 0, TimeMs: 0}, {X: 3, Y: 4, TimeMs: 10}}, sc.samples)
}

func TestAnalyzeMouseValidation(t *testing.T) {
	e := newEcho(NewInferenceEchoHandler(xlogger.Nop(), &fakeScorer{}))

	rec := do(e, http.MethodPost, "/analyze-mouse", `[{"x":0,"y":0}]`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeError(t, rec)
	assert.Equal(t, "ERR_REQUIRED", body.Code)
	require.NotEmpty(t, body.Details)
	assert.Equal(t, "[0].time_ms", body.Details[0].Field)

	rec = do(e, http.MethodPost, "/analyze-mouse", `{"x":1}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(e, http.MethodPost, "/analyze-mouse", `[]`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPredictFraudEndpoint(t *testing.T) {
	sc := &fakeScorer{}
	e := newEcho(NewInferenceEchoHandler(xlogger.Nop(), sc))

	rec := do(e, http.MethodPost, "/predict-fraud", `{"type":"TRANSFER","amount":100,"oldbalanceOrig":100,
		"newbalanceOrig":0,"oldbalanceDest":0,"newbalanceDest":0}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"prediction":"FRAUD","probability":0.97}`, rec.Body.String())
	assert.Equal(t, 100.0, sc.tx.OldBalanceOrig)
}

func TestPredictFraudPassesTypeThrough(t *testing.T) {
	sc := &fakeScorer{}
	e := newEcho(NewInferenceEchoHandler(xlogger.Nop(), sc))

	rec := do(e, http.MethodPost, "/predict-fraud", `{"type":"GIFT","amount":-5,"oldbalanceOrig":0,
		"newbalanceOrig":0,"oldbalanceDest":0,"newbalanceDest":0}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "GIFT", sc.tx.Type)
	assert.Equal(t, -5.0, sc.tx.Amount)
}

func TestPredictFraudRequiresType(t *testing.T) {
	e := newEcho(NewInferenceEchoHandler(xlogger.Nop(), &fakeScorer{}))

	rec := do(e, http.MethodPost, "/predict-fraud", `{"amount":1,"oldbalanceOrig":0,
		"newbalanceOrig":0,"oldbalanceDest":0,"newbalanceDest":0}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "ERR_REQUIRED", decodeError(t, rec).Code)
}

func TestDetectAnomalyAcceptsObjectOrArray(t *testing.T) {
	sc := &fakeScorer{}
	e := newEcho(NewInferenceEchoHandler(xlogger.Nop(), sc))

	rec := do(e, http.MethodPost, "/detect-anomaly", `{"a":1}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, sc.records, 1)

	rec = do(e, http.MethodPost, "/detect-anomaly", `[{"a":1},{"a":2},{"a":3}]`)
	require.Equal(t, http.StatusOK, rec.Code)
	var out []models.TabularVerdict
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Len(t, out, 3)

	rec = do(e, http.MethodPost, "/detect-anomaly", `"nope"`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDetectAnomalyRejectsConcatenatedObjects(t *testing.T) {
	sc := &fakeScorer{}
	e := newEcho(NewInferenceEchoHandler(xlogger.Nop(), sc))

	rec := do(e, http.MethodPost, "/detect-anomaly", `{"a":1}{"b":2}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "ERR_BAD_REQUEST", decodeError(t, rec).Code)
	assert.Nil(t, sc.records)
}

func TestScoringErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"schema", &features.SchemaError{Field: "bytes_out", Reason: "is required"}, http.StatusBadRequest, "ERR_SCHEMA"},
		{"encoding", &features.EncodingError{Field: "ip_class", Value: "x"}, http.StatusUnprocessableEntity, "ERR_ENCODING"},
		{"model", &inference.ModelError{Model: "tabular", Err: errors.New("timeout")}, http.StatusInternalServerError, "ERR_MODEL"},
		{"not configured", &inference.ModelError{Model: "tabular", Err: inference.ErrNotConfigured}, http.StatusServiceUnavailable, "ERR_UNAVAILABLE"},
		{"other", errors.New("boom"), http.StatusInternalServerError, "ERR_INTERNAL"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEcho(NewInferenceEchoHandler(xlogger.Nop(), &fakeScorer{err: tt.err}))
			rec := do(e, http.MethodPost, "/detect-anomaly", `[{"a":1}]`)
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.code, decodeError(t, rec).Code)
		})
	}
}

func TestScoringRoutesRateLimited(t *testing.T) {
	lim := ratelimit.New()
	e := newEcho(NewInferenceEchoHandler(xlogger.Nop(), &fakeScorer{}, ratelimit.Middleware(lim, 1, 0.001)))

	rec := do(e, http.MethodPost, "/detect-anomaly", `{"a":1}`)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = do(e, http.MethodPost, "/detect-anomaly", `{"a":1}`)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "ERR_RATE_LIMITED", decodeError(t, rec).Code)
}

type fakeCursor struct {
	saved    map[string][]models.MovementSample
	since    time.Time
	limit    int
	analyzed string
}

func (f *fakeCursor) Save(_ context.Context, id string, ev []models.MovementSample) (int, error) {
	if f.saved == nil {
		f.saved = map[string][]models.MovementSample{}
	}
	f.saved[id] = ev
	return len(ev), nil
}

func (f *fakeCursor) List(_ context.Context, since time.Time, limit int) ([]models.CursorSession, error) {
	f.since, f.limit = since, limit
	out := []models.CursorSession{}
	for id, ev := range f.saved {
		out = append(out, models.CursorSession{SessionID: id, Events: ev})
	}
	return out, nil
}

func (f *fakeCursor) Analyze(_ context.Context, id string) (models.MouseVerdict, error) {
	f.analyzed = id
	if _, ok := f.saved[id]; !ok {
		return models.MouseVerdict{}, domrepo.ErrSessionNotFound
	}
	return models.MouseVerdict{AnomalyScore: 0.1}, nil
}

func TestCursorRoutes(t *testing.T) {
	fc := &fakeCursor{}
	e := newEcho(NewCursorEchoHandler(xlogger.Nop(), fc))

	rec := do(e, http.MethodPost, "/api/cursor-events", `{"sessionId":"s1","events":[{"x":1,"y":2,"time_ms":3}]}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.JSONEq(t, `{"message":"Events saved","count":1}`, rec.Body.String())

	rec = do(e, http.MethodGet, "/api/cursor-events/all?since=2024-01-01T00:00:00Z&limit=5", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 5, fc.limit)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), fc.since.UTC())
	var list xhttp.ListDataResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.EqualValues(t, 1, list.Total)

	rec = do(e, http.MethodGet, "/api/cursor-events/all", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 100, fc.limit)

	rec = do(e, http.MethodGet, "/api/cursor-events/s1/analyze", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "s1", fc.analyzed)

	rec = do(e, http.MethodGet, "/api/cursor-events/ghost/analyze", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCursorSaveValidation(t *testing.T) {
	e := newEcho(NewCursorEchoHandler(xlogger.Nop(), &fakeCursor{}))

	rec := do(e, http.MethodPost, "/api/cursor-events", `{"events":[{"x":1,"y":2,"time_ms":3}]}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "sessionId", decodeError(t, rec).Details[0].Field)

	rec = do(e, http.MethodPost, "/api/cursor-events", `{"sessionId":"s","events":[]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(e, http.MethodGet, "/api/cursor-events/all?since=yesterday", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
