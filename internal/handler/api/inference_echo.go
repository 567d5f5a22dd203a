package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	models "RiskScore/internal/domain/models"
	svcmetrics "RiskScore/internal/service/metrics"
	"RiskScore/internal/services/features"
	"RiskScore/internal/services/inference"
	xhttp "RiskScore/pkg/http"
	xlogger "RiskScore/pkg/logger"
)

// Scorer runs the three scoring paths.
type Scorer interface {
	AnalyzeMouse(ctx context.Context, samples []models.MovementSample) (models.MouseVerdict, error)
	PredictFraud(ctx context.Context, tx models.TransactionRecord) (models.FraudVerdict, error)
	DetectAnomalies(ctx context.Context, records []models.AnomalyRecord) ([]models.TabularVerdict, error)
}

const (
	endpointMouse   = "analyze_mouse"
	endpointFraud   = "predict_fraud"
	endpointAnomaly = "detect_anomaly"
)

// InferenceEchoHandler serves the synchronous scoring endpoints.
type InferenceEchoHandler struct {
	logger *xlogger.Logger
	scorer Scorer
	mw     []echo.MiddlewareFunc
}

// NewInferenceEchoHandler builds the handler; mw is applied to every
// scoring route (rate limiting).
func NewInferenceEchoHandler(logger *xlogger.Logger, scorer Scorer, mw ...echo.MiddlewareFunc) *InferenceEchoHandler {
	return &InferenceEchoHandler{logger: logger, scorer: scorer, mw: mw}
}

func (h *InferenceEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("", h.mw...)
	g.POST("/analyze-mouse", h.AnalyzeMouse)
	g.POST("/predict-fraud", h.PredictFraud)
	g.POST("/detect-anomaly", h.DetectAnomaly)
}

// AnalyzeMouse scores a JSON array of {x, y, time_ms} samples.
func (h *InferenceEchoHandler) AnalyzeMouse(c echo.Context) error {
	start := time.Now()
	var reqs []models.MovementSampleRequest
	if verr := xhttp.ReadAndValidateList(c, &reqs); verr != nil {
		return h.fail(c, endpointMouse, xhttp.ValidationFailed(verr))
	}
	svcmetrics.InferenceRecords.WithLabelValues(endpointMouse).Observe(float64(len(reqs)))

	v, err := h.scorer.AnalyzeMouse(c.Request().Context(), models.Samples(reqs))
	if err != nil {
		return h.fail(c, endpointMouse, err)
	}
	h.observe(endpointMouse, start)
	return xhttp.SuccessResponse(c, v)
}

// PredictFraud scores one transaction.
func (h *InferenceEchoHandler) PredictFraud(c echo.Context) error {
	start := time.Now()
	req := &models.FraudRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return h.fail(c, endpointFraud, xhttp.ValidationFailed(verr))
	}
	svcmetrics.InferenceRecords.WithLabelValues(endpointFraud).Observe(1)

	v, err := h.scorer.PredictFraud(c.Request().Context(), req.Record())
	if err != nil {
		return h.fail(c, endpointFraud, err)
	}
	h.observe(endpointFraud, start)
	return xhttp.SuccessResponse(c, v)
}

// DetectAnomaly classifies one record or an array of records.
func (h *InferenceEchoHandler) DetectAnomaly(c echo.Context) error {
	start := time.Now()
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return h.fail(c, endpointAnomaly, xhttp.BadRequestErrorf("read body: %v", err))
	}
	records, err := features.ParseAnomalyRecords(body)
	if err != nil {
		return h.fail(c, endpointAnomaly, err)
	}
	svcmetrics.InferenceRecords.WithLabelValues(endpointAnomaly).Observe(float64(len(records)))

	out, err := h.scorer.DetectAnomalies(c.Request().Context(), records)
	if err != nil {
		return h.fail(c, endpointAnomaly, err)
	}
	h.observe(endpointAnomaly, start)
	return xhttp.SuccessResponse(c, out)
}

func (h *InferenceEchoHandler) fail(c echo.Context, endpoint string, err error) error {
	appErr := scoringError(err)
	svcmetrics.InferenceErrors.WithLabelValues(endpoint, appErr.Code).Inc()
	if appErr.Status >= http.StatusInternalServerError {
		h.logger.Error("scoring failed",
			xlogger.String("endpoint", endpoint),
			xlogger.String("code", appErr.Code),
			xlogger.Error(err),
		)
	}
	return xhttp.AppErrorResponse(c, appErr)
}

func (h *InferenceEchoHandler) observe(endpoint string, start time.Time) {
	svcmetrics.InferenceLatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
}

// scoringError maps pipeline errors onto HTTP errors.
func scoringError(err error) *xhttp.AppError {
	var (
		appErr   *xhttp.AppError
		shape    *features.ShapeError
		schema   *features.SchemaError
		encoding *features.EncodingError
		model    *inference.ModelError
	)
	switch {
	case errors.As(err, &appErr):
		return appErr
	case errors.As(err, &shape):
		return xhttp.BadRequestError(shape.Error()).WithError(err)
	case errors.As(err, &schema):
		return xhttp.SchemaError(schema.Field, schema.Error()).WithParam("row", schema.Row).WithError(err)
	case errors.As(err, &encoding):
		return xhttp.UnprocessableError("ERR_ENCODING", encoding.Field, encoding.Error()).
			WithParam("row", encoding.Row).
			WithParam("value", encoding.Value).
			WithError(err)
	case errors.Is(err, inference.ErrNotConfigured):
		return xhttp.ServiceUnavailableError("model service not configured").WithError(err)
	case errors.As(err, &model):
		e := xhttp.InternalError(fmt.Sprintf("%s model invocation failed", model.Model)).WithError(err)
		e.Code = "ERR_MODEL"
		return e
	default:
		return xhttp.InternalError("internal error").WithError(err)
	}
}
