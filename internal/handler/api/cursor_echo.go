package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	models "RiskScore/internal/domain/models"
	domrepo "RiskScore/internal/domain/repository"
	xhttp "RiskScore/pkg/http"
	xlogger "RiskScore/pkg/logger"
)

// CursorService captures and scores cursor sessions.
type CursorService interface {
	Save(ctx context.Context, sessionID string, events []models.MovementSample) (int, error)
	List(ctx context.Context, since time.Time, limit int) ([]models.CursorSession, error)
	Analyze(ctx context.Context, sessionID string) (models.MouseVerdict, error)
}

type CursorEchoHandler struct {
	logger   *xlogger.Logger
	sessions CursorService
}

func NewCursorEchoHandler(logger *xlogger.Logger, sessions CursorService) *CursorEchoHandler {
	return &CursorEchoHandler{logger: logger, sessions: sessions}
}

func (h *CursorEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api/cursor-events")
	g.POST("", h.Save)
	g.GET("/all", h.List)
	g.GET("/:sessionId/analyze", h.Analyze)
}

func (h *CursorEchoHandler) Save(c echo.Context) error {
	req := &models.CursorEventsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	n, err := h.sessions.Save(c.Request().Context(), req.SessionID, models.Samples(req.Events))
	if err != nil {
		h.logger.Error("cursor save error", xlogger.String("session_id", req.SessionID), xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.CreatedResponse(c, &xhttp.MessageResponse{Message: "Events saved", Count: n})
}

func (h *CursorEchoHandler) List(c echo.Context) error {
	req := &models.CursorListRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	var since time.Time
	if req.Since != "" {
		since = xhttp.ParseTimeDefault(req.Since, time.Time{})
		if since.IsZero() {
			return xhttp.AppErrorResponse(c, xhttp.NewAppError("ERR_INVALID_TIME", "since",
				"since must be RFC3339 or a unix timestamp", http.StatusBadRequest))
		}
	}

	rows, err := h.sessions.List(c.Request().Context(), since, req.Limit)
	if err != nil {
		h.logger.Error("cursor list error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.ListResponse(c, rows, int64(len(rows)))
}

func (h *CursorEchoHandler) Analyze(c echo.Context) error {
	req := &models.CursorSessionRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	v, err := h.sessions.Analyze(c.Request().Context(), req.SessionID)
	if errors.Is(err, domrepo.ErrSessionNotFound) {
		return xhttp.AppErrorResponse(c, xhttp.NotFoundErrorf("session %s not found", req.SessionID))
	}
	if err != nil {
		appErr := scoringError(err)
		if appErr.Status >= 500 {
			h.logger.Error("cursor analyze error", xlogger.String("session_id", req.SessionID), xlogger.Error(err))
		}
		return xhttp.AppErrorResponse(c, appErr)
	}
	return xhttp.SuccessResponse(c, v)
}
