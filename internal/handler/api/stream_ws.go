package api

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	models "RiskScore/internal/domain/models"
	xhttp "RiskScore/pkg/http"
	"RiskScore/pkg/http/middleware"
	xlogger "RiskScore/pkg/logger"
)

// MouseAnalyzer scores a movement trace.
type MouseAnalyzer interface {
	AnalyzeMouse(ctx context.Context, samples []models.MovementSample) (models.MouseVerdict, error)
}

const (
	wsMaxMessage = 4 << 20
	wsPongWait   = 60 * time.Second
	wsPingEvery  = wsPongWait * 9 / 10
	wsWriteWait  = 10 * time.Second
)

// MouseStreamHandler scores movement traces sent over a websocket. Each
// text frame is a JSON array of samples; each reply is the verdict of that
// frame or an error body.
type MouseStreamHandler struct {
	logger   *xlogger.Logger
	analyzer MouseAnalyzer
	upgrader websocket.Upgrader
}

func NewMouseStreamHandler(logger *xlogger.Logger, analyzer MouseAnalyzer, allowOrigins []string) *MouseStreamHandler {
	return &MouseStreamHandler{
		logger:   logger,
		analyzer: analyzer,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				return middleware.OriginAllowed(allowOrigins, r.Header.Get("Origin"))
			},
		},
	}
}

func (h *MouseStreamHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/ws/mouse", h.Stream)
}

func (h *MouseStreamHandler) Stream(c echo.Context) error {
	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		h.logger.Debug("websocket upgrade failed", xlogger.Error(err))
		return nil
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(c.Request().Context())
	defer cancel()

	var wmu sync.Mutex
	write := func(mt int, v interface{}) error {
		wmu.Lock()
		defer wmu.Unlock()
		_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
		if mt == websocket.PingMessage {
			return conn.WriteMessage(mt, nil)
		}
		return conn.WriteJSON(v)
	}

	conn.SetReadLimit(wsMaxMessage)
	_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	// ping loop
	go func() {
		ticker := time.NewTicker(wsPingEvery)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := write(websocket.PingMessage, nil); err != nil {
					cancel()
					return
				}
			}
		}
	}()

	for {
		mt, b, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Warn("websocket read error", xlogger.Error(err))
			}
			return nil
		}
		if mt != websocket.TextMessage {
			continue
		}
		if err := write(websocket.TextMessage, h.score(ctx, b)); err != nil {
			h.logger.Debug("websocket write error", xlogger.Error(err))
			return nil
		}
	}
}

func (h *MouseStreamHandler) score(ctx context.Context, frame []byte) interface{} {
	var reqs []models.MovementSampleRequest
	if err := json.Unmarshal(frame, &reqs); err != nil {
		return xhttp.BadRequestError("frame must be a JSON array of samples").Body()
	}
	if verr := xhttp.ValidateList(ctx, reqs); verr != nil {
		return xhttp.ValidationFailed(verr).Body()
	}
	v, err := h.analyzer.AnalyzeMouse(ctx, models.Samples(reqs))
	if err != nil {
		appErr := scoringError(err)
		if appErr.Status >= http.StatusInternalServerError {
			h.logger.Error("websocket scoring failed", xlogger.Error(err))
		}
		return appErr.Body()
	}
	return v
}
