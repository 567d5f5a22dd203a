package api

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	xhttp "RiskScore/pkg/http"
	xlogger "RiskScore/pkg/logger"
)

func TestMouseStream(t *testing.T) {
	sc := &fakeScorer{}
	e := newEcho(NewMouseStreamHandler(xlogger.Nop(), sc, []string{"*"}))
	srv := httptest.NewServer(e)
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/mouse"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`[{"x":0,"y":0,"time_ms":0},{"x":1,"y":1,"time_ms":5}]`)))
	var verdict map[string]interface{}
	require.NoError(t, conn.ReadJSON(&verdict))
	assert.Equal(t, true, verdict["is_anomaly"])

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"x":0}`)))
	var body xhttp.ErrorResponse
	require.NoError(t, conn.ReadJSON(&body))
	assert.Equal(t, "ERR_BAD_REQUEST", body.Code)
}

func TestMouseStreamRejectsForeignOrigin(t *testing.T) {
	e := newEcho(NewMouseStreamHandler(xlogger.Nop(), &fakeScorer{}, []string{"https://app.example.com"}))
	srv := httptest.NewServer(e)
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/mouse"
	header := map[string][]string{"Origin": {"https://evil.example.com"}}
	_, resp, err := websocket.DefaultDialer.Dial(url, header)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, 403, resp.StatusCode)
}
