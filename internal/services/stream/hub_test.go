package stream

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/navwatch/internal/common"
	"github.com/bobmcallan/navwatch/internal/models"
	"github.com/bobmcallan/navwatch/internal/services/calendar"
)

var cst = calendar.LoadLocation("Asia/Shanghai")

func startHub(t *testing.T) (*Hub, *httptest.Server) {
	t.Helper()
	hub := NewHub(cst, common.NewSilentLogger())
	go hub.Run()
	ts := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	t.Cleanup(func() {
		ts.Close()
		hub.Stop()
	})
	return hub, ts
}

func dial(t *testing.T, ts *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/" + query
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func result(code string) models.EstimateResult {
	return models.EstimateResult{
		Code:         code,
		Name:         "fund " + code,
		BaselineNAV:  1.5,
		EstimatedNAV: 1.5264,
		Rate:         0.0176,
		ComputedAt:   time.Date(2026, 10, 12, 10, 1, 5, 0, cst),
	}
}

func TestHub_DeliversFilteredUpdates(t *testing.T) {
	hub, ts := startHub(t)
	all := dial(t, ts, "")
	only := dial(t, ts, "?codes=005827,bogus")

	require.Eventually(t, func() bool { return hub.ClientCount() == 2 }, time.Second, 5*time.Millisecond)

	hub.Publish(result("161725"))
	hub.Publish(result("005827"))

	var u Update
	all.SetReadDeadline(time.Now().Add(2 * time.Second))
	require.NoError(t, all.ReadJSON(&u))
	assert.Equal(t, Update{
		Type:       "estimate",
		Code:       "161725",
		Name:       "fund 161725",
		LastNAV:    "1.5000",
		EstNAV:     "1.5264",
		EstRate:    "1.76",
		UpdateTime: "2026-10-12 10:01:05",
	}, u)
	require.NoError(t, all.ReadJSON(&u))
	assert.Equal(t, "005827", u.Code)

	only.SetReadDeadline(time.Now().Add(2 * time.Second))
	require.NoError(t, only.ReadJSON(&u))
	assert.Equal(t, "005827", u.Code, "filtered client skips 161725")
}

func TestHub_UnregistersOnDisconnect(t *testing.T) {
	hub, ts := startHub(t)
	conn := dial(t, ts, "")
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 5*time.Millisecond)

	conn.Close()
	assert.Eventually(t, func() bool { return hub.ClientCount() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestHub_StopDisconnectsClients(t *testing.T) {
	hub, ts := startHub(t)
	conn := dial(t, ts, "")
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 5*time.Millisecond)

	hub.Stop()
	hub.Stop()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err)
	assert.Equal(t, 0, hub.ClientCount())
}

func TestHub_PublishNeverBlocks(t *testing.T) {
	hub := NewHub(cst, common.NewSilentLogger()) // Run not started

	done := make(chan struct{})
	go func() {
		for i := 0; i < 1000; i++ {
			hub.Publish(result("161725"))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Publish blocked with a full queue")
	}
}

func TestParseCodes(t *testing.T) {
	assert.Nil(t, ParseCodes(""))
	assert.Nil(t, ParseCodes("  "))
	assert.Equal(t, map[string]bool{"161725": true, "005827": true}, ParseCodes("161725, 005827,abc,1234567"))
	assert.Empty(t, ParseCodes("abc"))
}
