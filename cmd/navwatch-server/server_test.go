package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/navwatch/internal/app"
	"github.com/bobmcallan/navwatch/internal/models"
	"github.com/bobmcallan/navwatch/internal/server"
)

func writeTestConfig(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "navwatch.toml")
	content := `
[storage]
backend = "memory"

[sources]
reference_url = "http://127.0.0.1:1"
holdings_url = "http://127.0.0.1:1"
quote_url = "http://127.0.0.1:1"
timeout = "200ms"

[logging]
level = "disabled"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// testServer creates an httptest.Server with the full navwatch handler.
func testServer(t *testing.T) *httptest.Server {
	ts, _ := testServerWithApp(t)
	return ts
}

func testServerWithApp(t *testing.T) (*httptest.Server, *app.App) {
	t.Helper()
	a, err := app.NewApp(writeTestConfig(t))
	require.NoError(t, err)
	t.Cleanup(a.Close)

	ts := httptest.NewServer(server.NewServer(a).Handler())
	t.Cleanup(ts.Close)
	return ts, a
}

func TestHealthEndpoint(t *testing.T) {
	ts := testServer(t)

	resp, err := http.Get(ts.URL + "/api/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])
}

func TestFeedbackRoundTrip(t *testing.T) {
	ts := testServer(t)

	resp, err := http.Post(ts.URL+"/api/feedback", "application/json",
		bytes.NewBufferString(`{"type":1,"content":"please add QDII funds"}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(ts.URL + "/api/admin/feedbacks")
	require.NoError(t, err)
	defer resp.Body.Close()

	var env struct {
		Code int `json:"code"`
		Data []struct {
			ID      string `json:"id"`
			Content string `json:"content"`
		} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	assert.Equal(t, 200, env.Code)
	require.Len(t, env.Data, 1)
	assert.Equal(t, "please add QDII funds", env.Data[0].Content)
}

func TestMCPEndpoint_ListsTools(t *testing.T) {
	ts := testServer(t)

	c, err := client.NewStreamableHttpClient(ts.URL + "/mcp")
	require.NoError(t, err)
	defer c.Close()

	ctx := context.Background()
	require.NoError(t, c.Start(ctx))

	initReq := mcp.InitializeRequest{}
	initReq.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	initReq.Params.ClientInfo = mcp.Implementation{Name: "navwatch-test-client", Version: "1.0.0"}
	_, err = c.Initialize(ctx, initReq)
	require.NoError(t, err)

	tools, err := c.ListTools(ctx, mcp.ListToolsRequest{})
	require.NoError(t, err)

	var names []string
	for _, tool := range tools.Tools {
		names = append(names, tool.Name)
	}
	assert.Contains(t, names, "get_fund_valuation")
	assert.Contains(t, names, "get_fund_history")
	assert.Contains(t, names, "get_version")

	req := mcp.CallToolRequest{}
	req.Params.Name = "get_version"
	result, err := c.CallTool(ctx, req)
	require.NoError(t, err)
	require.NotEmpty(t, result.Content)
	text, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok)
	assert.Contains(t, text.Text, "Status: OK")
}

func TestStreamEndpoint_ReceivesPublishedEstimates(t *testing.T) {
	ts, a := testServerWithApp(t)

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/stream?codes=161725"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return a.Stream.ClientCount() == 1 }, time.Second, 5*time.Millisecond)

	a.Stream.Publish(models.EstimateResult{Code: "161725", Name: "白酒指数", BaselineNAV: 1.5, EstimatedNAV: 1.5264, Rate: 0.0176})

	var update map[string]string
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	require.NoError(t, conn.ReadJSON(&update))
	assert.Equal(t, "161725", update["code"])
	assert.Equal(t, "1.5264", update["est_nav"])
	assert.Equal(t, "1.76", update["est_rate"])
}
