package app

import (
	"context"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/bobmcallan/navwatch/internal/common"
	"github.com/bobmcallan/navwatch/internal/models"
	"github.com/bobmcallan/navwatch/internal/services/calendar"
	"github.com/bobmcallan/navwatch/internal/services/monitor"
	"github.com/bobmcallan/navwatch/internal/services/valuation"
	"github.com/bobmcallan/navwatch/internal/storage/memory"
)

type stubReference struct {
	snap *models.ReferenceSnapshot
	err  error
}

func (r *stubReference) FetchReferenceSnapshot(_ context.Context, code string) (*models.ReferenceSnapshot, error) {
	if r.err != nil {
		return nil, r.err
	}
	s := *r.snap
	s.Code = code
	return &s, nil
}

// testHarness provides an in-process MCP client connected to a navwatch
// tool set backed by the in-memory store and stub upstream sources.
type testHarness struct {
	t         *testing.T
	client    *client.Client
	mcpServer *server.MCPServer
	store     *memory.Manager
	registry  *monitor.Registry
	estimator *stubEstimator
	reference *stubReference
	clock     time.Time
}

// newTestHarness creates the MCP server and an initialized in-process client.
// The clock is fixed at clock and read through the market calendar.
func newTestHarness(t *testing.T, clock time.Time) *testHarness {
	t.Helper()

	h := &testHarness{
		t:         t,
		store:     memory.NewManager(),
		registry:  monitor.NewRegistry(),
		estimator: newStubEstimator(),
		reference: &stubReference{snap: &models.ReferenceSnapshot{
			Name: "白酒指数", BaselineNAV: 1.5, BaselineDate: "2026-10-09",
		}},
		clock: clock,
	}

	logger := common.NewSilentLogger()
	cal := calendar.MustDefault(calendar.WithClock(func() time.Time { return h.clock }))
	valuationService := valuation.NewService(h.estimator, h.reference, h.store, h.registry, cal, logger)

	h.mcpServer = server.NewMCPServer(
		"navwatch-test",
		"test",
		server.WithToolCapabilities(true),
	)
	h.mcpServer.AddTool(createGetVersionTool(), handleGetVersion())
	h.mcpServer.AddTool(createGetFundValuationTool(), handleGetFundValuation(valuationService, cal.Location(), logger))
	h.mcpServer.AddTool(createGetFundHistoryTool(), handleGetFundHistory(valuationService, logger))
	h.mcpServer.AddTool(createListMonitorsTool(), handleListMonitors(valuationService))

	c, err := client.NewInProcessClient(h.mcpServer)
	if err != nil {
		t.Fatalf("Failed to create in-process client: %v", err)
	}

	ctx := context.Background()
	if err := c.Start(ctx); err != nil {
		t.Fatalf("Failed to start client: %v", err)
	}

	initReq := mcp.InitializeRequest{}
	initReq.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	initReq.Params.ClientInfo = mcp.Implementation{
		Name:    "navwatch-test-client",
		Version: "1.0.0",
	}
	if _, err := c.Initialize(ctx, initReq); err != nil {
		c.Close()
		t.Fatalf("Failed to initialize MCP: %v", err)
	}
	h.client = c

	t.Cleanup(h.close)
	return h
}

// callTool invokes an MCP tool by name with the given arguments.
func (h *testHarness) callTool(name string, args map[string]any) (*mcp.CallToolResult, error) {
	h.t.Helper()
	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args
	return h.client.CallTool(context.Background(), req)
}

// getTextContent extracts text from a content block at the given index.
func (h *testHarness) getTextContent(result *mcp.CallToolResult, index int) string {
	h.t.Helper()
	if index >= len(result.Content) {
		h.t.Fatalf("Content index %d out of range (have %d blocks)", index, len(result.Content))
	}
	tc, ok := result.Content[index].(mcp.TextContent)
	if !ok {
		h.t.Fatalf("Content[%d] is %T, not TextContent", index, result.Content[index])
	}
	return tc.Text
}

func (h *testHarness) close() {
	if h.client != nil {
		h.client.Close()
	}
}
