package app

import (
	"github.com/mark3labs/mcp-go/mcp"
)

func createGetVersionTool() mcp.Tool {
	return mcp.NewTool("get_version",
		mcp.WithDescription("Get the navwatch server version and status. Use this to verify connectivity."),
	)
}

func createGetFundValuationTool() mcp.Tool {
	return mcp.NewTool("get_fund_valuation",
		mcp.WithDescription("Get the intraday estimated NAV of a mutual fund. During trading hours the estimate "+
			"is refreshed from live quotes of the fund's top holdings and the fund is added to the monitored set. "+
			"Outside trading hours the last stored values are returned."),
		mcp.WithString("code",
			mcp.Required(),
			mcp.Description("Six-digit fund code (e.g., '161725')"),
		),
	)
}

func createGetFundHistoryTool() mcp.Tool {
	return mcp.NewTool("get_fund_history",
		mcp.WithDescription("Get today's per-minute estimated NAV series for a fund, oldest first."),
		mcp.WithString("code",
			mcp.Required(),
			mcp.Description("Six-digit fund code"),
		),
	)
}

func createListMonitorsTool() mcp.Tool {
	return mcp.NewTool("list_monitored_funds",
		mcp.WithDescription("List the fund codes currently recomputed by the background loop, and whether the market is open."),
	)
}
