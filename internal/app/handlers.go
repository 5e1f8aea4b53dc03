package app

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/bobmcallan/navwatch/internal/common"
	"github.com/bobmcallan/navwatch/internal/interfaces"
)

var fundCodePattern = regexp.MustCompile(`^\d{6}$`)

// handleGetVersion implements the get_version tool
func handleGetVersion() server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		b := common.CurrentBuild()
		result := fmt.Sprintf("navwatch\nVersion: %s\nBuild: %s\nCommit: %s\nStatus: OK",
			b.Version, b.Build, b.Commit)
		return textResult(result), nil
	}
}

// handleGetFundValuation implements the get_fund_valuation tool
func handleGetFundValuation(valuation interfaces.ValuationService, loc *time.Location, logger *common.Logger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		code, err := request.RequireString("code")
		if err != nil || code == "" {
			return errorResult("Error: code parameter is required"), nil
		}
		code = strings.TrimSpace(code)
		if !fundCodePattern.MatchString(code) {
			return errorResult(fmt.Sprintf("Error: %q is not a six-digit fund code", code)), nil
		}

		snap, err := valuation.GetValuation(ctx, code)
		if err != nil {
			logger.Error().Err(err).Str("code", code).Msg("Valuation failed")
			return errorResult(fmt.Sprintf("Valuation error: %v", err)), nil
		}
		if snap == nil {
			return textResult(fmt.Sprintf("No valuation recorded for %s. The market is closed; try again during trading hours.", code)), nil
		}

		var sb strings.Builder
		name := snap.Name
		if name == "" {
			name = code
		}
		sb.WriteString(fmt.Sprintf("# %s (%s)\n\n", name, snap.Code))
		sb.WriteString("| Field | Value |\n")
		sb.WriteString("|-------|-------|\n")
		sb.WriteString(fmt.Sprintf("| Estimated NAV | %s |\n", common.FormatNAV(snap.EstimatedNAV)))
		sb.WriteString(fmt.Sprintf("| Estimated Change | %s%% |\n", common.FormatRate(snap.EstimatedRate)))
		sb.WriteString(fmt.Sprintf("| Baseline NAV | %s |\n", common.FormatNAV(snap.BaselineNAV)))
		if snap.BaselineDate != "" {
			sb.WriteString(fmt.Sprintf("| Baseline Date | %s |\n", snap.BaselineDate))
		}
		if ts := common.FormatExchangeTime(snap.UpdatedAt, loc); ts != "" {
			sb.WriteString(fmt.Sprintf("| Updated | %s |\n", ts))
		}
		return textResult(sb.String()), nil
	}
}

// handleGetFundHistory implements the get_fund_history tool
func handleGetFundHistory(valuation interfaces.ValuationService, logger *common.Logger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		code, err := request.RequireString("code")
		if err != nil || code == "" {
			return errorResult("Error: code parameter is required"), nil
		}
		code = strings.TrimSpace(code)
		if !fundCodePattern.MatchString(code) {
			return errorResult(fmt.Sprintf("Error: %q is not a six-digit fund code", code)), nil
		}

		points, err := valuation.GetHistory(ctx, code)
		if err != nil {
			logger.Error().Err(err).Str("code", code).Msg("History lookup failed")
			return errorResult(fmt.Sprintf("History error: %v", err)), nil
		}
		if len(points) == 0 {
			return textResult(fmt.Sprintf("No intraday points recorded today for %s.", code)), nil
		}

		var sb strings.Builder
		sb.WriteString(fmt.Sprintf("# Intraday estimates for %s\n\n", code))
		sb.WriteString("| Time | Estimated NAV |\n")
		sb.WriteString("|------|---------------|\n")
		for _, p := range points {
			sb.WriteString(fmt.Sprintf("| %s | %s |\n", p.TimeStr, common.FormatNAV(p.EstimatedNAV)))
		}
		return textResult(sb.String()), nil
	}
}

// handleListMonitors implements the list_monitored_funds tool
func handleListMonitors(valuation interfaces.ValuationService) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		codes := valuation.ActiveCodes()
		status := "closed"
		if valuation.IsTradingTime() {
			status = "open"
		}
		if len(codes) == 0 {
			return textResult(fmt.Sprintf("Market is %s. No funds are being monitored.", status)), nil
		}
		return textResult(fmt.Sprintf("Market is %s. Monitoring %d fund(s): %s",
			status, len(codes), strings.Join(codes, ", "))), nil
	}
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.NewTextContent(text),
		},
	}
}

func errorResult(message string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.NewTextContent(message),
		},
		IsError: true,
	}
}
