package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mark3labs/mcp-go/server"

	"github.com/bobmcallan/navwatch/internal/clients/eastmoney"
	"github.com/bobmcallan/navwatch/internal/clients/fundgz"
	"github.com/bobmcallan/navwatch/internal/clients/tencent"
	"github.com/bobmcallan/navwatch/internal/common"
	"github.com/bobmcallan/navwatch/internal/interfaces"
	"github.com/bobmcallan/navwatch/internal/services/calendar"
	"github.com/bobmcallan/navwatch/internal/services/calibration"
	"github.com/bobmcallan/navwatch/internal/services/estimate"
	"github.com/bobmcallan/navwatch/internal/services/monitor"
	"github.com/bobmcallan/navwatch/internal/services/stream"
	"github.com/bobmcallan/navwatch/internal/services/valuation"
	"github.com/bobmcallan/navwatch/internal/storage"
)

// App holds all initialized services, clients, and the MCP server.
// The monitor registry and the calibration marker live here, not in globals.
type App struct {
	Config      *common.Config
	Logger      *common.Logger
	Storage     interfaces.StorageManager
	Calendar    *calendar.Calendar
	Registry    *monitor.Registry
	Reference   *fundgz.Client
	Holdings    *eastmoney.Client
	Quotes      *tencent.Client
	Estimator   *estimate.Service
	Valuation   *valuation.Service
	Calibration *calibration.Service
	Scheduler   *Scheduler
	Stream      *stream.Hub
	MCPServer   *server.MCPServer
	StartupTime time.Time

	schedulerCancel context.CancelFunc
}

// getBinaryDir returns the directory containing the executable.
func getBinaryDir() string {
	exe, err := os.Executable()
	if err != nil {
		return "."
	}
	return filepath.Dir(exe)
}

// NewApp initializes storage, source clients, services and the MCP server.
// configPath may be empty, in which case the default resolution logic is used.
func NewApp(configPath string) (*App, error) {
	startupStart := time.Now()

	// Load version from .version file (fallback if ldflags not set)
	common.LoadVersionFromFile()

	config, err := common.LoadConfig(common.ResolveConfigPath(configPath))
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// Resolve relative log file path to binary directory
	if config.Logging.FilePath != "" && !filepath.IsAbs(config.Logging.FilePath) {
		config.Logging.FilePath = filepath.Join(getBinaryDir(), config.Logging.FilePath)
	}

	logger := common.NewLoggerFromConfig(config.Logging)

	cal, err := calendar.New(config.Market.Timezone, config.Market.Sessions)
	if err != nil {
		return nil, fmt.Errorf("invalid market calendar: %w", err)
	}

	ctx := context.Background()
	storageManager, err := storage.NewStorageManager(ctx, logger, config)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	a := newApp(config, logger, storageManager, cal)
	a.StartupTime = startupStart

	logger.Info().
		Str("timezone", cal.Location().String()).
		Int("sessions", len(cal.Sessions())).
		Dur("startup", time.Since(startupStart)).
		Msg("App initialized")

	return a, nil
}

// newApp wires clients and services over an already opened store.
func newApp(config *common.Config, logger *common.Logger, store interfaces.StorageManager, cal *calendar.Calendar) *App {
	src := config.Sources
	timeout := src.GetTimeout()

	reference := fundgz.NewClient(
		fundgz.WithBaseURL(src.ReferenceURL),
		fundgz.WithTimeout(timeout),
		fundgz.WithRateLimit(src.RateLimit),
		fundgz.WithUserAgent(src.UserAgent),
		fundgz.WithLogger(logger),
	)
	holdings := eastmoney.NewClient(
		eastmoney.WithBaseURL(src.HoldingsURL),
		eastmoney.WithTimeout(timeout),
		eastmoney.WithRateLimit(src.RateLimit),
		eastmoney.WithUserAgent(src.UserAgent),
		eastmoney.WithMaxHoldings(config.Estimation.MaxHoldings),
		eastmoney.WithDefaultWeights(config.Estimation.DefaultStockWeight, config.Estimation.DefaultBondWeight),
		eastmoney.WithLogger(logger),
	)
	quotes := tencent.NewClient(
		tencent.WithBaseURL(src.QuoteURL),
		tencent.WithTimeout(timeout),
		tencent.WithRateLimit(src.RateLimit),
		tencent.WithUserAgent(src.UserAgent),
		tencent.WithLogger(logger),
	)

	registry := monitor.NewRegistry()
	estimator := estimate.NewService(holdings, holdings, quotes, store, cal, estimate.ConfigFrom(config.Estimation), logger)
	hub := stream.NewHub(cal.Location(), logger)
	estimator.SetPublisher(hub)
	go hub.Run()
	valuationService := valuation.NewService(estimator, reference, store, registry, cal, logger)
	calibrationService := calibration.NewService(reference, store, cal,
		config.Scheduler.CalibrationHour, config.Scheduler.GetCalibrationDelay(), logger)
	scheduler := NewScheduler(cal, registry, estimator, store, calibrationService, logger)

	mcpServer := server.NewMCPServer(
		"navwatch",
		common.GetVersion(),
		server.WithToolCapabilities(true),
	)

	a := &App{
		Config:      config,
		Logger:      logger,
		Storage:     store,
		Calendar:    cal,
		Registry:    registry,
		Reference:   reference,
		Holdings:    holdings,
		Quotes:      quotes,
		Estimator:   estimator,
		Valuation:   valuationService,
		Calibration: calibrationService,
		Scheduler:   scheduler,
		Stream:      hub,
		MCPServer:   mcpServer,
		StartupTime: time.Now(),
	}

	a.registerTools()
	return a
}

// Close releases all resources held by the App.
// Shutdown order: cancel scheduler, stop the stream hub, close storage.
func (a *App) Close() {
	if a.schedulerCancel != nil {
		a.schedulerCancel()
		a.schedulerCancel = nil
	}
	if a.Stream != nil {
		a.Stream.Stop()
	}
	if a.Storage != nil {
		a.Storage.Close()
		a.Storage = nil
	}
}

// StartScheduler launches the hot recompute and calibration loops.
func (a *App) StartScheduler() {
	schedulerCtx, schedulerCancel := context.WithCancel(context.Background())
	a.schedulerCancel = schedulerCancel

	hot := a.Config.Scheduler.GetHotInterval()
	check := a.Config.Scheduler.GetCalibrationCheckInterval()
	a.Scheduler.Start(schedulerCtx, hot, check)

	a.Logger.Info().
		Dur("hot_interval", hot).
		Dur("calibration_check", check).
		Int("calibration_hour", a.Config.Scheduler.CalibrationHour).
		Msg("Scheduler started")
}

// registerTools registers all MCP tools on the App's MCPServer.
func (a *App) registerTools() {
	s := a.MCPServer
	loc := a.Calendar.Location()

	s.AddTool(createGetVersionTool(), handleGetVersion())
	s.AddTool(createGetFundValuationTool(), handleGetFundValuation(a.Valuation, loc, a.Logger))
	s.AddTool(createGetFundHistoryTool(), handleGetFundHistory(a.Valuation, a.Logger))
	s.AddTool(createListMonitorsTool(), handleListMonitors(a.Valuation))
}
