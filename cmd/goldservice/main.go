// =============================================================================
// goldservice 主入口
// =============================================================================
// 黄金/外汇分析服务的完整入口点，包含 HTTP 服务、健康检查、Prometheus 指标。
//
// 使用方法:
//
//	goldservice serve                       # 启动服务
//	goldservice serve --config config.yaml  # 指定配置文件
//	goldservice version                     # 显示版本信息
//	goldservice health                       # 健康检查
//	goldservice migrate up                   # 运行数据库迁移
//	goldservice migrate down                 # 回滚最后一次迁移
//	goldservice migrate status               # 查看迁移状态
// =============================================================================

package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/goldnightmare/goldservice/internal/admin"
	"github.com/goldnightmare/goldservice/internal/audit"
	"github.com/goldnightmare/goldservice/internal/auth"
	"github.com/goldnightmare/goldservice/internal/cache"
	"github.com/goldnightmare/goldservice/internal/clock"
	"github.com/goldnightmare/goldservice/internal/config"
	"github.com/goldnightmare/goldservice/internal/httpapi"
	"github.com/goldnightmare/goldservice/internal/llmclient"
	"github.com/goldnightmare/goldservice/internal/metrics"
	"github.com/goldnightmare/goldservice/internal/pipeline"
	"github.com/goldnightmare/goldservice/internal/priceagg"
	"github.com/goldnightmare/goldservice/internal/prompt"
	"github.com/goldnightmare/goldservice/internal/store"
	"github.com/goldnightmare/goldservice/internal/telemetry"
)

// 版本信息（构建时通过 ldflags 注入）
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "serve":
		runServe(os.Args[2:])
	case "migrate":
		runMigrate(os.Args[2:])
	case "version":
		printVersion()
	case "health":
		runHealthCheck(os.Args[2:])
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

// =============================================================================
// serve 命令
// =============================================================================

func runServe(args []string) {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config file")
	fs.Parse(args)

	loader := config.NewLoader()
	if *configPath != "" {
		loader = loader.WithConfigPath(*configPath)
	}

	cfg, err := loader.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid config: %v\n", err)
		os.Exit(1)
	}

	logger := initLogger(cfg.Log)
	defer logger.Sync()

	logger.Info("starting goldservice",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
		zap.String("git_commit", GitCommit),
	)

	otelProviders, err := telemetry.Init(cfg.Telemetry, logger)
	if err != nil {
		logger.Warn("failed to initialize telemetry", zap.Error(err))
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := otelProviders.Shutdown(ctx); err != nil {
			logger.Warn("telemetry shutdown error", zap.Error(err))
		}
	}()

	st, err := store.Open(cfg.Store, logger)
	if err != nil {
		logger.Fatal("failed to open store", zap.Error(err))
	}
	defer st.Close()

	migrateCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := st.Migrate(migrateCtx); err != nil {
		cancel()
		logger.Fatal("store migration failed", zap.Error(err))
	}
	cancel()

	clk := clock.New()
	collector := metrics.NewCollector("goldservice", logger)

	router := buildRouter(cfg, st, clk, collector, logger)

	srv := NewServer(cfg, logger)
	if err := srv.Start(router, collector); err != nil {
		logger.Fatal("failed to start server", zap.Error(err))
	}

	srv.WaitForShutdown()

	logger.Info("goldservice stopped")
}

// buildRouter wires every domain package into the HTTP surface the spec
// names: auth, price aggregation (gold + forex), the LLM-backed analysis
// pipeline, audit logging, and the admin query/auth surface.
func buildRouter(cfg *config.Config, st *store.Store, clk clock.Clock, collector *metrics.Collector, logger *zap.Logger) http.Handler {
	authEngine := auth.New(st, clk, logger)

	goldProviders := make([]*priceagg.Provider, 0, len(cfg.Prices.Providers))
	for _, p := range cfg.Prices.Providers {
		goldProviders = append(goldProviders, priceagg.NewProvider(
			p.Name, p.Description, p.URL, p.APIKey, p.Priority,
			goldProviderContract(p.Name), p.Timeout,
		))
	}

	goldAggregator := priceagg.New(
		goldProviders,
		priceagg.FallbackQuote(cfg.Prices.FallbackQuote),
		cfg.Prices.CacheTTL,
		clk, logger,
	)
	goldAggregator.SetMetrics(collector)

	// No forex-specific provider is configured by default; the catalog's
	// pairs fall back to ForexAggregator's literal demo quotes.
	forexAggregator := priceagg.NewForexAggregator(map[string]*priceagg.Provider{}, clk, logger)
	forexAggregator.SetMetrics(collector)

	cacheCfg := cache.Config{
		Addr:                cfg.Redis.Addr,
		Password:            cfg.Redis.Password,
		DB:                  cfg.Redis.DB,
		PoolSize:            cfg.Redis.PoolSize,
		MinIdleConns:        cfg.Redis.MinIdleConns,
		DefaultTTL:          cfg.Prices.CacheTTL,
		HealthCheckInterval: 30 * time.Second,
		JanitorInterval:     time.Minute,
	}
	memCache := cache.New(cacheCfg, logger)

	llm := llmclient.New(cfg.LLM.APIKey, "", cfg.LLM.Timeout, logger)
	auditor := audit.New(st, clk, 256, logger)
	composer := prompt.New(clk.Now)

	pipelineCfg := pipeline.DefaultConfig()
	pipelineCfg.Model = cfg.LLM.Model
	pipelineCfg.MaxTokens = cfg.LLM.MaxTokens
	pipelineCfg.Temperature = cfg.LLM.Temperature
	pipelineCfg.AnalysisCacheTTL = cfg.Auth.AnalysisCacheTTL
	pipe := pipeline.New(authEngine, goldAggregator, composer, llm, memCache, auditor, clk, pipelineCfg, logger)

	adminQueries := admin.New(st, authEngine, clk, logger)
	adminAuth := httpapi.NewAdminAuth(cfg.Admin, logger)

	publicHandlers := httpapi.NewPublicHandlers(goldAggregator, forexAggregator, pipe, st, collector, logger)
	authHandlers := httpapi.NewAuthHandlers(authEngine, logger)
	adminHandlers := httpapi.NewAdminHandlers(adminQueries, authEngine, adminAuth, st, logger)

	return httpapi.NewRouter(publicHandlers, authHandlers, adminHandlers, adminAuth)
}

// goldProviderContract maps each configured gold-price provider to the
// response shape it's known to return (spec §6.3's four-provider chain).
func goldProviderContract(name string) priceagg.ParseContract {
	switch name {
	case "metals-api", "metalpriceapi":
		return priceagg.ContractInvertedRate
	case "exchangerate-api":
		return priceagg.ContractVendorQuote
	default:
		return priceagg.ContractSpotPrice
	}
}

// =============================================================================
// 健康检查命令
// =============================================================================

func runHealthCheck(args []string) {
	fs := flag.NewFlagSet("health", flag.ExitOnError)
	addr := fs.String("addr", "http://localhost:8080", "Server address")
	fs.Parse(args)

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get(*addr + "/health")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Health check failed: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		fmt.Fprintf(os.Stderr, "Health check failed: status %d\n", resp.StatusCode)
		os.Exit(1)
	}

	fmt.Println("OK")
}

// =============================================================================
// 版本和帮助
// =============================================================================

func printVersion() {
	fmt.Printf("goldservice %s\n", Version)
	fmt.Printf("  Build Time: %s\n", BuildTime)
	fmt.Printf("  Git Commit: %s\n", GitCommit)
}

func printUsage() {
	fmt.Println(`goldservice - Gold/Forex Analysis Service

Usage:
  goldservice <command> [options]

Commands:
  serve     Start the HTTP/metrics servers
  migrate   Database migration commands
  version   Show version information
  health    Check server health
  help      Show this help message

Options for 'serve':
  --config <path>   Path to configuration file (YAML)

Migration subcommands:
  migrate up        Apply all pending migrations
  migrate down      Rollback the last migration
  migrate status    Show migration status
  migrate version   Show current migration version
  migrate goto <v>  Migrate to a specific version
  migrate force <v> Force set migration version
  migrate reset     Rollback all migrations

Examples:
  goldservice serve
  goldservice serve --config /etc/goldservice/config.yaml
  goldservice migrate up
  goldservice migrate status
  goldservice health --addr http://localhost:8080
  goldservice version`)
}

// =============================================================================
// 日志初始化
// =============================================================================

func initLogger(cfg config.LogConfig) *zap.Logger {
	var level zapcore.Level
	switch cfg.Level {
	case "debug":
		level = zapcore.DebugLevel
	case "info":
		level = zapcore.InfoLevel
	case "warn":
		level = zapcore.WarnLevel
	case "error":
		level = zapcore.ErrorLevel
	default:
		level = zapcore.InfoLevel
	}

	var encoderConfig zapcore.EncoderConfig
	if cfg.Format == "console" {
		encoderConfig = zap.NewDevelopmentEncoderConfig()
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		encoderConfig = zap.NewProductionEncoderConfig()
		encoderConfig.TimeKey = "timestamp"
		encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}

	zapConfig := zap.Config{
		Level:            zap.NewAtomicLevelAt(level),
		Development:      cfg.Format == "console",
		Encoding:         cfg.Format,
		EncoderConfig:    encoderConfig,
		OutputPaths:      cfg.OutputPaths,
		ErrorOutputPaths: []string{"stderr"},
	}

	var callerOpts []zap.Option
	if cfg.EnableCaller {
		callerOpts = append(callerOpts, zap.AddCaller())
	}
	if cfg.EnableStacktrace {
		callerOpts = append(callerOpts, zap.AddStacktrace(zapcore.ErrorLevel))
	}

	logger, err := zapConfig.Build(callerOpts...)
	if err != nil {
		logger, _ = zap.NewProduction()
	}

	return logger
}
