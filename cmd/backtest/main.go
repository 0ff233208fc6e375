// Package main is the backtest CLI: loads one or more strategy documents,
// loads (or synthesizes) a candle table, runs every strategy through the
// backtester, persists each result, and prints the §6 comparison report.
package main

import (
	"flag"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/atlas-desktop/structurelab/internal/api"
	"github.com/atlas-desktop/structurelab/internal/backtester"
	"github.com/atlas-desktop/structurelab/internal/conditions"
	"github.com/atlas-desktop/structurelab/internal/data"
	"github.com/atlas-desktop/structurelab/internal/strategy"
	"github.com/atlas-desktop/structurelab/pkg/types"
)

func main() {
	strategyPath := flag.String("strategy", "", "path to a strategy YAML document, or a directory of them")
	candlesDir := flag.String("candles", "./data", "candle store directory (a symbol/timeframe pair generates sample data here if absent)")
	resultsDir := flag.String("results", "./results", "directory to persist backtest results to")
	symbol := flag.String("symbol", "BTC/USDT", "symbol to backtest against")
	initialBalance := flag.Float64("balance", 10000, "starting account balance")
	commissionPct := flag.Float64("commission", 0, "commission percent per trade")
	slippagePct := flag.Float64("slippage", 0, "slippage percent applied to entry fills")
	parallel := flag.Bool("parallel", true, "run multiple strategies concurrently")
	workers := flag.Int("workers", 0, "worker pool size for parallel runs (0 uses the backtester's default)")
	logLevel := flag.String("log-level", "info", "log level (debug, info, warn, error)")
	configFile := flag.String("config", "", "optional config file layering over flags/env")
	flag.Parse()

	v := viper.New()
	v.SetEnvPrefix("STRUCTURELAB")
	v.AutomaticEnv()
	if *configFile != "" {
		v.SetConfigFile(*configFile)
		if err := v.ReadInConfig(); err != nil {
			fmt.Fprintf(os.Stderr, "reading config file: %v\n", err)
			os.Exit(1)
		}
	}

	cfg := types.DefaultEngineConfig()
	cfg.StrategyPath = firstNonEmpty(v.GetString("strategy_path"), *strategyPath)
	cfg.CandlesPath = firstNonEmpty(v.GetString("candles_path"), *candlesDir)
	cfg.Symbol = firstNonEmpty(v.GetString("symbol"), *symbol)
	cfg.InitialBalance = decimal.NewFromFloat(*initialBalance)
	cfg.CommissionPct = decimal.NewFromFloat(*commissionPct)
	cfg.SlippagePct = decimal.NewFromFloat(*slippagePct)
	cfg.WorkerPoolSize = *workers
	cfg.LogLevel = firstNonEmpty(v.GetString("log_level"), *logLevel)

	logger := setupLogger(cfg.LogLevel)
	defer logger.Sync()

	if cfg.StrategyPath == "" {
		logger.Fatal("no strategy path given; pass -strategy")
	}

	registry := conditions.NewRegistry()
	loader := strategy.NewLoader(logger, registry)

	templates, err := loadTemplates(loader, cfg.StrategyPath)
	if err != nil {
		logger.Fatal("failed to load strategy documents", zap.Error(err))
	}
	if len(templates) == 0 {
		logger.Fatal("no usable strategy documents found", zap.String("path", cfg.StrategyPath))
	}

	dataStore, err := data.NewStore(logger, cfg.CandlesPath)
	if err != nil {
		logger.Fatal("failed to open candle store", zap.Error(err))
	}
	candles, err := dataStore.LoadCandles(cfg.Symbol, templates[0].Timeframe, 0, 0)
	if err != nil {
		logger.Fatal("failed to load candles", zap.Error(err))
	}

	quality := data.NewQualityValidator(logger)
	report := quality.Validate(candles, cfg.Symbol)
	logger.Info("candle quality report",
		zap.String("symbol", cfg.Symbol),
		zap.Int("score", report.QualityScore),
		zap.Bool("usable", report.IsUsable),
		zap.Int("issues", len(report.Issues)))
	if !report.IsUsable {
		logger.Warn("candle table scored below the usability threshold; cleaning and continuing", zap.Strings("recommendations", report.Recommendations))
		candles = data.CleanCandles(candles)
	}

	strategies := make([]*strategy.Strategy, 0, len(templates))
	for _, tmpl := range templates {
		s, err := tmpl.Build(candles, registry)
		if err != nil {
			logger.Error("failed to build strategy", zap.String("strategy", tmpl.Name), zap.Error(err))
			continue
		}
		if !s.Enabled {
			logger.Warn("skipping disabled strategy", zap.String("strategy", s.Name))
			continue
		}
		strategies = append(strategies, s)
	}

	results, err := api.NewResultStore(*resultsDir)
	if err != nil {
		logger.Fatal("failed to open result store", zap.Error(err))
	}

	bt := backtester.NewBacktester(logger, cfg.CommissionPct, cfg.SlippagePct)
	var runResults []types.BacktestResult
	var runErrs []error
	if *parallel {
		runResults, runErrs = backtester.RunParallel(bt, strategies, candles, cfg.Symbol, cfg.InitialBalance, cfg.WorkerPoolSize)
	} else {
		runResults, runErrs = bt.RunMultiple(strategies, candles, cfg.Symbol, cfg.InitialBalance, false)
	}
	for _, runErr := range runErrs {
		logger.Error("strategy run failed", zap.Error(runErr))
	}

	for _, result := range runResults {
		id := uuid.NewString()
		if err := results.Save(id, cfg.Symbol, result, time.Now()); err != nil {
			logger.Error("failed to persist backtest result", zap.String("strategy", result.StrategyName), zap.Error(err))
			continue
		}
		logger.Info("backtest complete",
			zap.String("run_id", id),
			zap.String("strategy", result.StrategyName),
			zap.Int("trades", result.Metrics.TotalTrades),
			zap.String("final_balance", result.FinalBalance.String()))
	}

	printReport(runResults)
}

// loadTemplates loads strategyPath as either a single file or, if it's a
// directory, every *.yml/*.yaml document inside it.
func loadTemplates(loader *strategy.Loader, strategyPath string) ([]*strategy.Template, error) {
	info, err := os.Stat(strategyPath)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return loader.LoadDirectory(strategyPath)
	}
	tmpl, err := loader.LoadFile(strategyPath)
	if err != nil {
		return nil, err
	}
	return []*strategy.Template{tmpl}, nil
}

// printReport prints the §6 strategy comparison table, sorted by
// expectancy descending, to stdout.
func printReport(results []types.BacktestResult) {
	rows := types.BuildReport(results)
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Expectancy.GreaterThan(rows[j].Expectancy) })

	fmt.Println("strategy_name,total_trades,win_rate,profit_factor,avg_r_multiple,expectancy,max_drawdown_percent,total_pnl_percent")
	for _, row := range rows {
		fmt.Printf("%s,%d,%s,%s,%s,%s,%s,%s\n",
			row.StrategyName, row.TotalTrades, row.WinRate, row.ProfitFactor,
			row.AvgRMultiple, row.Expectancy, row.MaxDrawdownPercent, row.TotalPnLPercent)
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func setupLogger(level string) *zap.Logger {
	var zapLevel zapcore.Level
	switch level {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "warn":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		zapLevel = zapcore.InfoLevel
	}

	config := zap.Config{
		Level:       zap.NewAtomicLevelAt(zapLevel),
		Development: false,
		Encoding:    "console",
		EncoderConfig: zapcore.EncoderConfig{
			TimeKey:        "time",
			LevelKey:       "level",
			NameKey:        "logger",
			CallerKey:      "caller",
			MessageKey:     "msg",
			StacktraceKey:  "stacktrace",
			LineEnding:     zapcore.DefaultLineEnding,
			EncodeLevel:    zapcore.CapitalColorLevelEncoder,
			EncodeTime:     zapcore.ISO8601TimeEncoder,
			EncodeDuration: zapcore.SecondsDurationEncoder,
			EncodeCaller:   zapcore.ShortCallerEncoder,
		},
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
	}

	logger, err := config.Build()
	if err != nil {
		panic(err)
	}
	return logger
}
