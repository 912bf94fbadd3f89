package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog/log"

	"trend-trader/internal/config"
	"trend-trader/internal/domain"
	"trend-trader/internal/infrastructure/db"
	"trend-trader/internal/logger"
	"trend-trader/internal/repository"
	"trend-trader/internal/usecase"
)

const (
	summaryText = "report_summary.txt"
	summaryJSON = "report_summary.json"
)

type summaryFile struct {
	GeneratedAt    time.Time                 `json:"generatedAt"`
	Symbol         string                    `json:"symbol"`
	Summary        summaryStats              `json:"summary"`
	BestTrade      *domain.ClosedTradeRecord `json:"bestTrade"`
	WorstTrade     *domain.ClosedTradeRecord `json:"worstTrade"`
	BalanceHistory []usecase.BalancePoint    `json:"balanceHistory"`
}

type summaryStats struct {
	TotalTrades      int    `json:"totalTrades"`
	ProfitableTrades int    `json:"profitableTrades"`
	LosingTrades     int    `json:"losingTrades"`
	WinRate          string `json:"winRate"`
	TotalPnL         string `json:"totalPnL"`
	AvgPnL           string `json:"avgPnL"`
	AvgPnLPercent    string `json:"avgPnLPercent"`
	BiggestWin       string `json:"biggestWin"`
	BiggestLoss      string `json:"biggestLoss"`
}

func main() {
	configPath := flag.String("config", os.Getenv("CONFIG_PATH"), "path to the YAML config file")
	save := flag.Bool("save", false, "write report_summary.txt and report_summary.json")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	if err := logger.Setup("warn", cfg.Log.Format); err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	history, closeFn, err := openHistory(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("open trade history")
	}
	defer closeFn()

	symbol := cfg.Strategy.Symbol
	report, err := usecase.NewReportService(history).Generate(ctx, symbol)
	if err != nil {
		log.Fatal().Err(err).Msg("generate report")
	}

	var text bytes.Buffer
	if err := report.WriteText(&text, cfg.Strategy.QuoteAsset); err != nil {
		log.Fatal().Err(err).Msg("render report")
	}
	fmt.Print(text.String())

	if !*save {
		return
	}
	if err := os.WriteFile(summaryText, text.Bytes(), 0o644); err != nil {
		log.Fatal().Err(err).Msg("write text summary")
	}
	data, err := json.MarshalIndent(newSummaryFile(symbol, report, time.Now().UTC()), "", "  ")
	if err != nil {
		log.Fatal().Err(err).Msg("encode json summary")
	}
	if err := os.WriteFile(summaryJSON, data, 0o644); err != nil {
		log.Fatal().Err(err).Msg("write json summary")
	}
	fmt.Printf("\nSaved %s and %s\n", summaryText, summaryJSON)
}

func newSummaryFile(symbol string, r usecase.TradeReport, now time.Time) summaryFile {
	return summaryFile{
		GeneratedAt: now,
		Symbol:      symbol,
		Summary: summaryStats{
			TotalTrades:      r.TotalTrades,
			ProfitableTrades: r.ProfitableTrades,
			LosingTrades:     r.LosingTrades,
			WinRate:          r.WinRate.StringFixed(2),
			TotalPnL:         r.TotalPnL.String(),
			AvgPnL:           r.AvgPnL.String(),
			AvgPnLPercent:    r.AvgPnLPercent.String(),
			BiggestWin:       r.BiggestWin.String(),
			BiggestLoss:      r.BiggestLoss.String(),
		},
		BestTrade:      r.BestTrade,
		WorstTrade:     r.WorstTrade,
		BalanceHistory: r.BalanceHistory,
	}
}

func openHistory(ctx context.Context, cfg *config.Config) (domain.TradeHistory, func(), error) {
	switch cfg.Storage.Backend {
	case "postgres":
		pool, err := db.NewPool(ctx, cfg.Storage.DatabaseURL, cfg.Storage.Postgres)
		if err != nil {
			return nil, func() {}, err
		}
		return repository.NewPostgresTradeRepository(pool), pool.Close, nil
	case "redis":
		client, err := repository.NewRedisClient(ctx, cfg.Storage.RedisAddr, cfg.Storage.RedisPassword, cfg.Storage.RedisDB)
		if err != nil {
			return nil, func() {}, err
		}
		return repository.NewRedisStore(client, cfg.Storage.RedisPrefix), func() { _ = client.Close() }, nil
	default:
		return repository.NewFileTradeRepository(cfg.Storage.TradesFile), func() {}, nil
	}
}
