package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"trend-trader/internal/config"
	httpdelivery "trend-trader/internal/delivery/http"
	"trend-trader/internal/delivery/websocket"
	"trend-trader/internal/domain"
	"trend-trader/internal/infrastructure/binance"
	"trend-trader/internal/infrastructure/db"
	"trend-trader/internal/infrastructure/fcm"
	"trend-trader/internal/infrastructure/kafka"
	"trend-trader/internal/infrastructure/metrics"
	"trend-trader/internal/infrastructure/paper"
	"trend-trader/internal/infrastructure/telegram"
	"trend-trader/internal/logger"
	"trend-trader/internal/repository"
	"trend-trader/internal/usecase"
)

func main() {
	configPath := flag.String("config", os.Getenv("CONFIG_PATH"), "path to the YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	if err := logger.Setup(cfg.Log.Level, cfg.Log.Format); err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		log.Fatal().Err(err).Msg("trader stopped")
	}
	log.Info().Msg("trader stopped")
}

func run(ctx context.Context, cfg *config.Config) error {
	// 1. Strategy parameters
	params, err := usecase.StrategyParamsFromConfig(cfg.Strategy)
	if err != nil {
		return err
	}

	// 2. Exchange (live or paper)
	exchange, err := newExchange(cfg)
	if err != nil {
		return err
	}

	// 3. Storage
	st, cleanup, err := newStores(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	recorder := repository.MultiRecorder{st.trades}
	if cfg.Kafka.Enabled {
		publisher, err := kafka.NewTradePublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		if err != nil {
			return err
		}
		defer func() {
			if err := publisher.Close(); err != nil {
				log.Warn().Err(err).Msg("kafka writer close failed")
			}
		}()
		recorder = append(recorder, publisher)
	}

	// 4. Notifications
	var notifiers []domain.Notifier
	tg, err := telegram.NewNotifier(cfg.Telegram.Token, cfg.Telegram.ChatID)
	if err != nil {
		return err
	}
	if tg != nil {
		notifiers = append(notifiers, tg)
	}
	push, err := fcm.NewClient(ctx, st.tokens)
	if err != nil {
		return err
	}
	var pushNotifier domain.Notifier
	if push.IsEnabled() {
		pushNotifier = push
		notifiers = append(notifiers, push)
	}

	// 5. Metrics
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	recorderMetrics := metrics.New(reg)

	// 6. Engine and driver
	engine := usecase.NewStrategyEngine(params, exchange, exchange)
	driver := usecase.NewCycleDriver(engine, exchange, st.positions,
		usecase.WithRecorder(recorder),
		usecase.WithNotifications(usecase.NewNotificationService(params.Symbol, notifiers...)),
		usecase.WithMetrics(recorderMetrics),
		usecase.WithCheckInterval(cfg.Strategy.CheckInterval),
		usecase.WithCycleTimeout(cfg.Exchange.Timeout*3),
	)
	if err := driver.Load(ctx); err != nil {
		return err
	}

	// 7. Delivery
	ws := websocket.NewHandler(driver)
	driver.Subscribe(ws.Publish)

	if cfg.Server.Enabled {
		srv := httpdelivery.NewServer(
			[]httpdelivery.RouteRegistrar{
				httpdelivery.NewTraderHandler(driver, st.trades),
				httpdelivery.NewDeviceHandler(st.tokens, pushNotifier),
				ws,
			},
			httpdelivery.WithPort(cfg.Server.Port),
			httpdelivery.WithShutdownTimeout(cfg.Server.ShutdownTimeout),
			httpdelivery.WithMetrics(cfg.Server.MetricsPath, reg),
		)
		srv.Start()
		defer func() {
			if err := srv.Stop(context.Background()); err != nil {
				log.Warn().Err(err).Msg("http shutdown failed")
			}
		}()
	}

	log.Info().
		Str("symbol", params.Symbol).
		Str("mode", string(params.Mode)).
		Str("trader", cfg.Trader.Mode).
		Str("storage", cfg.Storage.Backend).
		Msg("trend trader starting")

	// 8. Trading loop until shutdown
	return driver.Run(ctx)
}

func newExchange(cfg *config.Config) (domain.Exchange, error) {
	market := binance.MarketSpot
	baseURL := cfg.Exchange.SpotBaseURL
	if cfg.Strategy.Mode == string(domain.ModeFutures) {
		market = binance.MarketFutures
		baseURL = cfg.Exchange.FuturesBaseURL
	}

	opts := []binance.Option{
		binance.WithBaseURL(baseURL),
		binance.WithRecvWindow(cfg.Exchange.RecvWindow),
		binance.WithTimeout(cfg.Exchange.Timeout),
		binance.WithHedgeMode(cfg.Strategy.HedgeMode),
	}
	if cfg.Exchange.Testnet {
		opts = append(opts, binance.WithTestnet())
	}
	client := binance.NewClient(market, cfg.Exchange.APIKey, cfg.Exchange.SecretKey, opts...)

	if cfg.Trader.Mode == "live" {
		log.Warn().Str("market", string(market)).Msg("LIVE trading enabled, real orders will be placed")
		return client, nil
	}

	balance := decimal.NewFromFloat(cfg.Trader.PaperBalance)
	log.Info().Str("balance", balance.String()).Str("asset", cfg.Strategy.QuoteAsset).Msg("paper trading enabled")
	return paper.NewTrader(client, cfg.Strategy.QuoteAsset, balance), nil
}

type stores struct {
	positions domain.PositionStore
	trades    domain.TradeRepository
	tokens    domain.DeviceTokenRepository
}

func newStores(ctx context.Context, cfg *config.Config) (stores, func(), error) {
	noop := func() {}

	switch cfg.Storage.Backend {
	case "postgres":
		pool, err := db.NewPool(ctx, cfg.Storage.DatabaseURL, cfg.Storage.Postgres)
		if err != nil {
			return stores{}, noop, err
		}
		if err := db.Migrate(ctx, pool); err != nil {
			pool.Close()
			return stores{}, noop, err
		}
		return postgresStores(pool), pool.Close, nil

	case "redis":
		client, err := repository.NewRedisClient(ctx, cfg.Storage.RedisAddr, cfg.Storage.RedisPassword, cfg.Storage.RedisDB)
		if err != nil {
			return stores{}, noop, err
		}
		rs := repository.NewRedisStore(client, cfg.Storage.RedisPrefix)
		closeClient := func() {
			if err := client.Close(); err != nil {
				log.Warn().Err(err).Msg("redis close failed")
			}
		}
		return stores{positions: rs, trades: rs, tokens: repository.NewTokenRepository()}, closeClient, nil

	default:
		return stores{
			positions: repository.NewFilePositionStore(cfg.Storage.StateFile),
			trades:    repository.NewFileTradeRepository(cfg.Storage.TradesFile),
			tokens:    repository.NewTokenRepository(),
		}, noop, nil
	}
}

func postgresStores(pool *pgxpool.Pool) stores {
	return stores{
		positions: repository.NewPostgresPositionStore(pool),
		trades:    repository.NewPostgresTradeRepository(pool),
		tokens:    repository.NewPostgresTokenRepository(pool),
	}
}
