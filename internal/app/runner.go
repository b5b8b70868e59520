// internal/app/runner.go
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go/rpc"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/hybrid-swap/internal/blockchain/solbc"
	"github.com/rovshanmuradov/hybrid-swap/internal/blockchain/solbc/transaction"
	"github.com/rovshanmuradov/hybrid-swap/internal/config"
	"github.com/rovshanmuradov/hybrid-swap/internal/escrow"
	"github.com/rovshanmuradov/hybrid-swap/internal/events"
	"github.com/rovshanmuradov/hybrid-swap/internal/logger"
	"github.com/rovshanmuradov/hybrid-swap/internal/wallet"
)

const (
	eventBufferSize = 64
	shutdownTimeout = 10 * time.Second
)

// Options - пути к файлам, переданные в командной строке.
type Options struct {
	ConfigPath string
	MarketPath string
	Debug      bool
}

// Runner собирает зависимости одного запуска CLI: клиент RPC, менеджер
// транзакций, шину событий и исполнитель обменов.
type Runner struct {
	logger     *logger.Logger
	config     *config.Config
	market     escrow.EscrowConfig
	deployment escrow.Deployment
	client     *solbc.Client
	bus        *events.Bus
	executor   *escrow.Executor
	analyzer   *solbc.ErrorAnalyzer
	registry   *prometheus.Registry
	shutdown   *ShutdownHandler

	walletOnce sync.Once
	wallet     *wallet.Wallet
	walletErr  error
}

// NewRunner читает конфигурацию и профиль рынка и инициализирует компоненты.
func NewRunner(opts Options) (*Runner, error) {
	cfg, err := config.LoadConfig(opts.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if opts.MarketPath == "" {
		return nil, errors.New("market profile path is required")
	}
	market, err := config.LoadMarket(opts.MarketPath)
	if err != nil {
		return nil, err
	}
	deployment, err := cfg.Deployment()
	if err != nil {
		return nil, fmt.Errorf("invalid deployment: %w", err)
	}

	logCfg := logger.DefaultConfig()
	logCfg.LogFile = cfg.LogFile
	logCfg.Development = cfg.DebugLogging || opts.Debug
	log, err := logger.New(logCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to init logger: %w", err)
	}

	r := &Runner{
		logger:     log,
		config:     cfg,
		market:     market,
		deployment: deployment,
		registry:   prometheus.NewRegistry(),
		shutdown:   NewShutdownHandler(log.Named("shutdown")),
	}
	r.shutdown.AddFunc("logger", log.Sync)

	commitment := rpc.CommitmentType(cfg.Commitment)
	r.client, err = solbc.NewClient(cfg.RPCList, commitment, log.Logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create RPC client: %w", err)
	}

	txManager := transaction.NewManager(r.client, log.Logger, transaction.Config{
		ConfirmationTime: cfg.ConfirmTimeoutDuration(),
		SkipPreflight:    cfg.SkipPreflight,
		Commitment:       commitment,
	}, r.registry)

	r.bus = events.NewBus(log.Logger, eventBufferSize)
	subs := subscribeEventLog(r.bus, log.Logger)
	r.shutdown.AddFunc("event_bus", func() error {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		err := r.bus.Shutdown(ctx)
		for _, s := range subs {
			s.Unsubscribe()
		}
		return err
	})

	r.analyzer = solbc.NewErrorAnalyzer(log.Logger)
	r.executor = escrow.NewExecutor(r.client, txManager, deployment, log.Logger,
		escrow.WithPublisher(r.bus),
		escrow.WithErrorClassifier(r.analyzer),
	)

	if cfg.MetricsAddr != "" {
		r.serveMetrics(cfg.MetricsAddr)
	}

	log.Debug("Runner initialized",
		zap.Strings("rpc", cfg.RPCList),
		zap.String("commitment", cfg.Commitment),
		zap.String("collection", market.Collection.String()))
	return r, nil
}

func (r *Runner) serveMetrics(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			r.logger.Error("Metrics server failed", zap.String("addr", addr), zap.Error(err))
		}
	}()
	r.shutdown.AddFunc("metrics", func() error {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(ctx)
	})
	r.logger.Info("Serving metrics", zap.String("addr", addr))
}

// Wallet загружает ключ при первом обращении: команды только на чтение без него обходятся.
func (r *Runner) Wallet() (*wallet.Wallet, error) {
	r.walletOnce.Do(func() {
		if r.config.Keypair == "" {
			r.walletErr = errors.New("keypair is not configured")
			return
		}
		r.wallet, r.walletErr = wallet.Load(r.config.Keypair)
		if r.walletErr == nil {
			r.logger.WithWallet(logger.ShortenAddress(r.wallet.PublicKey().String())).Debug("Wallet loaded")
		}
	})
	return r.wallet, r.walletErr
}

func (r *Runner) Market() escrow.EscrowConfig {
	return r.market
}

func (r *Runner) Deployment() escrow.Deployment {
	return r.deployment
}

func (r *Runner) Executor() *escrow.Executor {
	return r.executor
}

func (r *Runner) Logger() *zap.Logger {
	return r.logger.Logger
}

// ExplainError раскладывает ошибку RPC (код, логи симуляции, ошибка Anchor) в JSON для отладки.
func (r *Runner) ExplainError(err error) string {
	return r.analyzer.FormatErrorAnalysis(r.analyzer.AnalyzeRPCError(err))
}

// TrackPerformance логирует длительность операции; вызовите результат по завершении.
func (r *Runner) TrackPerformance(operation string) func() {
	return r.logger.TrackPerformance(operation)
}

// Close останавливает шину событий и сервер метрик, затем сбрасывает логгер.
func (r *Runner) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return r.shutdown.Shutdown(ctx)
}
