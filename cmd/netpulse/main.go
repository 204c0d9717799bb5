package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"google.golang.org/grpc"

	"github.com/xela07ax/netpulse/internal/alert"
	"github.com/xela07ax/netpulse/internal/api/handler"
	"github.com/xela07ax/netpulse/internal/api/server"
	"github.com/xela07ax/netpulse/internal/domain"
	"github.com/xela07ax/netpulse/internal/engine"
	"github.com/xela07ax/netpulse/internal/infra"
	"github.com/xela07ax/netpulse/internal/infra/auth"
	"github.com/xela07ax/netpulse/internal/ingest"
	"github.com/xela07ax/netpulse/internal/repository/postgres"
	"github.com/xela07ax/netpulse/internal/source"
	"github.com/xela07ax/netpulse/internal/transport/grpcapi"
)

func main() {
	configPath := flag.String("config", "", "path to config file (default: ./config.yaml or ./configs/config.yaml)")
	flag.Parse()

	// 0. Конфиг и логгер
	var (
		cfg *infra.Config
		err error
	)
	if *configPath != "" {
		cfg, err = infra.LoadConfigFrom(*configPath)
	} else {
		cfg, err = infra.LoadConfig()
	}
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("config: %v", err)
	}

	logger, err := infra.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()

	// Контекст для управления жизненным циклом фоновых горутин
	appCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 1. Метрики
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := engine.NewMetrics(reg)

	// 2. Инфраструктура: Postgres нужен источнику "postgres" и приему сэмплов
	var (
		db   *sql.DB
		repo *postgres.LatencyRepo
	)
	if cfg.Source.Kind == infra.SourcePostgres || cfg.Ingest.Enabled {
		db, err = postgres.Open(cfg.Database)
		if err != nil {
			logger.Fatal("database init failed", zap.Error(err))
		}
		defer db.Close()
		repo = postgres.NewLatencyRepo(db)

		pingCtx, pingCancel := context.WithTimeout(appCtx, 5*time.Second)
		if err := repo.Ping(pingCtx); err != nil {
			logger.Fatal("database unreachable", zap.Error(err))
		}
		if err := repo.EnsureSchema(pingCtx); err != nil {
			logger.Fatal("schema migration failed", zap.Error(err))
		}
		pingCancel()
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()

	// 3. Control Plane: порог потерь из Redis с подпиской на обновления
	if _, err := engine.WarmupThreshold(appCtx, rdb, logger, cfg.Analytics.LossThreshold); err != nil {
		logger.Warn("threshold warm-up failed", zap.Error(err))
	}
	thresholds := engine.NewThresholdManager(rdb, cfg.Analytics.LossThreshold, metrics, logger)
	if err := thresholds.Init(appCtx); err != nil {
		// Redis недоступен: работаем на значении из конфига, слушатель пересинхронизирует позже
		logger.Warn("threshold init failed, using config value", zap.Error(err))
	}
	go thresholds.StartListener(appCtx)

	// 4. Источник серий + надежность (Rate limit, Circuit Breaker, Retries)
	var raw engine.LatencySource
	switch cfg.Source.Kind {
	case infra.SourceHTTP:
		raw = source.NewHTTPSource(cfg.Source, logger)
	default:
		targets, err := cfg.Probe.ParsedTargets()
		if err != nil {
			logger.Fatal("bad probe targets", zap.Error(err))
		}
		raw = source.NewPostgresSource(repo, targets, cfg.Analytics, logger)
	}
	reliable := engine.NewReliableSource(raw, cfg.Source.Kind, cfg.Source, metrics, logger)

	// 5. Core
	core := engine.NewEngine(reliable, thresholds, metrics, logger)

	// 6. Прием сэмплов от коллекторов
	var recorder *ingest.Recorder
	if cfg.Ingest.Enabled {
		recorder = ingest.NewRecorder(repo, cfg.Ingest, metrics, logger)
		recorder.Start()
	}

	// 7. Фоновый детектор аномалий
	publisher := newAlertPublisher(cfg.Alerts, rdb, logger)
	if publisher != nil {
		defer publisher.Close()
		watcher := engine.NewWatcher(core, publisher, cfg.Alerts.Interval, cfg.Alerts.Lookback, metrics, logger)
		go watcher.Run(appCtx)
	}

	// 8. Авторизация
	tokens, passwords := authFromConfig(cfg.Auth, logger)

	// 9. HTTP Server
	opts := []server.Option{
		server.WithAuth(tokens, passwords),
		server.WithHealthCheck(func(r *http.Request) error {
			if repo == nil {
				return nil
			}
			return repo.Ping(r.Context())
		}),
	}
	if recorder != nil {
		opts = append(opts, server.WithSamples(handler.NewSamplesHandler(recorder, logger)))
	}
	dashboard := server.NewDashboardServer(logger, handler.NewLatencyHandler(core, logger), opts...)

	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      dashboard,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Экспортируем метрики для Prometheus
	metricsSrv := &http.Server{Addr: cfg.Metrics.Addr, Handler: promhttp.HandlerFor(reg, promhttp.HandlerOpts{})}
	go func() {
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", zap.Error(err))
		}
	}()

	// 10. gRPC
	var grpcSrv *grpc.Server
	if cfg.GRPC.Enabled {
		grpcSrv = grpc.NewServer(grpc.UnaryInterceptor(grpcapi.UnaryAuthInterceptor(tokens, domain.ScopeLatencyRead)))
		grpcapi.RegisterAnalyticsServer(grpcSrv, grpcapi.NewServer(core, logger))

		lis, err := net.Listen("tcp", cfg.GRPC.Addr)
		if err != nil {
			logger.Fatal("failed to listen gRPC", zap.Error(err))
		}
		go func() {
			logger.Info("gRPC server started", zap.String("addr", cfg.GRPC.Addr))
			if err := grpcSrv.Serve(lis); err != nil {
				logger.Error("gRPC server failed", zap.Error(err))
			}
		}()
	}

	// 11. Graceful Shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("netpulse started", zap.String("addr", srv.Addr), zap.String("source", cfg.Source.Kind))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("listen failed", zap.Error(err))
		}
	}()

	<-stop
	logger.Info("netpulse stopping...")
	cancel() // Останавливаем слушателей и детектор

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", zap.Error(err))
	}
	metricsSrv.Shutdown(shutdownCtx)
	if grpcSrv != nil {
		grpcSrv.GracefulStop()
	}
	if recorder != nil {
		recorder.Stop() // После HTTP: новых сэмплов уже не будет
	}
	logger.Info("netpulse exited properly")
}

// authFromConfig возвращает nil-интерфейсы для невключенных схем (а не typed nil).
func authFromConfig(cfg infra.AuthConfig, logger *zap.Logger) (auth.TokenValidator, auth.PasswordVerifier) {
	var (
		tokens    auth.TokenValidator
		passwords auth.PasswordVerifier
	)
	if len(cfg.PublicKey) > 0 {
		pub, err := auth.ParseRSAPublicKey(cfg.PublicKey)
		if err != nil {
			logger.Fatal("bad auth public key", zap.Error(err))
		}
		tokens = auth.NewTokenVerifier(pub)
	}
	if cfg.Username != "" {
		v, err := auth.NewBasicVerifier(cfg.Username, cfg.PasswordHash)
		if err != nil {
			logger.Fatal("bad basic auth config", zap.Error(err))
		}
		passwords = v
	}
	if tokens == nil && passwords == nil {
		logger.Warn("auth is not configured, API is open")
	}
	return tokens, passwords
}

func newAlertPublisher(cfg infra.AlertsConfig, rdb *redis.Client, logger *zap.Logger) alert.Publisher {
	switch cfg.Sink {
	case infra.SinkRedis:
		logger.Info("loss alerts go to redis", zap.String("chan", infra.RedisChanLossAlerts))
		return alert.NewRedisPublisher(rdb, infra.RedisChanLossAlerts)
	case infra.SinkKafka:
		logger.Info("loss alerts go to kafka", zap.Strings("brokers", cfg.KafkaBrokers), zap.String("topic", cfg.KafkaTopic))
		return alert.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
	default:
		return nil
	}
}
