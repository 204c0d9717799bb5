package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/xela07ax/netpulse/internal/console/handler"
	"github.com/xela07ax/netpulse/internal/console/server"
	"github.com/xela07ax/netpulse/internal/console/service"
	"github.com/xela07ax/netpulse/internal/infra"
	"github.com/xela07ax/netpulse/internal/infra/auth"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

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

	logger, err := infra.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()

	// 1. Инициализация ресурсов
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()

	// Проверяем соединение с таймаутом
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Fatal("redis unreachable", zap.Error(err))
	}
	cancel()

	// 2. Ключи: консоль без RS256 не запускаем, иначе админка открыта
	pub, err := auth.ParseRSAPublicKey(cfg.Auth.PublicKey)
	if err != nil {
		logger.Fatal("console requires auth.public_key_path", zap.Error(err))
	}
	priv, err := auth.ParseRSAPrivateKey(cfg.Auth.PrivateKey)
	if err != nil {
		logger.Fatal("console requires auth.private_key_path", zap.Error(err))
	}
	operators, err := auth.NewBasicVerifier(cfg.Auth.Username, cfg.Auth.PasswordHash)
	if err != nil {
		logger.Fatal("console requires auth.username and auth.password_hash", zap.Error(err))
	}

	// 3. Инициализация слоев (Dependency Injection)
	authService := service.NewAuthService(operators, priv, cfg.Auth.TokenTTL)
	thresholdService := service.NewThresholdService(rdb, cfg.Analytics.LossThreshold, logger)

	console := server.NewConsoleServer(logger,
		auth.NewTokenVerifier(pub),
		handler.NewAuthHandler(authService, logger),
		handler.NewThresholdHandler(thresholdService, logger),
	)

	// 4. Запуск сервера
	srv := &http.Server{
		Addr:         cfg.Console.Addr(),
		Handler:      console,
		ReadTimeout:  cfg.Console.ReadTimeout,
		WriteTimeout: cfg.Console.WriteTimeout,
	}

	go func() {
		logger.Info("console API started", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("listen failed", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("console shutdown failed", zap.Error(err))
	}
	logger.Info("console exited properly")
}
