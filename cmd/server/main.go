package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/Soli-code/RezerwacjeV4-sub000/internal/booking"
	"github.com/Soli-code/RezerwacjeV4-sub000/internal/config"
	"github.com/Soli-code/RezerwacjeV4-sub000/internal/handler"
	"github.com/Soli-code/RezerwacjeV4-sub000/internal/middleware"
	"github.com/Soli-code/RezerwacjeV4-sub000/internal/queue"
	"github.com/Soli-code/RezerwacjeV4-sub000/internal/router"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	log, err := config.NewLogger(cfg.Env)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	deps, catalog, db, closeStore, err := openStore(ctx, cfg, log)
	if err != nil {
		log.Fatal("open store", zap.String("store", cfg.Store), zap.Error(err))
	}
	defer closeStore()

	deps.Notifier = queue.NewPublisher(cfg.RabbitMQURL, cfg.NotifyQueue).WithDialTimeout(cfg.NotifyDialTimeout)
	engine := booking.New(deps, booking.Options{
		Clock:           booking.SystemClock{Location: cfg.Location},
		Logger:          log.Named("booking"),
		ConflictRetries: cfg.ConflictRetries,
		MaxRentalDays:   cfg.MaxRentalDays,
	})

	if cfg.NotifyLogDir != "" {
		consumer := queue.NewConsumer(cfg.RabbitMQURL, cfg.NotifyQueue, cfg.NotifyLogDir, log.Named("notify"))
		go func() {
			if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("notify consumer stopped", zap.Error(err))
			}
		}()
	}

	rdb := config.NewRedisClient(log)
	if rdb != nil {
		defer func() { _ = rdb.Close() }()
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.RequestLogger(log.Named("http")))

	var pinger handler.Pinger
	if db != nil {
		pinger = db
	}
	router.RegisterRoutes(e, pinger)
	router.RegisterBooking(e,
		handler.NewBookingHandler(engine, catalog, log.Named("http")),
		middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb, log.Named("ratelimit")),
		middleware.NewRedisCache(config.LoadCacheConfig(), rdb, log.Named("cache")),
	)
	router.RegisterStaff(e, handler.NewStaffHandler(engine, log.Named("http")), cfg.JWTSecret)

	addr := ":" + cfg.Port
	go func() {
		log.Info("listening", zap.String("addr", addr), zap.String("env", cfg.Env), zap.String("store", cfg.Store))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown", zap.Error(err))
	}
	log.Info("stopped")
}
