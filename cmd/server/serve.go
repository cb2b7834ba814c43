package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/iliyamo/neststay/internal/catalog"
	"github.com/iliyamo/neststay/internal/config"
	"github.com/iliyamo/neststay/internal/handler"
	"github.com/iliyamo/neststay/internal/metrics"
	"github.com/iliyamo/neststay/internal/middleware"
	"github.com/iliyamo/neststay/internal/queue"
	"github.com/iliyamo/neststay/internal/repository"
	"github.com/iliyamo/neststay/internal/router"
	"github.com/iliyamo/neststay/internal/service"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE:  func(cmd *cobra.Command, args []string) error { return runServe(cmd.Context()) },
	}
}

func runServe(parent context.Context) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, log, err := bootstrap()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	db, err := openDB(cfg, log)
	if err != nil {
		return err
	}
	defer db.Close()

	inventory := repository.NewInventoryRepo(db)
	bookings := repository.NewBookingRepo(db)

	var cat service.Catalog = catalog.NewSQL(repository.NewRoomTypeRepo(db))
	if cfg.Catalog.URL != "" {
		cat = catalog.NewHTTP(cfg.Catalog.URL, cfg.Catalog.Timeout, log)
		log.Info("using external room-type catalog", zap.String("url", cfg.Catalog.URL))
	}

	var events service.EventPublisher = queue.NopPublisher{}
	if cfg.Queue.Enabled {
		pub := queue.NewPublisher(cfg.Queue.URL, log)
		defer pub.Close()
		events = pub
	}
	if cfg.Queue.ConsumerEnabled {
		consumer := queue.NewConsumer(cfg.Queue.URL, cfg.Queue.BookingLogPath, log)
		go func() {
			if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("booking consumer stopped", zap.Error(err))
			}
		}()
	}

	coord := service.NewCoordinator(db, cat, inventory, bookings,
		service.WithLockTimeout(cfg.Booking.LockTimeout),
		service.WithEvents(events),
		service.WithLogger(log.Named("coordinator")),
	)

	rdb := config.NewRedisClient(cfg.Redis, log)
	if rdb != nil {
		defer rdb.Close()
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(echomw.Recover())
	e.Use(metrics.Middleware())
	e.Use(middleware.RequestLogger(log))

	router.Register(e, router.Handlers{
		DB:           db,
		Auth:         handler.NewAuthHandler(cfg.Auth, repository.NewGuestRepo(db)),
		Availability: handler.NewAvailabilityHandler(service.NewAvailability(cat, inventory)),
		Booking:      handler.NewBookingHandler(coord),
		Staff:        handler.NewStaffHandler(coord),
	}, router.Middleware{
		RateLimit: middleware.NewTokenBucket(cfg.RateLimit, rdb, log),
		Cache:     middleware.NewRedisCache(cfg.Cache, rdb, log),
	}, cfg.Auth.JWTSecret)

	errCh := make(chan error, 1)
	go func() {
		addr := ":" + cfg.Port
		log.Info("listening", zap.String("addr", addr), zap.String("env", cfg.Env))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}
