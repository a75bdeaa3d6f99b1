package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/iliyamo/flight-seat-inventory/internal/booking"
	"github.com/iliyamo/flight-seat-inventory/internal/clock"
	"github.com/iliyamo/flight-seat-inventory/internal/config"
	"github.com/iliyamo/flight-seat-inventory/internal/database"
	"github.com/iliyamo/flight-seat-inventory/internal/handler"
	"github.com/iliyamo/flight-seat-inventory/internal/inventory"
	"github.com/iliyamo/flight-seat-inventory/internal/middleware"
	"github.com/iliyamo/flight-seat-inventory/internal/pricing"
	"github.com/iliyamo/flight-seat-inventory/internal/queue"
	"github.com/iliyamo/flight-seat-inventory/internal/repository"
	"github.com/iliyamo/flight-seat-inventory/internal/repository/memory"
	"github.com/iliyamo/flight-seat-inventory/internal/router"
	"github.com/iliyamo/flight-seat-inventory/internal/service"
)

const serviceName = "flight-seat-inventory"

func main() {
	cfg := config.Load()
	log := newLogger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.WithError(err).Fatal("server exited")
	}
}

func newLogger(cfg config.Config) *logrus.Logger {
	log := logrus.New()
	if cfg.IsProduction() {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	log.SetLevel(level)
	return log
}

func run(ctx context.Context, cfg config.Config, log *logrus.Logger) error {
	clk := clock.Real{}

	store, probe, closeStore, err := openStore(ctx, cfg, clk, log)
	if err != nil {
		return err
	}
	defer closeStore()

	rdb := config.NewRedisClient(config.LoadRedisConfig())
	var (
		cache   pricing.Cache
		limiter redis.Scripter
	)
	if rdb != nil {
		defer rdb.Close()
		cache = pricing.NewRedisCache(rdb, "price")
		limiter = rdb
		log.Info("redis connected: price cache and rate limiter enabled")
	} else {
		log.Warn("redis unavailable: using in-process price cache, rate limiting off")
	}

	oracle := pricing.NewHTTPOracle(cfg.PricingServiceURL, cfg.PricingTimeout)
	gateway := pricing.NewGateway(oracle, cache, cfg.PriceCacheTTL, pricing.WithLogger(log))
	ctl := inventory.NewController(store, cfg.HoldTTL,
		inventory.WithLogger(log),
		inventory.WithSweepBatch(cfg.SweepBatchSize))

	coordOpts := []booking.Option{booking.WithLogger(log), booking.WithReceiptBaseURL(cfg.PublicBaseURL)}
	if cfg.EventsEnabled {
		coordOpts = append(coordOpts, booking.WithEvents(service.NewQueuePublisher(cfg.RabbitURL, log)))
	}
	coord := booking.NewCoordinator(store, ctl, gateway, coordOpts...)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(middleware.RequestLogger(log))
	router.RegisterRoutes(e, router.Deps{
		Health:    &handler.HealthHandler{Store: probe, Service: serviceName, Clock: clk},
		Auth:      &handler.AuthHandler{Secret: cfg.JWTSecret, TTL: cfg.AccessTokenTTL},
		Flights:   &handler.FlightHandler{Flights: store, Prices: gateway, Inventory: ctl, Log: log},
		Bookings:  &handler.BookingHandler{Bookings: coord, Log: log},
		JWTSecret: cfg.JWTSecret,
		RateLimit: middleware.NewTokenBucket(config.LoadRateLimitConfig(), limiter, clk, log),
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		addr := ":" + cfg.Port
		log.WithFields(logrus.Fields{"addr": addr, "env": cfg.Env, "store": cfg.StoreBackend}).Info("listening")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return e.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		return inventory.NewSweeper(ctl, cfg.SweepInterval, log).Run(gctx)
	})
	if cfg.EventsEnabled {
		g.Go(func() error {
			return queue.NewConsumer(cfg.RabbitURL, cfg.BookingLogPath, log).Run(gctx)
		})
	}
	return g.Wait()
}

// openStore returns the configured store, the probe used by /healthz and
// a close function.
func openStore(ctx context.Context, cfg config.Config, clk clock.Clock, log logrus.FieldLogger) (repository.Store, handler.Prober, func(), error) {
	if cfg.StoreBackend == "memory" {
		mem := memory.New()
		mem.SeedDemo(clk.Now())
		log.Warn("using in-memory store with demo flights; data is lost on exit")
		return mem, mem, func() {}, nil
	}

	conn := database.NewConnection(database.Settings{
		User: cfg.DBUser,
		Pass: cfg.DBPass,
		Host: cfg.DBHost,
		Port: cfg.DBPort,
		Name: cfg.DBName,
	}, 10, 2*time.Second)
	if err := conn.Connect(ctx); err != nil {
		return nil, nil, nil, err
	}
	db, err := conn.DB()
	if err != nil {
		_ = conn.Close()
		return nil, nil, nil, err
	}
	if cfg.DBAutoMigrate {
		if err := database.EnsureSchema(ctx, db); err != nil {
			_ = conn.Close()
			return nil, nil, nil, err
		}
		log.Info("database schema ensured")
	}
	closeFn := func() {
		if err := conn.Close(); err != nil {
			log.WithError(err).Warn("close database")
		}
	}
	return repository.NewSQLStore(db), handler.ProbeFunc(conn.Ready), closeFn, nil
}
