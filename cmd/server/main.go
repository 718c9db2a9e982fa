package main // Entry point package

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/iliyamo/kanban-board/internal/config"
	"github.com/iliyamo/kanban-board/internal/database"
	"github.com/iliyamo/kanban-board/internal/handler"
	"github.com/iliyamo/kanban-board/internal/logging"
	"github.com/iliyamo/kanban-board/internal/middleware"
	"github.com/iliyamo/kanban-board/internal/queue"
	"github.com/iliyamo/kanban-board/internal/repository"
	"github.com/iliyamo/kanban-board/internal/router"
	"github.com/iliyamo/kanban-board/internal/service"
)

const sessionPurgeEvery = time.Hour

func main() {
	_ = godotenv.Load() // .env is optional

	cfg, err := config.Load()
	if err != nil {
		logging.New(os.Stderr, "").Error(context.Background(), "invalid configuration", "err", err)
		os.Exit(1)
	}
	log := logging.New(os.Stdout, cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	for _, w := range cfg.Warnings {
		log.Warn(ctx, "config", "warning", w)
	}

	if err := run(ctx, cfg, log); err != nil {
		log.Error(ctx, "server stopped", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, log *logging.SlogLogger) error {
	db, err := database.Open(ctx, database.DSN(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName))
	if err != nil {
		return err
	}
	defer db.Close()
	if err := database.Migrate(ctx, db); err != nil {
		return err
	}

	rdb := config.NewRedisClient(ctx, cfg.Redis)
	var otpStore repository.OTPStore
	if rdb != nil {
		defer rdb.Close()
		otpStore = repository.NewRedisOTPStore(rdb, cfg.OTPRetention)
		log.Info(ctx, "redis connected", "addr", cfg.Redis.Addr)
	} else {
		otpStore = repository.NewMemoryOTPStore(cfg.OTPRetention)
		log.Warn(ctx, "redis unavailable; otp codes kept in memory and rate limiting disabled", "addr", cfg.Redis.Addr)
	}

	delivery := queue.NewDeliveryLog(cfg.OTPLogDir)
	var notifier service.Notifier
	switch cfg.OTPDelivery {
	case "log":
		notifier = service.NewLogNotifier(delivery)
	default:
		notifier = service.NewAMQPNotifier(cfg.AMQPURL, cfg.OTPTTL, log)
		consumer := queue.NewOTPConsumer(cfg.AMQPURL, delivery, log.With("component", "otp-consumer"))
		go func() {
			if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error(ctx, "otp consumer stopped", "err", err)
			}
		}()
	}

	users := repository.NewUserRepo(db, cfg.BcryptCost)
	sessions := repository.NewSessionRepo(db)
	reset := service.NewResetBroker(users, otpStore, notifier, cfg.OTPTTL, log)
	go purgeSessions(ctx, sessions, log)

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.RequestID())
	e.Use(echomw.Recover())
	e.Use(echomw.RequestLoggerWithConfig(requestLogConfig(log)))

	var limiter echo.MiddlewareFunc
	if rdb != nil {
		limiter = middleware.NewTokenBucket(cfg.RateLimit, rdb)
	}
	router.RegisterRoutes(e, router.Deps{
		Auth:    handler.NewAuthHandler(cfg, users, sessions, reset, log),
		Board:   handler.NewBoardHandler(repository.NewListRepo(db), repository.NewCardRepo(db), log),
		Summary: handler.NewSummaryHandler(repository.NewSummaryRepo(db), log),
		Gate:    middleware.NewSessionGate(cfg.SessionSecret, cfg.SessionCookieName, sessions, log),
		Limiter: limiter,
		DB:      db,
		WebDir:  cfg.WebDir,
	})

	addr := ":" + cfg.Port
	errCh := make(chan error, 1)
	go func() {
		log.Info(ctx, "listening", "addr", addr, "env", cfg.Env, "otp_delivery", cfg.OTPDelivery)
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

	log.Info(context.Background(), "shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}

func requestLogConfig(log logging.Logger) echomw.RequestLoggerConfig {
	return echomw.RequestLoggerConfig{
		LogStatus:    true,
		LogURI:       true,
		LogMethod:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			args := []any{
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency_ms", v.Latency.Milliseconds(),
				"request_id", v.RequestID,
			}
			if v.Error != nil {
				args = append(args, "err", v.Error)
			}
			log.Info(c.Request().Context(), "request", args...)
			return nil
		},
	}
}

// purgeSessions removes expired and revoked session rows once an hour.
func purgeSessions(ctx context.Context, sessions *repository.SessionRepo, log logging.Logger) {
	t := time.NewTicker(sessionPurgeEvery)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			n, err := sessions.PurgeExpired(ctx, now.UTC())
			if err != nil {
				log.Warn(ctx, "session purge failed", "err", err)
				continue
			}
			if n > 0 {
				log.Info(ctx, "sessions purged", "rows", n)
			}
		}
	}
}
