package main // Entry point package

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/kidcheck/internal/config"
	"github.com/iliyamo/kidcheck/internal/database"
	"github.com/iliyamo/kidcheck/internal/handler"
	"github.com/iliyamo/kidcheck/internal/logger"
	"github.com/iliyamo/kidcheck/internal/middleware"
	"github.com/iliyamo/kidcheck/internal/queue"
	"github.com/iliyamo/kidcheck/internal/repository"
	"github.com/iliyamo/kidcheck/internal/router"
	"github.com/iliyamo/kidcheck/internal/service"
	"github.com/iliyamo/kidcheck/internal/session"
	"github.com/iliyamo/kidcheck/internal/utils"
)

const serviceName = "kidcheck"

func main() {
	if err := config.LoadDotEnv(); err != nil {
		fmt.Fprintln(os.Stderr, "load .env:", err)
		os.Exit(1)
	}
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	log := logger.NewWithServiceContext(cfg.Env, serviceName, cfg.Version)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server stopped", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	db, err := database.Open(ctx, cfg.DB)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()
	if err := database.Migrate(ctx, db); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	rdb := config.NewRedisClient(ctx)
	if rdb != nil {
		defer rdb.Close()
		log.Info("redis connected", slog.String("addr", rdb.Options().Addr))
	} else {
		log.Warn("redis unavailable; rate limiting and caching disabled")
	}

	store, err := sessionStore(ctx, cfg, rdb, repository.NewSessionRepo(db), log)
	if err != nil {
		return err
	}
	sessions := session.NewManager(cfg.JWTSecret, cfg.SessionTTL, store)

	users := repository.NewUserRepo(db)
	admins := repository.NewAdminRepo(db)
	requests := repository.NewRequestRepo(db)

	creds := service.NewCredentialService(users, users, admins, utils.NewBcryptHasher(cfg.BcryptCost), log)
	if _, err := creds.EnsureDefaultAdmin(ctx, cfg.DefaultAdminPassword); err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}

	var events queue.Publisher = queue.Nop{}
	if cfg.Events.Enabled {
		pub := queue.NewAMQPPublisher(cfg.Events.URL, log)
		defer pub.Close()
		events = pub
		if cfg.Events.Consume {
			consumer := &queue.AuditConsumer{URL: cfg.Events.URL, Dir: cfg.Events.AuditLogDir, Log: log}
			go func() {
				if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
					log.Error("audit consumer stopped", slog.Any("error", err))
				}
			}()
		}
	}

	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewValidator()
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(middleware.RequestContext())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:     []string{"*"},
		AllowCredentials: false,
		AllowHeaders:     []string{echo.HeaderContentType, echo.HeaderAuthorization},
	}))
	e.Use(echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogStatus:   true,
		LogURI:      true,
		LogMethod:   true,
		LogLatency:  true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			attrs := []slog.Attr{
				slog.String("method", v.Method),
				slog.String("uri", v.URI),
				slog.Int("status", v.Status),
				slog.Duration("latency", v.Latency),
			}
			if v.Error != nil {
				attrs = append(attrs, slog.Any("error", v.Error))
			}
			log.LogAttrs(c.Request().Context(), slog.LevelInfo, "request", attrs...)
			return nil
		},
	}))

	router.RegisterRoutes(e, router.Deps{
		Creds:        creds,
		Requests:     service.NewRequestService(requests, events, log),
		Analytics:    service.NewAnalyticsService(requests),
		Sessions:     sessions,
		Redis:        rdb,
		RateLimit:    config.LoadRateLimitConfig(),
		Cache:        config.LoadCacheConfig(),
		CookieSecure: cfg.CookieSecure,
		Version:      cfg.Version,
		Log:          log,
	})

	errCh := make(chan error, 1)
	go func() {
		addr := ":" + cfg.Port
		log.Info("listening", slog.String("addr", addr), slog.String("env", cfg.Env))
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
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}

// sessionStore picks Redis when configured (or available under "auto") and
// otherwise the sessions table, which is purged of expired rows hourly.
func sessionStore(ctx context.Context, cfg config.Config, rdb *redis.Client, repo *repository.SessionRepo, log *slog.Logger) (session.Store, error) {
	switch {
	case cfg.SessionStore == "redis" && rdb == nil:
		return nil, errors.New("SESSION_STORE=redis but redis is unavailable")
	case cfg.SessionStore != "mysql" && rdb != nil:
		log.Info("sessions stored in redis")
		return session.NewRedisStore(rdb, "kidcheck:session"), nil
	}
	log.Info("sessions stored in mysql")
	go func() {
		t := time.NewTicker(time.Hour)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-t.C:
				n, err := repo.PurgeExpired(ctx, now.UTC())
				if err != nil {
					log.Warn("purge sessions", slog.Any("error", err))
					continue
				}
				if n > 0 {
					log.Debug("purged sessions", slog.Int64("count", n))
				}
			}
		}
	}()
	return repo, nil
}
