package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/travelos/crm/internal/api/http"
	"github.com/travelos/crm/internal/api/http/handlers"
	"github.com/travelos/crm/internal/auth"
	"github.com/travelos/crm/internal/config"
	"github.com/travelos/crm/internal/events"
	"github.com/travelos/crm/internal/observability"
	"github.com/travelos/crm/internal/persistence"
	"github.com/travelos/crm/internal/ratelimit"
	"github.com/travelos/crm/internal/repository"
	"github.com/travelos/crm/internal/service"
	"github.com/travelos/crm/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	pool := pg.PoolHandle()
	userRepo := repository.NewUserRepository(pool)
	agencyRepo := repository.NewAgencyRepository(pool)
	sessionRepo := repository.NewSessionRepository(pool)
	auditRepo := repository.NewAuditRepository(pool)

	dispatcher := events.NewInMemoryDispatcher()
	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTL())
	cookies := auth.NewCookieWriter(cfg.App.IsProduction())

	var limiter ratelimit.CounterStore = ratelimit.NewRedisStore(redis.Client)
	if redis.Ping(ctx) != nil {
		// Single-instance fallback; counters stay process-local.
		logger.Warn("redis unavailable, using in-memory rate limit store")
		limiter = ratelimit.NewMemoryStore()
	}

	sessionService := service.NewSessionService(sessionRepo, dispatcher, logger, cfg.Auth.RefreshTokenTTL())
	authService := service.NewAuthService(cfg.Auth, service.AuthDependencies{
		UserRepo:   userRepo,
		AgencyRepo: agencyRepo,
		Sessions:   sessionService,
		Tokens:     tokens,
		Limiter:    limiter,
		Dispatcher: dispatcher,
		Logger:     logger,
	})
	impersonationService := service.NewImpersonationService(userRepo, agencyRepo, tokens, dispatcher, logger)
	auditService := service.NewAuditService(dispatcher, auditRepo, logger)
	worker.StartAuditWorker(auditService)

	metrics := observability.NewMetrics()

	app := fiber.New()
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:        handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Auth:          handlers.NewAuthHandler(authService, cookies, tokens),
		Impersonation: handlers.NewImpersonationHandler(impersonationService, cookies, tokens),
		Gatekeeper:    auth.NewGatekeeper(tokens, cookies),
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
