package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	httptransport "github.com/behnamfe76/gatekeeper/internal/api/http"
	"github.com/behnamfe76/gatekeeper/internal/api/http/handlers"
	"github.com/behnamfe76/gatekeeper/internal/auth"
	"github.com/behnamfe76/gatekeeper/internal/config"
	"github.com/behnamfe76/gatekeeper/internal/events"
	"github.com/behnamfe76/gatekeeper/internal/github"
	"github.com/behnamfe76/gatekeeper/internal/observability"
	"github.com/behnamfe76/gatekeeper/internal/persistence"
	"github.com/behnamfe76/gatekeeper/internal/repository"
	"github.com/behnamfe76/gatekeeper/internal/service"
	"github.com/behnamfe76/gatekeeper/internal/worker"
	apperrors "github.com/behnamfe76/gatekeeper/pkg/util"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger, !cfg.App.IsProduction())
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
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), os.DirFS(cfg.Postgres.MigrationsDir), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(ctx, cfg.Redis, logger)
	defer redis.Close()

	var userRepo repository.UserRepository
	if pool := pg.PoolHandle(); pool != nil {
		userRepo = repository.NewUserRepository(pool)
	} else {
		userRepo = repository.NewMemoryUserRepository()
	}

	var githubCache github.Cache
	if redis != nil {
		githubCache = github.NewRedisCache(redis.Client, cfg.GitHub.CacheTTL)
	} else {
		githubCache = github.NewMemoryCache(cfg.GitHub.CacheSize, cfg.GitHub.CacheTTL)
	}

	tokens, err := auth.NewTokenCodec(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	if err != nil {
		logger.Fatal("failed to init token codec", zap.Error(err))
	}
	hasher := auth.NewBcryptHasher(cfg.Auth.BcryptCost)
	dispatcher := events.NewInMemoryDispatcher()
	worker.StartAuditWorker(service.NewAuditService(dispatcher, logger))

	userService := service.NewUserService(userRepo, hasher, dispatcher, logger)
	authService := service.NewAuthService(service.AuthDependencies{
		UserRepo:   userRepo,
		Hasher:     hasher,
		Tokens:     tokens,
		Dispatcher: dispatcher,
		Logger:     logger,
	})
	githubService := service.NewGitHubService(github.NewClient(cfg.GitHub), githubCache, logger)

	if err := userService.Seed(ctx, cfg.Seed); err != nil {
		logger.Fatal("failed to seed users", zap.Error(err))
	}

	metrics := observability.NewMetrics("gatekeeper")
	mapper := apperrors.NewMapper(cfg.App.ExposeErrorDetails())

	app := httptransport.NewApp(cfg.App.Name,
		httptransport.MiddlewareConfig{
			Logger:      logger,
			Metrics:     metrics,
			Errors:      mapper,
			Timeout:     cfg.App.RequestTimeout(),
			CORSOrigins: cfg.App.CORSOrigins,
		},
		httptransport.RouteConfig{
			Health:  handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
			Auth:    handlers.NewAuthHandler(authService, userService),
			Users:   handlers.NewUsersHandler(userService),
			GitHub:  handlers.NewGitHubHandler(githubService),
			Builder: httptransport.NewRouteBuilder(auth.NewAuthenticator(tokens), mapper, logger, metrics),
			Metrics: metrics,
		},
	)

	go func() {
		logger.Info("listening",
			zap.String("addr", cfg.App.Addr()),
			zap.String("env", cfg.App.Env),
			zap.Duration("token_ttl", tokens.TTL()))
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
