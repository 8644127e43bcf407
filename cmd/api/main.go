package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/helpdesk-service/internal/api/http"
	"github.com/spec-kit/helpdesk-service/internal/api/http/handlers"
	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/config"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/observability"
	"github.com/spec-kit/helpdesk-service/internal/persistence"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	"github.com/spec-kit/helpdesk-service/internal/repository/memory"
	"github.com/spec-kit/helpdesk-service/internal/service"
	"github.com/spec-kit/helpdesk-service/internal/storage"
	"github.com/spec-kit/helpdesk-service/internal/worker"
)

// repositories groups the store implementations selected at startup.
type repositories struct {
	tickets     repository.TicketRepository
	comments    repository.CommentRepository
	profiles    repository.ProfileRepository
	credentials repository.CredentialRepository
	categories  repository.CategoryRepository
	history     repository.TicketHistoryRepository
	tx          repository.Transactor
}

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

	var redis *persistence.Redis
	var repos repositories
	if pg.Enabled() {
		if cfg.Postgres.RunMigrations {
			if err := persistence.RunMigrations(ctx, pg.PoolHandle(), cfg.Postgres.MigrationsDir, logger); err != nil {
				logger.Fatal("failed to run migrations", zap.Error(err))
			}
		}
		redis = persistence.NewRedis(ctx, cfg.Redis, logger)
		defer redis.Close()
		repos = postgresRepositories(pg, redis, cfg.Redis, logger)
	} else {
		repos = memoryRepositories(ctx, logger)
	}

	blobs, err := storage.New(cfg.Storage)
	if err != nil {
		logger.Fatal("failed to init blob store", zap.Error(err))
	}
	if pinger, ok := blobs.(interface{ Ping(context.Context) error }); ok {
		if err := pinger.Ping(ctx); err != nil {
			logger.Warn("blob store unreachable; uploads will fail until it recovers", zap.String("driver", cfg.Storage.Driver), zap.Error(err))
		}
	}

	dispatcher := events.NewInMemoryDispatcher()
	worker.StartAuditWorker(service.NewAuditService(dispatcher, logger))

	policy := domain.ResolvedAtPolicy(cfg.Lifecycle.ResolvedAtPolicy)
	profileService := service.NewProfileService(repos.profiles, logger)
	authService := service.NewAuthService(cfg.Auth, service.AuthDependencies{
		CredentialRepo: repos.credentials,
		Profiles:       profileService,
		Transactor:     repos.tx,
		Logger:         logger,
	})
	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo:       repos.tickets,
		CommentRepo:      repos.comments,
		CategoryRepo:     repos.categories,
		HistoryRepo:      repos.history,
		Transactor:       repos.tx,
		BlobStore:        blobs,
		Dispatcher:       dispatcher,
		Logger:           logger,
		ResolvedAtPolicy: policy,
	})
	assignmentService := service.NewAssignmentService(service.AssignmentDependencies{
		TicketRepo:       repos.tickets,
		ProfileRepo:      repos.profiles,
		HistoryRepo:      repos.history,
		Transactor:       repos.tx,
		Dispatcher:       dispatcher,
		Logger:           logger,
		ResolvedAtPolicy: policy,
	})
	commentService := service.NewCommentService(service.CommentDependencies{
		TicketRepo:     repos.tickets,
		CommentRepo:    repos.comments,
		ProfileRepo:    repos.profiles,
		Dispatcher:     dispatcher,
		Logger:         logger,
		StrictInternal: cfg.Lifecycle.StrictInternalComments,
	})
	categoryService := service.NewCategoryService(repos.categories)

	metrics := observability.NewMetrics()
	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		BodyLimit:    cfg.Storage.MaxUploadBytes + 1<<20,
		ErrorHandler: httptransport.ErrorHandler(logger, metrics),
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	if local, ok := blobs.(*storage.LocalStore); ok {
		app.Static("/files", local.Root())
	}

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis, metrics),
		Users:          handlers.NewUsersHandler(authService, profileService),
		Tickets:        handlers.NewTicketsHandler(ticketService, assignmentService, cfg.Storage.MaxUploadBytes),
		Comments:       handlers.NewCommentsHandler(commentService),
		Categories:     handlers.NewCategoriesHandler(categoryService),
		AuthMiddleware: auth.NewAuthMiddleware(authService),
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Warn("shutdown", zap.Error(err))
	}
}

func postgresRepositories(pg *persistence.Postgres, redis *persistence.Redis, cfg config.RedisConfig, logger *zap.Logger) repositories {
	pool := pg.PoolHandle()
	return repositories{
		tickets:     repository.NewTicketRepository(pool),
		comments:    repository.NewCommentRepository(pool),
		profiles:    repository.NewCachedProfileRepository(repository.NewProfileRepository(pool), redis.Client, cfg.ProfileCacheTTL(), logger),
		credentials: repository.NewCredentialRepository(pool),
		categories:  repository.NewCategoryRepository(pool),
		history:     repository.NewTicketHistoryRepository(pool),
		tx:          repository.NewTransactor(pool),
	}
}

// memoryRepositories backs the service with the in-process store and seeds
// the same categories the initial migration inserts.
func memoryRepositories(ctx context.Context, logger *zap.Logger) repositories {
	store := memory.New()
	for _, cat := range []domain.Category{
		{Name: "Hardware", Color: "#ef4444"},
		{Name: "Software", Color: "#3b82f6"},
		{Name: "Network", Color: "#10b981"},
		{Name: "Account", Color: "#f59e0b"},
	} {
		cat := cat
		if err := store.Categories().Create(ctx, &cat); err != nil {
			logger.Warn("seed category", zap.String("name", cat.Name), zap.Error(err))
		}
	}
	return repositories{
		tickets:     store.Tickets(),
		comments:    store.Comments(),
		profiles:    store.Profiles(),
		credentials: store.Credentials(),
		categories:  store.Categories(),
		history:     store.History(),
		tx:          store.Transactor(),
	}
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
