package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/bryanwahyu/endoscan/internal/application"
	appadmin "github.com/bryanwahyu/endoscan/internal/application/admin"
	appanalyses "github.com/bryanwahyu/endoscan/internal/application/analyses"
	appfeedback "github.com/bryanwahyu/endoscan/internal/application/feedback"
	appreports "github.com/bryanwahyu/endoscan/internal/application/reports"
	"github.com/bryanwahyu/endoscan/internal/config"
	"github.com/bryanwahyu/endoscan/internal/domain/analyses"
	"github.com/bryanwahyu/endoscan/internal/domain/feedback"
	"github.com/bryanwahyu/endoscan/internal/domain/metrics"
	"github.com/bryanwahyu/endoscan/internal/domain/profiles"
	"github.com/bryanwahyu/endoscan/internal/domain/reports"
	openaiNarrator "github.com/bryanwahyu/endoscan/internal/infra/ai/openai"
	authinfra "github.com/bryanwahyu/endoscan/internal/infra/auth"
	"github.com/bryanwahyu/endoscan/internal/infra/db/memory"
	mysqlp "github.com/bryanwahyu/endoscan/internal/infra/db/mysql"
	postgresp "github.com/bryanwahyu/endoscan/internal/infra/db/postgres"
	"github.com/bryanwahyu/endoscan/internal/infra/db/sqlrepo"
	"github.com/bryanwahyu/endoscan/internal/infra/httpserver"
	"github.com/bryanwahyu/endoscan/internal/infra/storage"
	"github.com/bryanwahyu/endoscan/internal/middleware"
)

func main() {
	// load config
	cfg, err := config.Load(config.Path())
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load error: %v\n", err)
		os.Exit(1)
	}
	logger := config.NewLogger(os.Stdout, cfg.Production())

	if err := run(cfg, logger); err != nil {
		logger.Error("server stopped", slog.Any("err", err))
		os.Exit(1)
	}
}

type repositories struct {
	analyses analyses.Repository
	profiles profiles.Repository
	feedback feedback.Repository
	metrics  metrics.Repository
	db       *sql.DB // nil for the memory driver
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repos, err := openRepositories(ctx, cfg, logger)
	if err != nil {
		return err
	}
	if repos.db != nil {
		defer repos.db.Close()
	}

	health := map[string]middleware.HealthChecker{}
	if repos.db != nil {
		health["database"] = &middleware.DatabaseHealthChecker{DB: repos.db}
	}

	// init blob store
	var blobs interface {
		analyses.BlobStore
		Ping(ctx context.Context) error
	}
	filesDir := ""
	switch cfg.Storage.Driver {
	case config.StorageLocal:
		local, err := storage.NewLocal(cfg.Storage.LocalPath, cfg.Server.PublicURL+"/files")
		if err != nil {
			return fmt.Errorf("local storage init: %w", err)
		}
		blobs, filesDir = local, local.Root
	default:
		store, err := storage.New(ctx,
			cfg.Minio.Endpoint,
			cfg.Minio.Region,
			cfg.Minio.BucketName,
			cfg.Minio.AccessKey,
			cfg.Minio.SecretKey,
			cfg.Minio.UseSSL,
		)
		if err != nil {
			return fmt.Errorf("minio init: %w", err)
		}
		blobs = store
	}
	health["storage"] = middleware.CheckerFunc(blobs.Ping)

	// processing tasks outlive requests but not the process
	baseCtx, cancelTasks := context.WithCancel(context.Background())
	defer cancelTasks()

	appMetrics := middleware.NewMetrics()
	clock := application.SystemClock{}

	analysesSvc := &appanalyses.Service{
		Repo:         repos.analyses,
		Blobs:        blobs,
		Clock:        clock,
		Rand:         application.NewLockedRand(time.Now().UnixNano()),
		Observer:     appMetrics,
		Logger:       logger.With(slog.String("component", "analyses")),
		StepInterval: cfg.Processing.StepInterval,
		BaseContext:  baseCtx,
	}

	var narrator reports.Narrator
	if cfg.OpenAI.APIKey != "" {
		if cfg.OpenAI.BaseURL != "" {
			narrator = openaiNarrator.NewClientWithBaseURL(cfg.OpenAI.APIKey, cfg.OpenAI.Model, cfg.OpenAI.BaseURL)
		} else {
			narrator = openaiNarrator.NewClient(cfg.OpenAI.APIKey, cfg.OpenAI.Model)
		}
		logger.Info("report narratives enabled", slog.String("model", cfg.OpenAI.Model))
	}

	authn := &authinfra.Service{
		Profiles: repos.profiles,
		JWT:      authinfra.NewJWTService(cfg.Auth.JWTSecret, cfg.Auth.SessionTTL),
		Logger:   logger.With(slog.String("component", "auth")),
	}

	limiter := middleware.NewRateLimiter(cfg.RateLimit.Capacity, cfg.RateLimit.RefillRate)
	defer limiter.Stop()

	handler := httpserver.NewRouter(httpserver.Services{
		Analyses: analysesSvc,
		Reports: &appreports.Service{
			Analyses:       repos.analyses,
			Narrator:       narrator,
			NarrateTimeout: cfg.OpenAI.NarrateTimeout,
			Logger:         logger.With(slog.String("component", "reports")),
		},
		Feedback: &appfeedback.Service{Repo: repos.feedback, Clock: clock},
		Admin: &appadmin.Service{
			Analyses: repos.analyses,
			Profiles: repos.profiles,
			Metrics:  repos.metrics,
			Clock:    clock,
		},
		Auth: authn,
	}, httpserver.Options{
		Logger:        logger,
		Metrics:       appMetrics,
		Limiter:       limiter,
		Health:        health,
		CORSOrigins:   cfg.Server.CORSOrigins,
		FilesDir:      filesDir,
		SecureCookies: cfg.Production(),
		Production:    cfg.Production(),
	})

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("server listening",
			slog.String("addr", addr),
			slog.String("env", cfg.Env),
			slog.String("database", cfg.Database.Driver),
			slog.String("storage", cfg.Storage.Driver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		srvErr := srv.Shutdown(shutdownCtx)
		// running analyses are cancelled and marked failed before the pool closes
		tasksErr := analysesSvc.Shutdown(shutdownCtx)
		return errors.Join(srvErr, tasksErr)
	})
	return g.Wait()
}

func openRepositories(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*repositories, error) {
	var (
		db      *sql.DB
		dialect sqlrepo.Dialect
		migrate func(context.Context, *sql.DB) error
		err     error
	)
	switch cfg.Database.Driver {
	case config.DriverMemory:
		logger.Warn("using in-memory repositories, data is lost on restart")
		return &repositories{
			analyses: memory.NewAnalysisRepository(),
			profiles: memory.NewProfileRepository(),
			feedback: memory.NewFeedbackRepository(),
			metrics:  memory.NewMetricsRepository(),
		}, nil
	case config.DriverPostgres:
		db, err = postgresp.Connect(ctx, cfg.PostgresDSN())
		dialect, migrate = postgresp.Dialect{}, postgresp.Migrate
	default:
		db, err = mysqlp.Connect(ctx, cfg.MySQLDSN())
		dialect, migrate = mysqlp.Dialect{}, mysqlp.Migrate
	}
	if err != nil {
		return nil, fmt.Errorf("%s connect: %w", cfg.Database.Driver, err)
	}

	if cfg.Database.Migrate {
		if err := migrate(ctx, db); err != nil {
			db.Close()
			return nil, fmt.Errorf("%s migrate: %w", cfg.Database.Driver, err)
		}
		logger.Info("schema migrated", slog.String("driver", cfg.Database.Driver))
	}

	return &repositories{
		analyses: sqlrepo.NewAnalysisRepository(db, dialect),
		profiles: sqlrepo.NewProfileRepository(db, dialect),
		feedback: sqlrepo.NewFeedbackRepository(db, dialect),
		metrics:  sqlrepo.NewMetricsRepository(db, dialect),
		db:       db,
	}, nil
}
