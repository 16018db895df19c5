package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"codearena/internal/api"
	"codearena/internal/api/handler"
	"codearena/internal/app/service"
	"codearena/internal/app/worker"
	"codearena/internal/common"
	"codearena/internal/common/security"
	"codearena/internal/domain/repository"
	"codearena/internal/platform/config"
	"codearena/internal/platform/database"
	"codearena/internal/platform/judge0"
	"codearena/internal/platform/logger"
	"codearena/internal/platform/queue"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// app holds everything built from the configuration.
type app struct {
	cfg *config.Config
	db  *sql.DB
	rdb *redis.Client

	tokens   *security.TokenManager
	services api.Services
	worker   *worker.ExecutionWorker
}

func (a *app) Close() {
	if a.rdb != nil {
		a.rdb.Close()
	}
	if a.db != nil {
		a.db.Close()
	}
}

func setup(ctx context.Context) (*config.Config, error) {
	cfg := config.Load()
	if err := logger.Init(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat}); err != nil {
		return nil, err
	}
	common.SetVerboseErrors(cfg.IsDevelopment())
	logger.Info(ctx, "configuration loaded", zap.String("env", cfg.AppEnv))
	return cfg, nil
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	a := &app{cfg: cfg}

	// 1. Stores
	db, err := database.Connect(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a.db = db
	logger.Info(ctx, "database connected")

	rdb, err := queue.ConnectRedis(ctx, cfg)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.rdb = rdb
	logger.Info(ctx, "redis connected")

	// 2. Repositories
	userRepo := repository.NewPgUserRepository(db)
	problemRepo := repository.NewPgProblemRepository(db)
	submissionRepo := repository.NewPgSubmissionRepository(db)
	playlistRepo := repository.NewPgPlaylistRepository(db)
	jobRepo := repository.NewRedisExecutionJobRepository(rdb, cfg.ExecutionJobTTL)
	txRunner := database.NewTxRunner(db)

	// 3. Judge0
	judge := judge0.NewClient(cfg.Judge0APIURL,
		judge0.WithAPIKey(cfg.Judge0APIKey),
		judge0.WithHTTPClient(&http.Client{Timeout: cfg.Judge0HTTPTimeout}),
		judge0.WithPollPolicy(cfg.Judge0PollInterval, cfg.Judge0PollTimeout, cfg.Judge0MaxPollAttempts),
	)

	// 4. Services
	a.tokens = security.NewTokenManager(cfg.AccessTokenSecret, cfg.AccessTokenExpiry, cfg.RefreshTokenSecret, cfg.RefreshTokenExpiry)
	submissionService := service.NewSubmissionService(problemRepo, submissionRepo, judge, txRunner)
	a.services = api.Services{
		Auth:       service.NewAuthService(userRepo, a.tokens),
		Problem:    service.NewProblemService(problemRepo, judge, txRunner),
		Submission: submissionService,
		Jobs:       service.NewExecutionJobService(jobRepo, problemRepo, rdb, cfg.ExecutionQueueName),
		Playlist:   service.NewPlaylistService(playlistRepo, problemRepo),
	}

	// 5. Worker
	a.worker = worker.NewExecutionWorker(rdb, jobRepo, submissionService, worker.Options{
		QueueName:  cfg.ExecutionQueueName,
		LockKey:    cfg.ExecutionLockKey,
		LockTTL:    time.Duration(cfg.ExecutionLockTTLSeconds) * time.Second,
		JobTimeout: cfg.ExecutionJobTimeout,
	})
	return a, nil
}

func serveMain(cmd *cobra.Command, _ []string) error {
	runWorker, err := cmd.Flags().GetBool("worker")
	if err != nil {
		return err
	}
	migrate, err := cmd.Flags().GetBool("migrate")
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := setup(ctx)
	if err != nil {
		return err
	}
	defer logger.Sync()

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	if migrate {
		if err := applyMigrations(ctx, a.db); err != nil {
			return err
		}
	}

	var wg sync.WaitGroup
	if runWorker {
		wg.Add(1)
		go func() {
			defer wg.Done()
			a.worker.Start(ctx)
		}()
	}

	router := api.NewRouter(a.services, a.tokens, api.Options{
		FrontendURL: cfg.FrontendURL,
		Cookies: handler.CookieOptions{
			Secure:        !cfg.IsDevelopment(),
			AccessExpiry:  cfg.AccessTokenExpiry,
			RefreshExpiry: cfg.RefreshTokenExpiry,
		},
		// Problem writes poll Judge0 once per reference language.
		RequestTimeout: judge0.MaxValidationWait(cfg.Judge0PollTimeout) + 30*time.Second,
	})

	server := &http.Server{
		Addr:         ":" + cfg.APIPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: judge0.MaxValidationWait(cfg.Judge0PollTimeout) + time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info(ctx, "server starting", zap.String("port", cfg.APIPort))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case <-ctx.Done():
	case err := <-serverErr:
		if err != nil {
			stop()
			wg.Wait()
			return fmt.Errorf("could not listen on %s: %w", cfg.APIPort, err)
		}
	}

	logger.Info(context.Background(), "shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error(shutdownCtx, "server shutdown failed", zap.Error(err))
	}
	wg.Wait()
	logger.Info(context.Background(), "server and worker stopped gracefully")
	return nil
}

func workerMain(_ *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := setup(ctx)
	if err != nil {
		return err
	}
	defer logger.Sync()

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	a.worker.Start(ctx)
	return nil
}

func migrateMain(_ *cobra.Command, _ []string) error {
	ctx := context.Background()
	cfg, err := setup(ctx)
	if err != nil {
		return err
	}
	defer logger.Sync()

	db, err := database.Connect(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()
	return applyMigrations(ctx, db)
}

func applyMigrations(ctx context.Context, db *sql.DB) error {
	applied, err := database.Migrate(ctx, db)
	if err != nil {
		return err
	}
	if len(applied) == 0 {
		logger.Info(ctx, "database schema is up to date")
		return nil
	}
	logger.Info(ctx, "migrations applied", zap.Strings("migrations", applied))
	return nil
}

func newRootCmd() *cobra.Command {
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Starts the API server",
		RunE:  serveMain,
	}
	serveCmd.Flags().Bool("worker", true, "Run the execution worker in the same process")
	serveCmd.Flags().Bool("migrate", false, "Apply database migrations before serving")

	rootCmd := &cobra.Command{
		Use:           "codearena",
		Short:         "Coding problem judge backed by Judge0",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          serveMain,
	}
	rootCmd.Flags().AddFlagSet(serveCmd.Flags())

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(&cobra.Command{
		Use:   "worker",
		Short: "Runs only the execution worker",
		RunE:  workerMain,
	})
	rootCmd.AddCommand(&cobra.Command{
		Use:   "migrate",
		Short: "Applies migrations to the database",
		RunE:  migrateMain,
	})
	return rootCmd
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
