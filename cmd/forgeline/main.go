package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/forgeline-mes/forgeline-mes/internal/app"
	"github.com/forgeline-mes/forgeline-mes/internal/assembly"
	"github.com/forgeline-mes/forgeline-mes/internal/backup"
	"github.com/forgeline-mes/forgeline-mes/internal/inventory"
	"github.com/forgeline-mes/forgeline-mes/internal/orders"
	"github.com/forgeline-mes/forgeline-mes/internal/packaging"
	"github.com/forgeline-mes/forgeline-mes/internal/platform/cache"
	"github.com/forgeline-mes/forgeline-mes/internal/platform/db"
	"github.com/forgeline-mes/forgeline-mes/internal/production"
	"github.com/forgeline-mes/forgeline-mes/internal/rbac"
	"github.com/forgeline-mes/forgeline-mes/internal/reports"
	"github.com/forgeline-mes/forgeline-mes/internal/shared"
	"github.com/forgeline-mes/forgeline-mes/jobs"
)

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN, db.Options{MaxConns: cfg.PGMaxConns})
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	locker := shared.NewLocker(redisClient)
	auditLogger := shared.NewAuditLogger(pool)
	rbacMiddleware := rbac.Middleware{Logger: logger}

	inventoryRepo := inventory.NewRepository(pool)
	inventoryService := inventory.NewService(inventoryRepo, auditLogger)
	inventoryHandler := inventory.NewHandler(logger, inventoryService, rbacMiddleware)

	productionRepo := production.NewRepository(pool)
	planner := production.NewPlanner(productionRepo, locker, production.PlannerConfig{NetDemand: cfg.PlannerNetDemand})
	productionService := production.NewService(productionRepo, planner, auditLogger)
	productionHandler := production.NewHandler(logger, productionService, rbacMiddleware)

	ordersRepo := orders.NewRepository(pool)
	ordersService := orders.NewService(ordersRepo, planner, locker, auditLogger)
	ordersHandler := orders.NewHandler(logger, ordersService, rbacMiddleware)

	assemblyRepo := assembly.NewRepository(pool)
	assemblyService := assembly.NewService(assemblyRepo, auditLogger)
	assemblyHandler := assembly.NewHandler(logger, assemblyService, rbacMiddleware)

	packagingRepo := packaging.NewRepository(pool)
	packagingService := packaging.NewService(packagingRepo, planner, auditLogger)
	packagingHandler := packaging.NewHandler(logger, packagingService, rbacMiddleware)

	reportsRepo := reports.NewRepository(pool)
	reportsService := reports.NewService(reportsRepo)
	reportsHandler := reports.NewHandler(logger, reportsService, rbacMiddleware)

	jobsClient := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := jobsClient.Close(); err != nil {
			logger.Warn("jobs client close", slog.Any("error", err))
		}
	}()
	backupHandler := backup.NewHandler(logger, jobsClient, rbacMiddleware)

	router := app.NewRouter(app.RouterParams{
		Logger:            logger,
		Config:            cfg,
		RBAC:              rbacMiddleware,
		InventoryHandler:  inventoryHandler,
		OrdersHandler:     ordersHandler,
		ProductionHandler: productionHandler,
		AssemblyHandler:   assemblyHandler,
		PackagingHandler:  packagingHandler,
		ReportsHandler:    reportsHandler,
		BackupHandler:     backupHandler,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("server exit", slog.Any("error", err))
		os.Exit(1)
	}
}
