package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/limaJavier/schooltimetable/internal/api"
	"github.com/limaJavier/schooltimetable/internal/cache"
	"github.com/limaJavier/schooltimetable/internal/config"
	"github.com/limaJavier/schooltimetable/internal/logger"
	"github.com/limaJavier/schooltimetable/internal/metrics"
	"github.com/limaJavier/schooltimetable/internal/service"
	"github.com/limaJavier/schooltimetable/pkg/sat"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	if _, err := sat.NewSolver(cfg.Solver.Backend, cfg.Solver.KissatPath); err != nil {
		logr.Fatal("invalid solver backend", zap.String("backend", cfg.Solver.Backend), zap.Error(err))
	}
	solvers := func() (sat.SATSolver, error) {
		return sat.NewSolver(cfg.Solver.Backend, cfg.Solver.KissatPath)
	}

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
	}

	var store service.Cache
	if cfg.Cache.Enabled {
		client, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, caching disabled", zap.Error(err))
		} else {
			defer client.Close()
			store = cache.NewStore(client, cfg.Cache.TTL, logr)
		}
	}

	svc := service.NewTimetableService(solvers, store, m, service.Config{
		Strategy:  cfg.Solver.Strategy,
		TimeLimit: cfg.Solver.TimeLimit,
		Workers:   cfg.Solver.Workers,
	}, logr)
	router := api.NewRouter(api.NewTimetableHandler(svc, validator.New()), m, logr, cfg.APIPrefix)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logr.Info("server starting",
			zap.String("addr", server.Addr),
			zap.String("env", cfg.Env),
			zap.String("solver", cfg.Solver.Backend),
			zap.String("strategy", cfg.Solver.Strategy),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Solver.TimeLimit+5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}
