package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"teamfee/internal/cli"
	apphttp "teamfee/internal/http"
	"teamfee/internal/log"
	"teamfee/internal/metrics"
	"teamfee/internal/services"
)

func main() {
	cfg := cli.LoadConfig()
	logger := cli.SetupLogger(cfg, log.ComponentApp)
	cli.MustValidate(logger, cfg.Validate)

	ctx := context.Background()
	res := cli.OpenBackend(ctx, logger, cfg)
	repo := cli.LoadRepository(ctx, logger, res, cfg.GlobalFee)

	m := metrics.NewManager(metrics.WithRuntimeCollectors())
	svc := services.NewTeamService(repo, res.Publisher(),
		services.WithMetrics(m),
		services.WithLogger(logger.WithComponent(log.ComponentService)))
	svc.Summary()

	srv := apphttp.NewServer(apphttp.ServerConfig{
		Addr:               ":" + cfg.Port,
		Service:            svc,
		Logger:             logger,
		Metrics:            m,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		Ready:              res.Ready,
	})

	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 30 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16

	_, done := cli.GracefulShutdown(logger, 30*time.Second, func(shutdownCtx context.Context) {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
		if err := res.Close(); err != nil {
			logger.Error("Backend cleanup error", log.FieldError, err)
		}
	})

	logger.Info("Starting teamfee server",
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		"amqp_enabled", res.AMQP != nil,
		log.FieldRevision, repo.Revision())
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		_ = res.Close()
		os.Exit(1)
	}

	<-done
	logger.Info("Server stopped gracefully")
}
