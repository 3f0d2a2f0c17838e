package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"teamfee/internal/cli"
	"teamfee/internal/log"
	"teamfee/internal/metrics"
	"teamfee/internal/sheets"
	gsheet "teamfee/internal/sheets/google"
	"teamfee/internal/worker"
)

func main() {
	cfg := cli.LoadConfig()
	logger := cli.SetupLogger(cfg, log.ComponentWorker)
	cli.MustValidate(logger, cfg.ValidateWorker)

	logger.Info("Starting teamfee-worker")

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, nil)

	res := cli.OpenBackend(ctx, logger, cfg)
	defer res.Close()
	if res.AMQP == nil {
		logger.Error("AMQP broker unavailable, nothing to consume", "url_set", cfg.AMQPURL != "")
		_ = res.Close()
		os.Exit(1)
	}

	var writer sheets.SummaryWriter = &sheets.LogWriter{Logger: logger.WithComponent(log.ComponentSheets)}
	if cfg.GoogleSpreadsheetID != "" {
		client, err := gsheet.New(ctx, gsheet.Config{
			SpreadsheetID:   cfg.GoogleSpreadsheetID,
			SheetName:       cfg.GoogleSheetName,
			CredentialsJSON: cfg.GoogleCredentialsJSON,
			CredentialsFile: cfg.GoogleCredentialsFile,
		})
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", log.FieldError, err)
			_ = res.Close()
			os.Exit(1)
		}
		writer = client
		logger.Info("Google Sheets client initialized",
			"spreadsheet_id", cfg.GoogleSpreadsheetID,
			"sheet", cfg.GoogleSheetName)
	} else {
		logger.Info("Google Sheets disabled - no GOOGLE_SPREADSHEET_ID provided, summaries are logged")
	}

	m := metrics.NewManager(metrics.WithRuntimeCollectors())
	if cfg.MetricsPort != "" {
		metricsSrv := serveMetrics(logger, m, cfg.MetricsPort)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = metricsSrv.Shutdown(shutdownCtx)
		}()
	}

	syncWorker := worker.NewSyncWorker(res.Store, writer, cfg.GlobalFee,
		worker.WithMetrics(m),
		worker.WithLogger(logger))

	if err := syncWorker.Run(ctx, res.AMQP, cfg.SyncInterval); err != nil {
		logger.Error("Worker stopped with error", log.FieldError, err)
		_ = res.Close()
		os.Exit(1)
	}

	<-done
	logger.Info("Worker shutdown complete")
}

func serveMetrics(logger *log.Logger, m *metrics.Manager, port string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", m.Handler())
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info("Serving worker metrics", "port", port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Metrics server error", log.FieldError, err)
		}
	}()
	return srv
}
