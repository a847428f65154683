package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fluent/fluent-logger-golang/fluent"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"photobatch/internal/api"
	"photobatch/internal/config"
	"photobatch/internal/download"
	"photobatch/internal/logger"
	"photobatch/internal/manager"
	"photobatch/internal/metrics"
	"photobatch/internal/scheduler"
	"photobatch/internal/snapshot"
)

// main — точка входа сервиса пакетного скачивания фотографий. Здесь
// собираются логгеры, метрики, загрузчик и менеджер пакета, восстанавливается
// состояние из снапшота и поднимается HTTP-сервер. При получении сигнала
// сервер перестаёт принимать запросы, активный запуск дорабатывает до конца,
// и состояние сохраняется в последний раз.
func main() {
	if err := run(); err != nil {
		log.Fatalf("photobatch: %v", err)
	}
}

func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("error loading application configuration: %w", err)
	}

	baseLogger, closeLogs, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer closeLogs()
	appLogger := baseLogger.WithFields(logger.Fields{"component": "app"})

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	fetcher, err := download.NewCollyFetcher(download.Config{
		Timeout:        cfg.Fetch.Timeout,
		MaxBodyBytes:   cfg.Fetch.MaxBodyBytes,
		RatePerHost:    cfg.Fetch.RatePerHost,
		HostParallel:   cfg.Fetch.Concurrency,
		RandomizeAgent: true,
	})
	if err != nil {
		appLogger.Error("Failed to create fetcher", err, nil)
		return err
	}

	mgr := manager.New(fetcher, baseLogger,
		scheduler.WithConcurrency(cfg.Fetch.Concurrency),
		scheduler.WithFetchTimeout(cfg.Fetch.Timeout),
		scheduler.WithMinImageBytes(cfg.Fetch.MinImageBytes),
		scheduler.WithMetrics(m),
	)

	// Корневой контекст для записи снапшотов. Запуски скачивания от него не зависят.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, closeStore, err := newSnapshotStore(ctx, cfg)
	if err != nil {
		appLogger.Error("Failed to open snapshot store", err, logger.Fields{"backend": cfg.Snapshot.Backend})
		return err
	}
	defer closeStore()

	if n, err := mgr.Restore(ctx, store); err != nil {
		// a broken snapshot must not keep the service down
		appLogger.Error("Failed to restore snapshot, starting with an empty batch", err, nil)
	} else if n > 0 {
		appLogger.Info("Snapshot restored", logger.Fields{"tasks": n})
	}

	snapshotDone := make(chan struct{})
	go func() {
		defer close(snapshotDone)
		mgr.SnapshotLoop(ctx, store, cfg.Snapshot.Interval)
	}()

	handler := api.NewRouter(api.RouterConfig{
		Handler:     api.NewBatchHandler(mgr, 0),
		Logger:      baseLogger.WithFields(logger.Fields{"component": "http"}),
		CORSOrigins: cfg.CORSOrigins,
		Gatherer:    reg,
	})
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		appLogger.Info("HTTP server starting", logger.Fields{"addr": srv.Addr, "workers": cfg.Fetch.Concurrency})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		appLogger.Info("Shutdown signal received", logger.Fields{"signal": sig.String()})
	case err := <-serverErr:
		if err != nil {
			appLogger.Error("HTTP server failed", err, nil)
			return err
		}
	}

	shutdownCtx, stop := context.WithTimeout(context.Background(), 15*time.Second)
	defer stop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("HTTP server shutdown failed", err, nil)
	}

	if mgr.Running() {
		appLogger.Info("Waiting for the active run to drain", nil)
	}
	mgr.Wait()

	// stopping the loop writes the final snapshot
	cancel()
	<-snapshotDone
	appLogger.Info("Shutdown complete", nil)
	return nil
}

func newLogger(cfg *config.AppConfig) (logger.Logger, func(), error) {
	active := []logger.Logger{
		logger.NewSlogAdapter(logger.SlogConfig{
			Level:    logger.ParseLevel(cfg.StdoutLogger.Level),
			IsJSON:   cfg.StdoutLogger.JSON,
			UseColor: !cfg.StdoutLogger.JSON,
		}),
	}

	closeFn := func() {}
	if cfg.FluentBit.Enabled {
		client, err := logger.NewFluentClient(logger.FluentConfig{
			Host:      cfg.FluentBit.Host,
			Port:      cfg.FluentBit.Port,
			TagPrefix: cfg.AppName,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create fluentbit client: %w", err)
		}
		adapter, err := logger.NewFluentAdapter(client, logger.ParseLevel(cfg.FluentBit.Level))
		if err != nil {
			client.Close()
			return nil, nil, err
		}
		active = append(active, adapter)
		closeFn = func() { closeFluent(client) }
	}

	multi, err := logger.NewMultiAdapter(active...)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create multi-logger: %w", err)
	}
	base := multi.WithFields(logger.Fields{"service_name": cfg.AppName})
	base.Info("Logger system initialized", logger.Fields{
		"active_loggers": len(active), "fluent_enabled": cfg.FluentBit.Enabled,
	})
	return base, closeFn, nil
}

func closeFluent(client *fluent.Fluent) {
	if err := client.Close(); err != nil {
		log.Printf("fluent client close: %v", err)
	}
}

func newSnapshotStore(ctx context.Context, cfg *config.AppConfig) (snapshot.Store, func(), error) {
	switch cfg.Snapshot.Backend {
	case "redis":
		client, err := snapshot.DialRedis(ctx, cfg.Snapshot.RedisURL)
		if err != nil {
			return nil, nil, err
		}
		return snapshot.NewRedisStore(client, cfg.Snapshot.RedisKey), func() { client.Close() }, nil
	case "none":
		return snapshot.Nop{}, func() {}, nil
	default:
		return snapshot.NewFileStore(cfg.Snapshot.File), func() {}, nil
	}
}
