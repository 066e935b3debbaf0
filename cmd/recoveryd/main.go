package main

import (
	"context"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/joseph-ayodele/tracking-recovery/internal/async"
	"github.com/joseph-ayodele/tracking-recovery/internal/bootstrap"
	"github.com/joseph-ayodele/tracking-recovery/internal/common"
	"github.com/joseph-ayodele/tracking-recovery/internal/export"
	"github.com/joseph-ayodele/tracking-recovery/internal/inbox"
	"github.com/joseph-ayodele/tracking-recovery/internal/ingest"
	"github.com/joseph-ayodele/tracking-recovery/internal/session"
	"github.com/joseph-ayodele/tracking-recovery/internal/settings"
	svc "github.com/joseph-ayodele/tracking-recovery/internal/server"
)

func main() {
	_ = godotenv.Load()

	logger := bootstrap.NewLogger()
	slog.SetDefault(logger)

	cfg := common.LoadConfig()
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	loader, closeSettings, err := bootstrap.SettingsLoader(ctx, cfg.Settings, logger)
	if err != nil {
		logger.Error("failed to open settings source", "source", cfg.Settings.Source, "error", err)
		os.Exit(1)
	}
	defer closeSettings()
	settingsLoader := settings.Fallback{Loader: loader, Logger: logger}

	var store session.Store
	if cfg.Sessions.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.Sessions.RedisAddr, DB: cfg.Sessions.RedisDB})
		defer func() {
			if err := rdb.Close(); err != nil {
				logger.Warn("redis close failed", "error", err)
			}
		}()
		rs := session.NewRedisStore(rdb, "recovery:session:", cfg.Sessions.TTL)
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		err := rs.Ping(pingCtx)
		cancel()
		if err != nil {
			logger.Error("failed to reach redis", "addr", cfg.Sessions.RedisAddr, "error", err)
			os.Exit(1)
		}
		logger.Info("sessions stored in redis", "addr", cfg.Sessions.RedisAddr)
		store = rs
	} else {
		store = session.NewMemoryStore(cfg.Sessions.TTL)
	}

	orch := bootstrap.Orchestrator(cfg, logger)

	lis, err := net.Listen("tcp", cfg.Server.GRPCAddr)
	if err != nil {
		logger.Error("failed to listen on address", "addr", cfg.Server.GRPCAddr, "error", err)
		os.Exit(1)
	}
	grpcServer := grpc.NewServer(grpc.MaxRecvMsgSize(cfg.Server.MaxUploadBytes + 1<<20))
	svc.RegisterRecoveryServer(grpcServer, svc.NewRecoveryService(orch, settingsLoader, store, cfg.Server.MaxUploadBytes, logger))

	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	healthServer.SetServingStatus(svc.ServiceName, grpc_health_v1.HealthCheckResponse_SERVING)
	reflection.Register(grpcServer)

	var queue *async.ProcessorQueue
	var report *export.Report
	if cfg.Inbox.Dir != "" {
		report = export.NewReport(logger)
		proc := &inbox.Processor{
			Pipeline: orch,
			Settings: settingsLoader,
			Sessions: store,
			Report:   report,
			Dedup:    ingest.NewDedup(),
			MaxBytes: int64(cfg.Server.MaxUploadBytes),
			Logger:   logger,
		}
		queue = async.NewProcessorQueue(proc, logger,
			async.WithWorkers(cfg.Inbox.Workers),
			async.WithQueueSize(cfg.Inbox.QueueSize),
			async.WithProcessTimeout(cfg.Inbox.JobTimeout),
		)
		events, errs, err := ingest.StartWatcher(ctx, ingest.WatchConfig{
			Roots:       []string{cfg.Inbox.Dir},
			InitialScan: true,
			SkipHidden:  true,
			Debounce:    500 * time.Millisecond,
			Logger:      logger,
		})
		if err != nil {
			logger.Error("failed to watch inbox", "dir", cfg.Inbox.Dir, "error", err)
			os.Exit(1)
		}
		go func() {
			for err := range errs {
				logger.Warn("inbox watcher error", "error", err)
			}
		}()
		go inbox.Feed(ctx, queue, events, logger)
		logger.Info("watching inbox", "dir", cfg.Inbox.Dir, "workers", cfg.Inbox.Workers)
	}

	logger.Info("recoveryd listening", "addr", cfg.Server.GRPCAddr, "ocr_engine", cfg.OCR.Engine, "settings_source", cfg.Settings.Source)
	go func() {
		if err := grpcServer.Serve(lis); err != nil {
			logger.Error("gRPC serve error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	healthServer.Shutdown()
	grpcServer.GracefulStop()

	if queue != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Inbox.JobTimeout)
		queue.Shutdown(shutdownCtx)
		cancel()
	}
	if report != nil && cfg.Inbox.Report != "" && report.Len() > 0 {
		if err := report.WriteFile(cfg.Inbox.Report); err != nil {
			logger.Error("failed to write inbox report", "path", cfg.Inbox.Report, "error", err)
		} else {
			logger.Info("inbox report written", "path", cfg.Inbox.Report, "rows", report.Len())
		}
	}
}
