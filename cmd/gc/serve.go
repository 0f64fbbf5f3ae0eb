package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/onsiteclub/onsite-eagle-sub003/internal/config"
	"github.com/onsiteclub/onsite-eagle-sub003/internal/events"
	"github.com/onsiteclub/onsite-eagle-sub003/internal/gatecheck"
	"github.com/onsiteclub/onsite-eagle-sub003/internal/hooks"
	"github.com/onsiteclub/onsite-eagle-sub003/internal/metrics"
	"github.com/onsiteclub/onsite-eagle-sub003/internal/presence"
	"github.com/onsiteclub/onsite-eagle-sub003/internal/server"
	"github.com/onsiteclub/onsite-eagle-sub003/internal/store"
	"github.com/onsiteclub/onsite-eagle-sub003/internal/store/memory"
	"github.com/onsiteclub/onsite-eagle-sub003/internal/store/postgres"
	gcsync "github.com/onsiteclub/onsite-eagle-sub003/internal/sync"
	"github.com/onsiteclub/onsite-eagle-sub003/internal/template"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:     "serve",
	Short:   "Start the gate check server",
	GroupID: "system",
	// The server does not need a client connection.
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
		slog.SetDefault(logger)
		ctx := context.Background()

		cfg, err := config.Load()
		if err != nil {
			return err
		}

		st, err := openStore(ctx, cfg, logger)
		if err != nil {
			return err
		}

		registry := prometheus.NewRegistry()
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		m, err := metrics.NewGateCheckMetrics(registry)
		if err != nil {
			st.Close()
			return err
		}

		// Every publisher sees every event.
		hub := server.NewSSEHub()
		pubs := []events.Publisher{hub}
		if cfg.NATSURL != "" {
			natsPub, err := events.NewNATSPublisher(cfg.NATSURL)
			if err != nil {
				st.Close()
				return err
			}
			pubs = append(pubs, natsPub)
			logger.Info("NATS events enabled", "nats_url", cfg.NATSURL)
		} else {
			logger.Info("NATS events disabled (GATECHECK_NATS_URL not set)")
		}
		if cfg.HooksFile != "" {
			hs, err := hooks.LoadFile(cfg.HooksFile)
			if err != nil {
				st.Close()
				return err
			}
			runner := hooks.NewRunner(hs, logger)
			runner.OnResult = func(h hooks.Hook, topic string, res hooks.Result) {
				m.RecordOperation("hook", time.Now().Add(-res.Duration), hookCode(res))
			}
			pubs = append(pubs, runner)
			logger.Info("event hooks loaded", "file", cfg.HooksFile, "hooks", len(hs))
		}
		publisher := events.NewMultiPublisher(pubs...)

		svc := gatecheck.New(st,
			gatecheck.WithPublisher(publisher),
			gatecheck.WithMetrics(m),
			gatecheck.WithLogger(logger),
		)

		gcServer := server.NewGateCheckServer(svc, hub, registry)
		gcServer.Presence.StartReaper(&presence.ReaperConfig{
			IdleThreshold: cfg.RosterIdle,
			OnIdle: func(actor, gateCheckID string) {
				logger.Info("inspector idle", "actor", actor, "gate_check_id", gateCheckID)
			},
		})
		grpcServer := server.NewGRPCServer(gcServer, cfg.AuthToken)

		lis, err := net.Listen("tcp", cfg.GRPCAddr)
		if err != nil {
			gcServer.Presence.Stop()
			publisher.Close()
			st.Close()
			return err
		}
		go func() {
			logger.Info("gRPC server listening", "addr", cfg.GRPCAddr)
			if err := grpcServer.Serve(lis); err != nil {
				logger.Error("gRPC server error", "err", err)
			}
		}()

		httpServer := &http.Server{
			Addr:              cfg.HTTPAddr,
			Handler:           gcServer.NewHTTPHandler(cfg.AuthToken),
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			logger.Info("HTTP server listening", "addr", cfg.HTTPAddr)
			if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("HTTP server error", "err", err)
			}
		}()

		scheduler := startExport(ctx, cfg, st, logger)

		if cfg.AuthToken == "" {
			logger.Warn("GATECHECK_AUTH_TOKEN not set; API is unauthenticated")
		}
		logger.Info("gate check server started",
			"store", cfg.Store,
			"grpc_addr", cfg.GRPCAddr,
			"http_addr", cfg.HTTPAddr,
		)

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh
		logger.Info("received signal, shutting down", "signal", sig)

		if scheduler != nil {
			scheduler.Stop()
			logger.Info("history export stopped")
		}
		gcServer.Presence.Stop()

		grpcServer.GracefulStop()
		logger.Info("gRPC server stopped")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", "err", err)
		}
		logger.Info("HTTP server stopped")

		if err := publisher.Close(); err != nil {
			logger.Error("error closing publishers", "err", err)
		}
		if err := st.Close(); err != nil {
			logger.Error("error closing store", "err", err)
		}

		logger.Info("shutdown complete")
		return nil
	},
}

// openStore opens the configured store and loads the built-in checklist
// templates into it.
func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (store.Store, error) {
	catalog := template.Default()

	switch cfg.Store {
	case config.StoreMemory:
		logger.Warn("using in-memory store; data is lost on exit")
		return memory.New(catalog), nil
	case config.StorePostgres:
		pg, err := postgres.New(ctx, cfg.DatabaseURL, cfg.DBConnectTimeout)
		if err != nil {
			return nil, err
		}
		if err := pg.SeedTemplates(ctx, catalog.All()); err != nil {
			pg.Close()
			return nil, err
		}
		return pg, nil
	default:
		return nil, fmt.Errorf("unknown store %q", cfg.Store)
	}
}

// startExport starts the periodic history export when an interval and at
// least one destination are configured. It returns nil otherwise.
func startExport(ctx context.Context, cfg *config.Config, st store.Store, logger *slog.Logger) *gcsync.Scheduler {
	if cfg.ExportInterval <= 0 {
		return nil
	}

	var dests []gcsync.Destination
	if cfg.ExportS3Bucket != "" {
		s3Dest, err := gcsync.NewS3Destination(ctx, gcsync.S3Config{
			Bucket:   cfg.ExportS3Bucket,
			Key:      cfg.ExportS3Key,
			Region:   cfg.ExportS3Region,
			Endpoint: cfg.ExportS3Endpoint,
		})
		if err != nil {
			logger.Error("failed to create S3 export destination", "err", err)
		} else {
			dests = append(dests, s3Dest)
			logger.Info("S3 export enabled", "bucket", cfg.ExportS3Bucket, "key", cfg.ExportS3Key)
		}
	}
	if cfg.ExportGitRepo != "" {
		dests = append(dests, gcsync.NewGitDestination(cfg.ExportGitRepo, cfg.ExportGitFile, cfg.ExportGitBranch))
		logger.Info("git export enabled", "repo", cfg.ExportGitRepo, "file", cfg.ExportGitFile)
	}
	if len(dests) == 0 {
		return nil
	}

	scheduler := gcsync.NewScheduler(st, dests, cfg.ExportInterval, logger)
	scheduler.Start(ctx)
	logger.Info("history export started", "interval", cfg.ExportInterval)
	return scheduler
}

// hookCode is the operations metric error code for a hook result; empty
// means success.
func hookCode(res hooks.Result) string {
	if res.Err != nil {
		return "hook_failed"
	}
	return ""
}
