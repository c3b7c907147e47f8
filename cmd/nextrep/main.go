package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/claude/nextrep/internal/config"
	"github.com/claude/nextrep/internal/ingest/alpha"
	nextmcp "github.com/claude/nextrep/internal/mcp"
	"github.com/claude/nextrep/internal/metrics"
	"github.com/claude/nextrep/internal/pipeline"
	"github.com/claude/nextrep/internal/scoring"
	"github.com/claude/nextrep/internal/server"
	"github.com/claude/nextrep/internal/storage"
	"github.com/joho/godotenv"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"tailscale.com/tsnet"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	migrateOnly := flag.Bool("migrate-only", false, "open the store, apply migrations and exit")
	flag.Parse()

	// A missing .env is fine; the config file and real environment still apply.
	_ = godotenv.Load()

	// Load config
	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.Log.SlogLevel()}))
	log.Info("NextRep starting", "version", Version, "store", cfg.Store.Driver)

	ctx := context.Background()

	// Open store (runs migrations for postgres)
	store, closeStore, err := storage.Open(ctx, cfg.Store.Driver, cfg.Store.Path, cfg.Database.DSN(), log)
	if err != nil {
		log.Error("failed to open store", "error", err)
		os.Exit(1)
	}
	defer closeStore()

	if *migrateOnly {
		log.Info("migrate-only: exiting")
		return
	}

	strategy, err := scoring.ByName(cfg.Analytics.Scoring)
	if err != nil {
		log.Error("invalid scoring strategy", "error", err)
		os.Exit(1)
	}
	loc, err := cfg.Analytics.Location()
	if err != nil {
		log.Error("invalid time zone", "error", err)
		os.Exit(1)
	}

	// Metrics
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	mgr := metrics.NewManager("nextrep", "pipeline", reg)

	// Pipeline
	opts := []pipeline.Option{
		pipeline.WithClock(func() time.Time { return time.Now().In(loc) }),
		pipeline.WithLogger(log),
		pipeline.WithMetrics(mgr),
	}
	if cfg.Pipeline.IdleGrace > 0 {
		opts = append(opts, pipeline.WithIdleGrace(cfg.Pipeline.IdleGrace))
	}
	if cfg.Pipeline.RetryInterval > 0 {
		opts = append(opts, pipeline.WithRetryInterval(cfg.Pipeline.RetryInterval))
	}
	pipe := pipeline.New(store, strategy, opts...)
	defer pipe.Close()

	drafts, err := cfg.Bootstrap.Drafts()
	if err != nil {
		log.Error("invalid bootstrap plans", "error", err)
		os.Exit(1)
	}
	if n, err := pipe.Bootstrap(ctx, drafts); err != nil {
		log.Error("bootstrap failed", "error", err)
		os.Exit(1)
	} else if n > 0 {
		log.Info("bootstrapped plans", "count", n)
	}

	// Create providers
	alphaProvider := alpha.NewProvider(store, strategy, loc, log)

	// Create server
	srv := server.New(pipe, alphaProvider, cfg.Auth.APIKey, log)
	srv.Mount("/mcp", mcpserver.NewStreamableHTTPServer(nextmcp.New(nextmcp.NewLocal(pipe), Version, log)))
	srv.Mount("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))

	// Start server: tsnet or plain HTTP
	var listener net.Listener
	var tsServer *tsnet.Server

	if cfg.Tailscale.Enabled {
		tsServer = &tsnet.Server{
			Hostname: cfg.Tailscale.Hostname,
			Dir:      cfg.Tailscale.StateDir,
		}
		if err := tsServer.Start(); err != nil {
			log.Error("tsnet start failed", "error", err)
			os.Exit(1)
		}
		defer tsServer.Close()

		lc, err := tsServer.LocalClient()
		if err != nil {
			log.Error("tsnet local client failed", "error", err)
			os.Exit(1)
		}
		srv.SetTailscale(lc)

		listener, err = tsServer.Listen("tcp", ":80")
		if err != nil {
			log.Error("tsnet listen failed", "error", err)
			os.Exit(1)
		}
		log.Info("tsnet server starting", "hostname", cfg.Tailscale.Hostname)
	} else {
		addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		listener, err = net.Listen("tcp", addr)
		if err != nil {
			log.Error("listen failed", "addr", addr, "error", err)
			os.Exit(1)
		}
		log.Info("server starting", "addr", addr, "mode", "dev (no tailscale)")
	}

	httpSrv := &http.Server{Handler: srv}

	go func() {
		if err := httpSrv.Serve(listener); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	log.Info("shutting down", "signal", sig)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", "error", err)
	}
	log.Info("server stopped")
}
