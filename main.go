package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/bradleysepos/aws-ddns/internal/config"
	"github.com/bradleysepos/aws-ddns/internal/logger"
	"github.com/bradleysepos/aws-ddns/internal/metrics"
	"github.com/bradleysepos/aws-ddns/internal/provider"
	"github.com/bradleysepos/aws-ddns/internal/provider/cloudflare"
	"github.com/bradleysepos/aws-ddns/internal/provider/route53"
	"github.com/bradleysepos/aws-ddns/internal/reconcile"
	"github.com/bradleysepos/aws-ddns/internal/resolver"
	"github.com/bradleysepos/aws-ddns/internal/state"
)

// Exit codes by failure category.
const (
	exitOK                  = 0
	exitFailure             = 1
	exitInvalidConfig       = 2
	exitCacheUnavailable    = 3
	exitResolutionFailed    = 4
	exitAuthorityQuery      = 5
	exitAuthorityChange     = 6
	exitUnparseableResponse = 7
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "config.yaml", "path to config file")
	daemon := flag.Bool("daemon", false, "keep running on the configured interval and serve metrics")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("fail load config", "path", *configPath, "error", err)
		return exitInvalidConfig
	}
	logger.Configure(cfg.Log.Level, cfg.Log.Env)

	if err := cfg.Validate(); err != nil {
		slog.Error("fail validate config", "error", err)
		return exitInvalidConfig
	}

	m := metrics.New(true)

	store, err := state.Open(cfg.CacheDir, m)
	if err != nil {
		slog.Error("fail open state cache", "dir", cfg.CacheDir, "error", err)
		return exitCacheUnavailable
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client, err := newProviderClient(ctx, cfg, m)
	if err != nil {
		slog.Error("fail initialize authority client", "backend", cfg.Authority.Backend, "error", err)
		return exitFailure
	}

	family := resolver.FamilyFor(provider.RRType(cfg.Record.Type))
	res := resolver.New(family, cfg.Resolve.Services, m)

	engine := reconcile.NewEngine(store, client, res, cfg, m)

	if *daemon {
		return runDaemon(ctx, cancel, engine, m, cfg)
	}

	result, err := engine.Run(ctx)
	if err != nil {
		slog.Error("update run failed", "error", err)
		return exitCode(err)
	}
	report(result)
	return exitOK
}

func newProviderClient(ctx context.Context, cfg *config.Config, m *metrics.Metrics) (provider.Client, error) {
	switch cfg.Authority.Backend {
	case "cloudflare":
		return cloudflare.New(cfg.Authority, m)
	default:
		return route53.New(ctx, cfg.Authority, m)
	}
}

func report(result reconcile.Result) {
	switch result.Decision {
	case reconcile.NoOpUpToDate:
		fmt.Printf("%s %s up to date (%s)\n", result.Identity.Name, result.Identity.Type, result.Value)
	default:
		fmt.Printf("%s %s -> %s [%s]\n", result.Identity.Name, result.Identity.Type, result.Value, result.Status)
	}
}

func exitCode(err error) int {
	switch {
	case errors.Is(err, config.ErrInvalidConfiguration):
		return exitInvalidConfig
	case errors.Is(err, state.ErrCacheUnavailable):
		return exitCacheUnavailable
	case errors.Is(err, resolver.ErrNoAddressFound), errors.Is(err, resolver.ErrInvalidOverride):
		return exitResolutionFailed
	case errors.Is(err, reconcile.ErrAuthorityQueryFailed):
		return exitAuthorityQuery
	case errors.Is(err, reconcile.ErrAuthorityChangeFailed):
		return exitAuthorityChange
	case errors.Is(err, provider.ErrUnparseableResponse):
		return exitUnparseableResponse
	default:
		return exitFailure
	}
}

// runDaemon hosts the periodic trigger in-process: run once immediately, then
// on every tick, with a metrics endpoint and graceful shutdown. Run failures
// are logged and retried on the next tick rather than ending the process.
func runDaemon(ctx context.Context, cancel context.CancelFunc, engine reconcile.Engine, m *metrics.Metrics, cfg *config.Config) int {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())

	server := &http.Server{
		Addr:    cfg.Daemon.MetricsAddr,
		Handler: mux,
	}

	go func() {
		slog.Info("starting metrics server", "address", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("metrics server failed", "error", err)
		}
	}()

	wg := &sync.WaitGroup{}
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(cfg.Daemon.Interval)
		defer ticker.Stop()

		for {
			if result, err := engine.Run(ctx); err != nil {
				slog.Error("update run failed", "error", err)
			} else {
				slog.Info("update run finished", "decision", result.Decision, "address", result.Value, "status", result.Status)
			}

			select {
			case <-ticker.C:
				continue
			case <-ctx.Done():
				slog.Info("stopping update loop")
				return
			}
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	slog.Info("shutdown signal received")
	cancel()

	shutdownCtx, cancelServer := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelServer()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("metrics server shutdown error", "error", err)
	}

	wg.Wait()
	slog.Info("shutdown complete")
	return exitOK
}
