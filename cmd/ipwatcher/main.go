// Command ipwatcher tracks the public IP address and pushes changes to a
// session-authenticated dynamic-address update service.
package main

import (
	"context"
	"log"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"seedbox-sentry/internal/agent"
	"seedbox-sentry/internal/config"
	"seedbox-sentry/internal/geoip"
	"seedbox-sentry/internal/healthchecks"
	"seedbox-sentry/internal/ipwatch"
	"seedbox-sentry/internal/logger"
)

func main() {
	var (
		envFile = pflag.String("env-file", "", "env file loaded before configuration")
		once    = pflag.Bool("once", false, "run a single watch tick and exit")
	)
	pflag.Parse()

	cfg := config.LoadIPWatcher(*envFile)
	logger.Setup(cfg.LogLevel)

	identifier, err := ipwatch.ResolveIdentifier(cfg.IdentifierFile, cfg.IdentifierEnv)
	if err != nil {
		log.Fatalf("Configuration Error: %v", err)
	}

	var geo *geoip.Database
	if cfg.GeoIPPath != "" {
		geo, err = geoip.Open(cfg.GeoIPPath)
		if err != nil {
			// Annotation is optional; a broken database shouldn't stop the watcher
			slog.Warn("geoip database unavailable", "path", cfg.GeoIPPath, "error", err)
		} else {
			defer geo.Close()
		}
	}

	var reporter agent.Reporter
	if cfg.ReportURL != "" {
		reporter = healthchecks.New(cfg.ReportURL)
	}

	watcher := ipwatch.NewWatcher(
		ipwatch.NewResolver(cfg.Providers),
		ipwatch.NewClient(cfg.UpdateURL),
		ipwatch.NewStore(cfg.CacheFile, cfg.CookieFile),
		reporter,
		geo,
		identifier,
		ipwatch.Intervals{
			Normal:    cfg.Interval(),
			Error:     cfg.ErrorInterval(),
			RateLimit: cfg.RateLimitInterval(),
		},
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if *once {
		watcher.Tick(ctx)
		return
	}

	slog.Info("ip watcher started", "interval", cfg.Interval())
	watcher.Run(ctx)
	slog.Info("ip watcher stopped")
}
