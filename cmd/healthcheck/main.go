// Command healthcheck supervises a VPN-gated Transmission deployment: it
// polls the gluetun control server, the Transmission RPC and an external
// port probe on a fixed cadence, reconciles them into a single verdict
// and reports it to a dead-man's-switch endpoint.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"seedbox-sentry/internal/agent"
	"seedbox-sentry/internal/check"
	"seedbox-sentry/internal/config"
	"seedbox-sentry/internal/gluetun"
	"seedbox-sentry/internal/healthchecks"
	"seedbox-sentry/internal/logger"
	"seedbox-sentry/internal/portcheck"
	"seedbox-sentry/internal/transmission"
)

func main() {
	var (
		envFile = pflag.String("env-file", "", "env file loaded before configuration")
		once    = pflag.Bool("once", false, "run a single check cycle, print the result and exit")
	)
	pflag.Parse()

	cfg := config.LoadHealthcheck(*envFile)
	logger.Setup(cfg.LogLevel)

	checker := check.New(
		gluetun.New(cfg.GluetunHost, cfg.GluetunPort, cfg.GluetunUser, cfg.GluetunPass),
		transmission.New(cfg.TrHost, cfg.TrPort, cfg.TrUser, cfg.TrPass),
		portcheck.New(cfg.PortcheckURL),
	)

	hc := &agent.Healthcheck{
		Checker:  checker,
		Reporter: healthchecks.New(cfg.ReportURL),
		Interval: cfg.Interval(),
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if *once {
		res := checker.Run(ctx)
		fmt.Println(res.FullMessage())
		return
	}

	slog.Info("healthcheck agent started", "interval", cfg.Interval())
	hc.Run(ctx)
	slog.Info("healthcheck agent stopped")
}
