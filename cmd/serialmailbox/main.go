// Package main runs the serial mailbox daemon: it owns one serial port,
// exposes hub metrics over HTTP and optionally bridges lines to NATS.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	mailbox "github.com/luhtfiimanal/go-serial-mailbox"
	"github.com/luhtfiimanal/go-serial-mailbox/bridge"
	"github.com/luhtfiimanal/go-serial-mailbox/internal/config"
	"github.com/luhtfiimanal/go-serial-mailbox/port"
)

// Build information constants
const (
	Version = "0.2.0"
	appName = "serialmailbox"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:]); err != nil {
		stop()
		slog.Error("Application failed", "error", err, "exit_code", 1)
		os.Exit(1)
	}
}

// run starts the daemon and blocks until ctx is cancelled or a component
// fails.
func run(ctx context.Context, args []string) error {
	cli, err := parseFlags(args)
	if err != nil {
		return err
	}
	if cli.ShowVersion {
		fmt.Printf("%s version %s\n", appName, Version)
		return nil
	}

	cfg, err := config.Load(cli.ConfigPath)
	if err != nil {
		return err
	}
	cli.apply(&cfg)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if cli.Validate {
		fmt.Println("Configuration is valid")
		return nil
	}

	logger := setupLogger(cfg.Log)
	slog.SetDefault(logger)
	logger.Info("Starting serial mailbox", "device", cfg.Serial.Device, "baud_rate", cfg.Serial.BaudRate)

	p, err := port.Open(port.Config{Device: cfg.Serial.Device, BaudRate: cfg.Serial.BaudRate})
	if err != nil {
		return fmt.Errorf("open serial port %s: %w", cfg.Serial.Device, err)
	}
	defer p.Close()
	logger.Info("Serial port opened", "device", p.Name())

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	hub, err := mailbox.New(p,
		mailbox.WithLogger(logger),
		mailbox.WithMetrics(reg),
		mailbox.WithPollInterval(cfg.Mailbox.PollInterval),
		mailbox.WithRetryWait(cfg.Mailbox.RetryWait),
		mailbox.WithMaxLineLength(cfg.Mailbox.MaxLineLength),
		mailbox.WithLineEnding(cfg.Mailbox.LineEnding),
	)
	if err != nil {
		return err
	}
	hub.InitWithCapacity(ctx, cfg.Mailbox.Capacity)
	defer hub.Close()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		<-ctx.Done()
		return nil
	})

	if cfg.Metrics.Port > 0 {
		srv := metricsServer(cfg.Metrics, reg)
		g.Go(func() error {
			logger.Info("Starting metrics server", "port", cfg.Metrics.Port, "path", cfg.Metrics.Path)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	if cfg.Mailbox.Echo {
		g.Go(func() error {
			return echo(ctx, hub, logger, cfg.Mailbox.PollInterval)
		})
	}

	if cfg.NATS.URL != "" {
		nc, err := nats.Connect(cfg.NATS.URL, nats.Name(appName))
		if err != nil {
			return fmt.Errorf("connect nats: %w", err)
		}
		defer nc.Drain()

		fwd := bridge.NewForwarder(hub, nc, cfg.NATS.Subject,
			bridge.WithLogger(logger),
			bridge.WithInterval(cfg.Mailbox.PollInterval))
		g.Go(func() error { return fwd.Run(ctx) })

		if cfg.NATS.InboundSubject != "" {
			if _, err := bridge.SubscribeInbound(nc, cfg.NATS.InboundSubject, bridge.NewInbound(hub, logger)); err != nil {
				return err
			}
		}
	}

	if cli.Stdin {
		go forwardStdin(hub, logger)
	}

	err = g.Wait()
	logger.Info("Serial mailbox stopped", "stats", hub.Stats())
	return err
}

func metricsServer(cfg config.MetricsConfig, reg *prometheus.Registry) *http.Server {
	mux := http.NewServeMux()
	mux.Handle(cfg.Path, promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	return &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

// echo logs every line the hub receives through its own consumer queue.
func echo(ctx context.Context, hub *mailbox.Hub, logger *slog.Logger, interval time.Duration) error {
	tok := mailbox.Token("echo")
	if err := hub.Register(tok); err != nil {
		return fmt.Errorf("register echo consumer: %w", err)
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		for line := hub.Read(tok); line != ""; line = hub.Read(tok) {
			logger.Info("rx", "line", line)
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// forwardStdin writes each stdin line to the serial output. It returns at EOF.
func forwardStdin(hub *mailbox.Hub, logger *slog.Logger) {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		if err := hub.Println(scanner.Text()); err != nil {
			logger.Warn("stdin write failed", "error", err)
		}
	}
}
