// Package main is the entry point for the wallet credit scorer. It scores a
// batch of wallets either from a transaction history dump or from live
// lending-protocol subgraph positions and writes one CSV row per wallet.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/yourorg/wallet-credit-score/internal/circuitbreaker"
	"github.com/yourorg/wallet-credit-score/internal/config"
	"github.com/yourorg/wallet-credit-score/internal/export"
	"github.com/yourorg/wallet-credit-score/internal/fetch"
	"github.com/yourorg/wallet-credit-score/internal/model"
	tracing "github.com/yourorg/wallet-credit-score/internal/otel"
	"github.com/yourorg/wallet-credit-score/internal/pipeline"
	"github.com/yourorg/wallet-credit-score/internal/report"
	"github.com/yourorg/wallet-credit-score/internal/security"
	"github.com/yourorg/wallet-credit-score/internal/source"
	"github.com/yourorg/wallet-credit-score/internal/validation"
)

// exit codes
const (
	exitOK          = 0
	exitFailure     = 1
	exitInterrupted = 130
)

func main() {
	os.Exit(run())
}

func run() int {
	mode := flag.String("mode", "", "scoring mode: history or snapshot (overrides MODE)")
	configFile := flag.String("config", "", "JSON config file (overrides CONFIG_FILE)")
	flag.Parse()

	if *configFile != "" {
		os.Setenv("CONFIG_FILE", *configFile)
	}
	if *mode != "" {
		os.Setenv("MODE", *mode)
	}

	cfg, err := config.Load()
	setupLogging(cfg.LogFormat, cfg.LogLevel)
	if err != nil {
		logrus.Errorf("Invalid configuration: %v", err)
		return exitFailure
	}

	shutdown := tracing.InitTracer(cfg.OtelEndpoint)
	defer shutdown()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logrus.WithFields(logrus.Fields{
		"mode":     cfg.Mode,
		"output":   cfg.OutputFile,
		"protocol": cfg.Protocol,
		"config":   cfg.ConfigFile,
	}).Info("Starting wallet scorer")

	records, runErr := score(ctx, cfg)

	if len(records) > 0 || runErr == nil {
		if err := writeReport(cfg, records); err != nil {
			logrus.Errorf("Report failed: %v", err)
			if runErr == nil {
				runErr = err
			}
		}
	}

	switch {
	case runErr == nil:
		logrus.Infof("Scored %d wallets into %s", len(records), cfg.OutputFile)
		return exitOK
	case errors.Is(runErr, context.Canceled):
		logrus.Warnf("Interrupted after %d wallets; partial results kept in %s", len(records), cfg.OutputFile)
		return exitInterrupted
	default:
		logrus.Errorf("Scoring failed: %v", runErr)
		return exitFailure
	}
}

// score runs the configured mode, writing records as they are produced
func score(ctx context.Context, cfg config.Config) ([]model.ScoreRecord, error) {
	metrics := pipeline.NewMetrics()
	defer func() {
		if cfg.MetricsFile == "" {
			return
		}
		if err := metrics.WriteFile(cfg.MetricsFile); err != nil {
			logrus.Warnf("Could not write metrics: %v", err)
		}
	}()

	var wallets []string
	if cfg.WalletsFile != "" {
		var err error
		wallets, err = source.LoadWallets(cfg.WalletsFile)
		if err != nil {
			return nil, err
		}
		validation.CheckWallets(wallets)
	}

	out, err := source.CreateCSVRecordSink(cfg.OutputFile)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := out.Close(); err != nil {
			logrus.Errorf("Error closing %s: %v", cfg.OutputFile, err)
		}
	}()

	sinks := pipeline.MultiSink{out}
	if cfg.WebhookURL != "" {
		exporter, err := export.NewWebhookExporter(export.ExporterConfig{
			WebhookURL:    cfg.WebhookURL,
			WebhookAPIKey: cfg.WebhookAPIKey,
			BatchSize:     cfg.WebhookBatchSize,
			Timeout:       cfg.RequestTimeout,
			Mode:          cfg.Mode,
		})
		if err != nil {
			return nil, err
		}
		defer func() {
			if err := exporter.Close(context.Background()); err != nil {
				logrus.Warnf("Webhook export incomplete: %v", err)
			}
		}()
		sinks = append(sinks, exporter)
	}

	switch cfg.Mode {
	case config.ModeHistory:
		return scoreHistory(ctx, cfg, wallets, sinks, metrics)
	case config.ModeSnapshot:
		return scoreSnapshot(ctx, cfg, wallets, sinks, metrics)
	default:
		return nil, fmt.Errorf("unknown mode %q", cfg.Mode)
	}
}

func scoreHistory(ctx context.Context, cfg config.Config, wallets []string, sink pipeline.RecordSink, m *pipeline.Metrics) ([]model.ScoreRecord, error) {
	events, err := source.LoadTransactions(cfg.TransactionsFile)
	if err != nil {
		return nil, err
	}
	validation.CheckEvents(events)

	return pipeline.NewHistoryRunner(cfg.DecimalTable(), sink).
		WithMetrics(m).
		Run(ctx, events, wallets)
}

func scoreSnapshot(ctx context.Context, cfg config.Config, wallets []string, sink pipeline.RecordSink, m *pipeline.Metrics) ([]model.ScoreRecord, error) {
	protocols, err := fetch.ParseProtocols(cfg.Protocol)
	if err != nil {
		return nil, err
	}
	client, err := fetch.NewClientForProtocols(protocols, fetch.Options{
		URL:      cfg.SubgraphURL,
		APIKey:   cfg.SubgraphAPIKey,
		Timeout:  cfg.RequestTimeout,
		RetryMax: cfg.RetryMax,
	})
	if err != nil {
		return nil, err
	}

	breaker := circuitbreaker.New(circuitbreaker.Thresholds{MaxConsecutiveFailures: cfg.CircuitMaxFailures}).
		WithResetDelay(cfg.CircuitResetDelay).
		WithTripCallback(func(reason string, failures int) {
			logrus.WithField("failures", failures).Warnf("Subgraph circuit open: %s", reason)
		})

	runner := pipeline.NewSnapshotRunner(client, sink).
		WithLimiter(rate.NewLimiter(rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst)).
		WithBreaker(breaker).
		WithMetrics(m)

	if cfg.PositionsFile != "" {
		positions, err := source.CreateCSVPositionSink(cfg.PositionsFile)
		if err != nil {
			return nil, err
		}
		defer func() {
			if err := positions.Close(); err != nil {
				logrus.Errorf("Error closing %s: %v", cfg.PositionsFile, err)
			}
		}()
		runner = runner.WithPositionSink(positions)
	}

	logrus.WithFields(logrus.Fields{
		"protocols": cfg.Protocol,
		"wallets":   len(wallets),
		"rps":       cfg.RateLimitRPS,
	}).Info("Fetching subgraph positions")
	return runner.Run(ctx, wallets)
}

// writeReport logs the score distribution and writes the optional signed
// JSON report.
func writeReport(cfg config.Config, records []model.ScoreRecord) error {
	rep := report.Build(cfg.Mode, records)
	rep.Log()

	if cfg.SigningEnabled {
		signer, err := security.NewSigner(cfg.SigningKeyHex)
		if err != nil {
			return err
		}
		att, err := signer.SignRecords(records)
		if err != nil {
			return err
		}
		rep.Attestation = att
		logrus.WithFields(logrus.Fields{
			"signer":    att.Signer,
			"keccak256": att.Keccak256,
		}).Info("Signed score table")
	}

	if cfg.ReportFile == "" {
		return nil
	}
	if err := rep.WriteFile(cfg.ReportFile); err != nil {
		return err
	}
	logrus.Infof("Report written to %s", cfg.ReportFile)
	return nil
}
