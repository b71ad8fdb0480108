package pipeline

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"

	"github.com/yourorg/wallet-credit-score/internal/aggregate"
	"github.com/yourorg/wallet-credit-score/internal/features"
	"github.com/yourorg/wallet-credit-score/internal/model"
	"github.com/yourorg/wallet-credit-score/internal/normalize"
	tracing "github.com/yourorg/wallet-credit-score/internal/otel"
	"github.com/yourorg/wallet-credit-score/internal/scoring"
)

// HistoryRunner scores wallets from a local batch of transactions
type HistoryRunner struct {
	normalizer *normalize.Normalizer
	sink       RecordSink
	metrics    *Metrics
}

// NewHistoryRunner creates a runner scaling amounts with decimals. sink may be nil.
func NewHistoryRunner(decimals normalize.DecimalTable, sink RecordSink) *HistoryRunner {
	return &HistoryRunner{
		normalizer: normalize.New(decimals),
		sink:       sink,
	}
}

// WithMetrics sets the Prometheus collectors and returns the runner
func (r *HistoryRunner) WithMetrics(m *Metrics) *HistoryRunner {
	r.metrics = m
	return r
}

// Run scores the wallets found in events. With an empty wallet list every
// wallet is scored in order of first appearance; otherwise exactly the listed
// wallets are scored in list order and wallets without events get the
// no-data sentinel. Records produced before a cancellation or a sink error
// are returned together with the error.
func (r *HistoryRunner) Run(ctx context.Context, events []model.RawEvent, wallets []string) ([]model.ScoreRecord, error) {
	ctx, span := tracing.Tracer().Start(ctx, "history_run")
	defer span.End()

	normalized, stats := r.normalizer.NormalizeAll(events)
	aggs := aggregate.ByWallet(normalized)

	logrus.WithFields(logrus.Fields{
		"events":            stats.Events,
		"wallets_seen":      len(aggs),
		"wallets_requested": len(wallets),
		"defaulted_amounts": stats.DefaultedAmounts,
		"defaulted_prices":  stats.DefaultedPrices,
	}).Info("Aggregated transaction history")
	span.SetAttributes(
		attribute.Int("events", stats.Events),
		attribute.Int("wallets", len(aggs)),
	)

	if len(wallets) == 0 {
		wallets = make([]string, len(aggs))
		for i, agg := range aggs {
			wallets[i] = agg.WalletID
		}
	}

	byWallet := make(map[string]int, len(aggs))
	for i, agg := range aggs {
		byWallet[agg.WalletID] = i
	}

	records := make([]model.ScoreRecord, 0, len(wallets))
	for _, wallet := range wallets {
		if err := ctx.Err(); err != nil {
			return records, err
		}

		var record model.ScoreRecord
		if i, ok := byWallet[wallet]; ok {
			score, err := scoring.Score(features.FromAggregate(aggs[i]))
			if err != nil {
				return records, fmt.Errorf("error scoring %s: %w", wallet, err)
			}
			record = model.NewScoreRecord(wallet, score)
		} else {
			logrus.WithField("wallet", wallet).Debug("No transactions for wallet")
			record = model.ScoreRecord{WalletID: wallet, Score: scoring.NoDataScore, Status: model.StatusNoData}
		}

		if err := emit(r.sink, record); err != nil {
			tracing.RecordError(ctx, err)
			return records, err
		}
		records = append(records, record)
		r.metrics.observeRecord(model.SourceHistory, record)
	}

	return records, nil
}

func emit(sink RecordSink, record model.ScoreRecord) error {
	if sink == nil {
		return nil
	}
	if err := sink.Write(record); err != nil {
		return fmt.Errorf("error writing score for %s: %w", record.WalletID, err)
	}
	return nil
}
