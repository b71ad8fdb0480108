package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/time/rate"

	"github.com/yourorg/wallet-credit-score/internal/circuitbreaker"
	"github.com/yourorg/wallet-credit-score/internal/features"
	"github.com/yourorg/wallet-credit-score/internal/fetch"
	"github.com/yourorg/wallet-credit-score/internal/model"
	tracing "github.com/yourorg/wallet-credit-score/internal/otel"
	"github.com/yourorg/wallet-credit-score/internal/scoring"
)

// DefaultRequestsPerSecond paces subgraph requests at one every 0.5 s
const DefaultRequestsPerSecond = 2

// SnapshotRunner scores wallets from their current subgraph positions
type SnapshotRunner struct {
	client    fetch.Client
	sink      RecordSink
	positions PositionSink
	limiter   *rate.Limiter
	breaker   *circuitbreaker.CircuitBreaker
	metrics   *Metrics
}

// NewSnapshotRunner creates a runner with the default request pacing. sink may be nil.
func NewSnapshotRunner(client fetch.Client, sink RecordSink) *SnapshotRunner {
	return &SnapshotRunner{
		client:  client,
		sink:    sink,
		limiter: rate.NewLimiter(rate.Limit(DefaultRequestsPerSecond), 1),
	}
}

// WithLimiter replaces the request limiter and returns the runner
func (r *SnapshotRunner) WithLimiter(l *rate.Limiter) *SnapshotRunner {
	r.limiter = l
	return r
}

// WithBreaker sets the circuit breaker and returns the runner
func (r *SnapshotRunner) WithBreaker(cb *circuitbreaker.CircuitBreaker) *SnapshotRunner {
	r.breaker = cb
	return r
}

// WithPositionSink sets where fetched positions are written and returns the runner
func (r *SnapshotRunner) WithPositionSink(s PositionSink) *SnapshotRunner {
	r.positions = s
	return r
}

// WithMetrics sets the Prometheus collectors and returns the runner
func (r *SnapshotRunner) WithMetrics(m *Metrics) *SnapshotRunner {
	r.metrics = m
	return r
}

// Run scores every wallet in order. A wallet whose fetch fails gets the
// fetch-failed sentinel and the batch continues, so the output always has
// one record per input wallet unless ctx is cancelled or a sink fails. In
// that case the records produced so far are returned with the error.
func (r *SnapshotRunner) Run(ctx context.Context, wallets []string) ([]model.ScoreRecord, error) {
	records := make([]model.ScoreRecord, 0, len(wallets))
	failed := 0

	for _, wallet := range wallets {
		if err := ctx.Err(); err != nil {
			return records, err
		}

		record, err := r.scoreWallet(ctx, wallet)
		if err != nil {
			return records, err
		}
		if record.Status == model.StatusFetchFailed {
			failed++
		}

		if err := emit(r.sink, record); err != nil {
			return records, err
		}
		records = append(records, record)
		r.metrics.observeRecord(model.SourceSnapshot, record)
	}

	logrus.WithFields(logrus.Fields{
		"wallets": len(records),
		"failed":  failed,
	}).Info("Snapshot scoring complete")
	return records, nil
}

// scoreWallet fetches and scores one wallet. It only returns an error when
// the batch must stop.
func (r *SnapshotRunner) scoreWallet(ctx context.Context, wallet string) (model.ScoreRecord, error) {
	ctx, span := tracing.Tracer().Start(ctx, "score_wallet")
	defer span.End()
	span.SetAttributes(attribute.String("wallet", wallet))

	logger := logrus.WithField("wallet", wallet)

	positions, err := r.fetch(ctx, wallet)
	if err != nil {
		if ctx.Err() != nil {
			return model.ScoreRecord{}, ctx.Err()
		}
		tracing.RecordError(ctx, err)
		logger.WithError(err).Warn("Fetch failed, using fetch-failed sentinel")

		if err := r.writePositions([]model.Position{{WalletID: wallet}}); err != nil {
			return model.ScoreRecord{}, err
		}
		return model.ScoreRecord{WalletID: wallet, Score: scoring.NoDataScore, Status: model.StatusFetchFailed}, nil
	}

	rows := positions
	if len(rows) == 0 {
		rows = []model.Position{{WalletID: wallet}}
	}
	if err := r.writePositions(rows); err != nil {
		return model.ScoreRecord{}, err
	}

	f := features.FromPositions(positions)
	score, err := scoring.Score(f)
	if err != nil {
		return model.ScoreRecord{}, fmt.Errorf("error scoring %s: %w", wallet, err)
	}

	span.SetAttributes(
		attribute.Int("positions", len(positions)),
		attribute.Int("score", score),
	)
	logger.WithFields(logrus.Fields{
		"positions":     len(positions),
		"borrow_supply": f.BorrowToSupplyRatio,
		"repayment":     f.RepaymentRatio,
		"utilization":   f.AverageUtilization,
		"score":         score,
	}).Info("Scored wallet")

	return model.NewScoreRecord(wallet, score), nil
}

// fetch asks the breaker, waits for the limiter and fetches positions
func (r *SnapshotRunner) fetch(ctx context.Context, wallet string) ([]model.Position, error) {
	if r.breaker != nil {
		if err := r.breaker.Allow(); err != nil {
			r.metrics.setCircuitState(r.breaker.GetState())
			return nil, err
		}
	}

	if r.limiter != nil {
		if err := r.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}
	}

	start := time.Now()
	positions, err := r.client.FetchPositions(ctx, wallet)
	r.metrics.observeFetch(time.Since(start), err)

	if r.breaker != nil {
		switch {
		case err == nil:
			r.breaker.RecordSuccess()
		case ctx.Err() == nil:
			r.breaker.RecordFailure(err)
		}
		r.metrics.setCircuitState(r.breaker.GetState())
	}
	return positions, err
}

func (r *SnapshotRunner) writePositions(positions []model.Position) error {
	if r.positions == nil {
		return nil
	}
	if err := r.positions.WritePositions(positions); err != nil {
		return fmt.Errorf("error writing positions: %w", err)
	}
	return nil
}
