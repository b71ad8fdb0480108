// Package pipeline drives a batch of wallets through normalization,
// aggregation, feature derivation and scoring, handing each record to the
// output sinks as soon as it is computed.
package pipeline

import "github.com/yourorg/wallet-credit-score/internal/model"

// RecordSink receives each score record as soon as it is computed
type RecordSink interface {
	Write(model.ScoreRecord) error
}

// PositionSink receives the positions of each snapshot wallet
type PositionSink interface {
	WritePositions([]model.Position) error
}

// MultiSink fans a record out to several sinks, stopping at the first error
type MultiSink []RecordSink

// Write implements RecordSink
func (m MultiSink) Write(r model.ScoreRecord) error {
	for _, s := range m {
		if err := s.Write(r); err != nil {
			return err
		}
	}
	return nil
}
