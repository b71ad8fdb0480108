// Package scoring maps feature vectors to a bounded credit score.
//
// Two strategies exist, one per data source. They share the Strategy
// interface and the [MinScore, MaxScore] bounds but keep their own constants.
package scoring

import (
	"fmt"
	"math"

	"github.com/yourorg/wallet-credit-score/internal/model"
)

// Score bounds
const (
	MinScore  = 0
	MaxScore  = 1000
	BaseScore = 1000

	// NoDataScore is assigned when a wallet has no data at all
	NoDataScore = MinScore
)

// Strategy scores a feature vector. Implementations are pure functions of
// their input.
type Strategy interface {
	Name() string
	Score(f model.FeatureVector) int
}

// ForSource returns the strategy matching the data source of a feature vector
func ForSource(source model.Source) (Strategy, error) {
	switch source {
	case model.SourceHistory:
		return History{}, nil
	case model.SourceSnapshot:
		return Snapshot{}, nil
	default:
		return nil, fmt.Errorf("no scoring strategy for source %q", source)
	}
}

// Score selects the strategy from f.Source and applies it
func Score(f model.FeatureVector) (int, error) {
	s, err := ForSource(f.Source)
	if err != nil {
		return NoDataScore, err
	}
	return s.Score(f), nil
}

// Clamp bounds a score to [MinScore, MaxScore]
func Clamp(score int) int {
	if score < MinScore {
		return MinScore
	}
	if score > MaxScore {
		return MaxScore
	}
	return score
}

// clampFloat rounds half away from zero and clamps before converting, so
// extreme net gains cannot overflow the int conversion.
func clampFloat(score float64) int {
	if math.IsNaN(score) {
		return MinScore
	}
	score = math.Round(score)
	if score < MinScore {
		return MinScore
	}
	if score > MaxScore {
		return MaxScore
	}
	return int(score)
}
