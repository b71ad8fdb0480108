// Package report summarizes a batch of scores: the distribution over ten
// score ranges and basic statistics computed with gonum.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/stat"

	"github.com/yourorg/wallet-credit-score/internal/model"
	"github.com/yourorg/wallet-credit-score/internal/scoring"
	"github.com/yourorg/wallet-credit-score/internal/security"
)

const (
	binWidth = 100
	binCount = (scoring.MaxScore - scoring.MinScore) / binWidth

	// Standard Tukey fence
	outlierIQRMultiplier = 1.5
)

// Bin is one score range. Ranges are (Low, High] except the first, which
// also includes Low.
type Bin struct {
	Label string `json:"label"`
	Low   int    `json:"low"`
	High  int    `json:"high"`
	Count int    `json:"count"`
}

// Stats describes the score sample
type Stats struct {
	Count    int      `json:"count"`
	Mean     float64  `json:"mean"`
	StdDev   float64  `json:"stddev"`
	Min      int      `json:"min"`
	Max      int      `json:"max"`
	Q1       float64  `json:"q1"`
	Median   float64  `json:"median"`
	Q3       float64  `json:"q3"`
	Outliers []string `json:"outliers,omitempty"`
}

// Report is the JSON document written to REPORT_FILE
type Report struct {
	Mode         string                `json:"mode"`
	GeneratedAt  time.Time             `json:"generated_at"`
	Wallets      int                   `json:"wallets"`
	StatusCounts map[model.Status]int  `json:"status_counts"`
	Distribution []Bin                 `json:"distribution"`
	Stats        Stats                 `json:"stats"`
	Attestation  *security.Attestation `json:"attestation,omitempty"`
}

// Bins returns the empty score ranges 0-100 … 900-1000
func Bins() []Bin {
	bins := make([]Bin, binCount)
	for i := range bins {
		low := scoring.MinScore + i*binWidth
		bins[i] = Bin{Label: fmt.Sprintf("%d-%d", low, low+binWidth), Low: low, High: low + binWidth}
	}
	return bins
}

// BinIndex returns the index of the range containing score
func BinIndex(score int) int {
	score = scoring.Clamp(score)
	if score <= scoring.MinScore+binWidth {
		return 0
	}
	return (score - scoring.MinScore - 1) / binWidth
}

// Distribution counts records per score range
func Distribution(records []model.ScoreRecord) []Bin {
	bins := Bins()
	for _, r := range records {
		bins[BinIndex(r.Score)].Count++
	}
	return bins
}

// Summarize computes the statistics of the record scores
func Summarize(records []model.ScoreRecord) Stats {
	if len(records) == 0 {
		return Stats{}
	}

	scores := make([]float64, len(records))
	for i, r := range records {
		scores[i] = float64(r.Score)
	}

	sorted := append([]float64(nil), scores...)
	sort.Float64s(sorted)

	s := Stats{
		Count:  len(records),
		Mean:   stat.Mean(scores, nil),
		Min:    int(sorted[0]),
		Max:    int(sorted[len(sorted)-1]),
		Q1:     stat.Quantile(0.25, stat.Empirical, sorted, nil),
		Median: stat.Quantile(0.5, stat.Empirical, sorted, nil),
		Q3:     stat.Quantile(0.75, stat.Empirical, sorted, nil),
	}
	if len(scores) > 1 {
		s.StdDev = stat.StdDev(scores, nil)
	}

	// Need at least 4 points for meaningful outlier detection
	if len(records) > 3 {
		iqr := s.Q3 - s.Q1
		lower := s.Q1 - outlierIQRMultiplier*iqr
		upper := s.Q3 + outlierIQRMultiplier*iqr
		for i, r := range records {
			if scores[i] < lower || scores[i] > upper {
				s.Outliers = append(s.Outliers, r.WalletID)
			}
		}
	}
	return s
}

// Build assembles a report for one run
func Build(mode string, records []model.ScoreRecord) *Report {
	counts := make(map[model.Status]int)
	for _, r := range records {
		counts[r.Status]++
	}
	return &Report{
		Mode:         mode,
		GeneratedAt:  time.Now().UTC(),
		Wallets:      len(records),
		StatusCounts: counts,
		Distribution: Distribution(records),
		Stats:        Summarize(records),
	}
}

// Log writes the distribution as one log line per non-empty range
func (r *Report) Log() {
	for _, b := range r.Distribution {
		if b.Count == 0 {
			continue
		}
		logrus.WithFields(logrus.Fields{"range": b.Label, "wallets": b.Count}).Info("Score distribution")
	}
	logrus.WithFields(logrus.Fields{
		"wallets":  r.Wallets,
		"mean":     r.Stats.Mean,
		"stddev":   r.Stats.StdDev,
		"median":   r.Stats.Median,
		"outliers": len(r.Stats.Outliers),
	}).Info("Score statistics")
}

// WriteFile writes the report as indented JSON
func (r *Report) WriteFile(path string) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}
