package report

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourorg/wallet-credit-score/internal/model"
)

func records(scores ...int) []model.ScoreRecord {
	out := make([]model.ScoreRecord, len(scores))
	for i, s := range scores {
		out[i] = model.ScoreRecord{WalletID: string(rune('a' + i)), Score: s, Status: model.StatusOK}
	}
	return out
}

func TestBins(t *testing.T) {
	bins := Bins()
	require.Len(t, bins, 10)
	assert.Equal(t, "0-100", bins[0].Label)
	assert.Equal(t, "900-1000", bins[9].Label)
}

func TestBinIndex(t *testing.T) {
	tests := []struct {
		score int
		want  int
	}{
		{score: 0, want: 0},
		{score: 100, want: 0},
		{score: 101, want: 1},
		{score: 200, want: 1},
		{score: 721, want: 7},
		{score: 900, want: 8},
		{score: 901, want: 9},
		{score: 1000, want: 9},
		{score: -5, want: 0},
		{score: 5000, want: 9},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, BinIndex(tt.score), "score %d", tt.score)
	}
}

func TestDistribution(t *testing.T) {
	bins := Distribution(records(0, 100, 101, 721, 1000, 1000))

	counts := make(map[string]int)
	total := 0
	for _, b := range bins {
		counts[b.Label] = b.Count
		total += b.Count
	}
	assert.Equal(t, 6, total)
	assert.Equal(t, 2, counts["0-100"])
	assert.Equal(t, 1, counts["100-200"])
	assert.Equal(t, 1, counts["700-800"])
	assert.Equal(t, 2, counts["900-1000"])
}

func TestSummarize(t *testing.T) {
	s := Summarize(records(800, 820, 840, 860, 0))

	assert.Equal(t, 5, s.Count)
	assert.InDelta(t, 664.0, s.Mean, 1e-9)
	assert.Equal(t, 0, s.Min)
	assert.Equal(t, 860, s.Max)
	assert.Equal(t, 800.0, s.Q1)
	assert.Equal(t, 820.0, s.Median)
	assert.Equal(t, 840.0, s.Q3)
	assert.Greater(t, s.StdDev, 0.0)
	assert.Equal(t, []string{"e"}, s.Outliers)
}

func TestSummarize_Small(t *testing.T) {
	assert.Equal(t, Stats{}, Summarize(nil))

	one := Summarize(records(500))
	assert.Equal(t, 1, one.Count)
	assert.Equal(t, 500.0, one.Mean)
	assert.Equal(t, 0.0, one.StdDev)
	assert.Empty(t, one.Outliers)
}

func TestBuild_WriteFile(t *testing.T) {
	recs := records(1000, 0)
	recs[1].Status = model.StatusFetchFailed

	r := Build("snapshot", recs)
	assert.Equal(t, 2, r.Wallets)
	assert.Equal(t, 1, r.StatusCounts[model.StatusOK])
	assert.Equal(t, 1, r.StatusCounts[model.StatusFetchFailed])

	path := filepath.Join(t.TempDir(), "report.json")
	require.NoError(t, r.WriteFile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var decoded Report
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "snapshot", decoded.Mode)
	assert.Len(t, decoded.Distribution, 10)
	assert.Nil(t, decoded.Attestation)
}
