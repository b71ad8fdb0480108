package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourorg/wallet-credit-score/internal/config"
	"github.com/yourorg/wallet-credit-score/internal/model"
	"github.com/yourorg/wallet-credit-score/internal/report"
	"github.com/yourorg/wallet-credit-score/internal/security"
)

func TestScore_History(t *testing.T) {
	dir := t.TempDir()
	txPath := filepath.Join(dir, "tx.json")
	require.NoError(t, os.WriteFile(txPath, []byte(`[
		{"userWallet":"0xa","action":"deposit","timestamp":1629178166,"actionData":{"amount":"1000000000","assetPriceUSD":"1"}},
		{"userWallet":"0xa","action":"borrow","timestamp":1629178170,"actionData":{"amount":"500000000","assetPriceUSD":"1"}}
	]`), 0o600))
	walletsPath := filepath.Join(dir, "wallets.csv")
	require.NoError(t, os.WriteFile(walletsPath, []byte("wallet_id\n0xa\n0xb\n"), 0o600))

	cfg := config.DefaultConfig()
	cfg.TransactionsFile = txPath
	cfg.WalletsFile = walletsPath
	cfg.OutputFile = filepath.Join(dir, "scores.csv")
	cfg.MetricsFile = filepath.Join(dir, "scorer.prom")

	records, err := score(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, []model.ScoreRecord{
		{WalletID: "0xa", Score: 721, Status: model.StatusOK},
		{WalletID: "0xb", Score: 0, Status: model.StatusNoData},
	}, records)

	out, err := os.ReadFile(cfg.OutputFile)
	require.NoError(t, err)
	assert.Equal(t, "wallet_id,score\n0xa,721\n0xb,0\n", string(out))

	prom, err := os.ReadFile(cfg.MetricsFile)
	require.NoError(t, err)
	assert.Contains(t, string(prom), "wallet_score_wallets_total")
}

func TestScore_Snapshot(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Variables map[string]string `json:"variables"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.Variables["id"] == "0xdead" {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"data":{"account":null}}`))
	}))
	defer srv.Close()

	dir := t.TempDir()
	walletsPath := filepath.Join(dir, "wallets.csv")
	require.NoError(t, os.WriteFile(walletsPath, []byte("wallet_id\n0xABC\n0xDEAD\n"), 0o600))

	cfg := config.DefaultConfig()
	cfg.Mode = config.ModeSnapshot
	cfg.SubgraphURL = srv.URL
	cfg.WalletsFile = walletsPath
	cfg.OutputFile = filepath.Join(dir, "scores.csv")
	cfg.PositionsFile = filepath.Join(dir, "positions.csv")
	cfg.RateLimitRPS = 1000

	records, err := score(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, []model.ScoreRecord{
		{WalletID: "0xABC", Score: 1000, Status: model.StatusOK},
		{WalletID: "0xDEAD", Score: 0, Status: model.StatusFetchFailed},
	}, records)

	positions, err := os.ReadFile(cfg.PositionsFile)
	require.NoError(t, err)
	assert.Equal(t, "wallet_id,market,total_collateral,total_borrow\n0xABC,,0,0\n0xDEAD,,0,0\n", string(positions))
}

func TestWriteReport_Signed(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.SigningEnabled = true
	cfg.ReportFile = filepath.Join(t.TempDir(), "report.json")

	records := []model.ScoreRecord{{WalletID: "0xa", Score: 721, Status: model.StatusOK}}
	require.NoError(t, writeReport(cfg, records))

	data, err := os.ReadFile(cfg.ReportFile)
	require.NoError(t, err)

	var rep report.Report
	require.NoError(t, json.Unmarshal(data, &rep))
	require.NotNil(t, rep.Attestation)
	assert.NoError(t, security.VerifyRecords(records, rep.Attestation))
	assert.Equal(t, 1, rep.Distribution[7].Count)
}
