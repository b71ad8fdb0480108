// Package source loads scorer inputs from disk and writes its CSV outputs.
package source

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/yourorg/wallet-credit-score/internal/model"
	"github.com/yourorg/wallet-credit-score/internal/normalize"
)

// transaction is one record of the lending-protocol transaction dump
type transaction struct {
	UserWallet string           `json:"userWallet"`
	Action     string           `json:"action"`
	Timestamp  normalize.Number `json:"timestamp"`
	ActionData struct {
		Amount        normalize.Number `json:"amount"`
		AssetPriceUSD normalize.Number `json:"assetPriceUSD"`
		AssetSymbol   string           `json:"assetSymbol"`
	} `json:"actionData"`
}

// LoadTransactions reads a JSON array of transactions from path
func LoadTransactions(path string) ([]model.RawEvent, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open transactions file: %w", err)
	}
	defer f.Close()

	events, err := DecodeTransactions(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	logrus.WithFields(logrus.Fields{"file": path, "events": len(events)}).Info("Loaded transactions")
	return events, nil
}

// DecodeTransactions streams a JSON array of transactions. Elements are
// decoded one at a time so large dumps are not held twice in memory.
func DecodeTransactions(r io.Reader) ([]model.RawEvent, error) {
	dec := json.NewDecoder(r)

	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("error reading transactions: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '[' {
		return nil, fmt.Errorf("transactions must be a JSON array, got %v", tok)
	}

	var events []model.RawEvent
	for i := 0; dec.More(); i++ {
		var tx transaction
		if err := dec.Decode(&tx); err != nil {
			return nil, fmt.Errorf("error decoding transaction %d: %w", i, err)
		}
		events = append(events, model.RawEvent{
			WalletID:      tx.UserWallet,
			Action:        tx.Action,
			Timestamp:     parseTimestamp(tx.Timestamp),
			RawAmount:     string(tx.ActionData.Amount),
			AssetPriceUSD: string(tx.ActionData.AssetPriceUSD),
			AssetSymbol:   tx.ActionData.AssetSymbol,
		})
	}

	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("error reading end of transactions: %w", err)
	}
	return events, nil
}

// parseTimestamp accepts integer or float epoch seconds, unquoted or quoted.
// Anything else becomes 0.
func parseTimestamp(n normalize.Number) int64 {
	s := strings.TrimSpace(string(n))
	if ts, err := strconv.ParseInt(s, 10, 64); err == nil {
		return ts
	}
	if f, ok := normalize.ParseOrDefault(s); ok {
		return int64(f)
	}
	return 0
}
