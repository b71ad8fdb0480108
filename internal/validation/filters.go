// Package validation provides warn-only sanity checks for scorer inputs.
// Nothing here drops or rewrites a row: invalid values still flow through
// the pipeline and are only counted and logged.
package validation

import (
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"

	"github.com/yourorg/wallet-credit-score/internal/model"
)

// ValidationOptions holds configuration for the validation process
type ValidationOptions struct {
	// RequireHexAddress flags wallet ids that are not 20-byte hex addresses
	RequireHexAddress bool

	// KnownActions is the action vocabulary; anything else is flagged
	KnownActions map[string]bool

	// ConcurrencyThreshold is the event count above which checks run in chunks
	ConcurrencyThreshold int

	// Workers used for chunked checks
	Workers int
}

// DefaultValidationOptions returns sensible defaults for validation
func DefaultValidationOptions() ValidationOptions {
	return ValidationOptions{
		RequireHexAddress: true,
		KnownActions: map[string]bool{
			model.ActionDeposit:          true,
			model.ActionBorrow:           true,
			model.ActionRepay:            true,
			model.ActionRedeemUnderlying: true,
			model.ActionLiquidationCall:  true,
		},
		ConcurrencyThreshold: 10000,
		Workers:              4,
	}
}

// EventReport counts suspicious raw events
type EventReport struct {
	Total          int `json:"total"`
	InvalidWallets int `json:"invalid_wallets"`
	UnknownActions int `json:"unknown_actions"`
	ZeroTimestamps int `json:"zero_timestamps"`
	MissingAmounts int `json:"missing_amounts"`
	MissingPrices  int `json:"missing_prices"`
}

// Clean reports whether no issue was found
func (r EventReport) Clean() bool {
	return r.InvalidWallets == 0 && r.UnknownActions == 0 && r.ZeroTimestamps == 0 &&
		r.MissingAmounts == 0 && r.MissingPrices == 0
}

func (r *EventReport) add(o EventReport) {
	r.Total += o.Total
	r.InvalidWallets += o.InvalidWallets
	r.UnknownActions += o.UnknownActions
	r.ZeroTimestamps += o.ZeroTimestamps
	r.MissingAmounts += o.MissingAmounts
	r.MissingPrices += o.MissingPrices
}

// WalletReport summarizes a wallet list
type WalletReport struct {
	Total      int      `json:"total"`
	Invalid    []string `json:"invalid,omitempty"`
	Duplicates []string `json:"duplicates,omitempty"`
}

// IsValidAddress reports whether s is a 0x-prefixed 20-byte hex address
func IsValidAddress(s string) bool {
	return len(s) == 2+2*common.AddressLength && common.IsHexAddress(s)
}

// CheckEvents inspects raw events with default options
func CheckEvents(events []model.RawEvent) EventReport {
	return CheckEventsWithOptions(events, DefaultValidationOptions())
}

// CheckEventsWithOptions inspects raw events and logs a summary. Large
// batches are split across workers.
func CheckEventsWithOptions(events []model.RawEvent, opts ValidationOptions) EventReport {
	var report EventReport
	if opts.ConcurrencyThreshold > 0 && len(events) > opts.ConcurrencyThreshold && opts.Workers > 1 {
		report = checkConcurrently(events, opts)
	} else {
		report = checkChunk(events, opts)
	}

	if !report.Clean() {
		logrus.WithFields(logrus.Fields{
			"events":          report.Total,
			"invalid_wallets": report.InvalidWallets,
			"unknown_actions": report.UnknownActions,
			"zero_timestamps": report.ZeroTimestamps,
			"missing_amounts": report.MissingAmounts,
			"missing_prices":  report.MissingPrices,
		}).Warn("Transaction input has suspicious rows")
	}
	return report
}

func checkConcurrently(events []model.RawEvent, opts ValidationOptions) EventReport {
	workerCount := opts.Workers
	chunkSize := (len(events) + workerCount - 1) / workerCount
	wg := sync.WaitGroup{}
	resultChan := make(chan EventReport, workerCount)

	for i := 0; i < workerCount; i++ {
		start := i * chunkSize
		end := (i + 1) * chunkSize
		if end > len(events) {
			end = len(events)
		}
		if start >= len(events) {
			break
		}

		wg.Add(1)
		go func(chunk []model.RawEvent) {
			defer wg.Done()
			resultChan <- checkChunk(chunk, opts)
		}(events[start:end])
	}

	go func() {
		wg.Wait()
		close(resultChan)
	}()

	var report EventReport
	for r := range resultChan {
		report.add(r)
	}
	return report
}

func checkChunk(events []model.RawEvent, opts ValidationOptions) EventReport {
	r := EventReport{Total: len(events)}
	for _, ev := range events {
		if opts.RequireHexAddress && !IsValidAddress(ev.WalletID) {
			r.InvalidWallets++
		}
		if opts.KnownActions != nil && !opts.KnownActions[ev.Action] {
			r.UnknownActions++
			logrus.WithFields(logrus.Fields{
				"wallet": ev.WalletID,
				"action": ev.Action,
			}).Debug("Unknown action")
		}
		if ev.Timestamp <= 0 {
			r.ZeroTimestamps++
		}
		if ev.RawAmount == "" {
			r.MissingAmounts++
		}
		if ev.AssetPriceUSD == "" {
			r.MissingPrices++
		}
	}
	return r
}

// CheckWallets flags malformed and repeated wallet ids. Duplicates are
// compared case-insensitively since the subgraph lower-cases addresses.
func CheckWallets(wallets []string) WalletReport {
	r := WalletReport{Total: len(wallets)}
	seen := make(map[string]bool, len(wallets))
	for _, w := range wallets {
		key := w
		if IsValidAddress(w) {
			key = common.HexToAddress(w).Hex()
		} else {
			r.Invalid = append(r.Invalid, w)
		}
		if seen[key] {
			r.Duplicates = append(r.Duplicates, w)
		}
		seen[key] = true
	}

	if len(r.Invalid) > 0 || len(r.Duplicates) > 0 {
		logrus.WithFields(logrus.Fields{
			"wallets":    r.Total,
			"invalid":    len(r.Invalid),
			"duplicates": len(r.Duplicates),
		}).Warn("Wallet list has suspicious entries")
	}
	return r
}
