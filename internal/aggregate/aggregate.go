// Package aggregate groups normalized events by wallet and computes the
// per-wallet summary statistics that feature derivation consumes.
package aggregate

import (
	"sort"
	"time"

	"github.com/yourorg/wallet-credit-score/internal/model"
)

const day = 24 * time.Hour

// ByWallet partitions events into one aggregate per wallet id. Wallet ids are
// compared exactly. Aggregates are returned in order of first appearance.
func ByWallet(events []model.NormalizedEvent) []model.WalletAggregate {
	index := make(map[string]int)
	groups := make([][]model.NormalizedEvent, 0)
	order := make([]string, 0)

	for _, ev := range events {
		i, ok := index[ev.WalletID]
		if !ok {
			i = len(groups)
			index[ev.WalletID] = i
			groups = append(groups, nil)
			order = append(order, ev.WalletID)
		}
		groups[i] = append(groups[i], ev)
	}

	result := make([]model.WalletAggregate, 0, len(groups))
	for i, wallet := range order {
		result = append(result, Summarize(wallet, groups[i]))
	}
	return result
}

// Summarize computes the aggregate of a single wallet's events.
// Actions outside the vocabulary only count toward TotalTx and duration.
func Summarize(wallet string, events []model.NormalizedEvent) model.WalletAggregate {
	sorted := make([]model.NormalizedEvent, len(events))
	copy(sorted, events)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})

	agg := model.WalletAggregate{
		WalletID:     wallet,
		Events:       sorted,
		TotalTx:      len(sorted),
		DurationDays: DurationDays(sorted),
	}

	for _, ev := range sorted {
		switch ev.Action {
		case model.ActionDeposit:
			agg.TotalDeposit += ev.USDAmount
		case model.ActionBorrow:
			agg.TotalBorrow += ev.USDAmount
		case model.ActionRepay:
			agg.TotalRepay += ev.USDAmount
		case model.ActionRedeemUnderlying:
			agg.TotalRedeem += ev.USDAmount
		case model.ActionLiquidationCall:
			agg.LiquidationCount++
		}
	}

	return agg
}

// DurationDays returns the whole days between the first and last event plus
// one. It is never below 1, so it is safe as a denominator.
func DurationDays(events []model.NormalizedEvent) int {
	if len(events) == 0 {
		return 1
	}

	minTS, maxTS := events[0].Timestamp, events[0].Timestamp
	for _, ev := range events[1:] {
		if ev.Timestamp.Before(minTS) {
			minTS = ev.Timestamp
		}
		if ev.Timestamp.After(maxTS) {
			maxTS = ev.Timestamp
		}
	}

	return int(maxTS.Sub(minTS)/day) + 1
}
