// Package features derives dimensionless ratios from wallet aggregates and
// subgraph position snapshots.
//
// Every ratio has an explicit value for a zero denominator. A wallet with no
// borrow history is treated as fully repaid rather than penalized.
package features

import (
	"github.com/yourorg/wallet-credit-score/internal/model"
)

// Zero-denominator defaults
const (
	DefaultRepayRatio          = 1.0
	DefaultRedeemRatio         = 1.0
	DefaultBorrowToSupplyRatio = 0.0
	DefaultRepaymentRatio      = 1.0
	DefaultUtilization         = 0.0
)

// FromAggregate derives the history-path feature vector.
func FromAggregate(agg model.WalletAggregate) model.FeatureVector {
	days := agg.DurationDays
	if days < 1 {
		days = 1
	}

	return model.FeatureVector{
		Source:           model.SourceHistory,
		RepayRatio:       ratio(agg.TotalRepay, agg.TotalBorrow, DefaultRepayRatio),
		RedeemRatio:      ratio(agg.TotalRedeem, agg.TotalDeposit, DefaultRedeemRatio),
		TxFrequency:      float64(agg.TotalTx) / float64(days),
		NetGain:          agg.TotalDeposit - agg.TotalBorrow,
		LiquidationCount: agg.LiquidationCount,
	}
}

// FromPositions derives the snapshot-path feature vector from all positions
// of one wallet. Liquidations are not observable from the subgraph and stay 0.
func FromPositions(positions []model.Position) model.FeatureVector {
	var supply, borrow, balance float64
	for _, p := range positions {
		supply += p.Supply
		borrow += p.Borrow
		balance += p.BorrowBalance
	}

	repayment := DefaultRepaymentRatio
	if borrow > 0 {
		repayment = 1 - balance/borrow
	}

	return model.FeatureVector{
		Source:              model.SourceSnapshot,
		TotalSupply:         supply,
		TotalBorrow:         borrow,
		BorrowToSupplyRatio: ratio(borrow, supply, DefaultBorrowToSupplyRatio),
		RepaymentRatio:      repayment,
		AverageUtilization:  ratio(borrow, borrow+supply, DefaultUtilization),
		LiquidationCount:    0,
	}
}

// ratio returns num/den, or def when den is not positive
func ratio(num, den, def float64) float64 {
	if den > 0 {
		return num / den
	}
	return def
}
