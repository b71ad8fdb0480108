package scoring

import "github.com/yourorg/wallet-credit-score/internal/model"

// Snapshot-path thresholds and penalties
const (
	maxBorrowToSupply       = 1.0
	leveragePenalty         = 200
	minRepaymentRatio       = 0.8
	repaymentPenalty        = 150
	maxUtilization          = 0.9
	utilizationPenalty      = 100
	snapshotLiquidationCost = 100
)

// Snapshot is the threshold-penalty formula used for subgraph positions.
type Snapshot struct{}

// Name implements Strategy
func (Snapshot) Name() string { return string(model.SourceSnapshot) }

// Score implements Strategy
func (Snapshot) Score(f model.FeatureVector) int {
	penalty := 0
	if f.BorrowToSupplyRatio > maxBorrowToSupply {
		penalty += leveragePenalty
	}
	if f.RepaymentRatio < minRepaymentRatio {
		penalty += repaymentPenalty
	}
	if f.AverageUtilization > maxUtilization {
		penalty += utilizationPenalty
	}
	if f.LiquidationCount > 0 {
		penalty += f.LiquidationCount * snapshotLiquidationCost
	}
	return Clamp(BaseScore - penalty)
}
