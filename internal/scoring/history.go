package scoring

import "github.com/yourorg/wallet-credit-score/internal/model"

// History-path weights
const (
	historyLiquidationPenalty = 100.0
	historyRepayWeight        = 200.0
	historyRedeemWeight       = 100.0
	historyFrequencyWeight    = 10.0
	historyNetGainDivisor     = 1000.0
)

// History is the additive formula used for transaction-history features:
//
//	1000 - 100*liquidations - 200*(1-repay) - 100*(1-redeem) + 10*frequency + netGain/1000
type History struct{}

// Name implements Strategy
func (History) Name() string { return string(model.SourceHistory) }

// Score implements Strategy
func (History) Score(f model.FeatureVector) int {
	score := float64(BaseScore)
	score -= historyLiquidationPenalty * float64(f.LiquidationCount)
	score -= historyRepayWeight * (1 - f.RepayRatio)
	score -= historyRedeemWeight * (1 - f.RedeemRatio)
	score += historyFrequencyWeight * f.TxFrequency
	score += f.NetGain / historyNetGainDivisor
	return clampFloat(score)
}
