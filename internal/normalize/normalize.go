package normalize

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yourorg/wallet-credit-score/internal/model"
)

// Stats counts the values that were defaulted while normalizing a batch.
type Stats struct {
	Events           int
	DefaultedAmounts int
	DefaultedPrices  int
}

// Normalizer applies decimal scaling and price conversion to raw events.
type Normalizer struct {
	decimals DecimalTable
}

// New creates a normalizer using the given decimal table
func New(decimals DecimalTable) *Normalizer {
	return &Normalizer{decimals: decimals}
}

// Normalize converts one raw event. A malformed amount or price counts as 0;
// the event is still returned so it contributes to counts and duration.
func (n *Normalizer) Normalize(ev model.RawEvent) model.NormalizedEvent {
	out, _, _ := n.normalize(ev)
	return out
}

func (n *Normalizer) normalize(ev model.RawEvent) (model.NormalizedEvent, bool, bool) {
	amount, amountOK := ParseDecimal(ev.RawAmount)
	price, priceOK := ParseDecimal(ev.AssetPriceUSD)

	decimals := n.decimals.For(ev.AssetSymbol)
	usd := amount.Shift(-int32(decimals)).Mul(price)

	return model.NormalizedEvent{
		WalletID:  ev.WalletID,
		Action:    ev.Action,
		Timestamp: time.Unix(ev.Timestamp, 0).UTC(),
		USDAmount: usd.InexactFloat64(),
	}, amountOK, priceOK
}

// NormalizeAll converts a batch, preserving input order.
func (n *Normalizer) NormalizeAll(events []model.RawEvent) ([]model.NormalizedEvent, Stats) {
	out := make([]model.NormalizedEvent, 0, len(events))
	stats := Stats{Events: len(events)}

	for _, ev := range events {
		norm, amountOK, priceOK := n.normalize(ev)
		if !amountOK {
			stats.DefaultedAmounts++
			logrus.WithFields(logrus.Fields{
				"wallet": ev.WalletID,
				"action": ev.Action,
				"amount": ev.RawAmount,
			}).Debug("Unparseable amount, using 0")
		}
		if !priceOK {
			stats.DefaultedPrices++
			logrus.WithFields(logrus.Fields{
				"wallet": ev.WalletID,
				"price":  ev.AssetPriceUSD,
			}).Debug("Unparseable asset price, using 0")
		}
		out = append(out, norm)
	}

	return out, stats
}
