package validation

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/yourorg/wallet-credit-score/internal/model"
)

const (
	walletA = "0x00000000001594c61dd8a6804da9ab58ed2483ce"
	walletB = "0x000000000051d07a4fb3bd10121a343d85818da6"
)

func TestIsValidAddress(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  bool
	}{
		{name: "lower case", input: walletA, want: true},
		{name: "mixed case", input: "0x00000000001594C61dd8a6804da9AB58ed2483ce", want: true},
		{name: "missing prefix", input: "00000000001594c61dd8a6804da9ab58ed2483ce", want: false},
		{name: "too short", input: "0x1234", want: false},
		{name: "not hex", input: "0xzz000000001594c61dd8a6804da9ab58ed2483ce", want: false},
		{name: "empty", input: "", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsValidAddress(tt.input))
		})
	}
}

func TestCheckEvents(t *testing.T) {
	events := []model.RawEvent{
		{WalletID: walletA, Action: model.ActionDeposit, Timestamp: 1629178166, RawAmount: "1", AssetPriceUSD: "1"},
		{WalletID: "bogus", Action: model.ActionBorrow, Timestamp: 1629178166, RawAmount: "1", AssetPriceUSD: "1"},
		{WalletID: walletB, Action: "flashloan", Timestamp: 0, RawAmount: "", AssetPriceUSD: ""},
		{WalletID: walletB, Action: "Deposit", Timestamp: 5, RawAmount: "1", AssetPriceUSD: "1"},
	}

	r := CheckEvents(events)
	assert.Equal(t, EventReport{
		Total:          4,
		InvalidWallets: 1,
		UnknownActions: 2,
		ZeroTimestamps: 1,
		MissingAmounts: 1,
		MissingPrices:  1,
	}, r)
	assert.False(t, r.Clean())

	assert.True(t, CheckEvents(events[:1]).Clean())
	assert.True(t, CheckEvents(nil).Clean())
}

func TestCheckEvents_Concurrent(t *testing.T) {
	events := make([]model.RawEvent, 0, 1000)
	for i := 0; i < 1000; i++ {
		action := model.ActionRepay
		if i%10 == 0 {
			action = "unknown"
		}
		events = append(events, model.RawEvent{
			WalletID:      fmt.Sprintf("0x%040x", i),
			Action:        action,
			Timestamp:     int64(i),
			RawAmount:     "1",
			AssetPriceUSD: "1",
		})
	}

	opts := DefaultValidationOptions()
	opts.ConcurrencyThreshold = 100

	concurrent := CheckEventsWithOptions(events, opts)
	opts.ConcurrencyThreshold = 0
	sequential := CheckEventsWithOptions(events, opts)

	assert.Equal(t, sequential, concurrent)
	assert.Equal(t, 1000, concurrent.Total)
	assert.Equal(t, 100, concurrent.UnknownActions)
	assert.Equal(t, 1, concurrent.ZeroTimestamps)
	assert.Equal(t, 0, concurrent.InvalidWallets)
}

func TestCheckWallets(t *testing.T) {
	r := CheckWallets([]string{
		walletA,
		walletB,
		"0x00000000001594C61dd8a6804da9AB58ed2483ce",
		"nope",
		"nope",
	})

	assert.Equal(t, 5, r.Total)
	assert.Equal(t, []string{"nope", "nope"}, r.Invalid)
	assert.Equal(t, []string{"0x00000000001594C61dd8a6804da9AB58ed2483ce", "nope"}, r.Duplicates)

	clean := CheckWallets([]string{walletA, walletB})
	assert.Empty(t, clean.Invalid)
	assert.Empty(t, clean.Duplicates)
}
