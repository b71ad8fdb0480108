// Package model defines the core data structures for the wallet credit scorer.
package model

import (
	"time"
)

// Action labels of the lending-protocol transaction vocabulary.
// Matching against these is exact and case-sensitive.
const (
	ActionDeposit          = "deposit"
	ActionBorrow           = "borrow"
	ActionRepay            = "repay"
	ActionRedeemUnderlying = "redeemunderlying"
	ActionLiquidationCall  = "liquidationcall"
)

// Source identifies which data source a feature vector was derived from.
type Source string

// Supported data sources
const (
	SourceHistory  Source = "history"
	SourceSnapshot Source = "snapshot"
)

// Status describes how a score record was produced.
type Status string

const (
	// StatusOK means features were derived from data and scored
	StatusOK Status = "ok"

	// StatusNoData means the wallet had no events in the transaction set
	StatusNoData Status = "no_data"

	// StatusFetchFailed means the subgraph request failed or returned garbage
	StatusFetchFailed Status = "fetch_failed"
)

// RawEvent is one financial action by one wallet, as read from the input.
// Amount and price are kept as strings so malformed values can be defaulted
// during normalization instead of failing the load.
type RawEvent struct {
	// WalletID is the wallet address, not necessarily case-normalized
	WalletID string `json:"wallet_id"`

	// Action is one of the Action* labels, or anything else
	Action string `json:"action"`

	// Timestamp is the event time in epoch seconds
	Timestamp int64 `json:"timestamp"`

	// RawAmount is the token amount in protocol-native units
	RawAmount string `json:"raw_amount"`

	// AssetPriceUSD is the asset price at event time
	AssetPriceUSD string `json:"asset_price_usd"`

	// AssetSymbol selects the decimal precision, empty means default
	AssetSymbol string `json:"asset_symbol,omitempty"`
}

// NormalizedEvent is a RawEvent with its amount converted to USD.
type NormalizedEvent struct {
	WalletID  string    `json:"wallet_id"`
	Action    string    `json:"action"`
	Timestamp time.Time `json:"timestamp"`
	USDAmount float64   `json:"usd_amount"`
}

// WalletAggregate holds the summary statistics of one wallet's events.
type WalletAggregate struct {
	WalletID string `json:"wallet_id"`

	// Events sorted by timestamp
	Events []NormalizedEvent `json:"-"`

	TotalTx      int `json:"total_tx"`
	DurationDays int `json:"duration_days"`

	// USD sums per action label
	TotalDeposit float64 `json:"total_deposit"`
	TotalBorrow  float64 `json:"total_borrow"`
	TotalRepay   float64 `json:"total_repay"`
	TotalRedeem  float64 `json:"total_redeem"`

	LiquidationCount int `json:"liquidation_count"`
}

// Position is one market or token position from a subgraph snapshot.
type Position struct {
	WalletID string `json:"wallet_id"`
	Market   string `json:"market"`

	// Supply and Borrow are the lifetime (V2) or current total (V3) values
	Supply float64 `json:"total_collateral"`
	Borrow float64 `json:"total_borrow"`

	// BorrowBalance is the currently outstanding borrow
	BorrowBalance float64 `json:"borrow_balance"`
}

// FeatureVector is the dimensionless view of a wallet that strategies score.
// History-path and snapshot-path fields are populated according to Source.
type FeatureVector struct {
	Source Source `json:"source"`

	// History path
	RepayRatio  float64 `json:"repay_ratio,omitempty"`
	RedeemRatio float64 `json:"redeem_ratio,omitempty"`
	TxFrequency float64 `json:"tx_frequency,omitempty"`
	NetGain     float64 `json:"net_gain,omitempty"`

	// Snapshot path
	TotalSupply         float64 `json:"total_supply,omitempty"`
	TotalBorrow         float64 `json:"total_borrow,omitempty"`
	BorrowToSupplyRatio float64 `json:"borrow_to_supply_ratio,omitempty"`
	RepaymentRatio      float64 `json:"repayment_ratio,omitempty"`
	AverageUtilization  float64 `json:"average_utilization,omitempty"`

	LiquidationCount int `json:"liquidation_count"`
}

// ScoreRecord is one output row.
type ScoreRecord struct {
	WalletID string `json:"wallet_id"`
	Score    int    `json:"score"`
	Status   Status `json:"status"`
}

// NewScoreRecord creates a record with StatusOK
func NewScoreRecord(wallet string, score int) ScoreRecord {
	return ScoreRecord{WalletID: wallet, Score: score, Status: StatusOK}
}
