package normalize

import "strings"

// DefaultDecimals is the fixed scaling applied to every asset unless the
// decimal table says otherwise (amount / 1e6).
const DefaultDecimals = 6

// DecimalTable maps asset symbols to their on-chain decimal precision.
// An empty table scales every asset by DefaultDecimals.
type DecimalTable struct {
	Default  int
	PerAsset map[string]int
}

// NewDecimalTable creates a table. Symbols are matched case-insensitively.
func NewDecimalTable(defaultDecimals int, perAsset map[string]int) DecimalTable {
	t := DecimalTable{Default: defaultDecimals, PerAsset: make(map[string]int, len(perAsset))}
	for symbol, d := range perAsset {
		t.PerAsset[strings.ToUpper(strings.TrimSpace(symbol))] = d
	}
	return t
}

// DefaultDecimalTable returns the table that reproduces the fixed 6-decimal scaling.
func DefaultDecimalTable() DecimalTable {
	return NewDecimalTable(DefaultDecimals, nil)
}

// For returns the decimals to use for an asset symbol
func (t DecimalTable) For(symbol string) int {
	if symbol != "" && t.PerAsset != nil {
		if d, ok := t.PerAsset[strings.ToUpper(strings.TrimSpace(symbol))]; ok {
			return d
		}
	}
	return t.Default
}
