package fetch

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/yourorg/wallet-credit-score/internal/model"
	"github.com/yourorg/wallet-credit-score/internal/normalize"
)

// DefaultCompoundV2URL is the hosted Compound V2 subgraph
const DefaultCompoundV2URL = "https://api.thegraph.com/subgraphs/name/graphprotocol/compound-v2"

const compoundV2Query = `query Account($id: ID!) {
  account(id: $id) {
    tokens {
      symbol
      lifetimeSupply
      lifetimeBorrow
      supplyBalanceUnderlying
      borrowBalanceUnderlying
    }
  }
}`

// CompoundV2Client reads cToken positions from the Compound V2 subgraph
type CompoundV2Client struct {
	gql *graphQLClient
}

// NewCompoundV2Client creates a new Compound V2 subgraph client
func NewCompoundV2Client(opts Options) *CompoundV2Client {
	if opts.URL == "" {
		opts.URL = DefaultCompoundV2URL
	}
	return &CompoundV2Client{gql: newGraphQLClient(opts)}
}

// FetchPositions implements Client. Lifetime supply and borrow become the
// position totals; borrowBalanceUnderlying is the outstanding borrow.
func (c *CompoundV2Client) FetchPositions(ctx context.Context, wallet string) ([]model.Position, error) {
	var data struct {
		Account *struct {
			Tokens []struct {
				Symbol                  string           `json:"symbol"`
				LifetimeSupply          normalize.Number `json:"lifetimeSupply"`
				LifetimeBorrow          normalize.Number `json:"lifetimeBorrow"`
				SupplyBalanceUnderlying normalize.Number `json:"supplyBalanceUnderlying"`
				BorrowBalanceUnderlying normalize.Number `json:"borrowBalanceUnderlying"`
			} `json:"tokens"`
		} `json:"account"`
	}

	id := NormalizeAddress(wallet)
	if err := c.gql.query(ctx, compoundV2Query, map[string]any{"id": id}, &data); err != nil {
		return nil, fmt.Errorf("compound-v2 fetch for %s: %w", id, err)
	}

	if data.Account == nil {
		logrus.Debugf("Compound V2 has no account %s", id)
		return nil, nil
	}

	positions := make([]model.Position, 0, len(data.Account.Tokens))
	for _, token := range data.Account.Tokens {
		positions = append(positions, model.Position{
			WalletID:      wallet,
			Market:        token.Symbol,
			Supply:        token.LifetimeSupply.Float64(),
			Borrow:        token.LifetimeBorrow.Float64(),
			BorrowBalance: token.BorrowBalanceUnderlying.Float64(),
		})
	}

	logrus.Debugf("Received %d Compound V2 positions for %s", len(positions), id)
	return positions, nil
}
