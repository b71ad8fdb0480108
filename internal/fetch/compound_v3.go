package fetch

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/yourorg/wallet-credit-score/internal/model"
	"github.com/yourorg/wallet-credit-score/internal/normalize"
)

// DefaultCompoundV3URL is the hosted Compound V3 (Ethereum) subgraph
const DefaultCompoundV3URL = "https://api.thegraph.com/subgraphs/name/compound-finance/compound-v3-ethereum"

const compoundV3Query = `query Account($id: ID!) {
  account(id: $id) {
    id
    accountMarkets {
      market {
        id
      }
      totalCollateralValue
      totalBorrowValue
    }
  }
}`

// CompoundV3Client reads per-market positions from the Compound V3 subgraph
type CompoundV3Client struct {
	gql *graphQLClient
}

// NewCompoundV3Client creates a new Compound V3 subgraph client
func NewCompoundV3Client(opts Options) *CompoundV3Client {
	if opts.URL == "" {
		opts.URL = DefaultCompoundV3URL
	}
	return &CompoundV3Client{gql: newGraphQLClient(opts)}
}

// FetchPositions implements Client. V3 only exposes current values, so the
// borrow value is also the outstanding borrow balance.
func (c *CompoundV3Client) FetchPositions(ctx context.Context, wallet string) ([]model.Position, error) {
	var data struct {
		Account *struct {
			ID             string `json:"id"`
			AccountMarkets []struct {
				Market struct {
					ID string `json:"id"`
				} `json:"market"`
				TotalCollateralValue normalize.Number `json:"totalCollateralValue"`
				TotalBorrowValue     normalize.Number `json:"totalBorrowValue"`
			} `json:"accountMarkets"`
		} `json:"account"`
	}

	id := NormalizeAddress(wallet)
	if err := c.gql.query(ctx, compoundV3Query, map[string]any{"id": id}, &data); err != nil {
		return nil, fmt.Errorf("compound-v3 fetch for %s: %w", id, err)
	}

	if data.Account == nil {
		logrus.Debugf("Compound V3 has no account %s", id)
		return nil, nil
	}

	positions := make([]model.Position, 0, len(data.Account.AccountMarkets))
	for _, m := range data.Account.AccountMarkets {
		borrow := m.TotalBorrowValue.Float64()
		positions = append(positions, model.Position{
			WalletID:      wallet,
			Market:        m.Market.ID,
			Supply:        m.TotalCollateralValue.Float64(),
			Borrow:        borrow,
			BorrowBalance: borrow,
		})
	}

	logrus.Debugf("Received %d Compound V3 positions for %s", len(positions), id)
	return positions, nil
}
