package source

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// WalletColumn is the header of the wallet id column
const WalletColumn = "wallet_id"

// LoadWallets reads a wallet list from path
func LoadWallets(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open wallets file: %w", err)
	}
	defer f.Close()

	wallets, err := DecodeWallets(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	logrus.WithFields(logrus.Fields{"file": path, "wallets": len(wallets)}).Info("Loaded wallet list")
	return wallets, nil
}

// DecodeWallets reads a CSV wallet list. The wallet_id column is used when
// the first row names it; otherwise the first column holds the wallets and
// the first row is treated as a header only if it does not look like an
// address. A plain file of one address per line is a one-column CSV.
// Blank ids are skipped; order and duplicates are kept.
func DecodeWallets(r io.Reader) ([]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	var (
		wallets []string
		col     int
		first   = true
	)
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error reading wallet list: %w", err)
		}

		if first {
			first = false
			if idx := headerIndex(row); idx >= 0 {
				col = idx
				continue
			}
			if len(row) > 0 && !strings.HasPrefix(strings.ToLower(strings.TrimSpace(row[0])), "0x") {
				logrus.Debugf("Treating first wallet row %v as header", row)
				continue
			}
		}

		if col >= len(row) {
			continue
		}
		w := strings.TrimSpace(row[col])
		if w == "" {
			continue
		}
		wallets = append(wallets, w)
	}
	return wallets, nil
}

func headerIndex(row []string) int {
	for i, h := range row {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		if strings.EqualFold(h, WalletColumn) {
			return i
		}
	}
	return -1
}
