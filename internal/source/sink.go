package source

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"sync"

	"github.com/yourorg/wallet-credit-score/internal/model"
)

// CSVRecordSink writes wallet_id,score rows and flushes after every row so a
// crash leaves every finished wallet on disk.
type CSVRecordSink struct {
	mu     sync.Mutex
	w      *csv.Writer
	closer io.Closer
}

// NewCSVRecordSink writes the header to w
func NewCSVRecordSink(w io.Writer) (*CSVRecordSink, error) {
	s := &CSVRecordSink{w: csv.NewWriter(w)}
	if c, ok := w.(io.Closer); ok {
		s.closer = c
	}
	if err := s.writeRow([]string{WalletColumn, "score"}); err != nil {
		return nil, err
	}
	return s, nil
}

// CreateCSVRecordSink creates (or truncates) the file at path
func CreateCSVRecordSink(path string) (*CSVRecordSink, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create output file: %w", err)
	}
	s, err := NewCSVRecordSink(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	return s, nil
}

// Write appends one record
func (s *CSVRecordSink) Write(r model.ScoreRecord) error {
	return s.writeRow([]string{r.WalletID, strconv.Itoa(r.Score)})
}

// Close flushes and closes the underlying file, if any
func (s *CSVRecordSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.w.Flush()
	err := s.w.Error()
	if s.closer != nil {
		if cerr := s.closer.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

func (s *CSVRecordSink) writeRow(row []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.w.Write(row); err != nil {
		return fmt.Errorf("error writing record: %w", err)
	}
	s.w.Flush()
	if err := s.w.Error(); err != nil {
		return fmt.Errorf("error flushing record: %w", err)
	}
	return nil
}

// CSVPositionSink writes wallet_id,market,total_collateral,total_borrow rows
type CSVPositionSink struct {
	rows *CSVRecordSink
}

// NewCSVPositionSink writes the header to w
func NewCSVPositionSink(w io.Writer) (*CSVPositionSink, error) {
	s := &CSVRecordSink{w: csv.NewWriter(w)}
	if c, ok := w.(io.Closer); ok {
		s.closer = c
	}
	if err := s.writeRow([]string{WalletColumn, "market", "total_collateral", "total_borrow"}); err != nil {
		return nil, err
	}
	return &CSVPositionSink{rows: s}, nil
}

// CreateCSVPositionSink creates (or truncates) the file at path
func CreateCSVPositionSink(path string) (*CSVPositionSink, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create positions file: %w", err)
	}
	s, err := NewCSVPositionSink(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	return s, nil
}

// WritePositions appends the positions of one wallet
func (s *CSVPositionSink) WritePositions(positions []model.Position) error {
	for _, p := range positions {
		row := []string{
			p.WalletID,
			p.Market,
			strconv.FormatFloat(p.Supply, 'f', -1, 64),
			strconv.FormatFloat(p.Borrow, 'f', -1, 64),
		}
		if err := s.rows.writeRow(row); err != nil {
			return err
		}
	}
	return nil
}

// Close flushes and closes the underlying file, if any
func (s *CSVPositionSink) Close() error {
	return s.rows.Close()
}
