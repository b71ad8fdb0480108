// Package export pushes score records to an external webhook in batches.
package export

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/sirupsen/logrus"

	"github.com/yourorg/wallet-credit-score/internal/model"
)

// ExporterConfig holds configuration for the webhook exporter
type ExporterConfig struct {
	WebhookURL    string
	WebhookAPIKey string
	BatchSize     int
	Timeout       time.Duration
	RetryMax      int
	// Mode labels each batch with the run that produced it
	Mode string
}

// batchPayload is the JSON body posted for each batch
type batchPayload struct {
	Mode       string              `json:"mode,omitempty"`
	Batch      int                 `json:"batch"`
	ExportTime string              `json:"export_time"`
	Count      int                 `json:"count"`
	Records    []model.ScoreRecord `json:"records"`
}

// WebhookExporter buffers score records and posts them once a batch is full.
// Failed batches are logged and counted; they never fail the scoring run.
type WebhookExporter struct {
	config     ExporterConfig
	httpClient *retryablehttp.Client

	mu       sync.Mutex
	batch    []model.ScoreRecord
	batchSeq int
	exported int
	failed   int
	lastErr  error
}

// NewWebhookExporter creates a new exporter
func NewWebhookExporter(config ExporterConfig) (*WebhookExporter, error) {
	if config.WebhookURL == "" {
		return nil, errors.New("webhook URL not configured")
	}
	if config.BatchSize <= 0 {
		config.BatchSize = 100
	}
	if config.Timeout <= 0 {
		config.Timeout = 10 * time.Second
	}
	if config.RetryMax < 0 {
		config.RetryMax = 0
	}

	client := retryablehttp.NewClient()
	client.RetryMax = config.RetryMax
	client.RetryWaitMin = 200 * time.Millisecond
	client.RetryWaitMax = 2 * time.Second
	client.HTTPClient.Timeout = config.Timeout
	client.Logger = nil
	client.ErrorHandler = retryablehttp.PassthroughErrorHandler

	logrus.WithFields(logrus.Fields{
		"batch_size": config.BatchSize,
	}).Info("Webhook exporter initialized")

	return &WebhookExporter{
		config:     config,
		httpClient: client,
		batch:      make([]model.ScoreRecord, 0, config.BatchSize),
	}, nil
}

// Write adds a record and exports the batch once it is full
func (e *WebhookExporter) Write(r model.ScoreRecord) error {
	e.mu.Lock()
	e.batch = append(e.batch, r)
	full := len(e.batch) >= e.config.BatchSize
	e.mu.Unlock()

	if full {
		e.flush(context.Background())
	}
	return nil
}

// Close exports any remaining records. It reports an error when at least one
// batch could not be delivered.
func (e *WebhookExporter) Close(ctx context.Context) error {
	e.flush(ctx)

	e.mu.Lock()
	defer e.mu.Unlock()
	logrus.WithFields(logrus.Fields{
		"exported":       e.exported,
		"failed_batches": e.failed,
	}).Info("Webhook export finished")

	if e.failed > 0 {
		return fmt.Errorf("%d webhook batches failed, last error: %w", e.failed, e.lastErr)
	}
	return nil
}

// Exported returns the number of records delivered so far
func (e *WebhookExporter) Exported() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.exported
}

func (e *WebhookExporter) flush(ctx context.Context) {
	e.mu.Lock()
	if len(e.batch) == 0 {
		e.mu.Unlock()
		return
	}
	records := make([]model.ScoreRecord, len(e.batch))
	copy(records, e.batch)
	e.batch = e.batch[:0]
	e.batchSeq++
	seq := e.batchSeq
	e.mu.Unlock()

	err := e.post(ctx, seq, records)

	e.mu.Lock()
	defer e.mu.Unlock()
	if err != nil {
		e.failed++
		e.lastErr = err
		logrus.WithFields(logrus.Fields{
			"batch":   seq,
			"records": len(records),
		}).Errorf("Failed to export to webhook: %v", err)
		return
	}
	e.exported += len(records)
	logrus.Debugf("Exported batch %d with %d records", seq, len(records))
}

func (e *WebhookExporter) post(ctx context.Context, seq int, records []model.ScoreRecord) error {
	jsonData, err := json.Marshal(batchPayload{
		Mode:       e.config.Mode,
		Batch:      seq,
		ExportTime: time.Now().UTC().Format(time.RFC3339),
		Count:      len(records),
		Records:    records,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal records: %w", err)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, e.config.WebhookURL, bytes.NewReader(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if e.config.WebhookAPIKey != "" {
		req.Header.Set("Authorization", "Bearer "+e.config.WebhookAPIKey)
	}

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("webhook request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook returned error status: %d", resp.StatusCode)
	}
	return nil
}
