// Package fetch provides subgraph clients that retrieve per-wallet lending
// positions from Compound V2 and V3 GraphQL endpoints.
package fetch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/yourorg/wallet-credit-score/internal/model"
)

var (
	// ErrTransport wraps network failures and non-200 responses
	ErrTransport = errors.New("subgraph transport failure")

	// ErrMalformed wraps undecodable payloads and GraphQL errors
	ErrMalformed = errors.New("malformed subgraph response")
)

// Client defines the interface that all subgraph clients implement
type Client interface {
	// FetchPositions returns the lending positions of a wallet. A wallet the
	// subgraph does not know returns no positions and no error.
	FetchPositions(ctx context.Context, wallet string) ([]model.Position, error)
}

// Options configures the HTTP side of a subgraph client
type Options struct {
	URL      string
	APIKey   string
	Timeout  time.Duration
	RetryMax int
}

// newRetryClient creates a new HTTP client with retry capabilities.
// RetryMax 0 performs exactly one attempt per request.
func newRetryClient(opts Options) *retryablehttp.Client {
	c := retryablehttp.NewClient()
	c.RetryMax = opts.RetryMax
	c.RetryWaitMin = 500 * time.Millisecond
	c.RetryWaitMax = 3 * time.Second
	c.Logger = nil
	if opts.Timeout > 0 {
		c.HTTPClient.Timeout = opts.Timeout
	}
	// Return the last response instead of a generic "giving up" error so the
	// status code is reported.
	c.ErrorHandler = retryablehttp.PassthroughErrorHandler
	return c
}

// graphQLClient posts queries to a single subgraph endpoint
type graphQLClient struct {
	url        string
	apiKey     string
	httpClient *retryablehttp.Client
}

func newGraphQLClient(opts Options) *graphQLClient {
	return &graphQLClient{
		url:        opts.URL,
		apiKey:     opts.APIKey,
		httpClient: newRetryClient(opts),
	}
}

type graphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type graphQLError struct {
	Message string `json:"message"`
}

type graphQLResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []graphQLError  `json:"errors"`
}

// query executes a GraphQL query and decodes the "data" member into out
func (c *graphQLClient) query(ctx context.Context, query string, vars map[string]any, out any) error {
	body, err := json.Marshal(graphQLRequest{Query: query, Variables: vars})
	if err != nil {
		return fmt.Errorf("error encoding query: %w", err)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: status %d, body: %s", ErrTransport, resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var gr graphQLResponse
	if err := json.NewDecoder(resp.Body).Decode(&gr); err != nil {
		return fmt.Errorf("%w: error decoding response: %v", ErrMalformed, err)
	}
	if len(gr.Errors) > 0 {
		msgs := make([]string, 0, len(gr.Errors))
		for _, e := range gr.Errors {
			msgs = append(msgs, e.Message)
		}
		return fmt.Errorf("%w: %s", ErrMalformed, strings.Join(msgs, "; "))
	}
	if len(gr.Data) == 0 || string(gr.Data) == "null" {
		return fmt.Errorf("%w: missing data", ErrMalformed)
	}
	if err := json.Unmarshal(gr.Data, out); err != nil {
		return fmt.Errorf("%w: error decoding data: %v", ErrMalformed, err)
	}
	return nil
}

// NormalizeAddress lower-cases a wallet address for subgraph lookups, which
// key accounts by the lower-case hex id.
func NormalizeAddress(wallet string) string {
	return strings.ToLower(strings.TrimSpace(wallet))
}
