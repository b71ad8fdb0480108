package fetch

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/yourorg/wallet-credit-score/internal/model"
)

// Protocol identifies a lending protocol subgraph
type Protocol string

// Supported protocols
const (
	ProtocolCompoundV2 Protocol = "compound-v2"
	ProtocolCompoundV3 Protocol = "compound-v3"
)

// ParseProtocols parses a comma separated protocol list
func ParseProtocols(s string) ([]Protocol, error) {
	var out []Protocol
	seen := make(map[Protocol]bool)
	for _, part := range strings.Split(s, ",") {
		p := Protocol(strings.ToLower(strings.TrimSpace(part)))
		if p == "" || seen[p] {
			continue
		}
		switch p {
		case ProtocolCompoundV2, ProtocolCompoundV3:
		default:
			return nil, fmt.Errorf("unsupported protocol %q", p)
		}
		seen[p] = true
		out = append(out, p)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no protocol configured")
	}
	return out, nil
}

// NewClient creates a client for a single protocol
func NewClient(protocol Protocol, opts Options) (Client, error) {
	switch protocol {
	case ProtocolCompoundV2:
		return NewCompoundV2Client(opts), nil
	case ProtocolCompoundV3:
		return NewCompoundV3Client(opts), nil
	default:
		return nil, fmt.Errorf("unsupported protocol %q", protocol)
	}
}

// NewClientForProtocols returns a plain client for one protocol and a
// MultiClient when several are configured. The URL in opts only applies when
// a single protocol is used.
func NewClientForProtocols(protocols []Protocol, opts Options) (Client, error) {
	if len(protocols) == 1 {
		return NewClient(protocols[0], opts)
	}
	multi := NewMultiClient()
	for _, p := range protocols {
		perProtocol := opts
		perProtocol.URL = ""
		c, err := NewClient(p, perProtocol)
		if err != nil {
			return nil, err
		}
		multi.Register(p, c)
	}
	return multi, nil
}

// MultiClient fetches a wallet's positions from several protocol subgraphs
// and concatenates them.
type MultiClient struct {
	mu      sync.RWMutex
	order   []Protocol
	clients map[Protocol]Client
}

// NewMultiClient creates an empty MultiClient
func NewMultiClient() *MultiClient {
	return &MultiClient{clients: make(map[Protocol]Client)}
}

// Register adds or replaces the client of a protocol
func (m *MultiClient) Register(protocol Protocol, c Client) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.clients[protocol]; !ok {
		m.order = append(m.order, protocol)
	}
	m.clients[protocol] = c
	logrus.Debugf("Registered subgraph client for %s", protocol)
}

// FetchPositions implements Client. Protocols are queried concurrently and
// their positions returned in registration order. It fails only when every
// protocol fails.
func (m *MultiClient) FetchPositions(ctx context.Context, wallet string) ([]model.Position, error) {
	m.mu.RLock()
	order := append([]Protocol(nil), m.order...)
	clients := make([]Client, len(order))
	for i, p := range order {
		clients[i] = m.clients[p]
	}
	m.mu.RUnlock()

	if len(clients) == 0 {
		return nil, fmt.Errorf("no subgraph clients registered")
	}

	results := make([][]model.Position, len(clients))
	errs := make([]error, len(clients))

	var wg sync.WaitGroup
	for i, c := range clients {
		wg.Add(1)
		go func(i int, c Client) {
			defer wg.Done()
			results[i], errs[i] = c.FetchPositions(ctx, wallet)
		}(i, c)
	}
	wg.Wait()

	var positions []model.Position
	var firstErr error
	failed := 0
	for i := range clients {
		if errs[i] != nil {
			failed++
			if firstErr == nil {
				firstErr = errs[i]
			}
			logrus.Warnf("Error fetching %s positions for %s: %v", order[i], wallet, errs[i])
			continue
		}
		positions = append(positions, results[i]...)
	}

	if failed == len(clients) {
		return nil, fmt.Errorf("all protocols failed: %w", firstErr)
	}
	return positions, nil
}
