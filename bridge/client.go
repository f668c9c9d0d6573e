// Package bridge queries the external index of task records.
package bridge

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/btcsuite/btcd/btcec/v2"

	"todo-ledger/core/token"
	"todo-ledger/log"
)

// Fetcher lists the records an identity owns under a namespace, oldest
// first. Failures wrap token.ErrBridgeUnavailable.
type Fetcher interface {
	FetchOwned(ctx context.Context, namespace token.Namespace, identity *btcec.PublicKey) ([]token.RawRecord, error)
}

// ClientConfig configures the bridge HTTP client. BaseURL is always
// explicit; nothing is inferred from the runtime host.
type ClientConfig struct {
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     log.Logger
}

func (c *ClientConfig) defaults() error {
	c.BaseURL = strings.TrimRight(strings.TrimSpace(c.BaseURL), "/")
	if c.BaseURL == "" {
		return fmt.Errorf("bridge base url is required")
	}
	if _, err := url.Parse(c.BaseURL); err != nil {
		return fmt.Errorf("invalid bridge base url: %w", err)
	}
	if c.Timeout <= 0 {
		c.Timeout = 15 * time.Second
	}
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "bridge.Client"})
	return nil
}

// Client provides access to the bridge query endpoint.
type Client struct {
	baseURL string
	http    *http.Client
	logger  log.Logger
}

// NewClient builds a bridge client.
func NewClient(cfg ClientConfig) (*Client, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &Client{baseURL: cfg.BaseURL, http: cfg.HTTPClient, logger: cfg.Logger}, nil
}

type recordJSON struct {
	TxID          string `json:"txid"`
	Vout          uint32 `json:"vout"`
	Satoshis      int64  `json:"satoshis"`
	LockingScript string `json:"locking_script"`
}

type queryResponseJSON struct {
	Records []recordJSON `json:"records"`
}

// FetchOwned queries the records of identity tagged with namespace.
// Entries the engine could never redeem (bad script hex, non-positive
// amount, missing txid) are skipped with a warning.
func (c *Client) FetchOwned(ctx context.Context, namespace token.Namespace, identity *btcec.PublicKey) ([]token.RawRecord, error) {
	if identity == nil {
		return nil, fmt.Errorf("identity key required")
	}
	q := url.Values{}
	q.Set("namespace", hex.EncodeToString(namespace))
	q.Set("owner", hex.EncodeToString(identity.SerializeCompressed()))
	endpoint := c.baseURL + "/v1/records?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build query: %v: %w", err, token.ErrBridgeUnavailable)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("query records: %v: %w", err, token.ErrBridgeUnavailable)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("query records: status %d: %s: %w", resp.StatusCode, strings.TrimSpace(string(body)), token.ErrBridgeUnavailable)
	}

	var out queryResponseJSON
	if err := json.NewDecoder(io.LimitReader(resp.Body, 32<<20)).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode records: %v: %w", err, token.ErrBridgeUnavailable)
	}

	records := make([]token.RawRecord, 0, len(out.Records))
	for _, r := range out.Records {
		script, err := hex.DecodeString(r.LockingScript)
		if err != nil || len(script) == 0 || r.Satoshis <= 0 || r.TxID == "" {
			c.logger.Warningf("skipping unusable bridge record %s.%d", r.TxID, r.Vout)
			continue
		}
		records = append(records, token.RawRecord{
			Amount:        r.Satoshis,
			Reference:     token.Outpoint{TxID: strings.ToLower(r.TxID), Vout: r.Vout},
			LockingScript: script,
		})
	}
	c.logger.Debugf("bridge returned %d records (%d usable)", len(out.Records), len(records))
	return records, nil
}
