package wallet

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"todo-ledger/core/token"
	"todo-ledger/log"
)

// HTTPSubmitterConfig configures the HTTP submission client.
type HTTPSubmitterConfig struct {
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     log.Logger
}

func (c *HTTPSubmitterConfig) defaults() error {
	c.BaseURL = strings.TrimRight(strings.TrimSpace(c.BaseURL), "/")
	if c.BaseURL == "" {
		return fmt.Errorf("wallet base url is required")
	}
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "wallet.HTTPSubmitter"})
	return nil
}

// HTTPSubmitter posts actions to a wallet's HTTP endpoint.
type HTTPSubmitter struct {
	baseURL string
	http    *http.Client
	logger  log.Logger
}

// NewHTTPSubmitter builds a submission client.
func NewHTTPSubmitter(cfg HTTPSubmitterConfig) (*HTTPSubmitter, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &HTTPSubmitter{baseURL: cfg.BaseURL, http: cfg.HTTPClient, logger: cfg.Logger}, nil
}

type actionOutputJSON struct {
	Satoshis      int64  `json:"satoshis"`
	LockingScript string `json:"locking_script"`
	Description   string `json:"description,omitempty"`
}

type actionInputJSON struct {
	Outpoint        string `json:"outpoint"`
	LockingScript   string `json:"locking_script"`
	Satoshis        int64  `json:"satoshis"`
	UnlockingScript string `json:"unlocking_script"`
	Description     string `json:"description,omitempty"`
}

type actionRequestJSON struct {
	Description string             `json:"description"`
	Outputs     []actionOutputJSON `json:"outputs,omitempty"`
	Inputs      []actionInputJSON  `json:"inputs,omitempty"`
	Topics      []string           `json:"topics,omitempty"`
}

type actionResponseJSON struct {
	TxID            string `json:"txid"`
	BridgeReference string `json:"bridge_reference"`
	Message         string `json:"message"`
}

// CreateAction submits args and returns the committed transaction id.
func (s *HTTPSubmitter) CreateAction(ctx context.Context, args CreateActionArgs) (*CreateActionResult, error) {
	body := actionRequestJSON{Description: args.Description, Topics: args.Topics}
	for _, o := range args.Outputs {
		body.Outputs = append(body.Outputs, actionOutputJSON{
			Satoshis:      o.Satoshis,
			LockingScript: hex.EncodeToString(o.LockingScript),
			Description:   o.Description,
		})
	}
	for _, in := range args.Inputs {
		body.Inputs = append(body.Inputs, actionInputJSON{
			Outpoint:        in.Outpoint.String(),
			LockingScript:   hex.EncodeToString(in.LockingScript),
			Satoshis:        in.Satoshis,
			UnlockingScript: hex.EncodeToString(in.UnlockingScript),
			Description:     in.Description,
		})
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, &token.SubmissionError{Message: "encode action", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/v1/actions", bytes.NewReader(payload))
	if err != nil {
		return nil, &token.SubmissionError{Message: "build request", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.http.Do(req)
	if err != nil {
		return nil, &token.SubmissionError{Message: "submit action", Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, &token.SubmissionError{Message: "read response", Err: err}
	}
	var out actionResponseJSON
	decodeErr := json.Unmarshal(raw, &out)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := strings.TrimSpace(out.Message)
		if decodeErr != nil || msg == "" {
			msg = strings.TrimSpace(string(raw))
		}
		return nil, &token.SubmissionError{Message: fmt.Sprintf("wallet status %d: %s", resp.StatusCode, msg)}
	}
	if decodeErr != nil {
		return nil, &token.SubmissionError{Message: "decode response", Err: decodeErr}
	}
	if out.TxID == "" {
		return nil, &token.SubmissionError{Message: "wallet returned no txid"}
	}

	s.logger.Debugf("action %q committed as %s", args.Description, out.TxID)
	return &CreateActionResult{TxID: out.TxID, BridgeReference: out.BridgeReference}, nil
}
