// Package client talks to an offerd node over its JSON-RPC endpoint.
package client

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/LeJamon/offerd/internal/core/ledger/service"
	"github.com/LeJamon/offerd/internal/core/tx"
	"github.com/LeJamon/offerd/internal/types"
	"github.com/cenkalti/backoff/v4"
)

// Defaults for New.
const (
	DefaultTimeout    = 30 * time.Second
	DefaultWindow     = 20
	DefaultMaxRetries = 5
)

// Error is an error status returned by the node.
type Error struct {
	Name    string `json:"error"`
	Code    int    `json:"error_code"`
	Message string `json:"error_message"`
}

func (e *Error) Error() string {
	if e.Message == "" {
		return e.Name
	}
	return fmt.Sprintf("%s: %s", e.Name, e.Message)
}

// Client is a JSON-RPC client for one node.
type Client struct {
	endpoint   string
	http       *http.Client
	window     uint64
	maxRetries uint64
	newBackOff func() backoff.BackOff
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithWindow sets how many sequences past the current one a built
// transaction stays valid for.
func WithWindow(n uint64) Option {
	return func(c *Client) { c.window = n }
}

// WithRetries sets the retry policy of SubmitAndConfirm.
func WithRetries(max uint64, newBackOff func() backoff.BackOff) Option {
	return func(c *Client) {
		c.maxRetries = max
		if newBackOff != nil {
			c.newBackOff = newBackOff
		}
	}
}

// New returns a client for the node at endpoint, e.g. http://127.0.0.1:5005.
func New(endpoint string, opts ...Option) *Client {
	c := &Client{
		endpoint:   strings.TrimRight(endpoint, "/"),
		http:       &http.Client{Timeout: DefaultTimeout},
		window:     DefaultWindow,
		maxRetries: DefaultMaxRetries,
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 100 * time.Millisecond
			b.MaxInterval = 2 * time.Second
			return b
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Call invokes method with params and decodes the result into out.
// A nil out discards the result.
func (c *Client) Call(ctx context.Context, method string, params, out interface{}) error {
	req := map[string]interface{}{"method": method}
	if params != nil {
		req["params"] = []interface{}{params}
	}
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("encode %s request: %w", method, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%s: read response: %w", method, err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s: http status %d", method, resp.StatusCode)
	}

	var envelope struct {
		Result json.RawMessage `json:"result"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return fmt.Errorf("%s: decode response: %w", method, err)
	}
	var status struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal(envelope.Result, &status); err != nil {
		return fmt.Errorf("%s: decode response: %w", method, err)
	}
	if status.Status != "success" {
		rpcErr := &Error{}
		if err := json.Unmarshal(envelope.Result, rpcErr); err != nil {
			return fmt.Errorf("%s: decode error: %w", method, err)
		}
		return rpcErr
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(envelope.Result, out); err != nil {
		return fmt.Errorf("%s: decode result: %w", method, err)
	}
	return nil
}

// Ping checks that the node answers.
func (c *Client) Ping(ctx context.Context) error {
	return c.Call(ctx, "ping", nil, nil)
}

// ServerInfo describes a node.
type ServerInfo struct {
	BuildVersion       string   `json:"build_version"`
	LedgerCurrentIndex uint64   `json:"ledger_current_index"`
	DepositBase        uint64   `json:"deposit_base,string"`
	DepositPerByte     uint64   `json:"deposit_per_byte,string"`
	FaucetEnabled      bool     `json:"faucet_enabled"`
	Methods            []string `json:"methods"`
}

// ServerInfo returns the node's build and engine settings.
func (c *Client) ServerInfo(ctx context.Context) (*ServerInfo, error) {
	var out struct {
		Info ServerInfo `json:"info"`
	}
	if err := c.Call(ctx, "server_info", nil, &out); err != nil {
		return nil, err
	}
	return &out.Info, nil
}

// LedgerCurrent returns the current ledger sequence.
func (c *Client) LedgerCurrent(ctx context.Context) (uint64, error) {
	var out struct {
		Index uint64 `json:"ledger_current_index"`
	}
	if err := c.Call(ctx, "ledger_current", nil, &out); err != nil {
		return 0, err
	}
	return out.Index, nil
}

// SubmitResult is the engine outcome of a submitted transaction.
type SubmitResult struct {
	service.SubmitResult
	LedgerCurrentIndex uint64 `json:"ledger_current_index"`
}

// Submit sends a signed transaction. A transaction the engine rejects is
// not an error; check Applied.
func (c *Client) Submit(ctx context.Context, t *tx.Transaction) (*SubmitResult, error) {
	raw, err := t.MarshalBinary()
	if err != nil {
		return nil, err
	}
	return c.SubmitBlob(ctx, raw)
}

// SubmitBlob sends an already serialized transaction.
func (c *Client) SubmitBlob(ctx context.Context, raw []byte) (*SubmitResult, error) {
	var out SubmitResult
	params := map[string]string{"tx_blob": hex.EncodeToString(raw)}
	if err := c.Call(ctx, "submit", params, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Tx looks up a journaled transaction.
func (c *Client) Tx(ctx context.Context, hash tx.Hash) (*service.TxInfo, error) {
	var out service.TxInfo
	if err := c.Call(ctx, "tx", map[string]string{"transaction": hash.String()}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// TxHistory returns up to limit journaled transactions, newest first.
func (c *Client) TxHistory(ctx context.Context, limit int) ([]*service.TxInfo, error) {
	var out struct {
		Txs []*service.TxInfo `json:"txs"`
	}
	if err := c.Call(ctx, "tx_history", map[string]int{"limit": limit}, &out); err != nil {
		return nil, err
	}
	return out.Txs, nil
}

// Offer returns the open offer with the given id.
func (c *Client) Offer(ctx context.Context, id uint64) (*service.OfferInfo, error) {
	var out service.OfferInfo
	params := map[string]string{"offer_id": strconv.FormatUint(id, 10)}
	if err := c.Call(ctx, "offer_info", params, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Offers lists open offers matching filter.
func (c *Client) Offers(ctx context.Context, filter service.OfferFilter) ([]*service.OfferInfo, error) {
	params := map[string]string{}
	if filter.Maker != nil {
		params["maker"] = filter.Maker.String()
	}
	if filter.OfferedAssetKind != nil {
		params["asset"] = filter.OfferedAssetKind.String()
	}
	var out struct {
		Offers []*service.OfferInfo `json:"offers"`
	}
	if err := c.Call(ctx, "offers", params, &out); err != nil {
		return nil, err
	}
	return out.Offers, nil
}

// Account returns the native balance of id.
func (c *Client) Account(ctx context.Context, id types.Address) (*service.AccountInfo, error) {
	var out service.AccountInfo
	if err := c.Call(ctx, "account_info", map[string]string{"account": id.String()}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Holding returns the holding stored at addr.
func (c *Client) Holding(ctx context.Context, addr types.Address) (*service.HoldingInfo, error) {
	var out service.HoldingInfo
	if err := c.Call(ctx, "holding_info", map[string]string{"holding": addr.String()}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// HoldingOf returns owner's holding of asset.
func (c *Client) HoldingOf(ctx context.Context, owner, asset types.Address) (*service.HoldingInfo, error) {
	var out service.HoldingInfo
	params := map[string]string{"owner": owner.String(), "asset": asset.String()}
	if err := c.Call(ctx, "holding_info", params, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Asset returns an asset definition.
func (c *Client) Asset(ctx context.Context, addr types.Address) (*service.AssetInfo, error) {
	var out service.AssetInfo
	if err := c.Call(ctx, "asset_info", map[string]string{"asset": addr.String()}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
