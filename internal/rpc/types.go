package rpc

import (
	"context"
	"encoding/json"
	"sort"
	"strconv"
	"strings"

	"github.com/LeJamon/offerd/internal/core/ledger/service"
	"github.com/LeJamon/offerd/internal/core/tx"
	"github.com/LeJamon/offerd/internal/types"
)

// LedgerService is the part of the ledger service the RPC layer uses.
type LedgerService interface {
	Submit(ctx context.Context, raw []byte) (*service.SubmitResult, error)
	Offer(ctx context.Context, id uint64) (*service.OfferInfo, error)
	Offers(ctx context.Context, filter service.OfferFilter) ([]*service.OfferInfo, error)
	NativeBalance(ctx context.Context, id types.Address) (*service.AccountInfo, error)
	Holding(ctx context.Context, addr types.Address) (*service.HoldingInfo, error)
	HoldingOf(ctx context.Context, owner, assetKind types.Address) (*service.HoldingInfo, error)
	Asset(ctx context.Context, addr types.Address) (*service.AssetInfo, error)
	Tx(ctx context.Context, hash tx.Hash) (*service.TxInfo, error)
	RecentTxs(ctx context.Context, limit int) ([]*service.TxInfo, error)
	Sequence() uint64
	EngineConfig() tx.EngineConfig
	Events() *service.EventPublisher
}

// RpcContext contains request-specific information
type RpcContext struct {
	Context  context.Context
	ClientIP string
}

// MethodHandler is implemented by every RPC method
type MethodHandler interface {
	Handle(ctx *RpcContext, params json.RawMessage) (interface{}, *RpcError)
}

// MethodHandlerFunc adapts a function to MethodHandler
type MethodHandlerFunc func(ctx *RpcContext, params json.RawMessage) (interface{}, *RpcError)

// Handle implements MethodHandler
func (f MethodHandlerFunc) Handle(ctx *RpcContext, params json.RawMessage) (interface{}, *RpcError) {
	return f(ctx, params)
}

// MethodRegistry maps method names to handlers
type MethodRegistry struct {
	methods map[string]MethodHandler
}

func NewMethodRegistry() *MethodRegistry {
	return &MethodRegistry{methods: make(map[string]MethodHandler)}
}

// Register adds a method handler
func (r *MethodRegistry) Register(name string, handler MethodHandler) {
	r.methods[name] = handler
}

// Get returns the handler for name
func (r *MethodRegistry) Get(name string) (MethodHandler, bool) {
	h, ok := r.methods[name]
	return h, ok
}

// Methods lists the registered method names in order
func (r *MethodRegistry) Methods() []string {
	out := make([]string, 0, len(r.methods))
	for name := range r.methods {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Uint64 accepts a JSON number or a decimal string. Amounts above 2^53 are
// not safe as JSON numbers in most clients.
type Uint64 uint64

// UnmarshalJSON implements json.Unmarshaler
func (u *Uint64) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return err
	}
	*u = Uint64(v)
	return nil
}

// MarshalJSON renders the value as a decimal string
func (u Uint64) MarshalJSON() ([]byte, error) {
	return []byte(`"` + strconv.FormatUint(uint64(u), 10) + `"`), nil
}

// parseParams decodes params into v. Missing params decode as {}.
func parseParams(params json.RawMessage, v interface{}) *RpcError {
	if len(params) == 0 {
		return nil
	}
	if err := json.Unmarshal(params, v); err != nil {
		return RpcErrorInvalidParams("Invalid parameters: " + err.Error())
	}
	return nil
}

// toMap renders v as a JSON object so the response writer can add status.
func toMap(v interface{}) (map[string]interface{}, *RpcError) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, RpcErrorInternal("encode result: " + err.Error())
	}
	var m map[string]interface{}
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, RpcErrorInternal("encode result: " + err.Error())
	}
	return m, nil
}
