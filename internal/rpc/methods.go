package rpc

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"strings"

	"github.com/LeJamon/offerd/internal/core/ledger/service"
	"github.com/LeJamon/offerd/internal/core/tx"
	"github.com/LeJamon/offerd/internal/storage/journal"
	"github.com/LeJamon/offerd/internal/types"
)

// Version is reported by server_info
var Version = "dev"

// registerAllMethods registers every RPC method against svc
func registerAllMethods(r *MethodRegistry, svc LedgerService) {
	m := &methods{svc: svc, registry: r}

	r.Register("ping", MethodHandlerFunc(m.ping))
	r.Register("server_info", MethodHandlerFunc(m.serverInfo))
	r.Register("ledger_current", MethodHandlerFunc(m.ledgerCurrent))
	r.Register("submit", MethodHandlerFunc(m.submit))
	r.Register("tx", MethodHandlerFunc(m.tx))
	r.Register("tx_history", MethodHandlerFunc(m.txHistory))
	r.Register("offer_info", MethodHandlerFunc(m.offerInfo))
	r.Register("offers", MethodHandlerFunc(m.offers))
	r.Register("account_info", MethodHandlerFunc(m.accountInfo))
	r.Register("holding_info", MethodHandlerFunc(m.holdingInfo))
	r.Register("asset_info", MethodHandlerFunc(m.assetInfo))
}

type methods struct {
	svc      LedgerService
	registry *MethodRegistry
}

// lookupError maps a service lookup failure onto an RPC error.
func lookupError(err error, notFound func(string) *RpcError) *RpcError {
	switch {
	case errors.Is(err, service.ErrEntryNotFound), errors.Is(err, journal.ErrNotFound):
		return notFound(err.Error())
	case errors.Is(err, service.ErrNoJournal):
		return RpcErrorNotEnabled("transaction journal")
	default:
		return RpcErrorInternal(err.Error())
	}
}

func (m *methods) ping(ctx *RpcContext, params json.RawMessage) (interface{}, *RpcError) {
	return map[string]interface{}{}, nil
}

func (m *methods) serverInfo(ctx *RpcContext, params json.RawMessage) (interface{}, *RpcError) {
	cfg := m.svc.EngineConfig()
	return map[string]interface{}{
		"info": map[string]interface{}{
			"build_version":        Version,
			"ledger_current_index": m.svc.Sequence(),
			"deposit_base":         Uint64(cfg.DepositBase),
			"deposit_per_byte":     Uint64(cfg.DepositPerByte),
			"faucet_enabled":       cfg.FaucetEnabled,
			"methods":              m.registry.Methods(),
		},
	}, nil
}

func (m *methods) ledgerCurrent(ctx *RpcContext, params json.RawMessage) (interface{}, *RpcError) {
	return map[string]interface{}{
		"ledger_current_index": m.svc.Sequence(),
	}, nil
}

func (m *methods) submit(ctx *RpcContext, params json.RawMessage) (interface{}, *RpcError) {
	var request struct {
		TxBlob string `json:"tx_blob"`
	}
	if err := parseParams(params, &request); err != nil {
		return nil, err
	}
	if request.TxBlob == "" {
		return nil, RpcErrorMissingField("tx_blob")
	}
	raw, err := hex.DecodeString(strings.TrimPrefix(request.TxBlob, "0x"))
	if err != nil {
		return nil, RpcErrorInvalidField("tx_blob")
	}

	res, err := m.svc.Submit(ctx.Context, raw)
	if errors.Is(err, service.ErrInvalidTransaction) {
		return nil, NewRpcError(RpcINVALID_PARAMS, "invalidTransaction", "invalidTransaction", err.Error())
	}
	if err != nil {
		return nil, RpcErrorInternal("Failed to submit transaction: " + err.Error())
	}

	out, rpcErr := toMap(res)
	if rpcErr != nil {
		return nil, rpcErr
	}
	out["tx_blob"] = strings.ToUpper(hex.EncodeToString(raw))
	out["ledger_current_index"] = m.svc.Sequence()
	return out, nil
}

func (m *methods) tx(ctx *RpcContext, params json.RawMessage) (interface{}, *RpcError) {
	var request struct {
		Transaction string `json:"transaction"`
	}
	if err := parseParams(params, &request); err != nil {
		return nil, err
	}
	if request.Transaction == "" {
		return nil, RpcErrorMissingField("transaction")
	}
	hash, err := tx.ParseHash(request.Transaction)
	if err != nil {
		return nil, NewRpcError(RpcINVALID_HASH, "invalidHash", "invalidHash", err.Error())
	}

	info, err := m.svc.Tx(ctx.Context, hash)
	if err != nil {
		return nil, lookupError(err, RpcErrorTxnNotFound)
	}
	out, rpcErr := toMap(info)
	if rpcErr != nil {
		return nil, rpcErr
	}
	out["tx_blob"] = strings.ToUpper(hex.EncodeToString(info.Raw))
	return out, nil
}

// Bounds on tx_history page size
const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 200
)

func (m *methods) txHistory(ctx *RpcContext, params json.RawMessage) (interface{}, *RpcError) {
	var request struct {
		Limit int `json:"limit"`
	}
	if err := parseParams(params, &request); err != nil {
		return nil, err
	}
	switch {
	case request.Limit < 0:
		return nil, RpcErrorInvalidField("limit")
	case request.Limit == 0:
		request.Limit = defaultHistoryLimit
	case request.Limit > maxHistoryLimit:
		request.Limit = maxHistoryLimit
	}

	list, err := m.svc.RecentTxs(ctx.Context, request.Limit)
	if err != nil {
		return nil, lookupError(err, RpcErrorTxnNotFound)
	}
	return map[string]interface{}{
		"txs":   list,
		"limit": request.Limit,
	}, nil
}

func (m *methods) offerInfo(ctx *RpcContext, params json.RawMessage) (interface{}, *RpcError) {
	var request struct {
		OfferID *Uint64 `json:"offer_id"`
	}
	if err := parseParams(params, &request); err != nil {
		return nil, err
	}
	if request.OfferID == nil {
		return nil, RpcErrorMissingField("offer_id")
	}

	info, err := m.svc.Offer(ctx.Context, uint64(*request.OfferID))
	if err != nil {
		return nil, lookupError(err, RpcErrorObjectNotFound)
	}
	out, rpcErr := toMap(info)
	if rpcErr != nil {
		return nil, rpcErr
	}
	out["ledger_current_index"] = m.svc.Sequence()
	return out, nil
}

func (m *methods) offers(ctx *RpcContext, params json.RawMessage) (interface{}, *RpcError) {
	var request struct {
		Maker *types.Address `json:"maker"`
		Asset *types.Address `json:"asset"`
	}
	if err := parseParams(params, &request); err != nil {
		return nil, err
	}

	list, err := m.svc.Offers(ctx.Context, service.OfferFilter{
		Maker:            request.Maker,
		OfferedAssetKind: request.Asset,
	})
	if err != nil {
		return nil, RpcErrorInternal(err.Error())
	}
	return map[string]interface{}{
		"offers":               list,
		"ledger_current_index": m.svc.Sequence(),
	}, nil
}

func (m *methods) accountInfo(ctx *RpcContext, params json.RawMessage) (interface{}, *RpcError) {
	var request struct {
		Account string `json:"account"`
	}
	if err := parseParams(params, &request); err != nil {
		return nil, err
	}
	id, rpcErr := requireAddress("account", request.Account)
	if rpcErr != nil {
		return nil, rpcErr
	}

	info, err := m.svc.NativeBalance(ctx.Context, id)
	if err != nil {
		return nil, lookupError(err, RpcErrorActNotFound)
	}
	return toMap(info)
}

func (m *methods) holdingInfo(ctx *RpcContext, params json.RawMessage) (interface{}, *RpcError) {
	var request struct {
		Holding string `json:"holding"`
		Owner   string `json:"owner"`
		Asset   string `json:"asset"`
	}
	if err := parseParams(params, &request); err != nil {
		return nil, err
	}

	var (
		info *service.HoldingInfo
		err  error
	)
	if request.Holding != "" {
		addr, rpcErr := requireAddress("holding", request.Holding)
		if rpcErr != nil {
			return nil, rpcErr
		}
		info, err = m.svc.Holding(ctx.Context, addr)
	} else {
		owner, rpcErr := requireAddress("owner", request.Owner)
		if rpcErr != nil {
			return nil, rpcErr
		}
		asset, rpcErr := requireAddress("asset", request.Asset)
		if rpcErr != nil {
			return nil, rpcErr
		}
		info, err = m.svc.HoldingOf(ctx.Context, owner, asset)
	}
	if err != nil {
		return nil, lookupError(err, RpcErrorObjectNotFound)
	}
	return toMap(info)
}

func (m *methods) assetInfo(ctx *RpcContext, params json.RawMessage) (interface{}, *RpcError) {
	var request struct {
		Asset string `json:"asset"`
	}
	if err := parseParams(params, &request); err != nil {
		return nil, err
	}
	addr, rpcErr := requireAddress("asset", request.Asset)
	if rpcErr != nil {
		return nil, rpcErr
	}

	info, err := m.svc.Asset(ctx.Context, addr)
	if err != nil {
		return nil, lookupError(err, RpcErrorObjectNotFound)
	}
	return toMap(info)
}

func requireAddress(field, s string) (types.Address, *RpcError) {
	if s == "" {
		return types.Address{}, RpcErrorMissingField(field)
	}
	addr, err := types.ParseAddress(s)
	if err != nil {
		return types.Address{}, RpcErrorActMalformed("Invalid field '" + field + "': " + err.Error())
	}
	return addr, nil
}
