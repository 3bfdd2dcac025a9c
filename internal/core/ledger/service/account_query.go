package service

import (
	"context"
	"fmt"

	"github.com/LeJamon/offerd/internal/core/ledger/entry"
	"github.com/LeJamon/offerd/internal/core/ledger/keylet"
	"github.com/LeJamon/offerd/internal/core/tx/sle"
	"github.com/LeJamon/offerd/internal/types"
)

// AccountInfo is an identity's native balance.
type AccountInfo struct {
	Address types.Address `json:"address"`
	Balance uint64        `json:"balance,string"`
}

// HoldingInfo is a holding account and its balance.
type HoldingInfo struct {
	Address types.Address `json:"address"`
	Deposit uint64        `json:"deposit,string"`
	Holding *sle.Holding  `json:"holding"`
}

// AssetInfo is an asset definition.
type AssetInfo struct {
	Address types.Address  `json:"address"`
	Deposit uint64         `json:"deposit,string"`
	Asset   *sle.AssetKind `json:"asset"`
}

// NativeBalance returns the native balance of id.
func (s *Service) NativeBalance(ctx context.Context, id types.Address) (*AccountInfo, error) {
	data, err := s.ledger.Read(ctx, keylet.Native(id))
	if err != nil {
		return nil, fmt.Errorf("account %s: %w", id, err)
	}
	n, _, err := sle.ParseNative(data)
	if err != nil {
		return nil, fmt.Errorf("parse account %s: %w", id, err)
	}
	return &AccountInfo{Address: id, Balance: n.Balance}, nil
}

// HoldingOf returns owner's holding of assetKind at its derived address.
func (s *Service) HoldingOf(ctx context.Context, owner, assetKind types.Address) (*HoldingInfo, error) {
	k, _ := keylet.Holding(owner, assetKind)
	return s.Holding(ctx, k.Key)
}

// Holding returns the holding stored at addr.
func (s *Service) Holding(ctx context.Context, addr types.Address) (*HoldingInfo, error) {
	data, err := s.ledger.Read(ctx, keylet.At(entry.TypeHolding, addr))
	if err != nil {
		return nil, fmt.Errorf("holding %s: %w", addr, err)
	}
	h, deposit, err := sle.ParseHolding(data)
	if err != nil {
		return nil, fmt.Errorf("parse holding %s: %w", addr, err)
	}
	return &HoldingInfo{Address: addr, Deposit: deposit, Holding: h}, nil
}

// Asset returns the asset definition at addr.
func (s *Service) Asset(ctx context.Context, addr types.Address) (*AssetInfo, error) {
	data, err := s.ledger.Read(ctx, keylet.AssetKind(addr))
	if err != nil {
		return nil, fmt.Errorf("asset %s: %w", addr, err)
	}
	a, deposit, err := sle.ParseAssetKind(data)
	if err != nil {
		return nil, fmt.Errorf("parse asset %s: %w", addr, err)
	}
	return &AssetInfo{Address: addr, Deposit: deposit, Asset: a}, nil
}
