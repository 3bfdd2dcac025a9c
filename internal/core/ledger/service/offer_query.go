package service

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/LeJamon/offerd/internal/core/ledger"
	"github.com/LeJamon/offerd/internal/core/ledger/entry"
	"github.com/LeJamon/offerd/internal/core/ledger/keylet"
	"github.com/LeJamon/offerd/internal/core/tx/sle"
	"github.com/LeJamon/offerd/internal/types"
	log "github.com/sirupsen/logrus"
)

// ErrEntryNotFound is returned when a queried entry does not exist.
var ErrEntryNotFound = ledger.ErrNotFound

// OfferInfo is an open offer together with its derived accounts.
type OfferInfo struct {
	Address  types.Address `json:"address"`
	Vault    types.Address `json:"vault"`
	Escrowed uint64        `json:"escrowed,string"`
	Deposit  uint64        `json:"deposit,string"`
	Offer    *sle.Offer    `json:"offer"`
}

// OfferFilter narrows Offers.
type OfferFilter struct {
	// Maker keeps only offers made by this identity when set
	Maker *types.Address

	// OfferedAssetKind keeps only offers of this asset when set
	OfferedAssetKind *types.Address
}

func (f OfferFilter) match(o *sle.Offer) bool {
	if f.Maker != nil && o.Maker != *f.Maker {
		return false
	}
	if f.OfferedAssetKind != nil && o.OfferedAssetKind != *f.OfferedAssetKind {
		return false
	}
	return true
}

// Offer returns the open offer with the given id.
func (s *Service) Offer(ctx context.Context, id uint64) (*OfferInfo, error) {
	k, _ := keylet.Offer(id)
	data, err := s.ledger.Read(ctx, k)
	if err != nil {
		return nil, fmt.Errorf("offer %d: %w", id, err)
	}
	return s.offerInfo(ctx, k.Key, data)
}

// Offers lists every open offer matching filter, ordered by id.
func (s *Service) Offers(ctx context.Context, filter OfferFilter) ([]*OfferInfo, error) {
	records, err := s.ledger.ScanDiscriminator(ctx, entry.TypeOffer.Discriminator())
	if err != nil {
		return nil, fmt.Errorf("scan offers: %w", err)
	}

	out := make([]*OfferInfo, 0, len(records))
	for _, r := range records {
		info, err := s.offerInfo(ctx, r.Key, r.Data)
		if err != nil {
			log.WithError(err).WithField("key", r.Key.String()).Warn("skipping unreadable offer")
			continue
		}
		if filter.match(info.Offer) {
			out = append(out, info)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Offer.ID < out[j].Offer.ID })
	return out, nil
}

func (s *Service) offerInfo(ctx context.Context, addr types.Address, data []byte) (*OfferInfo, error) {
	o, deposit, err := sle.ParseOffer(data)
	if err != nil {
		return nil, fmt.Errorf("parse offer %s: %w", addr, err)
	}
	info := &OfferInfo{
		Address: addr,
		Vault:   keylet.Vault(addr, o.OfferedAssetKind).Key,
		Deposit: deposit,
		Offer:   o,
	}

	vault, err := s.ledger.Read(ctx, keylet.Vault(addr, o.OfferedAssetKind))
	switch {
	case errors.Is(err, ledger.ErrNotFound):
		// an open offer always has a vault; report it empty rather than fail
		log.WithField("offer", addr.String()).Warn("open offer has no vault")
	case err != nil:
		return nil, fmt.Errorf("read vault of %s: %w", addr, err)
	default:
		h, _, err := sle.ParseHolding(vault)
		if err != nil {
			return nil, fmt.Errorf("parse vault of %s: %w", addr, err)
		}
		info.Escrowed = h.Amount
	}
	return info, nil
}
