package service

import (
	"context"

	"github.com/LeJamon/offerd/internal/core/tx"
	"github.com/LeJamon/offerd/internal/storage/journal"
)

// TxInfo is the journaled outcome of a transaction.
type TxInfo struct {
	Hash      tx.Hash            `json:"hash"`
	Result    string             `json:"engine_result"`
	Code      int                `json:"engine_result_code"`
	Applied   bool               `json:"applied"`
	Sequence  uint64             `json:"ledger_index,omitempty"`
	Affected  []journal.Affected `json:"affected,omitempty"`
	Submitted int64              `json:"submitted"`
	Raw       []byte             `json:"-"`
}

// Tx looks up a transaction outcome by hash.
func (s *Service) Tx(ctx context.Context, hash tx.Hash) (*TxInfo, error) {
	if s.journal == nil {
		return nil, ErrNoJournal
	}
	e, err := s.journal.Get(ctx, journal.Hash(hash))
	if err != nil {
		return nil, err
	}
	return txInfo(e), nil
}

// RecentTxs returns up to limit journaled outcomes, newest first.
func (s *Service) RecentTxs(ctx context.Context, limit int) ([]*TxInfo, error) {
	if s.journal == nil {
		return nil, ErrNoJournal
	}
	entries, err := s.journal.Recent(ctx, limit)
	if err != nil {
		return nil, err
	}
	out := make([]*TxInfo, len(entries))
	for i, e := range entries {
		out[i] = txInfo(e)
	}
	return out, nil
}

func txInfo(e *journal.Entry) *TxInfo {
	return &TxInfo{
		Hash:      tx.Hash(e.Hash),
		Result:    e.Result,
		Code:      e.Code,
		Applied:   e.Applied(),
		Sequence:  e.Sequence,
		Affected:  e.Affected,
		Submitted: e.Submitted.Unix(),
		Raw:       e.Raw,
	}
}
