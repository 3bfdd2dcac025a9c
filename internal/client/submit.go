package client

import (
	"context"
	"errors"
	"fmt"

	"github.com/LeJamon/offerd/internal/core/ledger/service"
	"github.com/LeJamon/offerd/internal/core/tx"
	"github.com/LeJamon/offerd/internal/crypto"
	"github.com/cenkalti/backoff/v4"
	log "github.com/sirupsen/logrus"
)

// ErrExpired is returned when a transaction could not be applied before
// its last valid sequence on any attempt.
var ErrExpired = errors.New("transaction expired before it was applied")

// TxError is a transaction the engine rejected.
type TxError struct {
	Result *SubmitResult
}

func (e *TxError) Error() string {
	r := e.Result
	if r.FailedInstruction >= 0 {
		return fmt.Sprintf("%s (instruction %d): %s", r.Result, r.FailedInstruction, r.Message)
	}
	return fmt.Sprintf("%s: %s", r.Result, r.Message)
}

// Build returns a transaction over ins valid for the client's window past
// the node's current sequence, signed by signers.
func (c *Client) Build(ctx context.Context, signers []tx.Signer, ins ...tx.Instruction) (*tx.Transaction, error) {
	seq, err := c.LedgerCurrent(ctx)
	if err != nil {
		return nil, err
	}
	nonce, err := crypto.RandomNonce()
	if err != nil {
		return nil, err
	}
	t := tx.NewTransaction(seq+c.window, nonce, ins...)
	if err := t.Sign(signers...); err != nil {
		return nil, err
	}
	return t, nil
}

// SubmitAndConfirm builds, signs and submits a transaction, and retries
// until it is applied or definitively rejected.
//
// Transport failures resubmit the same transaction, after checking the
// journal in case the first attempt landed. An expired transaction is
// rebuilt with a fresh nonce and window. Engine rejections are returned
// as *TxError without retrying.
func (c *Client) SubmitAndConfirm(ctx context.Context, signers []tx.Signer, ins ...tx.Instruction) (*SubmitResult, error) {
	var (
		current *tx.Transaction
		hash    tx.Hash
		sent    bool
		result  *SubmitResult
	)

	op := func() error {
		if current != nil && sent {
			if info, err := c.Tx(ctx, hash); err == nil && info.Applied {
				result = fromTxInfo(info)
				return nil
			}
		}
		if current == nil {
			t, err := c.Build(ctx, signers, ins...)
			if err != nil {
				return classify(err)
			}
			if hash, err = t.Hash(); err != nil {
				return backoff.Permanent(err)
			}
			current, sent = t, false
		}

		res, err := c.Submit(ctx, current)
		if err != nil {
			sent = true
			return classify(err)
		}

		switch res.Result {
		case tx.TesSUCCESS.String():
			result = res
			return nil
		case tx.TefMAX_LEDGER.String():
			log.WithField("tx", hash.String()).Debug("transaction expired, rebuilding")
			current = nil
			return ErrExpired
		case tx.TefALREADY.String():
			info, err := c.Tx(ctx, hash)
			if err != nil {
				return classify(err)
			}
			if info.Applied {
				result = fromTxInfo(info)
				return nil
			}
		}
		return backoff.Permanent(&TxError{Result: res})
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(c.newBackOff(), c.maxRetries), ctx)
	if err := backoff.Retry(op, policy); err != nil {
		return nil, err
	}
	return result, nil
}

// classify marks node-reported errors as permanent; anything else is a
// transport failure worth retrying.
func classify(err error) error {
	var rpcErr *Error
	if errors.As(err, &rpcErr) {
		return backoff.Permanent(err)
	}
	return err
}

func fromTxInfo(info *service.TxInfo) *SubmitResult {
	return &SubmitResult{SubmitResult: service.SubmitResult{
		Hash:              info.Hash,
		Result:            info.Result,
		Code:              info.Code,
		Applied:           info.Applied,
		Sequence:          info.Sequence,
		FailedInstruction: -1,
		Affected:          info.Affected,
	}}
}
