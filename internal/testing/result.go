package testing

import "github.com/LeJamon/offerd/internal/core/tx"

// TxResult represents the result of applying a transaction.
type TxResult struct {
	// Result is the engine result code.
	Result tx.Result

	// Code is the result token (e.g., "tesSUCCESS").
	Code string

	// Success indicates whether the transaction was committed.
	Success bool

	// Message provides additional details about the result.
	Message string

	// Hash identifies the transaction.
	Hash tx.Hash

	// FailedInstruction is the index of the failing instruction, or -1.
	FailedInstruction int

	// Affected lists the entries the transaction changed.
	Affected []tx.AffectedNode
}

func newTxResult(r tx.ApplyResult) TxResult {
	out := TxResult{
		Result:            r.Result,
		Code:              r.Result.String(),
		Success:           r.Applied && r.Result.IsSuccess(),
		Message:           r.Message,
		Hash:              r.Hash,
		FailedInstruction: r.FailedInstruction,
	}
	if r.Metadata != nil {
		out.Affected = r.Metadata.AffectedNodes
	}
	return out
}

// IsSuccess returns true if the result code indicates success.
func (r TxResult) IsSuccess() bool {
	return r.Result.IsSuccess()
}

// IsClaimed returns true for tec codes: the instructions were well formed
// but the ledger state did not allow them.
func (r TxResult) IsClaimed() bool {
	return r.Result.IsTec()
}

// IsMalformed returns true if the result code indicates the transaction is malformed.
func (r TxResult) IsMalformed() bool {
	return r.Result.IsTem()
}

// IsFailed returns true for tef codes.
func (r TxResult) IsFailed() bool {
	return r.Result.IsTef()
}
