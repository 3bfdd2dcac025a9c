package tx

import (
	"github.com/LeJamon/offerd/internal/core/ledger/keylet"
	"github.com/LeJamon/offerd/internal/core/tx/sle"
	"github.com/LeJamon/offerd/internal/types"
)

// ApplyContext provides all the state and helpers needed to apply an
// instruction. It is passed to Instruction.Apply.
type ApplyContext struct {
	// View provides read/write access to ledger state (the ApplyStateTable)
	View sle.LedgerView

	// Config holds engine configuration
	Config EngineConfig

	// TxHash is the hash of the current transaction
	TxHash Hash

	// Sequence is the ledger sequence the transaction is applied against
	Sequence uint64

	signers map[types.Address]bool
}

// NewApplyContext returns a context whose signer set is signers.
func NewApplyContext(view sle.LedgerView, config EngineConfig, signers []types.Address) *ApplyContext {
	set := make(map[types.Address]bool, len(signers))
	for _, s := range signers {
		set[s] = true
	}
	return &ApplyContext{View: view, Config: config, signers: set}
}

// IsSigner reports whether addr signed the transaction.
func (ctx *ApplyContext) IsSigner(addr types.Address) bool {
	return ctx.signers[addr]
}

// Deposit is the storage allowance owed for an entry of size bytes.
func (ctx *ApplyContext) Deposit(size int) uint64 {
	return ctx.Config.DepositBase + ctx.Config.DepositPerByte*uint64(size)
}

// Authority is who may move value out of an account: either an identity
// that signed the transaction, or a program-derived address proven by
// re-deriving it from its seeds.
type Authority struct {
	Address types.Address
	program types.Address
	seeds   [][]byte
}

// SignerAuthority is authority held by a transaction signer.
func SignerAuthority(addr types.Address) Authority {
	return Authority{Address: addr}
}

// ProgramAuthority is authority held by the program over addr. seeds must
// include the bump.
func ProgramAuthority(addr, program types.Address, seeds ...[]byte) Authority {
	return Authority{Address: addr, program: program, seeds: seeds}
}

// Authorize checks auth. A missing signature yields TefBAD_AUTH; seeds
// that do not derive the claimed address yield TecNO_PERMISSION.
func (ctx *ApplyContext) Authorize(auth Authority) Result {
	if auth.seeds == nil {
		if !ctx.IsSigner(auth.Address) {
			return TefBAD_AUTH
		}
		return TesSUCCESS
	}
	derived, err := keylet.CreateProgramAddress(auth.program, auth.seeds...)
	if err != nil || derived != auth.Address {
		return TecNO_PERMISSION
	}
	return TesSUCCESS
}
