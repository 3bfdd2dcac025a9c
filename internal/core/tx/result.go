package tx

import "fmt"

// Result represents a transaction result code
type Result int

// Transaction result codes, organised by category:
//   - tes: success, every change was committed
//   - tec: a precondition against ledger state failed
//   - tef: the transaction could not be applied at this ledger
//   - tem: the transaction is malformed and can never succeed
//
// Only tesSUCCESS commits anything. Every other code leaves the ledger
// exactly as it was.
const (
	TesSUCCESS Result = 0

	TecNO_PERMISSION      Result = 139
	TecNO_ENTRY           Result = 140
	TecDUPLICATE          Result = 149
	TecINSUFFICIENT_FUNDS Result = 159
	TecOBJECT_NOT_FOUND   Result = 160
	TecHAS_OBLIGATIONS    Result = 151
	TecTERMS_MISMATCH     Result = 174
	TecOVERFLOW           Result = 175
	TecACCOUNT_MISMATCH   Result = 176

	TefALREADY    Result = -198
	TefBAD_AUTH   Result = -196
	TefINTERNAL   Result = -192
	TefMAX_LEDGER Result = -187

	TemMALFORMED     Result = -299
	TemBAD_AMOUNT    Result = -298
	TemBAD_SIGNATURE Result = -282
	TemDISABLED      Result = -273
	TemUNKNOWN       Result = -264
	TemSAME_ASSET    Result = -251
)

type resultInfo struct {
	token   string
	kind    string
	message string
}

var results = map[Result]resultInfo{
	TesSUCCESS: {"tesSUCCESS", "", "The transaction was applied."},

	TecNO_PERMISSION:      {"tecNO_PERMISSION", "Unauthorized", "Only the offer's maker may do this."},
	TecNO_ENTRY:           {"tecNO_ENTRY", "NoEntry", "A required account does not exist."},
	TecDUPLICATE:          {"tecDUPLICATE", "DuplicateOffer", "An open offer already uses this id."},
	TecINSUFFICIENT_FUNDS: {"tecINSUFFICIENT_FUNDS", "InsufficientBalance", "Insufficient balance to complete the transfer."},
	TecOBJECT_NOT_FOUND:   {"tecOBJECT_NOT_FOUND", "OfferNotFound", "The offer does not exist."},
	TecHAS_OBLIGATIONS:    {"tecHAS_OBLIGATIONS", "NotEmpty", "The account still holds a balance."},
	TecTERMS_MISMATCH:     {"tecTERMS_MISMATCH", "PaymentTermsMismatch", "The offer's payment terms require the other settlement leg."},
	TecOVERFLOW:           {"tecOVERFLOW", "AmountOverflow", "The resulting amount exceeds the representable range."},
	TecACCOUNT_MISMATCH:   {"tecACCOUNT_MISMATCH", "AccountMismatch", "A supplied account does not match the ledger record."},

	TefALREADY:    {"tefALREADY", "AlreadyApplied", "The exact transaction was already applied."},
	TefBAD_AUTH:   {"tefBAD_AUTH", "MissingSignature", "A required signer did not sign the transaction."},
	TefINTERNAL:   {"tefINTERNAL", "Internal", "Internal error."},
	TefMAX_LEDGER: {"tefMAX_LEDGER", "Expired", "The transaction's last valid sequence has passed."},

	TemMALFORMED:     {"temMALFORMED", "Malformed", "Malformed transaction."},
	TemBAD_AMOUNT:    {"temBAD_AMOUNT", "InvalidAmount", "Amounts must be positive."},
	TemBAD_SIGNATURE: {"temBAD_SIGNATURE", "BadSignature", "A signature does not verify."},
	TemDISABLED:      {"temDISABLED", "FaucetDisabled", "The faucet is disabled on this ledger."},
	TemUNKNOWN:       {"temUNKNOWN", "UnknownInstruction", "Unknown instruction type."},
	TemSAME_ASSET:    {"temSAME_ASSET", "SameAssetKind", "Payment asset must differ from the offered asset."},
}

// String returns the string representation of the result code
func (r Result) String() string {
	if info, ok := results[r]; ok {
		return info.token
	}
	return fmt.Sprintf("Unknown(%d)", r)
}

// Kind returns the protocol error name of a failed result, such as
// "OfferNotFound". It is empty for tesSUCCESS.
func (r Result) Kind() string {
	if info, ok := results[r]; ok {
		return info.kind
	}
	return "Unknown"
}

// Message returns a human-readable message for the result
func (r Result) Message() string {
	if info, ok := results[r]; ok {
		return info.message
	}
	return "Unknown result code."
}

// ResultFromString resolves a result token such as "tecDUPLICATE".
func ResultFromString(s string) (Result, bool) {
	for r, info := range results {
		if info.token == s {
			return r, true
		}
	}
	return 0, false
}

// IsSuccess returns true if the result indicates success
func (r Result) IsSuccess() bool {
	return r == TesSUCCESS
}

// IsTec returns true if this is a tec (state precondition) code
func (r Result) IsTec() bool {
	return r >= 100 && r < 200
}

// IsTef returns true if this is a tef (failure) code
func (r Result) IsTef() bool {
	return r >= -199 && r <= -100
}

// IsTem returns true if this is a tem (malformed) code
func (r Result) IsTem() bool {
	return r >= -299 && r <= -200
}
