package tx

import (
	"fmt"
	"sort"
	"sync"
)

// Type identifies an instruction. It is the first byte of its encoding.
type Type uint8

// Instruction types
const (
	TypeCreateAsset         Type = 0
	TypeCreateHolding       Type = 1
	TypeMintTo              Type = 2
	TypeFundNative          Type = 3
	TypeMakeOffer           Type = 10
	TypeTakeOffer           Type = 11
	TypeTakeOfferWithNative Type = 12
	TypeRefundOffer         Type = 13
)

var typeNames = map[Type]string{
	TypeCreateAsset:         "CreateAsset",
	TypeCreateHolding:       "CreateHolding",
	TypeMintTo:              "MintTo",
	TypeFundNative:          "FundNative",
	TypeMakeOffer:           "MakeOffer",
	TypeTakeOffer:           "TakeOffer",
	TypeTakeOfferWithNative: "TakeOfferWithNative",
	TypeRefundOffer:         "RefundOffer",
}

// String returns the instruction name
func (t Type) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("Unknown(%d)", uint8(t))
}

// Instruction is one step of a transaction.
type Instruction interface {
	// TxType returns the instruction type
	TxType() Type

	// Encode returns the accounts and arguments, without the type byte
	Encode() []byte

	// Validate performs the checks that need no ledger state
	Validate() Result

	// Apply runs the instruction against the transaction's state table
	Apply(ctx *ApplyContext) Result
}

// Decoder parses an instruction body.
type Decoder func(body []byte) (Instruction, error)

var (
	registryMu sync.RWMutex
	registry   = make(map[Type]Decoder)
)

// Register installs the decoder for an instruction type. Instruction
// packages call it from init(); registering a type twice panics.
func Register(t Type, dec Decoder) {
	registryMu.Lock()
	defer registryMu.Unlock()

	if _, exists := registry[t]; exists {
		panic(fmt.Sprintf("tx: decoder already registered for %s", t))
	}
	registry[t] = dec
}

// Registered returns every registered instruction type in ascending order.
func Registered() []Type {
	registryMu.RLock()
	defer registryMu.RUnlock()

	out := make([]Type, 0, len(registry))
	for t := range registry {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// EncodeInstruction returns the type byte followed by the body.
func EncodeInstruction(in Instruction) []byte {
	body := in.Encode()
	out := make([]byte, 0, 1+len(body))
	out = append(out, byte(in.TxType()))
	return append(out, body...)
}

// DecodeInstruction parses an encoded instruction. An unregistered type
// yields ErrUnknownInstruction.
func DecodeInstruction(data []byte) (Instruction, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty instruction", ErrMalformed)
	}
	t := Type(data[0])

	registryMu.RLock()
	dec, ok := registry[t]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownInstruction, t)
	}

	in, err := dec(data[1:])
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", t, err)
	}
	return in, nil
}
