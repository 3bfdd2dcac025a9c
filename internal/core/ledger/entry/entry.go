package entry

import (
	"fmt"

	common "github.com/LeJamon/offerd/internal/crypto/common"
)

// Type represents a ledger entry type
type Type uint16

// All known ledger entry types
const (
	TypeUnknown   Type = 0x0000
	TypeNative    Type = 0x006e // Native currency balance of an identity
	TypeAssetKind Type = 0x0061 // Fungible asset definition (mint)
	TypeHolding   Type = 0x0068 // Balance of one asset kind held by one owner
	TypeOffer     Type = 0x006f // Escrow offer record
)

// DiscriminatorSize is the length of the type tag at the start of every
// stored entry.
const DiscriminatorSize = 8

// Discriminator is the leading type tag of a stored entry. Bulk reads
// filter the account space by matching it as a prefix.
type Discriminator [DiscriminatorSize]byte

var (
	names = map[Type]string{
		TypeNative:    "NativeAccount",
		TypeAssetKind: "AssetKind",
		TypeHolding:   "Holding",
		TypeOffer:     "Offer",
	}

	discriminators = make(map[Type]Discriminator, len(names))
	byDisc         = make(map[Discriminator]Type, len(names))
)

func init() {
	for t, name := range names {
		h := common.Sha512Half([]byte("account:" + name))
		var d Discriminator
		copy(d[:], h[:DiscriminatorSize])
		discriminators[t] = d
		byDisc[d] = t
	}
}

// String returns the entry type name
func (t Type) String() string {
	if name, ok := names[t]; ok {
		return name
	}
	return fmt.Sprintf("Unknown(0x%04x)", uint16(t))
}

// Discriminator returns the stored type tag for t.
func (t Type) Discriminator() Discriminator {
	return discriminators[t]
}

// TypeOf identifies the entry type of a stored value by its leading tag.
func TypeOf(data []byte) Type {
	if len(data) < DiscriminatorSize {
		return TypeUnknown
	}
	var d Discriminator
	copy(d[:], data[:DiscriminatorSize])
	if t, ok := byDisc[d]; ok {
		return t
	}
	return TypeUnknown
}

// TypeFromName resolves an entry type from its name.
func TypeFromName(name string) (Type, bool) {
	for t, n := range names {
		if n == name {
			return t, true
		}
	}
	return TypeUnknown, false
}
