package keylet

import (
	"encoding/binary"
	"errors"

	"github.com/LeJamon/offerd/internal/core/ledger/entry"
	"github.com/LeJamon/offerd/internal/crypto"
	common "github.com/LeJamon/offerd/internal/crypto/common"
	"github.com/LeJamon/offerd/internal/types"
)

// Seed limits for program-derived addresses.
const (
	MaxSeeds   = 16
	MaxSeedLen = 32
)

// Seed prefixes
const (
	offerSeed = "offer"
)

var pdaMarker = []byte("ProgramDerivedAddress")

var (
	// ErrMaxSeedLength is returned when a seed list is too long or a seed too large.
	ErrMaxSeedLength = errors.New("seed length or count exceeds the limit")
	// ErrOnCurve is returned when seeds hash to a valid public key, which a
	// program may not sign for.
	ErrOnCurve = errors.New("derived address is on the ed25519 curve")
	// ErrNoViableBump is returned when no bump yields an off-curve address.
	ErrNoViableBump = errors.New("no viable bump seed")
)

// Program identities. These are fixed names, not keys.
var (
	// OfferProgramID owns offers and signs for their vaults.
	OfferProgramID = programID("offerd/escrow")
	// AssetProgramID owns asset kinds and holdings.
	AssetProgramID = programID("offerd/asset")
)

// Keylet represents an addressable location in the ledger state.
// It combines a type identifier with a 256-bit key.
type Keylet struct {
	Type entry.Type
	Key  types.Address
}

func programID(name string) types.Address {
	return types.Address(common.Sha512Half([]byte("program:"), []byte(name)))
}

// CreateProgramAddress hashes the seeds (bump included by the caller) under
// program. The result is rejected if it lies on the ed25519 curve.
func CreateProgramAddress(program types.Address, seeds ...[]byte) (types.Address, error) {
	if len(seeds) > MaxSeeds {
		return types.Address{}, ErrMaxSeedLength
	}
	inputs := make([][]byte, 0, len(seeds)+2)
	for _, s := range seeds {
		if len(s) > MaxSeedLen {
			return types.Address{}, ErrMaxSeedLength
		}
		inputs = append(inputs, s)
	}
	inputs = append(inputs, program[:], pdaMarker)

	addr := types.Address(common.Sha512Half(inputs...))
	if crypto.IsOnCurve(addr) {
		return types.Address{}, ErrOnCurve
	}
	return addr, nil
}

// FindProgramAddress searches bumps from 255 down to 0 and returns the first
// off-curve address together with its bump.
func FindProgramAddress(program types.Address, seeds ...[]byte) (types.Address, uint8, error) {
	if len(seeds) >= MaxSeeds {
		return types.Address{}, 0, ErrMaxSeedLength
	}
	withBump := make([][]byte, len(seeds)+1)
	copy(withBump, seeds)

	for bump := 255; bump >= 0; bump-- {
		withBump[len(seeds)] = []byte{uint8(bump)}
		addr, err := CreateProgramAddress(program, withBump...)
		switch {
		case err == nil:
			return addr, uint8(bump), nil
		case errors.Is(err, ErrOnCurve):
			continue
		default:
			return types.Address{}, 0, err
		}
	}
	return types.Address{}, 0, ErrNoViableBump
}

// mustFind is used for seed sets of fixed, valid size. Exhausting all 256
// bumps has probability 2^-256.
func mustFind(program types.Address, seeds ...[]byte) (types.Address, uint8) {
	addr, bump, err := FindProgramAddress(program, seeds...)
	if err != nil {
		panic(err)
	}
	return addr, bump
}

// OfferSeeds returns the derivation seeds of the offer with the given id.
func OfferSeeds(id uint64) [][]byte {
	idBytes := make([]byte, 8)
	binary.LittleEndian.PutUint64(idBytes, id)
	return [][]byte{[]byte(offerSeed), idBytes}
}

// Offer returns the keylet and bump for an offer record.
func Offer(id uint64) (Keylet, uint8) {
	addr, bump := mustFind(OfferProgramID, OfferSeeds(id)...)
	return Keylet{Type: entry.TypeOffer, Key: addr}, bump
}

// OfferAuthority re-derives the offer address from its stored id and bump.
// The escrow program uses it to prove it may sign for the offer's vault.
func OfferAuthority(id uint64, bump uint8) (types.Address, error) {
	seeds := append(OfferSeeds(id), []byte{bump})
	return CreateProgramAddress(OfferProgramID, seeds...)
}

// Holding returns the keylet and bump of the holding account that keeps
// owner's balance of assetKind.
func Holding(owner, assetKind types.Address) (Keylet, uint8) {
	addr, bump := mustFind(AssetProgramID, owner[:], AssetProgramID[:], assetKind[:])
	return Keylet{Type: entry.TypeHolding, Key: addr}, bump
}

// Vault returns the keylet of the holding account that custodies an offer's
// asset. Its owner is the offer address itself.
func Vault(offer, assetKind types.Address) Keylet {
	k, _ := Holding(offer, assetKind)
	return k
}

// Native returns the keylet for an identity's native currency balance.
func Native(id types.Address) Keylet {
	return Keylet{Type: entry.TypeNative, Key: id}
}

// AssetKind returns the keylet for an asset definition.
func AssetKind(addr types.Address) Keylet {
	return Keylet{Type: entry.TypeAssetKind, Key: addr}
}

// At returns a keylet of type t at an arbitrary address, for accounts whose
// address is supplied by the caller.
func At(t entry.Type, addr types.Address) Keylet {
	return Keylet{Type: t, Key: addr}
}
