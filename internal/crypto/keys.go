// Package crypto provides the signing identities used by offerd.
//
// Every user identity is an ed25519 public key. Program-derived addresses are
// 32-byte values that do not decode to a point on the ed25519 curve, which is
// what guarantees no private key exists for them.
package crypto

import (
	"crypto/ed25519"
	"encoding/hex"
	"errors"
	"fmt"

	"filippo.io/edwards25519"

	common "github.com/LeJamon/offerd/internal/crypto/common"
	"github.com/LeJamon/offerd/internal/types"
)

// SeedSize is the size of an ed25519 private key seed.
const SeedSize = ed25519.SeedSize

var (
	// ErrInvalidSeed is returned when a seed has the wrong length or encoding.
	ErrInvalidSeed = errors.New("invalid key seed")
	// ErrWiped is returned when a wiped keypair is used for signing.
	ErrWiped = errors.New("keypair has been wiped")
)

// Keypair is an ed25519 signing identity.
type Keypair struct {
	public  types.Address
	private ed25519.PrivateKey
}

// NewKeypair generates a random keypair.
func NewKeypair() (*Keypair, error) {
	seed, err := RandomBytes(SeedSize)
	if err != nil {
		return nil, err
	}
	defer SecureErase(seed)
	return KeypairFromSeed(seed)
}

// KeypairFromSeed derives the keypair for a 32-byte seed.
func KeypairFromSeed(seed []byte) (*Keypair, error) {
	if len(seed) != SeedSize {
		return nil, fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidSeed, SeedSize, len(seed))
	}
	priv := ed25519.NewKeyFromSeed(seed)
	pub, err := types.AddressFromBytes(priv.Public().(ed25519.PublicKey))
	if err != nil {
		return nil, err
	}
	return &Keypair{public: pub, private: priv}, nil
}

// KeypairFromHex parses a hex encoded seed.
func KeypairFromHex(s string) (*Keypair, error) {
	seed, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSeed, err)
	}
	defer SecureErase(seed)
	return KeypairFromSeed(seed)
}

// KeypairFromName derives a deterministic keypair from a name. The same name
// always yields the same identity, which keeps tests and demos reproducible.
func KeypairFromName(name string) *Keypair {
	seed := common.Sha512Half([]byte("offerd-name"), []byte(name))
	kp, err := KeypairFromSeed(seed[:])
	if err != nil {
		// Seed length is fixed above.
		panic(err)
	}
	return kp
}

// Address returns the public identity of the keypair.
func (k *Keypair) Address() types.Address {
	return k.public
}

// SeedHex returns the hex encoded seed, for writing key files.
func (k *Keypair) SeedHex() string {
	if k.private == nil {
		return ""
	}
	return hex.EncodeToString(k.private.Seed())
}

// Sign signs msg with the private key.
func (k *Keypair) Sign(msg []byte) ([]byte, error) {
	if k.private == nil {
		return nil, ErrWiped
	}
	return ed25519.Sign(k.private, msg), nil
}

// Wipe zeroes the private key. The keypair cannot sign afterwards.
func (k *Keypair) Wipe() {
	SecureErase(k.private)
	k.private = nil
}

// Verify checks an ed25519 signature made by pub over msg.
func Verify(pub types.Address, msg, sig []byte) bool {
	if len(sig) != ed25519.SignatureSize {
		return false
	}
	return ed25519.Verify(ed25519.PublicKey(pub[:]), msg, sig)
}

// IsOnCurve reports whether b is the compressed encoding of a point on the
// ed25519 curve, i.e. whether it could be a public key.
func IsOnCurve(b [32]byte) bool {
	_, err := new(edwards25519.Point).SetBytes(b[:])
	return err == nil
}
