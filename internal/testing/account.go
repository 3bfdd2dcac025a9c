package testing

import (
	"fmt"

	"github.com/LeJamon/offerd/internal/crypto"
	"github.com/LeJamon/offerd/internal/types"
)

// Account represents a test identity with a deterministic keypair.
// It implements tx.Signer.
type Account struct {
	// Name is a human-readable identifier for the account (used for debugging).
	Name string

	// ID is the account's address.
	ID types.Address

	key *crypto.Keypair
}

// NewAccount creates a new test account with a keypair derived from the name.
// Using the same name will always produce the same account, making tests reproducible.
func NewAccount(name string) *Account {
	kp := crypto.KeypairFromName(name)
	return &Account{Name: name, ID: kp.Address(), key: kp}
}

// Address returns the account's address.
func (a *Account) Address() types.Address {
	return a.ID
}

// Sign signs msg with the account's key.
func (a *Account) Sign(msg []byte) ([]byte, error) {
	return a.key.Sign(msg)
}

// Human returns a readable form of the account for failure messages.
func (a *Account) Human() string {
	return fmt.Sprintf("%s (%s)", a.Name, a.ID)
}

// String implements fmt.Stringer.
func (a *Account) String() string {
	return a.Name
}

// Asset is a test asset kind. Its address is a fresh identity that signs
// CreateAsset; Authority mints it.
type Asset struct {
	*Account

	// Authority may mint the asset.
	Authority *Account
}

// NewAsset creates a test asset whose address is derived from name.
func NewAsset(name string, authority *Account) *Asset {
	return &Asset{Account: NewAccount("asset:" + name), Authority: authority}
}
