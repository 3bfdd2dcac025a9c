// Package testing provides test infrastructure for offerd instruction testing.
//
// # Overview
//
// The testing package provides:
//   - TestEnv: an in-memory ledger and engine with helper methods
//   - Account and Asset: deterministic identities with keypairs
//   - Assertions: helpers for balances, results and offer state
//
// # Basic Usage
//
//	func TestRefund(t *testing.T) {
//	    env := jtx.NewTestEnv(t)
//
//	    alice := env.Account("alice")
//	    gold := jtx.NewAsset("gold", alice)
//
//	    env.Fund(alice)
//	    env.CreateAsset(gold, alice)
//	    env.Mint(gold, alice, 100)
//
//	    result := env.Submit(jtx.Signers(alice), offer.NewMakeOffer(...))
//	    jtx.RequireTxSuccess(t, result)
//	}
//
// Every Submit builds a fresh transaction with a new nonce and applies it
// through the same engine a server would use. Apply may be called from
// several goroutines at once.
package testing
