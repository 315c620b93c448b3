// Package wallet defines the signing capability the client needs from a
// wallet, and a local keypair implementation of it.
package wallet

import (
	"context"
	"crypto/ed25519"

	"github.com/pkg/errors"

	"github.com/code-payments/profile-client/pkg/solana"
)

var (
	// ErrWalletNotConnected is returned when no wallet is present, or the
	// wallet cannot provide a public key and signatures.
	ErrWalletNotConnected = errors.New("wallet not connected")

	// ErrWalletDeclined is returned when the wallet holder refuses to sign.
	ErrWalletDeclined = errors.New("wallet declined to sign")
)

// Wallet is the capability to identify as, and sign on behalf of, a single
// account.
type Wallet interface {
	// PublicKey returns nil if the wallet is not connected.
	PublicKey() ed25519.PublicKey

	// SignTransaction adds the wallet's signature to txn.
	SignTransaction(ctx context.Context, txn *solana.Transaction) error

	// SignAllTransactions signs every transaction, or none of them.
	SignAllTransactions(ctx context.Context, txns []*solana.Transaction) error
}

// Connector is implemented by wallets that can be disconnected.
type Connector interface {
	Connected() bool
}

// Ready verifies that w can be used to sign a transaction.
func Ready(w Wallet) error {
	if w == nil {
		return ErrWalletNotConnected
	}

	if c, ok := w.(Connector); ok && !c.Connected() {
		return ErrWalletNotConnected
	}

	if len(w.PublicKey()) != ed25519.PublicKeySize {
		return ErrWalletNotConnected
	}

	return nil
}
