package wallet

import (
	"context"
	"crypto/ed25519"
	"sync"

	solanago "github.com/gagliardetto/solana-go"
	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/code-payments/profile-client/pkg/solana"
)

// ApprovalFunc decides whether a transaction may be signed. It stands in for
// the confirmation prompt of an interactive wallet.
type ApprovalFunc func(ctx context.Context, txn *solana.Transaction) (bool, error)

// AutoApprove signs everything.
func AutoApprove(context.Context, *solana.Transaction) (bool, error) {
	return true, nil
}

type KeypairWallet struct {
	log *logrus.Entry

	privateKey ed25519.PrivateKey
	approve    ApprovalFunc

	mu        sync.RWMutex
	connected bool
}

type KeypairOption func(*KeypairWallet)

// WithApproval installs a hook that is consulted before every signature.
func WithApproval(approve ApprovalFunc) KeypairOption {
	return func(w *KeypairWallet) {
		w.approve = approve
	}
}

// NewKeypairWallet returns a connected wallet backed by a local private key.
func NewKeypairWallet(privateKey ed25519.PrivateKey, opts ...KeypairOption) (*KeypairWallet, error) {
	if len(privateKey) != ed25519.PrivateKeySize {
		return nil, errors.Errorf("invalid private key length: %d", len(privateKey))
	}

	w := &KeypairWallet{
		privateKey: privateKey,
		approve:    AutoApprove,
		connected:  true,
	}
	for _, opt := range opts {
		opt(w)
	}

	w.log = logrus.StandardLogger().WithFields(logrus.Fields{
		"type":   "wallet/keypair",
		"wallet": base58.Encode(w.publicKey()),
	})

	return w, nil
}

// NewRandomKeypairWallet generates a fresh keypair.
func NewRandomKeypairWallet(opts ...KeypairOption) (*KeypairWallet, error) {
	_, privateKey, err := ed25519.GenerateKey(nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to generate keypair")
	}
	return NewKeypairWallet(privateKey, opts...)
}

// LoadKeypairFile reads a Solana CLI keypair file: a JSON array of the 64
// private key bytes.
func LoadKeypairFile(path string, opts ...KeypairOption) (*KeypairWallet, error) {
	privateKey, err := solanago.PrivateKeyFromSolanaKeygenFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load keypair from %s", path)
	}

	return NewKeypairWallet(ed25519.PrivateKey(privateKey), opts...)
}

// LoadKeypairBase58 parses a base58 encoded 64 byte private key, as exported
// by browser wallets.
func LoadKeypairBase58(value string, opts ...KeypairOption) (*KeypairWallet, error) {
	privateKey, err := solanago.PrivateKeyFromBase58(value)
	if err != nil {
		return nil, errors.Wrap(err, "invalid base58 private key")
	}

	return NewKeypairWallet(ed25519.PrivateKey(privateKey), opts...)
}

func (w *KeypairWallet) publicKey() ed25519.PublicKey {
	return w.privateKey.Public().(ed25519.PublicKey)
}

func (w *KeypairWallet) PublicKey() ed25519.PublicKey {
	if !w.Connected() {
		return nil
	}
	return w.publicKey()
}

func (w *KeypairWallet) Connected() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()

	return w.connected
}

func (w *KeypairWallet) Connect() {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.connected = true
}

func (w *KeypairWallet) Disconnect() {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.connected = false
}

func (w *KeypairWallet) SignTransaction(ctx context.Context, txn *solana.Transaction) error {
	return w.SignAllTransactions(ctx, []*solana.Transaction{txn})
}

func (w *KeypairWallet) SignAllTransactions(ctx context.Context, txns []*solana.Transaction) error {
	if err := Ready(w); err != nil {
		return err
	}

	for _, txn := range txns {
		approved, err := w.approve(ctx, txn)
		if err != nil {
			return errors.Wrap(err, "approval failed")
		}
		if !approved {
			w.log.Debug("transaction signature declined")
			return ErrWalletDeclined
		}
	}

	for _, txn := range txns {
		if err := txn.Sign(w.privateKey); err != nil {
			return errors.Wrap(err, "failed to sign transaction")
		}
	}

	return nil
}
