package state

import (
	"context"

	"github.com/pkg/errors"

	"github.com/code-payments/profile-client/pkg/profile"
	"github.com/code-payments/profile-client/pkg/solana"
	"github.com/code-payments/profile-client/pkg/submitter"
	"github.com/code-payments/profile-client/pkg/wallet"
)

// ErrorKind is the failure taxonomy surfaced to callers, so a UI can pick a
// message and retry affordance without inspecting error values.
type ErrorKind int

const (
	ErrorKindNone ErrorKind = iota

	// ErrorKindUnknown covers transport failures and anything unexpected
	ErrorKindUnknown

	ErrorKindDerivationExhausted
	ErrorKindSchemaMismatch
	ErrorKindAccountAbsent
	ErrorKindInvalidArgument
	ErrorKindWalletNotConnected
	ErrorKindWalletDeclined
	ErrorKindSimulationRejected
	ErrorKindBlockhashExpired
	ErrorKindConfirmationTimeout
	ErrorKindCancelled

	// ErrorKindInvalidSignature is a wallet returning a signature that does
	// not verify against the transaction
	ErrorKindInvalidSignature

	// ErrorKindRefreshFailed is a confirmed mutation whose result could not
	// be read back
	ErrorKindRefreshFailed
)

var errorKindNames = map[ErrorKind]string{
	ErrorKindNone:                "None",
	ErrorKindUnknown:             "Unknown",
	ErrorKindDerivationExhausted: "DerivationExhausted",
	ErrorKindSchemaMismatch:      "SchemaMismatch",
	ErrorKindAccountAbsent:       "AccountAbsent",
	ErrorKindInvalidArgument:     "InvalidArgument",
	ErrorKindWalletNotConnected:  "WalletNotConnected",
	ErrorKindWalletDeclined:      "WalletDeclined",
	ErrorKindSimulationRejected:  "SimulationRejected",
	ErrorKindBlockhashExpired:    "BlockhashExpired",
	ErrorKindConfirmationTimeout: "ConfirmationTimeout",
	ErrorKindCancelled:           "Cancelled",
	ErrorKindInvalidSignature:    "InvalidSignature",
	ErrorKindRefreshFailed:       "RefreshFailed",
}

func (k ErrorKind) String() string {
	if name, ok := errorKindNames[k]; ok {
		return name
	}
	return "Unknown"
}

// Retriable reports whether the same operation may reasonably be attempted
// again by the user. Kinds where a mutation may have landed are excluded,
// including Unknown, since a transport failure can follow a delivered send.
func (k ErrorKind) Retriable() bool {
	switch k {
	case ErrorKindWalletNotConnected, ErrorKindWalletDeclined, ErrorKindBlockhashExpired, ErrorKindCancelled:
		return true
	default:
		return false
	}
}

var classifications = []struct {
	target error
	kind   ErrorKind
}{
	{solana.ErrDerivationExhausted, ErrorKindDerivationExhausted},
	{profile.ErrSchemaMismatch, ErrorKindSchemaMismatch},
	{profile.ErrAccountAbsent, ErrorKindAccountAbsent},
	{profile.ErrInvalidArgument, ErrorKindInvalidArgument},
	{profile.ErrInvalidAccounts, ErrorKindInvalidArgument},
	{solana.ErrInvalidPublicKey, ErrorKindInvalidArgument},
	{wallet.ErrWalletNotConnected, ErrorKindWalletNotConnected},
	{wallet.ErrWalletDeclined, ErrorKindWalletDeclined},
	{submitter.ErrInvalidWalletSignature, ErrorKindInvalidSignature},
	{submitter.ErrSimulationRejected, ErrorKindSimulationRejected},
	{submitter.ErrBlockhashExpired, ErrorKindBlockhashExpired},
	{submitter.ErrConfirmationTimeout, ErrorKindConfirmationTimeout},
	{context.Canceled, ErrorKindCancelled},
	{context.DeadlineExceeded, ErrorKindCancelled},
}

// RefreshError is returned alongside the result of a confirmed mutation when
// reading back the affected accounts failed. The mutation must not be
// submitted again.
type RefreshError struct {
	Mutation string
	Err      error
}

func (e *RefreshError) Error() string {
	return e.Mutation + " confirmed, but failed to refresh: " + e.Err.Error()
}

func (e *RefreshError) Unwrap() error {
	return e.Err
}

// Classify maps an error returned by this package to its ErrorKind.
func Classify(err error) ErrorKind {
	if err == nil {
		return ErrorKindNone
	}

	var refreshErr *RefreshError
	if errors.As(err, &refreshErr) {
		return ErrorKindRefreshFailed
	}

	for _, c := range classifications {
		if errors.Is(err, c.target) {
			return c.kind
		}
	}
	return ErrorKindUnknown
}
