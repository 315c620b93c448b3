package submitter

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/code-payments/profile-client/pkg/profile"
	"github.com/code-payments/profile-client/pkg/solana"
)

var (
	// ErrSimulationRejected is returned when the program, or the runtime on
	// its behalf, refuses the transaction. Errors of this kind are always a
	// *SimulationError.
	ErrSimulationRejected = errors.New("transaction rejected by program")

	// ErrBlockhashExpired is returned when the transaction's blockhash aged
	// out before it landed, and the automatic rebuild did not land either.
	ErrBlockhashExpired = errors.New("transaction blockhash expired")

	// ErrConfirmationTimeout is returned when the transaction did not reach
	// the configured commitment in time. It may still land later.
	ErrConfirmationTimeout = errors.New("transaction confirmation timed out")

	// ErrInvalidWalletSignature is returned when the wallet hands back a
	// transaction that does not carry a valid signature from the signer.
	ErrInvalidWalletSignature = errors.New("wallet produced an invalid signature")
)

var (
	errStaleBlockhash = errors.New("blockhash no longer valid")
	errNotConfirmed   = errors.New("transaction not yet confirmed")
)

// SimulationError describes a program side rejection, either during the
// preflight simulation or after landing on chain.
type SimulationError struct {
	Signature solana.Signature

	// Landed is set when the failure was recorded on chain, which only
	// happens when preflight is skipped.
	Landed bool

	TransactionError *solana.TransactionError

	// ProgramError is set when the failure maps to a known program code
	ProgramError *profile.ProgramError

	Logs []string
}

func newSimulationError(sig solana.Signature, txErr *solana.TransactionError, landed bool) *SimulationError {
	e := &SimulationError{
		Signature:        sig,
		Landed:           landed,
		TransactionError: txErr,
		Logs:             txErr.Logs,
	}

	if code, ok := txErr.CustomErrorCode(); ok {
		if programErr, ok := profile.ProgramErrorFromCode(code); ok {
			e.ProgramError = &programErr
		}
	}

	return e
}

func (e *SimulationError) Error() string {
	if e.ProgramError != nil {
		return fmt.Sprintf("%s: %s", ErrSimulationRejected, e.ProgramError.Error())
	}
	return fmt.Sprintf("%s: %s", ErrSimulationRejected, e.TransactionError.Error())
}

func (e *SimulationError) Unwrap() error {
	return ErrSimulationRejected
}
