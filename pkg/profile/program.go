// Package profile is the client side of the on-chain profile registry
// program: account layouts, instruction builders, address derivation and the
// program's IDL.
package profile

import (
	"crypto/ed25519"

	"github.com/pkg/errors"
)

var (
	// ErrSchemaMismatch is returned when account data does not match the
	// layout of the requested account kind.
	ErrSchemaMismatch = errors.New("account data does not match schema")

	// ErrAccountAbsent is returned when no account exists at an address. It is
	// the normal state before an account is created.
	ErrAccountAbsent = errors.New("account does not exist")

	// ErrInvalidArgument is returned when instruction arguments fail client
	// side validation.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrInvalidAccounts is returned when the address list for an instruction
	// is not exactly the one the program expects.
	ErrInvalidAccounts = errors.New("invalid instruction accounts")

	ErrInvalidInstructionData = errors.New("unexpected instruction data")
)

var (
	PROGRAM_ADDRESS = mustBase58Decode("91VLAsoXzizjsbG4cmMoFMPZsiGjuDb26GAnQuomChE8")
	PROGRAM_ID      = ed25519.PublicKey(PROGRAM_ADDRESS)
)

var (
	SYSTEM_PROGRAM_ID = ed25519.PublicKey(mustBase58Decode("11111111111111111111111111111111"))
)

const (
	// MaxUsernameLength is the maximum username size in bytes.
	MaxUsernameLength = 50
)

// ValidateUsername enforces the program's username rules without touching
// the network.
func ValidateUsername(username string) error {
	if len(username) == 0 {
		return errors.Wrap(ErrInvalidArgument, "username cannot be empty")
	}
	if len(username) > MaxUsernameLength {
		return errors.Wrapf(ErrInvalidArgument, "username must be %d bytes or less, got %d", MaxUsernameLength, len(username))
	}
	return nil
}
