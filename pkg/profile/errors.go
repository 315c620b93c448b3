package profile

import (
	"fmt"
)

// ProgramError is an error code returned by the profile program, or by the
// Anchor framework or system program on its behalf.
type ProgramError uint32

const (
	// Username must be 50 characters or less
	ErrUsernameTooLong ProgramError = iota + 0x1770

	// Username cannot be empty
	ErrUsernameEmpty
)

// Framework codes that surface when talking to the program.
const (
	// The system program refuses to create an account that already exists
	ErrAccountAlreadyInUse ProgramError = 0

	ErrConstraintMut                ProgramError = 2000
	ErrConstraintSigner             ProgramError = 2002
	ErrConstraintSeeds              ProgramError = 2006
	ErrAccountDiscriminatorMismatch ProgramError = 3002
	ErrAccountNotInitialized        ProgramError = 3012
)

var programErrorNames = map[ProgramError]string{
	ErrUsernameTooLong:              "UsernameTooLong",
	ErrUsernameEmpty:                "UsernameEmpty",
	ErrAccountAlreadyInUse:          "AccountAlreadyInUse",
	ErrConstraintMut:                "ConstraintMut",
	ErrConstraintSigner:             "ConstraintSigner",
	ErrConstraintSeeds:              "ConstraintSeeds",
	ErrAccountDiscriminatorMismatch: "AccountDiscriminatorMismatch",
	ErrAccountNotInitialized:        "AccountNotInitialized",
}

var programErrorMessages = map[ProgramError]string{
	ErrUsernameTooLong:              "username must be 50 characters or less",
	ErrUsernameEmpty:                "username cannot be empty",
	ErrAccountAlreadyInUse:          "account already in use",
	ErrConstraintMut:                "a mut constraint was violated",
	ErrConstraintSigner:             "a signer constraint was violated",
	ErrConstraintSeeds:              "a seeds constraint was violated",
	ErrAccountDiscriminatorMismatch: "account discriminator did not match",
	ErrAccountNotInitialized:        "the program expected this account to be already initialized",
}

// ProgramErrorFromCode maps a custom error code to a known ProgramError.
func ProgramErrorFromCode(code int) (ProgramError, bool) {
	if code < 0 {
		return 0, false
	}

	pe := ProgramError(code)
	if _, ok := programErrorNames[pe]; ok {
		return pe, true
	}

	return 0, false
}

func (e ProgramError) Name() string {
	if name, ok := programErrorNames[e]; ok {
		return name
	}
	return "Unknown"
}

func (e ProgramError) Error() string {
	if msg, ok := programErrorMessages[e]; ok {
		return fmt.Sprintf("%s (%d): %s", e.Name(), uint32(e), msg)
	}
	return fmt.Sprintf("unknown program error: %d", uint32(e))
}
