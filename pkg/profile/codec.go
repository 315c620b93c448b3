package profile

import (
	"bytes"
	"crypto/ed25519"

	"github.com/pkg/errors"

	"github.com/code-payments/profile-client/pkg/solana"
)

// AccountKind names an account layout owned by the program.
type AccountKind string

const (
	AccountKindAppState    AccountKind = "AppState"
	AccountKindUserProfile AccountKind = "UserProfile"
)

// InstructionKind names a program instruction, as spelled in the IDL.
type InstructionKind string

const (
	InstructionKindInitialize        InstructionKind = "initialize"
	InstructionKindCreateUserProfile InstructionKind = "createUserProfile"
)

// Record is a decoded program account. The concrete type is determined by
// Kind: *AppStateAccount or *UserProfileAccount.
type Record interface {
	Kind() AccountKind
	Marshal() []byte
	String() string
}

// Decode parses raw account data as the given kind. Any data that does not
// match the layout, including a foreign discriminator, fails with
// ErrSchemaMismatch.
func Decode(kind AccountKind, data []byte) (Record, error) {
	if detected, ok := detectAccountKind(data); ok && detected != kind {
		return nil, errors.Wrapf(ErrSchemaMismatch, "cannot decode %s: data holds a %s account", kind, detected)
	}

	switch kind {
	case AccountKindAppState:
		var account AppStateAccount
		if err := account.Unmarshal(data); err != nil {
			return nil, errors.Wrapf(err, "cannot decode %s", kind)
		}
		return &account, nil
	case AccountKindUserProfile:
		var account UserProfileAccount
		if err := account.Unmarshal(data); err != nil {
			return nil, errors.Wrapf(err, "cannot decode %s", kind)
		}
		return &account, nil
	default:
		return nil, errors.Wrapf(ErrSchemaMismatch, "unknown account kind: %s", kind)
	}
}

// detectAccountKind returns the account kind tagged by the data's
// discriminator.
func detectAccountKind(data []byte) (AccountKind, bool) {
	if len(data) < discriminatorSize {
		return "", false
	}

	switch {
	case bytes.Equal(data[:discriminatorSize], appStateAccountDiscriminator):
		return AccountKindAppState, true
	case bytes.Equal(data[:discriminatorSize], userProfileAccountDiscriminator):
		return AccountKindUserProfile, true
	default:
		return "", false
	}
}

// EncodeArgs produces instruction data: the 8 byte instruction discriminator
// followed by the borsh encoded arguments. Arguments may be passed by value
// or pointer. A nil args is accepted for instructions without arguments.
func EncodeArgs(kind InstructionKind, args interface{}) ([]byte, error) {
	switch kind {
	case InstructionKindInitialize:
		switch args.(type) {
		case nil, InitializeInstructionArgs, *InitializeInstructionArgs:
			return (&InitializeInstructionArgs{}).Marshal(), nil
		}
	case InstructionKindCreateUserProfile:
		var typed *CreateUserProfileInstructionArgs
		switch v := args.(type) {
		case CreateUserProfileInstructionArgs:
			typed = &v
		case *CreateUserProfileInstructionArgs:
			typed = v
		}

		if typed != nil {
			if err := ValidateUsername(typed.Username); err != nil {
				return nil, err
			}
			return typed.Marshal(), nil
		}
	default:
		return nil, errors.Wrapf(ErrInvalidArgument, "unknown instruction: %s", kind)
	}

	return nil, errors.Wrapf(ErrInvalidArgument, "unexpected args type %T for %s", args, kind)
}

// DecodeInstruction identifies a program instruction from its data and
// returns its parsed arguments.
func DecodeInstruction(data []byte) (InstructionKind, interface{}, error) {
	if len(data) < discriminatorSize {
		return "", nil, ErrInvalidInstructionData
	}

	switch {
	case bytes.Equal(data[:discriminatorSize], initializeInstructionDiscriminator):
		var args InitializeInstructionArgs
		if err := args.Unmarshal(data); err != nil {
			return "", nil, err
		}
		return InstructionKindInitialize, &args, nil
	case bytes.Equal(data[:discriminatorSize], createUserProfileInstructionDiscriminator):
		var args CreateUserProfileInstructionArgs
		if err := args.Unmarshal(data); err != nil {
			return "", nil, err
		}
		return InstructionKindCreateUserProfile, &args, nil
	default:
		return "", nil, ErrInvalidInstructionData
	}
}

// NewInstruction builds a program instruction from an explicit account list.
// The list is used as is; callers validate it with IDL.ValidateAccounts.
func NewInstruction(kind InstructionKind, accounts []solana.AccountMeta, args interface{}) (solana.Instruction, error) {
	data, err := EncodeArgs(kind, args)
	if err != nil {
		return solana.Instruction{}, err
	}

	metas := make([]solana.AccountMeta, len(accounts))
	copy(metas, accounts)

	return solana.NewInstruction(PROGRAM_ID, data, metas...), nil
}

// FetchAccount reads and decodes a program account. An address without an
// account yields ErrAccountAbsent, while any transport failure is returned
// as is so it is never mistaken for absence.
func FetchAccount(client solana.Client, kind AccountKind, address ed25519.PublicKey, commitment solana.Commitment) (Record, error) {
	info, err := client.GetAccountInfo(address, commitment)
	if err == solana.ErrNoAccountInfo {
		return nil, ErrAccountAbsent
	} else if err != nil {
		return nil, errors.Wrapf(err, "failed to get account info for %s", kind)
	}

	if len(info.Data) == 0 && !bytes.Equal(info.Owner, PROGRAM_ID) {
		// Funded but never allocated by the program
		return nil, ErrAccountAbsent
	}

	if !bytes.Equal(info.Owner, PROGRAM_ID) {
		return nil, errors.Wrapf(ErrSchemaMismatch, "%s account is not owned by the program", kind)
	}

	return Decode(kind, info.Data)
}
