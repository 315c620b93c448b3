package profile

import (
	"bytes"
	"crypto/ed25519"

	"github.com/code-payments/profile-client/pkg/solana"
)

var createUserProfileInstructionDiscriminator = []byte{
	9, 214, 142, 184, 153, 65, 50, 174,
}

type CreateUserProfileInstructionArgs struct {
	Username string
}

type CreateUserProfileInstructionAccounts struct {
	UserProfile ed25519.PublicKey
	AppState    ed25519.PublicKey
	Authority   ed25519.PublicKey
}

func (args *CreateUserProfileInstructionArgs) Marshal() []byte {
	var offset int

	data := make([]byte,
		len(createUserProfileInstructionDiscriminator)+
			4+len(args.Username))

	putDiscriminator(data, createUserProfileInstructionDiscriminator, &offset)
	putString(data, args.Username, &offset)

	return data
}

// Unmarshal decodes instruction data. The username length is bounded by the
// data itself, not MaxUsernameLength, so the program can reject it.
func (args *CreateUserProfileInstructionArgs) Unmarshal(data []byte) error {
	if len(data) < discriminatorSize+4 {
		return ErrInvalidInstructionData
	}

	if !bytes.Equal(data[:discriminatorSize], createUserProfileInstructionDiscriminator) {
		return ErrInvalidInstructionData
	}

	offset := discriminatorSize
	if !getString(data, &args.Username, len(data), &offset) {
		return ErrInvalidInstructionData
	}
	if offset != len(data) {
		return ErrInvalidInstructionData
	}

	return nil
}

func NewCreateUserProfileInstruction(
	accounts *CreateUserProfileInstructionAccounts,
	args *CreateUserProfileInstructionArgs,
) solana.Instruction {
	return solana.Instruction{
		Program: PROGRAM_ADDRESS,

		// Instruction args
		Data: args.Marshal(),

		// Instruction accounts
		Accounts: []solana.AccountMeta{
			{
				PublicKey:  accounts.UserProfile,
				IsWritable: true,
				IsSigner:   false,
			},
			{
				PublicKey:  accounts.AppState,
				IsWritable: true,
				IsSigner:   false,
			},
			{
				PublicKey:  accounts.Authority,
				IsWritable: true,
				IsSigner:   true,
			},
			{
				PublicKey:  SYSTEM_PROGRAM_ID,
				IsWritable: false,
				IsSigner:   false,
			},
		},
	}
}
