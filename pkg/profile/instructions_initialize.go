package profile

import (
	"bytes"
	"crypto/ed25519"

	"github.com/code-payments/profile-client/pkg/solana"
)

var initializeInstructionDiscriminator = []byte{
	175, 175, 109, 31, 13, 152, 155, 237,
}

const (
	InitializeInstructionArgsSize = 0
)

type InitializeInstructionArgs struct {
}

type InitializeInstructionAccounts struct {
	AppState  ed25519.PublicKey
	Authority ed25519.PublicKey
}

func (args *InitializeInstructionArgs) Marshal() []byte {
	var offset int

	data := make([]byte,
		len(initializeInstructionDiscriminator)+
			InitializeInstructionArgsSize)

	putDiscriminator(data, initializeInstructionDiscriminator, &offset)

	return data
}

func (args *InitializeInstructionArgs) Unmarshal(data []byte) error {
	if len(data) != discriminatorSize+InitializeInstructionArgsSize {
		return ErrInvalidInstructionData
	}

	if !bytes.Equal(data[:discriminatorSize], initializeInstructionDiscriminator) {
		return ErrInvalidInstructionData
	}

	return nil
}

func NewInitializeInstruction(
	accounts *InitializeInstructionAccounts,
	args *InitializeInstructionArgs,
) solana.Instruction {
	return solana.Instruction{
		Program: PROGRAM_ADDRESS,

		// Instruction args
		Data: args.Marshal(),

		// Instruction accounts
		Accounts: []solana.AccountMeta{
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
