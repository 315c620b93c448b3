// Package computebudget builds instructions for the native compute budget
// program, which sets a transaction's compute unit limit and priority fee.
package computebudget

import (
	"crypto/ed25519"
	"encoding/binary"

	"github.com/pkg/errors"

	"github.com/code-payments/profile-client/pkg/solana"
)

// ComputeBudget111111111111111111111111111111
var ProgramKey = ed25519.PublicKey{3, 6, 70, 111, 229, 33, 23, 50, 255, 236, 173, 186, 114, 195, 155, 231, 188, 140, 229, 187, 197, 247, 18, 107, 44, 67, 155, 58, 64, 0, 0, 0}

var ErrInvalidInstruction = errors.New("invalid compute budget instruction")

type Command uint8

const (
	CommandRequestUnits Command = iota
	CommandRequestHeapFrame
	CommandSetComputeUnitLimit
	CommandSetComputeUnitPrice
)

func SetComputeUnitLimit(computeUnitLimit uint32) solana.Instruction {
	data := make([]byte, 1+4)
	data[0] = byte(CommandSetComputeUnitLimit)
	binary.LittleEndian.PutUint32(data[1:], computeUnitLimit)

	return solana.NewInstruction(ProgramKey, data)
}

// SetComputeUnitPrice sets the priority fee, in micro-lamports per compute
// unit.
func SetComputeUnitPrice(microLamports uint64) solana.Instruction {
	data := make([]byte, 1+8)
	data[0] = byte(CommandSetComputeUnitPrice)
	binary.LittleEndian.PutUint64(data[1:], microLamports)

	return solana.NewInstruction(ProgramKey, data)
}

// Instructions returns the budget instructions to prepend to a transaction.
// Zero values are left to the cluster defaults and produce no instruction.
func Instructions(computeUnitLimit uint32, microLamports uint64) []solana.Instruction {
	var ixns []solana.Instruction
	if computeUnitLimit > 0 {
		ixns = append(ixns, SetComputeUnitLimit(computeUnitLimit))
	}
	if microLamports > 0 {
		ixns = append(ixns, SetComputeUnitPrice(microLamports))
	}
	return ixns
}

// DecodeInstruction returns the command and its value for the two setter
// instructions.
func DecodeInstruction(data []byte) (Command, uint64, error) {
	if len(data) == 0 {
		return 0, 0, ErrInvalidInstruction
	}

	switch Command(data[0]) {
	case CommandSetComputeUnitLimit:
		if len(data) != 5 {
			return 0, 0, errors.Wrap(ErrInvalidInstruction, "invalid unit limit length")
		}
		return CommandSetComputeUnitLimit, uint64(binary.LittleEndian.Uint32(data[1:])), nil
	case CommandSetComputeUnitPrice:
		if len(data) != 9 {
			return 0, 0, errors.Wrap(ErrInvalidInstruction, "invalid unit price length")
		}
		return CommandSetComputeUnitPrice, binary.LittleEndian.Uint64(data[1:]), nil
	default:
		return 0, 0, errors.Wrapf(ErrInvalidInstruction, "unsupported command %d", data[0])
	}
}
