package computebudget

import (
	"testing"

	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProgramKey(t *testing.T) {
	assert.Equal(t, "ComputeBudget111111111111111111111111111111", base58.Encode(ProgramKey))
}

func TestInstructions(t *testing.T) {
	assert.Empty(t, Instructions(0, 0))

	ixns := Instructions(200_000, 0)
	require.Len(t, ixns, 1)
	command, value, err := DecodeInstruction(ixns[0].Data)
	require.NoError(t, err)
	assert.Equal(t, CommandSetComputeUnitLimit, command)
	assert.EqualValues(t, 200_000, value)

	ixns = Instructions(200_000, 1_000)
	require.Len(t, ixns, 2)
	command, value, err = DecodeInstruction(ixns[1].Data)
	require.NoError(t, err)
	assert.Equal(t, CommandSetComputeUnitPrice, command)
	assert.EqualValues(t, 1_000, value)

	for _, ix := range ixns {
		assert.EqualValues(t, ProgramKey, ix.Program)
		assert.Empty(t, ix.Accounts)
	}
}

func TestDecodeInstruction_Invalid(t *testing.T) {
	for _, data := range [][]byte{
		nil,
		{byte(CommandSetComputeUnitLimit), 1, 2},
		{byte(CommandSetComputeUnitPrice), 1, 2, 3, 4},
		{byte(CommandRequestHeapFrame), 0, 0, 0, 0},
	} {
		_, _, err := DecodeInstruction(data)
		assert.ErrorIs(t, err, ErrInvalidInstruction)
	}
}
