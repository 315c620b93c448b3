package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/code-payments/profile-client/pkg/profile"
	"github.com/code-payments/profile-client/pkg/solana"
	"github.com/code-payments/profile-client/pkg/state"
	"github.com/code-payments/profile-client/pkg/submitter"
	"github.com/code-payments/profile-client/pkg/testutil"
	"github.com/code-payments/profile-client/pkg/wallet"
)

func TestFormatLamports(t *testing.T) {
	for _, tc := range []struct {
		lamports uint64
		expected string
	}{
		{0, "0"},
		{1, "0.000000001"},
		{lamportsPerSol, "1"},
		{1_500_000_000, "1.5"},
		{2_039_280, "0.00203928"},
	} {
		assert.Equal(t, tc.expected, formatLamports(tc.lamports))
	}
}

func TestParsePublicKey(t *testing.T) {
	key := testutil.GenerateSolanaKeys(t, 1)[0]

	parsed, err := parsePublicKey(base58.Encode(key))
	require.NoError(t, err)
	assert.EqualValues(t, key, parsed)

	_, err = parsePublicKey("0OIl")
	assert.ErrorIs(t, err, profile.ErrInvalidArgument)

	_, err = parsePublicKey(base58.Encode(key[:31]))
	assert.ErrorIs(t, err, profile.ErrInvalidArgument)
}

func TestPromptApproval(t *testing.T) {
	txn := solana.NewTransaction(testutil.GenerateSolanaKeys(t, 1)[0])

	var out bytes.Buffer
	approve := promptApproval(strings.NewReader("y\nno\n"), &out)

	approved, err := approve(context.Background(), &txn)
	require.NoError(t, err)
	assert.True(t, approved)
	assert.Contains(t, out.String(), "Sign transaction")

	approved, err = approve(context.Background(), &txn)
	require.NoError(t, err)
	assert.False(t, approved)

	// Closed input declines
	approved, err = approve(context.Background(), &txn)
	require.NoError(t, err)
	assert.False(t, approved)
}

func TestFormatError(t *testing.T) {
	assert.Equal(t, "error: connection refused", formatError(errors.New("connection refused")))

	formatted := formatError(wallet.ErrWalletDeclined)
	assert.True(t, strings.HasPrefix(formatted, "error (WalletDeclined): "))
	assert.Contains(t, formatted, "retried")

	formatted = formatError(errors.Wrap(submitter.ErrConfirmationTimeout, "sig not confirmed"))
	assert.True(t, strings.HasPrefix(formatted, "error (ConfirmationTimeout): "))
	assert.Contains(t, formatted, "status command")

	formatted = formatError(&state.RefreshError{Mutation: "profile creation", Err: errors.New("connection reset")})
	assert.True(t, strings.HasPrefix(formatted, "error (RefreshFailed): "))
	assert.Contains(t, formatted, "instead of resubmitting")
	assert.NotContains(t, formatted, "retried")

	assert.NotContains(t, formatError(errors.New("connection refused")), "retried")

	txErr := solana.NewTransactionError(solana.TransactionErrorInstructionError)
	formatted = formatError(&submitter.SimulationError{
		TransactionError: txErr,
		Logs:             []string{"Program log: AnchorError occurred. Error Code: UsernameTooLong."},
	})
	assert.True(t, strings.HasPrefix(formatted, "error (SimulationRejected): "))
	assert.Contains(t, formatted, "UsernameTooLong")
	assert.NotContains(t, formatted, "retried")
}

func TestRootCmd_ArgumentValidation(t *testing.T) {
	for _, args := range [][]string{
		{"create-profile"},
		{"create-profile", "alice", "bob"},
		{"status"},
		{"airdrop"},
		{"app-state", "extra"},
		{"profile", "a", "b"},
	} {
		cmd := NewRootCmd()
		cmd.SetArgs(args)
		cmd.SetOut(&bytes.Buffer{})
		cmd.SetErr(&bytes.Buffer{})
		assert.Error(t, cmd.ExecuteContext(context.Background()), "%v", args)
	}
}
