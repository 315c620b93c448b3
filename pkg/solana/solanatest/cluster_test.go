package solanatest

import (
	"crypto/ed25519"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/code-payments/profile-client/pkg/solana"
)

var errBoom = errors.New("boom")

func TestCluster_Submission(t *testing.T) {
	cluster := NewCluster()

	programID, _ := newKeypair(t)
	target, _ := newKeypair(t)
	_, priv := newKeypair(t)

	var executions int
	cluster.RegisterProgram(programID, ProgramFunc(func(inv *Invocation, ix solana.Instruction) error {
		executions++

		if len(ix.Data) > 0 && ix.Data[0] == 0xff {
			return solana.CustomError(6001)
		}
		if len(ix.Data) > 0 && ix.Data[0] == 0xfe {
			return errBoom
		}

		inv.SetAccount(ix.Accounts[0].PublicKey, solana.AccountInfo{Data: ix.Data, Owner: programID, Lamports: inv.RentExemptBalance(uint64(len(ix.Data)))})
		return nil
	}))

	_, err := cluster.GetAccountInfo(target, solana.CommitmentConfirmed)
	assert.Equal(t, solana.ErrNoAccountInfo, err)

	sig, err := submit(t, cluster, priv, solana.NewInstruction(programID, []byte{1, 2, 3}, solana.NewAccountMeta(target, false)), solana.SubmitOptions{})
	require.NoError(t, err)

	info, err := cluster.GetAccountInfo(target, solana.CommitmentConfirmed)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, info.Data)
	assert.EqualValues(t, programID, info.Owner)

	status, err := cluster.GetSignatureStatus(sig)
	require.NoError(t, err)
	assert.True(t, status.Confirmed())
	assert.Nil(t, status.ErrorResult)

	// Custom program error during preflight
	_, err = submit(t, cluster, priv, solana.NewInstruction(programID, []byte{0xff}, solana.NewAccountMeta(target, false)), solana.SubmitOptions{})
	require.Error(t, err)
	txErr, ok := err.(*solana.TransactionError)
	require.True(t, ok)
	code, ok := txErr.CustomErrorCode()
	require.True(t, ok)
	assert.Equal(t, 6001, code)
	assert.NotEmpty(t, txErr.Logs)

	// Named instruction error
	_, err = submit(t, cluster, priv, solana.NewInstruction(programID, []byte{0xfe}, solana.NewAccountMeta(target, false)), solana.SubmitOptions{})
	require.Error(t, err)
	txErr, ok = err.(*solana.TransactionError)
	require.True(t, ok)
	require.NotNil(t, txErr.InstructionError())
	assert.Equal(t, solana.InstructionErrorKey("boom"), txErr.InstructionError().ErrorKey())

	// Without preflight the failure lands on chain
	sig, err = submit(t, cluster, priv, solana.NewInstruction(programID, []byte{0xff, 1}, solana.NewAccountMeta(target, false)), solana.SubmitOptions{SkipPreflight: true})
	require.NoError(t, err)
	status, err = cluster.GetSignatureStatus(sig)
	require.NoError(t, err)
	require.NotNil(t, status.ErrorResult)

	// State untouched by failures
	info, err = cluster.GetAccountInfo(target, solana.CommitmentConfirmed)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, info.Data)

	assert.Equal(t, 4, executions)
	assert.Equal(t, 4, cluster.Calls(MethodSendTransaction))
	assert.Equal(t, 2, cluster.Calls(MethodGetSignatureStatuses))

	// Unknown program
	unknown, _ := newKeypair(t)
	_, err = submit(t, cluster, priv, solana.NewInstruction(unknown, nil), solana.SubmitOptions{})
	txErr, ok = err.(*solana.TransactionError)
	require.True(t, ok)
	assert.Equal(t, solana.TransactionErrorProgramAccountNotFound, txErr.ErrorKey())
}

func TestCluster_SignatureChecks(t *testing.T) {
	cluster := NewCluster()
	programID, _ := newKeypair(t)
	cluster.RegisterProgram(programID, ProgramFunc(func(*Invocation, solana.Instruction) error { return nil }))

	payer, priv := newKeypair(t)

	latest, err := cluster.GetLatestBlockhash(solana.CommitmentConfirmed)
	require.NoError(t, err)

	txn := solana.NewTransaction(payer, solana.NewInstruction(programID, []byte{1}))
	txn.SetBlockhash(latest.Blockhash)

	// Unsigned
	_, err = cluster.SubmitTransaction(txn, solana.SubmitOptions{})
	txErr, ok := err.(*solana.TransactionError)
	require.True(t, ok)
	assert.Equal(t, solana.TransactionErrorSignatureFailure, txErr.ErrorKey())

	require.NoError(t, txn.Sign(priv))
	_, err = cluster.SubmitTransaction(txn, solana.SubmitOptions{})
	require.NoError(t, err)

	// Replay
	_, err = cluster.SubmitTransaction(txn, solana.SubmitOptions{})
	txErr, ok = err.(*solana.TransactionError)
	require.True(t, ok)
	assert.Equal(t, solana.TransactionErrorAlreadyProcessed, txErr.ErrorKey())
}

func TestCluster_BlockhashExpiry(t *testing.T) {
	cluster := NewCluster()
	programID, _ := newKeypair(t)
	cluster.RegisterProgram(programID, ProgramFunc(func(*Invocation, solana.Instruction) error { return nil }))

	_, priv := newKeypair(t)
	ix := solana.NewInstruction(programID, []byte{1})

	first, err := cluster.GetLatestBlockhash(solana.CommitmentConfirmed)
	require.NoError(t, err)
	second, err := cluster.GetLatestBlockhash(solana.CommitmentConfirmed)
	require.NoError(t, err)
	assert.NotEqual(t, first.Blockhash, second.Blockhash)
	assert.EqualValues(t, 1+maxProcessingAge, first.LastValidBlockHeight)

	cluster.ExpireNextSubmissions(1)
	_, err = submit(t, cluster, priv, ix, solana.SubmitOptions{})
	txErr, ok := err.(*solana.TransactionError)
	require.True(t, ok)
	assert.True(t, txErr.IsBlockhashNotFound())

	_, err = submit(t, cluster, priv, ix, solana.SubmitOptions{})
	require.NoError(t, err)

	// Aged out blockhash
	latest, err := cluster.GetLatestBlockhash(solana.CommitmentConfirmed)
	require.NoError(t, err)
	cluster.AdvanceBlockHeight(maxProcessingAge + 1)

	height, err := cluster.GetBlockHeight(solana.CommitmentConfirmed)
	require.NoError(t, err)
	assert.True(t, height > latest.LastValidBlockHeight)

	txn := solana.NewTransaction(priv.Public().(ed25519.PublicKey), solana.NewInstruction(programID, []byte{2}))
	txn.SetBlockhash(latest.Blockhash)
	require.NoError(t, txn.Sign(priv))

	_, err = cluster.SubmitTransaction(txn, solana.SubmitOptions{})
	txErr, ok = err.(*solana.TransactionError)
	require.True(t, ok)
	assert.True(t, txErr.IsBlockhashNotFound())
}

func TestCluster_Confirmation(t *testing.T) {
	cluster := NewCluster()
	programID, _ := newKeypair(t)
	cluster.RegisterProgram(programID, ProgramFunc(func(*Invocation, solana.Instruction) error { return nil }))

	_, priv := newKeypair(t)

	cluster.SetConfirmationPolls(2)
	sig, err := submit(t, cluster, priv, solana.NewInstruction(programID, []byte{1}), solana.SubmitOptions{})
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		status, err := cluster.GetSignatureStatus(sig)
		require.NoError(t, err)
		assert.False(t, status.Confirmed())
		assert.True(t, status.Reached(solana.CommitmentProcessed))
	}

	status, err := cluster.GetSignatureStatus(sig)
	require.NoError(t, err)
	assert.True(t, status.Confirmed())
	assert.False(t, status.Finalized())

	cluster.SetConfirmationPolls(NeverConfirm)
	sig, err = submit(t, cluster, priv, solana.NewInstruction(programID, []byte{2}), solana.SubmitOptions{})
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		status, err := cluster.GetSignatureStatus(sig)
		require.NoError(t, err)
		assert.False(t, status.Confirmed())
	}

	cluster.DropNextSubmissions(1)
	sig, err = submit(t, cluster, priv, solana.NewInstruction(programID, []byte{3}), solana.SubmitOptions{})
	require.NoError(t, err)
	_, err = cluster.GetSignatureStatus(sig)
	assert.Equal(t, solana.ErrSignatureNotFound, err)

	cluster.AdvanceBlockHeightPerPoll(10)
	before, err := cluster.GetBlockHeight(solana.CommitmentConfirmed)
	require.NoError(t, err)
	_, err = cluster.GetSignatureStatus(sig)
	assert.Equal(t, solana.ErrSignatureNotFound, err)
	after, err := cluster.GetBlockHeight(solana.CommitmentConfirmed)
	require.NoError(t, err)
	assert.EqualValues(t, 10, after-before)
}

func TestCluster_FailuresAndCounters(t *testing.T) {
	cluster := NewCluster()
	account, _ := newKeypair(t)

	cluster.FailNext(MethodGetAccountInfo, ErrUnavailable, 2)

	for i := 0; i < 2; i++ {
		_, err := cluster.GetAccountInfo(account, solana.CommitmentConfirmed)
		assert.Equal(t, ErrUnavailable, err)
	}
	_, err := cluster.GetAccountInfo(account, solana.CommitmentConfirmed)
	assert.Equal(t, solana.ErrNoAccountInfo, err)

	assert.Equal(t, 3, cluster.Calls(MethodGetAccountInfo))
	assert.Equal(t, 3, cluster.TotalCalls())

	cluster.ResetCalls()
	assert.Equal(t, 0, cluster.TotalCalls())
}

func TestCluster_Airdrop(t *testing.T) {
	cluster := NewCluster()
	account, _ := newKeypair(t)

	balance, err := cluster.GetBalance(account, solana.CommitmentConfirmed)
	require.NoError(t, err)
	assert.EqualValues(t, 0, balance)

	sig, err := cluster.RequestAirdrop(account, 1_000_000_000, solana.CommitmentConfirmed)
	require.NoError(t, err)

	status, err := cluster.GetSignatureStatus(sig)
	require.NoError(t, err)
	assert.True(t, status.Confirmed())

	balance, err = cluster.GetBalance(account, solana.CommitmentConfirmed)
	require.NoError(t, err)
	assert.EqualValues(t, 1_000_000_000, balance)

	rent, err := cluster.GetMinimumBalanceForRentExemption(0)
	require.NoError(t, err)
	assert.EqualValues(t, 890880, rent)
}

func submit(t *testing.T, cluster *Cluster, priv ed25519.PrivateKey, ix solana.Instruction, opts solana.SubmitOptions) (solana.Signature, error) {
	latest, err := cluster.GetLatestBlockhash(solana.CommitmentConfirmed)
	require.NoError(t, err)

	txn := solana.NewTransaction(priv.Public().(ed25519.PublicKey), ix)
	txn.SetBlockhash(latest.Blockhash)
	require.NoError(t, txn.Sign(priv))

	return cluster.SubmitTransaction(txn, opts)
}

func newKeypair(t *testing.T) (ed25519.PublicKey, ed25519.PrivateKey) {
	pub, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	return pub, priv
}
