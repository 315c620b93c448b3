package profiletest

import (
	"crypto/ed25519"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/code-payments/profile-client/pkg/profile"
	"github.com/code-payments/profile-client/pkg/solana"
	"github.com/code-payments/profile-client/pkg/solana/solanatest"
)

func TestProgram_HappyPath(t *testing.T) {
	cluster := NewCluster()
	cluster.SetClock(func() time.Time { return time.Unix(1700000000, 0) })

	pub, priv := newKeypair(t)

	appState, err := profile.GetAppStateAddress()
	require.NoError(t, err)
	userProfile, err := profile.GetUserProfileAddress(&profile.GetUserProfileAddressArgs{Owner: pub})
	require.NoError(t, err)

	_, err = submit(t, cluster, priv, profile.NewInitializeInstruction(
		&profile.InitializeInstructionAccounts{AppState: appState.Address, Authority: pub},
		&profile.InitializeInstructionArgs{},
	))
	require.NoError(t, err)

	record, err := profile.FetchAccount(cluster, profile.AccountKindAppState, appState.Address, solana.CommitmentConfirmed)
	require.NoError(t, err)
	assert.EqualValues(t, pub, record.(*profile.AppStateAccount).Authority)
	assert.EqualValues(t, 0, record.(*profile.AppStateAccount).TotalUsers)

	_, err = submit(t, cluster, priv, profile.NewCreateUserProfileInstruction(
		&profile.CreateUserProfileInstructionAccounts{UserProfile: userProfile.Address, AppState: appState.Address, Authority: pub},
		&profile.CreateUserProfileInstructionArgs{Username: "alice"},
	))
	require.NoError(t, err)

	record, err = profile.FetchAccount(cluster, profile.AccountKindUserProfile, userProfile.Address, solana.CommitmentConfirmed)
	require.NoError(t, err)
	assert.EqualValues(t, pub, record.(*profile.UserProfileAccount).Owner)
	assert.Equal(t, "alice", record.(*profile.UserProfileAccount).Username)
	assert.EqualValues(t, 1700000000, record.(*profile.UserProfileAccount).CreatedAt)

	record, err = profile.FetchAccount(cluster, profile.AccountKindAppState, appState.Address, solana.CommitmentConfirmed)
	require.NoError(t, err)
	assert.EqualValues(t, 1, record.(*profile.AppStateAccount).TotalUsers)
}

func TestProgram_Rejections(t *testing.T) {
	cluster := NewCluster()
	pub, priv := newKeypair(t)

	appState, err := profile.GetAppStateAddress()
	require.NoError(t, err)
	userProfile, err := profile.GetUserProfileAddress(&profile.GetUserProfileAddressArgs{Owner: pub})
	require.NoError(t, err)

	createProfile := func(username string) solana.Instruction {
		return profile.NewCreateUserProfileInstruction(
			&profile.CreateUserProfileInstructionAccounts{UserProfile: userProfile.Address, AppState: appState.Address, Authority: pub},
			&profile.CreateUserProfileInstructionArgs{Username: username},
		)
	}

	// App state must exist first
	_, err = submit(t, cluster, priv, createProfile("alice"))
	assertCustomError(t, err, profile.ErrAccountNotInitialized)

	initialize := profile.NewInitializeInstruction(
		&profile.InitializeInstructionAccounts{AppState: appState.Address, Authority: pub},
		&profile.InitializeInstructionArgs{},
	)
	_, err = submit(t, cluster, priv, initialize)
	require.NoError(t, err)

	_, err = submit(t, cluster, priv, profile.NewInitializeInstruction(
		&profile.InitializeInstructionAccounts{AppState: appState.Address, Authority: pub},
		&profile.InitializeInstructionArgs{},
	))
	assertCustomError(t, err, profile.ErrAccountAlreadyInUse)

	_, err = submit(t, cluster, priv, createProfile(""))
	assertCustomError(t, err, profile.ErrUsernameEmpty)

	_, err = submit(t, cluster, priv, createProfile(strings.Repeat("x", profile.MaxUsernameLength+1)))
	assertCustomError(t, err, profile.ErrUsernameTooLong)

	// Profile address derived for another owner
	other, _ := newKeypair(t)
	foreign, err := profile.GetUserProfileAddress(&profile.GetUserProfileAddressArgs{Owner: other})
	require.NoError(t, err)
	_, err = submit(t, cluster, priv, profile.NewCreateUserProfileInstruction(
		&profile.CreateUserProfileInstructionAccounts{UserProfile: foreign.Address, AppState: appState.Address, Authority: pub},
		&profile.CreateUserProfileInstructionArgs{Username: "alice"},
	))
	assertCustomError(t, err, profile.ErrConstraintSeeds)

	_, err = submit(t, cluster, priv, createProfile("alice"))
	require.NoError(t, err)

	_, err = submit(t, cluster, priv, createProfile("alice again"))
	assertCustomError(t, err, profile.ErrAccountAlreadyInUse)

	// Failed transactions leave no trace
	record, err := profile.FetchAccount(cluster, profile.AccountKindAppState, appState.Address, solana.CommitmentConfirmed)
	require.NoError(t, err)
	assert.EqualValues(t, 1, record.(*profile.AppStateAccount).TotalUsers)

	record, err = profile.FetchAccount(cluster, profile.AccountKindUserProfile, userProfile.Address, solana.CommitmentConfirmed)
	require.NoError(t, err)
	assert.Equal(t, "alice", record.(*profile.UserProfileAccount).Username)
}

func TestProgram_Logs(t *testing.T) {
	cluster := NewCluster()
	pub, priv := newKeypair(t)

	appState, err := profile.GetAppStateAddress()
	require.NoError(t, err)
	userProfile, err := profile.GetUserProfileAddress(&profile.GetUserProfileAddressArgs{Owner: pub})
	require.NoError(t, err)

	_, err = submit(t, cluster, priv, profile.NewCreateUserProfileInstruction(
		&profile.CreateUserProfileInstructionAccounts{UserProfile: userProfile.Address, AppState: appState.Address, Authority: pub},
		&profile.CreateUserProfileInstructionArgs{Username: "alice"},
	))
	require.Error(t, err)

	txErr, ok := err.(*solana.TransactionError)
	require.True(t, ok)
	require.NotEmpty(t, txErr.Logs)
	assert.Contains(t, txErr.Logs[0], "invoke [1]")
	assert.Contains(t, strings.Join(txErr.Logs, "\n"), "AccountNotInitialized")
}

func submit(t *testing.T, cluster *solanatest.Cluster, priv ed25519.PrivateKey, ix solana.Instruction) (solana.Signature, error) {
	latest, err := cluster.GetLatestBlockhash(solana.CommitmentConfirmed)
	require.NoError(t, err)

	txn := solana.NewTransaction(priv.Public().(ed25519.PublicKey), ix)
	txn.SetBlockhash(latest.Blockhash)
	require.NoError(t, txn.Sign(priv))

	return cluster.SubmitTransaction(txn, solana.SubmitOptions{})
}

func assertCustomError(t *testing.T, err error, expected profile.ProgramError) {
	require.Error(t, err)

	txErr, ok := err.(*solana.TransactionError)
	require.True(t, ok, "unexpected error type %T: %v", err, err)

	code, ok := txErr.CustomErrorCode()
	require.True(t, ok, "not a custom error: %v", err)
	assert.EqualValues(t, expected, code)
}

func newKeypair(t *testing.T) (ed25519.PublicKey, ed25519.PrivateKey) {
	pub, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	return pub, priv
}
