// Package profiletest emulates the on-chain profile program on top of a
// solanatest cluster.
package profiletest

import (
	"bytes"
	"crypto/ed25519"

	"github.com/pkg/errors"

	"github.com/code-payments/profile-client/pkg/profile"
	"github.com/code-payments/profile-client/pkg/solana"
	"github.com/code-payments/profile-client/pkg/solana/solanatest"
)

var (
	errInvalidInstructionData   = errors.New(string(solana.InstructionErrorInvalidInstructionData))
	errNotEnoughAccountKeys     = errors.New(string(solana.InstructionErrorNotEnoughAccountKeys))
	errMissingRequiredSignature = errors.New(string(solana.InstructionErrorMissingRequiredSignature))
)

// Program is an emulation of the profile registry program. It enforces the
// same account constraints and error codes as the deployed program.
type Program struct{}

// NewCluster returns a cluster with the profile program deployed at its
// well known address.
func NewCluster() *solanatest.Cluster {
	cluster := solanatest.NewCluster()
	cluster.RegisterProgram(profile.PROGRAM_ID, &Program{})
	return cluster
}

func (p *Program) Execute(inv *solanatest.Invocation, ix solana.Instruction) error {
	kind, args, err := profile.DecodeInstruction(ix.Data)
	if err != nil {
		return errInvalidInstructionData
	}

	switch kind {
	case profile.InstructionKindInitialize:
		inv.Log("Program log: Instruction: Initialize")
		return p.initialize(inv, ix.Accounts)
	case profile.InstructionKindCreateUserProfile:
		inv.Log("Program log: Instruction: CreateUserProfile")
		return p.createUserProfile(inv, ix.Accounts, args.(*profile.CreateUserProfileInstructionArgs))
	default:
		return errInvalidInstructionData
	}
}

func (p *Program) initialize(inv *solanatest.Invocation, accounts []solana.AccountMeta) error {
	if len(accounts) < 3 {
		return errNotEnoughAccountKeys
	}

	appState, authority := accounts[0], accounts[1]

	if err := checkAuthority(authority); err != nil {
		return err
	}

	expected, err := profile.GetAppStateAddress()
	if err != nil {
		return err
	}
	if err := checkPDA(appState, expected.Address); err != nil {
		return err
	}
	if !bytes.Equal(accounts[2].PublicKey, profile.SYSTEM_PROGRAM_ID) {
		return errInvalidInstructionData
	}

	if _, exists := inv.Account(appState.PublicKey); exists {
		inv.Log("Allocate: account Address { address: %s, base: None } already in use", expected)
		return solana.CustomError(profile.ErrAccountAlreadyInUse)
	}

	record := &profile.AppStateAccount{
		Authority:  authority.PublicKey,
		TotalUsers: 0,
	}
	inv.SetAccount(appState.PublicKey, solana.AccountInfo{
		Data:     record.Marshal(),
		Owner:    profile.PROGRAM_ID,
		Lamports: inv.RentExemptBalance(profile.AppStateAccountSize),
	})

	return nil
}

func (p *Program) createUserProfile(inv *solanatest.Invocation, accounts []solana.AccountMeta, args *profile.CreateUserProfileInstructionArgs) error {
	if len(accounts) < 4 {
		return errNotEnoughAccountKeys
	}

	userProfile, appState, authority := accounts[0], accounts[1], accounts[2]

	if err := checkAuthority(authority); err != nil {
		return err
	}

	expectedProfile, err := profile.GetUserProfileAddress(&profile.GetUserProfileAddressArgs{Owner: authority.PublicKey})
	if err != nil {
		return err
	}
	if err := checkPDA(userProfile, expectedProfile.Address); err != nil {
		return err
	}

	expectedAppState, err := profile.GetAppStateAddress()
	if err != nil {
		return err
	}
	if err := checkPDA(appState, expectedAppState.Address); err != nil {
		return err
	}
	if !bytes.Equal(accounts[3].PublicKey, profile.SYSTEM_PROGRAM_ID) {
		return errInvalidInstructionData
	}

	if _, exists := inv.Account(userProfile.PublicKey); exists {
		inv.Log("Allocate: account Address { address: %s, base: None } already in use", expectedProfile)
		return solana.CustomError(profile.ErrAccountAlreadyInUse)
	}

	appStateInfo, ok := inv.Account(appState.PublicKey)
	if !ok {
		inv.Log("Program log: AnchorError caused by account: app_state. Error Code: AccountNotInitialized.")
		return solana.CustomError(profile.ErrAccountNotInitialized)
	}

	var state profile.AppStateAccount
	if err := state.Unmarshal(appStateInfo.Data); err != nil {
		return solana.CustomError(profile.ErrAccountDiscriminatorMismatch)
	}

	if len(args.Username) > profile.MaxUsernameLength {
		inv.Log("Program log: AnchorError occurred. Error Code: UsernameTooLong.")
		return solana.CustomError(profile.ErrUsernameTooLong)
	}
	if len(args.Username) == 0 {
		inv.Log("Program log: AnchorError occurred. Error Code: UsernameEmpty.")
		return solana.CustomError(profile.ErrUsernameEmpty)
	}

	record := &profile.UserProfileAccount{
		Owner:     authority.PublicKey,
		Username:  args.Username,
		CreatedAt: inv.UnixTimestamp(),
	}
	inv.SetAccount(userProfile.PublicKey, solana.AccountInfo{
		Data:     record.Marshal(),
		Owner:    profile.PROGRAM_ID,
		Lamports: inv.RentExemptBalance(profile.UserProfileAccountSize),
	})

	state.TotalUsers++
	appStateInfo.Data = state.Marshal()
	inv.SetAccount(appState.PublicKey, appStateInfo)

	return nil
}

func checkAuthority(authority solana.AccountMeta) error {
	if !authority.IsSigner {
		return errMissingRequiredSignature
	}
	if !authority.IsWritable {
		return solana.CustomError(profile.ErrConstraintMut)
	}
	return nil
}

func checkPDA(account solana.AccountMeta, expected ed25519.PublicKey) error {
	if !bytes.Equal(account.PublicKey, expected) {
		return solana.CustomError(profile.ErrConstraintSeeds)
	}
	if !account.IsWritable {
		return solana.CustomError(profile.ErrConstraintMut)
	}
	return nil
}
