package profile

import (
	"crypto/ed25519"

	"github.com/code-payments/profile-client/pkg/solana"
)

var (
	appStatePrefix    = []byte("app_state")
	userProfilePrefix = []byte("user_profile")
)

// GetAppStateAddress returns the singleton app state account address.
func GetAppStateAddress() (solana.ProgramAddress, error) {
	return solana.DeriveProgramAddress(
		PROGRAM_ID,
		appStatePrefix,
	)
}

type GetUserProfileAddressArgs struct {
	Owner ed25519.PublicKey
}

func GetUserProfileAddress(args *GetUserProfileAddressArgs) (solana.ProgramAddress, error) {
	if len(args.Owner) != ed25519.PublicKeySize {
		return solana.ProgramAddress{}, solana.ErrInvalidPublicKey
	}

	return solana.DeriveProgramAddress(
		PROGRAM_ID,
		userProfilePrefix,
		args.Owner,
	)
}
