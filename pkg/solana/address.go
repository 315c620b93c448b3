package solana

import (
	"bytes"
	"crypto/ed25519"
	"crypto/sha256"
	"math"

	"github.com/jdgcs/ed25519/edwards25519"
	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
)

const (
	maxSeeds      = 16
	maxSeedLength = 32

	programDerivedAddressMarker = "ProgramDerivedAddress"
)

var (
	ErrTooManySeeds          = errors.New("too many seeds")
	ErrMaxSeedLengthExceeded = errors.New("max seed length exceeded")

	ErrInvalidPublicKey = errors.New("invalid public key")

	// ErrDerivationExhausted indicates that no bump in [0, 255] produced an
	// address off the ed25519 curve. It points at a broken seed scheme.
	ErrDerivationExhausted = errors.New("program address derivation exhausted")
)

var (
	programHashCtor = sha256.New
)

// ProgramAddress is a program derived address along with the bump seed that
// was used to push it off the curve.
type ProgramAddress struct {
	Address ed25519.PublicKey
	Bump    uint8
}

func (p ProgramAddress) String() string {
	return base58.Encode(p.Address)
}

// Equal returns whether two program addresses share the same address and bump.
func (p ProgramAddress) Equal(other ProgramAddress) bool {
	return p.Bump == other.Bump && bytes.Equal(p.Address, other.Address)
}

// CreateProgramAddress mirrors the implementation of the Solana SDK's CreateProgramAddress.
//
// ProgramAddresses are public keys that _do not_ lie on the ed25519 curve to ensure that
// there is no associated private key. In the event that the program and seed parameters
// result in a valid public key, ErrInvalidPublicKey is returned.
//
// Reference: https://github.com/solana-labs/solana/blob/5548e599fe4920b71766e0ad1d121755ce9c63d5/sdk/program/src/pubkey.rs#L158
func CreateProgramAddress(program ed25519.PublicKey, seeds ...[]byte) (ed25519.PublicKey, error) {
	if len(seeds) > maxSeeds {
		return nil, ErrTooManySeeds
	}

	h := programHashCtor()
	for _, s := range seeds {
		if len(s) > maxSeedLength {
			return nil, ErrMaxSeedLengthExceeded
		}

		if _, err := h.Write(s); err != nil {
			return nil, errors.Wrap(err, "failed to hash seed")
		}
	}

	for _, v := range [][]byte{program, []byte(programDerivedAddressMarker)} {
		if _, err := h.Write(v); err != nil {
			return nil, errors.Wrap(err, "failed to hash seed")
		}
	}

	hash := h.Sum(nil)
	var pub [32]byte
	copy(pub[:], hash)

	// A candidate that decompresses into a valid EdwardsPoint has a private
	// key somewhere, so it is rejected.
	//
	// The edwards25519.ExtendedGroupElement type is internal to golang.org/x/crypto,
	// so the check relies on the jdgcs fork that still exports it.
	//
	// Reference: https://github.com/solana-labs/solana/blob/5548e599fe4920b71766e0ad1d121755ce9c63d5/sdk/program/src/pubkey.rs#L182-L187
	var A edwards25519.ExtendedGroupElement
	if A.FromBytes(&pub) {
		return nil, ErrInvalidPublicKey
	}

	return pub[:], nil
}

// FindProgramAddressAndBump mirrors the Solana SDK's FindProgramAddress. The
// bump seed is appended as a single trailing byte, starting at 255 and walking
// down to 0. The first candidate off the curve wins.
//
// Reference: https://github.com/solana-labs/solana/blob/5548e599fe4920b71766e0ad1d121755ce9c63d5/sdk/program/src/pubkey.rs#L234
func FindProgramAddressAndBump(program ed25519.PublicKey, seeds ...[]byte) (ed25519.PublicKey, uint8, error) {
	// Copy so the caller's backing array never sees the bump byte.
	candidateSeeds := make([][]byte, len(seeds), len(seeds)+1)
	copy(candidateSeeds, seeds)

	bumpSeed := []byte{math.MaxUint8}
	for bump := math.MaxUint8; bump >= 0; bump-- {
		bumpSeed[0] = byte(bump)

		pub, err := CreateProgramAddress(program, append(candidateSeeds, bumpSeed)...)
		if err == nil {
			return pub, bumpSeed[0], nil
		}
		if err != ErrInvalidPublicKey {
			return nil, 0, err
		}
	}

	return nil, 0, ErrDerivationExhausted
}

// FindProgramAddress mirrors the implementation of the Solana SDK's FindProgramAddress.
// It only returns the address.
func FindProgramAddress(program ed25519.PublicKey, seeds ...[]byte) (ed25519.PublicKey, error) {
	pub, _, err := FindProgramAddressAndBump(program, seeds...)
	return pub, err
}

// DeriveProgramAddress is FindProgramAddressAndBump packaged as a ProgramAddress.
// It is a pure function of its inputs.
func DeriveProgramAddress(program ed25519.PublicKey, seeds ...[]byte) (ProgramAddress, error) {
	if len(program) != ed25519.PublicKeySize {
		return ProgramAddress{}, errors.Errorf("invalid program id length: %d", len(program))
	}

	pub, bump, err := FindProgramAddressAndBump(program, seeds...)
	if err != nil {
		return ProgramAddress{}, err
	}

	return ProgramAddress{
		Address: pub,
		Bump:    bump,
	}, nil
}

// IsOnCurve reports whether the public key is a valid compressed ed25519 point.
// Wallet keys are on the curve, program derived addresses are not.
func IsOnCurve(pub ed25519.PublicKey) bool {
	if len(pub) != ed25519.PublicKeySize {
		return false
	}

	var raw [32]byte
	copy(raw[:], pub)

	var A edwards25519.ExtendedGroupElement
	return A.FromBytes(&raw)
}
