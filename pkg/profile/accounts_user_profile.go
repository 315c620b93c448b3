package profile

import (
	"bytes"
	"crypto/ed25519"
	"fmt"
	"time"

	"github.com/mr-tron/base58"
)

// UserProfileAccountSize is the allocated size of a profile account, which
// reserves room for the longest allowed username.
const UserProfileAccountSize = (8 + // discriminator
	32 + // owner
	4 + MaxUsernameLength + // username
	8) // created_at

var userProfileAccountDiscriminator = []byte{32, 37, 119, 205, 179, 180, 13, 194}

// minUserProfileAccountSize is the smallest encoding, with an empty username
const minUserProfileAccountSize = 8 + 32 + 4 + 8

type UserProfileAccount struct {
	Owner     ed25519.PublicKey
	Username  string
	CreatedAt int64
}

func (obj *UserProfileAccount) Kind() AccountKind {
	return AccountKindUserProfile
}

func (obj *UserProfileAccount) Clone() *UserProfileAccount {
	owner := make([]byte, len(obj.Owner))
	copy(owner, obj.Owner)

	return &UserProfileAccount{
		Owner:     owner,
		Username:  obj.Username,
		CreatedAt: obj.CreatedAt,
	}
}

// CreatedAtTime is the cluster unix timestamp of profile creation.
func (obj *UserProfileAccount) CreatedAtTime() time.Time {
	return time.Unix(obj.CreatedAt, 0).UTC()
}

// Marshal encodes the profile into a buffer of UserProfileAccountSize bytes,
// zero padded after the created_at field as the program allocates it.
func (obj *UserProfileAccount) Marshal() []byte {
	size := UserProfileAccountSize
	if len(obj.Username) > MaxUsernameLength {
		size = minUserProfileAccountSize + len(obj.Username)
	}
	data := make([]byte, size)

	var offset int

	putDiscriminator(data, userProfileAccountDiscriminator, &offset)
	putKey(data, obj.Owner, &offset)
	putString(data, obj.Username, &offset)
	putInt64(data, obj.CreatedAt, &offset)

	return data
}

func (obj *UserProfileAccount) Unmarshal(data []byte) error {
	if len(data) < minUserProfileAccountSize {
		return ErrSchemaMismatch
	}

	var offset int
	var discriminator []byte

	getDiscriminator(data, &discriminator, &offset)
	if !bytes.Equal(discriminator, userProfileAccountDiscriminator) {
		return ErrSchemaMismatch
	}

	getKey(data, &obj.Owner, &offset)

	if !getString(data, &obj.Username, MaxUsernameLength, &offset) {
		return ErrSchemaMismatch
	}

	if len(data)-offset < 8 {
		return ErrSchemaMismatch
	}
	getInt64(data, &obj.CreatedAt, &offset)

	return nil
}

func (obj *UserProfileAccount) String() string {
	var owner string
	if obj.Owner != nil {
		owner = base58.Encode(obj.Owner)
	}

	return fmt.Sprintf(
		"UserProfileAccount{owner=%s,username=%q,created_at=%d}",
		owner,
		obj.Username,
		obj.CreatedAt,
	)
}
