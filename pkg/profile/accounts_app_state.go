package profile

import (
	"bytes"
	"crypto/ed25519"
	"fmt"

	"github.com/mr-tron/base58"
)

const AppStateAccountSize = (8 + // discriminator
	32 + // authority
	8) // total_users

var appStateAccountDiscriminator = []byte{217, 117, 146, 200, 12, 223, 18, 55}

// AppStateAccount is the program wide singleton holding the initializing
// authority and the number of registered profiles.
type AppStateAccount struct {
	Authority  ed25519.PublicKey
	TotalUsers uint64
}

func (obj *AppStateAccount) Kind() AccountKind {
	return AccountKindAppState
}

func (obj *AppStateAccount) Clone() *AppStateAccount {
	authority := make([]byte, len(obj.Authority))
	copy(authority, obj.Authority)

	return &AppStateAccount{
		Authority:  authority,
		TotalUsers: obj.TotalUsers,
	}
}

func (obj *AppStateAccount) Marshal() []byte {
	data := make([]byte, AppStateAccountSize)

	var offset int

	putDiscriminator(data, appStateAccountDiscriminator, &offset)
	putKey(data, obj.Authority, &offset)
	putUint64(data, obj.TotalUsers, &offset)

	return data
}

// Unmarshal decodes account data. Trailing bytes past the layout are
// tolerated, matching how Anchor reads over-allocated accounts.
func (obj *AppStateAccount) Unmarshal(data []byte) error {
	if len(data) < AppStateAccountSize {
		return ErrSchemaMismatch
	}

	var offset int
	var discriminator []byte

	getDiscriminator(data, &discriminator, &offset)
	if !bytes.Equal(discriminator, appStateAccountDiscriminator) {
		return ErrSchemaMismatch
	}

	getKey(data, &obj.Authority, &offset)
	getUint64(data, &obj.TotalUsers, &offset)

	return nil
}

func (obj *AppStateAccount) String() string {
	var authority string
	if obj.Authority != nil {
		authority = base58.Encode(obj.Authority)
	}

	return fmt.Sprintf(
		"AppStateAccount{authority=%s,total_users=%d}",
		authority,
		obj.TotalUsers,
	)
}
