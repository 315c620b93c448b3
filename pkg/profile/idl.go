package profile

import (
	"bytes"
	"crypto/ed25519"
	_ "embed"
	"encoding/json"
	"sync"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"

	"github.com/code-payments/profile-client/pkg/solana"
)

//go:embed idl.json
var embeddedIDL []byte

var (
	defaultIDLOnce sync.Once
	defaultIDL     *IDL
	defaultIDLErr  error
)

// IDL is the Anchor interface description of the profile program.
type IDL struct {
	Version      string           `json:"version"`
	Name         string           `json:"name"`
	Instructions []IDLInstruction `json:"instructions"`
	Accounts     []IDLAccountDef  `json:"accounts"`
	Errors       []IDLErrorCode   `json:"errors"`
	Metadata     IDLMetadata      `json:"metadata"`

	programID ed25519.PublicKey
}

type IDLInstruction struct {
	Name     string       `json:"name"`
	Accounts []IDLAccount `json:"accounts"`
	Args     []IDLField   `json:"args"`
}

type IDLAccount struct {
	Name     string  `json:"name"`
	IsMut    bool    `json:"isMut"`
	IsSigner bool    `json:"isSigner"`
	PDA      *IDLPDA `json:"pda,omitempty"`
}

type IDLPDA struct {
	Seeds []IDLSeed `json:"seeds"`
}

// IDLSeed is one element of a PDA seed scheme. Constant seeds carry a Value,
// account seeds carry the Path of another account in the same instruction.
type IDLSeed struct {
	Kind  string `json:"kind"`
	Type  string `json:"type"`
	Value string `json:"value,omitempty"`
	Path  string `json:"path,omitempty"`
}

type IDLAccountDef struct {
	Name          string  `json:"name"`
	Discriminator []byte  `json:"-"`
	Type          IDLType `json:"type"`
}

type IDLType struct {
	Kind   string     `json:"kind"`
	Fields []IDLField `json:"fields"`
}

type IDLField struct {
	Name      string `json:"name"`
	Type      string `json:"type"`
	MaxLength int    `json:"maxLength,omitempty"`
}

type IDLErrorCode struct {
	Code int    `json:"code"`
	Name string `json:"name"`
	Msg  string `json:"msg"`
}

type IDLMetadata struct {
	Address string `json:"address"`
}

// UnmarshalJSON reads the discriminator as a list of numbers, since
// encoding/json would otherwise expect base64 for a []byte.
func (a *IDLAccountDef) UnmarshalJSON(data []byte) error {
	type alias IDLAccountDef
	raw := struct {
		*alias
		Discriminator []int `json:"discriminator"`
	}{alias: (*alias)(a)}

	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	a.Discriminator = nil
	if raw.Discriminator != nil {
		a.Discriminator = make([]byte, len(raw.Discriminator))
		for i, v := range raw.Discriminator {
			if v < 0 || v > 255 {
				return errors.Errorf("invalid discriminator byte: %d", v)
			}
			a.Discriminator[i] = byte(v)
		}
	}
	return nil
}

// DefaultIDL returns the IDL embedded in this package. It is parsed and
// validated once and must not be modified by callers.
func DefaultIDL() (*IDL, error) {
	defaultIDLOnce.Do(func() {
		defaultIDL, defaultIDLErr = ParseIDL(embeddedIDL)
	})
	return defaultIDL, defaultIDLErr
}

// ParseIDL parses an Anchor IDL document and checks it against the layouts
// compiled into this package.
func ParseIDL(data []byte) (*IDL, error) {
	var idl IDL
	if err := json.Unmarshal(data, &idl); err != nil {
		return nil, errors.Wrap(err, "malformed idl")
	}

	if err := idl.validate(); err != nil {
		return nil, err
	}

	return &idl, nil
}

// Layouts the codec in this package reads and writes. An IDL describing
// anything else cannot be served by it.
var (
	compiledAccountFields = map[AccountKind][]IDLField{
		AccountKindAppState: {
			{Name: "authority", Type: "publicKey"},
			{Name: "totalUsers", Type: "u64"},
		},
		AccountKindUserProfile: {
			{Name: "owner", Type: "publicKey"},
			{Name: "username", Type: "string", MaxLength: MaxUsernameLength},
			{Name: "createdAt", Type: "i64"},
		},
	}
	compiledInstructionArgs = map[InstructionKind][]IDLField{
		InstructionKindInitialize:        nil,
		InstructionKindCreateUserProfile: {{Name: "username", Type: "string"}},
	}
)

func (idl *IDL) validate() error {
	programID, err := base58.Decode(idl.Metadata.Address)
	if err != nil || len(programID) != ed25519.PublicKeySize {
		return errors.Errorf("idl has an invalid program address: %q", idl.Metadata.Address)
	}
	if !bytes.Equal(programID, PROGRAM_ID) {
		return errors.Errorf("idl describes program %s, not %s", idl.Metadata.Address, base58.Encode(PROGRAM_ID))
	}
	idl.programID = programID

	for i := range idl.Accounts {
		def := &idl.Accounts[i]

		expected := accountDiscriminator(def.Name)
		if def.Discriminator == nil {
			def.Discriminator = expected
		}
		if !bytes.Equal(def.Discriminator, expected) {
			return errors.Errorf("idl discriminator for account %s does not match", def.Name)
		}
	}

	for _, kind := range []AccountKind{AccountKindAppState, AccountKindUserProfile} {
		def := idl.Account(string(kind))
		if def == nil {
			return errors.Errorf("idl is missing account %s", kind)
		}
		if def.Type.Kind != "struct" {
			return errors.Errorf("idl account %s is a %s, not a struct", kind, def.Type.Kind)
		}
		if err := matchFields(def.Type.Fields, compiledAccountFields[kind]); err != nil {
			return errors.Wrapf(err, "idl account %s", kind)
		}
	}

	for _, kind := range []InstructionKind{InstructionKindInitialize, InstructionKindCreateUserProfile} {
		ix := idl.Instruction(string(kind))
		if ix == nil {
			return errors.Errorf("idl is missing instruction %s", kind)
		}
		if err := matchFields(ix.Args, compiledInstructionArgs[kind]); err != nil {
			return errors.Wrapf(err, "idl instruction %s args", kind)
		}

		names := make(map[string]struct{})
		for _, account := range ix.Accounts {
			names[account.Name] = struct{}{}
		}
		for _, account := range ix.Accounts {
			if account.PDA == nil {
				continue
			}
			for _, seed := range account.PDA.Seeds {
				switch seed.Kind {
				case "const":
				case "account":
					if _, ok := names[seed.Path]; !ok {
						return errors.Errorf("idl seed for %s.%s references unknown account %s", ix.Name, account.Name, seed.Path)
					}
				default:
					return errors.Errorf("idl seed for %s.%s has unsupported kind %s", ix.Name, account.Name, seed.Kind)
				}
			}
		}
	}

	for _, e := range idl.Errors {
		pe, ok := ProgramErrorFromCode(e.Code)
		if !ok || pe.Name() != e.Name {
			return errors.Errorf("idl error %d (%s) is not a known program error", e.Code, e.Name)
		}
	}

	return nil
}

func matchFields(actual, expected []IDLField) error {
	if len(actual) != len(expected) {
		return errors.Errorf("expected %d fields, got %d", len(expected), len(actual))
	}
	for i := range expected {
		if actual[i] != expected[i] {
			return errors.Errorf("field %d: expected %s:%s, got %s:%s", i, expected[i].Name, expected[i].Type, actual[i].Name, actual[i].Type)
		}
	}
	return nil
}

// ProgramID is the program address from the IDL metadata.
func (idl *IDL) ProgramID() ed25519.PublicKey {
	return idl.programID
}

func (idl *IDL) Account(name string) *IDLAccountDef {
	for i := range idl.Accounts {
		if idl.Accounts[i].Name == name {
			return &idl.Accounts[i]
		}
	}
	return nil
}

func (idl *IDL) Instruction(name string) *IDLInstruction {
	for i := range idl.Instructions {
		if idl.Instructions[i].Name == name {
			return &idl.Instructions[i]
		}
	}
	return nil
}

// ResolveAccounts builds the ordered account list the program expects for an
// instruction signed by signer. PDA accounts are derived from their seed
// description.
func (idl *IDL) ResolveAccounts(kind InstructionKind, signer ed25519.PublicKey) ([]solana.AccountMeta, error) {
	ix := idl.Instruction(string(kind))
	if ix == nil {
		return nil, errors.Errorf("unknown instruction: %s", kind)
	}
	if len(signer) != ed25519.PublicKeySize {
		return nil, errors.Wrap(ErrInvalidArgument, "invalid signer")
	}

	resolved := make(map[string]ed25519.PublicKey)

	// Plain accounts first, since PDA seeds may point at them
	for _, account := range ix.Accounts {
		if account.PDA != nil {
			continue
		}

		switch {
		case account.IsSigner:
			resolved[account.Name] = signer
		case account.Name == "systemProgram":
			resolved[account.Name] = SYSTEM_PROGRAM_ID
		default:
			return nil, errors.Errorf("cannot resolve account %s.%s", ix.Name, account.Name)
		}
	}

	for _, account := range ix.Accounts {
		if account.PDA == nil {
			continue
		}

		seeds := make([][]byte, 0, len(account.PDA.Seeds))
		for _, seed := range account.PDA.Seeds {
			switch seed.Kind {
			case "const":
				seeds = append(seeds, []byte(seed.Value))
			case "account":
				key, ok := resolved[seed.Path]
				if !ok {
					return nil, errors.Errorf("cannot resolve seed %s for %s.%s", seed.Path, ix.Name, account.Name)
				}
				seeds = append(seeds, key)
			}
		}

		pda, err := solana.DeriveProgramAddress(idl.programID, seeds...)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to derive %s.%s", ix.Name, account.Name)
		}
		resolved[account.Name] = pda.Address
	}

	metas := make([]solana.AccountMeta, len(ix.Accounts))
	for i, account := range ix.Accounts {
		metas[i] = solana.AccountMeta{
			PublicKey:  resolved[account.Name],
			IsSigner:   account.IsSigner,
			IsWritable: account.IsMut,
		}
	}
	return metas, nil
}

// ValidateAccounts checks that accounts is exactly the list the program
// expects for kind when signed by signer, including PDA addresses and flags.
func (idl *IDL) ValidateAccounts(kind InstructionKind, signer ed25519.PublicKey, accounts []solana.AccountMeta) error {
	expected, err := idl.ResolveAccounts(kind, signer)
	if err != nil {
		return errors.Wrap(ErrInvalidAccounts, err.Error())
	}

	if len(accounts) != len(expected) {
		return errors.Wrapf(ErrInvalidAccounts, "%s expects %d accounts, got %d", kind, len(expected), len(accounts))
	}

	ix := idl.Instruction(string(kind))
	for i := range expected {
		if !expected[i].Matches(accounts[i]) {
			return errors.Wrapf(ErrInvalidAccounts, "%s account %d (%s): expected %s, got %s", kind, i, ix.Accounts[i].Name, expected[i], accounts[i])
		}
	}

	return nil
}
