// Package state keeps a wallet session's view of the profile program in sync
// with the chain. Reads always go to the network; mutations are submitted,
// confirmed and then followed by a fresh read of every affected account.
package state

import (
	"context"
	"crypto/ed25519"
	"sync"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/code-payments/profile-client/pkg/metrics"
	"github.com/code-payments/profile-client/pkg/profile"
	"github.com/code-payments/profile-client/pkg/solana"
	"github.com/code-payments/profile-client/pkg/submitter"
	sync_util "github.com/code-payments/profile-client/pkg/sync"
	"github.com/code-payments/profile-client/pkg/wallet"
)

// Snapshot is the program state relevant to the connected wallet.
type Snapshot struct {
	AppState *profile.AppStateAccount

	// UserProfile is always nil without a connected wallet
	UserProfile *profile.UserProfileAccount
}

type Synchronizer struct {
	log       *logrus.Entry
	conf      *conf
	client    solana.Client
	submitter *submitter.Submitter
	idl       *profile.IDL
	cache     *ClientCache

	signerLocks *sync_util.StripedLock

	walletMu sync.RWMutex
	wallet   wallet.Wallet
}

func New(client solana.Client, sub *submitter.Submitter, configProvider ConfigProvider) (*Synchronizer, error) {
	idl, err := profile.DefaultIDL()
	if err != nil {
		return nil, errors.Wrap(err, "failed to load program idl")
	}

	conf := configProvider()
	ctx := context.Background()

	return &Synchronizer{
		log:         logrus.StandardLogger().WithField("type", "state/synchronizer"),
		conf:        conf,
		client:      client,
		submitter:   sub,
		idl:         idl,
		cache:       NewClientCache(int(conf.cacheBudget.Get(ctx))),
		signerLocks: sync_util.NewStripedLock(uint(conf.signerLockStripes.Get(ctx))),
	}, nil
}

// Cache exposes the session cache for display purposes.
func (s *Synchronizer) Cache() *ClientCache {
	return s.cache
}

// Connect starts a session for w. The cache is reset if w identifies as a
// different account than the previous session.
func (s *Synchronizer) Connect(w wallet.Wallet) error {
	if err := wallet.Ready(w); err != nil {
		return err
	}

	s.walletMu.Lock()
	s.wallet = w
	s.walletMu.Unlock()

	if s.cache.Reset(w.PublicKey()) {
		s.log.WithField("wallet", base58.Encode(w.PublicKey())).Debug("wallet session started")
	}
	return nil
}

// Disconnect ends the wallet session and discards the cache.
func (s *Synchronizer) Disconnect() {
	s.walletMu.Lock()
	s.wallet = nil
	s.walletMu.Unlock()

	s.cache.Reset(nil)
}

// currentWallet returns the session wallet, resetting the cache first if the
// wallet now identifies as another account or went away.
func (s *Synchronizer) currentWallet() (wallet.Wallet, error) {
	s.walletMu.RLock()
	w := s.wallet
	s.walletMu.RUnlock()

	if err := wallet.Ready(w); err != nil {
		s.cache.Reset(nil)
		return nil, err
	}

	s.cache.Reset(w.PublicKey())
	return w, nil
}

func (s *Synchronizer) readCommitment(ctx context.Context) solana.Commitment {
	commitment, err := solana.ParseCommitment(s.conf.readCommitment.Get(ctx))
	if err != nil {
		s.log.WithError(err).Warn("invalid read commitment configured, using confirmed")
		return solana.CommitmentConfirmed
	}
	return commitment
}

// GetAppState reads the global app state. A nil record without error means
// the program has not been initialized.
func (s *Synchronizer) GetAppState(ctx context.Context) (*profile.AppStateAccount, error) {
	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "GetAppState")
	defer tracer.End()

	appState, err := s.fetchAppState(ctx)
	tracer.OnError(err)
	return appState, err
}

// GetUserProfile reads the profile of owner. A nil record without error means
// owner has no profile.
func (s *Synchronizer) GetUserProfile(ctx context.Context, owner ed25519.PublicKey) (*profile.UserProfileAccount, error) {
	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "GetUserProfile")
	defer tracer.End()

	userProfile, err := s.fetchUserProfile(ctx, owner)
	tracer.OnError(err)
	return userProfile, err
}

// Refresh reads the app state and, when a wallet is connected, its profile.
func (s *Synchronizer) Refresh(ctx context.Context) (*Snapshot, error) {
	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "Refresh")
	defer tracer.End()

	snapshot, err := s.refresh(ctx)
	tracer.OnError(err)
	return snapshot, err
}

func (s *Synchronizer) refresh(ctx context.Context) (*Snapshot, error) {
	appState, err := s.fetchAppState(ctx)
	if err != nil {
		return nil, err
	}

	snapshot := &Snapshot{AppState: appState}

	w, err := s.currentWallet()
	if err == wallet.ErrWalletNotConnected {
		return snapshot, nil
	} else if err != nil {
		return nil, err
	}

	snapshot.UserProfile, err = s.fetchUserProfile(ctx, w.PublicKey())
	if err != nil {
		return nil, err
	}
	return snapshot, nil
}

// InitializeApp creates the global app state with the connected wallet as
// its authority, then returns the freshly read account.
func (s *Synchronizer) InitializeApp(ctx context.Context) (*submitter.TransactionResult, *profile.AppStateAccount, error) {
	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "InitializeApp")
	defer tracer.End()

	result, appState, err := s.initializeApp(ctx)
	tracer.OnError(err)
	return result, appState, err
}

func (s *Synchronizer) initializeApp(ctx context.Context) (*submitter.TransactionResult, *profile.AppStateAccount, error) {
	w, err := s.currentWallet()
	if err != nil {
		return nil, nil, err
	}
	signer := w.PublicKey()

	result, err := s.mutate(ctx, w, profile.InstructionKindInitialize, nil)
	if err != nil {
		return result, nil, err
	}

	appState, err := s.fetchAppState(ctx)
	if err != nil {
		return result, nil, &RefreshError{Mutation: "app initialization", Err: errors.Wrap(err, "app state")}
	}

	if appState != nil && appState.Authority.Equal(signer) {
		recordAppInitializedEvent(ctx, appState)
	}
	return result, appState, nil
}

// CreateProfile registers username for the connected wallet, then returns the
// freshly read profile. The username is validated before any network call.
func (s *Synchronizer) CreateProfile(ctx context.Context, username string) (*submitter.TransactionResult, *profile.UserProfileAccount, error) {
	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "CreateProfile")
	defer tracer.End()

	result, userProfile, err := s.createProfile(ctx, username)
	tracer.OnError(err)
	return result, userProfile, err
}

func (s *Synchronizer) createProfile(ctx context.Context, username string) (*submitter.TransactionResult, *profile.UserProfileAccount, error) {
	if err := profile.ValidateUsername(username); err != nil {
		return nil, nil, err
	}

	w, err := s.currentWallet()
	if err != nil {
		return nil, nil, err
	}
	owner := w.PublicKey()

	result, err := s.mutate(ctx, w, profile.InstructionKindCreateUserProfile, &profile.CreateUserProfileInstructionArgs{
		Username: username,
	})
	if err != nil {
		return result, nil, err
	}

	userProfile, err := s.fetchUserProfile(ctx, owner)
	if err != nil {
		return result, nil, &RefreshError{Mutation: "profile creation", Err: errors.Wrap(err, "user profile")}
	}

	// The registration count changed along with the profile
	if _, err := s.fetchAppState(ctx); err != nil {
		return result, userProfile, &RefreshError{Mutation: "profile creation", Err: errors.Wrap(err, "app state")}
	}

	if userProfile != nil {
		recordProfileCreatedEvent(ctx, userProfile)
	}
	return result, userProfile, nil
}

// mutate submits a single instruction signed by w. Mutations from the same
// signer are serialized, since a signer is expected to have at most one
// transaction in flight.
func (s *Synchronizer) mutate(ctx context.Context, w wallet.Wallet, kind profile.InstructionKind, args interface{}) (*submitter.TransactionResult, error) {
	signer := w.PublicKey()

	log := s.log.WithFields(logrus.Fields{
		"method":      "mutate",
		"instruction": kind,
		"signer":      base58.Encode(signer),
	})

	unlock := s.signerLocks.Lock(signer)
	defer unlock()

	accounts, err := s.idl.ResolveAccounts(kind, signer)
	if err != nil {
		return nil, err
	}

	result, err := s.submitter.Submit(ctx, kind, accounts, args, w)
	if err != nil {
		log.WithError(err).WithField("kind", Classify(err)).Info("mutation failed")
		return result, err
	}

	log.WithField("signature", result.Signature.String()).Debug("mutation confirmed")
	return result, nil
}

func (s *Synchronizer) fetchAppState(ctx context.Context) (*profile.AppStateAccount, error) {
	address, err := profile.GetAppStateAddress()
	if err != nil {
		return nil, err
	}

	session := s.cache.currentSession()
	record, err := profile.FetchAccount(s.client, profile.AccountKindAppState, address.Address, s.readCommitment(ctx))
	if err == profile.ErrAccountAbsent {
		s.cache.setAppState(session, nil)
		return nil, nil
	} else if err != nil {
		return nil, err
	}

	appState := record.(*profile.AppStateAccount)
	s.cache.setAppState(session, appState)
	return appState, nil
}

func (s *Synchronizer) fetchUserProfile(ctx context.Context, owner ed25519.PublicKey) (*profile.UserProfileAccount, error) {
	address, err := profile.GetUserProfileAddress(&profile.GetUserProfileAddressArgs{Owner: owner})
	if err != nil {
		return nil, errors.Wrap(profile.ErrInvalidArgument, err.Error())
	}

	session := s.cache.currentSession()
	record, err := profile.FetchAccount(s.client, profile.AccountKindUserProfile, address.Address, s.readCommitment(ctx))
	if err == profile.ErrAccountAbsent {
		s.cache.setUserProfile(session, owner, nil)
		return nil, nil
	} else if err != nil {
		return nil, err
	}

	userProfile := record.(*profile.UserProfileAccount)
	s.cache.setUserProfile(session, owner, userProfile)
	return userProfile, nil
}
