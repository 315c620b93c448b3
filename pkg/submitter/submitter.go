// Package submitter signs profile program instructions with a wallet, sends
// them and waits for confirmation.
package submitter

import (
	"context"
	"crypto/ed25519"
	"math"
	"time"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/code-payments/profile-client/pkg/metrics"
	"github.com/code-payments/profile-client/pkg/profile"
	"github.com/code-payments/profile-client/pkg/retry"
	"github.com/code-payments/profile-client/pkg/solana"
	"github.com/code-payments/profile-client/pkg/solana/computebudget"
	"github.com/code-payments/profile-client/pkg/wallet"
)

// TransactionResult is the outcome of a submitted mutation.
type TransactionResult struct {
	Signature solana.Signature
	Confirmed bool
}

type Submitter struct {
	log    *logrus.Entry
	conf   *conf
	client solana.Client
	idl    *profile.IDL
}

func New(client solana.Client, configProvider ConfigProvider) (*Submitter, error) {
	idl, err := profile.DefaultIDL()
	if err != nil {
		return nil, errors.Wrap(err, "failed to load program idl")
	}

	return &Submitter{
		log:    logrus.StandardLogger().WithField("type", "submitter/submitter"),
		conf:   configProvider(),
		client: client,
		idl:    idl,
	}, nil
}

// Submit builds the instruction of the given kind, has w sign it, sends it and
// blocks until it reaches the configured commitment.
//
// accounts must be exactly the list the program expects for kind, as produced
// by profile.IDL.ResolveAccounts for the wallet's key, otherwise the call fails
// with profile.ErrInvalidAccounts before anything is sent. A transaction whose
// blockhash ages out is rebuilt and resent with a fresh blockhash, up to the
// configured number of times.
//
// On ErrConfirmationTimeout the returned result still carries the signature,
// which can be checked later with GetStatus.
func (s *Submitter) Submit(ctx context.Context, kind profile.InstructionKind, accounts []solana.AccountMeta, args interface{}, w wallet.Wallet) (*TransactionResult, error) {
	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "Submit")
	tracer.AddAttribute("instruction", string(kind))
	defer tracer.End()

	result, err := s.submit(ctx, kind, accounts, args, w)
	tracer.OnError(err)
	return result, err
}

func (s *Submitter) submit(ctx context.Context, kind profile.InstructionKind, accounts []solana.AccountMeta, args interface{}, w wallet.Wallet) (*TransactionResult, error) {
	if err := wallet.Ready(w); err != nil {
		return nil, err
	}
	signer := w.PublicKey()

	log := s.log.WithFields(logrus.Fields{
		"method":      "Submit",
		"instruction": kind,
		"signer":      base58.Encode(signer),
	})

	if err := s.idl.ValidateAccounts(kind, signer, accounts); err != nil {
		return nil, err
	}

	ix, err := profile.NewInstruction(kind, accounts, args)
	if err != nil {
		return nil, err
	}

	commitment, err := solana.ParseCommitment(s.conf.commitment.Get(ctx))
	if err != nil {
		log.WithError(err).Warn("invalid commitment configured, using confirmed")
		commitment = solana.CommitmentConfirmed
	}

	maxRetries := s.conf.maxBlockhashRetries.Get(ctx)
	if maxRetries > blockhashRetryLimit {
		log.WithField("configured", maxRetries).Debug("clamping blockhash retries")
		maxRetries = blockhashRetryLimit
	}
	for attempt := uint64(0); ; attempt++ {
		log := log.WithField("attempt", attempt+1)

		sig, err := s.sendAndConfirm(ctx, log, signer, ix, w, commitment)
		switch {
		case err == nil:
			result := &TransactionResult{Signature: sig, Confirmed: true}
			recordTransactionConfirmedEvent(ctx, kind, result, int(attempt+1))
			log.WithField("signature", sig.String()).Debug("transaction confirmed")
			return result, nil
		case errors.Is(err, ErrConfirmationTimeout):
			log.WithField("signature", sig.String()).Info("transaction not confirmed in time")
			return &TransactionResult{Signature: sig}, err
		case err != errStaleBlockhash:
			return nil, err
		}

		if attempt >= maxRetries {
			log.WithField("signature", sig.String()).Info("blockhash expired, giving up")
			return nil, errors.Wrapf(ErrBlockhashExpired, "after %d attempts", attempt+1)
		}

		recordBlockhashRetry(ctx)
		log.Debug("blockhash expired, rebuilding transaction")
	}
}

// sendAndConfirm runs a single attempt with a fresh blockhash. It returns
// errStaleBlockhash when the attempt can safely be rebuilt, since the
// transaction can no longer land.
func (s *Submitter) sendAndConfirm(
	ctx context.Context,
	log *logrus.Entry,
	signer ed25519.PublicKey,
	ix solana.Instruction,
	w wallet.Wallet,
	commitment solana.Commitment,
) (solana.Signature, error) {
	latest, err := s.client.GetLatestBlockhash(commitment)
	if err != nil {
		return solana.Signature{}, errors.Wrap(err, "failed to get latest blockhash")
	}

	txn := solana.NewTransaction(signer, append(s.budgetInstructions(ctx), ix)...)
	txn.SetBlockhash(latest.Blockhash)

	if err := w.SignTransaction(ctx, &txn); err != nil {
		if err == wallet.ErrWalletDeclined || err == wallet.ErrWalletNotConnected {
			return solana.Signature{}, err
		}
		return solana.Signature{}, errors.Wrap(err, "wallet failed to sign transaction")
	}
	if err := txn.Verify(); err != nil {
		return solana.Signature{}, errors.Wrap(ErrInvalidWalletSignature, err.Error())
	}

	sig, err := s.client.SubmitTransaction(txn, solana.SubmitOptions{
		SkipPreflight:       s.conf.skipPreflight.Get(ctx),
		PreflightCommitment: commitment,
	})
	if err != nil {
		var txErr *solana.TransactionError
		if !errors.As(err, &txErr) {
			return sig, errors.Wrap(err, "failed to submit transaction")
		}

		if txErr.IsBlockhashNotFound() {
			return sig, errStaleBlockhash
		}

		simErr := newSimulationError(sig, txErr, false)
		log.WithError(simErr).WithField("logs", simErr.Logs).Debug("transaction rejected in simulation")
		return sig, simErr
	}

	log.WithField("signature", sig.String()).Debug("transaction submitted")

	return sig, s.awaitConfirmation(ctx, sig, latest.LastValidBlockHeight, commitment)
}

func (s *Submitter) budgetInstructions(ctx context.Context) []solana.Instruction {
	limit := s.conf.computeUnitLimit.Get(ctx)
	if limit > math.MaxUint32 {
		limit = math.MaxUint32
	}
	return computebudget.Instructions(uint32(limit), s.conf.computeUnitPrice.Get(ctx))
}

func (s *Submitter) awaitConfirmation(ctx context.Context, sig solana.Signature, lastValidBlockHeight uint64, commitment solana.Commitment) error {
	start := time.Now()
	timeout := s.conf.confirmationTimeout.Get(ctx)

	pollCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	_, err := retry.Poll(
		pollCtx,
		func() error {
			status, err := s.client.GetSignatureStatus(sig)
			if err == solana.ErrSignatureNotFound {
				height, err := s.client.GetBlockHeight(commitment)
				if err != nil {
					return errors.Wrap(err, "failed to get block height")
				}
				if height > lastValidBlockHeight {
					return errStaleBlockhash
				}
				return errNotConfirmed
			} else if err != nil {
				return errors.Wrap(err, "failed to get signature status")
			}

			if status.ErrorResult != nil {
				return newSimulationError(sig, status.ErrorResult, true)
			}
			if !status.Reached(commitment) {
				return errNotConfirmed
			}
			return nil
		},
		s.conf.pollInterval.Get(ctx),
		retry.NonRetriableErrors(errStaleBlockhash, ErrSimulationRejected),
	)

	switch {
	case err == nil:
		recordConfirmationLatency(ctx, time.Since(start))
		return nil
	case err == errStaleBlockhash, errors.Is(err, ErrSimulationRejected):
		return err
	case ctx.Err() != nil:
		return errors.Wrap(ctx.Err(), "confirmation wait cancelled")
	case pollCtx.Err() != nil:
		return errors.Wrapf(ErrConfirmationTimeout, "%s not %s within %v", sig, commitment, timeout)
	default:
		return err
	}
}

// GetStatus returns the current status of a previously submitted transaction,
// or solana.ErrSignatureNotFound if the cluster has no record of it.
func (s *Submitter) GetStatus(ctx context.Context, sig solana.Signature) (*solana.SignatureStatus, error) {
	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "GetStatus")
	defer tracer.End()

	status, err := s.client.GetSignatureStatus(sig)
	if err != nil && err != solana.ErrSignatureNotFound {
		err = errors.Wrap(err, "failed to get signature status")
	}
	tracer.OnError(err)
	return status, err
}
