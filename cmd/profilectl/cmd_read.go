package main

import (
	"crypto/ed25519"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/code-payments/profile-client/pkg/profile"
	"github.com/code-payments/profile-client/pkg/solana"
)

func newAppStateCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "app-state",
		Short: "Show the registry's global state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			appState, err := c.sync.GetAppState(c.context(cmd))
			if err != nil {
				return err
			}

			printAppState(cmd.OutOrStdout(), appState)
			return nil
		},
	}
}

func newProfileCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "profile [owner]",
		Short: "Show the profile of owner, or of the connected wallet",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var owner ed25519.PublicKey
			if len(args) > 0 {
				var err error
				owner, err = parsePublicKey(args[0])
				if err != nil {
					return err
				}
			} else {
				w, err := c.connectWallet(cmd)
				if err != nil {
					return err
				}
				owner = w.PublicKey()
			}

			userProfile, err := c.sync.GetUserProfile(c.context(cmd), owner)
			if err != nil {
				return err
			}

			printUserProfile(cmd.OutOrStdout(), owner, userProfile)
			return nil
		},
	}
}

func newStatusCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "status <signature>",
		Short: "Show the status of a submitted transaction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sig, err := solana.SignatureFromBase58(args[0])
			if err != nil {
				return errors.Wrap(profile.ErrInvalidArgument, err.Error())
			}

			status, err := c.submitter.GetStatus(c.context(cmd), sig)
			if err == solana.ErrSignatureNotFound {
				printLine(cmd.OutOrStdout(), "%s: not found (dropped, expired or not yet seen)", sig)
				return nil
			} else if err != nil {
				return err
			}

			printSignatureStatus(cmd.OutOrStdout(), sig, status)
			return nil
		},
	}
}

func newBalanceCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "balance",
		Short: "Show the connected wallet's balance and the cost of a profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			w, err := c.connectWallet(cmd)
			if err != nil {
				return err
			}

			balance, err := c.client.GetBalance(w.PublicKey(), solana.CommitmentConfirmed)
			if err != nil {
				return errors.Wrap(err, "failed to get balance")
			}

			rent, err := c.client.GetMinimumBalanceForRentExemption(profile.UserProfileAccountSize)
			if err != nil {
				return errors.Wrap(err, "failed to get rent exemption")
			}

			out := cmd.OutOrStdout()
			printLine(out, "wallet:        %s", base58.Encode(w.PublicKey()))
			printLine(out, "balance:       %s SOL", formatLamports(balance))
			printLine(out, "profile rent:  %s SOL", formatLamports(rent))
			return nil
		},
	}
}

func parsePublicKey(value string) (ed25519.PublicKey, error) {
	decoded, err := base58.Decode(value)
	if err != nil {
		return nil, errors.Wrapf(profile.ErrInvalidArgument, "invalid base58 public key: %s", value)
	}
	if len(decoded) != ed25519.PublicKeySize {
		return nil, errors.Wrapf(profile.ErrInvalidArgument, "public key must be %d bytes, got %d", ed25519.PublicKeySize, len(decoded))
	}
	return decoded, nil
}
