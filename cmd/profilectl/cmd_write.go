package main

import (
	"strconv"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/code-payments/profile-client/pkg/profile"
	"github.com/code-payments/profile-client/pkg/solana"
)

func newInitCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize the registry with the connected wallet as its authority",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := c.connectWallet(cmd); err != nil {
				return err
			}

			result, appState, err := c.sync.InitializeApp(c.context(cmd))
			if result != nil {
				printTransactionResult(cmd.OutOrStdout(), result)
			}
			if err != nil {
				return err
			}

			printAppState(cmd.OutOrStdout(), appState)
			return nil
		},
	}
}

func newCreateProfileCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "create-profile <username>",
		Short: "Register a username for the connected wallet",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := c.connectWallet(cmd)
			if err != nil {
				return err
			}

			result, userProfile, err := c.sync.CreateProfile(c.context(cmd), args[0])
			if result != nil {
				printTransactionResult(cmd.OutOrStdout(), result)
			}
			if err != nil {
				return err
			}

			printUserProfile(cmd.OutOrStdout(), w.PublicKey(), userProfile)
			return nil
		},
	}
}

func newAirdropCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "airdrop <lamports>",
		Short: "Request test lamports for the connected wallet",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !c.environment.AllowsAirdrop() {
				return errors.Errorf("airdrops are not available on %s", c.environment)
			}

			lamports, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil || lamports == 0 {
				return errors.Wrapf(profile.ErrInvalidArgument, "invalid lamport amount: %s", args[0])
			}

			w, err := c.connectWallet(cmd)
			if err != nil {
				return err
			}

			sig, err := c.client.RequestAirdrop(w.PublicKey(), lamports, solana.CommitmentConfirmed)
			if err != nil {
				return errors.Wrap(err, "airdrop request failed")
			}

			printLine(cmd.OutOrStdout(), "airdrop of %s SOL requested: %s", formatLamports(lamports), sig)
			printLine(cmd.OutOrStdout(), "check it with: profilectl status %s", sig)
			return nil
		},
	}
}
