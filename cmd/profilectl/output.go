package main

import (
	"bufio"
	"context"
	"crypto/ed25519"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"

	"github.com/code-payments/profile-client/pkg/profile"
	"github.com/code-payments/profile-client/pkg/solana"
	"github.com/code-payments/profile-client/pkg/state"
	"github.com/code-payments/profile-client/pkg/submitter"
	"github.com/code-payments/profile-client/pkg/wallet"
)

const lamportsPerSol = 1_000_000_000

func printLine(w io.Writer, format string, args ...interface{}) {
	fmt.Fprintf(w, format+"\n", args...)
}

func printAppState(w io.Writer, appState *profile.AppStateAccount) {
	if appState == nil {
		printLine(w, "app state: not initialized")
		return
	}

	printLine(w, "authority:    %s", base58.Encode(appState.Authority))
	printLine(w, "total users:  %d", appState.TotalUsers)
}

func printUserProfile(w io.Writer, owner ed25519.PublicKey, userProfile *profile.UserProfileAccount) {
	if userProfile == nil {
		printLine(w, "%s has no profile", base58.Encode(owner))
		return
	}

	printLine(w, "owner:       %s", base58.Encode(userProfile.Owner))
	printLine(w, "username:    %s", userProfile.Username)
	printLine(w, "created at:  %s", userProfile.CreatedAtTime().Format(time.RFC3339))
}

func printTransactionResult(w io.Writer, result *submitter.TransactionResult) {
	if result.Confirmed {
		printLine(w, "transaction confirmed: %s", result.Signature)
	} else {
		printLine(w, "transaction sent, not yet confirmed: %s", result.Signature)
	}
}

func printSignatureStatus(w io.Writer, sig solana.Signature, status *solana.SignatureStatus) {
	commitment := solana.CommitmentProcessed
	switch {
	case status.Finalized():
		commitment = solana.CommitmentFinalized
	case status.Confirmed():
		commitment = solana.CommitmentConfirmed
	}

	printLine(w, "signature:   %s", sig)
	printLine(w, "slot:        %d", status.Slot)
	printLine(w, "commitment:  %s", commitment)
	if status.ErrorResult != nil {
		printLine(w, "error:       %s", status.ErrorResult.Error())
	}
}

func formatLamports(lamports uint64) string {
	whole := lamports / lamportsPerSol
	fraction := strings.TrimRight(fmt.Sprintf("%09d", lamports%lamportsPerSol), "0")
	if len(fraction) == 0 {
		return fmt.Sprintf("%d", whole)
	}
	return fmt.Sprintf("%d.%s", whole, fraction)
}

// promptApproval asks on out before every signature and reads the answer from
// in. Anything but yes declines.
func promptApproval(in io.Reader, out io.Writer) wallet.ApprovalFunc {
	reader := bufio.NewReader(in)

	return func(_ context.Context, txn *solana.Transaction) (bool, error) {
		fmt.Fprintf(out, "Sign transaction %s with %d instruction(s)? [y/N] ", txn.Message.RecentBlockhash, len(txn.Message.Instructions))

		answer, err := reader.ReadString('\n')
		if err != nil && err != io.EOF {
			return false, errors.Wrap(err, "failed to read approval")
		}

		switch strings.ToLower(strings.TrimSpace(answer)) {
		case "y", "yes":
			return true, nil
		default:
			return false, nil
		}
	}
}

// formatError renders a failure with its classified kind, along with the
// program logs of a rejected transaction.
func formatError(err error) string {
	kind := state.Classify(err)

	var sb strings.Builder
	if kind == state.ErrorKindUnknown {
		fmt.Fprintf(&sb, "error: %v", err)
	} else {
		fmt.Fprintf(&sb, "error (%s): %v", kind, err)
	}

	var simErr *submitter.SimulationError
	if errors.As(err, &simErr) && len(simErr.Logs) > 0 {
		sb.WriteString("\nprogram logs:")
		for _, line := range simErr.Logs {
			sb.WriteString("\n  ")
			sb.WriteString(line)
		}
	}

	switch {
	case kind == state.ErrorKindConfirmationTimeout:
		sb.WriteString("\nthe transaction may still land, check it with the status command")
	case kind == state.ErrorKindRefreshFailed:
		sb.WriteString("\nthe transaction landed, read the account again instead of resubmitting")
	case kind.Retriable():
		sb.WriteString("\nthis may succeed if retried")
	}

	return sb.String()
}
