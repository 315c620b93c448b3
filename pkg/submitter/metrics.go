package submitter

import (
	"context"
	"time"

	"github.com/code-payments/profile-client/pkg/metrics"
	"github.com/code-payments/profile-client/pkg/profile"
)

const (
	metricsStructName = "submitter.submitter"

	blockhashRetryMetricName      = "Submitter/blockhash_retry_count"
	confirmationLatencyMetricName = "Submitter/confirmation_latency"

	transactionConfirmedEventName = "ProfileTransactionConfirmed"
)

func recordBlockhashRetry(ctx context.Context) {
	metrics.RecordCount(ctx, blockhashRetryMetricName, 1)
}

func recordConfirmationLatency(ctx context.Context, latency time.Duration) {
	metrics.RecordDuration(ctx, confirmationLatencyMetricName, latency)
}

func recordTransactionConfirmedEvent(ctx context.Context, kind profile.InstructionKind, result *TransactionResult, attempts int) {
	metrics.RecordEvent(ctx, transactionConfirmedEventName, map[string]interface{}{
		"instruction": string(kind),
		"signature":   result.Signature.String(),
		"attempts":    attempts,
	})
}
