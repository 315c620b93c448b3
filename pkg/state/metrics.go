package state

import (
	"context"

	"github.com/mr-tron/base58"

	"github.com/code-payments/profile-client/pkg/metrics"
	"github.com/code-payments/profile-client/pkg/profile"
)

const (
	metricsStructName = "state.synchronizer"

	appInitializedEventName = "AppStateInitialized"
	profileCreatedEventName = "UserProfileCreated"
)

func recordAppInitializedEvent(ctx context.Context, appState *profile.AppStateAccount) {
	metrics.RecordEvent(ctx, appInitializedEventName, map[string]interface{}{
		"authority": base58.Encode(appState.Authority),
	})
}

func recordProfileCreatedEvent(ctx context.Context, userProfile *profile.UserProfileAccount) {
	metrics.RecordEvent(ctx, profileCreatedEventName, map[string]interface{}{
		"owner":    base58.Encode(userProfile.Owner),
		"username": userProfile.Username,
	})
}
