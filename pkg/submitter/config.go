package submitter

import (
	"time"

	"github.com/spf13/viper"

	"github.com/code-payments/profile-client/pkg/config"
	"github.com/code-payments/profile-client/pkg/config/env"
	"github.com/code-payments/profile-client/pkg/config/memory"
	"github.com/code-payments/profile-client/pkg/config/viperconf"
	"github.com/code-payments/profile-client/pkg/config/wrapper"
	"github.com/code-payments/profile-client/pkg/solana"
)

const (
	envConfigPrefix   = "SUBMITTER_"
	viperConfigPrefix = "submitter."

	ConfirmationTimeoutConfigEnvName = envConfigPrefix + "CONFIRMATION_TIMEOUT"
	defaultConfirmationTimeout       = time.Minute

	PollIntervalConfigEnvName = envConfigPrefix + "POLL_INTERVAL"
	defaultPollInterval       = solana.PollRate

	CommitmentConfigEnvName = envConfigPrefix + "COMMITMENT"
	defaultCommitment       = "confirmed"

	MaxBlockhashRetriesConfigEnvName = envConfigPrefix + "MAX_BLOCKHASH_RETRIES"
	defaultMaxBlockhashRetries       = 1

	// blockhashRetryLimit bounds MaxBlockhashRetries. The setting can only
	// disable the automatic resubmission, never extend it.
	blockhashRetryLimit = 1

	SkipPreflightConfigEnvName = envConfigPrefix + "SKIP_PREFLIGHT"
	defaultSkipPreflight       = false

	// Zero leaves the cluster default in place
	ComputeUnitLimitConfigEnvName = envConfigPrefix + "COMPUTE_UNIT_LIMIT"
	defaultComputeUnitLimit       = 0

	// Priority fee in micro-lamports per compute unit, zero for none
	ComputeUnitPriceConfigEnvName = envConfigPrefix + "COMPUTE_UNIT_PRICE"
	defaultComputeUnitPrice       = 0
)

type conf struct {
	confirmationTimeout config.Duration
	pollInterval        config.Duration
	commitment          config.String
	maxBlockhashRetries config.Uint64
	skipPreflight       config.Bool
	computeUnitLimit    config.Uint64
	computeUnitPrice    config.Uint64
}

// ConfigProvider defines how config values are pulled
type ConfigProvider func() *conf

// WithEnvConfigs returns configuration pulled from environment variables
func WithEnvConfigs() ConfigProvider {
	return func() *conf {
		return &conf{
			confirmationTimeout: env.NewDurationConfig(ConfirmationTimeoutConfigEnvName, defaultConfirmationTimeout),
			pollInterval:        env.NewDurationConfig(PollIntervalConfigEnvName, defaultPollInterval),
			commitment:          env.NewStringConfig(CommitmentConfigEnvName, defaultCommitment),
			maxBlockhashRetries: env.NewUint64Config(MaxBlockhashRetriesConfigEnvName, defaultMaxBlockhashRetries),
			skipPreflight:       env.NewBoolConfig(SkipPreflightConfigEnvName, defaultSkipPreflight),
			computeUnitLimit:    env.NewUint64Config(ComputeUnitLimitConfigEnvName, defaultComputeUnitLimit),
			computeUnitPrice:    env.NewUint64Config(ComputeUnitPriceConfigEnvName, defaultComputeUnitPrice),
		}
	}
}

// WithViperConfigs returns configuration pulled from the "submitter" section
// of v, which covers config files as well as bound flags and environment.
func WithViperConfigs(v *viper.Viper) ConfigProvider {
	return func() *conf {
		return &conf{
			confirmationTimeout: viperconf.NewDurationConfig(v, viperConfigPrefix+"confirmation_timeout", defaultConfirmationTimeout),
			pollInterval:        viperconf.NewDurationConfig(v, viperConfigPrefix+"poll_interval", defaultPollInterval),
			commitment:          viperconf.NewStringConfig(v, viperConfigPrefix+"commitment", defaultCommitment),
			maxBlockhashRetries: viperconf.NewUint64Config(v, viperConfigPrefix+"max_blockhash_retries", defaultMaxBlockhashRetries),
			skipPreflight:       viperconf.NewBoolConfig(v, viperConfigPrefix+"skip_preflight", defaultSkipPreflight),
			computeUnitLimit:    viperconf.NewUint64Config(v, viperConfigPrefix+"compute_unit_limit", defaultComputeUnitLimit),
			computeUnitPrice:    viperconf.NewUint64Config(v, viperConfigPrefix+"compute_unit_price", defaultComputeUnitPrice),
		}
	}
}

type testOverrides struct {
	confirmationTimeout time.Duration
	maxBlockhashRetries uint64
	skipPreflight       bool
	computeUnitLimit    uint64
	computeUnitPrice    uint64
}

func withManualTestOverrides(overrides *testOverrides) ConfigProvider {
	return func() *conf {
		return &conf{
			confirmationTimeout: wrapper.NewDurationConfig(memory.NewConfig(overrides.confirmationTimeout), defaultConfirmationTimeout),
			pollInterval:        wrapper.NewDurationConfig(memory.NewConfig(time.Millisecond), defaultPollInterval),
			commitment:          wrapper.NewStringConfig(memory.NewConfig(defaultCommitment), defaultCommitment),
			maxBlockhashRetries: wrapper.NewUint64Config(memory.NewConfig(overrides.maxBlockhashRetries), defaultMaxBlockhashRetries),
			skipPreflight:       wrapper.NewBoolConfig(memory.NewConfig(overrides.skipPreflight), defaultSkipPreflight),
			computeUnitLimit:    wrapper.NewUint64Config(memory.NewConfig(overrides.computeUnitLimit), defaultComputeUnitLimit),
			computeUnitPrice:    wrapper.NewUint64Config(memory.NewConfig(overrides.computeUnitPrice), defaultComputeUnitPrice),
		}
	}
}
