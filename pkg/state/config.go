package state

import (
	"github.com/spf13/viper"

	"github.com/code-payments/profile-client/pkg/config"
	"github.com/code-payments/profile-client/pkg/config/env"
	"github.com/code-payments/profile-client/pkg/config/memory"
	"github.com/code-payments/profile-client/pkg/config/viperconf"
	"github.com/code-payments/profile-client/pkg/config/wrapper"
)

const (
	envConfigPrefix   = "STATE_"
	viperConfigPrefix = "state."

	ReadCommitmentConfigEnvName = envConfigPrefix + "READ_COMMITMENT"
	defaultReadCommitment       = "confirmed"

	CacheBudgetConfigEnvName = envConfigPrefix + "CACHE_BUDGET"
	defaultCacheBudget       = 128

	SignerLockStripesConfigEnvName = envConfigPrefix + "SIGNER_LOCK_STRIPES"
	defaultSignerLockStripes       = 16
)

type conf struct {
	readCommitment    config.String
	cacheBudget       config.Uint64
	signerLockStripes config.Uint64
}

// ConfigProvider defines how config values are pulled
type ConfigProvider func() *conf

// WithEnvConfigs returns configuration pulled from environment variables
func WithEnvConfigs() ConfigProvider {
	return func() *conf {
		return &conf{
			readCommitment:    env.NewStringConfig(ReadCommitmentConfigEnvName, defaultReadCommitment),
			cacheBudget:       env.NewUint64Config(CacheBudgetConfigEnvName, defaultCacheBudget),
			signerLockStripes: env.NewUint64Config(SignerLockStripesConfigEnvName, defaultSignerLockStripes),
		}
	}
}

// WithViperConfigs returns configuration pulled from the "state" section of v
func WithViperConfigs(v *viper.Viper) ConfigProvider {
	return func() *conf {
		return &conf{
			readCommitment:    viperconf.NewStringConfig(v, viperConfigPrefix+"read_commitment", defaultReadCommitment),
			cacheBudget:       viperconf.NewUint64Config(v, viperConfigPrefix+"cache_budget", defaultCacheBudget),
			signerLockStripes: viperconf.NewUint64Config(v, viperConfigPrefix+"signer_lock_stripes", defaultSignerLockStripes),
		}
	}
}

type testOverrides struct {
	readCommitment string
	cacheBudget    uint64
}

func withManualTestOverrides(overrides *testOverrides) ConfigProvider {
	return func() *conf {
		return &conf{
			readCommitment:    wrapper.NewStringConfig(memory.NewConfig(overrides.readCommitment), defaultReadCommitment),
			cacheBudget:       wrapper.NewUint64Config(memory.NewConfig(overrides.cacheBudget), defaultCacheBudget),
			signerLockStripes: wrapper.NewUint64Config(memory.NewConfig(uint64(1)), defaultSignerLockStripes),
		}
	}
}
