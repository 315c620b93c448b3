package app

import (
	"github.com/spf13/viper"
)

// BaseConfig contains the process level configuration shared by every
// command. Package level knobs live in their own config sections and are
// read through each package's ConfigProvider.
type BaseConfig struct {
	LogLevel string `mapstructure:"log_level"`

	AppName string `mapstructure:"app_name"`

	// RPCEndpoint is either a cluster moniker (devnet, testnet, mainnet-beta,
	// localnet) or a full RPC URL.
	RPCEndpoint string `mapstructure:"rpc_endpoint"`

	// RPCRequestsPerSecond throttles outbound RPC calls. Zero disables the
	// local limiter.
	RPCRequestsPerSecond float64 `mapstructure:"rpc_requests_per_second"`

	// KeypairPath points at a Solana CLI keypair file
	KeypairPath string `mapstructure:"keypair_path"`

	// Metrics configuration across many providers
	NewRelicLicenseKey string `mapstructure:"new_relic_license_key"`
}

var defaultConfig = BaseConfig{
	LogLevel: "warn",

	AppName: "profilectl",

	RPCEndpoint: "devnet",
}

var envBindings = map[string]string{
	"log_level":               "LOG_LEVEL",
	"app_name":                "APP_NAME",
	"rpc_endpoint":            "RPC_ENDPOINT",
	"rpc_requests_per_second": "RPC_REQUESTS_PER_SECOND",
	"keypair_path":            "KEYPAIR_PATH",
	"new_relic_license_key":   "NEW_RELIC_LICENSE_KEY",
}

// bind registers defaults and environment variables for every base key.
// Registered defaults win over the values of bound flags that were never set.
func bind(v *viper.Viper) {
	v.SetDefault("log_level", defaultConfig.LogLevel)
	v.SetDefault("app_name", defaultConfig.AppName)
	v.SetDefault("rpc_endpoint", defaultConfig.RPCEndpoint)

	for key, env := range envBindings {
		_ = v.BindEnv(key, env)
	}
}
