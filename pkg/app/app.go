// Package app bootstraps command line processes: config loading, logging and
// the optional New Relic agent.
package app

import (
	"os"
	"strings"

	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	metrics_util "github.com/code-payments/profile-client/pkg/metrics"
)

// Load reads configPath, if it exists, into v and decodes the base config.
// Environment variables override file values. Nested keys map to variables
// with dots replaced by underscores, so "submitter.commitment" is read from
// SUBMITTER_COMMITMENT.
func Load(v *viper.Viper, configPath string) (BaseConfig, error) {
	bind(v)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// viper.ReadInConfig only returns ConfigFileNotFoundError if it has to search
	// for a default config file because one hasn't been explicitly set. That is,
	// if we explicitly set a config file, and it does not exist, viper will not
	// return a ConfigFileNotFoundError, so we do it ourselves.
	if len(configPath) > 0 {
		if _, err := os.Stat(configPath); err == nil {
			v.SetConfigFile(configPath)

			if err := v.ReadInConfig(); err != nil {
				return BaseConfig{}, errors.Wrapf(err, "failed to load config from %s", configPath)
			}
		} else if !os.IsNotExist(err) {
			return BaseConfig{}, errors.Wrap(err, "failed to check if config exists")
		}
	}

	config := defaultConfig
	if err := v.Unmarshal(&config); err != nil {
		return BaseConfig{}, errors.Wrap(err, "failed to unmarshal config")
	}

	if len(config.AppName) == 0 {
		return BaseConfig{}, errors.New("must specify an application name")
	}
	if config.RPCRequestsPerSecond < 0 {
		return BaseConfig{}, errors.New("rpc requests per second cannot be negative")
	}

	return config, nil
}

// NewMetricsProvider connects to New Relic when a license key is configured.
// A nil application is returned otherwise, which every metrics call treats as
// a no-op.
func NewMetricsProvider(config BaseConfig) (*newrelic.Application, error) {
	if len(config.NewRelicLicenseKey) == 0 {
		return nil, nil
	}

	nr, err := newrelic.NewApplication(
		newrelic.ConfigFromEnvironment(),
		newrelic.ConfigAppName(config.AppName),
		newrelic.ConfigLicense(config.NewRelicLicenseKey),
		newrelic.ConfigDistributedTracerEnabled(true),
		newrelic.ConfigAppLogForwardingEnabled(true),
	)
	if err != nil {
		return nil, errors.Wrap(err, "error connecting to new relic")
	}
	return nr, nil
}

// ConfigureLogger sets the standard logger's level and formatter. Logs are
// forwarded to New Relic when a metrics provider is available.
func ConfigureLogger(config BaseConfig, metricsProvider *newrelic.Application) {
	logrus.SetOutput(os.Stderr)

	if metricsProvider != nil {
		logrus.SetFormatter(metrics_util.NewCustomNewRelicLogFormatter(metricsProvider, &logrus.JSONFormatter{}))
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{})
	}

	level, err := logrus.ParseLevel(strings.ToLower(config.LogLevel))
	if err != nil {
		logrus.StandardLogger().WithField("log_level", config.LogLevel).Warn("unknown log level, ignoring")
	} else {
		logrus.SetLevel(level)
	}
}
