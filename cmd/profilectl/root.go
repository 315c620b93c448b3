package main

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	xrate "golang.org/x/time/rate"

	"github.com/code-payments/profile-client/pkg/app"
	"github.com/code-payments/profile-client/pkg/metrics"
	"github.com/code-payments/profile-client/pkg/rate"
	"github.com/code-payments/profile-client/pkg/solana"
	"github.com/code-payments/profile-client/pkg/state"
	"github.com/code-payments/profile-client/pkg/submitter"
	"github.com/code-payments/profile-client/pkg/wallet"
)

const metricsShutdownTimeout = 5 * time.Second

// cli holds everything a command needs once the root has been set up.
type cli struct {
	log *logrus.Entry

	v           *viper.Viper
	configPath  string
	autoApprove bool

	config          app.BaseConfig
	environment     solana.Environment
	metricsProvider *newrelic.Application

	client    solana.Client
	submitter *submitter.Submitter
	sync      *state.Synchronizer

	endTransaction func()
}

func NewRootCmd() *cobra.Command {
	c := &cli{
		log: logrus.StandardLogger().WithField("type", "cmd/profilectl"),
		v:   viper.New(),
	}

	rootCmd := &cobra.Command{
		Use:   "profilectl",
		Short: "Inspect and manage user profiles in the on-chain profile registry",

		SilenceUsage:  true,
		SilenceErrors: true,

		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return c.setup(cmd)
		},
	}

	// Runs on success and failure alike, unlike PersistentPostRun
	cobra.OnFinalize(c.teardown)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&c.configPath, "config", "profilectl.yaml", "configuration file path")
	flags.String("rpc", "", "cluster moniker (devnet, testnet, mainnet-beta, localnet) or RPC URL")
	flags.String("keypair", "", "Solana CLI keypair file used as the wallet")
	flags.String("log-level", "", "log level (trace, debug, info, warn, error)")
	flags.BoolVarP(&c.autoApprove, "yes", "y", false, "sign transactions without prompting")

	_ = c.v.BindPFlag("rpc_endpoint", flags.Lookup("rpc"))
	_ = c.v.BindPFlag("keypair_path", flags.Lookup("keypair"))
	_ = c.v.BindPFlag("log_level", flags.Lookup("log-level"))

	rootCmd.AddCommand(
		newAppStateCmd(c),
		newProfileCmd(c),
		newInitCmd(c),
		newCreateProfileCmd(c),
		newStatusCmd(c),
		newAirdropCmd(c),
		newBalanceCmd(c),
	)

	return rootCmd
}

func (c *cli) setup(cmd *cobra.Command) error {
	config, err := app.Load(c.v, c.configPath)
	if err != nil {
		return err
	}
	c.config = config

	c.metricsProvider, err = app.NewMetricsProvider(config)
	if err != nil {
		return err
	}
	app.ConfigureLogger(config, c.metricsProvider)

	c.environment, err = solana.ParseEnvironment(config.RPCEndpoint)
	if err != nil {
		return err
	}

	var opts []solana.Option
	if config.RPCRequestsPerSecond > 0 {
		opts = append(opts, solana.WithRateLimiter(rate.NewLocalRateLimiter(xrate.Limit(config.RPCRequestsPerSecond))))
	}
	c.client = solana.New(string(c.environment), opts...)

	c.submitter, err = submitter.New(c.client, submitter.WithViperConfigs(c.v))
	if err != nil {
		return err
	}

	c.sync, err = state.New(c.client, c.submitter, state.WithViperConfigs(c.v))
	if err != nil {
		return err
	}

	ctx := metrics.WithApplication(c.context(cmd), c.metricsProvider)
	ctx, c.endTransaction = metrics.StartTransaction(ctx, "profilectl/"+cmd.Name())
	cmd.SetContext(ctx)

	c.log.WithFields(logrus.Fields{
		"command": cmd.Name(),
		"rpc":     string(c.environment),
	}).Debug("cli initialized")

	return nil
}

func (c *cli) teardown() {
	if c.endTransaction != nil {
		c.endTransaction()
		c.endTransaction = nil
	}
	if c.metricsProvider != nil {
		c.metricsProvider.Shutdown(metricsShutdownTimeout)
	}
}

// connectWallet loads the configured keypair and starts a synchronizer
// session with it.
func (c *cli) connectWallet(cmd *cobra.Command) (*wallet.KeypairWallet, error) {
	path := c.config.KeypairPath
	if len(path) == 0 {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, errors.Wrap(err, "cannot locate default keypair")
		}
		path = filepath.Join(home, ".config", "solana", "id.json")
	}

	var approve wallet.ApprovalFunc = wallet.AutoApprove
	if !c.autoApprove {
		approve = promptApproval(cmd.InOrStdin(), cmd.ErrOrStderr())
	}

	w, err := wallet.LoadKeypairFile(path, wallet.WithApproval(approve))
	if err != nil {
		return nil, err
	}

	if err := c.sync.Connect(w); err != nil {
		return nil, err
	}
	return w, nil
}

func (c *cli) context(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
