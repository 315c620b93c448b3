package solana

import (
	"strings"

	"github.com/pkg/errors"
)

type Environment string

const (
	EnvironmentLocal Environment = "http://127.0.0.1:8899"
	EnvironmentDev   Environment = "https://api.devnet.solana.com"
	EnvironmentTest  Environment = "https://api.testnet.solana.com"
	EnvironmentProd  Environment = "https://api.mainnet-beta.solana.com"
)

// ParseEnvironment resolves a cluster moniker to its public RPC endpoint.
// Anything that looks like a URL is passed through unchanged.
func ParseEnvironment(value string) (Environment, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "devnet", "dev":
		return EnvironmentDev, nil
	case "testnet", "test":
		return EnvironmentTest, nil
	case "mainnet-beta", "mainnet", "prod":
		return EnvironmentProd, nil
	case "localnet", "localhost", "local":
		return EnvironmentLocal, nil
	}

	if strings.HasPrefix(value, "http://") || strings.HasPrefix(value, "https://") {
		return Environment(value), nil
	}

	return "", errors.Errorf("unknown solana environment: %s", value)
}

// AllowsAirdrop reports whether the cluster hands out test lamports.
func (e Environment) AllowsAirdrop() bool {
	return e != EnvironmentProd
}
