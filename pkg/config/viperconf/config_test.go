package viperconf

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/code-payments/profile-client/pkg/config"
)

func TestConfig_FromFile(t *testing.T) {
	v := viper.New()
	v.SetConfigType("yaml")
	require.NoError(t, v.ReadConfig(bytes.NewBufferString(`
submitter:
  confirmation_timeout: 15s
  max_blockhash_retries: 3
  skip_preflight: true
state:
  read_commitment: finalized
empty: ""
`)))

	assert.Equal(t, 15*time.Second, NewDurationConfig(v, "submitter.confirmation_timeout", time.Minute).Get(context.Background()))
	assert.EqualValues(t, 3, NewUint64Config(v, "submitter.max_blockhash_retries", 1).Get(context.Background()))
	assert.True(t, NewBoolConfig(v, "submitter.skip_preflight", false).Get(context.Background()))
	assert.Equal(t, "finalized", NewStringConfig(v, "state.read_commitment", "confirmed").Get(context.Background()))

	// Missing and empty keys fall back to defaults
	assert.Equal(t, "confirmed", NewStringConfig(v, "state.missing", "confirmed").Get(context.Background()))
	_, err := NewConfig(v, "empty").Get(context.Background())
	assert.Equal(t, config.ErrNoValue, err)
}

func TestConfig_Overrides(t *testing.T) {
	v := viper.New()
	budget := NewUint64Config(v, "state.cache_budget", 128)
	assert.EqualValues(t, 128, budget.Get(context.Background()))

	// Values set after construction are observed
	v.Set("state.cache_budget", "16")
	assert.EqualValues(t, 16, budget.Get(context.Background()))
}
