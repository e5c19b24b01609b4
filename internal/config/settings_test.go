package config_test

import (
	"testing"

	"github.com/runziggurat/zcash/internal/config"
	"github.com/stretchr/testify/assert"
)

func TestNewSettings_Defaults(t *testing.T) {
	s := config.NewSettings()

	assert.Equal(t, config.MagicMainnet, s.Network.Magic)
	assert.Equal(t, config.DefaultPort, s.Network.Port)
	assert.Equal(t, config.DefaultMaxMessageLen, s.Codec.MaxMessageLen)
	assert.Equal(t, config.MinProtocolVersion, s.Handshake.MinVersion)
	assert.Equal(t, 50, s.Crawler.MaxConcurrentProbes)
	assert.Equal(t, 100_000, s.Crawler.MaxKnownNodes)
	assert.Empty(t, s.RPC.Address, "rpc server must be off unless explicitly configured")
}

func TestMagicForNetwork(t *testing.T) {
	assert.Equal(t, config.MagicMainnet, config.MagicForNetwork("mainnet"))
	assert.Equal(t, config.MagicTestnet, config.MagicForNetwork("testnet"))
	assert.Equal(t, config.MagicRegtest, config.MagicForNetwork("regtest"))
	assert.Equal(t, config.MagicMainnet, config.MagicForNetwork("unknown"), "unrecognised names fall back to mainnet")
}
