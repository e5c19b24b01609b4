package harness_test

import (
	"testing"

	"github.com/runziggurat/zcash/internal/harness"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeJSON_ValidConfig(t *testing.T) {
	data := []byte(`{
		"kind": "zebra",
		"path": "/opt/zebra",
		"start_command": "zebrad start",
		"local_addr": "127.0.0.1:8233"
	}`)

	cfg, err := harness.DecodeJSON(data)
	require.NoError(t, err)
	assert.Equal(t, harness.NodeKindZebra, cfg.Kind)
	require.NotNil(t, cfg.LocalAddr)
	assert.Equal(t, "127.0.0.1:8233", *cfg.LocalAddr)
	assert.Nil(t, cfg.StopCommand)
}

func TestDecodeYAML_ValidConfig(t *testing.T) {
	data := []byte("kind: zcashd\npath: /opt/zcashd\nstart_command: zcashd -daemon\n")

	cfg, err := harness.DecodeYAML(data)
	require.NoError(t, err)
	assert.Equal(t, harness.NodeKindZcashd, cfg.Kind)
}

func TestValidate_RejectsUnknownKind(t *testing.T) {
	cfg := harness.NodeConfig{Kind: "bogus", Path: "/x", StartCommand: "x"}
	require.Error(t, cfg.Validate())
}

func TestValidate_RejectsMissingPath(t *testing.T) {
	cfg := harness.NodeConfig{Kind: harness.NodeKindZebra, StartCommand: "x"}
	require.Error(t, cfg.Validate())
}
