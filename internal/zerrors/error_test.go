package zerrors_test

import (
	"context"
	"errors"
	"testing"

	"github.com/runziggurat/zcash/internal/zerrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_FormatsMessageWithParams(t *testing.T) {
	err := zerrors.New(zerrors.ERR_BAD_PAYLOAD, "bad payload for %s", "version")
	assert.Equal(t, zerrors.ERR_BAD_PAYLOAD, err.Code())
	assert.Equal(t, "bad payload for version", err.Message())
}

func TestNew_WrapsTrailingError(t *testing.T) {
	inner := errors.New("connection reset")
	err := zerrors.New(zerrors.ERR_TIMEOUT, "probe failed", inner)
	require.NotNil(t, err.WrappedErr())
	assert.Contains(t, err.WrappedErr().Error(), "connection reset")
}

func TestNew_UnknownCodeIsMarkedInvalid(t *testing.T) {
	err := zerrors.New(zerrors.ERR(9999), "whatever")
	assert.Equal(t, "invalid error code", err.Message())
}

func TestIs_MatchesByCode(t *testing.T) {
	a := zerrors.New(zerrors.ERR_WRONG_MAGIC, "bad magic 1")
	b := zerrors.New(zerrors.ERR_WRONG_MAGIC, "bad magic 2")
	assert.True(t, a.Is(b))
}

func TestIs_DoesNotMatchDifferentCode(t *testing.T) {
	a := zerrors.New(zerrors.ERR_WRONG_MAGIC, "bad magic")
	b := zerrors.New(zerrors.ERR_BAD_CHECKSUM, "bad checksum")
	assert.False(t, a.Is(b))
}

func TestNilReceiver_ReturnsSafeDefaults(t *testing.T) {
	var e *zerrors.Error
	assert.Equal(t, zerrors.ERR_UNKNOWN, e.Code())
	assert.Equal(t, "", e.Message())
	assert.Nil(t, e.WrappedErr())
	assert.Equal(t, "<nil>", e.Error())
}

func TestErrData_RoundTrips(t *testing.T) {
	err := zerrors.New(zerrors.ERR_PEER_UNKNOWN, "no such peer")
	err.SetData("addr", "203.0.113.4:8233")
	assert.Equal(t, "203.0.113.4:8233", err.GetData("addr"))
}

func TestIsRetryableError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"network timeout retryable", zerrors.New(zerrors.ERR_NETWORK_TIMEOUT, "timeout"), true},
		{"connection refused retryable", zerrors.New(zerrors.ERR_NETWORK_CONNECTION_REFUSED, "refused"), true},
		{"malicious peer not retryable", zerrors.New(zerrors.ERR_NETWORK_PEER_MALICIOUS, "bad actor"), false},
		{"context canceled not retryable", context.Canceled, false},
		{"nil not retryable", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, zerrors.IsRetryableError(tt.err))
		})
	}
}

func TestIsMaliciousResponseError(t *testing.T) {
	assert.True(t, zerrors.IsMaliciousResponseError(zerrors.New(zerrors.ERR_BAD_PAYLOAD, "malformed frame")))
	assert.False(t, zerrors.IsMaliciousResponseError(zerrors.New(zerrors.ERR_TIMEOUT, "slow peer")))
}

func TestGetErrorCategory(t *testing.T) {
	assert.Equal(t, "framing", zerrors.GetErrorCategory(zerrors.New(zerrors.ERR_WRONG_MAGIC, "x")))
	assert.Equal(t, "handshake", zerrors.GetErrorCategory(zerrors.New(zerrors.ERR_SELF_CONNECTION, "x")))
	assert.Equal(t, "runtime", zerrors.GetErrorCategory(zerrors.New(zerrors.ERR_QUEUE_FULL, "x")))
	assert.Equal(t, "context", zerrors.GetErrorCategory(context.Canceled))
	assert.Equal(t, "none", zerrors.GetErrorCategory(nil))
}
