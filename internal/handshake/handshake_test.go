package handshake_test

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/runziggurat/zcash/internal/connection"
	"github.com/runziggurat/zcash/internal/handshake"
	"github.com/runziggurat/zcash/internal/ulogger"
	"github.com/runziggurat/zcash/internal/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func versionPayload(nonce uint64, version int32) wire.VersionPayload {
	addr, _ := wire.NetworkAddressFromString("127.0.0.1:8233", 0)
	return wire.VersionPayload{
		Version:     version,
		Services:    1,
		Timestamp:   time.Now().Unix(),
		AddrRecv:    addr,
		AddrFrom:    addr,
		Nonce:       nonce,
		UserAgent:   "/synth:0.1/",
		StartHeight: 0,
		Relay:       true,
	}
}

func newLinkedConnections(t *testing.T) (*connection.Connection, *connection.Connection) {
	t.Helper()
	a, b := net.Pipe()
	codec := wire.NewCodec(0x6427E924, 0)
	log := ulogger.New("test")
	ca := connection.New(a, codec, log, connection.Outbound, 1001)
	cb := connection.New(b, codec, log, connection.Inbound, 2002)
	t.Cleanup(func() {
		ca.Close()
		cb.Close()
	})
	return ca, cb
}

func TestHandshake_SuccessfulExchange(t *testing.T) {
	initConn, respConn := newLinkedConnections(t)

	initiator := handshake.New(initConn, ulogger.New("test"), 170013, time.Second, versionPayload(initConn.Nonce(), 170100), handshake.PolicyHooks{})
	responder := handshake.New(respConn, ulogger.New("test"), 170013, time.Second, versionPayload(respConn.Nonce(), 170100), handshake.PolicyHooks{})

	type outcome struct {
		res handshake.Result
		err error
	}
	initCh := make(chan outcome, 1)
	respCh := make(chan outcome, 1)

	go func() {
		res, err := initiator.AsInitiator(context.Background())
		initCh <- outcome{res, err}
	}()
	go func() {
		res, err := responder.AsResponder(context.Background())
		respCh <- outcome{res, err}
	}()

	var initOut, respOut outcome
	select {
	case initOut = <-initCh:
	case <-time.After(3 * time.Second):
		t.Fatal("initiator timed out")
	}
	select {
	case respOut = <-respCh:
	case <-time.After(3 * time.Second):
		t.Fatal("responder timed out")
	}

	require.NoError(t, initOut.err)
	require.NoError(t, respOut.err)
	assert.Equal(t, connection.StateEstablished, initOut.res.Outcome)
	assert.Equal(t, connection.StateEstablished, respOut.res.Outcome)
	assert.Equal(t, connection.StateEstablished, initConn.State())
	assert.Equal(t, connection.StateEstablished, respConn.State())
}

func TestHandshake_SelfConnectionRejectedSilently(t *testing.T) {
	initConn, respConn := newLinkedConnections(t)

	sharedNonce := uint64(555)
	initiator := handshake.New(initConn, ulogger.New("test"), 170013, time.Second, versionPayload(sharedNonce, 170100), handshake.PolicyHooks{
		OverrideNonce: &sharedNonce,
	})
	responder := handshake.New(respConn, ulogger.New("test"), 170013, time.Second, versionPayload(0, 170100), handshake.PolicyHooks{
		OverrideNonce: &sharedNonce,
	})

	go func() { _, _ = initiator.AsInitiator(context.Background()) }()
	_, err := responder.AsResponder(context.Background())

	require.Error(t, err)
	assert.Equal(t, connection.StateRejected, respConn.State())
}

func TestHandshake_ObsoleteVersionRejectedWithReject(t *testing.T) {
	initConn, respConn := newLinkedConnections(t)

	initiator := handshake.New(initConn, ulogger.New("test"), 170013, time.Second, versionPayload(initConn.Nonce(), 100000), handshake.PolicyHooks{})
	responder := handshake.New(respConn, ulogger.New("test"), 170013, time.Second, versionPayload(respConn.Nonce(), 170100), handshake.PolicyHooks{})

	go func() { _, _ = initiator.AsInitiator(context.Background()) }()
	_, err := responder.AsResponder(context.Background())

	require.Error(t, err)
	assert.Equal(t, connection.StateRejected, respConn.State())
}
