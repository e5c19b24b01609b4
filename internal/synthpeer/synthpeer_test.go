package synthpeer_test

import (
	"context"
	"testing"
	"time"

	"github.com/runziggurat/zcash/internal/config"
	"github.com/runziggurat/zcash/internal/connection"
	"github.com/runziggurat/zcash/internal/network"
	"github.com/runziggurat/zcash/internal/synthpeer"
	"github.com/runziggurat/zcash/internal/ulogger"
	"github.com/runziggurat/zcash/internal/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testVersion() wire.VersionPayload {
	addr, _ := wire.NetworkAddressFromString("127.0.0.1:8233", 0)
	return wire.VersionPayload{
		Version:     170100,
		Services:    1,
		Timestamp:   time.Now().Unix(),
		AddrRecv:    addr,
		AddrFrom:    addr,
		UserAgent:   "/synth:0.1/",
		StartHeight: 0,
		Relay:       true,
	}
}

func TestSendAndExpect_PingPong(t *testing.T) {
	codec := wire.NewCodec(config.MagicMainnet, 0)

	received := make(chan wire.Message, 1)
	responder := synthpeer.Start(synthpeer.PeerConfig{
		Codec:      codec,
		Version:    testVersion(),
		MinVersion: 170013,
		OnMessage: func(_ synthpeer.ConnectionID, msg wire.Message, reply synthpeer.Reply) {
			if msg.Command == wire.CmdPing {
				received <- msg
				_ = reply.Send(wire.NewPong(msg.Nonce))
			}
		},
	}, ulogger.New("responder"))

	require.NoError(t, responder.Listen("127.0.0.1:18233"))
	defer responder.Shutdown()

	initiator := synthpeer.Start(synthpeer.PeerConfig{
		Codec:      codec,
		Version:    testVersion(),
		MinVersion: 170013,
	}, ulogger.New("initiator"))
	defer initiator.Shutdown()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	id, err := initiator.Connect(ctx, "127.0.0.1:18233")
	require.NoError(t, err)

	got, err := initiator.SendAndExpect(ctx, id, wire.NewPing(123), func(m wire.Message) bool {
		return m.Command == wire.CmdPong
	}, 2*time.Second)
	require.NoError(t, err)
	assert.Equal(t, uint64(123), got.Nonce)

	select {
	case pingMsg := <-received:
		assert.Equal(t, uint64(123), pingMsg.Nonce)
	case <-time.After(2 * time.Second):
		t.Fatal("responder never observed the ping")
	}
}

func TestSendAndExpect_NotStolenByOnMessageOnSameLink(t *testing.T) {
	codec := wire.NewCodec(config.MagicMainnet, 0)

	responder := synthpeer.Start(synthpeer.PeerConfig{
		Codec:      codec,
		Version:    testVersion(),
		MinVersion: 170013,
		OnMessage: func(_ synthpeer.ConnectionID, msg wire.Message, reply synthpeer.Reply) {
			if msg.Command == wire.CmdPing {
				_ = reply.Send(wire.NewPong(msg.Nonce))
			}
		},
	}, ulogger.New("responder"))
	require.NoError(t, responder.Listen("127.0.0.1:18234"))
	defer responder.Shutdown()

	// initiator's own OnMessage is a general handler that would swallow
	// every inbound message, including the Pong that SendAndExpect below
	// is waiting for, if dispatchLoop and SendAndExpect raced for it.
	onMessageSeen := make(chan wire.Message, 4)
	initiator := synthpeer.Start(synthpeer.PeerConfig{
		Codec:      codec,
		Version:    testVersion(),
		MinVersion: 170013,
		OnMessage: func(_ synthpeer.ConnectionID, msg wire.Message, _ synthpeer.Reply) {
			onMessageSeen <- msg
		},
	}, ulogger.New("initiator"))
	defer initiator.Shutdown()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	id, err := initiator.Connect(ctx, "127.0.0.1:18234")
	require.NoError(t, err)

	got, err := initiator.SendAndExpect(ctx, id, wire.NewPing(456), func(m wire.Message) bool {
		return m.Command == wire.CmdPong
	}, 2*time.Second)
	require.NoError(t, err)
	assert.Equal(t, uint64(456), got.Nonce)

	select {
	case leaked := <-onMessageSeen:
		t.Fatalf("OnMessage should not have seen the awaited reply, got %s", leaked.Command)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestConnect_BanListRejectsBeforeDialing(t *testing.T) {
	bans := network.NewBanList(ulogger.New("banlist"))
	require.NoError(t, bans.Ban("10.0.0.1", time.Now().Add(time.Hour)))

	initiator := synthpeer.Start(synthpeer.PeerConfig{
		Version:    testVersion(),
		MinVersion: 170013,
		BanList:    bans,
	}, ulogger.New("initiator"))
	defer initiator.Shutdown()

	_, err := initiator.Connect(context.Background(), "10.0.0.1:8233")
	require.Error(t, err)
}

func TestStats_TracksKindsBytesAndHandshakeOutcomes(t *testing.T) {
	codec := wire.NewCodec(config.MagicMainnet, 0)

	responder := synthpeer.Start(synthpeer.PeerConfig{
		Codec:      codec,
		Version:    testVersion(),
		MinVersion: 170013,
		OnMessage: func(_ synthpeer.ConnectionID, msg wire.Message, reply synthpeer.Reply) {
			if msg.Command == wire.CmdPing {
				_ = reply.Send(wire.NewPong(msg.Nonce))
			}
		},
	}, ulogger.New("responder"))
	require.NoError(t, responder.Listen("127.0.0.1:18235"))
	defer responder.Shutdown()

	initiator := synthpeer.Start(synthpeer.PeerConfig{
		Codec:      codec,
		Version:    testVersion(),
		MinVersion: 170013,
	}, ulogger.New("initiator"))
	defer initiator.Shutdown()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	id, err := initiator.Connect(ctx, "127.0.0.1:18235")
	require.NoError(t, err)

	_, err = initiator.SendAndExpect(ctx, id, wire.NewPing(789), func(m wire.Message) bool {
		return m.Command == wire.CmdPong
	}, 2*time.Second)
	require.NoError(t, err)

	stats := initiator.Stats()
	assert.Equal(t, 1, stats.ConnectionsOpened)
	assert.Equal(t, 1, stats.SentByKind[wire.CmdPing])
	assert.Equal(t, 1, stats.ReceivedByKind[wire.CmdPong])
	assert.Positive(t, stats.BytesSent)
	assert.Positive(t, stats.BytesReceived)
	assert.Equal(t, 1, stats.HandshakeOutcomes[connection.StateEstablished])
}

func TestFilter_DropsMessageBeforeOnMessage(t *testing.T) {
	codec := wire.NewCodec(config.MagicMainnet, 0)

	responder := synthpeer.Start(synthpeer.PeerConfig{
		Codec:      codec,
		Version:    testVersion(),
		MinVersion: 170013,
		OnMessage: func(_ synthpeer.ConnectionID, msg wire.Message, reply synthpeer.Reply) {
			if msg.Command == wire.CmdPing {
				_ = reply.Send(wire.NewPong(msg.Nonce))
			}
		},
	}, ulogger.New("responder"))
	require.NoError(t, responder.Listen("127.0.0.1:18236"))
	defer responder.Shutdown()

	seen := make(chan wire.Message, 4)
	initiator := synthpeer.Start(synthpeer.PeerConfig{
		Codec:      codec,
		Version:    testVersion(),
		MinVersion: 170013,
		Filter: func(m wire.Message) bool {
			return m.Command == wire.CmdPong
		},
		OnMessage: func(_ synthpeer.ConnectionID, msg wire.Message, _ synthpeer.Reply) {
			seen <- msg
		},
	}, ulogger.New("initiator"))
	defer initiator.Shutdown()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	id, err := initiator.Connect(ctx, "127.0.0.1:18236")
	require.NoError(t, err)

	require.NoError(t, initiator.SendDirect(id, wire.NewPing(321)))

	select {
	case leaked := <-seen:
		t.Fatalf("OnMessage should not have seen a filtered %s", leaked.Command)
	case <-time.After(300 * time.Millisecond):
	}
}
