// Package synthpeer implements the synthetic peer: a controllable node that
// dials or accepts real Zcash peers, drives handshakes under configurable
// policy, and exposes send/expect primitives so tests can script exact
// protocol exchanges and assert on the replies.
package synthpeer

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/runziggurat/zcash/internal/config"
	"github.com/runziggurat/zcash/internal/connection"
	"github.com/runziggurat/zcash/internal/handshake"
	"github.com/runziggurat/zcash/internal/network"
	"github.com/runziggurat/zcash/internal/ulogger"
	"github.com/runziggurat/zcash/internal/wire"
	"github.com/runziggurat/zcash/internal/zerrors"
)

// ConnectionID uniquely names one active link owned by a Peer.
type ConnectionID string

// Reply lets a message callback answer a peer inline, without the caller
// needing to hold a reference to the underlying Connection.
type Reply struct {
	conn *connection.Connection
}

// Send enqueues m back to the peer that triggered the callback.
func (r Reply) Send(m wire.Message) error {
	return r.conn.Send(m)
}

// MessageHandler is invoked once per inbound message, serialised per
// connection so a handler never has to guard against concurrent calls for
// the same peer.
type MessageHandler func(source ConnectionID, msg wire.Message, reply Reply)

// PeerConfig configures one SyntheticPeer instance.
type PeerConfig struct {
	Codec          *wire.Codec
	Version        wire.VersionPayload
	MinVersion     int32
	HandshakeHooks handshake.PolicyHooks
	OnMessage      MessageHandler
	// Filter, if set, is checked against every inbound message not already
	// claimed by a SendAndExpect wait; returning true drops the message
	// before OnMessage ever sees it.
	Filter func(wire.Message) bool
	// BanList holds addresses and subnets refused before a dial or after
	// accept. A nil BanList bans nothing.
	BanList       *network.BanList
	ShutdownGrace time.Duration
}

// Stats summarises a Peer's lifetime activity.
type Stats struct {
	ConnectionsOpened int
	ConnectionsClosed int
	MessagesSent      int
	MessagesReceived  int
	SentByKind        map[string]int
	ReceivedByKind    map[string]int
	HandshakeOutcomes map[connection.State]int
	BytesSent         uint64
	BytesReceived     uint64
}

func newStats() Stats {
	return Stats{
		SentByKind:        make(map[string]int),
		ReceivedByKind:    make(map[string]int),
		HandshakeOutcomes: make(map[connection.State]int),
	}
}

func (s Stats) clone() Stats {
	out := s
	out.SentByKind = make(map[string]int, len(s.SentByKind))
	for k, v := range s.SentByKind {
		out.SentByKind[k] = v
	}
	out.ReceivedByKind = make(map[string]int, len(s.ReceivedByKind))
	for k, v := range s.ReceivedByKind {
		out.ReceivedByKind[k] = v
	}
	out.HandshakeOutcomes = make(map[connection.State]int, len(s.HandshakeOutcomes))
	for k, v := range s.HandshakeOutcomes {
		out.HandshakeOutcomes[k] = v
	}
	return out
}

// waiter is a one-shot registration by SendAndExpect: while it is set on a
// link, dispatchLoop offers each inbound message to it before OnMessage, so
// the two never race for the same message.
type waiter struct {
	accept func(wire.Message) bool
	ch     chan wire.Message
}

type link struct {
	id     ConnectionID
	conn   *connection.Connection
	result handshake.Result
	mu     sync.Mutex // serialises callback dispatch and guards waiter for this connection
	waiter *waiter
}

// Peer is one running synthetic node: it can dial out, listen for inbound
// connections, and hosts every link's reader loop under one roof so
// shutdown can drain them together.
type Peer struct {
	cfg PeerConfig
	log ulogger.Logger

	mu    sync.Mutex
	links map[ConnectionID]*link
	stats Stats

	listener net.Listener
	wg       sync.WaitGroup
}

// Start constructs a running Peer. If cfg leaves the codec unset, the
// mainnet default is used.
func Start(cfg PeerConfig, log ulogger.Logger) *Peer {
	if cfg.Codec == nil {
		cfg.Codec = wire.NewCodec(config.MagicMainnet, 0)
	}
	if cfg.MinVersion == 0 {
		cfg.MinVersion = config.MinProtocolVersion
	}
	if cfg.ShutdownGrace == 0 {
		cfg.ShutdownGrace = 5 * time.Second
	}
	return &Peer{
		cfg:   cfg,
		log:   log,
		links: make(map[ConnectionID]*link),
		stats: newStats(),
	}
}

// Listen starts accepting inbound TCP connections on addr, handshaking each
// one as a responder in the background.
func (p *Peer) Listen(addr string) error {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return zerrors.NewNetworkError("synthpeer: listen on %s: %v", addr, err)
	}
	p.listener = l

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		for {
			conn, err := l.Accept()
			if err != nil {
				return
			}
			if p.cfg.BanList != nil && p.cfg.BanList.IsBannedAddr(conn.RemoteAddr().String()) {
				_ = conn.Close()
				continue
			}
			p.wg.Add(1)
			go func() {
				defer p.wg.Done()
				_, _ = p.adopt(conn, connection.Inbound)
			}()
		}
	}()
	return nil
}

// Connect dials addr and completes the handshake as the initiating side.
// It returns the new link's ID once the connection is Established.
func (p *Peer) Connect(ctx context.Context, addr string) (ConnectionID, error) {
	if p.cfg.BanList != nil && p.cfg.BanList.IsBannedAddr(addr) {
		return "", zerrors.NewPolicyRejectError("synthpeer: %s is banned", addr)
	}

	dialer := net.Dialer{}
	rawConn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		if errors.Is(err, syscall.ECONNREFUSED) {
			return "", zerrors.NewConnectionRefusedError("synthpeer: dial %s: %v", addr, err)
		}
		return "", zerrors.NewNetworkError("synthpeer: dial %s: %v", addr, err)
	}

	return p.adopt(rawConn, connection.Outbound)
}

func (p *Peer) adopt(rawConn net.Conn, dir connection.Direction) (ConnectionID, error) {
	nonce := rand.Uint64() //nolint:gosec // handshake nonces need not be cryptographically random
	conn := connection.New(rawConn, p.cfg.Codec, p.log, dir, nonce)

	id := ConnectionID(uuid.NewString())
	lk := &link{id: id, conn: conn}

	p.mu.Lock()
	p.links[id] = lk
	p.stats.ConnectionsOpened++
	p.mu.Unlock()

	hs := handshake.New(conn, p.log, p.cfg.MinVersion, 0, p.cfg.Version, p.cfg.HandshakeHooks)

	ctx, cancel := context.WithTimeout(context.Background(), handshake.DefaultTransitionTimeout*4)
	defer cancel()

	var res handshake.Result
	var hsErr error
	if dir == connection.Outbound {
		res, hsErr = hs.AsInitiator(ctx)
	} else {
		res, hsErr = hs.AsResponder(ctx)
	}

	p.mu.Lock()
	p.stats.HandshakeOutcomes[res.Outcome]++
	p.mu.Unlock()

	if hsErr != nil {
		p.forget(id)
		return "", hsErr
	}
	lk.result = res

	p.wg.Add(1)
	go p.dispatchLoop(lk)

	return id, nil
}

func (p *Peer) dispatchLoop(lk *link) {
	defer p.wg.Done()
	defer p.forget(lk.id)

	for in := range lk.conn.Inbound() {
		p.recordReceived(in.Message)

		lk.mu.Lock()
		w := lk.waiter
		if w != nil && w.accept(in.Message) {
			lk.waiter = nil
			lk.mu.Unlock()
			w.ch <- in.Message
			continue
		}

		if p.cfg.Filter != nil && p.cfg.Filter(in.Message) {
			lk.mu.Unlock()
			continue
		}

		if p.cfg.OnMessage == nil {
			lk.mu.Unlock()
			continue
		}
		p.cfg.OnMessage(lk.id, in.Message, Reply{conn: lk.conn})
		lk.mu.Unlock()
	}
}

func (p *Peer) forget(id ConnectionID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.links[id]; ok {
		delete(p.links, id)
		p.stats.ConnectionsClosed++
	}
}

// messageLen returns m's encoded wire size for byte accounting, falling
// back to 0 if it can't be re-encoded (should not happen for a message this
// Peer itself just sent or decoded).
func (p *Peer) messageLen(m wire.Message) int {
	b, err := p.cfg.Codec.Encode(m)
	if err != nil {
		return 0
	}
	return len(b)
}

func (p *Peer) recordSent(m wire.Message) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stats.MessagesSent++
	p.stats.SentByKind[m.Command]++
	p.stats.BytesSent += uint64(p.messageLen(m))
}

func (p *Peer) recordReceived(m wire.Message) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stats.MessagesReceived++
	p.stats.ReceivedByKind[m.Command]++
	p.stats.BytesReceived += uint64(p.messageLen(m))
}

// SendDirect enqueues m on the given connection without waiting for a reply.
func (p *Peer) SendDirect(id ConnectionID, m wire.Message) error {
	lk, ok := p.link(id)
	if !ok {
		return zerrors.NewPeerUnknownError("synthpeer: unknown connection %s", id)
	}
	if err := lk.conn.Send(m); err != nil {
		return err
	}
	p.recordSent(m)
	return nil
}

// SendAndExpect sends m on id, then blocks until a message matching accept
// arrives or timeout elapses. It registers a waiter on the link so
// dispatchLoop hands the matching message to this call instead of
// OnMessage, rather than racing a second reader against dispatchLoop for
// the same inbound channel.
func (p *Peer) SendAndExpect(ctx context.Context, id ConnectionID, m wire.Message, accept func(wire.Message) bool, timeout time.Duration) (wire.Message, error) {
	lk, ok := p.link(id)
	if !ok {
		return wire.Message{}, zerrors.NewPeerUnknownError("synthpeer: unknown connection %s", id)
	}

	w := &waiter{accept: accept, ch: make(chan wire.Message, 1)}
	lk.mu.Lock()
	lk.waiter = w
	lk.mu.Unlock()
	defer func() {
		lk.mu.Lock()
		if lk.waiter == w {
			lk.waiter = nil
		}
		lk.mu.Unlock()
	}()

	if err := p.SendDirect(id, m); err != nil {
		return wire.Message{}, err
	}

	deadline := time.Now().Add(timeout)
	waitCtx, cancel := context.WithDeadline(ctx, deadline)
	defer cancel()

	select {
	case msg := <-w.ch:
		return msg, nil
	case <-lk.conn.Done():
		return wire.Message{}, zerrors.NewPeerClosedEarlyError("synthpeer: connection %s closed while waiting", id)
	case <-waitCtx.Done():
		return wire.Message{}, zerrors.NewTimeoutError("synthpeer: timed out waiting for reply on %s: %v", id, waitCtx.Err())
	}
}

// Broadcast sends m to every currently established connection, returning
// the first error encountered (if any) after attempting all of them.
func (p *Peer) Broadcast(m wire.Message) error {
	p.mu.Lock()
	ids := make([]ConnectionID, 0, len(p.links))
	for id := range p.links {
		ids = append(ids, id)
	}
	p.mu.Unlock()

	var firstErr error
	for _, id := range ids {
		if err := p.SendDirect(id, m); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("broadcast to %s: %w", id, err)
		}
	}
	return firstErr
}

// Disconnect closes one connection.
func (p *Peer) Disconnect(id ConnectionID) {
	if lk, ok := p.link(id); ok {
		lk.conn.Close()
	}
}

// HandshakeResult returns what the given connection's handshake learned
// about the peer, if the connection is still known.
func (p *Peer) HandshakeResult(id ConnectionID) (handshake.Result, bool) {
	lk, ok := p.link(id)
	if !ok {
		return handshake.Result{}, false
	}
	return lk.result, true
}

func (p *Peer) link(id ConnectionID) (*link, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	lk, ok := p.links[id]
	return lk, ok
}

// Stats returns a snapshot of this Peer's counters.
func (p *Peer) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stats.clone()
}

// Shutdown closes the listener (if any) and every connection, waiting up to
// ShutdownGrace for dispatch loops to drain before returning.
func (p *Peer) Shutdown() {
	if p.listener != nil {
		_ = p.listener.Close()
	}

	p.mu.Lock()
	for _, lk := range p.links {
		lk.conn.Close()
	}
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(p.cfg.ShutdownGrace):
		p.log.Warnf("synthpeer: shutdown grace period elapsed with tasks still running")
	}
}
