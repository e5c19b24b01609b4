// Package connection wraps one TCP socket to a Zcash node under test with a
// pair of cooperative reader/writer tasks, a small connection-state machine,
// and the queueing/back-pressure rules the handshake and synthetic-peer
// layers build on.
package connection

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/runziggurat/zcash/internal/ulogger"
	"github.com/runziggurat/zcash/internal/wire"
	"github.com/runziggurat/zcash/internal/zerrors"
)

// Direction records who initiated the TCP connection.
type Direction int

const (
	Inbound Direction = iota
	Outbound
)

func (d Direction) String() string {
	if d == Inbound {
		return "inbound"
	}
	return "outbound"
}

// State is the connection's lifecycle stage. The handshake package drives
// the Connecting..Established transitions; either side can move to Closing
// from any state.
type State int

const (
	StateConnecting State = iota
	StateVersionSent
	StateVersionReceived
	StateVerackSent
	StateEstablished
	StateClosing
	StateClosed
	StateRejected
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateVersionSent:
		return "version_sent"
	case StateVersionReceived:
		return "version_received"
	case StateVerackSent:
		return "verack_sent"
	case StateEstablished:
		return "established"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	case StateRejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// defaultOutboundQueueLen bounds the writer's pending-message queue. A full
// queue is back-pressure: callers get ErrQueueFull rather than blocking
// forever on a stalled peer.
const defaultOutboundQueueLen = 128

// InboundMessage is one message delivered by the reader task, paired with any
// non-fatal decode error the codec attached to it (bad checksum, unknown
// command, bad payload) so the consumer can choose to drop it.
type InboundMessage struct {
	Message wire.Message
	SoftErr error
}

// Connection owns one TCP socket and the goroutines that pump messages in
// and out of it. All state transitions happen under mu; the state itself is
// read far more than it's written, but connections are one-shot enough that
// a plain mutex outperforms an RWMutex in code clarity.
type Connection struct {
	conn      net.Conn
	codec     *wire.Codec
	log       ulogger.Logger
	direction Direction
	remote    string
	created   time.Time
	nonce     uint64

	mu    sync.Mutex
	state State
	rejectReason string

	inbound  chan InboundMessage
	outbound chan wire.Message

	closeOnce sync.Once
	closed    chan struct{}
	wg        sync.WaitGroup
}

// New wraps conn for one handshake attempt and starts its reader and writer
// tasks. The caller owns conn's lifetime up to this point; Close takes over
// from here.
func New(conn net.Conn, codec *wire.Codec, log ulogger.Logger, direction Direction, nonce uint64) *Connection {
	c := &Connection{
		conn:      conn,
		codec:     codec,
		log:       log,
		direction: direction,
		remote:    conn.RemoteAddr().String(),
		created:   time.Now(),
		nonce:     nonce,
		state:     StateConnecting,
		inbound:   make(chan InboundMessage, defaultOutboundQueueLen),
		outbound:  make(chan wire.Message, defaultOutboundQueueLen),
		closed:    make(chan struct{}),
	}

	c.wg.Add(2)
	go c.readLoop()
	go c.writeLoop()

	return c
}

// Remote returns the peer's socket address as seen by the OS.
func (c *Connection) Remote() string { return c.remote }

// Direction reports which side initiated this connection.
func (c *Connection) Direction() Direction { return c.direction }

// Nonce returns the locally generated Version nonce used for
// self-connection detection.
func (c *Connection) Nonce() uint64 { return c.nonce }

// Created returns when this Connection was constructed.
func (c *Connection) Created() time.Time { return c.created }

// State returns the current lifecycle state.
func (c *Connection) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// SetState transitions to s. Transitioning to StateClosing or StateRejected
// triggers connection teardown.
func (c *Connection) SetState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()

	if s == StateClosing || s == StateRejected {
		c.Close()
	}
}

// Reject transitions to StateRejected with reason and closes the socket.
func (c *Connection) Reject(reason string) {
	c.mu.Lock()
	c.state = StateRejected
	c.rejectReason = reason
	c.mu.Unlock()
	c.Close()
}

// RejectWriteOnly transitions to StateRejected the way Reject does, but
// only closes the write half of the socket rather than the whole
// connection. Real Zcash nodes do this on self-connection detection: there
// is no useful peer to inform, but the socket itself is left half-open
// rather than torn down outright.
func (c *Connection) RejectWriteOnly(reason string) {
	c.mu.Lock()
	c.state = StateRejected
	c.rejectReason = reason
	c.mu.Unlock()
	c.CloseWriteOnly()
}

// CloseWriteOnly shuts down the write half of the underlying socket, if it
// supports half-close, and stops the writer task. Done's channel is closed,
// so the reader task may stop at any message it would deliver; the read
// half of the socket stays open until Close is called. Falls back to a full
// Close on connection types without CloseWrite.
func (c *Connection) CloseWriteOnly() {
	type writeCloser interface {
		CloseWrite() error
	}

	wc, ok := c.conn.(writeCloser)
	if !ok {
		c.Close()
		return
	}

	c.closeOnce.Do(func() {
		close(c.closed)
		_ = wc.CloseWrite()

		c.mu.Lock()
		if c.state != StateRejected {
			c.state = StateClosed
		}
		c.mu.Unlock()
	})
}

// RejectReason returns the reason passed to Reject, if any.
func (c *Connection) RejectReason() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rejectReason
}

// Inbound returns the channel of messages read from the peer. It is closed
// once the reader task exits.
func (c *Connection) Inbound() <-chan InboundMessage { return c.inbound }

// Send enqueues m for delivery. Returns ErrQueueFull immediately rather
// than blocking if the writer can't keep up.
func (c *Connection) Send(m wire.Message) error {
	select {
	case c.outbound <- m:
		return nil
	case <-c.closed:
		return zerrors.NewNotEstablishedError("connection to %s is closed", c.remote)
	default:
		return zerrors.NewQueueFullError("outbound queue full for %s", c.remote)
	}
}

// SendBlocking enqueues m, waiting up to ctx's deadline if the queue is
// full instead of failing fast.
func (c *Connection) SendBlocking(ctx context.Context, m wire.Message) error {
	select {
	case c.outbound <- m:
		return nil
	case <-c.closed:
		return zerrors.NewNotEstablishedError("connection to %s is closed", c.remote)
	case <-ctx.Done():
		return zerrors.NewTimeoutError("send to %s timed out: %v", c.remote, ctx.Err())
	}
}

// Close tears down the socket and stops both tasks. Safe to call multiple
// times and from multiple goroutines.
func (c *Connection) Close() {
	c.closeOnce.Do(func() {
		close(c.closed)
		_ = c.conn.Close()

		c.mu.Lock()
		if c.state != StateRejected {
			c.state = StateClosed
		}
		c.mu.Unlock()
	})
	// closeOnce may already have been spent by CloseWriteOnly, which leaves
	// the read half of the socket open.
	_ = c.conn.Close()
}

// Wait blocks until both the reader and writer tasks have exited.
func (c *Connection) Wait() {
	c.wg.Wait()
}

// Done reports a channel closed the instant the connection is torn down.
func (c *Connection) Done() <-chan struct{} { return c.closed }

func (c *Connection) readLoop() {
	defer c.wg.Done()
	defer close(c.inbound)

	for {
		header, err := c.codec.DecodeHeader(c.conn)
		if err != nil {
			c.fatalReadError(err)
			return
		}

		msg, err := c.codec.DecodeBody(c.conn, header)
		if err != nil && isFatalDecodeError(err) {
			c.fatalReadError(err)
			return
		}

		select {
		case c.inbound <- InboundMessage{Message: msg, SoftErr: nonFatalOnly(err)}:
		case <-c.closed:
			return
		}
	}
}

// isFatalDecodeError reports whether err should tear down the connection.
// BadChecksum, BadPayload, and UnknownCommand are frame-level problems: the
// frame is dropped but the connection stays open.
func isFatalDecodeError(err error) bool {
	var zerr *zerrors.Error
	if !zerrors.As(err, &zerr) {
		return true
	}
	switch zerr.Code() {
	case zerrors.ERR_BAD_CHECKSUM, zerrors.ERR_BAD_PAYLOAD, zerrors.ERR_UNKNOWN_COMMAND:
		return false
	default:
		return true
	}
}

func nonFatalOnly(err error) error {
	if err == nil {
		return nil
	}
	if isFatalDecodeError(err) {
		return nil
	}
	return err
}

func (c *Connection) fatalReadError(err error) {
	c.log.Debugf("connection %s: fatal read error: %v", c.remote, err)
	c.SetState(StateClosing)
}

func (c *Connection) writeLoop() {
	defer c.wg.Done()

	for {
		select {
		case m := <-c.outbound:
			encoded, err := c.codec.Encode(m)
			if err != nil {
				c.log.Debugf("connection %s: encode error for %s: %v", c.remote, m.Command, err)
				continue
			}
			if _, err := c.conn.Write(encoded); err != nil {
				c.log.Debugf("connection %s: write error: %v", c.remote, err)
				c.SetState(StateClosing)
				return
			}
		case <-c.closed:
			return
		}
	}
}
