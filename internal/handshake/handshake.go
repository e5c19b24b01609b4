// Package handshake drives the Version/Verack exchange that promotes a raw
// TCP connection to an Established peer link, using a looplab/fsm state
// machine to make the legal transitions and their side effects explicit.
package handshake

import (
	"context"
	"time"

	"github.com/looplab/fsm"
	"github.com/runziggurat/zcash/internal/connection"
	"github.com/runziggurat/zcash/internal/ulogger"
	"github.com/runziggurat/zcash/internal/wire"
	"github.com/runziggurat/zcash/internal/zerrors"
)

const (
	evSendVersion = "send_version"
	evRecvVersion = "recv_version"
	evSendVerack  = "send_verack"
	evRecvVerack  = "recv_verack"
	evReject      = "reject"
	evClose       = "close"
)

// DefaultTransitionTimeout bounds how long a single handshake step may wait
// for the peer's next message before the attempt is abandoned.
const DefaultTransitionTimeout = 10 * time.Second

// PolicyHooks lets a test harness bend a handshake away from well-behaved
// default protocol: skip sending Version, refuse to answer with Verack,
// slip extra messages between steps, or lie about the nonce/version we
// advertise. Every field is optional; nil/zero means "act correctly."
type PolicyHooks struct {
	SkipInitialVersion            bool
	SkipVerack                    bool
	InjectBeforeVersion           []wire.Message
	InjectBetweenVersionAndVerack []wire.Message
	OverrideNonce                 *uint64
	OverrideVersion               *int32
}

// Result is what a completed (successful or not) handshake attempt learned
// about the peer.
type Result struct {
	Outcome         connection.State
	RejectReason    string
	PeerVersion     int32
	PeerUserAgent   string
	PeerServices    uint64
	PeerStartHeight int32
}

// Handshaker drives one Connection through the Version/Verack exchange.
type Handshaker struct {
	conn    *connection.Connection
	log     ulogger.Logger
	fsm     *fsm.FSM
	minVer  int32
	timeout time.Duration
	hooks   PolicyHooks

	selfNonce uint64
	local     wire.VersionPayload

	peerVersionSeen bool
	peerVerackSeen  bool
	peer            wire.VersionPayload
}

// New builds a Handshaker for conn. local is the Version payload this side
// will advertise (its Nonce field is overwritten with conn.Nonce() unless
// hooks.OverrideNonce is set).
func New(conn *connection.Connection, log ulogger.Logger, minVersion int32, timeout time.Duration, local wire.VersionPayload, hooks PolicyHooks) *Handshaker {
	if timeout <= 0 {
		timeout = DefaultTransitionTimeout
	}

	nonce := conn.Nonce()
	if hooks.OverrideNonce != nil {
		nonce = *hooks.OverrideNonce
	}
	local.Nonce = nonce
	if hooks.OverrideVersion != nil {
		local.Version = *hooks.OverrideVersion
	}

	h := &Handshaker{
		conn:      conn,
		log:       log,
		minVer:    minVersion,
		timeout:   timeout,
		hooks:     hooks,
		selfNonce: nonce,
		local:     local,
	}

	h.fsm = fsm.NewFSM(
		connection.StateConnecting.String(),
		fsm.Events{
			{Name: evSendVersion, Src: []string{connection.StateConnecting.String()}, Dst: connection.StateVersionSent.String()},
			{Name: evRecvVersion, Src: []string{connection.StateConnecting.String(), connection.StateVersionSent.String()}, Dst: connection.StateVersionReceived.String()},
			{Name: evSendVerack, Src: []string{connection.StateVersionReceived.String()}, Dst: connection.StateVerackSent.String()},
			{Name: evRecvVerack, Src: []string{connection.StateVersionSent.String(), connection.StateVerackSent.String(), connection.StateVersionReceived.String()}, Dst: connection.StateEstablished.String()},
			{Name: evReject, Src: []string{connection.StateConnecting.String(), connection.StateVersionSent.String(), connection.StateVersionReceived.String(), connection.StateVerackSent.String()}, Dst: connection.StateRejected.String()},
			{Name: evClose, Src: []string{connection.StateConnecting.String(), connection.StateVersionSent.String(), connection.StateVersionReceived.String(), connection.StateVerackSent.String(), connection.StateEstablished.String()}, Dst: connection.StateClosing.String()},
		},
		fsm.Callbacks{
			"enter_state": func(_ context.Context, e *fsm.Event) {
				h.log.Debugf("handshake %s: %s -> %s (%s)", conn.Remote(), e.Src, e.Dst, e.Event)
			},
		},
	)

	return h
}

// AsInitiator runs the handshake as the connecting side: send Version,
// receive Version, send Verack, receive Verack.
func (h *Handshaker) AsInitiator(ctx context.Context) (Result, error) {
	if !h.hooks.SkipInitialVersion {
		if err := h.sendVersion(); err != nil {
			return h.failure(err)
		}
	}

	if err := h.readUntil(ctx, h.wantVersion); err != nil {
		return h.failure(err)
	}
	if err := h.validatePeerVersion(); err != nil {
		return h.rejectAndClose(err)
	}

	h.injectBetween()

	if !h.hooks.SkipVerack {
		if err := h.sendVerack(); err != nil {
			return h.failure(err)
		}
	}

	if err := h.readUntil(ctx, h.wantVerack); err != nil {
		return h.failure(err)
	}

	h.conn.SetState(connection.StateEstablished)
	return h.success(), nil
}

// AsResponder runs the handshake as the accepting side: receive Version,
// send Version, receive Verack, send Verack.
func (h *Handshaker) AsResponder(ctx context.Context) (Result, error) {
	if err := h.readUntil(ctx, h.wantVersion); err != nil {
		return h.failure(err)
	}
	if err := h.validatePeerVersion(); err != nil {
		return h.rejectAndClose(err)
	}

	if !h.hooks.SkipInitialVersion {
		if err := h.sendVersion(); err != nil {
			return h.failure(err)
		}
	}

	h.injectBetween()

	if err := h.readUntil(ctx, h.wantVerack); err != nil {
		return h.failure(err)
	}

	if !h.hooks.SkipVerack {
		if err := h.sendVerack(); err != nil {
			return h.failure(err)
		}
	}

	h.conn.SetState(connection.StateEstablished)
	return h.success(), nil
}

func (h *Handshaker) sendVersion() error {
	for _, m := range h.hooks.InjectBeforeVersion {
		if err := h.conn.Send(m); err != nil {
			return err
		}
	}
	if err := h.conn.Send(wire.NewVersion(h.local)); err != nil {
		return err
	}
	// A responder sends its Version after the FSM has already reached
	// VersionReceived, so only the initiator takes this transition.
	if h.fsm.Can(evSendVersion) {
		if err := h.fsm.Event(context.Background(), evSendVersion); err != nil {
			return err
		}
		h.conn.SetState(connection.StateVersionSent)
	}
	return nil
}

func (h *Handshaker) sendVerack() error {
	if err := h.conn.Send(wire.NewVerack()); err != nil {
		return err
	}
	// A responder sends its Verack after the peer's Verack has already
	// moved the FSM to Established, so only the initiator takes this
	// transition.
	if h.fsm.Can(evSendVerack) {
		if err := h.fsm.Event(context.Background(), evSendVerack); err != nil {
			return err
		}
		h.conn.SetState(connection.StateVerackSent)
	}
	return nil
}

func (h *Handshaker) injectBetween() {
	for _, m := range h.hooks.InjectBetweenVersionAndVerack {
		_ = h.conn.Send(m)
	}
}

// wantVersion and wantVerack report whether an inbound message satisfies
// the step being waited on, recording it as a side effect. Non-Version,
// non-Verack traffic during the handshake is tolerated and ignored per the
// protocol's handshake tolerance rule, matching what real nodes accept from
// a peer whose messages race the handshake.
func (h *Handshaker) wantVersion(m wire.Message) bool {
	if m.Command != wire.CmdVersion || m.Version == nil {
		return false
	}
	h.peer = *m.Version
	h.peerVersionSeen = true
	_ = h.fsm.Event(context.Background(), evRecvVersion)
	h.conn.SetState(connection.StateVersionReceived)
	return true
}

func (h *Handshaker) wantVerack(m wire.Message) bool {
	if m.Command != wire.CmdVerack {
		return false
	}
	h.peerVerackSeen = true
	_ = h.fsm.Event(context.Background(), evRecvVerack)
	return true
}

func (h *Handshaker) validatePeerVersion() error {
	if h.peer.Nonce == h.selfNonce {
		return zerrors.NewSelfConnectionError("peer %s echoed our own nonce", h.conn.Remote())
	}
	if h.peer.Version < h.minVer {
		return zerrors.NewVersionMismatchError("peer %s advertised version %d, below minimum %d", h.conn.Remote(), h.peer.Version, h.minVer)
	}
	return nil
}

// rejectAndClose sends a Reject for obsolete-version failures (matching
// observed node behaviour of explaining a version refusal) and closes
// without ever sending Verack; self-connection is closed silently, with no
// Reject, since there is no useful peer on the other end to inform.
func (h *Handshaker) rejectAndClose(cause error) (Result, error) {
	var zerr *zerrors.Error
	isSelfConnection := zerrors.As(cause, &zerr) && zerr.Code() == zerrors.ERR_SELF_CONNECTION
	if zerrors.As(cause, &zerr) && zerr.Code() == zerrors.ERR_VERSION_MISMATCH {
		_ = h.conn.Send(wire.NewReject(wire.RejectPayload{
			Message: wire.CmdVersion,
			CCode:   wire.CCodeObsolete,
			Reason:  "obsolete version",
		}))
	}

	_ = h.fsm.Event(context.Background(), evReject)
	if isSelfConnection {
		h.conn.RejectWriteOnly(cause.Error())
	} else {
		h.conn.Reject(cause.Error())
	}
	return Result{Outcome: connection.StateRejected, RejectReason: cause.Error()}, cause
}

func (h *Handshaker) readUntil(ctx context.Context, accept func(wire.Message) bool) error {
	deadline := time.Now().Add(h.timeout)
	ctx, cancel := context.WithDeadline(ctx, deadline)
	defer cancel()

	for {
		select {
		case in, ok := <-h.conn.Inbound():
			if !ok {
				return zerrors.NewPeerClosedEarlyError("connection to %s closed during handshake", h.conn.Remote())
			}
			if accept(in.Message) {
				return nil
			}
			// tolerated: non-Version/Verack traffic during handshake is
			// dropped rather than treated as an error
		case <-ctx.Done():
			return zerrors.NewTimeoutError("handshake with %s timed out waiting for next step: %v", h.conn.Remote(), ctx.Err())
		}
	}
}

func (h *Handshaker) failure(err error) (Result, error) {
	_ = h.fsm.Event(context.Background(), evClose)
	h.conn.SetState(connection.StateClosing)
	return Result{Outcome: connection.StateClosing, RejectReason: err.Error()}, err
}

func (h *Handshaker) success() Result {
	return Result{
		Outcome:         connection.StateEstablished,
		PeerVersion:     h.peer.Version,
		PeerUserAgent:   h.peer.UserAgent,
		PeerServices:    h.peer.Services,
		PeerStartHeight: h.peer.StartHeight,
	}
}
