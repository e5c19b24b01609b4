// Package crawler drives the periodic probing loop that walks the Zcash
// peer-to-peer graph outward from a set of seed addresses, recording what it
// learns into a network.KnownNetwork.
package crawler

import (
	"context"
	"net"
	"time"

	"github.com/runziggurat/zcash/internal/config"
	"github.com/runziggurat/zcash/internal/network"
	"github.com/runziggurat/zcash/internal/synthpeer"
	"github.com/runziggurat/zcash/internal/ulogger"
	"github.com/runziggurat/zcash/internal/wire"
	"github.com/runziggurat/zcash/internal/zerrors"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// Crawler owns one KnownNetwork and repeatedly probes it via a synthetic
// peer, folding each probe's outcome back into the graph. The synthetic
// peer already carries the Version payload every dial advertises, so the
// crawler itself only needs to schedule and rate-limit probes.
type Crawler struct {
	cfg  config.CrawlerSettings
	kn   *network.KnownNetwork
	peer *synthpeer.Peer
	log  ulogger.Logger

	limiter *rate.Limiter

	// tracker is optional: nil means misbehaving peers are recorded in the
	// graph but never auto-banned.
	tracker *network.MisbehaviorTracker
}

// SetMisbehaviorTracker attaches a tracker that auto-bans addresses whose
// accumulated violation score crosses its threshold.
func (c *Crawler) SetMisbehaviorTracker(t *network.MisbehaviorTracker) {
	c.tracker = t
}

// New builds a Crawler probing kn's candidates through peer.
func New(cfg config.CrawlerSettings, kn *network.KnownNetwork, peer *synthpeer.Peer, log ulogger.Logger) *Crawler {
	concurrency := cfg.MaxConcurrentProbes
	if concurrency <= 0 {
		concurrency = 50
	}

	return &Crawler{
		cfg:     cfg,
		kn:      kn,
		peer:    peer,
		log:     log,
		limiter: rate.NewLimiter(rate.Limit(concurrency), concurrency),
	}
}

// SeedAll registers every configured seed address as a vertex so the first
// tick has candidates even before any Addr response arrives.
func (c *Crawler) SeedAll() {
	for _, addr := range c.cfg.SeedAddrs {
		c.kn.EnsureVertex(addr)
	}
}

// Run ticks every CrawlInterval until ctx is cancelled, probing a bounded
// batch of candidates on each tick.
func (c *Crawler) Run(ctx context.Context) error {
	c.SeedAll()

	interval := c.cfg.CrawlInterval
	if interval <= 0 {
		interval = 5 * time.Second
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := c.tick(ctx); err != nil {
				c.log.Warnf("crawler: tick error: %v", err)
			}
			c.kn.PruneToCapacity(c.cfg.MaxKnownNodes)
		}
	}
}

// TickOnce runs a single probe batch synchronously. Exposed for tests.
func (c *Crawler) TickOnce(ctx context.Context) error {
	return c.tick(ctx)
}

func (c *Crawler) tick(ctx context.Context) error {
	candidates := c.kn.Candidates(time.Now(), c.cfg.ProbeCooldown, c.cfg.MaxConcurrentProbes)
	if len(candidates) == 0 {
		return nil
	}

	group, gctx := errgroup.WithContext(ctx)
	for _, addr := range candidates {
		addr := addr
		if !c.kn.TryAcquireProbe(addr) {
			continue
		}
		group.Go(func() error {
			defer c.kn.ReleaseProbe(addr)
			c.probe(gctx, addr)
			return nil
		})
	}
	return group.Wait()
}

// probe connects to addr, completes the handshake, requests its address
// list, and folds the outcome back into the KnownNetwork. Errors are
// recorded as vertex state rather than propagated, so one bad peer never
// aborts the tick.
func (c *Crawler) probe(ctx context.Context, addr string) {
	if err := c.limiter.Wait(ctx); err != nil {
		return
	}

	now := time.Now()
	c.kn.RecordAttempt(addr, now)

	dialCtx, cancel := context.WithTimeout(ctx, c.cfg.AddrTimeout)
	defer cancel()

	id, err := c.peer.Connect(dialCtx, addr)
	if err != nil {
		outcome := classifyDialError(err)
		c.kn.ProbeFailure(addr, outcome)
		if outcome == network.OutcomeVersionMismatch || outcome == network.OutcomeRefused {
			c.penalize(addr, network.ReasonHandshakeAbuse)
		}
		return
	}
	defer c.peer.Disconnect(id)

	hsResult, _ := c.peer.HandshakeResult(id)
	recordSuccess := func() {
		c.kn.ProbeSuccess(addr, hsResult.PeerVersion, hsResult.PeerUserAgent, hsResult.PeerServices, now)
	}

	reply, err := c.peer.SendAndExpect(dialCtx, id, wire.NewGetAddr(), func(m wire.Message) bool {
		return m.Command == wire.CmdAddr
	}, c.cfg.AddrTimeout)
	if err != nil {
		// Handshake already succeeded (Connect returned an ID); the peer
		// simply never answered GetAddr. Still record it as reachable.
		recordSuccess()
		return
	}

	recordSuccess()

	if reply.Addr == nil {
		return
	}
	neighbours := make([]string, 0, len(reply.Addr.Addrs))
	for _, a := range reply.Addr.Addrs {
		neighbours = append(neighbours, a.Addr())
	}
	c.kn.ReplaceOutEdges(addr, neighbours)
}

// penalize scores addr's host against the misbehavior tracker, if one is
// attached. Malformed addresses are ignored rather than penalizing garbage.
func (c *Crawler) penalize(addr string, reason network.MisbehaviorReason) {
	if c.tracker == nil {
		return
	}
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return
	}
	if score, banned := c.tracker.AddScore(host, reason); banned {
		c.log.Warnf("crawler: banned %s after misbehavior score reached %d", host, score)
	}
}

func classifyDialError(err error) network.HandshakeOutcome {
	var zerr *zerrors.Error
	if !zerrors.As(err, &zerr) {
		return network.OutcomeNetworkError
	}
	switch zerr.Code() {
	case zerrors.ERR_TIMEOUT:
		return network.OutcomeTimeout
	case zerrors.ERR_VERSION_MISMATCH:
		return network.OutcomeVersionMismatch
	case zerrors.ERR_NETWORK_CONNECTION_REFUSED, zerrors.ERR_SELF_CONNECTION, zerrors.ERR_POLICY_REJECT:
		return network.OutcomeRefused
	default:
		return network.OutcomeNetworkError
	}
}
