package network

import (
	"sync"
	"time"
)

// MisbehaviorReason categorises why a peer's score increased, so a ban's
// cause can be reported without free-text string matching.
type MisbehaviorReason int

const (
	ReasonUnknown MisbehaviorReason = iota
	ReasonProtocolViolation
	ReasonBadChecksum
	ReasonUnsolicitedMessage
	ReasonHandshakeAbuse
)

func (r MisbehaviorReason) String() string {
	switch r {
	case ReasonProtocolViolation:
		return "protocol_violation"
	case ReasonBadChecksum:
		return "bad_checksum"
	case ReasonUnsolicitedMessage:
		return "unsolicited_message"
	case ReasonHandshakeAbuse:
		return "handshake_abuse"
	default:
		return "unknown"
	}
}

type misbehaviorEntry struct {
	score      int
	lastUpdate time.Time
}

// MisbehaviorTracker accumulates per-address penalty points for protocol
// violations observed while crawling, decaying them over time, and bans an
// address into a BanList once its score crosses a threshold. It exists
// because a crawler dials thousands of untrusted addresses and needs to stop
// re-probing ones that keep sending malformed frames, without banning an
// address for one transient glitch.
type MisbehaviorTracker struct {
	bans *BanList

	threshold     int
	banDuration   time.Duration
	decayInterval time.Duration
	decayAmount   int
	points        map[MisbehaviorReason]int

	mu      sync.Mutex
	entries map[string]*misbehaviorEntry
}

// NewMisbehaviorTracker returns a tracker that bans into bans once an
// address's score reaches threshold, for banDuration.
func NewMisbehaviorTracker(bans *BanList, threshold int, banDuration time.Duration) *MisbehaviorTracker {
	return &MisbehaviorTracker{
		bans:          bans,
		threshold:     threshold,
		banDuration:   banDuration,
		decayInterval: time.Minute,
		decayAmount:   1,
		points: map[MisbehaviorReason]int{
			ReasonProtocolViolation:  20,
			ReasonBadChecksum:        5,
			ReasonUnsolicitedMessage: 10,
			ReasonHandshakeAbuse:     15,
		},
		entries: make(map[string]*misbehaviorEntry),
	}
}

// AddScore adds the reason's penalty to host's score, applying decay for
// elapsed time first, and bans host if the threshold is now met. It returns
// the score after adjustment and whether this call triggered a ban.
func (m *MisbehaviorTracker) AddScore(host string, reason MisbehaviorReason) (score int, banned bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	e, ok := m.entries[host]
	if !ok {
		e = &misbehaviorEntry{lastUpdate: now}
		m.entries[host] = e
	}

	if steps := int(now.Sub(e.lastUpdate) / m.decayInterval); steps > 0 {
		e.score -= steps * m.decayAmount
		if e.score < 0 {
			e.score = 0
		}
		e.lastUpdate = now
	}

	pts, found := m.points[reason]
	if !found {
		pts = 1
	}
	e.score += pts

	if e.score >= m.threshold {
		if m.bans != nil {
			_ = m.bans.Ban(host, now.Add(m.banDuration))
		}
		delete(m.entries, host)
		return e.score, true
	}

	return e.score, false
}

// Score reports host's current accumulated score without applying decay.
func (m *MisbehaviorTracker) Score(host string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.entries[host]; ok {
		return e.score
	}
	return 0
}
