// Package network holds the crawler's Known-Network: a directed graph of
// every address the crawler has ever heard of, mutated by crawl workers and
// read by the metrics and RPC surfaces.
package network

import (
	"sort"
	"sync"
	"time"

	"github.com/dolthub/swiss"
)

// HandshakeOutcome records the result of the most recent probe against a vertex.
type HandshakeOutcome int

const (
	OutcomeUnknown HandshakeOutcome = iota
	OutcomeOk
	OutcomeVersionMismatch
	OutcomeRefused
	OutcomeTimeout
	OutcomeNetworkError
)

func (o HandshakeOutcome) String() string {
	switch o {
	case OutcomeOk:
		return "ok"
	case OutcomeVersionMismatch:
		return "version_mismatch"
	case OutcomeRefused:
		return "refused"
	case OutcomeTimeout:
		return "timeout"
	case OutcomeNetworkError:
		return "network_error"
	default:
		return "unknown"
	}
}

// NodeState is one vertex's mutable record. Fields mirror what a probe
// learns from a peer's Version payload plus this crawler's own bookkeeping.
type NodeState struct {
	Addr             string
	LastSeenAttempt  time.Time
	LastSeenSuccess  time.Time
	HandshakeOutcome HandshakeOutcome
	ProtocolVersion  int32
	HasVersion       bool
	UserAgent        string
	Services         uint64
	InFlight         bool

	// AttemptCount and SuccessCount are rolling lifetime counters, used only
	// as a Candidates tie-break when two vertices are otherwise equally
	// ranked; they never override the successful/staleness ordering itself.
	AttemptCount int
	SuccessCount int
}

// successRatio reports n's lifetime success rate, treating a never-attempted
// vertex as a mid-table 0.5 so it neither jumps the queue nor gets starved
// behind vertices with a proven track record.
func (n *NodeState) successRatio() float64 {
	if n.AttemptCount == 0 {
		return 0.5
	}
	return float64(n.SuccessCount) / float64(n.AttemptCount)
}

// Good reports whether the vertex's most recent handshake succeeded.
func (n *NodeState) Good() bool {
	return n.HandshakeOutcome == OutcomeOk
}

// KnownNetwork is the crawler's directed graph G=(V,E). It is the only
// shared mutable structure in the system; every mutation holds mu for a
// critical section bounded by the edges of one vertex.
type KnownNetwork struct {
	mu       sync.RWMutex
	vertices *swiss.Map[string, *NodeState]
	outEdges map[string]map[string]struct{}
	inEdges  map[string]map[string]struct{}
	start    time.Time
}

// New returns an empty Known-Network, timestamped at construction for
// crawler_runtime accounting.
func New() *KnownNetwork {
	return &KnownNetwork{
		vertices: swiss.NewMap[string, *NodeState](64),
		outEdges: make(map[string]map[string]struct{}),
		inEdges:  make(map[string]map[string]struct{}),
		start:    time.Now(),
	}
}

// Runtime returns the elapsed time since the network was created.
func (kn *KnownNetwork) Runtime() time.Duration {
	return time.Since(kn.start)
}

// EnsureVertex creates addr's vertex if it doesn't already exist and returns
// its current state. Safe to call from seed loading, Addr processing, or
// inbound-connection observation.
func (kn *KnownNetwork) EnsureVertex(addr string) *NodeState {
	kn.mu.Lock()
	defer kn.mu.Unlock()
	return kn.ensureVertexLocked(addr)
}

func (kn *KnownNetwork) ensureVertexLocked(addr string) *NodeState {
	if v, ok := kn.vertices.Get(addr); ok {
		return v
	}
	v := &NodeState{Addr: addr}
	kn.vertices.Put(addr, v)
	return v
}

// TryAcquireProbe sets in_flight for addr under the network lock, creating
// the vertex if necessary, and reports whether it was previously false.
// This is the sole per-vertex concurrency primitive: no per-vertex mutex is
// needed because every read-modify-write of InFlight happens here.
func (kn *KnownNetwork) TryAcquireProbe(addr string) bool {
	kn.mu.Lock()
	defer kn.mu.Unlock()

	v := kn.ensureVertexLocked(addr)
	if v.InFlight {
		return false
	}
	v.InFlight = true
	return true
}

// ReleaseProbe clears in_flight for addr.
func (kn *KnownNetwork) ReleaseProbe(addr string) {
	kn.mu.Lock()
	defer kn.mu.Unlock()

	if v, ok := kn.vertices.Get(addr); ok {
		v.InFlight = false
	}
}

// RecordAttempt stamps last_seen_attempt for addr.
func (kn *KnownNetwork) RecordAttempt(addr string, at time.Time) {
	kn.mu.Lock()
	defer kn.mu.Unlock()

	v := kn.ensureVertexLocked(addr)
	v.LastSeenAttempt = at
	v.AttemptCount++
}

// ProbeSuccess records a successful handshake's outcome for addr. When two
// concurrent observations disagree, the caller must have already checked
// LastSeenSuccess freshness; this method always overwrites, matching the
// "fresher last_seen_success wins" rule enforced by never calling it out of
// order for the same vertex (probes are serialised by in_flight).
func (kn *KnownNetwork) ProbeSuccess(addr string, version int32, userAgent string, services uint64, at time.Time) {
	kn.mu.Lock()
	defer kn.mu.Unlock()

	v := kn.ensureVertexLocked(addr)
	v.HandshakeOutcome = OutcomeOk
	v.ProtocolVersion = version
	v.HasVersion = true
	v.UserAgent = userAgent
	v.Services = services
	v.LastSeenSuccess = at
	v.SuccessCount++
}

// ProbeFailure records a failed probe's outcome for addr.
func (kn *KnownNetwork) ProbeFailure(addr string, outcome HandshakeOutcome) {
	kn.mu.Lock()
	defer kn.mu.Unlock()

	v := kn.ensureVertexLocked(addr)
	v.HandshakeOutcome = outcome
}

// ReplaceOutEdges atomically replaces from's out-edge set with to, creating
// any new vertices among to. Used after a GetAddr round-trip: "the
// candidate's out-edge set is replaced with the set of reported addresses."
func (kn *KnownNetwork) ReplaceOutEdges(from string, to []string) {
	kn.mu.Lock()
	defer kn.mu.Unlock()

	kn.ensureVertexLocked(from)

	if old, ok := kn.outEdges[from]; ok {
		for dst := range old {
			if in, ok := kn.inEdges[dst]; ok {
				delete(in, from)
			}
		}
	}

	newSet := make(map[string]struct{}, len(to))
	for _, dst := range to {
		kn.ensureVertexLocked(dst)
		newSet[dst] = struct{}{}

		if kn.inEdges[dst] == nil {
			kn.inEdges[dst] = make(map[string]struct{})
		}
		kn.inEdges[dst][from] = struct{}{}
	}
	kn.outEdges[from] = newSet
}

// VertexCount returns |V|.
func (kn *KnownNetwork) VertexCount() int {
	kn.mu.RLock()
	defer kn.mu.RUnlock()
	return kn.vertices.Count()
}

// EdgeCount returns |E|.
func (kn *KnownNetwork) EdgeCount() int {
	kn.mu.RLock()
	defer kn.mu.RUnlock()

	n := 0
	for _, set := range kn.outEdges {
		n += len(set)
	}
	return n
}

// Snapshot returns a copy of every vertex, for use by metrics and admission
// control, taken under a single lock acquisition for a consistent view.
func (kn *KnownNetwork) Snapshot() []NodeState {
	kn.mu.RLock()
	defer kn.mu.RUnlock()

	out := make([]NodeState, 0, kn.vertices.Count())
	kn.vertices.Iter(func(_ string, v *NodeState) bool {
		out = append(out, *v)
		return false
	})
	return out
}

// Degrees returns, for every vertex with at least one edge, its count of
// distinct neighbours (in ∪ out). Used by the metrics package to compute
// avg_degree_centrality and degree_centrality_delta without re-deriving
// the graph's internal edge maps.
func (kn *KnownNetwork) Degrees() map[string]int {
	kn.mu.RLock()
	defer kn.mu.RUnlock()

	out := make(map[string]int)
	kn.vertices.Iter(func(addr string, _ *NodeState) bool {
		neighbours := make(map[string]struct{})
		for dst := range kn.outEdges[addr] {
			neighbours[dst] = struct{}{}
		}
		for src := range kn.inEdges[addr] {
			neighbours[src] = struct{}{}
		}
		if len(neighbours) > 0 {
			out[addr] = len(neighbours)
		}
		return false
	})
	return out
}

// Candidates returns vertices eligible for a probe this tick: not in-flight,
// and either never attempted or idle past cooldown. Ranked successful
// before failed, then stale (oldest attempt) before fresh; ties on both of
// those (same good/bad standing, same attempt timestamp) break in favour of
// the vertex with the better lifetime success ratio, so a vertex that keeps
// failing doesn't crowd out one that mostly answers.
func (kn *KnownNetwork) Candidates(now time.Time, cooldown time.Duration, limit int) []string {
	kn.mu.RLock()
	defer kn.mu.RUnlock()

	type candidate struct {
		addr    string
		good    bool
		attempt time.Time
		ratio   float64
	}

	var pool []candidate
	kn.vertices.Iter(func(addr string, v *NodeState) bool {
		if v.InFlight {
			return false
		}
		if !v.LastSeenAttempt.IsZero() && now.Sub(v.LastSeenAttempt) < cooldown {
			return false
		}
		pool = append(pool, candidate{addr: addr, good: v.Good(), attempt: v.LastSeenAttempt, ratio: v.successRatio()})
		return false
	})

	sort.Slice(pool, func(i, j int) bool {
		if pool[i].good != pool[j].good {
			return pool[i].good // successful before failed
		}
		if !pool[i].attempt.Equal(pool[j].attempt) {
			return pool[i].attempt.Before(pool[j].attempt) // stale before fresh
		}
		return pool[i].ratio > pool[j].ratio // tie-break: better track record first
	})

	if limit > 0 && len(pool) > limit {
		pool = pool[:limit]
	}

	addrs := make([]string, len(pool))
	for i, c := range pool {
		addrs[i] = c.addr
	}
	return addrs
}

// PruneToCapacity evicts never-successful vertices, oldest attempt first,
// until |V| <= max. Successful vertices and in-flight vertices are never
// pruned.
func (kn *KnownNetwork) PruneToCapacity(max int) int {
	kn.mu.Lock()
	defer kn.mu.Unlock()

	if max <= 0 || kn.vertices.Count() <= max {
		return 0
	}

	type victim struct {
		addr    string
		attempt time.Time
	}
	var candidates []victim
	kn.vertices.Iter(func(addr string, v *NodeState) bool {
		if !v.Good() && !v.InFlight {
			candidates = append(candidates, victim{addr: addr, attempt: v.LastSeenAttempt})
		}
		return false
	})

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].attempt.Before(candidates[j].attempt)
	})

	toEvict := kn.vertices.Count() - max
	if toEvict > len(candidates) {
		toEvict = len(candidates)
	}

	for i := 0; i < toEvict; i++ {
		addr := candidates[i].addr
		kn.vertices.Delete(addr)
		delete(kn.outEdges, addr)
		delete(kn.inEdges, addr)
		for _, set := range kn.outEdges {
			delete(set, addr)
		}
		for _, set := range kn.inEdges {
			delete(set, addr)
		}
	}
	return toEvict
}
