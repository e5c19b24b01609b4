// Package metrics computes graph-level statistics over a network.KnownNetwork
// and exposes them both as a plain snapshot (for JSON-RPC) and as Prometheus
// gauges (for scraping).
package metrics

import (
	"fmt"
	"sort"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/runziggurat/zcash/internal/network"
)

// Snapshot is one point-in-time read of the Known-Network's graph metrics.
type Snapshot struct {
	NumKnownNodes         int            `json:"num_known_nodes"`
	NumGoodNodes          int            `json:"num_good_nodes"`
	NumKnownConnections   int            `json:"num_known_connections"`
	NumVersions           int            `json:"num_versions"`
	ProtocolVersions      map[int32]int  `json:"protocol_versions"`
	UserAgents            map[string]int `json:"user_agents"`
	CrawlerRuntimeSeconds float64        `json:"crawler_runtime_seconds"`
	Density               float64        `json:"density"`
	AvgDegreeCentrality   int            `json:"avg_degree_centrality"`
	DegreeCentralityDelta int            `json:"degree_centrality_delta"`
}

// Compute derives a Snapshot from kn's current state. All fields are
// computed from a small number of consistent reads rather than one giant
// lock hold, since KnownNetwork's own accessors are individually
// linearisable and metrics don't need cross-call atomicity.
func Compute(kn *network.KnownNetwork) Snapshot {
	nodes := kn.Snapshot()
	degrees := kn.Degrees()

	s := Snapshot{
		NumKnownNodes:         len(nodes),
		NumKnownConnections:   kn.EdgeCount(),
		ProtocolVersions:      map[int32]int{},
		UserAgents:            map[string]int{},
		CrawlerRuntimeSeconds: kn.Runtime().Seconds(),
	}

	for _, n := range nodes {
		if n.Good() {
			s.NumGoodNodes++
		}
		if n.HasVersion {
			s.NumVersions++
			s.ProtocolVersions[n.ProtocolVersion]++
		}
		if n.UserAgent != "" {
			s.UserAgents[n.UserAgent]++
		}
	}

	v := float64(len(nodes))
	if v > 1 {
		s.Density = float64(s.NumKnownConnections) / (v * (v - 1))
	}

	if len(degrees) > 0 {
		sum, min, max := 0, -1, 0
		for _, d := range degrees {
			sum += d
			if min == -1 || d < min {
				min = d
			}
			if d > max {
				max = d
			}
		}
		s.AvgDegreeCentrality = sum / len(degrees) // integer-truncated, matching the crawler's degree accounting
		s.DegreeCentralityDelta = max - min
	}

	return s
}

// String renders the snapshot as the human-readable block written to
// crawler-log.txt on shutdown, distinct from the JSON form getmetrics
// returns over JSON-RPC.
func (s Snapshot) String() string {
	var b strings.Builder

	fmt.Fprintf(&b, "known nodes:        %d\n", s.NumKnownNodes)
	fmt.Fprintf(&b, "good nodes:         %d\n", s.NumGoodNodes)
	fmt.Fprintf(&b, "known connections:  %d\n", s.NumKnownConnections)
	fmt.Fprintf(&b, "versioned nodes:    %d\n", s.NumVersions)
	fmt.Fprintf(&b, "crawl runtime:      %.0fs\n", s.CrawlerRuntimeSeconds)
	fmt.Fprintf(&b, "graph density:      %.6f\n", s.Density)
	fmt.Fprintf(&b, "avg degree:         %d\n", s.AvgDegreeCentrality)
	fmt.Fprintf(&b, "degree delta:       %d\n", s.DegreeCentralityDelta)

	fmt.Fprintf(&b, "protocol versions:\n")
	for _, v := range sortedInt32Keys(s.ProtocolVersions) {
		fmt.Fprintf(&b, "  %d: %d\n", v, s.ProtocolVersions[v])
	}

	fmt.Fprintf(&b, "user agents:\n")
	for _, ua := range sortedStringKeys(s.UserAgents) {
		fmt.Fprintf(&b, "  %s: %d\n", ua, s.UserAgents[ua])
	}

	return b.String()
}

func sortedInt32Keys(m map[int32]int) []int32 {
	keys := make([]int32, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

func sortedStringKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Collector adapts a KnownNetwork into a prometheus.Collector, recomputing
// its Snapshot on every scrape rather than caching between scrapes.
type Collector struct {
	kn *network.KnownNetwork

	numKnownNodes       *prometheus.Desc
	numGoodNodes        *prometheus.Desc
	numKnownConnections *prometheus.Desc
	numVersions         *prometheus.Desc
	crawlerRuntime      *prometheus.Desc
	density             *prometheus.Desc
	avgDegreeCentrality *prometheus.Desc
	degreeCentralityGap *prometheus.Desc
}

// NewCollector returns a Collector reading kn on every scrape.
func NewCollector(kn *network.KnownNetwork) *Collector {
	return &Collector{
		kn:                  kn,
		numKnownNodes:       prometheus.NewDesc("zcrawl_known_nodes", "Number of vertices in the known network.", nil, nil),
		numGoodNodes:        prometheus.NewDesc("zcrawl_good_nodes", "Number of vertices with a successful last handshake.", nil, nil),
		numKnownConnections: prometheus.NewDesc("zcrawl_known_connections", "Number of directed edges in the known network.", nil, nil),
		numVersions:         prometheus.NewDesc("zcrawl_versioned_nodes", "Number of vertices with a protocol version on record.", nil, nil),
		crawlerRuntime:      prometheus.NewDesc("zcrawl_runtime_seconds", "Seconds since the crawl began.", nil, nil),
		density:             prometheus.NewDesc("zcrawl_graph_density", "Directed graph density |E|/(|V|(|V|-1)).", nil, nil),
		avgDegreeCentrality: prometheus.NewDesc("zcrawl_avg_degree_centrality", "Mean distinct-neighbour degree across vertices with degree > 0.", nil, nil),
		degreeCentralityGap: prometheus.NewDesc("zcrawl_degree_centrality_delta", "Max minus min degree among vertices with degree > 0.", nil, nil),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.numKnownNodes
	ch <- c.numGoodNodes
	ch <- c.numKnownConnections
	ch <- c.numVersions
	ch <- c.crawlerRuntime
	ch <- c.density
	ch <- c.avgDegreeCentrality
	ch <- c.degreeCentralityGap
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	s := Compute(c.kn)
	ch <- prometheus.MustNewConstMetric(c.numKnownNodes, prometheus.GaugeValue, float64(s.NumKnownNodes))
	ch <- prometheus.MustNewConstMetric(c.numGoodNodes, prometheus.GaugeValue, float64(s.NumGoodNodes))
	ch <- prometheus.MustNewConstMetric(c.numKnownConnections, prometheus.GaugeValue, float64(s.NumKnownConnections))
	ch <- prometheus.MustNewConstMetric(c.numVersions, prometheus.GaugeValue, float64(s.NumVersions))
	ch <- prometheus.MustNewConstMetric(c.crawlerRuntime, prometheus.GaugeValue, s.CrawlerRuntimeSeconds)
	ch <- prometheus.MustNewConstMetric(c.density, prometheus.GaugeValue, s.Density)
	ch <- prometheus.MustNewConstMetric(c.avgDegreeCentrality, prometheus.GaugeValue, float64(s.AvgDegreeCentrality))
	ch <- prometheus.MustNewConstMetric(c.degreeCentralityGap, prometheus.GaugeValue, float64(s.DegreeCentralityDelta))
}
