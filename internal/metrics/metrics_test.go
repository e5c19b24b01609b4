package metrics_test

import (
	"testing"
	"time"

	"github.com/runziggurat/zcash/internal/metrics"
	"github.com/runziggurat/zcash/internal/network"
	"github.com/stretchr/testify/assert"
)

func TestCompute_DensityAndDegreeStats(t *testing.T) {
	kn := network.New()

	// A triangle: a->b, b->c, c->a. Every vertex has 2 distinct neighbours.
	kn.ReplaceOutEdges("a", []string{"b"})
	kn.ReplaceOutEdges("b", []string{"c"})
	kn.ReplaceOutEdges("c", []string{"a"})

	now := time.Now()
	kn.ProbeSuccess("a", 170100, "/synth:0.1/", 1, now)
	kn.ProbeSuccess("b", 170100, "/synth:0.1/", 1, now)
	kn.ProbeFailure("c", network.OutcomeTimeout)

	snap := metrics.Compute(kn)

	assert.Equal(t, 3, snap.NumKnownNodes)
	assert.Equal(t, 2, snap.NumGoodNodes)
	assert.Equal(t, 3, snap.NumKnownConnections)
	assert.Equal(t, 2, snap.NumVersions)
	assert.InDelta(t, 3.0/(3.0*2.0), snap.Density, 1e-9)
	assert.Equal(t, 2, snap.AvgDegreeCentrality)
	assert.Equal(t, 0, snap.DegreeCentralityDelta)
	assert.Equal(t, 2, snap.ProtocolVersions[170100])
	assert.Equal(t, 2, snap.UserAgents["/synth:0.1/"])
}

func TestCompute_EmptyNetwork(t *testing.T) {
	kn := network.New()
	snap := metrics.Compute(kn)

	assert.Equal(t, 0, snap.NumKnownNodes)
	assert.Equal(t, 0.0, snap.Density)
	assert.Equal(t, 0, snap.AvgDegreeCentrality)
}

func TestSnapshot_StringIncludesCounts(t *testing.T) {
	kn := network.New()
	kn.ProbeSuccess("a", 170100, "/synth:0.1/", 1, time.Now())

	report := metrics.Compute(kn).String()

	assert.Contains(t, report, "known nodes:        1")
	assert.Contains(t, report, "good nodes:         1")
	assert.Contains(t, report, "versioned nodes:    1")
	assert.Contains(t, report, "/synth:0.1/: 1")
	assert.Contains(t, report, "170100: 1")
}
