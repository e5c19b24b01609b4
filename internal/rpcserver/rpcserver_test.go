package rpcserver_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/runziggurat/zcash/internal/network"
	"github.com/runziggurat/zcash/internal/rpcserver"
	"github.com/runziggurat/zcash/internal/ulogger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startServer(t *testing.T, kn *network.KnownNetwork) string {
	t.Helper()
	addr := "127.0.0.1:18299"
	s := rpcserver.New(addr, kn, ulogger.New("test"), 0)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = s.ListenAndServe(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	time.Sleep(50 * time.Millisecond)
	return "http://" + addr
}

func call(t *testing.T, url, method string) map[string]interface{} {
	t.Helper()
	return callWithParams(t, url, method, nil)
}

func callWithParams(t *testing.T, url, method string, params interface{}) map[string]interface{} {
	t.Helper()
	req := map[string]interface{}{"jsonrpc": "2.0", "method": method, "id": 1}
	if params != nil {
		req["params"] = params
	}
	body, err := json.Marshal(req)
	require.NoError(t, err)

	resp, err := http.Post(url, "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func TestPing_ReturnsPong(t *testing.T) {
	url := startServer(t, network.New())
	out := call(t, url, "ping")
	assert.Equal(t, "pong", out["result"])
}

func TestGetMetrics_ReturnsSnapshot(t *testing.T) {
	kn := network.New()
	kn.ProbeSuccess("1.2.3.4:8233", 170100, "/synth:0.1/", 1, time.Now())

	url := startServer(t, kn)
	out := call(t, url, "getmetrics")
	result, ok := out["result"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, float64(1), result["num_known_nodes"])
	assert.Equal(t, float64(1), result["num_good_nodes"])
}

func TestGetNodes_ReturnsShapeWithTimestamps(t *testing.T) {
	kn := network.New()
	now := time.Now()
	kn.RecordAttempt("1.2.3.4:8233", now)
	kn.ProbeSuccess("1.2.3.4:8233", 170100, "/synth:0.1/", 1, now)

	url := startServer(t, kn)
	out := call(t, url, "getnodes")
	result, ok := out["result"].(map[string]interface{})
	require.True(t, ok)

	assert.Equal(t, float64(1), result["total"])
	assert.Equal(t, float64(0), result["offset"])
	nodes, ok := result["nodes"].([]interface{})
	require.True(t, ok)
	require.Len(t, nodes, 1)

	node, ok := nodes[0].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "1.2.3.4:8233", node["addr"])
	assert.Equal(t, "ok", node["handshake_outcome"])
	assert.Equal(t, float64(170100), node["protocol_version"])
	assert.Equal(t, "/synth:0.1/", node["user_agent"])
	assert.NotEmpty(t, node["last_seen_attempt"])
	assert.NotEmpty(t, node["last_seen_success"])
}

func TestGetNodes_Paginates(t *testing.T) {
	kn := network.New()
	for _, addr := range []string{"1.1.1.1:8233", "2.2.2.2:8233", "3.3.3.3:8233"} {
		kn.RecordAttempt(addr, time.Now())
	}

	url := startServer(t, kn)

	out := call(t, url, "getnodes")
	result, ok := out["result"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, float64(3), result["total"])
	assert.Equal(t, float64(100), result["limit"])
	nodes, ok := result["nodes"].([]interface{})
	require.True(t, ok)
	require.Len(t, nodes, 3)

	out = callWithParams(t, url, "getnodes", map[string]interface{}{"offset": 1, "limit": 1})
	result, ok = out["result"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, float64(3), result["total"])
	assert.Equal(t, float64(1), result["offset"])
	assert.Equal(t, float64(1), result["limit"])
	nodes, ok = result["nodes"].([]interface{})
	require.True(t, ok)
	require.Len(t, nodes, 1)

	node, ok := nodes[0].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "2.2.2.2:8233", node["addr"])

	out = callWithParams(t, url, "getnodes", map[string]interface{}{"offset": 10, "limit": 1})
	result, ok = out["result"].(map[string]interface{})
	require.True(t, ok)
	nodes, ok = result["nodes"].([]interface{})
	require.True(t, ok)
	assert.Len(t, nodes, 0)
}

func TestUnknownMethod_ReturnsMethodNotFound(t *testing.T) {
	url := startServer(t, network.New())
	out := call(t, url, "bogus")
	errObj, ok := out["error"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, float64(-32601), errObj["code"])
}
