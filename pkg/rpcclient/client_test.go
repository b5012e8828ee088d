package rpcclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paradigmxyz/cryo/pkg/metrics"
)

func TestCall_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"jsonrpc":"2.0","id":1,"result":"0x10"}`))
	}))
	defer srv.Close()

	c := NewClient(&Config{BaseURL: srv.URL}, nil)
	raw, err := c.Call(context.Background(), "eth_blockNumber", nil)
	require.NoError(t, err)
	var s string
	require.NoError(t, json.Unmarshal(raw, &s))
	assert.Equal(t, "0x10", s)
}

func TestCall_RetriesTransientThenSucceeds(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"jsonrpc":"2.0","id":1,"result":"0x1"}`))
	}))
	defer srv.Close()

	c := NewClient(&Config{BaseURL: srv.URL, InitialBackoff: time.Millisecond}, nil)
	_, err := c.Call(context.Background(), "eth_chainId", nil)
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
}

func TestCall_FatalErrorDoesNotRetry(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write([]byte(`{"jsonrpc":"2.0","id":1,"error":{"code":-32601,"message":"method not found"}}`))
	}))
	defer srv.Close()

	c := NewClient(&Config{BaseURL: srv.URL, InitialBackoff: time.Millisecond}, nil)
	_, err := c.Call(context.Background(), "bogus_method", nil)
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestCall_ExhaustsRetryBudget(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewClient(&Config{BaseURL: srv.URL, MaxRetries: 2, InitialBackoff: time.Millisecond}, nil)
	_, err := c.Call(context.Background(), "eth_chainId", nil)
	require.Error(t, err)
}

func TestChainID_Caches(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write([]byte(`{"jsonrpc":"2.0","id":1,"result":"0x1"}`))
	}))
	defer srv.Close()

	c := NewClient(&Config{BaseURL: srv.URL}, nil)
	id1, err := c.ChainID(context.Background())
	require.NoError(t, err)
	id2, err := c.ChainID(context.Background())
	require.NoError(t, err)
	assert.Equal(t, id1, id2)
	assert.Equal(t, int32(1), calls.Load())
}

func TestCall_RecordsMetricsWhenConfigured(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"jsonrpc":"2.0","id":1,"result":"0x1"}`))
	}))
	defer srv.Close()

	rec := metrics.NewRecorder()
	c := NewClient(&Config{BaseURL: srv.URL, Metrics: rec}, nil)
	_, err := c.Call(context.Background(), "eth_chainId", nil)
	require.NoError(t, err)

	families, err := rec.Registry().Gather()
	require.NoError(t, err)
	var found bool
	for _, fam := range families {
		if fam.GetName() != "cryo_rpc_calls_total" {
			continue
		}
		for _, m := range fam.GetMetric() {
			for _, lp := range m.GetLabel() {
				if lp.GetName() == "method" && lp.GetValue() == "eth_chainId" {
					found = true
				}
			}
		}
	}
	assert.True(t, found, "expected a cryo_rpc_calls_total sample for eth_chainId")
}

func TestBatchCall_DemultiplexesByTag(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var reqs []map[string]interface{}
		json.NewDecoder(r.Body).Decode(&reqs)
		resp := make([]map[string]interface{}, len(reqs))
		for i, req := range reqs {
			resp[i] = map[string]interface{}{
				"jsonrpc": "2.0",
				"id":      req["id"],
				"result":  "0xok",
			}
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	c := NewClient(&Config{BaseURL: srv.URL}, nil)
	results := c.BatchCall(context.Background(), []BatchRequest{
		{Tag: 0, Method: "eth_getBlockByNumber", Params: []interface{}{"0x1", false}},
		{Tag: 1, Method: "eth_getBlockByNumber", Params: []interface{}{"0x2", false}},
	})
	require.Len(t, results, 2)
	assert.Equal(t, 0, results[0].Tag)
	assert.Equal(t, 1, results[1].Tag)
}
