// Package rpcclient is the typed JSON-RPC transport: a global concurrency
// semaphore, an optional token-bucket rate limiter, and retry-with-backoff
// classification of transport vs JSON-RPC errors. Built on a plain
// net/http client rather than an RPC framework, with the admission
// controls and retry policy the acquisition engine requires layered on
// top of a single POST-and-decode call.
package rpcclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/paradigmxyz/cryo/pkg/cryoerrors"
	"github.com/paradigmxyz/cryo/pkg/metrics"
)

// Config is everything needed to construct a Client.
type Config struct {
	BaseURL string

	MaxConcurrentRequests int
	RequestsPerSecond     float64

	MaxRetries     int
	InitialBackoff time.Duration
	RequestTimeout time.Duration

	// Metrics, if set, receives a per-call observation. Nil disables metrics
	// entirely; every Recorder method is nil-receiver safe.
	Metrics *metrics.Recorder
}

func (c *Config) withDefaults() Config {
	out := *c
	if out.MaxConcurrentRequests <= 0 {
		out.MaxConcurrentRequests = 16
	}
	if out.MaxRetries <= 0 {
		out.MaxRetries = 7
	}
	if out.InitialBackoff <= 0 {
		out.InitialBackoff = 250 * time.Millisecond
	}
	if out.RequestTimeout <= 0 {
		out.RequestTimeout = 30 * time.Second
	}
	return out
}

// Client is a shared, immutable JSON-RPC transport. It is safe for
// concurrent use: admission control is via the semaphore/limiter, not a
// mutex over shared mutable state.
type Client struct {
	httpClient *http.Client
	logger     *zap.Logger
	cfg        Config

	sem     *semaphore.Weighted
	limiter *rate.Limiter

	nextID   atomic.Uint64
	chainID  atomic.Uint64 // 0 == not yet resolved
}

// NewClient builds a Client against the given base URL.
func NewClient(cfg *Config, logger *zap.Logger) *Client {
	resolved := cfg.withDefaults()
	var limiter *rate.Limiter
	if resolved.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(resolved.RequestsPerSecond), int(resolved.RequestsPerSecond)+1)
	}
	return &Client{
		httpClient: &http.Client{Timeout: resolved.RequestTimeout},
		logger:     logger,
		cfg:        resolved,
		sem:        semaphore.NewWeighted(int64(resolved.MaxConcurrentRequests)),
		limiter:    limiter,
	}
}

type rpcRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      uint64        `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
}

type rpcResponse struct {
	ID     uint64          `json:"id"`
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Call issues one JSON-RPC call, retrying retryable failures with
// exponential backoff and full jitter up to MaxRetries. Backoff sleeps
// count against neither the semaphore nor the rate limiter.
func (c *Client) Call(ctx context.Context, method string, params []interface{}) (json.RawMessage, error) {
	start := time.Now()
	result, err := c.callWithRetries(ctx, method, params)
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	c.cfg.Metrics.ObserveRPCCall(method, outcome, time.Since(start))
	return result, err
}

func (c *Client) callWithRetries(ctx context.Context, method string, params []interface{}) (json.RawMessage, error) {
	backoff := c.cfg.InitialBackoff
	var lastErr error
	for attempt := 0; attempt <= c.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			sleepFor := fullJitter(backoff)
			select {
			case <-time.After(sleepFor):
			case <-ctx.Done():
				return nil, cryoerrors.NewCancelled(ctx.Err())
			}
			backoff *= 2
		}

		result, err := c.callOnce(ctx, method, params)
		if err == nil {
			return result, nil
		}
		if cryoerrors.KindOf(err) == cryoerrors.KindCancelled {
			return nil, err
		}
		lastErr = err
		if cryoerrors.KindOf(err) != cryoerrors.KindRpcTransient {
			return nil, err
		}
		if c.logger != nil {
			c.logger.Sugar().Debugw("retrying rpc call", "method", method, "attempt", attempt, "err", err)
		}
	}
	return nil, cryoerrors.NewRpcExhausted(lastErr, "rpc call %q exhausted %d retries", method, c.cfg.MaxRetries)
}

func (c *Client) callOnce(ctx context.Context, method string, params []interface{}) (json.RawMessage, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, cryoerrors.NewCancelled(err)
		}
	}
	if err := c.sem.Acquire(ctx, 1); err != nil {
		return nil, cryoerrors.NewCancelled(err)
	}
	defer c.sem.Release(1)

	req := rpcRequest{JSONRPC: "2.0", ID: c.nextID.Add(1), Method: method, Params: params}
	body, err := json.Marshal(req)
	if err != nil {
		return nil, cryoerrors.NewRpcFatal(err, "marshaling request for %s", method)
	}

	respBody, err := c.postRaw(ctx, body)
	if err != nil {
		return nil, annotateMethod(err, method)
	}

	var rpcResp rpcResponse
	if err := json.Unmarshal(respBody, &rpcResp); err != nil {
		return nil, cryoerrors.NewRpcFatal(err, "malformed json-rpc body for %s", method)
	}
	if rpcResp.Error != nil {
		return nil, classifyRPCError(method, rpcResp.Error)
	}
	return rpcResp.Result, nil
}

// postRaw sends body as the HTTP POST payload and returns the raw response
// body, classifying transport and status-code failures but not touching
// the semaphore/limiter (callers already hold their admission slot).
func (c *Client) postRaw(ctx context.Context, body []byte) ([]byte, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL, bytes.NewReader(body))
	if err != nil {
		return nil, cryoerrors.NewRpcFatal(err, "building request")
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, cryoerrors.NewCancelled(err)
		}
		return nil, cryoerrors.NewRpcTransient(err, "transport error")
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, cryoerrors.NewRpcTransient(err, "reading response body")
	}

	if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
		return nil, cryoerrors.NewRpcTransient(fmt.Errorf("http %d", resp.StatusCode), "server error")
	}
	if resp.StatusCode >= 400 {
		return nil, cryoerrors.NewRpcFatal(fmt.Errorf("http %d: %s", resp.StatusCode, respBody), "client error")
	}
	return respBody, nil
}

func annotateMethod(err error, method string) error {
	switch cryoerrors.KindOf(err) {
	case cryoerrors.KindRpcTransient:
		return cryoerrors.NewRpcTransient(err, "calling %s", method)
	case cryoerrors.KindCancelled:
		return err
	default:
		return cryoerrors.NewRpcFatal(err, "calling %s", method)
	}
}

// classifyRPCError maps a well-formed JSON-RPC error response to a fatal
// or transient cryoerrors kind based on its error code, per the RPC
// client's error-classification contract.
func classifyRPCError(method string, rpcErr *rpcError) error {
	switch rpcErr.Code {
	case -32601: // method not found
		return cryoerrors.NewRpcFatal(errors.New(rpcErr.Message), "method %s not found", method)
	case -32602: // invalid params
		return cryoerrors.NewRpcFatal(errors.New(rpcErr.Message), "invalid params calling %s", method)
	case -32000, -32005: // common "limit exceeded" / rate-limit codes
		return cryoerrors.NewRpcTransient(errors.New(rpcErr.Message), "rate limited calling %s", method)
	default:
		return cryoerrors.NewRpcFatal(errors.New(rpcErr.Message), "rpc error calling %s", method)
	}
}

func fullJitter(base time.Duration) time.Duration {
	if base <= 0 {
		return 0
	}
	return time.Duration(rand.Int63n(int64(base)))
}

// LatestBlockNumber implements blockspec.TipProvider via eth_blockNumber.
func (c *Client) LatestBlockNumber(ctx context.Context) (uint64, error) {
	raw, err := c.Call(ctx, "eth_blockNumber", nil)
	if err != nil {
		return 0, err
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, cryoerrors.NewDecodeError(err, "decoding eth_blockNumber result")
	}
	return hexToUint64(s)
}

// ChainID calls eth_chainId once and caches the result for the lifetime of
// the client, per the fetch pipeline's "one-time result" requirement.
func (c *Client) ChainID(ctx context.Context) (uint64, error) {
	if v := c.chainID.Load(); v != 0 {
		return v, nil
	}
	raw, err := c.Call(ctx, "eth_chainId", nil)
	if err != nil {
		return 0, cryoerrors.NewNetworkUnavailable(err, "calling eth_chainId")
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, cryoerrors.NewDecodeError(err, "decoding eth_chainId result")
	}
	id, err := hexToUint64(s)
	if err != nil {
		return 0, cryoerrors.NewDecodeError(err, "parsing eth_chainId result %q", s)
	}
	c.chainID.Store(id)
	return id, nil
}

func hexToUint64(s string) (uint64, error) {
	if len(s) < 2 || s[:2] != "0x" {
		return 0, fmt.Errorf("not a hex quantity: %q", s)
	}
	var n uint64
	for _, ch := range s[2:] {
		var d uint64
		switch {
		case ch >= '0' && ch <= '9':
			d = uint64(ch - '0')
		case ch >= 'a' && ch <= 'f':
			d = uint64(ch-'a') + 10
		case ch >= 'A' && ch <= 'F':
			d = uint64(ch-'A') + 10
		default:
			return 0, fmt.Errorf("invalid hex digit in %q", s)
		}
		n = n*16 + d
	}
	return n, nil
}
