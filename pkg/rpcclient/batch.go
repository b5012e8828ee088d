package rpcclient

import (
	"context"
	"encoding/json"

	"github.com/paradigmxyz/cryo/pkg/cryoerrors"
)

// BatchRequest is one call within a BatchCall, keyed by Tag so callers can
// match results back to the request that produced them.
type BatchRequest struct {
	Tag    int
	Method string
	Params []interface{}
}

// BatchResult pairs a BatchRequest's Tag with its raw result or error.
type BatchResult struct {
	Tag    int
	Result json.RawMessage
	Err    error
}

// BatchCall sends a single JSON-RPC batch (a JSON array of request
// objects) and demultiplexes the array response back onto each request's
// Tag. The batch itself is sent once, without retries. If it fails for
// any reason (including a node that rejects batching), the calls are
// issued one at a time through Call, which applies its own retry policy.
func (c *Client) BatchCall(ctx context.Context, reqs []BatchRequest) []BatchResult {
	results := make([]BatchResult, len(reqs))
	raw, err := c.callBatchOnce(ctx, reqs)
	if err == nil {
		for i, r := range raw {
			results[i] = BatchResult{Tag: reqs[i].Tag, Result: r}
		}
		return results
	}

	for i, r := range reqs {
		result, callErr := c.Call(ctx, r.Method, r.Params)
		results[i] = BatchResult{Tag: r.Tag, Result: result, Err: callErr}
	}
	return results
}

func (c *Client) callBatchOnce(ctx context.Context, reqs []BatchRequest) ([]json.RawMessage, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, cryoerrors.NewCancelled(err)
		}
	}
	if err := c.sem.Acquire(ctx, 1); err != nil {
		return nil, cryoerrors.NewCancelled(err)
	}
	defer c.sem.Release(1)

	batch := make([]rpcRequest, len(reqs))
	idOf := make(map[uint64]int, len(reqs))
	for i, r := range reqs {
		id := c.nextID.Add(1)
		batch[i] = rpcRequest{JSONRPC: "2.0", ID: id, Method: r.Method, Params: r.Params}
		idOf[id] = i
	}

	body, err := json.Marshal(batch)
	if err != nil {
		return nil, cryoerrors.NewRpcFatal(err, "marshaling batch request")
	}

	respBody, err := c.postRaw(ctx, body)
	if err != nil {
		return nil, err
	}

	var responses []rpcResponse
	if err := json.Unmarshal(respBody, &responses); err != nil {
		return nil, cryoerrors.NewRpcFatal(err, "malformed batch response")
	}

	out := make([]json.RawMessage, len(reqs))
	for _, resp := range responses {
		idx, ok := idOf[resp.ID]
		if !ok {
			continue
		}
		if resp.Error != nil {
			return nil, classifyRPCError(batch[idx].Method, resp.Error)
		}
		out[idx] = resp.Result
	}
	return out, nil
}
