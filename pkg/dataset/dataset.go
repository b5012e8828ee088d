// Package dataset is the table mapping a dataset identifier to its schema,
// required RPC methods, fetch plan and decoder. It is built once at engine
// construction and is otherwise read-only; dispatch is by looking a
// *Dataset up in a Registry, never by virtual inheritance.
package dataset

import (
	"context"
	"encoding/json"

	"github.com/ethereum/go-ethereum/common"

	"github.com/paradigmxyz/cryo/pkg/chunkpkg"
	"github.com/paradigmxyz/cryo/pkg/column"
)

// Granularity describes how many RPC subrequests a dataset needs per
// chunk and how rows relate to blocks.
type Granularity int

const (
	// PerBlock issues one subrequest per block number in the chunk.
	PerBlock Granularity = iota
	// PerTransaction issues one subrequest per transaction (typically
	// fanned out after a first per-block pass resolves the tx list).
	PerTransaction
	// PerChunk issues a single subrequest (or small fixed number) covering
	// the whole chunk, e.g. eth_getLogs over a block range.
	PerChunk
)

// Filters carries the dataset-specific request-narrowing fields the query
// layer accepts: contract/topic/address/slot/call-data selectors.
type Filters struct {
	Addresses       []common.Address
	Topics          [][]common.Hash
	Slots           []common.Hash
	CallData        []byte
	FunctionSelector string
	EventSignature   string
	ToAddress        *common.Address
}

// RPCCaller is the minimal surface a Plan/Decode pair needs from the RPC
// client, kept narrow so this package never imports pkg/rpcclient.
type RPCCaller interface {
	Call(ctx context.Context, method string, params []interface{}) (json.RawMessage, error)
}

// SubRequest is one unit of RPC work a dataset's Plan emits for a chunk;
// the fetch pipeline issues it via RPCCaller.Call and hands the raw
// response plus the SubRequest back to Decode.
type SubRequest struct {
	Method      string
	Params      []interface{}
	BlockNumber uint64
	Index       int
}

// PlanOptions carries the fetch-pipeline-level knobs a Plan may need, e.g.
// the window size for grouped log requests.
type PlanOptions struct {
	InnerRequestSize uint64
}

// PlanFunc determines the subrequest set for a chunk: a list of block
// numbers, or grouped log-request windows, or a single ranged call.
type PlanFunc func(chunk *chunkpkg.Chunk, filters Filters, opts PlanOptions) ([]SubRequest, error)

// DecodeFunc decodes one subrequest's raw JSON-RPC result into the dataset's
// column buffer, appending exactly one row (or, for multi-row datasets like
// logs, any number of rows) per call. encodings lists the u256 sibling
// encodings the caller wants materialized for any u256-typed column the
// decoder produces.
type DecodeFunc func(buf *column.Buffer, req SubRequest, raw json.RawMessage, filters Filters, encodings []column.Encoding) error

// Dataset is a named kind of extractable data with a fixed schema and RPC
// plan, built once and never mutated.
type Dataset struct {
	Name             string
	Aliases          []string
	RequiredMethods  []string
	Granularity      Granularity
	DefaultColumns   []string
	AvailableColumns []string
	DefaultSort      []string
	RequiresTracing  bool

	Plan   PlanFunc
	Decode DecodeFunc
}

// HasColumn reports whether name is declared among the dataset's available
// columns.
func (d *Dataset) HasColumn(name string) bool {
	for _, c := range d.AvailableColumns {
		if c == name {
			return true
		}
	}
	return false
}
