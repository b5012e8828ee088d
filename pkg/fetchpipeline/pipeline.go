// Package fetchpipeline drives one (dataset, chunk) unit of work end to
// end: plan the subrequests, fan them out under a per-chunk semaphore,
// decode each response into a shared column buffer in request order, then
// sort and stamp the result with the chain id.
package fetchpipeline

import (
	"context"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/paradigmxyz/cryo/pkg/chunkpkg"
	"github.com/paradigmxyz/cryo/pkg/column"
	"github.com/paradigmxyz/cryo/pkg/cryoerrors"
	"github.com/paradigmxyz/cryo/pkg/dataset"
)

// Caller is the RPC surface the pipeline needs: subrequest dispatch plus
// the cached chain id lookup used to stamp every row.
type Caller interface {
	dataset.RPCCaller
	ChainID(ctx context.Context) (uint64, error)
}

// Options configures one Pipeline's fan-out width and the encodings it
// asks decoders to materialize for u256 columns.
type Options struct {
	MaxConcurrentBlocks int
	InnerRequestSize    uint64
	U256Encodings       []column.Encoding
	Hex                 bool
	StampChainID        bool

	// Sort overrides every dataset's DefaultSort when non-nil. A single
	// element of "none" requests fetch-order output (query.Query's
	// "sort=none" request, §9 Open Question (b)): resolved as preserving
	// request order rather than leaving it arbitrary, since Plan already
	// produces subrequests in a deterministic block/index order and nothing
	// downstream benefits from discarding that determinism.
	Sort []string
}

func (o Options) withDefaults() Options {
	out := o
	if out.MaxConcurrentBlocks <= 0 {
		out.MaxConcurrentBlocks = 4
	}
	if len(out.U256Encodings) == 0 {
		out.U256Encodings = []column.Encoding{column.EncodingBinary, column.EncodingString}
	}
	return out
}

// Pipeline fetches and decodes one dataset against one chunk at a time. A
// Pipeline is safe for concurrent use across independent FetchChunk calls;
// each call owns its own subrequest semaphore.
type Pipeline struct {
	client Caller
	opts   Options
	logger *zap.Logger
}

// New builds a Pipeline against the given RPC caller.
func New(client Caller, opts Options, logger *zap.Logger) *Pipeline {
	return &Pipeline{client: client, opts: opts.withDefaults(), logger: logger}
}

type rawResult struct {
	req dataset.SubRequest
	raw []byte
	err error
}

// FetchChunk plans, fetches, decodes and sorts one dataset's rows for one
// chunk, returning a column.Buffer whose columns all share equal length.
func (p *Pipeline) FetchChunk(ctx context.Context, d *dataset.Dataset, chunk *chunkpkg.Chunk, filters dataset.Filters) (*column.Buffer, error) {
	subreqs, err := d.Plan(chunk, filters, dataset.PlanOptions{InnerRequestSize: p.opts.InnerRequestSize})
	if err != nil {
		return nil, cryoerrors.NewInvalidQuery(err, "planning dataset %q over chunk %s", d.Name, chunk.Stub(1))
	}

	results := make([]rawResult, len(subreqs))
	sem := semaphore.NewWeighted(int64(p.opts.MaxConcurrentBlocks))
	var wg sync.WaitGroup
	for i, req := range subreqs {
		if err := sem.Acquire(ctx, 1); err != nil {
			results[i] = rawResult{req: req, err: cryoerrors.NewCancelled(err)}
			continue
		}
		wg.Add(1)
		go func(i int, req dataset.SubRequest) {
			defer wg.Done()
			defer sem.Release(1)
			raw, err := p.client.Call(ctx, req.Method, req.Params)
			results[i] = rawResult{req: req, raw: raw, err: err}
		}(i, req)
	}
	wg.Wait()

	buf := column.NewBuffer()
	for _, r := range results {
		if r.err != nil {
			return nil, cryoerrors.NewRpcFatal(r.err, "fetching %s for block %d", d.Name, r.req.BlockNumber)
		}
		if err := d.Decode(buf, r.req, r.raw, filters, p.opts.U256Encodings); err != nil {
			return nil, cryoerrors.NewDecodeError(err, "decoding %s for block %d", d.Name, r.req.BlockNumber)
		}
	}

	if err := buf.ValidateEqualLength(); err != nil {
		return nil, cryoerrors.NewDecodeError(err, "dataset %q produced misaligned columns", d.Name)
	}

	if p.opts.StampChainID && buf.Len() > 0 {
		chainID, err := p.client.ChainID(ctx)
		if err != nil {
			return nil, err
		}
		col := buf.Column("chain_id", column.KindUint64)
		for col.Len() < buf.Len() {
			col.AppendUint64(chainID)
		}
	}

	sortBuffer(buf, sortColumns(d, p.opts.Sort))

	return buf, nil
}

func sortColumns(d *dataset.Dataset, requested []string) []string {
	if len(requested) == 1 && strings.EqualFold(requested[0], "none") {
		return nil
	}
	if len(requested) > 0 {
		return requested
	}
	if len(d.DefaultSort) > 0 {
		return d.DefaultSort
	}
	return nil
}

// sortBuffer reorders every column in buf by the ascending lexicographic
// order of the named sort columns, left to right. A nil or empty sortCols
// leaves the buffer in fetch (request) order, matching a dataset's
// "sort=none" request.
func sortBuffer(buf *column.Buffer, sortCols []string) {
	if len(sortCols) == 0 {
		return
	}
	n := buf.Len()
	if n == 0 {
		return
	}
	cols := make([]*column.Column, 0, len(sortCols))
	for _, name := range sortCols {
		if c := buf.Get(name); c != nil {
			cols = append(cols, c)
		}
	}
	if len(cols) == 0 {
		return
	}

	perm := make([]int, n)
	for i := range perm {
		perm[i] = i
	}
	sort.SliceStable(perm, func(a, b int) bool {
		ia, ib := perm[a], perm[b]
		for _, c := range cols {
			cmp := compareAt(c, ia, ib)
			if cmp != 0 {
				return cmp < 0
			}
		}
		return false
	})

	for _, name := range buf.Names() {
		permuteColumn(buf.Get(name), perm)
	}
}

func compareAt(c *column.Column, i, j int) int {
	switch c.Kind {
	case column.KindUint64:
		return compareUint64(c.Uint64s[i], c.Uint64s[j])
	case column.KindInt64:
		return compareInt64(c.Int64s[i], c.Int64s[j])
	case column.KindFloat64:
		return compareFloat64(c.Float64s[i], c.Float64s[j])
	case column.KindString:
		return compareString(c.Strings[i], c.Strings[j])
	case column.KindBytes:
		return compareBytes(c.Bytes[i], c.Bytes[j])
	default:
		return 0
	}
}

func compareUint64(a, b uint64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func compareInt64(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func compareFloat64(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func compareString(a, b string) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func compareBytes(a, b []byte) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			if a[i] < b[i] {
				return -1
			}
			return 1
		}
	}
	return compareInt64(int64(len(a)), int64(len(b)))
}

// permuteColumn reorders every backing slice of c in place according to
// perm, where perm[i] is the source index that should end up at position i.
func permuteColumn(c *column.Column, perm []int) {
	if c == nil {
		return
	}
	switch c.Kind {
	case column.KindUint64:
		c.Uint64s = reorderUint64(c.Uint64s, perm)
	case column.KindInt64:
		c.Int64s = reorderInt64(c.Int64s, perm)
	case column.KindFloat64:
		c.Float64s = reorderFloat64(c.Float64s, perm)
	case column.KindString:
		c.Strings = reorderString(c.Strings, perm)
	case column.KindBytes:
		c.Bytes = reorderBytes(c.Bytes, perm)
	case column.KindBool:
		c.Bools = reorderBool(c.Bools, perm)
	}
	c.Valid = reorderBool(c.Valid, perm)
	c.OutOfRange = reorderBool(c.OutOfRange, perm)
}

func reorderUint64(s []uint64, perm []int) []uint64 {
	if len(s) == 0 {
		return s
	}
	out := make([]uint64, len(perm))
	for i, p := range perm {
		out[i] = s[p]
	}
	return out
}

func reorderInt64(s []int64, perm []int) []int64 {
	if len(s) == 0 {
		return s
	}
	out := make([]int64, len(perm))
	for i, p := range perm {
		out[i] = s[p]
	}
	return out
}

func reorderFloat64(s []float64, perm []int) []float64 {
	if len(s) == 0 {
		return s
	}
	out := make([]float64, len(perm))
	for i, p := range perm {
		out[i] = s[p]
	}
	return out
}

func reorderString(s []string, perm []int) []string {
	if len(s) == 0 {
		return s
	}
	out := make([]string, len(perm))
	for i, p := range perm {
		out[i] = s[p]
	}
	return out
}

func reorderBytes(s [][]byte, perm []int) [][]byte {
	if len(s) == 0 {
		return s
	}
	out := make([][]byte, len(perm))
	for i, p := range perm {
		out[i] = s[p]
	}
	return out
}

func reorderBool(s []bool, perm []int) []bool {
	if len(s) == 0 {
		return s
	}
	out := make([]bool, len(perm))
	for i, p := range perm {
		out[i] = s[p]
	}
	return out
}
