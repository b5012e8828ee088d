package fetchpipeline

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paradigmxyz/cryo/pkg/chunkpkg"
	"github.com/paradigmxyz/cryo/pkg/column"
	"github.com/paradigmxyz/cryo/pkg/dataset"
)

type fakeCaller struct {
	responses map[string]json.RawMessage
	chainID   uint64
}

func (f *fakeCaller) Call(ctx context.Context, method string, params []interface{}) (json.RawMessage, error) {
	blockHex := params[0].(string)
	return f.responses[blockHex], nil
}

func (f *fakeCaller) ChainID(ctx context.Context) (uint64, error) {
	return f.chainID, nil
}

func widgetsDataset() *dataset.Dataset {
	return &dataset.Dataset{
		Name:            "widgets",
		RequiredMethods: []string{"widget_get"},
		DefaultColumns:  []string{"block_number", "value"},
		AvailableColumns: []string{"block_number", "value"},
		DefaultSort:     []string{"block_number"},
		Plan: func(chunk *chunkpkg.Chunk, filters dataset.Filters, opts dataset.PlanOptions) ([]dataset.SubRequest, error) {
			var reqs []dataset.SubRequest
			for i, n := range chunk.Values() {
				reqs = append(reqs, dataset.SubRequest{
					Method:      "widget_get",
					Params:      []interface{}{hexQuantity(n)},
					BlockNumber: n,
					Index:       i,
				})
			}
			return reqs, nil
		},
		Decode: func(buf *column.Buffer, req dataset.SubRequest, raw json.RawMessage, filters dataset.Filters, encodings []column.Encoding) error {
			var v uint64
			if err := json.Unmarshal(raw, &v); err != nil {
				return err
			}
			buf.Column("block_number", column.KindUint64).AppendUint64(req.BlockNumber)
			buf.Column("value", column.KindUint64).AppendUint64(v)
			return nil
		},
	}
}

func hexQuantity(n uint64) string {
	return "0x" + string(rune('a'+n))
}

func TestFetchChunk_DecodesAndSortsUnorderedRequests(t *testing.T) {
	caller := &fakeCaller{
		chainID: 1,
		responses: map[string]json.RawMessage{
			hexQuantity(3): json.RawMessage(`30`),
			hexQuantity(1): json.RawMessage(`10`),
			hexQuantity(2): json.RawMessage(`20`),
		},
	}
	p := New(caller, Options{MaxConcurrentBlocks: 2, StampChainID: true}, nil)
	chunk := chunkpkg.NewNumbersChunk([]uint64{3, 1, 2})

	buf, err := p.FetchChunk(context.Background(), widgetsDataset(), chunk, dataset.Filters{})
	require.NoError(t, err)
	require.Equal(t, 3, buf.Len())

	blockNums := buf.Get("block_number").Uint64s
	assert.Equal(t, []uint64{1, 2, 3}, blockNums)
	values := buf.Get("value").Uint64s
	assert.Equal(t, []uint64{10, 20, 30}, values)

	chainIDs := buf.Get("chain_id").Uint64s
	assert.Equal(t, []uint64{1, 1, 1}, chainIDs)
}

func TestFetchChunk_NoSortKeepsRequestOrder(t *testing.T) {
	caller := &fakeCaller{
		responses: map[string]json.RawMessage{
			hexQuantity(3): json.RawMessage(`30`),
			hexQuantity(1): json.RawMessage(`10`),
		},
	}
	d := widgetsDataset()
	d.DefaultSort = nil
	p := New(caller, Options{MaxConcurrentBlocks: 1}, nil)
	chunk := chunkpkg.NewNumbersChunk([]uint64{3, 1})

	buf, err := p.FetchChunk(context.Background(), d, chunk, dataset.Filters{})
	require.NoError(t, err)
	assert.Equal(t, []uint64{3, 1}, buf.Get("block_number").Uint64s)
}

func TestFetchChunk_SortNoneOverridesDatasetDefault(t *testing.T) {
	caller := &fakeCaller{
		responses: map[string]json.RawMessage{
			hexQuantity(3): json.RawMessage(`30`),
			hexQuantity(1): json.RawMessage(`10`),
		},
	}
	p := New(caller, Options{MaxConcurrentBlocks: 1, Sort: []string{"none"}}, nil)
	chunk := chunkpkg.NewNumbersChunk([]uint64{3, 1})

	buf, err := p.FetchChunk(context.Background(), widgetsDataset(), chunk, dataset.Filters{})
	require.NoError(t, err)
	assert.Equal(t, []uint64{3, 1}, buf.Get("block_number").Uint64s)
}

func TestFetchChunk_ExplicitSortOverridesDatasetDefault(t *testing.T) {
	caller := &fakeCaller{
		responses: map[string]json.RawMessage{
			hexQuantity(3): json.RawMessage(`30`),
			hexQuantity(1): json.RawMessage(`10`),
		},
	}
	p := New(caller, Options{MaxConcurrentBlocks: 1, Sort: []string{"value"}}, nil)
	chunk := chunkpkg.NewNumbersChunk([]uint64{3, 1})

	buf, err := p.FetchChunk(context.Background(), widgetsDataset(), chunk, dataset.Filters{})
	require.NoError(t, err)
	assert.Equal(t, []uint64{10, 30}, buf.Get("value").Uint64s)
}
