package dataset

import (
	"encoding/json"

	"github.com/pkg/errors"

	"github.com/paradigmxyz/cryo/pkg/chunkpkg"
	"github.com/paradigmxyz/cryo/pkg/column"
	"github.com/paradigmxyz/cryo/pkg/cryoerrors"
)

func balancesDataset() *Dataset {
	return &Dataset{
		Name:             "balances",
		RequiredMethods:  []string{"eth_getBalance"},
		Granularity:      PerBlock,
		DefaultColumns:   []string{"block_number", "address", "balance_binary"},
		AvailableColumns: []string{
			"block_number", "address", "balance_binary", "balance_string", "balance_f64",
			"balance_u32", "balance_u32_overflow", "balance_u64", "balance_u64_overflow",
			"balance_d128", "balance_d128_overflow", "chain_id",
		},
		DefaultSort:      []string{"block_number", "address"},
		Plan:             planBalances,
		Decode:           decodeBalances,
	}
}

// planBalances requires at least one address filter: one eth_getBalance
// subrequest is issued per (block, address) pair.
func planBalances(chunk *chunkpkg.Chunk, filters Filters, opts PlanOptions) ([]SubRequest, error) {
	if len(filters.Addresses) == 0 {
		return nil, cryoerrors.NewInvalidQuery(nil, "balances dataset requires at least one --address filter")
	}
	numbers := chunk.Values()
	reqs := make([]SubRequest, 0, len(numbers)*len(filters.Addresses))
	i := 0
	for _, n := range numbers {
		for _, addr := range filters.Addresses {
			reqs = append(reqs, SubRequest{
				Method:      "eth_getBalance",
				Params:      []interface{}{addr.Hex(), hexutilQuantity(n)},
				BlockNumber: n,
				Index:       i,
			})
			i++
		}
	}
	return reqs, nil
}

func decodeBalances(buf *column.Buffer, req SubRequest, raw json.RawMessage, filters Filters, encodings []column.Encoding) error {
	var balance string
	if err := json.Unmarshal(raw, &balance); err != nil {
		return errors.Wrapf(err, "decoding balance for block %d", req.BlockNumber)
	}
	addr := req.Params[0].(string)
	buf.Column("block_number", column.KindUint64).AppendUint64(req.BlockNumber)
	buf.Column("address", column.KindString).AppendString(addr)
	encodeSingleU256(buf, "balance", hexU256(balance), encodings)
	return nil
}
