package dataset

import (
	"encoding/json"

	"github.com/pkg/errors"

	"github.com/paradigmxyz/cryo/pkg/chunkpkg"
	"github.com/paradigmxyz/cryo/pkg/column"
)

// rpcStateDiffEntry is one transaction's result from
// trace_replayBlockTransactions(block, ["stateDiff"]): a map of address to
// its balance/code/nonce/storage diff, each either the literal string "="
// (unchanged) or a {"*": {"from": ..., "to": ...}} object.
type rpcStateDiffEntry struct {
	TransactionHash string                     `json:"transactionHash"`
	StateDiff       map[string]rpcAccountDiff `json:"stateDiff"`
}

type rpcAccountDiff struct {
	Balance json.RawMessage            `json:"balance"`
	Code    json.RawMessage            `json:"code"`
	Nonce   json.RawMessage            `json:"nonce"`
	Storage map[string]json.RawMessage `json:"storage"`
}

type rpcChangeValue struct {
	Star *struct {
		From string `json:"from"`
		To   string `json:"to"`
	} `json:"*"`
}

// parseChange reports the "to" side of a changed field, or ok=false if the
// field is unchanged ("=") or absent.
func parseChange(raw json.RawMessage) (to string, ok bool) {
	if len(raw) == 0 {
		return "", false
	}
	var v rpcChangeValue
	if err := json.Unmarshal(raw, &v); err != nil {
		return "", false
	}
	if v.Star == nil {
		return "", false
	}
	return v.Star.To, true
}

func planStateDiff(chunk *chunkpkg.Chunk, filters Filters, opts PlanOptions) ([]SubRequest, error) {
	numbers := chunk.Values()
	reqs := make([]SubRequest, 0, len(numbers))
	for i, n := range numbers {
		reqs = append(reqs, SubRequest{
			Method:      "trace_replayBlockTransactions",
			Params:      []interface{}{hexutilQuantity(n), []string{"stateDiff"}},
			BlockNumber: n,
			Index:       i,
		})
	}
	return reqs, nil
}

func decodeStateDiffEntries(req SubRequest, raw json.RawMessage) ([]rpcStateDiffEntry, error) {
	var entries []rpcStateDiffEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, errors.Wrapf(err, "decoding state diffs for block %d", req.BlockNumber)
	}
	return entries, nil
}

func balanceDiffsDataset() *Dataset {
	return &Dataset{
		Name:             "balance_diffs",
		RequiredMethods:  []string{"trace_replayBlockTransactions"},
		Granularity:      PerBlock,
		RequiresTracing:  true,
		DefaultColumns:   []string{"block_number", "transaction_hash", "address", "balance_binary"},
		AvailableColumns: []string{
			"block_number", "transaction_hash", "address", "balance_binary", "balance_string",
			"balance_u32", "balance_u32_overflow", "balance_u64", "balance_u64_overflow",
			"balance_d128", "balance_d128_overflow", "chain_id",
		},
		DefaultSort:      []string{"block_number"},
		Plan:             planStateDiff,
		Decode: func(buf *column.Buffer, req SubRequest, raw json.RawMessage, filters Filters, encodings []column.Encoding) error {
			entries, err := decodeStateDiffEntries(req, raw)
			if err != nil {
				return err
			}
			for _, e := range entries {
				for addr, diff := range e.StateDiff {
					if to, ok := parseChange(diff.Balance); ok {
						if !matchesAddressFilter(filters, addr, "") {
							continue
						}
						buf.Column("block_number", column.KindUint64).AppendUint64(req.BlockNumber)
						buf.Column("transaction_hash", column.KindString).AppendString(e.TransactionHash)
						buf.Column("address", column.KindString).AppendString(addr)
						encodeSingleU256(buf, "balance", hexU256(to), encodings)
					}
				}
			}
			return nil
		},
	}
}

func codeDiffsDataset() *Dataset {
	return &Dataset{
		Name:             "code_diffs",
		RequiredMethods:  []string{"trace_replayBlockTransactions"},
		Granularity:      PerBlock,
		RequiresTracing:  true,
		DefaultColumns:   []string{"block_number", "transaction_hash", "address", "code"},
		AvailableColumns: []string{"block_number", "transaction_hash", "address", "code", "chain_id"},
		DefaultSort:      []string{"block_number"},
		Plan:             planStateDiff,
		Decode: func(buf *column.Buffer, req SubRequest, raw json.RawMessage, filters Filters, encodings []column.Encoding) error {
			entries, err := decodeStateDiffEntries(req, raw)
			if err != nil {
				return err
			}
			for _, e := range entries {
				for addr, diff := range e.StateDiff {
					if to, ok := parseChange(diff.Code); ok {
						if !matchesAddressFilter(filters, addr, "") {
							continue
						}
						buf.Column("block_number", column.KindUint64).AppendUint64(req.BlockNumber)
						buf.Column("transaction_hash", column.KindString).AppendString(e.TransactionHash)
						buf.Column("address", column.KindString).AppendString(addr)
						buf.Column("code", column.KindBytes).AppendBytes(hexBytes(to))
					}
				}
			}
			return nil
		},
	}
}

func nonceDiffsDataset() *Dataset {
	return &Dataset{
		Name:             "nonce_diffs",
		RequiredMethods:  []string{"trace_replayBlockTransactions"},
		Granularity:      PerBlock,
		RequiresTracing:  true,
		DefaultColumns:   []string{"block_number", "transaction_hash", "address", "nonce"},
		AvailableColumns: []string{"block_number", "transaction_hash", "address", "nonce", "chain_id"},
		DefaultSort:      []string{"block_number"},
		Plan:             planStateDiff,
		Decode: func(buf *column.Buffer, req SubRequest, raw json.RawMessage, filters Filters, encodings []column.Encoding) error {
			entries, err := decodeStateDiffEntries(req, raw)
			if err != nil {
				return err
			}
			for _, e := range entries {
				for addr, diff := range e.StateDiff {
					if to, ok := parseChange(diff.Nonce); ok {
						if !matchesAddressFilter(filters, addr, "") {
							continue
						}
						buf.Column("block_number", column.KindUint64).AppendUint64(req.BlockNumber)
						buf.Column("transaction_hash", column.KindString).AppendString(e.TransactionHash)
						buf.Column("address", column.KindString).AppendString(addr)
						buf.Column("nonce", column.KindUint64).AppendUint64(hexUint64(to))
					}
				}
			}
			return nil
		},
	}
}

func storageDiffsDataset() *Dataset {
	return &Dataset{
		Name:             "storage_diffs",
		RequiredMethods:  []string{"trace_replayBlockTransactions"},
		Granularity:      PerBlock,
		RequiresTracing:  true,
		DefaultColumns:   []string{"block_number", "transaction_hash", "address", "slot", "value_binary"},
		AvailableColumns: []string{
			"block_number", "transaction_hash", "address", "slot", "value_binary", "value_string",
			"value_u32", "value_u32_overflow", "value_u64", "value_u64_overflow",
			"value_d128", "value_d128_overflow", "chain_id",
		},
		DefaultSort:      []string{"block_number"},
		Plan:             planStateDiff,
		Decode: func(buf *column.Buffer, req SubRequest, raw json.RawMessage, filters Filters, encodings []column.Encoding) error {
			entries, err := decodeStateDiffEntries(req, raw)
			if err != nil {
				return err
			}
			for _, e := range entries {
				for addr, diff := range e.StateDiff {
					if !matchesAddressFilter(filters, addr, "") {
						continue
					}
					for slot, raw := range diff.Storage {
						to, ok := parseChange(raw)
						if !ok {
							continue
						}
						if len(filters.Slots) > 0 && !matchesSlotFilter(filters, slot) {
							continue
						}
						buf.Column("block_number", column.KindUint64).AppendUint64(req.BlockNumber)
						buf.Column("transaction_hash", column.KindString).AppendString(e.TransactionHash)
						buf.Column("address", column.KindString).AppendString(addr)
						buf.Column("slot", column.KindString).AppendString(slot)
						encodeSingleU256(buf, "value", hexU256(to), encodings)
					}
				}
			}
			return nil
		},
	}
}

func matchesSlotFilter(filters Filters, slot string) bool {
	for _, s := range filters.Slots {
		if equalFoldHex(s.Hex(), slot) {
			return true
		}
	}
	return false
}
