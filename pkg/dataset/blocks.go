package dataset

import (
	"encoding/json"

	"github.com/pkg/errors"

	"github.com/paradigmxyz/cryo/pkg/chunkpkg"
	"github.com/paradigmxyz/cryo/pkg/column"
)

// rpcBlock mirrors the subset of eth_getBlockByNumber's result this
// dataset decodes. Fields are left as raw hex strings and parsed lazily,
// matching the JSON-RPC wire format.
type rpcBlock struct {
	Number           string   `json:"number"`
	Hash             string   `json:"hash"`
	ParentHash       string   `json:"parentHash"`
	Nonce            string   `json:"nonce"`
	Sha3Uncles       string   `json:"sha3Uncles"`
	LogsBloom        string   `json:"logsBloom"`
	TransactionsRoot string   `json:"transactionsRoot"`
	StateRoot        string   `json:"stateRoot"`
	ReceiptsRoot     string   `json:"receiptsRoot"`
	Miner            string   `json:"miner"`
	Difficulty       string   `json:"difficulty"`
	ExtraData        string   `json:"extraData"`
	Size             string   `json:"size"`
	GasLimit         string   `json:"gasLimit"`
	GasUsed          string   `json:"gasUsed"`
	Timestamp        string   `json:"timestamp"`
	BaseFeePerGas    string   `json:"baseFeePerGas"`
	Transactions     []string `json:"transactions"`
}

func blocksDataset() *Dataset {
	return &Dataset{
		Name:            "blocks",
		Aliases:         []string{"block"},
		RequiredMethods: []string{"eth_getBlockByNumber"},
		Granularity:     PerBlock,
		DefaultColumns: []string{
			"number", "hash", "parent_hash", "timestamp", "gas_limit", "gas_used",
			"base_fee_per_gas", "miner", "extra_data", "size", "transaction_count",
		},
		AvailableColumns: []string{
			"number", "hash", "parent_hash", "nonce", "sha3_uncles", "logs_bloom",
			"transactions_root", "state_root", "receipts_root", "miner", "difficulty",
			"extra_data", "size", "gas_limit", "gas_used", "timestamp",
			"base_fee_per_gas", "transaction_count", "chain_id",
		},
		DefaultSort: []string{"number"},
		Plan:        planPerBlock("eth_getBlockByNumber", false),
		Decode:      decodeBlock,
	}
}

// planPerBlock builds the PlanFunc used by the blocks and transactions
// datasets:
// eth_getBlockByNumber(hex(blockNumber), includeFullTx).
func planPerBlock(method string, fullTx bool) PlanFunc {
	return func(chunk *chunkpkg.Chunk, filters Filters, opts PlanOptions) ([]SubRequest, error) {
		numbers := chunk.Values()
		reqs := make([]SubRequest, 0, len(numbers))
		for i, n := range numbers {
			reqs = append(reqs, SubRequest{
				Method:      method,
				Params:      []interface{}{hexutilQuantity(n), fullTx},
				BlockNumber: n,
				Index:       i,
			})
		}
		return reqs, nil
	}
}

func decodeBlock(buf *column.Buffer, req SubRequest, raw json.RawMessage, filters Filters, encodings []column.Encoding) error {
	var b rpcBlock
	if err := json.Unmarshal(raw, &b); err != nil {
		return errors.Wrapf(err, "decoding block %d", req.BlockNumber)
	}
	buf.Column("number", column.KindUint64).AppendUint64(hexUint64(b.Number))
	buf.Column("hash", column.KindString).AppendString(b.Hash)
	buf.Column("parent_hash", column.KindString).AppendString(b.ParentHash)
	buf.Column("nonce", column.KindString).AppendString(b.Nonce)
	buf.Column("sha3_uncles", column.KindString).AppendString(b.Sha3Uncles)
	buf.Column("logs_bloom", column.KindString).AppendString(b.LogsBloom)
	buf.Column("transactions_root", column.KindString).AppendString(b.TransactionsRoot)
	buf.Column("state_root", column.KindString).AppendString(b.StateRoot)
	buf.Column("receipts_root", column.KindString).AppendString(b.ReceiptsRoot)
	buf.Column("miner", column.KindString).AppendString(b.Miner)
	buf.Column("difficulty", column.KindUint64).AppendUint64(hexUint64(b.Difficulty))
	buf.Column("extra_data", column.KindString).AppendString(b.ExtraData)
	buf.Column("size", column.KindUint64).AppendUint64(hexUint64(b.Size))
	buf.Column("gas_limit", column.KindUint64).AppendUint64(hexUint64(b.GasLimit))
	buf.Column("gas_used", column.KindUint64).AppendUint64(hexUint64(b.GasUsed))
	buf.Column("timestamp", column.KindUint64).AppendUint64(hexUint64(b.Timestamp))
	buf.Column("base_fee_per_gas", column.KindUint64).AppendUint64(hexUint64(b.BaseFeePerGas))
	buf.Column("transaction_count", column.KindUint64).AppendUint64(uint64(len(b.Transactions)))
	return nil
}

// hexutilQuantity renders a block number as the "0x..." quantity string
// every JSON-RPC method taking a block number parameter expects.
func hexutilQuantity(n uint64) string {
	return "0x" + uint64ToHex(n)
}

func uint64ToHex(n uint64) string {
	if n == 0 {
		return "0"
	}
	const digits = "0123456789abcdef"
	var buf [16]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = digits[n&0xf]
		n >>= 4
	}
	return string(buf[i:])
}
