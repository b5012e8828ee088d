package dataset

import (
	"encoding/json"

	"github.com/pkg/errors"

	"github.com/paradigmxyz/cryo/pkg/column"
)

type rpcTransaction struct {
	Hash                 string `json:"hash"`
	BlockNumber          string `json:"blockNumber"`
	BlockHash            string `json:"blockHash"`
	TransactionIndex     string `json:"transactionIndex"`
	From                 string `json:"from"`
	To                   string `json:"to"`
	Value                string `json:"value"`
	Gas                  string `json:"gas"`
	GasPrice             string `json:"gasPrice"`
	MaxFeePerGas         string `json:"maxFeePerGas"`
	MaxPriorityFeePerGas string `json:"maxPriorityFeePerGas"`
	Input                string `json:"input"`
	Nonce                string `json:"nonce"`
	Type                 string `json:"type"`
}

type rpcBlockWithTransactions struct {
	Number       string            `json:"number"`
	Hash         string            `json:"hash"`
	Transactions []rpcTransaction  `json:"transactions"`
}

func transactionsDataset() *Dataset {
	return &Dataset{
		Name:            "transactions",
		Aliases:         []string{"txs", "tx"},
		RequiredMethods: []string{"eth_getBlockByNumber"},
		Granularity:     PerBlock,
		DefaultColumns: []string{
			"block_number", "transaction_index", "hash", "from_address", "to_address",
			"value_binary", "gas_limit", "gas_price", "input",
		},
		AvailableColumns: []string{
			"block_number", "block_hash", "transaction_index", "hash", "from_address",
			"to_address", "value_binary", "value_string", "value_f64",
			"value_u32", "value_u32_overflow", "value_u64", "value_u64_overflow",
			"value_d128", "value_d128_overflow", "gas_limit",
			"gas_price", "max_fee_per_gas", "max_priority_fee_per_gas", "input", "nonce",
			"transaction_type", "chain_id",
		},
		DefaultSort: []string{"block_number", "transaction_index"},
		Plan:        planPerBlock("eth_getBlockByNumber", true),
		Decode:      decodeTransactions,
	}
}

func decodeTransactions(buf *column.Buffer, req SubRequest, raw json.RawMessage, filters Filters, encodings []column.Encoding) error {
	var b rpcBlockWithTransactions
	if err := json.Unmarshal(raw, &b); err != nil {
		return errors.Wrapf(err, "decoding block %d for transactions", req.BlockNumber)
	}
	for _, tx := range b.Transactions {
		if !matchesAddressFilter(filters, tx.From, tx.To) {
			continue
		}
		buf.Column("block_number", column.KindUint64).AppendUint64(hexUint64(b.Number))
		buf.Column("block_hash", column.KindString).AppendString(b.Hash)
		buf.Column("transaction_index", column.KindUint64).AppendUint64(hexUint64(tx.TransactionIndex))
		buf.Column("hash", column.KindString).AppendString(tx.Hash)
		buf.Column("from_address", column.KindString).AppendString(tx.From)
		buf.Column("to_address", column.KindString).AppendString(tx.To)
		encodeSingleU256(buf, "value", hexU256(tx.Value), encodings)
		buf.Column("gas_limit", column.KindUint64).AppendUint64(hexUint64(tx.Gas))
		buf.Column("gas_price", column.KindUint64).AppendUint64(hexUint64(tx.GasPrice))
		buf.Column("max_fee_per_gas", column.KindUint64).AppendUint64(hexUint64(tx.MaxFeePerGas))
		buf.Column("max_priority_fee_per_gas", column.KindUint64).AppendUint64(hexUint64(tx.MaxPriorityFeePerGas))
		buf.Column("input", column.KindString).AppendString(tx.Input)
		buf.Column("nonce", column.KindUint64).AppendUint64(hexUint64(tx.Nonce))
		buf.Column("transaction_type", column.KindUint64).AppendUint64(hexUint64(tx.Type))
	}
	return nil
}

// encodeSingleU256 appends the requested sibling encodings of a single
// u256 value directly onto buf. encodings falls back to binary/string/f64
// when the caller (a dry-run or a test) leaves it empty.
func encodeSingleU256(buf *column.Buffer, baseName string, v column.U256, encodings []column.Encoding) []*column.Column {
	if len(encodings) == 0 {
		encodings = []column.Encoding{column.EncodingBinary, column.EncodingString, column.EncodingF64}
	}
	cols := column.EncodeSiblings(baseName, []column.U256{v}, encodings, false)
	for _, c := range cols {
		existing := buf.Get(c.Name)
		if existing == nil {
			buf.Set(c)
			continue
		}
		mergeColumn(existing, c)
	}
	return cols
}

func mergeColumn(dst, src *column.Column) {
	dst.Uint64s = append(dst.Uint64s, src.Uint64s...)
	dst.Int64s = append(dst.Int64s, src.Int64s...)
	dst.Float64s = append(dst.Float64s, src.Float64s...)
	dst.Strings = append(dst.Strings, src.Strings...)
	dst.Bytes = append(dst.Bytes, src.Bytes...)
	dst.Bools = append(dst.Bools, src.Bools...)
	dst.Valid = append(dst.Valid, src.Valid...)
	dst.OutOfRange = append(dst.OutOfRange, src.OutOfRange...)
}

func matchesAddressFilter(filters Filters, from, to string) bool {
	if len(filters.Addresses) == 0 {
		return true
	}
	for _, a := range filters.Addresses {
		addr := a.Hex()
		if equalFoldHex(addr, from) || equalFoldHex(addr, to) {
			return true
		}
	}
	return false
}

func equalFoldHex(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := 0; i < len(a); i++ {
		ca, cb := a[i], b[i]
		if 'A' <= ca && ca <= 'Z' {
			ca += 'a' - 'A'
		}
		if 'A' <= cb && cb <= 'Z' {
			cb += 'a' - 'A'
		}
		if ca != cb {
			return false
		}
	}
	return true
}
