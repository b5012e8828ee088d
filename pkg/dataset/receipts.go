package dataset

import (
	"encoding/json"

	"github.com/pkg/errors"

	"github.com/paradigmxyz/cryo/pkg/chunkpkg"
	"github.com/paradigmxyz/cryo/pkg/column"
)

type rpcReceipt struct {
	TransactionHash   string `json:"transactionHash"`
	TransactionIndex  string `json:"transactionIndex"`
	BlockNumber       string `json:"blockNumber"`
	From              string `json:"from"`
	To                string `json:"to"`
	ContractAddress   string `json:"contractAddress"`
	CumulativeGasUsed string `json:"cumulativeGasUsed"`
	GasUsed           string `json:"gasUsed"`
	EffectiveGasPrice string `json:"effectiveGasPrice"`
	Status            string `json:"status"`
	Type              string `json:"type"`
	Logs              []rpcLog `json:"logs"`
}

func receiptsDataset() *Dataset {
	return &Dataset{
		Name:            "receipts",
		Aliases:         []string{"transaction_receipts"},
		RequiredMethods: []string{"eth_getBlockReceipts"},
		Granularity:     PerBlock,
		DefaultColumns: []string{
			"block_number", "transaction_index", "transaction_hash", "from_address",
			"to_address", "contract_address", "gas_used", "status",
		},
		AvailableColumns: []string{
			"block_number", "transaction_index", "transaction_hash", "from_address",
			"to_address", "contract_address", "cumulative_gas_used", "gas_used",
			"effective_gas_price", "status", "transaction_type", "log_count", "chain_id",
		},
		DefaultSort: []string{"block_number", "transaction_index"},
		Plan:        planPerBlockReceipts,
		Decode:      decodeReceipts,
	}
}

func planPerBlockReceipts(chunk *chunkpkg.Chunk, filters Filters, opts PlanOptions) ([]SubRequest, error) {
	numbers := chunk.Values()
	reqs := make([]SubRequest, 0, len(numbers))
	for i, n := range numbers {
		reqs = append(reqs, SubRequest{
			Method:      "eth_getBlockReceipts",
			Params:      []interface{}{hexutilQuantity(n)},
			BlockNumber: n,
			Index:       i,
		})
	}
	return reqs, nil
}

func decodeReceipts(buf *column.Buffer, req SubRequest, raw json.RawMessage, filters Filters, encodings []column.Encoding) error {
	var receipts []rpcReceipt
	if err := json.Unmarshal(raw, &receipts); err != nil {
		return errors.Wrapf(err, "decoding receipts for block %d", req.BlockNumber)
	}
	for _, r := range receipts {
		if !matchesAddressFilter(filters, r.From, r.To) {
			continue
		}
		buf.Column("block_number", column.KindUint64).AppendUint64(hexUint64(r.BlockNumber))
		buf.Column("transaction_index", column.KindUint64).AppendUint64(hexUint64(r.TransactionIndex))
		buf.Column("transaction_hash", column.KindString).AppendString(r.TransactionHash)
		buf.Column("from_address", column.KindString).AppendString(r.From)
		buf.Column("to_address", column.KindString).AppendString(r.To)
		buf.Column("contract_address", column.KindString).AppendString(r.ContractAddress)
		buf.Column("cumulative_gas_used", column.KindUint64).AppendUint64(hexUint64(r.CumulativeGasUsed))
		buf.Column("gas_used", column.KindUint64).AppendUint64(hexUint64(r.GasUsed))
		buf.Column("effective_gas_price", column.KindUint64).AppendUint64(hexUint64(r.EffectiveGasPrice))
		buf.Column("status", column.KindUint64).AppendUint64(hexUint64(r.Status))
		buf.Column("transaction_type", column.KindUint64).AppendUint64(hexUint64(r.Type))
		buf.Column("log_count", column.KindUint64).AppendUint64(uint64(len(r.Logs)))
	}
	return nil
}
