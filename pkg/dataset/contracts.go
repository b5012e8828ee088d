package dataset

import (
	"encoding/json"

	"github.com/pkg/errors"

	"github.com/paradigmxyz/cryo/pkg/column"
)

// contracts reuses eth_getBlockReceipts (like the receipts dataset) and
// keeps only the rows where a contract was created, i.e. contractAddress
// is non-empty.
func contractsDataset() *Dataset {
	return &Dataset{
		Name:            "contracts",
		RequiredMethods: []string{"eth_getBlockReceipts"},
		Granularity:     PerBlock,
		DefaultColumns:  []string{"block_number", "transaction_hash", "contract_address", "deployer"},
		AvailableColumns: []string{
			"block_number", "transaction_hash", "transaction_index", "contract_address",
			"deployer", "chain_id",
		},
		DefaultSort: []string{"block_number"},
		Plan:        planPerBlockReceipts,
		Decode:      decodeContracts,
	}
}

func decodeContracts(buf *column.Buffer, req SubRequest, raw json.RawMessage, filters Filters, encodings []column.Encoding) error {
	var receipts []rpcReceipt
	if err := json.Unmarshal(raw, &receipts); err != nil {
		return errors.Wrapf(err, "decoding receipts for block %d while looking for contract creations", req.BlockNumber)
	}
	for _, r := range receipts {
		if r.ContractAddress == "" {
			continue
		}
		if !matchesAddressFilter(filters, "", r.ContractAddress) {
			continue
		}
		buf.Column("block_number", column.KindUint64).AppendUint64(hexUint64(r.BlockNumber))
		buf.Column("transaction_hash", column.KindString).AppendString(r.TransactionHash)
		buf.Column("transaction_index", column.KindUint64).AppendUint64(hexUint64(r.TransactionIndex))
		buf.Column("contract_address", column.KindString).AppendString(r.ContractAddress)
		buf.Column("deployer", column.KindString).AppendString(r.From)
	}
	return nil
}
