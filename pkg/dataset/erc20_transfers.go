package dataset

import (
	"encoding/hex"
	"encoding/json"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"

	"github.com/paradigmxyz/cryo/pkg/chunkpkg"
	"github.com/paradigmxyz/cryo/pkg/column"
)

// erc20TransferTopic0 is keccak256("Transfer(address,address,uint256)").
const erc20TransferTopic0 = "0xddf252ad1be2c89b69c2b068fc378daa952ba7f163c4a11628f55a4df523b3ef"

var erc20TransferTopic0Hash = common.HexToHash(erc20TransferTopic0)

func erc20TransfersDataset() *Dataset {
	return &Dataset{
		Name:            "erc20_transfers",
		Aliases:         []string{"erc20s"},
		RequiredMethods: []string{"eth_getLogs"},
		Granularity:     PerChunk,
		DefaultColumns: []string{
			"block_number", "log_index", "erc20_address", "from_address", "to_address", "value_binary",
		},
		AvailableColumns: []string{
			"block_number", "transaction_hash", "log_index", "erc20_address",
			"from_address", "to_address", "value_binary", "value_string",
			"value_u32", "value_u32_overflow", "value_u64", "value_u64_overflow",
			"value_d128", "value_d128_overflow", "chain_id",
		},
		DefaultSort: []string{"block_number", "log_index"},
		Plan:        planErc20Transfers,
		Decode:      decodeErc20Transfers,
	}
}

func planErc20Transfers(chunk *chunkpkg.Chunk, filters Filters, opts PlanOptions) ([]SubRequest, error) {
	return planLogs(chunk, withTransferTopic(filters), opts)
}

// withTransferTopic overrides topic0 with the ERC-20 Transfer event
// signature while preserving any address filter (restricting to specific
// token contracts) the caller supplied.
func withTransferTopic(filters Filters) Filters {
	out := filters
	topics := make([][]common.Hash, 1)
	topics[0] = []common.Hash{erc20TransferTopic0Hash}
	out.Topics = topics
	return out
}

func decodeErc20Transfers(buf *column.Buffer, req SubRequest, raw json.RawMessage, filters Filters, encodings []column.Encoding) error {
	var logs []rpcLog
	if err := json.Unmarshal(raw, &logs); err != nil {
		return errors.Wrapf(err, "decoding erc20 transfer logs for window starting at block %d", req.BlockNumber)
	}
	for _, l := range logs {
		if len(l.Topics) < 3 || l.Topics[0] != erc20TransferTopic0 {
			continue
		}
		if !matchesAddressFilter(filters, "", l.Address) {
			continue
		}
		buf.Column("block_number", column.KindUint64).AppendUint64(hexUint64(l.BlockNumber))
		buf.Column("transaction_hash", column.KindString).AppendString(l.TransactionHash)
		buf.Column("log_index", column.KindUint64).AppendUint64(hexUint64(l.LogIndex))
		buf.Column("erc20_address", column.KindString).AppendString(l.Address)
		buf.Column("from_address", column.KindString).AppendString(addressFromTopic(l.Topics[1]))
		buf.Column("to_address", column.KindString).AppendString(addressFromTopic(l.Topics[2]))
		encodeSingleU256(buf, "value", hexU256(l.Data), encodings)
	}
	return nil
}

// addressFromTopic extracts the low 20 bytes of a 32-byte indexed topic.
func addressFromTopic(topic string) string {
	b := hexBytes(topic)
	if len(b) < 20 {
		return topic
	}
	return "0x" + hex.EncodeToString(b[len(b)-20:])
}
