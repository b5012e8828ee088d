package dataset

import (
	"encoding/json"
	"fmt"

	"github.com/pkg/errors"

	"github.com/paradigmxyz/cryo/pkg/chunkpkg"
	"github.com/paradigmxyz/cryo/pkg/column"
)

type rpcLog struct {
	Address          string   `json:"address"`
	Topics           []string `json:"topics"`
	Data             string   `json:"data"`
	BlockNumber      string   `json:"blockNumber"`
	TransactionHash  string   `json:"transactionHash"`
	TransactionIndex string   `json:"transactionIndex"`
	LogIndex         string   `json:"logIndex"`
	Removed          bool     `json:"removed"`
}

func logsDataset() *Dataset {
	return &Dataset{
		Name:            "logs",
		Aliases:         []string{"events"},
		RequiredMethods: []string{"eth_getLogs"},
		Granularity:     PerChunk,
		DefaultColumns: []string{
			"block_number", "transaction_index", "log_index", "address", "topic0",
			"topic1", "topic2", "topic3", "data",
		},
		AvailableColumns: []string{
			"block_number", "transaction_hash", "transaction_index", "log_index",
			"address", "topic0", "topic1", "topic2", "topic3", "data", "chain_id",
		},
		DefaultSort: []string{"block_number", "log_index"},
		Plan:        planLogs,
		Decode:      decodeLogs,
	}
}

// planLogs windows the chunk into eth_getLogs calls of at most
// InnerRequestSize blocks each, per the fetch pipeline's grouped
// log-request-window strategy.
func planLogs(chunk *chunkpkg.Chunk, filters Filters, opts PlanOptions) ([]SubRequest, error) {
	windowSize := opts.InnerRequestSize
	if windowSize == 0 {
		windowSize = chunk.TotalBlocks()
	}
	var reqs []SubRequest
	for i, sub := range chunkpkg.RangeToChunks(chunk.MinBlock(), chunk.MaxBlock()+1, windowSize) {
		filterObj := map[string]interface{}{
			"fromBlock": hexutilQuantity(sub.MinBlock()),
			"toBlock":   hexutilQuantity(sub.MaxBlock()),
		}
		if len(filters.Addresses) > 0 {
			addrs := make([]string, len(filters.Addresses))
			for j, a := range filters.Addresses {
				addrs[j] = a.Hex()
			}
			filterObj["address"] = addrs
		}
		if len(filters.Topics) > 0 {
			topics := make([]interface{}, len(filters.Topics))
			for j, group := range filters.Topics {
				if len(group) == 0 {
					topics[j] = nil
					continue
				}
				strs := make([]string, len(group))
				for k, h := range group {
					strs[k] = h.Hex()
				}
				topics[j] = strs
			}
			filterObj["topics"] = topics
		}
		reqs = append(reqs, SubRequest{
			Method:      "eth_getLogs",
			Params:      []interface{}{filterObj},
			BlockNumber: sub.MinBlock(),
			Index:       i,
		})
	}
	return reqs, nil
}

func decodeLogs(buf *column.Buffer, req SubRequest, raw json.RawMessage, filters Filters, encodings []column.Encoding) error {
	var logs []rpcLog
	if err := json.Unmarshal(raw, &logs); err != nil {
		return errors.Wrapf(err, "decoding logs for window starting at block %d", req.BlockNumber)
	}
	for _, l := range logs {
		buf.Column("block_number", column.KindUint64).AppendUint64(hexUint64(l.BlockNumber))
		buf.Column("transaction_hash", column.KindString).AppendString(l.TransactionHash)
		buf.Column("transaction_index", column.KindUint64).AppendUint64(hexUint64(l.TransactionIndex))
		buf.Column("log_index", column.KindUint64).AppendUint64(hexUint64(l.LogIndex))
		buf.Column("address", column.KindString).AppendString(l.Address)
		for i := 0; i < 4; i++ {
			name := fmt.Sprintf("topic%d", i)
			if i < len(l.Topics) {
				buf.Column(name, column.KindString).AppendString(l.Topics[i])
			} else {
				buf.Column(name, column.KindString).AppendString("")
			}
		}
		buf.Column("data", column.KindBytes).AppendBytes(hexBytes(l.Data))
	}
	return nil
}
