package dataset

import (
	"encoding/json"
	"strconv"

	"github.com/pkg/errors"

	"github.com/paradigmxyz/cryo/pkg/chunkpkg"
	"github.com/paradigmxyz/cryo/pkg/column"
)

type rpcTraceAction struct {
	From     string `json:"from"`
	To       string `json:"to"`
	Value    string `json:"value"`
	Gas      string `json:"gas"`
	Input    string `json:"input"`
	CallType string `json:"callType"`
}

type rpcTraceResult struct {
	GasUsed string `json:"gasUsed"`
	Output  string `json:"output"`
}

type rpcTrace struct {
	Action              rpcTraceAction  `json:"action"`
	Result              rpcTraceResult  `json:"result"`
	BlockNumber         uint64          `json:"blockNumber"`
	TransactionHash      string         `json:"transactionHash"`
	TransactionPosition  int            `json:"transactionPosition"`
	Type                 string         `json:"type"`
	TraceAddress         []int          `json:"traceAddress"`
	Error                string         `json:"error"`
}

func tracesDataset() *Dataset {
	return &Dataset{
		Name:            "traces",
		Aliases:         []string{"call_traces"},
		RequiredMethods: []string{"trace_block"},
		Granularity:     PerBlock,
		RequiresTracing: true,
		DefaultColumns: []string{
			"block_number", "transaction_hash", "transaction_position", "trace_address",
			"type", "from_address", "to_address", "value_binary", "gas_used",
		},
		AvailableColumns: []string{
			"block_number", "transaction_hash", "transaction_position", "trace_address",
			"type", "call_type", "from_address", "to_address", "value_binary",
			"value_string", "value_u32", "value_u32_overflow", "value_u64", "value_u64_overflow",
			"value_d128", "value_d128_overflow", "gas", "gas_used", "input", "output", "error", "chain_id",
		},
		DefaultSort: []string{"block_number", "transaction_position"},
		Plan:        planTraceBlock,
		Decode:      decodeTraces,
	}
}

func planTraceBlock(chunk *chunkpkg.Chunk, filters Filters, opts PlanOptions) ([]SubRequest, error) {
	numbers := chunk.Values()
	reqs := make([]SubRequest, 0, len(numbers))
	for i, n := range numbers {
		reqs = append(reqs, SubRequest{
			Method:      "trace_block",
			Params:      []interface{}{hexutilQuantity(n)},
			BlockNumber: n,
			Index:       i,
		})
	}
	return reqs, nil
}

func decodeTraces(buf *column.Buffer, req SubRequest, raw json.RawMessage, filters Filters, encodings []column.Encoding) error {
	var traces []rpcTrace
	if err := json.Unmarshal(raw, &traces); err != nil {
		return errors.Wrapf(err, "decoding traces for block %d", req.BlockNumber)
	}
	for _, t := range traces {
		if !matchesAddressFilter(filters, t.Action.From, t.Action.To) {
			continue
		}
		buf.Column("block_number", column.KindUint64).AppendUint64(req.BlockNumber)
		buf.Column("transaction_hash", column.KindString).AppendString(t.TransactionHash)
		buf.Column("transaction_position", column.KindUint64).AppendUint64(uint64(t.TransactionPosition))
		buf.Column("trace_address", column.KindString).AppendString(traceAddressString(t.TraceAddress))
		buf.Column("type", column.KindString).AppendString(t.Type)
		buf.Column("call_type", column.KindString).AppendString(t.Action.CallType)
		buf.Column("from_address", column.KindString).AppendString(t.Action.From)
		buf.Column("to_address", column.KindString).AppendString(t.Action.To)
		encodeSingleU256(buf, "value", hexU256(t.Action.Value), encodings)
		buf.Column("gas", column.KindUint64).AppendUint64(hexUint64(t.Action.Gas))
		buf.Column("gas_used", column.KindUint64).AppendUint64(hexUint64(t.Result.GasUsed))
		buf.Column("input", column.KindString).AppendString(t.Action.Input)
		buf.Column("output", column.KindString).AppendString(t.Result.Output)
		buf.Column("error", column.KindString).AppendString(t.Error)
	}
	return nil
}

func traceAddressString(addr []int) string {
	if len(addr) == 0 {
		return ""
	}
	out := make([]byte, 0, len(addr)*2)
	for i, a := range addr {
		if i > 0 {
			out = append(out, ',')
		}
		out = append(out, []byte(strconv.Itoa(a))...)
	}
	return string(out)
}
