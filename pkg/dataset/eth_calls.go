package dataset

import (
	"encoding/json"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"

	"github.com/paradigmxyz/cryo/pkg/chunkpkg"
	"github.com/paradigmxyz/cryo/pkg/column"
	"github.com/paradigmxyz/cryo/pkg/cryoerrors"
)

func ethCallsDataset() *Dataset {
	return &Dataset{
		Name:            "eth_calls",
		RequiredMethods: []string{"eth_call"},
		Granularity:     PerBlock,
		DefaultColumns: []string{
			"block_number", "contract_address", "call_data", "output_data", "chain_id",
		},
		AvailableColumns: []string{
			"block_number", "contract_address", "call_data", "call_data_hash",
			"output_data", "output_data_hash", "chain_id",
		},
		DefaultSort: []string{"block_number", "contract_address"},
		Plan:        planEthCalls,
		Decode:      decodeEthCalls,
	}
}

// planEthCalls requires a contract address (--to-address or --address) and
// call data; one eth_call is issued per (block, contract) pair, all sharing
// the same call data.
func planEthCalls(chunk *chunkpkg.Chunk, filters Filters, opts PlanOptions) ([]SubRequest, error) {
	var contracts []common.Address
	contracts = append(contracts, filters.Addresses...)
	if filters.ToAddress != nil {
		contracts = append(contracts, *filters.ToAddress)
	}
	if len(contracts) == 0 {
		return nil, cryoerrors.NewInvalidQuery(nil, "eth_calls dataset requires a --to-address or --address contract filter")
	}
	if len(filters.CallData) == 0 {
		return nil, cryoerrors.NewInvalidQuery(nil, "eth_calls dataset requires --call-data")
	}

	numbers := chunk.Values()
	reqs := make([]SubRequest, 0, len(numbers)*len(contracts))
	i := 0
	for _, n := range numbers {
		for _, contract := range contracts {
			reqs = append(reqs, SubRequest{
				Method: "eth_call",
				Params: []interface{}{
					map[string]interface{}{
						"to":   contract.Hex(),
						"data": hexutil.Encode(filters.CallData),
					},
					hexutilQuantity(n),
				},
				BlockNumber: n,
				Index:       i,
			})
			i++
		}
	}
	return reqs, nil
}

func decodeEthCalls(buf *column.Buffer, req SubRequest, raw json.RawMessage, filters Filters, encodings []column.Encoding) error {
	var output string
	if err := json.Unmarshal(raw, &output); err != nil {
		return errors.Wrapf(err, "decoding eth_call output for block %d", req.BlockNumber)
	}
	callArgs := req.Params[0].(map[string]interface{})
	contract := callArgs["to"].(string)
	callData := hexBytes(callArgs["data"].(string))
	outputData := hexBytes(output)

	buf.Column("block_number", column.KindUint64).AppendUint64(req.BlockNumber)
	buf.Column("contract_address", column.KindString).AppendString(contract)
	buf.Column("call_data", column.KindBytes).AppendBytes(callData)
	buf.Column("call_data_hash", column.KindBytes).AppendBytes(crypto.Keccak256(callData))
	buf.Column("output_data", column.KindBytes).AppendBytes(outputData)
	buf.Column("output_data_hash", column.KindBytes).AppendBytes(crypto.Keccak256(outputData))
	return nil
}
