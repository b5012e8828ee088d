package dataset

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/paradigmxyz/cryo/pkg/column"
)

// hexUint64 parses a JSON-RPC quantity string ("0x..."), returning 0 for an
// empty/null field.
func hexUint64(s string) uint64 {
	if s == "" {
		return 0
	}
	n, err := hexutil.DecodeUint64(s)
	if err != nil {
		return 0
	}
	return n
}

// hexBig parses a JSON-RPC quantity string into a big.Int, returning zero
// for an empty/null field.
func hexBig(s string) *big.Int {
	if s == "" {
		return big.NewInt(0)
	}
	n, err := hexutil.DecodeBig(s)
	if err != nil {
		return big.NewInt(0)
	}
	return n
}

func hexU256(s string) column.U256 {
	return column.U256FromBig(hexBig(s))
}

func hexBytes(s string) []byte {
	if s == "" {
		return nil
	}
	b, err := hexutil.Decode(s)
	if err != nil {
		return nil
	}
	return b
}
