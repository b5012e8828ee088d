package column

import (
	"encoding/hex"
	"math/big"

	"github.com/shopspring/decimal"
)

// U256 is the canonical storage form for a logical u256 value: 32 bytes,
// big-endian, zero-extended. Every other encoding is materialized from
// this form at the projector stage rather than carried as its own dynamic
// type.
type U256 [32]byte

// U256FromBig packs b into its canonical 32-byte big-endian form. b must
// be non-negative and fit in 256 bits; callers that may overflow should
// check b.BitLen() <= 256 first.
func U256FromBig(b *big.Int) U256 {
	var out U256
	if b == nil {
		return out
	}
	bytes := b.Bytes()
	copy(out[32-len(bytes):], bytes)
	return out
}

// Big unpacks u back into a big.Int.
func (u U256) Big() *big.Int {
	return new(big.Int).SetBytes(u[:])
}

// Encoding names one of the physical representations a logical u256 column
// can be materialized into.
type Encoding string

const (
	EncodingBinary  Encoding = "binary"
	EncodingString  Encoding = "string"
	EncodingF32     Encoding = "f32"
	EncodingF64     Encoding = "f64"
	EncodingU32     Encoding = "u32"
	EncodingU64     Encoding = "u64"
	EncodingDecimal Encoding = "d128"
)

// AllEncodings is the complete set of encodings available for the
// --u256-types flag.
var AllEncodings = []Encoding{EncodingBinary, EncodingString, EncodingF32, EncodingF64, EncodingU32, EncodingU64, EncodingDecimal}

var maxUint32 = new(big.Int).SetUint64(1<<32 - 1)
var maxUint64 = new(big.Int).SetUint64(1<<64 - 1)

// maxDecimal128 is the largest integer a 38-digit decimal128 holds.
var maxDecimal128 = new(big.Int).Sub(new(big.Int).Exp(big.NewInt(10), big.NewInt(38), nil), big.NewInt(1))

// EncodeSiblings materializes one sibling Column per requested encoding
// from a canonical u256 slice, named "{baseName}_{encoding}". Values that
// overflow a narrow encoding's range are stored as null with the column's
// OutOfRange bitmap set, rather than truncated modulo the width — this is
// a deliberate divergence from the silent-truncation behavior of cryo's
// original Rust implementation, per the column/value model invariant that
// forbids silent truncation. For encodings narrow enough to overflow
// (u32, u64, d128), the null is paired with a "{baseName}_{encoding}_overflow"
// boolean sibling so a value lost to an overflow is distinguishable from an
// ordinary null once written to a file.
func EncodeSiblings(baseName string, values []U256, encodings []Encoding, hexStrings bool) []*Column {
	cols := make([]*Column, 0, len(encodings)*2)
	for _, enc := range encodings {
		c := encodeOne(baseName, values, enc, hexStrings)
		cols = append(cols, c)
		if canOverflow(enc) {
			cols = append(cols, overflowMarkerColumn(c))
		}
	}
	return cols
}

// canOverflow reports whether enc's encodeOne branch can ever call
// AppendNullMarkedOutOfRange for a genuinely out-of-range value, as opposed
// to encodings (binary, string, f32, f64) that always succeed.
func canOverflow(enc Encoding) bool {
	switch enc {
	case EncodingU32, EncodingU64, EncodingDecimal:
		return true
	default:
		return false
	}
}

// overflowMarkerColumn builds the boolean sibling column recording, per
// row, whether c's value was dropped for being out of range.
func overflowMarkerColumn(c *Column) *Column {
	out := NewColumn(c.Name+"_overflow", KindBool)
	for _, outOfRange := range c.OutOfRange {
		out.AppendBool(outOfRange)
	}
	return out
}

func encodeOne(baseName string, values []U256, enc Encoding, hexStrings bool) *Column {
	name := baseName + "_" + string(enc)
	switch enc {
	case EncodingBinary:
		c := NewColumn(name, KindBytes)
		for _, v := range values {
			if hexStrings {
				c.AppendString("0x" + hex.EncodeToString(trimLeadingZeros(v[:])))
			} else {
				c.AppendBytes(append([]byte(nil), v[:]...))
			}
		}
		return c
	case EncodingString:
		c := NewColumn(name, KindString)
		for _, v := range values {
			c.AppendString(v.Big().String())
		}
		return c
	case EncodingF32:
		c := NewColumn(name, KindFloat64)
		for _, v := range values {
			f := new(big.Float).SetInt(v.Big())
			f32, _ := f.Float32()
			c.AppendFloat64(float64(f32))
		}
		return c
	case EncodingF64:
		c := NewColumn(name, KindFloat64)
		for _, v := range values {
			f := new(big.Float).SetInt(v.Big())
			f64, _ := f.Float64()
			c.AppendFloat64(f64)
		}
		return c
	case EncodingU32:
		c := NewColumn(name, KindUint64)
		for _, v := range values {
			big := v.Big()
			if big.Cmp(maxUint32) > 0 {
				c.AppendNullMarkedOutOfRange()
				continue
			}
			c.AppendUint64(big.Uint64())
		}
		return c
	case EncodingU64:
		c := NewColumn(name, KindUint64)
		for _, v := range values {
			big := v.Big()
			if big.Cmp(maxUint64) > 0 {
				c.AppendNullMarkedOutOfRange()
				continue
			}
			c.AppendUint64(big.Uint64())
		}
		return c
	case EncodingDecimal:
		c := NewColumn(name, KindString)
		for _, v := range values {
			big := v.Big()
			if big.Cmp(maxDecimal128) > 0 {
				c.AppendNullMarkedOutOfRange()
				continue
			}
			d, err := decimal.NewFromString(big.String())
			if err != nil {
				c.AppendNullMarkedOutOfRange()
				continue
			}
			c.AppendString(d.String())
		}
		return c
	default:
		c := NewColumn(name, KindString)
		for range values {
			c.AppendNullMarkedOutOfRange()
		}
		return c
	}
}

func trimLeadingZeros(b []byte) []byte {
	i := 0
	for i < len(b)-1 && b[i] == 0 {
		i++
	}
	return b[i:]
}
