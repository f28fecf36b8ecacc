package main

import (
	"encoding/binary"
	"fmt"
	"math"
	"strconv"

	"github.com/kevmo314/offsetview/pkg/types"
)

// formatValue renders builtin scalars by value and anything else as hex.
func formatValue(typ *types.Type, b []byte, order binary.ByteOrder) string {
	if typ.Kind != types.KindScalar || uint64(len(b)) != typ.Size {
		return fmt.Sprintf("{% x}", b)
	}
	switch typ.Name {
	case "bool":
		return strconv.FormatBool(b[0] != 0)
	case "char":
		return strconv.QuoteRune(rune(b[0]))
	case "int8":
		return strconv.FormatInt(int64(int8(b[0])), 10)
	case "uint8":
		return strconv.FormatUint(uint64(b[0]), 10)
	case "int16":
		return strconv.FormatInt(int64(int16(order.Uint16(b))), 10)
	case "uint16":
		return strconv.FormatUint(uint64(order.Uint16(b)), 10)
	case "int32":
		return strconv.FormatInt(int64(int32(order.Uint32(b))), 10)
	case "uint32":
		return strconv.FormatUint(uint64(order.Uint32(b)), 10)
	case "int64":
		return strconv.FormatInt(int64(order.Uint64(b)), 10)
	case "uint64":
		return strconv.FormatUint(order.Uint64(b), 10)
	case "float32":
		return strconv.FormatFloat(float64(math.Float32frombits(order.Uint32(b))), 'g', -1, 32)
	case "float64":
		return strconv.FormatFloat(math.Float64frombits(order.Uint64(b)), 'g', -1, 64)
	}
	return fmt.Sprintf("{% x}", b)
}
