// alpha.go - Opacity fraction to alpha byte quantization.
package params

import (
	"fmt"
	"math"
)

// alphaTable maps hundredths of opacity (index 0 = 0.00, 100 = 1.00) to an
// alpha byte.
var alphaTable = [101]uint8{
	0x00, 0x03, 0x05, 0x08, 0x0A, 0x0D, 0x0F, 0x12, 0x14, 0x17, // 0.00 - 0.09
	0x1A, 0x1C, 0x1F, 0x21, 0x24, 0x26, 0x29, 0x2B, 0x2E, 0x30, // 0.10 - 0.19
	0x33, 0x36, 0x38, 0x3B, 0x3D, 0x40, 0x42, 0x45, 0x47, 0x4A, // 0.20 - 0.29
	0x4D, 0x4F, 0x52, 0x54, 0x57, 0x59, 0x5C, 0x5E, 0x61, 0x63, // 0.30 - 0.39
	0x66, 0x69, 0x6B, 0x6E, 0x70, 0x73, 0x75, 0x78, 0x7A, 0x7D, // 0.40 - 0.49
	0x80, 0x82, 0x85, 0x87, 0x8A, 0x8C, 0x8F, 0x91, 0x94, 0x96, // 0.50 - 0.59
	0x99, 0x9C, 0x9E, 0xA1, 0xA3, 0xA6, 0xA8, 0xAB, 0xAD, 0xB0, // 0.60 - 0.69
	0xB3, 0xB5, 0xB8, 0xBA, 0xBD, 0xBF, 0xC2, 0xC4, 0xC7, 0xC9, // 0.70 - 0.79
	0xCC, 0xCF, 0xD1, 0xD4, 0xD6, 0xD9, 0xDB, 0xDE, 0xE0, 0xE3, // 0.80 - 0.89
	0xE6, 0xE8, 0xEB, 0xED, 0xF0, 0xF2, 0xF5, 0xF7, 0xFA, 0xFC, // 0.90 - 0.99
	0xFF, // 1.00
}

// QuantizeAlpha maps an opacity in [0, 1] to an alpha byte.
//
// The value is rounded to two decimals (half to even) and looked up in a
// fixed table. Anything that does not land on a key from 0.00 to 1.00,
// including NaN and infinities, returns ErrOutOfTableAlpha.
func QuantizeAlpha(a float64) (uint8, error) {
	if math.IsNaN(a) || math.IsInf(a, 0) {
		return 0, fmt.Errorf("%w: %v", ErrOutOfTableAlpha, a)
	}

	key := math.RoundToEven(a * 100)
	if key < 0 || key >= float64(len(alphaTable)) {
		return 0, fmt.Errorf("%w: %v", ErrOutOfTableAlpha, a)
	}
	return alphaTable[int(key)], nil
}
