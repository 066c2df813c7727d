// Package varint decodes the SQLite file format's 1-to-9-byte
// self-delimiting big-endian integer encoding.
package varint

import (
	"fmt"

	"github.com/nnamm/litesql/internal/liteerr"
)

// Decode reads a varint starting at buf[offset] and returns its value and
// the number of bytes it occupied. Bytes 1 through 8 contribute their low 7
// bits each, MSB set meaning "another byte follows"; a 9th byte, when
// present, contributes all 8 of its bits. The format never produces values
// outside the 64-bit signed range, so int64 holds any legal result.
func Decode(buf []byte, offset int) (value int64, n int, err error) {
	var result int64
	for i := 0; i < 9; i++ {
		pos := offset + i
		if pos >= len(buf) {
			return 0, 0, liteerr.New("varint.Decode", liteerr.InvalidVarint,
				fmt.Errorf("truncated varint at offset %d (byte %d)", offset, i), nil)
		}
		b := buf[pos]
		if i == 8 {
			result = (result << 8) | int64(b)
			return result, i + 1, nil
		}
		result = (result << 7) | int64(b&0x7f)
		if b&0x80 == 0 {
			return result, i + 1, nil
		}
	}
	// Unreachable: the loop above always returns by i==8.
	return 0, 0, liteerr.New("varint.Decode", liteerr.InvalidVarint, fmt.Errorf("varint too long"), nil)
}

// Size reports how many bytes the varint starting at buf[offset] occupies,
// without materializing its value. Useful for skipping over a varint whose
// value isn't needed.
func Size(buf []byte, offset int) (int, error) {
	_, n, err := Decode(buf, offset)
	return n, err
}
