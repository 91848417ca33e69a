package firrtl

import (
	"fmt"

	"netfir/internal/rtl"
)

// makeExpr renders a signal as an unsigned FIRRTL expression of the
// signal's total width. Chunks are walked LSB first and folded with
// cat(new, acc) so the highest-order chunk ends up leftmost, matching
// FIRRTL's cat(hi, lo) convention.
func (fw *worker) makeExpr(sig rtl.SigSpec) string {
	expr := ""
	for _, chunk := range sig {
		var newExpr string
		switch {
		case chunk.Wire == nil:
			newExpr = litExpr(chunk.Data, chunk.Width)
		case chunk.Offset == 0 && chunk.Width == chunk.Wire.Width:
			newExpr = fw.ns.id(chunk.Wire.Name)
		default:
			wireID := fw.ns.id(chunk.Wire.Name)
			newExpr = fmt.Sprintf("bits(%s, %d, %d)", wireID, chunk.Offset+chunk.Width-1, chunk.Offset)
		}
		if expr == "" {
			expr = newExpr
		} else {
			expr = "cat(" + newExpr + ", " + expr + ")"
		}
	}
	return expr
}

// litExpr encodes a literal bit-vector as UInt<W>("h...") with
// lowercase hex digits. The vector is zero-padded on the high side to a
// nibble boundary; bits that are not 0 or 1 encode as 0.
func litExpr(data rtl.Const, width int) string {
	bits := make(rtl.Const, width)
	for i := 0; i < width; i++ {
		bits[i] = data.Bit(i)
	}
	for len(bits)%4 != 0 {
		bits = append(bits, rtl.S0)
	}

	digits := make([]byte, 0, len(bits)/4)
	for i := len(bits) - 4; i >= 0; i -= 4 {
		val := 0
		if bits[i+0] == rtl.S1 {
			val += 1
		}
		if bits[i+1] == rtl.S1 {
			val += 2
		}
		if bits[i+2] == rtl.S1 {
			val += 4
		}
		if bits[i+3] == rtl.S1 {
			val += 8
		}
		if val < 10 {
			digits = append(digits, byte('0'+val))
		} else {
			digits = append(digits, byte('a'+val-10))
		}
	}

	return fmt.Sprintf("UInt<%d>(\"h%s\")", width, digits)
}
