package table

import (
	"math"
	"strconv"
	"strings"
)

// FormatValue renders v the way pandas writes it to CSV. Integers print
// in base 10. Floats print as the shortest decimal that reads back to the
// same value at the given width, with Python's repr layout: "1.0" for
// integral values, exponent notation below 1e-4 and from 1e16 up,
// "inf" and "-inf" for infinities and an empty field for NaN.
func FormatValue(v float64, kind Kind, bits int) string {
	switch kind {
	case Int:
		return strconv.FormatInt(int64(v), 10)
	case Uint:
		return strconv.FormatUint(uint64(v), 10)
	}
	return formatFloat(v, bits)
}

func formatFloat(v float64, bits int) string {
	switch {
	case math.IsNaN(v):
		return ""
	case math.IsInf(v, 1):
		return "inf"
	case math.IsInf(v, -1):
		return "-inf"
	}
	if bits != 32 {
		bits = 64
	}

	// Shortest digits and decimal exponent, e.g. "-1.25e+03".
	s := strconv.FormatFloat(v, 'e', -1, bits)
	var sign string
	if s[0] == '-' {
		sign, s = "-", s[1:]
	}
	mant, expStr, _ := strings.Cut(s, "e")
	digits := strings.Replace(mant, ".", "", 1)
	exp, _ := strconv.Atoi(expStr)

	var b strings.Builder
	b.WriteString(sign)
	if exp < -4 || exp >= 16 {
		b.WriteByte(digits[0])
		if len(digits) > 1 {
			b.WriteByte('.')
			b.WriteString(digits[1:])
		}
		b.WriteByte('e')
		if exp < 0 {
			b.WriteByte('-')
			exp = -exp
		} else {
			b.WriteByte('+')
		}
		if exp < 10 {
			b.WriteByte('0')
		}
		b.WriteString(strconv.Itoa(exp))
		return b.String()
	}

	// point is where the decimal point falls within digits.
	point := exp + 1
	switch {
	case point <= 0:
		b.WriteString("0.")
		b.WriteString(strings.Repeat("0", -point))
		b.WriteString(digits)
	case point >= len(digits):
		b.WriteString(digits)
		b.WriteString(strings.Repeat("0", point-len(digits)))
		b.WriteString(".0")
	default:
		b.WriteString(digits[:point])
		b.WriteByte('.')
		b.WriteString(digits[point:])
	}
	return b.String()
}
