package export

import (
	"strconv"
	"strings"
)

// FixRound formats x with at most places decimals. Trailing zeros and a
// trailing point are removed and negative zero prints as "0". Ties round
// to even on the binary value, so FixRound(2.5, 0) is "2".
func FixRound(x float64, places int) string {
	if places < 0 {
		places = 0
	}
	s := strconv.FormatFloat(x, 'f', places, 64)
	if strings.ContainsRune(s, '.') {
		s = strings.TrimRight(s, "0")
		s = strings.TrimSuffix(s, ".")
	}
	if s == "-0" {
		s = "0"
	}
	return s
}
