package graph

import (
	"strconv"
	"unicode/utf16"
)

// Hash derives the short identity token stored in a page's hash property.
//
// The value is a 32-bit signed rolling hash (h*31 + c over UTF-16 code units)
// rendered as the lowercase hex of its absolute value. Pages written by earlier
// syncs are found by this token, so the arithmetic must not change.
func Hash(input string) string {
	var h int32
	for _, c := range utf16.Encode([]rune(input)) {
		h = (h << 5) - h + int32(c)
	}
	v := int64(h)
	if v < 0 {
		v = -v
	}
	return strconv.FormatInt(v, 16)
}
