// Package journal renders dates as references to journal pages, using the
// date-fns style patterns graph users configure (e.g. "MMM do, yyyy").
package journal

import (
	"strconv"
	"strings"
	"time"
)

// DefaultFormat is the journal title format used when none is configured.
const DefaultFormat = "MMM do, yyyy"

// Formatter renders journal labels in a fixed location.
type Formatter struct {
	format   string
	location *time.Location
}

// NewFormatter returns a Formatter for format in loc. Empty format and nil
// loc fall back to DefaultFormat and time.Local.
func NewFormatter(format string, loc *time.Location) *Formatter {
	if format == "" {
		format = DefaultFormat
	}
	if loc == nil {
		loc = time.Local
	}
	return &Formatter{format: format, location: loc}
}

// Label returns the journal page reference for t, e.g. "[[Jan 1st, 2023]]".
func (f *Formatter) Label(t time.Time) string {
	return "[[" + f.Format(t) + "]]"
}

// Format renders t with the configured pattern.
func (f *Formatter) Format(t time.Time) string {
	return Format(t.In(f.location), f.format)
}

// tokens are matched longest first at each position.
var tokens = []string{
	"yyyy", "yy",
	"MMMM", "MMM", "MM", "M",
	"EEEE", "EEE", "EE", "E",
	"do", "dd", "d",
}

// Format renders t using a date-fns style pattern. Text inside single quotes
// is copied verbatim; unknown letters are copied as-is.
func Format(t time.Time, pattern string) string {
	var b strings.Builder
	for i := 0; i < len(pattern); {
		if pattern[i] == '\'' {
			end := strings.IndexByte(pattern[i+1:], '\'')
			if end < 0 {
				b.WriteString(pattern[i+1:])
				break
			}
			b.WriteString(pattern[i+1 : i+1+end])
			i += end + 2
			continue
		}

		matched := false
		for _, tok := range tokens {
			if strings.HasPrefix(pattern[i:], tok) {
				b.WriteString(render(t, tok))
				i += len(tok)
				matched = true
				break
			}
		}
		if !matched {
			b.WriteByte(pattern[i])
			i++
		}
	}
	return b.String()
}

func render(t time.Time, tok string) string {
	switch tok {
	case "yyyy":
		return strconv.Itoa(t.Year())
	case "yy":
		return t.Format("06")
	case "MMMM":
		return t.Month().String()
	case "MMM":
		return t.Month().String()[:3]
	case "MM":
		return t.Format("01")
	case "M":
		return strconv.Itoa(int(t.Month()))
	case "EEEE":
		return t.Weekday().String()
	case "EEE", "EE", "E":
		return t.Weekday().String()[:3]
	case "do":
		return Ordinal(t.Day())
	case "dd":
		return t.Format("02")
	case "d":
		return strconv.Itoa(t.Day())
	}
	return tok
}

// Ordinal renders n with its English ordinal suffix (1st, 2nd, 11th, 23rd).
func Ordinal(n int) string {
	suffix := "th"
	switch n % 100 {
	case 11, 12, 13:
	default:
		switch n % 10 {
		case 1:
			suffix = "st"
		case 2:
			suffix = "nd"
		case 3:
			suffix = "rd"
		}
	}
	return strconv.Itoa(n) + suffix
}
