package graph

import (
	"strings"
)

// DefaultTitleLength bounds page titles derived from bookmark titles.
const DefaultTitleLength = 100

var titleReplacer = strings.NewReplacer(
	"/", `\`,
	":", "",
	".", "",
	"\n", " ",
)

// NormalizeTitle makes a bookmark title safe to use as a page title: slashes
// become backslashes, colons and periods are dropped, non-ASCII characters are
// removed and newlines become spaces. The result is cut to maxLen bytes and, if
// disambiguator is set, suffixed with " (disambiguator)".
func NormalizeTitle(title string, maxLen int, disambiguator string) string {
	if maxLen <= 0 {
		maxLen = DefaultTitleLength
	}

	var b strings.Builder
	for _, r := range titleReplacer.Replace(title) {
		if r > 0x7F {
			continue
		}
		b.WriteRune(r)
	}

	normalized := b.String()
	if len(normalized) > maxLen {
		normalized = normalized[:maxLen]
	}
	if disambiguator != "" {
		normalized += " (" + disambiguator + ")"
	}
	return normalized
}
