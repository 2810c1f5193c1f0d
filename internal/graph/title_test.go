package graph

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestNormalizeTitle(t *testing.T) {
	tests := []struct {
		name          string
		title         string
		maxLen        int
		disambiguator string
		want          string
	}{
		{"plain", "Some Article", 100, "", "Some Article"},
		{"slashes", "a/b/c", 100, "", `a\b\c`},
		{"colons and periods", "Go 1.22: what's new.", 100, "", "Go 122 what's new"},
		{"newlines", "first\nsecond", 100, "", "first second"},
		{"non ascii dropped", "Café naïve \U0001F600", 100, "", "Caf nave "},
		{"truncated", "abcdefghij", 4, "", "abcd"},
		{"disambiguated", "Some Article", 100, "5e918d2", "Some Article (5e918d2)"},
		{"truncated before suffix", "abcdefghij", 4, "ff", "abcd (ff)"},
		{"default length", strings.Repeat("x", 150), 0, "", strings.Repeat("x", DefaultTitleLength)},
		{"empty", "", 100, "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeTitle(tt.title, tt.maxLen, tt.disambiguator))
		})
	}
}

func TestNormalizeTitle_Properties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		title := rapid.String().Draw(t, "title")
		maxLen := rapid.IntRange(1, 200).Draw(t, "maxLen")

		got := NormalizeTitle(title, maxLen, "")
		if len(got) > maxLen {
			t.Fatalf("title %q longer than %d", got, maxLen)
		}
		if strings.ContainsAny(got, ":./\n") {
			t.Fatalf("title %q still contains forbidden characters", got)
		}
		for _, r := range got {
			if r > 0x7F {
				t.Fatalf("title %q contains non-ASCII rune %q", got, r)
			}
		}
		if again := NormalizeTitle(got, maxLen, ""); again != got {
			t.Fatalf("normalizing twice changed %q to %q", got, again)
		}
	})
}
