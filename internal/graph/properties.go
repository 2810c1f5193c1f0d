package graph

import (
	"regexp"
	"sort"
	"strings"

	"github.com/mrlokans/bookmarksync/internal/entities"
)

// Well-known property keys.
const (
	PropertyTags    = "tags"
	PropertyAuthor  = "author"
	PropertyURL     = "url"
	PropertyHNURL   = "hn-url"
	PropertyHash    = "hash"
	PropertyCreated = "created"
)

// propertyOrder fixes where keys land in a properties block. Keys not listed
// share otherPropertyRank; hash always goes last.
var propertyOrder = map[string]int{
	PropertyTags:   0,
	PropertyAuthor: 1,
	PropertyURL:    2,
	PropertyHNURL:  3,
	PropertyHash:   5,
}

const otherPropertyRank = 4

func propertyRank(key string) int {
	if rank, ok := propertyOrder[key]; ok {
		return rank
	}
	return otherPropertyRank
}

// SortPropertyKeys orders keys for serialization. Keys of equal rank are
// ordered by name.
func SortPropertyKeys(keys []string) {
	sort.SliceStable(keys, func(i, j int) bool {
		ri, rj := propertyRank(keys[i]), propertyRank(keys[j])
		if ri != rj {
			return ri < rj
		}
		return keys[i] < keys[j]
	})
}

// ReconcileProperties merges props into the content of a properties block and
// returns the new content.
//
// tags are unioned with the tags already on the block and the tags:: line is
// rewritten in place. Every other key is appended only when the block has no
// line for it yet, so values edited by the user are never replaced.
func ReconcileProperties(content string, props entities.Properties) string {
	keys := make([]string, 0, len(props))
	for key := range props {
		keys = append(keys, key)
	}
	SortPropertyKeys(keys)

	for _, key := range keys {
		if key == PropertyTags {
			content = reconcileTags(content, props[key])
			continue
		}

		value := entities.JoinValues(props[key])
		if value == "" || hasPropertyLine(content, key) {
			continue
		}
		content = appendPropertyLine(content, key, value)
	}
	return content
}

func reconcileTags(content string, newTags []string) string {
	existing := existingTags(content)
	merged := UnionTags(existing, newTags)
	if len(merged) == 0 {
		return content
	}

	value := FormatTags(merged)
	loc := propertyLinePattern(PropertyTags).FindStringIndex(content)
	if loc == nil {
		return appendPropertyLine(content, PropertyTags, value)
	}
	return content[:loc[0]] + PropertyTags + ":: " + value + content[loc[1]:]
}

func existingTags(content string) []string {
	match := propertyLinePattern(PropertyTags).FindString(content)
	if match == "" {
		return nil
	}
	_, value, ok := entities.ParsePropertyLine(match)
	if !ok || value == "" {
		return nil
	}
	return strings.Split(value, ",")
}

// UnionTags merges tag lists in first-seen order, normalizing every entry and
// dropping duplicates and blanks.
func UnionTags(lists ...[]string) []string {
	seen := make(map[string]bool)
	var merged []string
	for _, list := range lists {
		for _, tag := range list {
			tag = NormalizeTag(tag)
			if tag == "" || seen[tag] {
				continue
			}
			seen[tag] = true
			merged = append(merged, tag)
		}
	}
	return merged
}

// NormalizeTag strips the markup a tag may carry in a properties block: a
// leading '#', a [[...]] page-ref wrapper and any '|' characters.
func NormalizeTag(tag string) string {
	tag = strings.TrimSpace(tag)
	tag = strings.TrimPrefix(tag, "#")
	if strings.HasPrefix(tag, "[[") && strings.HasSuffix(tag, "]]") {
		tag = tag[2 : len(tag)-2]
	}
	tag = strings.ReplaceAll(tag, "|", "")
	return strings.TrimSpace(tag)
}

// FormatTags renders normalized tags as a comma-joined list of #tag tokens.
func FormatTags(tags []string) string {
	links := make([]string, 0, len(tags))
	for _, tag := range tags {
		links = append(links, TagLink(tag))
	}
	return strings.Join(links, ", ")
}

// TagLink formats a tag as a reference: #tag, or #[[multi word tag]] when the
// tag contains whitespace.
func TagLink(tag string) string {
	formatted := tag
	if strings.ContainsAny(formatted, " \t") {
		formatted = "[[" + formatted + "]]"
	}
	if !strings.HasPrefix(formatted, "#") {
		formatted = "#" + formatted
	}
	return formatted
}

func hasPropertyLine(content, key string) bool {
	return propertyLinePattern(key).MatchString(content)
}

func appendPropertyLine(content, key, value string) string {
	line := key + ":: " + value
	if content == "" {
		return line
	}
	if strings.HasSuffix(content, "\n") {
		return content + line
	}
	return content + "\n" + line
}

func propertyLinePattern(key string) *regexp.Regexp {
	return regexp.MustCompile(`(?m)^[ \t]*` + regexp.QuoteMeta(key) + `::[^\n]*`)
}
