package entities

import (
	"strings"
	"time"
)

// Properties maps a property key to its values. A single-valued property is a
// one-element list.
type Properties map[string][]string

// Set stores values for key, dropping empty strings. Setting no usable value
// removes the key.
func (p Properties) Set(key string, values ...string) {
	kept := make([]string, 0, len(values))
	for _, v := range values {
		if v != "" {
			kept = append(kept, v)
		}
	}
	if len(kept) == 0 {
		delete(p, key)
		return
	}
	p[key] = kept
}

// Value returns the serialized form of the property ("" when absent).
func (p Properties) Value(key string) string {
	return JoinValues(p[key])
}

// JoinValues joins list values the way they are written into a properties block.
func JoinValues(values []string) string {
	kept := make([]string, 0, len(values))
	for _, v := range values {
		if v != "" {
			kept = append(kept, v)
		}
	}
	return strings.Join(kept, ", ")
}

// Bookmark is a normalized external resource produced by a source for one sync run.
type Bookmark struct {
	Hash       string      `json:"hash"`
	Title      string      `json:"title"`
	URL        string      `json:"url,omitempty"`
	Tags       []string    `json:"tags,omitempty"`
	Properties Properties  `json:"properties,omitempty"`
	Highlights []Highlight `json:"highlights,omitempty"`
	Created    *time.Time  `json:"created,omitempty"`
}

// Highlight is a quoted excerpt attached to a bookmark.
type Highlight struct {
	Hash       string     `json:"hash"`
	Text       string     `json:"text"`
	Tags       []string   `json:"tags,omitempty"`
	Properties Properties `json:"properties,omitempty"`
	Created    *time.Time `json:"created,omitempty"`
	Location   int        `json:"location,omitempty"`
}
