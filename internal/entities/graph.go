package entities

import (
	"strings"
	"time"
)

// Page is a document in the graph. Name is the case-folded lookup key;
// OriginalName is the title as created.
type Page struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	Name         string         `gorm:"uniqueIndex;size:512" json:"name"`
	OriginalName string         `gorm:"size:512" json:"original_name"`
	Properties   []PageProperty `gorm:"foreignKey:PageID" json:"properties,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

func (Page) TableName() string {
	return "pages"
}

// Block is a unit of page content. Root blocks have a nil ParentID; Position
// orders siblings.
type Block struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UUID      string    `gorm:"uniqueIndex;size:36" json:"uuid"`
	PageID    uint      `gorm:"index" json:"page_id"`
	ParentID  *uint     `gorm:"index" json:"parent_id,omitempty"`
	Position  int       `json:"position"`
	Content   string    `gorm:"type:text" json:"content"`
	Children  []Block   `gorm:"-" json:"children,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Block) TableName() string {
	return "blocks"
}

// PageProperty indexes the key:: value lines of a page's first block.
type PageProperty struct {
	ID     uint   `gorm:"primaryKey" json:"-"`
	PageID uint   `gorm:"index;uniqueIndex:idx_page_property_key" json:"-"`
	Key    string `gorm:"index:idx_property_lookup;uniqueIndex:idx_page_property_key;size:100" json:"key"`
	Value  string `gorm:"index:idx_property_lookup;type:text" json:"value"`
}

func (PageProperty) TableName() string {
	return "page_properties"
}

// PageName folds a title into the lookup key used for uniqueness.
func PageName(title string) string {
	return strings.ToLower(strings.TrimSpace(title))
}

// ParseProperties reads the key:: value lines of a block. The first line for a
// key wins; lines without a "::" separator are ignored.
func ParseProperties(content string) map[string]string {
	props := make(map[string]string)
	for _, line := range strings.Split(content, "\n") {
		key, value, ok := ParsePropertyLine(line)
		if !ok {
			continue
		}
		if _, seen := props[key]; !seen {
			props[key] = value
		}
	}
	return props
}

// ParsePropertyLine splits a single "key:: value" line.
func ParsePropertyLine(line string) (key, value string, ok bool) {
	key, value, found := strings.Cut(strings.TrimSpace(line), "::")
	if !found {
		return "", "", false
	}
	key = strings.TrimSpace(key)
	if key == "" || strings.ContainsAny(key, " \t") {
		return "", "", false
	}
	return key, strings.TrimSpace(value), true
}
