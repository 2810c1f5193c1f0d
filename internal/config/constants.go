package config

const (
	// DefaultDatabasePath is the default path for the graph database
	DefaultDatabasePath = "./bookmarksync.db"

	// DefaultJournalDateFormat matches Logseq's default journal title format
	DefaultJournalDateFormat = "MMM do, yyyy"

	// DefaultTitleMaxLength caps page titles derived from bookmark titles
	DefaultTitleMaxLength = 100
)
