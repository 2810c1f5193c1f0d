// Package database provides the data access layer for the application.
//
// # Architecture
//
// The database layer is organized into domain-specific sub-packages:
//
//	database/
//	├── database.go      # Connection setup and migrations
//	├── pages/           # Page and block graph (implements graph.Store)
//	├── settings/        # Key/value application settings
//	└── audit/           # Sync and export audit trail
//
// # Using Sub-packages
//
//	db, err := database.NewDatabase("./bookmarksync.db", log)
//
//	pagesRepo := pages.NewRepository(db.DB)
//	settingsRepo := settings.NewRepository(db.DB)
//	auditRepo := audit.NewRepository(db.DB)
//
// # Adding a New Domain
//
//  1. Create a new sub-package: internal/database/<domain>/
//  2. Define a Repository struct with a *gorm.DB field
//  3. Add NewRepository(db *gorm.DB) constructor
//  4. Register its models in NewDatabase's AutoMigrate call
package database
