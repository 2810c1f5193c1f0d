package entities

import (
	"time"
)

type Setting struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Key       string    `gorm:"uniqueIndex;size:100" json:"key"`
	Value     string    `gorm:"type:text" json:"value"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Setting) TableName() string {
	return "settings"
}

// Known setting keys
const (
	// Provider credentials (encrypted at rest when a settings secret is configured)
	SettingKeyHNUsername        = "hn_username"
	SettingKeyPocketConsumerKey = "pocket_consumer_key"
	SettingKeyPocketAccessToken = "pocket_access_token"
	SettingKeyReadwiseToken     = "readwise_token"

	// Provider cursors
	SettingKeyHNLastSync       = "hn_last_sync"
	SettingKeyPocketLastSync   = "pocket_last_sync"
	SettingKeyReadwiseLastSync = "readwise_last_sync"

	// Scheduled sync
	SettingKeySyncEnabled     = "sync_enabled"
	SettingKeySyncSchedule    = "sync_schedule"
	SettingKeySyncLastAt      = "sync_last_at"
	SettingKeySyncLastStatus  = "sync_last_status"
	SettingKeySyncLastMessage = "sync_last_message"
)

// CredentialKeys lists the settings that hold secrets.
var CredentialKeys = []string{
	SettingKeyHNUsername,
	SettingKeyPocketConsumerKey,
	SettingKeyPocketAccessToken,
	SettingKeyReadwiseToken,
}
