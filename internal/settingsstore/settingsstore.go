// Package settingsstore resolves runtime settings with the priority
// database > environment > default, and persists provider credentials,
// cursors and sync status.
package settingsstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"gorm.io/gorm"

	"github.com/mrlokans/bookmarksync/internal/crypto"
	"github.com/mrlokans/bookmarksync/internal/database/settings"
	"github.com/mrlokans/bookmarksync/internal/entities"
	"github.com/mrlokans/bookmarksync/internal/logger"
)

// Where a value came from.
const (
	SourceDatabase    = "database"
	SourceEnvironment = "environment"
	SourceDefault     = "default"
)

// encryptedPrefix marks values written through an Encryptor.
const encryptedPrefix = "enc:v1:"

var (
	ErrUnknownKey      = errors.New("unknown setting")
	ErrUnknownProvider = errors.New("unknown provider")
	// ErrNoSecret means an encrypted value was found but no settings secret is configured.
	ErrNoSecret = errors.New("setting is encrypted and no settings secret is configured")
)

// envNames maps setting keys to the environment variables that back them.
var envNames = map[string]string{
	entities.SettingKeyHNUsername:        "HN_USERNAME",
	entities.SettingKeyPocketConsumerKey: "POCKET_CONSUMER_KEY",
	entities.SettingKeyPocketAccessToken: "POCKET_ACCESS_TOKEN",
	entities.SettingKeyReadwiseToken:     "READWISE_TOKEN",
	entities.SettingKeySyncEnabled:       "SYNC_ENABLED",
	entities.SettingKeySyncSchedule:      "SYNC_SCHEDULE",
}

// Priority: database > environment > default
type SettingsStore struct {
	repo      *settings.Repository
	encryptor *crypto.Encryptor
	getenv    func(string) string
	log       logger.Logger

	defaultSchedule string
	defaultEnabled  bool
}

type Option func(*SettingsStore)

// WithEncryptor encrypts credentials on write. Without it credentials are
// stored as plain text.
func WithEncryptor(e *crypto.Encryptor) Option {
	return func(s *SettingsStore) { s.encryptor = e }
}

func WithLogger(l logger.Logger) Option {
	return func(s *SettingsStore) { s.log = l }
}

// WithSyncDefaults sets the values used when neither the database nor the
// environment configure scheduled sync.
func WithSyncDefaults(enabled bool, schedule string) Option {
	return func(s *SettingsStore) {
		s.defaultEnabled = enabled
		if schedule != "" {
			s.defaultSchedule = schedule
		}
	}
}

func withGetenv(getenv func(string) string) Option {
	return func(s *SettingsStore) { s.getenv = getenv }
}

func New(repo *settings.Repository, opts ...Option) *SettingsStore {
	s := &SettingsStore{
		repo:            repo,
		getenv:          os.Getenv,
		log:             logger.Nop(),
		defaultSchedule: DefaultSyncSchedule,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// lookup resolves key. Encrypted database values that cannot be decrypted
// are skipped with a warning so the environment can still supply them.
func (s *SettingsStore) lookup(ctx context.Context, key, def string) (string, string) {
	if value, ok := s.stored(ctx, key); ok {
		return value, SourceDatabase
	}
	if env, ok := envNames[key]; ok {
		if value := s.getenv(env); value != "" {
			return value, SourceEnvironment
		}
	}
	return def, SourceDefault
}

func (s *SettingsStore) stored(ctx context.Context, key string) (string, bool) {
	setting, err := s.repo.GetSetting(ctx, key)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			s.log.Warn("failed to read setting", logger.String("key", key), logger.Error(err))
		}
		return "", false
	}
	if setting.Value == "" {
		return "", false
	}

	value, err := s.decode(setting.Value)
	if err != nil {
		s.log.Warn("failed to decrypt setting", logger.String("key", key), logger.Error(err))
		return "", false
	}
	return value, true
}

func (s *SettingsStore) decode(value string) (string, error) {
	if !strings.HasPrefix(value, encryptedPrefix) {
		return value, nil
	}
	if s.encryptor == nil {
		return "", ErrNoSecret
	}
	return s.encryptor.Decrypt(strings.TrimPrefix(value, encryptedPrefix))
}

func (s *SettingsStore) encode(value string) (string, error) {
	if s.encryptor == nil || value == "" {
		return value, nil
	}
	ciphertext, err := s.encryptor.Encrypt(value)
	if err != nil {
		return "", err
	}
	return encryptedPrefix + ciphertext, nil
}

func (s *SettingsStore) set(ctx context.Context, key, value string) error {
	if err := s.repo.SetSetting(ctx, key, value); err != nil {
		return fmt.Errorf("save setting %s: %w", key, err)
	}
	return nil
}

// Clear removes the database override for key, reverting to env/default.
func (s *SettingsStore) Clear(ctx context.Context, key string) error {
	if !isKnownKey(key) {
		return fmt.Errorf("%w: %s", ErrUnknownKey, key)
	}
	return s.repo.DeleteSetting(ctx, key)
}

// SettingInfo is a resolved setting for display. Credentials are masked.
type SettingInfo struct {
	Key    string `json:"key"`
	Value  string `json:"value"`
	Source string `json:"source"` // "database", "environment", or "default"
}

// Info lists every known setting with its effective value and origin.
func (s *SettingsStore) Info(ctx context.Context) []SettingInfo {
	defaults := map[string]string{
		entities.SettingKeySyncEnabled:  formatBool(s.defaultEnabled),
		entities.SettingKeySyncSchedule: s.defaultSchedule,
	}

	var infos []SettingInfo
	for _, key := range knownKeys() {
		value, source := s.lookup(ctx, key, defaults[key])
		if isCredential(key) {
			value = maskToken(value)
		}
		infos = append(infos, SettingInfo{Key: key, Value: value, Source: source})
	}
	return infos
}

func knownKeys() []string {
	keys := append([]string{}, entities.CredentialKeys...)
	return append(keys,
		entities.SettingKeyHNLastSync,
		entities.SettingKeyPocketLastSync,
		entities.SettingKeyReadwiseLastSync,
		entities.SettingKeySyncEnabled,
		entities.SettingKeySyncSchedule,
	)
}

func isKnownKey(key string) bool {
	for _, k := range knownKeys() {
		if k == key {
			return true
		}
	}
	return false
}

func isCredential(key string) bool {
	for _, k := range entities.CredentialKeys {
		if k == key {
			return true
		}
	}
	return false
}

// maskToken returns a masked version of the token for display
func maskToken(token string) string {
	if token == "" {
		return ""
	}
	if len(token) <= 8 {
		return "****"
	}
	return token[:4] + "****" + token[len(token)-4:]
}
