// Package syncer runs sources against the graph engine: fetch, merge, then
// advance the source's cursor.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/mrlokans/bookmarksync/internal/entities"
	"github.com/mrlokans/bookmarksync/internal/graph"
	"github.com/mrlokans/bookmarksync/internal/logger"
	"github.com/mrlokans/bookmarksync/internal/settingsstore"
	"github.com/mrlokans/bookmarksync/internal/sources"
)

// DefaultSourceTimeout bounds a single source's fetch and merge.
const DefaultSourceTimeout = 10 * time.Minute

var ErrSyncInProgress = errors.New("sync already in progress")

// sourceOrder is the order sources are visited in.
var sourceOrder = map[string]int{
	sources.NameHackerNews: 0,
	sources.NamePocket:     1,
	sources.NameReadwise:   2,
}

// Upserter merges bookmarks into the graph.
type Upserter interface {
	UpsertBookmarks(ctx context.Context, bookmarks []entities.Bookmark) graph.UpsertResult
}

// SourceFactory builds the sources for one run from current settings.
type SourceFactory func(ctx context.Context) ([]sources.Source, error)

// StatusRecorder persists the outcome of a run.
type StatusRecorder interface {
	SetSyncStatus(ctx context.Context, status, message string) error
}

// AuditLogger records the outcome of each source.
type AuditLogger interface {
	LogSync(ctx context.Context, source string, status entities.AuditStatus, description string, metadata map[string]any, err error)
}

type Syncer struct {
	engine        Upserter
	factory       SourceFactory
	status        StatusRecorder
	audit         AuditLogger
	sourceTimeout time.Duration
	log           logger.Logger

	mu      sync.Mutex
	running bool
	current string
}

type Option func(*Syncer)

func WithSourceTimeout(d time.Duration) Option {
	return func(s *Syncer) {
		if d > 0 {
			s.sourceTimeout = d
		}
	}
}

func WithStatusRecorder(r StatusRecorder) Option {
	return func(s *Syncer) { s.status = r }
}

func WithAuditLogger(a AuditLogger) Option {
	return func(s *Syncer) { s.audit = a }
}

func WithLogger(l logger.Logger) Option {
	return func(s *Syncer) { s.log = l }
}

func New(engine Upserter, factory SourceFactory, opts ...Option) *Syncer {
	s := &Syncer{
		engine:        engine,
		factory:       factory,
		sourceTimeout: DefaultSourceTimeout,
		log:           logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// IsSyncing reports whether a run is in progress.
func (s *Syncer) IsSyncing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Current returns the name of the source being synced, or "" when idle.
func (s *Syncer) Current() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

func (s *Syncer) setCurrent(name string) {
	s.mu.Lock()
	s.current = name
	s.mu.Unlock()
}

func (s *Syncer) acquire() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return false
	}
	s.running = true
	return true
}

func (s *Syncer) release() {
	s.mu.Lock()
	s.running = false
	s.current = ""
	s.mu.Unlock()
}

// Run syncs every enabled source once. A failing source is recorded and the
// run moves on; its cursor is left untouched. The returned error is only set
// when the run could not start or the parent context was cancelled.
func (s *Syncer) Run(ctx context.Context) (Report, error) {
	if !s.acquire() {
		return Report{}, ErrSyncInProgress
	}
	defer s.release()

	report := Report{StartedAt: time.Now()}
	s.recordStatus(ctx, settingsstore.SyncStatusRunning, "")

	srcs, err := s.factory(ctx)
	if err != nil {
		err = fmt.Errorf("build sources: %w", err)
		report.FinishedAt = time.Now()
		s.recordStatus(ctx, settingsstore.SyncStatusFailed, err.Error())
		return report, err
	}
	sortSources(srcs)

	for _, src := range srcs {
		if err := ctx.Err(); err != nil {
			report.FinishedAt = time.Now()
			s.recordStatus(context.WithoutCancel(ctx), settingsstore.SyncStatusFailed, "sync cancelled")
			return report, err
		}
		report.Sources = append(report.Sources, s.syncSource(ctx, src))
	}

	report.FinishedAt = time.Now()
	s.recordStatus(ctx, report.Status(), report.Summary())
	s.log.Info("sync finished",
		logger.String("status", report.Status()),
		logger.String("summary", report.Summary()),
		logger.Duration("duration", report.FinishedAt.Sub(report.StartedAt)))
	return report, nil
}

func (s *Syncer) syncSource(ctx context.Context, src sources.Source) (sr SourceReport) {
	name := src.Name()
	log := s.log.With(logger.String("source", name))
	sr = SourceReport{Source: name}
	started := time.Now()
	defer func() { sr.Duration = time.Since(started) }()

	if !src.Enabled() {
		sr.Status = entities.AuditStatusSkipped
		log.Debug("source disabled")
		s.auditSource(ctx, sr, "source not configured", nil)
		return sr
	}

	s.setCurrent(name)
	defer s.setCurrent("")

	sctx, cancel := context.WithTimeout(ctx, s.sourceTimeout)
	defer cancel()

	bookmarks, err := src.GetBookmarks(sctx)
	if err != nil {
		return s.failSource(ctx, log, sr, "fetch failed", err)
	}
	sr.Fetched = len(bookmarks)

	result := s.engine.UpsertBookmarks(sctx, bookmarks)
	sr.Created = result.Created
	sr.Updated = result.Updated
	sr.Failed = result.Failed
	sr.HighlightsAdded = result.HighlightsAdded
	sr.HighlightsSkipped = result.HighlightsSkipped

	if err := sctx.Err(); err != nil {
		return s.failSource(ctx, log, sr, "merge interrupted", err)
	}
	if err := src.SetLastSync(sctx); err != nil {
		return s.failSource(ctx, log, sr, "cursor not saved", err)
	}

	sr.Status = entities.AuditStatusSuccess
	log.Info("source synced",
		logger.Int("fetched", sr.Fetched),
		logger.Int("created", sr.Created),
		logger.Int("updated", sr.Updated),
		logger.Int("failed", sr.Failed),
		logger.Int("highlights", sr.HighlightsAdded))
	s.auditSource(ctx, sr, sr.describe(), nil)
	return sr
}

func (s *Syncer) failSource(ctx context.Context, log logger.Logger, sr SourceReport, stage string, err error) SourceReport {
	sr.Status = entities.AuditStatusFailed
	sr.Error = fmt.Sprintf("%s: %v", stage, err)
	log.Error("source sync failed", logger.String("stage", stage), logger.Error(err))
	s.auditSource(ctx, sr, stage, err)
	return sr
}

func (s *Syncer) auditSource(ctx context.Context, sr SourceReport, description string, err error) {
	if s.audit == nil {
		return
	}
	var metadata map[string]any
	if sr.Status != entities.AuditStatusSkipped {
		metadata = map[string]any{
			"fetched":            sr.Fetched,
			"created":            sr.Created,
			"updated":            sr.Updated,
			"failed":             sr.Failed,
			"highlights_added":   sr.HighlightsAdded,
			"highlights_skipped": sr.HighlightsSkipped,
		}
	}
	s.audit.LogSync(context.WithoutCancel(ctx), sr.Source, sr.Status, description, metadata, err)
}

func (s *Syncer) recordStatus(ctx context.Context, status, message string) {
	if s.status == nil {
		return
	}
	if err := s.status.SetSyncStatus(ctx, status, message); err != nil {
		s.log.Warn("failed to record sync status", logger.Error(err))
	}
}

func sortSources(srcs []sources.Source) {
	rank := func(name string) int {
		if r, ok := sourceOrder[name]; ok {
			return r
		}
		return len(sourceOrder)
	}
	sort.SliceStable(srcs, func(i, j int) bool {
		return rank(srcs[i].Name()) < rank(srcs[j].Name())
	})
}
