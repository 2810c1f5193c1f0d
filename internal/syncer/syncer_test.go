package syncer

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/bookmarksync/internal/entities"
	"github.com/mrlokans/bookmarksync/internal/graph"
	"github.com/mrlokans/bookmarksync/internal/settingsstore"
	"github.com/mrlokans/bookmarksync/internal/sources"
)

type fakeSource struct {
	name      string
	disabled  bool
	bookmarks []entities.Bookmark
	fetchErr  error
	cursorErr error
	started   chan struct{}
	release   chan struct{}

	mu        sync.Mutex
	lastSyncs int
}

func (f *fakeSource) Name() string  { return f.name }
func (f *fakeSource) Enabled() bool { return !f.disabled }

func (f *fakeSource) GetBookmarks(ctx context.Context) ([]entities.Bookmark, error) {
	if f.started != nil {
		close(f.started)
	}
	if f.release != nil {
		select {
		case <-f.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return f.bookmarks, f.fetchErr
}

func (f *fakeSource) SetLastSync(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.cursorErr != nil {
		return f.cursorErr
	}
	f.lastSyncs++
	return nil
}

func (f *fakeSource) cursorAdvanced() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastSyncs
}

type fakeUpserter struct {
	mu       sync.Mutex
	batches  [][]entities.Bookmark
	result   graph.UpsertResult
	blocking bool
}

func (f *fakeUpserter) UpsertBookmarks(ctx context.Context, bookmarks []entities.Bookmark) graph.UpsertResult {
	f.mu.Lock()
	f.batches = append(f.batches, bookmarks)
	f.mu.Unlock()
	if f.blocking {
		<-ctx.Done()
	}
	result := f.result
	if result.Created == 0 && result.Failed == 0 {
		result.Created = len(bookmarks)
	}
	return result
}

type statusLog struct {
	mu       sync.Mutex
	statuses []string
	messages []string
}

func (s *statusLog) SetSyncStatus(_ context.Context, status, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statuses = append(s.statuses, status)
	s.messages = append(s.messages, message)
	return nil
}

type auditEntry struct {
	source string
	status entities.AuditStatus
	err    error
}

type auditLog struct {
	mu      sync.Mutex
	entries []auditEntry
}

func (a *auditLog) LogSync(_ context.Context, source string, status entities.AuditStatus, _ string, _ map[string]any, err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err != nil {
		status = entities.AuditStatusFailed
	}
	a.entries = append(a.entries, auditEntry{source: source, status: status, err: err})
}

func factory(srcs ...sources.Source) SourceFactory {
	return func(context.Context) ([]sources.Source, error) {
		return srcs, nil
	}
}

func bookmarks(hashes ...string) []entities.Bookmark {
	var out []entities.Bookmark
	for _, h := range hashes {
		out = append(out, entities.Bookmark{Hash: h, Title: "Title " + h})
	}
	return out
}

func TestSyncer_VisitsSourcesInOrder(t *testing.T) {
	hn := &fakeSource{name: sources.NameHackerNews, disabled: true}
	pocket := &fakeSource{name: sources.NamePocket, bookmarks: bookmarks("p1")}
	readwise := &fakeSource{name: sources.NameReadwise, bookmarks: bookmarks("r1", "r2")}
	engine := &fakeUpserter{}
	audit := &auditLog{}

	s := New(engine, factory(readwise, hn, pocket), WithAuditLogger(audit))
	report, err := s.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, report.Sources, 3)
	assert.Equal(t, sources.NameHackerNews, report.Sources[0].Source)
	assert.Equal(t, entities.AuditStatusSkipped, report.Sources[0].Status)
	assert.Equal(t, sources.NamePocket, report.Sources[1].Source)
	assert.Equal(t, sources.NameReadwise, report.Sources[2].Source)
	assert.Equal(t, 2, report.Sources[2].Created)

	require.Len(t, engine.batches, 2)
	assert.Equal(t, "p1", engine.batches[0][0].Hash)
	assert.Equal(t, 0, hn.cursorAdvanced())
	assert.Equal(t, 1, pocket.cursorAdvanced())
	assert.Equal(t, 1, readwise.cursorAdvanced())
	assert.Equal(t, settingsstore.SyncStatusSuccess, report.Status())

	require.Len(t, audit.entries, 3)
	assert.Equal(t, entities.AuditStatusSkipped, audit.entries[0].status)
	assert.Equal(t, entities.AuditStatusSuccess, audit.entries[2].status)
}

func TestSyncer_FetchFailureKeepsCursorAndContinues(t *testing.T) {
	pocket := &fakeSource{name: sources.NamePocket, fetchErr: errors.New("unexpected status 503")}
	readwise := &fakeSource{name: sources.NameReadwise, bookmarks: bookmarks("r1")}
	status := &statusLog{}

	s := New(&fakeUpserter{}, factory(pocket, readwise), WithStatusRecorder(status))
	report, err := s.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 0, pocket.cursorAdvanced())
	assert.Equal(t, 1, readwise.cursorAdvanced())

	sr, ok := report.Source(sources.NamePocket)
	require.True(t, ok)
	assert.Equal(t, entities.AuditStatusFailed, sr.Status)
	assert.Contains(t, sr.Error, "fetch failed")
	assert.Equal(t, settingsstore.SyncStatusPartial, report.Status())

	assert.Equal(t, []string{settingsstore.SyncStatusRunning, settingsstore.SyncStatusPartial}, status.statuses)
	assert.Contains(t, status.messages[1], "pocket: fetch failed")
}

func TestSyncer_BookmarkFailuresStillAdvanceCursor(t *testing.T) {
	src := &fakeSource{name: sources.NamePocket, bookmarks: bookmarks("a", "b", "c")}
	engine := &fakeUpserter{result: graph.UpsertResult{Created: 2, Failed: 1}}

	report, err := New(engine, factory(src)).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, src.cursorAdvanced())
	sr, _ := report.Source(sources.NamePocket)
	assert.Equal(t, entities.AuditStatusSuccess, sr.Status)
	assert.Equal(t, 1, sr.Failed)
	assert.Equal(t, 3, sr.Fetched)
}

func TestSyncer_TimeoutDuringMergeKeepsCursor(t *testing.T) {
	slow := &fakeSource{name: sources.NamePocket, bookmarks: bookmarks("a")}
	engine := &fakeUpserter{blocking: true}

	s := New(engine, factory(slow), WithSourceTimeout(20*time.Millisecond))
	report, err := s.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 0, slow.cursorAdvanced())
	sr, _ := report.Source(sources.NamePocket)
	assert.Equal(t, entities.AuditStatusFailed, sr.Status)
	assert.Contains(t, sr.Error, "merge interrupted")
	assert.Equal(t, settingsstore.SyncStatusFailed, report.Status())
}

func TestSyncer_CursorFailure(t *testing.T) {
	src := &fakeSource{name: sources.NameReadwise, bookmarks: bookmarks("a"), cursorErr: errors.New("disk full")}

	report, err := New(&fakeUpserter{}, factory(src)).Run(context.Background())
	require.NoError(t, err)

	sr, _ := report.Source(sources.NameReadwise)
	assert.Equal(t, entities.AuditStatusFailed, sr.Status)
	assert.Contains(t, sr.Error, "cursor not saved")
}

func TestSyncer_RejectsOverlappingRuns(t *testing.T) {
	src := &fakeSource{
		name:    sources.NameHackerNews,
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	s := New(&fakeUpserter{}, factory(src))

	done := make(chan error, 1)
	go func() {
		_, err := s.Run(context.Background())
		done <- err
	}()

	<-src.started
	assert.True(t, s.IsSyncing())
	assert.Equal(t, sources.NameHackerNews, s.Current())

	_, err := s.Run(context.Background())
	assert.ErrorIs(t, err, ErrSyncInProgress)

	close(src.release)
	require.NoError(t, <-done)
	assert.False(t, s.IsSyncing())
	assert.Empty(t, s.Current())
}

func TestSyncer_FactoryError(t *testing.T) {
	status := &statusLog{}
	s := New(&fakeUpserter{}, func(context.Context) ([]sources.Source, error) {
		return nil, errors.New("settings unavailable")
	}, WithStatusRecorder(status))

	_, err := s.Run(context.Background())
	assert.ErrorContains(t, err, "settings unavailable")
	assert.Equal(t, settingsstore.SyncStatusFailed, status.statuses[len(status.statuses)-1])
	assert.False(t, s.IsSyncing())
}

func TestSyncer_CancelledContext(t *testing.T) {
	src := &fakeSource{name: sources.NamePocket, bookmarks: bookmarks("a")}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(&fakeUpserter{}, factory(src)).Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, src.cursorAdvanced())
}

func TestReport_Status(t *testing.T) {
	assert.Equal(t, settingsstore.SyncStatusSuccess, Report{}.Status())
	assert.Equal(t, "no sources", Report{}.Summary())

	onlySkipped := Report{Sources: []SourceReport{{Source: "x", Status: entities.AuditStatusSkipped}}}
	assert.Equal(t, settingsstore.SyncStatusSuccess, onlySkipped.Status())
	assert.Equal(t, "x: skipped", onlySkipped.Summary())

	allFailed := Report{Sources: []SourceReport{
		{Source: "a", Status: entities.AuditStatusFailed, Error: "boom"},
		{Source: "b", Status: entities.AuditStatusSkipped},
	}}
	assert.Equal(t, settingsstore.SyncStatusFailed, allFailed.Status())
	assert.Equal(t, "a: boom; b: skipped", allFailed.Summary())
}
