package syncer

import (
	"fmt"
	"strings"
	"time"

	"github.com/mrlokans/bookmarksync/internal/entities"
	"github.com/mrlokans/bookmarksync/internal/settingsstore"
)

// SourceReport is the outcome of syncing one source.
type SourceReport struct {
	Source            string               `json:"source"`
	Status            entities.AuditStatus `json:"status"`
	Fetched           int                  `json:"fetched"`
	Created           int                  `json:"created"`
	Updated           int                  `json:"updated"`
	Failed            int                  `json:"failed"`
	HighlightsAdded   int                  `json:"highlights_added"`
	HighlightsSkipped int                  `json:"highlights_skipped"`
	Error             string               `json:"error,omitempty"`
	Duration          time.Duration        `json:"duration"`
}

func (r SourceReport) describe() string {
	return fmt.Sprintf("%d bookmarks: %d created, %d updated, %d failed, %d highlights added",
		r.Fetched, r.Created, r.Updated, r.Failed, r.HighlightsAdded)
}

// Report is the outcome of a sync run.
type Report struct {
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt time.Time      `json:"finished_at"`
	Sources    []SourceReport `json:"sources"`
}

// Status is "failed" when every attempted source failed, "partial" when
// some did, and "success" otherwise.
func (r Report) Status() string {
	var attempted, failed int
	for _, sr := range r.Sources {
		switch sr.Status {
		case entities.AuditStatusFailed:
			attempted++
			failed++
		case entities.AuditStatusSuccess:
			attempted++
		}
	}
	switch {
	case failed == 0:
		return settingsstore.SyncStatusSuccess
	case failed == attempted:
		return settingsstore.SyncStatusFailed
	default:
		return settingsstore.SyncStatusPartial
	}
}

// Summary is a one-line description of the run.
func (r Report) Summary() string {
	if len(r.Sources) == 0 {
		return "no sources"
	}
	parts := make([]string, 0, len(r.Sources))
	for _, sr := range r.Sources {
		switch sr.Status {
		case entities.AuditStatusSuccess:
			parts = append(parts, fmt.Sprintf("%s: %d created, %d updated", sr.Source, sr.Created, sr.Updated))
		case entities.AuditStatusFailed:
			parts = append(parts, fmt.Sprintf("%s: %s", sr.Source, sr.Error))
		default:
			parts = append(parts, sr.Source+": "+string(sr.Status))
		}
	}
	return strings.Join(parts, "; ")
}

// Source returns the report for name.
func (r Report) Source(name string) (SourceReport, bool) {
	for _, sr := range r.Sources {
		if sr.Source == name {
			return sr, true
		}
	}
	return SourceReport{}, false
}
