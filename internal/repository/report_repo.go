package repository

import (
	"context"

	"github.com/user/a11y-auditor/internal/entity"
)

// ReportRepository stores DomainReports partitioned by run date.
type ReportRepository interface {
	// Load returns ErrReportNotFound when no report exists.
	Load(ctx context.Context, date entity.RunDate, domain string) (*entity.DomainReport, error)
	// Save replaces the whole report atomically.
	Save(ctx context.Context, date entity.RunDate, domain string, report *entity.DomainReport) error
	// Domains lists the sanitized domain keys with a report for the date.
	Domains(ctx context.Context, date entity.RunDate) ([]string, error)
	// RunDates lists all dates with a snapshot directory, oldest first.
	RunDates(ctx context.Context) ([]entity.RunDate, error)
}

// ArtifactKind names a screenshot variant.
type ArtifactKind string

const (
	ArtifactScreenshot ArtifactKind = "screenshot"
	ArtifactThumbnail  ArtifactKind = "thumbnail"
)

// ArtifactRepository stores screenshots and derived files of a run snapshot.
type ArtifactRepository interface {
	// ScreenshotPath is the snapshot-relative path of an image; it is derived from the unit alone.
	ScreenshotPath(domain, pageType, viewport string, kind ArtifactKind) string
	SaveScreenshot(ctx context.Context, date entity.RunDate, domain, pageType, viewport string, kind ArtifactKind, data []byte) (string, error)
	Exists(ctx context.Context, date entity.RunDate, relPath string) bool
	// WriteFile writes a derived file relative to the snapshot directory, or to the root when date is empty.
	WriteFile(ctx context.Context, date entity.RunDate, name string, data []byte) error
}
