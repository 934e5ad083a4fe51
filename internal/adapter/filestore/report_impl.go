package filestore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/user/a11y-auditor/internal/entity"
	"github.com/user/a11y-auditor/internal/repository"
	"github.com/user/a11y-auditor/pkg/utils"
)

const (
	reportPrefix = "report-"
	reportSuffix = ".json"
)

// ReportRepoImpl stores DomainReports under <root>/<YYYY-MM-DD>/report-<domain_key>.json.
type ReportRepoImpl struct {
	root string
}

// NewReportRepo creates a new instance of ReportRepoImpl.
func NewReportRepo(root string) *ReportRepoImpl {
	return &ReportRepoImpl{root: root}
}

// Root is the directory holding all run snapshots.
func (r *ReportRepoImpl) Root() string {
	return r.root
}

func (r *ReportRepoImpl) path(date entity.RunDate, domain string) string {
	return filepath.Join(r.root, date.String(), reportPrefix+utils.SanitizeDomain(domain)+reportSuffix)
}

// Load reads the report of a domain for a run date.
func (r *ReportRepoImpl) Load(ctx context.Context, date entity.RunDate, domain string) (*entity.DomainReport, error) {
	report := entity.NewDomainReport()
	if err := readJSON(r.path(date, domain), report); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%s %s: %w", date, domain, repository.ErrReportNotFound)
		}
		return nil, fmt.Errorf("failed to load report %s %s: %w", date, domain, err)
	}
	return report, nil
}

// Save replaces the report file in one rename.
func (r *ReportRepoImpl) Save(ctx context.Context, date entity.RunDate, domain string, report *entity.DomainReport) error {
	if err := writeJSONAtomic(r.path(date, domain), report); err != nil {
		return fmt.Errorf("failed to save report %s %s: %w", date, domain, err)
	}
	return nil
}

// Domains lists the domain keys that have a report file for the date.
func (r *ReportRepoImpl) Domains(ctx context.Context, date entity.RunDate) ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(r.root, date.String()))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list reports for %s: %w", date, err)
	}
	var keys []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, reportPrefix) || !strings.HasSuffix(name, reportSuffix) {
			continue
		}
		keys = append(keys, strings.TrimSuffix(strings.TrimPrefix(name, reportPrefix), reportSuffix))
	}
	sort.Strings(keys)
	return keys, nil
}

// RunDates lists the YYYY-MM-DD directories under the root, oldest first.
func (r *ReportRepoImpl) RunDates(ctx context.Context) ([]entity.RunDate, error) {
	entries, err := os.ReadDir(r.root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list run dates: %w", err)
	}
	var dates []entity.RunDate
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		d, err := entity.ParseRunDate(e.Name())
		if err != nil {
			continue
		}
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i] < dates[j] })
	return dates, nil
}
