package usecase

import (
	"context"
	"errors"
	"sort"

	"go.uber.org/zap"

	"github.com/user/a11y-auditor/internal/entity"
	"github.com/user/a11y-auditor/internal/repository"
)

// CompareUseCase ranks the audited pages of a run date per viewport.
type CompareUseCase struct {
	reports   repository.ReportRepository
	matrix    *entity.SiteMatrix
	viewports []*entity.ViewportProfile
	logger    *zap.Logger
}

// NewCompareUseCase creates a new instance of the compare use case.
func NewCompareUseCase(reports repository.ReportRepository, matrix *entity.SiteMatrix, viewports []*entity.ViewportProfile, logger *zap.Logger) *CompareUseCase {
	return &CompareUseCase{reports: reports, matrix: matrix, viewports: viewports, logger: logger}
}

// Compare lists every audited (domain, page type) per viewport, fewest violations first.
// Differences are relative to the entry with the fewest violations. Viewports are sorted by
// name and those without results are omitted.
func (uc *CompareUseCase) Compare(ctx context.Context, date entity.RunDate) ([]entity.ViewportComparison, error) {
	byViewport := make(map[string][]entity.ComparisonEntry)

	for _, domain := range uc.matrix.Domains() {
		report, err := uc.reports.Load(ctx, date, domain)
		if err != nil {
			if !errors.Is(err, repository.ErrReportNotFound) {
				uc.logger.Warn("Ignoring unreadable report", zap.String("domain", domain), zap.Error(err))
			}
			continue
		}
		for _, pageType := range uc.matrix.PageTypes() {
			for _, vp := range uc.viewports {
				result, ok, err := report.Get(pageType, vp.Name)
				if err != nil || !ok {
					continue
				}
				byViewport[vp.Name] = append(byViewport[vp.Name], entity.ComparisonEntry{
					Domain:     domain,
					PageType:   pageType,
					Passes:     len(result.Passes),
					Violations: len(result.Violations),
				})
			}
		}
	}

	out := make([]entity.ViewportComparison, 0, len(byViewport))
	for name, entries := range byViewport {
		sort.SliceStable(entries, func(i, j int) bool { return entries[i].Violations < entries[j].Violations })
		best := entries[0]
		for i := range entries {
			entries[i].PassDifference = best.Passes - entries[i].Passes
			entries[i].ViolationDifference = entries[i].Violations - best.Violations
		}
		out = append(out, entity.ViewportComparison{Viewport: name, Entries: entries})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Viewport < out[j].Viewport })
	return out, nil
}
