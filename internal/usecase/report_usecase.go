package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/user/a11y-auditor/internal/entity"
	"github.com/user/a11y-auditor/internal/repository"
	"github.com/user/a11y-auditor/internal/scoring"
)

// Renderer turns views into HTML pages.
type Renderer interface {
	Snapshot(view *entity.ComparisonView) ([]byte, error)
	History(dates []entity.RunDate) ([]byte, error)
}

// ReportUseCase derives comparison views and report files from stored DomainReports.
// It never modifies a DomainReport.
type ReportUseCase struct {
	reports   repository.ReportRepository
	artifacts repository.ArtifactRepository
	scores    repository.ScoreRepository
	renderer  Renderer
	matrix    *entity.SiteMatrix
	viewports []*entity.ViewportProfile
	tags      []string
	logger    *zap.Logger
}

// NewReportUseCase creates a new instance of the report use case. scores may be nil.
func NewReportUseCase(
	reports repository.ReportRepository,
	artifacts repository.ArtifactRepository,
	scores repository.ScoreRepository,
	renderer Renderer,
	matrix *entity.SiteMatrix,
	viewports []*entity.ViewportProfile,
	tags []string,
	logger *zap.Logger,
) *ReportUseCase {
	return &ReportUseCase{
		reports:   reports,
		artifacts: artifacts,
		scores:    scores,
		renderer:  renderer,
		matrix:    matrix,
		viewports: viewports,
		tags:      tags,
		logger:    logger,
	}
}

// RunDates lists every date with a snapshot, oldest first.
func (uc *ReportUseCase) RunDates(ctx context.Context) ([]entity.RunDate, error) {
	return uc.reports.RunDates(ctx)
}

// BuildView joins the stored reports of a date against the site matrix. Cells without a
// result keep a nil score.
func (uc *ReportUseCase) BuildView(ctx context.Context, date entity.RunDate) (*entity.ComparisonView, error) {
	dates, err := uc.reports.RunDates(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list run dates: %w", err)
	}

	view := &entity.ComparisonView{
		Date:      date,
		Tags:      uc.tags,
		PageTypes: uc.matrix.PageTypes(),
		Viewports: uc.viewports,
	}
	view.Prev, view.Next = neighbours(dates, date)

	var earliest time.Time
	for _, domain := range uc.matrix.Domains() {
		report := uc.loadReport(ctx, date, domain)
		if report != nil && report.Len() > 0 {
			view.HasData = true
		}

		row := entity.SiteRow{Domain: domain, URL: uc.siteURL(domain)}
		for _, pageType := range view.PageTypes {
			pc := entity.PageCells{PageType: pageType}
			for _, vp := range uc.viewports {
				cell, auditedAt := uc.buildCell(ctx, date, domain, pageType, vp, report)
				if !auditedAt.IsZero() && (earliest.IsZero() || auditedAt.Before(earliest)) {
					earliest = auditedAt
				}
				pc.Cells = append(pc.Cells, cell)
			}
			row.Pages = append(row.Pages, pc)
		}
		view.Rows = append(view.Rows, row)
	}

	if !earliest.IsZero() {
		view.AuditedAt = earliest.UTC().Format("2006-01-02 15:04 MST")
	}
	return view, nil
}

// loadReport returns nil when the domain has no usable report for the date.
func (uc *ReportUseCase) loadReport(ctx context.Context, date entity.RunDate, domain string) *entity.DomainReport {
	report, err := uc.reports.Load(ctx, date, domain)
	if err != nil {
		if !errors.Is(err, repository.ErrReportNotFound) {
			uc.logger.Warn("Ignoring unreadable report", zap.String("date", date.String()), zap.String("domain", domain), zap.Error(err))
		}
		return nil
	}
	return report
}

// siteURL prefers the home page URL of a domain for the row link.
func (uc *ReportUseCase) siteURL(domain string) string {
	if u, ok := uc.matrix.URL("home", domain); ok {
		return u
	}
	for _, pageType := range uc.matrix.PageTypes() {
		if u, ok := uc.matrix.URL(pageType, domain); ok {
			return u
		}
	}
	return ""
}

func (uc *ReportUseCase) buildCell(ctx context.Context, date entity.RunDate, domain, pageType string, vp *entity.ViewportProfile, report *entity.DomainReport) (entity.ScoreCell, time.Time) {
	cell := entity.ScoreCell{Viewport: vp}
	cell.PageURL, _ = uc.matrix.URL(pageType, domain)
	if report == nil {
		return cell, time.Time{}
	}

	result, ok, err := report.Get(pageType, vp.Name)
	if err != nil {
		uc.logger.Warn("Ignoring undecodable result",
			zap.String("domain", domain), zap.String("page_type", pageType), zap.String("viewport", vp.Name), zap.Error(err))
		return cell, time.Time{}
	}
	if !ok {
		return cell, time.Time{}
	}

	score := scoring.Score(result)
	cell.Score = &score
	cell.Violations = len(result.Violations)
	cell.Passes = len(result.Passes)
	if result.URL != "" {
		cell.PageURL = result.URL
	}
	if result.Page != nil {
		cell.Title = result.Page.Title
	}
	cell.Summary = impactSummary(result.Violations)

	thumb := uc.artifacts.ScreenshotPath(domain, pageType, vp.Name, repository.ArtifactThumbnail)
	if uc.artifacts.Exists(ctx, date, thumb) {
		cell.Thumbnail = thumb
		cell.Screenshot = uc.artifacts.ScreenshotPath(domain, pageType, vp.Name, repository.ArtifactScreenshot)
	}

	auditedAt, _ := result.AuditedAt()
	return cell, auditedAt
}

// impactSummary groups violated rule ids by impact, most severe first.
func impactSummary(violations []entity.RuleFinding) []entity.ImpactGroup {
	byImpact := make(map[entity.Impact][]string)
	seen := make(map[string]bool)
	for _, v := range violations {
		if seen[v.ID] {
			continue
		}
		seen[v.ID] = true
		impact := v.Impact.Normalize()
		byImpact[impact] = append(byImpact[impact], v.ID)
	}

	var groups []entity.ImpactGroup
	order := append(append([]entity.Impact(nil), entity.ImpactOrder...), entity.ImpactUnknown)
	for _, impact := range order {
		if ids := byImpact[impact]; len(ids) > 0 {
			groups = append(groups, entity.ImpactGroup{Impact: impact, RuleIDs: ids})
		}
	}
	return groups
}

// neighbours finds the next older and next newer date around date in an ascending list.
func neighbours(dates []entity.RunDate, date entity.RunDate) (prev, next entity.RunDate) {
	for _, d := range dates {
		switch {
		case d < date:
			prev = d
		case d > date && next == "":
			next = d
		}
	}
	return prev, next
}

// Generate renders the snapshot page of a date, writes its score table and refreshes the
// history index.
func (uc *ReportUseCase) Generate(ctx context.Context, date entity.RunDate) error {
	if err := uc.generate(ctx, date); err != nil {
		return err
	}
	return uc.writeHistory(ctx)
}

// GenerateAll regenerates every snapshot in chronological order, then the history index.
func (uc *ReportUseCase) GenerateAll(ctx context.Context) error {
	dates, err := uc.reports.RunDates(ctx)
	if err != nil {
		return fmt.Errorf("failed to list run dates: %w", err)
	}
	for _, date := range dates {
		if err := uc.generate(ctx, date); err != nil {
			return err
		}
	}
	return uc.writeHistory(ctx)
}

func (uc *ReportUseCase) generate(ctx context.Context, date entity.RunDate) error {
	view, err := uc.BuildView(ctx, date)
	if err != nil {
		return err
	}
	// Writing a page would create the date directory and list the date in the history index.
	if !view.HasData && !uc.artifacts.Exists(ctx, date, "") {
		uc.logger.Info("No reports for date, snapshot not written", zap.String("date", date.String()))
		return nil
	}

	page, err := uc.renderer.Snapshot(view)
	if err != nil {
		return err
	}
	if err := uc.artifacts.WriteFile(ctx, date, "index.html", page); err != nil {
		return fmt.Errorf("failed to write snapshot page for %s: %w", date, err)
	}

	rows := view.ScoreRows()
	if rows == nil {
		rows = []entity.ScoreRow{}
	}
	data, err := json.MarshalIndent(rows, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode scores for %s: %w", date, err)
	}
	if err := uc.artifacts.WriteFile(ctx, date, "scores.json", data); err != nil {
		return fmt.Errorf("failed to write scores for %s: %w", date, err)
	}

	if uc.scores != nil {
		if err := uc.scores.SaveScores(ctx, date, rows); err != nil {
			return fmt.Errorf("failed to store scores for %s: %w", date, err)
		}
	}

	uc.logger.Info("Snapshot generated",
		zap.String("date", date.String()),
		zap.Bool("has_data", view.HasData),
		zap.Int("scores", len(rows)),
	)
	return nil
}

func (uc *ReportUseCase) writeHistory(ctx context.Context) error {
	dates, err := uc.reports.RunDates(ctx)
	if err != nil {
		return fmt.Errorf("failed to list run dates: %w", err)
	}
	newestFirst := append([]entity.RunDate(nil), dates...)
	sort.Slice(newestFirst, func(i, j int) bool { return newestFirst[i] > newestFirst[j] })

	page, err := uc.renderer.History(newestFirst)
	if err != nil {
		return err
	}
	if err := uc.artifacts.WriteFile(ctx, "", "index.html", page); err != nil {
		return fmt.Errorf("failed to write history index: %w", err)
	}
	return nil
}
