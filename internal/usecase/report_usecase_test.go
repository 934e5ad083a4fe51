package usecase

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/user/a11y-auditor/internal/adapter/filestore"
	"github.com/user/a11y-auditor/internal/entity"
	"github.com/user/a11y-auditor/internal/report"
	"github.com/user/a11y-auditor/internal/repository"
)

type fakeScores struct {
	saved map[entity.RunDate][]entity.ScoreRow
}

func (f *fakeScores) SaveScores(ctx context.Context, date entity.RunDate, rows []entity.ScoreRow) error {
	if f.saved == nil {
		f.saved = make(map[entity.RunDate][]entity.ScoreRow)
	}
	f.saved[date] = rows
	return nil
}

func (f *fakeScores) History(ctx context.Context, domain string) ([]entity.ScoreRow, error) {
	return nil, nil
}

type reportFixture struct {
	uc        *ReportUseCase
	root      string
	reports   *filestore.ReportRepoImpl
	artifacts *filestore.ArtifactRepoImpl
	scores    *fakeScores
}

func newReportFixture(t *testing.T) *reportFixture {
	t.Helper()
	root := t.TempDir()
	renderer, err := report.NewRenderer()
	require.NoError(t, err)
	matrix := newMatrix(t,
		entity.SiteMatrixEntry{PageType: "home", Domain: "galaxus.de", URL: "https://www.galaxus.de"},
		entity.SiteMatrixEntry{PageType: "home", Domain: "otto.de", URL: "https://www.otto.de"},
		entity.SiteMatrixEntry{PageType: "product detail", Domain: "otto.de", URL: "https://www.otto.de/p/1"},
	)
	f := &reportFixture{
		root:      root,
		reports:   filestore.NewReportRepo(root),
		artifacts: filestore.NewArtifactRepo(root),
		scores:    &fakeScores{},
	}
	f.uc = NewReportUseCase(f.reports, f.artifacts, f.scores, renderer, matrix,
		[]*entity.ViewportProfile{desktop, iphone}, []string{"EN-301-549"}, zap.NewNop())
	return f
}

func (f *reportFixture) save(t *testing.T, date entity.RunDate, domain, pageType, viewport string, result *entity.AuditResult) {
	t.Helper()
	ctx := context.Background()
	r, err := f.reports.Load(ctx, date, domain)
	if err != nil {
		r = entity.NewDomainReport()
	}
	require.NoError(t, r.Set(pageType, viewport, result))
	require.NoError(t, f.reports.Save(ctx, date, domain, r))
}

func sampleAuditResult(timestamp string) *entity.AuditResult {
	return &entity.AuditResult{RuleResults: entity.RuleResults{
		Violations: []entity.RuleFinding{
			{ID: "color-contrast", Impact: entity.ImpactSerious},
			{ID: "label", Impact: entity.ImpactCritical},
			{ID: "color-contrast", Impact: entity.ImpactSerious},
		},
		Passes:    []entity.RuleFinding{{ID: "image-alt", Impact: entity.ImpactCritical}},
		URL:       "https://www.otto.de/?audited",
		Timestamp: timestamp,
	}}
}

func TestBuildView_JoinsMatrixAndMarksMissingCells(t *testing.T) {
	f := newReportFixture(t)
	ctx := context.Background()
	f.save(t, "2025-04-27", "otto.de", "home", "DESKTOP", sampleAuditResult("2025-04-27T09:00:00Z"))
	f.save(t, "2025-04-28", "otto.de", "home", "DESKTOP", sampleAuditResult("2025-04-28T11:00:00Z"))
	f.save(t, "2025-04-28", "otto.de", "home", "IPHONE", sampleAuditResult("2025-04-28T10:30:00Z"))
	f.save(t, "2025-04-30", "otto.de", "home", "DESKTOP", sampleAuditResult("2025-04-30T09:00:00Z"))
	_, err := f.artifacts.SaveScreenshot(ctx, "2025-04-28", "otto.de", "home", "DESKTOP", repository.ArtifactThumbnail, []byte("jpeg"))
	require.NoError(t, err)

	view, err := f.uc.BuildView(ctx, "2025-04-28")
	require.NoError(t, err)

	assert.True(t, view.HasData)
	assert.Equal(t, entity.RunDate("2025-04-27"), view.Prev)
	assert.Equal(t, entity.RunDate("2025-04-30"), view.Next)
	assert.Equal(t, "2025-04-28 10:30 UTC", view.AuditedAt)
	assert.Equal(t, []string{"home", "product detail"}, view.PageTypes)

	require.Len(t, view.Rows, 2)
	galaxus := view.Rows[0]
	assert.Equal(t, "galaxus.de", galaxus.Domain)
	for _, p := range galaxus.Pages {
		for _, c := range p.Cells {
			assert.False(t, c.Available(), "no report means N/A, not zero")
		}
	}

	otto := view.Rows[1]
	assert.Equal(t, "https://www.otto.de", otto.URL)
	home := otto.Pages[0]
	require.Len(t, home.Cells, 2)
	d := home.Cells[0]
	require.True(t, d.Available())
	// color-contrast 7 + label 10 failed, image-alt 10 passed.
	assert.InDelta(t, 37.0, *d.Score, 0.001)
	assert.Equal(t, 3, d.Violations)
	assert.Equal(t, "https://www.otto.de/?audited", d.PageURL)
	assert.Equal(t, "screenshots/otto.de_home_desktop_thumb.jpeg", d.Thumbnail)
	assert.Equal(t, "screenshots/otto.de_home_desktop.webp", d.Screenshot)
	assert.Equal(t, []entity.ImpactGroup{
		{Impact: entity.ImpactCritical, RuleIDs: []string{"label"}},
		{Impact: entity.ImpactSerious, RuleIDs: []string{"color-contrast"}},
	}, d.Summary)

	assert.Empty(t, home.Cells[1].Thumbnail, "no thumbnail on disk")
	assert.False(t, otto.Pages[1].Cells[0].Available())
	assert.Equal(t, "https://www.otto.de/p/1", otto.Pages[1].Cells[0].PageURL)
}

func TestBuildView_NoData(t *testing.T) {
	f := newReportFixture(t)
	view, err := f.uc.BuildView(context.Background(), "2025-01-01")
	require.NoError(t, err)
	assert.False(t, view.HasData)
	assert.Empty(t, view.ScoreRows())
}

func TestGenerate_WritesPagesScoresAndHistory(t *testing.T) {
	f := newReportFixture(t)
	ctx := context.Background()
	f.save(t, "2025-04-27", "otto.de", "home", "DESKTOP", sampleAuditResult("2025-04-27T09:00:00Z"))
	f.save(t, "2025-04-28", "otto.de", "home", "DESKTOP", sampleAuditResult("2025-04-28T09:00:00Z"))

	require.NoError(t, f.uc.Generate(ctx, "2025-04-28"))

	page, err := os.ReadFile(filepath.Join(f.root, "2025-04-28", "index.html"))
	require.NoError(t, err)
	assert.Contains(t, string(page), `href="../2025-04-27/index.html"`)
	assert.Contains(t, string(page), "N/A")

	data, err := os.ReadFile(filepath.Join(f.root, "2025-04-28", "scores.json"))
	require.NoError(t, err)
	var rows []entity.ScoreRow
	require.NoError(t, json.Unmarshal(data, &rows))
	require.Len(t, rows, 1)
	assert.Equal(t, "otto.de", rows[0].Domain)
	assert.Equal(t, rows, f.scores.saved["2025-04-28"])

	history, err := os.ReadFile(filepath.Join(f.root, "index.html"))
	require.NoError(t, err)
	assert.Contains(t, string(history), "./2025-04-28/index.html")
	assert.Contains(t, string(history), "./2025-04-27/index.html")
}

func TestGenerate_DateWithoutReportsIsNotListed(t *testing.T) {
	f := newReportFixture(t)
	ctx := context.Background()
	f.save(t, "2025-04-27", "otto.de", "home", "DESKTOP", sampleAuditResult("2025-04-27T09:00:00Z"))

	require.NoError(t, f.uc.Generate(ctx, "2025-04-28"))

	_, err := os.Stat(filepath.Join(f.root, "2025-04-28"))
	assert.True(t, os.IsNotExist(err))
	dates, err := f.uc.RunDates(ctx)
	require.NoError(t, err)
	assert.Equal(t, []entity.RunDate{"2025-04-27"}, dates)

	history, err := os.ReadFile(filepath.Join(f.root, "index.html"))
	require.NoError(t, err)
	assert.NotContains(t, string(history), "2025-04-28")
	assert.Empty(t, f.scores.saved)
}

func TestGenerate_ExistingEmptyDateGetsNoDataPage(t *testing.T) {
	f := newReportFixture(t)
	ctx := context.Background()
	require.NoError(t, os.MkdirAll(filepath.Join(f.root, "2025-04-28"), 0o755))

	require.NoError(t, f.uc.Generate(ctx, "2025-04-28"))

	page, err := os.ReadFile(filepath.Join(f.root, "2025-04-28", "index.html"))
	require.NoError(t, err)
	assert.Contains(t, string(page), "No data for 2025-04-28.")
}

func TestGenerate_IsRepeatable(t *testing.T) {
	f := newReportFixture(t)
	ctx := context.Background()
	f.save(t, "2025-04-28", "otto.de", "home", "DESKTOP", sampleAuditResult("2025-04-28T09:00:00Z"))
	reportPath := filepath.Join(f.root, "2025-04-28", "report-otto_de.json")
	before, err := os.ReadFile(reportPath)
	require.NoError(t, err)

	require.NoError(t, f.uc.Generate(ctx, "2025-04-28"))
	first, err := os.ReadFile(filepath.Join(f.root, "2025-04-28", "index.html"))
	require.NoError(t, err)
	require.NoError(t, f.uc.Generate(ctx, "2025-04-28"))
	second, err := os.ReadFile(filepath.Join(f.root, "2025-04-28", "index.html"))
	require.NoError(t, err)

	assert.Equal(t, first, second)
	after, err := os.ReadFile(reportPath)
	require.NoError(t, err)
	assert.Equal(t, before, after, "generation never rewrites reports")
}

func TestGenerateAll(t *testing.T) {
	f := newReportFixture(t)
	f.save(t, "2025-04-27", "otto.de", "home", "DESKTOP", sampleAuditResult("2025-04-27T09:00:00Z"))
	f.save(t, "2025-04-28", "galaxus.de", "home", "IPHONE", sampleAuditResult("2025-04-28T09:00:00Z"))

	require.NoError(t, f.uc.GenerateAll(context.Background()))

	for _, d := range []string{"2025-04-27", "2025-04-28"} {
		_, err := os.Stat(filepath.Join(f.root, d, "index.html"))
		assert.NoError(t, err, d)
	}
	assert.Len(t, f.scores.saved, 2)
}

func TestNeighbours(t *testing.T) {
	dates := []entity.RunDate{"2025-04-01", "2025-04-10", "2025-04-20"}

	prev, next := neighbours(dates, "2025-04-10")
	assert.Equal(t, entity.RunDate("2025-04-01"), prev)
	assert.Equal(t, entity.RunDate("2025-04-20"), next)

	prev, next = neighbours(dates, "2025-04-01")
	assert.Empty(t, prev)
	assert.Equal(t, entity.RunDate("2025-04-10"), next)

	prev, next = neighbours(dates, "2025-04-15")
	assert.Equal(t, entity.RunDate("2025-04-10"), prev)
	assert.Equal(t, entity.RunDate("2025-04-20"), next)

	prev, next = neighbours(nil, "2025-04-15")
	assert.Empty(t, prev)
	assert.Empty(t, next)
}

func TestImpactSummary_UnknownLast(t *testing.T) {
	groups := impactSummary([]entity.RuleFinding{
		{ID: "x"},
		{ID: "region", Impact: entity.ImpactModerate},
		{ID: "y", Impact: "weird"},
	})
	assert.Equal(t, []entity.ImpactGroup{
		{Impact: entity.ImpactModerate, RuleIDs: []string{"region"}},
		{Impact: entity.ImpactUnknown, RuleIDs: []string{"x", "y"}},
	}, groups)
}
