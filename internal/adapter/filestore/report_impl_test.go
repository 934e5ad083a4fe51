package filestore

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/a11y-auditor/internal/entity"
	"github.com/user/a11y-auditor/internal/repository"
)

func sampleResult(url string) *entity.AuditResult {
	return &entity.AuditResult{RuleResults: entity.RuleResults{
		Passes:     []entity.RuleFinding{{ID: "html-has-lang", Impact: entity.ImpactSerious}},
		Violations: []entity.RuleFinding{{ID: "image-alt", Impact: entity.ImpactCritical, NodeCount: 3}},
		URL:        url,
		Timestamp:  "2025-04-28T12:47:00.000Z",
	}}
}

func TestReportRepo_LoadMissing(t *testing.T) {
	r := NewReportRepo(t.TempDir())
	_, err := r.Load(context.Background(), "2025-04-28", "galaxus.de")
	assert.ErrorIs(t, err, repository.ErrReportNotFound)
}

func TestReportRepo_SaveLoad(t *testing.T) {
	root := t.TempDir()
	r := NewReportRepo(root)
	ctx := context.Background()

	report := entity.NewDomainReport()
	require.NoError(t, report.Set("home", "DESKTOP", sampleResult("https://www.galaxus.de")))
	require.NoError(t, r.Save(ctx, "2025-04-28", "galaxus.de", report))

	_, err := os.Stat(filepath.Join(root, "2025-04-28", "report-galaxus_de.json"))
	require.NoError(t, err)

	loaded, err := r.Load(ctx, "2025-04-28", "galaxus.de")
	require.NoError(t, err)
	got, ok, err := loaded.Get("home", "DESKTOP")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, sampleResult("https://www.galaxus.de"), got)
}

func TestReportRepo_RewriteKeepsExistingCellBytes(t *testing.T) {
	root := t.TempDir()
	r := NewReportRepo(root)
	ctx := context.Background()

	report := entity.NewDomainReport()
	require.NoError(t, report.Set("home", "DESKTOP", sampleResult("https://www.otto.de")))
	require.NoError(t, r.Save(ctx, "2025-04-28", "otto.de", report))
	first, err := r.Load(ctx, "2025-04-28", "otto.de")
	require.NoError(t, err)
	before, _ := first.Raw("home", "DESKTOP")

	require.NoError(t, first.Set("home", "IPHONE", sampleResult("https://www.otto.de")))
	require.NoError(t, r.Save(ctx, "2025-04-28", "otto.de", first))

	second, err := r.Load(ctx, "2025-04-28", "otto.de")
	require.NoError(t, err)
	after, _ := second.Raw("home", "DESKTOP")
	assert.Equal(t, string(before), string(after))
	assert.Equal(t, 2, second.Len())
}

func TestReportRepo_DomainsAndRunDates(t *testing.T) {
	root := t.TempDir()
	r := NewReportRepo(root)
	ctx := context.Background()

	for _, d := range []entity.RunDate{"2025-05-02", "2025-04-28", "2025-04-30"} {
		require.NoError(t, r.Save(ctx, d, "galaxus.de", entity.NewDomainReport()))
	}
	require.NoError(t, r.Save(ctx, "2025-04-28", "www.otto.de", entity.NewDomainReport()))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "screenshots-old"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "index.html"), []byte("x"), 0o644))

	dates, err := r.RunDates(ctx)
	require.NoError(t, err)
	assert.Equal(t, []entity.RunDate{"2025-04-28", "2025-04-30", "2025-05-02"}, dates)

	domains, err := r.Domains(ctx, "2025-04-28")
	require.NoError(t, err)
	assert.Equal(t, []string{"galaxus_de", "otto_de"}, domains)

	none, err := r.Domains(ctx, "2024-01-01")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestArtifactRepo_Paths(t *testing.T) {
	root := t.TempDir()
	r := NewArtifactRepo(root)
	ctx := context.Background()

	assert.Equal(t, "screenshots/galaxus.de_product_detail_desktop.webp",
		r.ScreenshotPath("galaxus.de", "product detail", "DESKTOP", repository.ArtifactScreenshot))
	assert.Equal(t, "screenshots/galaxus.de_home_iphone_thumb.jpeg",
		r.ScreenshotPath("galaxus.de", "home", "IPHONE", repository.ArtifactThumbnail))

	rel, err := r.SaveScreenshot(ctx, "2025-04-28", "galaxus.de", "home", "IPHONE", repository.ArtifactThumbnail, []byte{0xff, 0xd8})
	require.NoError(t, err)
	assert.True(t, r.Exists(ctx, "2025-04-28", rel))
	assert.False(t, r.Exists(ctx, "2025-04-28", "screenshots/missing.webp"))

	require.NoError(t, r.WriteFile(ctx, "", "index.html", []byte("<html></html>")))
	_, err = os.Stat(filepath.Join(root, "index.html"))
	assert.NoError(t, err)
}
