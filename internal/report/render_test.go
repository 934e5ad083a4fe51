package report

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/a11y-auditor/internal/entity"
)

func TestGaugeColor(t *testing.T) {
	assert.Equal(t, "#0cce6b", GaugeColor(100))
	assert.Equal(t, "#0cce6b", GaugeColor(90))
	assert.Equal(t, "#ffa400", GaugeColor(89.9))
	assert.Equal(t, "#ffa400", GaugeColor(50))
	assert.Equal(t, "#ff4136", GaugeColor(49.9))
}

func TestNewGauge(t *testing.T) {
	full := NewGauge(100)
	assert.Equal(t, "0.00", full.Gap)
	assert.Equal(t, "100", full.Label)

	almost := NewGauge(99.9)
	assert.NotEqual(t, "0.00", almost.Gap)

	zero := NewGauge(0)
	assert.Equal(t, "0.00", zero.Arc)
	assert.Equal(t, zero.Circumference[:6], zero.Gap[:6])
}

func ptr(f float64) *float64 { return &f }

func TestRenderer_Snapshot(t *testing.T) {
	r, err := NewRenderer()
	require.NoError(t, err)

	desktop := &entity.ViewportProfile{Name: "DESKTOP", Width: 1280, Height: 800}
	iphone := &entity.ViewportProfile{Name: "IPHONE", Width: 375, Height: 812}
	view := &entity.ComparisonView{
		Date:      "2025-04-28",
		Tags:      []string{"EN-301-549"},
		PageTypes: []string{"home"},
		Viewports: []*entity.ViewportProfile{desktop, iphone},
		Prev:      "2025-04-27",
		HasData:   true,
		Rows: []entity.SiteRow{{
			Domain: "galaxus.de",
			URL:    "https://www.galaxus.de",
			Pages: []entity.PageCells{{
				PageType: "home",
				Cells: []entity.ScoreCell{
					{
						Viewport:   desktop,
						Score:      ptr(93.4),
						Violations: 2,
						PageURL:    "https://www.galaxus.de",
						Screenshot: "screenshots/galaxus.de_home_desktop.webp",
						Thumbnail:  "screenshots/galaxus.de_home_desktop_thumb.jpeg",
						Summary:    []entity.ImpactGroup{{Impact: entity.ImpactSerious, RuleIDs: []string{"color-contrast"}}},
					},
					{Viewport: iphone},
				},
			}},
		}},
	}

	out, err := r.Snapshot(view)
	require.NoError(t, err)
	html := string(out)

	assert.Contains(t, html, `href="../2025-04-27/index.html"`)
	assert.NotContains(t, html, `aria-label="Next Report"`)
	assert.NotContains(t, html, `href="../2025-04-29`)
	assert.Contains(t, html, "#0cce6b")
	assert.Contains(t, html, ">93<")
	assert.Contains(t, html, "N/A")
	assert.Contains(t, html, "screenshots/galaxus.de_home_desktop_thumb.jpeg")
	assert.Contains(t, html, "serious: 1")
	assert.Contains(t, html, "color-contrast")
	assert.NotContains(t, html, "No data")
}

func TestRenderer_SnapshotNoData(t *testing.T) {
	r, err := NewRenderer()
	require.NoError(t, err)

	out, err := r.Snapshot(&entity.ComparisonView{Date: "2025-04-28"})
	require.NoError(t, err)
	assert.Contains(t, string(out), "No data for 2025-04-28")
}

func TestRenderer_History(t *testing.T) {
	r, err := NewRenderer()
	require.NoError(t, err)

	out, err := r.History([]entity.RunDate{"2025-04-28", "2025-04-27"})
	require.NoError(t, err)
	html := string(out)
	assert.Contains(t, html, `<a href="./2025-04-28/index.html">2025-04-28</a>`)
	assert.Less(t, strings.Index(html, "2025-04-28"), strings.Index(html, "2025-04-27"))
}
