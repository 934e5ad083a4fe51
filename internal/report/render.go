// Package report renders run snapshots and the history index as static HTML.
package report

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"math"

	"github.com/user/a11y-auditor/internal/entity"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

const gaugeRadius = 54

// minGapRatio keeps a visible gap in the ring for any score below 100.
const minGapRatio = 0.03

// Gauge describes the SVG ring of one score.
type Gauge struct {
	Label         string
	Color         string
	Circumference string
	Arc           string
	Gap           string
}

// NewGauge computes the ring geometry and colour for a score.
func NewGauge(score float64) Gauge {
	circumference := 2 * math.Pi * gaugeRadius
	pct := math.Max(0, math.Min(100, score))

	arc, gap := circumference, 0.0
	if pct < 100 {
		arc = pct / 100 * (1 - minGapRatio) * circumference
		gap = circumference - arc
	}

	return Gauge{
		Label:         fmt.Sprintf("%.0f", score),
		Color:         GaugeColor(score),
		Circumference: fmt.Sprintf("%.3f", circumference),
		Arc:           fmt.Sprintf("%.2f", arc),
		Gap:           fmt.Sprintf("%.2f", gap),
	}
}

// GaugeColor is green from 90, red below 50 and orange in between.
func GaugeColor(score float64) string {
	switch {
	case score >= 90:
		return "#0cce6b"
	case score < 50:
		return "#ff4136"
	default:
		return "#ffa400"
	}
}

// Renderer renders report pages from embedded templates.
type Renderer struct {
	snapshot *template.Template
	history  *template.Template
}

// NewRenderer parses the embedded templates.
func NewRenderer() (*Renderer, error) {
	funcs := template.FuncMap{
		"gauge": func(score *float64) Gauge { return NewGauge(*score) },
	}
	snapshot, err := template.New("snapshot.html.tmpl").Funcs(funcs).ParseFS(templateFS, "templates/snapshot.html.tmpl")
	if err != nil {
		return nil, fmt.Errorf("parse snapshot template: %w", err)
	}
	history, err := template.New("history.html.tmpl").ParseFS(templateFS, "templates/history.html.tmpl")
	if err != nil {
		return nil, fmt.Errorf("parse history template: %w", err)
	}
	return &Renderer{snapshot: snapshot, history: history}, nil
}

// Snapshot renders the comparison page of one run date.
func (r *Renderer) Snapshot(view *entity.ComparisonView) ([]byte, error) {
	var buf bytes.Buffer
	if err := r.snapshot.Execute(&buf, view); err != nil {
		return nil, fmt.Errorf("render snapshot %s: %w", view.Date, err)
	}
	return buf.Bytes(), nil
}

// History renders the index of all run dates. dates are listed in the order given.
func (r *Renderer) History(dates []entity.RunDate) ([]byte, error) {
	var buf bytes.Buffer
	if err := r.history.Execute(&buf, dates); err != nil {
		return nil, fmt.Errorf("render history: %w", err)
	}
	return buf.Bytes(), nil
}
