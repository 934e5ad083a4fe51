package entity

// ScoreRow is one derived score of a run snapshot.
type ScoreRow struct {
	RunDate    RunDate `json:"runDate"`
	Domain     string  `json:"domain"`
	PageType   string  `json:"pageType"`
	Viewport   string  `json:"viewport"`
	Score      float64 `json:"score"`
	Violations int     `json:"violations"`
	Passes     int     `json:"passes"`
	URL        string  `json:"url,omitempty"`
}

// ImpactGroup lists the violated rules of one impact level.
type ImpactGroup struct {
	Impact  Impact
	RuleIDs []string
}

// Count is the number of violations in the group.
func (g ImpactGroup) Count() int { return len(g.RuleIDs) }

// ScoreCell is one viewport column of a (domain, page type) cell of the comparison surface.
type ScoreCell struct {
	Viewport   *ViewportProfile
	Score      *float64
	Violations int
	Passes     int
	PageURL    string
	Title      string
	Screenshot string
	Thumbnail  string
	Summary    []ImpactGroup
}

// Available reports whether a score exists for the cell.
func (c ScoreCell) Available() bool { return c.Score != nil }

// PageCells groups the viewport cells of one page type.
type PageCells struct {
	PageType string
	Cells    []ScoreCell
}

// SiteRow is one domain row of the comparison surface.
type SiteRow struct {
	Domain string
	URL    string
	Pages  []PageCells
}

// ComparisonView is the joined, scored view of one run snapshot.
type ComparisonView struct {
	Date      RunDate
	AuditedAt string
	Tags      []string
	PageTypes []string
	Viewports []*ViewportProfile
	Rows      []SiteRow
	Prev      RunDate
	Next      RunDate
	HasData   bool
}

// ScoreRows flattens the view into derived score rows; cells without a score are omitted.
func (v *ComparisonView) ScoreRows() []ScoreRow {
	var rows []ScoreRow
	for _, r := range v.Rows {
		for _, p := range r.Pages {
			for _, c := range p.Cells {
				if c.Score == nil {
					continue
				}
				rows = append(rows, ScoreRow{
					RunDate:    v.Date,
					Domain:     r.Domain,
					PageType:   p.PageType,
					Viewport:   c.Viewport.Name,
					Score:      *c.Score,
					Violations: c.Violations,
					Passes:     c.Passes,
					URL:        c.PageURL,
				})
			}
		}
	}
	return rows
}

// ComparisonEntry is one (domain, page type) line of a per-viewport comparison.
type ComparisonEntry struct {
	Domain              string
	PageType            string
	Passes              int
	Violations          int
	PassDifference      int
	ViolationDifference int
}

// ViewportComparison ranks all entries of one viewport by violation count.
type ViewportComparison struct {
	Viewport string
	Entries  []ComparisonEntry
}
