package entity

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"
)

// Impact is the severity assigned to a rule by the rule engine.
type Impact string

const (
	ImpactCritical Impact = "critical"
	ImpactSerious  Impact = "serious"
	ImpactModerate Impact = "moderate"
	ImpactMinor    Impact = "minor"
	ImpactUnknown  Impact = "unknown"
)

// ImpactOrder lists impacts from most to least severe.
var ImpactOrder = []Impact{ImpactCritical, ImpactSerious, ImpactModerate, ImpactMinor}

// Normalize maps empty or unrecognised impacts to ImpactUnknown.
func (i Impact) Normalize() Impact {
	switch i {
	case ImpactCritical, ImpactSerious, ImpactModerate, ImpactMinor:
		return i
	default:
		return ImpactUnknown
	}
}

// RuleFinding is one rule outcome reported by the rule engine.
type RuleFinding struct {
	ID          string   `json:"id"`
	Impact      Impact   `json:"impact,omitempty"`
	Description string   `json:"description,omitempty"`
	Help        string   `json:"help,omitempty"`
	HelpURL     string   `json:"helpUrl,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	NodeCount   int      `json:"nodeCount,omitempty"`
}

// RuleResults is the categorised output of one rule-engine run.
type RuleResults struct {
	Passes       []RuleFinding `json:"passes"`
	Violations   []RuleFinding `json:"violations"`
	Incomplete   []RuleFinding `json:"incomplete"`
	Inapplicable []RuleFinding `json:"inapplicable"`
	URL          string        `json:"url"`
	Timestamp    string        `json:"timestamp"`
}

// PageInfo is descriptive metadata read from the audited document.
type PageInfo struct {
	Title     string `json:"title,omitempty"`
	Lang      string `json:"lang,omitempty"`
	Landmarks int    `json:"landmarks,omitempty"`
	Headings  int    `json:"headings,omitempty"`
	Images    int    `json:"images,omitempty"`
}

// AuditResult is the outcome of one audit unit. It is immutable once written.
type AuditResult struct {
	RuleResults
	Screenshots []string  `json:"screenshots,omitempty"`
	Page        *PageInfo `json:"page,omitempty"`
}

// AuditedAt parses the result timestamp.
func (r *AuditResult) AuditedAt() (time.Time, error) {
	return time.Parse(time.RFC3339Nano, r.Timestamp)
}

// DomainReport holds pageType -> viewport -> AuditResult for one domain and run date.
// Results are kept as raw JSON so cells written by an earlier run stay byte-identical
// when the report is rewritten.
type DomainReport struct {
	cells map[string]map[string]json.RawMessage
}

// NewDomainReport returns an empty report.
func NewDomainReport() *DomainReport {
	return &DomainReport{cells: make(map[string]map[string]json.RawMessage)}
}

// Has reports whether a result exists for the cell.
func (d *DomainReport) Has(pageType, viewport string) bool {
	_, ok := d.cells[pageType][viewport]
	return ok
}

// Set stores a result for the cell, replacing any previous one.
func (d *DomainReport) Set(pageType, viewport string, result *AuditResult) error {
	raw, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encode audit result %s/%s: %w", pageType, viewport, err)
	}
	byViewport, ok := d.cells[pageType]
	if !ok {
		byViewport = make(map[string]json.RawMessage)
		d.cells[pageType] = byViewport
	}
	byViewport[viewport] = raw
	return nil
}

// Get decodes the result stored for the cell.
func (d *DomainReport) Get(pageType, viewport string) (*AuditResult, bool, error) {
	raw, ok := d.cells[pageType][viewport]
	if !ok {
		return nil, false, nil
	}
	var r AuditResult
	if err := json.Unmarshal(raw, &r); err != nil {
		return nil, true, fmt.Errorf("decode audit result %s/%s: %w", pageType, viewport, err)
	}
	return &r, true, nil
}

// Raw returns the stored JSON of a cell.
func (d *DomainReport) Raw(pageType, viewport string) (json.RawMessage, bool) {
	raw, ok := d.cells[pageType][viewport]
	return raw, ok
}

// PageTypes returns the page types present, sorted.
func (d *DomainReport) PageTypes() []string {
	out := make([]string, 0, len(d.cells))
	for p := range d.cells {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Viewports returns the viewports present for a page type, sorted.
func (d *DomainReport) Viewports(pageType string) []string {
	out := make([]string, 0, len(d.cells[pageType]))
	for v := range d.cells[pageType] {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// Len is the number of stored cells.
func (d *DomainReport) Len() int {
	n := 0
	for _, v := range d.cells {
		n += len(v)
	}
	return n
}

// MarshalJSON writes the nested map. encoding/json sorts map keys, so output is stable.
func (d *DomainReport) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.cells)
}

// UnmarshalJSON reads the nested map.
func (d *DomainReport) UnmarshalJSON(data []byte) error {
	cells := make(map[string]map[string]json.RawMessage)
	if err := json.Unmarshal(data, &cells); err != nil {
		return err
	}
	for p, byViewport := range cells {
		if byViewport == nil {
			delete(cells, p)
		}
	}
	d.cells = cells
	return nil
}

// RunDate is the calendar-day partition of a run, formatted YYYY-MM-DD.
type RunDate string

const runDateLayout = "2006-01-02"

// NewRunDate formats t in its own location.
func NewRunDate(t time.Time) RunDate {
	return RunDate(t.Format(runDateLayout))
}

// ParseRunDate validates a YYYY-MM-DD string.
func ParseRunDate(s string) (RunDate, error) {
	if _, err := time.Parse(runDateLayout, s); err != nil {
		return "", fmt.Errorf("invalid run date %q: %w", s, err)
	}
	return RunDate(s), nil
}

func (d RunDate) String() string { return string(d) }
