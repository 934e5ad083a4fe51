package response

import "time"

// RunsResponse lists the available run dates, oldest first.
type RunsResponse struct {
	Runs []string `json:"runs"`
}

// ScoreResponse is one cell of a run snapshot. Score is null when the unit has no result.
type ScoreResponse struct {
	Domain     string   `json:"domain"`
	PageType   string   `json:"page_type"`
	Viewport   string   `json:"viewport"`
	Score      *float64 `json:"score"`
	Violations int      `json:"violations"`
	Passes     int      `json:"passes"`
	URL        string   `json:"url,omitempty"`
}

// ScoresResponse is the score table of one run date.
type ScoresResponse struct {
	Date      string          `json:"date"`
	AuditedAt string          `json:"audited_at,omitempty"`
	Prev      string          `json:"prev,omitempty"`
	Next      string          `json:"next,omitempty"`
	Scores    []ScoreResponse `json:"scores"`
}

// FailedUnitResponse is a DTO for a failed audit unit, mirroring entity.FailedUnit.
type FailedUnitResponse struct {
	Domain        string    `json:"domain"`
	PageType      string    `json:"page_type"`
	Viewport      string    `json:"viewport"`
	URL           string    `json:"url"`
	LastState     string    `json:"last_state"`
	ErrorType     string    `json:"error_type"`
	FailureReason string    `json:"failure_reason"`
	Attempts      int       `json:"attempts"`
	FailedAt      time.Time `json:"failed_at"`
}

// HistoryPoint is one stored score of a domain.
type HistoryPoint struct {
	Date       string  `json:"date"`
	PageType   string  `json:"page_type"`
	Viewport   string  `json:"viewport"`
	Score      float64 `json:"score"`
	Violations int     `json:"violations"`
	Passes     int     `json:"passes"`
}
