package repository

import "errors"

var (
	// ErrNavigationTimeout is returned when navigation did not finish in time. The page may
	// still hold a usable partial DOM.
	ErrNavigationTimeout = errors.New("navigation timed out")
	// ErrNavigationFailed is returned when the browser could not load the page at all.
	ErrNavigationFailed = errors.New("navigation failed")
	// ErrAnalysisTimeout is returned when the rule engine did not finish in time.
	ErrAnalysisTimeout = errors.New("rule engine analysis timed out")
	// ErrAnalysisFailed is returned when the rule engine raised an error.
	ErrAnalysisFailed = errors.New("rule engine analysis failed")
	// ErrBrowserUnavailable is returned when no browsing context could be opened.
	ErrBrowserUnavailable = errors.New("browser unavailable")
	// ErrReportNotFound is returned when no report exists for a domain and date.
	ErrReportNotFound = errors.New("report not found")
	// ErrLockHeld is returned when another process is auditing the same domain.
	ErrLockHeld = errors.New("domain lock held by another run")
)
