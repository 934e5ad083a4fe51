package entity

import (
	"fmt"
	"time"
)

// UnitState is the lifecycle position of one audit unit.
type UnitState string

const (
	UnitPending         UnitState = "pending"
	UnitSessionRestored UnitState = "session_restored"
	UnitNavigated       UnitState = "navigated"
	UnitConsentResolved UnitState = "consent_resolved"
	UnitStabilized      UnitState = "stabilized"
	UnitAnalyzed        UnitState = "analyzed"
	UnitPersisted       UnitState = "persisted"
	UnitFailed          UnitState = "failed"
	UnitSkipped         UnitState = "skipped"
)

// AuditUnit is one (domain, page type, viewport) combination of a run.
type AuditUnit struct {
	RunDate  RunDate
	Domain   string
	PageType string
	URL      string
	Viewport *ViewportProfile
}

func (u AuditUnit) String() string {
	return fmt.Sprintf("%s %s %s %s", u.RunDate, u.Domain, u.PageType, u.Viewport.Name)
}

// FailedUnit records a unit that ended in the failed state.
type FailedUnit struct {
	ID            int64
	RunDate       RunDate
	Domain        string
	PageType      string
	Viewport      string
	URL           string
	LastState     UnitState
	ErrorType     string
	FailureReason string
	Attempts      int
	FailedAt      time.Time
}

// RunSummary counts unit outcomes of one run.
type RunSummary struct {
	RunDate   RunDate
	Persisted int
	Skipped   int
	Failed    int
	Duration  time.Duration
}

// Total is the number of units visited.
func (s RunSummary) Total() int {
	return s.Persisted + s.Skipped + s.Failed
}
