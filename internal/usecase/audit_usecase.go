package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/user/a11y-auditor/internal/entity"
	"github.com/user/a11y-auditor/internal/repository"
	"github.com/user/a11y-auditor/pkg/metrics"
	"github.com/user/a11y-auditor/pkg/utils"
)

// ConsentAutomation dismisses cookie and country dialogs on a live page.
type ConsentAutomation interface {
	AttemptConsent(ctx context.Context, page repository.Page) bool
	AttemptCountrySwitchDismissal(ctx context.Context, page repository.Page) bool
}

// AuditConfig holds the per-unit timeouts and delays.
type AuditConfig struct {
	NavigationTimeout time.Duration
	AnalysisTimeout   time.Duration
	CookieSettle      time.Duration
	ScrollStep        int
	ScrollDelay       time.Duration
	ScrollSettle      time.Duration
	ThumbnailWidth    int
	Tags              []string
	Resume            bool
}

const (
	screenshotQuality = 80
	thumbnailQuality  = 70
)

// Auditor runs the audit loop over a site matrix.
type Auditor interface {
	Run(ctx context.Context, date entity.RunDate, matrix *entity.SiteMatrix, viewports []*entity.ViewportProfile) (*entity.RunSummary, error)
}

// AuditUseCase is the audit orchestrator. Units run strictly one after another.
type AuditUseCase struct {
	browser   repository.BrowserRepository
	rules     repository.RuleEngineRepository
	consent   ConsentAutomation
	sessions  repository.SessionRepository
	reports   repository.ReportRepository
	artifacts repository.ArtifactRepository
	failures  repository.FailedUnitRepository
	locker    repository.DomainLockRepository
	cfg       AuditConfig
	logger    *zap.Logger

	sleep func(ctx context.Context, d time.Duration) error
	now   func() time.Time
}

// NewAuditUseCase creates a new instance of the audit use case. failures may be nil.
func NewAuditUseCase(
	browser repository.BrowserRepository,
	rules repository.RuleEngineRepository,
	consent ConsentAutomation,
	sessions repository.SessionRepository,
	reports repository.ReportRepository,
	artifacts repository.ArtifactRepository,
	failures repository.FailedUnitRepository,
	locker repository.DomainLockRepository,
	cfg AuditConfig,
	logger *zap.Logger,
) *AuditUseCase {
	return &AuditUseCase{
		browser:   browser,
		rules:     rules,
		consent:   consent,
		sessions:  sessions,
		reports:   reports,
		artifacts: artifacts,
		failures:  failures,
		locker:    locker,
		cfg:       cfg,
		logger:    logger,
		sleep:     utils.Sleep,
		now:       time.Now,
	}
}

// Run audits every (domain, page type, viewport) unit of the matrix in domain, page type,
// viewport order. A failed unit never stops the run; only storage errors and cancellation do.
func (uc *AuditUseCase) Run(ctx context.Context, date entity.RunDate, matrix *entity.SiteMatrix, viewports []*entity.ViewportProfile) (*entity.RunSummary, error) {
	start := uc.now()
	summary := &entity.RunSummary{RunDate: date}
	logger := uc.logger.With(zap.String("run_id", uuid.NewString()), zap.String("run_date", date.String()))

	logger.Info("Audit run started",
		zap.Int("domains", len(matrix.Domains())),
		zap.Int("pages", matrix.Len()),
		zap.Int("viewports", len(viewports)),
	)

	for _, domain := range matrix.Domains() {
		if err := uc.runDomain(ctx, logger, date, domain, matrix, viewports, summary); err != nil {
			summary.Duration = uc.now().Sub(start)
			logger.Error("Audit run aborted", zap.String("domain", domain), zap.Error(err))
			return summary, err
		}
	}

	summary.Duration = uc.now().Sub(start)
	logger.Info("Audit run finished",
		zap.Int("persisted", summary.Persisted),
		zap.Int("skipped", summary.Skipped),
		zap.Int("failed", summary.Failed),
		zap.Duration("duration", summary.Duration),
	)
	return summary, nil
}

func (uc *AuditUseCase) runDomain(ctx context.Context, logger *zap.Logger, date entity.RunDate, domain string, matrix *entity.SiteMatrix, viewports []*entity.ViewportProfile, summary *entity.RunSummary) error {
	logger = logger.With(zap.String("domain", domain))

	release, err := uc.locker.Acquire(ctx, domain)
	if err != nil {
		if errors.Is(err, repository.ErrLockHeld) {
			logger.Warn("Domain is being audited by another run, skipping it")
			n := 0
			for _, pageType := range matrix.PageTypes() {
				if _, ok := matrix.URL(pageType, domain); ok {
					n += len(viewports)
				}
			}
			summary.Skipped += n
			metrics.AuditUnitsTotal.WithLabelValues(string(entity.UnitSkipped), "locked").Add(float64(n))
			return nil
		}
		return fmt.Errorf("failed to lock domain %s: %w", domain, err)
	}
	defer release()

	report, err := uc.reports.Load(ctx, date, domain)
	if errors.Is(err, repository.ErrReportNotFound) {
		report = entity.NewDomainReport()
	} else if err != nil {
		// Overwriting an unreadable report would lose its units.
		return fmt.Errorf("failed to load report for %s: %w", domain, err)
	}

	for _, pageType := range matrix.PageTypes() {
		pageURL, ok := matrix.URL(pageType, domain)
		if !ok {
			continue
		}
		for _, vp := range viewports {
			if err := ctx.Err(); err != nil {
				return err
			}
			unit := entity.AuditUnit{RunDate: date, Domain: domain, PageType: pageType, URL: pageURL, Viewport: vp}
			unitLogger := logger.With(zap.String("page_type", pageType), zap.String("viewport", vp.Name))

			if uc.cfg.Resume && report.Has(pageType, vp.Name) {
				unitLogger.Info("Unit already audited, skipping")
				summary.Skipped++
				metrics.AuditUnitsTotal.WithLabelValues(string(entity.UnitSkipped), "").Inc()
				continue
			}

			result, state, err := uc.processUnit(ctx, unitLogger, unit)
			if err != nil {
				summary.Failed++
				uc.handleUnitFailure(ctx, unitLogger, unit, state, err)
				if ctx.Err() != nil {
					return ctx.Err()
				}
				continue
			}

			if err := report.Set(pageType, vp.Name, result); err != nil {
				return err
			}
			if err := uc.reports.Save(ctx, date, domain, report); err != nil {
				return fmt.Errorf("failed to save report for %s: %w", domain, err)
			}
			summary.Persisted++
			uc.handleUnitSuccess(ctx, unitLogger, unit)
		}
	}
	return nil
}

// processUnit drives one unit through its states. The returned state is the last one reached.
func (uc *AuditUseCase) processUnit(ctx context.Context, logger *zap.Logger, unit entity.AuditUnit) (*entity.AuditResult, entity.UnitState, error) {
	state := entity.UnitPending
	advance := func(next entity.UnitState) {
		logger.Debug("Unit state changed", zap.String("from", string(state)), zap.String("to", string(next)))
		state = next
	}

	metrics.UnitsInFlight.Inc()
	defer metrics.UnitsInFlight.Dec()
	startTime := time.Now()
	defer func() {
		metrics.AuditUnitDuration.WithLabelValues(unit.Domain, unit.Viewport.Name).Observe(time.Since(startTime).Seconds())
	}()

	page, err := uc.browser.NewPage(ctx, unit.Viewport)
	if err != nil {
		return nil, state, err
	}
	defer func() {
		if err := page.Close(); err != nil {
			logger.Warn("Failed to close page", zap.Error(err))
		}
	}()

	host := sessionHost(unit)
	restored := uc.restoreSession(ctx, logger, page, host)
	advance(entity.UnitSessionRestored)

	if err := page.Navigate(ctx, unit.URL, uc.cfg.NavigationTimeout); err != nil {
		if !errors.Is(err, repository.ErrNavigationTimeout) {
			return nil, state, err
		}
		logger.Warn("Navigation timed out, continuing with partial page", zap.Error(err))
	}
	advance(entity.UnitNavigated)

	if !restored {
		if uc.consent.AttemptConsent(ctx, page) {
			if err := uc.sleep(ctx, uc.cfg.CookieSettle); err != nil {
				return nil, state, err
			}
			uc.persistSession(ctx, logger, page, host)
		}
	}
	if uc.consent.AttemptCountrySwitchDismissal(ctx, page) {
		if err := uc.sleep(ctx, uc.cfg.CookieSettle); err != nil {
			return nil, state, err
		}
		uc.persistSession(ctx, logger, page, host)
	}
	advance(entity.UnitConsentResolved)

	if err := uc.stabilize(ctx, logger, page); err != nil {
		return nil, state, err
	}
	advance(entity.UnitStabilized)

	analyzeCtx, cancel := context.WithTimeout(ctx, uc.cfg.AnalysisTimeout)
	results, err := uc.rules.Analyze(analyzeCtx, page, uc.cfg.Tags)
	timedOut := errors.Is(analyzeCtx.Err(), context.DeadlineExceeded)
	cancel()
	if err != nil {
		if timedOut && !errors.Is(err, repository.ErrAnalysisTimeout) {
			err = fmt.Errorf("%w: %v", repository.ErrAnalysisTimeout, err)
		}
		return nil, state, err
	}
	advance(entity.UnitAnalyzed)

	result := &entity.AuditResult{RuleResults: *results}
	if result.URL == "" {
		result.URL = unit.URL
	}
	if result.Timestamp == "" {
		result.Timestamp = uc.now().UTC().Format(time.RFC3339Nano)
	}
	result.Page = uc.pageInfo(ctx, logger, page)
	result.Screenshots = uc.captureScreenshots(ctx, logger, page, unit)

	logger.Info("Unit analyzed",
		zap.Int("violations", len(result.Violations)),
		zap.Int("passes", len(result.Passes)),
		zap.Bool("session_restored", restored),
	)
	return result, state, nil
}

// sessionHost is the host the unit really visits; cookies are stored per visited host.
func sessionHost(unit entity.AuditUnit) string {
	u, err := url.Parse(unit.URL)
	if err != nil || u.Hostname() == "" {
		return unit.Domain
	}
	return u.Hostname()
}

// restoreSession applies stored cookies and local storage before navigation. It reports whether
// any state was applied.
func (uc *AuditUseCase) restoreSession(ctx context.Context, logger *zap.Logger, page repository.Page, host string) bool {
	return applySession(ctx, logger, page, uc.sessions.Load(ctx, host))
}

// persistSession snapshots cookies and local storage and overwrites the stored state.
func (uc *AuditUseCase) persistSession(ctx context.Context, logger *zap.Logger, page repository.Page, host string) {
	state, err := saveSession(ctx, logger, uc.sessions, page, host)
	if err != nil {
		logger.Warn("Failed to save session state", zap.Error(err))
		return
	}
	logger.Debug("Session state saved", zap.Int("cookies", len(state.Cookies)), zap.Int("local_storage_items", len(state.LocalStorage)))
}

// stabilize scrolls to the bottom and back so lazy content renders, then settles. Scroll
// failures are tolerated; only cancellation is returned.
func (uc *AuditUseCase) stabilize(ctx context.Context, logger *zap.Logger, page repository.Page) error {
	if err := page.ScrollTo(ctx, repository.ScrollBottom, uc.cfg.ScrollStep, uc.cfg.ScrollDelay); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		logger.Warn("Failed to scroll to bottom", zap.Error(err))
	}
	if err := page.ScrollTo(ctx, repository.ScrollTop, uc.cfg.ScrollStep, uc.cfg.ScrollDelay); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		logger.Warn("Failed to scroll to top", zap.Error(err))
	}
	return uc.sleep(ctx, uc.cfg.ScrollSettle)
}

func (uc *AuditUseCase) pageInfo(ctx context.Context, logger *zap.Logger, page repository.Page) *entity.PageInfo {
	var html string
	if err := page.Evaluate(ctx, outerHTMLScript, &html); err != nil {
		logger.Warn("Failed to read document", zap.Error(err))
		return nil
	}
	info, err := ExtractPageInfo(html)
	if err != nil {
		logger.Warn("Failed to parse document", zap.Error(err))
		return nil
	}
	return info
}

// captureScreenshots stores a full-page image and a small viewport thumbnail. Failures only
// drop the affected image.
func (uc *AuditUseCase) captureScreenshots(ctx context.Context, logger *zap.Logger, page repository.Page, unit entity.AuditUnit) []string {
	shots := []struct {
		kind repository.ArtifactKind
		opts repository.ScreenshotOptions
	}{
		{repository.ArtifactScreenshot, repository.ScreenshotOptions{FullPage: true, Format: repository.FormatWebP, Quality: screenshotQuality}},
		{repository.ArtifactThumbnail, repository.ScreenshotOptions{Format: repository.FormatJPEG, Quality: thumbnailQuality, Width: uc.cfg.ThumbnailWidth}},
	}

	var paths []string
	for _, s := range shots {
		data, err := page.Screenshot(ctx, s.opts)
		if err != nil {
			logger.Warn("Screenshot failed", zap.String("kind", string(s.kind)), zap.Error(err))
			continue
		}
		rel, err := uc.artifacts.SaveScreenshot(ctx, unit.RunDate, unit.Domain, unit.PageType, unit.Viewport.Name, s.kind, data)
		if err != nil {
			logger.Warn("Failed to store screenshot", zap.String("kind", string(s.kind)), zap.Error(err))
			continue
		}
		paths = append(paths, rel)
	}
	return paths
}

func (uc *AuditUseCase) handleUnitSuccess(ctx context.Context, logger *zap.Logger, unit entity.AuditUnit) {
	metrics.AuditUnitsTotal.WithLabelValues(string(entity.UnitPersisted), "").Inc()
	logger.Info("Unit persisted")

	if uc.failures == nil {
		return
	}
	// A unit that failed in an earlier attempt of this run date is no longer failed.
	if err := uc.failures.Delete(ctx, unit.RunDate, unit.Domain, unit.PageType, unit.Viewport.Name); err != nil {
		logger.Warn("Failed to clear failed unit record", zap.Error(err))
	}
}

func (uc *AuditUseCase) handleUnitFailure(ctx context.Context, logger *zap.Logger, unit entity.AuditUnit, lastState entity.UnitState, unitErr error) {
	errorType := classifyUnitError(unitErr)
	metrics.AuditUnitsTotal.WithLabelValues(string(entity.UnitFailed), errorType).Inc()
	logger.Warn("Unit failed",
		zap.String("last_state", string(lastState)),
		zap.String("error_type", errorType),
		zap.Error(unitErr),
	)

	if uc.failures == nil {
		return
	}
	failed := &entity.FailedUnit{
		RunDate:       unit.RunDate,
		Domain:        unit.Domain,
		PageType:      unit.PageType,
		Viewport:      unit.Viewport.Name,
		URL:           unit.URL,
		LastState:     lastState,
		ErrorType:     errorType,
		FailureReason: unitErr.Error(),
		FailedAt:      uc.now(),
	}
	// The run context may be cancelled; the ledger entry is still wanted.
	if err := uc.failures.Record(context.WithoutCancel(ctx), failed); err != nil {
		logger.Warn("Failed to record failed unit", zap.Error(err))
	}
}

func classifyUnitError(err error) string {
	switch {
	case errors.Is(err, repository.ErrAnalysisTimeout):
		return "analysis_timeout"
	case errors.Is(err, repository.ErrAnalysisFailed):
		return "analysis"
	case errors.Is(err, repository.ErrNavigationFailed):
		return "navigation"
	case errors.Is(err, repository.ErrBrowserUnavailable):
		return "browser"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "unknown"
	}
}
