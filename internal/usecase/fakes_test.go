package usecase

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/user/a11y-auditor/internal/adapter/filestore"
	"github.com/user/a11y-auditor/internal/adapter/memory"
	"github.com/user/a11y-auditor/internal/entity"
	"github.com/user/a11y-auditor/internal/repository"
)

var (
	desktop = &entity.ViewportProfile{Name: "DESKTOP", Width: 1280, Height: 800, DeviceScaleFactor: 1}
	iphone  = &entity.ViewportProfile{Name: "IPHONE", Width: 375, Height: 812, DeviceScaleFactor: 3, IsMobile: true}
)

const testDate entity.RunDate = "2025-04-28"

type fakePage struct {
	mu sync.Mutex

	navigateErr   error
	screenshotErr error
	cookies       []entity.Cookie
	localStorage  map[string]string

	url          string
	setCookies   []entity.Cookie
	injected     map[string]string
	scrolls      []repository.ScrollPosition
	screenshots  []repository.ScreenshotOptions
	closeCount   int
	cookieReads  int
	storageReads int
}

func (p *fakePage) Navigate(ctx context.Context, url string, timeout time.Duration) error {
	p.url = url
	return p.navigateErr
}

func (p *fakePage) Evaluate(ctx context.Context, expression string, res any) error {
	if s, ok := res.(*string); ok {
		*s = `<html lang="de"><head><title>Shop</title></head><body><main><h1>Hi</h1></main></body></html>`
	}
	return nil
}

func (p *fakePage) Cookies(ctx context.Context) ([]entity.Cookie, error) {
	p.cookieReads++
	return p.cookies, nil
}

func (p *fakePage) SetCookies(ctx context.Context, cookies []entity.Cookie) error {
	p.setCookies = cookies
	return nil
}

func (p *fakePage) InjectLocalStorageBeforeLoad(ctx context.Context, items map[string]string) error {
	p.injected = items
	return nil
}

func (p *fakePage) ReadLocalStorage(ctx context.Context) (map[string]string, error) {
	p.storageReads++
	return p.localStorage, nil
}

func (p *fakePage) Screenshot(ctx context.Context, opts repository.ScreenshotOptions) ([]byte, error) {
	p.screenshots = append(p.screenshots, opts)
	if p.screenshotErr != nil {
		return nil, p.screenshotErr
	}
	return []byte("image-" + string(opts.Format)), nil
}

func (p *fakePage) ScrollTo(ctx context.Context, pos repository.ScrollPosition, step int, delay time.Duration) error {
	p.scrolls = append(p.scrolls, pos)
	return nil
}

func (p *fakePage) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closeCount++
	return nil
}

// fakeBrowser hands out pages built by newPage, or empty pages.
type fakeBrowser struct {
	newPage func() *fakePage
	err     error
	pages   []*fakePage
}

func (b *fakeBrowser) NewPage(ctx context.Context, vp *entity.ViewportProfile) (repository.Page, error) {
	if b.err != nil {
		return nil, b.err
	}
	p := &fakePage{}
	if b.newPage != nil {
		p = b.newPage()
	}
	b.pages = append(b.pages, p)
	return p, nil
}

// fakeRules returns one violation and one pass, or blocks until the deadline for URLs
// containing hang.
type fakeRules struct {
	hang  string
	calls int
}

func (r *fakeRules) Analyze(ctx context.Context, page repository.Page, tags []string) (*entity.RuleResults, error) {
	r.calls++
	p := page.(*fakePage)
	if r.hang != "" && strings.Contains(p.url, r.hang) {
		<-ctx.Done()
		return nil, errors.New("evaluation interrupted")
	}
	return &entity.RuleResults{
		Violations: []entity.RuleFinding{{ID: "color-contrast", Impact: entity.ImpactSerious}},
		Passes:     []entity.RuleFinding{{ID: "image-alt", Impact: entity.ImpactCritical}},
		URL:        p.url,
		Timestamp:  "2025-04-28T10:00:00.000Z",
	}, nil
}

type fakeConsent struct {
	accept       bool
	dismiss      bool
	consentCalls int
	countryCalls int
}

func (c *fakeConsent) AttemptConsent(ctx context.Context, page repository.Page) bool {
	c.consentCalls++
	return c.accept
}

func (c *fakeConsent) AttemptCountrySwitchDismissal(ctx context.Context, page repository.Page) bool {
	c.countryCalls++
	return c.dismiss
}

type fakeFailures struct {
	recorded []*entity.FailedUnit
	deleted  []string
}

func (f *fakeFailures) Record(ctx context.Context, u *entity.FailedUnit) error {
	f.recorded = append(f.recorded, u)
	return nil
}

func (f *fakeFailures) ListByDate(ctx context.Context, date entity.RunDate) ([]*entity.FailedUnit, error) {
	return f.recorded, nil
}

func (f *fakeFailures) Delete(ctx context.Context, date entity.RunDate, domain, pageType, viewport string) error {
	f.deleted = append(f.deleted, domain+"/"+pageType+"/"+viewport)
	return nil
}

type auditFixture struct {
	uc        *AuditUseCase
	browser   *fakeBrowser
	rules     *fakeRules
	consent   *fakeConsent
	failures  *fakeFailures
	sessions  *filestore.SessionRepoImpl
	reports   *filestore.ReportRepoImpl
	artifacts *filestore.ArtifactRepoImpl
}

func newAuditFixture(t *testing.T) *auditFixture {
	t.Helper()
	root := t.TempDir()
	f := &auditFixture{
		browser:   &fakeBrowser{},
		rules:     &fakeRules{},
		consent:   &fakeConsent{},
		failures:  &fakeFailures{},
		sessions:  filestore.NewSessionRepo(root+"/cookies", entity.DefaultCookieFilter(), zap.NewNop()),
		reports:   filestore.NewReportRepo(root + "/reports"),
		artifacts: filestore.NewArtifactRepo(root + "/reports"),
	}
	f.uc = NewAuditUseCase(f.browser, f.rules, f.consent, f.sessions, f.reports, f.artifacts, f.failures,
		memory.NewDomainLockRepo(),
		AuditConfig{
			NavigationTimeout: time.Second,
			AnalysisTimeout:   50 * time.Millisecond,
			CookieSettle:      time.Second,
			ScrollStep:        1000,
			ThumbnailWidth:    320,
			Tags:              []string{"EN-301-549"},
			Resume:            true,
		},
		zap.NewNop(),
	)
	f.uc.sleep = func(ctx context.Context, d time.Duration) error { return ctx.Err() }
	f.uc.now = func() time.Time { return time.Date(2025, 4, 28, 10, 0, 0, 0, time.UTC) }
	return f
}

func newMatrix(t *testing.T, entries ...entity.SiteMatrixEntry) *entity.SiteMatrix {
	t.Helper()
	m, err := entity.NewSiteMatrix(entries)
	require.NoError(t, err)
	return m
}
