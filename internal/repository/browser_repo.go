package repository

import (
	"context"
	"time"

	"github.com/user/a11y-auditor/internal/entity"
)

// ScrollPosition is a scroll target.
type ScrollPosition string

const (
	ScrollTop    ScrollPosition = "top"
	ScrollBottom ScrollPosition = "bottom"
)

// ImageFormat is a screenshot encoding.
type ImageFormat string

const (
	FormatPNG  ImageFormat = "png"
	FormatJPEG ImageFormat = "jpeg"
	FormatWebP ImageFormat = "webp"
)

// ScreenshotOptions controls a capture.
type ScreenshotOptions struct {
	FullPage bool
	Format   ImageFormat
	Quality  int
	// Width scales the capture of the viewport down to this many CSS pixels. Zero keeps the native size.
	Width int
}

// Page is one isolated, controllable browsing context.
type Page interface {
	// Navigate loads url. A timeout yields ErrNavigationTimeout; the page stays usable.
	Navigate(ctx context.Context, url string, timeout time.Duration) error
	// Evaluate runs a script expression in the page, awaiting promises, and decodes the value into res.
	Evaluate(ctx context.Context, expression string, res any) error
	Cookies(ctx context.Context) ([]entity.Cookie, error)
	SetCookies(ctx context.Context, cookies []entity.Cookie) error
	// InjectLocalStorageBeforeLoad makes items available before any page script runs on the next navigation.
	InjectLocalStorageBeforeLoad(ctx context.Context, items map[string]string) error
	ReadLocalStorage(ctx context.Context) (map[string]string, error)
	Screenshot(ctx context.Context, opts ScreenshotOptions) ([]byte, error)
	ScrollTo(ctx context.Context, pos ScrollPosition, step int, delay time.Duration) error
	// Close tears the browsing context down. It is safe to call more than once.
	Close() error
}

// BrowserRepository opens isolated pages.
type BrowserRepository interface {
	NewPage(ctx context.Context, viewport *entity.ViewportProfile) (Page, error)
}

// RuleEngineRepository runs accessibility checks against the current state of a page.
type RuleEngineRepository interface {
	Analyze(ctx context.Context, page Page, tags []string) (*entity.RuleResults, error)
}
