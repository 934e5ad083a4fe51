package chromedp_browser

import (
	"context"
	"fmt"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/user/a11y-auditor/internal/entity"
	"github.com/user/a11y-auditor/internal/proxy"
	"github.com/user/a11y-auditor/internal/repository"
)

// Config controls browser launches.
type Config struct {
	Headless bool
	ExecPath string
}

// ChromedpBrowser launches one browser process per page so no state leaks between units.
type ChromedpBrowser struct {
	cfg          Config
	proxyManager *proxy.Manager
	logger       *zap.Logger
}

// NewChromedpBrowser creates a new browser implementation using chromedp.
func NewChromedpBrowser(cfg Config, pm *proxy.Manager, logger *zap.Logger) *ChromedpBrowser {
	return &ChromedpBrowser{cfg: cfg, proxyManager: pm, logger: logger}
}

// NewPage starts a fresh browser with the viewport applied.
func (b *ChromedpBrowser) NewPage(ctx context.Context, viewport *entity.ViewportProfile) (repository.Page, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", b.cfg.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.UserAgent(b.proxyManager.GetUserAgent()),
		chromedp.WindowSize(int(viewport.Width), int(viewport.Height)),
	)
	if p := b.proxyManager.GetProxy(); p != "" {
		opts = append(opts, chromedp.ProxyServer(p))
	}
	if b.cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(b.cfg.ExecPath))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts...)
	sugar := b.logger.Sugar()
	tabCtx, tabCancel := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(sugar.Debugf),
		chromedp.WithErrorf(sugar.Debugf),
	)

	// The first Run starts the browser; it must use the tab context itself so later
	// deadline-bound runs do not own the browser lifetime.
	if err := chromedp.Run(tabCtx, emulate(viewport)); err != nil {
		tabCancel()
		allocCancel()
		return nil, fmt.Errorf("%w: %v", repository.ErrBrowserUnavailable, err)
	}

	b.logger.Debug("Browser page opened",
		zap.String("viewport", viewport.Name),
	)
	return newChromedpPage(tabCtx, func() {
		tabCancel()
		allocCancel()
	}), nil
}

func emulate(vp *entity.ViewportProfile) chromedp.Action {
	opts := []chromedp.EmulateViewportOption{chromedp.EmulateScale(vp.Scale())}
	if vp.IsMobile {
		opts = append(opts, chromedp.EmulateMobile)
	}
	if vp.HasTouch {
		opts = append(opts, chromedp.EmulateTouch)
	}
	if vp.IsLandscape {
		opts = append(opts, chromedp.EmulateLandscape)
	} else {
		opts = append(opts, chromedp.EmulatePortrait)
	}
	return chromedp.EmulateViewport(vp.Width, vp.Height, opts...)
}
