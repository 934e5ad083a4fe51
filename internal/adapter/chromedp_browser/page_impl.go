package chromedp_browser

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"

	"github.com/user/a11y-auditor/internal/entity"
	"github.com/user/a11y-auditor/internal/repository"
	"github.com/user/a11y-auditor/pkg/utils"
)

const maxScrollSteps = 200

const readLocalStorageScript = `(function(){var o={};for(var i=0;i<localStorage.length;i++){var k=localStorage.key(i);o[k]=localStorage.getItem(k);}return o;})()`

// injectLocalStorageScript runs before any page script of every new document.
const injectLocalStorageScript = `(function(items){try{for(var k in items){window.localStorage.setItem(k,items[k]);}}catch(e){}})(%s)`

const scrollStepScript = `(function(step){var before=window.scrollY;window.scrollBy(0,step);var doc=document.scrollingElement||document.documentElement;return window.scrollY===before||window.innerHeight+window.scrollY>=doc.scrollHeight-1;})(%d)`

const documentSizeScript = `(function(){var d=document.documentElement,b=document.body||d;return {width:Math.max(d.scrollWidth,b.scrollWidth),height:Math.max(d.scrollHeight,b.scrollHeight)};})()`

const viewportSizeScript = `({width:window.innerWidth,height:window.innerHeight})`

type size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

type chromedpPage struct {
	tabCtx    context.Context
	cancel    func()
	closeOnce sync.Once
}

func newChromedpPage(tabCtx context.Context, cancel func()) *chromedpPage {
	return &chromedpPage{tabCtx: tabCtx, cancel: cancel}
}

// run executes actions on the tab, bounded by ctx. Cancelling ctx aborts the wait only;
// the tab stays open until Close.
func (p *chromedpPage) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithCancel(p.tabCtx)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	err := chromedp.Run(runCtx, actions...)
	if err != nil && ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

func (p *chromedpPage) Navigate(ctx context.Context, url string, timeout time.Duration) error {
	navCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	err := p.run(navCtx, chromedp.Navigate(url))
	switch {
	case err == nil:
		return nil
	case errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil:
		return fmt.Errorf("%s after %s: %w", url, timeout, repository.ErrNavigationTimeout)
	case ctx.Err() != nil:
		return ctx.Err()
	default:
		return fmt.Errorf("%s: %w: %v", url, repository.ErrNavigationFailed, err)
	}
}

func (p *chromedpPage) Evaluate(ctx context.Context, expression string, res any) error {
	return p.run(ctx, chromedp.Evaluate(expression, res, func(ep *runtime.EvaluateParams) *runtime.EvaluateParams {
		return ep.WithAwaitPromise(true)
	}))
}

func (p *chromedpPage) Cookies(ctx context.Context) ([]entity.Cookie, error) {
	var raw []*network.Cookie
	err := p.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		raw, err = network.GetCookies().Do(ctx)
		return err
	}))
	if err != nil {
		return nil, fmt.Errorf("failed to read cookies: %w", err)
	}
	cookies := make([]entity.Cookie, 0, len(raw))
	for _, c := range raw {
		cookies = append(cookies, entity.Cookie{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Expires:  c.Expires,
			HTTPOnly: c.HTTPOnly,
			Secure:   c.Secure,
			Session:  c.Session,
			SameSite: c.SameSite.String(),
		})
	}
	return cookies, nil
}

func (p *chromedpPage) SetCookies(ctx context.Context, cookies []entity.Cookie) error {
	if len(cookies) == 0 {
		return nil
	}
	params := make([]*network.CookieParam, 0, len(cookies))
	for _, c := range cookies {
		cp := &network.CookieParam{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Secure:   c.Secure,
			HTTPOnly: c.HTTPOnly,
		}
		if !c.IsSession() {
			sec, frac := math.Modf(c.Expires)
			expires := cdp.TimeSinceEpoch(time.Unix(int64(sec), int64(frac*1e9)))
			cp.Expires = &expires
		}
		switch s := network.CookieSameSite(c.SameSite); s {
		case network.CookieSameSiteStrict, network.CookieSameSiteLax, network.CookieSameSiteNone:
			cp.SameSite = s
		}
		params = append(params, cp)
	}
	if err := p.run(ctx, network.SetCookies(params)); err != nil {
		return fmt.Errorf("failed to set %d cookies: %w", len(params), err)
	}
	return nil
}

func (p *chromedpPage) InjectLocalStorageBeforeLoad(ctx context.Context, items map[string]string) error {
	if len(items) == 0 {
		return nil
	}
	data, err := json.Marshal(items)
	if err != nil {
		return err
	}
	script := fmt.Sprintf(injectLocalStorageScript, data)
	err = p.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		_, err := page.AddScriptToEvaluateOnNewDocument(script).Do(ctx)
		return err
	}))
	if err != nil {
		return fmt.Errorf("failed to register local storage script: %w", err)
	}
	return nil
}

func (p *chromedpPage) ReadLocalStorage(ctx context.Context) (map[string]string, error) {
	items := map[string]string{}
	if err := p.Evaluate(ctx, readLocalStorageScript, &items); err != nil {
		return nil, fmt.Errorf("failed to read local storage: %w", err)
	}
	return items, nil
}

func (p *chromedpPage) Screenshot(ctx context.Context, opts repository.ScreenshotOptions) ([]byte, error) {
	var clip page.Viewport
	clip.Scale = 1
	if opts.FullPage {
		var s size
		if err := p.Evaluate(ctx, documentSizeScript, &s); err != nil {
			return nil, fmt.Errorf("failed to measure document: %w", err)
		}
		clip.Width, clip.Height = s.Width, s.Height
	} else {
		var s size
		if err := p.Evaluate(ctx, viewportSizeScript, &s); err != nil {
			return nil, fmt.Errorf("failed to measure viewport: %w", err)
		}
		clip.Width, clip.Height = s.Width, s.Height
		if opts.Width > 0 && s.Width > 0 {
			clip.Scale = float64(opts.Width) / s.Width
		}
	}
	if clip.Width <= 0 || clip.Height <= 0 {
		return nil, fmt.Errorf("nothing to capture: %vx%v", clip.Width, clip.Height)
	}

	format := page.CaptureScreenshotFormatPng
	switch opts.Format {
	case repository.FormatJPEG:
		format = page.CaptureScreenshotFormatJpeg
	case repository.FormatWebP:
		format = page.CaptureScreenshotFormatWebp
	}
	params := page.CaptureScreenshot().
		WithFormat(format).
		WithClip(&clip).
		WithCaptureBeyondViewport(opts.FullPage)
	if format != page.CaptureScreenshotFormatPng && opts.Quality > 0 {
		params = params.WithQuality(int64(opts.Quality))
	}

	var buf []byte
	err := p.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		buf, err = params.Do(ctx)
		return err
	}))
	if err != nil {
		return nil, fmt.Errorf("failed to capture screenshot: %w", err)
	}
	return buf, nil
}

func (p *chromedpPage) ScrollTo(ctx context.Context, pos repository.ScrollPosition, step int, delay time.Duration) error {
	if pos == repository.ScrollTop {
		return p.Evaluate(ctx, `window.scrollTo(0,0)`, nil)
	}
	if step <= 0 {
		step = 1000
	}
	for i := 0; i < maxScrollSteps; i++ {
		var done bool
		if err := p.Evaluate(ctx, fmt.Sprintf(scrollStepScript, step), &done); err != nil {
			return fmt.Errorf("failed to scroll: %w", err)
		}
		if done {
			return nil
		}
		if err := utils.Sleep(ctx, delay); err != nil {
			return err
		}
	}
	return nil
}

func (p *chromedpPage) Close() error {
	p.closeOnce.Do(p.cancel)
	return nil
}
