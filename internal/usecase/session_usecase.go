package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/user/a11y-auditor/internal/entity"
	"github.com/user/a11y-auditor/internal/repository"
	"github.com/user/a11y-auditor/pkg/utils"
)

// SessionUseCase captures and inspects stored session state outside of an audit run.
type SessionUseCase struct {
	browser           repository.BrowserRepository
	sessions          repository.SessionRepository
	navigationTimeout time.Duration
	logger            *zap.Logger

	sleep func(ctx context.Context, d time.Duration) error
}

// NewSessionUseCase creates a new instance of the session use case.
func NewSessionUseCase(browser repository.BrowserRepository, sessions repository.SessionRepository, navigationTimeout time.Duration, logger *zap.Logger) *SessionUseCase {
	return &SessionUseCase{
		browser:           browser,
		sessions:          sessions,
		navigationTimeout: navigationTimeout,
		logger:            logger,
		sleep:             utils.Sleep,
	}
}

// Capture opens rawURL with any stored state, gives a person wait to dismiss dialogs by hand,
// then stores the resulting cookies and local storage. Cancelling ctx ends the wait early and
// still saves.
func (uc *SessionUseCase) Capture(ctx context.Context, rawURL string, vp *entity.ViewportProfile, wait time.Duration) (entity.SessionState, error) {
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return entity.SessionState{}, fmt.Errorf("invalid url %q", rawURL)
	}
	host := u.Hostname()
	logger := uc.logger.With(zap.String("host", host))

	page, err := uc.browser.NewPage(ctx, vp)
	if err != nil {
		return entity.SessionState{}, err
	}
	defer func() {
		if err := page.Close(); err != nil {
			logger.Warn("Failed to close page", zap.Error(err))
		}
	}()

	applySession(ctx, logger, page, uc.sessions.Load(ctx, host))

	if err := page.Navigate(ctx, rawURL, uc.navigationTimeout); err != nil {
		if !errors.Is(err, repository.ErrNavigationTimeout) {
			return entity.SessionState{}, err
		}
		logger.Warn("Navigation timed out, continuing", zap.Error(err))
	}

	logger.Info("Waiting for manual interaction", zap.Duration("wait", wait))
	if err := uc.sleep(ctx, wait); err != nil {
		logger.Info("Wait interrupted, saving now")
	}

	return saveSession(context.WithoutCancel(ctx), logger, uc.sessions, page, host)
}

// Show returns the filtered state stored for a domain.
func (uc *SessionUseCase) Show(ctx context.Context, domain string) entity.SessionState {
	return uc.sessions.Load(ctx, domain)
}

// applySession restores state into a page before navigation. It reports whether anything was applied.
func applySession(ctx context.Context, logger *zap.Logger, page repository.Page, state entity.SessionState) bool {
	if state.IsEmpty() {
		return false
	}

	applied := false
	if len(state.Cookies) > 0 {
		if err := page.SetCookies(ctx, state.Cookies); err != nil {
			logger.Warn("Failed to restore cookies", zap.Error(err))
		} else {
			applied = true
		}
	}
	if len(state.LocalStorage) > 0 {
		if err := page.InjectLocalStorageBeforeLoad(ctx, state.LocalStorage); err != nil {
			logger.Warn("Failed to restore local storage", zap.Error(err))
		} else {
			applied = true
		}
	}
	return applied
}

// saveSession reads the live cookies and local storage of a page and overwrites the stored state.
// Unreadable local storage is saved as empty.
func saveSession(ctx context.Context, logger *zap.Logger, sessions repository.SessionRepository, page repository.Page, host string) (entity.SessionState, error) {
	cookies, err := page.Cookies(ctx)
	if err != nil {
		return entity.SessionState{}, fmt.Errorf("failed to read cookies: %w", err)
	}
	items, err := page.ReadLocalStorage(ctx)
	if err != nil {
		logger.Warn("Failed to read local storage", zap.Error(err))
		items = nil
	}
	if err := sessions.Save(ctx, host, cookies, items); err != nil {
		return entity.SessionState{}, err
	}
	return entity.SessionState{Cookies: cookies, LocalStorage: items}, nil
}
