package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/user/a11y-auditor/internal/adapter/filestore"
	"github.com/user/a11y-auditor/internal/entity"
	"github.com/user/a11y-auditor/internal/repository"
)

func newSessionFixture(t *testing.T, browser *fakeBrowser) (*SessionUseCase, *filestore.SessionRepoImpl) {
	t.Helper()
	sessions := filestore.NewSessionRepo(t.TempDir(), entity.DefaultCookieFilter(), zap.NewNop())
	uc := NewSessionUseCase(browser, sessions, time.Second, zap.NewNop())
	uc.sleep = func(ctx context.Context, d time.Duration) error { return nil }
	return uc, sessions
}

func TestCapture_SavesLiveState(t *testing.T) {
	browser := &fakeBrowser{newPage: func() *fakePage {
		return &fakePage{
			navigateErr:  repository.ErrNavigationTimeout,
			cookies:      []entity.Cookie{{Name: "consent", Value: "yes", Domain: ".shop.example", Path: "/"}},
			localStorage: map[string]string{"cmp": "accepted"},
		}
	}}
	uc, sessions := newSessionFixture(t, browser)
	ctx := context.Background()

	state, err := uc.Capture(ctx, "https://www.shop.example/start", desktop, time.Minute)
	require.NoError(t, err)
	assert.Len(t, state.Cookies, 1)

	stored := uc.Show(ctx, "www.shop.example")
	require.Len(t, stored.Cookies, 1)
	assert.Equal(t, "consent", stored.Cookies[0].Name)
	assert.Equal(t, map[string]string{"cmp": "accepted"}, stored.LocalStorage)
	assert.Equal(t, stored, sessions.Load(ctx, "shop.example"))

	require.Len(t, browser.pages, 1)
	assert.Equal(t, 1, browser.pages[0].closeCount)
}

func TestCapture_RestoresExistingState(t *testing.T) {
	browser := &fakeBrowser{}
	uc, sessions := newSessionFixture(t, browser)
	ctx := context.Background()
	require.NoError(t, sessions.Save(ctx, "www.shop.example",
		[]entity.Cookie{{Name: "old", Value: "1", Domain: ".shop.example", Path: "/"}}, nil))

	_, err := uc.Capture(ctx, "https://www.shop.example/", desktop, time.Minute)
	require.NoError(t, err)

	p := browser.pages[0]
	require.Len(t, p.setCookies, 1)
	assert.Equal(t, "old", p.setCookies[0].Name)
	assert.Empty(t, sessions.Load(ctx, "www.shop.example").Cookies, "the page had no cookies left")
}

func TestCapture_Errors(t *testing.T) {
	ctx := context.Background()

	uc, _ := newSessionFixture(t, &fakeBrowser{})
	_, err := uc.Capture(ctx, "not a url", desktop, time.Minute)
	assert.Error(t, err)

	navErr := errors.New("net::ERR_NAME_NOT_RESOLVED")
	uc, sessions := newSessionFixture(t, &fakeBrowser{newPage: func() *fakePage {
		return &fakePage{navigateErr: navErr}
	}})
	_, err = uc.Capture(ctx, "https://missing.example/", desktop, time.Minute)
	assert.ErrorIs(t, err, navErr)
	assert.True(t, sessions.Load(ctx, "missing.example").IsEmpty())

	uc, _ = newSessionFixture(t, &fakeBrowser{err: repository.ErrBrowserUnavailable})
	_, err = uc.Capture(ctx, "https://shop.example/", desktop, time.Minute)
	assert.ErrorIs(t, err, repository.ErrBrowserUnavailable)
}
