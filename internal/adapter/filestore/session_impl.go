package filestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/user/a11y-auditor/internal/entity"
	"github.com/user/a11y-auditor/pkg/utils"
)

// SessionRepoImpl stores per-domain session state as JSON files:
// cookies-<key>.json holds the cookie array, localstorage-<key>.json the storage map.
type SessionRepoImpl struct {
	dir    string
	filter entity.CookieFilter
	logger *zap.Logger
	now    func() time.Time
}

// NewSessionRepo creates a new instance of SessionRepoImpl.
func NewSessionRepo(dir string, filter entity.CookieFilter, logger *zap.Logger) *SessionRepoImpl {
	return &SessionRepoImpl{dir: dir, filter: filter, logger: logger, now: time.Now}
}

func (r *SessionRepoImpl) cookiesPath(domain string) string {
	return filepath.Join(r.dir, fmt.Sprintf("cookies-%s.json", utils.SanitizeDomain(domain)))
}

func (r *SessionRepoImpl) localStoragePath(domain string) string {
	return filepath.Join(r.dir, fmt.Sprintf("localstorage-%s.json", utils.SanitizeDomain(domain)))
}

// Load reads and filters the stored state. Missing or unreadable files yield an empty state.
func (r *SessionRepoImpl) Load(ctx context.Context, domain string) entity.SessionState {
	var state entity.SessionState

	var raw []entity.Cookie
	if err := readJSON(r.cookiesPath(domain), &raw); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			r.logger.Warn("Ignoring unreadable cookie file", zap.String("domain", domain), zap.Error(err))
		}
	} else {
		state.Cookies = r.filter.Apply(decodeCookieValues(raw), r.now())
	}

	var items map[string]string
	if err := readJSON(r.localStoragePath(domain), &items); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			r.logger.Warn("Ignoring unreadable local storage file", zap.String("domain", domain), zap.Error(err))
		}
	} else if len(items) > 0 {
		state.LocalStorage = items
	}

	r.logger.Debug("Session state loaded",
		zap.String("domain", domain),
		zap.Int("cookies", len(state.Cookies)),
		zap.Int("local_storage_items", len(state.LocalStorage)),
	)
	return state
}

// Save overwrites the stored state for a domain.
func (r *SessionRepoImpl) Save(ctx context.Context, domain string, cookies []entity.Cookie, localStorage map[string]string) error {
	if cookies == nil {
		cookies = []entity.Cookie{}
	}
	if err := writeJSONAtomic(r.cookiesPath(domain), cookies); err != nil {
		return fmt.Errorf("failed to save cookies for %s: %w", domain, err)
	}
	if localStorage == nil {
		localStorage = map[string]string{}
	}
	if err := writeJSONAtomic(r.localStoragePath(domain), localStorage); err != nil {
		return fmt.Errorf("failed to save local storage for %s: %w", domain, err)
	}
	return nil
}

// decodeCookieValues URL-decodes each value once. A value is only replaced when its decoded
// form decodes to itself, so saving a loaded state and loading it again yields the same values.
// Other values are kept as stored.
func decodeCookieValues(cookies []entity.Cookie) []entity.Cookie {
	out := make([]entity.Cookie, len(cookies))
	for i, c := range cookies {
		c.Value = decodeStable(c.Value)
		out[i] = c
	}
	return out
}

func decodeStable(raw string) string {
	v, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	if again, err := url.PathUnescape(v); err != nil || again != v {
		return raw
	}
	return v
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}
