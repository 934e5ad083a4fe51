package repository

import (
	"context"

	"github.com/user/a11y-auditor/internal/entity"
)

// SessionRepository persists per-domain cookies and local storage.
type SessionRepository interface {
	// Load returns the filtered state for a domain. It never fails; problems yield an empty state.
	Load(ctx context.Context, domain string) entity.SessionState
	// Save overwrites the state for a domain.
	Save(ctx context.Context, domain string, cookies []entity.Cookie, localStorage map[string]string) error
}
