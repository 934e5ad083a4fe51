package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/user/a11y-auditor/internal/repository"
	"github.com/user/a11y-auditor/pkg/utils"
)

// DomainLockRepoImpl serialises audits of a domain within one process. It is used when no
// Redis server is configured.
type DomainLockRepoImpl struct {
	mu   sync.Mutex
	held map[string]bool
}

// NewDomainLockRepo creates a new instance of DomainLockRepoImpl.
func NewDomainLockRepo() *DomainLockRepoImpl {
	return &DomainLockRepoImpl{held: make(map[string]bool)}
}

// Acquire returns ErrLockHeld while another caller holds the domain.
func (r *DomainLockRepoImpl) Acquire(ctx context.Context, domain string) (func(), error) {
	key := utils.SanitizeDomain(domain)

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.held[key] {
		return nil, fmt.Errorf("%s: %w", domain, repository.ErrLockHeld)
	}
	r.held[key] = true

	var once sync.Once
	return func() {
		once.Do(func() {
			r.mu.Lock()
			delete(r.held, key)
			r.mu.Unlock()
		})
	}, nil
}
