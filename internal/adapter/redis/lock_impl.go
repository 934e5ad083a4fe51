package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/user/a11y-auditor/internal/repository"
	"github.com/user/a11y-auditor/pkg/utils"
)

const domainLockPrefix = "a11y:lock:"

// releaseScript deletes the key only while it still holds our token, so an expired lock
// taken over by another run is never released by us.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// DomainLockRepoImpl provides a concrete implementation for the DomainLockRepository interface using Redis.
type DomainLockRepoImpl struct {
	client redis.Cmdable
	ttl    time.Duration
	logger *zap.Logger
}

// NewDomainLockRepo creates a new instance of DomainLockRepoImpl.
func NewDomainLockRepo(client redis.Cmdable, ttl time.Duration, logger *zap.Logger) *DomainLockRepoImpl {
	return &DomainLockRepoImpl{client: client, ttl: ttl, logger: logger}
}

// generateKey creates a consistent Redis key for a given domain by hashing it.
func (r *DomainLockRepoImpl) generateKey(domain string) string {
	return fmt.Sprintf("%s%s", domainLockPrefix, utils.HashKey(utils.SanitizeDomain(domain)))
}

// Acquire takes the lock with SET NX and a TTL so a crashed holder cannot block later runs forever.
func (r *DomainLockRepoImpl) Acquire(ctx context.Context, domain string) (func(), error) {
	key := r.generateKey(domain)
	token := uuid.NewString()

	ok, err := r.client.SetNX(ctx, key, token, r.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire lock for %s: %w", domain, err)
	}
	if !ok {
		return nil, fmt.Errorf("%s: %w", domain, repository.ErrLockHeld)
	}

	release := func() {
		// The run context may already be cancelled; releasing must still happen.
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := releaseScript.Run(ctx, r.client, []string{key}, token).Err(); err != nil {
			r.logger.Warn("Failed to release domain lock", zap.String("domain", domain), zap.Error(err))
		}
	}
	return release, nil
}
