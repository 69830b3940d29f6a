package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// ErrImportInProgress is returned when another import holds the tenant's lock
var ErrImportInProgress = errors.New("an import is already running for this tenant")

// releaseScript deletes the lock only when it still holds our token
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// ImportLocker serializes imports per tenant. Without redis it never blocks.
type ImportLocker struct {
	redis  *redis.Client
	ttl    time.Duration
	logger *logrus.Entry
}

func NewImportLocker(redis *redis.Client, ttl time.Duration, logger *logrus.Logger) *ImportLocker {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &ImportLocker{
		redis:  redis,
		ttl:    ttl,
		logger: logger.WithField("component", "repository.import_lock"),
	}
}

func importLockKey(tenantID string) string {
	return fmt.Sprintf("import:lock:%s", tenantID)
}

// Acquire takes the tenant's import lock and returns its release func
func (l *ImportLocker) Acquire(ctx context.Context, tenantID string) (func(), error) {
	if l == nil || l.redis == nil {
		return func() {}, nil
	}

	key := importLockKey(tenantID)
	token := uuid.NewString()
	ok, err := l.redis.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire import lock: %w", err)
	}
	if !ok {
		return nil, ErrImportInProgress
	}

	return func() {
		// the request context may already be cancelled
		rctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := releaseScript.Run(rctx, l.redis, []string{key}, token).Err(); err != nil {
			l.logger.WithError(err).WithField("tenant_id", tenantID).Warn("Failed to release import lock")
		}
	}, nil
}
