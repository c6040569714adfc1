package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const fingerprintPrefix = "seen:"

// FingerprintStoreImpl implements repository.FingerprintStore on Redis keys
// with TTL, so deduplication survives across runs for the expiry window.
type FingerprintStoreImpl struct {
	client *redis.Client
}

// NewFingerprintStore creates a new instance of FingerprintStoreImpl.
func NewFingerprintStore(client *redis.Client) *FingerprintStoreImpl {
	return &FingerprintStoreImpl{client: client}
}

func (r *FingerprintStoreImpl) key(fingerprint string) string {
	return fmt.Sprintf("%s%s", fingerprintPrefix, fingerprint)
}

// Seen checks whether the fingerprint was marked within its expiry.
func (r *FingerprintStoreImpl) Seen(ctx context.Context, fingerprint string) (bool, error) {
	val, err := r.client.Exists(ctx, r.key(fingerprint)).Result()
	if err != nil {
		return false, err
	}
	return val == 1, nil
}

// Mark records the fingerprint with the given expiry. SETEX is atomic.
func (r *FingerprintStoreImpl) Mark(ctx context.Context, fingerprint string, expiry time.Duration) error {
	return r.client.SetEx(ctx, r.key(fingerprint), "1", expiry).Err()
}
