package password

import (
	"context"
	"fmt"

	"golang.org/x/sync/semaphore"
)

// Hasher wraps Config with a bounded-concurrency gate.
//
// Argon2id is deliberately expensive; running an unbounded number of hashes
// concurrently can exhaust CPU and memory and stall every other request.
// Hasher admits at most maxConcurrent hashing operations at a time and
// queues the rest on the caller's context.
type Hasher struct {
	cfg Config
	sem *semaphore.Weighted
}

// NewHasher builds a Hasher. maxConcurrent <= 0 defaults to 4.
func NewHasher(cfg Config, maxConcurrent int64) *Hasher {
	if maxConcurrent <= 0 {
		maxConcurrent = 4
	}
	return &Hasher{cfg: cfg, sem: semaphore.NewWeighted(maxConcurrent)}
}

// NewHasherFromEnv builds a Hasher from environment configuration.
func NewHasherFromEnv(maxConcurrent int64) (*Hasher, error) {
	cfg, err := FromEnv()
	if err != nil {
		return nil, err
	}
	return NewHasher(cfg, maxConcurrent), nil
}

// Hash derives a PHC-encoded argon2id hash of plaintext.
// Blocks while the hashing pool is saturated; honors ctx cancellation.
func (h *Hasher) Hash(ctx context.Context, plaintext string) (string, error) {
	if h == nil {
		return "", fmt.Errorf("password: nil hasher")
	}
	if err := h.sem.Acquire(ctx, 1); err != nil {
		return "", err
	}
	defer h.sem.Release(1)

	return h.cfg.Hash(plaintext)
}

// Verify checks plaintext against a PHC-encoded hash under the same
// concurrency gate as Hash.
func (h *Hasher) Verify(ctx context.Context, plaintext, encodedHash string) (bool, error) {
	if h == nil {
		return false, fmt.Errorf("password: nil hasher")
	}
	if err := h.sem.Acquire(ctx, 1); err != nil {
		return false, err
	}
	defer h.sem.Release(1)

	return h.cfg.Verify(plaintext, encodedHash)
}
