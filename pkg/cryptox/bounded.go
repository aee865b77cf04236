package cryptox

import (
	"context"
	"runtime"

	"golang.org/x/sync/semaphore"
)

// ContextHasher is a Hasher whose calls give up when ctx is done before the
// work starts.
type ContextHasher interface {
	Hasher
	HashContext(ctx context.Context, secret string) (string, error)
	VerifyContext(ctx context.Context, secret, hash string) (bool, error)
}

// HashContext hashes secret with h, honouring ctx when h supports it.
func HashContext(ctx context.Context, h Hasher, secret string) (string, error) {
	if ch, ok := h.(ContextHasher); ok {
		return ch.HashContext(ctx, secret)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return h.Hash(secret)
}

// VerifyContext is HashContext for Verify. A non-nil error means no
// comparison was made.
func VerifyContext(ctx context.Context, h Hasher, secret, hash string) (bool, error) {
	if ch, ok := h.(ContextHasher); ok {
		return ch.VerifyContext(ctx, secret, hash)
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}
	return h.Verify(secret, hash), nil
}

// Bounded caps the number of hash computations running at once so a burst of
// verifications cannot starve request handlers of CPU. Callers waiting for a
// slot leave the queue when their context ends.
type Bounded struct {
	next Hasher
	sem  *semaphore.Weighted
}

// NewBounded wraps next with n slots. n <= 0 uses GOMAXPROCS.
func NewBounded(next Hasher, n int) *Bounded {
	if n <= 0 {
		n = runtime.GOMAXPROCS(0)
	}
	return &Bounded{next: next, sem: semaphore.NewWeighted(int64(n))}
}

func (b *Bounded) HashContext(ctx context.Context, secret string) (string, error) {
	if err := b.sem.Acquire(ctx, 1); err != nil {
		return "", err
	}
	defer b.sem.Release(1)
	return b.next.Hash(secret)
}

func (b *Bounded) VerifyContext(ctx context.Context, secret, hash string) (bool, error) {
	if err := b.sem.Acquire(ctx, 1); err != nil {
		return false, err
	}
	defer b.sem.Release(1)
	return b.next.Verify(secret, hash), nil
}

func (b *Bounded) Hash(secret string) (string, error) {
	return b.HashContext(context.Background(), secret)
}

func (b *Bounded) Verify(secret, hash string) bool {
	ok, _ := b.VerifyContext(context.Background(), secret, hash)
	return ok
}
