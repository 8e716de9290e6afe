package helpers

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/semaphore"
)

// ErrHashing is returned when a password cannot be hashed.
var ErrHashing = errors.New("password hashing failed")

// BcryptHasher hashes and verifies passwords with bcrypt.
// At most maxConcurrent hash or verify calls run at once; the rest wait.
// A started call always runs to completion.
type BcryptHasher struct {
	cost int
	sem  *semaphore.Weighted
}

func NewBcryptHasher(cost, maxConcurrent int) *BcryptHasher {
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}
	return &BcryptHasher{cost: cost, sem: semaphore.NewWeighted(int64(maxConcurrent))}
}

// Hash returns a salted bcrypt hash of plain. Equal inputs give different hashes.
func (h *BcryptHasher) Hash(plain string) (string, error) {
	release := h.acquire()
	defer release()

	b, err := bcrypt.GenerateFromPassword(secret(plain), h.cost)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrHashing, err)
	}
	return string(b), nil
}

// Verify reports whether plain matches hash. A malformed or foreign hash is
// a mismatch, never an error.
func (h *BcryptHasher) Verify(plain, hash string) bool {
	release := h.acquire()
	defer release()
	return bcrypt.CompareHashAndPassword([]byte(hash), secret(plain)) == nil
}

func (h *BcryptHasher) acquire() func() {
	// Background never cancels, so Acquire only returns once a slot is free.
	_ = h.sem.Acquire(context.Background(), 1)
	return func() { h.sem.Release(1) }
}

// bcrypt only reads 72 bytes; longer passwords are digested first so every byte counts.
const bcryptMaxInput = 72

func secret(plain string) []byte {
	if len(plain) <= bcryptMaxInput {
		return []byte(plain)
	}
	sum := sha256.Sum256([]byte(plain))
	return []byte(base64.RawStdEncoding.EncodeToString(sum[:]))
}
