package password

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrHashFailure wraps errors raised by the underlying crypto primitives.
	ErrHashFailure = errors.New("password hashing failed")
	// ErrUnsupportedDigest is returned when no configured algorithm understands a digest.
	ErrUnsupportedDigest = errors.New("unsupported password digest")
)

// Hasher is the one-way hashing contract used by the account stores.
type Hasher interface {
	Hash(plaintext string) (string, error)
	Verify(plaintext, digest string) (bool, error)
}

// Algorithm is a Hasher that can recognise its own digests and report outdated ones.
type Algorithm interface {
	Hasher
	Supports(digest string) bool
	NeedsUpgrade(digest string) (bool, error)
}

// prehash folds the pepper into the plaintext and bounds its length.
func prehash(plaintext string, pepper []byte) []byte {
	h := sha256.New()
	h.Write([]byte(plaintext))
	h.Write(pepper)
	sum := h.Sum(nil)
	out := make([]byte, hex.EncodedLen(len(sum)))
	hex.Encode(out, sum)
	return out
}

// Bcrypt hashes peppered SHA-256 digests with bcrypt.
type Bcrypt struct {
	cost   int
	pepper []byte
}

// NewBcrypt returns a bcrypt hasher. cost must lie within bcrypt's accepted range.
func NewBcrypt(cost int, pepper string) (*Bcrypt, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return nil, fmt.Errorf("bcrypt cost must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost)
	}
	return &Bcrypt{cost: cost, pepper: []byte(pepper)}, nil
}

// Hash returns a bcrypt digest of the peppered plaintext.
func (b *Bcrypt) Hash(plaintext string) (string, error) {
	digest, err := bcrypt.GenerateFromPassword(prehash(plaintext, b.pepper), b.cost)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrHashFailure, err)
	}
	return string(digest), nil
}

// Verify reports whether plaintext matches digest. A mismatch is not an error.
func (b *Bcrypt) Verify(plaintext, digest string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(digest), prehash(plaintext, b.pepper))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return false, nil
	}
	return false, fmt.Errorf("%w: %v", ErrHashFailure, err)
}

// Supports reports whether digest is a bcrypt digest.
func (b *Bcrypt) Supports(digest string) bool {
	return strings.HasPrefix(digest, "$2a$") ||
		strings.HasPrefix(digest, "$2b$") ||
		strings.HasPrefix(digest, "$2y$")
}

// NeedsUpgrade reports whether digest was produced with a lower cost.
func (b *Bcrypt) NeedsUpgrade(digest string) (bool, error) {
	cost, err := bcrypt.Cost([]byte(digest))
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrHashFailure, err)
	}
	return cost < b.cost, nil
}

// Chain hashes with its primary algorithm and verifies digests of any member.
type Chain struct {
	primary Algorithm
	all     []Algorithm
}

// NewChain builds a Chain. primary is used for new digests; fallbacks only verify.
func NewChain(primary Algorithm, fallbacks ...Algorithm) *Chain {
	all := make([]Algorithm, 0, len(fallbacks)+1)
	all = append(all, primary)
	for _, alg := range fallbacks {
		if alg != nil {
			all = append(all, alg)
		}
	}
	return &Chain{primary: primary, all: all}
}

// Hash delegates to the primary algorithm.
func (c *Chain) Hash(plaintext string) (string, error) {
	return c.primary.Hash(plaintext)
}

// Verify dispatches on the digest format.
func (c *Chain) Verify(plaintext, digest string) (bool, error) {
	for _, alg := range c.all {
		if alg.Supports(digest) {
			return alg.Verify(plaintext, digest)
		}
	}
	return false, ErrUnsupportedDigest
}

// NeedsUpgrade reports digests from a non-primary algorithm or with weaker parameters.
func (c *Chain) NeedsUpgrade(digest string) (bool, error) {
	if !c.primary.Supports(digest) {
		return true, nil
	}
	return c.primary.NeedsUpgrade(digest)
}
