package auth

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

const (
	// TokenPrefix marks service-account tokens so they are recognisable in logs and
	// secret scanners.
	TokenPrefix = "sa_"
	// TokenBytes is the amount of randomness in a token (256 bits).
	TokenBytes = 32
	// DefaultTokenCost is the bcrypt cost used for token hashes.
	DefaultTokenCost = 12
)

var tokenFormat = regexp.MustCompile(`^sa_[0-9a-fA-F]{64}$`)

// GeneratedToken pairs a plaintext token with its hash. Only Hash may be persisted.
type GeneratedToken struct {
	Token string
	Hash  string
}

// TokenCodec mints, hashes and verifies service-account tokens.
type TokenCodec struct {
	cost   int
	logger *slog.Logger
}

// NewTokenCodec builds a codec with the given bcrypt cost. Costs bcrypt would reject fall
// back to DefaultTokenCost; callers enforce their own minimum via configuration.
func NewTokenCodec(cost int, logger *slog.Logger) *TokenCodec {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultTokenCost
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &TokenCodec{cost: cost, logger: logger}
}

// Generate draws a fresh token and hashes it.
func (c *TokenCodec) Generate() (GeneratedToken, error) {
	buf := make([]byte, TokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return GeneratedToken{}, fmt.Errorf("auth: read random: %w", err)
	}
	token := TokenPrefix + hex.EncodeToString(buf)
	hash, err := bcrypt.GenerateFromPassword([]byte(token), c.cost)
	if err != nil {
		return GeneratedToken{}, fmt.Errorf("auth: hash token: %w", err)
	}
	return GeneratedToken{Token: token, Hash: string(hash)}, nil
}

// Verify reports whether candidate matches storedHash. It never returns an error; hash
// failures other than a plain mismatch are logged.
func (c *TokenCodec) Verify(candidate, storedHash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(storedHash), []byte(candidate))
	if err == nil {
		return true
	}
	if !errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		c.logger.Error("verify token hash", slog.Any("error", err))
	}
	return false
}

// IsValidFormat is a cheap shape check run before any storage access or hashing.
func IsValidFormat(candidate string) bool {
	return tokenFormat.MatchString(candidate)
}

// HasTokenPrefix reports whether candidate carries the service-account prefix.
func HasTokenPrefix(candidate string) bool {
	return strings.HasPrefix(candidate, TokenPrefix)
}
