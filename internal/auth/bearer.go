package auth

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/inkwell-blog/inkwell/internal/shared"
)

// Credential is the slice of a service account needed to verify a token.
type Credential struct {
	ServiceAccountID string
	Name             string
	TokenHash        string
	Scopes           []string
	CreatedByID      string
	Revoked          bool
}

// CredentialStore exposes service-account credentials to the bearer resolver.
type CredentialStore interface {
	// ListActiveCredentials returns every non-revoked service account.
	ListActiveCredentials(ctx context.Context) ([]Credential, error)
	TouchLastUsed(ctx context.Context, serviceAccountID string, at time.Time) error
}

// ServiceAccountAuth is the outcome of a successful token verification.
type ServiceAccountAuth struct {
	ServiceAccountID string
	Name             string
	Scopes           []string
	CreatedByID      string
}

// BearerResolver authenticates requests carrying a service-account bearer token.
//
// Tokens are stored as salted bcrypt hashes, so there is no key to look an account up
// by: Resolve loads every active credential and compares one at a time. Cost is linear
// in the number of active service accounts. The compares run sequentially to bound the
// CPU burst of a single request.
type BearerResolver struct {
	store  CredentialStore
	codec  *TokenCodec
	logger *slog.Logger
	now    func() time.Time
}

// NewBearerResolver constructs a BearerResolver.
func NewBearerResolver(store CredentialStore, codec *TokenCodec, logger *slog.Logger) *BearerResolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &BearerResolver{store: store, codec: codec, logger: logger, now: time.Now}
}

// ExtractBearerToken returns the token from an Authorization header value, or "" when
// the header is missing or is not exactly "Bearer <sa_token>".
func ExtractBearerToken(header string) string {
	parts := strings.Split(header, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return ""
	}
	if !HasTokenPrefix(parts[1]) {
		return ""
	}
	return parts[1]
}

// Resolve verifies the bearer token in header. It returns (nil, nil) whenever the caller
// is simply not authenticated and an error only when the credential store fails.
func (b *BearerResolver) Resolve(ctx context.Context, header string) (*ServiceAccountAuth, error) {
	token := ExtractBearerToken(header)
	if token == "" || !IsValidFormat(token) {
		return nil, nil
	}

	creds, err := b.store.ListActiveCredentials(ctx)
	if err != nil {
		return nil, fmt.Errorf("auth: list credentials: %w", err)
	}

	for _, cred := range creds {
		if cred.Revoked {
			continue
		}
		if !b.codec.Verify(token, cred.TokenHash) {
			continue
		}
		b.touch(ctx, cred.ServiceAccountID)
		return &ServiceAccountAuth{
			ServiceAccountID: cred.ServiceAccountID,
			Name:             cred.Name,
			Scopes:           slices.Clone(cred.Scopes),
			CreatedByID:      cred.CreatedByID,
		}, nil
	}
	return nil, nil
}

func (b *BearerResolver) touch(ctx context.Context, id string) {
	at := b.now().UTC()
	shared.Detach(ctx, b.logger, "service-account last used", func(ctx context.Context) error {
		return b.store.TouchLastUsed(ctx, id, at)
	})
}
