package serviceaccounts

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/inkwell-blog/inkwell/internal/auth"
	"github.com/inkwell-blog/inkwell/internal/platform/httpx"
	"github.com/inkwell-blog/inkwell/internal/shared"
)

// Service implements the service-account lifecycle: create, list, revoke, delete.
// Revocation and deletion are the only ways out; scopes are never edited.
type Service struct {
	repo     Repository
	codec    *auth.TokenCodec
	audit    shared.AuditRecorder
	validate *validator.Validate
	logger   *slog.Logger
}

// NewService constructs a Service. audit may be nil.
func NewService(repo Repository, codec *auth.TokenCodec, audit shared.AuditRecorder, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, codec: codec, audit: audit, validate: validator.New(), logger: logger}
}

// Create mints a token for a new account owned by actor. The plaintext token is only
// ever available in the returned value.
func (s *Service) Create(ctx context.Context, actor auth.Principal, in CreateInput) (*Created, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)
	if err := s.validate.Struct(in); err != nil {
		return nil, httpx.FromValidation(err)
	}
	scopes, err := auth.NormalizeScopes(in.Scopes)
	if err != nil {
		return nil, err
	}
	gen, err := s.codec.Generate()
	if err != nil {
		return nil, err
	}
	sa := &ServiceAccount{
		ID:          uuid.NewString(),
		Name:        in.Name,
		Description: in.Description,
		TokenHash:   gen.Hash,
		Scopes:      scopes,
		CreatedByID: actor.UserID(),
	}
	if err := s.repo.Insert(ctx, sa); err != nil {
		return nil, fmt.Errorf("serviceaccounts: insert: %w", err)
	}
	s.record(ctx, actor, "service_account.create", sa.ID, map[string]any{"name": sa.Name, "scopes": sa.Scopes})
	return &Created{Account: *sa, Token: gen.Token, ShownOnce: true}, nil
}

// List returns every account.
func (s *Service) List(ctx context.Context) ([]ServiceAccount, error) {
	accounts, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("serviceaccounts: list: %w", err)
	}
	return accounts, nil
}

// Get returns one account.
func (s *Service) Get(ctx context.Context, id string) (*ServiceAccount, error) {
	sa, found, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("serviceaccounts: get: %w", err)
	}
	if !found {
		return nil, errNotFound()
	}
	return sa, nil
}

// Revoke permanently disables an account. Revoking twice is an error, not a no-op.
func (s *Service) Revoke(ctx context.Context, actor auth.Principal, id string) error {
	revoked, err := s.repo.Revoke(ctx, id)
	if err != nil {
		return fmt.Errorf("serviceaccounts: revoke: %w", err)
	}
	if !revoked {
		if _, err := s.Get(ctx, id); err != nil {
			return err
		}
		return httpx.BadRequest(CodeAlreadyRevoked, "service account is already revoked")
	}
	s.record(ctx, actor, "service_account.revoke", id, nil)
	return nil
}

// Delete removes an account permanently.
func (s *Service) Delete(ctx context.Context, actor auth.Principal, id string) error {
	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("serviceaccounts: delete: %w", err)
	}
	if !deleted {
		return errNotFound()
	}
	s.record(ctx, actor, "service_account.delete", id, nil)
	return nil
}

func (s *Service) record(ctx context.Context, actor auth.Principal, action, id string, meta map[string]any) {
	if s.audit == nil {
		return
	}
	if meta == nil {
		meta = map[string]any{}
	}
	meta["method"] = string(actor.Method())
	err := s.audit.Record(ctx, shared.AuditLog{ActorID: actor.UserID(), Action: action, Entity: "service_account", EntityID: id, Meta: meta})
	if err != nil {
		s.logger.Warn("audit service account", slog.String("action", action), slog.Any("error", err))
	}
}

func errNotFound() error {
	return httpx.NotFound(CodeNotFound, "service account not found")
}
