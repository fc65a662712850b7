package users

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/inkwell-blog/inkwell/internal/auth"
	"github.com/inkwell-blog/inkwell/internal/platform/httpx"
	"github.com/inkwell-blog/inkwell/internal/shared"
)

// RepositoryPort defines data access methods for users.
type RepositoryPort interface {
	ListUsers(ctx context.Context) ([]User, error)
	SetRole(ctx context.Context, id string, role auth.Role) (bool, error)
	CreateUser(ctx context.Context, u *User, passwordHash string) error
}

// Service handles user business logic.
type Service struct {
	repo     RepositoryPort
	audit    shared.AuditRecorder
	validate *validator.Validate
	logger   *slog.Logger
}

// NewService builds Service instance. audit may be nil.
func NewService(repo RepositoryPort, audit shared.AuditRecorder, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, audit: audit, validate: validator.New(), logger: logger}
}

// ListUsers returns all users.
func (s *Service) ListUsers(ctx context.Context) ([]User, error) {
	users, err := s.repo.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("users: list: %w", err)
	}
	return users, nil
}

// ChangeRole sets the role of user id. rawRole is matched case-insensitively.
func (s *Service) ChangeRole(ctx context.Context, actor auth.Principal, id, rawRole string) error {
	role, err := auth.ParseRole(rawRole)
	if err != nil {
		return err
	}
	found, err := s.repo.SetRole(ctx, id, role)
	if err != nil {
		return fmt.Errorf("users: set role: %w", err)
	}
	if !found {
		return httpx.NotFound(httpx.CodeUserNotFound, "user not found")
	}
	if s.audit != nil {
		entry := shared.AuditLog{ActorID: actor.UserID(), Action: "user.role", Entity: "user", EntityID: id, Meta: map[string]any{"role": string(role)}}
		if err := s.audit.Record(ctx, entry); err != nil {
			s.logger.Warn("audit role change", slog.Any("error", err))
		}
	}
	return nil
}

// Create registers an account. Role defaults to READER.
func (s *Service) Create(ctx context.Context, in CreateInput) (*User, error) {
	in.Email = strings.TrimSpace(in.Email)
	in.Name = strings.TrimSpace(in.Name)
	if err := s.validate.Struct(in); err != nil {
		return nil, httpx.FromValidation(err)
	}
	if in.Role == "" {
		in.Role = auth.RoleReader
	}
	if !in.Role.Valid() {
		return nil, httpx.BadRequest(httpx.CodeInvalidRole, "role must be one of READER, ADMIN")
	}
	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	u := &User{Email: in.Email, Name: in.Name, Role: in.Role}
	if err := s.repo.CreateUser(ctx, u, hash); err != nil {
		return nil, err
	}
	return u, nil
}
