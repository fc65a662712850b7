package serviceaccounts_test

import (
	"context"
	"sync"
	"time"

	"github.com/inkwell-blog/inkwell/internal/auth"
	"github.com/inkwell-blog/inkwell/internal/serviceaccounts"
	"github.com/inkwell-blog/inkwell/internal/shared"
)

type memoryRepo struct {
	mu       sync.Mutex
	accounts map[string]serviceaccounts.ServiceAccount
	order    []string
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{accounts: make(map[string]serviceaccounts.ServiceAccount)}
}

func (m *memoryRepo) Insert(ctx context.Context, sa *serviceaccounts.ServiceAccount) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now().UTC()
	sa.CreatedAt, sa.UpdatedAt = now, now
	m.accounts[sa.ID] = *sa
	m.order = append(m.order, sa.ID)
	return nil
}

func (m *memoryRepo) List(ctx context.Context) ([]serviceaccounts.ServiceAccount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]serviceaccounts.ServiceAccount, 0, len(m.order))
	for _, id := range m.order {
		if sa, ok := m.accounts[id]; ok {
			out = append(out, sa)
		}
	}
	return out, nil
}

func (m *memoryRepo) Get(ctx context.Context, id string) (*serviceaccounts.ServiceAccount, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sa, ok := m.accounts[id]
	if !ok {
		return nil, false, nil
	}
	return &sa, true, nil
}

func (m *memoryRepo) Revoke(ctx context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sa, ok := m.accounts[id]
	if !ok || sa.Revoked {
		return false, nil
	}
	sa.Revoked = true
	m.accounts[id] = sa
	return true, nil
}

func (m *memoryRepo) Delete(ctx context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.accounts[id]; !ok {
		return false, nil
	}
	delete(m.accounts, id)
	return true, nil
}

func (m *memoryRepo) ListActiveCredentials(ctx context.Context) ([]auth.Credential, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []auth.Credential
	for _, id := range m.order {
		sa, ok := m.accounts[id]
		if !ok || sa.Revoked {
			continue
		}
		out = append(out, auth.Credential{
			ServiceAccountID: sa.ID,
			Name:             sa.Name,
			TokenHash:        sa.TokenHash,
			Scopes:           sa.Scopes,
			CreatedByID:      sa.CreatedByID,
		})
	}
	return out, nil
}

func (m *memoryRepo) TouchLastUsed(ctx context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if sa, ok := m.accounts[id]; ok {
		sa.LastUsedAt = &at
		m.accounts[id] = sa
	}
	return nil
}

type memoryAudit struct {
	mu      sync.Mutex
	entries []shared.AuditLog
}

func (a *memoryAudit) Record(ctx context.Context, log shared.AuditLog) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, log)
	return nil
}

func (a *memoryAudit) actions() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]string, 0, len(a.entries))
	for _, e := range a.entries {
		out = append(out, e.Action)
	}
	return out
}

var _ serviceaccounts.Repository = (*memoryRepo)(nil)
