package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/inkwell-blog/inkwell/internal/serviceaccounts"
)

func TestSplitScopes(t *testing.T) {
	tests := []struct {
		name  string
		input []string
		want  []string
	}{
		{name: "repeated flags", input: []string{"posts:read", "tags:read"}, want: []string{"posts:read", "tags:read"}},
		{name: "comma list", input: []string{"posts:read, posts:write"}, want: []string{"posts:read", "posts:write"}},
		{name: "blank entries", input: []string{" ,", ""}, want: nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, splitScopes(tt.input))
		})
	}
}

func TestAccountTable(t *testing.T) {
	created := time.Date(2026, 1, 2, 3, 4, 0, 0, time.Local)
	header, rows := accountTable([]serviceaccounts.ServiceAccount{
		{ID: "a", Name: "ci", Scopes: []string{"posts:read", "posts:write"}, CreatedAt: created},
		{ID: "b", Name: "old", Scopes: []string{"admin:full"}, Revoked: true, LastUsedAt: &created, CreatedAt: created},
	})
	assert.Len(t, header, 6)
	assert.Equal(t, []string{"a", "ci", "posts:read,posts:write", "active", "never", "2026-01-02 03:04"}, rows[0])
	assert.Equal(t, "revoked", rows[1][3])
	assert.Equal(t, "2026-01-02 03:04", rows[1][4])
}

func TestRenderRejectsUnknownFormat(t *testing.T) {
	outputFormat = "yaml"
	t.Cleanup(func() { outputFormat = "table" })
	err := render([]int{1}, func([]int) ([]string, [][]string) { return nil, nil })
	assert.ErrorContains(t, err, "unsupported output format")
}
