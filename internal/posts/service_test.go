package posts_test

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkwell-blog/inkwell/internal/auth"
	"github.com/inkwell-blog/inkwell/internal/platform/httpx"
	"github.com/inkwell-blog/inkwell/internal/posts"
	"github.com/inkwell-blog/inkwell/internal/shared"
)

type recordingAudit struct {
	mu   sync.Mutex
	logs []shared.AuditLog
}

func (r *recordingAudit) Record(ctx context.Context, log shared.AuditLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logs = append(r.logs, log)
	return nil
}

var admin = auth.NewSessionPrincipal("admin-1", "admin@inkwell.test", auth.RoleAdmin)

func newService(repo *memoryRepo, audit shared.AuditRecorder) *posts.Service {
	return posts.NewService(posts.ServiceConfig{
		Repo:    repo,
		Locales: staticLocales{"en", "es"},
		Views:   posts.NewViewCounter(repo, nil, nil),
		Audit:   audit,
	})
}

func TestCreateAllocatesSlugAndDefaultsLocale(t *testing.T) {
	repo := newMemoryRepo()
	audit := &recordingAudit{}
	svc := newService(repo, audit)

	first, err := svc.Create(context.Background(), admin, posts.Input{Title: "My Post", Content: "body", Tags: []string{"Go", "go", " ", "Café"}})
	require.NoError(t, err)
	assert.Equal(t, "my-post", first.Slug)
	assert.Equal(t, "en", first.Locale)
	assert.Equal(t, "admin-1", first.AuthorID)
	assert.Equal(t, []posts.Term{{Name: "Go", Slug: "go"}, {Name: "Café", Slug: "cafe"}}, first.Tags)
	assert.False(t, first.Published)
	assert.Nil(t, first.PublishedAt)

	second, err := svc.Create(context.Background(), admin, posts.Input{Title: "My Post", Content: "again", Locale: "ES", Published: true})
	require.NoError(t, err)
	assert.Equal(t, "my-post-1", second.Slug)
	assert.Equal(t, "es", second.Locale)
	require.NotNil(t, second.PublishedAt)

	require.Len(t, audit.logs, 2)
	assert.Equal(t, "post.create", audit.logs[0].Action)
	assert.Equal(t, "admin-1", audit.logs[0].ActorID)
}

func TestCreateValidation(t *testing.T) {
	svc := newService(newMemoryRepo(), nil)
	cases := []struct {
		name string
		in   posts.Input
		code string
	}{
		{"missing title", posts.Input{Content: "x"}, httpx.CodeMissingRequiredField},
		{"missing content", posts.Input{Title: "x", Content: "   "}, httpx.CodeMissingRequiredField},
		{"unsupported locale", posts.Input{Title: "x", Content: "y", Locale: "fr"}, httpx.CodeInvalidInput},
		{"bad cover", posts.Input{Title: "x", Content: "y", CoverImage: "not a url"}, httpx.CodeInvalidInput},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), admin, tc.in)
			status, code, _ := httpx.Classify(err)
			assert.Equal(t, http.StatusBadRequest, status)
			assert.Equal(t, tc.code, code)
		})
	}
}

func TestUpdateKeepsSlugForSameTitle(t *testing.T) {
	repo := newMemoryRepo()
	svc := newService(repo, nil)
	post, err := svc.Create(context.Background(), admin, posts.Input{Title: "My Post", Content: "v1", Tags: []string{"old"}})
	require.NoError(t, err)

	updated, err := svc.Update(context.Background(), admin, post.ID, posts.Input{Title: "My Post", Content: "v2", Tags: []string{"new"}, Published: true})
	require.NoError(t, err)
	assert.Equal(t, "my-post", updated.Slug)
	assert.Equal(t, "v2", updated.Content)
	assert.Equal(t, []posts.Term{{Name: "new", Slug: "new"}}, updated.Tags)

	renamed, err := svc.Update(context.Background(), admin, post.ID, posts.Input{Title: "Another Title", Content: "v3", Published: true})
	require.NoError(t, err)
	assert.Equal(t, "another-title", renamed.Slug)
	assert.Equal(t, updated.PublishedAt, renamed.PublishedAt, "publish date is kept across edits")
}

func TestUpdateMissingPost(t *testing.T) {
	svc := newService(newMemoryRepo(), nil)
	_, err := svc.Update(context.Background(), admin, "missing", posts.Input{Title: "x", Content: "y"})
	_, code, _ := httpx.Classify(err)
	assert.Equal(t, httpx.CodePostNotFound, code)

	err = svc.Delete(context.Background(), admin, "missing")
	_, code, _ = httpx.Classify(err)
	assert.Equal(t, httpx.CodePostNotFound, code)
}

func TestSlugConflictSurfacesAsConflict(t *testing.T) {
	status, code, _ := httpx.Classify(posts.ErrSlugConflict)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, posts.CodeSlugConflict, code)
}

func TestGetPublishedBySlugRecordsView(t *testing.T) {
	repo := newMemoryRepo()
	svc := newService(repo, nil)
	post, err := svc.Create(context.Background(), admin, posts.Input{Title: "Hello", Content: "x", Published: true})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	got, err := svc.GetPublishedBySlug(ctx, "en", "hello")
	cancel()
	require.NoError(t, err)
	assert.Equal(t, post.ID, got.ID)

	select {
	case id := <-repo.increment:
		assert.Equal(t, post.ID, id)
	case <-time.After(2 * time.Second):
		t.Fatal("view was not recorded")
	}
	assert.Equal(t, int64(1), repo.views(post.ID))
}

func TestGetPublishedBySlugHidesDrafts(t *testing.T) {
	repo := newMemoryRepo()
	svc := newService(repo, nil)
	_, err := svc.Create(context.Background(), admin, posts.Input{Title: "Draft", Content: "x"})
	require.NoError(t, err)

	_, err = svc.GetPublishedBySlug(context.Background(), "en", "draft")
	_, code, _ := httpx.Classify(err)
	assert.Equal(t, httpx.CodePostNotFound, code)
}

func TestGetPublishedBySlugSharesConcurrentReads(t *testing.T) {
	repo := newMemoryRepo()
	svc := newService(repo, nil)
	_, err := svc.Create(context.Background(), admin, posts.Input{Title: "Hot", Content: "x", Published: true})
	require.NoError(t, err)

	repo.block = make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.GetPublishedBySlug(context.Background(), "en", "hot")
			assert.NoError(t, err)
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(repo.block)
	wg.Wait()

	assert.LessOrEqual(t, repo.getCalls, 5)
	for i := 0; i < 5; i++ {
		select {
		case <-repo.increment:
		case <-time.After(2 * time.Second):
			t.Fatal("every reader counts as a view")
		}
	}
}

func TestGetPublishedBySlugIgnoresOtherCallersCancellation(t *testing.T) {
	repo := newMemoryRepo()
	svc := newService(repo, nil)
	_, err := svc.Create(context.Background(), admin, posts.Input{Title: "Hot", Content: "x", Published: true})
	require.NoError(t, err)

	repo.block = make(chan struct{})
	firstCtx, cancelFirst := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := svc.GetPublishedBySlug(firstCtx, "en", "hot")
		firstErr <- err
	}()
	time.Sleep(20 * time.Millisecond)

	second := make(chan error, 1)
	go func() {
		post, err := svc.GetPublishedBySlug(context.Background(), "en", "hot")
		if err == nil && post.Slug != "hot" {
			err = fmt.Errorf("unexpected slug %q", post.Slug)
		}
		second <- err
	}()
	time.Sleep(20 * time.Millisecond)

	cancelFirst()
	select {
	case err := <-firstErr:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("cancelled caller must stop waiting")
	}

	close(repo.block)
	select {
	case err := <-second:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("second reader never returned")
	}
}

func TestListings(t *testing.T) {
	repo := newMemoryRepo()
	svc := newService(repo, nil)
	for _, in := range []posts.Input{
		{Title: "A", Content: "x", Published: true, Tags: []string{"go"}},
		{Title: "B", Content: "x", Published: true, Categories: []string{"Backend"}},
		{Title: "C", Content: "x", Published: false, Tags: []string{"go"}},
		{Title: "D", Content: "x", Published: true, Locale: "es", Tags: []string{"go"}},
	} {
		_, err := svc.Create(context.Background(), admin, in)
		require.NoError(t, err)
	}

	page, err := svc.ListPublished(context.Background(), "en", 1)
	require.NoError(t, err)
	assert.Equal(t, 2, page.Pagination.Total)

	page, err = svc.ListByTag(context.Background(), "en", "go", 1)
	require.NoError(t, err)
	require.Len(t, page.Posts, 1)
	assert.Equal(t, "A", page.Posts[0].Title)

	page, err = svc.ListByCategory(context.Background(), "en", "backend", 1)
	require.NoError(t, err)
	require.Len(t, page.Posts, 1)
	assert.Equal(t, "B", page.Posts[0].Title)

	page, err = svc.ListAll(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 4, page.Pagination.Total)
}
