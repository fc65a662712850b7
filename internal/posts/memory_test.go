package posts_test

import (
	"context"
	"sort"
	"sync"

	"github.com/inkwell-blog/inkwell/internal/platform/httpx"
	"github.com/inkwell-blog/inkwell/internal/posts"
)

// memoryRepo is an in-memory posts.Repository.
type memoryRepo struct {
	mu        sync.Mutex
	posts     map[string]posts.Post
	getCalls  int
	increment chan string
	block     chan struct{}
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{posts: make(map[string]posts.Post), increment: make(chan string, 64)}
}

func (m *memoryRepo) FindIDBySlug(ctx context.Context, slug string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, p := range m.posts {
		if p.Slug == slug {
			return id, true, nil
		}
	}
	return "", false, nil
}

func (m *memoryRepo) IncrementViews(ctx context.Context, id string) error {
	m.mu.Lock()
	p, ok := m.posts[id]
	if ok {
		p.Views++
		m.posts[id] = p
	}
	m.mu.Unlock()
	m.increment <- id
	return nil
}

func (m *memoryRepo) Insert(ctx context.Context, post *posts.Post) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.posts {
		if p.Slug == post.Slug {
			return posts.ErrSlugConflict
		}
	}
	m.posts[post.ID] = *post
	return nil
}

func (m *memoryRepo) Update(ctx context.Context, post *posts.Post) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.posts[post.ID]; !ok {
		return httpx.NotFound(httpx.CodePostNotFound, "post not found")
	}
	for id, p := range m.posts {
		if id != post.ID && p.Slug == post.Slug {
			return posts.ErrSlugConflict
		}
	}
	m.posts[post.ID] = *post
	return nil
}

func (m *memoryRepo) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.posts[id]; !ok {
		return httpx.NotFound(httpx.CodePostNotFound, "post not found")
	}
	delete(m.posts, id)
	return nil
}

func (m *memoryRepo) GetByID(ctx context.Context, id string) (*posts.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.posts[id]
	if !ok {
		return nil, httpx.NotFound(httpx.CodePostNotFound, "post not found")
	}
	return &p, nil
}

func (m *memoryRepo) GetBySlug(ctx context.Context, locale, slug string, publishedOnly bool) (*posts.Post, error) {
	if m.block != nil {
		<-m.block
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.getCalls++
	for _, p := range m.posts {
		if p.Locale == locale && p.Slug == slug && (p.Published || !publishedOnly) {
			return &p, nil
		}
	}
	return nil, httpx.NotFound(httpx.CodePostNotFound, "post not found")
}

func (m *memoryRepo) List(ctx context.Context, f posts.ListFilter) ([]posts.Post, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var all []posts.Post
	for _, p := range m.posts {
		if f.Locale != "" && p.Locale != f.Locale {
			continue
		}
		if f.PublishedOnly && !p.Published {
			continue
		}
		if f.TagSlug != "" && !hasTerm(p.Tags, f.TagSlug) {
			continue
		}
		if f.CategorySlug != "" && !hasTerm(p.Categories, f.CategorySlug) {
			continue
		}
		all = append(all, p)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Title < all[j].Title })
	total := len(all)
	if f.Offset >= total {
		return nil, total, nil
	}
	end := f.Offset + f.Limit
	if end > total {
		end = total
	}
	return all[f.Offset:end], total, nil
}

func (m *memoryRepo) views(id string) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.posts[id].Views
}

func hasTerm(terms []posts.Term, slug string) bool {
	for _, t := range terms {
		if t.Slug == slug {
			return true
		}
	}
	return false
}

type staticLocales []string

func (s staticLocales) IsSupported(code string) bool {
	for _, c := range s {
		if c == code {
			return true
		}
	}
	return false
}

func (s staticLocales) Default() string { return s[0] }

var _ posts.Repository = (*memoryRepo)(nil)
