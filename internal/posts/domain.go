// Package posts manages blog posts: slugs, persistence, the public pages and the API.
package posts

import "time"

// Error codes specific to posts.
const (
	CodeSlugConflict = "SLUG_CONFLICT"
)

// Term is a tag or category attached to a post. Slug is the identity; Name is display.
type Term struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// Post is a single article in one locale.
type Post struct {
	ID          string     `json:"id"`
	Slug        string     `json:"slug"`
	Locale      string     `json:"locale"`
	Title       string     `json:"title"`
	Excerpt     string     `json:"excerpt"`
	Content     string     `json:"content"`
	CoverImage  string     `json:"coverImage,omitempty"`
	Published   bool       `json:"published"`
	PublishedAt *time.Time `json:"publishedAt,omitempty"`
	Views       int64      `json:"views"`
	AuthorID    string     `json:"authorId"`
	Tags        []Term     `json:"tags"`
	Categories  []Term     `json:"categories"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// Input is the editable part of a post.
type Input struct {
	Title      string   `json:"title" validate:"required,max=200"`
	Excerpt    string   `json:"excerpt" validate:"max=500"`
	Content    string   `json:"content" validate:"required"`
	CoverImage string   `json:"coverImage" validate:"omitempty,url"`
	Locale     string   `json:"locale"`
	Published  bool     `json:"published"`
	Tags       []string `json:"tags" validate:"max=20,dive,max=50"`
	Categories []string `json:"categories" validate:"max=10,dive,max=50"`
}

// ListFilter narrows List results.
type ListFilter struct {
	Locale        string
	PublishedOnly bool
	TagSlug       string
	CategorySlug  string
	Limit         int
	Offset        int
}
