// Package taxonomy lists and creates the tags and categories posts are filed under.
package taxonomy

// Tag is a free-form label with the number of published posts carrying it.
type Tag struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Slug      string `json:"slug"`
	PostCount int    `json:"postCount"`
}

// Category is a curated grouping of posts.
type Category struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	Description string `json:"description,omitempty"`
	PostCount   int    `json:"postCount"`
}

// CreateTagInput is the payload for a new tag.
type CreateTagInput struct {
	Name string `json:"name" validate:"required,max=50"`
}
