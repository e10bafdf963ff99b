package blog

import (
	"errors"
	"time"
)

// titles longer than this never reach the store
const MaxTitleLength = 200

var (
	ErrBlogNotFound            = errors.New("blog not found")
	ErrBlogTitleOrContentEmpty = errors.New("blog title or content empty")
	ErrBlogTitleTooLong        = errors.New("blog title too long")
	ErrNotOwner                = errors.New("blog belongs to another author")
)

type Author struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type BlogPost struct {
	ID            int       `json:"id"`
	Title         string    `json:"title"`
	Content       string    `json:"content"`
	Author        Author    `json:"author"`
	ImageURL      string    `json:"image_url,omitempty"`
	ImagePublicID string    `json:"image_public_id,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// HasImage - whether the post holds a hosted cover image
func (b *BlogPost) HasImage() bool {
	return b.ImagePublicID != ""
}
