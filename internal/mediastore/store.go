package mediastore

import (
	"context"
	"errors"
	"io"
)

var (
	ErrUploadFailed  = errors.New("image upload failed")
	ErrImageNotFound = errors.New("image not found")
)

// UploadedImage is the hosted copy of an uploaded image
type UploadedImage struct {
	URL      string `json:"secure_url"`
	PublicID string `json:"public_id"`
}

var _ Store = (*Client)(nil)
var _ Store = (*TestStore)(nil)

type Store interface {
	Upload(ctx context.Context, filename string, content io.Reader) (*UploadedImage, error)
	Delete(ctx context.Context, publicID string) error
}
