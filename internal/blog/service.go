package blog

import (
	"context"
	"fmt"
	"io"
	"time"
	"unicode/utf8"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"

	"github.com/bloghub/bloghub/internal/mediastore"
	"github.com/bloghub/bloghub/internal/telemetry/metrics"
	"github.com/bloghub/bloghub/internal/telemetry/tracing"
)

type blogRepo interface {
	Insert(ctx context.Context, post *BlogPost) error
	Save(ctx context.Context, post *BlogPost) error
	Delete(ctx context.Context, id int) error
	All(ctx context.Context) ([]*BlogPost, error)
	GetByAuthor(ctx context.Context, authorID int) ([]*BlogPost, error)
	GetByID(ctx context.Context, id int) (*BlogPost, error)
}

// ImageUpload - a new cover image coming in with a create or update request
type ImageUpload struct {
	Filename string
	Content  io.Reader
}

// Service drives the blog post lifecycle, keeping the stored posts and
// their hosted cover images in sync
type Service struct {
	repo           blogRepo
	media          mediastore.Store
	metricsManager *metrics.Manager
}

func NewService(
	repo blogRepo,
	media mediastore.Store,
	metricsManager *metrics.Manager,
) *Service {
	return &Service{
		repo:           repo,
		media:          media,
		metricsManager: metricsManager,
	}
}

// Create uploads the cover image (when given) and stores the new post.
// The image goes out first, a post is never stored pointing to an image
// that failed to upload.
func (s *Service) Create(
	ctx context.Context,
	authorID int,
	title, content string,
	image *ImageUpload,
) (*BlogPost, error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "blogService.create")
	span.SetAttributes(attribute.Int("author.id", authorID))
	defer span.End()

	if title == "" || content == "" {
		return nil, ErrBlogTitleOrContentEmpty
	}
	if utf8.RuneCountInString(title) > MaxTitleLength {
		return nil, ErrBlogTitleTooLong
	}

	post := &BlogPost{
		Title:     title,
		Content:   content,
		Author:    Author{ID: authorID},
		CreatedAt: time.Now(),
	}

	if image != nil {
		uploaded, err := s.media.Upload(ctx, image.Filename, image.Content)
		if err != nil {
			return nil, fmt.Errorf("upload cover image: %w", err)
		}
		s.metricsManager.CounterImageUploads.Inc()
		post.ImageURL = uploaded.URL
		post.ImagePublicID = uploaded.PublicID
	}

	if err := s.repo.Insert(ctx, post); err != nil {
		// the image is already hosted, remove it so it does not leak
		if post.HasImage() {
			s.deleteImage(ctx, post.ImagePublicID)
		}
		return nil, fmt.Errorf("insert blog: %w", err)
	}

	s.metricsManager.CounterBlogPosts.Inc()
	log.Tracef("new blog %d: [%s] added by author %d", post.ID, post.Title, authorID)

	return s.repo.GetByID(ctx, post.ID)
}

// Update changes title and content of the post, empty values keep the
// old ones. A new image replaces the old one: the old image is removed
// from the hosting first, then the new one uploaded.
func (s *Service) Update(
	ctx context.Context,
	userID, id int,
	title, content string,
	image *ImageUpload,
) (*BlogPost, error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "blogService.update")
	span.SetAttributes(attribute.Int("id", id))
	defer span.End()

	if utf8.RuneCountInString(title) > MaxTitleLength {
		return nil, ErrBlogTitleTooLong
	}

	post, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if post.Author.ID != userID {
		return nil, ErrNotOwner
	}

	if title != "" {
		post.Title = title
	}
	if content != "" {
		post.Content = content
	}

	if image != nil {
		if post.HasImage() {
			s.deleteImage(ctx, post.ImagePublicID)
		}

		uploaded, err := s.media.Upload(ctx, image.Filename, image.Content)
		if err != nil {
			return nil, fmt.Errorf("upload cover image: %w", err)
		}
		s.metricsManager.CounterImageUploads.Inc()
		post.ImageURL = uploaded.URL
		post.ImagePublicID = uploaded.PublicID
	}

	if err := s.repo.Save(ctx, post); err != nil {
		return nil, fmt.Errorf("save blog: %w", err)
	}

	return post, nil
}

// Delete removes the post of the given author, together with its
// hosted cover image
func (s *Service) Delete(ctx context.Context, userID, id int) error {
	ctx, span := tracing.GlobalTracer.Start(ctx, "blogService.delete")
	span.SetAttributes(attribute.Int("id", id))
	defer span.End()

	post, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if post.Author.ID != userID {
		return ErrNotOwner
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	if post.HasImage() {
		s.deleteImage(ctx, post.ImagePublicID)
	}

	log.Tracef("blog %d: [%s] deleted by author %d", post.ID, post.Title, userID)

	return nil
}

func (s *Service) Get(ctx context.Context, id int) (*BlogPost, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) All(ctx context.Context) ([]*BlogPost, error) {
	return s.repo.All(ctx)
}

func (s *Service) AllByAuthor(ctx context.Context, authorID int) ([]*BlogPost, error) {
	return s.repo.GetByAuthor(ctx, authorID)
}

// deleteImage removes the hosted image, best effort. The posts in the
// store stay consistent even when the hosting keeps a stray image, so
// a failure here is logged and counted, never propagated.
func (s *Service) deleteImage(ctx context.Context, publicID string) {
	if err := s.media.Delete(ctx, publicID); err != nil {
		s.metricsManager.CounterImageDeleteFailed.Inc()
		log.Errorf("delete image [%s]: %s", publicID, err)
	}
}
