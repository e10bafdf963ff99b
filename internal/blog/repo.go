package blog

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"

	"github.com/bloghub/bloghub/internal/telemetry/tracing"
	"github.com/bloghub/bloghub/pkg"
)

// manual caching of blog posts not needed (at least for this use case):
// https://github.com/jackc/pgx/wiki/Automatic-Prepared-Statement-Caching

var _ blogRepo = (*Repo)(nil)

type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{
		db: db,
	}
}

const blogSelect = `
	SELECT
		b.id, b.title, b.content,
		b.image_url, b.image_public_id,
		b.created_at, b.updated_at,
		u.id, u.name, u.email
	FROM blog b
	JOIN users u ON u.id = b.author_id
`

func (r *Repo) Insert(ctx context.Context, post *BlogPost) error {
	ctx, span := tracing.GlobalTracer.Start(ctx, "blogRepo.insert")
	defer span.End()

	if post.Content == "" || post.Title == "" {
		return ErrBlogTitleOrContentEmpty
	}
	if utf8.RuneCountInString(post.Title) > MaxTitleLength {
		return ErrBlogTitleTooLong
	}

	if post.CreatedAt.IsZero() {
		post.CreatedAt = time.Now()
	}
	post.UpdatedAt = post.CreatedAt

	rows, err := r.db.Query(
		ctx,
		`INSERT INTO blog (title, content, author_id, image_url, image_public_id, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id;`,
		post.Title, post.Content, post.Author.ID,
		post.ImageURL, post.ImagePublicID,
		post.CreatedAt, post.UpdatedAt,
	)
	if err != nil {
		if pkg.IsForeignKeyViolationError(err) {
			return fmt.Errorf("author %d does not exist", post.Author.ID)
		}
		return err
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return err
	}

	if rows.Next() {
		var id int
		if err := rows.Scan(&id); err == nil {
			post.ID = id
			return nil
		}
	}

	// a statement error can surface only after the rows are read
	if err := rows.Err(); err != nil {
		if pkg.IsForeignKeyViolationError(err) {
			return fmt.Errorf("author %d does not exist", post.Author.ID)
		}
		return err
	}

	return errors.New("unexpected error, failed to insert blog")
}

// Save stores the changed title, content and image of the blog
// createdAt and author are not updated
func (r *Repo) Save(ctx context.Context, post *BlogPost) error {
	ctx, span := tracing.GlobalTracer.Start(ctx, "blogRepo.save")
	span.SetAttributes(attribute.Int("id", post.ID))
	defer span.End()

	if post.Content == "" || post.Title == "" {
		return ErrBlogTitleOrContentEmpty
	}
	if utf8.RuneCountInString(post.Title) > MaxTitleLength {
		return ErrBlogTitleTooLong
	}

	post.UpdatedAt = time.Now()

	tag, err := r.db.Exec(
		ctx,
		`UPDATE blog SET title = $1, content = $2, image_url = $3, image_public_id = $4, updated_at = $5
			WHERE id = $6`,
		post.Title, post.Content, post.ImageURL, post.ImagePublicID, post.UpdatedAt, post.ID,
	)
	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return ErrBlogNotFound
	}

	return nil
}

func (r *Repo) Delete(ctx context.Context, id int) error {
	ctx, span := tracing.GlobalTracer.Start(ctx, "blogRepo.delete")
	span.SetAttributes(attribute.Int("id", id))
	defer span.End()

	tag, err := r.db.Exec(ctx, `DELETE FROM blog WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrBlogNotFound
	}
	return nil
}

func (r *Repo) All(ctx context.Context) ([]*BlogPost, error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "blogRepo.all")
	defer span.End()

	rows, err := r.db.Query(
		ctx,
		blogSelect+`ORDER BY b.created_at DESC, b.id DESC;`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return r.rows2posts(rows)
}

func (r *Repo) GetByAuthor(ctx context.Context, authorID int) ([]*BlogPost, error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "blogRepo.getByAuthor")
	span.SetAttributes(attribute.Int("author.id", authorID))
	defer span.End()

	rows, err := r.db.Query(
		ctx,
		blogSelect+`WHERE b.author_id = $1 ORDER BY b.created_at DESC, b.id DESC;`,
		authorID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return r.rows2posts(rows)
}

func (r *Repo) GetByID(ctx context.Context, id int) (*BlogPost, error) {
	log.Tracef("getting blog %d", id)

	ctx, span := tracing.GlobalTracer.Start(ctx, "blogRepo.getByID")
	span.SetAttributes(attribute.Int("id", id))
	defer span.End()

	rows, err := r.db.Query(
		ctx,
		blogSelect+`WHERE b.id = $1;`,
		id,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return nil, err
	}

	if !rows.Next() {
		return nil, ErrBlogNotFound
	}

	return scanPost(rows)
}

func (r *Repo) rows2posts(rows pgx.Rows) ([]*BlogPost, error) {
	var posts []*BlogPost
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, post)
	}
	return posts, nil
}

func scanPost(rows pgx.Rows) (*BlogPost, error) {
	var post BlogPost
	if err := rows.Scan(
		&post.ID, &post.Title, &post.Content,
		&post.ImageURL, &post.ImagePublicID,
		&post.CreatedAt, &post.UpdatedAt,
		&post.Author.ID, &post.Author.Name, &post.Author.Email,
	); err != nil {
		return nil, err
	}
	return &post, nil
}
