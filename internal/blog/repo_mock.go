package blog

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"
	"unicode/utf8"
)

var _ blogRepo = (*repoMock)(nil)

type repoMock struct {
	Posts map[int]*BlogPost

	InsertErr error
	SaveErr   error

	mutex  sync.Mutex
	nextID int
}

func newRepoMock() *repoMock {
	return &repoMock{
		Posts:  make(map[int]*BlogPost),
		nextID: 1,
	}
}

func (r *repoMock) Insert(_ context.Context, post *BlogPost) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if r.InsertErr != nil {
		return r.InsertErr
	}

	if post.Content == "" || post.Title == "" {
		return ErrBlogTitleOrContentEmpty
	}
	if utf8.RuneCountInString(post.Title) > MaxTitleLength {
		return ErrBlogTitleTooLong
	}

	if post.ID == 0 {
		post.ID = r.nextID
		r.nextID++
	}

	if _, ok := r.Posts[post.ID]; ok {
		return errors.New("blog exists already")
	}

	if post.CreatedAt.IsZero() {
		post.CreatedAt = time.Now()
	}
	post.UpdatedAt = post.CreatedAt

	stored := *post
	r.Posts[post.ID] = &stored
	return nil
}

func (r *repoMock) Save(_ context.Context, post *BlogPost) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if r.SaveErr != nil {
		return r.SaveErr
	}

	if utf8.RuneCountInString(post.Title) > MaxTitleLength {
		return ErrBlogTitleTooLong
	}

	if _, ok := r.Posts[post.ID]; !ok {
		return ErrBlogNotFound
	}

	post.UpdatedAt = time.Now()
	stored := *post
	r.Posts[post.ID] = &stored
	return nil
}

func (r *repoMock) Delete(_ context.Context, id int) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if _, ok := r.Posts[id]; !ok {
		return ErrBlogNotFound
	}

	delete(r.Posts, id)
	return nil
}

func (r *repoMock) All(_ context.Context) ([]*BlogPost, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	var posts []*BlogPost
	for id := range r.Posts {
		posts = append(posts, r.Posts[id])
	}
	sortNewestFirst(posts)
	return posts, nil
}

func (r *repoMock) GetByAuthor(_ context.Context, authorID int) ([]*BlogPost, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	var posts []*BlogPost
	for id := range r.Posts {
		if r.Posts[id].Author.ID == authorID {
			posts = append(posts, r.Posts[id])
		}
	}
	sortNewestFirst(posts)
	return posts, nil
}

func (r *repoMock) GetByID(_ context.Context, id int) (*BlogPost, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	post, ok := r.Posts[id]
	if !ok {
		return nil, ErrBlogNotFound
	}

	found := *post
	return &found, nil
}

func sortNewestFirst(posts []*BlogPost) {
	sort.Slice(posts, func(i, j int) bool {
		if posts[i].CreatedAt.Equal(posts[j].CreatedAt) {
			return posts[i].ID > posts[j].ID
		}
		return posts[i].CreatedAt.After(posts[j].CreatedAt)
	})
}
