package user

import (
	"context"
	"sync"
)

var _ userRepo = (*repoMock)(nil)

type repoMock struct {
	Users map[int]*User
	mutex sync.Mutex
}

func newRepoMock() *repoMock {
	return &repoMock{
		Users: make(map[int]*User),
	}
}

func (r *repoMock) Add(_ context.Context, user *User) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	for _, u := range r.Users {
		if u.Email == user.Email {
			return ErrEmailTaken
		}
	}

	if user.ID == 0 {
		user.ID = len(r.Users) + 1
	}

	r.Users[user.ID] = user
	return nil
}

func (r *repoMock) GetByEmail(_ context.Context, email string) (*User, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	for _, u := range r.Users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, ErrUserNotFound
}

func (r *repoMock) GetByID(_ context.Context, id int) (*User, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	u, ok := r.Users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	return u, nil
}
