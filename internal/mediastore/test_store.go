package mediastore

import (
	"context"
	"fmt"
	"io"
	"sync"
)

// TestStore - an in-memory Store usable in unit tests
type TestStore struct {
	Uploaded map[string]*UploadedImage

	UploadErr error
	DeleteErr error

	UploadCalls int
	DeleteCalls int

	mutex sync.Mutex
}

func NewTestStore() *TestStore {
	return &TestStore{
		Uploaded: make(map[string]*UploadedImage),
	}
}

func (s *TestStore) Upload(_ context.Context, filename string, content io.Reader) (*UploadedImage, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.UploadCalls++
	if s.UploadErr != nil {
		return nil, s.UploadErr
	}

	if _, err := io.ReadAll(content); err != nil {
		return nil, err
	}

	uploaded := &UploadedImage{
		URL:      fmt.Sprintf("https://media.test/%s/%d-%s", uploadFolder, s.UploadCalls, filename),
		PublicID: fmt.Sprintf("%s/test-%d", uploadFolder, s.UploadCalls),
	}
	s.Uploaded[uploaded.PublicID] = uploaded
	return uploaded, nil
}

func (s *TestStore) Delete(_ context.Context, publicID string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.DeleteCalls++
	if s.DeleteErr != nil {
		return s.DeleteErr
	}

	if _, ok := s.Uploaded[publicID]; !ok {
		return ErrImageNotFound
	}

	delete(s.Uploaded, publicID)
	return nil
}
