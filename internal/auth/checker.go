package auth

import (
	"context"
	"errors"
)

var ErrNotLoggedIn = errors.New("not logged in")

var _ Checker = (*LoginChecker)(nil)
var _ Checker = (*LoginTestChecker)(nil)

type Checker interface {
	// GetLoggedUserID resolves the session token to the id of the
	// logged-in user, or returns ErrNotLoggedIn
	GetLoggedUserID(ctx context.Context, token string) (int, error)
}
