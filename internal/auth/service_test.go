package auth

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/go-redis/redismock/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(
		m,
		// related to: https://github.com/go-redis/redis/issues/1029
		goleak.IgnoreTopFunction(
			"github.com/go-redis/redis/v8/internal/pool.(*ConnPool).reaper",
		),
	)
}

func TestNewService(t *testing.T) {
	db, _ := redismock.NewClientMock()
	s := NewService(time.Hour, db)
	require.NotNil(t, s)
	assert.NotNil(t, s.RandStringFunc)
	assert.Equal(t, time.Hour, s.ttl)
}

func TestService_Login(t *testing.T) {
	db, mock := redismock.NewClientMock()
	s := NewService(time.Hour, db)
	s.RandStringFunc = func(_ int) (string, error) {
		return "test-token", nil
	}

	now := time.Now()
	mock.ExpectSet(
		"bloghub-session||test-token",
		fmt.Sprintf("42:%d", now.Unix()),
		0,
	).SetVal("OK")
	mock.ExpectSAdd("bloghub-sessions", "test-token").SetVal(1)

	token, err := s.Login(context.Background(), 42, now)
	require.NoError(t, err)
	assert.Equal(t, "test-token", token)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestService_Login_randStringError(t *testing.T) {
	db, mock := redismock.NewClientMock()
	s := NewService(time.Hour, db)
	s.RandStringFunc = func(_ int) (string, error) {
		return "", fmt.Errorf("no randomness today")
	}

	token, err := s.Login(context.Background(), 42, time.Now())
	require.Error(t, err)
	assert.Empty(t, token)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestService_Logout(t *testing.T) {
	db, mock := redismock.NewClientMock()
	s := NewService(time.Hour, db)

	now := time.Now()
	mock.ExpectGet("bloghub-session||test-token").
		SetVal(fmt.Sprintf("42:%d", now.Unix()))
	mock.ExpectDel("bloghub-session||test-token").SetVal(1)
	mock.ExpectSRem("bloghub-sessions", "test-token").SetVal(1)

	loggedOut, err := s.Logout(context.Background(), "test-token")
	require.NoError(t, err)
	assert.True(t, loggedOut)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestService_Logout_noSuchSession(t *testing.T) {
	db, mock := redismock.NewClientMock()
	s := NewService(time.Hour, db)

	mock.ExpectGet("bloghub-session||missing-token").RedisNil()

	loggedOut, err := s.Logout(context.Background(), "missing-token")
	require.Error(t, err)
	assert.False(t, loggedOut)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestService_ScanAndClean(t *testing.T) {
	db, mock := redismock.NewClientMock()
	s := NewService(time.Hour, db)

	freshCreatedAt := time.Now().Add(-time.Minute)
	staleCreatedAt := time.Now().Add(-2 * time.Hour)

	mock.ExpectSMembers("bloghub-sessions").
		SetVal([]string{"fresh-token", "stale-token"})
	mock.ExpectGet("bloghub-session||fresh-token").
		SetVal(fmt.Sprintf("1:%d", freshCreatedAt.Unix()))
	mock.ExpectGet("bloghub-session||stale-token").
		SetVal(fmt.Sprintf("2:%d", staleCreatedAt.Unix()))

	// only the stale session gets removed
	mock.ExpectDel("bloghub-session||stale-token").SetVal(1)
	mock.ExpectSRem("bloghub-sessions", "stale-token").SetVal(1)

	s.ScanAndClean(context.Background())
	require.NoError(t, mock.ExpectationsWereMet())
}
