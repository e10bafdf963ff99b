package test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bloghub/bloghub/internal/user"
)

func (s *IntegrationTestSuite) TestAuth() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s.T().Run("register and login", func(t *testing.T) {
		resp := s.registerUser(ctx, "Auth Tester", "auth-tester@bloghub.app", "testpass")
		defer resp.Body.Close()
		require.Equal(t, http.StatusCreated, resp.StatusCode)

		var registered user.User
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&registered))
		assert.Equal(t, "Auth Tester", registered.Name)
		assert.NotZero(t, registered.ID)

		token := s.doLogin(ctx, "auth-tester@bloghub.app", "testpass")
		require.NotEmpty(t, token)
	})

	s.T().Run("register with taken email", func(t *testing.T) {
		resp := s.registerUser(ctx, "First", "taken@bloghub.app", "testpass")
		require.NoError(t, resp.Body.Close())
		require.Equal(t, http.StatusCreated, resp.StatusCode)

		resp = s.registerUser(ctx, "Second", "taken@bloghub.app", "otherpass")
		require.NoError(t, resp.Body.Close())
		assert.Equal(t, http.StatusConflict, resp.StatusCode)
	})

	s.T().Run("login with wrong password", func(t *testing.T) {
		resp := s.registerUser(ctx, "Wrong Pass", "wrong-pass@bloghub.app", "testpass")
		require.NoError(t, resp.Body.Close())
		require.Equal(t, http.StatusCreated, resp.StatusCode)

		loginReqJson := []byte(`{"email":"wrong-pass@bloghub.app","password":"not-it"}`)
		req, err := http.NewRequestWithContext(
			ctx,
			"POST", fmt.Sprintf("%s/auth/login", serverEndpoint),
			bytes.NewReader(loginReqJson),
		)
		require.NoError(t, err)
		req.Header.Set("User-Agent", "test-agent")
		req.Header.Set("Content-Type", "application/json")

		loginResp, err := s.httpClient.Do(req)
		require.NoError(t, err)
		require.NoError(t, loginResp.Body.Close())
		assert.Equal(t, http.StatusBadRequest, loginResp.StatusCode)
	})

	s.T().Run("get logged user and logout", func(t *testing.T) {
		resp := s.registerUser(ctx, "Me Tester", "me-tester@bloghub.app", "testpass")
		require.NoError(t, resp.Body.Close())
		require.Equal(t, http.StatusCreated, resp.StatusCode)

		token := s.doLogin(ctx, "me-tester@bloghub.app", "testpass")

		req, err := http.NewRequestWithContext(
			ctx, "GET", fmt.Sprintf("%s/auth/me", serverEndpoint), nil,
		)
		require.NoError(t, err)
		req.Header.Set("User-Agent", "test-agent")
		req.Header.Set("X-BLOGHUB-TOKEN", token)

		meResp, err := s.httpClient.Do(req)
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, meResp.StatusCode)

		var me user.User
		require.NoError(t, json.NewDecoder(meResp.Body).Decode(&me))
		require.NoError(t, meResp.Body.Close())
		assert.Equal(t, "me-tester@bloghub.app", me.Email)

		// logout, then the token is no good anymore
		req, err = http.NewRequestWithContext(
			ctx, "GET", fmt.Sprintf("%s/auth/logout", serverEndpoint), nil,
		)
		require.NoError(t, err)
		req.Header.Set("User-Agent", "test-agent")
		req.Header.Set("X-BLOGHUB-TOKEN", token)

		logoutResp, err := s.httpClient.Do(req)
		require.NoError(t, err)
		require.NoError(t, logoutResp.Body.Close())
		require.Equal(t, http.StatusOK, logoutResp.StatusCode)

		req, err = http.NewRequestWithContext(
			ctx, "GET", fmt.Sprintf("%s/auth/me", serverEndpoint), nil,
		)
		require.NoError(t, err)
		req.Header.Set("User-Agent", "test-agent")
		req.Header.Set("X-BLOGHUB-TOKEN", token)

		meResp, err = s.httpClient.Do(req)
		require.NoError(t, err)
		require.NoError(t, meResp.Body.Close())
		assert.Equal(t, http.StatusUnauthorized, meResp.StatusCode)
	})
}
