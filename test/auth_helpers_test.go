package test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/stretchr/testify/require"
)

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *IntegrationTestSuite) registerUser(ctx context.Context, name, email, password string) *http.Response {
	registerReqJson, err := json.Marshal(registerRequest{
		Name:     name,
		Email:    email,
		Password: password,
	})
	require.NoError(s.T(), err)

	req, err := http.NewRequestWithContext(
		ctx,
		"POST", fmt.Sprintf("%s/auth/register", serverEndpoint),
		bytes.NewBuffer(registerReqJson),
	)
	require.NoError(s.T(), err)
	req.Header.Set("User-Agent", "test-agent")
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	require.NoError(s.T(), err)
	return resp
}

func (s *IntegrationTestSuite) doLogin(ctx context.Context, email, password string) string {
	loginReqJson, err := json.Marshal(loginRequest{
		Email:    email,
		Password: password,
	})
	require.NoError(s.T(), err)

	req, err := http.NewRequestWithContext(
		ctx,
		"POST", fmt.Sprintf("%s/auth/login", serverEndpoint),
		bytes.NewBuffer(loginReqJson),
	)
	require.NoError(s.T(), err)
	req.Header.Set("User-Agent", "test-agent")
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	require.NoError(s.T(), err)
	require.Equal(s.T(), http.StatusOK, resp.StatusCode)
	defer resp.Body.Close()

	var loginResp struct {
		Token string `json:"token"`
	}
	require.NoError(s.T(), json.NewDecoder(resp.Body).Decode(&loginResp))
	require.NotEmpty(s.T(), loginResp.Token)

	return loginResp.Token
}
