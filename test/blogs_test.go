package test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bloghub/bloghub/internal/blog"
)

func (s *IntegrationTestSuite) newBlogPostRequest(
	ctx context.Context,
	authToken string,
	title, content string,
) *blog.BlogPost {
	postJson, err := json.Marshal(map[string]string{
		"title":   title,
		"content": content,
	})
	require.NoError(s.T(), err)

	req, err := http.NewRequestWithContext(
		ctx,
		"POST", fmt.Sprintf("%s/blogs", serverEndpoint),
		bytes.NewReader(postJson),
	)
	require.NoError(s.T(), err)
	req.Header.Set("User-Agent", "test-agent")
	req.Header.Set("X-BLOGHUB-TOKEN", authToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	require.NoError(s.T(), err)
	require.Equal(s.T(), http.StatusCreated, resp.StatusCode)
	defer resp.Body.Close()

	var created blog.BlogPost
	require.NoError(s.T(), json.NewDecoder(resp.Body).Decode(&created))
	require.NotZero(s.T(), created.ID)

	return &created
}

func (s *IntegrationTestSuite) newBlogPostWithImageRequest(
	ctx context.Context,
	authToken string,
	title, content string,
) *blog.BlogPost {
	var buf bytes.Buffer
	mpWriter := multipart.NewWriter(&buf)
	require.NoError(s.T(), mpWriter.WriteField("title", title))
	require.NoError(s.T(), mpWriter.WriteField("content", content))
	fileWriter, err := mpWriter.CreateFormFile("image", "cover.png")
	require.NoError(s.T(), err)
	_, err = fileWriter.Write([]byte("png-bytes"))
	require.NoError(s.T(), err)
	require.NoError(s.T(), mpWriter.Close())

	req, err := http.NewRequestWithContext(
		ctx,
		"POST", fmt.Sprintf("%s/blogs", serverEndpoint),
		&buf,
	)
	require.NoError(s.T(), err)
	req.Header.Set("User-Agent", "test-agent")
	req.Header.Set("X-BLOGHUB-TOKEN", authToken)
	req.Header.Set("Content-Type", mpWriter.FormDataContentType())

	resp, err := s.httpClient.Do(req)
	require.NoError(s.T(), err)
	require.Equal(s.T(), http.StatusCreated, resp.StatusCode)
	defer resp.Body.Close()

	var created blog.BlogPost
	require.NoError(s.T(), json.NewDecoder(resp.Body).Decode(&created))
	require.NotZero(s.T(), created.ID)

	return &created
}

func (s *IntegrationTestSuite) getBlogPosts(ctx context.Context, path string, authToken string) []*blog.BlogPost {
	req, err := http.NewRequestWithContext(
		ctx,
		"GET", fmt.Sprintf("%s%s", serverEndpoint, path),
		nil,
	)
	require.NoError(s.T(), err)
	req.Header.Set("User-Agent", "test-agent")
	if authToken != "" {
		req.Header.Set("X-BLOGHUB-TOKEN", authToken)
	}

	resp, err := s.httpClient.Do(req)
	require.NoError(s.T(), err)
	require.Equal(s.T(), http.StatusOK, resp.StatusCode)
	defer resp.Body.Close()

	var posts []*blog.BlogPost
	require.NoError(s.T(), json.NewDecoder(resp.Body).Decode(&posts))

	return posts
}

func (s *IntegrationTestSuite) deleteBlogPostRequest(
	ctx context.Context,
	authToken string,
	postID int,
) (*http.Response, error) {
	req, err := http.NewRequestWithContext(
		ctx,
		"DELETE", fmt.Sprintf("%s/blogs/%d", serverEndpoint, postID),
		nil,
	)
	require.NoError(s.T(), err)
	req.Header.Set("User-Agent", "test-agent")
	req.Header.Set("X-BLOGHUB-TOKEN", authToken)

	return s.httpClient.Do(req)
}

func (s *IntegrationTestSuite) updateBlogPostRequest(
	ctx context.Context,
	authToken string,
	postID int,
	body string,
) (*http.Response, error) {
	req, err := http.NewRequestWithContext(
		ctx,
		"PUT", fmt.Sprintf("%s/blogs/%d", serverEndpoint, postID),
		bytes.NewReader([]byte(body)),
	)
	require.NoError(s.T(), err)
	req.Header.Set("User-Agent", "test-agent")
	req.Header.Set("X-BLOGHUB-TOKEN", authToken)
	req.Header.Set("Content-Type", "application/json")

	return s.httpClient.Do(req)
}

func (s *IntegrationTestSuite) TestBlogs() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s.T().Run("try add blog without auth token", func(t *testing.T) {
		postJson := []byte(`{"title":"test blog","content":"test content"}`)

		req, err := http.NewRequestWithContext(
			ctx,
			"POST", fmt.Sprintf("%s/blogs", serverEndpoint),
			bytes.NewReader(postJson),
		)
		require.NoError(t, err)
		req.Header.Set("User-Agent", "test-agent")
		req.Header.Set("Content-Type", "application/json")

		resp, err := s.httpClient.Do(req)
		require.NoError(t, err)
		assert.NoError(t, resp.Body.Close())
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	s.T().Run("post lifecycle", func(t *testing.T) {
		resp := s.registerUser(ctx, "Blogger One", "blogger-one@bloghub.app", "testpass")
		require.NoError(t, resp.Body.Close())
		require.Equal(t, http.StatusCreated, resp.StatusCode)
		tokenOne := s.doLogin(ctx, "blogger-one@bloghub.app", "testpass")

		resp = s.registerUser(ctx, "Blogger Two", "blogger-two@bloghub.app", "testpass")
		require.NoError(t, resp.Body.Close())
		require.Equal(t, http.StatusCreated, resp.StatusCode)
		tokenTwo := s.doLogin(ctx, "blogger-two@bloghub.app", "testpass")

		post1 := s.newBlogPostRequest(ctx, tokenOne, "test blog 1", "test content 1")
		assert.Equal(t, "Blogger One", post1.Author.Name)
		assert.False(t, post1.HasImage())

		uploadsBefore := s.mediaServer.Uploads()
		post2 := s.newBlogPostWithImageRequest(ctx, tokenTwo, "test blog 2", "test content 2")
		assert.Equal(t, uploadsBefore+1, s.mediaServer.Uploads())
		require.True(t, post2.HasImage())
		assert.NotEmpty(t, post2.ImageURL)

		// public listing, newest first, with authors resolved
		posts := s.getBlogPosts(ctx, "/blogs", "")
		require.Len(t, posts, 2)
		assert.Equal(t, post2.ID, posts[0].ID)
		assert.Equal(t, post1.ID, posts[1].ID)
		assert.Equal(t, "Blogger Two", posts[0].Author.Name)
		assert.Equal(t, "blogger-two@bloghub.app", posts[0].Author.Email)

		// own posts listing
		myPosts := s.getBlogPosts(ctx, "/blogs/user/me", tokenOne)
		require.Len(t, myPosts, 1)
		assert.Equal(t, post1.ID, myPosts[0].ID)

		// update by another author gets rejected
		updateResp, err := s.updateBlogPostRequest(ctx, tokenTwo, post1.ID, `{"title":"hijacked"}`)
		require.NoError(t, err)
		require.NoError(t, updateResp.Body.Close())
		assert.Equal(t, http.StatusForbidden, updateResp.StatusCode)

		// update by the owner, empty content keeps the old one
		updateResp, err = s.updateBlogPostRequest(ctx, tokenOne, post1.ID, `{"title":"updated title"}`)
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, updateResp.StatusCode)
		var updated blog.BlogPost
		require.NoError(t, json.NewDecoder(updateResp.Body).Decode(&updated))
		require.NoError(t, updateResp.Body.Close())
		assert.Equal(t, "updated title", updated.Title)
		assert.Equal(t, "test content 1", updated.Content)

		// try delete with invalid token
		deleteResp, err := s.deleteBlogPostRequest(ctx, "invalid-token", post1.ID)
		require.NoError(t, err)
		require.NoError(t, deleteResp.Body.Close())
		assert.Equal(t, http.StatusUnauthorized, deleteResp.StatusCode)

		// try delete of another author's post
		deleteResp, err = s.deleteBlogPostRequest(ctx, tokenOne, post2.ID)
		require.NoError(t, err)
		require.NoError(t, deleteResp.Body.Close())
		assert.Equal(t, http.StatusForbidden, deleteResp.StatusCode)

		// delete own post with image, its hosted image goes too
		destroysBefore := s.mediaServer.Destroys()
		deleteResp, err = s.deleteBlogPostRequest(ctx, tokenTwo, post2.ID)
		require.NoError(t, err)
		require.NoError(t, deleteResp.Body.Close())
		assert.Equal(t, http.StatusOK, deleteResp.StatusCode)
		assert.Equal(t, destroysBefore+1, s.mediaServer.Destroys())

		posts = s.getBlogPosts(ctx, "/blogs", "")
		require.Len(t, posts, 1)
		assert.Equal(t, post1.ID, posts[0].ID)

		// single post fetch
		req, err := http.NewRequestWithContext(
			ctx, "GET", fmt.Sprintf("%s/blogs/%d", serverEndpoint, post1.ID), nil,
		)
		require.NoError(t, err)
		req.Header.Set("User-Agent", "test-agent")
		getResp, err := s.httpClient.Do(req)
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, getResp.StatusCode)
		var fetched blog.BlogPost
		require.NoError(t, json.NewDecoder(getResp.Body).Decode(&fetched))
		require.NoError(t, getResp.Body.Close())
		assert.Equal(t, "updated title", fetched.Title)

		// and a missing one
		req, err = http.NewRequestWithContext(
			ctx, "GET", fmt.Sprintf("%s/blogs/999999", serverEndpoint), nil,
		)
		require.NoError(t, err)
		req.Header.Set("User-Agent", "test-agent")
		getResp, err = s.httpClient.Do(req)
		require.NoError(t, err)
		require.NoError(t, getResp.Body.Close())
		assert.Equal(t, http.StatusNotFound, getResp.StatusCode)
	})
}
