// Package api is the gateway to the external blog REST API. A single
// client instance attaches the current bearer token to every outgoing
// request.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/codeGROOVE-dev/retry"

	"blogfront/pkg/blog"
)

// TokenSource supplies the bearer token for outgoing requests. An empty
// token means the request goes out unauthenticated.
type TokenSource interface {
	Token(ctx context.Context) string
}

// StatusError indicates a non-2xx response from the API.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.URL)
}

// IsUnauthorized checks if an error is an authentication rejection from
// the API.
func IsUnauthorized(err error) bool {
	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		return false
	}
	return statusErr.StatusCode == http.StatusUnauthorized || statusErr.StatusCode == http.StatusForbidden
}

// Client issues requests against the API's /api base path.
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
	tokens     TokenSource
	baseURL    string
}

// New creates an API client. baseURL is the host root, without the /api
// suffix.
func New(httpClient *http.Client, baseURL string, tokens TokenSource, logger *slog.Logger) *Client {
	return &Client{
		httpClient: httpClient,
		logger:     logger,
		tokens:     tokens,
		baseURL:    strings.TrimSuffix(baseURL, "/"),
	}
}

func (c *Client) endpoint(parts ...string) string {
	escaped := make([]string, 0, len(parts))
	for _, p := range parts {
		escaped = append(escaped, url.PathEscape(p))
	}
	return c.baseURL + "/api/" + strings.Join(escaped, "/")
}

// do executes a request, attaching the bearer token when one is stored.
// The response body is returned for 2xx statuses only.
func (c *Client) do(ctx context.Context, method, reqURL string, contentType string, body io.Reader) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, reqURL, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token := c.tokens.Token(ctx); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	startTime := time.Now()
	resp, err := c.httpClient.Do(req)
	duration := time.Since(startTime)

	if err != nil {
		c.logger.Warn("API request failed",
			"method", method,
			"url", reqURL,
			"duration_ms", duration.Milliseconds(),
			"error", err)
		return nil, err
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			c.logger.Warn("Failed to close response body", "error", closeErr)
		}
	}()

	c.logger.Info("API request completed",
		"method", method,
		"url", reqURL,
		"status_code", resp.StatusCode,
		"duration_ms", duration.Milliseconds())

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, &StatusError{URL: reqURL, StatusCode: resp.StatusCode}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	return data, nil
}

// get fetches and decodes a read endpoint with retries. Client errors are
// not retried.
func (c *Client) get(ctx context.Context, reqURL string, v any) error {
	err := retry.Do(
		func() error {
			data, err := c.do(ctx, http.MethodGet, reqURL, "", http.NoBody)
			if err != nil {
				var statusErr *StatusError
				if errors.As(err, &statusErr) && statusErr.StatusCode < http.StatusInternalServerError {
					return retry.Unrecoverable(err)
				}
				return err
			}
			if err := json.Unmarshal(data, v); err != nil {
				return retry.Unrecoverable(fmt.Errorf("decode response: %w", err))
			}
			return nil
		},
		retry.Attempts(3),
		retry.Delay(time.Second),
		retry.MaxDelay(30*time.Second),
		retry.MaxJitter(5*time.Second),
		retry.Context(ctx),
		retry.OnRetry(func(n uint, retryErr error) {
			c.logger.Info("Retrying fetch after error", "attempt", n, "url", reqURL, "error", retryErr)
		}),
	)
	if err != nil {
		return fmt.Errorf("after retries: %w", err)
	}
	return nil
}

// ListPosts returns every post the API exposes to the current session.
func (c *Client) ListPosts(ctx context.Context) ([]*blog.Post, error) {
	var posts []*blog.Post
	if err := c.get(ctx, c.endpoint("posts"), &posts); err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	return posts, nil
}

// PostBySlug returns a single post with its comments embedded.
func (c *Client) PostBySlug(ctx context.Context, slug string) (*blog.Post, error) {
	var post blog.Post
	if err := c.get(ctx, c.endpoint("posts", "slug", slug), &post); err != nil {
		return nil, fmt.Errorf("fetch post %q: %w", slug, err)
	}
	return &post, nil
}

// Upload is a file attachment included with a new post.
type Upload struct {
	Name string
	Data []byte
}

// CreatePostInput carries the fields of the multipart create request.
type CreatePostInput struct {
	Title     string
	Slug      string
	Content   string
	Excerpt   string
	Tags      string // comma-separated, passed through as typed
	Published bool
	Files     []Upload
}

// CreatePost submits a new post as a multipart form. Mutations are
// single-shot: a failure surfaces immediately with no retry.
func (c *Client) CreatePost(ctx context.Context, in CreatePostInput) (*blog.Post, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	fields := map[string]string{
		"title":     in.Title,
		"slug":      in.Slug,
		"content":   in.Content,
		"excerpt":   in.Excerpt,
		"tags":      in.Tags,
		"published": strconv.FormatBool(in.Published),
	}
	for name, value := range fields {
		if err := mw.WriteField(name, value); err != nil {
			return nil, fmt.Errorf("write form field %s: %w", name, err)
		}
	}
	for _, f := range in.Files {
		fw, err := mw.CreateFormFile("files", f.Name)
		if err != nil {
			return nil, fmt.Errorf("create form file %s: %w", f.Name, err)
		}
		if _, err := fw.Write(f.Data); err != nil {
			return nil, fmt.Errorf("write form file %s: %w", f.Name, err)
		}
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("close multipart writer: %w", err)
	}

	data, err := c.do(ctx, http.MethodPost, c.endpoint("posts"), mw.FormDataContentType(), &buf)
	if err != nil {
		return nil, fmt.Errorf("create post: %w", err)
	}

	var post blog.Post
	if err := json.Unmarshal(data, &post); err != nil {
		return nil, fmt.Errorf("decode created post: %w", err)
	}
	return &post, nil
}

// UpdatePost applies a partial JSON update, e.g. {"published": true}.
func (c *Client) UpdatePost(ctx context.Context, id string, patch map[string]any) (*blog.Post, error) {
	body, err := json.Marshal(patch)
	if err != nil {
		return nil, fmt.Errorf("marshal patch: %w", err)
	}

	data, err := c.do(ctx, http.MethodPut, c.endpoint("posts", id), "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("update post %s: %w", id, err)
	}

	var post blog.Post
	if err := json.Unmarshal(data, &post); err != nil {
		return nil, fmt.Errorf("decode updated post: %w", err)
	}
	return &post, nil
}

// DeletePost removes a post.
func (c *Client) DeletePost(ctx context.Context, id string) error {
	if _, err := c.do(ctx, http.MethodDelete, c.endpoint("posts", id), "", http.NoBody); err != nil {
		return fmt.Errorf("delete post %s: %w", id, err)
	}
	return nil
}

// ToggleLike flips the like state of a post for the current session. The
// returned status is authoritative and fully replaces displayed state.
func (c *Client) ToggleLike(ctx context.Context, id string) (*blog.LikeStatus, error) {
	data, err := c.do(ctx, http.MethodPut, c.endpoint("posts", id, "like"), "", http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("toggle like on %s: %w", id, err)
	}

	var status blog.LikeStatus
	if err := json.Unmarshal(data, &status); err != nil {
		return nil, fmt.Errorf("decode like status: %w", err)
	}
	return &status, nil
}

// AddComment posts a comment. Callers re-fetch the post afterwards rather
// than trusting a partial response.
func (c *Client) AddComment(ctx context.Context, postID, text string) error {
	body, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return fmt.Errorf("marshal comment: %w", err)
	}

	if _, err := c.do(ctx, http.MethodPost, c.endpoint("posts", postID, "comments"), "application/json", bytes.NewReader(body)); err != nil {
		return fmt.Errorf("add comment to %s: %w", postID, err)
	}
	return nil
}
