// Package api implements the HTTP client for the external platform
// API: bearer authentication with one-shot refresh-and-retry, response
// envelope normalization and the error taxonomy used by the views.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/englishstudent/client/internal/auth"
)

// expirySkew refreshes slightly before the access token actually
// expires so an in-flight request does not race the deadline.
const expirySkew = 10 * time.Second

// Client talks to the platform API. Safe for concurrent use; the
// document and audio sides of a pair fetch independently.
type Client struct {
	baseURL string
	http    *http.Client
	// fileHTTP carries the generous timeout for binary content.
	fileHTTP *http.Client
	tokens   *auth.TokenStore
	logger   *zap.Logger

	refreshMu sync.Mutex
	now       func() time.Time
}

// NewClient creates a client for the API at baseURL. timeout applies
// to JSON endpoints, fileTimeout to binary content fetches.
func NewClient(baseURL string, timeout, fileTimeout time.Duration, tokens *auth.TokenStore, logger *zap.Logger) *Client {
	return &Client{
		baseURL:  baseURL,
		http:     &http.Client{Timeout: timeout},
		fileHTTP: &http.Client{Timeout: fileTimeout},
		tokens:   tokens,
		logger:   logger,
		now:      time.Now,
	}
}

// requestOptions carries per-request settings for doRaw.
type requestOptions struct {
	body        []byte
	contentType string
	accept      string
	// noAuth skips the bearer header and the refresh-and-retry dance
	// (login, register, refresh itself).
	noAuth bool
	// file selects the long-timeout client.
	file bool
}

// doRaw issues one request with bearer auth and at most one
// refresh-and-retry on 401. The body is kept as bytes so the retry can
// replay it.
func (c *Client) doRaw(ctx context.Context, method, path string, opts requestOptions) (*http.Response, error) {
	hc := c.http
	if opts.file {
		hc = c.fileHTTP
	}

	if !opts.noAuth {
		c.ensureFreshToken(ctx)
	}

	for attempt := 0; ; attempt++ {
		var body io.Reader
		if opts.body != nil {
			body = bytes.NewReader(opts.body)
		}

		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
		if err != nil {
			return nil, fmt.Errorf("failed to build request: %w", err)
		}
		if opts.contentType != "" {
			req.Header.Set("Content-Type", opts.contentType)
		}
		if opts.accept != "" {
			req.Header.Set("Accept", opts.accept)
		}
		if !opts.noAuth {
			if token := c.tokens.AccessToken(); token != "" {
				req.Header.Set("Authorization", "Bearer "+token)
			}
		}

		resp, err := hc.Do(req)
		if err != nil {
			return nil, connectionError(err)
		}

		// One silent recovery: refresh the access token and replay the
		// original request with the new one.
		if resp.StatusCode == http.StatusUnauthorized && !opts.noAuth && attempt == 0 && c.tokens.RefreshToken() != "" {
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()

			if err := c.refreshAccessToken(ctx); err != nil {
				c.logger.Warn("token refresh failed, clearing session", zap.Error(err))
				if clearErr := c.tokens.Clear(); clearErr != nil {
					c.logger.Error("failed to clear session", zap.Error(clearErr))
				}
				return nil, ErrSessionExpired
			}
			continue
		}

		return resp, nil
	}
}

// doJSON issues a JSON request and decodes a JSON response into out
// (out may be nil).
func (c *Client) doJSON(ctx context.Context, method, path string, payload, out any) error {
	opts := requestOptions{accept: "application/json"}
	if payload != nil {
		body, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		opts.body = body
		opts.contentType = "application/json"
	}

	resp, err := c.doRaw(ctx, method, path, opts)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return responseError(resp)
	}

	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// ensureFreshToken refreshes proactively when the stored access token
// is already past its exp claim. Failures are left to the normal 401
// path.
func (c *Client) ensureFreshToken(ctx context.Context) {
	exp := c.tokens.AccessTokenExpiresAt()
	if exp.IsZero() || c.now().Before(exp.Add(-expirySkew)) {
		return
	}
	if c.tokens.RefreshToken() == "" {
		return
	}
	if err := c.refreshAccessToken(ctx); err != nil {
		c.logger.Debug("proactive token refresh failed", zap.Error(err))
	}
}

// refreshAccessToken exchanges the refresh token for a new access
// token. Serialized so concurrent document/audio fetches refresh once.
func (c *Client) refreshAccessToken(ctx context.Context) error {
	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()

	refresh := c.tokens.RefreshToken()
	if refresh == "" {
		return fmt.Errorf("no refresh token")
	}

	body, err := json.Marshal(map[string]string{"refresh": refresh})
	if err != nil {
		return fmt.Errorf("failed to encode refresh request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/auth/refresh/", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build refresh request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return connectionError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return responseError(resp)
	}

	var payload struct {
		Access string `json:"access"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return fmt.Errorf("failed to decode refresh response: %w", err)
	}
	if payload.Access == "" {
		return fmt.Errorf("refresh response carried no access token")
	}

	if err := c.tokens.SetAccessToken(payload.Access); err != nil {
		return fmt.Errorf("failed to store refreshed token: %w", err)
	}

	c.logger.Debug("access token refreshed")
	return nil
}

// getList fetches a list endpoint, accepting both a bare JSON array
// and a {"results": [...]} envelope.
func getList[T any](ctx context.Context, c *Client, path string) ([]T, error) {
	resp, err := c.doRaw(ctx, http.MethodGet, path, requestOptions{accept: "application/json"})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, responseError(resp)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	return decodeList[T](data)
}

// jsonBody marshals a request payload, tolerating nil.
func jsonBody(payload any) ([]byte, error) {
	if payload == nil {
		return nil, nil
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}
	return body, nil
}

// decodeJSON decodes a response body into out, tolerating nil out.
func decodeJSON(resp *http.Response, out any) error {
	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// decodeList normalizes the API's two list shapes into a slice.
func decodeList[T any](data []byte) ([]T, error) {
	var items []T
	if err := json.Unmarshal(data, &items); err == nil {
		return items, nil
	}

	var envelope struct {
		Results []T `json:"results"`
	}
	if err := json.Unmarshal(data, &envelope); err == nil && envelope.Results != nil {
		return envelope.Results, nil
	}

	return nil, fmt.Errorf("unexpected list payload")
}
