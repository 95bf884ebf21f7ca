package jira

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/randalmurphal/ticketflow/httpx"
)

const commentPageSize = 50

// Client talks to the Jira REST API. It works against both Cloud and
// Server deployments; DetectDeployment resolves which one it is and
// locks in the matching API version.
type Client struct {
	cfg        *Config
	httpClient *http.Client
	baseURL    string
	apiVersion APIVersion

	mu        sync.RWMutex
	remaining int // from X-RateLimit-Remaining, -1 when unknown
	resetTime time.Time

	deploymentType DeploymentType
	serverInfo     *ServerInfo
}

// ClientOption configures the client.
type ClientOption func(*Client)

// WithHTTPClient replaces the default HTTP client, mainly for tests
// against httptest servers.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// NewClient validates cfg and builds a client. No network calls happen
// until the first request.
func NewClient(cfg *Config, opts ...ClientOption) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	timeout := cfg.HTTP.Timeout
	if timeout == 0 {
		timeout = httpx.DefaultTimeout
	}

	c := &Client{
		cfg:     cfg,
		baseURL: strings.TrimSuffix(cfg.URL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:    cfg.HTTP.MaxIdleConns,
				IdleConnTimeout: cfg.HTTP.IdleConnTimeout,
			},
		},
		remaining: -1,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.apiVersion = cfg.GetAPIVersion()

	return c, nil
}

// BaseURL returns the normalized base URL of the Jira instance.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// DetectDeployment calls serverInfo to learn whether the instance is
// Cloud or Server, and when APIVersion is auto, switches the client to
// v3 or v2 to match.
func (c *Client) DetectDeployment(ctx context.Context) (DeploymentType, error) {
	info, err := c.GetServerInfo(ctx)
	if err != nil {
		return "", err
	}

	c.serverInfo = info
	c.deploymentType = DeploymentType(info.DeploymentType)

	if c.cfg.APIVersion == APIVersionAuto {
		if c.deploymentType == DeploymentCloud {
			c.apiVersion = APIVersionV3
		} else {
			c.apiVersion = APIVersionV2
		}
	}

	return c.deploymentType, nil
}

// GetServerInfo fetches /serverInfo, trying v3 then v2 since the
// deployment type is not yet known at this point.
func (c *Client) GetServerInfo(ctx context.Context) (*ServerInfo, error) {
	for _, version := range []string{"3", "2"} {
		info, err := c.tryGetServerInfo(ctx, version)
		if err != nil {
			continue
		}
		return info, nil
	}
	return nil, fmt.Errorf("failed to get server info from %s", c.baseURL)
}

func (c *Client) tryGetServerInfo(ctx context.Context, version string) (*ServerInfo, error) {
	path := fmt.Sprintf("/rest/api/%s/serverInfo", version)
	req, err := c.newRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}

	// serverInfo allows anonymous access; sending credentials to an
	// instance that rejects our auth scheme would turn a working probe
	// into a 401.
	req.Header.Del("Authorization")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	var info ServerInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, err
	}
	return &info, nil
}

// GetIssue retrieves an issue by key.
func (c *Client) GetIssue(ctx context.Context, key string) (*Issue, error) {
	if !ValidateIssueKey(key) {
		return nil, ErrIssueKeyInvalid
	}

	var issue Issue
	if err := c.call(ctx, http.MethodGet, c.apiPath("/issue/"+key), nil, &issue); err != nil {
		return nil, err
	}
	return &issue, nil
}

// GetTransitions lists the transitions available from the issue's
// current status.
func (c *Client) GetTransitions(ctx context.Context, key string) ([]Transition, error) {
	if !ValidateIssueKey(key) {
		return nil, ErrIssueKeyInvalid
	}

	var result TransitionsResponse
	path := c.apiPath("/issue/" + key + "/transitions")
	if err := c.call(ctx, http.MethodGet, path, nil, &result); err != nil {
		return nil, err
	}
	return result.Transitions, nil
}

// TransitionIssue executes a transition by ID.
func (c *Client) TransitionIssue(ctx context.Context, key, transitionID string) error {
	if !ValidateIssueKey(key) {
		return ErrIssueKeyInvalid
	}
	if transitionID == "" {
		return ErrTransitionIDRequired
	}

	path := c.apiPath("/issue/" + key + "/transitions")
	body := &TransitionRequest{Transition: TransitionRef{ID: transitionID}}
	return c.call(ctx, http.MethodPost, path, body, nil)
}

// TransitionIssueByName resolves a transition by its display name
// (case-insensitive) and executes it. Workflows configure transitions
// by name because IDs differ between Jira projects.
func (c *Client) TransitionIssueByName(ctx context.Context, key, transitionName string) error {
	transitions, err := c.GetTransitions(ctx, key)
	if err != nil {
		return err
	}
	for _, t := range transitions {
		if strings.EqualFold(t.Name, transitionName) {
			return c.TransitionIssue(ctx, key, t.ID)
		}
	}
	return ErrTransitionNotFound
}

// GetComments retrieves one page of comments. A maxResults of 0 uses
// the default page size.
func (c *Client) GetComments(ctx context.Context, key string, startAt, maxResults int) (*CommentsResponse, error) {
	if !ValidateIssueKey(key) {
		return nil, ErrIssueKeyInvalid
	}
	if maxResults <= 0 {
		maxResults = commentPageSize
	}

	path := fmt.Sprintf("%s?startAt=%d&maxResults=%d",
		c.apiPath("/issue/"+key+"/comment"), startAt, maxResults)

	var result CommentsResponse
	if err := c.call(ctx, http.MethodGet, path, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Comments returns a lazy iterator over every comment on an issue.
func (c *Client) Comments(key string) *httpx.PageIterator[Comment] {
	var iter *httpx.PageIterator[Comment]
	iter = httpx.NewPageIterator(func(ctx context.Context, page int) ([]Comment, bool, error) {
		resp, err := c.GetComments(ctx, key, page*commentPageSize, commentPageSize)
		if err != nil {
			return nil, false, err
		}
		iter.SetTotal(resp.Total)
		hasMore := resp.StartAt+len(resp.Comments) < resp.Total
		return resp.Comments, hasMore, nil
	})
	return iter
}

// AddComment posts a comment. Body is an ADF document on v3 or a wiki
// markup string on v2; use RichTextConverter to build the right one.
func (c *Client) AddComment(ctx context.Context, key string, body any) (*Comment, error) {
	if !ValidateIssueKey(key) {
		return nil, ErrIssueKeyInvalid
	}

	var comment Comment
	path := c.apiPath("/issue/" + key + "/comment")
	if err := c.call(ctx, http.MethodPost, path, &AddCommentRequest{Body: body}, &comment); err != nil {
		return nil, err
	}
	return &comment, nil
}

// RichTextConverter returns the converter matching the API version in
// use: ADF for v3, wiki markup for v2.
func (c *Client) RichTextConverter() RichTextConverter {
	if c.apiVersion == APIVersionV2 {
		return NewServerConverter()
	}
	return NewCloudConverter()
}

// call runs one issue-scoped API request: marshal, retry, map 404 to
// ErrIssueNotFound, decode into out when out is non-nil.
func (c *Client) call(ctx context.Context, method, path string, body, out any) error {
	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return err
	}

	resp, err := c.doWithRetry(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrIssueNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return parseAPIError(resp, resp.Request.URL.Path)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

func (c *Client) apiPath(endpoint string) string {
	version := c.apiVersion
	if version == APIVersionAuto {
		version = APIVersionV3
	}
	return fmt.Sprintf("/rest/api/%s%s", strings.TrimPrefix(string(version), "v"), endpoint)
}

func (c *Client) newRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	u, err := url.Parse(c.baseURL + path)
	if err != nil {
		return nil, fmt.Errorf("parse url: %w", err)
	}

	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), bodyReader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	c.setAuth(req)

	return req, nil
}

func (c *Client) setAuth(req *http.Request) {
	switch c.cfg.Auth.Type {
	case AuthAPIToken:
		// Cloud: basic auth with email and API token
		encoded := base64.StdEncoding.EncodeToString([]byte(c.cfg.Auth.Email + ":" + c.cfg.Auth.Token))
		req.Header.Set("Authorization", "Basic "+encoded)

	case AuthBasic:
		encoded := base64.StdEncoding.EncodeToString([]byte(c.cfg.Auth.Username + ":" + c.cfg.Auth.Password))
		req.Header.Set("Authorization", "Basic "+encoded)

	case AuthPAT:
		req.Header.Set("Authorization", "Bearer "+c.cfg.Auth.Token)

	case AuthOAuth2:
		if c.cfg.Auth.AccessToken != "" {
			req.Header.Set("Authorization", "Bearer "+c.cfg.Auth.AccessToken)
		} else if c.cfg.Auth.Token != "" {
			req.Header.Set("Authorization", "Bearer "+c.cfg.Auth.Token)
		}
	}
}

// doWithRetry executes the request, retrying transport errors and 429
// responses with exponential backoff. The body is buffered once so
// each attempt gets a fresh reader.
func (c *Client) doWithRetry(req *http.Request) (*http.Response, error) {
	maxRetries := c.cfg.RateLimit.MaxRetries
	if maxRetries == 0 {
		maxRetries = httpx.DefaultMaxRetries
	}
	delay := c.cfg.RateLimit.RetryWaitMin
	if delay == 0 {
		delay = httpx.DefaultRetryWait
	}
	maxDelay := c.cfg.RateLimit.RetryWaitMax
	if maxDelay == 0 {
		maxDelay = 30 * time.Second
	}

	var bodyBytes []byte
	if req.Body != nil {
		var err error
		bodyBytes, err = io.ReadAll(req.Body)
		if err != nil {
			return nil, fmt.Errorf("read request body: %w", err)
		}
		req.Body.Close()
	}

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		attemptReq := req.Clone(req.Context())
		if bodyBytes != nil {
			attemptReq.Body = io.NopCloser(bytes.NewReader(bodyBytes))
		}

		resp, err := c.httpClient.Do(attemptReq)
		if err != nil {
			lastErr = err
			if httpx.IsRetryable(err) && attempt < maxRetries {
				c.waitForRetry(req.Context(), delay)
				delay = min(delay*2, maxDelay)
				continue
			}
			return nil, err
		}

		c.updateRateLimitState(resp)

		if resp.StatusCode != http.StatusTooManyRequests {
			return resp, nil
		}

		resp.Body.Close()
		lastErr = httpx.ErrRateLimited

		// Honor Retry-After when Jira provides one.
		if retryAfter := resp.Header.Get("Retry-After"); retryAfter != "" {
			if seconds, err := strconv.Atoi(retryAfter); err == nil {
				delay = time.Duration(seconds) * time.Second
			}
		}
		if c.cfg.RateLimit.RetryJitter {
			jitter := 0.7 + cryptoRandFloat64()*0.6
			delay = time.Duration(float64(delay) * jitter)
		}

		if attempt < maxRetries {
			c.waitForRetry(req.Context(), delay)
			delay = min(delay*2, maxDelay)
		}
	}

	if lastErr != nil {
		return nil, fmt.Errorf("max retries exceeded: %w", lastErr)
	}
	return nil, fmt.Errorf("max retries exceeded")
}

func (c *Client) waitForRetry(ctx context.Context, delay time.Duration) {
	select {
	case <-ctx.Done():
	case <-time.After(delay):
	}
}

func (c *Client) updateRateLimitState(resp *http.Response) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if remaining := resp.Header.Get("X-RateLimit-Remaining"); remaining != "" {
		if val, err := strconv.Atoi(remaining); err == nil {
			c.remaining = val
		}
	}
	if reset := resp.Header.Get("X-RateLimit-Reset"); reset != "" {
		if t, err := time.Parse(time.RFC3339, reset); err == nil {
			c.resetTime = t
		}
	}
}

// IsCloud reports whether the detected deployment is Jira Cloud.
func (c *Client) IsCloud() bool {
	return c.deploymentType == DeploymentCloud
}

// APIVersionInUse returns the API version the client is sending to.
func (c *Client) APIVersionInUse() APIVersion {
	return c.apiVersion
}

// RateLimitRemaining returns the last observed rate limit headroom, or
// -1 when Jira has not reported one.
func (c *Client) RateLimitRemaining() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.remaining
}

// DeploymentTypeDetected returns the deployment type from the last
// DetectDeployment call.
func (c *Client) DeploymentTypeDetected() DeploymentType {
	return c.deploymentType
}

// ServerInfoCached returns the server info from the last
// DetectDeployment call, if any.
func (c *Client) ServerInfoCached() *ServerInfo {
	return c.serverInfo
}

// cryptoRandFloat64 returns a uniform float64 in [0, 1).
func cryptoRandFloat64() float64 {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return 0.5
	}
	u := binary.LittleEndian.Uint64(b[:])
	return float64(u>>11) / (1 << 53)
}
