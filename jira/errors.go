package jira

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/randalmurphal/ticketflow/httpx"
)

// Config validation errors.
var (
	ErrConfigURLRequired       = errors.New("jira url is required")
	ErrConfigAuthTypeRequired  = errors.New("jira auth type is required")
	ErrConfigAuthTypeInvalid   = errors.New("jira auth type must be api_token, oauth2, basic, or pat")
	ErrConfigAPITokenAuth      = errors.New("api_token auth requires email and token")
	ErrConfigBasicAuth         = errors.New("basic auth requires username and password")
	ErrConfigPATAuth           = errors.New("pat auth requires token")
	ErrConfigOAuth2Auth        = errors.New("oauth2 auth requires client_id and client_secret")
	ErrConfigAPIVersionInvalid = errors.New("api_version must be auto, v2, or v3")
)

// Issue and transition errors.
var (
	ErrIssueNotFound        = errors.New("jira issue not found")
	ErrIssueKeyInvalid      = errors.New("invalid issue key format")
	ErrTransitionNotFound   = errors.New("transition not found for issue")
	ErrTransitionIDRequired = errors.New("transition id is required")
)

// ADF document errors.
var (
	ErrADFVersionOnly = errors.New("ADF version must be 1")
	ErrADFTypeInvalid = errors.New("ADF root type must be 'doc'")
)

// APIError is a non-2xx response from Jira, decoded from Jira's
// standard error body. Unwrap maps the status code onto the httpx
// sentinels so callers use errors.Is rather than comparing codes.
type APIError struct {
	StatusCode    int               `json:"-"`
	ErrorMessages []string          `json:"errorMessages,omitempty"`
	Errors        map[string]string `json:"errors,omitempty"`
	Endpoint      string            `json:"-"`
	RequestID     string            `json:"-"`
}

func (e *APIError) Error() string {
	if len(e.ErrorMessages) > 0 {
		return fmt.Sprintf("jira api error (%d): %s", e.StatusCode, e.ErrorMessages[0])
	}
	if len(e.Errors) > 0 {
		for field, msg := range e.Errors {
			return fmt.Sprintf("jira api error (%d): %s: %s", e.StatusCode, field, msg)
		}
	}
	if e.RequestID != "" {
		return fmt.Sprintf("jira api error (%d) at %s [%s]", e.StatusCode, e.Endpoint, e.RequestID)
	}
	return fmt.Sprintf("jira api error (%d)", e.StatusCode)
}

func (e *APIError) Unwrap() error {
	switch e.StatusCode {
	case http.StatusBadRequest:
		return httpx.ErrBadRequest
	case http.StatusUnauthorized:
		return httpx.ErrUnauthorized
	case http.StatusForbidden:
		return httpx.ErrForbidden
	case http.StatusNotFound:
		return httpx.ErrNotFound
	case http.StatusTooManyRequests:
		return httpx.ErrRateLimited
	}
	if e.StatusCode >= 500 {
		return httpx.ErrServerError
	}
	return nil
}

func (e *APIError) IsNotFound() bool     { return e.StatusCode == http.StatusNotFound }
func (e *APIError) IsUnauthorized() bool { return e.StatusCode == http.StatusUnauthorized }
func (e *APIError) IsRateLimited() bool  { return e.StatusCode == http.StatusTooManyRequests }

// parseAPIError drains the response body and decodes Jira's error
// envelope, falling back to the HTTP status text when the body is not
// the expected shape.
func parseAPIError(resp *http.Response, endpoint string) error {
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	apiErr := &APIError{
		StatusCode: resp.StatusCode,
		Endpoint:   endpoint,
		RequestID:  resp.Header.Get("X-Request-Id"),
	}
	if json.Unmarshal(body, apiErr) != nil {
		apiErr.ErrorMessages = []string{http.StatusText(resp.StatusCode)}
	}
	return apiErr
}

// IsNotFound reports whether err means the issue (or other resource)
// does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, httpx.ErrNotFound) || errors.Is(err, ErrIssueNotFound)
}

// IsUnauthorized reports whether err means authentication failed.
func IsUnauthorized(err error) bool {
	return errors.Is(err, httpx.ErrUnauthorized)
}

// IsRateLimited reports whether err means Jira throttled the request.
func IsRateLimited(err error) bool {
	return errors.Is(err, httpx.ErrRateLimited)
}

// IsRetryable reports whether err is transient.
func IsRetryable(err error) bool {
	return httpx.IsRetryable(err)
}
