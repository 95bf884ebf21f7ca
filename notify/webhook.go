package notify

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/randalmurphal/ticketflow/auth"
	"github.com/randalmurphal/ticketflow/httpx"
)

// WebhookNotifier delivers events to a generic HTTP endpoint as JSON.
// Delivery retries transient failures through the shared httpx client.
type WebhookNotifier struct {
	URL     string
	Headers map[string]string

	client     *httpx.Client
	httpClient *http.Client
	jwt        *auth.JWTConfig
	subject    string
}

// WebhookOption configures a WebhookNotifier.
type WebhookOption func(*WebhookNotifier)

// WithWebhookHeaders sets additional request headers.
func WithWebhookHeaders(headers map[string]string) WebhookOption {
	return func(n *WebhookNotifier) { n.Headers = headers }
}

// WithWebhookClient replaces the HTTP client.
func WithWebhookClient(client *http.Client) WebhookOption {
	return func(n *WebhookNotifier) { n.httpClient = client }
}

// WithWebhookJWT signs every delivery with a short-lived bearer token
// so the receiver can verify the sender. Subject becomes the token's
// sub claim. Each delivery attempt gets a fresh token.
func WithWebhookJWT(cfg auth.JWTConfig, subject string) WebhookOption {
	return func(n *WebhookNotifier) {
		n.jwt = &cfg
		n.subject = subject
	}
}

// NewWebhookNotifier creates a webhook notifier for the given URL.
func NewWebhookNotifier(url string, opts ...WebhookOption) *WebhookNotifier {
	n := &WebhookNotifier{
		URL:        url,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(n)
	}

	n.client = httpx.NewClient(httpx.ClientConfig{
		Client:        n.httpClient,
		BaseURL:       url,
		ServiceName:   "webhook",
		MaxRetries:    2,
		BeforeRequest: n.signRequest,
	})
	return n
}

// signRequest attaches the configured headers and, when JWT signing is
// enabled, a fresh bearer token. A signing failure leaves the header
// off; the receiver's 401 then surfaces through the response path.
func (n *WebhookNotifier) signRequest(req *http.Request) {
	for k, v := range n.Headers {
		req.Header.Set(k, v)
	}
	if n.jwt != nil {
		if token, err := auth.GenerateToken(*n.jwt, n.subject); err == nil {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}
}

// Notify implements Notifier.
func (n *WebhookNotifier) Notify(ctx context.Context, event Event) error {
	if err := n.client.Post(ctx, "", event, nil); err != nil {
		return fmt.Errorf("send webhook: %w", err)
	}
	return nil
}
