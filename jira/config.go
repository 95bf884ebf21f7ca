package jira

import "time"

// AuthType selects how the client authenticates.
type AuthType string

const (
	AuthAPIToken AuthType = "api_token" // Cloud: email + API token
	AuthOAuth2   AuthType = "oauth2"    // Cloud: OAuth 2.0
	AuthBasic    AuthType = "basic"     // Server: username + password
	AuthPAT      AuthType = "pat"       // Server/DC: personal access token
)

// Config configures the Jira client. The zero value is not usable;
// start from DefaultConfig and fill in URL and Auth.
type Config struct {
	// URL is the base URL of the Jira instance, e.g.
	// https://acme.atlassian.net (Cloud) or https://jira.acme.com
	// (Server).
	URL string `yaml:"url"`

	// APIVersion pins the REST API version. "auto" (the default)
	// detects Cloud vs Server and picks v3 or v2 accordingly.
	APIVersion APIVersion `yaml:"api_version"`

	Auth      AuthConfig      `yaml:"auth"`
	HTTP      HTTPConfig      `yaml:"http"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

// AuthConfig carries the credentials for whichever AuthType is set.
// Only the fields for the selected type need to be filled.
type AuthConfig struct {
	Type AuthType `yaml:"type"`

	// api_token (Cloud)
	Email string `yaml:"email"`
	Token string `yaml:"token"` // also the token for pat auth

	// basic (Server)
	Username string `yaml:"username"`
	Password string `yaml:"password"`

	// oauth2 (Cloud)
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	AccessToken  string `yaml:"access_token"`
	RefreshToken string `yaml:"refresh_token"`
}

// HTTPConfig tunes the underlying HTTP transport.
type HTTPConfig struct {
	Timeout         time.Duration `yaml:"timeout"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	IdleConnTimeout time.Duration `yaml:"idle_conn_timeout"`
}

// RateLimitConfig tunes retry behavior on 429 and 5xx responses.
type RateLimitConfig struct {
	MaxRetries   int           `yaml:"max_retries"`
	RetryWaitMin time.Duration `yaml:"retry_wait_min"`
	RetryWaitMax time.Duration `yaml:"retry_wait_max"`
	RetryJitter  bool          `yaml:"retry_jitter"`
}

// DefaultConfig returns a Config with working transport and retry
// defaults. URL and Auth must still be provided.
func DefaultConfig() *Config {
	return &Config{
		APIVersion: APIVersionAuto,
		HTTP: HTTPConfig{
			Timeout:         30 * time.Second,
			MaxIdleConns:    10,
			IdleConnTimeout: 90 * time.Second,
		},
		RateLimit: RateLimitConfig{
			MaxRetries:   3,
			RetryWaitMin: 1 * time.Second,
			RetryWaitMax: 30 * time.Second,
			RetryJitter:  true,
		},
	}
}

// Validate checks that the config names a reachable instance and
// carries complete credentials for its auth type.
func (c *Config) Validate() error {
	if c.URL == "" {
		return ErrConfigURLRequired
	}

	switch c.Auth.Type {
	case "":
		return ErrConfigAuthTypeRequired
	case AuthAPIToken:
		if c.Auth.Email == "" || c.Auth.Token == "" {
			return ErrConfigAPITokenAuth
		}
	case AuthBasic:
		if c.Auth.Username == "" || c.Auth.Password == "" {
			return ErrConfigBasicAuth
		}
	case AuthPAT:
		if c.Auth.Token == "" {
			return ErrConfigPATAuth
		}
	case AuthOAuth2:
		if c.Auth.ClientID == "" || c.Auth.ClientSecret == "" {
			return ErrConfigOAuth2Auth
		}
	default:
		return ErrConfigAuthTypeInvalid
	}

	switch c.APIVersion {
	case "", APIVersionAuto, APIVersionV2, APIVersionV3:
	default:
		return ErrConfigAPIVersionInvalid
	}

	return nil
}

// GetAPIVersion resolves "auto" and empty to v3; the client corrects
// to v2 after deployment detection when talking to a Server instance.
func (c *Config) GetAPIVersion() APIVersion {
	if c.APIVersion == "" || c.APIVersion == APIVersionAuto {
		return APIVersionV3
	}
	return c.APIVersion
}

// Clone returns a copy of the config.
func (c *Config) Clone() *Config {
	if c == nil {
		return nil
	}
	clone := *c
	return &clone
}
