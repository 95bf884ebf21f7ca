package pr

import (
	"fmt"
	"os"
	"strings"
)

// Platform identifies a pull request hosting platform.
type Platform string

const (
	PlatformGitHub Platform = "github"
	PlatformGitLab Platform = "gitlab"
)

// DetectPlatform determines the hosting platform from a git remote URL.
// Self-hosted GitLab instances are recognized by "gitlab" anywhere in the
// host.
func DetectPlatform(remoteURL string) (Platform, error) {
	lower := strings.ToLower(remoteURL)

	if strings.Contains(lower, "github.com") {
		return PlatformGitHub, nil
	}
	if strings.Contains(lower, "gitlab") {
		return PlatformGitLab, nil
	}

	return "", fmt.Errorf("%w: %s", ErrUnknownPlatform, remoteURL)
}

// ParseRemote extracts owner and repo from a git remote URL. Both SSH
// (git@host:owner/repo.git) and HTTP(S) forms are accepted.
func ParseRemote(remoteURL string) (owner, repo string, err error) {
	if strings.HasPrefix(remoteURL, "git@") {
		parts := strings.Split(remoteURL, ":")
		if len(parts) != 2 {
			return "", "", fmt.Errorf("invalid SSH remote %q", remoteURL)
		}
		path := strings.TrimSuffix(parts[1], ".git")
		pathParts := strings.Split(path, "/")
		if len(pathParts) < 2 {
			return "", "", fmt.Errorf("invalid repository path in %q", remoteURL)
		}
		// GitLab subgroup paths keep every leading segment in the owner.
		return strings.Join(pathParts[:len(pathParts)-1], "/"), pathParts[len(pathParts)-1], nil
	}

	trimmed := strings.TrimPrefix(remoteURL, "https://")
	trimmed = strings.TrimPrefix(trimmed, "http://")
	trimmed = strings.TrimSuffix(trimmed, ".git")

	parts := strings.Split(trimmed, "/")
	if len(parts) < 3 {
		return "", "", fmt.Errorf("invalid remote URL %q", remoteURL)
	}

	// Last two segments are owner/repo; anything between the host and
	// them (GitLab subgroups) belongs to the owner path.
	if strings.Contains(trimmed, "gitlab") && len(parts) > 3 {
		return strings.Join(parts[1:len(parts)-1], "/"), parts[len(parts)-1], nil
	}
	return parts[len(parts)-2], parts[len(parts)-1], nil
}

// ProviderForRemote creates the Provider matching the remote URL, using the
// given access token.
func ProviderForRemote(remoteURL, token string) (Provider, error) {
	platform, err := DetectPlatform(remoteURL)
	if err != nil {
		return nil, err
	}

	switch platform {
	case PlatformGitHub:
		return NewGitHubProviderFromURL(token, remoteURL)
	case PlatformGitLab:
		return NewGitLabProviderFromURL(token, remoteURL)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownPlatform, platform)
	}
}

// ProviderFromEnv creates a Provider for the remote URL with a token taken
// from the environment: GITHUB_TOKEN or GITLAB_TOKEN depending on the
// platform, with GIT_TOKEN as the fallback for either.
func ProviderFromEnv(remoteURL string) (Provider, error) {
	platform, err := DetectPlatform(remoteURL)
	if err != nil {
		return nil, err
	}

	var envVar string
	switch platform {
	case PlatformGitHub:
		envVar = "GITHUB_TOKEN"
	case PlatformGitLab:
		envVar = "GITLAB_TOKEN"
	}

	token := os.Getenv(envVar)
	if token == "" {
		token = os.Getenv("GIT_TOKEN")
	}
	if token == "" {
		return nil, fmt.Errorf("%s or GIT_TOKEN not set; export a personal access token for %s", envVar, platform)
	}

	return ProviderForRemote(remoteURL, token)
}
