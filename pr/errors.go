package pr

import "errors"

// Sentinel errors shared by both providers. Provider implementations
// translate service-specific responses (422 on GitHub, 409 on GitLab)
// into these so workflow code never inspects HTTP details.
var (
	ErrNoProvider      = errors.New("no pull request provider configured")
	ErrUnknownPlatform = errors.New("remote does not belong to a known platform")
	ErrExists          = errors.New("pull request already exists for this branch")
	ErrNotFound        = errors.New("pull request not found")
	ErrClosed          = errors.New("pull request is closed")
	ErrNoChanges       = errors.New("no changes between branches")
	ErrMergeConflict   = errors.New("merge conflict")
)
