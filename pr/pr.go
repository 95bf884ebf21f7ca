package pr

import (
	"context"
	"time"
)

// State is the lifecycle state of a pull request. GitLab's "opened"
// and GitHub's "open" both normalize to StateOpen.
type State string

const (
	StateOpen   State = "open"
	StateClosed State = "closed"
	StateMerged State = "merged"
)

// Provider abstracts the hosting service a workflow publishes to.
// GitHubProvider and GitLabProvider are the two implementations;
// which one a repository gets is decided by ProviderForRemote from
// the origin remote URL.
type Provider interface {
	CreatePR(ctx context.Context, opts Options) (*PullRequest, error)
	GetPR(ctx context.Context, id int) (*PullRequest, error)
	UpdatePR(ctx context.Context, id int, opts UpdateOptions) (*PullRequest, error)
	MergePR(ctx context.Context, id int, opts MergeOptions) error
	AddComment(ctx context.Context, id int, body string) error
	RequestReview(ctx context.Context, id int, reviewers []string) error
	ListPRs(ctx context.Context, filter Filter) ([]*PullRequest, error)
}

// Options configures CreatePR. Title and Head are required; Base
// defaults to the repository's default branch when empty.
type Options struct {
	Title     string
	Body      string // markdown
	Base      string
	Head      string
	Labels    []string
	Reviewers []string
	Assignees []string
	Draft     bool
}

// UpdateOptions configures UpdatePR. Pointer fields distinguish "leave
// unchanged" (nil) from "set to empty". Slice fields replace the
// existing set wholesale.
type UpdateOptions struct {
	Title     *string
	Body      *string
	Base      *string
	Labels    []string
	Assignees []string
}

// MergeMethod selects the merge strategy.
type MergeMethod string

const (
	MergeMethodMerge  MergeMethod = "merge"
	MergeMethodSquash MergeMethod = "squash"
	MergeMethodRebase MergeMethod = "rebase"
)

// MergeOptions configures MergePR.
type MergeOptions struct {
	Method        MergeMethod
	CommitTitle   string // squash and merge commits only
	CommitMessage string
	SHA           string // when set, merge fails if HEAD moved past this SHA
	DeleteBranch  bool
}

// Filter narrows ListPRs. Zero values mean "no constraint".
type Filter struct {
	State     State
	Base      string
	Head      string
	Author    string
	Labels    []string // all must be present
	Sort      string   // "created" or "updated"
	Direction string   // "asc" or "desc"
	Limit     int
}

// PullRequest is the provider-neutral view of a pull request. ID is
// the GitHub PR number or the GitLab merge request IID.
type PullRequest struct {
	ID           int
	URL          string
	Title        string
	Body         string
	State        State
	Draft        bool
	Head         string
	Base         string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	MergedAt     *time.Time
	MergedBy     string
	Commits      int
	Additions    int
	Deletions    int
	ChangedFiles int
	Labels       []string
	Reviewers    []string
	Assignees    []string
}
