package pr

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/xanzy/go-gitlab"
)

// GitLabProvider implements Provider for GitLab repositories. GitLab calls
// them merge requests; the mapping is one-to-one.
type GitLabProvider struct {
	client    *gitlab.Client
	projectID string // Numeric ID or "namespace/project" path
}

// NewGitLabProvider creates a new GitLab provider.
// baseURL is the GitLab instance URL (empty for gitlab.com).
// projectID can be a numeric ID or a "namespace/project" path.
func NewGitLabProvider(token, baseURL, projectID string) (*GitLabProvider, error) {
	if token == "" {
		return nil, fmt.Errorf("GitLab token is required")
	}
	if projectID == "" {
		return nil, fmt.Errorf("project ID is required")
	}

	var client *gitlab.Client
	var err error

	if baseURL != "" {
		client, err = gitlab.NewClient(token, gitlab.WithBaseURL(baseURL))
	} else {
		client, err = gitlab.NewClient(token)
	}
	if err != nil {
		return nil, fmt.Errorf("create GitLab client: %w", err)
	}

	return &GitLabProvider{
		client:    client,
		projectID: projectID,
	}, nil
}

// NewGitLabProviderFromURL creates a GitLab provider from a remote URL,
// deriving the project path (including subgroups) and, for self-hosted
// instances, the base URL.
func NewGitLabProviderFromURL(token, remoteURL string) (*GitLabProvider, error) {
	owner, repo, err := ParseRemote(remoteURL)
	if err != nil {
		return nil, fmt.Errorf("parse remote URL: %w", err)
	}

	var baseURL string
	if !strings.Contains(remoteURL, "gitlab.com") {
		trimmed := strings.TrimPrefix(remoteURL, "https://")
		trimmed = strings.TrimPrefix(trimmed, "http://")
		trimmed = strings.TrimPrefix(trimmed, "git@")
		if i := strings.IndexAny(trimmed, "/:"); i > 0 {
			baseURL = "https://" + trimmed[:i]
		}
	}

	return NewGitLabProvider(token, baseURL, owner+"/"+repo)
}

// CreatePR creates a new merge request.
func (p *GitLabProvider) CreatePR(ctx context.Context, opts Options) (*PullRequest, error) {
	targetBranch := opts.Base
	if targetBranch == "" {
		targetBranch = "main"
	}

	title := opts.Title
	if opts.Draft {
		// The API has no draft flag on create; the title prefix is the
		// documented way to open one.
		title = "Draft: " + title
	}

	mrOpts := &gitlab.CreateMergeRequestOptions{
		Title:        gitlab.Ptr(title),
		Description:  gitlab.Ptr(opts.Body),
		SourceBranch: gitlab.Ptr(opts.Head),
		TargetBranch: gitlab.Ptr(targetBranch),
	}

	if len(opts.Labels) > 0 {
		mrOpts.Labels = gitlab.Ptr(gitlab.LabelOptions(opts.Labels))
	}
	if ids := userIDs(opts.Assignees); len(ids) > 0 {
		mrOpts.AssigneeIDs = gitlab.Ptr(ids)
	}
	if ids := userIDs(opts.Reviewers); len(ids) > 0 {
		mrOpts.ReviewerIDs = gitlab.Ptr(ids)
	}

	mr, resp, err := p.client.MergeRequests.CreateMergeRequest(p.projectID, mrOpts, gitlab.WithContext(ctx))
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusConflict {
			return nil, ErrExists
		}
		if resp != nil && resp.StatusCode == http.StatusBadRequest &&
			strings.Contains(err.Error(), "No commits between") {
			return nil, ErrNoChanges
		}
		return nil, fmt.Errorf("create MR: %w", err)
	}

	return p.prFromGitLab(mr), nil
}

// GetPR retrieves a merge request by IID.
func (p *GitLabProvider) GetPR(ctx context.Context, id int) (*PullRequest, error) {
	mr, resp, err := p.client.MergeRequests.GetMergeRequest(p.projectID, id, nil, gitlab.WithContext(ctx))
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusNotFound {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get MR: %w", err)
	}
	return p.prFromGitLab(mr), nil
}

// UpdatePR updates an existing merge request.
func (p *GitLabProvider) UpdatePR(ctx context.Context, id int, opts UpdateOptions) (*PullRequest, error) {
	updateOpts := &gitlab.UpdateMergeRequestOptions{}

	if opts.Title != nil {
		updateOpts.Title = opts.Title
	}
	if opts.Body != nil {
		updateOpts.Description = opts.Body
	}
	if opts.Base != nil {
		updateOpts.TargetBranch = opts.Base
	}
	if opts.Labels != nil {
		updateOpts.Labels = gitlab.Ptr(gitlab.LabelOptions(opts.Labels))
	}
	if ids := userIDs(opts.Assignees); len(ids) > 0 {
		updateOpts.AssigneeIDs = gitlab.Ptr(ids)
	}

	mr, _, err := p.client.MergeRequests.UpdateMergeRequest(p.projectID, id, updateOpts, gitlab.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("update MR: %w", err)
	}

	return p.prFromGitLab(mr), nil
}

// MergePR merges a merge request. Rebase merging is not distinct on GitLab;
// it falls back to a regular merge.
func (p *GitLabProvider) MergePR(ctx context.Context, id int, opts MergeOptions) error {
	mergeOpts := &gitlab.AcceptMergeRequestOptions{}

	if opts.CommitMessage != "" {
		mergeOpts.MergeCommitMessage = gitlab.Ptr(opts.CommitMessage)
	}
	if opts.SHA != "" {
		mergeOpts.SHA = gitlab.Ptr(opts.SHA)
	}
	if opts.DeleteBranch {
		mergeOpts.ShouldRemoveSourceBranch = gitlab.Ptr(true)
	}

	if opts.Method == MergeMethodSquash {
		mergeOpts.Squash = gitlab.Ptr(true)
		if opts.CommitMessage != "" {
			mergeOpts.SquashCommitMessage = gitlab.Ptr(opts.CommitMessage)
		}
	}

	_, resp, err := p.client.MergeRequests.AcceptMergeRequest(p.projectID, id, mergeOpts, gitlab.WithContext(ctx))
	if err != nil {
		if resp != nil {
			switch resp.StatusCode {
			case http.StatusNotFound:
				return ErrNotFound
			case http.StatusMethodNotAllowed:
				return ErrClosed
			case http.StatusNotAcceptable:
				return ErrMergeConflict
			}
		}
		return fmt.Errorf("merge MR: %w", err)
	}

	return nil
}

// AddComment adds a note to a merge request.
func (p *GitLabProvider) AddComment(ctx context.Context, id int, body string) error {
	_, _, err := p.client.Notes.CreateMergeRequestNote(p.projectID, id,
		&gitlab.CreateMergeRequestNoteOptions{Body: gitlab.Ptr(body)}, gitlab.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("add comment: %w", err)
	}
	return nil
}

// RequestReview requests review from the specified users.
// GitLab identifies reviewers by numeric ID.
func (p *GitLabProvider) RequestReview(ctx context.Context, id int, reviewers []string) error {
	ids := userIDs(reviewers)
	if len(ids) == 0 {
		return fmt.Errorf("no valid reviewer IDs provided")
	}

	_, _, err := p.client.MergeRequests.UpdateMergeRequest(p.projectID, id,
		&gitlab.UpdateMergeRequestOptions{ReviewerIDs: gitlab.Ptr(ids)}, gitlab.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("request review: %w", err)
	}
	return nil
}

// ListPRs lists merge requests matching the filter.
func (p *GitLabProvider) ListPRs(ctx context.Context, filter Filter) ([]*PullRequest, error) {
	opts := &gitlab.ListProjectMergeRequestsOptions{
		ListOptions: gitlab.ListOptions{PerPage: 30},
	}

	if filter.State != "" {
		opts.State = gitlab.Ptr(gitlabState(filter.State))
	}
	if filter.Base != "" {
		opts.TargetBranch = gitlab.Ptr(filter.Base)
	}
	if filter.Head != "" {
		opts.SourceBranch = gitlab.Ptr(filter.Head)
	}
	if filter.Author != "" {
		opts.AuthorUsername = gitlab.Ptr(filter.Author)
	}
	if len(filter.Labels) > 0 {
		opts.Labels = gitlab.Ptr(gitlab.LabelOptions(filter.Labels))
	}
	if filter.Sort != "" {
		opts.OrderBy = gitlab.Ptr(filter.Sort)
	}
	if filter.Direction != "" {
		opts.Sort = gitlab.Ptr(filter.Direction)
	}
	if filter.Limit > 0 {
		opts.PerPage = filter.Limit
	}

	mrs, _, err := p.client.MergeRequests.ListProjectMergeRequests(p.projectID, opts, gitlab.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("list MRs: %w", err)
	}

	result := make([]*PullRequest, len(mrs))
	for i, mr := range mrs {
		result[i] = p.prFromGitLab(mr)
	}
	return result, nil
}

// userIDs filters a username list down to the numeric GitLab user IDs it
// contains. Non-numeric entries are dropped.
func userIDs(users []string) []int {
	var ids []int
	for _, u := range users {
		if id, err := strconv.Atoi(u); err == nil {
			ids = append(ids, id)
		}
	}
	return ids
}

// gitlabState maps the provider-neutral state to GitLab's list filter value.
func gitlabState(s State) string {
	if s == StateOpen {
		return "opened"
	}
	return string(s)
}

// prFromGitLab converts a GitLab MR to the provider-neutral type.
func (p *GitLabProvider) prFromGitLab(mr *gitlab.MergeRequest) *PullRequest {
	result := &PullRequest{
		ID:    mr.IID,
		URL:   mr.WebURL,
		Title: mr.Title,
		Body:  mr.Description,
		Head:  mr.SourceBranch,
		Base:  mr.TargetBranch,
	}

	if mr.ChangesCount != "" {
		if count, err := strconv.Atoi(mr.ChangesCount); err == nil {
			result.ChangedFiles = count
		}
	}

	result.Draft = strings.HasPrefix(mr.Title, "Draft:") ||
		strings.HasPrefix(mr.Title, "WIP:")

	switch mr.State {
	case "opened":
		result.State = StateOpen
	case "merged":
		result.State = StateMerged
	case "closed":
		result.State = StateClosed
	}

	if mr.CreatedAt != nil {
		result.CreatedAt = *mr.CreatedAt
	}
	if mr.UpdatedAt != nil {
		result.UpdatedAt = *mr.UpdatedAt
	}
	if mr.MergedAt != nil {
		result.MergedAt = mr.MergedAt
	}
	if mr.MergedBy != nil {
		result.MergedBy = mr.MergedBy.Username
	}

	result.Labels = mr.Labels

	for _, reviewer := range mr.Reviewers {
		result.Reviewers = append(result.Reviewers, reviewer.Username)
	}
	for _, assignee := range mr.Assignees {
		result.Assignees = append(result.Assignees, assignee.Username)
	}

	return result
}
