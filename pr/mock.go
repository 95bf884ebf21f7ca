package pr

import "context"

// MockProvider implements Provider with per-method hooks. Unset hooks
// fall back to a plausible canned response, so tests only stub the
// calls they care about.
type MockProvider struct {
	CreatePRFunc      func(ctx context.Context, opts Options) (*PullRequest, error)
	GetPRFunc         func(ctx context.Context, id int) (*PullRequest, error)
	UpdatePRFunc      func(ctx context.Context, id int, opts UpdateOptions) (*PullRequest, error)
	MergePRFunc       func(ctx context.Context, id int, opts MergeOptions) error
	AddCommentFunc    func(ctx context.Context, id int, body string) error
	RequestReviewFunc func(ctx context.Context, id int, reviewers []string) error
	ListPRsFunc       func(ctx context.Context, filter Filter) ([]*PullRequest, error)
}

func (m *MockProvider) CreatePR(ctx context.Context, opts Options) (*PullRequest, error) {
	if m.CreatePRFunc != nil {
		return m.CreatePRFunc(ctx, opts)
	}
	return &PullRequest{
		ID:    1,
		URL:   "https://example.com/pr/1",
		Title: opts.Title,
		State: StateOpen,
		Head:  opts.Head,
		Base:  opts.Base,
	}, nil
}

func (m *MockProvider) GetPR(ctx context.Context, id int) (*PullRequest, error) {
	if m.GetPRFunc != nil {
		return m.GetPRFunc(ctx, id)
	}
	return &PullRequest{ID: id, State: StateOpen}, nil
}

func (m *MockProvider) UpdatePR(ctx context.Context, id int, opts UpdateOptions) (*PullRequest, error) {
	if m.UpdatePRFunc != nil {
		return m.UpdatePRFunc(ctx, id, opts)
	}
	return &PullRequest{ID: id, State: StateOpen}, nil
}

func (m *MockProvider) MergePR(ctx context.Context, id int, opts MergeOptions) error {
	if m.MergePRFunc != nil {
		return m.MergePRFunc(ctx, id, opts)
	}
	return nil
}

func (m *MockProvider) AddComment(ctx context.Context, id int, body string) error {
	if m.AddCommentFunc != nil {
		return m.AddCommentFunc(ctx, id, body)
	}
	return nil
}

func (m *MockProvider) RequestReview(ctx context.Context, id int, reviewers []string) error {
	if m.RequestReviewFunc != nil {
		return m.RequestReviewFunc(ctx, id, reviewers)
	}
	return nil
}

func (m *MockProvider) ListPRs(ctx context.Context, filter Filter) ([]*PullRequest, error) {
	if m.ListPRsFunc != nil {
		return m.ListPRsFunc(ctx, filter)
	}
	return nil, nil
}
