package ticketflow

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/randalmurphal/ticketflow/auth"
	"github.com/randalmurphal/ticketflow/config"
	"github.com/randalmurphal/ticketflow/git"
	"github.com/randalmurphal/ticketflow/jira"
	"github.com/randalmurphal/ticketflow/notify"
	"github.com/randalmurphal/ticketflow/pr"
)

// Configuration keys resolved through config.Resolver. Environment
// overrides use the TICKETFLOW_ prefix with hyphens mapped to
// underscores (jira-url → TICKETFLOW_JIRA_URL).
const (
	KeyJiraURL      = "jira-url"
	KeyJiraAuthType = "jira-auth-type"
	KeyJiraEmail    = "jira-email"
	KeyJiraToken    = "jira-token"
	KeyJiraUsername = "jira-username"
	KeyJiraPassword = "jira-password"

	KeyVcsProvider  = "vcs-provider" // github or gitlab
	KeyVcsToken     = "vcs-token"
	KeyVcsRemote    = "vcs-remote"
	KeyVcsBase      = "vcs-base"
	KeyReviewStatus = "review-status"

	KeyClaudeBinary   = "claude-binary"
	KeyClaudeModel    = "claude-model"
	KeyClaudeMaxTurns = "claude-max-turns"

	KeyTestCommand   = "test-command"
	KeyTestFramework = "test-framework"

	KeySlackWebhook   = "slack-webhook"
	KeySlackChannel   = "slack-channel"
	KeyWebhookURL     = "webhook-url"
	KeyWebhookSecret  = "webhook-secret"
	KeyWebhookSubject = "webhook-subject"

	KeyArtifactDir = "artifact-dir"
	KeyStorageDir  = "storage-dir"
)

// DefaultResolver builds the hierarchical resolver for ticketflow
// settings: defaults, then ~/.config/ticketflow/config.yaml, then
// .ticketflow.yaml at the git root, then TICKETFLOW_* environment
// variables.
func DefaultResolver() *config.Resolver {
	return config.NewResolver(config.ResolverConfig{
		EnvPrefix:       "TICKETFLOW_",
		GlobalConfigDir: "ticketflow",
		LocalConfigName: ".ticketflow.yaml",
		Defaults:        defaultSettings(),
	})
}

func defaultSettings() map[string]string {
	return map[string]string{
		KeyJiraAuthType: string(jira.AuthAPIToken),
		KeyVcsProvider:  "github",
		KeyVcsRemote:    "origin",
		KeyReviewStatus: "In Review",
		KeyClaudeBinary: "claude",
		KeyArtifactDir:  ".ticketflow",
		KeyStorageDir:   ".ticketflow/workflows",
	}
}

// Settings is the typed view of resolved configuration.
type Settings struct {
	Jira struct {
		URL      string
		AuthType jira.AuthType
		Email    string
		Token    string
		Username string
		Password string
	}
	Vcs struct {
		Provider string
		Token    string
		Remote   string
		Base     string
	}
	ReviewStatus string
	Claude       struct {
		Binary   string
		Model    string
		MaxTurns int
	}
	Tests struct {
		Command   string
		Framework string
	}
	Notify struct {
		SlackWebhook   string
		SlackChannel   string
		WebhookURL     string
		WebhookSecret  string
		WebhookSubject string
	}
	ArtifactDir string
	StorageDir  string
}

// LoadSettings maps resolved key/value pairs onto Settings.
func LoadSettings(resolved *config.Resolved) Settings {
	var s Settings
	s.Jira.URL = resolved.Get(KeyJiraURL)
	s.Jira.AuthType = jira.AuthType(resolved.Get(KeyJiraAuthType))
	s.Jira.Email = resolved.Get(KeyJiraEmail)
	s.Jira.Token = resolved.Get(KeyJiraToken)
	s.Jira.Username = resolved.Get(KeyJiraUsername)
	s.Jira.Password = resolved.Get(KeyJiraPassword)

	s.Vcs.Provider = resolved.Get(KeyVcsProvider)
	s.Vcs.Token = resolved.Get(KeyVcsToken)
	s.Vcs.Remote = resolved.Get(KeyVcsRemote)
	s.Vcs.Base = resolved.Get(KeyVcsBase)
	s.ReviewStatus = resolved.Get(KeyReviewStatus)

	s.Claude.Binary = resolved.Get(KeyClaudeBinary)
	s.Claude.Model = resolved.Get(KeyClaudeModel)
	if n, err := strconv.Atoi(resolved.Get(KeyClaudeMaxTurns)); err == nil {
		s.Claude.MaxTurns = n
	}

	s.Tests.Command = resolved.Get(KeyTestCommand)
	s.Tests.Framework = resolved.Get(KeyTestFramework)

	s.Notify.SlackWebhook = resolved.Get(KeySlackWebhook)
	s.Notify.SlackChannel = resolved.Get(KeySlackChannel)
	s.Notify.WebhookURL = resolved.Get(KeyWebhookURL)
	s.Notify.WebhookSecret = resolved.Get(KeyWebhookSecret)
	s.Notify.WebhookSubject = resolved.Get(KeyWebhookSubject)

	s.ArtifactDir = resolved.Get(KeyArtifactDir)
	s.StorageDir = resolved.Get(KeyStorageDir)
	return s
}

// jiraConfig builds the Jira client config from settings.
func (s Settings) jiraConfig() *jira.Config {
	cfg := jira.DefaultConfig()
	cfg.URL = s.Jira.URL
	cfg.Auth = jira.AuthConfig{
		Type:     s.Jira.AuthType,
		Email:    s.Jira.Email,
		Token:    s.Jira.Token,
		Username: s.Jira.Username,
		Password: s.Jira.Password,
	}
	return cfg
}

// BuildServices assembles the collaborator clients for a real run from
// settings: Jira tickets, the claude CLI generator, git plus a pull
// request provider, and the detected test runner. workDir is the
// checkout the workflow operates on.
func BuildServices(workDir string, s Settings) (Services, error) {
	jiraClient, err := jira.NewClient(s.jiraConfig())
	if err != nil {
		return Services{}, fmt.Errorf("jira client: %w", err)
	}
	tickets, err := NewJiraTickets(jiraClient)
	if err != nil {
		return Services{}, err
	}

	var claudeOpts []ClaudeOption
	if s.Claude.Binary != "" {
		claudeOpts = append(claudeOpts, WithClaudeBinary(s.Claude.Binary))
	}
	if s.Claude.Model != "" {
		claudeOpts = append(claudeOpts, WithClaudeModel(s.Claude.Model))
	}
	if s.Claude.MaxTurns > 0 {
		claudeOpts = append(claudeOpts, WithClaudeMaxTurns(s.Claude.MaxTurns))
	}
	codegen, err := NewClaudeCLI(workDir, claudeOpts...)
	if err != nil {
		return Services{}, err
	}

	repo, err := git.NewContext(workDir)
	if err != nil {
		return Services{}, fmt.Errorf("git context: %w", err)
	}
	provider, err := buildProvider(repo, s)
	if err != nil {
		return Services{}, err
	}
	var vcsOpts []VCSOption
	if s.Vcs.Remote != "" {
		vcsOpts = append(vcsOpts, WithRemote(s.Vcs.Remote))
	}
	if s.Vcs.Base != "" {
		vcsOpts = append(vcsOpts, WithDefaultBase(s.Vcs.Base))
	}
	vcs, err := NewGitVCS(repo, provider, vcsOpts...)
	if err != nil {
		return Services{}, err
	}

	var testOpts []TestRunnerOption
	if s.Tests.Command != "" {
		testOpts = append(testOpts, WithTestCommand(s.Tests.Command))
	}
	if s.Tests.Framework != "" {
		testOpts = append(testOpts, WithTestFramework(Framework(s.Tests.Framework)))
	}

	return Services{
		Tickets: tickets,
		CodeGen: codegen,
		Vcs:     vcs,
		Tests:   NewGoTestRunner(workDir, testOpts...),
	}, nil
}

// BuildNotifier assembles the notification fan-out from settings: Slack
// when a Slack webhook is configured, a generic webhook (JWT-signed when
// a secret is set) when a URL is configured, and a no-op otherwise.
func BuildNotifier(s Settings) notify.Notifier {
	var notifiers []notify.Notifier

	if s.Notify.SlackWebhook != "" {
		var opts []notify.SlackOption
		if s.Notify.SlackChannel != "" {
			opts = append(opts, notify.WithSlackChannel(s.Notify.SlackChannel))
		}
		notifiers = append(notifiers, notify.NewSlackNotifier(s.Notify.SlackWebhook, opts...))
	}

	if s.Notify.WebhookURL != "" {
		var opts []notify.WebhookOption
		if s.Notify.WebhookSecret != "" {
			subject := s.Notify.WebhookSubject
			if subject == "" {
				subject = "ticketflow"
			}
			opts = append(opts, notify.WithWebhookJWT(auth.JWTConfig{
				Secret: []byte(s.Notify.WebhookSecret),
				Issuer: "ticketflow",
			}, subject))
		}
		notifiers = append(notifiers, notify.NewWebhookNotifier(s.Notify.WebhookURL, opts...))
	}

	switch len(notifiers) {
	case 0:
		return notify.NopNotifier{}
	case 1:
		return notifiers[0]
	}
	return notify.NewMultiNotifier(notifiers...)
}

// buildProvider picks the pull request provider from settings. No token
// means local-only operation: branches and commits work, create-pr fails
// with pr.ErrNoProvider.
func buildProvider(repo *git.Context, s Settings) (pr.Provider, error) {
	if s.Vcs.Token == "" {
		return nil, nil
	}

	remote := s.Vcs.Remote
	if remote == "" {
		remote = "origin"
	}
	remoteURL, err := repo.GetRemoteURL(remote)
	if err != nil {
		return nil, fmt.Errorf("resolve remote %s: %w", remote, err)
	}

	switch strings.ToLower(s.Vcs.Provider) {
	case "", "github":
		return pr.NewGitHubProviderFromURL(s.Vcs.Token, remoteURL)
	case "gitlab":
		return pr.NewGitLabProviderFromURL(s.Vcs.Token, remoteURL)
	}
	return nil, fmt.Errorf("unknown vcs provider %q", s.Vcs.Provider)
}
