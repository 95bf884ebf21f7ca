package jira

import (
	"regexp"
	"time"
)

// DeploymentType distinguishes Cloud from self-hosted instances. The
// deployment decides both the REST API version and the rich-text
// format (ADF on Cloud, wiki markup on Server).
type DeploymentType string

const (
	DeploymentCloud      DeploymentType = "Cloud"
	DeploymentServer     DeploymentType = "Server"
	DeploymentDataCenter DeploymentType = "DataCenter"
)

// APIVersion is the Jira REST API version.
type APIVersion string

const (
	APIVersionAuto APIVersion = "auto"
	APIVersionV2   APIVersion = "v2"
	APIVersionV3   APIVersion = "v3"
)

var issueKeyRegex = regexp.MustCompile(`^[A-Z][A-Z0-9]*-\d+$`)

// ValidateIssueKey reports whether key looks like a Jira issue key
// such as PROJ-123.
func ValidateIssueKey(key string) bool {
	return issueKeyRegex.MatchString(key)
}

// TimeFormat is the timestamp format Jira emits in issue fields.
const TimeFormat = "2006-01-02T15:04:05.000-0700"

// jiraTimeFormats covers the timestamp variants seen across Cloud,
// Server, and API versions.
var jiraTimeFormats = []string{
	"2006-01-02T15:04:05.000-0700",
	"2006-01-02T15:04:05.000Z",
	"2006-01-02T15:04:05-0700",
	"2006-01-02T15:04:05Z",
	time.RFC3339,
}

// ParseTime parses a Jira timestamp. An empty string parses to the
// zero time without error, since Jira omits unset date fields.
func ParseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	for _, format := range jiraTimeFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, &time.ParseError{Value: s}
}

// FormatTime renders t in Jira's timestamp format.
func FormatTime(t time.Time) string {
	return t.Format(TimeFormat)
}

// ServerInfo is the /serverInfo response, used for deployment
// detection.
type ServerInfo struct {
	BaseURL        string `json:"baseUrl"`
	Version        string `json:"version"`
	VersionNumbers []int  `json:"versionNumbers"`
	DeploymentType string `json:"deploymentType"`
	BuildNumber    int    `json:"buildNumber"`
	BuildDate      string `json:"buildDate"`
	ServerTime     string `json:"serverTime"`
	ServerTitle    string `json:"serverTitle"`
}

// User is a Jira user. Cloud identifies users by accountId; Server by
// name. GetID hides the difference.
type User struct {
	AccountID    string            `json:"accountId,omitempty"`
	Name         string            `json:"name,omitempty"`
	Key          string            `json:"key,omitempty"`
	EmailAddress string            `json:"emailAddress,omitempty"`
	DisplayName  string            `json:"displayName"`
	Active       bool              `json:"active"`
	TimeZone     string            `json:"timeZone,omitempty"`
	AvatarURLs   map[string]string `json:"avatarUrls,omitempty"`
	Self         string            `json:"self,omitempty"`
}

// GetID returns the deployment-appropriate user identifier.
func (u *User) GetID() string {
	if u.AccountID != "" {
		return u.AccountID
	}
	return u.Name
}

// Project is a Jira project.
type Project struct {
	ID          string            `json:"id"`
	Key         string            `json:"key"`
	Name        string            `json:"name"`
	Description string            `json:"description,omitempty"`
	Self        string            `json:"self"`
	AvatarURLs  map[string]string `json:"avatarUrls,omitempty"`
}

// IssueType is an issue type such as Bug or Story.
type IssueType struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Subtask     bool   `json:"subtask"`
	IconURL     string `json:"iconUrl,omitempty"`
	Self        string `json:"self,omitempty"`
}

// Priority is an issue priority.
type Priority struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	IconURL string `json:"iconUrl,omitempty"`
	Self    string `json:"self,omitempty"`
}

// Status is a workflow status.
type Status struct {
	ID             string         `json:"id"`
	Name           string         `json:"name"`
	Description    string         `json:"description,omitempty"`
	IconURL        string         `json:"iconUrl,omitempty"`
	StatusCategory StatusCategory `json:"statusCategory"`
	Self           string         `json:"self,omitempty"`
}

// StatusCategory groups statuses; Key is "new", "indeterminate", or
// "done".
type StatusCategory struct {
	ID        int    `json:"id"`
	Key       string `json:"key"`
	Name      string `json:"name"`
	ColorName string `json:"colorName,omitempty"`
	Self      string `json:"self,omitempty"`
}

// Resolution is an issue resolution such as Fixed or Won't Do.
type Resolution struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Self        string `json:"self,omitempty"`
}

// Component is a project component.
type Component struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Self        string `json:"self,omitempty"`
}

// Version is a project fix version.
type Version struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Archived    bool   `json:"archived"`
	Released    bool   `json:"released"`
	ReleaseDate string `json:"releaseDate,omitempty"`
	Self        string `json:"self,omitempty"`
}

// Issue is a Jira issue: the ticket a workflow runs against.
type Issue struct {
	ID     string      `json:"id"`
	Key    string      `json:"key"`
	Self   string      `json:"self"`
	Fields IssueFields `json:"fields"`
}

// IssueFields are the standard issue fields the engine reads.
// Description is ADF on v3 and a plain string on v2, hence the any.
type IssueFields struct {
	Summary     string      `json:"summary"`
	Description any         `json:"description,omitempty"`
	Status      *Status     `json:"status,omitempty"`
	Priority    *Priority   `json:"priority,omitempty"`
	IssueType   *IssueType  `json:"issuetype,omitempty"`
	Project     *Project    `json:"project,omitempty"`
	Assignee    *User       `json:"assignee,omitempty"`
	Reporter    *User       `json:"reporter,omitempty"`
	Creator     *User       `json:"creator,omitempty"`
	Resolution  *Resolution `json:"resolution,omitempty"`
	Labels      []string    `json:"labels,omitempty"`
	Components  []Component `json:"components,omitempty"`
	FixVersions []Version   `json:"fixVersions,omitempty"`
	Created     string      `json:"created,omitempty"`
	Updated     string      `json:"updated,omitempty"`
	DueDate     string      `json:"duedate,omitempty"`
	Parent      *Issue      `json:"parent,omitempty"`
}

// CreatedTime parses the Created timestamp.
func (f *IssueFields) CreatedTime() (time.Time, error) {
	return ParseTime(f.Created)
}

// UpdatedTime parses the Updated timestamp.
func (f *IssueFields) UpdatedTime() (time.Time, error) {
	return ParseTime(f.Updated)
}

// StatusName returns the status name, or "" when status is absent.
func (f *IssueFields) StatusName() string {
	if f.Status == nil {
		return ""
	}
	return f.Status.Name
}

// Transition is one edge available from an issue's current status.
type Transition struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	To            *Status `json:"to"`
	HasScreen     bool    `json:"hasScreen"`
	IsGlobal      bool    `json:"isGlobal"`
	IsInitial     bool    `json:"isInitial"`
	IsConditional bool    `json:"isConditional"`
}

// TransitionsResponse is the transitions endpoint response.
type TransitionsResponse struct {
	Transitions []Transition `json:"transitions"`
}

// TransitionRequest moves an issue through a transition, optionally
// setting fields in the same call.
type TransitionRequest struct {
	Transition TransitionRef  `json:"transition"`
	Fields     map[string]any `json:"fields,omitempty"`
	Update     map[string]any `json:"update,omitempty"`
}

// TransitionRef names a transition by ID.
type TransitionRef struct {
	ID string `json:"id"`
}

// Comment is an issue comment. Body is ADF on v3, a string on v2.
type Comment struct {
	ID           string             `json:"id"`
	Self         string             `json:"self,omitempty"`
	Author       *User              `json:"author,omitempty"`
	UpdateAuthor *User              `json:"updateAuthor,omitempty"`
	Body         any                `json:"body"`
	Created      string             `json:"created"`
	Updated      string             `json:"updated"`
	Visibility   *CommentVisibility `json:"visibility,omitempty"`
}

// CreatedTime parses the Created timestamp.
func (c *Comment) CreatedTime() (time.Time, error) {
	return ParseTime(c.Created)
}

// UpdatedTime parses the Updated timestamp.
func (c *Comment) UpdatedTime() (time.Time, error) {
	return ParseTime(c.Updated)
}

// CommentVisibility restricts a comment to a group or role.
type CommentVisibility struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// CommentsResponse is the paginated comments endpoint response.
type CommentsResponse struct {
	StartAt    int       `json:"startAt"`
	MaxResults int       `json:"maxResults"`
	Total      int       `json:"total"`
	Comments   []Comment `json:"comments"`
}

// AddCommentRequest posts a new comment.
type AddCommentRequest struct {
	Body       any                `json:"body"`
	Visibility *CommentVisibility `json:"visibility,omitempty"`
}
