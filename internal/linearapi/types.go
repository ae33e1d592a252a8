package linearapi

import "time"

// Team is a workspace team.
type Team struct {
	ID   string
	Key  string
	Name string
}

// User identifies an actor on comments and history events.
type User struct {
	ID          string
	Name        string
	DisplayName string
	Email       string
}

// Label returns the user's preferred display name.
func (u User) Label() string {
	if u.DisplayName != "" {
		return u.DisplayName
	}
	if u.Name != "" {
		return u.Name
	}
	return "Unknown"
}

// WorkflowState is a team workflow state. Type is one of backlog, unstarted,
// started, completed, canceled.
type WorkflowState struct {
	ID       string
	Name     string
	Type     string
	Position float64
	TeamID   string
}

// IssueLabel is a label applied to issues.
type IssueLabel struct {
	ID    string
	Name  string
	Color string
}

// IssueSummary is the listing row for an issue.
type IssueSummary struct {
	ID         string
	Identifier string
	Title      string
	State      string
	StateType  string
	Assignee   string
	Priority   int
	URL        string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Comment is a comment on an issue.
type Comment struct {
	ID        string
	Body      string
	Author    User
	CreatedAt time.Time
}

// HistoryEvent is one entry from an issue's change history. Zero-value
// from/to pairs mean the field did not change in this entry.
type HistoryEvent struct {
	ID                 string
	Actor              User
	CreatedAt          time.Time
	FromState          string
	ToState            string
	FromAssignee       string
	ToAssignee         string
	FromPriority       *int
	ToPriority         *int
	FromTitle          string
	ToTitle            string
	FromDueDate        string
	ToDueDate          string
	DescriptionUpdated bool
}

// SubIssueRecord is one row of the flattened sub-issue arena carried by an
// IssueDetail. ChildIDs reference other records in the same arena.
type SubIssueRecord struct {
	ID         string
	Identifier string
	Title      string
	State      string
	Assignee   string
	Priority   int
	TeamKey    string
	ChildIDs   []string
}

// IssueDetail is the full issue payload: metadata plus the comment stream,
// the change history, and the sub-issue arena, fetched in a single query.
type IssueDetail struct {
	ID          string
	Identifier  string
	Title       string
	Description string
	State       string
	StateType   string
	Assignee    string
	Priority    int
	DueDate     string
	Labels      []IssueLabel
	TeamKey     string
	ProjectID   string
	ProjectName string
	URL         string
	CreatedAt   time.Time
	UpdatedAt   time.Time
	Comments    []Comment
	History     []HistoryEvent
	ChildIDs    []string
	SubIssues   []SubIssueRecord
}

// Project is a row in the projects overlay.
type Project struct {
	ID         string
	Name       string
	State      string
	TargetDate string
	Lead       string
	UpdatedAt  time.Time
}

// Cycle is a row in the cycles overlay.
type Cycle struct {
	ID       string
	Name     string
	Number   int
	StartsAt string
	EndsAt   string
	State    string
	TeamKey  string
}

// IssuePage is one page of issue summaries.
type IssuePage struct {
	Issues      []IssueSummary
	EndCursor   string
	HasNextPage bool
}

// ListIssuesParams constrains an issue listing query. Empty fields are
// omitted from the filter. StateTypes, when set, restricts to workflow state
// types (used for the Todo/Doing/Done tabs).
type ListIssuesParams struct {
	TeamKey       string
	ProjectID     string
	StateTypes    []string
	TitleContains string
	After         string
	First         int
}
