// Package linearapi is the GraphQL client for the work-tracking API. It
// issues one query per call and returns plain records; orchestration and
// caching live above it.
package linearapi

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/shurcooL/graphql"

	"github.com/lindash/lindash/internal/auth"
	"github.com/lindash/lindash/internal/logger"
)

// DefaultEndpoint is the production GraphQL endpoint.
const DefaultEndpoint = "https://api.linear.app/graphql"

// parseTime safely parses an RFC3339 time string, returning zero time on error.
func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

// IssueFilter is a custom scalar type for the API's IssueFilter input.
// It allows passing complex filter objects to the GraphQL API.
type IssueFilter map[string]interface{}

// GetGraphQLType returns the GraphQL type name for the filter.
func (IssueFilter) GetGraphQLType() string {
	return "IssueFilter"
}

// MarshalJSON implements json.Marshaler for IssueFilter.
func (f IssueFilter) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]interface{}(f))
}

// PaginationOrderBy is a custom type for the PaginationOrderBy enum.
// Valid values are "createdAt" and "updatedAt".
type PaginationOrderBy string

// GetGraphQLType returns the GraphQL type name for the enum.
func (PaginationOrderBy) GetGraphQLType() string {
	return "PaginationOrderBy"
}

// Common PaginationOrderBy values.
const (
	OrderByCreatedAt PaginationOrderBy = "createdAt"
	OrderByUpdatedAt PaginationOrderBy = "updatedAt"
)

// ClientConfig contains configuration for creating a new API client.
type ClientConfig struct {
	// Sessions supplies the credential used for each request.
	Sessions auth.Provider
	// Endpoint is the GraphQL API endpoint (defaults to the production endpoint).
	Endpoint string
	// HTTPClient is an optional custom HTTP client (useful for testing).
	HTTPClient *http.Client
	// Timeout is the HTTP request timeout (defaults to 30s).
	Timeout time.Duration
}

// Client is a client for the work-tracking GraphQL API.
type Client struct {
	httpClient *http.Client
	endpoint   string
	client     *graphql.Client
}

// NewClient creates a new API client with the provided configuration.
func NewClient(cfg ClientConfig) *Client {
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}
	base := httpClient.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	httpClient.Transport = &authTransport{
		sessions: cfg.Sessions,
		base:     base,
	}

	return &Client{
		httpClient: httpClient,
		endpoint:   endpoint,
		client:     graphql.NewClient(endpoint, httpClient),
	}
}

// authTransport resolves the current session and sets the Authorization
// header on each request. A missing session or a 401 response surfaces as
// auth.ErrUnauthenticated.
type authTransport struct {
	sessions auth.Provider
	base     http.RoundTripper
}

// RoundTrip implements http.RoundTripper.
func (t *authTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.sessions != nil {
		session, err := t.sessions.CurrentSession(req.Context())
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", session.AuthorizationHeader())
	}
	resp, err := t.base.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusUnauthorized {
		resp.Body.Close()
		return nil, auth.ErrUnauthenticated
	}
	return resp, nil
}

// Endpoint returns the GraphQL endpoint being used.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// Viewer fetches the authenticated user.
func (c *Client) Viewer(ctx context.Context) (User, error) {
	var query struct {
		Viewer struct {
			ID          graphql.String
			Name        graphql.String
			DisplayName graphql.String
			Email       graphql.String
		}
	}

	if err := c.client.Query(ctx, &query, nil); err != nil {
		logger.ErrorWithErr(err, "api: viewer query failed")
		return User{}, Classify("viewer", err)
	}

	return User{
		ID:          string(query.Viewer.ID),
		Name:        string(query.Viewer.Name),
		DisplayName: string(query.Viewer.DisplayName),
		Email:       string(query.Viewer.Email),
	}, nil
}

// ListTeams fetches all teams the user has access to.
func (c *Client) ListTeams(ctx context.Context) ([]Team, error) {
	var query struct {
		Teams struct {
			Nodes []struct {
				ID   graphql.String
				Key  graphql.String
				Name graphql.String
			}
		}
	}

	if err := c.client.Query(ctx, &query, nil); err != nil {
		logger.ErrorWithErr(err, "api: list teams failed")
		return nil, Classify("list teams", err)
	}

	teams := make([]Team, 0, len(query.Teams.Nodes))
	for _, node := range query.Teams.Nodes {
		teams = append(teams, Team{
			ID:   string(node.ID),
			Key:  string(node.Key),
			Name: string(node.Name),
		})
	}
	return teams, nil
}

// ListWorkflowStates fetches the workflow states of a team.
func (c *Client) ListWorkflowStates(ctx context.Context, teamID string) ([]WorkflowState, error) {
	var query struct {
		Team struct {
			States struct {
				Nodes []struct {
					ID       graphql.String
					Name     graphql.String
					Type     graphql.String
					Position graphql.Float
				}
			}
		} `graphql:"team(id: $teamId)"`
	}

	variables := map[string]interface{}{
		"teamId": graphql.String(teamID),
	}

	if err := c.client.Query(ctx, &query, variables); err != nil {
		logger.ErrorWithErr(err, "api: list workflow states failed team_id=%s", teamID)
		return nil, Classify("list workflow states", err)
	}

	states := make([]WorkflowState, 0, len(query.Team.States.Nodes))
	for _, node := range query.Team.States.Nodes {
		states = append(states, WorkflowState{
			ID:       string(node.ID),
			Name:     string(node.Name),
			Type:     string(node.Type),
			Position: float64(node.Position),
			TeamID:   teamID,
		})
	}
	return states, nil
}

type projectNode struct {
	ID         graphql.String
	Name       graphql.String
	State      graphql.String
	TargetDate graphql.String
	UpdatedAt  graphql.String
	Lead       *struct {
		Name        graphql.String
		DisplayName graphql.String
	}
}

func (n projectNode) toProject() Project {
	project := Project{
		ID:         string(n.ID),
		Name:       string(n.Name),
		State:      string(n.State),
		TargetDate: string(n.TargetDate),
		UpdatedAt:  parseTime(string(n.UpdatedAt)),
	}
	if n.Lead != nil {
		project.Lead = User{
			Name:        string(n.Lead.Name),
			DisplayName: string(n.Lead.DisplayName),
		}.Label()
	}
	return project
}

// ListProjects fetches the most recently updated projects, optionally scoped
// to a team.
func (c *Client) ListProjects(ctx context.Context, teamID string, first int) ([]Project, error) {
	if teamID != "" {
		var query struct {
			Team struct {
				Projects struct {
					Nodes []projectNode
				} `graphql:"projects(first: $first, orderBy: $orderBy)"`
			} `graphql:"team(id: $teamId)"`
		}
		variables := map[string]interface{}{
			"teamId":  graphql.String(teamID),
			"first":   graphql.Int(first),
			"orderBy": OrderByUpdatedAt,
		}
		if err := c.client.Query(ctx, &query, variables); err != nil {
			logger.ErrorWithErr(err, "api: list projects failed team_id=%s", teamID)
			return nil, Classify("list projects", err)
		}
		projects := make([]Project, 0, len(query.Team.Projects.Nodes))
		for _, node := range query.Team.Projects.Nodes {
			projects = append(projects, node.toProject())
		}
		return projects, nil
	}

	var query struct {
		Projects struct {
			Nodes []projectNode
		} `graphql:"projects(first: $first, orderBy: $orderBy)"`
	}
	variables := map[string]interface{}{
		"first":   graphql.Int(first),
		"orderBy": OrderByUpdatedAt,
	}
	if err := c.client.Query(ctx, &query, variables); err != nil {
		logger.ErrorWithErr(err, "api: list projects failed")
		return nil, Classify("list projects", err)
	}
	projects := make([]Project, 0, len(query.Projects.Nodes))
	for _, node := range query.Projects.Nodes {
		projects = append(projects, node.toProject())
	}
	return projects, nil
}

type cycleNode struct {
	ID       graphql.String
	Name     graphql.String
	Number   graphql.Float
	StartsAt graphql.String
	EndsAt   graphql.String
	Team     *struct {
		Key graphql.String
	}
}

func (n cycleNode) toCycle() Cycle {
	cycle := Cycle{
		ID:       string(n.ID),
		Name:     string(n.Name),
		Number:   int(n.Number),
		StartsAt: string(n.StartsAt),
		EndsAt:   string(n.EndsAt),
	}
	if n.Team != nil {
		cycle.TeamKey = string(n.Team.Key)
	}
	return cycle
}

// ListCycles fetches the most recent cycles, optionally scoped to a team.
func (c *Client) ListCycles(ctx context.Context, teamID string, first int) ([]Cycle, error) {
	if teamID != "" {
		var query struct {
			Team struct {
				Cycles struct {
					Nodes []cycleNode
				} `graphql:"cycles(first: $first)"`
			} `graphql:"team(id: $teamId)"`
		}
		variables := map[string]interface{}{
			"teamId": graphql.String(teamID),
			"first":  graphql.Int(first),
		}
		if err := c.client.Query(ctx, &query, variables); err != nil {
			logger.ErrorWithErr(err, "api: list cycles failed team_id=%s", teamID)
			return nil, Classify("list cycles", err)
		}
		cycles := make([]Cycle, 0, len(query.Team.Cycles.Nodes))
		for _, node := range query.Team.Cycles.Nodes {
			cycles = append(cycles, node.toCycle())
		}
		return cycles, nil
	}

	var query struct {
		Cycles struct {
			Nodes []cycleNode
		} `graphql:"cycles(first: $first)"`
	}
	variables := map[string]interface{}{
		"first": graphql.Int(first),
	}
	if err := c.client.Query(ctx, &query, variables); err != nil {
		logger.ErrorWithErr(err, "api: list cycles failed")
		return nil, Classify("list cycles", err)
	}
	cycles := make([]Cycle, 0, len(query.Cycles.Nodes))
	for _, node := range query.Cycles.Nodes {
		cycles = append(cycles, node.toCycle())
	}
	return cycles, nil
}

// buildIssueFilter converts listing params to the API's IssueFilter input.
func buildIssueFilter(params ListIssuesParams) IssueFilter {
	filter := IssueFilter{}
	if params.TeamKey != "" {
		filter["team"] = map[string]interface{}{
			"key": map[string]interface{}{"eq": params.TeamKey},
		}
	}
	if params.ProjectID != "" {
		filter["project"] = map[string]interface{}{
			"id": map[string]interface{}{"eq": params.ProjectID},
		}
	}
	if len(params.StateTypes) > 0 {
		filter["state"] = map[string]interface{}{
			"type": map[string]interface{}{"in": params.StateTypes},
		}
	}
	if params.TitleContains != "" {
		filter["title"] = map[string]interface{}{
			"containsIgnoreCase": params.TitleContains,
		}
	}
	return filter
}

// ListIssuesPage fetches one page of issue summaries matching params.
func (c *Client) ListIssuesPage(ctx context.Context, params ListIssuesParams) (IssuePage, error) {
	var query struct {
		Issues struct {
			Nodes []struct {
				ID         graphql.String
				Identifier graphql.String
				Title      graphql.String
				URL        graphql.String
				Priority   graphql.Float
				CreatedAt  graphql.String
				UpdatedAt  graphql.String
				State      *struct {
					Name graphql.String
					Type graphql.String
				}
				Assignee *struct {
					Name        graphql.String
					DisplayName graphql.String
				}
			}
			PageInfo struct {
				HasNextPage graphql.Boolean
				EndCursor   graphql.String
			}
		} `graphql:"issues(first: $first, after: $after, filter: $filter, orderBy: $orderBy)"`
	}

	first := params.First
	if first <= 0 {
		first = 20
	}
	var after *graphql.String
	if params.After != "" {
		cursor := graphql.String(params.After)
		after = &cursor
	}
	variables := map[string]interface{}{
		"first":   graphql.Int(first),
		"after":   after,
		"filter":  buildIssueFilter(params),
		"orderBy": OrderByUpdatedAt,
	}

	if err := c.client.Query(ctx, &query, variables); err != nil {
		logger.ErrorWithErr(err, "api: list issues failed team=%s project=%s", params.TeamKey, params.ProjectID)
		return IssuePage{}, Classify("list issues", err)
	}

	page := IssuePage{
		Issues:      make([]IssueSummary, 0, len(query.Issues.Nodes)),
		EndCursor:   string(query.Issues.PageInfo.EndCursor),
		HasNextPage: bool(query.Issues.PageInfo.HasNextPage),
	}
	for _, node := range query.Issues.Nodes {
		summary := IssueSummary{
			ID:         string(node.ID),
			Identifier: string(node.Identifier),
			Title:      string(node.Title),
			URL:        string(node.URL),
			Priority:   int(node.Priority),
			CreatedAt:  parseTime(string(node.CreatedAt)),
			UpdatedAt:  parseTime(string(node.UpdatedAt)),
		}
		if node.State != nil {
			summary.State = string(node.State.Name)
			summary.StateType = string(node.State.Type)
		}
		if node.Assignee != nil {
			summary.Assignee = User{
				Name:        string(node.Assignee.Name),
				DisplayName: string(node.Assignee.DisplayName),
			}.Label()
		}
		page.Issues = append(page.Issues, summary)
	}
	return page, nil
}
