// Package tui renders the dashboard with tview and feeds terminal input
// into the core controller. All state lives in core; this package only
// translates events in and view-models out.
package tui

import (
	"context"
	"fmt"

	"github.com/lindash/lindash/internal/cache"
	"github.com/lindash/lindash/internal/core"
	"github.com/lindash/lindash/internal/linearapi"
)

// apiFetcher adapts the GraphQL client to core.Fetcher. It resolves team
// keys through the metadata cache, so only the dispatcher workers ever
// block on metadata lookups.
type apiFetcher struct {
	api  *linearapi.Client
	meta *cache.MetaCache
}

func newAPIFetcher(api *linearapi.Client, meta *cache.MetaCache) *apiFetcher {
	return &apiFetcher{api: api, meta: meta}
}

var _ core.Fetcher = (*apiFetcher)(nil)

func (f *apiFetcher) FetchPage(ctx context.Context, params linearapi.ListIssuesParams) (linearapi.IssuePage, error) {
	return f.api.ListIssuesPage(ctx, params)
}

func (f *apiFetcher) FetchDetail(ctx context.Context, issueID string) (linearapi.IssueDetail, error) {
	return f.api.FetchIssueDetail(ctx, issueID)
}

// resolveTeamID maps a team key to its id, empty key meaning unscoped.
func (f *apiFetcher) resolveTeamID(ctx context.Context, teamKey string) (string, error) {
	if teamKey == "" {
		return "", nil
	}
	team, ok, err := f.meta.TeamByKey(ctx, teamKey)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", fmt.Errorf("unknown team key %q", teamKey)
	}
	return team.ID, nil
}

func (f *apiFetcher) FetchProjects(ctx context.Context, teamKey string, limit int) ([]linearapi.Project, error) {
	teamID, err := f.resolveTeamID(ctx, teamKey)
	if err != nil {
		return nil, err
	}
	return f.api.ListProjects(ctx, teamID, limit)
}

func (f *apiFetcher) FetchCycles(ctx context.Context, teamKey string, limit int) ([]linearapi.Cycle, error) {
	teamID, err := f.resolveTeamID(ctx, teamKey)
	if err != nil {
		return nil, err
	}
	return f.api.ListCycles(ctx, teamID, limit)
}

func (f *apiFetcher) FetchTeams(ctx context.Context) ([]linearapi.Team, error) {
	return f.meta.Teams(ctx)
}

func (f *apiFetcher) FetchWorkflowStates(ctx context.Context, teamKey string) ([]linearapi.WorkflowState, error) {
	teamID, err := f.resolveTeamID(ctx, teamKey)
	if err != nil {
		return nil, err
	}
	return f.meta.WorkflowStates(ctx, teamID)
}

func (f *apiFetcher) InvalidateMetadata() {
	f.meta.Invalidate()
}
