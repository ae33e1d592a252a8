package cache

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/lindash/lindash/internal/linearapi"
	"github.com/lindash/lindash/internal/logger"
)

// MetaFetcher is the subset of the API client the metadata cache needs.
type MetaFetcher interface {
	ListTeams(ctx context.Context) ([]linearapi.Team, error)
	ListWorkflowStates(ctx context.Context, teamID string) ([]linearapi.WorkflowState, error)
}

type metaEntry[T any] struct {
	value     T
	fetchedAt time.Time
}

func (e *metaEntry[T]) fresh(ttl time.Duration, now time.Time) bool {
	return e != nil && now.Sub(e.fetchedAt) < ttl
}

// MetaCache caches teams and per-team workflow states with a TTL. It is safe
// for concurrent use; fetch workers call into it directly, so a miss blocks
// the calling worker, never the event loop.
type MetaCache struct {
	fetcher MetaFetcher
	ttl     time.Duration

	mu     sync.Mutex
	teams  *metaEntry[[]linearapi.Team]
	states map[string]*metaEntry[[]linearapi.WorkflowState]

	// now is swapped in tests.
	now func() time.Time
}

// NewMetaCache creates a metadata cache over fetcher with the given TTL.
func NewMetaCache(fetcher MetaFetcher, ttl time.Duration) *MetaCache {
	return &MetaCache{
		fetcher: fetcher,
		ttl:     ttl,
		states:  make(map[string]*metaEntry[[]linearapi.WorkflowState]),
		now:     time.Now,
	}
}

// Teams returns the cached team list, fetching it when missing or stale.
func (c *MetaCache) Teams(ctx context.Context) ([]linearapi.Team, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.teams.fresh(c.ttl, c.now()) {
		return c.teams.value, nil
	}

	teams, err := c.fetcher.ListTeams(ctx)
	if err != nil {
		// Serve stale data over an error when we have any.
		if c.teams != nil {
			logger.Warning("cache: serving stale teams after fetch error: %v", err)
			return c.teams.value, nil
		}
		return nil, err
	}
	c.teams = &metaEntry[[]linearapi.Team]{value: teams, fetchedAt: c.now()}
	return teams, nil
}

// TeamByKey resolves a team key (case-insensitive match on Key) against the
// cached team list.
func (c *MetaCache) TeamByKey(ctx context.Context, key string) (linearapi.Team, bool, error) {
	teams, err := c.Teams(ctx)
	if err != nil {
		return linearapi.Team{}, false, err
	}
	for _, team := range teams {
		if strings.EqualFold(team.Key, key) {
			return team, true, nil
		}
	}
	return linearapi.Team{}, false, nil
}

// WorkflowStates returns the cached workflow states of a team, fetching them
// when missing or stale.
func (c *MetaCache) WorkflowStates(ctx context.Context, teamID string) ([]linearapi.WorkflowState, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if entry := c.states[teamID]; entry.fresh(c.ttl, c.now()) {
		return entry.value, nil
	}

	states, err := c.fetcher.ListWorkflowStates(ctx, teamID)
	if err != nil {
		if entry := c.states[teamID]; entry != nil {
			logger.Warning("cache: serving stale workflow states after fetch error team_id=%s: %v", teamID, err)
			return entry.value, nil
		}
		return nil, err
	}
	c.states[teamID] = &metaEntry[[]linearapi.WorkflowState]{value: states, fetchedAt: c.now()}
	return states, nil
}

// Invalidate empties the cache. Used on reload.
func (c *MetaCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.teams = nil
	c.states = make(map[string]*metaEntry[[]linearapi.WorkflowState])
}
