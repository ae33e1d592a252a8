package core

import (
	"context"
	"time"

	"github.com/lindash/lindash/internal/cache"
	"github.com/lindash/lindash/internal/linearapi"
	"github.com/lindash/lindash/internal/logger"
)

// Fetcher is the blocking fetch surface the dispatcher runs its workers
// against. Implementations resolve team keys and consult metadata caches;
// the dispatcher only cares that each call returns once.
type Fetcher interface {
	FetchPage(ctx context.Context, params linearapi.ListIssuesParams) (linearapi.IssuePage, error)
	FetchDetail(ctx context.Context, issueID string) (linearapi.IssueDetail, error)
	FetchProjects(ctx context.Context, teamKey string, limit int) ([]linearapi.Project, error)
	FetchCycles(ctx context.Context, teamKey string, limit int) ([]linearapi.Cycle, error)
	FetchTeams(ctx context.Context) ([]linearapi.Team, error)
	FetchWorkflowStates(ctx context.Context, teamKey string) ([]linearapi.WorkflowState, error)

	// InvalidateMetadata drops any cached team/workflow-state data so the
	// next metadata fetch hits the API again.
	InvalidateMetadata()
}

// RequestKind selects which fetch a request performs.
type RequestKind int

const (
	RequestPage RequestKind = iota
	RequestDetail
	RequestProjects
	RequestCycles
	RequestTeams
	RequestStates
)

func (k RequestKind) String() string {
	switch k {
	case RequestPage:
		return "page"
	case RequestDetail:
		return "detail"
	case RequestProjects:
		return "projects"
	case RequestCycles:
		return "cycles"
	case RequestTeams:
		return "teams"
	case RequestStates:
		return "states"
	default:
		return "unknown"
	}
}

// Request describes one background fetch. Only the fields relevant to its
// Kind are set.
type Request struct {
	Kind RequestKind

	// RequestPage.
	PageKey cache.PageKey
	Params  linearapi.ListIssuesParams

	// RequestDetail.
	IssueID string

	// RequestProjects, RequestCycles, RequestStates.
	TeamKey string
	Limit   int

	// Overlay marks a request issued for an overlay; its Gen is the
	// overlay generation, not the refresh generation.
	Overlay bool
}

// Completion is the single message a request resolves to. Exactly one of
// the payload fields is set when Err is nil, matching Req.Kind.
type Completion struct {
	Gen int64
	Req Request

	Page     linearapi.IssuePage
	Detail   linearapi.IssueDetail
	Projects []linearapi.Project
	Cycles   []linearapi.Cycle
	Teams    []linearapi.Team
	States   []linearapi.WorkflowState

	Err error
}

// Dispatcher runs fetches on background goroutines and delivers exactly one
// Completion per Submit on its channel. Submit never blocks; staleness is
// the consumer's problem, decided by comparing Gen on arrival.
type Dispatcher struct {
	fetcher     Fetcher
	completions chan Completion
	timeout     time.Duration
}

// NewDispatcher creates a dispatcher over fetcher. buffer bounds the
// completion queue; timeout caps each individual fetch.
func NewDispatcher(fetcher Fetcher, buffer int, timeout time.Duration) *Dispatcher {
	if buffer <= 0 {
		buffer = 64
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Dispatcher{
		fetcher:     fetcher,
		completions: make(chan Completion, buffer),
		timeout:     timeout,
	}
}

// Completions is the channel the event loop drains.
func (d *Dispatcher) Completions() <-chan Completion {
	return d.completions
}

// InvalidateMetadata drops the fetcher's cached metadata. Synchronous and
// cheap; reload calls it so teams and states are refetched from the API.
func (d *Dispatcher) InvalidateMetadata() {
	d.fetcher.InvalidateMetadata()
}

// Submit starts the fetch described by req under generation gen and returns
// immediately. The result arrives later on Completions.
func (d *Dispatcher) Submit(req Request, gen int64) {
	logger.Debug("dispatch: submit kind=%s gen=%d", req.Kind, gen)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		defer cancel()

		completion := Completion{Gen: gen, Req: req}
		switch req.Kind {
		case RequestPage:
			completion.Page, completion.Err = d.fetcher.FetchPage(ctx, req.Params)
		case RequestDetail:
			completion.Detail, completion.Err = d.fetcher.FetchDetail(ctx, req.IssueID)
		case RequestProjects:
			completion.Projects, completion.Err = d.fetcher.FetchProjects(ctx, req.TeamKey, req.Limit)
		case RequestCycles:
			completion.Cycles, completion.Err = d.fetcher.FetchCycles(ctx, req.TeamKey, req.Limit)
		case RequestTeams:
			completion.Teams, completion.Err = d.fetcher.FetchTeams(ctx)
		case RequestStates:
			completion.States, completion.Err = d.fetcher.FetchWorkflowStates(ctx, req.TeamKey)
		}
		if completion.Err != nil {
			logger.Debug("dispatch: completed kind=%s gen=%d err=%v", req.Kind, gen, completion.Err)
		}
		d.completions <- completion
	}()
}
