package core

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/lindash/lindash/internal/auth"
	"github.com/lindash/lindash/internal/cache"
	"github.com/lindash/lindash/internal/linearapi"
)

// fakeFetcher answers dispatcher requests from canned data. Function fields
// override individual fetches; unset ones return zero values.
type fakeFetcher struct {
	mu            sync.Mutex
	pageCalls     int
	invalidations int

	page     func(params linearapi.ListIssuesParams) (linearapi.IssuePage, error)
	detail   func(issueID string) (linearapi.IssueDetail, error)
	projects func() ([]linearapi.Project, error)
	cycles   func() ([]linearapi.Cycle, error)
	teams    func() ([]linearapi.Team, error)
}

func (f *fakeFetcher) FetchPage(ctx context.Context, params linearapi.ListIssuesParams) (linearapi.IssuePage, error) {
	f.mu.Lock()
	f.pageCalls++
	f.mu.Unlock()
	if f.page == nil {
		return linearapi.IssuePage{}, nil
	}
	return f.page(params)
}

func (f *fakeFetcher) FetchDetail(ctx context.Context, issueID string) (linearapi.IssueDetail, error) {
	if f.detail == nil {
		identifier := strings.TrimPrefix(issueID, "id-")
		return linearapi.IssueDetail{ID: issueID, Identifier: identifier}, nil
	}
	return f.detail(issueID)
}

func (f *fakeFetcher) FetchProjects(ctx context.Context, teamKey string, limit int) ([]linearapi.Project, error) {
	if f.projects == nil {
		return nil, nil
	}
	return f.projects()
}

func (f *fakeFetcher) FetchCycles(ctx context.Context, teamKey string, limit int) ([]linearapi.Cycle, error) {
	if f.cycles == nil {
		return nil, nil
	}
	return f.cycles()
}

func (f *fakeFetcher) FetchTeams(ctx context.Context) ([]linearapi.Team, error) {
	if f.teams == nil {
		return nil, nil
	}
	return f.teams()
}

func (f *fakeFetcher) FetchWorkflowStates(ctx context.Context, teamKey string) ([]linearapi.WorkflowState, error) {
	return nil, nil
}

func (f *fakeFetcher) InvalidateMetadata() {
	f.mu.Lock()
	f.invalidations++
	f.mu.Unlock()
}

func (f *fakeFetcher) pageCallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pageCalls
}

func (f *fakeFetcher) invalidationCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.invalidations
}

func issues(identifiers ...string) []linearapi.IssueSummary {
	out := make([]linearapi.IssueSummary, 0, len(identifiers))
	for _, identifier := range identifiers {
		out = append(out, linearapi.IssueSummary{ID: "id-" + identifier, Identifier: identifier, Title: "t " + identifier})
	}
	return out
}

func fixedPage(identifiers ...string) func(linearapi.ListIssuesParams) (linearapi.IssuePage, error) {
	return func(linearapi.ListIssuesParams) (linearapi.IssuePage, error) {
		return linearapi.IssuePage{Issues: issues(identifiers...), EndCursor: "cur", HasNextPage: true}, nil
	}
}

func newTestController(fetcher *fakeFetcher) (*Controller, *Dispatcher) {
	dispatcher := NewDispatcher(fetcher, 32, time.Second)
	controller := NewController(dispatcher, Options{PageSize: 20, OverlayLimit: 10})
	return controller, dispatcher
}

// settle drains completions until the dispatcher goes quiet, applying each
// to the controller the way the event loop would.
func settle(c *Controller, d *Dispatcher) {
	for {
		select {
		case completion := <-d.Completions():
			c.HandleCompletion(completion)
		case <-time.After(250 * time.Millisecond):
			return
		}
	}
}

func typeLine(c *Controller, line string) {
	for _, r := range line {
		c.HandleInput(RuneEvent(r))
	}
}

func TestController_StartLoadsFirstPage(t *testing.T) {
	fetcher := &fakeFetcher{page: fixedPage("ENG-1", "ENG-2")}
	c, d := newTestController(fetcher)
	c.Start()
	settle(c, d)

	vm := c.ViewModel()
	if len(vm.Issues) != 2 {
		t.Fatalf("Issues = %d, want 2", len(vm.Issues))
	}
	if vm.Selected != "ENG-1" || vm.SelectedIndex != 0 {
		t.Errorf("selection = %q idx %d, want ENG-1 at 0", vm.Selected, vm.SelectedIndex)
	}
	if vm.Detail == nil {
		t.Error("detail for the auto-selected issue was not fetched")
	}
	if vm.PageLoading {
		t.Error("PageLoading = true after settle")
	}
}

func TestController_GenerationIncrementsPerFilterChange(t *testing.T) {
	fetcher := &fakeFetcher{}
	c, d := newTestController(fetcher)
	c.Start()
	settle(c, d)

	start := c.Generation()
	c.Execute(SetStatus{Tab: TabTodo})
	c.Execute(SetStatus{Tab: TabDoing})
	c.Execute(SetContains{Text: "flaky"})
	c.Execute(ClearFilters{})

	if got := c.Generation(); got != start+4 {
		t.Errorf("generation = %d after 4 changes from %d, want %d", got, start, start+4)
	}
}

func TestController_NoopFilterChangeKeepsGeneration(t *testing.T) {
	fetcher := &fakeFetcher{}
	c, d := newTestController(fetcher)
	c.Start()
	settle(c, d)

	start := c.Generation()
	c.Execute(SetStatus{Tab: TabAll}) // already on All
	if got := c.Generation(); got != start {
		t.Errorf("generation = %d after no-op change, want %d", got, start)
	}
}

func TestController_ClearWithoutFiltersIsNoop(t *testing.T) {
	fetcher := &fakeFetcher{}
	c, d := newTestController(fetcher)
	c.Start()
	settle(c, d)

	start := c.Generation()
	c.Execute(ClearFilters{})
	if got := c.Generation(); got != start {
		t.Errorf("generation = %d after clearing an empty filter, want %d", got, start)
	}
	if vm := c.ViewModel(); vm.Status != "no active filters" {
		t.Errorf("Status = %q, want %q", vm.Status, "no active filters")
	}
}

func TestController_StaleCompletionDiscarded(t *testing.T) {
	fetcher := &fakeFetcher{page: fixedPage("ENG-1", "ENG-2")}
	c, d := newTestController(fetcher)
	c.Start()
	settle(c, d)

	oldGen := c.Generation()
	oldKey := cache.PageKey{Fingerprint: c.Filter().Fingerprint(), Page: 0}

	c.Execute(SetStatus{Tab: TabTodo})
	if c.Generation() != oldGen+1 {
		t.Fatalf("generation = %d, want %d", c.Generation(), oldGen+1)
	}

	// The old fetch lands after the filter change: it must change nothing.
	before := c.ViewModel()
	c.HandleCompletion(Completion{
		Gen:  oldGen,
		Req:  Request{Kind: RequestPage, PageKey: oldKey},
		Page: linearapi.IssuePage{Issues: issues("ENG-9")},
	})
	after := c.ViewModel()

	if after.Selected != before.Selected {
		t.Errorf("stale completion moved selection: %q -> %q", before.Selected, after.Selected)
	}
	for _, issue := range after.Issues {
		if issue.Identifier == "ENG-9" {
			t.Error("stale completion's rows are visible")
		}
	}

	settle(c, d)
	vm := c.ViewModel()
	if len(vm.Issues) != 2 || vm.PageLoading {
		t.Errorf("fresh fetch did not land: %d issues loading=%t", len(vm.Issues), vm.PageLoading)
	}
}

func TestController_SelectionPreservedAcrossRefresh(t *testing.T) {
	fetcher := &fakeFetcher{}
	rows := issues("ENG-1", "ENG-2", "ENG-3")
	fetcher.page = func(linearapi.ListIssuesParams) (linearapi.IssuePage, error) {
		return linearapi.IssuePage{Issues: rows}, nil
	}
	c, d := newTestController(fetcher)
	c.Start()
	settle(c, d)

	c.HandleInput(RuneEvent('j'))
	if vm := c.ViewModel(); vm.Selected != "ENG-2" {
		t.Fatalf("selection = %q, want ENG-2", vm.Selected)
	}

	// Reordered result that still contains the selected issue.
	rows = issues("ENG-3", "ENG-2", "ENG-9")
	c.Execute(GoToPage{Selector: "refresh"})
	settle(c, d)

	vm := c.ViewModel()
	if vm.Selected != "ENG-2" {
		t.Errorf("selection = %q after refresh, want ENG-2", vm.Selected)
	}
	if vm.SelectedIndex != 1 {
		t.Errorf("SelectedIndex = %d, want 1 (new position)", vm.SelectedIndex)
	}
}

func TestController_SelectionFallsBackWhenGone(t *testing.T) {
	fetcher := &fakeFetcher{}
	rows := issues("ENG-1", "ENG-2")
	fetcher.page = func(linearapi.ListIssuesParams) (linearapi.IssuePage, error) {
		return linearapi.IssuePage{Issues: rows}, nil
	}
	c, d := newTestController(fetcher)
	c.Start()
	settle(c, d)

	c.HandleInput(RuneEvent('j'))

	rows = issues("ENG-5", "ENG-6")
	c.Execute(GoToPage{Selector: "refresh"})
	settle(c, d)

	if vm := c.ViewModel(); vm.Selected != "ENG-5" {
		t.Errorf("selection = %q, want fallback to first row ENG-5", vm.Selected)
	}
}

func TestController_AtMostOneFetchPerKey(t *testing.T) {
	fetcher := &fakeFetcher{page: fixedPage("ENG-1")}
	c, d := newTestController(fetcher)
	c.Start()
	settle(c, d)

	calls := fetcher.pageCallCount()
	c.Execute(GoToPage{Selector: "refresh"})
	c.ensureCurrentPage() // pending entry must suppress this
	c.ensureCurrentPage()

	settle(c, d)
	if got := fetcher.pageCallCount(); got != calls+1 {
		t.Errorf("page fetches = %d, want %d (one refresh)", got, calls+1)
	}

	c.ensureCurrentPage() // ready entry must suppress this too
	settle(c, d)
	if got := fetcher.pageCallCount(); got != calls+1 {
		t.Errorf("page fetches = %d after ready re-ensure, want %d", got, calls+1)
	}
}

func TestController_FailedFetchSurfacesAndRetries(t *testing.T) {
	fetcher := &fakeFetcher{}
	fail := false
	fetcher.page = func(linearapi.ListIssuesParams) (linearapi.IssuePage, error) {
		if fail {
			return linearapi.IssuePage{}, errors.New("connection reset")
		}
		return linearapi.IssuePage{Issues: issues("ENG-1")}, nil
	}
	c, d := newTestController(fetcher)
	c.Start()
	settle(c, d)

	fail = true
	c.Execute(GoToPage{Selector: "refresh"})
	settle(c, d)

	vm := c.ViewModel()
	if !vm.PageFailed || vm.FailReason == nil {
		t.Fatalf("vm = failed=%t reason=%v, want a visible failure", vm.PageFailed, vm.FailReason)
	}
	if !vm.StatusIsError || vm.Status == "" {
		t.Errorf("status = %q err=%t, want an error message", vm.Status, vm.StatusIsError)
	}

	fail = false
	c.ensureCurrentPage() // failed entries retry on the next request
	settle(c, d)
	vm = c.ViewModel()
	if vm.PageFailed || len(vm.Issues) != 1 {
		t.Errorf("retry did not recover: failed=%t issues=%d", vm.PageFailed, len(vm.Issues))
	}
}

func TestController_DetailTabRemembered(t *testing.T) {
	fetcher := &fakeFetcher{page: fixedPage("ENG-12", "ENG-13")}
	c, d := newTestController(fetcher)
	c.Start()
	settle(c, d)

	c.Execute(ViewIssue{Key: "ENG-12"})
	c.Execute(SetDetailTab{Tab: DetailTabSubIssues})

	c.Execute(ViewIssue{Key: "ENG-13"})
	settle(c, d)
	if vm := c.ViewModel(); vm.DetailTab != DetailTabSummary {
		t.Errorf("ENG-13 tab = %v, want the Summary default", vm.DetailTab)
	}

	c.Execute(ViewIssue{Key: "ENG-12"})
	if vm := c.ViewModel(); vm.DetailTab != DetailTabSubIssues {
		t.Errorf("ENG-12 tab = %v, want the remembered Sub-issues", vm.DetailTab)
	}
}

func TestController_UnknownCommandOnlySetsStatus(t *testing.T) {
	fetcher := &fakeFetcher{page: fixedPage("ENG-1")}
	c, d := newTestController(fetcher)
	c.Start()
	settle(c, d)

	before := c.ViewModel()
	gen := c.Generation()

	c.Execute(ParseCommand("bogus"))

	after := c.ViewModel()
	if c.Generation() != gen {
		t.Error("unknown command bumped the generation")
	}
	if after.Filter != before.Filter || after.Selected != before.Selected ||
		after.Mode != before.Mode || after.Page != before.Page {
		t.Error("unknown command mutated state beyond the status line")
	}
	if after.Status == "" || !after.StatusIsError {
		t.Errorf("status = %q err=%t, want an unknown-command message", after.Status, after.StatusIsError)
	}
}

func TestController_PaletteRoundTrip(t *testing.T) {
	fetcher := &fakeFetcher{}
	c, d := newTestController(fetcher)
	c.Start()
	settle(c, d)

	c.HandleInput(RuneEvent(':'))
	if vm := c.ViewModel(); vm.Mode != ModePalette {
		t.Fatalf("Mode = %v after ':', want palette", vm.Mode)
	}

	typeLine(c, "status done")
	c.HandleInput(InputEvent{Key: KeyEnter})
	settle(c, d)

	vm := c.ViewModel()
	if vm.Mode != ModeBrowsing {
		t.Errorf("Mode = %v after execute, want browsing", vm.Mode)
	}
	if vm.Filter.Status != TabDone {
		t.Errorf("Status tab = %v, want Done", vm.Filter.Status)
	}

	// History recall on the next open.
	c.HandleInput(RuneEvent(':'))
	c.HandleInput(InputEvent{Key: KeyUp})
	if vm := c.ViewModel(); vm.PaletteInput != "status done" {
		t.Errorf("recalled input = %q, want the previous line", vm.PaletteInput)
	}
}

func TestController_PaletteEscapeCancels(t *testing.T) {
	fetcher := &fakeFetcher{}
	c, d := newTestController(fetcher)
	c.Start()
	settle(c, d)

	gen := c.Generation()
	c.HandleInput(RuneEvent(':'))
	typeLine(c, "status done")
	c.HandleInput(InputEvent{Key: KeyEscape})

	vm := c.ViewModel()
	if vm.Mode != ModeBrowsing || vm.Filter.Status != TabAll || c.Generation() != gen {
		t.Errorf("escape executed the pending command: %+v", vm.Filter)
	}
}

func TestController_OverlayToggleAndReplace(t *testing.T) {
	fetcher := &fakeFetcher{
		projects: func() ([]linearapi.Project, error) {
			return []linearapi.Project{{ID: "p-1", Name: "Stability"}}, nil
		},
		cycles: func() ([]linearapi.Cycle, error) {
			return []linearapi.Cycle{{ID: "cy-1", Name: "Sprint 4"}}, nil
		},
	}
	c, d := newTestController(fetcher)
	c.Start()
	settle(c, d)

	c.HandleInput(RuneEvent('o'))
	settle(c, d)
	vm := c.ViewModel()
	if vm.Overlay != OverlayProjects || len(vm.Projects) != 1 {
		t.Fatalf("overlay = %v with %d projects, want projects overlay", vm.Overlay, len(vm.Projects))
	}

	// Opening cycles while projects is showing replaces it.
	c.HandleInput(RuneEvent('y'))
	settle(c, d)
	vm = c.ViewModel()
	if vm.Overlay != OverlayCycles || len(vm.Cycles) != 1 {
		t.Fatalf("overlay = %v with %d cycles, want cycles overlay", vm.Overlay, len(vm.Cycles))
	}

	// Same key toggles closed.
	c.HandleInput(RuneEvent('y'))
	if vm := c.ViewModel(); vm.Overlay != OverlayNone || vm.Mode != ModeBrowsing {
		t.Errorf("overlay = %v mode = %v after toggle, want closed", vm.Overlay, vm.Mode)
	}
}

func TestController_OverlayCompletionAfterCloseDropped(t *testing.T) {
	// The startup projects fetch answers immediately; only the overlay's
	// own fetch is slow, so it completes after the overlay was closed.
	startup := make(chan struct{}, 1)
	startup <- struct{}{}
	release := make(chan struct{})
	fetcher := &fakeFetcher{
		projects: func() ([]linearapi.Project, error) {
			select {
			case <-startup:
				return nil, nil
			default:
			}
			<-release
			return []linearapi.Project{{ID: "p-1", Name: "Late"}}, nil
		},
	}
	c, d := newTestController(fetcher)
	c.Start()
	settle(c, d)

	c.HandleInput(RuneEvent('o'))
	c.HandleInput(InputEvent{Key: KeyEscape})
	close(release)
	settle(c, d)

	vm := c.ViewModel()
	if vm.Overlay != OverlayNone {
		t.Errorf("overlay = %v, want none", vm.Overlay)
	}
	if len(vm.Projects) != 0 {
		t.Errorf("late overlay completion leaked: %+v", vm.Projects)
	}
	c.Execute(SetProject{Selector: SelNext})
	if got := c.Filter().ProjectID; got != "" {
		t.Errorf("project cycling found leaked projects, ProjectID = %q", got)
	}
}

func TestController_OverlayEnterScopesProject(t *testing.T) {
	fetcher := &fakeFetcher{
		projects: func() ([]linearapi.Project, error) {
			return []linearapi.Project{
				{ID: "p-1", Name: "Stability"},
				{ID: "p-2", Name: "Roadmap"},
			}, nil
		},
	}
	c, d := newTestController(fetcher)
	c.Start()
	settle(c, d)

	gen := c.Generation()
	c.HandleInput(RuneEvent('o'))
	settle(c, d)
	c.HandleInput(RuneEvent('j'))
	c.HandleInput(InputEvent{Key: KeyEnter})

	vm := c.ViewModel()
	if vm.Filter.ProjectID != "p-2" {
		t.Errorf("ProjectID = %q, want p-2", vm.Filter.ProjectID)
	}
	if vm.Overlay != OverlayNone {
		t.Errorf("overlay = %v after Enter, want closed", vm.Overlay)
	}
	if c.Generation() != gen+1 {
		t.Errorf("generation = %d, want %d (one filter change)", c.Generation(), gen+1)
	}
}

func TestController_ProjectCycling(t *testing.T) {
	fetcher := &fakeFetcher{
		projects: func() ([]linearapi.Project, error) {
			return []linearapi.Project{
				{ID: "p-1", Name: "Alpha"},
				{ID: "p-2", Name: "Beta"},
			}, nil
		},
	}
	c, d := newTestController(fetcher)
	c.Start()
	settle(c, d)

	c.Execute(SetProject{Selector: SelNext})
	if got := c.Filter().ProjectID; got != "p-1" {
		t.Errorf("first next = %q, want p-1", got)
	}
	c.Execute(SetProject{Selector: SelNext})
	if got := c.Filter().ProjectID; got != "p-2" {
		t.Errorf("second next = %q, want p-2", got)
	}
	c.Execute(SetProject{Selector: SelNext})
	if got := c.Filter().ProjectID; got != "p-1" {
		t.Errorf("wrap next = %q, want p-1", got)
	}
	c.Execute(SetProject{Selector: SelClear})
	if got := c.Filter().ProjectID; got != "" {
		t.Errorf("clear = %q, want empty", got)
	}
}

func TestController_ReloadInvalidatesMetadata(t *testing.T) {
	fetcher := &fakeFetcher{}
	c, d := newTestController(fetcher)
	c.Start()
	settle(c, d)

	c.HandleInput(RuneEvent('r'))
	settle(c, d)

	if got := fetcher.invalidationCount(); got != 1 {
		t.Errorf("metadata invalidations after reload = %d, want 1", got)
	}
}

func TestController_UnauthenticatedSurfaces(t *testing.T) {
	fetcher := &fakeFetcher{
		page: func(linearapi.ListIssuesParams) (linearapi.IssuePage, error) {
			return linearapi.IssuePage{}, auth.ErrUnauthenticated
		},
	}
	c, d := newTestController(fetcher)
	c.Start()
	settle(c, d)

	vm := c.ViewModel()
	if !vm.Unauthenticated {
		t.Error("Unauthenticated = false, want true")
	}
	if !vm.StatusIsError || vm.Status == "" {
		t.Errorf("status = %q, want a re-login message", vm.Status)
	}
}

func TestController_QuitKey(t *testing.T) {
	fetcher := &fakeFetcher{}
	c, d := newTestController(fetcher)
	c.Start()
	settle(c, d)

	c.HandleInput(RuneEvent('q'))
	if !c.ShouldQuit() {
		t.Error("ShouldQuit() = false after q")
	}
}

func TestController_StatusTabKeys(t *testing.T) {
	fetcher := &fakeFetcher{}
	c, d := newTestController(fetcher)
	c.Start()
	settle(c, d)

	c.HandleInput(RuneEvent('3'))
	if got := c.Filter().Status; got != TabDoing {
		t.Errorf("tab = %v after '3', want Doing", got)
	}
	c.HandleInput(RuneEvent('1'))
	if got := c.Filter().Status; got != TabAll {
		t.Errorf("tab = %v after '1', want All", got)
	}
}

func TestController_PageNavigation(t *testing.T) {
	fetcher := &fakeFetcher{page: fixedPage("ENG-1")}
	c, d := newTestController(fetcher)
	c.Start()
	settle(c, d)

	c.HandleInput(RuneEvent(']'))
	settle(c, d)
	if vm := c.ViewModel(); vm.Page != 1 {
		t.Fatalf("Page = %d after ']', want 1", vm.Page)
	}

	c.HandleInput(RuneEvent('['))
	if vm := c.ViewModel(); vm.Page != 0 {
		t.Errorf("Page = %d after '[', want 0", vm.Page)
	}

	c.HandleInput(RuneEvent('['))
	if vm := c.ViewModel(); vm.Page != 0 {
		t.Errorf("Page = %d after '[' on first page, want 0", vm.Page)
	}

	c.Execute(GoToPage{Page: 9})
	vm := c.ViewModel()
	if vm.Page != 0 {
		t.Errorf("Page = %d after unreachable jump, want 0", vm.Page)
	}
	if vm.Status == "" {
		t.Error("unreachable jump should set a status message")
	}
}
