package core

import (
	"errors"
	"fmt"
	"strings"

	"github.com/lindash/lindash/internal/auth"
	"github.com/lindash/lindash/internal/cache"
	"github.com/lindash/lindash/internal/linearapi"
	"github.com/lindash/lindash/internal/logger"
)

// Mode is the controller's top-level input mode.
type Mode int

const (
	ModeBrowsing Mode = iota
	ModeOverlay
	ModePalette
)

// Options tunes the controller.
type Options struct {
	PageSize     int
	OverlayLimit int
}

func (o Options) withDefaults() Options {
	if o.PageSize <= 0 {
		o.PageSize = 20
	}
	if o.OverlayLimit <= 0 {
		o.OverlayLimit = 10
	}
	return o
}

// Controller is the single owner of all dashboard state. It must only be
// called from one goroutine; background workers reach it exclusively
// through completions handed to HandleCompletion.
type Controller struct {
	dispatcher *Dispatcher
	pages      *cache.PageCache
	opts       Options

	mode  Mode
	focus Focus

	filter FilterState
	gen    int64
	page   int

	selected       string // issue identifier, "" when nothing selected
	rememberedTabs map[string]DetailTab
	details        map[string]linearapi.IssueDetail
	detailPending  map[string]bool

	overlay    OverlayState
	overlaySel int

	teams    []linearapi.Team
	states   []linearapi.WorkflowState
	projects []linearapi.Project

	status          string
	statusErr       bool
	unauthenticated bool
	quit            bool
}

// NewController creates a controller wired to dispatcher. Call Start to
// issue the initial fetches.
func NewController(dispatcher *Dispatcher, opts Options) *Controller {
	return &Controller{
		dispatcher:     dispatcher,
		pages:          cache.NewPageCache(),
		opts:           opts.withDefaults(),
		gen:            1,
		rememberedTabs: make(map[string]DetailTab),
		details:        make(map[string]linearapi.IssueDetail),
		detailPending:  make(map[string]bool),
	}
}

// Start issues the initial page fetch plus the metadata fetches backing
// palette suggestions and project cycling.
func (c *Controller) Start() {
	c.ensureCurrentPage()
	c.dispatcher.Submit(Request{Kind: RequestTeams}, c.gen)
	c.dispatcher.Submit(Request{Kind: RequestProjects, Limit: c.opts.OverlayLimit}, c.gen)
}

// ShouldQuit reports whether a quit was requested.
func (c *Controller) ShouldQuit() bool {
	return c.quit
}

// Generation exposes the current refresh generation.
func (c *Controller) Generation() int64 {
	return c.gen
}

// Filter returns the active filter.
func (c *Controller) Filter() FilterState {
	return c.filter
}

func (c *Controller) setStatus(format string, args ...interface{}) {
	c.status = fmt.Sprintf(format, args...)
	c.statusErr = false
}

func (c *Controller) setErrorStatus(format string, args ...interface{}) {
	c.status = fmt.Sprintf(format, args...)
	c.statusErr = true
}

func (c *Controller) currentKey() cache.PageKey {
	return cache.PageKey{Fingerprint: c.filter.Fingerprint(), Page: c.page}
}

func (c *Controller) currentEntry() *cache.PageEntry {
	return c.pages.Lookup(c.currentKey())
}

func (c *Controller) currentIssues() []linearapi.IssueSummary {
	if entry := c.currentEntry(); entry != nil && entry.Status == cache.StatusReady {
		return entry.Issues
	}
	return nil
}

func (c *Controller) listParams(cursor string) linearapi.ListIssuesParams {
	return linearapi.ListIssuesParams{
		TeamKey:       c.filter.TeamKey,
		ProjectID:     c.filter.ProjectID,
		StateTypes:    c.filter.Status.StateTypes(),
		TitleContains: c.filter.Contains,
		After:         cursor,
		First:         c.opts.PageSize,
	}
}

// ensureCurrentPage issues a fetch for the current (fingerprint, page) key
// unless one is already pending or the page is ready.
func (c *Controller) ensureCurrentPage() {
	key := c.currentKey()
	cursor, ok := c.pages.CursorFor(key.Fingerprint, key.Page)
	if !ok {
		c.setStatus("page %d is not reachable yet, load earlier pages first", key.Page+1)
		return
	}
	if !c.pages.MarkPending(key, c.gen) {
		return
	}
	c.dispatcher.Submit(Request{
		Kind:    RequestPage,
		PageKey: key,
		Params:  c.listParams(cursor),
	}, c.gen)
}

// applyFilter replaces the filter, bumps the generation, drops the page
// cache and fetches page 0 of the new fingerprint. A no-op when the filter
// is unchanged.
func (c *Controller) applyFilter(next FilterState) {
	if next == c.filter {
		return
	}
	if next.TeamKey != c.filter.TeamKey {
		c.states = nil
	}
	c.filter = next
	c.page = 0
	c.gen++
	c.pages.InvalidateAll()
	c.ensureCurrentPage()
	logger.Debug("controller: filter changed gen=%d fingerprint=%s", c.gen, next.Fingerprint())
}

func (c *Controller) reload() {
	c.gen++
	c.page = 0
	c.pages.InvalidateAll()
	c.details = make(map[string]linearapi.IssueDetail)
	c.detailPending = make(map[string]bool)
	c.states = nil
	c.dispatcher.InvalidateMetadata()
	c.ensureCurrentPage()
	c.dispatcher.Submit(Request{Kind: RequestTeams}, c.gen)
	c.dispatcher.Submit(Request{Kind: RequestProjects, Limit: c.opts.OverlayLimit}, c.gen)
	c.setStatus("reloading")
}

func (c *Controller) refreshCurrentPage() {
	c.pages.Invalidate(c.currentKey())
	c.gen++
	c.ensureCurrentPage()
}

// selectIssue moves the selection and makes sure the issue's detail is
// being fetched. Unknown identifiers are a no-op.
func (c *Controller) selectIssue(identifier string) {
	for _, issue := range c.currentIssues() {
		if issue.Identifier == identifier {
			c.selected = identifier
			c.ensureDetail(issue)
			return
		}
	}
}

func (c *Controller) ensureDetail(issue linearapi.IssueSummary) {
	if _, ok := c.details[issue.Identifier]; ok {
		return
	}
	if c.detailPending[issue.ID] {
		return
	}
	c.detailPending[issue.ID] = true
	c.dispatcher.Submit(Request{Kind: RequestDetail, IssueID: issue.ID}, c.gen)
}

func (c *Controller) moveSelection(delta int) {
	issues := c.currentIssues()
	if len(issues) == 0 {
		return
	}
	idx := c.selectedIndex(issues)
	if idx < 0 {
		idx = 0
	} else {
		idx += delta
		if idx < 0 {
			idx = 0
		}
		if idx >= len(issues) {
			idx = len(issues) - 1
		}
	}
	c.selected = issues[idx].Identifier
	c.ensureDetail(issues[idx])
}

func (c *Controller) selectedIndex(issues []linearapi.IssueSummary) int {
	for i, issue := range issues {
		if issue.Identifier == c.selected {
			return i
		}
	}
	return -1
}

// detailTab returns the remembered tab for the selected issue.
func (c *Controller) detailTab() DetailTab {
	if c.selected == "" {
		return DetailTabSummary
	}
	return c.rememberedTabs[c.selected]
}

func (c *Controller) setDetailTab(tab DetailTab) {
	if c.selected == "" {
		c.setStatus("no issue selected")
		return
	}
	c.rememberedTabs[c.selected] = tab
}

// HandleInput routes one keystroke according to the current mode.
func (c *Controller) HandleInput(ev InputEvent) {
	switch c.mode {
	case ModePalette:
		c.handlePaletteInput(ev)
	case ModeOverlay:
		c.handleOverlayInput(ev)
	default:
		c.handleBrowsingInput(ev)
	}
}

func (c *Controller) handleBrowsingInput(ev InputEvent) {
	switch ev.Key {
	case KeyTab:
		if c.focus == FocusList {
			c.focus = FocusDetail
		} else {
			c.focus = FocusList
		}
		return
	case KeyDown:
		c.moveSelection(1)
		return
	case KeyUp:
		c.moveSelection(-1)
		return
	case KeyRune:
	default:
		return
	}

	switch ev.Rune {
	case 'q':
		c.quit = true
	case 'r':
		c.reload()
	case 'o':
		c.toggleOverlay(OverlayProjects)
	case 'y':
		c.toggleOverlay(OverlayCycles)
	case '?':
		c.toggleOverlay(OverlayHelp)
	case ':':
		c.openPalette("")
	case '/':
		c.openPalette("contains ")
	case 't':
		c.openPalette("team ")
	case 's':
		c.openPalette("state ")
	case 'c':
		c.Execute(ClearFilters{})
	case '1':
		c.Execute(SetStatus{Tab: TabAll})
	case '2':
		c.Execute(SetStatus{Tab: TabTodo})
	case '3':
		c.Execute(SetStatus{Tab: TabDoing})
	case '4':
		c.Execute(SetStatus{Tab: TabDone})
	case ']':
		c.Execute(GoToPage{Selector: SelNext})
	case '[':
		c.Execute(GoToPage{Selector: SelPrev})
	case '.':
		c.setDetailTab(c.detailTab().Next())
	case ',':
		c.setDetailTab(c.detailTab().Prev())
	case 'j':
		c.moveSelection(1)
	case 'k':
		c.moveSelection(-1)
	case 'g':
		c.Execute(ViewIssue{Selector: SelFirst})
	case 'G':
		c.Execute(ViewIssue{Selector: SelLast})
	}
}

func (c *Controller) handleOverlayInput(ev InputEvent) {
	switch ev.Key {
	case KeyEscape:
		c.closeOverlay()
		return
	case KeyDown:
		c.moveOverlaySelection(1)
		return
	case KeyUp:
		c.moveOverlaySelection(-1)
		return
	case KeyEnter:
		c.applyOverlaySelection()
		return
	case KeyRune:
	default:
		return
	}

	switch ev.Rune {
	case 'q':
		c.closeOverlay()
	case 'o':
		c.toggleOverlay(OverlayProjects)
	case 'y':
		c.toggleOverlay(OverlayCycles)
	case '?':
		c.toggleOverlay(OverlayHelp)
	case 'j':
		c.moveOverlaySelection(1)
	case 'k':
		c.moveOverlaySelection(-1)
	}
}

func (c *Controller) handlePaletteInput(ev InputEvent) {
	palette := &c.overlay.Palette
	switch ev.Key {
	case KeyEscape:
		c.closeOverlay()
	case KeyEnter:
		line := strings.TrimSpace(palette.Input)
		palette.Record(line)
		c.closeOverlay()
		if line != "" {
			c.Execute(ParseCommand(line))
		}
	case KeyBackspace:
		if runes := []rune(palette.Input); len(runes) > 0 {
			palette.Input = string(runes[:len(runes)-1])
		}
	case KeyUp:
		palette.RecallPrev()
	case KeyDown:
		palette.RecallNext()
	case KeyTab:
		if suggestions := c.SuggestPalette(palette.Input); len(suggestions) > 0 {
			palette.Input = suggestions[0] + " "
		}
	case KeyRune:
		palette.Input += string(ev.Rune)
	}
}

func (c *Controller) openPalette(prefill string) {
	c.overlay.Open(OverlayPalette)
	c.overlay.Palette.Input = prefill
	c.mode = ModePalette
}

// toggleOverlay opens kind, replaces a different open overlay with it, or
// closes it when it is already showing.
func (c *Controller) toggleOverlay(kind OverlayKind) {
	if c.overlay.Kind == kind {
		c.closeOverlay()
		return
	}
	gen := c.overlay.Open(kind)
	c.overlaySel = 0
	c.mode = ModeOverlay
	switch kind {
	case OverlayProjects:
		c.dispatcher.Submit(Request{
			Kind:    RequestProjects,
			TeamKey: c.filter.TeamKey,
			Limit:   c.opts.OverlayLimit,
			Overlay: true,
		}, gen)
	case OverlayCycles:
		c.dispatcher.Submit(Request{
			Kind:    RequestCycles,
			TeamKey: c.filter.TeamKey,
			Limit:   c.opts.OverlayLimit,
			Overlay: true,
		}, gen)
	}
}

func (c *Controller) closeOverlay() {
	c.overlay.Close()
	c.overlaySel = 0
	c.mode = ModeBrowsing
}

func (c *Controller) moveOverlaySelection(delta int) {
	var count int
	switch c.overlay.Kind {
	case OverlayProjects:
		count = len(c.overlay.Projects)
	case OverlayCycles:
		count = len(c.overlay.Cycles)
	}
	if count == 0 {
		return
	}
	c.overlaySel += delta
	if c.overlaySel < 0 {
		c.overlaySel = 0
	}
	if c.overlaySel >= count {
		c.overlaySel = count - 1
	}
}

// applyOverlaySelection acts on Enter inside an overlay: picking a project
// scopes the filter to it.
func (c *Controller) applyOverlaySelection() {
	if c.overlay.Kind == OverlayProjects && c.overlaySel < len(c.overlay.Projects) {
		project := c.overlay.Projects[c.overlaySel]
		c.closeOverlay()
		next := c.filter
		next.ProjectID = project.ID
		c.applyFilter(next)
		c.setStatus("project: %s", project.Name)
		return
	}
	c.closeOverlay()
}

// Execute applies one parsed command. Every variant is total: unmet
// preconditions produce a status message, never an error state.
func (c *Controller) Execute(cmd Command) {
	switch cmd := cmd.(type) {
	case SetTeam:
		c.execSetTeam(cmd)
	case SetState:
		c.execSetState(cmd)
	case SetProject:
		c.execSetProject(cmd)
	case SetStatus:
		c.execSetStatus(cmd)
	case SetContains:
		next := c.filter
		if cmd.Clear {
			next.Contains = ""
		} else {
			next.Contains = cmd.Text
		}
		c.applyFilter(next)
	case ClearFilters:
		if c.filter.IsZero() {
			c.setStatus("no active filters")
			return
		}
		c.applyFilter(FilterState{})
		c.setStatus("filters cleared")
	case Reload:
		c.reload()
	case GoToPage:
		c.execGoToPage(cmd)
	case ViewIssue:
		c.execViewIssue(cmd)
	case SetDetailTab:
		c.setDetailTab(cmd.Tab)
	case ToggleHelp:
		c.toggleOverlay(OverlayHelp)
	case Quit:
		c.quit = true
	case Unknown:
		c.setErrorStatus("unknown command: %s", cmd.Raw)
	}
}

func (c *Controller) execSetTeam(cmd SetTeam) {
	next := c.filter
	if cmd.Key == "" {
		next.TeamKey = ""
		c.applyFilter(next)
		return
	}
	key := strings.ToUpper(cmd.Key)
	if len(c.teams) > 0 {
		found := false
		for _, team := range c.teams {
			if strings.EqualFold(team.Key, key) {
				key = team.Key
				found = true
				break
			}
		}
		if !found {
			c.setErrorStatus("unknown team: %s", cmd.Key)
			return
		}
	}
	next.TeamKey = key
	c.applyFilter(next)
}

// execSetState maps a workflow state name to the status tab covering its
// type, since the filter is tab-scoped rather than state-scoped.
func (c *Controller) execSetState(cmd SetState) {
	next := c.filter
	if cmd.Name == "" {
		next.Status = TabAll
		c.applyFilter(next)
		return
	}
	for _, state := range c.states {
		if strings.EqualFold(state.Name, cmd.Name) {
			next.Status = tabForStateType(state.Type)
			c.applyFilter(next)
			c.setStatus("state %s -> %s", state.Name, next.Status.Label())
			return
		}
	}
	c.setErrorStatus("unknown state: %s", cmd.Name)
}

func tabForStateType(stateType string) StatusTab {
	switch stateType {
	case "backlog", "unstarted":
		return TabTodo
	case "started":
		return TabDoing
	case "completed":
		return TabDone
	default:
		return TabAll
	}
}

func (c *Controller) execSetProject(cmd SetProject) {
	next := c.filter
	switch cmd.Selector {
	case SelClear:
		next.ProjectID = ""
		c.applyFilter(next)
		return
	case SelNext, SelPrev:
		if len(c.projects) == 0 {
			c.setErrorStatus("no projects loaded")
			return
		}
		idx := -1
		for i, project := range c.projects {
			if project.ID == c.filter.ProjectID {
				idx = i
				break
			}
		}
		if cmd.Selector == SelNext {
			idx = (idx + 1) % len(c.projects)
		} else if idx <= 0 {
			idx = len(c.projects) - 1
		} else {
			idx--
		}
		next.ProjectID = c.projects[idx].ID
		c.applyFilter(next)
		c.setStatus("project: %s", c.projects[idx].Name)
		return
	}
	if cmd.Name == "" {
		next.ProjectID = ""
		c.applyFilter(next)
		return
	}
	for _, project := range c.projects {
		if strings.EqualFold(project.Name, cmd.Name) {
			next.ProjectID = project.ID
			c.applyFilter(next)
			c.setStatus("project: %s", project.Name)
			return
		}
	}
	c.setErrorStatus("unknown project: %s", cmd.Name)
}

func (c *Controller) execSetStatus(cmd SetStatus) {
	next := c.filter
	switch cmd.Selector {
	case SelNext:
		next.Status = c.filter.Status.Next()
	case SelPrev:
		next.Status = c.filter.Status.Prev()
	default:
		next.Status = cmd.Tab
	}
	c.applyFilter(next)
}

func (c *Controller) execGoToPage(cmd GoToPage) {
	switch cmd.Selector {
	case "refresh":
		c.refreshCurrentPage()
		return
	case SelNext:
		entry := c.currentEntry()
		if entry == nil || entry.Status != cache.StatusReady || !entry.HasMore {
			c.setStatus("no further pages")
			return
		}
		c.page++
		c.ensureCurrentPage()
		return
	case SelPrev:
		if c.page == 0 {
			c.setStatus("already on the first page")
			return
		}
		c.page--
		c.ensureCurrentPage()
		return
	}
	target := cmd.Page - 1
	if target < 0 {
		target = 0
	}
	if _, ok := c.pages.CursorFor(c.filter.Fingerprint(), target); !ok {
		c.setStatus("page %d is not reachable yet, load earlier pages first", cmd.Page)
		return
	}
	c.page = target
	c.ensureCurrentPage()
}

func (c *Controller) execViewIssue(cmd ViewIssue) {
	issues := c.currentIssues()
	switch cmd.Selector {
	case SelNext:
		c.moveSelection(1)
		return
	case SelPrev:
		c.moveSelection(-1)
		return
	case SelFirst:
		if len(issues) > 0 {
			c.selected = issues[0].Identifier
			c.ensureDetail(issues[0])
		}
		return
	case SelLast:
		if len(issues) > 0 {
			c.selected = issues[len(issues)-1].Identifier
			c.ensureDetail(issues[len(issues)-1])
		}
		return
	}
	for _, issue := range issues {
		if strings.EqualFold(issue.Identifier, cmd.Key) {
			c.selected = issue.Identifier
			c.ensureDetail(issue)
			return
		}
	}
	c.setStatus("issue %s is not in the current view", cmd.Key)
}

// HandleCompletion applies one background fetch result. Stale completions
// are discarded on arrival; nothing is ever retried from here.
func (c *Controller) HandleCompletion(completion Completion) {
	if completion.Err != nil && errors.Is(completion.Err, auth.ErrUnauthenticated) {
		c.unauthenticated = true
		c.setErrorStatus("session expired, re-login required")
		if completion.Req.Kind == RequestPage {
			c.pages.StoreFailure(completion.Req.PageKey, completion.Gen, completion.Err)
		}
		return
	}

	if completion.Req.Overlay {
		if !c.overlay.Accept(completion) {
			logger.Debug("controller: dropped overlay completion kind=%s gen=%d", completion.Req.Kind, completion.Gen)
			return
		}
		if completion.Err == nil && completion.Req.Kind == RequestProjects {
			c.projects = completion.Projects
		}
		return
	}

	switch completion.Req.Kind {
	case RequestPage:
		c.applyPageCompletion(completion)
	case RequestDetail:
		c.applyDetailCompletion(completion)
	case RequestTeams:
		if completion.Err == nil {
			c.teams = completion.Teams
		}
	case RequestStates:
		if completion.Err == nil {
			c.states = completion.States
		}
	case RequestProjects:
		if completion.Err == nil {
			c.projects = completion.Projects
		}
	case RequestCycles:
		// Nothing keeps non-overlay cycles.
	}
}

func (c *Controller) applyPageCompletion(completion Completion) {
	if completion.Gen != c.gen {
		logger.Debug("controller: discarded stale page completion gen=%d current=%d", completion.Gen, c.gen)
		return
	}
	key := completion.Req.PageKey
	if completion.Err != nil {
		c.pages.StoreFailure(key, completion.Gen, completion.Err)
		c.setErrorStatus("fetch failed: %v", completion.Err)
		return
	}
	c.pages.Store(key, completion.Gen, completion.Page)
	if key != c.currentKey() {
		return
	}
	c.preserveSelection(completion.Page.Issues)
	if c.filter.TeamKey != "" {
		c.ensureStates()
	}
}

// preserveSelection keeps the selected issue selected across a refresh when
// it is still present, otherwise falls back to the first row.
func (c *Controller) preserveSelection(issues []linearapi.IssueSummary) {
	if c.selected != "" {
		for _, issue := range issues {
			if issue.Identifier == c.selected {
				c.ensureDetail(issue)
				return
			}
		}
	}
	if len(issues) == 0 {
		c.selected = ""
		return
	}
	c.selected = issues[0].Identifier
	c.ensureDetail(issues[0])
}

func (c *Controller) applyDetailCompletion(completion Completion) {
	delete(c.detailPending, completion.Req.IssueID)
	if completion.Gen != c.gen {
		logger.Debug("controller: discarded stale detail completion gen=%d current=%d", completion.Gen, c.gen)
		return
	}
	if completion.Err != nil {
		c.setErrorStatus("detail fetch failed: %v", completion.Err)
		return
	}
	c.details[completion.Detail.Identifier] = completion.Detail
}

// ensureStates fetches workflow states for the scoped team; they back
// state-name resolution and palette suggestions.
func (c *Controller) ensureStates() {
	if len(c.states) > 0 {
		return
	}
	c.dispatcher.Submit(Request{Kind: RequestStates, TeamKey: c.filter.TeamKey}, c.gen)
}
