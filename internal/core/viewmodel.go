package core

import (
	"github.com/lindash/lindash/internal/cache"
	"github.com/lindash/lindash/internal/linearapi"
)

// ViewModel is a read-only snapshot of everything the widget layer draws.
// Building it never mutates controller state.
type ViewModel struct {
	Mode  Mode
	Focus Focus

	Filter      FilterState
	Teams       []linearapi.Team
	Page        int
	PageLoading bool
	PageFailed  bool
	FailReason  error
	Issues      []linearapi.IssueSummary
	HasMore     bool

	SelectedIndex int // -1 when nothing selected
	Selected      string

	Detail        *linearapi.IssueDetail
	DetailLoading bool
	DetailTab     DetailTab
	Activity      []DayGroup
	SubIssues     []SubIssueNode

	Overlay          OverlayKind
	OverlaySelection int
	OverlayLoading   bool
	OverlayErr       error
	Projects         []linearapi.Project
	Cycles           []linearapi.Cycle

	PaletteInput    string
	PaletteHistory  []string
	Suggestions     []string
	Status          string
	StatusIsError   bool
	Unauthenticated bool
}

// ViewModel builds the current render snapshot.
func (c *Controller) ViewModel() ViewModel {
	vm := ViewModel{
		Mode:            c.mode,
		Focus:           c.focus,
		Filter:          c.filter,
		Teams:           c.teams,
		Page:            c.page,
		Selected:        c.selected,
		SelectedIndex:   -1,
		DetailTab:       c.detailTab(),
		Overlay:         c.overlay.Kind,
		Status:          c.status,
		StatusIsError:   c.statusErr,
		Unauthenticated: c.unauthenticated,
		Projects:        c.projects,
	}

	if entry := c.currentEntry(); entry != nil {
		// Stale rows stay visible while a refetch runs or after a failure.
		vm.Issues = entry.Issues
		vm.HasMore = entry.HasMore
		vm.SelectedIndex = c.selectedIndex(entry.Issues)
		switch entry.Status {
		case cache.StatusPending:
			vm.PageLoading = true
		case cache.StatusFailed:
			vm.PageFailed = true
			vm.FailReason = entry.FailReason
		}
	}

	if c.selected != "" {
		if detail, ok := c.details[c.selected]; ok {
			detailCopy := detail
			vm.Detail = &detailCopy
			vm.Activity = BuildActivity(detail)
			vm.SubIssues = BuildSubIssueTree(detail)
		} else {
			vm.DetailLoading = true
		}
	}

	switch c.overlay.Kind {
	case OverlayProjects, OverlayCycles:
		vm.OverlaySelection = c.overlaySel
		vm.OverlayLoading = c.overlay.Loading
		vm.OverlayErr = c.overlay.LoadErr
		vm.Projects = c.overlay.Projects
		vm.Cycles = c.overlay.Cycles
	case OverlayPalette:
		vm.PaletteInput = c.overlay.Palette.Input
		vm.PaletteHistory = c.overlay.Palette.History()
		vm.Suggestions = c.SuggestPalette(c.overlay.Palette.Input)
	}

	return vm
}
