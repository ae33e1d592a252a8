package tui

import (
	"fmt"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/lindash/lindash/internal/cache"
	"github.com/lindash/lindash/internal/config"
	"github.com/lindash/lindash/internal/core"
	"github.com/lindash/lindash/internal/linearapi"
	"github.com/lindash/lindash/internal/logger"
)

// App wires the event-loop controller to the terminal widgets. All
// controller access happens on the tview event goroutine; background
// fetch completions are marshalled in through QueueUpdateDraw.
type App struct {
	app        *tview.Application
	ctrl       *core.Controller
	dispatcher *core.Dispatcher
	config     config.Config

	pages       *tview.Pages
	filterBar   *tview.TextView
	issuesTable *tview.Table
	detailView  *tview.TextView
	statusBar   *tview.TextView

	overlayView  *tview.TextView
	overlayFrame *tview.Flex
	paletteView  *tview.TextView
	paletteFrame *tview.Flex

	spinnerFrame int
	done         chan struct{}

	// Overridable in tests so updates run synchronously.
	queueUpdateDraw func(func())
}

// NewApp builds the widget tree and the controller behind it.
func NewApp(api *linearapi.Client, cfg config.Config) *App {
	meta := cache.NewMetaCache(api, cfg.CacheTTL)
	fetcher := newAPIFetcher(api, meta)
	dispatcher := core.NewDispatcher(fetcher, 0, cfg.Timeout)
	ctrl := core.NewController(dispatcher, core.Options{
		PageSize:     cfg.PageSize,
		OverlayLimit: cfg.OverlayLimit,
	})

	a := &App{
		app:        tview.NewApplication(),
		ctrl:       ctrl,
		dispatcher: dispatcher,
		config:     cfg,
		pages:      tview.NewPages(),
		done:       make(chan struct{}),
	}
	a.queueUpdateDraw = func(f func()) {
		a.app.QueueUpdateDraw(f)
	}

	a.buildLayout()
	a.bindKeys()
	return a
}

func (a *App) buildLayout() {
	a.filterBar = tview.NewTextView().SetDynamicColors(true)
	a.filterBar.SetBorderPadding(0, 0, 1, 1)

	a.issuesTable = tview.NewTable().
		SetSelectable(false, false).
		SetFixed(1, 0)
	a.issuesTable.SetBorder(true).SetTitle(" Issues ")

	a.detailView = tview.NewTextView().
		SetDynamicColors(true).
		SetWrap(true).
		SetScrollable(true)
	a.detailView.SetBorder(true)

	a.statusBar = tview.NewTextView().SetDynamicColors(true)
	a.statusBar.SetBorderPadding(0, 0, 1, 1)

	content := tview.NewFlex().
		AddItem(a.issuesTable, 0, 5, true).
		AddItem(a.detailView, 0, 4, false)

	main := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(a.filterBar, 1, 0, false).
		AddItem(content, 0, 1, true).
		AddItem(a.statusBar, 1, 0, false)

	a.overlayView = tview.NewTextView().SetDynamicColors(true)
	a.overlayView.SetBorder(true)
	a.overlayFrame = centeredModal(a.overlayView, 70, 20)

	a.paletteView = tview.NewTextView().SetDynamicColors(true)
	a.paletteView.SetBorder(true).SetTitle(" Command ")
	a.paletteFrame = centeredModal(a.paletteView, 70, 14)

	a.pages.AddPage("main", main, true, true)
	a.pages.AddPage("overlay", a.overlayFrame, true, false)
	a.pages.AddPage("palette", a.paletteFrame, true, false)
}

// centeredModal floats a primitive in the middle of the screen.
func centeredModal(p tview.Primitive, width, height int) *tview.Flex {
	row := tview.NewFlex().
		AddItem(nil, 0, 1, false).
		AddItem(p, width, 0, true).
		AddItem(nil, 0, 1, false)
	return tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(nil, 0, 1, false).
		AddItem(row, height, 0, true).
		AddItem(nil, 0, 1, false)
}

func (a *App) bindKeys() {
	a.app.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		input, ok := translateKey(event)
		if !ok {
			return event
		}
		a.ctrl.HandleInput(input)
		if a.ctrl.ShouldQuit() {
			a.app.Stop()
			return nil
		}
		a.render()
		return nil
	})
}

// translateKey maps the terminal event onto the controller's input model.
func translateKey(event *tcell.EventKey) (core.InputEvent, bool) {
	switch event.Key() {
	case tcell.KeyRune:
		return core.RuneEvent(event.Rune()), true
	case tcell.KeyEnter:
		return core.InputEvent{Key: core.KeyEnter}, true
	case tcell.KeyEscape:
		return core.InputEvent{Key: core.KeyEscape}, true
	case tcell.KeyBackspace, tcell.KeyBackspace2:
		return core.InputEvent{Key: core.KeyBackspace}, true
	case tcell.KeyUp:
		return core.InputEvent{Key: core.KeyUp}, true
	case tcell.KeyDown:
		return core.InputEvent{Key: core.KeyDown}, true
	case tcell.KeyLeft:
		return core.InputEvent{Key: core.KeyLeft}, true
	case tcell.KeyRight:
		return core.InputEvent{Key: core.KeyRight}, true
	case tcell.KeyTab:
		return core.InputEvent{Key: core.KeyTab}, true
	case tcell.KeyCtrlC:
		return core.InputEvent{Key: core.KeyRune, Rune: 'q'}, true
	default:
		return core.InputEvent{}, false
	}
}

// Run starts the event loop and blocks until quit.
func (a *App) Run() error {
	a.app.SetRoot(a.pages, true)

	a.ctrl.Start()
	a.render()

	go a.drainCompletions()
	go a.tickSpinner()
	defer close(a.done)

	logger.Info("tui.app: starting event loop")
	return a.app.Run()
}

// drainCompletions forwards background fetch results onto the UI
// goroutine. The controller discards anything stale.
func (a *App) drainCompletions() {
	for completion := range a.dispatcher.Completions() {
		completion := completion
		if !a.deliver(func() {
			a.ctrl.HandleCompletion(completion)
			if a.ctrl.ShouldQuit() {
				a.app.Stop()
				return
			}
			a.render()
		}) {
			return
		}
	}
}

// deliver queues f on the UI goroutine, giving up once the application has
// shut down; the queue is no longer drained then and the call would block
// forever. Reports whether the update was delivered.
func (a *App) deliver(f func()) bool {
	delivered := make(chan struct{})
	go func() {
		a.QueueUpdateDraw(f)
		close(delivered)
	}()
	select {
	case <-delivered:
		return true
	case <-a.done:
		return false
	}
}

// tickSpinner advances the status-bar spinner while a fetch is in flight.
func (a *App) tickSpinner() {
	ticker := time.NewTicker(spinnerInterval)
	defer ticker.Stop()
	for {
		select {
		case <-a.done:
			return
		case <-ticker.C:
			if !a.deliver(func() {
				vm := a.ctrl.ViewModel()
				if vm.PageLoading || vm.DetailLoading || vm.OverlayLoading {
					a.spinnerFrame++
					a.render()
				}
			}) {
				return
			}
		}
	}
}

// QueueUpdateDraw schedules f on the UI goroutine.
func (a *App) QueueUpdateDraw(f func()) {
	a.queueUpdateDraw(f)
}

// render repaints every widget from a fresh controller snapshot.
func (a *App) render() {
	vm := a.ctrl.ViewModel()

	a.filterBar.SetText(renderFilterBar(vm))
	a.statusBar.SetText(renderStatusBar(vm, a.spinnerFrame))
	a.renderIssues(vm)
	a.renderDetail(vm)
	a.renderOverlay(vm)
}

var issueHeader = []string{"ID", "State", "Priority", "Title", "Assignee"}

func (a *App) renderIssues(vm core.ViewModel) {
	a.issuesTable.Clear()
	for col, h := range issueHeader {
		cell := tview.NewTableCell("[::b]" + h).
			SetSelectable(false).
			SetExpansion(columnExpansion(col))
		a.issuesTable.SetCell(0, col, cell)
	}
	for row, issue := range vm.Issues {
		selected := row == vm.SelectedIndex
		for col, text := range issueRow(issue) {
			cell := tview.NewTableCell(tviewEscape(text)).
				SetExpansion(columnExpansion(col))
			if selected {
				cell.SetBackgroundColor(tcell.ColorDarkCyan).
					SetTextColor(tcell.ColorBlack)
			}
			a.issuesTable.SetCell(row+1, col, cell)
		}
	}
	if vm.SelectedIndex >= 0 {
		a.issuesTable.ScrollToBeginning()
	}

	title := " Issues "
	switch {
	case vm.PageFailed && len(vm.Issues) > 0:
		title = " Issues (stale) "
	case vm.PageLoading && len(vm.Issues) > 0:
		title = " Issues (refreshing) "
	case vm.PageLoading:
		title = " Issues (loading) "
	}
	a.issuesTable.SetTitle(title)

	if vm.Focus == core.FocusList {
		a.issuesTable.SetBorderColor(tcell.ColorAqua)
		a.detailView.SetBorderColor(tcell.ColorDefault)
	} else {
		a.issuesTable.SetBorderColor(tcell.ColorDefault)
		a.detailView.SetBorderColor(tcell.ColorAqua)
	}
}

func columnExpansion(col int) int {
	if col == 3 {
		return 4
	}
	return 1
}

func (a *App) renderDetail(vm core.ViewModel) {
	title := fmt.Sprintf(" %s ", detailTabsHeader(vm.DetailTab))
	a.detailView.SetTitle(title)

	switch {
	case vm.Selected == "":
		a.detailView.SetText("[::d]no issue selected[-:-:-]")
	case vm.DetailLoading:
		a.detailView.SetText("[::d]loading…[-:-:-]")
	case vm.Detail == nil:
		a.detailView.SetText("")
	default:
		a.detailView.SetText(a.detailBody(vm))
	}
	a.detailView.ScrollToBeginning()
}

func detailTabsHeader(active core.DetailTab) string {
	out := ""
	for _, tab := range []core.DetailTab{core.DetailTabSummary, core.DetailTabDescription, core.DetailTabActivity, core.DetailTabSubIssues} {
		if tab == active {
			out += fmt.Sprintf("[black:aqua] %s [-:-] ", tab.Label())
		} else {
			out += fmt.Sprintf(" %s  ", tab.Label())
		}
	}
	return out
}

func (a *App) detailBody(vm core.ViewModel) string {
	switch vm.DetailTab {
	case core.DetailTabDescription:
		_, _, width, _ := a.detailView.GetInnerRect()
		return renderMarkdown(vm.Detail.Description, width)
	case core.DetailTabActivity:
		return renderActivity(vm.Activity)
	case core.DetailTabSubIssues:
		return renderSubIssueTree(vm.SubIssues)
	default:
		return renderSummary(*vm.Detail)
	}
}

func (a *App) renderOverlay(vm core.ViewModel) {
	switch vm.Overlay {
	case core.OverlayProjects, core.OverlayCycles, core.OverlayHelp:
		a.overlayView.SetText(overlayBody(vm))
		a.overlayView.SetTitle(overlayTitle(vm.Overlay))
		a.pages.HidePage("palette")
		a.pages.ShowPage("overlay")
	case core.OverlayPalette:
		a.paletteView.SetText(paletteBody(vm))
		a.pages.HidePage("overlay")
		a.pages.ShowPage("palette")
	default:
		a.pages.HidePage("overlay")
		a.pages.HidePage("palette")
	}
}

func overlayTitle(kind core.OverlayKind) string {
	switch kind {
	case core.OverlayProjects:
		return " Projects "
	case core.OverlayCycles:
		return " Cycles "
	case core.OverlayHelp:
		return " Help "
	default:
		return ""
	}
}

func overlayBody(vm core.ViewModel) string {
	if vm.Overlay == core.OverlayHelp {
		return helpText()
	}
	if vm.OverlayLoading {
		return "[::d]loading…[-:-:-]"
	}
	if vm.OverlayErr != nil {
		return fmt.Sprintf("[red]load failed: %s[-]", tviewEscape(vm.OverlayErr.Error()))
	}
	var rows []string
	if vm.Overlay == core.OverlayProjects {
		rows = renderProjectsOverlay(vm)
	} else {
		rows = renderCyclesOverlay(vm)
	}
	if len(rows) == 0 {
		return "[::d]nothing here[-:-:-]"
	}
	out := ""
	for i, row := range rows {
		if i == vm.OverlaySelection {
			out += fmt.Sprintf("[black:aqua]%s[-:-]\n", tviewEscape(row))
		} else {
			out += tviewEscape(row) + "\n"
		}
	}
	return out
}

func paletteBody(vm core.ViewModel) string {
	out := fmt.Sprintf("> %s[::r] [-:-:-]\n", tviewEscape(vm.PaletteInput))
	if len(vm.Suggestions) > 0 {
		out += "\n"
		for _, s := range vm.Suggestions {
			out += "  [aqua]" + tviewEscape(s) + "[-]\n"
		}
	}
	if history := vm.PaletteHistory; len(history) > 0 {
		out += "\n[::d]recent:[-:-:-]\n"
		shown := history
		if len(shown) > 5 {
			shown = shown[len(shown)-5:]
		}
		for i := len(shown) - 1; i >= 0; i-- {
			out += "  [::d]" + tviewEscape(shown[i]) + "[-:-:-]\n"
		}
	}
	return out
}
