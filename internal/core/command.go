package core

import (
	"strconv"
	"strings"
)

// Command is a parsed palette command. The set of variants is closed;
// Controller.Execute switches over all of them.
type Command interface {
	isCommand()
}

// Relative selectors shared by several commands.
const (
	SelNext  = "next"
	SelPrev  = "prev"
	SelFirst = "first"
	SelLast  = "last"
	SelClear = "clear"
)

// SetTeam scopes the list to one team by key, or clears the scope.
type SetTeam struct {
	Key string // empty clears
}

// SetState filters by a workflow state name within the current team.
type SetState struct {
	Name string // empty clears
}

// SetProject scopes the list to a project by name, moves through the known
// projects, or clears the scope.
type SetProject struct {
	Name     string
	Selector string // SelNext, SelPrev or SelClear; empty means Name lookup
}

// SetStatus switches the status tab.
type SetStatus struct {
	Tab      StatusTab
	Selector string // SelNext or SelPrev; empty means Tab
}

// SetContains filters issue titles by substring.
type SetContains struct {
	Text  string
	Clear bool
}

// ClearFilters resets the filter to its zero value.
type ClearFilters struct{}

// Reload drops every cache and refetches the current view.
type Reload struct{}

// GoToPage navigates pagination.
type GoToPage struct {
	Page     int    // 1-based when Selector is empty
	Selector string // SelNext, SelPrev or "refresh"
}

// ViewIssue selects an issue by identifier or moves the selection.
type ViewIssue struct {
	Key      string
	Selector string // SelNext, SelPrev, SelFirst or SelLast
}

// SetDetailTab switches the detail pane tab for the selected issue.
type SetDetailTab struct {
	Tab DetailTab
}

// ToggleHelp opens or closes the help overlay.
type ToggleHelp struct{}

// Quit exits the application.
type Quit struct{}

// Unknown carries unparseable input verbatim; executing it only sets a
// status message.
type Unknown struct {
	Raw string
}

func (SetTeam) isCommand()      {}
func (SetState) isCommand()     {}
func (SetProject) isCommand()   {}
func (SetStatus) isCommand()    {}
func (SetContains) isCommand()  {}
func (ClearFilters) isCommand() {}
func (Reload) isCommand()       {}
func (GoToPage) isCommand()     {}
func (ViewIssue) isCommand()    {}
func (SetDetailTab) isCommand() {}
func (ToggleHelp) isCommand()   {}
func (Quit) isCommand()         {}
func (Unknown) isCommand()      {}

// ParseCommand parses one line of palette input. It is total: every input
// yields a Command, unrecognized ones as Unknown.
func ParseCommand(text string) Command {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return Unknown{Raw: text}
	}
	head, rest := strings.ToLower(fields[0]), fields[1:]
	arg := strings.Join(rest, " ")

	switch head {
	case "team", "t":
		return SetTeam{Key: arg}
	case "state", "s":
		return SetState{Name: arg}
	case "project", "p":
		switch strings.ToLower(arg) {
		case SelNext, SelPrev, SelClear:
			return SetProject{Selector: strings.ToLower(arg)}
		default:
			return SetProject{Name: arg}
		}
	case "status":
		lower := strings.ToLower(arg)
		if lower == SelNext || lower == SelPrev {
			return SetStatus{Selector: lower}
		}
		if tab, ok := ParseStatusTab(lower); ok {
			return SetStatus{Tab: tab}
		}
		return Unknown{Raw: text}
	case "contains", "/":
		if strings.ToLower(arg) == SelClear || arg == "" {
			return SetContains{Clear: true}
		}
		return SetContains{Text: arg}
	case "clear":
		return ClearFilters{}
	case "reload", "refresh":
		return Reload{}
	case "page":
		lower := strings.ToLower(arg)
		switch lower {
		case SelNext, SelPrev, "refresh":
			return GoToPage{Selector: lower}
		}
		if n, err := strconv.Atoi(arg); err == nil && n >= 1 {
			return GoToPage{Page: n}
		}
		return Unknown{Raw: text}
	case "view", "v":
		lower := strings.ToLower(arg)
		switch lower {
		case SelNext, SelPrev, SelFirst, SelLast:
			return ViewIssue{Selector: lower}
		}
		if arg == "" {
			return Unknown{Raw: text}
		}
		return ViewIssue{Key: strings.ToUpper(arg)}
	case "detail", "d":
		if tab, ok := ParseDetailTab(strings.ToLower(arg)); ok {
			return SetDetailTab{Tab: tab}
		}
		return Unknown{Raw: text}
	case "activity":
		return SetDetailTab{Tab: DetailTabActivity}
	case "sub-issues", "subissues":
		return SetDetailTab{Tab: DetailTabSubIssues}
	case "help", "?":
		return ToggleHelp{}
	case "quit", "q", "exit":
		return Quit{}
	default:
		return Unknown{Raw: text}
	}
}
