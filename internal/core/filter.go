// Package core owns the dashboard's application state: the active filter,
// the page cache, selection, overlays, and the async fetch orchestration
// that keeps them consistent against stale completions. Nothing in this
// package touches the network or the terminal directly.
package core

import "fmt"

// StatusTab is the issue-status tab row above the list.
type StatusTab int

const (
	TabAll StatusTab = iota
	TabTodo
	TabDoing
	TabDone
)

const tabCount = 4

// Label returns the tab's display name.
func (t StatusTab) Label() string {
	switch t {
	case TabTodo:
		return "Todo"
	case TabDoing:
		return "Doing"
	case TabDone:
		return "Done"
	default:
		return "All"
	}
}

// StateTypes maps the tab to the workflow state types it covers. TabAll
// returns nil, meaning no state constraint.
func (t StatusTab) StateTypes() []string {
	switch t {
	case TabTodo:
		return []string{"backlog", "unstarted"}
	case TabDoing:
		return []string{"started"}
	case TabDone:
		return []string{"completed"}
	default:
		return nil
	}
}

// ParseStatusTab resolves a tab name from palette input.
func ParseStatusTab(s string) (StatusTab, bool) {
	switch s {
	case "all":
		return TabAll, true
	case "todo":
		return TabTodo, true
	case "doing":
		return TabDoing, true
	case "done":
		return TabDone, true
	default:
		return TabAll, false
	}
}

// Next returns the tab to the right, wrapping around.
func (t StatusTab) Next() StatusTab {
	return StatusTab((int(t) + 1) % tabCount)
}

// Prev returns the tab to the left, wrapping around.
func (t StatusTab) Prev() StatusTab {
	return StatusTab((int(t) + tabCount - 1) % tabCount)
}

// FilterState is the set of constraints the issue list is scoped by. The
// zero value means no constraints (All tab, every team).
type FilterState struct {
	TeamKey   string
	ProjectID string
	Status    StatusTab
	Contains  string
}

// Fingerprint returns a deterministic encoding of the filter used as the
// page-cache key prefix. Equal filters always produce equal fingerprints.
func (f FilterState) Fingerprint() string {
	return fmt.Sprintf("team=%s|project=%s|status=%d|contains=%s",
		f.TeamKey, f.ProjectID, f.Status, f.Contains)
}

// IsZero reports whether no constraint is set.
func (f FilterState) IsZero() bool {
	return f == FilterState{}
}
