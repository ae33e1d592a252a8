package core

import (
	"sort"
	"time"

	"github.com/lindash/lindash/internal/linearapi"
)

// DetailTab is one pane of the issue detail view.
type DetailTab int

const (
	DetailTabSummary DetailTab = iota
	DetailTabDescription
	DetailTabActivity
	DetailTabSubIssues
)

const detailTabCount = 4

// Label returns the tab's display name.
func (t DetailTab) Label() string {
	switch t {
	case DetailTabDescription:
		return "Description"
	case DetailTabActivity:
		return "Activity"
	case DetailTabSubIssues:
		return "Sub-issues"
	default:
		return "Summary"
	}
}

// ParseDetailTab resolves a tab name from palette input.
func ParseDetailTab(s string) (DetailTab, bool) {
	switch s {
	case "summary":
		return DetailTabSummary, true
	case "description", "desc":
		return DetailTabDescription, true
	case "activity":
		return DetailTabActivity, true
	case "sub-issues", "subissues", "children":
		return DetailTabSubIssues, true
	default:
		return DetailTabSummary, false
	}
}

// Next returns the tab to the right, wrapping around.
func (t DetailTab) Next() DetailTab {
	return DetailTab((int(t) + 1) % detailTabCount)
}

// Prev returns the tab to the left, wrapping around.
func (t DetailTab) Prev() DetailTab {
	return DetailTab((int(t) + detailTabCount - 1) % detailTabCount)
}

// ActivityKind discriminates the two activity stream sources.
type ActivityKind int

const (
	ActivityComment ActivityKind = iota
	ActivityFieldChange
)

// ActivityItem is one row of the merged activity timeline: either a posted
// comment or a recorded field change.
type ActivityItem struct {
	Kind  ActivityKind
	At    time.Time
	Actor string

	// Comment fields.
	Body string

	// Field change fields.
	Field string
	From  string
	To    string
}

// DayGroup is the timeline rows of one local calendar day, newest day first.
type DayGroup struct {
	Day   time.Time // midnight, local zone
	Items []ActivityItem
}

// fieldChanges expands one history event into zero or more field-change
// items; an event touching several fields yields one item per field.
func fieldChanges(event linearapi.HistoryEvent) []ActivityItem {
	base := ActivityItem{
		Kind:  ActivityFieldChange,
		At:    event.CreatedAt,
		Actor: event.Actor.Label(),
	}
	var items []ActivityItem
	add := func(field, from, to string) {
		item := base
		item.Field, item.From, item.To = field, from, to
		items = append(items, item)
	}
	if event.FromState != "" || event.ToState != "" {
		add("state", event.FromState, event.ToState)
	}
	if event.FromAssignee != "" || event.ToAssignee != "" {
		add("assignee", event.FromAssignee, event.ToAssignee)
	}
	if event.FromPriority != nil || event.ToPriority != nil {
		add("priority", priorityLabel(event.FromPriority), priorityLabel(event.ToPriority))
	}
	if event.FromTitle != "" || event.ToTitle != "" {
		add("title", event.FromTitle, event.ToTitle)
	}
	if event.FromDueDate != "" || event.ToDueDate != "" {
		add("due date", event.FromDueDate, event.ToDueDate)
	}
	if event.DescriptionUpdated {
		add("description", "", "")
	}
	return items
}

func priorityLabel(p *int) string {
	if p == nil {
		return ""
	}
	switch *p {
	case 1:
		return "Urgent"
	case 2:
		return "High"
	case 3:
		return "Medium"
	case 4:
		return "Low"
	default:
		return "None"
	}
}

// BuildActivity merges comments and history into one timeline sorted by
// timestamp descending and grouped by local calendar day. The merge is
// stable; at equal timestamps comments come before field changes.
func BuildActivity(detail linearapi.IssueDetail) []DayGroup {
	items := make([]ActivityItem, 0, len(detail.Comments)+len(detail.History))
	for _, comment := range detail.Comments {
		items = append(items, ActivityItem{
			Kind:  ActivityComment,
			At:    comment.CreatedAt,
			Actor: comment.Author.Label(),
			Body:  comment.Body,
		})
	}
	for _, event := range detail.History {
		items = append(items, fieldChanges(event)...)
	}

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].At.After(items[j].At)
	})

	var groups []DayGroup
	for _, item := range items {
		day := localDay(item.At)
		if len(groups) == 0 || !groups[len(groups)-1].Day.Equal(day) {
			groups = append(groups, DayGroup{Day: day})
		}
		last := &groups[len(groups)-1]
		last.Items = append(last.Items, item)
	}
	return groups
}

func localDay(t time.Time) time.Time {
	local := t.Local()
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, local.Location())
}

// SubIssueNode is one node of the rendered sub-issue tree.
type SubIssueNode struct {
	ID         string
	Identifier string
	Title      string
	State      string
	Assignee   string
	Priority   int
	TeamKey    string
	// Truncated marks a node whose children were cut: either an identifier
	// already on the current path (a cycle edge) or a record missing from
	// the arena.
	Truncated bool
	Children  []SubIssueNode
}

// BuildSubIssueTree expands the detail's child identifiers against its
// sub-issue arena. An identifier already on the current expansion path is
// rendered as a truncated leaf, never re-expanded, so a cyclic arena still
// yields a finite tree.
func BuildSubIssueTree(detail linearapi.IssueDetail) []SubIssueNode {
	arena := make(map[string]linearapi.SubIssueRecord, len(detail.SubIssues))
	for _, record := range detail.SubIssues {
		arena[record.ID] = record
	}

	path := map[string]bool{detail.ID: true}
	return expandChildren(detail.ChildIDs, arena, path)
}

func expandChildren(ids []string, arena map[string]linearapi.SubIssueRecord, path map[string]bool) []SubIssueNode {
	var nodes []SubIssueNode
	for _, id := range ids {
		record, known := arena[id]
		node := SubIssueNode{
			ID:         id,
			Identifier: record.Identifier,
			Title:      record.Title,
			State:      record.State,
			Assignee:   record.Assignee,
			Priority:   record.Priority,
			TeamKey:    record.TeamKey,
		}
		if !known {
			node.Truncated = true
			nodes = append(nodes, node)
			continue
		}
		if path[id] {
			node.Truncated = true
			nodes = append(nodes, node)
			continue
		}
		path[id] = true
		node.Children = expandChildren(record.ChildIDs, arena, path)
		delete(path, id)
		nodes = append(nodes, node)
	}
	return nodes
}
