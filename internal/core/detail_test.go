package core

import (
	"testing"
	"time"

	"github.com/lindash/lindash/internal/linearapi"
)

func timeAt(day, hour int) time.Time {
	return time.Date(2025, time.March, day, hour, 0, 0, 0, time.Local)
}

func TestBuildActivity_SortedDescending(t *testing.T) {
	detail := linearapi.IssueDetail{
		Comments: []linearapi.Comment{
			{ID: "c-1", Body: "first", CreatedAt: timeAt(10, 9)},
			{ID: "c-2", Body: "second", CreatedAt: timeAt(12, 9)},
		},
		History: []linearapi.HistoryEvent{
			{ID: "h-1", CreatedAt: timeAt(11, 9), FromState: "Todo", ToState: "Doing"},
		},
	}

	groups := BuildActivity(detail)

	var flat []ActivityItem
	for _, group := range groups {
		flat = append(flat, group.Items...)
	}
	if len(flat) != 3 {
		t.Fatalf("got %d items, want 3", len(flat))
	}
	for i := 1; i < len(flat); i++ {
		if flat[i].At.After(flat[i-1].At) {
			t.Errorf("items out of order: %v before %v", flat[i-1].At, flat[i].At)
		}
	}
	if flat[0].Body != "second" {
		t.Errorf("newest item = %+v, want the second comment", flat[0])
	}
}

func TestBuildActivity_TiesCommentsBeforeHistory(t *testing.T) {
	at := timeAt(10, 9)
	detail := linearapi.IssueDetail{
		Comments: []linearapi.Comment{
			{ID: "c-1", Body: "note", CreatedAt: at},
		},
		History: []linearapi.HistoryEvent{
			{ID: "h-1", CreatedAt: at, FromState: "Todo", ToState: "Doing"},
		},
	}

	groups := BuildActivity(detail)
	if len(groups) != 1 || len(groups[0].Items) != 2 {
		t.Fatalf("groups = %+v, want one group with 2 items", groups)
	}
	if groups[0].Items[0].Kind != ActivityComment {
		t.Error("at equal timestamps the comment should come first")
	}
	if groups[0].Items[1].Kind != ActivityFieldChange {
		t.Error("field change should follow the comment at equal timestamps")
	}
}

func TestBuildActivity_GroupsByLocalDay(t *testing.T) {
	detail := linearapi.IssueDetail{
		Comments: []linearapi.Comment{
			{ID: "c-1", Body: "old", CreatedAt: timeAt(10, 8)},
			{ID: "c-2", Body: "late same day", CreatedAt: timeAt(10, 22)},
			{ID: "c-3", Body: "new", CreatedAt: timeAt(11, 1)},
		},
	}

	groups := BuildActivity(detail)
	if len(groups) != 2 {
		t.Fatalf("got %d day groups, want 2", len(groups))
	}
	if !groups[0].Day.After(groups[1].Day) {
		t.Errorf("day groups not newest-first: %v then %v", groups[0].Day, groups[1].Day)
	}
	if len(groups[0].Items) != 1 || groups[0].Items[0].Body != "new" {
		t.Errorf("newest group = %+v, want the day-11 comment", groups[0].Items)
	}
	if len(groups[1].Items) != 2 {
		t.Errorf("older group has %d items, want 2", len(groups[1].Items))
	}
}

func TestBuildActivity_MultiFieldEvent(t *testing.T) {
	from, to := 3, 1
	detail := linearapi.IssueDetail{
		History: []linearapi.HistoryEvent{{
			ID:           "h-1",
			CreatedAt:    timeAt(10, 9),
			FromState:    "Todo",
			ToState:      "Doing",
			FromPriority: &from,
			ToPriority:   &to,
		}},
	}

	groups := BuildActivity(detail)
	if len(groups) != 1 || len(groups[0].Items) != 2 {
		t.Fatalf("groups = %+v, want one group with 2 items", groups)
	}
	fields := []string{groups[0].Items[0].Field, groups[0].Items[1].Field}
	if fields[0] != "state" || fields[1] != "priority" {
		t.Errorf("fields = %v, want [state priority]", fields)
	}
	if groups[0].Items[1].To != "Urgent" {
		t.Errorf("priority To = %q, want Urgent", groups[0].Items[1].To)
	}
}

func subIssue(id, identifier string, childIDs ...string) linearapi.SubIssueRecord {
	return linearapi.SubIssueRecord{ID: id, Identifier: identifier, Title: "t " + identifier, ChildIDs: childIDs}
}

func TestBuildSubIssueTree_Nested(t *testing.T) {
	detail := linearapi.IssueDetail{
		ID:       "root",
		ChildIDs: []string{"a", "b"},
		SubIssues: []linearapi.SubIssueRecord{
			subIssue("a", "ENG-2", "a1"),
			subIssue("a1", "ENG-3"),
			subIssue("b", "ENG-4"),
		},
	}

	tree := BuildSubIssueTree(detail)
	if len(tree) != 2 {
		t.Fatalf("got %d roots, want 2", len(tree))
	}
	if tree[0].Identifier != "ENG-2" || len(tree[0].Children) != 1 {
		t.Errorf("tree[0] = %+v, want ENG-2 with one child", tree[0])
	}
	if tree[0].Children[0].Identifier != "ENG-3" {
		t.Errorf("grandchild = %+v, want ENG-3", tree[0].Children[0])
	}
	if tree[1].Identifier != "ENG-4" || len(tree[1].Children) != 0 {
		t.Errorf("tree[1] = %+v, want leaf ENG-4", tree[1])
	}
}

func TestBuildSubIssueTree_CycleTerminates(t *testing.T) {
	// a -> b -> a: the back edge must render as a truncated leaf.
	detail := linearapi.IssueDetail{
		ID:       "root",
		ChildIDs: []string{"a"},
		SubIssues: []linearapi.SubIssueRecord{
			subIssue("a", "ENG-2", "b"),
			subIssue("b", "ENG-3", "a"),
		},
	}

	tree := BuildSubIssueTree(detail)
	if len(tree) != 1 {
		t.Fatalf("got %d roots, want 1", len(tree))
	}
	b := tree[0].Children
	if len(b) != 1 || b[0].Identifier != "ENG-3" {
		t.Fatalf("children of a = %+v, want [ENG-3]", b)
	}
	back := b[0].Children
	if len(back) != 1 || !back[0].Truncated {
		t.Fatalf("cycle edge = %+v, want one truncated leaf", back)
	}
	if len(back[0].Children) != 0 {
		t.Error("truncated node was expanded")
	}
}

func TestBuildSubIssueTree_SelfReference(t *testing.T) {
	detail := linearapi.IssueDetail{
		ID:       "root",
		ChildIDs: []string{"root"},
		SubIssues: []linearapi.SubIssueRecord{
			subIssue("root", "ENG-1", "root"),
		},
	}

	tree := BuildSubIssueTree(detail)
	if len(tree) != 1 || !tree[0].Truncated {
		t.Fatalf("tree = %+v, want one truncated leaf", tree)
	}
}

func TestBuildSubIssueTree_SharedChildNotACycle(t *testing.T) {
	// Diamond: a and b both point at c. c is on neither's path, so it
	// expands under both.
	detail := linearapi.IssueDetail{
		ID:       "root",
		ChildIDs: []string{"a", "b"},
		SubIssues: []linearapi.SubIssueRecord{
			subIssue("a", "ENG-2", "c"),
			subIssue("b", "ENG-3", "c"),
			subIssue("c", "ENG-4"),
		},
	}

	tree := BuildSubIssueTree(detail)
	if len(tree) != 2 {
		t.Fatalf("got %d roots, want 2", len(tree))
	}
	for _, node := range tree {
		if len(node.Children) != 1 || node.Children[0].Truncated {
			t.Errorf("%s children = %+v, want expanded ENG-4", node.Identifier, node.Children)
		}
	}
}

func TestBuildSubIssueTree_MissingRecordTruncated(t *testing.T) {
	detail := linearapi.IssueDetail{
		ID:       "root",
		ChildIDs: []string{"ghost"},
	}

	tree := BuildSubIssueTree(detail)
	if len(tree) != 1 || !tree[0].Truncated {
		t.Fatalf("tree = %+v, want one truncated placeholder", tree)
	}
}

func TestDetailTab_NextPrevWrap(t *testing.T) {
	if DetailTabSubIssues.Next() != DetailTabSummary {
		t.Error("SubIssues.Next() should wrap to Summary")
	}
	if DetailTabSummary.Prev() != DetailTabSubIssues {
		t.Error("Summary.Prev() should wrap to SubIssues")
	}
}
