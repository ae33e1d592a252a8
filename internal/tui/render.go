package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"

	"github.com/lindash/lindash/internal/core"
	"github.com/lindash/lindash/internal/linearapi"
	"github.com/lindash/lindash/internal/logger"
)

// spinnerFrames cycles on the status bar while a fetch is in flight.
var spinnerFrames = []rune{'-', '\\', '|', '/'}

const spinnerInterval = 200 * time.Millisecond

func priorityLabel(priority int) string {
	switch priority {
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

func formatDate(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02")
}

func formatDay(t time.Time) string {
	return t.Format("Mon, Jan 2 2006")
}

// renderFilterBar builds the tab row plus the active constraints.
func renderFilterBar(vm core.ViewModel) string {
	var b strings.Builder
	for _, tab := range []core.StatusTab{core.TabAll, core.TabTodo, core.TabDoing, core.TabDone} {
		if tab == vm.Filter.Status {
			fmt.Fprintf(&b, "[black:aqua] %s [-:-] ", tab.Label())
		} else {
			fmt.Fprintf(&b, " %s  ", tab.Label())
		}
	}

	var parts []string
	if vm.Filter.TeamKey != "" {
		parts = append(parts, "team:"+vm.Filter.TeamKey)
	}
	if vm.Filter.ProjectID != "" {
		parts = append(parts, "project:"+projectName(vm, vm.Filter.ProjectID))
	}
	if vm.Filter.Contains != "" {
		parts = append(parts, fmt.Sprintf("contains:%q", vm.Filter.Contains))
	}
	if len(parts) > 0 {
		fmt.Fprintf(&b, " [yellow]%s[-]", strings.Join(parts, " "))
	}
	return b.String()
}

func projectName(vm core.ViewModel, projectID string) string {
	for _, project := range vm.Projects {
		if project.ID == projectID {
			return project.Name
		}
	}
	return projectID
}

// renderStatusBar builds the one-line footer: spinner, page position, the
// transient status message, and the re-login banner when the session died.
func renderStatusBar(vm core.ViewModel, frame int) string {
	var b strings.Builder
	if vm.PageLoading || vm.DetailLoading || vm.OverlayLoading {
		fmt.Fprintf(&b, "%c ", spinnerFrames[frame%len(spinnerFrames)])
	}
	fmt.Fprintf(&b, "page %d", vm.Page+1)
	if vm.HasMore {
		b.WriteString("+")
	}
	fmt.Fprintf(&b, " | %d issues", len(vm.Issues))
	if vm.Unauthenticated {
		b.WriteString(" | [red]session expired, run lindash login[-]")
	}
	if vm.Status != "" {
		if vm.StatusIsError {
			fmt.Fprintf(&b, " | [red]%s[-]", tviewEscape(vm.Status))
		} else {
			fmt.Fprintf(&b, " | %s", tviewEscape(vm.Status))
		}
	}
	return b.String()
}

func tviewEscape(s string) string {
	return strings.ReplaceAll(s, "[", "[[")
}

// issueRow formats one list row: identifier, state, priority, title,
// assignee.
func issueRow(issue linearapi.IssueSummary) []string {
	assignee := issue.Assignee
	if assignee == "" {
		assignee = "-"
	}
	return []string{
		issue.Identifier,
		issue.State,
		priorityLabel(issue.Priority),
		issue.Title,
		assignee,
	}
}

// renderMarkdown renders issue markdown for the terminal. On renderer
// failure the raw text is returned unchanged.
func renderMarkdown(markdown string, width int) string {
	if strings.TrimSpace(markdown) == "" {
		return "[::d]no description[-:-:-]"
	}
	if width < 10 {
		width = 10
	}
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		logger.Warning("tui: markdown renderer init failed: %v", err)
		return markdown
	}
	rendered, err := renderer.Render(markdown)
	if err != nil {
		logger.Warning("tui: markdown render failed: %v", err)
		return markdown
	}
	return rendered
}

// renderSummary builds the metadata block of the detail pane.
func renderSummary(detail linearapi.IssueDetail) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[::b]%s[-:-:-]  %s\n\n", detail.Identifier, tviewEscape(detail.Title))
	fmt.Fprintf(&b, "State:    %s\n", detail.State)
	fmt.Fprintf(&b, "Priority: %s\n", priorityLabel(detail.Priority))
	assignee := detail.Assignee
	if assignee == "" {
		assignee = "-"
	}
	fmt.Fprintf(&b, "Assignee: %s\n", assignee)
	if detail.ProjectName != "" {
		fmt.Fprintf(&b, "Project:  %s\n", detail.ProjectName)
	}
	if detail.DueDate != "" {
		fmt.Fprintf(&b, "Due:      %s\n", detail.DueDate)
	}
	if len(detail.Labels) > 0 {
		names := make([]string, 0, len(detail.Labels))
		for _, label := range detail.Labels {
			names = append(names, label.Name)
		}
		fmt.Fprintf(&b, "Labels:   %s\n", strings.Join(names, ", "))
	}
	fmt.Fprintf(&b, "Created:  %s\n", formatDate(detail.CreatedAt))
	fmt.Fprintf(&b, "Updated:  %s\n", formatDate(detail.UpdatedAt))
	if detail.URL != "" {
		fmt.Fprintf(&b, "\n%s\n", detail.URL)
	}
	return b.String()
}

// renderActivity builds the day-grouped timeline.
func renderActivity(groups []core.DayGroup) string {
	if len(groups) == 0 {
		return "[::d]no activity[-:-:-]"
	}
	var b strings.Builder
	for _, group := range groups {
		fmt.Fprintf(&b, "[::b]%s[-:-:-]\n", formatDay(group.Day))
		for _, item := range group.Items {
			at := item.At.Local().Format("15:04")
			switch item.Kind {
			case core.ActivityComment:
				fmt.Fprintf(&b, "  %s  [aqua]%s[-] commented:\n", at, item.Actor)
				for _, line := range strings.Split(strings.TrimRight(item.Body, "\n"), "\n") {
					fmt.Fprintf(&b, "        %s\n", tviewEscape(line))
				}
			case core.ActivityFieldChange:
				fmt.Fprintf(&b, "  %s  %s %s\n", at, item.Actor, describeChange(item))
			}
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func describeChange(item core.ActivityItem) string {
	switch {
	case item.Field == "description":
		return "updated the description"
	case item.From == "":
		return fmt.Sprintf("set %s to %s", item.Field, item.To)
	case item.To == "":
		return fmt.Sprintf("removed %s (was %s)", item.Field, item.From)
	default:
		return fmt.Sprintf("changed %s: %s -> %s", item.Field, item.From, item.To)
	}
}

// renderSubIssueTree draws the hierarchy with box-drawing connectors.
func renderSubIssueTree(nodes []core.SubIssueNode) string {
	if len(nodes) == 0 {
		return "[::d]no sub-issues[-:-:-]"
	}
	var b strings.Builder
	writeTreeLevel(&b, nodes, "")
	return strings.TrimRight(b.String(), "\n")
}

func writeTreeLevel(b *strings.Builder, nodes []core.SubIssueNode, prefix string) {
	for i, node := range nodes {
		connector, childPrefix := "├─ ", prefix+"│  "
		if i == len(nodes)-1 {
			connector, childPrefix = "└─ ", prefix+"   "
		}
		label := node.Identifier
		if label == "" {
			label = node.ID
		}
		fmt.Fprintf(b, "%s%s%s", prefix, connector, label)
		if node.Title != "" {
			fmt.Fprintf(b, "  %s", tviewEscape(node.Title))
		}
		if node.State != "" {
			fmt.Fprintf(b, "  [%s]", node.State)
		}
		if node.Truncated {
			b.WriteString("  (…)")
		}
		b.WriteString("\n")
		writeTreeLevel(b, node.Children, childPrefix)
	}
}

// renderProjectsOverlay lists the projects overlay rows.
func renderProjectsOverlay(vm core.ViewModel) []string {
	rows := make([]string, 0, len(vm.Projects))
	for _, project := range vm.Projects {
		lead := project.Lead
		if lead == "" {
			lead = "-"
		}
		target := project.TargetDate
		if target == "" {
			target = "-"
		}
		rows = append(rows, fmt.Sprintf("%-30s %-12s lead:%-15s target:%s",
			truncate(project.Name, 30), project.State, truncate(lead, 15), target))
	}
	return rows
}

// renderCyclesOverlay lists the cycles overlay rows.
func renderCyclesOverlay(vm core.ViewModel) []string {
	rows := make([]string, 0, len(vm.Cycles))
	for _, cycle := range vm.Cycles {
		name := cycle.Name
		if name == "" {
			name = fmt.Sprintf("Cycle %d", cycle.Number)
		}
		rows = append(rows, fmt.Sprintf("%-30s %s -> %s",
			truncate(name, 30), shortDate(cycle.StartsAt), shortDate(cycle.EndsAt)))
	}
	return rows
}

func shortDate(iso string) string {
	if len(iso) >= 10 {
		return iso[:10]
	}
	if iso == "" {
		return "-"
	}
	return iso
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit-1]) + "…"
}

// helpText is the static help overlay body.
func helpText() string {
	return strings.TrimLeft(`
[::b]Navigation[-:-:-]
  j / k          move selection
  g / G          first / last issue
  Tab            switch pane focus
  ] / [          next / previous page
  1 2 3 4        All / Todo / Doing / Done
  . / ,          next / previous detail tab

[::b]Filtering[-:-:-]
  t              set team
  s              set state
  /              filter titles by text
  c              clear all filters

[::b]Panels[-:-:-]
  o              projects
  y              cycles
  ?              this help
  :              command palette

[::b]Other[-:-:-]
  r              reload everything
  q              quit

[::b]Palette commands[-:-:-]
  team <key>     state <name>      project <name|next|prev|clear>
  status <tab|next|prev>           contains <text|clear>
  page <n|next|prev|refresh>       view <key|next|prev|first|last>
  detail <tab>   clear   reload    help   quit
`, "\n")
}
