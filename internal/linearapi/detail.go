package linearapi

import (
	"context"

	"github.com/shurcooL/graphql"

	"github.com/lindash/lindash/internal/logger"
)

type userNode struct {
	ID          graphql.String
	Name        graphql.String
	DisplayName graphql.String
}

func (n *userNode) toUser() User {
	if n == nil {
		return User{}
	}
	return User{
		ID:          string(n.ID),
		Name:        string(n.Name),
		DisplayName: string(n.DisplayName),
	}
}

type stateRefNode struct {
	Name graphql.String
}

func (n *stateRefNode) name() string {
	if n == nil {
		return ""
	}
	return string(n.Name)
}

// The sub-issue hierarchy is fetched three levels deep; the deepest level
// only carries child IDs so the cutoff stays visible as unresolved links.

type subIssueLeaf struct {
	ID graphql.String
}

type subIssueLevel3 struct {
	ID         graphql.String
	Identifier graphql.String
	Title      graphql.String
	Priority   graphql.Float
	State      *stateRefNode
	Assignee   *userNode
	Team       *struct {
		Key graphql.String
	}
	Children struct {
		Nodes []subIssueLeaf
	} `graphql:"children(first: 50)"`
}

type subIssueLevel2 struct {
	ID         graphql.String
	Identifier graphql.String
	Title      graphql.String
	Priority   graphql.Float
	State      *stateRefNode
	Assignee   *userNode
	Team       *struct {
		Key graphql.String
	}
	Children struct {
		Nodes []subIssueLevel3
	} `graphql:"children(first: 50)"`
}

type subIssueLevel1 struct {
	ID         graphql.String
	Identifier graphql.String
	Title      graphql.String
	Priority   graphql.Float
	State      *stateRefNode
	Assignee   *userNode
	Team       *struct {
		Key graphql.String
	}
	Children struct {
		Nodes []subIssueLevel2
	} `graphql:"children(first: 50)"`
}

func subIssueRecord(id, identifier, title graphql.String, priority graphql.Float, state *stateRefNode, assignee *userNode, teamKey string, childIDs []string) SubIssueRecord {
	record := SubIssueRecord{
		ID:         string(id),
		Identifier: string(identifier),
		Title:      string(title),
		Priority:   int(priority),
		State:      state.name(),
		TeamKey:    teamKey,
		ChildIDs:   childIDs,
	}
	if assignee != nil {
		record.Assignee = assignee.toUser().Label()
	}
	return record
}

func teamKeyOf(team *struct{ Key graphql.String }) string {
	if team == nil {
		return ""
	}
	return string(team.Key)
}

// FetchIssueDetail fetches one issue with its comments, history and sub-issue
// hierarchy. Sub-issues are returned as a flat arena of records linked by
// child IDs; the hierarchy is fetched three levels deep.
func (c *Client) FetchIssueDetail(ctx context.Context, issueID string) (IssueDetail, error) {
	var query struct {
		Issue struct {
			ID          graphql.String
			Identifier  graphql.String
			Title       graphql.String
			Description graphql.String
			URL         graphql.String
			Priority    graphql.Float
			CreatedAt   graphql.String
			UpdatedAt   graphql.String
			DueDate     graphql.String
			State       *struct {
				Name graphql.String
				Type graphql.String
			}
			Assignee *userNode
			Team     *struct {
				Key graphql.String
			}
			Project *struct {
				ID   graphql.String
				Name graphql.String
			}
			Labels struct {
				Nodes []struct {
					ID    graphql.String
					Name  graphql.String
					Color graphql.String
				}
			} `graphql:"labels(first: 20)"`
			Comments struct {
				Nodes []struct {
					ID        graphql.String
					Body      graphql.String
					CreatedAt graphql.String
					User      *userNode
				}
			} `graphql:"comments(first: 50)"`
			History struct {
				Nodes []struct {
					ID                 graphql.String
					CreatedAt          graphql.String
					Actor              *userNode
					FromState          *stateRefNode
					ToState            *stateRefNode
					FromAssignee       *userNode
					ToAssignee         *userNode
					FromPriority       *graphql.Float
					ToPriority         *graphql.Float
					FromTitle          graphql.String
					ToTitle            graphql.String
					FromDueDate        graphql.String
					ToDueDate          graphql.String
					UpdatedDescription graphql.Boolean
				}
			} `graphql:"history(first: 50)"`
			Children struct {
				Nodes []subIssueLevel1
			} `graphql:"children(first: 50)"`
		} `graphql:"issue(id: $id)"`
	}

	variables := map[string]interface{}{
		"id": graphql.String(issueID),
	}

	if err := c.client.Query(ctx, &query, variables); err != nil {
		logger.ErrorWithErr(err, "api: fetch issue detail failed issue_id=%s", issueID)
		return IssueDetail{}, Classify("fetch issue detail", err)
	}

	node := query.Issue
	detail := IssueDetail{
		ID:          string(node.ID),
		Identifier:  string(node.Identifier),
		Title:       string(node.Title),
		Description: string(node.Description),
		URL:         string(node.URL),
		Priority:    int(node.Priority),
		DueDate:     string(node.DueDate),
		CreatedAt:   parseTime(string(node.CreatedAt)),
		UpdatedAt:   parseTime(string(node.UpdatedAt)),
	}
	if node.State != nil {
		detail.State = string(node.State.Name)
		detail.StateType = string(node.State.Type)
	}
	if node.Assignee != nil {
		detail.Assignee = node.Assignee.toUser().Label()
	}
	if node.Team != nil {
		detail.TeamKey = string(node.Team.Key)
	}
	if node.Project != nil {
		detail.ProjectID = string(node.Project.ID)
		detail.ProjectName = string(node.Project.Name)
	}

	for _, label := range node.Labels.Nodes {
		detail.Labels = append(detail.Labels, IssueLabel{
			ID:    string(label.ID),
			Name:  string(label.Name),
			Color: string(label.Color),
		})
	}

	for _, comment := range node.Comments.Nodes {
		author := User{}
		if comment.User != nil {
			author = comment.User.toUser()
		}
		detail.Comments = append(detail.Comments, Comment{
			ID:        string(comment.ID),
			Body:      string(comment.Body),
			Author:    author,
			CreatedAt: parseTime(string(comment.CreatedAt)),
		})
	}

	for _, event := range node.History.Nodes {
		record := HistoryEvent{
			ID:                 string(event.ID),
			CreatedAt:          parseTime(string(event.CreatedAt)),
			FromState:          event.FromState.name(),
			ToState:            event.ToState.name(),
			FromTitle:          string(event.FromTitle),
			ToTitle:            string(event.ToTitle),
			FromDueDate:        string(event.FromDueDate),
			ToDueDate:          string(event.ToDueDate),
			DescriptionUpdated: bool(event.UpdatedDescription),
		}
		if event.Actor != nil {
			record.Actor = event.Actor.toUser()
		}
		if event.FromAssignee != nil {
			record.FromAssignee = event.FromAssignee.toUser().Label()
		}
		if event.ToAssignee != nil {
			record.ToAssignee = event.ToAssignee.toUser().Label()
		}
		if event.FromPriority != nil {
			p := int(*event.FromPriority)
			record.FromPriority = &p
		}
		if event.ToPriority != nil {
			p := int(*event.ToPriority)
			record.ToPriority = &p
		}
		detail.History = append(detail.History, record)
	}

	for _, level1 := range node.Children.Nodes {
		detail.ChildIDs = append(detail.ChildIDs, string(level1.ID))

		var level1Children []string
		for _, level2 := range level1.Children.Nodes {
			level1Children = append(level1Children, string(level2.ID))

			var level2Children []string
			for _, level3 := range level2.Children.Nodes {
				level2Children = append(level2Children, string(level3.ID))

				var level3Children []string
				for _, leaf := range level3.Children.Nodes {
					level3Children = append(level3Children, string(leaf.ID))
				}
				detail.SubIssues = append(detail.SubIssues, subIssueRecord(
					level3.ID, level3.Identifier, level3.Title, level3.Priority,
					level3.State, level3.Assignee, teamKeyOf(level3.Team), level3Children))
			}
			detail.SubIssues = append(detail.SubIssues, subIssueRecord(
				level2.ID, level2.Identifier, level2.Title, level2.Priority,
				level2.State, level2.Assignee, teamKeyOf(level2.Team), level2Children))
		}
		detail.SubIssues = append(detail.SubIssues, subIssueRecord(
			level1.ID, level1.Identifier, level1.Title, level1.Priority,
			level1.State, level1.Assignee, teamKeyOf(level1.Team), level1Children))
	}

	return detail, nil
}
