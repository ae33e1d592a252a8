package core

import (
	"strings"

	"github.com/sahilm/fuzzy"
)

// paletteVerbs are the completable first tokens, with their argument hints.
var paletteVerbs = []string{
	"team",
	"state",
	"project",
	"status",
	"contains",
	"clear",
	"reload",
	"page",
	"view",
	"detail",
	"help",
	"quit",
}

const maxSuggestions = 6

// SuggestPalette returns fuzzy completions for the palette input. While the
// first token is being typed it completes verbs; once a verb is committed it
// completes that verb's arguments from the known names (team keys, project
// names, workflow states, tab names).
func (c *Controller) SuggestPalette(input string) []string {
	trimmed := strings.TrimLeft(input, " ")
	head, rest, hasRest := strings.Cut(trimmed, " ")

	if !hasRest {
		return fuzzyRank(head, paletteVerbs, "")
	}

	var candidates []string
	switch strings.ToLower(head) {
	case "team", "t":
		for _, team := range c.teams {
			candidates = append(candidates, team.Key)
		}
	case "state", "s":
		for _, state := range c.states {
			candidates = append(candidates, state.Name)
		}
	case "project", "p":
		candidates = []string{SelNext, SelPrev, SelClear}
		for _, project := range c.projects {
			candidates = append(candidates, project.Name)
		}
	case "status":
		candidates = []string{"all", "todo", "doing", "done", SelNext, SelPrev}
	case "page":
		candidates = []string{SelNext, SelPrev, "refresh"}
	case "view", "v":
		candidates = []string{SelNext, SelPrev, SelFirst, SelLast}
	case "detail", "d":
		candidates = []string{"summary", "description", "activity", "sub-issues"}
	default:
		return nil
	}
	return fuzzyRank(strings.TrimSpace(rest), candidates, head+" ")
}

func fuzzyRank(pattern string, candidates []string, prefix string) []string {
	if pattern == "" {
		out := candidates
		if len(out) > maxSuggestions {
			out = out[:maxSuggestions]
		}
		result := make([]string, 0, len(out))
		for _, candidate := range out {
			result = append(result, prefix+candidate)
		}
		return result
	}
	matches := fuzzy.Find(pattern, candidates)
	if len(matches) > maxSuggestions {
		matches = matches[:maxSuggestions]
	}
	result := make([]string, 0, len(matches))
	for _, match := range matches {
		result = append(result, prefix+match.Str)
	}
	return result
}
