package core

import "github.com/lindash/lindash/internal/linearapi"

// OverlayKind identifies the secondary panel over the browsing view. At
// most one is open at a time.
type OverlayKind int

const (
	OverlayNone OverlayKind = iota
	OverlayProjects
	OverlayCycles
	OverlayHelp
	OverlayPalette
)

func (k OverlayKind) String() string {
	switch k {
	case OverlayProjects:
		return "projects"
	case OverlayCycles:
		return "cycles"
	case OverlayHelp:
		return "help"
	case OverlayPalette:
		return "palette"
	default:
		return "none"
	}
}

// OverlayState is the overlay manager. Opening a data overlay bumps its
// generation so a completion for a closed or replaced overlay is dropped on
// arrival.
type OverlayState struct {
	Kind OverlayKind
	Gen  int64

	Loading  bool
	LoadErr  error
	Projects []linearapi.Project
	Cycles   []linearapi.Cycle

	Palette PaletteState
}

// Open switches to kind, replacing whatever was open, and returns the new
// overlay generation.
func (o *OverlayState) Open(kind OverlayKind) int64 {
	o.Gen++
	o.Kind = kind
	o.Loading = kind == OverlayProjects || kind == OverlayCycles
	o.LoadErr = nil
	o.Projects = nil
	o.Cycles = nil
	if kind == OverlayPalette {
		o.Palette.Reset()
	}
	return o.Gen
}

// Close dismisses the overlay. The generation bump invalidates any fetch
// still in flight for it.
func (o *OverlayState) Close() {
	o.Gen++
	o.Kind = OverlayNone
	o.Loading = false
	o.LoadErr = nil
	o.Projects = nil
	o.Cycles = nil
}

// IsOpen reports whether any overlay is showing.
func (o *OverlayState) IsOpen() bool {
	return o.Kind != OverlayNone
}

// Accept applies an overlay fetch completion. Stale generations and
// completions for a different overlay kind are ignored.
func (o *OverlayState) Accept(completion Completion) bool {
	if completion.Gen != o.Gen {
		return false
	}
	switch completion.Req.Kind {
	case RequestProjects:
		if o.Kind != OverlayProjects {
			return false
		}
		o.Loading = false
		o.LoadErr = completion.Err
		o.Projects = completion.Projects
	case RequestCycles:
		if o.Kind != OverlayCycles {
			return false
		}
		o.Loading = false
		o.LoadErr = completion.Err
		o.Cycles = completion.Cycles
	default:
		return false
	}
	return true
}

// PaletteState is the command palette's input line plus its recall history.
type PaletteState struct {
	Input   string
	history []string
	// cursor indexes history during recall; len(history) means "not
	// recalling", editing a fresh line.
	cursor  int
	pending string
}

// Reset clears the input line and leaves history intact.
func (p *PaletteState) Reset() {
	p.Input = ""
	p.cursor = len(p.history)
	p.pending = ""
}

// Record appends an executed command line to history. Consecutive
// duplicates are collapsed.
func (p *PaletteState) Record(line string) {
	if line == "" {
		return
	}
	if n := len(p.history); n > 0 && p.history[n-1] == line {
		return
	}
	p.history = append(p.history, line)
}

// RecallPrev moves one step back through history, stashing the in-progress
// line so RecallNext can restore it.
func (p *PaletteState) RecallPrev() {
	if len(p.history) == 0 || p.cursor == 0 {
		return
	}
	if p.cursor == len(p.history) {
		p.pending = p.Input
	}
	p.cursor--
	p.Input = p.history[p.cursor]
}

// RecallNext moves one step forward, back toward the stashed line.
func (p *PaletteState) RecallNext() {
	if p.cursor >= len(p.history) {
		return
	}
	p.cursor++
	if p.cursor == len(p.history) {
		p.Input = p.pending
		return
	}
	p.Input = p.history[p.cursor]
}

// History returns the recorded lines, oldest first.
func (p *PaletteState) History() []string {
	return p.history
}
