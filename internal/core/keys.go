package core

// Key is a terminal-agnostic key identifier. The widget layer translates
// its event type into these before calling the controller.
type Key int

const (
	KeyRune Key = iota
	KeyEnter
	KeyEscape
	KeyBackspace
	KeyUp
	KeyDown
	KeyLeft
	KeyRight
	KeyTab
)

// InputEvent is one keystroke. Rune is set only for KeyRune.
type InputEvent struct {
	Key  Key
	Rune rune
}

// RuneEvent is a convenience constructor for plain character input.
func RuneEvent(r rune) InputEvent {
	return InputEvent{Key: KeyRune, Rune: r}
}

// Focus picks which main pane j/k movement applies to.
type Focus int

const (
	FocusList Focus = iota
	FocusDetail
)
