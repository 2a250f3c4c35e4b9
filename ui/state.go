package ui

import "strings"

// State is the active window. Esc returns to the state that opened the
// current one; the model keeps exactly one level of history.
type State int

const (
	StateDashboard State = iota
	StateNormal
	StateInsert
	StateHelp
	StateChannelSwitch
	StateMessageSearch
	StateDebug
)

func (s State) String() string {
	switch s {
	case StateDashboard:
		return "dashboard"
	case StateNormal:
		return "normal"
	case StateInsert:
		return "insert"
	case StateHelp:
		return "help"
	case StateChannelSwitch:
		return "channel_switch"
	case StateMessageSearch:
		return "message_search"
	case StateDebug:
		return "debug"
	default:
		return "unknown"
	}
}

// ParseState maps the first_state config value to a startup state.
// Unknown values fall back to the dashboard.
func ParseState(name string) State {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "normal":
		return StateNormal
	case "help":
		return StateHelp
	default:
		return StateDashboard
	}
}
