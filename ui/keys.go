package ui

import "github.com/charmbracelet/bubbles/key"

// KeyMap holds every binding; Update checks the subset valid for the
// current state. The help window renders from the WithHelp annotations.
type KeyMap struct {
	// Any non-insert state.
	Help      key.Binding
	Back      key.Binding
	Dashboard key.Binding
	Quit      key.Binding

	// Normal mode.
	Insert        key.Binding
	InsertMention key.Binding
	InsertCommand key.Binding
	ChannelSwitch key.Binding
	Search        key.Binding
	ToggleFilters key.Binding
	ReverseFilter key.Binding
	Debug         key.Binding

	// Scrolling.
	Up       key.Binding
	Down     key.Binding
	PageUp   key.Binding
	PageDown key.Binding
	Home     key.Binding
	End      key.Binding

	// Dashboard.
	Select   key.Binding
	Followed key.Binding

	// Insert mode.
	Send          key.Binding
	AcceptSuggest key.Binding
}

var DefaultKeyMap = KeyMap{
	Help: key.NewBinding(
		key.WithKeys("?", "h"),
		key.WithHelp("?/h", "keybind help"),
	),
	Back: key.NewBinding(
		key.WithKeys("esc"),
		key.WithHelp("Esc", "back / cancel"),
	),
	Dashboard: key.NewBinding(
		key.WithKeys("S"),
		key.WithHelp("S", "dashboard"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
	Insert: key.NewBinding(
		key.WithKeys("i", "c"),
		key.WithHelp("i/c", "compose message"),
	),
	InsertMention: key.NewBinding(
		key.WithKeys("@"),
		key.WithHelp("@", "compose mention"),
	),
	InsertCommand: key.NewBinding(
		key.WithKeys("/"),
		key.WithHelp("/", "compose command"),
	),
	ChannelSwitch: key.NewBinding(
		key.WithKeys("s"),
		key.WithHelp("s", "switch channel"),
	),
	Search: key.NewBinding(
		key.WithKeys("ctrl+f"),
		key.WithHelp("C-f", "search messages"),
	),
	ToggleFilters: key.NewBinding(
		key.WithKeys("ctrl+t"),
		key.WithHelp("C-t", "toggle filters"),
	),
	ReverseFilter: key.NewBinding(
		key.WithKeys("ctrl+r"),
		key.WithHelp("C-r", "reverse filters"),
	),
	Debug: key.NewBinding(
		key.WithKeys("ctrl+d"),
		key.WithHelp("C-d", "debug window"),
	),
	Up: key.NewBinding(
		key.WithKeys("up", "k"),
		key.WithHelp("↑/k", "scroll up"),
	),
	Down: key.NewBinding(
		key.WithKeys("down", "j"),
		key.WithHelp("↓/j", "scroll down"),
	),
	PageUp: key.NewBinding(
		key.WithKeys("pgup"),
		key.WithHelp("PgUp", "page up"),
	),
	PageDown: key.NewBinding(
		key.WithKeys("pgdown"),
		key.WithHelp("PgDn", "page down"),
	),
	Home: key.NewBinding(
		key.WithKeys("home"),
		key.WithHelp("Home", "oldest message"),
	),
	End: key.NewBinding(
		key.WithKeys("end"),
		key.WithHelp("End", "newest message"),
	),
	Select: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("Enter", "join selected channel"),
	),
	Followed: key.NewBinding(
		key.WithKeys("f"),
		key.WithHelp("f", "followed channel search"),
	),
	Send: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("Enter", "send message"),
	),
	AcceptSuggest: key.NewBinding(
		key.WithKeys("tab"),
		key.WithHelp("Tab", "accept suggestion"),
	),
}

// helpEntry pairs a key label with its description for the help window.
type helpEntry struct {
	key  string
	desc string
}

// helpSections builds the help window content from the key map.
func helpSections(k KeyMap) []struct {
	title   string
	entries []helpEntry
} {
	entry := func(b key.Binding) helpEntry {
		h := b.Help()
		return helpEntry{key: h.Key, desc: h.Desc}
	}
	return []struct {
		title   string
		entries []helpEntry
	}{
		{"General", []helpEntry{
			entry(k.Help), entry(k.Back), entry(k.Dashboard), entry(k.Quit),
		}},
		{"Normal mode", []helpEntry{
			entry(k.Insert), entry(k.InsertMention), entry(k.InsertCommand),
			entry(k.ChannelSwitch), entry(k.Search), entry(k.ToggleFilters),
			entry(k.ReverseFilter), entry(k.Debug),
			entry(k.Up), entry(k.Down), entry(k.PageUp), entry(k.PageDown),
			entry(k.Home), entry(k.End),
		}},
		{"Dashboard", []helpEntry{
			entry(k.Select), entry(k.Followed),
			{key: "0-9", desc: "join channel by number"},
		}},
		{"Insert mode", []helpEntry{
			entry(k.Send), entry(k.AcceptSuggest),
			{key: "C-a/e/b/f/k/u/w", desc: "emacs-style line editing"},
		}},
	}
}
