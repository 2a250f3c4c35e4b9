package ui

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/onnwee/twt/telemetry"
)

const (
	minWidth  = 20
	minHeight = 5
)

var (
	titleStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("99"))
	sectionStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	selectedStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("229")).Background(lipgloss.Color("57"))
	liveStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	timestampStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	eventStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Italic(true)
	noticeStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	mentionStyle   = lipgloss.NewStyle().Background(lipgloss.Color("52"))
	dimStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	matchStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("212")).Bold(true).Underline(true)
	statusStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	errorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

func (m Model) View() string {
	if m.width > 0 && (m.width < minWidth || m.height < minHeight) {
		return "window too small"
	}
	switch m.state {
	case StateDashboard:
		return m.viewDashboard()
	case StateHelp:
		return m.viewHelp()
	case StateDebug:
		return m.viewDebug()
	case StateMessageSearch:
		return m.viewSearch()
	default:
		return m.viewChat()
	}
}

// ---- dashboard ----

func (m Model) viewDashboard() string {
	var b strings.Builder
	header := "twt"
	if m.version != "" {
		header += " " + m.version
	}
	b.WriteString(titleStyle.Render(header) + "\n\n")

	if m.dash.len() == 0 {
		b.WriteString(dimStyle.Render("no channels yet: press s and type a channel name") + "\n")
	}

	n := 0
	for _, section := range m.dash.sections {
		b.WriteString(sectionStyle.Render(section.title) + "\n")
		for _, login := range section.channels {
			label := fmt.Sprintf("  %d  %s", n, login)
			if info, ok := m.live[login]; ok && info.live {
				label += " " + liveStyle.Render("● live")
			}
			if n == m.dash.cursor {
				b.WriteString(selectedStyle.Render(label))
			} else {
				b.WriteString(label)
			}
			b.WriteString("\n")
			n++
		}
		b.WriteString("\n")
	}

	if m.followedErr != "" {
		b.WriteString(errorStyle.Render("followed channels unavailable: "+m.followedErr) + "\n")
	}
	b.WriteString(statusStyle.Render("Enter/digit join · s switch · ?/h help · q quit"))
	return b.String()
}

// ---- chat ----

func (m Model) viewChat() string {
	var b strings.Builder

	chrome := 1 // status/input line
	if m.cfg.Frontend.TitleShown {
		b.WriteString(m.titleBar() + "\n")
		chrome++
	}

	visible := m.height - chrome
	if visible < 1 {
		visible = 10
	}
	for _, l := range m.visibleLines(visible) {
		b.WriteString(m.renderLine(l) + "\n")
	}

	switch {
	case m.state == StateInsert:
		b.WriteString(m.input.View())
		if m.suggestion != "" {
			rest := strings.TrimPrefix(m.suggestion, m.input.Value())
			b.WriteString(dimStyle.Render(rest))
		}
	case m.state == StateChannelSwitch:
		b.WriteString("channel: " + m.input.View())
		if m.suggestion != "" {
			rest := strings.TrimPrefix(m.suggestion, m.input.Value())
			b.WriteString(dimStyle.Render(rest))
		}
	case !m.connected:
		b.WriteString(m.spin.View() + statusStyle.Render(" connecting to chat…"))
	case m.scroll > 0:
		b.WriteString(statusStyle.Render(fmt.Sprintf("[scrolled %d lines, End to follow]", m.scroll)))
	default:
		b.WriteString(statusStyle.Render("i compose · s switch · S dashboard · ?/h help"))
	}
	return b.String()
}

// visibleLines returns the window of the current ring respecting the
// scroll offset, oldest-first.
func (m Model) visibleLines(visible int) []Line {
	lines := m.currentRing().Lines()
	end := len(lines) - m.scroll
	if end < 0 {
		end = 0
	}
	start := end - visible
	if start < 0 {
		start = 0
	}
	return lines[start:end]
}

func (m Model) titleBar() string {
	if m.channel == "" {
		return titleStyle.Render("twt")
	}
	parts := []string{titleStyle.Render("#" + m.channel)}
	if info, ok := m.live[m.channel]; ok {
		if info.live {
			status := "live"
			if !info.startedAt.IsZero() {
				status += " " + formatUptime(m.now.Sub(info.startedAt))
			}
			parts = append(parts, liveStyle.Render(status))
			if info.title != "" {
				parts = append(parts, statusStyle.Render(info.title))
			}
		} else {
			parts = append(parts, statusStyle.Render("offline"))
		}
	}
	if states := m.activeRoomStates(); states != "" {
		parts = append(parts, statusStyle.Render("["+states+"]"))
	}
	return strings.Join(parts, " · ")
}

func formatUptime(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	d = d.Round(time.Minute)
	h := int(d.Hours())
	min := int(d.Minutes()) % 60
	return fmt.Sprintf("%dh%02dm", h, min)
}

// activeRoomStates summarizes the modes in effect for the title bar.
func (m Model) activeRoomStates() string {
	states := m.roomStates[m.channel]
	var active []string
	for _, k := range []string{"emote-only", "followers-only", "r9k", "slow", "subs-only"} {
		v, ok := states[k]
		if !ok {
			continue
		}
		switch k {
		case "followers-only":
			if v >= 0 {
				active = append(active, "followers")
			}
		case "slow":
			if v > 0 {
				active = append(active, fmt.Sprintf("slow %ds", v))
			}
		default:
			if v != 0 {
				active = append(active, strings.TrimSuffix(k, "-only"))
			}
		}
	}
	return strings.Join(active, ", ")
}

func (m Model) renderLine(l Line) string {
	var b strings.Builder
	if m.cfg.Frontend.DateShown && !l.Time.IsZero() {
		b.WriteString(timestampStyle.Render(l.Time.Format(m.cfg.Frontend.DateFormat)) + " ")
	}
	switch l.Kind {
	case LineEvent:
		b.WriteString(eventStyle.Render("— " + l.Text))
	case LineNotice:
		b.WriteString(noticeStyle.Render("! " + l.Text))
	default:
		name := l.DisplayName
		if name == "" {
			name = l.Author
		}
		name = truncateDisplay(name, m.cfg.Frontend.MaximumUsernameLength)
		nameStyle := lipgloss.NewStyle().Bold(true).
			Foreground(UserColor(l.Author, l.Color, m.cfg.Frontend.Palette))
		padded := alignName(nameStyle.Render(name), ansi.StringWidth(name), m.usernameColumn(), m.cfg.Frontend.UsernameAlignment)

		text := l.Text
		if l.Action {
			b.WriteString(padded + " " + eventStyle.Render(text))
			break
		}
		rendered := padded + ": " + text
		if l.Mention {
			rendered = mentionStyle.Render(rendered)
		}
		b.WriteString(rendered)
	}
	return b.String()
}

// usernameColumn is the width reserved for the username column.
func (m Model) usernameColumn() int {
	if m.cfg.Frontend.UsernameAlignment == "" || m.cfg.Frontend.UsernameAlignment == "left" {
		return 0
	}
	w := m.cfg.Frontend.MaximumUsernameLength
	if w <= 0 {
		w = 26
	}
	return w
}

// alignName pads the styled name to the column width using the display
// width of the unstyled text.
func alignName(styled string, width, column int, alignment string) string {
	pad := column - width
	if pad <= 0 {
		return styled
	}
	switch alignment {
	case "right":
		return strings.Repeat(" ", pad) + styled
	case "center":
		left := pad / 2
		return strings.Repeat(" ", left) + styled + strings.Repeat(" ", pad-left)
	default:
		return styled + strings.Repeat(" ", pad)
	}
}

// truncateDisplay cuts a name to at most max display cells.
func truncateDisplay(s string, max int) string {
	if max <= 0 || ansi.StringWidth(s) <= max {
		return s
	}
	var b strings.Builder
	w := 0
	for _, r := range s {
		rw := ansi.StringWidth(string(r))
		if w+rw > max {
			break
		}
		b.WriteRune(r)
		w += rw
	}
	return b.String()
}

// ---- search ----

func (m Model) viewSearch() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("search #"+m.channel) + "\n")
	b.WriteString("/ " + m.input.View() + "\n\n")

	limit := m.height - 5
	if limit < 1 {
		limit = 10
	}
	if m.searchQuery == "" {
		b.WriteString(dimStyle.Render("type to search the message history"))
		return b.String()
	}
	if len(m.searchHits) == 0 {
		b.WriteString(dimStyle.Render("no matches"))
		return b.String()
	}
	for i, hit := range m.searchHits {
		if i >= limit {
			b.WriteString(dimStyle.Render(fmt.Sprintf("… %d more", len(m.searchHits)-limit)))
			break
		}
		b.WriteString(highlightRunes(SearchText(hit.Line), hit.Positions) + "\n")
	}
	return b.String()
}

// highlightRunes styles the runes at the given positions.
func highlightRunes(text string, positions []int) string {
	if len(positions) == 0 {
		return text
	}
	marked := make(map[int]struct{}, len(positions))
	for _, p := range positions {
		marked[p] = struct{}{}
	}
	var b strings.Builder
	for i, r := range []rune(text) {
		if _, ok := marked[i]; ok {
			b.WriteString(matchStyle.Render(string(r)))
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ---- overlays ----

func (m Model) viewHelp() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("keybinds") + "\n\n")
	for _, section := range helpSections(m.keys) {
		b.WriteString(sectionStyle.Render(section.title) + "\n")
		for _, e := range section.entries {
			b.WriteString(fmt.Sprintf("  %-18s %s\n", e.key, e.desc))
		}
		b.WriteString("\n")
	}
	b.WriteString(statusStyle.Render("Esc to go back"))
	return b.String()
}

func (m Model) viewDebug() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("debug") + "\n\n")
	b.WriteString(fmt.Sprintf("  %-24s %s\n", "state", m.state))
	b.WriteString(fmt.Sprintf("  %-24s %s\n", "channel", m.channel))
	b.WriteString(fmt.Sprintf("  %-24s %d\n", "ring size", m.currentRing().Len()))
	b.WriteString(fmt.Sprintf("  %-24s %d\n", "scroll offset", m.scroll))
	b.WriteString(fmt.Sprintf("  %-24s %t\n", "connected", m.connected))
	if m.filters != nil {
		b.WriteString(fmt.Sprintf("  %-24s enabled=%t reversed=%t patterns=%d\n",
			"filters", m.filters.Enabled(), m.filters.Reversed(), m.filters.Len()))
	}
	b.WriteString("\n" + sectionStyle.Render("metrics") + "\n")
	snap := telemetry.Snapshot()
	keys := make([]string, 0, len(snap))
	for k := range snap {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		b.WriteString(fmt.Sprintf("  %-24s %.0f\n", k, snap[k]))
	}
	b.WriteString("\n" + statusStyle.Render("Esc to go back"))
	return b.String()
}
