package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/jmylchreest/toastd/internal/config"
	"github.com/jmylchreest/toastd/internal/core"
	"github.com/jmylchreest/toastd/internal/model"
)

var (
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	keyStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	titleStyle  = lipgloss.NewStyle().Bold(true)
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	badgeStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("0")).Background(lipgloss.Color("12")).Padding(0, 1)
)

// typeColors maps toast types to border colors. Unknown types use normal.
var typeColors = map[string]lipgloss.Color{
	model.TypeNormal:    lipgloss.Color("12"),
	model.TypeSuccess:   lipgloss.Color("10"),
	model.TypeWarning:   lipgloss.Color("11"),
	model.TypeDanger:    lipgloss.Color("9"),
	model.TypeMultiple:  lipgloss.Color("13"),
	model.TypeCloseable: lipgloss.Color("7"),
}

var typeGlyphs = map[string]string{
	model.TypeSuccess:  "✓",
	model.TypeWarning:  "!",
	model.TypeDanger:   "✗",
	model.TypeMultiple: "≡",
}

// buildMarkdownRenderer returns a markdown renderer for string content, or nil
// when markdown is disabled.
func buildMarkdownRenderer(cfg config.DisplayConfig, width int) func(string) string {
	if !cfg.Markdown {
		return nil
	}
	style := strings.ToLower(strings.TrimSpace(cfg.MarkdownStyle))
	if style == "" {
		style = "dark"
	}
	renderer, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(style),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return nil
	}
	return func(input string) string {
		out, err := renderer.Render(input)
		if err != nil {
			return input
		}
		return strings.TrimSpace(out)
	}
}

// View renders the TUI.
func (m Model) View() string {
	if !m.ready {
		return "Initializing..."
	}
	if m.showHelp {
		return m.viewHelp()
	}

	var body string
	switch {
	case !m.snap.Visible:
		body = dimStyle.Render("toasts hidden, press v to show")
	case m.snap.Empty():
		body = dimStyle.Render("no toasts")
	case m.snap.Unfolded:
		body = m.viewUnfolded()
	default:
		body = m.viewFolded()
	}

	footer := m.buildKeybindBar(m.width)
	if m.statusMsg != "" {
		statusStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("7"))
		if m.statusErr {
			statusStyle = statusStyle.Foreground(lipgloss.Color("9"))
		}
		footer = statusStyle.Render(m.statusMsg)
	}

	if m.height <= 1 {
		return body + "\n" + footer
	}
	placed := lipgloss.Place(m.width, m.height-1, lipgloss.Center, m.verticalPosition(), body)
	return placed + "\n" + footer
}

// viewFolded renders the prominent toast with a badge counting the rest.
func (m Model) viewFolded() string {
	t, _ := m.snap.Prominent()
	card := m.renderToast(t, false)
	if !m.snap.Stacked() {
		return card
	}
	badge := badgeStyle.Render(fmt.Sprintf("+%d", len(m.snap.History)))
	hint := dimStyle.Render("enter to unfold")
	return lipgloss.JoinVertical(lipgloss.Right, card, badge+" "+hint)
}

// viewUnfolded renders every toast, foreground first, with the selection marked.
func (m Model) viewUnfolded() string {
	toasts := m.snap.Toasts()
	header := headerStyle.Render(fmt.Sprintf("%d toasts", len(toasts))) + "  " +
		dimStyle.Render("esc fold · D clear all")

	rows := []string{header}
	for i, t := range toasts {
		rows = append(rows, m.renderToast(t, i == m.cursor))
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

// renderToast renders a toast as a bordered card. Closed toasts are dimmed.
func (m Model) renderToast(t model.Toast, selected bool) string {
	typ := t.Options.TypeOr(model.TypeNormal)
	color, ok := typeColors[typ]
	if !ok {
		color = typeColors[model.TypeNormal]
	}

	border := lipgloss.RoundedBorder()
	if selected {
		border = lipgloss.ThickBorder()
	}
	style := lipgloss.NewStyle().
		Border(border).
		BorderForeground(color).
		Padding(0, 1).
		Width(m.cardWidth())
	if !t.Open {
		style = style.Faint(true).BorderForeground(lipgloss.Color("8"))
	}

	var lines []string
	if head := m.headLine(t, typ); head != "" {
		lines = append(lines, head)
	}
	lines = append(lines, m.renderContent(t.Content))
	return style.Render(strings.Join(lines, "\n"))
}

// headLine renders the glyph, app name and age shown above the content.
func (m Model) headLine(t model.Toast, typ string) string {
	var parts []string
	if glyph, ok := typeGlyphs[typ]; ok {
		parts = append(parts, glyph)
	}
	if t.Options.UrgencyOr(model.UrgencyNormal) == model.UrgencyCritical {
		parts = append(parts, "critical")
	}
	if app := core.App(t); app != "" {
		parts = append(parts, app)
	}
	if age := humanAge(t.CreatedAt, m.now()); m.cfg.ShowAges && age != "" {
		parts = append(parts, age)
	}
	if !t.Open {
		parts = append(parts, "closed")
	}
	if len(parts) == 0 {
		return ""
	}
	return dimStyle.Render(strings.Join(parts, " · "))
}

// renderContent renders messages with a bold summary and strings as markdown
// when enabled.
func (m Model) renderContent(content any) string {
	switch c := content.(type) {
	case model.Message:
		out := titleStyle.Render(c.Summary)
		if c.Body != "" {
			out += "\n" + m.renderText(c.Body)
		}
		return out
	case string:
		return m.renderText(c)
	default:
		return model.ContentText(c)
	}
}

func (m Model) renderText(s string) string {
	if m.markdown != nil {
		return m.markdown(s)
	}
	return s
}

// cardWidth is the content width of a toast card.
func (m Model) cardWidth() int {
	w := m.width - 4
	if w > 72 {
		w = 72
	}
	if w < 20 {
		w = 20
	}
	return w
}

// verticalPosition maps the prominent toast's placement onto the screen.
func (m Model) verticalPosition() lipgloss.Position {
	def, err := model.ParsePlacement(m.cfg.Placement)
	if err != nil {
		def = model.PlacementBottom
	}
	placement := def
	if t, ok := m.snap.Prominent(); ok && !m.snap.Unfolded {
		placement = t.Options.PlacementOr(def)
	}
	switch placement {
	case model.PlacementTop:
		return lipgloss.Top
	case model.PlacementCenter:
		return lipgloss.Center
	default:
		return lipgloss.Bottom
	}
}

func (m Model) viewHelp() string {
	return headerStyle.Render("Keyboard Shortcuts") + "\n\n" +
		m.help.FullHelpView(m.keys.FullHelp()) + "\n\n" +
		dimStyle.Render("Press ? or esc to return")
}

// keybind represents a single keybind with priority for the status bar.
type keybind struct {
	key      string
	desc     string
	priority int // lower = more important (shown first)
}

// buildKeybindBar builds a keybind bar that fits within the given width.
func (m Model) buildKeybindBar(width int) string {
	binds := []keybind{
		{"q", "quit", 1},
		{"?", "help", 2},
		{"enter", "press", 3},
		{"u", "unfold", 4},
		{"d", "dismiss", 5},
		{"v", "show/hide", 6},
		{"c", "copy", 7},
		{"D", "clear all", 8},
	}
	if m.snap.Unfolded {
		binds[3] = keybind{"esc", "fold", 4}
		binds = append(binds, keybind{"j/k", "select", 9})
	}

	const separator = "  "
	result := ""
	for _, b := range binds {
		item := keyStyle.Render(b.key) + " " + b.desc
		testLen := lipgloss.Width(result) + lipgloss.Width(item)
		if result != "" {
			testLen += len(separator)
		}
		if width > 0 && testLen > width {
			break
		}
		if result != "" {
			result += separator
		}
		result += item
	}
	return dimStyle.Render(result)
}

// humanAge returns "3 minutes ago" style ages.
func humanAge(created, now time.Time) string {
	if created.IsZero() {
		return ""
	}
	if now.Sub(created) < time.Second {
		return "now"
	}
	return humanize.RelTime(created, now, "ago", "from now")
}
