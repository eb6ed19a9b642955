// Package tui renders the toast stack in a terminal with BubbleTea.
package tui

import (
	"context"
	"log/slog"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jmylchreest/toastd/internal/config"
	"github.com/jmylchreest/toastd/internal/model"
	"github.com/jmylchreest/toastd/internal/stack"
)

// ageRefresh is how often ages are re-rendered.
const ageRefresh = 30 * time.Second

// Model is the bubbletea model of the toast renderer.
type Model struct {
	stack   *stack.Manager
	updates <-chan stack.Snapshot
	cfg     config.DisplayConfig
	logger  *slog.Logger

	keys KeyMap
	help help.Model

	snap     stack.Snapshot
	cursor   int
	showHelp bool
	width    int
	height   int
	ready    bool

	markdown func(string) string
	copyText func(string) error
	now      func() time.Time

	// Status message
	statusMsg string
	statusErr bool
}

type snapshotMsg stack.Snapshot

type displayConfigMsg config.DisplayConfig

type ageTickMsg struct{}

type statusMsg struct {
	text  string
	isErr bool
}

type clearStatusMsg struct{}

// New creates the renderer model and subscribes it to the stack.
func New(m *stack.Manager, cfg config.DisplayConfig, logger *slog.Logger) Model {
	if logger == nil {
		logger = slog.Default()
	}
	mdl := Model{
		stack:    m,
		updates:  m.Subscribe(),
		cfg:      cfg,
		logger:   logger,
		keys:     DefaultKeyMap(),
		help:     help.New(),
		snap:     m.Snapshot(),
		copyText: clipboard.WriteAll,
		now:      time.Now,
		width:    80,
	}
	mdl.markdown = buildMarkdownRenderer(cfg, mdl.width)
	return mdl
}

// Init starts listening for snapshots.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.waitForSnapshot}
	if m.cfg.ShowAges {
		cmds = append(cmds, ageTick())
	}
	return tea.Batch(cmds...)
}

// waitForSnapshot blocks until the stack publishes a new snapshot.
func (m Model) waitForSnapshot() tea.Msg {
	s, ok := <-m.updates
	if !ok {
		return nil
	}
	return snapshotMsg(s)
}

func ageTick() tea.Cmd {
	return tea.Tick(ageRefresh, func(time.Time) tea.Msg { return ageTickMsg{} })
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.help.Width = msg.Width
		m.markdown = buildMarkdownRenderer(m.cfg, m.cardWidth())
		return m, nil

	case frameMsg:
		msg.flush()
		m.setSnapshot(m.stack.Snapshot())
		return m, nil

	case snapshotMsg:
		m.setSnapshot(stack.Snapshot(msg))
		return m, m.waitForSnapshot

	case displayConfigMsg:
		showAges := m.cfg.ShowAges
		m.cfg = config.DisplayConfig(msg)
		m.markdown = buildMarkdownRenderer(m.cfg, m.cardWidth())
		if m.cfg.ShowAges && !showAges {
			return m, ageTick()
		}
		return m, nil

	case ageTickMsg:
		if !m.cfg.ShowAges {
			return m, nil
		}
		return m, ageTick()

	case statusMsg:
		m.statusMsg = msg.text
		m.statusErr = msg.isErr
		return m, tea.Tick(3*time.Second, func(time.Time) tea.Msg {
			return clearStatusMsg{}
		})

	case clearStatusMsg:
		m.statusMsg = ""
		m.statusErr = false
		return m, nil
	}

	return m, nil
}

// setSnapshot replaces the rendered state, keeping the selection in range.
func (m *Model) setSnapshot(s stack.Snapshot) {
	if s.Version < m.snap.Version {
		return
	}
	m.snap = s
	if n := s.Len(); m.cursor >= n {
		m.cursor = max(n-1, 0)
	}
	if !s.Unfolded {
		m.cursor = 0
	}
}

// refresh re-reads committed state after a local action. It only shows the
// change with an immediate scheduler; under a frame scheduler the action is
// still queued and the view catches up on the next frameMsg.
func (m *Model) refresh() {
	m.setSnapshot(m.stack.Snapshot())
}

// handleKey handles key presses.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.showHelp = !m.showHelp
		return m, nil
	}
	if m.showHelp {
		if key.Matches(msg, m.keys.Fold) {
			m.showHelp = false
		}
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Up):
		if m.snap.Unfolded && m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(msg, m.keys.Down):
		if m.snap.Unfolded && m.cursor < m.snap.Len()-1 {
			m.cursor++
		}
	case key.Matches(msg, m.keys.Home):
		m.cursor = 0
	case key.Matches(msg, m.keys.End):
		if m.snap.Unfolded {
			m.cursor = max(m.snap.Len()-1, 0)
		}

	case key.Matches(msg, m.keys.Press):
		return m.press()

	case key.Matches(msg, m.keys.Fold):
		if m.snap.Unfolded {
			m.stack.SetUnfolded(false)
			m.refresh()
		}
	case key.Matches(msg, m.keys.Unfold):
		m.stack.SwitchUnfolded()
		m.refresh()

	case key.Matches(msg, m.keys.Hide):
		if t, ok := m.selected(); ok && t.Open && t.OnHide != nil {
			t.OnHide()
			m.refresh()
		}
	case key.Matches(msg, m.keys.HideAll):
		m.stack.HideAll()
		m.refresh()

	case key.Matches(msg, m.keys.Visible):
		m.stack.Toggle(!m.snap.Visible)
		m.refresh()

	case key.Matches(msg, m.keys.Copy):
		if t, ok := m.selected(); ok {
			return m, m.copyToClipboard(model.ContentText(t.Content))
		}
	}
	return m, nil
}

// press unfolds a stacked view, otherwise forwards the press to the toast.
func (m Model) press() (tea.Model, tea.Cmd) {
	if !m.snap.Unfolded && m.snap.Stacked() {
		m.stack.SetUnfolded(true)
		m.refresh()
		return m, nil
	}
	t, ok := m.selected()
	if !ok || t.Options.OnPress == nil {
		return m, nil
	}
	m.safePress(t)
	m.refresh()
	return m, nil
}

func (m Model) safePress(t model.Toast) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("press handler panicked", "id", t.ID, "panic", r)
		}
	}()
	t.Options.OnPress()
}

// selected returns the toast under the cursor, or the prominent toast when folded.
func (m Model) selected() (model.Toast, bool) {
	if !m.snap.Unfolded {
		return m.snap.Prominent()
	}
	toasts := m.snap.Toasts()
	if m.cursor < 0 || m.cursor >= len(toasts) {
		return model.Toast{}, false
	}
	return toasts[m.cursor], true
}

// copyToClipboard copies text to the system clipboard.
func (m Model) copyToClipboard(text string) tea.Cmd {
	copyText := m.copyText
	return func() tea.Msg {
		if err := copyText(text); err != nil {
			return statusMsg{text: "Copy failed: " + err.Error(), isErr: true}
		}
		return statusMsg{text: "Copied to clipboard"}
	}
}

// Renderer runs the model in a bubbletea program and drives the stack's frames.
type Renderer struct {
	stack     *stack.Manager
	scheduler *Scheduler
	program   *tea.Program
	model     Model
}

// NewRenderer creates a renderer and installs its scheduler on the stack.
func NewRenderer(m *stack.Manager, cfg config.DisplayConfig, logger *slog.Logger, opts ...tea.ProgramOption) *Renderer {
	mdl := New(m, cfg, logger)
	r := &Renderer{
		stack:     m,
		scheduler: NewScheduler(),
		model:     mdl,
	}
	r.program = tea.NewProgram(mdl, opts...)
	m.SetScheduler(r.scheduler)
	return r
}

// Scheduler returns the frame scheduler bound to the program.
func (r *Renderer) Scheduler() *Scheduler {
	return r.scheduler
}

// Reconfigure applies new display settings to the running program.
func (r *Renderer) Reconfigure(cfg config.DisplayConfig) {
	go r.program.Send(displayConfigMsg(cfg))
}

// Run blocks until the user quits or ctx is done. Afterwards frames flush
// synchronously so the stack keeps working without a renderer.
func (r *Renderer) Run(ctx context.Context) error {
	r.scheduler.Attach(r.program)
	defer func() {
		r.scheduler.Detach()
		r.stack.Unsubscribe(r.model.updates)
	}()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			r.program.Quit()
		case <-done:
		}
	}()

	_, err := r.program.Run()
	return err
}
