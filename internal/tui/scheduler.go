package tui

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"
)

// frameMsg carries a stack flush into the program's update loop.
type frameMsg struct {
	flush func()
}

// Scheduler is a stack.Scheduler that runs frames inside a bubbletea program,
// so queued mutations are applied right before the next paint.
type Scheduler struct {
	mu       sync.Mutex
	program  *tea.Program
	pending  func()
	last     func()
	detached bool
}

// NewScheduler creates a scheduler. Frames requested before Attach are held.
func NewScheduler() *Scheduler {
	return &Scheduler{}
}

// Schedule posts flush to the attached program.
func (s *Scheduler) Schedule(flush func()) {
	s.mu.Lock()
	if s.detached {
		s.mu.Unlock()
		flush()
		return
	}
	p := s.program
	if p == nil {
		s.pending = flush
		s.mu.Unlock()
		return
	}
	s.last = flush
	s.mu.Unlock()

	// Schedule may be called from the update loop itself; Send would block it.
	go p.Send(frameMsg{flush: flush})
}

// Attach binds the scheduler to p and releases any held frame.
func (s *Scheduler) Attach(p *tea.Program) {
	s.mu.Lock()
	s.program = p
	pending := s.pending
	s.pending = nil
	s.last = pending
	s.mu.Unlock()

	if pending != nil {
		go p.Send(frameMsg{flush: pending})
	}
}

// Detach unbinds the program. Later frames flush synchronously, and the last
// posted frame is flushed in case the program exited before handling it.
func (s *Scheduler) Detach() {
	s.mu.Lock()
	s.detached = true
	s.program = nil
	flush := s.pending
	if flush == nil {
		flush = s.last
	}
	s.pending, s.last = nil, nil
	s.mu.Unlock()

	if flush != nil {
		flush()
	}
}
