// Package notice holds the transient messages shown to the user when
// something outside the conversation goes wrong.
package notice

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/soyeahso/agentchat/internal/logging"
)

// Kind classifies a notice by where the failure came from.
type Kind string

const (
	KindConfig       Kind = "config"
	KindConnectivity Kind = "connectivity"
	KindProtocol     Kind = "protocol"
	KindBackend      Kind = "backend"
	KindCapability   Kind = "capability"
)

// Auto-dismiss bounds.
const (
	DefaultDismiss = 4 * time.Second
	MinDismiss     = 3 * time.Second
	MaxDismiss     = 5 * time.Second
)

// ClampDismiss maps d into [MinDismiss, MaxDismiss]; zero means the default.
func ClampDismiss(d time.Duration) time.Duration {
	switch {
	case d == 0:
		return DefaultDismiss
	case d < MinDismiss:
		return MinDismiss
	case d > MaxDismiss:
		return MaxDismiss
	default:
		return d
	}
}

// Notice is one user-visible message.
type Notice struct {
	ID       string
	Kind     Kind
	Message  string
	Sticky   bool
	PostedAt time.Time
}

// Board keeps the active notices. Config notices are sticky and shown once
// per distinct message; everything else dismisses itself.
type Board struct {
	log     *logging.Logger
	dismiss time.Duration

	mu       sync.Mutex
	notices  []Notice
	timers   map[string]*time.Timer
	shown    map[string]bool
	onChange func([]Notice)
}

// NewBoard creates an empty board.
func NewBoard(dismiss time.Duration, log *logging.Logger) *Board {
	return &Board{
		log:     log.Sub("notice"),
		dismiss: ClampDismiss(dismiss),
		timers:  make(map[string]*time.Timer),
		shown:   make(map[string]bool),
	}
}

// OnChange registers an observer called with the active notices after every
// change. It runs outside the board lock.
func (b *Board) OnChange(fn func([]Notice)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onChange = fn
}

// Post adds a notice. A repeated config message is ignored and reported
// with ok=false.
func (b *Board) Post(kind Kind, msg string) (n Notice, ok bool) {
	b.mu.Lock()
	if kind == KindConfig {
		if b.shown[msg] {
			b.mu.Unlock()
			return Notice{}, false
		}
		b.shown[msg] = true
	}
	n = Notice{
		ID:       uuid.New().String(),
		Kind:     kind,
		Message:  msg,
		Sticky:   kind == KindConfig,
		PostedAt: time.Now(),
	}
	b.notices = append(b.notices, n)
	if !n.Sticky {
		id := n.ID
		b.timers[id] = time.AfterFunc(b.dismiss, func() { b.Dismiss(id) })
	}
	active, fn := b.activeLocked(), b.onChange
	b.mu.Unlock()

	b.log.Debug().Str("kind", string(kind)).Str("message", msg).Msg("notice posted")
	if fn != nil {
		fn(active)
	}
	return n, true
}

// Dismiss removes a notice. It reports whether the notice was active.
func (b *Board) Dismiss(id string) bool {
	b.mu.Lock()
	idx := -1
	for i, n := range b.notices {
		if n.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		b.mu.Unlock()
		return false
	}
	b.notices = append(b.notices[:idx], b.notices[idx+1:]...)
	if t, ok := b.timers[id]; ok {
		t.Stop()
		delete(b.timers, id)
	}
	active, fn := b.activeLocked(), b.onChange
	b.mu.Unlock()

	if fn != nil {
		fn(active)
	}
	return true
}

// Active returns the current notices, oldest first.
func (b *Board) Active() []Notice {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.activeLocked()
}

// Clear drops every transient notice. Sticky config notices remain.
func (b *Board) Clear() {
	b.mu.Lock()
	kept := b.notices[:0]
	for _, n := range b.notices {
		if n.Sticky {
			kept = append(kept, n)
		}
	}
	b.notices = kept
	for id, t := range b.timers {
		t.Stop()
		delete(b.timers, id)
	}
	active, fn := b.activeLocked(), b.onChange
	b.mu.Unlock()

	if fn != nil {
		fn(active)
	}
}

func (b *Board) activeLocked() []Notice {
	return append([]Notice(nil), b.notices...)
}
