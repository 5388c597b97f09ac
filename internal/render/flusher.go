package render

import (
	"io"
	"strings"
	"sync"
	"time"

	"github.com/soyeahso/agentchat/internal/logging"
)

// FlusherConfig controls when buffered deltas reach the terminal.
type FlusherConfig struct {
	// MaxBufferBytes forces a flush when the buffer reaches this size.
	// Default: 256 bytes.
	MaxBufferBytes int

	// IdleTimeout flushes a partial line when no delta arrives within this
	// duration. Default: 120ms.
	IdleTimeout time.Duration
}

// Flusher accumulates streamed content deltas and writes them to w at line
// boundaries, on size, or after a short idle period. Text is written
// verbatim; nothing is trimmed or reflowed.
type Flusher struct {
	cfg FlusherConfig
	w   io.Writer
	log *logging.Logger

	mu      sync.Mutex
	buf     strings.Builder
	timer   *time.Timer
	written bool
}

// NewFlusher creates a flusher writing to w.
func NewFlusher(cfg FlusherConfig, w io.Writer, log *logging.Logger) *Flusher {
	if cfg.MaxBufferBytes <= 0 {
		cfg.MaxBufferBytes = 256
	}
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = 120 * time.Millisecond
	}
	return &Flusher{cfg: cfg, w: w, log: log}
}

// OnDelta appends a delta and writes every complete line.
func (f *Flusher) OnDelta(text string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.buf.WriteString(text)

	if f.timer != nil {
		f.timer.Stop()
	}
	f.timer = time.AfterFunc(f.cfg.IdleTimeout, func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.flushLocked()
	})

	content := f.buf.String()
	if len(content) >= f.cfg.MaxBufferBytes {
		f.flushLocked()
		return
	}
	if idx := strings.LastIndexByte(content, '\n'); idx >= 0 {
		f.flushAtLocked(idx + 1)
	}
}

// Flush writes whatever is buffered. Call when the stream ends.
func (f *Flusher) Flush() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.timer != nil {
		f.timer.Stop()
		f.timer = nil
	}
	f.flushLocked()
}

// Written reports whether anything has been written since the last Reset.
func (f *Flusher) Written() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.written
}

// Reset discards buffered text without writing it.
func (f *Flusher) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.timer != nil {
		f.timer.Stop()
		f.timer = nil
	}
	f.buf.Reset()
	f.written = false
}

func (f *Flusher) flushAtLocked(pos int) {
	content := f.buf.String()
	f.writeLocked(content[:pos])
	f.buf.Reset()
	f.buf.WriteString(content[pos:])
}

func (f *Flusher) flushLocked() {
	if f.buf.Len() == 0 {
		return
	}
	f.writeLocked(f.buf.String())
	f.buf.Reset()
}

func (f *Flusher) writeLocked(s string) {
	if s == "" {
		return
	}
	if _, err := io.WriteString(f.w, s); err != nil {
		f.log.Error().Err(err).Msg("failed to write stream chunk")
		return
	}
	f.written = true
}
