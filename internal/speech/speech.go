// Package speech reads finalized answers aloud through a system synthesizer
// when one is installed.
package speech

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"sync"

	"github.com/soyeahso/agentchat/internal/logging"
)

// ErrUnavailable is returned when no synthesizer was found.
var ErrUnavailable = errors.New("speech output is not available")

// Candidates are tried in order when no command is configured.
var Candidates = []string{"espeak-ng", "espeak", "say", "spd-say"}

// Speaker runs one synthesizer process at a time.
type Speaker struct {
	path string
	log  *logging.Logger

	mu  sync.Mutex
	cmd *exec.Cmd
}

type lookPathFunc func(string) (string, error)

// Detect returns a speaker for command, or for the first installed
// candidate when command is empty. The speaker reports Available()=false
// when nothing is found.
func Detect(command string, log *logging.Logger) *Speaker {
	return detect(command, exec.LookPath, log)
}

func detect(command string, lookPath lookPathFunc, log *logging.Logger) *Speaker {
	s := &Speaker{log: log.Sub("speech")}
	names := Candidates
	if command != "" {
		names = []string{command}
	}
	for _, name := range names {
		if p, err := lookPath(name); err == nil {
			s.path = p
			s.log.Debug().Str("command", p).Msg("speech synthesizer found")
			return s
		}
	}
	s.log.Debug().Strs("tried", names).Msg("no speech synthesizer")
	return s
}

// Available reports whether a synthesizer was found.
func (s *Speaker) Available() bool {
	return s.path != ""
}

// Command returns the synthesizer path, or "".
func (s *Speaker) Command() string {
	return s.path
}

// Speak stops any running utterance and starts speaking text. It returns
// once the process has started.
func (s *Speaker) Speak(ctx context.Context, text string) error {
	if !s.Available() {
		return ErrUnavailable
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()

	cmd := exec.CommandContext(ctx, s.path, text)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("starting %s: %w", s.path, err)
	}
	s.cmd = cmd
	go s.wait(cmd)
	return nil
}

func (s *Speaker) wait(cmd *exec.Cmd) {
	err := cmd.Wait()
	s.mu.Lock()
	if s.cmd == cmd {
		s.cmd = nil
	}
	s.mu.Unlock()
	if err != nil {
		s.log.Debug().Err(err).Msg("synthesizer exited")
	}
}

// Speaking reports whether an utterance is in progress.
func (s *Speaker) Speaking() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cmd != nil
}

// Stop interrupts the current utterance, if any.
func (s *Speaker) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
}

func (s *Speaker) stopLocked() {
	if s.cmd == nil || s.cmd.Process == nil {
		return
	}
	s.cmd.Process.Kill()
	s.cmd = nil
}
