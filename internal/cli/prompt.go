package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/peterh/liner"
	"golang.org/x/term"
)

var errAborted = errors.New("input aborted")

// prompter provides line editing and input history for the REPL.
type prompter struct {
	line        *liner.State
	historyFile string
}

func newPrompter(historyFile string) *prompter {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	p := &prompter{line: line, historyFile: historyFile}
	p.loadHistory()
	return p
}

func (p *prompter) loadHistory() {
	if f, err := os.Open(p.historyFile); err == nil {
		p.line.ReadHistory(f)
		f.Close()
	}
}

// read prompts for one line. Ctrl+C and Ctrl+D both return errAborted.
func (p *prompter) read(prompt string) (string, error) {
	input, err := p.line.Prompt(prompt)
	if err != nil {
		if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
			return "", errAborted
		}
		return "", err
	}
	if strings.TrimSpace(input) != "" {
		p.line.AppendHistory(input)
	}
	return input, nil
}

// readPlain prompts for a line that is not added to history.
func (p *prompter) readPlain(prompt string) (string, error) {
	input, err := p.line.Prompt(prompt)
	if err != nil {
		if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
			return "", errAborted
		}
		return "", err
	}
	return input, nil
}

// readSecret prompts without echo.
func (p *prompter) readSecret(prompt string) (string, error) {
	if term.IsTerminal(int(os.Stdin.Fd())) {
		fmt.Print(prompt)
		b, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Println()
		if err != nil {
			return "", fmt.Errorf("reading token: %w", err)
		}
		return strings.TrimSpace(string(b)), nil
	}
	s, err := p.readPlain(prompt)
	return strings.TrimSpace(s), err
}

func (p *prompter) saveHistory() {
	f, err := os.OpenFile(p.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return
	}
	defer f.Close()
	p.line.WriteHistory(f)
}

// Close saves history and restores the terminal.
func (p *prompter) Close() {
	p.saveHistory()
	p.line.Close()
}
