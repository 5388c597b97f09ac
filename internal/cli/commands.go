package cli

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// slashCommand is one parsed REPL command line.
type slashCommand struct {
	Name string
	Args []string
}

// Arg returns the i-th argument or "".
func (c slashCommand) Arg(i int) string {
	if i < len(c.Args) {
		return c.Args[i]
	}
	return ""
}

// parseSlash splits a "/name arg..." line. Lines not starting with "/" are
// chat input.
func parseSlash(line string) (slashCommand, bool) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "/") || len(line) == 1 {
		return slashCommand{}, false
	}
	fields := strings.Fields(line[1:])
	return slashCommand{Name: strings.ToLower(fields[0]), Args: fields[1:]}, true
}

var helpText = []struct{ cmd, desc string }{
	{"/retry [id]", "resend the query of the last failed answer"},
	{"/reset", "start a new conversation on a fresh connection"},
	{"/exit", "leave an optional review, then start over"},
	{"/like, /dislike", "rate the latest answer"},
	{"/history", "show the conversation so far"},
	{"/notices", "list active notices"},
	{"/speak on|off", "read answers aloud"},
	{"/help", "show this help"},
	{"/quit", "close agentchat"},
}

func formatHelp() string {
	var sb strings.Builder
	for _, h := range helpText {
		fmt.Fprintf(&sb, "  %-16s %s\n", h.cmd, h.desc)
	}
	return sb.String()
}

var errNoChoice = errors.New("no choice given")

// resolveChoice maps user input to one of items: a 1-based index or an
// exact (case-insensitive) name.
func resolveChoice(items []string, input string) (string, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return "", errNoChoice
	}
	if n, err := strconv.Atoi(input); err == nil {
		if n < 1 || n > len(items) {
			return "", fmt.Errorf("choose a number between 1 and %d", len(items))
		}
		return items[n-1], nil
	}
	for _, it := range items {
		if strings.EqualFold(it, input) {
			return it, nil
		}
	}
	return "", fmt.Errorf("%q is not one of the choices", input)
}

// parseVerdict reads a yes/no answer. Empty input skips.
func parseVerdict(input string) (like *bool, err error) {
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "":
		return nil, nil
	case "y", "yes", "like", "+":
		v := true
		return &v, nil
	case "n", "no", "dislike", "-":
		v := false
		return &v, nil
	default:
		return nil, fmt.Errorf("answer y or n, or press enter to skip")
	}
}

// parseToggle reads on/off.
func parseToggle(arg string) (bool, error) {
	switch strings.ToLower(arg) {
	case "on", "true", "yes":
		return true, nil
	case "off", "false", "no":
		return false, nil
	default:
		return false, fmt.Errorf("expected on or off, got %q", arg)
	}
}
