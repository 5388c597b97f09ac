// Package render turns conversation state into terminal output.
package render

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/soyeahso/agentchat/internal/domain"
	"github.com/soyeahso/agentchat/internal/notice"
)

// Options configures a Renderer.
type Options struct {
	Markdown bool
	WordWrap int
	Color    bool
}

// Renderer formats messages, footers and notices.
type Renderer struct {
	Styles Styles

	markdown *glamour.TermRenderer
}

// New creates a renderer. When markdown rendering cannot be set up the
// renderer falls back to plain text.
func New(opts Options) *Renderer {
	r := &Renderer{Styles: PlainStyles()}
	if opts.Color {
		r.Styles = DefaultStyles()
	}
	if !opts.Markdown {
		return r
	}
	wrap := opts.WordWrap
	if wrap <= 0 {
		wrap = 100
	}
	style := glamour.WithStandardStyle("notty")
	if opts.Color {
		style = glamour.WithAutoStyle()
	}
	md, err := glamour.NewTermRenderer(style, glamour.WithWordWrap(wrap))
	if err == nil {
		r.markdown = md
	}
	return r
}

// Markdown renders text as terminal markdown, or returns it unchanged when
// markdown is off or fails.
func (r *Renderer) Markdown(text string) string {
	if r.markdown == nil || strings.TrimSpace(text) == "" {
		return text
	}
	out, err := r.markdown.Render(text)
	if err != nil {
		return text
	}
	return strings.Trim(out, "\n")
}

// UserLabel is the prefix printed before user input in the transcript.
func (r *Renderer) UserLabel() string {
	return r.Styles.User.Render("you ›")
}

// AssistantLabel is the prefix printed before an answer.
func (r *Renderer) AssistantLabel() string {
	return r.Styles.Assistant.Render("agent ›")
}

// Thinking is the reasoning indicator line.
func (r *Renderer) Thinking() string {
	return r.Styles.Reasoning.Render("thinking…")
}

// Reasoning formats a reasoning fragment.
func (r *Renderer) Reasoning(text string) string {
	return r.Styles.Reasoning.Render(text)
}

// Message formats one finalized message for the transcript.
func (r *Renderer) Message(m domain.Message) string {
	var sb strings.Builder
	switch {
	case m.Role == domain.RoleUser:
		sb.WriteString(r.UserLabel())
		sb.WriteString(" ")
		sb.WriteString(m.Content)
	case m.IsError:
		sb.WriteString(r.AssistantLabel())
		sb.WriteString(" ")
		sb.WriteString(r.Styles.Error.Render(m.Content))
	default:
		sb.WriteString(r.AssistantLabel())
		sb.WriteString("\n")
		if m.Reasoning != "" {
			sb.WriteString(r.Reasoning(m.Reasoning))
			sb.WriteString("\n")
		}
		sb.WriteString(r.Markdown(m.Content))
		if footer := r.Footer(m); footer != "" {
			sb.WriteString("\n")
			sb.WriteString(footer)
		}
	}
	return sb.String()
}

// Footer summarizes execution metadata and tool use, or returns "".
func (r *Renderer) Footer(m domain.Message) string {
	var parts []string
	if md := m.Metadata; md != nil {
		if md.ExecutionTimeSeconds != nil {
			parts = append(parts, fmt.Sprintf("%.1fs", *md.ExecutionTimeSeconds))
		}
		if md.TotalTokens != nil {
			tokens := fmt.Sprintf("%d tokens", *md.TotalTokens)
			if md.InputTokens != nil && md.OutputTokens != nil {
				tokens += fmt.Sprintf(" (%d in / %d out)", *md.InputTokens, *md.OutputTokens)
			}
			parts = append(parts, tokens)
		}
	}
	if tr := m.ToolResponse; tr != nil && tr.TotalExecutions > 0 {
		parts = append(parts, fmt.Sprintf("%d tool calls: %s", tr.TotalExecutions, strings.Join(toolNames(tr), ", ")))
	}
	if len(parts) == 0 {
		return ""
	}
	return r.Styles.Footer.Render(strings.Join(parts, " · "))
}

func toolNames(tr *domain.ToolResponseSummary) []string {
	seen := make(map[string]bool)
	var names []string
	for _, ex := range tr.ToolExecutions {
		name := ex.ToolCall.Name
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Notice formats a notice line.
func (r *Renderer) Notice(n notice.Notice) string {
	label := fmt.Sprintf("[%s]", n.Kind)
	if n.Kind == notice.KindConfig {
		return r.Styles.Error.Render(label + " " + n.Message)
	}
	return r.Styles.Notice.Render(label) + " " + n.Message
}

// Transcript formats a whole conversation.
func (r *Renderer) Transcript(msgs []domain.Message) string {
	if len(msgs) == 0 {
		return r.Styles.Footer.Render("(no messages yet)")
	}
	out := make([]string, len(msgs))
	for i, m := range msgs {
		out[i] = r.Message(m)
	}
	return strings.Join(out, "\n\n")
}
