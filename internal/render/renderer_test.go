package render

import (
	"testing"

	"github.com/soyeahso/agentchat/internal/domain"
	"github.com/soyeahso/agentchat/internal/notice"
	"github.com/stretchr/testify/assert"
)

func ptr[T any](v T) *T { return &v }

func plain() *Renderer {
	return New(Options{})
}

func TestMessageUser(t *testing.T) {
	r := plain()
	got := r.Message(domain.Message{Role: domain.RoleUser, Content: "hello"})
	assert.Equal(t, "you › hello", got)
}

func TestMessageError(t *testing.T) {
	r := plain()
	got := r.Message(domain.Message{Role: domain.RoleAssistant, Content: "Error: boom", IsError: true})
	assert.Equal(t, "agent › Error: boom", got)
}

func TestMessageAssistantWithReasoningAndFooter(t *testing.T) {
	r := plain()
	got := r.Message(domain.Message{
		Role:      domain.RoleAssistant,
		Content:   "The answer is 4.",
		Reasoning: "2+2",
		Metadata:  &domain.ExecutionMetadata{ExecutionTimeSeconds: ptr(1.5), TotalTokens: ptr(10)},
	})
	assert.Equal(t, "agent ›\n2+2\nThe answer is 4.\n1.5s · 10 tokens", got)
}

func TestFooter(t *testing.T) {
	r := plain()

	assert.Empty(t, r.Footer(domain.Message{}))

	m := domain.Message{
		Metadata: &domain.ExecutionMetadata{
			TotalTokens:  ptr(30),
			InputTokens:  ptr(20),
			OutputTokens: ptr(10),
		},
		ToolResponse: &domain.ToolResponseSummary{
			TotalExecutions: 3,
			ToolExecutions: []domain.ToolExecution{
				{ToolCall: domain.ToolCall{Name: "search"}},
				{ToolCall: domain.ToolCall{Name: "fetch"}},
				{ToolCall: domain.ToolCall{Name: "search"}},
			},
		},
	}
	assert.Equal(t, "30 tokens (20 in / 10 out) · 3 tool calls: fetch, search", r.Footer(m))
}

func TestNotice(t *testing.T) {
	r := plain()
	assert.Equal(t, "[connectivity] lost", r.Notice(notice.Notice{Kind: notice.KindConnectivity, Message: "lost"}))
	assert.Equal(t, "[config] missing url", r.Notice(notice.Notice{Kind: notice.KindConfig, Message: "missing url"}))
}

func TestTranscript(t *testing.T) {
	r := plain()
	assert.Equal(t, "(no messages yet)", r.Transcript(nil))

	got := r.Transcript([]domain.Message{
		{Role: domain.RoleUser, Content: "hi"},
		{Role: domain.RoleAssistant, Content: "hello"},
	})
	assert.Equal(t, "you › hi\n\nagent ›\nhello", got)
}

func TestMarkdownDisabledPassesThrough(t *testing.T) {
	r := plain()
	assert.Equal(t, "# Title", r.Markdown("# Title"))
}

func TestMarkdownRenders(t *testing.T) {
	r := New(Options{Markdown: true, WordWrap: 60})
	got := r.Markdown("**bold** and `code`")
	assert.Contains(t, got, "bold")
	assert.Contains(t, got, "code")
	assert.Equal(t, "", r.Markdown(""))
}
