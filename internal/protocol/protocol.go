// Package protocol decodes the agent backend's tagged text stream.
//
// Every inbound websocket message is one frame. A frame either starts with one
// of the fixed tags below or is literal assistant output. Decoding performs no
// I/O and knows nothing about the transport.
package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/soyeahso/agentchat/internal/domain"
)

// Stream tags, matched as literal byte prefixes in this order.
const (
	TagDone          = "[DONE]"
	TagError         = "[ERROR]"
	TagMetadata      = "[METADATA]"
	TagScratchpad    = "[SCRATCHPAD]"
	TagToolResponse  = "[TOOLRESPONSE]"
	TagSessionID     = "[SESSION_ID]"
	TagReasoning     = "[REASONING]"
	TagReasoningDone = "[REASONING_DONE]"
)

// ErrMalformedPayload is wrapped by Decode when a JSON-carrying frame does not parse.
var ErrMalformedPayload = errors.New("malformed payload")

// Kind discriminates decoded events.
type Kind int

const (
	KindContent Kind = iota
	KindComplete
	KindError
	KindMetadata
	KindScratchpad
	KindToolResponse
	KindSessionID
	KindReasoning
	KindReasoningDone
)

func (k Kind) String() string {
	switch k {
	case KindContent:
		return "content"
	case KindComplete:
		return "complete"
	case KindError:
		return "error"
	case KindMetadata:
		return "metadata"
	case KindScratchpad:
		return "scratchpad"
	case KindToolResponse:
		return "tool_response"
	case KindSessionID:
		return "session_id"
	case KindReasoning:
		return "reasoning"
	case KindReasoningDone:
		return "reasoning_done"
	default:
		return "unknown"
	}
}

// Event is one decoded frame. Text carries content, reasoning fragments,
// error text and session ids; the pointer fields carry parsed JSON payloads.
type Event struct {
	Kind         Kind
	Text         string
	Metadata     *domain.ExecutionMetadata
	Scratchpad   map[string]any
	ToolResponse *domain.ToolResponseSummary
}

// Decode classifies a single frame. On a JSON parse failure it returns the
// event kind that was attempted, with a nil payload, and an error wrapping
// ErrMalformedPayload.
func Decode(frame string) (Event, error) {
	if frame == TagDone {
		return Event{Kind: KindComplete}, nil
	}
	if rest, ok := strings.CutPrefix(frame, TagError); ok {
		return Event{Kind: KindError, Text: rest}, nil
	}
	if rest, ok := strings.CutPrefix(frame, TagMetadata); ok {
		var md domain.ExecutionMetadata
		if err := json.Unmarshal([]byte(rest), &md); err != nil {
			return Event{Kind: KindMetadata}, fmt.Errorf("%w: metadata: %v", ErrMalformedPayload, err)
		}
		return Event{Kind: KindMetadata, Metadata: &md}, nil
	}
	if rest, ok := strings.CutPrefix(frame, TagScratchpad); ok {
		var sp map[string]any
		if err := json.Unmarshal([]byte(rest), &sp); err != nil {
			return Event{Kind: KindScratchpad}, fmt.Errorf("%w: scratchpad: %v", ErrMalformedPayload, err)
		}
		return Event{Kind: KindScratchpad, Scratchpad: sp}, nil
	}
	if rest, ok := strings.CutPrefix(frame, TagToolResponse); ok {
		var tr domain.ToolResponseSummary
		if err := json.Unmarshal([]byte(rest), &tr); err != nil {
			return Event{Kind: KindToolResponse}, fmt.Errorf("%w: tool response: %v", ErrMalformedPayload, err)
		}
		return Event{Kind: KindToolResponse, ToolResponse: &tr}, nil
	}
	if rest, ok := strings.CutPrefix(frame, TagSessionID); ok {
		return Event{Kind: KindSessionID, Text: rest}, nil
	}
	if rest, ok := strings.CutPrefix(frame, TagReasoning); ok {
		return Event{Kind: KindReasoning, Text: rest}, nil
	}
	if frame == TagReasoningDone {
		return Event{Kind: KindReasoningDone}, nil
	}
	return Event{Kind: KindContent, Text: frame}, nil
}

// Terminal reports whether the event ends a turn.
func (e Event) Terminal() bool {
	return e.Kind == KindComplete || e.Kind == KindError
}
