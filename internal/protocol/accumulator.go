package protocol

import "github.com/soyeahso/agentchat/internal/domain"

// Accumulator is the per-turn fold of decoded events. It is a value type:
// Apply returns a new accumulator and never mutates the receiver's payloads.
type Accumulator struct {
	Content      string
	Reasoning    string
	Metadata     *domain.ExecutionMetadata
	Scratchpad   map[string]any
	ToolResponse *domain.ToolResponseSummary
	SessionID    string
}

// Apply folds one event into the accumulator. Side-channel events carrying a
// nil payload (a failed decode) leave the previous value in place.
func (a Accumulator) Apply(ev Event) Accumulator {
	switch ev.Kind {
	case KindContent:
		a.Content += ev.Text
	case KindReasoning:
		a.Reasoning += ev.Text
	case KindMetadata:
		if ev.Metadata != nil {
			a.Metadata = ev.Metadata
		}
	case KindScratchpad:
		if ev.Scratchpad != nil {
			a.Scratchpad = ev.Scratchpad
		}
	case KindToolResponse:
		if ev.ToolResponse != nil {
			a.ToolResponse = ev.ToolResponse
		}
	case KindSessionID:
		a.SessionID = ev.Text
	}
	return a
}

// Step decodes frame and folds it into acc. On a decode error the returned
// accumulator equals acc.
func Step(acc Accumulator, frame string) (Event, Accumulator, error) {
	ev, err := Decode(frame)
	if err != nil {
		return ev, acc, err
	}
	return ev, acc.Apply(ev), nil
}

// Replay folds a whole frame sequence from an empty accumulator, skipping
// frames that fail to decode. It stops after the first terminal event.
func Replay(frames []string) Accumulator {
	var acc Accumulator
	for _, f := range frames {
		ev, next, err := Step(acc, f)
		if err != nil {
			continue
		}
		acc = next
		if ev.Terminal() {
			break
		}
	}
	return acc
}
