package session

import "github.com/soyeahso/agentchat/internal/protocol"

// Phase is the reducer's single current state.
//
//	Idle → AwaitingResponse → (Streaming ⇄ ReasoningActive) → Idle
//
// The return to Idle is finalization: on [DONE] or [ERROR] the turn becomes a
// Message in the history.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseAwaitingResponse
	PhaseStreaming
	PhaseReasoningActive
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseAwaitingResponse:
		return "awaiting_response"
	case PhaseStreaming:
		return "streaming"
	case PhaseReasoningActive:
		return "reasoning_active"
	default:
		return "unknown"
	}
}

// InFlight reports whether a turn is outstanding.
func (p Phase) InFlight() bool {
	return p != PhaseIdle
}

// transitions maps (phase, event kind) to the next phase for the kinds that
// move the machine. Kinds absent from a row keep the current phase.
var transitions = map[Phase]map[protocol.Kind]Phase{
	PhaseAwaitingResponse: {
		protocol.KindContent:       PhaseStreaming,
		protocol.KindReasoning:     PhaseReasoningActive,
		protocol.KindReasoningDone: PhaseStreaming,
		protocol.KindComplete:      PhaseIdle,
		protocol.KindError:         PhaseIdle,
	},
	PhaseStreaming: {
		protocol.KindReasoning: PhaseReasoningActive,
		protocol.KindComplete:  PhaseIdle,
		protocol.KindError:     PhaseIdle,
	},
	PhaseReasoningActive: {
		protocol.KindReasoningDone: PhaseStreaming,
		protocol.KindComplete:      PhaseIdle,
		protocol.KindError:         PhaseIdle,
	},
}

func next(p Phase, k protocol.Kind) Phase {
	if to, ok := transitions[p][k]; ok {
		return to
	}
	return p
}
