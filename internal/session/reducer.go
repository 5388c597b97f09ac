// Package session folds decoded stream events into conversation state.
//
// The Reducer exclusively owns the message list, the streaming draft and the
// live reasoning draft. It is not safe for concurrent use; the lifecycle
// controller serializes every call.
package session

import (
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/soyeahso/agentchat/internal/domain"
	"github.com/soyeahso/agentchat/internal/logging"
	"github.com/soyeahso/agentchat/internal/protocol"
)

var (
	ErrTurnInFlight  = errors.New("a turn is already in flight")
	ErrEmptyQuery    = errors.New("query is empty")
	ErrStaleTurn     = errors.New("turn is no longer current")
	ErrNotRetryable  = errors.New("message cannot be retried")
	ErrNotReviewable = errors.New("message cannot receive feedback")
)

// Turn is one user submission through finalization. It owns the accumulator
// for its frames and the id its assistant message will carry.
type Turn struct {
	ID          string
	Query       string
	AssistantID string

	acc protocol.Accumulator
}

// Accumulated returns what the turn has folded so far.
func (t *Turn) Accumulated() protocol.Accumulator {
	return t.acc
}

// Draft is the not-yet-finalized assistant response.
type Draft struct {
	ID               string `json:"id"`
	PartialContent   string `json:"partialContent"`
	PartialReasoning string `json:"partialReasoning"`
}

// State is a read-only copy of the reducer for renderers.
type State struct {
	Phase            Phase
	Messages         []domain.Message
	Draft            *Draft
	Reasoning        string
	ReasoningVisible bool
	SessionID        string
	Feedback         map[string]bool
}

// Loading reports whether a response is outstanding.
func (s State) Loading() bool { return s.Phase.InFlight() }

// Thinking reports whether the reasoning indicator is on.
func (s State) Thinking() bool { return s.Phase == PhaseReasoningActive }

// Reducer is the per-session conversation state machine.
type Reducer struct {
	log   *logging.Logger
	newID func() string

	phase            Phase
	messages         []domain.Message
	turn             *Turn
	draft            *Draft
	reasoning        string
	reasoningVisible bool
	sessionID        string
	lastSessionID    string
	feedback         map[string]bool
}

// NewReducer creates an idle reducer with an empty history.
func NewReducer(log *logging.Logger) *Reducer {
	return &Reducer{
		log:      log.Sub("session"),
		newID:    func() string { return uuid.New().String() },
		feedback: make(map[string]bool),
	}
}

// Phase returns the current phase.
func (r *Reducer) Phase() Phase { return r.phase }

// Current returns the outstanding turn, or nil when idle.
func (r *Reducer) Current() *Turn { return r.turn }

// Begin starts a turn: the user message is pushed immediately, drafts,
// session id and feedback state are cleared, and the phase moves to
// AwaitingResponse.
func (r *Reducer) Begin(query string) (*Turn, domain.Message, error) {
	if r.phase != PhaseIdle {
		return nil, domain.Message{}, ErrTurnInFlight
	}
	if strings.TrimSpace(query) == "" {
		return nil, domain.Message{}, ErrEmptyQuery
	}

	userMsg := domain.Message{
		ID:      r.newID(),
		Role:    domain.RoleUser,
		Content: query,
	}
	r.messages = append(r.messages, userMsg)

	r.turn = &Turn{
		ID:          r.newID(),
		Query:       query,
		AssistantID: r.newID(),
	}
	r.draft = nil
	r.reasoning = ""
	r.reasoningVisible = false
	r.sessionID = ""
	clear(r.feedback)
	r.phase = PhaseAwaitingResponse

	r.log.Debug().Str("turn", r.turn.ID).Msg("turn started")
	return r.turn, userMsg, nil
}

// Abort rolls back a turn whose request never reached the backend.
func (r *Reducer) Abort(turn *Turn) error {
	if turn == nil || turn != r.turn {
		return ErrStaleTurn
	}
	if n := len(r.messages); n > 0 && r.messages[n-1].Role == domain.RoleUser {
		r.messages = r.messages[:n-1]
	}
	r.endTurn()
	r.log.Debug().Str("turn", turn.ID).Msg("turn aborted")
	return nil
}

// Apply folds one event of turn into the state. It returns the finalized
// message when the event terminates the turn.
func (r *Reducer) Apply(turn *Turn, ev protocol.Event) (*domain.Message, error) {
	if turn == nil || turn != r.turn {
		return nil, ErrStaleTurn
	}

	turn.acc = turn.acc.Apply(ev)
	r.phase = next(r.phase, ev.Kind)

	switch ev.Kind {
	case protocol.KindContent:
		r.draft = &Draft{
			ID:               turn.AssistantID,
			PartialContent:   turn.acc.Content,
			PartialReasoning: turn.acc.Reasoning,
		}
	case protocol.KindReasoning:
		r.reasoningVisible = true
		r.reasoning = turn.acc.Reasoning
		if r.draft != nil {
			r.draft.PartialReasoning = turn.acc.Reasoning
		}
	case protocol.KindSessionID:
		r.sessionID = turn.acc.SessionID
		r.lastSessionID = turn.acc.SessionID
	case protocol.KindComplete:
		msg := r.finalize(turn)
		return &msg, nil
	case protocol.KindError:
		msg := r.fail(turn, ev.Text)
		return &msg, nil
	}
	return nil, nil
}

func (r *Reducer) finalize(turn *Turn) domain.Message {
	acc := turn.acc
	msg := domain.Message{
		ID:           turn.AssistantID,
		Role:         domain.RoleAssistant,
		Content:      acc.Content,
		SessionID:    acc.SessionID,
		Reasoning:    acc.Reasoning,
		UserQuery:    turn.Query,
		Metadata:     acc.Metadata,
		Scratchpad:   acc.Scratchpad,
		ToolResponse: acc.ToolResponse,
	}
	r.messages = append(r.messages, msg)
	r.endTurn()

	r.log.Debug().
		Str("turn", turn.ID).
		Str("sessionId", msg.SessionID).
		Int("contentLen", len(msg.Content)).
		Msg("turn finalized")
	return msg.Clone()
}

func (r *Reducer) fail(turn *Turn, text string) domain.Message {
	msg := domain.Message{
		ID:        turn.AssistantID,
		Role:      domain.RoleAssistant,
		Content:   domain.ErrorPrefix + text,
		UserQuery: turn.Query,
		IsError:   true,
	}
	r.messages = append(r.messages, msg)
	r.endTurn()
	r.sessionID = ""

	r.log.Debug().Str("turn", turn.ID).Str("error", text).Msg("turn failed")
	return msg
}

func (r *Reducer) endTurn() {
	r.turn = nil
	r.draft = nil
	r.reasoning = ""
	r.reasoningVisible = false
	r.phase = PhaseIdle
}

// PrepareRetry removes the failed assistant message id and returns it; its
// UserQuery is the text to resubmit. Only the last message of an idle
// session can be retried.
func (r *Reducer) PrepareRetry(id string) (domain.Message, error) {
	if r.phase != PhaseIdle {
		return domain.Message{}, ErrTurnInFlight
	}
	n := len(r.messages)
	if n == 0 {
		return domain.Message{}, ErrNotRetryable
	}
	last := r.messages[n-1]
	if last.ID != id || !last.IsError || last.UserQuery == "" {
		return domain.Message{}, ErrNotRetryable
	}
	r.messages = r.messages[:n-1]
	return last, nil
}

// Reinstate puts back an error message taken by PrepareRetry when the
// resubmission never reached the backend.
func (r *Reducer) Reinstate(msg domain.Message) error {
	if r.phase != PhaseIdle {
		return ErrTurnInFlight
	}
	if !msg.IsError {
		return ErrNotRetryable
	}
	r.messages = append(r.messages, msg.Clone())
	return nil
}

// LastRetryable returns the trailing error message, if any.
func (r *Reducer) LastRetryable() (domain.Message, bool) {
	n := len(r.messages)
	if n == 0 || r.phase != PhaseIdle {
		return domain.Message{}, false
	}
	last := r.messages[n-1]
	if !last.IsError || last.UserQuery == "" {
		return domain.Message{}, false
	}
	return last, true
}

// FeedbackTarget returns the single message eligible for like/dislike: the
// most recent assistant message, while nothing is streaming.
func (r *Reducer) FeedbackTarget() (domain.Message, bool) {
	if r.phase != PhaseIdle {
		return domain.Message{}, false
	}
	for i := len(r.messages) - 1; i >= 0; i-- {
		m := r.messages[i]
		if m.Role != domain.RoleAssistant {
			continue
		}
		if !m.Reviewable() {
			return domain.Message{}, false
		}
		return m.Clone(), true
	}
	return domain.Message{}, false
}

// RecordFeedback stores a verdict for the feedback target.
func (r *Reducer) RecordFeedback(id string, like bool) error {
	target, ok := r.FeedbackTarget()
	if !ok || target.ID != id {
		return ErrNotReviewable
	}
	r.feedback[id] = like
	return nil
}

// Feedback returns the recorded verdict for a message.
func (r *Reducer) Feedback(id string) (like, ok bool) {
	like, ok = r.feedback[id]
	return like, ok
}

// LastSessionID returns the most recent session id seen in this session,
// even after the turn that carried it has been finalized.
func (r *Reducer) LastSessionID() string {
	return r.lastSessionID
}

// Reset discards all conversation state.
func (r *Reducer) Reset() {
	r.messages = nil
	r.turn = nil
	r.draft = nil
	r.reasoning = ""
	r.reasoningVisible = false
	r.sessionID = ""
	r.lastSessionID = ""
	clear(r.feedback)
	r.phase = PhaseIdle
}

// Snapshot returns a deep copy of the observable state.
func (r *Reducer) Snapshot() State {
	s := State{
		Phase:            r.phase,
		Messages:         make([]domain.Message, len(r.messages)),
		Reasoning:        r.reasoning,
		ReasoningVisible: r.reasoningVisible,
		SessionID:        r.sessionID,
		Feedback:         make(map[string]bool, len(r.feedback)),
	}
	for i, m := range r.messages {
		s.Messages[i] = m.Clone()
	}
	if r.draft != nil {
		d := *r.draft
		s.Draft = &d
	}
	for k, v := range r.feedback {
		s.Feedback[k] = v
	}
	return s
}
