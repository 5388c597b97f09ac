// Package chat runs one conversation: it wires the socket, the stream decoder
// and the session reducer together and exposes the user-facing lifecycle
// actions.
package chat

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/soyeahso/agentchat/internal/conn"
	"github.com/soyeahso/agentchat/internal/domain"
	"github.com/soyeahso/agentchat/internal/hooks"
	"github.com/soyeahso/agentchat/internal/logging"
	"github.com/soyeahso/agentchat/internal/notice"
	"github.com/soyeahso/agentchat/internal/protocol"
	"github.com/soyeahso/agentchat/internal/session"
)

var (
	ErrNotConnected = errors.New("not connected to the agent backend")
	ErrNoSession    = errors.New("no session id to attach feedback to")
)

// Connection is the socket surface the controller drives.
type Connection interface {
	Connect(ctx context.Context) error
	Send(payload any) error
	Close() error
	SetHandler(fn conn.FrameHandler)
	ClearHandler()
	OnDrop(fn conn.DropHandler)
	State() conn.State
	Healthy() bool
	HandleID() string
}

// FeedbackClient submits likes and reviews.
type FeedbackClient interface {
	LikeAgent(ctx context.Context, sessionID string, like bool) error
	LikeSession(ctx context.Context, sessionID string, like bool) error
	PublishReview(ctx context.Context, sessionID, review string) error
}

// Review is the optional end-of-session feedback. Empty Text and nil Like
// mean nothing is submitted for that part.
type Review struct {
	Text string
	Like *bool
}

// Options configures a Controller. Every field is required.
type Options struct {
	Conn        Connection
	Feedback    FeedbackClient
	Credentials domain.Credentials
	Hooks       *hooks.Manager
	Notices     *notice.Board
	Log         *logging.Logger
}

// Controller serializes user actions and inbound frames under one lock so
// each is applied to completion before the next. Hook events are dispatched
// in that same order on a separate goroutine, so handlers may call back into
// the controller.
type Controller struct {
	conn     Connection
	feedback FeedbackClient
	creds    domain.Credentials
	hooks    *hooks.Manager
	notices  *notice.Board
	log      *logging.Logger

	events *eventQueue

	mu      sync.Mutex
	reducer *session.Reducer
}

// New creates a controller. Nothing is dialed until Start.
func New(opts Options) *Controller {
	log := opts.Log.Sub("chat")
	return &Controller{
		conn:     opts.Conn,
		feedback: opts.Feedback,
		creds:    opts.Credentials,
		hooks:    opts.Hooks,
		notices:  opts.Notices,
		log:      log,
		events:   newEventQueue(context.Background(), opts.Hooks),
		reducer:  session.NewReducer(opts.Log),
	}
}

// Credentials returns the immutable credentials the session runs under.
func (c *Controller) Credentials() domain.Credentials {
	return c.creds
}

// Start opens the first connection.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.conn.OnDrop(c.dropped)
	return c.connectLocked(ctx)
}

func (c *Controller) connectLocked(ctx context.Context) error {
	if err := c.conn.Connect(ctx); err != nil {
		c.notices.Post(notice.KindConnectivity, "Could not connect to the agent backend.")
		return err
	}
	return nil
}

// Submit sends text as a new turn. Nothing changes when the connection is
// not open.
func (c *Controller) Submit(ctx context.Context, text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.submitLocked(text)
}

// Retry resubmits the query of a failed answer over the current connection.
func (c *Controller) Retry(ctx context.Context, messageID string) error {
	c.mu.Lock()
	if c.conn.State() != conn.StateOpen {
		c.mu.Unlock()
		c.notices.Post(notice.KindConnectivity, "Not connected. Use /reset to reconnect.")
		return ErrNotConnected
	}
	failed, err := c.reducer.PrepareRetry(messageID)
	if err != nil {
		c.mu.Unlock()
		return err
	}
	c.log.Debug().Str("message", messageID).Msg("retrying")
	if err = c.submitLocked(failed.UserQuery); err != nil {
		if rerr := c.reducer.Reinstate(failed); rerr != nil {
			c.log.Warn().Err(rerr).Str("message", messageID).Msg("could not restore failed answer")
		}
	}
	c.mu.Unlock()
	return err
}

func (c *Controller) submitLocked(text string) error {
	if c.conn.State() != conn.StateOpen {
		c.notices.Post(notice.KindConnectivity, "Not connected. Use /reset to reconnect.")
		return ErrNotConnected
	}

	turn, userMsg, err := c.reducer.Begin(text)
	if err != nil {
		return err
	}
	c.conn.SetHandler(func(frame string) { c.deliver(turn, frame) })

	if err := c.conn.Send(protocol.NewRequest(text, c.creds)); err != nil {
		c.conn.ClearHandler()
		c.reducer.Abort(turn)
		c.notices.Post(notice.KindConnectivity, "Message could not be sent.")
		c.log.Warn().Err(err).Msg("send failed")
		return fmt.Errorf("submitting: %w", err)
	}

	c.events.push(emission{event: hooks.EventTurnStarted, data: map[string]any{
		"turn":    turn.ID,
		"query":   text,
		"message": userMsg,
	}})
	return nil
}

// deliver applies one inbound frame of turn. Frames for a turn that is no
// longer current are dropped.
func (c *Controller) deliver(turn *session.Turn, frame string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.reducer.Current() != turn {
		c.log.Trace().Str("turn", turn.ID).Msg("dropping frame for stale turn")
		return
	}

	ev, err := protocol.Decode(frame)
	if err != nil {
		c.log.Warn().Err(err).Str("kind", ev.Kind.String()).Msg("ignoring malformed frame")
		c.notices.Post(notice.KindProtocol, fmt.Sprintf("Ignored a malformed %s frame.", ev.Kind))
		return
	}

	msg, err := c.reducer.Apply(turn, ev)
	if err != nil {
		return
	}

	acc := turn.Accumulated()
	switch ev.Kind {
	case protocol.KindContent:
		if c.hooks.Count(hooks.EventDraftUpdated) == 0 {
			return
		}
		c.events.push(emission{event: hooks.EventDraftUpdated, data: map[string]any{
			"id":      turn.AssistantID,
			"delta":   ev.Text,
			"content": acc.Content,
		}})
	case protocol.KindReasoning:
		if c.hooks.Count(hooks.EventReasoningUpdated) == 0 {
			return
		}
		c.events.push(emission{event: hooks.EventReasoningUpdated, data: map[string]any{
			"id":        turn.AssistantID,
			"delta":     ev.Text,
			"reasoning": acc.Reasoning,
		}})
	case protocol.KindReasoningDone:
		c.events.push(emission{event: hooks.EventReasoningDone, data: map[string]any{"id": turn.AssistantID}})
	case protocol.KindComplete:
		c.conn.ClearHandler()
		c.events.push(emission{event: hooks.EventTurnFinalized, data: map[string]any{"message": *msg}})
	case protocol.KindError:
		c.conn.ClearHandler()
		c.events.push(emission{event: hooks.EventTurnFailed, data: map[string]any{"message": *msg}})
	}
}

// dropped runs on the socket's read goroutine when the backend goes away.
// An outstanding turn is failed so it can be retried after a reset. A drop
// reported for a handle that Reset already replaced is ignored.
func (c *Controller) dropped(handleID string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if current := c.conn.HandleID(); current != "" && current != handleID {
		c.log.Debug().Str("handle", handleID).Str("current", current).Msg("ignoring drop of replaced connection")
		return
	}
	c.log.Warn().Err(err).Str("handle", handleID).Msg("connection dropped")
	c.notices.Post(notice.KindConnectivity, "Connection to the agent backend was lost. Use /reset to reconnect.")
	c.events.push(emission{event: hooks.EventConnectionLost, data: map[string]any{"handle": handleID}})

	if turn := c.reducer.Current(); turn != nil {
		msg, aerr := c.reducer.Apply(turn, protocol.Event{Kind: protocol.KindError, Text: "connection lost"})
		if aerr == nil && msg != nil {
			c.events.push(emission{event: hooks.EventTurnFailed, data: map[string]any{"message": *msg}})
		}
	}
}

// Reset closes the socket, discards the conversation and transient notices,
// and reconnects.
func (c *Controller) Reset(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	old := c.conn.HandleID()
	c.resetLocked()
	err := c.connectLocked(ctx)
	handle := c.conn.HandleID()

	c.log.Info().Str("from", old).Str("to", handle).Msg("session reset")
	c.events.push(emission{event: hooks.EventSessionReset, data: map[string]any{"handle": handle}})
	return err
}

func (c *Controller) resetLocked() {
	c.conn.ClearHandler()
	c.conn.Close()
	c.reducer.Reset()
	c.notices.Clear()
}

// Exit closes the socket, submits the optional review and verdict against
// the last session id, and resets. Feedback failures are logged only.
func (c *Controller) Exit(ctx context.Context, review Review) error {
	c.mu.Lock()
	sessionID := c.reducer.LastSessionID()
	c.conn.ClearHandler()
	c.conn.Close()
	c.mu.Unlock()

	submitted := c.submitReview(ctx, sessionID, review)
	c.events.push(emission{event: hooks.EventSessionExit, data: map[string]any{
		"sessionId": sessionID,
		"submitted": submitted,
	}})
	return c.Reset(ctx)
}

func (c *Controller) submitReview(ctx context.Context, sessionID string, review Review) bool {
	if review.Text == "" && review.Like == nil {
		return false
	}
	if sessionID == "" {
		c.log.Info().Msg("no session id, skipping review")
		return false
	}

	submitted := false
	if review.Text != "" {
		if err := c.feedback.PublishReview(ctx, sessionID, review.Text); err != nil {
			c.log.Warn().Err(err).Str("sessionId", sessionID).Msg("review submission failed")
		} else {
			submitted = true
		}
	}
	if review.Like != nil {
		if err := c.feedback.LikeSession(ctx, sessionID, *review.Like); err != nil {
			c.log.Warn().Err(err).Str("sessionId", sessionID).Msg("session verdict failed")
		} else {
			submitted = true
		}
	}
	return submitted
}

// Feedback records a like or dislike on messageID, which must be the current
// feedback target.
func (c *Controller) Feedback(ctx context.Context, messageID string, like bool) error {
	c.mu.Lock()
	target, ok := c.reducer.FeedbackTarget()
	c.mu.Unlock()
	if !ok || target.ID != messageID {
		return session.ErrNotReviewable
	}

	if err := c.feedback.LikeAgent(ctx, target.SessionID, like); err != nil {
		c.notices.Post(notice.KindBackend, "Feedback could not be recorded.")
		return fmt.Errorf("recording feedback: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.reducer.RecordFeedback(messageID, like); err != nil {
		return err
	}

	c.events.push(emission{event: hooks.EventFeedbackRecorded, data: map[string]any{
		"id":        messageID,
		"sessionId": target.SessionID,
		"like":      like,
	}})
	return nil
}

// FeedbackTarget returns the message that may currently receive feedback.
func (c *Controller) FeedbackTarget() (domain.Message, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reducer.FeedbackTarget()
}

// LastRetryable returns the trailing failed answer, if any.
func (c *Controller) LastRetryable() (domain.Message, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reducer.LastRetryable()
}

// Snapshot returns a copy of the conversation state.
func (c *Controller) Snapshot() session.State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reducer.Snapshot()
}

// SessionID returns the session id an exit review would be filed under.
func (c *Controller) SessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reducer.LastSessionID()
}

// Healthy reports whether the socket is up.
func (c *Controller) Healthy() bool {
	return c.conn.Healthy()
}

// HandleID identifies the current socket.
func (c *Controller) HandleID() string {
	return c.conn.HandleID()
}

// Flush waits until every hook event queued so far has been handled.
func (c *Controller) Flush() {
	c.events.flush()
}

// Close shuts the socket down for good and drains pending hook events.
func (c *Controller) Close() error {
	c.mu.Lock()
	c.conn.ClearHandler()
	err := c.conn.Close()
	c.mu.Unlock()

	c.events.close()
	return err
}
