// Package scope verifies a credential token and walks the backend's
// organization → workspace → project hierarchy.
package scope

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/soyeahso/agentchat/internal/backend"
	"github.com/soyeahso/agentchat/internal/domain"
	"github.com/soyeahso/agentchat/internal/logging"
)

// DefaultDebounce is the quiet period a token must stay unchanged before it
// is verified.
const DefaultDebounce = 800 * time.Millisecond

var (
	ErrNotVerified      = errors.New("token is not verified")
	ErrNotAvailable     = errors.New("scope level is not available yet")
	ErrUnknownCandidate = errors.New("value is not one of the candidates")
	ErrSuperseded       = errors.New("superseded by a newer input")
)

// Backend is the subset of the backend API the resolver consumes.
type Backend interface {
	VerifyToken(ctx context.Context, token string) (string, error)
	Organizations(ctx context.Context, token string) ([]string, error)
	Workspaces(ctx context.Context, token, organization string) ([]string, error)
	Projects(ctx context.Context, token, organization, workspace string) ([]string, error)
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithDebounce overrides the token quiet period.
func WithDebounce(d time.Duration) Option {
	return func(r *Resolver) {
		if d > 0 {
			r.debounce = d
		}
	}
}

// WithOnChange registers an observer called after every state change.
func WithOnChange(fn func(Snapshot)) Option {
	return func(r *Resolver) {
		r.onChange = fn
	}
}

// Resolver owns the verification and candidate state. All methods are safe
// for concurrent use; network calls run without holding the lock and their
// results are dropped if a newer input arrived meanwhile.
type Resolver struct {
	backend  Backend
	log      *logging.Logger
	debounce time.Duration
	onChange func(Snapshot)
	baseCtx  context.Context

	mu    sync.Mutex
	epoch uint64
	timer *time.Timer
	state Snapshot
}

// New creates a resolver. ctx bounds the debounced background verification.
func New(ctx context.Context, b Backend, log *logging.Logger, opts ...Option) *Resolver {
	r := &Resolver{
		backend:  b,
		log:      log.Sub("scope"),
		debounce: DefaultDebounce,
		baseCtx:  ctx,
		state:    emptySnapshot(""),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// SetToken records a new token value and (re)starts the debounce timer.
// Only the last value of a burst of calls is verified.
func (r *Resolver) SetToken(token string) {
	r.mu.Lock()
	r.epoch++
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
	r.state = emptySnapshot(token)
	if token != "" {
		epoch := r.epoch
		r.timer = time.AfterFunc(r.debounce, func() {
			if err := r.verify(r.baseCtx, epoch); err != nil && !errors.Is(err, ErrSuperseded) {
				r.log.Debug().Err(err).Msg("debounced verification failed")
			}
		})
	}
	snap := r.state.clone()
	r.mu.Unlock()

	r.notify(snap)
}

// VerifyNow verifies the current token immediately, cancelling any pending
// debounced verification, and fetches organizations on success.
func (r *Resolver) VerifyNow(ctx context.Context) error {
	r.mu.Lock()
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
	epoch := r.epoch
	r.mu.Unlock()
	return r.verify(ctx, epoch)
}

// Stop cancels a pending verification.
func (r *Resolver) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
}

func (r *Resolver) verify(ctx context.Context, epoch uint64) error {
	r.mu.Lock()
	if epoch != r.epoch {
		r.mu.Unlock()
		return ErrSuperseded
	}
	token := r.state.Token
	r.state.Verifying = true
	snap := r.state.clone()
	r.mu.Unlock()
	r.notify(snap)

	msg, err := r.backend.VerifyToken(ctx, token)

	r.mu.Lock()
	if epoch != r.epoch {
		r.mu.Unlock()
		return ErrSuperseded
	}
	r.state.Verifying = false
	if err != nil {
		r.state.Verified = false
		r.state.VerifyMessage = diagnostic(err)
		snap = r.state.clone()
		r.mu.Unlock()
		r.log.Warn().Err(err).Msg("token verification failed")
		r.notify(snap)
		return fmt.Errorf("verifying token: %w", err)
	}
	r.state.Verified = true
	r.state.VerifyMessage = msg
	snap = r.state.clone()
	r.mu.Unlock()

	r.log.Info().Msg("token verified")
	r.notify(snap)
	return r.fetch(ctx, epoch, domain.LevelOrganization)
}

// Select chooses value at level. A real value must be one of the level's
// candidates; domain.Unselected clears the level. Either way every deeper
// level is cleared, and a real organization or workspace triggers the fetch
// of the next level.
func (r *Resolver) Select(ctx context.Context, level domain.Level, value string) error {
	r.mu.Lock()
	if !r.state.Verified {
		r.mu.Unlock()
		return ErrNotVerified
	}
	set := r.state.Candidates(level)
	if !set.Fetched || len(set.Items) == 0 {
		r.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrNotAvailable, level)
	}
	if value != domain.Unselected && !set.Contains(value) {
		r.mu.Unlock()
		return fmt.Errorf("%w: %s %q", ErrUnknownCandidate, level, value)
	}
	if r.state.Selection(level) == value {
		r.mu.Unlock()
		return nil
	}

	r.epoch++
	epoch := r.epoch
	r.state.setSelection(level, value)
	for l := level + 1; l <= domain.LevelProject; l++ {
		r.state.setSelection(l, domain.Unselected)
		r.state.setCandidates(l, domain.CandidateSet{})
	}
	snap := r.state.clone()
	r.mu.Unlock()

	r.log.Debug().Str("level", level.String()).Str("value", printable(value)).Msg("scope selected")
	r.notify(snap)

	if value == domain.Unselected || level == domain.LevelProject {
		return nil
	}
	return r.fetch(ctx, epoch, level+1)
}

// SelectOrganization is Select at the organization level.
func (r *Resolver) SelectOrganization(ctx context.Context, org string) error {
	return r.Select(ctx, domain.LevelOrganization, org)
}

// SelectWorkspace is Select at the workspace level.
func (r *Resolver) SelectWorkspace(ctx context.Context, ws string) error {
	return r.Select(ctx, domain.LevelWorkspace, ws)
}

// SelectProject is Select at the project level.
func (r *Resolver) SelectProject(ctx context.Context, project string) error {
	return r.Select(ctx, domain.LevelProject, project)
}

// fetch loads the candidates of level. Failures are folded into an empty,
// warned result: the chain short-circuits and the user may proceed.
func (r *Resolver) fetch(ctx context.Context, epoch uint64, level domain.Level) error {
	r.mu.Lock()
	if epoch != r.epoch {
		r.mu.Unlock()
		return ErrSuperseded
	}
	token := r.state.Token
	org, ws := r.state.Organization, r.state.Workspace
	r.mu.Unlock()

	var items []string
	var err error
	switch level {
	case domain.LevelOrganization:
		items, err = r.backend.Organizations(ctx, token)
	case domain.LevelWorkspace:
		items, err = r.backend.Workspaces(ctx, token, org)
	case domain.LevelProject:
		items, err = r.backend.Projects(ctx, token, org, ws)
	}
	if err != nil {
		r.log.Warn().Err(err).Str("level", level.String()).Msg("candidate fetch failed")
		items = nil
	}

	r.mu.Lock()
	if epoch != r.epoch {
		r.mu.Unlock()
		return ErrSuperseded
	}
	r.state.applyFetch(level, items)
	snap := r.state.clone()
	r.mu.Unlock()

	r.log.Debug().Str("level", level.String()).Int("count", len(items)).Msg("candidates fetched")
	r.notify(snap)
	return nil
}

// Snapshot returns a copy of the current state.
func (r *Resolver) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state.clone()
}

// Credentials returns the resolved credentials and whether a chat session
// may start with them.
func (r *Resolver) Credentials() (domain.Credentials, bool) {
	snap := r.Snapshot()
	return snap.Credentials(), snap.Ready()
}

// OnChange replaces the state observer.
func (r *Resolver) OnChange(fn func(Snapshot)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onChange = fn
}

func (r *Resolver) notify(s Snapshot) {
	r.mu.Lock()
	fn := r.onChange
	r.mu.Unlock()
	if fn != nil {
		fn(s)
	}
}

func diagnostic(err error) string {
	var apiErr *backend.APIError
	if errors.As(err, &apiErr) {
		if apiErr.Detail != "" {
			return apiErr.Detail
		}
		return fmt.Sprintf("verification rejected (HTTP %d)", apiErr.Status)
	}
	return "could not reach the backend: " + err.Error()
}

func printable(v string) string {
	if v == domain.Unselected {
		return "<unselected>"
	}
	return v
}
