package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/charmbracelet/lipgloss"
	"github.com/soyeahso/agentchat/internal/backend"
	"github.com/soyeahso/agentchat/internal/chat"
	"github.com/soyeahso/agentchat/internal/config"
	"github.com/soyeahso/agentchat/internal/conn"
	"github.com/soyeahso/agentchat/internal/domain"
	"github.com/soyeahso/agentchat/internal/hooks"
	"github.com/soyeahso/agentchat/internal/logging"
	"github.com/soyeahso/agentchat/internal/notice"
	"github.com/soyeahso/agentchat/internal/render"
	"github.com/soyeahso/agentchat/internal/scope"
	"github.com/soyeahso/agentchat/internal/session"
	"github.com/soyeahso/agentchat/internal/speech"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func newChatCmd() *cobra.Command {
	var noMarkdown bool

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive chat with the agent backend",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if noMarkdown {
				off := false
				cfg.Render.Markdown = &off
			}
			return runChat(cmd.Context(), cmd.OutOrStdout(), cfg)
		},
	}

	cmd.Flags().BoolVar(&noMarkdown, "no-markdown", false, "print answers without markdown rendering")
	return cmd
}

func runChat(ctx context.Context, out io.Writer, cfg config.Config) error {
	color := term.IsTerminal(int(os.Stdout.Fd()))
	rnd := render.New(render.Options{
		Markdown: cfg.Render.MarkdownEnabled(),
		WordWrap: cfg.Render.WordWrap,
		Color:    color,
	})

	flog := log
	logFile := cfg.Logging.File
	if logFile == "" {
		logFile = paths.LogFile
	}
	if fl, closer, err := logging.OpenFile(logFile, consoleLevel(cfg.Logging.Level)); err != nil {
		log.Warn().Err(err).Msg("file logging unavailable, logging to stderr")
	} else {
		defer closer.Close()
		flog = fl
	}

	notices := notice.NewBoard(cfg.NoticeDismiss(), flog)
	for _, issue := range config.Validate(&cfg) {
		notices.Post(notice.KindConfig, issue.String())
	}
	if err := cfg.RequireEndpoints(); err != nil {
		n, _ := notices.Post(notice.KindConfig, err.Error())
		fmt.Fprintln(out, rnd.Notice(n))
		fmt.Fprintf(out, "Set them with `agentchat config set backend.httpUrl <url>` (config file: %s).\n", paths.Config)
		return err
	}

	if err := paths.EnsureDirs(); err != nil {
		flog.Warn().Err(err).Msg("could not create agentchat directories")
	}
	p := newPrompter(paths.History)
	defer p.Close()

	client := backend.NewClient(cfg.Backend.HTTPURL, cfg.RequestTimeout(), flog)
	resolver := scope.New(ctx, client, flog, scope.WithDebounce(cfg.Debounce()))
	defer resolver.Stop()

	fmt.Fprintln(out, rnd.Styles.Title.Render("agentchat"))
	creds, err := resolveCredentials(ctx, out, cfg, resolver, p, rnd)
	if err != nil {
		if errors.Is(err, errAborted) {
			return nil
		}
		return err
	}

	app := newChatApp(out, cfg, rnd, notices, flog)
	mgr := conn.New(cfg.Backend.SocketURL, flog, conn.WithHandshakeTimeout(cfg.HandshakeTimeout()))
	app.ctrl = chat.New(chat.Options{
		Conn:        mgr,
		Feedback:    client,
		Credentials: creds,
		Hooks:       app.hooks,
		Notices:     notices,
		Log:         flog,
	})
	defer app.ctrl.Close()
	defer app.detach()
	app.prompt = p

	for _, n := range notices.Active() {
		app.printNotice(n)
	}
	if err := app.ctrl.Start(ctx); err != nil {
		fmt.Fprintln(out, rnd.Styles.Error.Render(err.Error()))
		fmt.Fprintln(out, "Use /reset to try again.")
	}
	fmt.Fprintln(out, rnd.Styles.Footer.Render("Type a message, or /help for commands."))
	return app.loop(ctx)
}

// resolveCredentials asks for a token until one verifies, then for each
// scope level.
func resolveCredentials(ctx context.Context, out io.Writer, cfg config.Config, r *scope.Resolver, p *prompter, rnd *render.Renderer) (domain.Credentials, error) {
	token := cfg.Backend.Token
	for {
		if token == "" {
			t, err := p.readSecret("Token: ")
			if err != nil {
				return domain.Credentials{}, err
			}
			token = t
			if token == "" {
				continue
			}
		}
		err := chooseScope(ctx, out, r, p, rnd, token)
		if err == nil {
			break
		}
		if errors.Is(err, errAborted) || ctx.Err() != nil {
			return domain.Credentials{}, errAborted
		}
		if r.Snapshot().Verified {
			return domain.Credentials{}, err
		}
		token = ""
	}

	creds, ready := r.Credentials()
	if !ready {
		return domain.Credentials{}, fmt.Errorf("scope is incomplete")
	}
	return creds, nil
}

const replHook = "repl"

// chatApp prints controller events and runs the REPL.
type chatApp struct {
	out     io.Writer
	cfg     config.Config
	rnd     *render.Renderer
	notices *notice.Board
	hooks   *hooks.Manager
	speaker *speech.Speaker
	log     *logging.Logger

	ctrl   *chat.Controller
	prompt *prompter

	content   *render.Flusher
	reasoning *render.Flusher
	speak     atomic.Bool
	thinking  atomic.Bool
	done      chan struct{}

	mu    sync.Mutex
	shown map[string]bool
}

func newChatApp(out io.Writer, cfg config.Config, rnd *render.Renderer, notices *notice.Board, log *logging.Logger) *chatApp {
	a := &chatApp{
		out:     out,
		cfg:     cfg,
		rnd:     rnd,
		notices: notices,
		hooks:   hooks.NewManager(log),
		speaker: speech.Detect(cfg.Speech.Command, log),
		log:     log.Sub("repl"),
		done:    make(chan struct{}, 1),
		shown:   make(map[string]bool),
	}
	a.content = render.NewFlusher(render.FlusherConfig{}, out, log)
	a.reasoning = render.NewFlusher(render.FlusherConfig{}, styledWriter{w: out, style: rnd.Styles.Reasoning}, log)

	if cfg.Speech.Enabled {
		if a.speaker.Available() {
			a.speak.Store(true)
		} else {
			notices.Post(notice.KindCapability, "Speech output is not available on this system.")
		}
	}
	notices.OnChange(a.noticesChanged)
	a.registerHooks()
	return a
}

// styledWriter renders every write with style.
type styledWriter struct {
	w     io.Writer
	style lipgloss.Style
}

func (s styledWriter) Write(p []byte) (int, error) {
	if _, err := io.WriteString(s.w, s.style.Render(string(p))); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (a *chatApp) registerHooks() {
	a.hooks.On(hooks.EventTurnStarted, replHook, func(ctx context.Context, p hooks.Payload) error {
		a.content.Reset()
		a.reasoning.Reset()
		a.thinking.Store(false)
		fmt.Fprintln(a.out, a.rnd.AssistantLabel())
		return nil
	})
	a.hooks.On(hooks.EventReasoningUpdated, replHook, func(ctx context.Context, p hooks.Payload) error {
		if !a.thinking.Swap(true) {
			fmt.Fprintln(a.out, a.rnd.Thinking())
		}
		a.reasoning.OnDelta(p.String("delta"))
		return nil
	})
	a.hooks.On(hooks.EventReasoningDone, replHook, func(ctx context.Context, p hooks.Payload) error {
		a.endReasoning()
		return nil
	})
	a.hooks.On(hooks.EventDraftUpdated, replHook, func(ctx context.Context, p hooks.Payload) error {
		a.endReasoning()
		a.content.OnDelta(p.String("delta"))
		return nil
	})
	a.hooks.On(hooks.EventTurnFinalized, replHook, func(ctx context.Context, p hooks.Payload) error {
		a.endReasoning()
		a.content.Flush()
		msg, _ := p.Data["message"].(domain.Message)
		if a.content.Written() {
			fmt.Fprintln(a.out)
		}
		if footer := a.rnd.Footer(msg); footer != "" {
			fmt.Fprintln(a.out, footer)
		}
		if a.speak.Load() {
			if err := a.speaker.Speak(context.WithoutCancel(ctx), msg.Content); err != nil {
				a.log.Warn().Err(err).Msg("speech failed")
			}
		}
		a.turnDone()
		return nil
	})
	a.hooks.On(hooks.EventTurnFailed, replHook, func(ctx context.Context, p hooks.Payload) error {
		a.endReasoning()
		a.content.Flush()
		if a.content.Written() {
			fmt.Fprintln(a.out)
		}
		msg, _ := p.Data["message"].(domain.Message)
		fmt.Fprintln(a.out, a.rnd.Styles.Error.Render(msg.Content))
		fmt.Fprintln(a.out, a.rnd.Styles.Footer.Render("Use /retry to send it again."))
		a.turnDone()
		return nil
	})
	a.hooks.On(hooks.EventSessionReset, replHook, func(ctx context.Context, p hooks.Payload) error {
		a.content.Reset()
		a.reasoning.Reset()
		fmt.Fprintln(a.out, a.rnd.Styles.Success.Render("New conversation started."))
		return nil
	})
	a.hooks.On(hooks.EventFeedbackRecorded, replHook, func(ctx context.Context, p hooks.Payload) error {
		verdict := "disliked"
		if p.Bool("like") {
			verdict = "liked"
		}
		fmt.Fprintln(a.out, a.rnd.Styles.Success.Render("Answer "+verdict+"."))
		return nil
	})
}

// detach stops printing controller events so nothing is written after the
// REPL has returned.
func (a *chatApp) detach() {
	for _, e := range hooks.AllEvents {
		a.hooks.Off(e, replHook)
	}
	a.content.Reset()
	a.reasoning.Reset()
}

func (a *chatApp) endReasoning() {
	if a.thinking.Swap(false) {
		a.reasoning.Flush()
		if a.reasoning.Written() {
			fmt.Fprintln(a.out)
		}
		a.reasoning.Reset()
	}
}

func (a *chatApp) turnDone() {
	select {
	case a.done <- struct{}{}:
	default:
	}
}

// noticesChanged prints notices the user has not seen yet.
func (a *chatApp) noticesChanged(active []notice.Notice) {
	for _, n := range active {
		a.printNotice(n)
	}
}

func (a *chatApp) printNotice(n notice.Notice) {
	a.mu.Lock()
	seen := a.shown[n.ID]
	a.shown[n.ID] = true
	a.mu.Unlock()
	if !seen {
		fmt.Fprintln(a.out, a.rnd.Notice(n))
	}
}

// loop reads input until /quit or end of input.
func (a *chatApp) loop(ctx context.Context) error {
	for {
		input, err := a.prompt.read(a.rnd.UserLabel() + " ")
		if err != nil {
			if errors.Is(err, errAborted) {
				fmt.Fprintln(a.out)
				return nil
			}
			return err
		}
		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}

		if cmd, ok := parseSlash(input); ok {
			quit, err := a.handle(ctx, cmd)
			if err != nil {
				fmt.Fprintln(a.out, a.rnd.Styles.Error.Render(err.Error()))
			}
			if quit {
				return nil
			}
			continue
		}

		if err := a.ctrl.Submit(ctx, input); err != nil {
			if !errors.Is(err, chat.ErrNotConnected) {
				fmt.Fprintln(a.out, a.rnd.Styles.Error.Render(err.Error()))
			}
			continue
		}
		a.wait(ctx)
	}
}

// wait blocks until the turn in flight ends. An interrupt abandons it by
// resetting the session.
func (a *chatApp) wait(ctx context.Context) {
	sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	select {
	case <-a.done:
	case <-sigCtx.Done():
		fmt.Fprintln(a.out)
		fmt.Fprintln(a.out, a.rnd.Styles.Warning.Render("Interrupted."))
		if ctx.Err() == nil {
			a.ctrl.Reset(ctx)
		}
	}
	a.ctrl.Flush()
	a.drainDone()
}

func (a *chatApp) drainDone() {
	select {
	case <-a.done:
	default:
	}
}

// handle runs one slash command and reports whether the REPL should end.
func (a *chatApp) handle(ctx context.Context, cmd slashCommand) (bool, error) {
	switch cmd.Name {
	case "help", "?":
		fmt.Fprint(a.out, formatHelp())

	case "quit", "q":
		return true, nil

	case "retry":
		id := cmd.Arg(0)
		if id == "" {
			msg, ok := a.ctrl.LastRetryable()
			if !ok {
				return false, fmt.Errorf("nothing to retry")
			}
			id = msg.ID
		}
		if err := a.ctrl.Retry(ctx, id); err != nil {
			if errors.Is(err, chat.ErrNotConnected) {
				return false, nil
			}
			return false, err
		}
		a.wait(ctx)

	case "reset":
		if err := a.ctrl.Reset(ctx); err != nil {
			return false, err
		}
		a.ctrl.Flush()

	case "exit":
		review, err := a.askReview()
		if err != nil {
			return errors.Is(err, errAborted), nil
		}
		if err := a.ctrl.Exit(ctx, review); err != nil {
			return false, err
		}
		a.ctrl.Flush()

	case "like", "dislike":
		target, ok := a.ctrl.FeedbackTarget()
		if !ok {
			return false, fmt.Errorf("no answer to rate yet")
		}
		if err := a.ctrl.Feedback(ctx, target.ID, cmd.Name == "like"); err != nil {
			if errors.Is(err, session.ErrNotReviewable) {
				return false, fmt.Errorf("that answer cannot be rated")
			}
			return false, nil
		}

	case "history":
		fmt.Fprintln(a.out, a.rnd.Transcript(a.ctrl.Snapshot().Messages))

	case "notices":
		active := a.notices.Active()
		if len(active) == 0 {
			fmt.Fprintln(a.out, a.rnd.Styles.Footer.Render("(no notices)"))
		}
		for _, n := range active {
			fmt.Fprintln(a.out, a.rnd.Notice(n))
		}

	case "speak":
		on, err := parseToggle(cmd.Arg(0))
		if err != nil {
			return false, err
		}
		if on && !a.speaker.Available() {
			a.notices.Post(notice.KindCapability, "Speech output is not available on this system.")
			return false, nil
		}
		a.speak.Store(on)
		if !on {
			a.speaker.Stop()
		}

	default:
		return false, fmt.Errorf("unknown command /%s (try /help)", cmd.Name)
	}
	return false, nil
}

// askReview collects the optional end-of-session review.
func (a *chatApp) askReview() (chat.Review, error) {
	var review chat.Review
	if a.ctrl.SessionID() == "" {
		return review, nil
	}
	text, err := a.prompt.readPlain("Review (enter to skip): ")
	if err != nil {
		return review, err
	}
	review.Text = strings.TrimSpace(text)
	for {
		answer, err := a.prompt.readPlain("Did the session help? [y/n, enter to skip]: ")
		if err != nil {
			return review, err
		}
		like, err := parseVerdict(answer)
		if err != nil {
			fmt.Fprintln(a.out, a.rnd.Styles.Error.Render(err.Error()))
			continue
		}
		review.Like = like
		return review, nil
	}
}
