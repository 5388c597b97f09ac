package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/soyeahso/agentchat/internal/backend"
	"github.com/soyeahso/agentchat/internal/domain"
	"github.com/soyeahso/agentchat/internal/render"
	"github.com/soyeahso/agentchat/internal/scope"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func newScopeCmd() *cobra.Command {
	var token string

	cmd := &cobra.Command{
		Use:   "scope",
		Short: "List the organizations, workspaces and projects a token can reach",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if err := cfg.RequireEndpoints(); err != nil {
				return err
			}
			if token == "" {
				token = cfg.Backend.Token
			}
			if token == "" {
				return fmt.Errorf("no token: pass --token or set backend.token")
			}

			client := backend.NewClient(cfg.Backend.HTTPURL, cfg.RequestTimeout(), log)
			rnd := render.New(render.Options{Color: term.IsTerminal(int(os.Stdout.Fd()))})
			return listScope(cmd.Context(), cmd.OutOrStdout(), client, rnd, token)
		},
	}

	cmd.Flags().StringVar(&token, "token", "", "backend token (default backend.token)")
	return cmd
}

// listScope verifies token and prints the whole hierarchy as a tree.
func listScope(ctx context.Context, w io.Writer, b scope.Backend, rnd *render.Renderer, token string) error {
	msg, err := b.VerifyToken(ctx, token)
	if err != nil {
		return fmt.Errorf("token rejected: %w", err)
	}
	fmt.Fprintln(w, rnd.Styles.Success.Render(msg))

	orgs, err := b.Organizations(ctx, token)
	if err != nil {
		return err
	}
	if len(orgs) == 0 {
		fmt.Fprintln(w, rnd.Styles.Warning.Render(emptyLevelWarning(domain.LevelOrganization)))
		return nil
	}
	for _, org := range orgs {
		fmt.Fprintln(w, rnd.Styles.Title.Render(org))
		ws, err := b.Workspaces(ctx, token, org)
		if err != nil {
			fmt.Fprintf(w, "  %s\n", rnd.Styles.Error.Render(err.Error()))
			continue
		}
		if len(ws) == 0 {
			fmt.Fprintf(w, "  %s\n", rnd.Styles.Warning.Render("(no workspaces)"))
			continue
		}
		for _, name := range ws {
			projects, err := b.Projects(ctx, token, org, name)
			switch {
			case err != nil:
				fmt.Fprintf(w, "  %s  %s\n", name, rnd.Styles.Error.Render(err.Error()))
			case len(projects) == 0:
				fmt.Fprintf(w, "  %s  %s\n", name, rnd.Styles.Warning.Render("(no projects)"))
			default:
				fmt.Fprintf(w, "  %s  %s\n", name, strings.Join(projects, ", "))
			}
		}
	}
	return nil
}

func emptyLevelWarning(level domain.Level) string {
	return fmt.Sprintf("No %ss are available for this token. Continuing without one.", level)
}

// chooseScope verifies token and walks the user through every level that
// has candidates. It returns once the resolver is ready.
func chooseScope(ctx context.Context, w io.Writer, r *scope.Resolver, p *prompter, rnd *render.Renderer, token string) error {
	r.SetToken(token)
	if err := r.VerifyNow(ctx); err != nil {
		fmt.Fprintln(w, rnd.Styles.Error.Render(r.Snapshot().VerifyMessage))
		return err
	}
	fmt.Fprintln(w, rnd.Styles.Success.Render(r.Snapshot().VerifyMessage))

	warned := make(map[domain.Level]bool)
	for {
		snap := r.Snapshot()
		for _, l := range domain.Levels {
			if snap.Candidates(l).Warning && !warned[l] {
				warned[l] = true
				fmt.Fprintln(w, rnd.Styles.Warning.Render(emptyLevelWarning(l)))
			}
		}
		level, ok := snap.Next()
		if !ok {
			if snap.Ready() {
				return nil
			}
			return fmt.Errorf("scope could not be resolved")
		}

		items := snap.Candidates(level).Items
		fmt.Fprintln(w, rnd.Styles.Title.Render("Choose a "+level.String()))
		for i, it := range items {
			fmt.Fprintf(w, "  %d) %s\n", i+1, it)
		}
		for {
			input, err := p.readPlain(fmt.Sprintf("%s> ", level))
			if err != nil {
				return err
			}
			choice, err := resolveChoice(items, input)
			if err != nil {
				fmt.Fprintln(w, rnd.Styles.Error.Render(err.Error()))
				continue
			}
			if err := r.Select(ctx, level, choice); err != nil {
				return err
			}
			break
		}
	}
}
