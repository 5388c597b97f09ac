package cli

import (
	"fmt"
	"os"

	"github.com/soyeahso/agentchat/internal/config"
	"github.com/soyeahso/agentchat/internal/speech"
	"github.com/soyeahso/agentchat/internal/version"
	"github.com/spf13/cobra"
)

func newStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show agentchat status and configuration summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "agentchat %s (commit %s)\n\n", version.Version, version.Commit)

			fmt.Fprintf(out, "Config:  %s\n", paths.Config)
			fmt.Fprintf(out, "Logs:    %s\n", paths.Logs)
			fmt.Fprintf(out, "History: %s\n", paths.History)
			fmt.Fprintln(out)

			if _, err := os.Stat(paths.Config); os.IsNotExist(err) {
				fmt.Fprintln(out, "Config:  not found (using defaults)")
			}
			cfg, err := loadConfig()
			if err != nil {
				fmt.Fprintf(out, "Config:  error loading: %v\n", err)
				return nil
			}

			fmt.Fprintf(out, "Backend: http=%s socket=%s\n",
				orUnset(cfg.Backend.HTTPURL), orUnset(cfg.Backend.SocketURL))
			token := "(prompted at startup)"
			if cfg.Backend.Token != "" {
				token = mask(cfg.Backend.Token)
			}
			fmt.Fprintf(out, "Token:   %s\n", token)
			fmt.Fprintf(out, "Timeouts: request=%s handshake=%s\n", cfg.RequestTimeout(), cfg.HandshakeTimeout())
			fmt.Fprintf(out, "Render:  markdown=%v wordWrap=%d\n", cfg.Render.MarkdownEnabled(), cfg.Render.WordWrap)

			spk := speech.Detect(cfg.Speech.Command, log)
			if spk.Available() {
				fmt.Fprintf(out, "Speech:  enabled=%v command=%s\n", cfg.Speech.Enabled, spk.Command())
			} else {
				fmt.Fprintf(out, "Speech:  enabled=%v (no synthesizer found)\n", cfg.Speech.Enabled)
			}

			if err := cfg.RequireEndpoints(); err != nil {
				fmt.Fprintf(out, "\n%v\n", err)
			}

			issues := config.Validate(&cfg)
			if len(issues) > 0 {
				fmt.Fprintf(out, "\nValidation issues (%d):\n", len(issues))
				for _, issue := range issues {
					fmt.Fprintf(out, "  - %s: %s\n", issue.Path, issue.Message)
				}
			}

			return nil
		},
	}

	return cmd
}

func orUnset(s string) string {
	if s == "" {
		return "(not set)"
	}
	return s
}
