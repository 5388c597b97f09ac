package cli

import (
	"github.com/soyeahso/agentchat/internal/config"
	"github.com/soyeahso/agentchat/internal/logging"
	"github.com/spf13/cobra"
)

var (
	cfgFile  string
	logLevel string

	// loaded at init time
	paths config.Paths
	log   *logging.Logger
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "agentchat",
		Short: "agentchat: terminal client for a streaming agent backend",
		Long:  "agentchat verifies a backend token, resolves an organization, workspace and project, and chats with the backend's agent over a websocket.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			paths, err = config.ResolvePaths()
			if err != nil {
				return err
			}
			if cfgFile != "" {
				paths.Config = cfgFile
			}
			log = logging.NewConsole("pretty", consoleLevel(""))
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ~/.agentchat/config.yaml)")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (trace, debug, info, warn, error, silent)")

	cmd.AddCommand(newVersionCmd())
	cmd.AddCommand(newChatCmd())
	cmd.AddCommand(newScopeCmd())
	cmd.AddCommand(newConfigCmd())
	cmd.AddCommand(newStatusCmd())

	return cmd
}

// consoleLevel picks the flag value over the configured one.
func consoleLevel(configured string) string {
	switch {
	case logLevel != "":
		return logLevel
	case configured != "":
		return configured
	default:
		return "info"
	}
}

// loadConfig reads the config file and swaps the bootstrap logger for one
// built from the logging section.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load(paths.Config)
	if err != nil {
		return cfg, err
	}
	log = logging.NewConsole(cfg.Logging.ConsoleStyle, consoleLevel(cfg.Logging.Level))
	return cfg, nil
}

// Execute runs the root command.
func Execute() error {
	return newRootCmd().Execute()
}
