// Package cli is the workshop-service command tree.
package cli

import (
	"context"

	"github.com/spf13/cobra"

	"autoflow/workshop-service/internal/app"
	"autoflow/workshop-service/internal/config"
	"autoflow/workshop-service/internal/logging"
	"autoflow/workshop-service/internal/store"
)

type rootOptions struct {
	configFile string
	logLevel   string
	logFormat  string
	cfg        config.Config
}

// NewRootCmd builds the command tree. Config is loaded once in the
// persistent pre-run so every subcommand sees the same settings.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "workshop-service",
		Short: "Vehicle service queue tracker for workshop branches",
		Long: `workshop-service tracks vehicles moving through a branch service queue.

Run "workshop-service serve" for the HTTP API, or use the jobs, stats and
statuses commands against the configured store directly.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			overrides := map[string]any{}
			if cmd.Flags().Changed("log-level") {
				overrides["log.level"] = opts.logLevel
			}
			if cmd.Flags().Changed("log-format") {
				overrides["log.format"] = opts.logFormat
			}
			cfg, err := config.Load(opts.configFile, overrides)
			if err != nil {
				return err
			}
			opts.cfg = cfg
			return logging.Setup(cfg.Log.Level, cfg.Log.Format, cmd.ErrOrStderr())
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.configFile, "config", "c", "", "Configuration file path")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	cmd.PersistentFlags().StringVar(&opts.logFormat, "log-format", "", "Log format (text or json)")

	cmd.AddCommand(serveCmd(opts))
	cmd.AddCommand(jobsCmd(opts))
	cmd.AddCommand(statsCmd(opts))
	cmd.AddCommand(statusesCmd(opts))
	cmd.AddCommand(hashPasswordCmd())

	return cmd
}

// Execute runs the root command with a background context.
func Execute() error {
	return NewRootCmd().ExecuteContext(context.Background())
}

func (o *rootOptions) openStore(ctx context.Context) (store.Store, error) {
	return app.OpenStore(ctx, o.cfg.Store, store.Options{Transitions: o.cfg.TransitionPolicy()})
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
