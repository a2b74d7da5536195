package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/Tomlord1122/todo-list/internal/config"
	"github.com/Tomlord1122/todo-list/internal/logging"
)

type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"build_time"`
}

type globalOptions struct {
	configPath string
	envFile    string
}

// NewRootCommand builds the todo CLI. Running it without a subcommand
// serves the API, same as "todo serve".
func NewRootCommand(out io.Writer, build BuildInfo) *cobra.Command {
	opts := &globalOptions{}

	cmd := &cobra.Command{
		Use:           "todo",
		Short:         "Todo list service",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, opts)
		},
	}
	cmd.SetOut(out)
	cmd.SetErr(out)

	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "Path to a TOML config file (default $"+config.EnvConfigPath+")")
	cmd.PersistentFlags().StringVar(&opts.envFile, "env-file", "", "Extra .env file to load before reading the environment")

	cmd.AddCommand(newServeCommand(opts))
	cmd.AddCommand(newMigrateCommand(opts))
	cmd.AddCommand(newVersionCommand(out, build))
	return cmd
}

func newVersionCommand(out io.Writer, build BuildInfo) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print build version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(build)
			}

			_, err := fmt.Fprintf(out, "version=%s commit=%s build_time=%s\n", build.Version, build.Commit, build.BuildTime)
			return err
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print version as JSON")
	return cmd
}

// setup loads configuration and installs the process logger. The returned
// closer flushes the log file, if any.
func setup(opts *globalOptions) (config.Config, *slog.Logger, io.Closer, error) {
	if opts.envFile != "" {
		if err := godotenv.Load(opts.envFile); err != nil {
			return config.Config{}, nil, nil, fmt.Errorf("load env file %q: %w", opts.envFile, err)
		}
	}

	cfg, err := config.Load(config.LoadOptions{ConfigPath: opts.configPath})
	if err != nil {
		return config.Config{}, nil, nil, err
	}

	logger, closer, err := logging.New(cfg.Logging)
	if err != nil {
		return config.Config{}, nil, nil, fmt.Errorf("init logging: %w", err)
	}
	slog.SetDefault(logger)
	return cfg, logger, closer, nil
}
