// Package cli implements the opsctl maintenance commands.
package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/AlecAivazis/survey/v2"
	"github.com/spf13/cobra"

	"github.com/tpln/gateway/internal/config"
)

// ConfirmFunc asks the operator a yes/no question.
type ConfirmFunc func(message string) (bool, error)

// app is the state shared by every command of one invocation.
type app struct {
	envFile string
	verbose bool

	out     io.Writer
	confirm ConfirmFunc
	cfg     *config.Config
	logger  *slog.Logger
}

// Option customizes the root command.
type Option func(*app)

// WithOutput redirects command output.
func WithOutput(w io.Writer) Option {
	return func(a *app) { a.out = w }
}

// WithConfirm replaces the interactive confirmation prompt.
func WithConfirm(fn ConfirmFunc) Option {
	return func(a *app) { a.confirm = fn }
}

// NewRootCmd builds the opsctl command tree.
func NewRootCmd(version string, opts ...Option) *cobra.Command {
	a := &app{out: os.Stdout, confirm: surveyConfirm}
	for _, opt := range opts {
		opt(a)
	}

	root := &cobra.Command{
		Use:   "opsctl",
		Short: "Maintenance tool for the TPLN gateway",
		Long: `opsctl purges stale trading data, rewrites the admin page asset references,
mints chat tokens for debugging and generates admin API keys.`,
		Version:           version,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}
	root.SetOut(a.out)

	root.PersistentFlags().StringVar(&a.envFile, "env-file", ".env", "Load environment variables from this file when it exists")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Enable debug logging")

	root.AddCommand(
		a.newPurgeCmd(),
		a.newAssetsCmd(),
		a.newTokenCmd(),
		a.newKeygenCmd(),
	)
	return root
}

// Execute runs opsctl with os.Args.
func Execute(version string) error {
	if err := NewRootCmd(version).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return err
	}
	return nil
}

func (a *app) setup(cmd *cobra.Command, args []string) error {
	if a.envFile != "" {
		if err := config.LoadDotenv(a.envFile); err != nil {
			return err
		}
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	a.cfg = cfg

	level := slog.LevelInfo
	if a.verbose {
		level = slog.LevelDebug
	}
	a.logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
	return nil
}

func surveyConfirm(message string) (bool, error) {
	ok := false
	err := survey.AskOne(&survey.Confirm{Message: message, Default: false}, &ok)
	return ok, err
}
