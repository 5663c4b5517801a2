package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tpln/gateway/internal/purge"
	"github.com/tpln/gateway/internal/repository"
)

// ErrAborted is returned when the operator declines a destructive command.
var ErrAborted = errors.New("aborted")

type purgeFlags struct {
	keys   []string
	dryRun bool
	yes    bool
}

func (f *purgeFlags) register(cmd *cobra.Command, name string, defaults []string, usage string) {
	cmd.Flags().StringSliceVar(&f.keys, name, defaults, usage)
	cmd.Flags().BoolVar(&f.dryRun, "dry-run", false, "Count entries without removing them")
	cmd.Flags().BoolVarP(&f.yes, "yes", "y", false, "Skip the confirmation prompt")
}

func (a *app) newPurgeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "purge",
		Short: "Delete stale datasets",
	}
	cmd.AddCommand(a.newPurgeFirebaseCmd(), a.newPurgeLocalCmd(), a.newPurgeTradesCmd())
	return cmd
}

func (a *app) newPurgeFirebaseCmd() *cobra.Command {
	var flags purgeFlags
	cmd := &cobra.Command{
		Use:   "firebase",
		Short: "Delete nodes from the realtime database",
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.cfg.FirebaseDatabaseURL == "" {
				return errors.New("FIREBASE_DATABASE_URL is not set")
			}
			store, err := purge.NewFirebaseStore(cmd.Context(), a.cfg.FirebaseDatabaseURL, a.cfg.FirebaseCredentialsFile)
			if err != nil {
				return err
			}
			return a.runPurge(cmd, store, flags)
		},
	}
	flags.register(cmd, "keys", purge.DefaultFirebaseKeys, "Nodes to delete")
	return cmd
}

func (a *app) newPurgeLocalCmd() *cobra.Command {
	var (
		flags purgeFlags
		file  string
	)
	cmd := &cobra.Command{
		Use:   "local",
		Short: "Delete keys from an exported localStorage JSON file",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runPurge(cmd, purge.NewLocalStore(file), flags)
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "Path to the exported JSON object")
	_ = cmd.MarkFlagRequired("file")
	flags.register(cmd, "keys", purge.DefaultLocalKeys, "Keys to delete")
	return cmd
}

func (a *app) newPurgeTradesCmd() *cobra.Command {
	var flags purgeFlags
	cmd := &cobra.Command{
		Use:   "trades",
		Short: "Delete every row of the trade tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.cfg.DatabaseURL == "" {
				return errors.New("DATABASE_URL is not set")
			}
			repo, err := repository.New(cmd.Context(), a.cfg.DatabaseURL, repository.WithMaxConns(1))
			if err != nil {
				return err
			}
			defer repo.Close()
			return a.runPurge(cmd, purge.NewTableStore(repo), flags)
		},
	}
	flags.register(cmd, "tables", purge.DefaultTables, "Tables to empty")
	return cmd
}

func (a *app) runPurge(cmd *cobra.Command, store purge.Store, flags purgeFlags) error {
	if !flags.dryRun && !flags.yes {
		ok, err := a.confirm(fmt.Sprintf("Delete %s from %s?", strings.Join(flags.keys, ", "), store.Name()))
		if err != nil {
			return err
		}
		if !ok {
			return ErrAborted
		}
	}

	report, err := purge.Purge(cmd.Context(), store, flags.keys, purge.Options{
		DryRun: flags.dryRun,
		Logger: a.logger,
	})
	if report != nil {
		printReport(cmd.OutOrStdout(), report)
	}
	return err
}
