package cli

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"induction-portal/auth"
	"induction-portal/cms"
	"induction-portal/db"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Bring the stored document up to the current shape",
	Long: `Loads the content document, backfills missing top-level keys and
declared categories, converts legacy log lines and writes the result back.
A document that is already current is left untouched.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		store, backend, err := openStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer store.Close()

		data, err := backend.Read(ctx)
		switch {
		case errors.Is(err, db.ErrNotExist):
			logrus.Info("no document stored yet, writing the default skeleton")
		case err != nil:
			return err
		default:
			defaults, err := db.SeedDefaults(cfg.SeedFile)
			if err != nil {
				return err
			}
			_, changed, err := db.Migrate(data, defaults)
			if err != nil {
				return err
			}
			if !changed {
				fmt.Fprintln(cmd.OutOrStdout(), "document is up to date")
				return nil
			}
		}

		doc, err := store.Load(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "document migrated: %d categories, %d faq entries, %d users\n",
			doc.CategoriesList.Len(), len(doc.FAQ), len(doc.UserProfiles))
		return nil
	},
}

var importAuthor string

var importCmd = &cobra.Command{
	Use:   "import <dir>",
	Short: "Import every YAML guide in a directory",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		store, _, err := openStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer store.Close()

		svc := cms.NewService(store, cfg.MediaDir)
		results, err := svc.ImportDir(ctx, args[0], importAuthor)
		for _, r := range results {
			action := "updated"
			if r.Created {
				action = "created"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s (%d steps, %d questions)\n", action, r.Key, r.Steps, r.Quiz)
		}
		return err
	},
}

var hashPasswordCmd = &cobra.Command{
	Use:   "hash-password <password>",
	Short: "Print a bcrypt hash for the admins map",
	Args:  cobra.ExactArgs(1),
	// No config needed.
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
	RunE: func(cmd *cobra.Command, args []string) error {
		h, err := auth.HashPassword(args[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), h)
		return nil
	},
}

func init() {
	importCmd.Flags().StringVar(&importAuthor, "author", "cli", "author recorded in the version history")
}
