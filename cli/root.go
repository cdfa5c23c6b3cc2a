// Package cli holds the portal command line.
package cli

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"induction-portal/config"
)

var (
	configPath string
	cfg        *config.Config

	rootCmd = &cobra.Command{
		Use:           "portal",
		Short:         "Employee induction portal",
		Long:          "Serves the induction guides, the admin CMS and the JSON API, and maintains the content document.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			c, err := config.LoadConfig(configPath)
			if err != nil {
				return err
			}
			cfg = c
			setupLogging(cfg.LogLevel)
			return nil
		},
	}
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config.yaml (default ./config.yaml)")
	rootCmd.AddCommand(serveCmd, migrateCmd, importCmd, hashPasswordCmd)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func setupLogging(level string) {
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		logrus.WithField("level", level).Warn("unknown log level, using info")
		lvl = logrus.InfoLevel
	}
	logrus.SetLevel(lvl)
}
