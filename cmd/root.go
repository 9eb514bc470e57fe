package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/abhisek/casetutor/internal/store"
)

var rootCmd = &cobra.Command{
	Use:   "casetutor",
	Short: "Pediatric case tutor",
	Long:  "casetutor runs simulated pediatric encounters with an AI attending and scores them with a structured debrief.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPlay(cmd, args)
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command. Cancelling ctx aborts in-flight model
// calls.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().String("db", "", "SQLite file or postgres:// DSN (overrides CASETUTOR_DB env var)")
	rootCmd.PersistentFlags().Bool("no-db", false, "Run without a database; cases are kept in memory only")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn, error (overrides CASETUTOR_LOG_LEVEL)")

	addPlayFlags(rootCmd)

	rootCmd.AddCommand(playCmd)
	rootCmd.AddCommand(frameworksCmd)
	rootCmd.AddCommand(patientCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(resetCmd)
	rootCmd.AddCommand(llmCmd)
	rootCmd.AddCommand(versionCmd)
}

// resolveDBPath returns the database location using --db flag (highest
// priority), then CASETUTOR_DB env var, then the default XDG path. An empty
// result means --no-db was given.
func resolveDBPath(cmd *cobra.Command) (string, error) {
	if off, _ := cmd.Flags().GetBool("no-db"); off {
		return "", nil
	}
	if p, _ := cmd.Flags().GetString("db"); p != "" {
		return p, nil
	}
	return store.DefaultDBPath()
}
