package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Delete the local case database",
	Long: `Delete the local SQLite database with all stored cases and model call logs.

Postgres databases are never touched by this command.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := resolveDBPath(cmd)
		if err != nil {
			return fmt.Errorf("resolve database path: %w", err)
		}
		if path == "" {
			return errors.New("nothing to reset: --no-db given")
		}
		if strings.Contains(path, "://") {
			return fmt.Errorf("refusing to reset a remote database (%s)", path)
		}

		if yes, _ := cmd.Flags().GetBool("yes"); !yes {
			return fmt.Errorf("this deletes %s; rerun with --yes to confirm", path)
		}

		removed := 0
		for _, p := range []string{path, path + "-wal", path + "-shm"} {
			err := os.Remove(p)
			switch {
			case err == nil:
				removed++
			case errors.Is(err, fs.ErrNotExist):
			default:
				return fmt.Errorf("remove %s: %w", p, err)
			}
		}
		if removed == 0 {
			fmt.Println("No database at", path)
			return nil
		}
		fmt.Println("Deleted", path)
		return nil
	},
}

func init() {
	resetCmd.Flags().Bool("yes", false, "Confirm deletion")
}
