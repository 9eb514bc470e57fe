package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/abhisek/casetutor/internal/ui/theme"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List past cases",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		status, _ := cmd.Flags().GetString("status")
		asJSON, _ := cmd.Flags().GetBool("json")
		switch status {
		case "", "active", "completed":
		default:
			return fmt.Errorf("invalid --status %q: want active or completed", status)
		}

		st, err := requireStore(cmd)
		if err != nil {
			return err
		}
		defer st.Close()

		owner := ownerID(cmd)
		entries, err := st.SessionRepo().UserHistory(cmd.Context(), owner, limit, status)
		if err != nil {
			return fmt.Errorf("query history: %w", err)
		}

		if asJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(entries)
		}
		if len(entries) == 0 {
			fmt.Printf("No cases yet for %s.\n", owner)
			return nil
		}

		fmt.Printf("%-36s  %-16s  %-28s  %-10s  %-24s  %5s  %s\n",
			"Session", "Started", "Case", "Level", "Phase", "Hints", "Minutes")
		fmt.Println(rule(136))
		for _, e := range entries {
			mins := "-"
			if e.DurationMinutes != nil {
				mins = fmt.Sprint(*e.DurationMinutes)
			}
			phase := e.Phase
			if e.Status == "completed" {
				phase = theme.Good.Render("completed")
			}
			fmt.Printf("%-36s  %-16s  %-28s  %-10s  %-24s  %5d  %s\n",
				e.ID, e.StartedAt.Local().Format("2006-01-02 15:04"),
				truncate(e.ConditionDisplay, 28), e.LearnerLevel, phase, e.HintsGiven, mins)
		}
		return nil
	},
}

func init() {
	historyCmd.Flags().IntP("limit", "n", 20, "Number of cases to show")
	historyCmd.Flags().String("status", "", "Only active or completed cases")
	historyCmd.Flags().String("owner", "", "Learner ID (defaults to the OS user)")
	historyCmd.Flags().Bool("json", false, "Print as JSON")
}
