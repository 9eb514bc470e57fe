package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/abhisek/casetutor/internal/framework"
	"github.com/abhisek/casetutor/internal/ui/theme"
)

var frameworksCmd = &cobra.Command{
	Use:     "frameworks",
	Aliases: []string{"conditions"},
	Short:   "Browse the teaching frameworks",
}

var frameworksListCmd = &cobra.Command{
	Use:   "list",
	Short: "List conditions and well-child visits",
	RunE: func(cmd *cobra.Command, args []string) error {
		category, _ := cmd.Flags().GetString("category")

		fws, err := framework.LoadBuiltin(cmd.Context(), zap.NewNop())
		if err != nil {
			return fmt.Errorf("load frameworks: %w", err)
		}

		conditions := fws.ListConditions()
		if category != "" {
			filtered := conditions[:0]
			for _, c := range conditions {
				if c.Category == category {
					filtered = append(filtered, c)
				}
			}
			conditions = filtered
			if len(conditions) == 0 {
				return fmt.Errorf("no conditions in category %q (have: %s)",
					category, strings.Join(fws.Categories(), ", "))
			}
		}

		fmt.Println(theme.Heading.Render("Conditions"))
		fmt.Printf("%-26s  %-34s  %-18s  %s\n", "Key", "Topic", "Category", "Ages (months)")
		fmt.Println(rule(96))
		for _, c := range conditions {
			fmt.Printf("%-26s  %-34s  %-18s  %d-%d\n",
				c.Key, truncate(c.Topic, 34), c.Category, c.AgeRange.Min, c.AgeRange.Max)
		}

		if category == "" {
			visits := fws.WellChildVisits()
			fmt.Println()
			fmt.Println(theme.Heading.Render("Well-child visits"))
			fmt.Printf("%-26s  %-34s  %s\n", "Key", "Topic", "Age (months)")
			fmt.Println(rule(72))
			for _, v := range visits {
				fmt.Printf("%-26s  %-34s  %d\n", v.Key, truncate(v.Topic, 34), v.VisitAgeMonths)
			}
		}
		return nil
	},
}

var frameworksShowCmd = &cobra.Command{
	Use:   "show <key or name>",
	Short: "Show the teaching content of one framework",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		fws, err := framework.LoadBuiltin(cmd.Context(), zap.NewNop())
		if err != nil {
			return fmt.Errorf("load frameworks: %w", err)
		}
		name := strings.Join(args, " ")
		fw, ok := fws.Find(name)
		if !ok {
			return fmt.Errorf("no framework matches %q", name)
		}

		fmt.Println(theme.Title.Render(fw.Name()))
		sub := fmt.Sprintf("%s · %s · ages %d-%d months", fw.Key, fw.Category, fw.AgeRange.Min, fw.AgeRange.Max)
		if fw.VisitAgeMonths != nil {
			sub = fmt.Sprintf("%s · well-child visit at %d months", fw.Key, *fw.VisitAgeMonths)
		}
		fmt.Println(theme.Subtitle.Render(sub))

		fmt.Print(theme.Bullets("Teaching goals", fw.TeachingGoals))
		fmt.Print(theme.Bullets("Key history questions", fw.KeyHistoryQuestions))
		fmt.Print(theme.Bullets("Key exam findings", fw.KeyExamFindings))
		fmt.Print(theme.Bullets("Red flags", fw.RedFlags))
		fmt.Print(theme.Bullets("Common mistakes", fw.CommonMistakes))
		fmt.Print(theme.Bullets("Clinical pearls", fw.ClinicalPearls))
		fmt.Print(theme.Bullets("Treatment", fw.TreatmentPrinciples))
		fmt.Print(theme.Bullets("Disposition", fw.DispositionGuidance))

		if fw.IsWellChild() {
			fmt.Print(theme.Bullets("Milestone domains", fw.MilestoneDomains()))
			fmt.Print(theme.Bullets("Immunizations due", fw.ImmunizationsDue))
			fmt.Print(theme.Bullets("Screening tools", fw.ScreeningTools))
			fmt.Print(theme.Bullets("Guidance topics", fw.GuidanceTopics()))
		}

		var reading []string
		for _, r := range fw.ReadingList {
			line := r.Title
			if r.Source != "" {
				line += " (" + r.Source + ")"
			}
			reading = append(reading, line)
		}
		fmt.Print(theme.Bullets("Reading", reading))
		return nil
	},
}

func init() {
	frameworksListCmd.Flags().String("category", "", "Only conditions in this category (e.g. respiratory)")

	frameworksCmd.AddCommand(frameworksListCmd, frameworksShowCmd)
}
