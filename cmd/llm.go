package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abhisek/casetutor/internal/llm"
	"github.com/abhisek/casetutor/internal/store"
	"github.com/abhisek/casetutor/internal/ui/theme"
)

var llmCmd = &cobra.Command{
	Use:   "llm",
	Short: "Inspect logged model calls and their cost",
}

var llmListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent model calls",
	RunE:  runLLMList,
}

var llmViewCmd = &cobra.Command{
	Use:   "view <id>",
	Short: "Show the request and response of one model call",
	Args:  cobra.ExactArgs(1),
	RunE:  runLLMView,
}

var llmStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Token usage by purpose and estimated cost by model",
	RunE:  runLLMStats,
}

func init() {
	llmListCmd.Flags().IntP("limit", "n", 20, "Number of calls to show")
	llmListCmd.Flags().StringP("purpose", "p", "", "Only this purpose (patient-gen, case-turn, case-opening, debrief, debrief-question)")
	llmListCmd.Flags().String("session", "", "Only calls made for this session ID")

	llmCmd.AddCommand(llmListCmd, llmViewCmd, llmStatsCmd)
}

func runLLMList(cmd *cobra.Command, args []string) error {
	st, err := requireStore(cmd)
	if err != nil {
		return err
	}
	defer st.Close()

	opts := store.QueryOpts{}
	opts.Limit, _ = cmd.Flags().GetInt("limit")
	opts.Purpose, _ = cmd.Flags().GetString("purpose")
	opts.Session, _ = cmd.Flags().GetString("session")

	events, err := st.EventRepo().QueryLLMEvents(cmd.Context(), opts)
	if err != nil {
		return fmt.Errorf("query events: %w", err)
	}
	if len(events) == 0 {
		fmt.Println("No model calls logged.")
		return nil
	}

	fmt.Printf("%-6s  %-19s  %-18s  %-28s  %6s  %6s  %7s  %s\n",
		"ID", "Time", "Purpose", "Model", "In", "Out", "Ms", "OK")
	fmt.Println(rule(104))
	for _, e := range events {
		mark := theme.Good.Render("ok")
		if !e.Success {
			mark = theme.Bad.Render("fail")
		}
		fmt.Printf("%-6d  %-19s  %-18s  %-28s  %6d  %6d  %7d  %s\n",
			e.ID, e.Timestamp.Local().Format("2006-01-02 15:04:05"),
			truncate(e.Purpose, 18), truncate(e.Model, 28),
			e.InputTokens, e.OutputTokens, e.LatencyMs, mark)
	}
	return nil
}

func runLLMView(cmd *cobra.Command, args []string) error {
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid ID %q: %w", args[0], err)
	}

	st, err := requireStore(cmd)
	if err != nil {
		return err
	}
	defer st.Close()

	e, err := st.EventRepo().GetLLMEvent(cmd.Context(), id)
	if err != nil {
		return fmt.Errorf("get event: %w", err)
	}
	if e == nil {
		return fmt.Errorf("event %d not found", id)
	}

	fmt.Printf("ID:        %d\n", e.ID)
	fmt.Printf("Time:      %s\n", e.Timestamp.Local().Format("2006-01-02 15:04:05"))
	fmt.Printf("Provider:  %s\n", e.Provider)
	fmt.Printf("Model:     %s\n", e.Model)
	fmt.Printf("Purpose:   %s\n", e.Purpose)
	if e.SessionID != "" {
		fmt.Printf("Session:   %s\n", e.SessionID)
	}
	fmt.Printf("Tokens:    %d in / %d out\n", e.InputTokens, e.OutputTokens)
	fmt.Printf("Latency:   %dms\n", e.LatencyMs)
	if e.Success {
		fmt.Println("Result:    ok")
	} else {
		fmt.Printf("Result:    failed: %s\n", e.ErrorMessage)
	}

	printBody("REQUEST", e.RequestBody)
	printBody("RESPONSE", e.ResponseBody)
	return nil
}

func printBody(title, body string) {
	fmt.Println()
	fmt.Println(theme.Heading.Render(title))
	fmt.Println(rule(60))
	if body == "" {
		body = "(not captured)"
	}
	fmt.Println(body)
}

func runLLMStats(cmd *cobra.Command, args []string) error {
	st, err := requireStore(cmd)
	if err != nil {
		return err
	}
	defer st.Close()

	ctx := cmd.Context()
	repo := st.EventRepo()

	byPurpose, err := repo.LLMUsageByPurpose(ctx)
	if err != nil {
		return fmt.Errorf("query usage: %w", err)
	}
	if len(byPurpose) == 0 {
		fmt.Println("No model usage recorded yet.")
		return nil
	}

	fmt.Println(theme.Heading.Render("Usage by purpose"))
	fmt.Printf("%-18s  %6s  %10s  %10s  %10s  %8s\n",
		"Purpose", "Calls", "Input", "Output", "Total", "Avg ms")
	fmt.Println(rule(72))
	var calls, in, out int
	for _, u := range byPurpose {
		fmt.Printf("%-18s  %6d  %10d  %10d  %10d  %8d\n",
			truncate(u.Key, 18), u.Calls, u.InputTokens, u.OutputTokens,
			u.InputTokens+u.OutputTokens, u.AvgLatencyMs)
		calls += u.Calls
		in += u.InputTokens
		out += u.OutputTokens
	}
	fmt.Println(rule(72))
	fmt.Printf("%-18s  %6d  %10d  %10d  %10d\n", "TOTAL", calls, in, out, in+out)

	byModel, err := repo.LLMUsageByModel(ctx)
	if err != nil {
		return fmt.Errorf("query model usage: %w", err)
	}
	if len(byModel) == 0 {
		return nil
	}

	fmt.Println()
	fmt.Println(theme.Heading.Render("Estimated cost (USD)"))
	fmt.Printf("%-32s  %6s  %10s  %10s  %10s\n", "Model", "Calls", "Input", "Output", "Cost")
	fmt.Println(rule(72))

	var total float64
	var unpriced []string
	for _, u := range byModel {
		price := llm.LookupCost(u.Key)
		cost := "?"
		if price == nil {
			unpriced = append(unpriced, u.Key)
		} else {
			c := price.Cost(u.InputTokens, u.OutputTokens)
			total += c
			cost = formatCost(c)
		}
		fmt.Printf("%-32s  %6d  %10d  %10d  %10s\n",
			truncate(u.Key, 32), u.Calls, u.InputTokens, u.OutputTokens, cost)
	}
	fmt.Println(rule(72))

	label := "TOTAL"
	if len(unpriced) > 0 {
		label = "TOTAL (partial)"
	}
	fmt.Printf("%-32s  %6s  %10s  %10s  %10s\n", label, "", "", "", formatCost(total))
	if len(unpriced) > 0 {
		fmt.Printf("\nNo pricing for: %s\n", strings.Join(unpriced, ", "))
	}
	return nil
}

func rule(width int) string {
	return strings.Repeat("─", width)
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max])
}

func formatCost(usd float64) string {
	if usd < 0.01 {
		return fmt.Sprintf("$%.4f", usd)
	}
	return fmt.Sprintf("$%.2f", usd)
}
