package cmd

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/user"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/abhisek/casetutor/internal/debrief"
	"github.com/abhisek/casetutor/internal/encounter"
	"github.com/abhisek/casetutor/internal/patient"
	"github.com/abhisek/casetutor/internal/session"
	"github.com/abhisek/casetutor/internal/tutor"
	"github.com/abhisek/casetutor/internal/ui/theme"
)

var playCmd = &cobra.Command{
	Use:   "play",
	Short: "Work through a simulated case",
	Long: `Start a case and talk to the attending at the prompt.

Type /debrief to end the case and get feedback, /export FILE to save the
case as JSON and /quit to leave. After the debrief, anything you type is a
follow-up question about the case.`,
	RunE: runPlay,
}

func addPlayFlags(c *cobra.Command) {
	c.Flags().String("condition", "", "Condition key or name (e.g. croup)")
	c.Flags().String("category", "", "Pick a random condition from this category")
	c.Flags().Int("well-child", -1, "Well-child visit age in months (e.g. 6)")
	c.Flags().String("level", "", "Learner level: student, np_student, resident, fellow, attending")
	c.Flags().String("severity", "", "mild, moderate or severe")
	c.Flags().String("age-bracket", "", "neonate, infant, toddler, child or adolescent")
	c.Flags().String("presentation", "", "typical, atypical, early or late")
	c.Flags().String("complexity", "", "straightforward, nuanced or challenging")
	c.Flags().Int("time-limit", 0, "Time budget in minutes")
	c.Flags().String("owner", "", "Learner ID for history (defaults to the OS user)")
	c.Flags().String("resume", "", "Resume a stored case by session ID")
}

func init() {
	addPlayFlags(playCmd)
}

func runPlay(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	rt, err := openRuntime(ctx, cmd)
	if err != nil {
		return err
	}
	defer rt.Close()

	owner := ownerID(cmd)
	var sess *session.Session

	if id, _ := cmd.Flags().GetString("resume"); id != "" {
		sess, err = rt.service.Resume(ctx, id, owner)
		if err != nil {
			return err
		}
		printHeader(sess)
		for _, t := range sess.Conversation {
			printTurn(t)
		}
	} else {
		start, err := startFromFlags(cmd, rt)
		if err != nil {
			return err
		}
		learner, err := learnerFromFlags(cmd, owner)
		if err != nil {
			return err
		}
		started, err := rt.service.Start(ctx, start, learner)
		if err != nil {
			return err
		}
		sess = started.Session
		printHeader(sess)
		fmt.Println(theme.Tutor.Render(started.Opening))
	}

	return repl(ctx, rt.service, sess.ID)
}

func repl(ctx context.Context, svc *encounter.Service, id string) error {
	in := bufio.NewScanner(os.Stdin)
	in.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	sess, err := svc.Session(id)
	if err != nil {
		return err
	}
	debriefed := false

	for {
		fmt.Print("\n" + theme.LearnerPrompt.Render("you> "))
		if !in.Scan() {
			fmt.Println()
			return in.Err()
		}
		line := strings.TrimSpace(in.Text())
		if line == "" {
			continue
		}

		switch {
		case line == "/quit" || line == "/exit":
			fmt.Println(theme.Hint.Render("Session " + id + " saved. Resume with --resume " + id))
			return nil

		case strings.HasPrefix(line, "/export"):
			path := strings.TrimSpace(strings.TrimPrefix(line, "/export"))
			if err := exportCase(svc, id, path); err != nil {
				fmt.Println(theme.Bad.Render(err.Error()))
			}

		case line == "/debrief":
			d, err := svc.Debrief(ctx, id)
			if err != nil {
				fmt.Println(theme.Bad.Render(err.Error()))
				continue
			}
			debriefed = true
			printDebrief(d)
			fmt.Println(theme.Hint.Render("Ask follow-up questions, /export FILE, or /quit."))

		case debriefed || sess.IsComplete():
			a, err := svc.Ask(ctx, id, line)
			if errors.Is(err, encounter.ErrNotDebriefed) {
				fmt.Println(theme.Hint.Render("This case is closed. Type /debrief to review it."))
				continue
			}
			if err != nil {
				fmt.Println(theme.Bad.Render(err.Error()))
				continue
			}
			fmt.Println(theme.Tutor.Render(a.Answer))
			if len(a.RelatedTeachingPoints) > 0 {
				fmt.Print(theme.Bullets("Related teaching points", a.RelatedTeachingPoints))
			}

		default:
			res, err := svc.Turn(ctx, id, line)
			var turnErr *tutor.TurnError
			switch {
			case errors.Is(err, tutor.ErrCaseClosed), errors.Is(err, encounter.ErrSessionComplete):
				fmt.Println(theme.Hint.Render("This case is closed. Type /debrief to review it."))
				continue
			case errors.As(err, &turnErr):
				fmt.Println(theme.Bad.Render("The attending could not reply. Try sending that again."))
				continue
			case err != nil:
				return err
			}
			if res.Advanced() {
				fmt.Println(theme.PhaseBanner(res.PhaseTo.Label()))
			}
			fmt.Println(theme.Tutor.Render(res.AssistantText))
			if res.TeachingMoment != "" {
				fmt.Println(theme.Teaching.Render("Teaching point: " + res.TeachingMoment))
			}
			if sess.OverTime(time.Now()) {
				fmt.Println(theme.Hint.Render("You're over the time budget. Consider wrapping up with /debrief."))
			}
		}
	}
}

func startFromFlags(cmd *cobra.Command, rt *runtime) (session.Start, error) {
	condition, _ := cmd.Flags().GetString("condition")
	category, _ := cmd.Flags().GetString("category")
	wellChild, _ := cmd.Flags().GetInt("well-child")

	variant := patient.Variant{}
	if v, _ := cmd.Flags().GetString("severity"); v != "" {
		variant.Severity = patient.Severity(v)
	}
	if v, _ := cmd.Flags().GetString("age-bracket"); v != "" {
		variant.AgeBracket = patient.AgeBracket(v)
	}
	if v, _ := cmd.Flags().GetString("presentation"); v != "" {
		variant.Presentation = patient.Presentation(v)
	}
	if v, _ := cmd.Flags().GetString("complexity"); v != "" {
		variant.Complexity = patient.Complexity(v)
	}

	switch {
	case wellChild >= 0:
		return session.WellChildStart{VisitAgeMonths: wellChild}, nil
	case condition != "":
		fw, ok := rt.frameworks.Find(condition)
		if !ok {
			return nil, fmt.Errorf("unknown condition %q (see: casetutor frameworks list)", condition)
		}
		if fw.VisitAgeMonths != nil {
			return session.WellChildStart{VisitAgeMonths: *fw.VisitAgeMonths}, nil
		}
		return session.ConditionStart{ConditionKey: fw.Key, Variant: variant}, nil
	default:
		return session.RandomStart{Category: category, Variant: variant}, nil
	}
}

func learnerFromFlags(cmd *cobra.Command, owner string) (session.Learner, error) {
	level, _ := cmd.Flags().GetString("level")
	l := session.Learner{OwnerID: owner, Level: session.LearnerLevel(level)}
	if mins, _ := cmd.Flags().GetInt("time-limit"); mins != 0 {
		if mins < 0 {
			return l, fmt.Errorf("--time-limit must be positive")
		}
		l.TimeConstraint = &mins
	}
	return l, nil
}

func ownerID(cmd *cobra.Command) string {
	if o, _ := cmd.Flags().GetString("owner"); o != "" {
		return o
	}
	if u, err := user.Current(); err == nil {
		return u.Username
	}
	return ""
}

func printHeader(s *session.Session) {
	p := s.Patient
	fmt.Println(theme.Title.Render(fmt.Sprintf("%s, %s", p.Name, p.AgeDisplay())))
	visit := "Sick visit"
	if s.VisitType == session.VisitWellChild {
		visit = "Well-child visit"
	}
	fmt.Println(theme.Subtitle.Render(fmt.Sprintf("%s · level %s · session %s", visit, s.LearnerLevel, s.ID)))
	fmt.Println(theme.PhaseBanner(s.Phase.Label()))
}

func printTurn(t session.Turn) {
	if t.Role == session.RoleLearner {
		fmt.Println(theme.LearnerPrompt.Render("you> ") + t.Content)
		return
	}
	fmt.Println(theme.Tutor.Render(t.Content))
}

func printDebrief(d *debrief.Debrief) {
	fmt.Println(theme.Heading.Render("Debrief"))
	fmt.Println(theme.Card.Render(d.Summary))
	fmt.Print(theme.Bullets("Strengths", d.Strengths))
	fmt.Print(theme.Bullets("Areas for improvement", d.AreasForImprovement))
	fmt.Print(theme.Bullets("Missed", d.MissedItems))
	fmt.Print(theme.Bullets("Teaching points", d.TeachingPoints))
	fmt.Print(theme.Bullets("Follow-up resources", d.FollowUpResources))

	if sc := d.WellChildScores; sc != nil {
		fmt.Println(theme.Heading.Render(fmt.Sprintf("Well-child scores (%d/60)", sc.Total())))
		for _, ds := range sc.Domains() {
			label := strings.ReplaceAll(ds.Name, "_", " ")
			fmt.Printf("  %-24s %s\n", label, theme.ScoreBar(ds.Score.Score))
			if ds.Score.Feedback != "" {
				fmt.Println(theme.Hint.Render("    " + ds.Score.Feedback))
			}
		}
	}
}

func exportCase(svc *encounter.Service, id, path string) error {
	x, err := svc.Export(id)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(x, "", "  ")
	if err != nil {
		return fmt.Errorf("encode export: %w", err)
	}
	if path == "" {
		fmt.Println(string(data))
		return nil
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write export: %w", err)
	}
	fmt.Println(theme.Good.Render("Exported to " + path))
	return nil
}
