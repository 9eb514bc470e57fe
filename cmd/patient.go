package cmd

import (
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/abhisek/casetutor/internal/framework"
	"github.com/abhisek/casetutor/internal/llm"
	"github.com/abhisek/casetutor/internal/patient"
)

var patientCmd = &cobra.Command{
	Use:   "patient",
	Short: "Generate a synthetic patient and print it as JSON (no database)",
	Long: `Generate a patient without starting a case.

Useful for checking what the generator produces for a framework. Patients
are rule-based unless --llm is given, in which case the configured model
enriches them.`,
	RunE: runPatient,
}

func init() {
	patientCmd.Flags().String("condition", "", "Condition key or name")
	patientCmd.Flags().String("category", "", "Random condition from this category")
	patientCmd.Flags().Int("well-child", -1, "Well-child visit age in months")
	patientCmd.Flags().String("severity", "", "mild, moderate or severe")
	patientCmd.Flags().String("age-bracket", "", "neonate, infant, toddler, child or adolescent")
	patientCmd.Flags().String("presentation", "", "typical, atypical, early or late")
	patientCmd.Flags().Uint64("seed", 0, "Random seed for reproducible output (0 picks one)")
	patientCmd.Flags().Bool("llm", false, "Enrich the patient with the configured model")
}

func runPatient(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	log, err := newLogger(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	fws, err := framework.LoadBuiltin(ctx, log)
	if err != nil {
		return fmt.Errorf("load frameworks: %w", err)
	}

	var provider llm.Provider
	if useLLM, _ := cmd.Flags().GetBool("llm"); useLLM {
		provider, err = llm.NewProviderFromEnv(ctx, nil, log)
		if err != nil {
			return fmt.Errorf("LLM provider: %w", err)
		}
	}

	opts := []patient.Option{patient.WithLogger(log)}
	if seed, _ := cmd.Flags().GetUint64("seed"); seed != 0 {
		opts = append(opts, patient.WithRandSource(func() rand.Source {
			return rand.NewPCG(seed, seed)
		}))
	}
	gen := patient.New(fws, provider, patient.DefaultConfig(), opts...)

	var v patient.Variant
	sev, _ := cmd.Flags().GetString("severity")
	bracket, _ := cmd.Flags().GetString("age-bracket")
	pres, _ := cmd.Flags().GetString("presentation")
	v.Severity = patient.Severity(sev)
	v.AgeBracket = patient.AgeBracket(bracket)
	v.Presentation = patient.Presentation(pres)
	if err := v.Validate(); err != nil {
		return err
	}

	condition, _ := cmd.Flags().GetString("condition")
	category, _ := cmd.Flags().GetString("category")
	wellChild, _ := cmd.Flags().GetInt("well-child")

	var p *patient.Patient
	var fw *framework.Framework
	switch {
	case wellChild >= 0:
		p, fw, err = gen.CreateWellChild(ctx, wellChild)
	case condition != "":
		found, ok := fws.Find(condition)
		if !ok {
			return fmt.Errorf("unknown condition %q", condition)
		}
		p, fw, err = gen.CreateForKey(ctx, found.Key, v)
	default:
		p, fw, err = gen.CreateRandom(ctx, category, v)
	}
	if err != nil {
		return err
	}

	log.Debug("generated patient", zap.String("framework", fw.Key), zap.String("patient_id", p.ID))

	out := struct {
		Framework string           `json:"framework"`
		Patient   *patient.Patient `json:"patient"`
	}{fw.Key, p}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
