package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/abhisek/casetutor/internal/debrief"
	"github.com/abhisek/casetutor/internal/encounter"
	"github.com/abhisek/casetutor/internal/framework"
	"github.com/abhisek/casetutor/internal/llm"
	"github.com/abhisek/casetutor/internal/logging"
	"github.com/abhisek/casetutor/internal/patient"
	"github.com/abhisek/casetutor/internal/store"
	"github.com/abhisek/casetutor/internal/tutor"
)

// runtime holds everything a case-running command needs.
type runtime struct {
	log        *zap.Logger
	store      *store.Store
	frameworks *framework.Store
	provider   llm.Provider
	service    *encounter.Service
}

func (r *runtime) Close() {
	if r.store != nil {
		r.store.Close()
	}
	_ = r.log.Sync()
}

// newLogger builds the logger from --log-level or CASETUTOR_LOG_LEVEL.
func newLogger(cmd *cobra.Command) (*zap.Logger, error) {
	level, _ := cmd.Flags().GetString("log-level")
	return logging.FromEnv(level)
}

// openStore opens the configured database. It returns nil without error
// when persistence is switched off.
func openStore(cmd *cobra.Command, log *zap.Logger) (*store.Store, error) {
	dsn, err := resolveDBPath(cmd)
	if err != nil {
		return nil, fmt.Errorf("resolve database path: %w", err)
	}
	st, err := store.Open(dsn)
	if errors.Is(err, store.ErrNotConfigured) {
		log.Info("running without a database")
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return st, nil
}

// requireStore is openStore for commands that only read the database.
func requireStore(cmd *cobra.Command) (*store.Store, error) {
	st, err := openStore(cmd, zap.NewNop())
	if err != nil {
		return nil, err
	}
	if st == nil {
		return nil, fmt.Errorf("this command needs a database: %w", store.ErrNotConfigured)
	}
	return st, nil
}

// openRuntime wires the store, the model provider and the encounter
// service. A missing database or provider is not fatal: cases then run in
// memory, and model calls fall back where they can.
func openRuntime(ctx context.Context, cmd *cobra.Command) (*runtime, error) {
	log, err := newLogger(cmd)
	if err != nil {
		return nil, err
	}
	rt := &runtime{log: log}

	rt.frameworks, err = framework.LoadBuiltin(ctx, log)
	if err != nil {
		return nil, fmt.Errorf("load frameworks: %w", err)
	}

	rt.store, err = openStore(cmd, log)
	if err != nil {
		return nil, err
	}

	var events store.LLMEventRepo
	var sessions store.SessionRepo
	if rt.store != nil {
		events = rt.store.EventRepo()
		sessions = rt.store.SessionRepo()
	}

	rt.provider, err = llm.NewProviderFromEnv(ctx, events, log)
	if err != nil {
		fmt.Fprintln(os.Stderr, "LLM provider not configured:", err)
		fmt.Fprintln(os.Stderr, "Cases will use rule-based patients and canned replies where possible.")
		rt.provider = llm.NewMockProvider()
	}

	var genProvider llm.Provider
	if _, isMock := rt.provider.(*llm.MockProvider); !isMock {
		genProvider = rt.provider
	}

	rt.service = encounter.New(encounter.Deps{
		Frameworks: rt.frameworks,
		Generator:  patient.New(rt.frameworks, genProvider, patient.DefaultConfig(), patient.WithLogger(log)),
		Tutor:      tutor.New(rt.provider, tutor.DefaultConfig(), tutor.WithLogger(log)),
		Debrief:    debrief.New(rt.provider, debrief.DefaultConfig(), log),
		Sessions:   sessions,
		Log:        log,
	})
	return rt, nil
}
