package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/fatih/color"
	"go.uber.org/zap"

	"github.com/conduit-lang/relstore/internal/backfill"
	"github.com/conduit-lang/relstore/internal/cli/config"
	"github.com/conduit-lang/relstore/internal/cli/ui"
	"github.com/conduit-lang/relstore/internal/orm/schema"
	"github.com/conduit-lang/relstore/internal/orm/store"
	"github.com/conduit-lang/relstore/internal/orm/tracking"
	"github.com/conduit-lang/relstore/internal/source"
)

// loadFlags are shared by load and serve
type loadFlags struct {
	schema   string
	data     string
	models   []string
	backfill bool
}

// env is what every command needs once flags and config are read
type env struct {
	cfg    *config.Config
	logger *zap.Logger
}

// configError marks failures to read or validate the configuration
type configError struct {
	err error
}

func (e *configError) Error() string { return e.err.Error() }
func (e *configError) Unwrap() error { return e.err }

// modelNotFoundError is returned for --model names absent from the schema
type modelNotFoundError struct {
	model       string
	suggestions []string
}

func (e *modelNotFoundError) Error() string {
	return fmt.Sprintf("%v: %s", store.ErrUnknownModel, e.model)
}

func (e *modelNotFoundError) Unwrap() error { return store.ErrUnknownModel }

func newEnv(configPath string) (*env, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, &configError{err}
	}
	logger, err := config.NewLogger(cfg.Log)
	if err != nil {
		return nil, &configError{err}
	}
	return &env{cfg: cfg, logger: logger}, nil
}

// checkModels rejects allowlist entries the schema does not declare
func checkModels(s *store.Store, models []string) error {
	names := s.ModelNames()
	for _, model := range models {
		if !s.Schema().Exists(model) {
			return &modelNotFoundError{model: model, suggestions: ui.FindSimilar(model, names, nil)}
		}
	}
	return nil
}

// renderError prints err the way the CLI reports failures
func renderError(w io.Writer, err error) {
	var modelErr *modelNotFoundError
	var cfgErr *configError
	switch {
	case errors.As(err, &modelErr):
		fmt.Fprint(w, ui.ModelNotFoundError(modelErr.model, modelErr.suggestions, color.NoColor))
	case errors.As(err, &cfgErr):
		fmt.Fprint(w, ui.ConfigError(cfgErr.Error(), color.NoColor))
	default:
		ui.WriteError(w, ui.ErrorOptions{Problem: err.Error(), NoColor: color.NoColor})
	}
}

// schemaPath prefers the flag over the config file
func (e *env) schemaPath(flag string) (string, error) {
	if flag != "" {
		return flag, nil
	}
	if e.cfg.Schema != "" {
		return e.cfg.Schema, nil
	}
	return "", fmt.Errorf("no schema given: use --schema or set schema in relstore.yml")
}

func (e *env) processSchema(flag string) (*schema.Schema, error) {
	path, err := e.schemaPath(flag)
	if err != nil {
		return nil, err
	}
	defs, err := schema.LoadFile(path)
	if err != nil {
		return nil, err
	}
	return schema.ProcessWithLogger(defs, e.logger)
}

func (e *env) openStore(flag string, observer tracking.Observer) (*store.Store, error) {
	s, err := e.processSchema(flag)
	if err != nil {
		return nil, err
	}
	opts := []store.Option{
		store.WithLogger(e.logger),
		store.WithIndexes(e.cfg.IndexMap()),
		store.WithExemptModels(e.cfg.ExemptModels...),
	}
	if observer != nil {
		opts = append(opts, store.WithObserver(observer))
	}
	return store.NewFromSchema(s, opts...)
}

// initialBatch reads the data file, or snapshots the configured source when
// no data file is given
func (e *env) initialBatch(ctx context.Context, dataFlag string) (store.RawData, error) {
	path := dataFlag
	if path == "" {
		path = e.cfg.Data
	}
	if path != "" {
		return source.NewFileSource(path).Snapshot(ctx)
	}

	src, closer, err := source.Open(ctx, e.cfg.Source)
	if err != nil {
		return nil, err
	}
	defer closer.Close()
	return src.Snapshot(ctx)
}

// summary is the printable outcome of a load
type summary struct {
	Rounds     int
	Loaded     map[string]int
	Unresolved map[string][]any
}

// load ingests the initial batch and back-fills it when asked
func (e *env) load(ctx context.Context, s *store.Store, flags loadFlags) (*summary, error) {
	if err := checkModels(s, flags.models); err != nil {
		return nil, err
	}
	raw, err := e.initialBatch(ctx, flags.data)
	if err != nil {
		return nil, err
	}

	if !flags.backfill {
		result, err := s.LoadData(raw, flags.models...)
		if err != nil {
			return nil, err
		}
		sum := &summary{Loaded: make(map[string]int), Unresolved: result.Missing}
		for model, records := range result.Results {
			sum.Loaded[model] = len(records)
		}
		return sum, nil
	}

	src, closer, err := source.Open(ctx, e.cfg.Source)
	if err != nil {
		return nil, err
	}
	defer closer.Close()

	b := &backfill.Backfiller{
		Store:     s,
		Source:    src,
		MaxRounds: e.cfg.Backfill.MaxRounds,
		Logger:    e.logger,
	}
	report, err := b.Run(ctx, raw, flags.models...)
	if err != nil {
		return nil, err
	}
	return &summary{Rounds: report.Rounds, Loaded: report.Loaded, Unresolved: report.Unresolved}, nil
}

func printSummary(w io.Writer, sum *summary, backfilled bool) {
	header := color.New(color.FgCyan, color.Bold)

	models := sortedKeys(sum.Loaded)
	for _, model := range sortedKeys(sum.Unresolved) {
		if _, ok := sum.Loaded[model]; !ok {
			models = append(models, model)
		}
	}

	table := ui.NewTable(w, color.NoColor, "Model", "Loaded", "Unresolved")
	for _, model := range models {
		unresolved := ""
		if ids := sum.Unresolved[model]; len(ids) > 0 {
			unresolved = fmt.Sprint(ids)
		}
		table.AddRow(model, fmt.Sprint(sum.Loaded[model]), unresolved)
	}
	table.Render()

	if backfilled {
		header.Fprint(w, "Back-fill rounds: ")
		fmt.Fprintln(w, sum.Rounds)
	}
	if len(sum.Unresolved) == 0 {
		color.New(color.FgGreen).Fprintln(w, "All references resolved")
		return
	}
	color.New(color.FgYellow).Fprintf(w, "%d models have unresolved references\n", len(sum.Unresolved))
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
