package commands

import (
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/conduit-lang/relstore/internal/cli/ui"
	"github.com/conduit-lang/relstore/internal/orm/tracking"
)

// NewLoadCommand creates the load command
func NewLoadCommand(configPath *string) *cobra.Command {
	var (
		flags   loadFlags
		changes bool
	)

	cmd := &cobra.Command{
		Use:   "load",
		Short: "Load a batch of records and report missing references",
		Long: `Load a data file, or a snapshot of the configured source, into a fresh
store. With --backfill, ids referenced but not loaded are fetched from the
configured source until every reference resolves or no progress is made.`,
		Example: `  relstore load --schema models.yml --data orders.json
  relstore load --schema models.yml --data orders.json --model pos.order --backfill`,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := newEnv(*configPath)
			if err != nil {
				return err
			}
			defer e.logger.Sync()

			recorder := tracking.NewRecorder()
			s, err := e.openStore(flags.schema, recorder)
			if err != nil {
				return err
			}

			sum, err := e.load(cmd.Context(), s, flags)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			printSummary(out, sum, flags.backfill)

			if changes {
				color.New(color.FgCyan, color.Bold).Fprintln(out, "Changes:")
				kv := ui.NewKeyValueTable(out, color.NoColor)
				for _, kind := range []tracking.Kind{
					tracking.RecordAdded, tracking.FieldSet, tracking.MemberAdded, tracking.MemberRemoved,
				} {
					kv.AddRow(kind.String(), recorder.Count(kind))
				}
				kv.Render()
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&flags.schema, "schema", "", "schema file (YAML or JSON)")
	cmd.Flags().StringVar(&flags.data, "data", "", "data file {model: [records]} (default: snapshot of the configured source)")
	cmd.Flags().StringArrayVar(&flags.models, "model", nil, "only load these models (repeatable)")
	cmd.Flags().BoolVar(&flags.backfill, "backfill", false, "fetch missing references from the configured source")
	cmd.Flags().BoolVar(&changes, "changes", false, "print counts of the writes made while loading")
	return cmd
}
