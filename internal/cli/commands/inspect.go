package commands

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/conduit-lang/relstore/internal/cli/ui"
	"github.com/conduit-lang/relstore/internal/orm/schema"
)

// NewInspectCommand creates the inspect command
func NewInspectCommand(configPath *string) *cobra.Command {
	var schemaFlag string

	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Show the processed schema",
		Long: `Process a schema file and print every model with its fields, the inverse
of each relational field (synthesized fields are marked), the order in
which models can be loaded, and any many2one cycles.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := newEnv(*configPath)
			if err != nil {
				return err
			}
			defer e.logger.Sync()

			s, err := e.processSchema(schemaFlag)
			if err != nil {
				return err
			}
			printSchema(cmd, s)
			return nil
		},
	}

	cmd.Flags().StringVar(&schemaFlag, "schema", "", "schema file (YAML or JSON)")
	return cmd
}

func printSchema(cmd *cobra.Command, s *schema.Schema) {
	out := cmd.OutOrStdout()
	header := color.New(color.FgCyan, color.Bold)
	warn := color.New(color.FgYellow)

	for _, model := range s.Models() {
		header.Fprintln(out, model)
		table := ui.NewTable(out, color.NoColor, "Field", "Type", "Inverse", "Notes")
		for _, f := range s.Fields(model) {
			typ := f.TypeName()
			if f.Relation != "" {
				typ += " -> " + f.Relation
			}
			inverse := ""
			if inv, ok := s.Inverse(f); ok {
				inverse = inv.Model + "." + inv.Name
			}
			var notes []string
			if f.Required {
				notes = append(notes, "required")
			}
			if f.Dummy {
				notes = append(notes, "synthesized")
			}
			table.AddRow(f.Name, typ, inverse, strings.Join(notes, ", "))
		}
		table.Render()
		fmt.Fprintln(out)
	}

	graph := schema.NewRelationshipGraph(s)
	header.Fprintln(out, "Dependency order:")
	order, err := graph.TopologicalSort()
	if err != nil {
		warn.Fprintln(out, "  none (models form cycles)")
	} else {
		for i, model := range order {
			fmt.Fprintf(out, "  %d. %s\n", i+1, model)
		}
	}

	if cycles := graph.DetectCycles(); len(cycles) > 0 {
		header.Fprintln(out, "Cycles:")
		warn.Fprintln(out, schema.FormatCycles(cycles))
	}

	stats := s.GetStats()
	fmt.Fprintln(out)
	kv := ui.NewKeyValueTable(out, color.NoColor)
	kv.AddRow("Models", stats.TotalModels)
	kv.AddRow("Fields", stats.TotalFields)
	kv.AddRow("Relational", stats.RelationalFields)
	kv.AddRow("Synthesized", stats.DummyFields)
	kv.AddRow("Unpaired", stats.UnpairedRelational)
	kv.Render()
}
