package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"tributary/internal/cli"
	"tributary/internal/flowgraph"
)

func flowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "flow",
		Short: "Build the money flow graph",
		Long: `Derive a Sankey-style flow graph from the category aggregation.

Money flows from the synthetic total node into positive categories; refund-
heavy categories with a negative bucket flow back toward their parent.
Zero-valued categories and their edges are filtered out. The JSON output is
what the front-end Sankey renderer consumes.`,
		RunE: runFlow,
	}

	cmd.Flags().StringP("start-date", "s", "", "Start of the reporting window (format: 2006-01-02)")
	cmd.Flags().StringP("end-date", "e", "", "End of the reporting window (format: 2006-01-02)")
	cmd.Flags().String("format", "json", "Output format (json, summary)")

	_ = viper.BindPFlag("flow.start_date", cmd.Flags().Lookup("start-date"))
	_ = viper.BindPFlag("flow.end_date", cmd.Flags().Lookup("end-date"))
	_ = viper.BindPFlag("flow.format", cmd.Flags().Lookup("format"))

	return cmd
}

func runFlow(cmd *cobra.Command, _ []string) error {
	result, meta, tree, err := loadAggregation(cmd, "flow")
	if err != nil {
		return err
	}

	graph := flowgraph.Build(result, meta, tree)

	switch viper.GetString("flow.format") {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(graph)
	case "summary":
		displayFlowSummary(graph)
		return nil
	default:
		return fmt.Errorf("unknown output format %q", viper.GetString("flow.format"))
	}
}

func displayFlowSummary(graph flowgraph.Graph) {
	content := fmt.Sprintf(`Nodes: %d
Links: %d`, len(graph.Nodes), len(graph.Links))

	for _, l := range graph.Links {
		content += fmt.Sprintf("\n%s → %s  %.0f",
			graph.Nodes[l.Source].Name, graph.Nodes[l.Target].Name, l.Value)
	}

	fmt.Println(cli.RenderBox(cli.FlowIcon+" Money Flow", content))
}
