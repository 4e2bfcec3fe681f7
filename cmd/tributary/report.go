package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"tributary/internal/aggregate"
	"tributary/internal/category"
	"tributary/internal/cli"
	"tributary/internal/model"
	"tributary/internal/storage"
)

func reportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Report aggregate spend per category",
		Long: `Aggregate transaction amounts per category.

Every transaction is credited to its category's full ancestor path, so a
parent shows the rolled-up total of its subtree. Uncategorized and
unresolvable transactions land in the "no category" and "invalid category"
buckets.`,
		RunE: runReport,
	}

	cmd.Flags().StringP("start-date", "s", "", "Start of the reporting window (format: 2006-01-02)")
	cmd.Flags().StringP("end-date", "e", "", "End of the reporting window (format: 2006-01-02)")
	cmd.Flags().String("format", "table", "Output format (table, json)")

	_ = viper.BindPFlag("report.start_date", cmd.Flags().Lookup("start-date"))
	_ = viper.BindPFlag("report.end_date", cmd.Flags().Lookup("end-date"))
	_ = viper.BindPFlag("report.format", cmd.Flags().Lookup("format"))

	return cmd
}

// loadAggregation pulls transactions and the tree from storage and runs the
// aggregation for the configured window.
func loadAggregation(cmd *cobra.Command, prefix string) (map[string]int64, aggregate.Metadata, *category.Tree, error) {
	start, err := parseDateFlag(viper.GetString(prefix+".start_date"), "start date")
	if err != nil {
		return nil, aggregate.Metadata{}, nil, err
	}
	end, err := parseDateFlag(viper.GetString(prefix+".end_date"), "end date")
	if err != nil {
		return nil, aggregate.Metadata{}, nil, err
	}

	store, err := initStorage(cmd.Context())
	if err != nil {
		return nil, aggregate.Metadata{}, nil, err
	}
	defer func() { _ = store.Close() }()

	tree, err := store.GetCategoryTree(cmd.Context())
	if err != nil {
		return nil, aggregate.Metadata{}, nil, err
	}

	transactions, err := listAll(cmd, store)
	if err != nil {
		return nil, aggregate.Metadata{}, nil, err
	}

	result, meta := aggregate.Aggregate(transactions, tree, aggregate.Options{Start: start, End: end})
	return result, meta, tree, nil
}

func listAll(cmd *cobra.Command, store *storage.SQLiteStorage) ([]model.Transaction, error) {
	// The aggregation applies its own day-granularity filter; fetch all
	// rows so whole-day boundary handling stays in one place.
	return store.ListTransactions(cmd.Context(), nil, nil)
}

func runReport(cmd *cobra.Command, _ []string) error {
	result, meta, tree, err := loadAggregation(cmd, "report")
	if err != nil {
		return err
	}

	switch viper.GetString("report.format") {
	case "json":
		return writeReportJSON(os.Stdout, result, meta)
	case "table":
		displayReport(result, meta, tree)
		return nil
	default:
		return fmt.Errorf("unknown output format %q", viper.GetString("report.format"))
	}
}

type reportPayload struct {
	Categories map[string]int64 `json:"categories"`
	Metadata   struct {
		TotalSum          float64  `json:"total_sum"`
		InvalidCategories []string `json:"invalid_categories"`
	} `json:"metadata"`
	GeneratedAt time.Time `json:"generated_at"`
}

func writeReportJSON(w *os.File, result map[string]int64, meta aggregate.Metadata) error {
	payload := reportPayload{Categories: result, GeneratedAt: time.Now().UTC()}
	payload.Metadata.TotalSum = meta.TotalSum
	payload.Metadata.InvalidCategories = meta.InvalidCategories

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(payload)
}

// displayReport renders category sums in tree order, indented by depth,
// followed by the synthetic buckets and totals.
func displayReport(result map[string]int64, meta aggregate.Metadata, tree *category.Tree) {
	var sb strings.Builder
	displayNodes(&sb, tree.Roots, result, "")

	for _, bucket := range []string{aggregate.BucketNoCategory, aggregate.BucketInvalid} {
		if v, ok := result[bucket]; ok {
			sb.WriteString(fmt.Sprintf("%s %d\n", cli.WarningStyle.Render(bucket), v))
		}
	}

	sb.WriteString(fmt.Sprintf("\nTotal: %s", cli.FormatAmount(meta.TotalSum)))
	if len(meta.InvalidCategories) > 0 {
		sb.WriteString(fmt.Sprintf("\nUnknown categories: %s", strings.Join(meta.InvalidCategories, ", ")))
	}

	fmt.Println(cli.RenderBox(cli.ChartIcon+" Spend by Category", sb.String()))

	if len(meta.InvalidCategories) > 0 {
		slog.Warn("some transactions reference categories missing from the tree",
			"categories", meta.InvalidCategories)
	}
}

func displayNodes(sb *strings.Builder, nodes []*category.Node, result map[string]int64, indent string) {
	for _, n := range nodes {
		// Zero buckets are dropped from the result; skip silent subtrees.
		if v, ok := result[n.Name]; ok {
			sb.WriteString(fmt.Sprintf("%s%s %d\n", indent, n.Name, v))
		}
		displayNodes(sb, n.Children, result, indent+"  ")
	}
}
