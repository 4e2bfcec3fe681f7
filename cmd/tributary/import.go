package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"tributary/internal/cli"
	"tributary/internal/common"
	"tributary/internal/importer"
	"tributary/internal/model"
	"tributary/internal/ofx"
	"tributary/internal/rules"
)

func importCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import [files...]",
		Short: "Import transactions from CSV or OFX exports",
		Long: `Import financial transactions from bank export files.

CSV files need a header naming at least date, amount and name columns;
OFX/QFX files are detected by extension. Transactions are deduplicated
automatically, so re-importing the same file is safe. Rows that fail to
parse are collected into a report instead of aborting the import.`,
		Args: cobra.MinimumNArgs(1),
		RunE: runImport,
	}

	cmd.Flags().String("format", "", "Force file format (csv, ofx); default detects by extension")
	cmd.Flags().Bool("dry-run", false, "Show what would be imported without saving")
	cmd.Flags().Bool("auto-rules", true, "Apply substring auto-categorization rules to uncategorized expenses")

	_ = viper.BindPFlag("import.format", cmd.Flags().Lookup("format"))
	_ = viper.BindPFlag("import.dry_run", cmd.Flags().Lookup("dry-run"))
	_ = viper.BindPFlag("import.auto_rules", cmd.Flags().Lookup("auto-rules"))

	return cmd
}

func runImport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	slog.Info(cli.FormatTitle("Importing transactions"))

	var transactions []model.Transaction
	var parseErrors []error

	for _, path := range args {
		txns, errs, err := parseFile(ctx, path)
		if err != nil {
			return err
		}
		transactions = append(transactions, txns...)
		parseErrors = append(parseErrors, errs...)
	}

	for _, err := range parseErrors {
		slog.Warn(cli.FormatWarning(err.Error()))
	}

	if len(transactions) == 0 {
		return fmt.Errorf("%w: %d rows failed to parse", common.ErrNoTransactions, len(parseErrors))
	}

	if viper.GetBool("import.auto_rules") {
		matcher := rules.NewMatcher(loadRules())
		if tagged := matcher.Apply(transactions); tagged > 0 {
			slog.Info("auto-categorized transactions", "count", tagged)
		}
	}

	if viper.GetBool("import.dry_run") {
		slog.Info(cli.FormatWarning("Dry run mode - not saving to database"))
		displayImportSummary(transactions, len(parseErrors))
		return nil
	}

	store, err := initStorage(ctx)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() { _ = store.Close() }()

	bar := progressbar.NewOptions(len(transactions),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription("Saving transactions..."),
	)

	saved := 0
	// Save in date-stable batches so a failure reports progress precisely.
	const batchSize = 200
	for start := 0; start < len(transactions); start += batchSize {
		end := min(start+batchSize, len(transactions))
		n, saveErr := store.SaveTransactions(ctx, transactions[start:end])
		if saveErr != nil {
			return fmt.Errorf("failed to save transactions: %w", saveErr)
		}
		saved += n
		_ = bar.Add(end - start)
	}
	_ = bar.Finish()
	fmt.Fprintln(os.Stderr)

	slog.Info(cli.FormatSuccess(fmt.Sprintf("Imported %d new transactions (%d duplicates skipped, %d rows failed)",
		saved, len(transactions)-saved, len(parseErrors))))
	return nil
}

// parseFile parses one export file, returning the transactions plus
// per-record errors for rows that could not be understood.
func parseFile(ctx context.Context, path string) ([]model.Transaction, []error, error) {
	f, err := os.Open(path) // #nosec G304 -- user-supplied import path
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	switch detectFormat(path) {
	case "ofx":
		txns, parseErr := ofx.NewParser().ParseFile(ctx, f)
		if parseErr != nil {
			return nil, nil, fmt.Errorf("%s: %w", path, parseErr)
		}
		return txns, nil, nil
	case "csv":
		results, parseErr := importer.NewCSVParser().ParseFile(ctx, f)
		if parseErr != nil {
			return nil, nil, fmt.Errorf("%s: %w", path, parseErr)
		}
		var txns []model.Transaction
		var errs []error
		for _, r := range results {
			if r.Ok() {
				txns = append(txns, r.Transaction)
			} else {
				errs = append(errs, fmt.Errorf("%s: %w", path, r.Err))
			}
		}
		return txns, errs, nil
	default:
		return nil, nil, fmt.Errorf("%w: %s", common.ErrUnsupportedFile, path)
	}
}

func detectFormat(path string) string {
	if forced := viper.GetString("import.format"); forced != "" {
		return strings.ToLower(forced)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".ofx", ".qfx":
		return "ofx"
	case ".csv":
		return "csv"
	}
	return ""
}

// loadRules reads auto-categorization rules from config, falling back to
// the built-in defaults.
func loadRules() []rules.Rule {
	var configured []rules.Rule
	if err := viper.UnmarshalKey("rules", &configured); err != nil || len(configured) == 0 {
		return rules.DefaultRules
	}
	return configured
}

func displayImportSummary(transactions []model.Transaction, failed int) {
	var total float64
	categorized := 0
	for _, txn := range transactions {
		total += txn.Amount
		if txn.TrimmedCategory() != "" {
			categorized++
		}
	}

	content := fmt.Sprintf(`Transactions: %d
Categorized:  %d
Failed rows:  %d
Net amount:   %s`,
		len(transactions), categorized, failed, cli.FormatAmount(total))

	fmt.Println(cli.RenderBox("Import Preview", content))
}
