package main

import (
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"tributary/internal/cli"
)

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export transactions as CSV",
		Long: `Write all stored transactions to a CSV file (or stdout) in the same
column layout the import command accepts, so an export can be re-imported.`,
		RunE: runExport,
	}

	cmd.Flags().StringP("output", "o", "", "Output file (default: stdout)")
	cmd.Flags().StringP("start-date", "s", "", "Start of the export window (format: 2006-01-02)")
	cmd.Flags().StringP("end-date", "e", "", "End of the export window (format: 2006-01-02)")

	_ = viper.BindPFlag("export.output", cmd.Flags().Lookup("output"))
	_ = viper.BindPFlag("export.start_date", cmd.Flags().Lookup("start-date"))
	_ = viper.BindPFlag("export.end_date", cmd.Flags().Lookup("end-date"))

	return cmd
}

func runExport(cmd *cobra.Command, _ []string) error {
	start, err := parseDateFlag(viper.GetString("export.start_date"), "start date")
	if err != nil {
		return err
	}
	end, err := parseDateFlag(viper.GetString("export.end_date"), "end date")
	if err != nil {
		return err
	}

	store, err := initStorage(cmd.Context())
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	transactions, err := store.ListTransactions(cmd.Context(), start, end)
	if err != nil {
		return err
	}

	out := os.Stdout
	if path := viper.GetString("export.output"); path != "" {
		f, createErr := os.Create(path) // #nosec G304 -- user-supplied output path
		if createErr != nil {
			return fmt.Errorf("failed to create %s: %w", path, createErr)
		}
		defer func() { _ = f.Close() }()
		out = f
	}

	w := csv.NewWriter(out)
	if err := w.Write([]string{"date", "amount", "name", "merchant", "category", "note", "account"}); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	for _, txn := range transactions {
		record := []string{
			txn.Date.Format("2006-01-02"),
			strconv.FormatFloat(txn.Amount, 'f', 2, 64),
			txn.Name,
			txn.MerchantName,
			txn.Category,
			txn.Note,
			txn.AccountID,
		}
		if err := w.Write(record); err != nil {
			return fmt.Errorf("failed to write transaction %s: %w", txn.ID, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to flush CSV: %w", err)
	}

	if viper.GetString("export.output") != "" {
		slog.Info(cli.FormatSuccess(fmt.Sprintf("Exported %d transactions to %s",
			len(transactions), viper.GetString("export.output"))))
	}
	return nil
}
