package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"tributary/internal/model"
)

// SaveTransactions saves multiple transactions to the database. Duplicates
// (same hash) are silently skipped so repeated imports are safe.
func (s *SQLiteStorage) SaveTransactions(ctx context.Context, transactions []model.Transaction) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}
	if err := validateTransactions(transactions); err != nil {
		return 0, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR IGNORE INTO transactions (
			id, hash, date, name, merchant_name, amount,
			category, note, source, account_id
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	saved := 0
	for _, txn := range transactions {
		if txn.Hash == "" {
			txn.Hash = txn.GenerateHash()
		}

		res, execErr := stmt.ExecContext(ctx,
			txn.ID,
			txn.Hash,
			txn.Date,
			txn.Name,
			txn.MerchantName,
			txn.Amount,
			txn.Category,
			txn.Note,
			string(txn.Source),
			txn.AccountID,
		)
		if execErr != nil {
			return 0, fmt.Errorf("failed to save transaction %s: %w", txn.ID, execErr)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			saved++
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transactions: %w", err)
	}

	slog.Debug("saved transactions", "total", len(transactions), "new", saved)
	return saved, nil
}

// ListTransactions returns transactions ordered by date, optionally bounded
// by an inclusive date range.
func (s *SQLiteStorage) ListTransactions(ctx context.Context, start, end *time.Time) ([]model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if start != nil && end != nil && end.Before(*start) {
		return nil, fmt.Errorf("%w: %v is after %v", ErrInvalidDateRange, start, end)
	}

	query := `
		SELECT id, hash, date, name, merchant_name, amount, category, note, source, account_id
		FROM transactions`
	var args []any
	switch {
	case start != nil && end != nil:
		query += ` WHERE date >= ? AND date <= ?`
		args = append(args, *start, *end)
	case start != nil:
		query += ` WHERE date >= ?`
		args = append(args, *start)
	case end != nil:
		query += ` WHERE date <= ?`
		args = append(args, *end)
	}
	query += ` ORDER BY date, id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var transactions []model.Transaction
	for rows.Next() {
		txn, scanErr := scanTransaction(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		transactions = append(transactions, txn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transactions: %w", err)
	}

	return transactions, nil
}

func scanTransaction(rows *sql.Rows) (model.Transaction, error) {
	var txn model.Transaction
	var merchant, account, source sql.NullString
	if err := rows.Scan(
		&txn.ID,
		&txn.Hash,
		&txn.Date,
		&txn.Name,
		&merchant,
		&txn.Amount,
		&txn.Category,
		&txn.Note,
		&source,
		&account,
	); err != nil {
		return model.Transaction{}, fmt.Errorf("failed to scan transaction: %w", err)
	}
	txn.MerchantName = merchant.String
	txn.AccountID = account.String
	txn.Source = model.Source(source.String)
	return txn, nil
}

// UpdateTransactionCategory assigns a category to a single transaction.
func (s *SQLiteStorage) UpdateTransactionCategory(ctx context.Context, id, categoryName string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(id, "id"); err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE transactions SET category = ? WHERE id = ?`, categoryName, id)
	if err != nil {
		return fmt.Errorf("failed to update transaction category: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("transaction %s: %w", id, sql.ErrNoRows)
	}
	return nil
}

// UpdateMerchantCategory assigns a category to every transaction sharing the
// merchant of the given transaction. Returns the number of rows updated.
func (s *SQLiteStorage) UpdateMerchantCategory(ctx context.Context, id, categoryName string) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}
	if err := validateString(id, "id"); err != nil {
		return 0, err
	}

	var merchant sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT merchant_name FROM transactions WHERE id = ?`, id).Scan(&merchant)
	if err != nil {
		return 0, fmt.Errorf("failed to look up transaction %s: %w", id, err)
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE transactions SET category = ? WHERE merchant_name = ?`,
		categoryName, merchant.String)
	if err != nil {
		return 0, fmt.Errorf("failed to update merchant categories: %w", err)
	}
	n, _ := res.RowsAffected()

	slog.Debug("updated merchant categories",
		"merchant", merchant.String,
		"category", categoryName,
		"count", n)
	return int(n), nil
}

// ClearCategories blanks the category of every transaction assigned one of
// the given names. Used when categories are deleted from the tree.
func (s *SQLiteStorage) ClearCategories(ctx context.Context, names []string) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}
	if len(names) == 0 {
		return 0, nil
	}

	total := 0
	for _, name := range names {
		res, err := s.db.ExecContext(ctx,
			`UPDATE transactions SET category = '' WHERE category = ?`, name)
		if err != nil {
			return total, fmt.Errorf("failed to clear category %q: %w", name, err)
		}
		n, _ := res.RowsAffected()
		total += int(n)
	}
	return total, nil
}

// GetTransactionCount returns the total number of stored transactions.
func (s *SQLiteStorage) GetTransactionCount(ctx context.Context) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}

	var count int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM transactions`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count transactions: %w", err)
	}
	return count, nil
}
