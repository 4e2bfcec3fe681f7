package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"tributary/internal/category"
)

// defaultTree seeds new databases with a minimal starting taxonomy.
const defaultTree = `{"Food":{"Groceries":null,"Restaurant":null},"Transport":null,"Housing":null}`

// GetCategoryTree loads the stored category tree. A database that has never
// saved one gets the default starter tree.
func (s *SQLiteStorage) GetCategoryTree(ctx context.Context) (*category.Tree, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	var treeJSON string
	err := s.db.QueryRowContext(ctx,
		`SELECT tree_json FROM category_tree WHERE id = 1`).Scan(&treeJSON)
	if errors.Is(err, sql.ErrNoRows) {
		treeJSON = defaultTree
	} else if err != nil {
		return nil, fmt.Errorf("failed to load category tree: %w", err)
	}

	tree, err := category.Parse([]byte(treeJSON))
	if err != nil {
		return nil, fmt.Errorf("stored category tree is unreadable: %w", err)
	}
	return tree, nil
}

// SaveCategoryTree stores the tree as canonical JSON, replacing any
// previous version.
func (s *SQLiteStorage) SaveCategoryTree(ctx context.Context, tree *category.Tree) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if tree == nil {
		return fmt.Errorf("%w: tree", ErrNilParameter)
	}

	treeJSON, err := tree.MarshalJSON()
	if err != nil {
		return fmt.Errorf("failed to encode category tree: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO category_tree (id, tree_json, updated_at)
		VALUES (1, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(id) DO UPDATE SET tree_json = excluded.tree_json, updated_at = CURRENT_TIMESTAMP
	`, string(treeJSON))
	if err != nil {
		return fmt.Errorf("failed to save category tree: %w", err)
	}
	return nil
}

// ReplaceCategoryTree swaps in a new tree and blanks the category of any
// transaction whose leaf no longer exists, so stale assignments don't feed
// the invalid-category bucket forever. Returns the number of transactions
// whose category was cleared.
func (s *SQLiteStorage) ReplaceCategoryTree(ctx context.Context, newTree *category.Tree) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}

	oldTree, err := s.GetCategoryTree(ctx)
	if err != nil {
		return 0, err
	}

	oldLeaves := category.Leaves(oldTree)
	newLeaves := make(map[string]struct{})
	for _, name := range category.Leaves(newTree) {
		newLeaves[name] = struct{}{}
	}

	var deleted []string
	for _, name := range oldLeaves {
		if _, ok := newLeaves[name]; !ok {
			deleted = append(deleted, name)
		}
	}

	cleared, err := s.ClearCategories(ctx, deleted)
	if err != nil {
		return 0, err
	}

	if err := s.SaveCategoryTree(ctx, newTree); err != nil {
		return cleared, err
	}

	if len(deleted) > 0 {
		slog.Info("replaced category tree",
			"deleted_leaves", len(deleted),
			"cleared_transactions", cleared)
	}
	return cleared, nil
}
