// Package aggregate computes per-category signed spend totals from a
// transaction list and a category tree, rolling each transaction up through
// its category's full ancestor path.
package aggregate

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"tributary/internal/category"
	"tributary/internal/model"
)

// Synthetic buckets always present in an aggregation, never part of the
// user's tree.
const (
	// BucketNoCategory collects transactions with an empty or
	// whitespace-only category.
	BucketNoCategory = "no category"
	// BucketInvalid collects transactions whose category resolves to no
	// path in the tree.
	BucketInvalid = "invalid category"
)

// Options bound the aggregation window. Either side may be nil, meaning
// unbounded. Range membership is decided at day granularity; time of day
// and timezone offsets are ignored.
type Options struct {
	Start *time.Time
	End   *time.Time
}

// Metadata carries aggregation byproducts for reporting.
type Metadata struct {
	// TotalSum is the signed sum of every filtered transaction, before
	// the output sign flip and without rounding. Anomalous categories
	// count toward it too.
	TotalSum float64
	// InvalidCategories lists the distinct unresolvable category names,
	// sorted ascending.
	InvalidCategories []string
}

// dayOf strips a timestamp down to its calendar day, discarding the zone.
func dayOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// inRange reports whether the transaction day falls inside the inclusive
// [start, end] window.
func inRange(t time.Time, opts Options) bool {
	day := dayOf(t)
	if opts.Start != nil && day.Before(dayOf(*opts.Start)) {
		return false
	}
	if opts.End != nil && day.After(dayOf(*opts.End)) {
		return false
	}
	return true
}

// Aggregate sums transaction amounts per category node. Every node on a
// resolved transaction's ancestor path is credited, so ancestors see the
// roll-up of their whole subtree. Transactions with an empty category land
// in BucketNoCategory, unresolvable ones in BucketInvalid.
//
// Amounts are accumulated exactly and each bucket is rounded to a whole
// unit, half away from zero. The returned map holds the negation of each
// internal sum (expenses are stored negative but reported as positive spend
// magnitudes) with exact-zero buckets omitted; absent means zero.
func Aggregate(txns []model.Transaction, tree *category.Tree, opts Options) (map[string]int64, Metadata) {
	idx := category.NewIndex(tree)

	sums := make(map[string]decimal.Decimal)
	for _, path := range idx.Paths() {
		for _, name := range path {
			sums[name] = decimal.Zero
		}
	}
	sums[BucketNoCategory] = decimal.Zero
	sums[BucketInvalid] = decimal.Zero

	total := decimal.Zero
	invalid := make(map[string]struct{})

	for _, txn := range txns {
		if !inRange(txn.Date, opts) {
			continue
		}

		amount := decimal.NewFromFloat(txn.Amount)
		total = total.Add(amount)

		name := txn.TrimmedCategory()
		if name == "" {
			sums[BucketNoCategory] = sums[BucketNoCategory].Add(amount)
			continue
		}

		path, ok := idx.Resolve(name)
		if !ok {
			sums[BucketInvalid] = sums[BucketInvalid].Add(amount)
			invalid[name] = struct{}{}
			continue
		}
		for _, node := range path {
			sums[node] = sums[node].Add(amount)
		}
	}

	result := make(map[string]int64)
	for name, sum := range sums {
		rounded := sum.Round(0)
		if rounded.IsZero() {
			continue
		}
		result[name] = -rounded.IntPart()
	}

	invalidNames := make([]string, 0, len(invalid))
	for name := range invalid {
		invalidNames = append(invalidNames, name)
	}
	sort.Strings(invalidNames)

	totalSum, _ := total.Float64()
	return result, Metadata{
		TotalSum:          totalSum,
		InvalidCategories: invalidNames,
	}
}
