package aggregate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tributary/internal/category"
	"tributary/internal/model"
)

func mustTree(t *testing.T, input string) *category.Tree {
	t.Helper()
	tree, err := category.Parse([]byte(input))
	require.NoError(t, err)
	return tree
}

func txn(day string, amount float64, categoryName string) model.Transaction {
	date, err := time.Parse("2006-01-02", day)
	if err != nil {
		panic(err)
	}
	return model.Transaction{
		ID:       day + categoryName,
		Date:     date,
		Name:     "test",
		Amount:   amount,
		Category: categoryName,
	}
}

func datePtr(day string) *time.Time {
	t, err := time.Parse("2006-01-02", day)
	if err != nil {
		panic(err)
	}
	return &t
}

func TestAggregate_RollUpAndSignFlip(t *testing.T) {
	tree := mustTree(t, `{"Food": {"Restaurant": null, "Canteen": null}}`)
	txns := []model.Transaction{
		txn("2024-03-01", -50, "Restaurant"),
		txn("2024-03-02", -10, ""),
	}

	result, meta := Aggregate(txns, tree, Options{})

	// Expenses are negative internally, reported as positive spend, and
	// every ancestor on the path is credited.
	assert.Equal(t, map[string]int64{
		"Food":           50,
		"Restaurant":     50,
		BucketNoCategory: 10,
	}, result)
	assert.InDelta(t, -60.0, meta.TotalSum, 1e-9)
	assert.Empty(t, meta.InvalidCategories)
}

func TestAggregate_InvalidCategory(t *testing.T) {
	tree := mustTree(t, `{"Food": {"Restaurant": null}}`)
	txns := []model.Transaction{
		txn("2024-03-01", -25, "Snacks"),
		txn("2024-03-02", -5, "Snacks"),
		txn("2024-03-03", -1, "Gadgets"),
	}

	result, meta := Aggregate(txns, tree, Options{})

	assert.Equal(t, map[string]int64{BucketInvalid: 31}, result)
	assert.Equal(t, []string{"Gadgets", "Snacks"}, meta.InvalidCategories)
	assert.InDelta(t, -31.0, meta.TotalSum, 1e-9)
}

func TestAggregate_WhitespaceCategoryIsNoCategory(t *testing.T) {
	tree := mustTree(t, `{"Food": null}`)
	txns := []model.Transaction{
		txn("2024-03-01", -10, "  "),
		txn("2024-03-01", -10, ""),
	}

	result, _ := Aggregate(txns, tree, Options{})

	assert.Equal(t, map[string]int64{BucketNoCategory: 20}, result)
}

func TestAggregate_ParentLevelFallback(t *testing.T) {
	// "Food" is internal, not a leaf; the fallback finds the first path
	// containing it, so parent-level categorization rolls up through that
	// subtree path.
	tree := mustTree(t, `{"Food": {"Restaurant": null, "Canteen": null}}`)
	txns := []model.Transaction{
		txn("2024-03-01", -30, "Food"),
	}

	result, meta := Aggregate(txns, tree, Options{})

	assert.Equal(t, map[string]int64{"Food": 30, "Restaurant": 30}, result)
	assert.Empty(t, meta.InvalidCategories)
}

func TestAggregate_DateFilter(t *testing.T) {
	tree := mustTree(t, `{"Food": null}`)
	txns := []model.Transaction{
		txn("2024-02-29", -1, "Food"),
		txn("2024-03-01", -2, "Food"),
		txn("2024-03-15", -4, "Food"),
		txn("2024-03-31", -8, "Food"),
		txn("2024-04-01", -16, "Food"),
	}

	tests := []struct {
		start     *time.Time
		end       *time.Time
		name      string
		wantFood  int64
		wantTotal float64
	}{
		{name: "unbounded", wantFood: 31, wantTotal: -31},
		{name: "start only", start: datePtr("2024-03-01"), wantFood: 30, wantTotal: -30},
		{name: "end only", end: datePtr("2024-03-31"), wantFood: 15, wantTotal: -15},
		{name: "both bounds inclusive", start: datePtr("2024-03-01"), end: datePtr("2024-03-31"), wantFood: 14, wantTotal: -14},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, meta := Aggregate(txns, tree, Options{Start: tt.start, End: tt.end})
			assert.Equal(t, tt.wantFood, result["Food"])
			assert.InDelta(t, tt.wantTotal, meta.TotalSum, 1e-9)
		})
	}
}

func TestAggregate_DayGranularityIgnoresTimeAndZone(t *testing.T) {
	tree := mustTree(t, `{"Food": null}`)
	zone := time.FixedZone("UTC+8", 8*3600)
	late := model.Transaction{
		ID:       "late",
		Date:     time.Date(2024, 3, 31, 23, 59, 0, 0, zone),
		Name:     "late dinner",
		Amount:   -7,
		Category: "Food",
	}

	end := datePtr("2024-03-31")
	result, _ := Aggregate([]model.Transaction{late}, tree, Options{End: end})

	// 23:59 on the last day still falls inside the inclusive range.
	assert.Equal(t, int64(7), result["Food"])
}

func TestAggregate_ZeroBucketsDropped(t *testing.T) {
	tree := mustTree(t, `{"Food": {"Restaurant": null, "Canteen": null}, "Transport": null}`)
	txns := []model.Transaction{
		txn("2024-03-01", -12, "Restaurant"),
		// Cancels out to zero, so the bucket disappears from the output.
		txn("2024-03-02", -20, "Canteen"),
		txn("2024-03-03", 20, "Canteen"),
	}

	result, _ := Aggregate(txns, tree, Options{})

	assert.Equal(t, map[string]int64{"Food": 12, "Restaurant": 12}, result)
	assert.NotContains(t, result, "Canteen")
	assert.NotContains(t, result, "Transport")
	assert.NotContains(t, result, BucketNoCategory)
	assert.NotContains(t, result, BucketInvalid)
}

func TestAggregate_RoundsHalfAwayFromZero(t *testing.T) {
	tree := mustTree(t, `{"Food": null, "Transport": null}`)
	txns := []model.Transaction{
		txn("2024-03-01", -10.5, "Food"),
		txn("2024-03-01", 10.5, "Transport"),
	}

	result, meta := Aggregate(txns, tree, Options{})

	// -10.5 rounds to -11, then flips to 11; 10.5 rounds to 11, flips to -11.
	assert.Equal(t, int64(11), result["Food"])
	assert.Equal(t, int64(-11), result["Transport"])
	// The total is unrounded and keeps the internal sign convention.
	assert.InDelta(t, 0.0, meta.TotalSum, 1e-9)
}

func TestAggregate_TotalIncludesAnomalousCategories(t *testing.T) {
	tree := mustTree(t, `{"Food": null}`)
	txns := []model.Transaction{
		txn("2024-03-01", -10, "Food"),
		txn("2024-03-02", -20, ""),
		txn("2024-03-03", -30, "Nope"),
	}

	_, meta := Aggregate(txns, tree, Options{})

	assert.InDelta(t, -60.0, meta.TotalSum, 1e-9)
}

func TestAggregate_Idempotent(t *testing.T) {
	tree := mustTree(t, `{"Food": {"Restaurant": null}, "Transport": null}`)
	txns := []model.Transaction{
		txn("2024-03-01", -50, "Restaurant"),
		txn("2024-03-02", -10, "Transport"),
		txn("2024-03-03", -5, "Nope"),
		txn("2024-03-04", -1, ""),
	}

	result1, meta1 := Aggregate(txns, tree, Options{})
	result2, meta2 := Aggregate(txns, tree, Options{})

	assert.Equal(t, result1, result2)
	assert.Equal(t, meta1, meta2)
}

func TestAggregate_SumsBalanceAgainstTotal(t *testing.T) {
	tree := mustTree(t, `{"Food": {"Restaurant": null, "Canteen": null}, "Transport": null}`)
	txns := []model.Transaction{
		txn("2024-03-01", -50, "Restaurant"),
		txn("2024-03-02", -25, "Canteen"),
		txn("2024-03-03", -10, "Transport"),
		txn("2024-03-04", -5, ""),
		txn("2024-03-05", -4, "Nope"),
	}

	result, meta := Aggregate(txns, tree, Options{})

	// Leaf-level buckets (excluding roll-up duplicates on ancestors) plus
	// synthetic buckets account for the whole negated total.
	leafSum := result["Restaurant"] + result["Canteen"] + result["Transport"] +
		result[BucketNoCategory] + result[BucketInvalid]
	assert.InDelta(t, -meta.TotalSum, float64(leafSum), 0.5)

	// Ancestors hold the roll-up of their subtree.
	assert.Equal(t, result["Restaurant"]+result["Canteen"], result["Food"])
}

func TestAggregate_EmptyInputs(t *testing.T) {
	tree := mustTree(t, `{"Food": null}`)

	result, meta := Aggregate(nil, tree, Options{})

	assert.Empty(t, result)
	assert.Zero(t, meta.TotalSum)
	assert.Empty(t, meta.InvalidCategories)
}
