package model

import (
	"testing"
	"time"
)

func TestTransaction_GenerateHash(t *testing.T) {
	base := Transaction{
		ID:           "t1",
		Date:         time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
		Name:         "COFFEE HOUSE",
		MerchantName: "Coffee House",
		AccountID:    "acc1",
		Amount:       -5.25,
	}

	tests := []struct {
		mutate   func(*Transaction)
		name     string
		wantSame bool
	}{
		{
			name:     "identical transactions have same hash",
			mutate:   func(_ *Transaction) {},
			wantSame: true,
		},
		{
			name:     "time of day does not change the hash",
			mutate:   func(txn *Transaction) { txn.Date = txn.Date.Add(6 * time.Hour) },
			wantSame: true,
		},
		{
			name:     "different amounts produce different hashes",
			mutate:   func(txn *Transaction) { txn.Amount = -6.25 },
			wantSame: false,
		},
		{
			name:     "different days produce different hashes",
			mutate:   func(txn *Transaction) { txn.Date = txn.Date.AddDate(0, 0, 1) },
			wantSame: false,
		},
		{
			name:     "different merchants produce different hashes",
			mutate:   func(txn *Transaction) { txn.MerchantName = "Bakery" },
			wantSame: false,
		},
		{
			name:     "different accounts produce different hashes",
			mutate:   func(txn *Transaction) { txn.AccountID = "acc2" },
			wantSame: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			other := base
			tt.mutate(&other)
			if same := base.GenerateHash() == other.GenerateHash(); same != tt.wantSame {
				t.Errorf("hash equality = %v, want %v", same, tt.wantSame)
			}
		})
	}
}

func TestTransaction_TrimmedCategory(t *testing.T) {
	txn := Transaction{Category: "  Food  "}
	if got := txn.TrimmedCategory(); got != "Food" {
		t.Errorf("TrimmedCategory() = %q, want %q", got, "Food")
	}

	txn.Category = "   "
	if got := txn.TrimmedCategory(); got != "" {
		t.Errorf("TrimmedCategory() = %q, want empty", got)
	}
}
