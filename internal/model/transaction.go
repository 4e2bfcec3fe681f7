// Package model defines the core domain models used throughout the application.
package model

import (
	"crypto/sha256"
	"fmt"
	"strings"
	"time"
)

// Source indicates which import path produced a transaction.
type Source string

const (
	// SourceCSV indicates a transaction imported from a CSV export.
	SourceCSV Source = "CSV"
	// SourceOFX indicates a transaction imported from an OFX/QFX file.
	SourceOFX Source = "OFX"
	// SourceManual indicates a transaction entered by hand.
	SourceManual Source = "MANUAL"
)

// Transaction represents a single financial transaction from any source.
// Amount is signed: expenses are negative, income and refunds positive.
type Transaction struct {
	Date         time.Time
	ID           string
	Name         string // Raw transaction description
	MerchantName string // Cleaned merchant name
	AccountID    string
	Hash         string
	Category     string // User-assigned category, leaf name from the tree
	Note         string
	Source       Source
	Amount       float64
}

// GenerateHash creates a unique hash for duplicate detection.
func (t *Transaction) GenerateHash() string {
	data := fmt.Sprintf("%s:%.2f:%s:%s",
		t.Date.Format("2006-01-02"),
		t.Amount,
		t.MerchantName,
		t.AccountID)
	hash := sha256.Sum256([]byte(data))
	return fmt.Sprintf("%x", hash)
}

// TrimmedCategory returns the category with surrounding whitespace removed.
func (t *Transaction) TrimmedCategory() string {
	return strings.TrimSpace(t.Category)
}
