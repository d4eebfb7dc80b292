package models

import (
	"time"
)

// Vertical selects which record schema and extraction prompt apply.
type Vertical string

const (
	VerticalAccounting Vertical = "accounting"
	VerticalLegal      Vertical = "legal"
)

// ParseVertical maps a raw vertical string (message attribute or storage
// folder name) to a known vertical.
func ParseVertical(s string) (Vertical, bool) {
	switch s {
	case "accounting", "accounting-docs":
		return VerticalAccounting, true
	case "legal", "legal-docs":
		return VerticalLegal, true
	}
	return "", false
}

// ProcessingStatus is the document lifecycle state.
type ProcessingStatus string

const (
	StatusPending    ProcessingStatus = "pending"
	StatusProcessing ProcessingStatus = "processing"
	StatusComplete   ProcessingStatus = "complete"
	StatusFailed     ProcessingStatus = "failed"
)

// DocumentType canonical vocabulary for extracted documents.
const (
	DocTypeInvoice       = "invoice"
	DocTypeReceipt       = "receipt"
	DocTypeBankStatement = "bank_statement"
	DocTypeOther         = "other"
)

// Document is the durable record mutated exclusively by the processing
// engine. Downstream consumers observe status transitions through the
// datastore's change notifications.
type Document struct {
	ID               string           `json:"id"`
	TenantID         string           `json:"tenantId"`
	Vertical         Vertical         `json:"vertical"`
	OriginalFilename string           `json:"originalFilename"`
	StorageKey       string           `json:"storageKey"`
	FileSizeBytes    int64            `json:"fileSizeBytes"`
	Status           ProcessingStatus `json:"processingStatus"`
	ProgressPercent  int              `json:"progressPercent"`
	Fields           ExtractedFields  `json:"extractedFields"`
	NeedsReview      bool             `json:"needsReview,omitempty"`
	FullText         string           `json:"fullText,omitempty"`
	ErrorMessage     string           `json:"errorMessage,omitempty"`
	ProcessingTimeMs int64            `json:"processingTimeMs,omitempty"`
	CreatedAt        time.Time        `json:"createdAt"`
	UpdatedAt        time.Time        `json:"updatedAt"`
}

// ExtractedFields holds the structured fields recovered from the AI
// extraction response. Amounts are produced only by the numeric normalizer;
// nil means the value was absent or unparseable.
type ExtractedFields struct {
	Vendor         string            `json:"vendor,omitempty"`
	DocumentDate   string            `json:"date,omitempty"`
	Amount         *float64          `json:"amount,omitempty"`
	Currency       string            `json:"currency,omitempty"`
	DocumentNumber string            `json:"documentNumber,omitempty"`
	TaxAmount      *float64          `json:"taxAmount,omitempty"`
	DueDate        string            `json:"dueDate,omitempty"`
	APARStatus     string            `json:"apArStatus,omitempty"`
	Description    string            `json:"description,omitempty"`
	DocumentType   string            `json:"documentType,omitempty"`
	LineItems      []LineItem        `json:"lineItems,omitempty"`
	Transactions   []BankTransaction `json:"bankTransactions,omitempty"`
}

// IsEmpty reports whether nothing usable was extracted.
func (f ExtractedFields) IsEmpty() bool {
	return f.Vendor == "" && f.Amount == nil && len(f.LineItems) == 0 &&
		len(f.Transactions) == 0 && f.Description == ""
}

// LineItem is a child record of an accounting document. Line items are
// fully replaced on every successful processing pass.
type LineItem struct {
	DocumentID  string   `json:"documentId"`
	SortOrder   int      `json:"sortOrder"`
	Description string   `json:"description"`
	Quantity    *float64 `json:"quantity,omitempty"`
	UnitPrice   *float64 `json:"unitPrice,omitempty"`
	LineTotal   *float64 `json:"lineTotal,omitempty"`
}

// BankTransaction is a child record of a bank statement document, replaced
// with the same delete-then-insert rule as line items.
type BankTransaction struct {
	DocumentID  string   `json:"documentId"`
	SortOrder   int      `json:"sortOrder"`
	Date        string   `json:"date,omitempty"`
	Description string   `json:"description"`
	Amount      *float64 `json:"amount,omitempty"`
	Balance     *float64 `json:"balance,omitempty"`
}

// EmbeddingChunk is one embedded window of the document's full text.
// ChunkIndex is ordinal and contiguous from 0.
type EmbeddingChunk struct {
	DocumentID string    `json:"documentId"`
	ChunkIndex int       `json:"chunkIndex"`
	Text       string    `json:"text"`
	Vector     []float32 `json:"vector"`
}
