package parser

import (
	"strconv"
	"strings"

	"github.com/dokuflow/document-pipeline/internal/models"
)

// CleanFields maps a decoded JSON object onto the structured field record.
// Unknown keys are dropped, numeric-looking values go through the numeric
// normalizer, and the document type is canonicalized to the fixed
// vocabulary.
func CleanFields(m map[string]interface{}) models.ExtractedFields {
	fields := models.ExtractedFields{
		Vendor:         pickString(m, "vendor", "vendor_name", "merchant", "merchant_name", "supplier", "seller"),
		DocumentDate:   pickString(m, "date", "document_date", "invoice_date", "transaction_date", "tx_date"),
		Currency:       strings.ToUpper(pickString(m, "currency", "currency_code")),
		DocumentNumber: pickString(m, "document_number", "invoice_number", "receipt_number", "number", "reference"),
		DueDate:        pickString(m, "due_date", "payment_due"),
		APARStatus:     strings.ToLower(pickString(m, "ap_ar_status", "ap_ar", "payable_receivable")),
		Description:    pickString(m, "description", "notes", "memo"),
		Amount:         pickAmount(m, "amount", "total", "total_amount", "grand_total"),
		TaxAmount:      pickAmount(m, "tax_amount", "tax", "vat", "ppn"),
	}

	fields.DocumentType = CanonicalDocumentType(pickString(m, "document_type", "doc_type", "type", "category"))
	fields.LineItems = cleanLineItems(pickSlice(m, "line_items", "items", "lines"))
	fields.Transactions = cleanTransactions(pickSlice(m, "bank_transactions", "transactions", "mutations"))

	return fields
}

// CanonicalDocumentType maps a free-form type string onto the fixed
// vocabulary by case-insensitive substring matching.
func CanonicalDocumentType(s string) string {
	if strings.TrimSpace(s) == "" {
		return ""
	}
	lower := strings.ToLower(s)
	switch {
	case strings.Contains(lower, "invoice") || strings.Contains(lower, "faktur"):
		return models.DocTypeInvoice
	case strings.Contains(lower, "receipt") || strings.Contains(lower, "kwitansi"):
		return models.DocTypeReceipt
	case strings.Contains(lower, "bank") || strings.Contains(lower, "statement") || strings.Contains(lower, "rekening"):
		return models.DocTypeBankStatement
	default:
		return models.DocTypeOther
	}
}

func cleanLineItems(raw []interface{}) []models.LineItem {
	if len(raw) == 0 {
		return nil
	}
	items := make([]models.LineItem, 0, len(raw))
	for _, entry := range raw {
		m, ok := entry.(map[string]interface{})
		if !ok {
			continue
		}
		item := models.LineItem{
			SortOrder:   len(items),
			Description: pickString(m, "description", "name", "item"),
			Quantity:    pickAmount(m, "quantity", "qty"),
			UnitPrice:   pickAmount(m, "unit_price", "price", "unit_cost"),
			LineTotal:   pickAmount(m, "line_total", "total", "amount", "subtotal"),
		}
		if item.Description == "" && item.LineTotal == nil {
			continue
		}
		items = append(items, item)
	}
	return items
}

func cleanTransactions(raw []interface{}) []models.BankTransaction {
	if len(raw) == 0 {
		return nil
	}
	txs := make([]models.BankTransaction, 0, len(raw))
	for _, entry := range raw {
		m, ok := entry.(map[string]interface{})
		if !ok {
			continue
		}
		tx := models.BankTransaction{
			SortOrder:   len(txs),
			Date:        pickString(m, "date", "tx_date", "transaction_date"),
			Description: pickString(m, "description", "memo", "detail"),
			Amount:      pickAmount(m, "amount", "value", "debit", "credit"),
			Balance:     pickAmount(m, "balance", "running_balance"),
		}
		if tx.Description == "" && tx.Amount == nil {
			continue
		}
		txs = append(txs, tx)
	}
	return txs
}

func pickString(m map[string]interface{}, keys ...string) string {
	for _, k := range keys {
		v, ok := m[k]
		if !ok {
			continue
		}
		switch t := v.(type) {
		case string:
			if s := strings.TrimSpace(t); s != "" {
				return s
			}
		case float64:
			return strconv.FormatFloat(t, 'f', -1, 64)
		}
	}
	return ""
}

func pickAmount(m map[string]interface{}, keys ...string) *float64 {
	for _, k := range keys {
		v, ok := m[k]
		if !ok {
			continue
		}
		switch t := v.(type) {
		case float64:
			f := t
			return &f
		case string:
			if amt := NormalizeAmount(t); amt != nil {
				return amt
			}
		}
	}
	return nil
}

func pickSlice(m map[string]interface{}, keys ...string) []interface{} {
	for _, k := range keys {
		if v, ok := m[k].([]interface{}); ok {
			return v
		}
	}
	return nil
}
