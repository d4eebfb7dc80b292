package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dokuflow/document-pipeline/internal/models"
)

func TestParseResponseFencedBlock(t *testing.T) {
	res := ParseResponse("```json\n{\"vendor\":\"X\"}\n```")

	assert.Equal(t, "X", res.Fields.Vendor)
	assert.Equal(t, OutcomePartial, res.Outcome)
	assert.Contains(t, res.Missing, "amount")
	assert.Contains(t, res.Missing, "date")
}

func TestParseResponseBraceScan(t *testing.T) {
	res := ParseResponse(`Sure, here it is: {"vendor":"X"} hope that helps`)

	assert.Equal(t, "X", res.Fields.Vendor)
	assert.Equal(t, OutcomePartial, res.Outcome)
}

func TestParseResponseDirect(t *testing.T) {
	res := ParseResponse(`{"vendor":"Acme","amount":"1.234.567,00","currency":"idr","date":"2024-05-01"}`)

	assert.Equal(t, OutcomeSuccess, res.Outcome)
	assert.Equal(t, "Acme", res.Fields.Vendor)
	require.NotNil(t, res.Fields.Amount)
	assert.InDelta(t, 1234567.00, *res.Fields.Amount, 1e-9)
	assert.Equal(t, "IDR", res.Fields.Currency)
}

func TestParseResponseNestedBraces(t *testing.T) {
	raw := `prefix {"vendor":"Y","line_items":[{"description":"svc {special}","total":"100"}]} suffix`
	res := ParseResponse(raw)

	assert.Equal(t, "Y", res.Fields.Vendor)
	require.Len(t, res.Fields.LineItems, 1)
	assert.Equal(t, "svc {special}", res.Fields.LineItems[0].Description)
}

func TestParseResponseRegexReconstruction(t *testing.T) {
	raw := "The document appears to be from:\nVendor: Toko Maju Jaya\nTotal: Rp 1.500.000\nDated 2024-03-15, no json here"
	res := ParseResponse(raw)

	assert.Equal(t, OutcomePartial, res.Outcome)
	assert.Equal(t, "Toko Maju Jaya", res.Fields.Vendor)
	require.NotNil(t, res.Fields.Amount)
	assert.InDelta(t, 1500000, *res.Fields.Amount, 1e-9)
	assert.Equal(t, "IDR", res.Fields.Currency)
	assert.Equal(t, "2024-03-15", res.Fields.DocumentDate)
}

func TestParseResponseEmptyInput(t *testing.T) {
	res := ParseResponse("")

	assert.Equal(t, OutcomeFailure, res.Outcome)
	assert.True(t, res.Fields.IsEmpty())
}

func TestParseResponseGarbage(t *testing.T) {
	res := ParseResponse("no structure whatsoever")

	assert.Equal(t, OutcomeFailure, res.Outcome)
	assert.True(t, res.Fields.IsEmpty())
}

func TestParseResponseMalformedJSONFallsThrough(t *testing.T) {
	// Broken JSON inside a fence, but the amount label is still regex-visible.
	raw := "```json\n{\"vendor\": \n```\nTotal: $250.00"
	res := ParseResponse(raw)

	assert.Equal(t, OutcomePartial, res.Outcome)
	require.NotNil(t, res.Fields.Amount)
	assert.InDelta(t, 250.00, *res.Fields.Amount, 1e-9)
	assert.Equal(t, "USD", res.Fields.Currency)
}

func TestCleanFieldsDropsUnknownKeys(t *testing.T) {
	fields := CleanFields(map[string]interface{}{
		"vendor":        "Acme",
		"banana":        "yellow",
		"amount":        "2.000,50",
		"document_type": "Tax Invoice 2024",
	})

	assert.Equal(t, "Acme", fields.Vendor)
	require.NotNil(t, fields.Amount)
	assert.InDelta(t, 2000.50, *fields.Amount, 1e-9)
	assert.Equal(t, models.DocTypeInvoice, fields.DocumentType)
}

func TestCanonicalDocumentType(t *testing.T) {
	tests := map[string]string{
		"Tax Invoice":         models.DocTypeInvoice,
		"FAKTUR PAJAK":        models.DocTypeInvoice,
		"store receipt":       models.DocTypeReceipt,
		"Kwitansi":            models.DocTypeReceipt,
		"Bank Statement":      models.DocTypeBankStatement,
		"rekening koran":      models.DocTypeBankStatement,
		"purchase order":      models.DocTypeOther,
		"something unrelated": models.DocTypeOther,
		"":                    "",
		"   ":                 "",
	}
	for in, want := range tests {
		assert.Equal(t, want, CanonicalDocumentType(in), "input %q", in)
	}
}

func TestCleanFieldsTransactions(t *testing.T) {
	fields := CleanFields(map[string]interface{}{
		"document_type": "bank statement",
		"transactions": []interface{}{
			map[string]interface{}{"date": "2024-01-02", "description": "transfer in", "amount": "1.000.000", "balance": "5.000.000"},
			map[string]interface{}{"description": "", "amount": nil},
			map[string]interface{}{"date": "2024-01-03", "description": "admin fee", "amount": -6500.0},
		},
	})

	require.Len(t, fields.Transactions, 2)
	assert.Equal(t, 0, fields.Transactions[0].SortOrder)
	assert.Equal(t, 1, fields.Transactions[1].SortOrder)
	require.NotNil(t, fields.Transactions[0].Amount)
	assert.InDelta(t, 1000000, *fields.Transactions[0].Amount, 1e-9)
	require.NotNil(t, fields.Transactions[1].Amount)
	assert.InDelta(t, -6500, *fields.Transactions[1].Amount, 1e-9)
}
