package extractor

import (
	"fmt"

	"github.com/dokuflow/document-pipeline/internal/models"
)

const textPrompt = `Extract all readable text from this document.
Preserve the reading order and line structure. Return the text only, with no
commentary and no markdown formatting.`

const accountingFieldsPrompt = `You are extracting structured data from an accounting document
(invoice, receipt or bank statement). Return a single JSON object with these keys:
vendor, document_date (YYYY-MM-DD), amount, currency, document_number,
tax_amount, due_date, apar_status ("AP" or "AR"), description, document_type,
line_items (array of {description, quantity, unit_price, amount}),
transactions (array of {date, description, debit, credit, balance} for bank statements).
Amounts may use Indonesian formatting (1.234.567,89). Copy them exactly as printed.
Use null for anything not present. Return the JSON object only.`

const legalFieldsPrompt = `You are extracting structured data from a legal document
(contract, agreement or notarial deed). Return a single JSON object with these keys:
vendor (the counterparty), document_date (YYYY-MM-DD), amount (contract value),
currency, document_number, due_date (expiry or termination date),
description (one-sentence summary of the subject matter), document_type.
Use null for anything not present. Return the JSON object only.`

func textInstruction() string {
	return textPrompt
}

func structuredInstruction(vertical models.Vertical, contextText string) string {
	prompt := accountingFieldsPrompt
	if vertical == models.VerticalLegal {
		prompt = legalFieldsPrompt
	}
	if contextText != "" {
		return fmt.Sprintf("%s\n\nDocument content:\n%s", prompt, contextText)
	}
	return prompt
}

func combinedInstruction(vertical models.Vertical) string {
	return fmt.Sprintf(`Perform two tasks on this document and return one JSON object.
1. Extract all readable text, preserving reading order, into the key "full_text".
2. Extract structured fields into the key "fields" using the schema below.

%s`, structuredInstruction(vertical, ""))
}
