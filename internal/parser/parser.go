package parser

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/dokuflow/document-pipeline/internal/models"
)

// Outcome classifies how much structure was recovered from a response.
type Outcome int

const (
	// OutcomeSuccess means a JSON object was parsed and the core fields
	// (vendor, amount, date) are all populated.
	OutcomeSuccess Outcome = iota
	// OutcomePartial means some fields were recovered but core fields are
	// missing; Missing lists them.
	OutcomePartial
	// OutcomeFailure means nothing usable was recovered; Fields holds the
	// canonical empty record and the document is worth a manual review.
	OutcomeFailure
)

// Result is the outcome of parsing one AI extraction response.
type Result struct {
	Outcome Outcome
	Fields  models.ExtractedFields
	Missing []string
}

// jsonStrategy attempts to locate and decode a JSON object inside raw text.
type jsonStrategy func(s string) (map[string]interface{}, bool)

// The strategies are tried in order; first success wins. Regex
// reconstruction and the default record act as the final fallbacks.
var jsonStrategies = []jsonStrategy{
	parseDirect,
	parseFencedBlock,
	parseBraceScan,
}

// ParseResponse turns a free-form AI response into a structured record.
// It never returns an error: malformed input degrades through the fallback
// chain down to the canonical empty record.
func ParseResponse(raw string) Result {
	for _, strat := range jsonStrategies {
		if m, ok := strat(raw); ok {
			fields := CleanFields(m)
			missing := missingCoreFields(fields)
			if len(missing) == 0 {
				return Result{Outcome: OutcomeSuccess, Fields: fields}
			}
			return Result{Outcome: OutcomePartial, Fields: fields, Missing: missing}
		}
	}

	if fields, ok := reconstructFromText(raw); ok {
		return Result{Outcome: OutcomePartial, Fields: fields, Missing: missingCoreFields(fields)}
	}

	return Result{Outcome: OutcomeFailure, Fields: models.ExtractedFields{}}
}

// ExtractJSON runs only the JSON location strategies, returning the decoded
// object. Used by the extraction router for combined responses whose shape
// is not the flat field record.
func ExtractJSON(raw string) (map[string]interface{}, bool) {
	for _, strat := range jsonStrategies {
		if m, ok := strat(raw); ok {
			return m, true
		}
	}
	return nil, false
}

func parseDirect(s string) (map[string]interface{}, bool) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "{") {
		return nil, false
	}
	var m map[string]interface{}
	if err := json.Unmarshal([]byte(s), &m); err != nil {
		return nil, false
	}
	return m, true
}

var fencedBlock = regexp.MustCompile("(?s)```(?:json|JSON)?\\s*(.*?)```")

func parseFencedBlock(s string) (map[string]interface{}, bool) {
	match := fencedBlock.FindStringSubmatch(s)
	if match == nil {
		return nil, false
	}
	var m map[string]interface{}
	if err := json.Unmarshal([]byte(strings.TrimSpace(match[1])), &m); err != nil {
		return nil, false
	}
	return m, true
}

// parseBraceScan finds the first '{' and its matching balanced '}' while
// honoring string literals, then decodes that substring.
func parseBraceScan(s string) (map[string]interface{}, bool) {
	start := strings.Index(s, "{")
	if start < 0 {
		return nil, false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		ch := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				var m map[string]interface{}
				if err := json.Unmarshal([]byte(s[start:i+1]), &m); err != nil {
					return nil, false
				}
				return m, true
			}
		}
	}
	return nil, false
}

var (
	reVendor = regexp.MustCompile(`(?im)^[ \t]*(?:vendor|merchant|supplier|seller)(?:[ \t]+name)?[ \t]*[:\-][ \t]*([^\n,;]+)`)
	reAmount = regexp.MustCompile(`(?im)(?:grand[ \t]*total|total|amount|jumlah)[ \t]*[:\-]?[ \t]*(Rp|IDR|USD|SGD|EUR|\$|€)?[ \t]*([\d][\d.,]*)`)
	reDate   = regexp.MustCompile(`\b(\d{4}-\d{2}-\d{2}|\d{1,2}[/.-]\d{1,2}[/.-]\d{2,4})\b`)
)

// reconstructFromText applies labeled regex extractors against the raw text
// when no parseable JSON exists.
func reconstructFromText(raw string) (models.ExtractedFields, bool) {
	var fields models.ExtractedFields
	found := false

	if m := reVendor.FindStringSubmatch(raw); m != nil {
		fields.Vendor = strings.TrimSpace(m[1])
		found = true
	}
	if m := reAmount.FindStringSubmatch(raw); m != nil {
		if amt := NormalizeAmount(m[2]); amt != nil {
			fields.Amount = amt
			found = true
		}
		switch strings.ToUpper(strings.TrimSpace(m[1])) {
		case "RP", "IDR":
			fields.Currency = "IDR"
		case "$", "USD":
			fields.Currency = "USD"
		case "€", "EUR":
			fields.Currency = "EUR"
		case "SGD":
			fields.Currency = "SGD"
		}
	}
	if m := reDate.FindStringSubmatch(raw); m != nil {
		fields.DocumentDate = m[1]
		found = true
	}

	return fields, found
}

func missingCoreFields(f models.ExtractedFields) []string {
	var missing []string
	if f.Vendor == "" {
		missing = append(missing, "vendor")
	}
	if f.Amount == nil {
		missing = append(missing, "amount")
	}
	if f.DocumentDate == "" {
		missing = append(missing, "date")
	}
	return missing
}
