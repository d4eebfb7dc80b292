package extractor

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"sync"

	"github.com/dokuflow/document-pipeline/internal/models"
	"github.com/dokuflow/document-pipeline/internal/parser"
	"github.com/dokuflow/document-pipeline/pkg/aiclient"
	"github.com/dokuflow/document-pipeline/pkg/converters"
	"github.com/dokuflow/document-pipeline/pkg/logger"
)

// ErrNoText marks a document whose text could not be extracted by any
// strategy. Text is mandatory; the engine fails the document on this error.
var ErrNoText = errors.New("no text extracted")

// Result is the combined output of one routed extraction pass.
type Result struct {
	FullText string
	Fields   models.ExtractedFields
	// NeedsReview is set when structured extraction fell all the way
	// through to the default record.
	NeedsReview bool
}

// QualityPredicate decides whether a combined-call structured record is
// worth keeping. When it returns false the record is discarded and a
// dedicated structured call is issued instead.
type QualityPredicate func(models.ExtractedFields) bool

// DefaultQuality discards a record only when it has no vendor, no amount
// and no line items.
func DefaultQuality(f models.ExtractedFields) bool {
	return f.Vendor != "" || f.Amount != nil || len(f.LineItems) > 0
}

// Config holds the routing thresholds.
type Config struct {
	// SmallThreshold selects the single combined call. Default 500 KiB.
	SmallThreshold int64
	// LargeThreshold selects the chunked comprehensive path. Default 2 MiB.
	LargeThreshold int64
	// SegmentBytes is the sub-range size for comprehensive text extraction.
	SegmentBytes int64
	Quality      QualityPredicate
}

func (c *Config) applyDefaults() {
	if c.SmallThreshold == 0 {
		c.SmallThreshold = 500 * 1024
	}
	if c.LargeThreshold == 0 {
		c.LargeThreshold = 2 * 1024 * 1024
	}
	if c.SegmentBytes == 0 {
		c.SegmentBytes = c.LargeThreshold
	}
	if c.Quality == nil {
		c.Quality = DefaultQuality
	}
}

// Router decides, from byte size and file kind, which combination of AI
// calls to issue.
type Router struct {
	client       aiclient.Client
	spreadsheets *converters.SpreadsheetConverter
	cfg          Config
	logger       logger.Logger
}

func NewRouter(client aiclient.Client, cfg Config, log logger.Logger) *Router {
	cfg.applyDefaults()
	return &Router{
		client:       client,
		spreadsheets: converters.NewSpreadsheetConverter(),
		cfg:          cfg,
		logger:       log,
	}
}

// Extract runs the size-based strategy over the document bytes. onText, when
// non-nil, is invoked once as soon as usable full text has been recovered,
// before structured extraction completes.
func (r *Router) Extract(ctx context.Context, data []byte, filename string, vertical models.Vertical, onText func()) (*Result, error) {
	ext := filepath.Ext(filename)
	mimeType := detectMime(data, ext)

	if converters.IsSpreadsheetExt(ext) {
		return r.extractSpreadsheet(ctx, data, vertical, onText)
	}

	if strings.HasPrefix(mimeType, "image/") {
		if normalized, format := converters.NormalizeImage(data); format != "" {
			data = normalized
			mimeType = "image/" + format
		}
	}

	size := int64(len(data))
	switch {
	case size <= r.cfg.SmallThreshold:
		return r.extractSmall(ctx, data, mimeType, vertical, onText)
	case size <= r.cfg.LargeThreshold:
		return r.extractStandard(ctx, data, mimeType, vertical, onText)
	default:
		return r.extractComprehensive(ctx, data, mimeType, vertical, onText)
	}
}

func notifyText(onText func()) {
	if onText != nil {
		onText()
	}
}

// extractSpreadsheet bypasses AI text extraction: the text is derived
// deterministically and fed as additional context into the structured call.
func (r *Router) extractSpreadsheet(ctx context.Context, data []byte, vertical models.Vertical, onText func()) (*Result, error) {
	text, err := r.spreadsheets.Convert(data)
	if err != nil {
		return nil, fmt.Errorf("spreadsheet conversion failed: %w", err)
	}
	if strings.TrimSpace(text) == "" {
		return nil, ErrNoText
	}
	notifyText(onText)

	res := &Result{FullText: text}
	res.Fields, res.NeedsReview = r.structuredFromText(ctx, text, vertical)
	return res, nil
}

// extractSmall issues one combined call. A sparse structured portion is
// discarded (full text is kept) and a dedicated structured call follows; a
// combined response without usable text falls back to the standard path.
func (r *Router) extractSmall(ctx context.Context, data []byte, mimeType string, vertical models.Vertical, onText func()) (*Result, error) {
	resp, err := r.client.Generate(ctx, aiclient.GenerateRequest{
		File:        data,
		MimeType:    mimeType,
		Instruction: combinedInstruction(vertical),
		Combined:    true,
	})
	if err != nil {
		r.logger.Warn("Combined extraction call failed, falling back to standard path",
			logger.Error(err),
		)
		return r.extractStandard(ctx, data, mimeType, vertical, onText)
	}

	obj, ok := parser.ExtractJSON(resp)
	if !ok {
		// No structure at all; the raw response may still be the text.
		if strings.TrimSpace(resp) == "" {
			return r.extractStandard(ctx, data, mimeType, vertical, onText)
		}
		notifyText(onText)
		res := &Result{FullText: resp}
		res.Fields, res.NeedsReview = r.structuredFromFile(ctx, data, mimeType, vertical)
		return res, nil
	}

	fullText := combinedText(obj)
	if strings.TrimSpace(fullText) == "" {
		return r.extractStandard(ctx, data, mimeType, vertical, onText)
	}
	notifyText(onText)

	fields := combinedFields(obj)
	if !r.cfg.Quality(fields) {
		r.logger.Debug("Combined structured record too sparse, re-extracting fields")
		res := &Result{FullText: fullText}
		res.Fields, res.NeedsReview = r.structuredFromFile(ctx, data, mimeType, vertical)
		return res, nil
	}

	return &Result{FullText: fullText, Fields: fields}, nil
}

// extractStandard issues two independent calls so a failure in one does not
// block the other.
func (r *Router) extractStandard(ctx context.Context, data []byte, mimeType string, vertical models.Vertical, onText func()) (*Result, error) {
	var (
		wg          sync.WaitGroup
		fullText    string
		textErr     error
		fields      models.ExtractedFields
		needsReview bool
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		fullText, textErr = r.client.Generate(ctx, aiclient.GenerateRequest{
			File:        data,
			MimeType:    mimeType,
			Instruction: textInstruction(),
		})
		if textErr == nil && strings.TrimSpace(fullText) != "" {
			notifyText(onText)
		}
	}()
	go func() {
		defer wg.Done()
		fields, needsReview = r.structuredFromFile(ctx, data, mimeType, vertical)
	}()
	wg.Wait()

	if textErr != nil {
		return nil, fmt.Errorf("text extraction failed: %w", textErr)
	}
	if strings.TrimSpace(fullText) == "" {
		return nil, ErrNoText
	}

	return &Result{FullText: fullText, Fields: fields, NeedsReview: needsReview}, nil
}

// extractComprehensive splits large files into sequential sub-ranges, one
// text call per sub-range concatenated in order, then one structured call
// against the original bytes.
func (r *Router) extractComprehensive(ctx context.Context, data []byte, mimeType string, vertical models.Vertical, onText func()) (*Result, error) {
	var sb strings.Builder
	for start := int64(0); start < int64(len(data)); start += r.cfg.SegmentBytes {
		end := start + r.cfg.SegmentBytes
		if end > int64(len(data)) {
			end = int64(len(data))
		}

		text, err := r.client.Generate(ctx, aiclient.GenerateRequest{
			File:        data[start:end],
			MimeType:    mimeType,
			Instruction: textInstruction(),
		})
		if err != nil {
			return nil, fmt.Errorf("text extraction failed for range %d-%d: %w", start, end, err)
		}
		sb.WriteString(text)
	}

	fullText := sb.String()
	if strings.TrimSpace(fullText) == "" {
		return nil, ErrNoText
	}
	notifyText(onText)

	res := &Result{FullText: fullText}
	res.Fields, res.NeedsReview = r.structuredFromFile(ctx, data, mimeType, vertical)
	return res, nil
}

// structuredFromFile runs a structured-fields call against file bytes.
// Structured failure is never fatal: the default record is substituted.
func (r *Router) structuredFromFile(ctx context.Context, data []byte, mimeType string, vertical models.Vertical) (models.ExtractedFields, bool) {
	resp, err := r.client.Generate(ctx, aiclient.GenerateRequest{
		File:        data,
		MimeType:    mimeType,
		Instruction: structuredInstruction(vertical, ""),
	})
	if err != nil {
		r.logger.Warn("Structured extraction call failed, substituting defaults",
			logger.Error(err),
		)
		return models.ExtractedFields{}, true
	}
	return r.parseStructured(resp)
}

// structuredFromText runs a structured-fields call with deterministic text
// (spreadsheet rendering) as additional context.
func (r *Router) structuredFromText(ctx context.Context, text string, vertical models.Vertical) (models.ExtractedFields, bool) {
	resp, err := r.client.Generate(ctx, aiclient.GenerateRequest{
		Instruction: structuredInstruction(vertical, text),
	})
	if err != nil {
		r.logger.Warn("Structured extraction call failed, substituting defaults",
			logger.Error(err),
		)
		return models.ExtractedFields{}, true
	}
	return r.parseStructured(resp)
}

func (r *Router) parseStructured(resp string) (models.ExtractedFields, bool) {
	res := parser.ParseResponse(resp)
	return res.Fields, res.Outcome == parser.OutcomeFailure
}

func combinedText(obj map[string]interface{}) string {
	for _, key := range []string{"full_text", "fullText", "text", "content"} {
		if s, ok := obj[key].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

func combinedFields(obj map[string]interface{}) models.ExtractedFields {
	if sub, ok := obj["fields"].(map[string]interface{}); ok {
		return parser.CleanFields(sub)
	}
	if sub, ok := obj["structured_fields"].(map[string]interface{}); ok {
		return parser.CleanFields(sub)
	}
	return parser.CleanFields(obj)
}

func detectMime(data []byte, ext string) string {
	switch strings.ToLower(strings.TrimPrefix(ext, ".")) {
	case "pdf":
		return "application/pdf"
	case "jpg", "jpeg":
		return "image/jpeg"
	case "png":
		return "image/png"
	case "xlsx", "xlsm":
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}

	sniffLen := len(data)
	if sniffLen > 512 {
		sniffLen = 512
	}
	return http.DetectContentType(data[:sniffLen])
}
