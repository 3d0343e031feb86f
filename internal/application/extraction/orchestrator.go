// Package extractionapp turns uploaded documents into extracted entities.
// Spreadsheets go through the deterministic processor; sheets it cannot
// type, PDFs, images and plain text go to an external model.
package extractionapp

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/arqcashflow/backend/internal/domain/extraction"
	sheetimport "github.com/arqcashflow/backend/internal/infrastructure/import"
	"github.com/arqcashflow/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Document is one uploaded file.
type Document struct {
	Filename    string
	ContentType string
	Data        []byte
	Hint        string
}

// Sheet extraction modes
const (
	ModeDeterministic = "deterministic"
	ModeAI            = "ai"
	ModeSkipped       = "skipped"
)

// SheetSummary reports how one sheet was handled.
type SheetSummary struct {
	Name      string                   `json:"name"`
	HeaderRow int                      `json:"headerRow"`
	Mode      string                   `json:"mode"`
	TypedRows int                      `json:"typedRows"`
	Entities  int                      `json:"entities"`
	Sections  []extraction.DataSection `json:"sections"`
	Warnings  []string                 `json:"warnings,omitempty"`
}

// Outcome is the result of extracting one document. Failed marks a
// systematic failure (unreadable file or model error); Entities may still
// hold what was recovered before it.
type Outcome struct {
	Entities []extraction.ExtractedEntity `json:"entities"`
	Sheets   []SheetSummary               `json:"sheets"`
	Errors   []string                     `json:"errors"`
	Failed   bool                         `json:"failed"`
}

func newOutcome() Outcome {
	return Outcome{
		Entities: []extraction.ExtractedEntity{},
		Sheets:   []SheetSummary{},
		Errors:   []string{},
	}
}

func (o *Outcome) fail(format string, args ...any) {
	o.Failed = true
	o.Errors = append(o.Errors, fmt.Sprintf(format, args...))
}

type documentKind int

const (
	kindUnsupported documentKind = iota
	kindSpreadsheet
	kindPDF
	kindImage
	kindText
)

var imageMIMETypes = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".webp": "image/webp",
	".gif":  "image/gif",
}

func classify(doc Document) (documentKind, string) {
	ext := strings.ToLower(filepath.Ext(doc.Filename))
	switch {
	case sheetimport.IsSpreadsheet(doc.Filename):
		return kindSpreadsheet, ""
	case ext == ".pdf" || doc.ContentType == "application/pdf":
		return kindPDF, "application/pdf"
	case imageMIMETypes[ext] != "":
		return kindImage, imageMIMETypes[ext]
	case ext == ".txt" || strings.HasPrefix(doc.ContentType, "text/plain"):
		return kindText, "text/plain"
	}
	return kindUnsupported, ""
}

// Orchestrator routes documents to the deterministic or model path.
type Orchestrator struct {
	processor *sheetimport.Processor
	ai        extraction.CompletionService
	cfg       Config
	logger    *zap.Logger
}

// NewOrchestrator creates an Orchestrator. ai may be nil when no model is
// configured; the model path is then disabled regardless of cfg.
func NewOrchestrator(processor *sheetimport.Processor, ai extraction.CompletionService, cfg Config, logger *zap.Logger) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if processor == nil {
		processor = sheetimport.NewProcessor(logger)
	}
	cfg = cfg.withDefaults()
	if ai == nil {
		cfg.AIEnabled = false
	}
	return &Orchestrator{
		processor: processor,
		ai:        ai,
		cfg:       cfg,
		logger:    logger,
	}
}

// AIEnabled reports whether the model path is active
func (o *Orchestrator) AIEnabled() bool {
	return o.cfg.AIEnabled
}

// Extract extracts entities from a document. It never returns an error:
// every problem is reported in the outcome.
func (o *Orchestrator) Extract(ctx context.Context, doc Document) Outcome {
	ctx, span := telemetry.StartServiceSpan(ctx, "extraction", "extract")
	defer span.End()

	kind, mimeType := classify(doc)
	telemetry.SetAttributes(span,
		"file.name", doc.Filename,
		"file.size", len(doc.Data),
	)

	var out Outcome
	switch kind {
	case kindSpreadsheet:
		out = o.extractSpreadsheet(ctx, doc)
	case kindPDF, kindImage:
		out = o.extractDocument(ctx, doc, mimeType, "")
	case kindText:
		out = o.extractText(ctx, doc)
	default:
		out = newOutcome()
		out.fail("%s: unsupported file type %q", doc.Filename, filepath.Ext(doc.Filename))
	}

	telemetry.SetAttributes(span,
		"extraction.entities", len(out.Entities),
		"extraction.errors", len(out.Errors),
		"extraction.failed", out.Failed,
	)
	if out.Failed {
		telemetry.RecordError(span, fmt.Errorf("extraction failed for %s", doc.Filename))
	}
	return out
}

func (o *Orchestrator) extractSpreadsheet(ctx context.Context, doc Document) Outcome {
	out := newOutcome()
	result := o.processor.ProcessFile(doc.Data, doc.Filename)
	out.Errors = append(out.Errors, result.Errors...)
	if len(result.Sheets) == 0 && len(result.Errors) > 0 {
		out.Failed = true
		return out
	}

	for _, sheet := range result.Sheets {
		summary := SheetSummary{
			Name:      sheet.Name,
			HeaderRow: sheet.HeaderRow,
			Sections:  sheet.Sections,
			Warnings:  sheet.Warnings,
		}
		if summary.Sections == nil {
			summary.Sections = []extraction.DataSection{}
		}

		typed := sheet.TypedRows()
		summary.TypedRows = len(typed)
		switch {
		case len(typed) > 0:
			summary.Mode = ModeDeterministic
			for _, row := range typed {
				if entity, ok := EntityFromRow(doc.Filename, sheet.Name, row); ok {
					out.Entities = append(out.Entities, entity)
					summary.Entities++
				}
			}
		case o.cfg.AIEnabled && len(sheet.Rows) > 0:
			summary.Mode = ModeAI
			entities := o.extractSheetWithAI(ctx, doc, sheet, &out)
			summary.Entities = len(entities)
			out.Entities = append(out.Entities, entities...)
		default:
			summary.Mode = ModeSkipped
		}

		o.logger.Debug("Sheet extracted",
			zap.String("file", doc.Filename),
			zap.String("sheet", sheet.Name),
			zap.String("mode", summary.Mode),
			zap.Int("entities", summary.Entities),
		)
		out.Sheets = append(out.Sheets, summary)
	}
	return out
}

type chunkResult struct {
	entities []extraction.ExtractedEntity
	problems []string
	err      error
}

// extractSheetWithAI runs the analysis request, then fans the chunked
// extraction requests out with bounded concurrency. A failed chunk does not
// cancel the others.
func (o *Orchestrator) extractSheetWithAI(ctx context.Context, doc Document, sheet sheetimport.ProcessedSheet, out *Outcome) []extraction.ExtractedEntity {
	sample := chunk{sheet: sheet.Name, headers: sheet.Headers, rows: sheet.Rows[:min(o.cfg.AnalysisRows, len(sheet.Rows))]}
	answer, err := o.ai.Complete(ctx, extraction.CompletionRequest{
		Operation:    extraction.OperationAnalyze,
		SystemPrompt: systemPrompt,
		UserPrompt:   buildAnalysisPrompt(doc.Filename, sample, doc.Hint),
		Schema:       analysisResponseSchema,
	})
	if err != nil {
		out.fail("%s: sheet '%s': analysis request failed: %s", doc.Filename, sheet.Name, err.Error())
		return nil
	}
	analysis, err := parseAnalysis(answer)
	if err != nil {
		out.fail("%s: sheet '%s': unusable analysis response: %s", doc.Filename, sheet.Name, err.Error())
		return nil
	}
	if !analysis.ContainsFinancialData {
		return nil
	}

	chunks := splitSheet(sheet, o.cfg.ChunkRows)
	results := make([]chunkResult, len(chunks))

	var g errgroup.Group
	g.SetLimit(o.cfg.MaxConcurrency)
	for _, c := range chunks {
		g.Go(func() error {
			results[c.index] = o.extractChunk(ctx, doc, c, analysis.EntityTypes)
			return nil
		})
	}
	_ = g.Wait()

	var entities []extraction.ExtractedEntity
	for i, res := range results {
		c := chunks[i]
		if res.err != nil {
			out.fail("%s: sheet '%s' rows %d-%d: extraction request failed: %s",
				doc.Filename, sheet.Name, c.firstRow(), c.lastRow(), res.err.Error())
			continue
		}
		out.Errors = append(out.Errors, res.problems...)
		entities = append(entities, res.entities...)
	}
	return entities
}

func (o *Orchestrator) extractChunk(ctx context.Context, doc Document, c chunk, types []extraction.EntityType) chunkResult {
	if err := ctx.Err(); err != nil {
		return chunkResult{err: err}
	}
	answer, err := o.ai.Complete(ctx, extraction.CompletionRequest{
		Operation:    extraction.OperationExtract,
		SystemPrompt: systemPrompt,
		UserPrompt:   buildChunkPrompt(doc.Filename, c, types, doc.Hint),
		Schema:       entityResponseSchema,
	})
	if err != nil {
		return chunkResult{err: err}
	}
	entities, problems, err := parseEntities(answer, entityScope{
		file:          doc.Filename,
		sheet:         c.sheet,
		rows:          c.rowSet(),
		label:         fmt.Sprintf("%s: sheet '%s' rows %d-%d", doc.Filename, c.sheet, c.firstRow(), c.lastRow()),
		minConfidence: o.cfg.MinConfidence,
	})
	if err != nil {
		return chunkResult{err: fmt.Errorf("unusable response: %w", err)}
	}
	for _, p := range problems {
		o.logger.Warn("Dropped model entity", zap.String("file", doc.Filename), zap.String("reason", p))
	}
	return chunkResult{entities: entities, problems: problems}
}

func (o *Orchestrator) extractText(ctx context.Context, doc Document) Outcome {
	if !utf8.Valid(doc.Data) {
		out := newOutcome()
		out.fail("%s: text file is not valid UTF-8", doc.Filename)
		return out
	}
	text := string(doc.Data)
	if len(text) > o.cfg.MaxTextBytes {
		text = strings.ToValidUTF8(text[:o.cfg.MaxTextBytes], "")
	}
	if strings.TrimSpace(text) == "" {
		out := newOutcome()
		out.fail("%s: %s", doc.Filename, sheetimport.ErrEmptyFile.Error())
		return out
	}
	return o.extractDocument(ctx, doc, "", text)
}

// extractDocument sends one request for a whole document: bytes for PDFs
// and images, inline text otherwise.
func (o *Orchestrator) extractDocument(ctx context.Context, doc Document, mimeType, text string) Outcome {
	out := newOutcome()
	if !o.cfg.AIEnabled {
		out.fail("%s: AI extraction is not configured for this file type", doc.Filename)
		return out
	}
	if len(doc.Data) == 0 {
		out.fail("%s: %s", doc.Filename, sheetimport.ErrEmptyFile.Error())
		return out
	}

	req := extraction.CompletionRequest{
		Operation:    extraction.OperationExtract,
		SystemPrompt: systemPrompt,
		UserPrompt:   buildDocumentPrompt(doc.Filename, doc.Hint, text),
		Schema:       entityResponseSchema,
	}
	if text == "" {
		req.Document = doc.Data
		req.MIMEType = mimeType
	}

	answer, err := o.ai.Complete(ctx, req)
	if err != nil {
		out.fail("%s: extraction request failed: %s", doc.Filename, err.Error())
		return out
	}
	entities, problems, err := parseEntities(answer, entityScope{
		file:          doc.Filename,
		label:         doc.Filename,
		minConfidence: o.cfg.MinConfidence,
	})
	if err != nil {
		out.fail("%s: unusable model response: %s", doc.Filename, err.Error())
		return out
	}
	out.Entities = append(out.Entities, entities...)
	out.Errors = append(out.Errors, problems...)
	return out
}
