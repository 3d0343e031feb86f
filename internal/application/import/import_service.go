// Package importapp runs uploaded documents through extraction and commits
// the resulting entities for a team, keeping history, progress and audit
// records along the way.
package importapp

import (
	"context"
	"fmt"
	"time"

	extractionapp "github.com/arqcashflow/backend/internal/application/extraction"
	"github.com/arqcashflow/backend/internal/domain/bulk"
	"github.com/arqcashflow/backend/internal/domain/extraction"
	"github.com/arqcashflow/backend/internal/domain/shared"
	"github.com/arqcashflow/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Extractor turns a document into candidate entities
type Extractor interface {
	Extract(ctx context.Context, doc extractionapp.Document) extractionapp.Outcome
}

// Committer writes candidate entities for a team
type Committer interface {
	Commit(ctx context.Context, entities []extraction.ExtractedEntity, scope shared.TeamScope, opts ...CommitOption) extraction.CommitResult
}

// FileUpload is one uploaded file
type FileUpload struct {
	Name        string
	ContentType string
	Data        []byte
	Hint        string
}

func (f FileUpload) document() extractionapp.Document {
	return extractionapp.Document{
		Filename:    f.Name,
		ContentType: f.ContentType,
		Data:        f.Data,
		Hint:        f.Hint,
	}
}

// ImportSummary is the per-file count summary returned to clients
type ImportSummary struct {
	ContractsCreated   int      `json:"contractsCreated"`
	ReceivablesCreated int      `json:"receivablesCreated"`
	ExpensesCreated    int      `json:"expensesCreated"`
	DuplicatesSkipped  int      `json:"duplicatesSkipped"`
	Errors             []string `json:"errors"`
}

// FileResult is the outcome of importing one file
type FileResult struct {
	Success   bool                         `json:"success"`
	FileName  string                       `json:"fileName"`
	HistoryID *uuid.UUID                   `json:"historyId,omitempty"`
	Status    bulk.ImportStatus            `json:"status,omitempty"`
	Summary   ImportSummary                `json:"summary"`
	Sheets    []extractionapp.SheetSummary `json:"sheets"`
}

// BatchResult is the outcome of importing several files
type BatchResult struct {
	Success         bool          `json:"success"`
	SessionID       string        `json:"sessionId"`
	Files           []FileResult  `json:"files"`
	SuccessfulFiles int           `json:"successfulFiles"`
	FailedFiles     int           `json:"failedFiles"`
	Totals          ImportSummary `json:"totals"`
}

// PreviewResult is what extraction found, without anything being written
type PreviewResult struct {
	FileName string                       `json:"fileName"`
	Entities []extraction.ExtractedEntity `json:"entities"`
	Sheets   []extractionapp.SheetSummary `json:"sheets"`
	Errors   []string                     `json:"errors"`
	Failed   bool                         `json:"failed"`
}

// ImportServiceConfig bounds what a request may upload
type ImportServiceConfig struct {
	MaxFileSize    int64
	MaxBatchFiles  int
	ArchiveTimeout time.Duration
}

// DefaultImportServiceConfig returns the default upload limits
func DefaultImportServiceConfig() ImportServiceConfig {
	return ImportServiceConfig{
		MaxFileSize:    20 << 20,
		MaxBatchFiles:  20,
		ArchiveTimeout: 30 * time.Second,
	}
}

// ImportService handles file, batch and preview imports
type ImportService struct {
	extractor Extractor
	committer Committer
	history   *ImportHistoryService
	progress  bulk.ProgressStore
	archive   bulk.SourceArchive
	audit     bulk.AuditSink
	metrics   *telemetry.ImportMetrics
	logger    *zap.Logger
	cfg       ImportServiceConfig
}

// ImportServiceDeps groups the collaborators of ImportService
type ImportServiceDeps struct {
	Extractor Extractor
	Committer Committer
	History   *ImportHistoryService
	Progress  bulk.ProgressStore
	Archive   bulk.SourceArchive
	Audit     bulk.AuditSink
	Metrics   *telemetry.ImportMetrics
	Logger    *zap.Logger
}

// NewImportService creates a new ImportService
func NewImportService(deps ImportServiceDeps, cfg ImportServiceConfig) *ImportService {
	defaults := DefaultImportServiceConfig()
	if cfg.MaxFileSize <= 0 {
		cfg.MaxFileSize = defaults.MaxFileSize
	}
	if cfg.MaxBatchFiles <= 0 {
		cfg.MaxBatchFiles = defaults.MaxBatchFiles
	}
	if cfg.ArchiveTimeout <= 0 {
		cfg.ArchiveTimeout = defaults.ArchiveTimeout
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ImportService{
		extractor: deps.Extractor,
		committer: deps.Committer,
		history:   deps.History,
		progress:  deps.Progress,
		archive:   deps.Archive,
		audit:     deps.Audit,
		metrics:   deps.Metrics,
		logger:    logger,
		cfg:       cfg,
	}
}

// ImportFile extracts and commits a single file
func (s *ImportService) ImportFile(ctx context.Context, scope shared.TeamScope, file FileUpload, sessionID string) (FileResult, error) {
	if err := scope.Validate(); err != nil {
		return FileResult{}, err
	}
	session := s.newSession(ctx, scope, sessionID, 1)

	result := s.processFile(ctx, scope, file, session)

	s.finishSession(ctx, scope, session, result.Success)
	return result, nil
}

// ImportBatch processes files one after another. A failing file never
// stops the others.
func (s *ImportService) ImportBatch(ctx context.Context, scope shared.TeamScope, files []FileUpload, sessionID string) (BatchResult, error) {
	if err := scope.Validate(); err != nil {
		return BatchResult{}, err
	}
	if len(files) == 0 {
		return BatchResult{}, shared.NewDomainError("INVALID_INPUT", "At least one file is required")
	}
	if len(files) > s.cfg.MaxBatchFiles {
		return BatchResult{}, shared.NewDomainError("INVALID_INPUT",
			fmt.Sprintf("A batch cannot have more than %d files", s.cfg.MaxBatchFiles))
	}

	session := s.newSession(ctx, scope, sessionID, len(files))
	batch := BatchResult{
		SessionID: session.SessionID,
		Files:     make([]FileResult, 0, len(files)),
		Totals:    ImportSummary{Errors: []string{}},
	}

	for _, file := range files {
		if err := ctx.Err(); err != nil {
			batch.Files = append(batch.Files, s.failedFile(file.Name, fmt.Sprintf("%s: import cancelled: %v", file.Name, err)))
			batch.FailedFiles++
			continue
		}
		res := s.processFile(ctx, scope, file, session)
		batch.Files = append(batch.Files, res)
		if res.Success {
			batch.SuccessfulFiles++
		} else {
			batch.FailedFiles++
		}
		batch.Totals.ContractsCreated += res.Summary.ContractsCreated
		batch.Totals.ReceivablesCreated += res.Summary.ReceivablesCreated
		batch.Totals.ExpensesCreated += res.Summary.ExpensesCreated
		batch.Totals.DuplicatesSkipped += res.Summary.DuplicatesSkipped
		batch.Totals.Errors = append(batch.Totals.Errors, res.Summary.Errors...)
	}
	batch.Success = batch.FailedFiles == 0

	s.finishSession(ctx, scope, session, batch.SuccessfulFiles > 0)
	s.recordAudit(ctx, scope, bulk.AuditBatchCompleted, map[string]any{
		"session_id":       batch.SessionID,
		"files":            len(files),
		"successful_files": batch.SuccessfulFiles,
		"failed_files":     batch.FailedFiles,
		"records_created":  batch.Totals.ContractsCreated + batch.Totals.ReceivablesCreated + batch.Totals.ExpensesCreated,
	})
	return batch, nil
}

// Preview runs extraction only
func (s *ImportService) Preview(ctx context.Context, scope shared.TeamScope, file FileUpload) (PreviewResult, error) {
	if err := scope.Validate(); err != nil {
		return PreviewResult{}, err
	}
	if err := s.checkSize(file); err != nil {
		return PreviewResult{}, err
	}

	outcome := s.extractor.Extract(ctx, file.document())
	return PreviewResult{
		FileName: file.Name,
		Entities: outcome.Entities,
		Sheets:   outcome.Sheets,
		Errors:   outcome.Errors,
		Failed:   outcome.Failed,
	}, nil
}

// Progress returns the snapshot of an upload session
func (s *ImportService) Progress(ctx context.Context, scope shared.TeamScope, sessionID string) (*bulk.ImportProgress, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	if sessionID == "" {
		return nil, shared.NewDomainError("INVALID_INPUT", "Session ID is required")
	}
	return s.progress.Get(ctx, scope.TenantID, sessionID)
}

// History lists past imports for the team
func (s *ImportService) History(ctx context.Context, scope shared.TeamScope, filter ListHistoryFilter, page, pageSize int) (shared.Paginated[*bulk.ImportHistory], error) {
	if err := scope.Validate(); err != nil {
		return shared.Paginated[*bulk.ImportHistory]{}, err
	}
	return s.history.ListHistory(ctx, scope, filter, page, pageSize)
}

// HistoryEntry returns one past import of the team
func (s *ImportService) HistoryEntry(ctx context.Context, scope shared.TeamScope, id uuid.UUID) (*bulk.ImportHistory, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	return s.history.GetHistory(ctx, scope, id)
}

func (s *ImportService) checkSize(file FileUpload) error {
	if int64(len(file.Data)) > s.cfg.MaxFileSize {
		return shared.NewDomainError("INVALID_INPUT",
			fmt.Sprintf("%s: file exceeds the maximum size of %d bytes", file.Name, s.cfg.MaxFileSize))
	}
	return nil
}

// processFile never fails: every problem ends up in the file result.
func (s *ImportService) processFile(ctx context.Context, scope shared.TeamScope, file FileUpload, session *bulk.ImportProgress) FileResult {
	log := s.logger.With(zap.String("file_name", file.Name), zap.String("session_id", session.SessionID))
	s.advance(ctx, scope, session, bulk.StageExtracting, file.Name)
	defer func() {
		session.FileDone()
		s.saveProgress(ctx, scope, session)
	}()

	history, err := s.history.StartHistory(ctx, scope, file.Name, int64(len(file.Data)), file.ContentType, session.SessionID)
	if err != nil {
		log.Error("Failed to start import history", zap.Error(err))
		history = nil
	}

	var commit extraction.CommitResult
	var sheets []extractionapp.SheetSummary
	if err := s.checkSize(file); err != nil {
		commit = extraction.NewCommitResult()
		commit.Fail("%v", err)
	} else {
		if history != nil {
			s.archiveSource(ctx, scope, history, file, log)
		}

		outcome := s.extractor.Extract(ctx, file.document())
		sheets = outcome.Sheets

		s.advance(ctx, scope, session, bulk.StageCommitting, file.Name)
		var opts []CommitOption
		if history != nil {
			opts = append(opts, WithImportID(history.ID))
		}
		commit = s.committer.Commit(ctx, outcome.Entities, scope, opts...)
		commit.Errors = append(append([]string{}, outcome.Errors...), commit.Errors...)
		commit.Success = commit.Success && !outcome.Failed
	}

	result := FileResult{
		Success:  commit.Success,
		FileName: file.Name,
		Summary: ImportSummary{
			ContractsCreated:   commit.ContractsCreated,
			ReceivablesCreated: commit.ReceivablesCreated,
			ExpensesCreated:    commit.ExpensesCreated,
			DuplicatesSkipped:  commit.DuplicatesSkipped,
			Errors:             commit.Errors,
		},
		Sheets: sheets,
	}
	if result.Sheets == nil {
		result.Sheets = []extractionapp.SheetSummary{}
	}

	status := fileStatus(commit)
	if history != nil {
		if err := s.history.FinishHistory(ctx, history, commit); err != nil {
			log.Error("Failed to finish import history", zap.Error(err))
		} else {
			status = history.Status
		}
		id := history.ID
		result.HistoryID = &id
	}
	result.Status = status
	s.metrics.RecordFile(ctx, string(status))

	log.Info("Import file processed",
		zap.String("status", string(status)),
		zap.Int("contracts_created", commit.ContractsCreated),
		zap.Int("receivables_created", commit.ReceivablesCreated),
		zap.Int("expenses_created", commit.ExpensesCreated),
		zap.Int("duplicates_skipped", commit.DuplicatesSkipped),
		zap.Int("errors", len(commit.Errors)),
	)

	attrs := map[string]any{
		"file_name":           file.Name,
		"file_size":           len(file.Data),
		"status":              string(status),
		"success":             result.Success,
		"contracts_created":   commit.ContractsCreated,
		"receivables_created": commit.ReceivablesCreated,
		"expenses_created":    commit.ExpensesCreated,
		"duplicates_skipped":  commit.DuplicatesSkipped,
		"errors":              len(commit.Errors),
	}
	if result.HistoryID != nil {
		attrs["history_id"] = result.HistoryID.String()
	}
	s.recordAudit(ctx, scope, bulk.AuditFileProcessed, attrs)
	return result
}

// fileStatus mirrors ImportHistory.Finish for files without a history record.
func fileStatus(commit extraction.CommitResult) bulk.ImportStatus {
	switch {
	case !commit.Success && commit.TotalCreated() == 0:
		return bulk.ImportStatusFailed
	case !commit.Success || len(commit.Errors) > 0:
		return bulk.ImportStatusPartial
	default:
		return bulk.ImportStatusCompleted
	}
}

func (s *ImportService) failedFile(name, reason string) FileResult {
	return FileResult{
		Success:  false,
		FileName: name,
		Status:   bulk.ImportStatusFailed,
		Summary:  ImportSummary{Errors: []string{reason}},
		Sheets:   []extractionapp.SheetSummary{},
	}
}

// archiveSource stores the upload. Failures are logged and do not affect
// the import.
func (s *ImportService) archiveSource(ctx context.Context, scope shared.TeamScope, history *bulk.ImportHistory, file FileUpload, log *zap.Logger) {
	if s.archive == nil {
		return
	}
	key := bulk.ArchiveKeyFor(scope.TenantID, history.ID, file.Name)
	archiveCtx, cancel := context.WithTimeout(ctx, s.cfg.ArchiveTimeout)
	defer cancel()

	if err := s.archive.Put(archiveCtx, key, file.Data, file.ContentType); err != nil {
		log.Warn("Failed to archive import source", zap.String("key", key), zap.Error(err))
		return
	}
	history.SetArchiveKey(key)
}

func (s *ImportService) newSession(ctx context.Context, scope shared.TeamScope, sessionID string, totalFiles int) *bulk.ImportProgress {
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	session := bulk.NewImportProgress(sessionID, totalFiles)
	s.saveProgress(ctx, scope, &session)
	return &session
}

func (s *ImportService) finishSession(ctx context.Context, scope shared.TeamScope, session *bulk.ImportProgress, anySucceeded bool) {
	stage := bulk.StageCompleted
	if !anySucceeded {
		stage = bulk.StageFailed
	}
	s.advance(ctx, scope, session, stage, "")
}

func (s *ImportService) advance(ctx context.Context, scope shared.TeamScope, session *bulk.ImportProgress, stage bulk.ImportStage, file string) {
	session.Advance(stage, file)
	s.saveProgress(ctx, scope, session)
}

// saveProgress is best effort: polling clients only lose visibility.
func (s *ImportService) saveProgress(ctx context.Context, scope shared.TeamScope, session *bulk.ImportProgress) {
	if s.progress == nil {
		return
	}
	if err := s.progress.Save(ctx, scope.TenantID, *session); err != nil {
		s.logger.Warn("Failed to save import progress",
			zap.String("session_id", session.SessionID),
			zap.Error(err),
		)
	}
}

func (s *ImportService) recordAudit(ctx context.Context, scope shared.TeamScope, eventType string, attrs map[string]any) {
	if s.audit == nil {
		return
	}
	s.audit.Record(ctx, bulk.NewAuditEvent(eventType, scope.TenantID, scope.UserID, attrs))
}
