package bulk

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ImportStage is the step an upload session is currently in
type ImportStage string

const (
	StageQueued     ImportStage = "queued"
	StageExtracting ImportStage = "extracting"
	StageCommitting ImportStage = "committing"
	StageCompleted  ImportStage = "completed"
	StageFailed     ImportStage = "failed"
)

// ImportProgress is a snapshot of an upload session for polling clients.
type ImportProgress struct {
	SessionID      string      `json:"sessionId"`
	TotalFiles     int         `json:"totalFiles"`
	ProcessedFiles int         `json:"processedFiles"`
	CurrentFile    string      `json:"currentFile,omitempty"`
	Stage          ImportStage `json:"stage"`
	UpdatedAt      time.Time   `json:"updatedAt"`
}

// NewImportProgress starts a session with nothing processed yet
func NewImportProgress(sessionID string, totalFiles int) ImportProgress {
	return ImportProgress{
		SessionID:  sessionID,
		TotalFiles: totalFiles,
		Stage:      StageQueued,
		UpdatedAt:  time.Now(),
	}
}

// Advance moves the session to a stage on the given file
func (p *ImportProgress) Advance(stage ImportStage, file string) {
	p.Stage = stage
	p.CurrentFile = file
	p.UpdatedAt = time.Now()
}

// FileDone counts one more processed file
func (p *ImportProgress) FileDone() {
	if p.ProcessedFiles < p.TotalFiles {
		p.ProcessedFiles++
	}
	p.UpdatedAt = time.Now()
}

// Done reports whether every file was processed
func (p ImportProgress) Done() bool {
	return p.Stage == StageCompleted || p.Stage == StageFailed
}

// ProgressStore keeps short-lived progress snapshots per tenant and session.
// Get returns shared.ErrNotFound for unknown or expired sessions.
type ProgressStore interface {
	Save(ctx context.Context, tenantID uuid.UUID, progress ImportProgress) error
	Get(ctx context.Context, tenantID uuid.UUID, sessionID string) (*ImportProgress, error)
}

// SourceArchive stores the original bytes of an uploaded file.
type SourceArchive interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
}
