package entity

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/labex-extractor/constants"
)

// ExtractJob represents an extract job for data transfer between layers.
type ExtractJob struct {
	ID            uuid.UUID       `json:"id"`
	Filename      string          `json:"filename"`
	SourcePath    string          `json:"source_path"`
	ContentHash   string          `json:"content_hash"`
	Family        string          `json:"family"`
	Status        string          `json:"status"`
	StartedAt     time.Time       `json:"started_at"`
	FinishedAt    *time.Time      `json:"finished_at,omitempty"`
	ErrorMessage  *string         `json:"error_message,omitempty"`
	RawText       *string         `json:"raw_text,omitempty"`
	Method        *string         `json:"method,omitempty"`
	Pages         int             `json:"pages"`
	ExtractedJSON json.RawMessage `json:"extracted_json,omitempty"`
	RowCount      int             `json:"row_count"`
	NeedsReview   bool            `json:"needs_review"`
}

// Done reports whether the job reached PARSED or FAILED.
func (j *ExtractJob) Done() bool {
	return constants.JobStatus(j.Status).Terminal()
}
