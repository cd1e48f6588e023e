package constants

// JobStatus is the canonical status for rows in extract_job.
type JobStatus string

// Stable values (store these exact strings in DB).
const (
	JobStatusQueued  JobStatus = "QUEUED"  // registered, waiting for a worker
	JobStatusRunning JobStatus = "RUNNING" // text extraction in progress
	JobStatusTextOK  JobStatus = "TEXT_OK" // stage 1 completed (text extracted)
	JobStatusParsed  JobStatus = "PARSED"  // stage 2 completed (header + rows extracted)
	JobStatusFailed  JobStatus = "FAILED"  // terminal failure
)

// Terminal reports whether no further stage will touch a job in this status.
func (s JobStatus) Terminal() bool {
	return s == JobStatusParsed || s == JobStatusFailed
}
