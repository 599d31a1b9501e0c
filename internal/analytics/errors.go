package analytics

import (
	"fmt"
	"time"
)

// SubmissionError reports a non-2xx response to the job submission call.
type SubmissionError struct {
	Status int
	Body   string
}

func (e *SubmissionError) Error() string {
	return fmt.Sprintf("query submission failed (status %d): %s", e.Status, e.Body)
}

// PollError reports a non-2xx response while checking job status.
type PollError struct {
	JobID  string
	Status int
	Body   string
}

func (e *PollError) Error() string {
	return fmt.Sprintf("status poll for job %s failed (status %d): %s", e.JobID, e.Status, e.Body)
}

// JobFailedError reports that the provider marked the export job failed.
// Not retried here: a failed job (malformed SQL, missing table) fails
// identically on resubmission.
type JobFailedError struct {
	JobID  string
	Detail string
}

func (e *JobFailedError) Error() string {
	return fmt.Sprintf("export job %s failed: %s", e.JobID, e.Detail)
}

// DeadlineError reports that the poll budget ran out before the job
// reached a terminal status. The job is abandoned server-side.
type DeadlineError struct {
	JobID   string
	Timeout time.Duration
}

func (e *DeadlineError) Error() string {
	return fmt.Sprintf("export job %s still running after %s", e.JobID, e.Timeout)
}

// DownloadError reports a non-2xx response fetching the result set.
type DownloadError struct {
	Status int
	Body   string
}

func (e *DownloadError) Error() string {
	return fmt.Sprintf("result download failed (status %d): %s", e.Status, e.Body)
}

// MalformedResponseError reports a response that parsed but lacks a field
// the protocol requires (job id, download URL, row collection).
type MalformedResponseError struct {
	Step   string // "submit", "poll" or "download"
	Detail string
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("malformed %s response: %s", e.Step, e.Detail)
}

// NetworkError reports a transport-level failure at any step. Unwrap
// exposes the underlying error so token refresh failures surfaced through
// the auth transport stay matchable with errors.As.
type NetworkError struct {
	Step string
	Err  error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network failure during %s: %v", e.Step, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }
