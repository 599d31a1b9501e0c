package analytics

// Row is one record of a query result, keyed by column name. Rows are
// returned exactly as downloaded; the runner never reorders or filters.
type Row map[string]any

// submitResponse is the body of a successful job submission.
type submitResponse struct {
	Data struct {
		JobID string `json:"jobId"`
	} `json:"data"`
}

// jobStatusResponse is the body of a status poll. downloadUrl is present
// only once the job has succeeded.
type jobStatusResponse struct {
	Status string `json:"status"`
	Data   struct {
		DownloadURL string `json:"downloadUrl"`
		ErrorCode   int    `json:"errorCode"`
		Description string `json:"description"`
	} `json:"data"`
}

// downloadResponse is the body of the result download. A present but empty
// data array is a valid empty result; an absent key is malformed.
type downloadResponse struct {
	Data *[]Row `json:"data"`
}

// Job status values observed from the export API. Anything else is
// treated as in-progress.
const (
	statusSuccess = "success"
	statusFailure = "failure"
)
