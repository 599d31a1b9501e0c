package analytics

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

// maxErrorBody bounds how much of a provider error body is kept for
// diagnostics.
const maxErrorBody = 16 << 10

// Options bounds one RunQuery call. Both durations are required.
type Options struct {
	// Timeout is the total budget for the submit/poll phase. Measured on
	// the monotonic clock from submission.
	Timeout time.Duration

	// PollInterval is the sleep between status checks.
	PollInterval time.Duration
}

func (o Options) validate() error {
	if o.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if o.PollInterval <= 0 {
		return fmt.Errorf("poll interval must be positive")
	}
	if o.PollInterval > o.Timeout {
		return fmt.Errorf("poll interval %s exceeds timeout %s", o.PollInterval, o.Timeout)
	}
	return nil
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithTransport sets the base transport under the auth layer (tests,
// proxies). Defaults to http.DefaultTransport.
func WithTransport(transport http.RoundTripper) ClientOption {
	return func(c *Client) { c.base = transport }
}

// WithOrgID sets the ZANALYTICS-ORGID header sent on every request.
// Required by multi-org accounts.
func WithOrgID(orgID string) ClientOption {
	return func(c *Client) { c.orgID = orgID }
}

// Client talks to the Zoho Analytics bulk export API for one workspace.
// Authentication rides on an oauth2.Transport backed by the given token
// source, so every request carries a token valid at the time it is sent.
type Client struct {
	baseURL     string
	workspaceID string
	orgID       string
	base        http.RoundTripper
	httpClient  *http.Client
}

// NewClient creates a Client for the given API base URL and workspace.
func NewClient(baseURL, workspaceID string, source oauth2.TokenSource, opts ...ClientOption) (*Client, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("base URL cannot be empty")
	}
	if workspaceID == "" {
		return nil, fmt.Errorf("workspace ID cannot be empty")
	}
	if source == nil {
		return nil, fmt.Errorf("missing token source")
	}

	c := &Client{
		baseURL:     strings.TrimSuffix(baseURL, "/"),
		workspaceID: workspaceID,
		base:        http.DefaultTransport,
	}
	for _, opt := range opts {
		opt(c)
	}

	c.httpClient = &http.Client{
		Transport: &oauth2.Transport{Source: source, Base: c.base},
		Timeout:   2 * time.Minute, // bounds any single request, incl. result download
	}
	return c, nil
}

// RunQuery executes sql as an asynchronous export job and returns the
// result rows once the job completes. Blocks for up to opts.Timeout plus
// one poll interval; honors ctx cancellation at every wait.
func (c *Client) RunQuery(ctx context.Context, sql string, opts Options) ([]Row, error) {
	if strings.TrimSpace(sql) == "" {
		return nil, fmt.Errorf("sql cannot be empty")
	}
	if err := opts.validate(); err != nil {
		return nil, err
	}

	jobID, err := c.submit(ctx, sql)
	if err != nil {
		return nil, err
	}
	slog.DebugContext(ctx, "export job submitted", "job_id", jobID)

	downloadURL, err := c.await(ctx, jobID, opts)
	if err != nil {
		return nil, err
	}

	return c.download(ctx, downloadURL)
}

// submit posts the query and returns the provider's job id.
func (c *Client) submit(ctx context.Context, sql string) (string, error) {
	config, err := json.Marshal(map[string]string{
		"responseFormat": "json",
		"sqlQuery":       sql,
	})
	if err != nil {
		return "", fmt.Errorf("encoding query config: %w", err)
	}

	endpoint := fmt.Sprintf("%s/bulk/workspaces/%s/data?CONFIG=%s",
		c.baseURL, url.PathEscape(c.workspaceID), url.QueryEscape(string(config)))

	status, body, err := c.get(ctx, "submit", endpoint)
	if err != nil {
		return "", err
	}
	if status < 200 || status >= 300 {
		return "", &SubmissionError{Status: status, Body: string(body)}
	}

	var sr submitResponse
	if err := json.Unmarshal(body, &sr); err != nil {
		return "", &MalformedResponseError{Step: "submit", Detail: "body is not valid JSON"}
	}
	if sr.Data.JobID == "" {
		return "", &MalformedResponseError{Step: "submit", Detail: "missing data.jobId"}
	}
	return sr.Data.JobID, nil
}

// await polls job status until a terminal state or the timeout. The
// deadline comes off the monotonic clock, so wall-clock jumps cannot
// extend or shrink the budget.
func (c *Client) await(ctx context.Context, jobID string, opts Options) (string, error) {
	deadline := time.Now().Add(opts.Timeout)
	endpoint := fmt.Sprintf("%s/bulk/workspaces/%s/exportjobs/%s",
		c.baseURL, url.PathEscape(c.workspaceID), url.PathEscape(jobID))

	timer := time.NewTimer(opts.PollInterval)
	defer timer.Stop()

	for {
		status, body, err := c.get(ctx, "poll", endpoint)
		if err != nil {
			return "", err
		}
		if status < 200 || status >= 300 {
			return "", &PollError{JobID: jobID, Status: status, Body: string(body)}
		}

		var js jobStatusResponse
		if err := json.Unmarshal(body, &js); err != nil {
			return "", &MalformedResponseError{Step: "poll", Detail: "body is not valid JSON"}
		}

		switch strings.ToLower(js.Status) {
		case statusSuccess:
			if js.Data.DownloadURL == "" {
				return "", &MalformedResponseError{Step: "poll", Detail: "success without data.downloadUrl"}
			}
			return js.Data.DownloadURL, nil
		case statusFailure:
			detail := js.Data.Description
			if detail == "" {
				detail = string(body)
			}
			return "", &JobFailedError{JobID: jobID, Detail: detail}
		}

		// Still queued or running.
		if !time.Now().Before(deadline) {
			return "", &DeadlineError{JobID: jobID, Timeout: opts.Timeout}
		}

		// Drain before reuse: a poll slower than the interval leaves a
		// fired timer behind, which would make the next wait return at once.
		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(opts.PollInterval)

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-timer.C:
		}
	}
}

// download fetches the completed job's result set.
func (c *Client) download(ctx context.Context, downloadURL string) ([]Row, error) {
	status, body, err := c.get(ctx, "download", downloadURL)
	if err != nil {
		return nil, err
	}
	if status < 200 || status >= 300 {
		return nil, &DownloadError{Status: status, Body: string(body)}
	}

	var dr downloadResponse
	if err := json.Unmarshal(body, &dr); err != nil {
		return nil, &MalformedResponseError{Step: "download", Detail: "body is not valid JSON"}
	}
	if dr.Data == nil {
		return nil, &MalformedResponseError{Step: "download", Detail: "missing data row collection"}
	}
	return *dr.Data, nil
}

// get performs a GET and returns the status code and full body. Error
// bodies are truncated; success bodies are read in full (result downloads
// can be large).
func (c *Client) get(ctx context.Context, step, endpoint string) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, nil, fmt.Errorf("building %s request: %w", step, err)
	}
	req.Header.Set("Accept", "application/json")
	if c.orgID != "" {
		req.Header.Set("ZANALYTICS-ORGID", c.orgID)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, &NetworkError{Step: step, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	var reader io.Reader = resp.Body
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		reader = io.LimitReader(resp.Body, maxErrorBody)
	}
	body, err := io.ReadAll(reader)
	if err != nil {
		return 0, nil, &NetworkError{Step: step, Err: err}
	}
	return resp.StatusCode, body, nil
}
