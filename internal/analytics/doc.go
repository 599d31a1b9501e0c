// Package analytics runs SQL queries against the Zoho Analytics bulk
// export API, hiding the submit/poll/download protocol behind a single
// RunQuery call.
//
// A job moves through submitted → running → success|failure on the server;
// the client only observes transitions by polling. A job that stays
// non-terminal past the caller's timeout is abandoned (the API offers no
// cancellation) and reported as a DeadlineError; resubmitting is the
// caller's decision.
package analytics
