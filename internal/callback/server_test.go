package callback

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"
)

func redirect(t *testing.T, l *Listener, query url.Values) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/oauth/callback?"+query.Encode(), nil)
	rec := httptest.NewRecorder()
	l.ServeHTTP(rec, req)
	return rec
}

func TestListenerCapturesCode(t *testing.T) {
	l, err := New("/oauth/callback", "state-1")
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	rec := redirect(t, l, url.Values{"code": {"code-1"}, "state": {"state-1"}})
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	code, err := l.Wait(ctx)
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if code != "code-1" {
		t.Errorf("code = %q, want code-1", code)
	}
}

func TestListenerRejectsStateMismatch(t *testing.T) {
	l, err := New("/oauth/callback", "state-1")
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	rec := redirect(t, l, url.Values{"code": {"code-1"}, "state": {"wrong"}})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}

	// The mismatch must not complete the flow.
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := l.Wait(ctx); err == nil {
		t.Error("Wait returned without a valid redirect")
	}
}

func TestListenerRejectsMissingCode(t *testing.T) {
	l, err := New("/oauth/callback", "state-1")
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	rec := redirect(t, l, url.Values{"state": {"state-1"}})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestListenerDeliversConsentDenial(t *testing.T) {
	l, err := New("/oauth/callback", "state-1")
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	redirect(t, l, url.Values{"error": {"access_denied"}})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if _, err := l.Wait(ctx); err == nil {
		t.Error("Wait succeeded, want consent denial error")
	}
}

func TestListenerSecondRedirectConflicts(t *testing.T) {
	l, err := New("/oauth/callback", "state-1")
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	first := redirect(t, l, url.Values{"code": {"code-1"}, "state": {"state-1"}})
	if first.Code != http.StatusOK {
		t.Fatalf("first redirect status = %d, want 200", first.Code)
	}

	second := redirect(t, l, url.Values{"code": {"code-2"}, "state": {"state-1"}})
	if second.Code != http.StatusConflict {
		t.Errorf("second redirect status = %d, want 409", second.Code)
	}
}

func TestListenerStartShutdown(t *testing.T) {
	l, err := New("/oauth/callback", "state-1")
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx := context.Background()
	errCh, err := l.Start(ctx, "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	if err := l.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	if err, ok := <-errCh; ok && err != nil {
		t.Errorf("runtime error after graceful shutdown: %v", err)
	}
}

func TestNewValidation(t *testing.T) {
	if _, err := New("missing-slash", "state-1"); err == nil {
		t.Error("New accepted path without leading slash")
	}
	if _, err := New("/oauth/callback", ""); err == nil {
		t.Error("New accepted empty state")
	}
}
