package app

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"zohoq/internal/tokensource"
	"zohoq/internal/tokenstore"
)

// seedTokenState writes a fresh token state document for the given store path.
func seedTokenState(t *testing.T, path string) {
	t.Helper()
	store, err := tokenstore.NewFileStore(path)
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	state := tokensource.State{
		AccessToken:  "T1",
		RefreshToken: "R1",
		ExpiresAt:    time.Now().Add(time.Hour),
		ObtainedAt:   time.Now(),
	}
	doc, err := state.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if err := store.Write(context.Background(), doc); err != nil {
		t.Fatalf("Write: %v", err)
	}
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := &Config{}
	if err := cfg.ApplyDefaults(); err != nil {
		t.Fatalf("ApplyDefaults: %v", err)
	}

	if _, err := New(cfg); err == nil {
		t.Error("New succeeded without credentials, want error")
	}
}

func TestQueryEndToEnd(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasPrefix(r.URL.Path, "/bulk/workspaces/ws1/data"):
			if got := r.Header.Get("Authorization"); got != "Zoho-oauthtoken T1" {
				t.Errorf("Authorization = %q, want Zoho-oauthtoken T1", got)
			}
			fmt.Fprint(w, `{"data":{"jobId":"J1"}}`)
		case strings.HasPrefix(r.URL.Path, "/bulk/workspaces/ws1/exportjobs/"):
			fmt.Fprintf(w, `{"status":"success","data":{"downloadUrl":"%s/download/J1"}}`, "http://"+r.Host)
		case strings.HasPrefix(r.URL.Path, "/download/"):
			fmt.Fprint(w, `{"data":[{"invoice":"INV-1","total":120.5},{"invoice":"INV-2","total":9}]}`)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(server.Close)

	statePath := filepath.Join(t.TempDir(), "token_state.json")
	seedTokenState(t, statePath)

	cfg := &Config{
		Auth: AuthConfig{
			ClientID:     "client-1",
			ClientSecret: "secret-1",
			Storage:      TokenStorageTypeFile,
			File:         statePath,
		},
		Analytics: AnalyticsConfig{
			BaseURL:      server.URL,
			WorkspaceID:  "ws1",
			QueryTimeout: 5 * time.Second,
			PollInterval: 10 * time.Millisecond,
		},
	}
	if err := cfg.ApplyDefaults(); err != nil {
		t.Fatalf("ApplyDefaults: %v", err)
	}

	application, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	var out bytes.Buffer
	if err := application.Query(context.Background(), "select invoice, total from invoices", &out); err != nil {
		t.Fatalf("Query: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("output lines = %d, want 2", len(lines))
	}

	var first map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &first); err != nil {
		t.Fatalf("parsing first output line: %v", err)
	}
	if first["invoice"] != "INV-1" {
		t.Errorf("first row invoice = %v, want INV-1", first["invoice"])
	}
}

func TestQueryRequiresWorkspace(t *testing.T) {
	statePath := filepath.Join(t.TempDir(), "token_state.json")
	seedTokenState(t, statePath)

	cfg := &Config{
		Auth: AuthConfig{
			ClientID:     "client-1",
			ClientSecret: "secret-1",
			Storage:      TokenStorageTypeFile,
			File:         statePath,
		},
	}
	if err := cfg.ApplyDefaults(); err != nil {
		t.Fatalf("ApplyDefaults: %v", err)
	}

	application, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	var out bytes.Buffer
	if err := application.Query(context.Background(), "select 1", &out); err == nil {
		t.Error("Query succeeded without workspace id, want error")
	}
}
