package api

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dgallion1/novelbind/internal/config"
	"github.com/dgallion1/novelbind/internal/pipeline"
	"github.com/dgallion1/novelbind/internal/translate"
)

const testAPIKey = "test-key-123"

func newTestServer(t *testing.T) (*Server, *pipeline.Orchestrator) {
	t.Helper()
	cfg := config.Config{
		APIKey:           testAPIKey,
		WorkerCount:      1,
		MaxQueueSize:     4,
		RunTTL:           time.Hour,
		OutputDir:        t.TempDir(),
		DefaultChunkSize: 4800,
		DefaultSource:    "auto",
		DefaultTarget:    "en",
	}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	tr := translate.NewGoogleClient("")
	// Workers are deliberately not started: submitted runs stay queued,
	// which keeps these tests free of network and filesystem side effects.
	orch := pipeline.NewOrchestrator(cfg, tr, log)
	return NewServer(orch, tr, log, cfg), orch
}

func doJSON(t *testing.T, srv *Server, method, path, body, apiKey string) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	if apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+apiKey)
	}
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	return w
}

func TestHealthIsPublic(t *testing.T) {
	srv, _ := newTestServer(t)
	w := doJSON(t, srv, http.MethodGet, "/health", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("health status = %d, want 200", w.Code)
	}
}

func TestAuthRequired(t *testing.T) {
	srv, _ := newTestServer(t)

	tests := []struct {
		name string
		key  string
		want int
	}{
		{"missing key", "", http.StatusUnauthorized},
		{"wrong key", "nope", http.StatusUnauthorized},
		{"valid key", testAPIKey, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(t, srv, http.MethodGet, "/api/runs/does-not-exist", "", tt.key)
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d", w.Code, tt.want)
			}
		})
	}
}

func TestAuthAcceptsQueryParameter(t *testing.T) {
	srv, _ := newTestServer(t)
	w := doJSON(t, srv, http.MethodGet, "/api/runs/does-not-exist?api_key="+testAPIKey, "", "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404 (authenticated, unknown run)", w.Code)
	}
}

func TestSubmitRunFromURL(t *testing.T) {
	srv, orch := newTestServer(t)

	body := `{"url":"https://example.com/book/silver-river_2.html","formats":["epub"]}`
	w := doJSON(t, srv, http.MethodPost, "/api/runs", body, testAPIKey)
	if w.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202: %s", w.Code, w.Body.String())
	}

	var resp struct {
		RunID   string `json:"run_id"`
		Status  string `json:"status"`
		PollURL string `json:"poll_url"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.RunID == "" {
		t.Fatal("expected non-empty run_id")
	}
	if resp.Status != string(pipeline.StatusQueued) {
		t.Errorf("status = %q, want queued", resp.Status)
	}

	run := orch.GetRun(resp.RunID)
	if run == nil {
		t.Fatal("run not registered in store")
	}
	snap := run.Snapshot()
	if snap.BaseURL != "https://example.com/book/silver-river" {
		t.Errorf("base_url = %q", snap.BaseURL)
	}
	if run.Params.StartPage != 2 {
		t.Errorf("start_page = %d, want 2", run.Params.StartPage)
	}
}

func TestSubmitRunValidation(t *testing.T) {
	srv, _ := newTestServer(t)

	tests := []struct {
		name string
		body string
	}{
		{"empty body", ``},
		{"no source", `{}`},
		{"malformed url", `{"url":"https://example.com/book/chapter.html"}`},
		{"negative start page", `{"base_url":"https://example.com/b","start_page":-1}`},
		{"unsupported format", `{"base_url":"https://example.com/b","formats":["pdf"]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(t, srv, http.MethodPost, "/api/runs", tt.body, testAPIKey)
			if w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400: %s", w.Code, w.Body.String())
			}
		})
	}
}

func TestRunStatusReportsProgress(t *testing.T) {
	srv, orch := newTestServer(t)

	run := pipeline.NewRun(pipeline.Params{BaseURL: "https://example.com/b", StartPage: 1})
	if err := orch.Submit(run); err != nil {
		t.Fatalf("submit: %v", err)
	}
	run.SetStatus(pipeline.StatusTranslating)
	run.PageFetched(3, 1)

	w := doJSON(t, srv, http.MethodGet, "/api/runs/"+run.ID, "", testAPIKey)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var snap pipeline.RunSnapshot
	if err := json.Unmarshal(w.Body.Bytes(), &snap); err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	if snap.Status != pipeline.StatusTranslating {
		t.Errorf("status = %q", snap.Status)
	}
	if snap.Progress.PagesFetched != 1 || snap.Progress.LastPage != 3 {
		t.Errorf("progress = %+v", snap.Progress)
	}
}

func TestSubmitQueueFull(t *testing.T) {
	srv, _ := newTestServer(t)

	var last *httptest.ResponseRecorder
	for range 6 {
		last = doJSON(t, srv, http.MethodPost, "/api/runs",
			`{"base_url":"https://example.com/b"}`, testAPIKey)
	}
	if last.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503 once queue is full", last.Code)
	}
}

func TestDownload(t *testing.T) {
	srv, orch := newTestServer(t)

	dir := t.TempDir()
	txt := filepath.Join(dir, "Novel.txt")
	if err := os.WriteFile(txt, []byte("first paragraph\n\nsecond paragraph\n\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	run := pipeline.NewRun(pipeline.Params{BaseURL: "https://example.com/b"})
	if err := orch.Submit(run); err != nil {
		t.Fatalf("submit: %v", err)
	}

	t.Run("in-flight run conflicts", func(t *testing.T) {
		w := doJSON(t, srv, http.MethodGet, "/api/runs/"+run.ID+"/download?format=txt", "", testAPIKey)
		if w.Code != http.StatusConflict {
			t.Errorf("status = %d, want 409", w.Code)
		}
	})

	run.Complete(txt, map[string]string{}, false)

	t.Run("text artifact", func(t *testing.T) {
		w := doJSON(t, srv, http.MethodGet, "/api/runs/"+run.ID+"/download?format=txt", "", testAPIKey)
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
		}
		if !strings.Contains(w.Body.String(), "first paragraph") {
			t.Errorf("unexpected body %q", w.Body.String())
		}
	})

	t.Run("missing format", func(t *testing.T) {
		w := doJSON(t, srv, http.MethodGet, "/api/runs/"+run.ID+"/download?format=epub", "", testAPIKey)
		if w.Code != http.StatusNotFound {
			t.Errorf("status = %d, want 404 when epub was not produced", w.Code)
		}
	})

	t.Run("unknown run", func(t *testing.T) {
		w := doJSON(t, srv, http.MethodGet, "/api/runs/nope/download", "", testAPIKey)
		if w.Code != http.StatusNotFound {
			t.Errorf("status = %d, want 404", w.Code)
		}
	})
}

func TestDownloadFailedRunConflicts(t *testing.T) {
	srv, orch := newTestServer(t)

	run := pipeline.NewRun(pipeline.Params{BaseURL: "https://example.com/b"})
	if err := orch.Submit(run); err != nil {
		t.Fatalf("submit: %v", err)
	}
	run.Fail(io.ErrUnexpectedEOF)

	w := doJSON(t, srv, http.MethodGet, "/api/runs/"+run.ID+"/download", "", testAPIKey)
	if w.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409 for failed run", w.Code)
	}
}

func TestTranslateStats(t *testing.T) {
	srv, _ := newTestServer(t)

	srv.translator.Stats.Record(120, 42, true)

	w := doJSON(t, srv, http.MethodGet, "/api/stats/translate", "", testAPIKey)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var resp struct {
		QueueDepth int                     `json:"queue_depth"`
		Stats      translate.StatsSnapshot `json:"stats"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Stats.Calls != 1 || resp.Stats.RunesIn != 42 {
		t.Errorf("stats = %+v", resp.Stats)
	}
}

func TestSplitChapterURL(t *testing.T) {
	tests := []struct {
		link     string
		wantBase string
		wantPage int
		wantOK   bool
	}{
		{"https://example.com/book/novel_2.html", "https://example.com/book/novel", 2, true},
		{"https://example.com/a_b_10.html", "https://example.com/a_b", 10, true},
		{"https://example.com/novel.html", "", 0, false},
		{"https://example.com/novel_2.htm", "", 0, false},
		{"", "", 0, false},
	}
	for _, tt := range tests {
		base, page, ok := SplitChapterURL(tt.link)
		if base != tt.wantBase || page != tt.wantPage || ok != tt.wantOK {
			t.Errorf("SplitChapterURL(%q) = (%q, %d, %v), want (%q, %d, %v)",
				tt.link, base, page, ok, tt.wantBase, tt.wantPage, tt.wantOK)
		}
	}
}
