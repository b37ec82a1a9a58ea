package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"time"

	"github.com/dgallion1/novelbind/internal/book"
	"github.com/dgallion1/novelbind/internal/pipeline"
	"github.com/go-chi/chi/v5"
)

// chapterURLRe matches a first-chapter URL ending in "_<page>.html".
var chapterURLRe = regexp.MustCompile(`^(.+)_([0-9]+)\.html$`)

// SplitChapterURL derives the base URL and page index from a chapter link.
func SplitChapterURL(link string) (string, int, bool) {
	m := chapterURLRe.FindStringSubmatch(link)
	if m == nil {
		return "", 0, false
	}
	page, err := strconv.Atoi(m[2])
	if err != nil {
		return "", 0, false
	}
	return m[1], page, true
}

type submitRunRequest struct {
	// URL is a full first-chapter link ("..._2.html"); it supersedes
	// BaseURL/StartPage when present.
	URL string `json:"url,omitempty"`

	BaseURL      string   `json:"base_url,omitempty"`
	StartPage    int      `json:"start_page,omitempty"`
	MaxPages     int      `json:"max_pages,omitempty"`
	DelayMS      int      `json:"delay_ms,omitempty"`
	MaxChunkSize int      `json:"max_chunk_size,omitempty"`
	SourceLang   string   `json:"source_lang,omitempty"`
	TargetLang   string   `json:"target_lang,omitempty"`
	Formats      []string `json:"formats,omitempty"`
}

func (s *Server) handleSubmitRun(w http.ResponseWriter, r *http.Request) {
	var req submitRunRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&req); err != nil {
		jsonError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	params := pipeline.Params{
		BaseURL:      req.BaseURL,
		StartPage:    req.StartPage,
		MaxPages:     req.MaxPages,
		MaxChunkSize: req.MaxChunkSize,
		SourceLang:   req.SourceLang,
		TargetLang:   req.TargetLang,
		Formats:      req.Formats,
	}
	if req.URL != "" {
		base, page, ok := SplitChapterURL(req.URL)
		if !ok {
			jsonError(w, "url must end with _<number>.html", http.StatusBadRequest)
			return
		}
		params.BaseURL = base
		params.StartPage = page
	}
	if params.BaseURL == "" {
		jsonError(w, "base_url or url is required", http.StatusBadRequest)
		return
	}
	if params.StartPage < 0 {
		jsonError(w, "start_page must not be negative", http.StatusBadRequest)
		return
	}
	if req.DelayMS > 0 {
		params.Delay = time.Duration(req.DelayMS) * time.Millisecond
	}
	for _, f := range params.Formats {
		if !book.IsSupportedFormat(f) {
			jsonError(w, fmt.Sprintf("unsupported format: %s", f), http.StatusBadRequest)
			return
		}
	}

	run := pipeline.NewRun(params)
	if err := s.orchestrator.Submit(run); err != nil {
		jsonError(w, err.Error(), http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]any{
		"run_id":   run.ID,
		"status":   pipeline.StatusQueued,
		"poll_url": fmt.Sprintf("/api/runs/%s", run.ID),
	})
}

func (s *Server) handleRunStatus(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "runID")
	run := s.orchestrator.GetRun(runID)
	if run == nil {
		jsonError(w, "run not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(run.Snapshot())
}

func (s *Server) handleRunDownload(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "runID")
	run := s.orchestrator.GetRun(runID)
	if run == nil {
		jsonError(w, "run not found", http.StatusNotFound)
		return
	}

	snap := run.Snapshot()
	if !snap.Status.Terminal() || snap.Status == pipeline.StatusFailed {
		jsonError(w, fmt.Sprintf("run is %s", snap.Status), http.StatusConflict)
		return
	}

	format := r.URL.Query().Get("format")
	if format == "" {
		format = book.FormatEPUB
	}

	var path string
	switch format {
	case "txt":
		path = snap.ArtifactPath
	default:
		path = snap.Outputs[format]
	}
	if path == "" {
		jsonError(w, fmt.Sprintf("no %s output for this run", format), http.StatusNotFound)
		return
	}

	switch format {
	case book.FormatEPUB:
		w.Header().Set("Content-Type", "application/epub+zip")
	case book.FormatDOCX:
		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.wordprocessingml.document")
	default:
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	}
	http.ServeFile(w, r, path)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
