// Package server exposes the interactive proofing loop over HTTP: a client
// posts page content and gets back validation issues and a per-block TEI
// preview. A websocket endpoint carries the same exchange for editors that
// re-check on every keystroke.
package server

import (
	"encoding/json"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/zeebo/blake3"

	"github.com/FocuswithJustin/TulsiPress/core/proofing"
	"github.com/FocuswithJustin/TulsiPress/core/tei"
	"github.com/FocuswithJustin/TulsiPress/internal/cache"
	"github.com/FocuswithJustin/TulsiPress/internal/logging"
)

// maxContentBytes bounds one page's content. Scanned book pages are a few
// kilobytes of text; anything near this limit is not a page.
const maxContentBytes = 1 << 20

// Preview cache sizing. Editors re-send unchanged content on reconnect and
// on cursor-only events; a short TTL covers those without holding stale
// renders for long.
const (
	previewCacheTTL  = time.Minute
	previewCacheSize = 256
)

// PreviewRequest is one round of the editing loop.
type PreviewRequest struct {
	// Content is the page's proofing XML or free text.
	Content string `json:"content"`
	// ImageNumber is the page's 1-based position, used to scope footnote
	// anchors in the preview.
	ImageNumber int `json:"image_number"`
}

// IssueJSON is one validation issue.
type IssueJSON struct {
	Severity string `json:"severity"`
	Message  string `json:"message"`
}

// PreviewResponse carries validation results and the rewritten blocks.
type PreviewResponse struct {
	Valid  bool        `json:"valid"`
	Issues []IssueJSON `json:"issues"`
	Blocks []string    `json:"blocks"`
	Errors []string    `json:"errors"`
}

// previewKey identifies one rendered preview: the content's hash plus the
// image number that scopes its footnote anchors.
type previewKey struct {
	hash  [32]byte
	image int
}

// Server is the preview HTTP server.
type Server struct {
	mux      *http.ServeMux
	previews *cache.TTLCache[previewKey, PreviewResponse]
	clients  atomic.Int64
}

// New builds a server with its routes registered.
func New() *Server {
	s := &Server{
		mux:      http.NewServeMux(),
		previews: cache.New[previewKey, PreviewResponse](previewCacheTTL, previewCacheSize),
	}
	s.mux.HandleFunc("/api/validate", s.handleValidate)
	s.mux.HandleFunc("/api/preview", s.handlePreview)
	s.mux.HandleFunc("/api/ws", s.handleSocket)
	s.mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	return s
}

// Handler returns the server's handler wrapped in request-id and logging
// middleware.
func (s *Server) Handler() http.Handler {
	return logging.CombinedMiddleware(securityHeaders(s.mux))
}

// ListenAndServe runs the server until it fails.
func (s *Server) ListenAndServe(addr string) error {
	logging.ServerStartup("preview", addr)
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return srv.ListenAndServe()
}

func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeRequest(w, r)
	if !ok {
		return
	}
	issues := proofing.Validate(req.Content)
	writeJSON(w, validationResponse(issues))
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeRequest(w, r)
	if !ok {
		return
	}
	writeJSON(w, s.preview(req))
}

// preview runs one validate-and-rewrite round. Responses are cached by
// content hash: re-sends of unchanged content skip the rewrite.
func (s *Server) preview(req PreviewRequest) PreviewResponse {
	image := req.ImageNumber
	if image < 1 {
		image = 1
	}
	key := previewKey{hash: blake3.Sum256([]byte(req.Content)), image: image}
	if resp, ok := s.previews.Get(key); ok {
		return resp
	}

	resp := validationResponse(proofing.Validate(req.Content))
	page := proofing.ParsePage(req.Content, "")
	resp.Blocks, resp.Errors = tei.PreviewBlocks(page, image)
	s.previews.Set(key, resp)
	return resp
}

func validationResponse(issues []proofing.Issue) PreviewResponse {
	resp := PreviewResponse{Valid: true, Issues: []IssueJSON{}, Blocks: []string{}, Errors: []string{}}
	for _, issue := range issues {
		if issue.Severity == proofing.SeverityError {
			resp.Valid = false
		}
		resp.Issues = append(resp.Issues, IssueJSON{
			Severity: string(issue.Severity),
			Message:  issue.Message,
		})
	}
	return resp
}

func decodeRequest(w http.ResponseWriter, r *http.Request) (PreviewRequest, bool) {
	var req PreviewRequest
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return req, false
	}
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxContentBytes))
	if err := dec.Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return req, false
	}
	return req, true
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Error("failed to encode response", "error", err)
	}
}
