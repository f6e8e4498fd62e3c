package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"

	"github.com/JonMunkholm/catalogflat/internal/catalog"
	"github.com/JonMunkholm/catalogflat/internal/logging"
	"github.com/go-chi/chi/v5"
)

// maxReportedWarnings caps the warnings echoed in a process response.
// The full list is in the debug log.
const maxReportedWarnings = 50

// ProcessResponse is returned by POST /api/process.
type ProcessResponse struct {
	Status       string   `json:"status"`
	FileURL      string   `json:"file_url"`
	FileName     string   `json:"filename"`
	RunID        string   `json:"run_id"`
	Dialect      string   `json:"dialect"`
	Encoding     string   `json:"encoding"`
	Records      int      `json:"records"`
	Columns      int      `json:"columns"`
	WarningCount int      `json:"warning_count"`
	Warnings     []string `json:"warnings,omitempty"`
	DurationMS   int64    `json:"duration_ms"`
}

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status string                `json:"status"`
	Runs   catalog.LimiterStatus `json:"runs"`
}

// handleProcess flattens an uploaded feed and returns where to fetch the table.
func (s *Server) handleProcess(w http.ResponseWriter, r *http.Request) {
	maxSize := s.cfg.Upload.MaxFileSize
	// Leave room for the multipart envelope around the file itself.
	r.Body = http.MaxBytesReader(w, r.Body, maxSize+1<<20)

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var maxBytes *http.MaxBytesError
		if errors.As(err, &maxBytes) {
			err = fmt.Errorf("%w: limit is %d bytes", catalog.ErrDocumentTooLarge, maxSize)
			respondError(w, r, err, statusFor(err))
			return
		}
		respondError(w, r, fmt.Errorf("%w: %v", errNoFile, err), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		respondError(w, r, errNoFile, http.StatusBadRequest)
		return
	}
	defer file.Close()

	hint, err := catalog.ParseDialect(r.FormValue("dialect"))
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}

	data, err := catalog.ReadLimited(file, maxSize)
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}

	logger := logging.WithFields(r.Context(), "source", header.Filename, "dialect", hint.String())
	logger.Info("feed received", "bytes", len(data))

	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.Processing.Timeout)
	defer cancel()

	res, err := s.processor.Process(ctx, catalog.Input{
		Data:       data,
		SourceName: header.Filename,
		Hint:       hint,
	})
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}

	writeJSON(w, http.StatusOK, toProcessResponse(res))
}

func toProcessResponse(res *catalog.Result) ProcessResponse {
	resp := ProcessResponse{
		Status:       "completed",
		FileURL:      "/download/data_files/" + url.PathEscape(res.FileName),
		FileName:     res.FileName,
		RunID:        res.RunID,
		Dialect:      res.Dialect.String(),
		Encoding:     res.Encoding,
		Records:      res.Records,
		Columns:      len(res.Columns),
		WarningCount: len(res.Warnings),
		DurationMS:   res.Duration.Milliseconds(),
	}
	for i, wn := range res.Warnings {
		if i == maxReportedWarnings {
			break
		}
		resp.Warnings = append(resp.Warnings, wn.Error())
	}
	return resp
}

// handleDownload streams a generated table from the artifact directory.
func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "filename")

	path, err := s.store.Resolve(name)
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}

	f, err := os.Open(path)
	if err != nil {
		respondError(w, r, fmt.Errorf("open artifact: %w", err), http.StatusInternalServerError)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		respondError(w, r, fmt.Errorf("stat artifact: %w", err), http.StatusInternalServerError)
		return
	}

	base := filepath.Base(path)
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, base))
	if origin := s.cfg.Security.AllowedOrigins; origin != "" {
		w.Header().Set("Access-Control-Allow-Origin", origin)
	}
	http.ServeContent(w, r, base, info.ModTime(), f)
}

// handleHealth reports liveness and run slot usage.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{Status: "ok"}
	if s.limiter != nil {
		resp.Runs = s.limiter.Status()
	}
	writeJSON(w, http.StatusOK, resp)
}
