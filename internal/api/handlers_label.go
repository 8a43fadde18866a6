package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/dgallion1/qlabel/internal/document"
	"github.com/dgallion1/qlabel/internal/inspect"
	"github.com/dgallion1/qlabel/internal/labeler"
)

func (s *Server) handleLabel(w http.ResponseWriter, r *http.Request) {
	filename, data, ok := s.readDocument(w, r)
	if !ok {
		return
	}

	lines, res, err := s.labeler.Label(filename, document.SplitLines(string(data)))
	if err != nil {
		s.log.Warn("label rejected", "filename", filename, "error", err)
		jsonError(w, err.Error(), statusFor(err))
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("X-Chunks-Synthesized", strconv.Itoa(res.Synthesized))
	w.Header().Set("X-Chunks-Preserved", strconv.Itoa(res.Preserved))
	w.Header().Set("X-Chunks-Changed", strconv.FormatBool(res.Changed))
	io.WriteString(w, document.JoinLines(lines))
}

func (s *Server) handleInspect(w http.ResponseWriter, r *http.Request) {
	filename, data, ok := s.readDocument(w, r)
	if !ok {
		return
	}

	report, err := inspect.Inspect(filename, data)
	if err != nil {
		jsonError(w, err.Error(), statusFor(err))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"report":     report,
		"unlabeled":  len(report.Unlabeled()),
		"duplicates": report.Duplicates(),
	})
}

// readDocument requires the filename query parameter and reads the body up
// to the configured upload limit. The extension is checked by the labeler
// and inspector. It writes the error response itself.
func (s *Server) readDocument(w http.ResponseWriter, r *http.Request) (string, []byte, bool) {
	filename := sanitizeFilename(r.URL.Query().Get("filename"))
	if filename == "" {
		jsonError(w, "filename is required", http.StatusBadRequest)
		return "", nil, false
	}

	data, err := io.ReadAll(io.LimitReader(r.Body, s.cfg.MaxUploadBytes+1))
	if err != nil {
		jsonError(w, "failed to read body", http.StatusInternalServerError)
		return "", nil, false
	}
	if int64(len(data)) > s.cfg.MaxUploadBytes {
		jsonError(w, fmt.Sprintf("document exceeds max size (%d bytes)", s.cfg.MaxUploadBytes), http.StatusRequestEntityTooLarge)
		return "", nil, false
	}
	return filename, data, true
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, labeler.ErrInvalidInputKind):
		return http.StatusBadRequest
	case errors.Is(err, labeler.ErrMalformedChunk):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func sanitizeFilename(name string) string {
	if name == "" {
		return ""
	}
	// Strip path components, keep only the base name.
	name = filepath.Base(name)
	name = strings.ReplaceAll(name, "/", "_")
	name = strings.ReplaceAll(name, "\\", "_")
	name = strings.ReplaceAll(name, "..", "_")
	if name == "." {
		return ""
	}
	return name
}
