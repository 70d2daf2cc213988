package receipt

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/zombor/pantry-tracker/internal/dictation"
	"github.com/zombor/pantry-tracker/internal/extraction"
)

// maxFormSize bounds a multipart upload; high-resolution phone photos are large
const maxFormSize = int64(50 << 20)

// fallbackHint tells the client which capture modes still work
var fallbackHint = []string{"dictation", "manual"}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

// writeError maps service errors onto status codes
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNoItemsFound):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"error":    "No items could be read from this receipt. Try dictating or entering the items.",
			"fallback": fallbackHint,
		})
	case errors.Is(err, ErrProcessingFailed):
		writeJSON(w, http.StatusBadGateway, map[string]any{
			"error":    "The receipt could not be scanned. Try dictating or entering the items.",
			"fallback": fallbackHint,
		})
	case errors.Is(err, ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "Not found"})
	case errors.Is(err, ErrAlreadyCommitted):
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
	case errors.Is(err, ErrInvalidInput):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	default:
		slog.Error("Request failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
	}
}

func logProgress(runKind string) ProgressFunc {
	return func(stage string, done, total int) {
		slog.Debug("Processing progress", "kind", runKind, "stage", stage, "done", done, "total", total)
	}
}

// contentTypeFor prefers the part header and falls back to the file extension
func contentTypeFor(header *multipart.FileHeader) string {
	contentType := header.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		switch strings.ToLower(filepath.Ext(header.Filename)) {
		case ".jpg", ".jpeg":
			contentType = "image/jpeg"
		case ".png":
			contentType = "image/png"
		case ".pdf":
			contentType = "application/pdf"
		case ".heic":
			contentType = "image/heic"
		case ".heif":
			contentType = "image/heif"
		default:
			contentType = "application/octet-stream"
		}
	}
	return strings.ToLower(strings.TrimSpace(contentType))
}

func readUpload(header *multipart.FileHeader) (Upload, error) {
	f, err := header.Open()
	if err != nil {
		return Upload{}, err
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return Upload{}, err
	}
	return Upload{Filename: header.Filename, ContentType: contentTypeFor(header), Data: data}, nil
}

// handleUploadReceipts processes one or more receipt images as a single run
func (s *Server) handleUploadReceipts(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormSize)
	if err := r.ParseMultipartForm(maxFormSize); err != nil {
		slog.Error("Error parsing multipart form", "error", err)
		errorMsg := "Error parsing form"
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			errorMsg = "Upload is too large. Maximum size is 50MB."
		}
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": errorMsg})
		return
	}

	headers := r.MultipartForm.File["file"]
	if len(headers) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "No file was selected. Please choose a receipt image to upload.",
		})
		return
	}

	uploads := make([]Upload, 0, len(headers))
	for _, header := range headers {
		up, err := readUpload(header)
		if err != nil {
			slog.Error("Error reading file data", "error", err, "filename", header.Filename)
			writeJSON(w, http.StatusInternalServerError, map[string]string{
				"error": "Error reading file. Please try again.",
			})
			return
		}
		uploads = append(uploads, up)
	}

	run, err := s.service.ProcessImages(r.Context(), uploads, logProgress("receipt"))
	if err != nil {
		slog.Error("Error processing receipt", "files", len(uploads), "error", err)
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, run)
}

// handleProcessText extracts items from already-recognized receipt text
func (s *Server) handleProcessText(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
		return
	}

	run, err := s.service.ProcessText(r.Context(), req.Text, logProgress("text"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, run)
}

// handleDictation accepts either a finished transcript or the raw speech
// segments, of which only the final ones are kept
func (s *Server) handleDictation(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Transcript string `json:"transcript"`
		Segments   []struct {
			Text  string `json:"text"`
			Final bool   `json:"final"`
		} `json:"segments"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
		return
	}

	transcript := req.Transcript
	if len(req.Segments) > 0 {
		session := dictation.NewSession()
		for _, seg := range req.Segments {
			session.Add(seg.Text, seg.Final)
		}
		transcript = session.Transcript()
	}

	run, err := s.service.ProcessDictation(r.Context(), transcript)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, run)
}

// handleManual records manually entered items
func (s *Server) handleManual(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Items []extraction.ManualItem `json:"items"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
		return
	}

	run, err := s.service.ProcessManual(r.Context(), req.Items)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, run)
}

// handleListRuns returns all runs, newest first
func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := s.service.ListRuns(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, runs)
}

// handleGetRun returns a single run
func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	run, err := s.service.GetRun(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, run)
}

// handleDeleteRun deletes a run and its images
func (s *Server) handleDeleteRun(w http.ResponseWriter, r *http.Request) {
	if err := s.service.DeleteRun(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// handleGetRunImage returns one stored image of a run
func (s *Server) handleGetRunImage(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Image index must be a number"})
		return
	}

	data, contentType, err := s.service.GetRunImage(r.Context(), r.PathValue("id"), index)
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Write(data)
}

// handleReviewItems stores the user's edited item list
func (s *Server) handleReviewItems(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Items []extraction.ExtractedItem `json:"items"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
		return
	}

	run, err := s.service.ReviewItems(r.Context(), r.PathValue("id"), req.Items)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, run)
}

// handleCommit sends a run's items to the inventory
func (s *Server) handleCommit(w http.ResponseWriter, r *http.Request) {
	run, err := s.service.Commit(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, run)
}
