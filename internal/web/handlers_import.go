package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/catalogcsv/internal/core"
	"github.com/JonMunkholm/catalogcsv/internal/logging"
)

// multipartMemory is how much of a multipart form is kept in memory before
// spilling to temporary files.
const multipartMemory = 32 << 20

// formOverhead is the slack allowed on top of the file size limit for the
// other multipart fields.
const formOverhead = 1 << 20

var errNoFile = errors.New("no file provided")

// upload is the parsed multipart body shared by import, preview and mapping
// detection.
type upload struct {
	file    multipart.File
	name    string
	size    int64
	mapping *core.MappingConfiguration
}

// readUpload parses the multipart form and returns the file and the optional
// mapping field. The caller closes the file.
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) (*upload, error) {
	if limit := s.cfg.Import.MaxFileSize; limit > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, limit+formOverhead)
	}

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, fmt.Errorf("%w: limit is %d bytes", core.ErrFileTooLarge, s.cfg.Import.MaxFileSize)
		}
		return nil, fmt.Errorf("%w: invalid form: %v", errNoFile, err)
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		return nil, errNoFile
	}

	u := &upload{file: file, name: header.Filename, size: header.Size}

	if raw := r.FormValue("mapping"); raw != "" {
		var mapping core.MappingConfiguration
		if err := json.Unmarshal([]byte(raw), &mapping); err != nil {
			file.Close()
			return nil, fmt.Errorf("%w: %v", core.ErrInvalidMapping, err)
		}
		u.mapping = &mapping
	}
	return u, nil
}

func uploadStatus(err error) int {
	if errors.Is(err, errNoFile) {
		return http.StatusBadRequest
	}
	return statusFor(err)
}

// handleStartImport starts an import into a catalog and returns its run id.
func (s *Server) handleStartImport(w http.ResponseWriter, r *http.Request) {
	catalogID := chi.URLParam(r, "catalogID")

	u, err := s.readUpload(w, r)
	if err != nil {
		respondErrorStatus(w, r, err, uploadStatus(err))
		return
	}
	defer u.file.Close()

	runID, err := s.service.StartImport(r.Context(), catalogID, u.name, u.file, u.size, u.mapping)
	if err != nil {
		respondError(w, r, err)
		return
	}

	logging.FromContext(r.Context()).Info("import started",
		"run_id", runID,
		"catalog_id", catalogID,
		"file", u.name,
		"size", u.size,
	)
	writeJSONStatus(w, http.StatusAccepted, map[string]string{"run_id": runID})
}

// handlePreviewImport reports what an import would do without saving.
func (s *Server) handlePreviewImport(w http.ResponseWriter, r *http.Request) {
	catalogID := chi.URLParam(r, "catalogID")

	u, err := s.readUpload(w, r)
	if err != nil {
		respondErrorStatus(w, r, err, uploadStatus(err))
		return
	}
	defer u.file.Close()

	preview, err := s.service.PreviewImport(r.Context(), catalogID, u.name, u.file, u.size, u.mapping)
	if err != nil {
		respondError(w, r, err)
		return
	}

	writeJSON(w, preview)
}

// handleImportProgress streams import progress via Server-Sent Events.
// Supports resumption via lastEventId query parameter for reconnection.
func (s *Server) handleImportProgress(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "runID")

	// The event ID is the progress percentage, allowing clients to skip
	// already-received events after reconnection
	lastEventIDStr := r.URL.Query().Get("lastEventId")
	if lastEventIDStr == "" {
		lastEventIDStr = r.Header.Get("Last-Event-ID")
	}
	lastEventID := -1
	if lastEventIDStr != "" {
		if n, err := strconv.Atoi(lastEventIDStr); err == nil {
			lastEventID = n
		}
	}

	progressCh, err := s.service.SubscribeProgress(runID)
	if err != nil {
		respondError(w, r, err)
		return
	}

	// The controller reaches the Flusher through middleware wrappers
	rc := http.NewResponseController(w)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	if err := rc.Flush(); err != nil {
		logging.FromContext(r.Context()).Error("streaming not supported", "error", err)
		return
	}

	var last core.ProgressInfo
	for {
		select {
		case progress, ok := <-progressCh:
			if !ok {
				// Channel closed - the run is over
				data, _ := json.Marshal(last)
				fmt.Fprintf(w, "event: complete\ndata: %s\n\n", data)
				rc.Flush()
				return
			}
			last = progress

			// Skip events that were already sent (for resumption), but
			// always deliver the terminal state
			percent := progress.Percent()
			if percent <= lastEventID && !progress.Phase.Terminal() {
				continue
			}

			data, _ := json.Marshal(progress)
			fmt.Fprintf(w, "id: %d\nevent: progress\ndata: %s\n\n", percent, data)
			rc.Flush()

		case <-r.Context().Done():
			return
		}
	}
}

// handleImportState returns the current progress without waiting.
func (s *Server) handleImportState(w http.ResponseWriter, r *http.Request) {
	progress, err := s.service.GetProgress(chi.URLParam(r, "runID"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, progress)
}

// handleImportResult returns the final result of a run. Unfinished runs
// answer 202 with their progress unless wait=true is given, in which case
// the request blocks until the run ends or the request times out.
func (s *Server) handleImportResult(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "runID")

	if r.URL.Query().Get("wait") != "true" {
		progress, err := s.service.GetProgress(runID)
		if err != nil {
			respondError(w, r, err)
			return
		}
		if !progress.Phase.Terminal() {
			writeJSONStatus(w, http.StatusAccepted, progress)
			return
		}
	}

	result, err := s.service.GetResult(r.Context(), runID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, result)
}

// handleCancelImport stops a run at its next phase boundary.
func (s *Server) handleCancelImport(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "runID")

	if err := s.service.CancelImport(runID); err != nil {
		respondError(w, r, err)
		return
	}

	logging.FromContext(r.Context()).Info("import cancel requested", "run_id", runID)
	writeJSON(w, map[string]string{"status": "cancelling"})
}

// handleImportStatus reports import slot usage.
func (s *Server) handleImportStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.service.LimiterStatus())
}
