package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"project-tracker-api/internal/storage"
	"project-tracker-api/internal/store"
	"project-tracker-api/pkg/importer"
)

// ImportsHandler handles Excel import operations
type ImportsHandler struct {
	DB           *storage.DB
	MaxBytes     int64
	MappingPath  string // empty uses the importer's embedded mapping
	StoreOptions store.Options
}

// NewImportsHandler creates a new imports handler
func NewImportsHandler(db *storage.DB, opts store.Options) *ImportsHandler {
	return &ImportsHandler{
		DB:           db,
		MaxBytes:     20 << 20, // 20 MB
		StoreOptions: opts,
	}
}

// UploadExcel imports projects and tasks from a multipart .xlsx upload
func (h *ImportsHandler) UploadExcel(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.MaxBytes)

	if !strings.Contains(r.Header.Get("Content-Type"), "multipart/form-data") {
		writeError(w, http.StatusBadRequest, "INVALID_CONTENT_TYPE", "content-type must be multipart/form-data")
		return
	}

	if err := r.ParseMultipartForm(h.MaxBytes); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_FORM", "invalid multipart form: "+err.Error())
		return
	}

	dryRun, _ := strconv.ParseBool(r.FormValue("dry_run"))
	maxErrors := 50
	if v := r.FormValue("max_errors"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "INVALID_FORM", "max_errors must be a positive integer")
			return
		}
		maxErrors = n
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_FORM", "file is required: "+err.Error())
		return
	}
	defer file.Close()

	if !isXLSX(header) {
		writeError(w, http.StatusBadRequest, "INVALID_FILE", "only .xlsx files are accepted")
		return
	}

	sum, impErr := importer.ImportExcel(r.Context(), h.DB, file, importer.ImportOptions{
		MappingPath:  h.MappingPath,
		DryRun:       dryRun,
		MaxErrors:    maxErrors,
		StoreOptions: h.StoreOptions,
	})
	switch {
	case impErr == nil:
	case errors.Is(impErr, importer.ErrInvalidWorkbook):
		writeError(w, http.StatusBadRequest, "INVALID_FILE", impErr.Error())
		return
	case errors.Is(impErr, importer.ErrTooManyErrors):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"error": impErr.Error(),
			"code":  "IMPORT_FAILED",
			"data":  sum,
		})
		return
	default:
		log.Printf("import %s: %v", sum.BatchID, impErr)
		writeError(w, http.StatusInternalServerError, "INTERNAL", "import failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"data": sum,
		"meta": map[string]any{
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		},
	})
}

// isXLSX checks if the uploaded file is an Excel .xlsx file
func isXLSX(h *multipart.FileHeader) bool {
	return strings.HasSuffix(strings.ToLower(h.Filename), ".xlsx")
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, map[string]string{"error": msg, "code": code})
}
