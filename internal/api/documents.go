package api

import (
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/chatmesh/chatmesh/internal/archive"
	"github.com/chatmesh/chatmesh/internal/attachment"
	"github.com/chatmesh/chatmesh/internal/observability"
)

func handleUploadDocument(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Index == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "INDEX_DISABLED", "document indexing is not configured", false, nil)
		return
	}

	maxBytes := deps.MaxUploadBytes
	if maxBytes <= 0 {
		maxBytes = 32 << 20
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes+(1<<20))

	if err := r.ParseMultipartForm(maxBytes); err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_MULTIPART", "request body must be multipart form data", false, nil)
		return
	}
	file, header, err := r.FormFile("document")
	if err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "MISSING_DOCUMENT", "document file field is required", false, nil)
		return
	}
	defer func() { _ = file.Close() }()

	if attachment.Classify(header.Filename) != attachment.KindPDF {
		writeError(r.Context(), w, http.StatusBadRequest, "UNSUPPORTED_DOCUMENT", "only pdf documents can be indexed", false,
			map[string]any{"filename": header.Filename})
		return
	}

	spooled, err := attachment.Spool(file, header.Filename, maxBytes)
	if err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "SPOOL_FAILED", err.Error(), false, nil)
		return
	}
	defer spooled.Cleanup()

	chunks, err := deps.Chunker.ChunkPDF(spooled.Path, spooled.Filename)
	if err != nil {
		writeError(r.Context(), w, http.StatusUnprocessableEntity, "CHUNK_FAILED", err.Error(), false, nil)
		return
	}
	if err := deps.Index.Upsert(r.Context(), chunks); err != nil {
		logHandlerError(deps, r, "index document", err)
		writeError(r.Context(), w, http.StatusBadGateway, "INDEX_FAILED", "could not index the document", true, nil)
		return
	}
	observability.IncrementDocumentsIndexed()

	archived := false
	if deps.Archive != nil {
		if err := archiveSpooled(deps, r, spooled); err != nil {
			logHandlerError(deps, r, "archive document", err)
		} else {
			archived = true
		}
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"document": spooled.Filename,
		"chunks":   len(chunks),
		"archived": archived,
	})
}

func archiveSpooled(deps Dependencies, r *http.Request, spooled *attachment.Spooled) error {
	f, err := os.Open(spooled.Path)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()
	stat, err := f.Stat()
	if err != nil {
		return err
	}
	_, err = deps.Archive.Put(r.Context(), spooled.Filename, f, stat.Size(), archive.PutOptions{ContentType: "application/pdf"})
	return err
}

func handleDeleteDocument(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Index == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "INDEX_DISABLED", "document indexing is not configured", false, nil)
		return
	}
	name := strings.TrimSpace(r.PathValue("name"))
	if name == "" {
		writeError(r.Context(), w, http.StatusBadRequest, "MISSING_NAME", "document name is required", false, nil)
		return
	}

	if err := deps.Index.DeleteBySource(r.Context(), name); err != nil {
		logHandlerError(deps, r, "delete document chunks", err)
		writeError(r.Context(), w, http.StatusBadGateway, "DELETE_FAILED", "could not delete the document from the index", true, nil)
		return
	}
	if deps.Archive != nil {
		if err := deps.Archive.Delete(r.Context(), name); err != nil {
			logHandlerError(deps, r, "delete archived document", err)
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"document": name, "deleted": true})
}

func logHandlerError(deps Dependencies, r *http.Request, op string, err error) {
	if deps.Logger == nil {
		return
	}
	deps.Logger.ErrorContext(r.Context(), "document handler failed", slog.String("op", op), slog.String("error", err.Error()))
}
