package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/chatmesh/chatmesh/internal/agent"
	"github.com/chatmesh/chatmesh/internal/attachment"
	"github.com/chatmesh/chatmesh/internal/observability"
)

type conversationResponse struct {
	SessionID  string                `json:"session_id"`
	Query      string                `json:"query"`
	Attachment *attachmentDescriptor `json:"attachment,omitempty"`
	Tool       string                `json:"tool"`
	Response   string                `json:"response"`
}

type attachmentDescriptor struct {
	Filename string `json:"filename"`
	Kind     string `json:"kind"`
}

func handleConversation(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	maxBytes := deps.MaxUploadBytes
	if maxBytes <= 0 {
		maxBytes = 32 << 20
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes+(1<<20))

	if err := r.ParseMultipartForm(maxBytes); err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_MULTIPART", "request body must be multipart form data", false, nil)
		return
	}

	query := strings.TrimSpace(r.FormValue("query"))
	if query == "" {
		writeError(r.Context(), w, http.StatusBadRequest, "MISSING_QUERY", "query field is required", false, nil)
		return
	}
	sessionID := strings.TrimSpace(r.FormValue("session_id"))
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	observability.SetSessionID(r.Context(), sessionID)

	var spooled *attachment.Spooled
	file, header, err := r.FormFile("attachment")
	switch {
	case err == nil:
		defer func() { _ = file.Close() }()
		if attachment.Classify(header.Filename) == attachment.KindUnknown {
			writeError(r.Context(), w, http.StatusBadRequest, "UNSUPPORTED_ATTACHMENT", "unsupported attachment type", false,
				map[string]any{"filename": header.Filename})
			return
		}
		spooled, err = attachment.Spool(file, header.Filename, maxBytes)
		if err != nil {
			writeError(r.Context(), w, http.StatusBadRequest, "SPOOL_FAILED", err.Error(), false, nil)
			return
		}
	case errors.Is(err, http.ErrMissingFile):
		// plain-text request
	default:
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_ATTACHMENT", err.Error(), false, nil)
		return
	}
	defer spooled.Cleanup()

	out, err := deps.Agent.Respond(r.Context(), agent.Input{
		ConversationID: sessionID,
		Query:          query,
		Spooled:        spooled,
	})
	if err != nil {
		if errors.Is(err, agent.ErrUnsupportedAttachment) {
			writeError(r.Context(), w, http.StatusBadRequest, "UNSUPPORTED_ATTACHMENT", "unsupported attachment type", false, nil)
			return
		}
		if deps.Logger != nil {
			deps.Logger.ErrorContext(r.Context(), "conversation failed", slog.String("error", err.Error()))
		}
		writeError(r.Context(), w, http.StatusBadGateway, "CONVERSATION_FAILED", "could not produce an answer", true, nil)
		return
	}

	resp := conversationResponse{
		SessionID: sessionID,
		Query:     query,
		Tool:      out.Tool,
		Response:  out.Answer,
	}
	if spooled != nil {
		resp.Attachment = &attachmentDescriptor{Filename: spooled.Filename, Kind: string(spooled.Kind)}
	}
	writeJSON(w, http.StatusOK, resp)
}
