package handlers

import (
	"net/http"
	"strings"

	"github.com/lockin-live/lockin/pkg/core"
	"github.com/lockin-live/lockin/pkg/gateway/apierror"
	"github.com/lockin-live/lockin/pkg/history"
)

// SessionsHandler serves the conversation history browse surface:
// GET /v1/sessions and GET /v1/sessions/{session_id}.
type SessionsHandler struct {
	Store history.Store
}

type sessionListResponse struct {
	Sessions []history.SessionRecord `json:"sessions"`
}

func (h SessionsHandler) List(w http.ResponseWriter, r *http.Request) {
	reqID := requestIDFromContext(r)
	if h.Store == nil {
		writeCoreErrorJSON(w, reqID, core.NewStorageError("history store is not configured", nil), http.StatusInternalServerError)
		return
	}

	records, err := h.Store.AllSessions(r.Context())
	if err != nil {
		coreErr, status := apierror.FromError(err, reqID)
		writeCoreErrorJSON(w, reqID, coreErr, status)
		return
	}
	if records == nil {
		records = []history.SessionRecord{}
	}
	writeJSON(w, http.StatusOK, sessionListResponse{Sessions: records})
}

func (h SessionsHandler) Get(w http.ResponseWriter, r *http.Request) {
	reqID := requestIDFromContext(r)
	if h.Store == nil {
		writeCoreErrorJSON(w, reqID, core.NewStorageError("history store is not configured", nil), http.StatusInternalServerError)
		return
	}

	sessionID := strings.TrimSpace(r.PathValue("session_id"))
	if sessionID == "" {
		writeCoreErrorJSON(w, reqID, core.NewInvalidRequestErrorWithParam("session_id is required", "session_id"), http.StatusBadRequest)
		return
	}

	record, err := h.Store.GetSession(r.Context(), sessionID)
	if err != nil {
		coreErr, status := apierror.FromError(err, reqID)
		writeCoreErrorJSON(w, reqID, coreErr, status)
		return
	}
	if record == nil {
		writeJSONNotFound(w, reqID)
		return
	}
	writeJSON(w, http.StatusOK, record)
}
