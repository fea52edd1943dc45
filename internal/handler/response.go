package handler

import (
	"net/http"

	apperrors "github.com/mockupdesk/listing-server-go/internal/errors"
	"github.com/mockupdesk/listing-server-go/internal/httputil"
)

func writeJSON(w http.ResponseWriter, status int, data any) {
	httputil.WriteJSON(w, status, data)
}

// writeServiceError maps structured errors to their HTTP status and falls
// back to a bare 500 for anything unclassified.
func writeServiceError(w http.ResponseWriter, err error) {
	if apperrors.IsAppError(err) {
		httputil.WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
}
