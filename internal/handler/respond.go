package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/spinforge/platform/internal/domain"
	"github.com/spinforge/platform/internal/protocol"
)

// RespondJSON writes a JSON response with the given status code.
func RespondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// RespondError writes a JSON error response. Player-facing failures carry
// status 200 and render as the protocol Error packet; everything else is a
// code/message pair under the error's HTTP status.
func RespondError(w http.ResponseWriter, err error) {
	var appErr *domain.AppError
	if errors.As(err, &appErr) {
		if appErr.Status == http.StatusOK {
			RespondJSON(w, http.StatusOK, &protocol.ErrorResponse{Kind: protocol.RespError, Message: appErr.Message})
			return
		}
		RespondJSON(w, appErr.Status, appErr)
		return
	}
	RespondJSON(w, http.StatusInternalServerError,
		&domain.AppError{Code: "INTERNAL_ERROR", Message: "internal server error"})
}

// DecodeJSON reads and decodes a JSON request body into dst.
func DecodeJSON(r *http.Request, dst interface{}) error {
	return json.NewDecoder(r.Body).Decode(dst)
}
