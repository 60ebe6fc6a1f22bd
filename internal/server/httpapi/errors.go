package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/penter405/brainsync/internal/common"
	"github.com/penter405/brainsync/internal/server/drive"
	"github.com/penter405/brainsync/internal/server/services"
)

type errorResponse struct {
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps the error taxonomy onto status codes. Messages never
// carry secret material; authentication failures never say why.
func writeError(w http.ResponseWriter, err error) {
	status, resp := classify(err)
	writeJSON(w, status, resp)
}

func classify(err error) (int, errorResponse) {
	var maxBytes *http.MaxBytesError
	switch {
	case errors.Is(err, common.ErrInvalidToken):
		return http.StatusUnauthorized, errorResponse{Error: "not logged in"}
	case errors.Is(err, services.ErrPayloadTooLarge), errors.As(err, &maxBytes):
		return http.StatusRequestEntityTooLarge, errorResponse{Error: "payload too large, limit is 5MB"}
	case errors.Is(err, common.ErrorValidation):
		return http.StatusBadRequest, errorResponse{Error: err.Error()}
	case errors.Is(err, common.ErrNoSyncTarget):
		return http.StatusBadRequest, errorResponse{Error: "no sync file selected"}
	case errors.Is(err, common.ErrMissingCredentials):
		return http.StatusBadRequest, errorResponse{Error: "missing OAuth token, please log in again"}
	case errors.Is(err, common.ErrorNotFound):
		return http.StatusNotFound, errorResponse{Error: "not found"}
	case errors.Is(err, common.ErrUpstream):
		return http.StatusBadGateway, errorResponse{Error: "upstream request failed", Detail: upstreamDetail(err)}
	case errors.Is(err, common.ErrConfiguration):
		return http.StatusInternalServerError, errorResponse{Error: "server misconfigured"}
	default:
		return http.StatusInternalServerError, errorResponse{Error: "internal error"}
	}
}

// upstreamDetail is the provider-supplied message, when there is one.
func upstreamDetail(err error) string {
	return drive.ErrorDetail(err)
}
