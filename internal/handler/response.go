package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/efreitasn/tradefeed/internal/domain"
)

// UserHeader carries the caller's identity on REST requests.
const UserHeader = "X-User"

// WriteJSON writes a JSON response with the given status code and data.
// Sets Content-Type to application/json before writing the status code.
func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data) // Write error intentionally ignored in response helper
}

// errorResponse is the standard error response format.
type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// WriteError writes a standard error response.
func WriteError(w http.ResponseWriter, status int, errorCode, message string) {
	WriteJSON(w, status, errorResponse{
		Error:   errorCode,
		Message: message,
	})
}

// writeDomainError maps a service error onto the HTTP error format.
func writeDomainError(w http.ResponseWriter, err error) {
	var ve *domain.ValidationError
	switch {
	case errors.As(err, &ve):
		WriteError(w, http.StatusBadRequest, "invalid_request", ve.Message)
	case errors.Is(err, domain.ErrUnknownUser):
		WriteError(w, http.StatusNotFound, "user_not_found", "User not found")
	default:
		WriteError(w, http.StatusInternalServerError, "internal_error", "Internal server error")
	}
}

// requireUser returns the identity from the X-User header, writing 401
// and returning false if it is absent.
func requireUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	user := strings.TrimSpace(r.Header.Get(UserHeader))
	if user == "" {
		WriteError(w, http.StatusUnauthorized, "unauthenticated", UserHeader+" header is required")
		return "", false
	}
	return user, true
}

// ParseJSON decodes the request body as JSON into v. Unknown fields and
// malformed bodies are reported as a *domain.ValidationError.
func ParseJSON(r *http.Request, v any) error {
	ct := r.Header.Get("Content-Type")
	if ct == "" || !strings.HasPrefix(ct, "application/json") {
		return &domain.ValidationError{Message: "Request body must be valid JSON with Content-Type: application/json"}
	}

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return &domain.ValidationError{Message: "Request body must be valid JSON with Content-Type: application/json"}
	}

	return nil
}
