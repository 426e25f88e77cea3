// Package httputil maps domain errors onto HTTP responses and provides the
// small JSON helpers every handler uses.
package httputil

import (
	"encoding/json"
	"errors"
	"net/http"

	dErrors "ustbills/pkg/domain-errors"
)

type errorBody struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
}

// statusFor maps error codes onto HTTP statuses. Unknown codes fall through
// to 500 so an unclassified failure never masquerades as a client error.
func statusFor(code dErrors.Code) int {
	switch code {
	case dErrors.CodeNotFound:
		return http.StatusNotFound
	case dErrors.CodeAlreadyExists, dErrors.CodeStateConflict:
		return http.StatusConflict
	case dErrors.CodeUnauthorized:
		return http.StatusForbidden
	case dErrors.CodeAnonymousCaller:
		return http.StatusUnauthorized
	case dErrors.CodeInvalidInput:
		return http.StatusBadRequest
	case dErrors.CodeInsufficientFunds:
		return http.StatusUnprocessableEntity
	case dErrors.CodeExternal:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// WriteError renders err as a JSON error response. Internal error detail is
// withheld from the body; everything else carries its message.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	body := errorBody{Error: string(code)}
	if code != dErrors.CodeInternal && code != dErrors.CodeExternal {
		var de *dErrors.Error
		if errors.As(err, &de) {
			body.ErrorDescription = de.Message
		}
	}
	WriteJSON(w, statusFor(code), body)
}

// WriteJSON renders v with the given status. Encoding failures are silently
// dropped since the header is already written.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// DecodeJSON parses the request body into dst, returning a coded error on
// malformed payloads.
func DecodeJSON(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInvalidInput, "malformed JSON body")
	}
	return nil
}
