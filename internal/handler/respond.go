// Package handler provides the HTTP handlers of the freeswap API.
package handler

import (
	"encoding/json"
	stderrors "errors"
	"net/http"

	"freeswap/pkg/errors"
)

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// statusFor maps domain errors onto HTTP status codes so callers can tell
// validation, authentication, and ledger failures apart.
func statusFor(err error) int {
	switch {
	case stderrors.Is(err, errors.ErrInvalidCredentials),
		stderrors.Is(err, errors.ErrSessionNotFound):
		return http.StatusUnauthorized
	case stderrors.Is(err, errors.ErrWalletNotFound),
		stderrors.Is(err, errors.ErrAddressNotFound),
		stderrors.Is(err, errors.ErrTokenNotFound):
		return http.StatusNotFound
	case stderrors.Is(err, errors.ErrWalletAlreadyExists):
		return http.StatusConflict
	case stderrors.Is(err, errors.ErrInvalidAddress),
		stderrors.Is(err, errors.ErrInvalidAmount),
		stderrors.Is(err, errors.ErrInvalidMnemonic),
		stderrors.Is(err, errors.ErrInsufficientBalance):
		return http.StatusBadRequest
	case stderrors.Is(err, errors.ErrNodeUnavailable):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
