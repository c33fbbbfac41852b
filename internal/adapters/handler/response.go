package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/DanielPopoola/parking-reservation/internal/core/domain"
)

const codeInvalidRequest = "INVALID_REQUEST"

type APIResponse struct {
	Success bool      `json:"success"`
	Data    any       `json:"data,omitempty"`
	Error   *APIError `json:"error,omitempty"`
}

type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func respondWithJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	response := APIResponse{
		Success: status >= 200 && status < 300,
	}

	if response.Success {
		response.Data = data
	} else {
		if apiErr, ok := data.(*APIError); ok {
			response.Error = apiErr
		}
	}

	_ = json.NewEncoder(w).Encode(response)
}

func respondWithError(w http.ResponseWriter, err error) {
	var domainErr *domain.DomainError
	code := "INTERNAL_ERROR"
	message := "internal server error"
	status := http.StatusInternalServerError

	if errors.As(err, &domainErr) {
		code = domainErr.Code
		message = domainErr.Message
		status = statusForKind(domainErr.Kind)
	}

	respondWithJSON(w, status, &APIError{
		Code:    code,
		Message: message,
	})
}

func statusForKind(kind domain.ErrorKind) int {
	switch kind {
	case domain.KindValidation:
		return http.StatusBadRequest
	case domain.KindUnauthorized:
		return http.StatusForbidden
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindConflict:
		return http.StatusConflict
	case domain.KindTransientIntegration:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func respondUnauthenticated(w http.ResponseWriter, message string) {
	respondWithJSON(w, http.StatusUnauthorized, &APIError{
		Code:    "UNAUTHENTICATED",
		Message: message,
	})
}

func invalidRequest(message string) *domain.DomainError {
	return &domain.DomainError{
		Kind:    domain.KindValidation,
		Code:    codeInvalidRequest,
		Message: message,
	}
}
