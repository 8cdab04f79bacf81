package handlers

import (
	"errors"
	"log"
	"net/http"

	"gescom-system/internal/apperr"
)

type APIResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
	Meta    interface{} `json:"meta,omitempty"`
}

func successResponse(message string, data interface{}) APIResponse {
	return APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	}
}

func errorResponse(message string) APIResponse {
	return APIResponse{
		Success: false,
		Message: message,
	}
}

// statusFromError maps the service error taxonomy to HTTP statuses.
// Unexpected errors are logged and surfaced without internal detail.
func statusFromError(err error) (int, APIResponse) {
	var validationErr *apperr.ValidationError
	var notFoundErr *apperr.NotFoundError
	var stockErr *apperr.InsufficientStockError

	switch {
	case errors.As(err, &validationErr):
		return http.StatusBadRequest, errorResponse(validationErr.Message)
	case errors.As(err, &notFoundErr):
		return http.StatusNotFound, errorResponse(notFoundErr.Error())
	case errors.As(err, &stockErr):
		return http.StatusConflict, errorResponse(stockErr.Error())
	case errors.Is(err, apperr.ErrConcurrencyConflict):
		return http.StatusConflict, errorResponse(apperr.ErrConcurrencyConflict.Error())
	case errors.Is(err, apperr.ErrInvalidCredentials):
		return http.StatusUnauthorized, errorResponse(apperr.ErrInvalidCredentials.Error())
	default:
		log.Printf("unexpected error: %v", err)
		return http.StatusInternalServerError, errorResponse("an internal error occurred")
	}
}
