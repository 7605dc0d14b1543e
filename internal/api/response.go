package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/cockroachdb/errors"

	"yoco/stocksync/internal/apperrors"
	"yoco/stocksync/internal/constants"
	"yoco/stocksync/internal/models/dtos/responses"
)

func respondWithSuccess[T any](w http.ResponseWriter, statusCode int, data *T) {
	resp := responses.APIResponse[T]{
		Status:    string(constants.APIStatusOk),
		Timestamp: time.Now().UTC(),
		Data:      data,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(resp)
}

func respondWithError(w http.ResponseWriter, statusCode int, message string) {
	resp := responses.APIResponse[any]{
		Status:    string(constants.APIStatusError),
		Timestamp: time.Now().UTC(),
		Error:     message,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(resp)
}

// respondWithAppError picks the status code from the error taxonomy
func respondWithAppError(w http.ResponseWriter, err error) {
	respondWithError(w, statusForError(err), err.Error())
}

func statusForError(err error) int {
	var cfgErr *apperrors.ConfigError
	var fetchErr *apperrors.FetchError
	var parseErr *apperrors.ParseError
	var entryErr *apperrors.EntryError

	switch {
	case errors.Is(err, apperrors.ErrAlreadyRunning):
		return http.StatusConflict
	case errors.Is(err, apperrors.ErrEntryNotFound), errors.Is(err, apperrors.ErrSupplierNotFound):
		return http.StatusNotFound
	case errors.As(err, &cfgErr):
		if cfgErr.Code == constants.ErrCodeConfigNotFound {
			return http.StatusNotFound
		}
		return http.StatusBadRequest
	case errors.As(err, &fetchErr):
		return http.StatusBadGateway
	case errors.As(err, &parseErr), errors.As(err, &entryErr):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
