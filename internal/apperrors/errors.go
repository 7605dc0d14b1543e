// Package apperrors defines the sync error taxonomy.
//
// Run level errors (ConfigError, FetchError, ParseError) abort a single
// supplier pass and mark its log failed. EntryError and StoreError are
// collected per catalog entry and never abort a run.
package apperrors

import (
	"fmt"

	"github.com/cockroachdb/errors"

	"yoco/stocksync/internal/constants"
)

var (
	// ErrAlreadyRunning is returned when a sync lease is held by another run
	ErrAlreadyRunning = errors.New(constants.SyncErrorMessages[constants.ErrCodeAlreadyRunning])
	// ErrEntryNotFound is returned when a catalog entry does not exist
	ErrEntryNotFound = errors.New("catalog entry not found")
	// ErrSupplierNotFound is returned when no feed config exists for a supplier
	ErrSupplierNotFound = errors.New("supplier not found")
	// ErrInvalidTransition is returned when finalizing a log that is no longer running
	ErrInvalidTransition = errors.New("sync log is not running")
	// ErrCancelled ends a run whose context was cancelled between entries
	ErrCancelled = errors.New(constants.SyncErrorMessages[constants.ErrCodeCancelled])
)

// ConfigError means the supplier config is missing or unusable
type ConfigError struct {
	SupplierID int64
	Code       string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("supplier %d: %s", e.SupplierID, constants.GetSyncErrorMessage(e.Code))
}

// FetchError describes a failed feed download.
// Step is only set for FTP sources.
type FetchError struct {
	Source     string
	Mode       constants.ConnectionMode
	Reason     string
	Step       string
	StatusCode int
	Code       string
	Err        error
}

func (e *FetchError) Error() string {
	msg := constants.GetSyncErrorMessage(e.Code)
	if e.Step != "" {
		msg = fmt.Sprintf("%s (ftp %s)", msg, e.Step)
	}
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s: HTTP %d", msg, e.StatusCode)
	}
	if e.Reason != "" {
		msg = fmt.Sprintf("%s [%s]", msg, e.Reason)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *FetchError) Unwrap() error { return e.Err }

// ParseError means the feed could not be turned into a document
type ParseError struct {
	Code string
	Err  error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", constants.GetSyncErrorMessage(e.Code), e.Err)
	}
	return constants.GetSyncErrorMessage(e.Code)
}

func (e *ParseError) Unwrap() error { return e.Err }

// EntryError is a failure scoped to one catalog entry
type EntryError struct {
	EntryID int64
	Code    string
	Err     error
}

func (e *EntryError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("Entry %d: %v", e.EntryID, e.Err)
	}
	return fmt.Sprintf("Entry %d: %s", e.EntryID, constants.GetSyncErrorMessage(e.Code))
}

func (e *EntryError) Unwrap() error { return e.Err }

// StoreError wraps a persistence failure
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// IsRunLevel reports whether err aborts a whole supplier pass
func IsRunLevel(err error) bool {
	var cfgErr *ConfigError
	var fetchErr *FetchError
	var parseErr *ParseError
	return errors.As(err, &cfgErr) || errors.As(err, &fetchErr) || errors.As(err, &parseErr) ||
		errors.Is(err, ErrCancelled)
}

// Code extracts the error code carried by err, if any
func Code(err error) string {
	var cfgErr *ConfigError
	if errors.As(err, &cfgErr) {
		return cfgErr.Code
	}
	var fetchErr *FetchError
	if errors.As(err, &fetchErr) {
		return fetchErr.Code
	}
	var parseErr *ParseError
	if errors.As(err, &parseErr) {
		return parseErr.Code
	}
	var entryErr *EntryError
	if errors.As(err, &entryErr) {
		return entryErr.Code
	}
	var storeErr *StoreError
	if errors.As(err, &storeErr) {
		return constants.ErrCodeStoreFailed
	}
	if errors.Is(err, ErrAlreadyRunning) {
		return constants.ErrCodeAlreadyRunning
	}
	if errors.Is(err, ErrCancelled) {
		return constants.ErrCodeCancelled
	}
	return ""
}
