package app

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/kangxh75/NextPM/internal/authpw"
	"github.com/kangxh75/NextPM/internal/export"
	"github.com/kangxh75/NextPM/internal/loader"
	"github.com/kangxh75/NextPM/internal/timeline"
)

type DomainError struct {
	Status  int
	Code    string
	Message string
	Details any
}

func (e *DomainError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func domainError(status int, code, message string, details any) *DomainError {
	return &DomainError{
		Status:  status,
		Code:    code,
		Message: message,
		Details: details,
	}
}

var errNotLoaded = domainError(http.StatusServiceUnavailable, "NOT_READY", "Spec data has not been loaded yet", nil)

func mapError(err error) (status int, code, message string, details any) {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Status, domainErr.Code, domainErr.Message, domainErr.Details
	}
	var loadErr *loader.LoadError
	if errors.As(err, &loadErr) {
		return http.StatusBadGateway, "LOAD_FAILED", "Failed to load spec data", map[string]any{"source": loadErr.Source}
	}
	switch {
	case errors.Is(err, timeline.ErrNoValidDates):
		return http.StatusNotFound, "NO_TIMELINE_DATA", "No valid dates found in timeline data", nil
	case errors.Is(err, export.ErrUnsupportedFormat):
		return http.StatusUnprocessableEntity, "VALIDATION_ERROR", "format must be 'pdf' or 'html'", nil
	case errors.Is(err, export.ErrPDFDependencyMissing):
		return http.StatusServiceUnavailable, "EXPORT_UNAVAILABLE", "PDF export is not available on this server", nil
	case errors.Is(err, export.ErrContentUnavailable):
		return http.StatusServiceUnavailable, "EXPORT_UNAVAILABLE", "Dashboard content unavailable", nil
	case errors.Is(err, authpw.ErrInvalidCredentials):
		return http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized", nil
	}
	return http.StatusInternalServerError, "SERVER_ERROR", "Server error", nil
}
