package board

import (
	"errors"
	"fmt"
	"strings"

	"github.com/imkarma/tablero/internal/api"
)

// invalidEnumSignature is how the API words a rejected status value.
const invalidEnumSignature = "is not a valid enum value"

// ErrCancelled is returned when the user declines a confirmation.
var ErrCancelled = errors.New("cancelled by user")

// ValidationError means the operation was refused before any request.
type ValidationError struct {
	Field string
	Value string
	Msg   string
}

func (e *ValidationError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("invalid %s: %s", e.Field, e.Msg)
	}
	return fmt.Sprintf("invalid %s %q: %s", e.Field, e.Value, e.Msg)
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// Diagnostic is a server answer worth showing verbatim.
type Diagnostic struct {
	TaskID     string
	Method     string
	URL        string
	StatusCode int
	Body       string
}

func diagnosticFor(taskID string, err error) (Diagnostic, bool) {
	var se *api.StatusError
	if !errors.As(err, &se) {
		return Diagnostic{}, false
	}
	body := se.Body
	if strings.TrimSpace(body) == "" {
		body = "(empty response body)"
	}
	return Diagnostic{
		TaskID:     taskID,
		Method:     se.Method,
		URL:        se.URL,
		StatusCode: se.StatusCode,
		Body:       body,
	}, true
}

// isInvalidEnum reports whether any of the errors is a rejection whose
// body carries the invalid-enum signature.
func isInvalidEnum(errs ...error) bool {
	for _, err := range errs {
		var se *api.StatusError
		if errors.As(err, &se) && strings.Contains(se.Body, invalidEnumSignature) {
			return true
		}
	}
	return false
}
