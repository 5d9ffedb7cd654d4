package httpx

import (
	"errors"
	"net/http"
)

// Sentinel errors for the transport layer.
var (
	ErrNotFound     = errors.New("resource not found")
	ErrConflict     = errors.New("conflict")
	ErrValidation   = errors.New("validation failed")
	ErrUnauthorized = errors.New("unauthorized")
)

// Failure is implemented by domain errors that carry a machine-readable code.
type Failure interface {
	error
	FailureCode() string
	FailureEntity() string
	FailureRef() string
}

var failureStatus = map[string]struct {
	status int
	title  string
}{
	"not_found":          {http.StatusNotFound, "Not Found"},
	"invalid_input":      {http.StatusBadRequest, "Invalid Input"},
	"rule_violation":     {http.StatusUnprocessableEntity, "Rule Violation"},
	"invalid_transition": {http.StatusConflict, "Invalid Transition"},
	"conflict":           {http.StatusConflict, "Conflict"},
}

// RespondError maps domain errors to HTTP responses using RFC7807.
func RespondError(w http.ResponseWriter, err error) {
	var failure Failure
	if errors.As(err, &failure) {
		mapped, ok := failureStatus[failure.FailureCode()]
		if !ok {
			mapped.status, mapped.title = http.StatusInternalServerError, "Internal Error"
		}
		writeProblem(w, ProblemDetail{
			Type:   "about:blank",
			Title:  mapped.title,
			Status: mapped.status,
			Detail: failure.Error(),
			Code:   failure.FailureCode(),
			Entity: failure.FailureEntity(),
			Ref:    failure.FailureRef(),
		})
		return
	}

	switch {
	case errors.Is(err, ErrNotFound):
		Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrConflict):
		Problem(w, http.StatusConflict, "Conflict", err.Error())
	case errors.Is(err, ErrValidation):
		Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, ErrUnauthorized):
		Problem(w, http.StatusUnauthorized, "Unauthorized", err.Error())
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
