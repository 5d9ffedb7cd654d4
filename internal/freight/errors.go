package freight

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Code classifies a Failure.
type Code string

const (
	CodeNotFound          Code = "not_found"
	CodeInvalidInput      Code = "invalid_input"
	CodeRuleViolation     Code = "rule_violation"
	CodeInvalidTransition Code = "invalid_transition"
	CodeConflict          Code = "conflict"
)

// Sentinels matched by errors.Is against a Failure of the same code.
var (
	ErrNotFound          = errors.New("freight: not found")
	ErrInvalidInput      = errors.New("freight: invalid input")
	ErrRuleViolation     = errors.New("freight: rule violation")
	ErrInvalidTransition = errors.New("freight: invalid status transition")
	ErrConflict          = errors.New("freight: concurrent modification")
)

var sentinels = map[Code]error{
	CodeNotFound:          ErrNotFound,
	CodeInvalidInput:      ErrInvalidInput,
	CodeRuleViolation:     ErrRuleViolation,
	CodeInvalidTransition: ErrInvalidTransition,
	CodeConflict:          ErrConflict,
}

// Failure is the single error shape returned by Store operations.
type Failure struct {
	Code    Code   `json:"code"`
	Entity  string `json:"entity"`
	Ref     string `json:"ref,omitempty"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

func (f *Failure) Error() string {
	var b strings.Builder
	b.WriteString("freight: ")
	b.WriteString(f.Entity)
	if f.Ref != "" {
		b.WriteString(" ")
		b.WriteString(f.Ref)
	}
	b.WriteString(": ")
	b.WriteString(f.Message)
	return b.String()
}

// Unwrap exposes the code sentinel and the underlying cause.
func (f *Failure) Unwrap() []error {
	errs := make([]error, 0, 2)
	if s, ok := sentinels[f.Code]; ok {
		errs = append(errs, s)
	}
	if f.Err != nil {
		errs = append(errs, f.Err)
	}
	return errs
}

// FailureCode implements httpx.Failure.
func (f *Failure) FailureCode() string { return string(f.Code) }

// FailureEntity implements httpx.Failure.
func (f *Failure) FailureEntity() string { return f.Entity }

// FailureRef implements httpx.Failure.
func (f *Failure) FailureRef() string { return f.Ref }

// CodeOf returns the failure code carried by err, or "" when err is not a Failure.
func CodeOf(err error) Code {
	var f *Failure
	if errors.As(err, &f) {
		return f.Code
	}
	return ""
}

func notFound(entity, ref string) *Failure {
	return &Failure{Code: CodeNotFound, Entity: entity, Ref: ref, Message: "not found"}
}

func invalidInput(entity, ref, message string, cause error) *Failure {
	return &Failure{Code: CodeInvalidInput, Entity: entity, Ref: ref, Message: message, Err: cause}
}

func ruleViolation(entity, ref, format string, args ...any) *Failure {
	return &Failure{Code: CodeRuleViolation, Entity: entity, Ref: ref, Message: fmt.Sprintf(format, args...)}
}

func invalidTransition[S ~string](entity, ref string, from, to S) *Failure {
	return &Failure{
		Code:    CodeInvalidTransition,
		Entity:  entity,
		Ref:     ref,
		Message: fmt.Sprintf("cannot move from %q to %q", from, to),
	}
}

func conflict(entity, ref string, cause error) *Failure {
	return &Failure{Code: CodeConflict, Entity: entity, Ref: ref, Message: "dataset changed by another writer, reload and retry", Err: cause}
}

func validationFailure(entity string, err error) *Failure {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return invalidInput(entity, "", err.Error(), err)
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
	}
	return invalidInput(entity, "", strings.Join(parts, "; "), err)
}
