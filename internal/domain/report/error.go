package report

import (
	"errors"
	"strings"
)

var (
	ErrValidation = errors.New("validation failed")
	ErrNetwork    = errors.New("network unavailable")
	ErrBackend    = errors.New("backend rejected request")
	ErrStorage    = errors.New("local storage failure")
	ErrNotFound   = errors.New("report not found")
	ErrConflict   = errors.New("report belongs to another reporter")
)

// DomainError carries one of the taxonomy kinds above together with the
// underlying cause. errors.Is matches both Kind and Err.
type DomainError struct {
	Kind    error
	Message string
	Err     error
}

func (e *DomainError) Error() string {
	var b strings.Builder
	if e.Message != "" {
		b.WriteString(e.Message)
	} else if e.Kind != nil {
		b.WriteString(e.Kind.Error())
	}
	if e.Err != nil {
		if b.Len() > 0 {
			b.WriteString(": ")
		}
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *DomainError) Unwrap() []error {
	errs := make([]error, 0, 2)
	if e.Kind != nil {
		errs = append(errs, e.Kind)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// ValidationError lists every field that failed validation.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return ErrValidation.Error()
	}
	keys := sortedKeys(e.Fields)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return ErrValidation.Error() + ": " + strings.Join(parts, "; ")
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func (e *ValidationError) add(field, msg string) {
	if e.Fields == nil {
		e.Fields = make(map[string]string)
	}
	e.Fields[field] = msg
}

func (e *ValidationError) orNil() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}

func Validation(msg string) error {
	return &DomainError{Kind: ErrValidation, Message: msg}
}

func Network(err error) error {
	return &DomainError{Kind: ErrNetwork, Err: err}
}

func Backend(msg string, err error) error {
	return &DomainError{Kind: ErrBackend, Message: msg, Err: err}
}

func Storage(op string, err error) error {
	return &DomainError{Kind: ErrStorage, Message: "storage " + op, Err: err}
}

func NotFound(id string) error {
	return &DomainError{Kind: ErrNotFound, Message: "report " + id + " not found"}
}

// IsRetryable reports whether a failed remote write may succeed later.
// Network and backend failures are retryable; validation failures are not.
func IsRetryable(err error) bool {
	if err == nil || errors.Is(err, ErrValidation) {
		return false
	}
	return errors.Is(err, ErrNetwork) || errors.Is(err, ErrBackend)
}
