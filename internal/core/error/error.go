package errx

import (
	"errors"
	"fmt"
	"net/http"
)

const (
	// SystemErrorMessage is a user-facing fallback when internal errors occur.
	SystemErrorMessage = "internal server error"
	// RedisErrorMessage describes Redis related failures.
	RedisErrorMessage = "redis operation failed"
	// ProviderErrorMessage describes model provider failures.
	ProviderErrorMessage = "model provider request failed"
	// TimeoutErrorMessage describes a model call that ran past its deadline.
	TimeoutErrorMessage = "model call timed out"
	// CanceledErrorMessage describes work abandoned because the caller canceled.
	CanceledErrorMessage = "operation canceled"
	// UnparsableMessage describes model output that holds no JSON payload.
	UnparsableMessage = "model response is not parsable"
	// SchemaViolationMessage describes parsed output with missing or mistyped fields.
	SchemaViolationMessage = "model response violates expected shape"
	// MalformedOutputMessage describes an agent whose structured output could not be used.
	MalformedOutputMessage = "agent returned malformed output"
)

// Kind classifies an AppError so callers can branch without string matching.
type Kind string

const (
	KindUnknown              Kind = ""
	KindConfiguration        Kind = "configuration"
	KindProvider             Kind = "provider"
	KindTimeout              Kind = "timeout"
	KindCanceled             Kind = "canceled"
	KindUnparsableResponse   Kind = "unparsable_response"
	KindSchemaViolation      Kind = "schema_violation"
	KindMalformedAgentOutput Kind = "malformed_agent_output"
	KindCache                Kind = "cache"
)

// AppError wraps an underlying error with a kind, an HTTP status and a safe message.
// Raw keeps the model text that failed to parse, Field the offending field and
// Agent the agent whose output was rejected.
type AppError struct {
	Kind    Kind
	Err     error
	Status  int
	Message string
	Raw     string
	Field   string
	Agent   string
}

// Error implements the error interface.
func (e *AppError) Error() string {
	msg := e.Message
	if e.Agent != "" {
		msg = fmt.Sprintf("%s (agent=%s)", msg, e.Agent)
	}
	if e.Field != "" {
		msg = fmt.Sprintf("%s (field=%s)", msg, e.Field)
	}
	if e.Err == nil {
		return msg
	}
	return fmt.Sprintf("%s: %v", msg, e.Err)
}

// Unwrap exposes the underlying error for errors.Is / errors.As support.
func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError with the provided information.
func New(err error, status int, message string) *AppError {
	return &AppError{
		Err:     err,
		Status:  status,
		Message: message,
	}
}

// Is reports whether the target matches the underlying error or the AppError itself.
func (e *AppError) Is(target error) bool {
	if t, ok := target.(*AppError); ok {
		return t.Kind != KindUnknown && t.Kind == e.Kind
	}
	return errors.Is(e.Err, target)
}

// Configuration reports an invalid setting, template key or tool binding.
func Configuration(format string, args ...any) *AppError {
	return &AppError{
		Kind:    KindConfiguration,
		Err:     fmt.Errorf(format, args...),
		Status:  http.StatusInternalServerError,
		Message: "invalid configuration",
	}
}

// Provider wraps a failure reported by a model provider.
func Provider(provider string, err error) *AppError {
	return &AppError{
		Kind:    KindProvider,
		Err:     err,
		Status:  http.StatusBadGateway,
		Message: fmt.Sprintf("%s (%s)", ProviderErrorMessage, provider),
	}
}

// Timeout wraps a deadline exceeded while waiting on a provider.
func Timeout(provider string, err error) *AppError {
	return &AppError{
		Kind:    KindTimeout,
		Err:     err,
		Status:  http.StatusGatewayTimeout,
		Message: fmt.Sprintf("%s (%s)", TimeoutErrorMessage, provider),
	}
}

// Canceled wraps a caller cancellation.
func Canceled(err error) *AppError {
	return &AppError{
		Kind:    KindCanceled,
		Err:     err,
		Status:  499,
		Message: CanceledErrorMessage,
	}
}

// Unparsable reports model output with no recoverable JSON payload.
func Unparsable(raw string, err error) *AppError {
	return &AppError{
		Kind:    KindUnparsableResponse,
		Err:     err,
		Status:  http.StatusBadGateway,
		Message: UnparsableMessage,
		Raw:     raw,
	}
}

// SchemaViolation reports a parsed payload missing a field or holding the wrong type.
func SchemaViolation(raw, field string, err error) *AppError {
	return &AppError{
		Kind:    KindSchemaViolation,
		Err:     err,
		Status:  http.StatusBadGateway,
		Message: SchemaViolationMessage,
		Raw:     raw,
		Field:   field,
	}
}

// MalformedAgentOutput wraps a parse failure with the agent that produced it.
// Raw and Field are lifted from the cause so callers see them on the outer error.
func MalformedAgentOutput(agent, operation string, cause error) *AppError {
	e := &AppError{
		Kind:    KindMalformedAgentOutput,
		Err:     cause,
		Status:  http.StatusBadGateway,
		Message: fmt.Sprintf("%s: %s", MalformedOutputMessage, operation),
		Agent:   agent,
		Raw:     RawOf(cause),
	}
	var inner *AppError
	if errors.As(cause, &inner) {
		e.Field = inner.Field
	}
	return e
}

// KindOf returns the kind of the outermost AppError in err's chain.
func KindOf(err error) Kind {
	var e *AppError
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// IsKind reports whether any AppError in err's chain has kind k.
func IsKind(err error, k Kind) bool {
	for err != nil {
		if e, ok := err.(*AppError); ok && e.Kind == k {
			return true
		}
		err = errors.Unwrap(err)
	}
	return false
}

// RawOf returns the raw model text carried by err, if any.
func RawOf(err error) string {
	for err != nil {
		if e, ok := err.(*AppError); ok && e.Raw != "" {
			return e.Raw
		}
		err = errors.Unwrap(err)
	}
	return ""
}
