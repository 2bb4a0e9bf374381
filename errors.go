package describer

import (
	"errors"
	"fmt"
	"strings"
)

// Standard sentinel errors.
var (
	// ErrNotFound is returned when fetch-by-identifier finds no matching record.
	ErrNotFound = errors.New("describer: object does not exist")

	// ErrInvalidConfig is matched by every configuration error. Configuration
	// errors are raised while registering describers or generating a schema.
	ErrInvalidConfig = errors.New("describer: invalid configuration")

	// ErrDuplicateDescriber is returned when a model already has a describer.
	ErrDuplicateDescriber = errors.New("describer: model already has a describer")

	// ErrReservedName is returned when a custom action reuses a standard action name.
	ErrReservedName = errors.New("describer: reserved action name")

	// ErrDuplicateName is returned when two generated fields, types or actions
	// share a name.
	ErrDuplicateName = errors.New("describer: duplicate name")

	// ErrUnknownField is returned when a field specification names a field
	// the model does not have.
	ErrUnknownField = errors.New("describer: unknown field")

	// ErrSealed is returned when a sealed registry is mutated.
	ErrSealed = errors.New("describer: registry is sealed")

	// ErrInvalidInput is returned when request arguments cannot be applied,
	// e.g. a non-positive page size or an unsupported lookup.
	ErrInvalidInput = errors.New("describer: invalid input")
)

// NotFoundError is returned by Model.Get when no record has the identifier.
type NotFoundError struct {
	model string
	id    any
}

// Error returns the error string.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("describer: %s with id=%v does not exist", e.model, e.id)
}

// Is reports whether the target error matches NotFoundError.
// This allows errors.Is(notFoundErr, ErrNotFound) to return true.
func (e *NotFoundError) Is(err error) bool {
	return err == ErrNotFound
}

// Model returns the model name.
func (e *NotFoundError) Model() string {
	return e.model
}

// ID returns the identifier that was searched for.
func (e *NotFoundError) ID() any {
	return e.id
}

// NewNotFoundError returns a new NotFoundError for the given model and identifier.
func NewNotFoundError(model string, id any) *NotFoundError {
	return &NotFoundError{model: model, id: id}
}

// IsNotFound returns true if the error is a NotFoundError.
func IsNotFound(err error) bool {
	if err == nil {
		return false
	}
	var e *NotFoundError
	return errors.As(err, &e) || errors.Is(err, ErrNotFound)
}

// ConfigError describes an invalid describer, action or schema declaration.
type ConfigError struct {
	Describer string // Describer (model) name, if applicable
	Field     string // Field or action name, if applicable
	Message   string
	Cause     error
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	var b strings.Builder
	b.WriteString("describer: config error")
	if e.Describer != "" {
		b.WriteString(" on ")
		b.WriteString(e.Describer)
	}
	if e.Field != "" {
		b.WriteString(" field ")
		b.WriteString(e.Field)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

// Unwrap returns the underlying error.
func (e *ConfigError) Unwrap() error {
	return e.Cause
}

// Is reports whether the target matches ErrInvalidConfig.
func (e *ConfigError) Is(target error) bool {
	return target == ErrInvalidConfig
}

// NewConfigError creates a new ConfigError.
func NewConfigError(describer, field, message string, cause error) *ConfigError {
	return &ConfigError{
		Describer: describer,
		Field:     field,
		Message:   message,
		Cause:     cause,
	}
}

// Configf returns a ConfigError with a formatted message and no cause.
func Configf(describer, format string, a ...any) *ConfigError {
	return &ConfigError{Describer: describer, Message: fmt.Sprintf(format, a...)}
}

// IsConfigError returns true if the error is a configuration error.
func IsConfigError(err error) bool {
	if err == nil {
		return false
	}
	var e *ConfigError
	return errors.As(err, &e) || errors.Is(err, ErrInvalidConfig)
}

// InputError reports a request argument that cannot be applied.
type InputError struct {
	Arg     string
	Message string
}

// Error returns the error string.
func (e *InputError) Error() string {
	if e.Arg != "" {
		return fmt.Sprintf("describer: invalid argument %q: %s", e.Arg, e.Message)
	}
	return "describer: invalid input: " + e.Message
}

// Is reports whether the target matches ErrInvalidInput.
func (e *InputError) Is(target error) bool {
	return target == ErrInvalidInput
}

// NewInputError returns a new InputError.
func NewInputError(arg, format string, a ...any) *InputError {
	return &InputError{Arg: arg, Message: fmt.Sprintf(format, a...)}
}

// IsInputError returns true if the error is an InputError.
func IsInputError(err error) bool {
	if err == nil {
		return false
	}
	var e *InputError
	return errors.As(err, &e) || errors.Is(err, ErrInvalidInput)
}

// QueryError wraps a storage error raised while reading a model.
type QueryError struct {
	Model string // Model being queried
	Op    string // Operation (e.g., "select", "count", "get")
	Err   error  // Underlying error
}

// Error returns the error string.
func (e *QueryError) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("describer: querying %s (%s): %v", e.Model, e.Op, e.Err)
	}
	return fmt.Sprintf("describer: querying %s: %v", e.Model, e.Err)
}

// Unwrap returns the underlying error.
func (e *QueryError) Unwrap() error {
	return e.Err
}

// NewQueryError returns a new QueryError.
func NewQueryError(model, op string, err error) *QueryError {
	return &QueryError{Model: model, Op: op, Err: err}
}

// IsQueryError returns true if the error is a QueryError.
func IsQueryError(err error) bool {
	if err == nil {
		return false
	}
	var e *QueryError
	return errors.As(err, &e)
}

// MutationError wraps a storage error raised while persisting a model.
type MutationError struct {
	Model string // Model being mutated
	Op    string // Operation (e.g., "create", "update", "delete")
	Err   error  // Underlying error
}

// Error returns the error string.
func (e *MutationError) Error() string {
	return fmt.Sprintf("describer: %s %s: %v", e.Op, e.Model, e.Err)
}

// Unwrap returns the underlying error.
func (e *MutationError) Unwrap() error {
	return e.Err
}

// NewMutationError returns a new MutationError.
func NewMutationError(model, op string, err error) *MutationError {
	return &MutationError{Model: model, Op: op, Err: err}
}

// IsMutationError returns true if the error is a MutationError.
func IsMutationError(err error) bool {
	if err == nil {
		return false
	}
	var e *MutationError
	return errors.As(err, &e)
}

// AggregateError represents multiple errors collected during an operation.
type AggregateError struct {
	Errors []error
}

// Error returns the error string.
func (e *AggregateError) Error() string {
	if len(e.Errors) == 0 {
		return "describer: no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	var sb strings.Builder
	sb.WriteString("describer: multiple errors:")
	for i, err := range e.Errors {
		fmt.Fprintf(&sb, "\n  [%d] %v", i+1, err)
	}
	return sb.String()
}

// Unwrap returns the collected errors.
func (e *AggregateError) Unwrap() []error {
	return e.Errors
}

// NewAggregateError returns a new AggregateError if there are errors,
// otherwise returns nil.
func NewAggregateError(errs ...error) error {
	var filtered []error
	for _, err := range errs {
		if err != nil {
			filtered = append(filtered, err)
		}
	}
	if len(filtered) == 0 {
		return nil
	}
	if len(filtered) == 1 {
		return filtered[0]
	}
	return &AggregateError{Errors: filtered}
}
