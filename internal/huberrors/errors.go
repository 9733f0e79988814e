// Package huberrors provides sentinel and custom error types for the application.
package huberrors

// ErrNotFound represents a "not found" error.
// Use when a requested resource doesn't exist.
var ErrNotFound = &NotFoundError{}

// NotFoundError is a sentinel error for resources that are not found.
type NotFoundError struct {
	Resource string
	Message  string
}

// NewNotFoundError creates a new NotFoundError with a custom message.
func NewNotFoundError(resource, message string) *NotFoundError {
	return &NotFoundError{
		Resource: resource,
		Message:  message,
	}
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	if e.Message != "" {
		return e.Message
	}

	if e.Resource != "" {
		return e.Resource + " not found"
	}

	return "resource not found"
}

// Is implements the error interface for error comparison.
func (e *NotFoundError) Is(target error) bool {
	_, ok := target.(*NotFoundError)

	return ok
}

// ErrValidation represents a validation error.
// Use when client input fails validation.
var ErrValidation = &ValidationError{}

// ValidationError is a sentinel error for validation failures.
type ValidationError struct {
	Field   string
	Message string
}

// NewValidationError creates a new ValidationError with a custom message.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
	}
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Message != "" {
		return e.Message
	}

	if e.Field != "" {
		return "validation failed for field: " + e.Field
	}

	return "validation error"
}

// Is implements the error interface for error comparison.
func (e *ValidationError) Is(target error) bool {
	_, ok := target.(*ValidationError)

	return ok
}

// ErrConfiguration is the sentinel for missing or rejected credentials and model settings.
var ErrConfiguration = &ConfigurationError{}

// ConfigurationError reports that a required collaborator (model key, provider) is absent or rejected.
type ConfigurationError struct {
	Setting string
	Message string
}

// NewConfigurationError creates a ConfigurationError for the given setting.
func NewConfigurationError(setting, message string) *ConfigurationError {
	return &ConfigurationError{Setting: setting, Message: message}
}

// Error implements the error interface.
func (e *ConfigurationError) Error() string {
	if e.Message != "" {
		return e.Message
	}

	if e.Setting != "" {
		return "missing or invalid configuration: " + e.Setting
	}

	return "configuration error"
}

// Is implements the error interface for error comparison.
func (e *ConfigurationError) Is(target error) bool {
	_, ok := target.(*ConfigurationError)

	return ok
}

// ErrModelQuota is the sentinel for model provider rate-limit or quota exhaustion.
var ErrModelQuota = &ModelQuotaError{}

// ModelQuotaError wraps a provider error caused by rate limiting or an exhausted quota.
type ModelQuotaError struct {
	Provider string
	Err      error
}

// NewModelQuotaError wraps err as a quota failure reported by provider.
func NewModelQuotaError(provider string, err error) *ModelQuotaError {
	return &ModelQuotaError{Provider: provider, Err: err}
}

// Error implements the error interface.
func (e *ModelQuotaError) Error() string {
	msg := "model quota exceeded"
	if e.Provider != "" {
		msg = e.Provider + ": " + msg
	}

	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}

	return msg
}

// Unwrap returns the provider error.
func (e *ModelQuotaError) Unwrap() error { return e.Err }

// Is implements the error interface for error comparison.
func (e *ModelQuotaError) Is(target error) bool {
	_, ok := target.(*ModelQuotaError)

	return ok
}

// ErrStore is the sentinel for persistence failures.
var ErrStore = &StoreError{}

// StoreError wraps a database failure for the named operation.
type StoreError struct {
	Op  string
	Err error
}

// NewStoreError wraps err as a failure of the store operation op.
func NewStoreError(op string, err error) *StoreError {
	return &StoreError{Op: op, Err: err}
}

// Error implements the error interface.
func (e *StoreError) Error() string {
	msg := "store error"
	if e.Op != "" {
		msg = e.Op
	}

	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}

	return msg
}

// Unwrap returns the driver error.
func (e *StoreError) Unwrap() error { return e.Err }

// Is implements the error interface for error comparison.
func (e *StoreError) Is(target error) bool {
	_, ok := target.(*StoreError)

	return ok
}

// ErrIndexing is the sentinel for embedding or vector attach failures.
var ErrIndexing = &IndexingError{}

// IndexingError reports that a document could not be embedded or its vector could not be stored.
// Ingestion logs it and continues.
type IndexingError struct {
	Stage string
	Err   error
}

// NewIndexingError wraps err as a failure in the given indexing stage (embed, insert, attach).
func NewIndexingError(stage string, err error) *IndexingError {
	return &IndexingError{Stage: stage, Err: err}
}

// Error implements the error interface.
func (e *IndexingError) Error() string {
	msg := "indexing failed"
	if e.Stage != "" {
		msg += " at " + e.Stage
	}

	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}

	return msg
}

// Unwrap returns the underlying error.
func (e *IndexingError) Unwrap() error { return e.Err }

// Is implements the error interface for error comparison.
func (e *IndexingError) Is(target error) bool {
	_, ok := target.(*IndexingError)

	return ok
}

// ErrAggregation is the sentinel for a failed keyword tag write.
var ErrAggregation = &AggregationError{}

// AggregationError reports a failed upsert for one token. It is logged, never propagated to callers.
type AggregationError struct {
	Token string
	Err   error
}

// NewAggregationError wraps err as a failed tag write for token.
func NewAggregationError(token string, err error) *AggregationError {
	return &AggregationError{Token: token, Err: err}
}

// Error implements the error interface.
func (e *AggregationError) Error() string {
	msg := "keyword tag write failed"
	if e.Token != "" {
		msg += " for " + e.Token
	}

	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}

	return msg
}

// Unwrap returns the underlying error.
func (e *AggregationError) Unwrap() error { return e.Err }

// Is implements the error interface for error comparison.
func (e *AggregationError) Is(target error) bool {
	_, ok := target.(*AggregationError)

	return ok
}
