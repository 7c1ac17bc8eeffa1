// Package huberrors provides sentinel and custom error types for the application.
//
// Every failure the classification pipeline and the label store can surface has its
// own type, so callers can branch with errors.Is against the package sentinels.
package huberrors

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

// ErrImageDecode is the sentinel for uploads that cannot be decoded as a raster image.
var ErrImageDecode = &ImageDecodeError{}

// ImageDecodeError reports a malformed or unreadable image upload.
type ImageDecodeError struct {
	Message string
	Err     error
}

// NewImageDecodeError wraps the decoder failure.
func NewImageDecodeError(message string, err error) *ImageDecodeError {
	return &ImageDecodeError{Message: message, Err: err}
}

// Error implements the error interface.
func (e *ImageDecodeError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = "image could not be decoded"
	}

	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}

	return msg
}

// Unwrap returns the underlying decoder error.
func (e *ImageDecodeError) Unwrap() error { return e.Err }

// Is implements the error interface for error comparison.
func (e *ImageDecodeError) Is(target error) bool {
	_, ok := target.(*ImageDecodeError)

	return ok
}

// ErrEmptyVocabulary is the sentinel for classification attempted without any labels.
var ErrEmptyVocabulary = &EmptyVocabularyError{}

// EmptyVocabularyError reports that there are no labels to classify against.
type EmptyVocabularyError struct {
	Message string
}

// NewEmptyVocabularyError creates an EmptyVocabularyError with a custom message.
func NewEmptyVocabularyError(message string) *EmptyVocabularyError {
	return &EmptyVocabularyError{Message: message}
}

// Error implements the error interface.
func (e *EmptyVocabularyError) Error() string {
	if e.Message != "" {
		return e.Message
	}

	return "label vocabulary is empty"
}

// Is implements the error interface for error comparison.
func (e *EmptyVocabularyError) Is(target error) bool {
	_, ok := target.(*EmptyVocabularyError)

	return ok
}

// ErrInvalidLabelFormat is the sentinel for label update payloads that are not a list of strings.
var ErrInvalidLabelFormat = &InvalidLabelFormatError{}

// InvalidLabelFormatError reports a malformed label update payload.
// Index is the offending position, or -1 when the payload as a whole is wrong.
type InvalidLabelFormatError struct {
	Index   int
	Message string
}

// NewInvalidLabelFormatError creates an InvalidLabelFormatError.
func NewInvalidLabelFormatError(index int, message string) *InvalidLabelFormatError {
	return &InvalidLabelFormatError{Index: index, Message: message}
}

// Error implements the error interface.
func (e *InvalidLabelFormatError) Error() string {
	if e.Message != "" {
		return e.Message
	}

	return "invalid label format: must be a list of strings"
}

// Is implements the error interface for error comparison.
func (e *InvalidLabelFormatError) Is(target error) bool {
	_, ok := target.(*InvalidLabelFormatError)

	return ok
}

// ErrEmbeddingProvider is the sentinel for any failure raised by the embedding computation.
var ErrEmbeddingProvider = &EmbeddingProviderError{}

// EmbeddingProviderError wraps a failure from the embedding provider. It is never retried.
type EmbeddingProviderError struct {
	Op  string
	Err error
}

// NewEmbeddingProviderError wraps err raised during op (e.g. "embed image").
func NewEmbeddingProviderError(op string, err error) *EmbeddingProviderError {
	return &EmbeddingProviderError{Op: op, Err: err}
}

// Error implements the error interface.
func (e *EmbeddingProviderError) Error() string {
	msg := "embedding provider failure"
	if e.Op != "" {
		msg += " (" + e.Op + ")"
	}

	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}

	return msg
}

// Unwrap returns the provider error.
func (e *EmbeddingProviderError) Unwrap() error { return e.Err }

// Is implements the error interface for error comparison.
func (e *EmbeddingProviderError) Is(target error) bool {
	_, ok := target.(*EmbeddingProviderError)

	return ok
}

// ErrPersistenceUnavailable is the sentinel for a label store that is missing or unreadable.
var ErrPersistenceUnavailable = &PersistenceUnavailableError{}

// PersistenceUnavailableError reports that the label store cannot be read on a path that requires it.
type PersistenceUnavailableError struct {
	Message string
	Err     error
}

// NewPersistenceUnavailableError creates a PersistenceUnavailableError.
func NewPersistenceUnavailableError(message string, err error) *PersistenceUnavailableError {
	return &PersistenceUnavailableError{Message: message, Err: err}
}

// Error implements the error interface.
func (e *PersistenceUnavailableError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = "label store unavailable"
	}

	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}

	return msg
}

// Unwrap returns the underlying storage error.
func (e *PersistenceUnavailableError) Unwrap() error { return e.Err }

// Is implements the error interface for error comparison.
func (e *PersistenceUnavailableError) Is(target error) bool {
	_, ok := target.(*PersistenceUnavailableError)

	return ok
}
