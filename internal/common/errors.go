package common

import (
	"errors"
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// AppError represents application-specific errors
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Common application errors
var (
	ErrNotFound          = errors.New("resource not found")
	ErrInvalidInput      = errors.New("invalid input")
	ErrInternal          = errors.New("internal error")
	ErrDatabase          = errors.New("database error")
	ErrNoFile            = errors.New("no file in request")
	ErrUnsupportedFormat = errors.New("unsupported file format")
	ErrFileTooLarge      = errors.New("file too large")
	ErrEmptyFile         = errors.New("file is empty")
	ErrRecognition       = errors.New("recognition failed")
)

// Error types reported to HTTP clients in the error_type field.
const (
	ErrorTypeNoFile        = "no_file"
	ErrorTypeInvalidFormat = "invalid_format"
	ErrorTypeFileTooLarge  = "file_too_large"
	ErrorTypeEmptyFile     = "empty_file"
	ErrorTypeOCRFailed     = "ocr_failed"
	ErrorTypeNotFound      = "not_found"
	ErrorTypeInternal      = "internal"
)

// ErrorType maps an error chain to the client-facing error kind.
func ErrorType(err error) string {
	switch {
	case errors.Is(err, ErrNoFile):
		return ErrorTypeNoFile
	case errors.Is(err, ErrUnsupportedFormat):
		return ErrorTypeInvalidFormat
	case errors.Is(err, ErrFileTooLarge):
		return ErrorTypeFileTooLarge
	case errors.Is(err, ErrEmptyFile):
		return ErrorTypeEmptyFile
	case errors.Is(err, ErrRecognition):
		return ErrorTypeOCRFailed
	case errors.Is(err, ErrNotFound):
		return ErrorTypeNotFound
	default:
		return ErrorTypeInternal
	}
}

// Error constructors
func NewAppError(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// gRPC error helpers
func InvalidArgumentError(message string) error {
	return status.Error(codes.InvalidArgument, message)
}

func NotFoundError(message string) error {
	return status.Error(codes.NotFound, message)
}

func InternalError(message string) error {
	return status.Error(codes.Internal, message)
}

func UnavailableError(message string) error {
	return status.Error(codes.Unavailable, message)
}

func InternalErrorf(format string, args ...interface{}) error {
	return InternalError(fmt.Sprintf(format, args...))
}

// GRPCError converts an application error chain to a gRPC status error.
func GRPCError(err error) error {
	if err == nil {
		return nil
	}
	switch ErrorType(err) {
	case ErrorTypeNotFound:
		return NotFoundError(err.Error())
	case ErrorTypeInternal:
		if errors.Is(err, ErrDatabase) {
			return UnavailableError(err.Error())
		}
		return InternalError(err.Error())
	default:
		return InvalidArgumentError(err.Error())
	}
}
