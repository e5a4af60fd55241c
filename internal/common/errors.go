package common

import (
	"context"
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
	ErrNotFound     = errors.New("resource not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrInternal     = errors.New("internal error")
	ErrDatabase     = errors.New("database error")
	ErrValidation   = errors.New("validation failed")
)

// Extraction outcomes. None of these reach a caller as an error; they are
// recorded on the result (Issues) and in the log.
var (
	ErrDocumentUnreadable    = errors.New("document unreadable")
	ErrNoTextAvailable       = errors.New("no text available")
	ErrParticipantNotFound   = errors.New("participant not found")
	ErrAmbiguousColumnLayout = errors.New("ambiguous column layout")
	ErrImplausibleRank       = errors.New("implausible rank")
	ErrRankExceedsFieldSize  = errors.New("rank exceeds field size")
	ErrAmountNotFound        = errors.New("amount not found")
)

// issueCodes is checked in order, so an error wrapping several sentinels
// reports the most specific one.
var issueCodes = []struct {
	err  error
	code string
}{
	{context.DeadlineExceeded, "TIMEOUT"},
	{context.Canceled, "CANCELLED"},
	{ErrRankExceedsFieldSize, "RANK_EXCEEDS_FIELD_SIZE"},
	{ErrImplausibleRank, "IMPLAUSIBLE_RANK"},
	{ErrAmbiguousColumnLayout, "AMBIGUOUS_COLUMN_LAYOUT"},
	{ErrParticipantNotFound, "PARTICIPANT_NOT_FOUND"},
	{ErrAmountNotFound, "AMOUNT_NOT_FOUND"},
	{ErrNoTextAvailable, "NO_TEXT_AVAILABLE"},
	{ErrDocumentUnreadable, "DOCUMENT_UNREADABLE"},
	{ErrInternal, "INTERNAL"},
}

// IssueCode maps an extraction outcome to the stable code stored on results.
func IssueCode(err error) string {
	for _, ic := range issueCodes {
		if errors.Is(err, ic.err) {
			return ic.code
		}
	}
	return "UNKNOWN"
}

// Error constructors
func NewAppError(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
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

func InvalidArgumentErrorf(format string, args ...interface{}) error {
	return InvalidArgumentError(fmt.Sprintf(format, args...))
}

func InternalErrorf(format string, args ...interface{}) error {
	return InternalError(fmt.Sprintf(format, args...))
}
