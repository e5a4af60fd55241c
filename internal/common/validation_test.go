package common

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestSailNumber(t *testing.T) {
	tests := []struct {
		in string
		ok bool
	}{
		{"GER 12345", true},
		{"12345", true},
		{"NED-4711", true},
		{"ÖSV 7", true},
		{"GER", false},
		{"", false},
		{"GER_12345", false},
		{strings.Repeat("1", 21), false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			err := SailNumber("sailNumber", tt.in)
			if tt.ok {
				assert.Nil(t, err)
			} else {
				require.NotNil(t, err)
				assert.Equal(t, "sailNumber", err.Field)
			}
		})
	}
	assert.NotNil(t, SailNumber("sailNumber", 42))
}

func TestBase64(t *testing.T) {
	assert.Nil(t, Base64("pdf", "JVBERi0xLjc="))
	assert.Nil(t, Base64("pdf", "JVBERi0xLjc"))
	assert.Nil(t, Base64("pdf", "data:application/pdf;base64,JVBERi0xLjc="))
	assert.Nil(t, Base64("pdf", "_-8="))

	err := Base64("pdf", "%%% not base64 %%%")
	require.NotNil(t, err)
	assert.Equal(t, "<binary>", err.Value, "payload is never echoed")
}

func TestValidatorCollectsErrors(t *testing.T) {
	v := NewValidator().
		Field("sailNumber", "", Required).
		Field("sailorName", strings.Repeat("x", 201), MaxLen(200)).
		Field("boatClass", "ILCA 7", MaxLen(100))

	require.True(t, v.HasErrors())
	assert.Len(t, v.Errors(), 2)

	err := ValidateAndReturnError(v)
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
	assert.Contains(t, err.Error(), "sailNumber")
	assert.Contains(t, err.Error(), "sailorName")

	assert.NoError(t, ValidateAndReturnError(NewValidator().Field("sailNumber", "GER 1", Required, SailNumber)))
}

func TestIssueCode(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{ErrParticipantNotFound, "PARTICIPANT_NOT_FOUND"},
		{fmt.Errorf("page 2: %w", ErrNoTextAvailable), "NO_TEXT_AVAILABLE"},
		{NewAppError("EXTRACT", "rank check", ErrRankExceedsFieldSize), "RANK_EXCEEDS_FIELD_SIZE"},
		{context.DeadlineExceeded, "TIMEOUT"},
		{errors.Join(ErrParticipantNotFound, ErrImplausibleRank), "IMPLAUSIBLE_RANK"},
		{errors.Join(ErrDocumentUnreadable, ErrNoTextAvailable), "NO_TEXT_AVAILABLE"},
		{fmt.Errorf("ocr: %w", errors.Join(ErrInternal, context.DeadlineExceeded)), "TIMEOUT"},
		{fmt.Errorf("boom"), "UNKNOWN"},
	}
	for _, tt := range tests {
		for i := 0; i < 20; i++ {
			assert.Equal(t, tt.want, IssueCode(tt.err), tt.err.Error())
		}
	}
}

func TestLoggerFromContext(t *testing.T) {
	assert.NotNil(t, LoggerFromContext(context.Background(), nil))

	ctx := WithRequestID(context.Background(), "req-1")
	assert.Equal(t, "req-1", RequestIDFromContext(ctx))
	assert.Empty(t, RequestIDFromContext(context.Background()))
}

func TestUUID(t *testing.T) {
	assert.Nil(t, UUID("id", "0b0f6c1e-2b5c-4f5e-9c1a-3d2e1f4a5b6c"))

	err := UUID("id", "not-a-uuid")
	require.NotNil(t, err)
	assert.Equal(t, "must be a valid UUID", err.Message)
	assert.NotNil(t, UUID("id", 7))
}
