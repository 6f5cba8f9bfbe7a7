package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeverityConstants(t *testing.T) {
	tests := []struct {
		name     string
		severity Severity
		expected string
	}{
		{"High", SeverityHigh, "High"},
		{"Medium", SeverityMedium, "Medium"},
		{"Low", SeverityLow, "Low"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, string(tt.severity))
		})
	}
}

func TestValidateIssue(t *testing.T) {
	valid := Issue{
		DocumentID:     "d1",
		SectionID:      "s1",
		SectionOrdinal: 1,
		Severity:       SeverityHigh,
		Message:        "Document must specify ADGM jurisdiction",
		RuleID:         "jurisdiction",
	}

	tests := []struct {
		name    string
		mutate  func(i *Issue)
		wantErr string
	}{
		{name: "valid", mutate: func(i *Issue) {}},
		{name: "missing document", mutate: func(i *Issue) { i.DocumentID = "" }, wantErr: "DocumentID"},
		{name: "missing rule", mutate: func(i *Issue) { i.RuleID = "" }, wantErr: "RuleID"},
		{name: "missing message", mutate: func(i *Issue) { i.Message = "" }, wantErr: "Message"},
		{name: "bad severity", mutate: func(i *Issue) { i.Severity = "Critical" }, wantErr: "Severity"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			issue := valid
			tt.mutate(&issue)
			err := ValidateIssue(&issue)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestDomainErrorIs(t *testing.T) {
	wrapped := NewDomainErrorWithCause(ErrCodeEmbedding, "embedding backend unavailable", fmt.Errorf("dial tcp: refused"))

	assert.True(t, errors.Is(wrapped, ErrEmbeddingUnavailable))
	assert.False(t, errors.Is(wrapped, ErrUnreadableDocument))

	doubleWrapped := fmt.Errorf("rule check: %w", wrapped)
	assert.True(t, errors.Is(doubleWrapped, ErrEmbeddingUnavailable))
}

func TestDomainErrorMessage(t *testing.T) {
	err := NewDomainError(ErrCodeEmptyBatch, "no document in the batch could be normalized")
	assert.Equal(t, "[EMPTY_BATCH] no document in the batch could be normalized", err.Error())

	withCause := NewDomainErrorWithCause(ErrCodeInternalError, "boom", errors.New("cause"))
	assert.Contains(t, withCause.Error(), "cause")
	assert.Equal(t, "cause", withCause.Unwrap().Error())
}
