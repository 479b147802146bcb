package utils

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateStruct_InsightsQuery(t *testing.T) {
	tests := []struct {
		name        string
		query       InsightsQuery
		wantErr     bool
		wantMessage string
	}{
		{
			name:  "valid question",
			query: InsightsQuery{Question: "What is the Q3 budget?"},
		},
		{
			name:        "missing question",
			query:       InsightsQuery{},
			wantErr:     true,
			wantMessage: "q is required",
		},
		{
			name:        "too long",
			query:       InsightsQuery{Question: strings.Repeat("x", MaxQuestionLength+1)},
			wantErr:     true,
			wantMessage: fmt.Sprintf("q must be at most %d characters", MaxQuestionLength),
		},
		{
			name:  "exactly at the limit",
			query: InsightsQuery{Question: strings.Repeat("x", MaxQuestionLength)},
		},
		{
			name:  "length counts characters not bytes",
			query: InsightsQuery{Question: strings.Repeat("é", MaxQuestionLength)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateStruct(tt.query)
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			var validationErr *ValidationError
			assert.ErrorAs(t, err, &validationErr)
			assert.Equal(t, tt.wantMessage, err.Error())
			assert.Contains(t, GetValidationFields(err), "q")
		})
	}
}

func TestValidateStruct_MultipleFields(t *testing.T) {
	type pair struct {
		A string `json:"alpha" validate:"required"`
		B string `validate:"min=3"`
	}

	err := ValidateStruct(pair{B: "x"})
	require.Error(t, err)
	assert.Equal(t, "Validation failed", err.Error())

	fields := GetValidationFields(err)
	assert.Equal(t, "alpha is required", fields["alpha"])
	assert.Equal(t, "B must be at least 3 characters", fields["B"])
}

func TestGetValidationFields_PlainError(t *testing.T) {
	assert.Nil(t, GetValidationFields(errors.New("plain")))
	assert.Equal(t, map[string]string{"q": "q is required"},
		GetValidationFields(&ValidationError{Message: "q is required", Fields: map[string]string{"q": "q is required"}}))
}
