// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package validate_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/storyweaver/internal/platform/apperr"
	"github.com/taibuivan/storyweaver/internal/platform/validate"
)

/*
TestValidator_Required tests the mandatory field validation logic.
*/
func TestValidator_Required(t *testing.T) {
	tests := []struct {
		name     string
		value    string
		hasError bool
	}{
		{"valid_string", "the-crimson-cipher", false},
		{"empty_string", "", true},
		{"whitespace_only", "   ", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := &validate.Validator{}
			v.Required("novelId", tt.value)

			if tt.hasError {
				err := v.Err()
				require.Error(t, err)

				ae := apperr.As(err)
				require.NotNil(t, ae)
				assert.Equal(t, "VALIDATION_ERROR", ae.Code)
				assert.Equal(t, "novelId", ae.Details[0].Field)
			} else {
				assert.False(t, v.HasErrors())
				assert.Nil(t, v.Err())
			}
		})
	}
}

/*
TestValidator_NovelID checks the catalogue id format rule.
*/
func TestValidator_NovelID(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		isValid bool
	}{
		{"slug", "echoes-of-nebula", true},
		{"numeric", "42", true},
		{"dotted", "vol.2_extra", true},
		{"leading_hyphen", "-abc", false},
		{"space", "a b", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := &validate.Validator{}
			v.NovelID("novelId", tt.value)
			assert.Equal(t, !tt.isValid, v.HasErrors())
		})
	}
}

/*
TestValidator_Numbers covers the numeric rules used by progress payloads.
*/
func TestValidator_Numbers(t *testing.T) {
	assert.False(t, (&validate.Validator{}).Positive("chapterId", 1).HasErrors())
	assert.True(t, (&validate.Validator{}).Positive("chapterId", 0).HasErrors())

	assert.False(t, (&validate.Validator{}).NonNegative("position", 0).HasErrors())
	assert.True(t, (&validate.Validator{}).NonNegative("position", -1).HasErrors())
	assert.True(t, (&validate.Validator{}).NonNegative("position", math.NaN()).HasErrors())
	assert.True(t, (&validate.Validator{}).NonNegative("position", math.Inf(1)).HasErrors())
}

/*
TestValidator_Chain_Failure tests error accumulation in the chain.
*/
func TestValidator_Chain_Failure(t *testing.T) {
	v := &validate.Validator{}

	err := v.
		Required("novelId", "").
		Positive("chapterId", -3).
		OneOf("theme", "neon", "light", "dark").
		Err()

	require.Error(t, err)
	ae := apperr.As(err)
	require.NotNil(t, ae)

	// Should accumulate all 3 errors
	assert.Len(t, ae.Details, 3)
}
