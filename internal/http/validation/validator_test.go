package validation

import (
	"errors"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type request struct {
	URL       string `json:"url" validate:"required,notblank,http_url"`
	ShortCode string `json:"shortcode,omitempty" validate:"omitempty,shortcode"`
	Validity  int    `json:"validityMinutes,omitempty" validate:"omitempty,min=1,max=525600"`
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name      string
		req       request
		wantField string
	}{
		{"valid", request{URL: "https://example.com"}, ""},
		{"valid with code", request{URL: "https://example.com", ShortCode: "promo_2025"}, ""},
		{"missing url", request{}, "url"},
		{"blank url", request{URL: "   "}, "url"},
		{"not http", request{URL: "ftp://example.com"}, "url"},
		{"no host", request{URL: "https://"}, "url"},
		{"reserved code", request{URL: "https://example.com", ShortCode: "stats"}, "shortcode"},
		{"reserved code any case", request{URL: "https://example.com", ShortCode: "API"}, "shortcode"},
		{"code with slash", request{URL: "https://example.com", ShortCode: "a/b"}, "shortcode"},
		{"validity too large", request{URL: "https://example.com", Validity: 1_000_000}, "validityMinutes"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.req)
			if tt.wantField == "" {
				assert.NoError(t, err)
				return
			}
			var verrs validator.ValidationErrors
			require.True(t, errors.As(err, &verrs), "expected validation errors, got %v", err)
			assert.Equal(t, tt.wantField, verrs[0].Field())
		})
	}
}

func TestValidShortCode(t *testing.T) {
	assert.True(t, ValidShortCode("abc123"))
	assert.True(t, ValidShortCode("  trimmed  "))
	assert.False(t, ValidShortCode(""))
	assert.False(t, ValidShortCode("health"))
	assert.False(t, ValidShortCode("Shorten"))
	assert.False(t, ValidShortCode("this-code-is-way-too-long-to-be-accepted"))
}
