package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type seekInput struct {
	Time *float64 `json:"time" validate:"required,gte=0"`
	URL  string   `json:"url" validate:"omitempty,url"`
}

func TestValidate(t *testing.T) {
	v := NewValidator()
	neg := -1.0

	errs, ok := v.Validate(seekInput{Time: &neg, URL: "not a url"})
	require.False(t, ok)
	require.Len(t, errs, 2)
	assert.Equal(t, "time", errs[0].Field)
	assert.Equal(t, "GTE", errs[0].Code)
	assert.Equal(t, "url", errs[1].Field)
	assert.Equal(t, "url must be a valid url", errs[1].Message)

	errs, ok = v.Validate(seekInput{})
	require.False(t, ok)
	assert.Equal(t, "REQUIRED", errs[0].Code)

	zero := 0.0
	errs, ok = v.Validate(seekInput{Time: &zero, URL: "https://example.com/v"})
	assert.True(t, ok)
	assert.Nil(t, errs)
}
