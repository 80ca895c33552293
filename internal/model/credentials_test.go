package model

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidatePin(t *testing.T) {
	for _, pin := range []string{"1234", "12345678"} {
		assert.NoError(t, ValidatePin(pin), pin)
	}
	for _, pin := range []string{"", "123", "123456789", "12a4", " 1234", "١٢٣٤"} {
		assert.ErrorIs(t, ValidatePin(pin), ErrInvalidPin, pin)
	}
}

func TestNormalizeUsername(t *testing.T) {
	u, err := NormalizeUsername("  Maria.P ")
	require.NoError(t, err)
	assert.Equal(t, "maria.p", u)

	for _, bad := range []string{"ab", "μαρία", "has space", strings.Repeat("a", 33)} {
		_, err := NormalizeUsername(bad)
		assert.ErrorIs(t, err, ErrInvalidUsername, bad)
	}
}
