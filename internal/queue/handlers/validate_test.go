package handlers

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateUsername(t *testing.T) {
	assert.NoError(t, validateUsername("jane.doe"))
	assert.NoError(t, validateUsername("jane_doe-123"))
}

func TestValidatePasswordSHA1(t *testing.T) {
	assert.NoError(t, validatePasswordSHA1("da39a3ee5e6b4b0d3255bfef95601890afd80709"))
	assert.Error(t, validatePasswordSHA1("not-a-hash"))
}

func TestValidateSuspendedString(t *testing.T) {
	assert.NoError(t, validateSuspendedString("true"))
	assert.NoError(t, validateSuspendedString("false"))
	assert.Error(t, validateSuspendedString("yes"))
}

func TestValidateName(t *testing.T) {
	assert.NoError(t, validateName("first_name", "Jane"))
	assert.NoError(t, validateName("first_name", "José"))
	assert.NoError(t, validateName("last_name", "Müller"))
	assert.Error(t, validateName("first_name", ""))
}

func TestNormalizeUsername(t *testing.T) {
	assert.Equal(t, "jane@example.com", normalizeUsername("jane", "example.com"))
	assert.Equal(t, "jane@other.com", normalizeUsername("jane@other.com", "example.com"))
}
