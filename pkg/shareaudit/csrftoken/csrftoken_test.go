package csrftoken

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidatorAcceptsDerivedToken(t *testing.T) {
	secret := []byte("deployment-secret")
	validator := NewValidator(secret)

	assert.True(t, validator.Validate(Token(secret)))
}

func TestValidatorRejectsOtherTokens(t *testing.T) {
	validator := NewValidator([]byte("deployment-secret"))

	assert.False(t, validator.Validate(""))
	assert.False(t, validator.Validate("forged"))
	assert.False(t, validator.Validate(Token([]byte("other-secret"))))
}

func TestTokenIsDeterministicPerSecret(t *testing.T) {
	secret := []byte("s1")
	assert.Equal(t, Token(secret), Token(secret))
	assert.NotEqual(t, Token(secret), Token([]byte("s2")))
}
