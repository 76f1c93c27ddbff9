// Package csrftoken is a minimal implementation of the shareaudit
// TokenValidator contract for deployments where no external session
// layer supplies one. Token issuance belongs to the page renderer; this
// package only derives and checks the deployment-scoped token value.
package csrftoken

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"

	"github.com/matatunos/shareaudit/pkg/shareaudit"
)

const tokenContext = "shareaudit-csrf"

// Token derives the expected token for a deployment secret.
func Token(secret []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(tokenContext))
	return hex.EncodeToString(mac.Sum(nil))
}

// NewValidator returns a TokenValidator that accepts only the derived
// token, compared in constant time.
func NewValidator(secret []byte) shareaudit.TokenValidator {
	expected := []byte(Token(secret))
	return shareaudit.TokenValidatorFunc(func(token string) bool {
		return hmac.Equal([]byte(token), expected)
	})
}
