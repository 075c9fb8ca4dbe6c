package api

import (
	"crypto/hmac"
	"crypto/sha1"
	"crypto/subtle"
	"encoding/hex"
)

// SignatureHeader carries the webhook body signature.
const SignatureHeader = "X-Hub-Signature"

// Authenticator checks the shared secret of incoming requests.
type Authenticator struct {
	secret []byte
	plain  bool
}

// NewAuthenticator creates an authenticator. An empty secret lets every
// request through.
func NewAuthenticator(secret string, plain bool) *Authenticator {
	return &Authenticator{secret: []byte(secret), plain: plain}
}

// Enabled reports whether a secret is configured.
func (a *Authenticator) Enabled() bool {
	return len(a.secret) > 0
}

// Check validates a request. In plain mode the secret parameter must match;
// otherwise signature must be "sha1=" + hex(HMAC-SHA1(secret, body)).
func (a *Authenticator) Check(secretParam, signature string, body []byte) bool {
	if !a.Enabled() {
		return true
	}
	if a.plain {
		return subtle.ConstantTimeCompare([]byte(secretParam), a.secret) == 1
	}
	if signature == "" {
		return false
	}
	return hmac.Equal([]byte(signature), []byte(Sign(a.secret, body)))
}

// Sign returns the X-Hub-Signature value for body.
func Sign(secret, body []byte) string {
	mac := hmac.New(sha1.New, secret)
	mac.Write(body)
	return "sha1=" + hex.EncodeToString(mac.Sum(nil))
}
