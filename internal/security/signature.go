package security

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
)

// SignCallbackPayload produces the HMAC signature the payment gateway is
// expected to send in X-Gateway-Signature alongside its callback body.
func SignCallbackPayload(payload []byte, secret string) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write(payload)
	return base64.RawURLEncoding.EncodeToString(h.Sum(nil))
}

// VerifyCallbackSignature compares in constant time.
func VerifyCallbackSignature(payload []byte, signature, secret string) bool {
	expected := SignCallbackPayload(payload, secret)
	return hmac.Equal([]byte(expected), []byte(signature))
}
