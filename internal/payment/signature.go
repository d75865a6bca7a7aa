package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// VerifySignature checks the hex-encoded HMAC-SHA256 of the raw webhook
// body. Events failing this check are rejected before any business logic
// sees them.
func VerifySignature(secret, body []byte, gotHex string) bool {
	mac := hmac.New(sha256.New, secret)
	mac.Write(body)
	got, err := hex.DecodeString(gotHex)
	if err != nil {
		return false
	}
	return hmac.Equal(mac.Sum(nil), got)
}

// Sign is the counterpart used by tests and local tooling.
func Sign(secret, body []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}
