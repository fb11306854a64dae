// Package webhook verifies Voucherify webhook signatures.
package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"
)

// Header names Voucherify may put the signature in, checked in order.
const (
	SignatureHeader       = "X-Voucherify-Signature"
	SignatureHeaderSHA256 = "X-Voucherify-Signature-Sha256"
)

var (
	ErrSignatureMissing = errors.New("webhook: signature header is missing")
	ErrSignatureInvalid = errors.New("webhook: signature mismatch")
)

// Verifier checks HMAC-SHA256 signatures over raw webhook bodies.
type Verifier struct {
	secret []byte
	logger *zap.Logger
}

// NewVerifier creates a verifier. With an empty secret every payload is
// accepted and a warning is logged per request.
func NewVerifier(secret string, logger *zap.Logger) *Verifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Verifier{secret: []byte(secret), logger: logger}
}

// Enabled reports whether a secret is configured.
func (v *Verifier) Enabled() bool {
	return len(v.secret) > 0
}

// Verify checks the signature in header against body.
func (v *Verifier) Verify(header http.Header, body []byte) error {
	if !v.Enabled() {
		v.logger.Warn("VOUCHERIFY_WEBHOOK_SECRET not set, skipping signature verification")
		return nil
	}

	signature := header.Get(SignatureHeader)
	if signature == "" {
		signature = header.Get(SignatureHeaderSHA256)
	}
	signature = strings.TrimSpace(signature)
	if signature == "" {
		return ErrSignatureMissing
	}

	expected := []byte(Sign(v.secret, body))
	if !hmac.Equal(expected, []byte(signature)) {
		return ErrSignatureInvalid
	}
	return nil
}

// Sign returns the lowercase hex HMAC-SHA256 of body.
func Sign(secret, body []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}
