package webhook

import (
	"errors"
	"net/http"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

const testSecret = "whsec_test"

var testBody = []byte(`{"data":{"holder":{"email":"a@b.com"},"transaction":{"details":{"balance":{"balance":150}}}}}`)

func TestVerify_Valid(t *testing.T) {
	v := NewVerifier(testSecret, nil)

	h := http.Header{}
	h.Set(SignatureHeader, Sign([]byte(testSecret), testBody))

	if err := v.Verify(h, testBody); err != nil {
		t.Errorf("Expected valid signature, got %v", err)
	}
}

func TestVerify_FallbackHeader(t *testing.T) {
	v := NewVerifier(testSecret, nil)

	h := http.Header{}
	h.Set("x-voucherify-signature-sha256", Sign([]byte(testSecret), testBody))

	if err := v.Verify(h, testBody); err != nil {
		t.Errorf("Expected valid signature from fallback header, got %v", err)
	}
}

func TestVerify_SingleByteMutation(t *testing.T) {
	v := NewVerifier(testSecret, nil)

	h := http.Header{}
	h.Set(SignatureHeader, Sign([]byte(testSecret), testBody))

	for i := range testBody {
		mutated := append([]byte(nil), testBody...)
		mutated[i] ^= 0x01
		if err := v.Verify(h, mutated); !errors.Is(err, ErrSignatureInvalid) {
			t.Fatalf("Expected mutation at byte %d to be rejected, got %v", i, err)
		}
	}
}

func TestVerify_WrongSecret(t *testing.T) {
	v := NewVerifier(testSecret, nil)

	h := http.Header{}
	h.Set(SignatureHeader, Sign([]byte("other"), testBody))

	if err := v.Verify(h, testBody); !errors.Is(err, ErrSignatureInvalid) {
		t.Errorf("Expected ErrSignatureInvalid, got %v", err)
	}
}

func TestVerify_MissingHeader(t *testing.T) {
	v := NewVerifier(testSecret, nil)

	if err := v.Verify(http.Header{}, testBody); !errors.Is(err, ErrSignatureMissing) {
		t.Errorf("Expected ErrSignatureMissing, got %v", err)
	}
}

func TestVerify_NoSecretAcceptsAnything(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	v := NewVerifier("", zap.New(core))

	if v.Enabled() {
		t.Error("Expected verifier to be disabled without secret")
	}
	if err := v.Verify(http.Header{}, []byte("anything")); err != nil {
		t.Errorf("Expected payload to be accepted without secret, got %v", err)
	}

	warnings := logs.FilterMessageSnippet("VOUCHERIFY_WEBHOOK_SECRET not set").All()
	if len(warnings) != 1 {
		t.Fatalf("Expected 1 missing secret warning, got %d", len(warnings))
	}
	if warnings[0].Level != zapcore.WarnLevel {
		t.Errorf("Expected warn level, got %s", warnings[0].Level)
	}
}
