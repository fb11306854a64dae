package credentials

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

const testEnvKey = "TEST_WALLET_CREDENTIALS"

func testCredentialJSON(t *testing.T) []byte {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("Failed to generate key: %v", err)
	}
	der, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		t.Fatalf("Failed to marshal key: %v", err)
	}

	data, err := json.Marshal(map[string]string{
		"type":           "service_account",
		"project_id":     "wallet-test",
		"private_key_id": "abc123",
		"private_key":    string(pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der})),
		"client_email":   "issuer@wallet-test.iam.gserviceaccount.com",
		"client_id":      "1234567890",
		"token_uri":      "https://oauth2.googleapis.com/token",
	})
	if err != nil {
		t.Fatalf("Failed to marshal credential: %v", err)
	}
	return data
}

func TestLoad_InlineJSON(t *testing.T) {
	t.Setenv(testEnvKey, "  "+string(testCredentialJSON(t)))

	cred, err := Load(testEnvKey)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if cred.ClientEmail != "issuer@wallet-test.iam.gserviceaccount.com" {
		t.Errorf("Unexpected client email %s", cred.ClientEmail)
	}
	if cred.SigningKey() == nil {
		t.Error("Expected parsed signing key")
	}
	if cred.Source() != "inline" {
		t.Errorf("Expected inline source, got %s", cred.Source())
	}
}

func TestLoad_FilePath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "key.json")
	if err := os.WriteFile(path, testCredentialJSON(t), 0o600); err != nil {
		t.Fatalf("Failed to write key file: %v", err)
	}
	t.Setenv(testEnvKey, path)

	cred, err := Load(testEnvKey)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if cred.Source() != path {
		t.Errorf("Expected source %s, got %s", path, cred.Source())
	}
}

func TestLoad_Unset(t *testing.T) {
	t.Setenv(testEnvKey, "")
	os.Unsetenv(testEnvKey)

	_, err := Load(testEnvKey)
	if !errors.Is(err, ErrConfiguration) {
		t.Fatalf("Expected configuration error, got %v", err)
	}
}

func TestLoad_MalformedInlineJSON(t *testing.T) {
	t.Setenv(testEnvKey, `{"client_email": `)

	_, err := Load(testEnvKey)
	if !errors.Is(err, ErrConfiguration) {
		t.Fatalf("Expected configuration error, got %v", err)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	t.Setenv(testEnvKey, filepath.Join(t.TempDir(), "missing.json"))

	_, err := Load(testEnvKey)
	var cfgErr *ConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("Expected *ConfigurationError, got %v", err)
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Expected wrapped os.ErrNotExist, got %v", err)
	}
}

func TestLoad_InvalidPrivateKey(t *testing.T) {
	t.Setenv(testEnvKey, `{"client_email":"a@b.com","private_key":"not a key"}`)

	_, err := Load(testEnvKey)
	if !errors.Is(err, ErrConfiguration) {
		t.Fatalf("Expected configuration error, got %v", err)
	}
}

func TestHTTPClient(t *testing.T) {
	t.Setenv(testEnvKey, string(testCredentialJSON(t)))

	cred, err := Load(testEnvKey)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	client, err := cred.HTTPClient(context.Background(), nil, "https://www.googleapis.com/auth/wallet_object.issuer")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if client == nil {
		t.Fatal("Expected client")
	}
}
