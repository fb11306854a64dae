// Package credentials loads the Google service-account credential used to
// call the Wallet API and to sign save-to-wallet tokens.
package credentials

import (
	"context"
	"crypto/rsa"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// ErrConfiguration marks every credential loading failure. Callers treat it
// as fatal.
var ErrConfiguration = errors.New("credentials: configuration error")

// ConfigurationError describes why the credential could not be loaded.
type ConfigurationError struct {
	EnvKey string
	Reason string
	Err    error
}

func (e *ConfigurationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("failed to load %s: %s: %v", e.EnvKey, e.Reason, e.Err)
	}
	return fmt.Sprintf("failed to load %s: %s", e.EnvKey, e.Reason)
}

func (e *ConfigurationError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrConfiguration, e.Err}
	}
	return []error{ErrConfiguration}
}

// Credential is a service-account key file.
type Credential struct {
	Type         string `json:"type"`
	ProjectID    string `json:"project_id"`
	PrivateKeyID string `json:"private_key_id"`
	PrivateKey   string `json:"private_key"`
	ClientEmail  string `json:"client_email"`
	ClientID     string `json:"client_id"`
	TokenURI     string `json:"token_uri"`

	raw        []byte
	signingKey *rsa.PrivateKey
	source     string
}

// Load reads the credential named by envKey. The variable holds either the
// JSON document itself or a path to it.
func Load(envKey string) (*Credential, error) {
	value, ok := os.LookupEnv(envKey)
	if !ok || strings.TrimSpace(value) == "" {
		return nil, &ConfigurationError{EnvKey: envKey, Reason: "variable is not set"}
	}

	trimmed := strings.TrimSpace(value)
	if strings.HasPrefix(trimmed, "{") {
		return parse(envKey, []byte(trimmed), "inline")
	}

	resolved, err := filepath.Abs(trimmed)
	if err != nil {
		return nil, &ConfigurationError{EnvKey: envKey, Reason: "cannot resolve path", Err: err}
	}
	if _, err := os.Stat(resolved); err != nil {
		return nil, &ConfigurationError{EnvKey: envKey, Reason: fmt.Sprintf("credentials file not found at %s", resolved), Err: err}
	}
	data, err := os.ReadFile(resolved)
	if err != nil {
		return nil, &ConfigurationError{EnvKey: envKey, Reason: "cannot read credentials file", Err: err}
	}

	return parse(envKey, data, resolved)
}

func parse(envKey string, data []byte, source string) (*Credential, error) {
	var cred Credential
	if err := json.Unmarshal(data, &cred); err != nil {
		return nil, &ConfigurationError{EnvKey: envKey, Reason: "invalid credentials JSON", Err: err}
	}
	if cred.ClientEmail == "" {
		return nil, &ConfigurationError{EnvKey: envKey, Reason: "client_email is missing"}
	}
	if cred.PrivateKey == "" {
		return nil, &ConfigurationError{EnvKey: envKey, Reason: "private_key is missing"}
	}

	key, err := jwt.ParseRSAPrivateKeyFromPEM([]byte(cred.PrivateKey))
	if err != nil {
		return nil, &ConfigurationError{EnvKey: envKey, Reason: "private_key is not an RSA PEM key", Err: err}
	}

	cred.raw = data
	cred.signingKey = key
	cred.source = source
	return &cred, nil
}

// SigningKey returns the parsed RSA private key.
func (c *Credential) SigningKey() *rsa.PrivateKey {
	return c.signingKey
}

// Source is "inline" or the absolute path the credential was read from.
func (c *Credential) Source() string {
	return c.source
}

// HTTPClient returns a client that authenticates every request with an
// OAuth2 access token for the given scopes. Tokens are cached and refreshed
// by the underlying token source.
func (c *Credential) HTTPClient(ctx context.Context, base *http.Client, scopes ...string) (*http.Client, error) {
	if base != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, base)
	}

	creds, err := google.CredentialsFromJSON(ctx, c.raw, scopes...)
	if err != nil {
		return nil, fmt.Errorf("credentials: build token source: %w", err)
	}

	client := oauth2.NewClient(ctx, creds.TokenSource)
	if base != nil {
		client.Timeout = base.Timeout
	}
	return client, nil
}
