package wallet

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"loyalty-wallet-bridge/internal/models"
)

const (
	// SaveURLBase is prefixed to a signed token to form the save link.
	SaveURLBase = "https://pay.google.com/gp/v/save/"

	saveAudience = "google"
	saveType     = "savetowallet"
)

// Signer signs save-to-wallet tokens with the issuer's service account key.
type Signer struct {
	issuerEmail string
	key         *rsa.PrivateKey
	now         func() time.Time
}

// NewSigner creates a signer for the given service account.
func NewSigner(issuerEmail string, key *rsa.PrivateKey) *Signer {
	return &Signer{issuerEmail: issuerEmail, key: key, now: time.Now}
}

// SignSaveToken returns an RS256 compact token carrying object.
func (s *Signer) SignSaveToken(object models.GenericObject) (string, error) {
	if s.key == nil {
		return "", errors.New("wallet: signer has no private key")
	}

	claims := jwt.MapClaims{
		"iss":     s.issuerEmail,
		"aud":     saveAudience,
		"typ":     saveType,
		"origins": []string{},
		"iat":     s.now().Unix(),
		"payload": models.SavePayload{GenericObjects: []models.GenericObject{object}},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(s.key)
	if err != nil {
		return "", fmt.Errorf("wallet: sign save token: %w", err)
	}
	return token, nil
}

// SaveURL returns the link that adds the signed pass to a wallet.
func SaveURL(token string) string {
	return SaveURLBase + token
}
