package oauth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
)

// Consent is what a finished consent round trip yields. IDToken is the
// provider-signed token that the identity service exchanges for its own
// credentials.
type Consent struct {
	IDToken  string
	Provider string
}

type Provider interface {
	GetConsentURL(state string) string
	ExchangeCode(ctx context.Context, code string) (*Consent, error)
	Name() string
}

func GenerateState() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}
