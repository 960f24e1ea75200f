package oauth

import (
	"context"
	"errors"
	"fmt"

	"github.com/programmerrakibul/book-wagon-client/internal/config"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

var ErrNoIDToken = errors.New("google token response carried no id_token")

type GoogleProvider struct {
	config *oauth2.Config
}

func NewGoogleProvider(cfg config.OAuthConfig) *GoogleProvider {
	return &GoogleProvider{
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes: []string{
				"openid",
				"https://www.googleapis.com/auth/userinfo.email",
				"https://www.googleapis.com/auth/userinfo.profile",
			},
			Endpoint: google.Endpoint,
		},
	}
}

func (p *GoogleProvider) Name() string {
	return "google"
}

func (p *GoogleProvider) GetConsentURL(state string) string {
	return p.config.AuthCodeURL(state, oauth2.SetAuthURLParam("prompt", "select_account"))
}

// ExchangeCode trades the authorization code for Google's id_token. The
// profile comes from the identity service once that token is signed in.
func (p *GoogleProvider) ExchangeCode(ctx context.Context, code string) (*Consent, error) {
	token, err := p.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange code: %w", err)
	}

	idToken, _ := token.Extra("id_token").(string)
	if idToken == "" {
		return nil, ErrNoIDToken
	}

	return &Consent{IDToken: idToken, Provider: p.Name()}, nil
}
