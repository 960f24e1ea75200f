package services

import (
	"context"
	"errors"
)

// Backend is the authenticated client of one browser session.
// *apiclient.Client implements it.
type Backend interface {
	Do(ctx context.Context, method, path string, body, out any) error
	DoPublic(ctx context.Context, method, path string, body, out any) error
	GetJSON(ctx context.Context, path string, out any) error
	PostJSON(ctx context.Context, path string, body, out any) error
	PatchJSON(ctx context.Context, path string, body, out any) error
	DeleteJSON(ctx context.Context, path string, out any) error
}

// ErrInvalidInput marks requests rejected before reaching the backend.
var ErrInvalidInput = errors.New("invalid input")
