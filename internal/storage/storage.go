// Package storage is the persistent client storage that holds the bearer
// token and other per-visitor values.
package storage

import (
	"context"
	"errors"
)

// TokenKey is the key the bearer token is stored under.
const TokenKey = "tokenId"

var ErrNotFound = errors.New("storage: key not found")

// Storage is a string key/value store scoped to one namespace.
type Storage interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// Backend stores values for many namespaces. One namespace is one browser
// session.
type Backend interface {
	Get(ctx context.Context, namespace, key string) (string, error)
	Set(ctx context.Context, namespace, key, value string) error
	Delete(ctx context.Context, namespace, key string) error
	DeleteNamespace(ctx context.Context, namespace string) error
}

type scoped struct {
	backend   Backend
	namespace string
}

// Scope returns the Storage view of one namespace of b.
func Scope(b Backend, namespace string) Storage {
	return &scoped{backend: b, namespace: namespace}
}

func (s *scoped) Get(ctx context.Context, key string) (string, error) {
	return s.backend.Get(ctx, s.namespace, key)
}

func (s *scoped) Set(ctx context.Context, key, value string) error {
	return s.backend.Set(ctx, s.namespace, key, value)
}

func (s *scoped) Delete(ctx context.Context, key string) error {
	return s.backend.Delete(ctx, s.namespace, key)
}
