// Package store persists per-service settings in a host key/value store.
//
// Every value is addressed by a namespace (the service name) and a key. The
// registry driver maps namespaces onto service keys under
// HKLM\SYSTEM\CurrentControlSet\Services; the sqlite driver keeps them in a
// single settings table.
package store

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when the key does not exist in the namespace
	ErrNotFound = errors.New("setting not found")
	// ErrNamespaceNotFound is returned when the namespace itself does not exist
	ErrNamespaceNotFound = errors.New("settings namespace not found")
	// ErrUnsupported is returned by drivers unavailable on this platform
	ErrUnsupported = errors.New("store driver not supported on this platform")
)

// Store is a namespaced key/value store
type Store interface {
	GetString(ctx context.Context, namespace, key string) (string, error)
	SetString(ctx context.Context, namespace, key, value string) error
	GetUint64(ctx context.Context, namespace, key string) (uint64, error)
	SetUint64(ctx context.Context, namespace, key string, value uint64) error
	Close() error
}

// Error represents a store error
type Error struct {
	Op        string // Operation that failed
	Namespace string
	Key       string
	Err       error // Underlying driver or OS error
}

func (e *Error) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("store %s %s/%s: %v", e.Op, e.Namespace, e.Key, e.Err)
	}
	return fmt.Sprintf("store %s %s: %v", e.Op, e.Namespace, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(op, namespace, key string, err error) error {
	return &Error{Op: op, Namespace: namespace, Key: key, Err: err}
}
