//go:build windows

package store

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sys/windows/registry"
)

// servicesKeyPath is where the SCM keeps one key per installed service
const servicesKeyPath = `SYSTEM\CurrentControlSet\Services\`

// RegistryStore keeps settings as values under the service's SCM key. The
// key only exists once the service is installed.
type RegistryStore struct {
	root registry.Key
}

// NewRegistryStore creates a store rooted at HKEY_LOCAL_MACHINE
func NewRegistryStore() (Store, error) {
	return &RegistryStore{root: registry.LOCAL_MACHINE}, nil
}

func (s *RegistryStore) open(op, namespace string, access uint32) (registry.Key, error) {
	k, err := registry.OpenKey(s.root, servicesKeyPath+namespace, access)
	if errors.Is(err, registry.ErrNotExist) {
		return 0, newError(op, namespace, "", fmt.Errorf("%w: %w", ErrNamespaceNotFound, err))
	}
	if err != nil {
		return 0, newError(op, namespace, "", err)
	}
	return k, nil
}

func valueError(op, namespace, key string, err error) error {
	if errors.Is(err, registry.ErrNotExist) {
		return newError(op, namespace, key, fmt.Errorf("%w: %w", ErrNotFound, err))
	}
	return newError(op, namespace, key, err)
}

// GetString implements Store
func (s *RegistryStore) GetString(_ context.Context, namespace, key string) (string, error) {
	k, err := s.open("get", namespace, registry.QUERY_VALUE)
	if err != nil {
		return "", err
	}
	defer k.Close()

	v, _, err := k.GetStringValue(key)
	if err != nil {
		return "", valueError("get", namespace, key, err)
	}
	return v, nil
}

// SetString implements Store
func (s *RegistryStore) SetString(_ context.Context, namespace, key, value string) error {
	k, err := s.open("set", namespace, registry.SET_VALUE)
	if err != nil {
		return err
	}
	defer k.Close()

	if err := k.SetStringValue(key, value); err != nil {
		return valueError("set", namespace, key, err)
	}
	return nil
}

// GetUint64 implements Store
func (s *RegistryStore) GetUint64(_ context.Context, namespace, key string) (uint64, error) {
	k, err := s.open("get", namespace, registry.QUERY_VALUE)
	if err != nil {
		return 0, err
	}
	defer k.Close()

	v, _, err := k.GetIntegerValue(key)
	if err != nil {
		return 0, valueError("get", namespace, key, err)
	}
	return v, nil
}

// SetUint64 implements Store
func (s *RegistryStore) SetUint64(_ context.Context, namespace, key string, value uint64) error {
	k, err := s.open("set", namespace, registry.SET_VALUE)
	if err != nil {
		return err
	}
	defer k.Close()

	if err := k.SetQWordValue(key, value); err != nil {
		return valueError("set", namespace, key, err)
	}
	return nil
}

// Close implements Store
func (s *RegistryStore) Close() error {
	return nil
}
