//go:build !windows

package store

// NewRegistryStore is only available on windows
func NewRegistryStore() (Store, error) {
	return nil, ErrUnsupported
}
