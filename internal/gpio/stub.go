//go:build !linux

package gpio

import "errors"

// Chip is not available on non-Linux platforms.
type Chip struct {
	Pins Pins
}

// OpenChip returns an error on non-Linux platforms.
func OpenChip(name string, m PinMap) (*Chip, error) {
	return nil, errors.New("gpio: character device not supported on this platform (requires Linux)")
}

// Close is a no-op on non-Linux platforms.
func (c *Chip) Close() error {
	return nil
}
