package gpio

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// DefaultIIOPath is the raw attribute of ADC channel 0 on the first IIO device.
const DefaultIIOPath = "/sys/bus/iio/devices/iio:device0/in_voltage0_raw"

// IIOChannel reads an ADC channel exposed by the Linux IIO subsystem.
// The kernel driver runs the converter; a sample is available whenever the
// raw attribute can be read.
type IIOChannel struct {
	path string
}

// OpenIIO checks that the raw attribute at path exists.
func OpenIIO(path string) (*IIOChannel, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("open iio channel: %w", err)
	}
	return &IIOChannel{path: path}, nil
}

// ConversionComplete reports whether the raw attribute is present. A missing
// attribute (driver unbound) reads as "not ready" rather than an error.
func (c *IIOChannel) ConversionComplete() (bool, error) {
	_, err := os.Stat(c.path)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("stat iio channel: %w", err)
	}
	return true, nil
}

// Read parses the current raw sample.
func (c *IIOChannel) Read() (uint16, error) {
	b, err := os.ReadFile(c.path)
	if err != nil {
		return 0, fmt.Errorf("read iio channel: %w", err)
	}
	v, err := strconv.ParseUint(strings.TrimSpace(string(b)), 10, 16)
	if err != nil {
		return 0, fmt.Errorf("parse iio sample %q: %w", strings.TrimSpace(string(b)), err)
	}
	return uint16(v), nil
}

// Close is a no-op; the attribute is reopened on every read.
func (c *IIOChannel) Close() error {
	return nil
}
