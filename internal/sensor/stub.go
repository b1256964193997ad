//go:build !linux

package sensor

import "github.com/pkg/errors"

// Open returns an error on non-Linux platforms.
func Open(cfg BusConfig) (*Devices, map[string]bool, error) {
	return nil, nil, errors.New("sensor: not supported on this platform (requires Linux)")
}
