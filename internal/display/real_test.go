//go:build linux

package display

import (
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sweeney/enviro-sensor/internal/logging"
)

func TestOpenOLEDUnknownPortWrapsCause(t *testing.T) {
	_, err := OpenOLED(OLEDConfig{SPIPort: "/dev/spidev-does-not-exist", PinDC: DefaultPinDC, PinRST: DefaultPinRST}, logging.Discard())
	require.Error(t, err)

	msg := err.Error()
	assert.True(t, strings.HasPrefix(msg, "open spi port") || strings.HasPrefix(msg, "host init"), "got %q", msg)
	assert.NotEqual(t, err, errors.Cause(err), "error should wrap its cause")
	_, hasStack := err.(interface{ StackTrace() errors.StackTrace })
	assert.True(t, hasStack, "error should carry a stack trace")
}
