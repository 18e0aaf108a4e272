package proto

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSerialMatch(t *testing.T) {
	s := NewSerial("ttyACM")
	s.list = func() ([]string, error) {
		return []string{"/dev/ttyS0", "/dev/ttyACM1", "/dev/ttyACM2"}, nil
	}

	name, err := s.Match()
	require.NoError(t, err)
	assert.Equal(t, "/dev/ttyACM1", name)

	s.name = "usbmodem"
	_, err = s.Match()
	assert.True(t, errors.Is(err, ErrPortNotFound))

	s.list = func() ([]string, error) { return nil, errors.New("busy") }
	_, err = s.Match()
	assert.Error(t, err)
	assert.NoError(t, s.Close(), "closing an unopened port is a no-op")
}
