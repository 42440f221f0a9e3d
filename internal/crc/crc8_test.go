package crc

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInitialValue(t *testing.T) {
	c := New()
	assert.EqualValues(t, InitialValue, c.Byte())
}

func TestOfIsDeterministic(t *testing.T) {
	buf := []byte{0x01, 0x02, 0x03, 0x04}
	assert.Equal(t, Of(buf), Of(buf))
}

func TestOfEmpty(t *testing.T) {
	assert.EqualValues(t, InitialValue, Of(nil))
}

func TestSingleMatchesUpdate(t *testing.T) {
	buf := []byte{0xAA, 0xBB, 0xCC}
	a := New()
	a.Update(buf)

	b := New()
	for _, x := range buf {
		b.Single(x)
	}
	assert.Equal(t, a.Byte(), b.Byte())
}

func TestDifferentInputsDifferentCrc(t *testing.T) {
	assert.NotEqual(t, Of([]byte{0x01}), Of([]byte{0x02}))
}
