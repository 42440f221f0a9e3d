package idscan

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFrameHandlerFuncInvokesUnderlying(t *testing.T) {
	var got CanFrame
	var handler FrameHandler = FrameHandlerFunc(func(f CanFrame) { got = f })

	f, err := NewCanFrame(StandardId(0x123), []byte{1, 2, 3})
	assert.NoError(t, err)
	handler.HandleFrame(f)
	assert.Equal(t, f, got)
}
