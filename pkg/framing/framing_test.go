package framing

import (
	"testing"

	"github.com/idscan-io/idscan-driver/internal/cobs"
	"github.com/idscan-io/idscan-driver/internal/crc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundTrip(t *testing.T) {
	payload := []byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08}
	var d Decoder
	got := d.Decode(Encode(payload))
	require.Len(t, got, 1)
	assert.Equal(t, payload, got[0])
}

func TestRoundTripEmptyPayload(t *testing.T) {
	var d Decoder
	got := d.Decode(Encode(nil))
	require.Len(t, got, 1)
	assert.Equal(t, []byte{}, got[0])
}

func TestConcatenatedFramesYieldBothInOrder(t *testing.T) {
	a := []byte{0xDE, 0xAD}
	b := []byte{0xBE, 0xEF, 0x00, 0x01}
	buf := append(Encode(a), Encode(b)...)

	var d Decoder
	got := d.Decode(buf)
	require.Len(t, got, 2)
	assert.Equal(t, a, got[0])
	assert.Equal(t, b, got[1])
}

func TestConcatenatedFramesSplitArbitrarily(t *testing.T) {
	a := []byte{0x01}
	b := []byte{0x02, 0x03}
	buf := append(Encode(a), Encode(b)...)

	var d Decoder
	var got [][]byte
	for _, b := range buf {
		got = append(got, d.Decode([]byte{b})...)
	}
	require.Len(t, got, 2)
	assert.Equal(t, a, got[0])
	assert.Equal(t, []byte{0x02, 0x03}, got[1])
}

func TestCorruptedFrameDropped(t *testing.T) {
	payload := []byte{0x01, 0x02, 0x03}
	encoded := Encode(payload)
	// Flip a payload bit inside the delimiters without touching the
	// framing bytes, invalidating the CRC.
	encoded[2] ^= 0xFF

	var d Decoder
	got := d.Decode(encoded)
	assert.Empty(t, got)
}

func TestDecoderResetAndBufferSize(t *testing.T) {
	var d Decoder
	d.Decode([]byte{0x00, 0x01, 0x02})
	assert.Equal(t, 2, d.BufferSize())
	d.Reset()
	assert.Equal(t, 0, d.BufferSize())
}

func TestEncodeUsesPackageCrc(t *testing.T) {
	payload := []byte{0x10, 0x20}
	encoded := Encode(payload)
	body := encoded[1 : len(encoded)-1]
	decoded, err := cobs.Decode(body)
	require.NoError(t, err)
	assert.Equal(t, crc.Of(payload), decoded[len(decoded)-1])
}
