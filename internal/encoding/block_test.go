package encoding

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nilotpaldev/strata/pkg/options"
)

func TestBlockFrameRoundTrip(t *testing.T) {
	payload := []byte("pretend this is a compressed payload")

	framed := EncodeBlockFrame(nil, 1024, payload, options.CompressionZstd)

	decoded, n, err := DecodeBlockFrame(framed)
	require.NoError(t, err)
	require.Equal(t, len(framed), n)
	require.Equal(t, 1024, decoded.UncompressedSize)
	require.Equal(t, options.CompressionZstd, decoded.Compression)
	require.Equal(t, payload, decoded.Payload)
}

func TestBlockFrameDetectsCorruption(t *testing.T) {
	payload := []byte("data")
	framed := EncodeBlockFrame(nil, 4, payload, options.CompressionNone)

	framed[len(framed)-1] ^= 0xff // flip a payload byte

	_, _, err := DecodeBlockFrame(framed)
	require.Error(t, err)
}

func TestBlockFrameDetectsTruncation(t *testing.T) {
	_, _, err := DecodeBlockFrame([]byte{0x00, 0x01})
	require.Error(t, err)
}
