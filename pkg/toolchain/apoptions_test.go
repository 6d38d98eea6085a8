package toolchain

import (
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeAPOptions_KnownEncoding(t *testing.T) {
	encoded, err := EncodeAPOptions(map[string]string{"a": "b"})
	require.NoError(t, err)
	assert.Equal(t, "rO0ABXcKAAAAAQABYQABYg==", encoded)
}

func TestEncodeAPOptions_Empty(t *testing.T) {
	encoded, err := EncodeAPOptions(nil)
	require.NoError(t, err)

	raw, err := base64.StdEncoding.DecodeString(encoded)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xAC, 0xED, 0x00, 0x05, 0x77, 0x04, 0, 0, 0, 0}, raw)

	decoded, err := DecodeAPOptions(encoded)
	require.NoError(t, err)
	assert.Empty(t, decoded)
}

func TestAPOptions_RoundTrip(t *testing.T) {
	options := map[string]string{
		"kapt.kotlin.generated": "/tmp/generated",
		"unicode":               "grüße ✓ \U0001F600",
		"nul":                   "a\x00b",
		"empty":                 "",
		"long":                  strings.Repeat("x", 3000),
	}

	encoded, err := EncodeAPOptions(options)
	require.NoError(t, err)

	raw, err := base64.StdEncoding.DecodeString(encoded)
	require.NoError(t, err)
	// payloads above one block are split into long block records
	assert.Equal(t, byte(tcBlockDataLong), raw[4])

	decoded, err := DecodeAPOptions(encoded)
	require.NoError(t, err)
	assert.Equal(t, options, decoded)
}

func TestEncodeModifiedUTF8(t *testing.T) {
	assert.Equal(t, []byte{0xC0, 0x80}, encodeModifiedUTF8("\x00"))
	assert.Equal(t, []byte{'A'}, encodeModifiedUTF8("A"))
	// U+1F600 as a surrogate pair of three-byte sequences
	assert.Equal(t, []byte{0xED, 0xA0, 0xBD, 0xED, 0xB8, 0x80}, encodeModifiedUTF8("\U0001F600"))
}

func TestEncodeAPOptions_TooLong(t *testing.T) {
	_, err := EncodeAPOptions(map[string]string{"k": strings.Repeat("x", 70000)})
	assert.ErrorIs(t, err, ErrOptionTooLong)
}

func TestDecodeAPOptions_Invalid(t *testing.T) {
	tests := []string{
		"not base64!",
		base64.StdEncoding.EncodeToString([]byte{0x00, 0x01}),
		base64.StdEncoding.EncodeToString([]byte{0xAC, 0xED, 0x00, 0x05, 0x70}),
		base64.StdEncoding.EncodeToString([]byte{0xAC, 0xED, 0x00, 0x05, 0x77, 0x10, 0x00}),
	}
	for _, input := range tests {
		_, err := DecodeAPOptions(input)
		assert.ErrorIs(t, err, ErrInvalidAPOptions, "input %q", input)
	}
}
