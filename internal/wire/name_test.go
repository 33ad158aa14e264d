package wire

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeName_Roundtrip(t *testing.T) {
	buf, err := encodeName(nil, "Example.TEST.")
	require.NoError(t, err)

	name, next, err := decodeName(buf, 0)
	require.NoError(t, err)
	assert.Equal(t, "example.test.", name)
	assert.Equal(t, len(buf), next)
}

func TestEncodeDecodeName_Root(t *testing.T) {
	buf, err := encodeName(nil, ".")
	require.NoError(t, err)
	assert.Equal(t, []byte{0}, buf)

	name, next, err := decodeName(buf, 0)
	require.NoError(t, err)
	assert.Equal(t, ".", name)
	assert.Equal(t, 1, next)
}

func TestEncodeName_LabelTooLong(t *testing.T) {
	label := make([]byte, 64)
	for i := range label {
		label[i] = 'a'
	}
	_, err := encodeName(nil, string(label)+".test.")
	require.Error(t, err)
}

func TestDecodeName_CompressionPointer(t *testing.T) {
	base, err := encodeName(nil, "example.test.")
	require.NoError(t, err)

	var ptr [2]byte
	binary.BigEndian.PutUint16(ptr[:], 0xC000)
	msg := append(base, ptr[:]...)

	name, next, err := decodeName(msg, len(base))
	require.NoError(t, err)
	assert.Equal(t, "example.test.", name)
	assert.Equal(t, len(base)+2, next)
}

func TestDecodeName_CompressionLoop(t *testing.T) {
	var msg [2]byte
	binary.BigEndian.PutUint16(msg[:], 0xC000) // points to itself

	_, _, err := decodeName(msg[:], 0)
	require.Error(t, err)
	var ferr *FormatError
	assert.ErrorAs(t, err, &ferr)
}

func TestDecodeName_PointerOutOfRange(t *testing.T) {
	var msg [2]byte
	binary.BigEndian.PutUint16(msg[:], 0xC0FF)

	_, _, err := decodeName(msg[:], 0)
	require.Error(t, err)
}

func TestDecodeName_ReservedLabelType(t *testing.T) {
	msg := []byte{0x40, 0x00}
	_, _, err := decodeName(msg, 0)
	require.Error(t, err)
}

func TestDecodeName_TruncatedLabel(t *testing.T) {
	msg := []byte{0x05, 'a', 'b'}
	_, _, err := decodeName(msg, 0)
	require.Error(t, err)
}

func TestDecodeName_ExcessiveJumpChain(t *testing.T) {
	// Build a chain of pointers, each pointing at the next pointer two
	// bytes ahead, exceeding maxCompressionJumps before ever reaching the
	// zero-length label at the end.
	msg := make([]byte, 2*(maxCompressionJumps+5)+1)
	for i := 0; i < len(msg)-1; i += 2 {
		binary.BigEndian.PutUint16(msg[i:i+2], uint16(0xC000|(i+2)))
	}
	msg[len(msg)-1] = 0

	_, _, err := decodeName(msg, 0)
	require.Error(t, err)
}

// FuzzDecodeName seeds the corpus with both well-formed and
// deliberately malformed encodings (a self-pointing compression loop,
// a reserved label type, a truncated label) and requires only that
// decodeName never panics.
func FuzzDecodeName(f *testing.F) {
	seeds := [][]byte{
		{0x07, 'e', 'x', 'a', 'm', 'p', 'l', 'e', 0x03, 'c', 'o', 'm', 0x00},
		{0x00},
		{0xC0, 0x00},
		{0x40, 0x00},
		{0x05, 'a', 'b'},
	}
	for _, seed := range seeds {
		f.Add(seed, 0)
	}

	f.Fuzz(func(t *testing.T, data []byte, offset int) {
		if offset < 0 || offset > len(data) {
			offset = 0
		}
		_, _, _ = decodeName(data, offset)
	})
}
