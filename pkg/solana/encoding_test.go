package solana

import (
	"bytes"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShortVec_Valid(t *testing.T) {
	for i := 0; i < math.MaxUint16; i++ {
		buf := &bytes.Buffer{}
		_, err := encodeLen(buf, i)
		require.NoError(t, err)

		actual, err := decodeLen(buf)
		require.NoError(t, err)
		require.Equal(t, i, actual)
	}
}

func TestShortVec_CrossImpl(t *testing.T) {
	for _, tc := range []struct {
		val     int
		encoded []byte
	}{
		{0x0, []byte{0x0}},
		{0x7f, []byte{0x7f}},
		{0x80, []byte{0x80, 0x01}},
		{0xff, []byte{0xff, 0x01}},
		{0x100, []byte{0x80, 0x02}},
		{0x7fff, []byte{0xff, 0xff, 0x01}},
		{0xffff, []byte{0xff, 0xff, 0x03}},
	} {
		buf := &bytes.Buffer{}
		n, err := encodeLen(buf, tc.val)
		require.NoError(t, err)
		assert.Equal(t, len(tc.encoded), n)
		assert.Equal(t, tc.encoded, buf.Bytes())
	}
}

func TestShortVec_Invalid(t *testing.T) {
	_, err := encodeLen(&bytes.Buffer{}, math.MaxUint16+1)
	require.NotNil(t, err)

	// Four continuation bytes
	_, err = decodeLen(bytes.NewBuffer([]byte{0x80, 0x80, 0x80, 0x01}))
	assert.Error(t, err)

	// Third byte overflows u16
	_, err = decodeLen(bytes.NewBuffer([]byte{0xff, 0xff, 0x04}))
	assert.Error(t, err)

	// Truncated
	_, err = decodeLen(bytes.NewBuffer([]byte{0x80}))
	assert.Error(t, err)
}

func TestMessage_UnmarshalInvalid(t *testing.T) {
	var m Message
	assert.Error(t, m.Unmarshal(nil))
	assert.Error(t, m.Unmarshal([]byte{0x80, 0x01, 0x00, 0x01}))
	assert.Error(t, m.Unmarshal([]byte{0x01, 0x00}))
}
