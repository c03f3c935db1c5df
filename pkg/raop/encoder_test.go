package raop

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"testing"

	"github.com/stretchr/testify/require"
)

func testSessionKey(t *testing.T) *sessionKey {
	key, err := newSessionKey(bytes.NewReader(bytes.Repeat([]byte{0x5a}, aesKeySize+aes.BlockSize)))
	require.NoError(t, err)
	return key
}

func TestEncodeFrames(t *testing.T) {
	for _, ca := range []struct {
		name     string
		raw      []byte
		enc      []byte
		consumed int
	}{
		{
			"two frames",
			[]byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08},
			[]byte{
				0x20, 0x00, 0x12, 0x00, 0x00, 0x00, 0x04, 0x04,
				0x02, 0x08, 0x06, 0x0c, 0x0a, 0x10, 0x0e,
			},
			8,
		},
		{
			"partial frame",
			[]byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08, 0x09, 0x0a},
			[]byte{
				0x20, 0x00, 0x12, 0x00, 0x00, 0x00, 0x04, 0x04,
				0x02, 0x08, 0x06, 0x0c, 0x0a, 0x10, 0x0e,
			},
			8,
		},
		{
			"empty",
			nil,
			[]byte{0x20, 0x00, 0x12, 0x00, 0x00, 0x00, 0x00},
			0,
		},
	} {
		t.Run(ca.name, func(t *testing.T) {
			enc, n := encodeFrames(ca.raw)
			require.Equal(t, ca.enc, enc)
			require.Equal(t, ca.consumed, n)
		})
	}
}

func TestEncodeSampleHeader(t *testing.T) {
	buf, n, err := encodeSample([]byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08}, testSessionKey(t))
	require.NoError(t, err)
	require.Equal(t, 8, n)
	require.Equal(t, []byte{
		0x24, 0x00, 0x00, 0x1b, 0xf0, 0xff, 0x00, 0x00,
		0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	}, buf[:HeaderSize])

	// shorter than a block, not encrypted
	require.Equal(t, []byte{
		0x20, 0x00, 0x12, 0x00, 0x00, 0x00, 0x04, 0x04,
		0x02, 0x08, 0x06, 0x0c, 0x0a, 0x10, 0x0e,
	}, buf[HeaderSize:])
}

func TestEncodeSampleEncryption(t *testing.T) {
	raw := make([]byte, 4*FrameSize)
	for i := range raw {
		raw[i] = byte(i)
	}

	key := testSessionKey(t)

	buf, n, err := encodeSample(raw, key)
	require.NoError(t, err)
	require.Equal(t, len(raw), n)

	plain, _ := encodeFrames(raw)
	require.Equal(t, 23, len(plain))
	require.Equal(t, HeaderSize+len(plain), len(buf))

	body := buf[HeaderSize:]
	require.NotEqual(t, plain[:16], body[:16])
	require.Equal(t, plain[16:], body[16:])

	dec := make([]byte, 16)
	cipher.NewCBCDecrypter(key.block, key.iv).CryptBlocks(dec, body[:16])
	require.Equal(t, plain[:16], dec)

	// IV is reset on every call
	buf2, _, err := encodeSample(raw, key)
	require.NoError(t, err)
	require.Equal(t, buf, buf2)
}

func TestSessionKeyClear(t *testing.T) {
	key := testSessionKey(t)
	key.clear()
	require.Equal(t, make([]byte, aesKeySize), key.key)
	require.Equal(t, make([]byte, aes.BlockSize), key.iv)
	require.Nil(t, key.block)
}
