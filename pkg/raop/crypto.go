package raop

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rsa"
	"crypto/sha1" //nolint:gosec
	"fmt"
	"io"
	"math/big"

	"github.com/bluenviron/goraop/pkg/b64"
)

const (
	aesKeySize = 16

	publicKeyModulus = "59dE8qLieItsH1WgjrcFRKj6eUWqi+bGLOX1HL3U3GhC/j0Qg90u3sG/1CUtwC5vOYvfDmFI6oSFXi5" +
		"ELabWJmT2dKHzBJKa3k9ok+8t9ucRqMd6DZHJ2YCCLlDRKSKv6kDqnw4UwPdpOMXziC/AMj3Z/lUVX1G7WSHCAWKf1zNS1" +
		"eLvqr+boEjXuBOitnZ/bDzPHrTOZz0Dew0uowxf/+sG+NCK3eQJVxqcaJ/vEHKIVd2M+5qL71yJQ+87X6oV3eaYvt3zWZYD" +
		"6z5vYTcrtij2VZ9Zmni/UAaHqn9JdsBWLUEpVviYnhimNVvYFZeCXg/IdTQ+x4IRdiXNv5hEew=="
	publicKeyExponent = "AQAB"
)

// DefaultPublicKey returns the public key of AirPlay receivers,
// used to wrap the AES session key.
func DefaultPublicKey() *rsa.PublicKey {
	pub, err := PublicKeyFromBase64(publicKeyModulus, publicKeyExponent)
	if err != nil {
		panic(err)
	}
	return pub
}

// PublicKeyFromBase64 builds a RSA public key from a base64 modulus and exponent.
func PublicKeyFromBase64(modulus string, exponent string) (*rsa.PublicKey, error) {
	n, err := b64.Decode(modulus)
	if err != nil {
		return nil, fmt.Errorf("invalid modulus: %w", err)
	}

	e, err := b64.Decode(exponent)
	if err != nil {
		return nil, fmt.Errorf("invalid exponent: %w", err)
	}

	if len(e) == 0 || len(e) > 4 {
		return nil, fmt.Errorf("invalid exponent size: %d", len(e))
	}

	return &rsa.PublicKey{
		N: new(big.Int).SetBytes(n),
		E: int(new(big.Int).SetBytes(e).Int64()),
	}, nil
}

// sessionKey is the AES material of a session.
type sessionKey struct {
	key   []byte
	iv    []byte
	block cipher.Block
}

func newSessionKey(r io.Reader) (*sessionKey, error) {
	buf := make([]byte, aesKeySize+aes.BlockSize)
	_, err := io.ReadFull(r, buf)
	if err != nil {
		return nil, err
	}

	block, err := aes.NewCipher(buf[:aesKeySize])
	if err != nil {
		return nil, err
	}

	return &sessionKey{
		key:   buf[:aesKeySize],
		iv:    buf[aesKeySize:],
		block: block,
	}, nil
}

// wrap encrypts the AES key with RSA-OAEP.
func (k *sessionKey) wrap(r io.Reader, pub *rsa.PublicKey) ([]byte, error) {
	return rsa.EncryptOAEP(sha1.New(), r, pub, k.key, nil) //nolint:gosec
}

// encrypt encrypts buf in place with AES-CBC, starting from the session IV.
// A trailing partial block is left unencrypted.
func (k *sessionKey) encrypt(buf []byte) {
	n := len(buf) / aes.BlockSize * aes.BlockSize
	if n == 0 {
		return
	}
	cipher.NewCBCEncrypter(k.block, k.iv).CryptBlocks(buf[:n], buf[:n])
}

func (k *sessionKey) clear() {
	clear(k.key)
	clear(k.iv)
	k.block = nil
}
