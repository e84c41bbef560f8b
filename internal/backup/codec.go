package backup

import (
	"fmt"

	"github.com/golang/snappy"

	"github.com/brewlab/brewsync/internal/crypto"
	"github.com/brewlab/brewsync/internal/models"
)

// Codec is the pluggable compression/encryption contract. keyRef selects
// the key material; for the built-in codec it is the user id.
type Codec interface {
	Compress(data []byte) (out []byte, ratio float64, err error)
	Decompress(data []byte) ([]byte, error)
	Encrypt(data []byte, keyRef string) ([]byte, error)
	Decrypt(data []byte, keyRef string) ([]byte, error)
}

// SnappyAESCodec compresses with snappy and encrypts with AES-256-GCM
// under per-user keys derived from a master key.
type SnappyAESCodec struct {
	masterKey []byte
}

// NewCodec creates the built-in codec. The master key must be 32 bytes.
func NewCodec(masterKey []byte) *SnappyAESCodec {
	return &SnappyAESCodec{masterKey: masterKey}
}

// Compress snappy-encodes data and reports the achieved ratio.
func (c *SnappyAESCodec) Compress(data []byte) ([]byte, float64, error) {
	out := snappy.Encode(nil, data)
	ratio := 1.0
	if len(data) > 0 {
		ratio = float64(len(out)) / float64(len(data))
	}
	return out, ratio, nil
}

// Decompress reverses Compress.
func (c *SnappyAESCodec) Decompress(data []byte) ([]byte, error) {
	out, err := snappy.Decode(nil, data)
	if err != nil {
		return nil, fmt.Errorf("%w: snappy decode: %v", models.ErrCodecFailure, err)
	}
	return out, nil
}

// Encrypt seals data under the keyRef's derived key.
func (c *SnappyAESCodec) Encrypt(data []byte, keyRef string) ([]byte, error) {
	key, err := crypto.DeriveUserKey(c.masterKey, keyRef)
	if err != nil {
		return nil, fmt.Errorf("%w: derive key: %v", models.ErrCodecFailure, err)
	}
	out, err := crypto.Encrypt(key, data)
	if err != nil {
		return nil, fmt.Errorf("%w: encrypt: %v", models.ErrCodecFailure, err)
	}
	return out, nil
}

// Decrypt reverses Encrypt.
func (c *SnappyAESCodec) Decrypt(data []byte, keyRef string) ([]byte, error) {
	key, err := crypto.DeriveUserKey(c.masterKey, keyRef)
	if err != nil {
		return nil, fmt.Errorf("%w: derive key: %v", models.ErrCodecFailure, err)
	}
	out, err := crypto.Decrypt(key, data)
	if err != nil {
		return nil, fmt.Errorf("%w: decrypt: %v", models.ErrCodecFailure, err)
	}
	return out, nil
}

var _ Codec = (*SnappyAESCodec)(nil)
