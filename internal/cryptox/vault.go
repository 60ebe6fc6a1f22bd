// Package cryptox implements the credential vault: authenticated encryption
// of OAuth tokens at rest with AES-256-GCM.
package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"encoding/hex"
	"fmt"

	"github.com/penter405/brainsync/internal/common"
)

const (
	// KeySize is the only accepted key length (AES-256).
	KeySize = 32
	// NonceSize is the GCM nonce length; a fresh one is drawn per Seal.
	NonceSize = 12
	// TagSize is the GCM authentication tag length.
	TagSize = 16
)

// Envelope is the persisted form of one sealed secret. All three parts are
// hex encoded.
type Envelope struct {
	IV        string `json:"iv"`
	AuthTag   string `json:"authTag"`
	Encrypted string `json:"encrypted"`
}

// DeriveKey decodes the configured hex key. Anything other than exactly 64
// hex characters is a configuration error.
func DeriveKey(hexKey string) ([]byte, error) {
	if len(hexKey) != KeySize*2 {
		return nil, fmt.Errorf("%w: encryption key must be %d hex characters", common.ErrConfiguration, KeySize*2)
	}
	key, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, fmt.Errorf("%w: encryption key is not valid hex", common.ErrConfiguration)
	}
	return key, nil
}

// Vault seals and opens envelopes under a single key. It is safe for
// concurrent use.
type Vault struct {
	aead cipher.AEAD
}

func NewVault(key []byte) (*Vault, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("%w: encryption key must be %d bytes", common.ErrConfiguration, KeySize)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrConfiguration, err)
	}

	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrConfiguration, err)
	}

	return &Vault{aead: aead}, nil
}

// Seal encrypts plaintext under a freshly drawn random nonce.
func (v *Vault) Seal(plaintext string) (*Envelope, error) {
	nonce := common.GenerateRandByteArray(NonceSize)

	sealed := v.aead.Seal(nil, nonce, []byte(plaintext), nil)
	split := len(sealed) - TagSize

	return &Envelope{
		IV:        hex.EncodeToString(nonce),
		AuthTag:   hex.EncodeToString(sealed[split:]),
		Encrypted: hex.EncodeToString(sealed[:split]),
	}, nil
}

// Open authenticates and decrypts env. Any malformed part or a tag that
// does not verify yields common.ErrIntegrity and no plaintext.
func (v *Vault) Open(env *Envelope) (string, error) {
	if env == nil {
		return "", fmt.Errorf("%w: empty envelope", common.ErrIntegrity)
	}

	nonce, err := hex.DecodeString(env.IV)
	if err != nil || len(nonce) != NonceSize {
		return "", fmt.Errorf("%w: malformed iv", common.ErrIntegrity)
	}

	tag, err := hex.DecodeString(env.AuthTag)
	if err != nil || len(tag) != TagSize {
		return "", fmt.Errorf("%w: malformed auth tag", common.ErrIntegrity)
	}

	ciphertext, err := hex.DecodeString(env.Encrypted)
	if err != nil {
		return "", fmt.Errorf("%w: malformed ciphertext", common.ErrIntegrity)
	}

	plaintext, err := v.aead.Open(nil, nonce, append(ciphertext, tag...), nil)
	if err != nil {
		return "", common.ErrIntegrity
	}

	return string(plaintext), nil
}
