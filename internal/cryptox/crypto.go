// Package cryptox seals small secrets (the persisted token pair) with
// AES-256-GCM under a key derived from a user passphrase.
package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"encoding/json"
	"errors"

	"github.com/dmitrijs2005/gofood/internal/common"
	"golang.org/x/crypto/argon2"
)

const (
	// KeySize is the AES-256 key length produced by DeriveKey.
	KeySize = 32
	// SaltSize is the recommended salt length for DeriveKey.
	SaltSize = 16
)

var ErrInvalidKey = errors.New("invalid key size")

// DeriveKey stretches a passphrase into a KeySize key with Argon2id.
func DeriveKey(passphrase []byte, salt []byte) []byte {
	return argon2.IDKey(passphrase, salt, 1, 64*1024, 4, KeySize)
}

// SealJSON marshals v to JSON and encrypts it. A fresh nonce is generated
// per call and returned alongside the ciphertext.
func SealJSON(v any, key []byte) (ciphertext, nonce []byte, err error) {
	plaintext, err := json.Marshal(v)
	if err != nil {
		return nil, nil, err
	}
	defer common.WipeByteArray(plaintext)

	aead, err := newAEAD(key)
	if err != nil {
		return nil, nil, err
	}

	nonce = common.GenerateRandByteArray(aead.NonceSize())
	return aead.Seal(nil, nonce, plaintext, nil), nonce, nil
}

// OpenJSON reverses SealJSON, unmarshalling the plaintext into v.
func OpenJSON(ciphertext, nonce, key []byte, v any) error {
	aead, err := newAEAD(key)
	if err != nil {
		return err
	}

	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(plaintext)

	return json.Unmarshal(plaintext, v)
}

func newAEAD(key []byte) (cipher.AEAD, error) {
	if len(key) != KeySize {
		return nil, ErrInvalidKey
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
