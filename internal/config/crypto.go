// internal/config/crypto.go
package config

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
)

const (
	masterKeyName = "__master_key__"
	masterKeySize = 32
)

// GetMasterKey returns the AES-256 key profile secrets are sealed with,
// creating it in the keyring on first use. A keyring that cannot be read is
// an error: a fresh key would orphan every stored secret.
func GetMasterKey() ([]byte, error) {
	ks, err := NewKeyringStore()
	if err != nil {
		return nil, err
	}

	keyHex, err := ks.Get(masterKeyName)
	switch {
	case err == nil:
		key, err := hex.DecodeString(keyHex)
		if err != nil || len(key) != masterKeySize {
			return nil, fmt.Errorf("corrupt master key in keyring")
		}
		return key, nil
	case !errors.Is(err, ErrSecretNotFound):
		return nil, err
	}

	key := make([]byte, masterKeySize)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return nil, err
	}
	if err := ks.Set(masterKeyName, hex.EncodeToString(key)); err != nil {
		return nil, err
	}
	return key, nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

// Encrypt seals plainText with AES-GCM. The hex output carries the nonce
// in front of the ciphertext.
func Encrypt(plainText string, key []byte) (string, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return "", err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}
	return hex.EncodeToString(gcm.Seal(nonce, nonce, []byte(plainText), nil)), nil
}

// Decrypt opens the output of Encrypt
func Decrypt(sealedHex string, key []byte) (string, error) {
	sealed, err := hex.DecodeString(sealedHex)
	if err != nil {
		return "", err
	}
	gcm, err := newGCM(key)
	if err != nil {
		return "", err
	}
	n := gcm.NonceSize()
	if len(sealed) < n {
		return "", errors.New("ciphertext too short")
	}
	plain, err := gcm.Open(nil, sealed[:n], sealed[n:], nil)
	if err != nil {
		return "", err
	}
	return string(plain), nil
}
