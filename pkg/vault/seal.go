// Package vault encrypts fingerprint templates at rest.
//
// A sealed blob is salt (16 bytes) || nonce (12 bytes) || ciphertext || tag.
// The key is derived from the passphrase and salt with PBKDF2-HMAC-SHA256 and
// the template is encrypted with AES-256-GCM without associated data.
package vault

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"slices"

	"golang.org/x/crypto/pbkdf2"
)

const (
	SaltSize   = 16
	NonceSize  = 12
	KeySize    = 32
	TagSize    = 16
	HeaderSize = SaltSize + NonceSize

	DefaultIterations = 390000
)

var (
	// ErrIntegrity is the only error returned for blobs that fail to decrypt.
	// Wrong passphrase, truncation and tampering are indistinguishable.
	ErrIntegrity     = errors.New("vault: integrity check failed")
	ErrNoPassphrase  = errors.New("vault: empty passphrase")
	ErrInvalidID     = errors.New("vault: invalid identifier")
	ErrNotEnrolled   = errors.New("vault: no template for identifier")
	ErrBadIterations = errors.New("vault: iteration count must be positive")
)

// Seal encrypts template under passphrase with a fresh salt and nonce.
func Seal(template, passphrase []byte, opts ...Option) ([]byte, error) {
	oo := newOptions(opts...)
	if err := oo.check(passphrase); err != nil {
		return nil, err
	}

	header := make([]byte, HeaderSize)
	if _, err := io.ReadFull(oo.rand, header); err != nil {
		return nil, fmt.Errorf("vault: generate salt and nonce: %w", err)
	}
	salt, nonce := header[:SaltSize], header[SaltSize:]

	gcm, err := newAEAD(passphrase, salt, oo.iterations)
	if err != nil {
		return nil, err
	}

	return gcm.Seal(header, nonce, template, nil), nil
}

// OpenBlob decrypts a blob produced by Seal. Any failure to authenticate the
// blob yields ErrIntegrity and no plaintext.
func OpenBlob(blob, passphrase []byte, opts ...Option) ([]byte, error) {
	oo := newOptions(opts...)
	if err := oo.check(passphrase); err != nil {
		return nil, err
	}

	if len(blob) < HeaderSize+TagSize {
		return nil, ErrIntegrity
	}
	salt, nonce, ciphertext := blob[:SaltSize], blob[SaltSize:HeaderSize], blob[HeaderSize:]

	gcm, err := newAEAD(passphrase, salt, oo.iterations)
	if err != nil {
		return nil, err
	}

	template, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, ErrIntegrity
	}
	if template == nil {
		template = []byte{}
	}

	return template, nil
}

func newAEAD(passphrase, salt []byte, iterations int) (cipher.AEAD, error) {
	key := pbkdf2.Key(passphrase, slices.Clone(salt), iterations, KeySize, sha256.New)
	defer clear(key)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("vault: cannot create AES cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("vault: cannot create GCM: %w", err)
	}

	return gcm, nil
}
