// Copyright (c) 2012-present The upper.io/db authors. All rights reserved.
//
// Permission is hereby granted, free of charge, to any person obtaining
// a copy of this software and associated documentation files (the
// "Software"), to deal in the Software without restriction, including
// without limitation the rights to use, copy, modify, merge, publish,
// distribute, sublicense, and/or sell copies of the Software, and to
// permit persons to whom the Software is furnished to do so, subject to
// the following conditions:
//
// The above copyright notice and this permission notice shall be
// included in all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND,
// EXPRESS OR IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF
// MERCHANTABILITY, FITNESS FOR A PARTICULAR PURPOSE AND
// NONINFRINGEMENT. IN NO EVENT SHALL THE AUTHORS OR COPYRIGHT HOLDERS BE
// LIABLE FOR ANY CLAIM, DAMAGES OR OTHER LIABILITY, WHETHER IN AN ACTION
// OF CONTRACT, TORT OR OTHERWISE, ARISING FROM, OUT OF OR IN CONNECTION
// WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE SOFTWARE.

// Package encryption encrypts attribute values at rest with AES-GCM. Keys
// are derived from a passphrase with PBKDF2.
package encryption

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"io"

	"github.com/pkg/errors"
	"golang.org/x/crypto/pbkdf2"
)

// Iterations is the PBKDF2 work factor used by NewAESCipher.
const Iterations = 10000

const keyLen = 32

var (
	ErrInvalidKey        = errors.New("encryption: key must be 16, 24 or 32 bytes long")
	ErrInvalidCiphertext = errors.New("encryption: malformed ciphertext")
)

// Cipher encrypts and decrypts attribute values.
type Cipher interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(ciphertext string) (string, error)
}

// AESCipher seals values with AES-GCM. Ciphertexts are the base64 encoding
// of the random nonce followed by the sealed value.
type AESCipher struct {
	aead cipher.AEAD
	rand io.Reader
}

// NewAESCipher derives an AES-256 key from passphrase and salt.
func NewAESCipher(passphrase, salt []byte) (*AESCipher, error) {
	return NewAESCipherFromKey(pbkdf2.Key(passphrase, salt, Iterations, keyLen, sha256.New))
}

// NewAESCipherFromKey uses key as is.
func NewAESCipherFromKey(key []byte) (*AESCipher, error) {
	switch len(key) {
	case 16, 24, 32:
	default:
		return nil, ErrInvalidKey
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, errors.Wrap(err, "encryption")
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, errors.Wrap(err, "encryption")
	}

	return &AESCipher{aead: aead, rand: rand.Reader}, nil
}

func (c *AESCipher) Encrypt(plaintext string) (string, error) {
	nonce := make([]byte, c.aead.NonceSize(), c.aead.NonceSize()+len(plaintext)+c.aead.Overhead())
	if _, err := io.ReadFull(c.rand, nonce); err != nil {
		return "", errors.Wrap(err, "encryption: reading nonce")
	}
	sealed := c.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

func (c *AESCipher) Decrypt(ciphertext string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", errors.Wrap(ErrInvalidCiphertext, err.Error())
	}
	n := c.aead.NonceSize()
	if len(raw) < n+c.aead.Overhead() {
		return "", ErrInvalidCiphertext
	}
	plain, err := c.aead.Open(nil, raw[:n], raw[n:], nil)
	if err != nil {
		return "", errors.Wrap(ErrInvalidCiphertext, err.Error())
	}
	return string(plain), nil
}

var _ Cipher = (*AESCipher)(nil)
