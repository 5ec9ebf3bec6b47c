package cellcodec

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"unicode/utf8"

	"golang.org/x/crypto/chacha20poly1305"
)

// Version is the leading byte of every sealed value, authenticated as AAD.
const Version byte = 0x01

// Overhead is the raw byte overhead per sealed value before base64.
const Overhead = 1 + chacha20poly1305.NonceSizeX + chacha20poly1305.Overhead

// ErrDecodeFailure is returned by Open when a stored value cannot be
// decrypted under the given key.
var ErrDecodeFailure = errors.New("cell value could not be decoded")

// Encode returns the stored form of plaintext.
//
// Empty text encodes to "" regardless of key; callers clear a cell with a
// delete rather than storing "". A nil key returns plaintext unchanged.
// Each call draws a fresh nonce, so equal inputs encode differently.
func Encode(plaintext string, key *Key) (string, error) {
	if plaintext == "" {
		return "", nil
	}
	if key == nil {
		return plaintext, nil
	}

	raw, err := key.bytes()
	if err != nil {
		return "", fmt.Errorf("encode: %w", err)
	}
	aead, err := chacha20poly1305.NewX(raw)
	if err != nil {
		return "", fmt.Errorf("encode: creating XChaCha20-Poly1305 cipher: %w", err)
	}

	var nonce [chacha20poly1305.NonceSizeX]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return "", fmt.Errorf("encode: generating nonce: %w", err)
	}

	out := make([]byte, 1+len(nonce), 1+len(nonce)+len(plaintext)+aead.Overhead())
	out[0] = Version
	copy(out[1:], nonce[:])
	out = aead.Seal(out, nonce[:], []byte(plaintext), []byte{Version})

	return base64.StdEncoding.EncodeToString(out), nil
}

// Decode returns the text for a stored value.
//
// A nil key returns stored unchanged. Empty input decodes to "". Any
// decryption failure, including a wrong passphrase, returns stored
// unchanged rather than an error.
func Decode(stored string, key *Key) string {
	text, err := Open(stored, key)
	if err != nil {
		return stored
	}
	return text
}

// Open is Decode with explicit failure reporting.
func Open(stored string, key *Key) (string, error) {
	if stored == "" {
		return "", nil
	}
	if key == nil {
		return stored, nil
	}

	blob, err := base64.StdEncoding.DecodeString(stored)
	if err != nil {
		return "", fmt.Errorf("%w: not base64: %v", ErrDecodeFailure, err)
	}
	if len(blob) < Overhead {
		return "", fmt.Errorf("%w: value is %d bytes, minimum is %d", ErrDecodeFailure, len(blob), Overhead)
	}
	if blob[0] != Version {
		return "", fmt.Errorf("%w: unsupported version %d", ErrDecodeFailure, blob[0])
	}

	raw, err := key.bytes()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDecodeFailure, err)
	}
	aead, err := chacha20poly1305.NewX(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDecodeFailure, err)
	}

	nonce := blob[1 : 1+chacha20poly1305.NonceSizeX]
	plaintext, err := aead.Open(nil, nonce, blob[1+chacha20poly1305.NonceSizeX:], blob[:1])
	if err != nil {
		return "", fmt.Errorf("%w: wrong passphrase or tampered value", ErrDecodeFailure)
	}
	if !utf8.Valid(plaintext) {
		return "", fmt.Errorf("%w: plaintext is not UTF-8", ErrDecodeFailure)
	}
	return string(plaintext), nil
}
