// Package cellcodec encodes and decodes cell text under an optional
// passphrase.
//
// Without a key, text passes through unchanged. With a key, text is sealed
// with XChaCha20-Poly1305 and stored as base64 of
//
//	[Version: 1 byte] [Nonce: 24 bytes] [Ciphertext+Tag: N+16 bytes]
//
// The key is derived from the passphrase with Argon2id, salted by the grid
// id, and held in a memguard LockedBuffer for the life of the session. The
// passphrase itself is never stored or transmitted.
//
// Decode never fails: a wrong passphrase yields the stored value unchanged,
// which the UI renders as-is. Open is the explicit variant that reports
// ErrDecodeFailure instead.
package cellcodec
