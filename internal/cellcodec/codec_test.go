package cellcodec

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fastParams keeps Argon2id cheap in tests.
var fastParams = KDFParams{Time: 1, MemoryKiB: 64, Threads: 1}

func newTestKey(t *testing.T, passphrase, gridID string) *Key {
	t.Helper()
	k, err := DeriveKey(passphrase, gridID, fastParams)
	require.NoError(t, err)
	t.Cleanup(k.Destroy)
	return k
}

func TestEncodeDecode_NoPassphrase(t *testing.T) {
	for _, text := range []string{"", "hello", "42", "ünïcødé", "  spaced  "} {
		stored, err := Encode(text, nil)
		require.NoError(t, err)
		assert.Equal(t, text, stored, "no key must pass text through")
		assert.Equal(t, text, Decode(stored, nil))
	}
}

func TestEncodeDecode_WithPassphrase(t *testing.T) {
	key := newTestKey(t, "pw", "grid-1")

	for _, text := range []string{"hello", "42", "ünïcødé", "a longer value with, punctuation!"} {
		stored, err := Encode(text, key)
		require.NoError(t, err)
		assert.NotEqual(t, text, stored, "ciphertext must not leak plaintext")
		assert.Equal(t, text, Decode(stored, key))
	}
}

func TestEncode_EmptyIsEmpty(t *testing.T) {
	key := newTestKey(t, "pw", "grid-1")

	stored, err := Encode("", key)
	require.NoError(t, err)
	assert.Equal(t, "", stored)
	assert.Equal(t, "", Decode("", key))
}

func TestEncode_FreshNonce(t *testing.T) {
	key := newTestKey(t, "pw", "grid-1")

	a, err := Encode("same", key)
	require.NoError(t, err)
	b, err := Encode("same", key)
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}

func TestDecode_WrongPassphraseReturnsStored(t *testing.T) {
	right := newTestKey(t, "right", "grid-1")
	wrong := newTestKey(t, "wrong", "grid-1")

	stored, err := Encode("secret", right)
	require.NoError(t, err)

	assert.Equal(t, stored, Decode(stored, wrong))

	_, err = Open(stored, wrong)
	assert.ErrorIs(t, err, ErrDecodeFailure)
}

func TestDecode_KeyBoundToGrid(t *testing.T) {
	a := newTestKey(t, "pw", "grid-a")
	b := newTestKey(t, "pw", "grid-b")

	stored, err := Encode("x", a)
	require.NoError(t, err)

	_, err = Open(stored, b)
	assert.ErrorIs(t, err, ErrDecodeFailure)
}

func TestOpen_PlaintextUnderKey(t *testing.T) {
	key := newTestKey(t, "pw", "grid-1")

	// A plaintext record left over from before the grid was protected.
	assert.Equal(t, "legacy", Decode("legacy", key))
	_, err := Open("legacy", key)
	assert.ErrorIs(t, err, ErrDecodeFailure)
}

func TestOpen_Tampered(t *testing.T) {
	key := newTestKey(t, "pw", "grid-1")

	stored, err := Encode("value", key)
	require.NoError(t, err)
	blob, err := base64.StdEncoding.DecodeString(stored)
	require.NoError(t, err)

	blob[len(blob)-1] ^= 0xff
	_, err = Open(base64.StdEncoding.EncodeToString(blob), key)
	assert.ErrorIs(t, err, ErrDecodeFailure)

	blob[len(blob)-1] ^= 0xff
	blob[0] = 0x09
	_, err = Open(base64.StdEncoding.EncodeToString(blob), key)
	assert.ErrorIs(t, err, ErrDecodeFailure)
}

func TestDeriveKey_Validation(t *testing.T) {
	_, err := DeriveKey("", "grid-1", fastParams)
	assert.ErrorIs(t, err, ErrEmptyPassphrase)

	_, err = DeriveKey("pw", "grid-1", KDFParams{Time: 0, MemoryKiB: 64, Threads: 1})
	assert.Error(t, err)

	_, err = DeriveKey("pw", "grid-1", KDFParams{Time: 1, MemoryKiB: 4, Threads: 1})
	assert.Error(t, err)
}

func TestKey_Destroy(t *testing.T) {
	k, err := DeriveKey("pw", "grid-1", fastParams)
	require.NoError(t, err)
	require.True(t, k.Alive())

	k.Destroy()
	k.Destroy()
	assert.False(t, k.Alive())

	_, err = Encode("x", k)
	assert.Error(t, err)

	var nilKey *Key
	nilKey.Destroy()
	assert.False(t, nilKey.Alive())
}
