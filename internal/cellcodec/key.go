package cellcodec

import (
	"crypto/sha256"
	"errors"
	"fmt"

	"github.com/awnumar/memguard"
	"golang.org/x/crypto/argon2"
)

// KeySize is the size in bytes of a derived cell key.
const KeySize = 32

// saltDomain separates cell-key salts from any other use of the grid id.
const saltDomain = "guildgrid.cell.v1"

// ErrEmptyPassphrase is returned when deriving a key from "".
var ErrEmptyPassphrase = errors.New("passphrase must not be empty")

// KDFParams are the Argon2id cost parameters.
type KDFParams struct {
	Time      uint32 `json:"time"`
	MemoryKiB uint32 `json:"memory_kib"`
	Threads   uint8  `json:"threads"`
}

// DefaultKDFParams follow the OWASP Argon2id baseline.
var DefaultKDFParams = KDFParams{Time: 2, MemoryKiB: 19 * 1024, Threads: 1}

// Key is a derived cell key in guarded memory.
// A nil *Key means "no passphrase": every operation passes text through.
type Key struct {
	buf *memguard.LockedBuffer
}

// DeriveKey derives the cell key for one grid from a passphrase.
// The returned Key must be destroyed by the caller.
func DeriveKey(passphrase, gridID string, params KDFParams) (*Key, error) {
	if passphrase == "" {
		return nil, ErrEmptyPassphrase
	}
	if params.Time == 0 || params.Threads == 0 || params.MemoryKiB < 8*uint32(params.Threads) {
		return nil, fmt.Errorf("invalid kdf params: %+v", params)
	}

	salt := sha256.Sum256([]byte(saltDomain + "\x00" + gridID))
	derived := argon2.IDKey([]byte(passphrase), salt[:], params.Time, params.MemoryKiB, params.Threads, KeySize)

	// NewBufferFromBytes copies into locked memory and wipes derived.
	return &Key{buf: memguard.NewBufferFromBytes(derived)}, nil
}

// Destroy wipes and releases the key. Safe on nil and idempotent.
func (k *Key) Destroy() {
	if k == nil || k.buf == nil {
		return
	}
	k.buf.Destroy()
}

// Alive reports whether the key can still be used.
func (k *Key) Alive() bool {
	return k != nil && k.buf != nil && k.buf.IsAlive()
}

func (k *Key) bytes() ([]byte, error) {
	if !k.Alive() {
		return nil, errors.New("key has been destroyed")
	}
	return k.buf.Bytes(), nil
}
