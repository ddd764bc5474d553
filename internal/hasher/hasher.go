// Package hasher provides the xxHash64 digests used for content-addressed
// output names and settings cache keys.
package hasher

import (
	"encoding/binary"
	"encoding/hex"
	"io"
	"math"

	"github.com/cespare/xxhash/v2"
)

// ContentHash computes the xxHash64 of data and returns a hex string
// truncated to the given length. For content-addressed filenames we
// use 16 hex chars (64 bits), which is collision-safe for practical
// asset counts.
func ContentHash(data []byte, hexLen int) string {
	return truncHex(xxhash.Sum64(data), hexLen)
}

// ContentHashReader computes xxHash64 from a reader, streaming.
func ContentHashReader(r io.Reader, hexLen int) (string, error) {
	h := xxhash.New()
	if _, err := io.Copy(h, r); err != nil {
		return "", err
	}
	return truncHex(h.Sum64(), hexLen), nil
}

func truncHex(sum uint64, hexLen int) string {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], sum)
	full := hex.EncodeToString(b[:])
	if hexLen > 0 && hexLen < len(full) {
		return full[:hexLen]
	}
	return full
}

// Fingerprint accumulates typed fields into an xxHash64 digest. Every field
// is written with a fixed width or a length prefix, so distinct field
// sequences cannot collide by concatenation.
type Fingerprint struct {
	d   *xxhash.Digest
	buf [8]byte
}

// NewFingerprint starts an empty fingerprint.
func NewFingerprint() *Fingerprint {
	return &Fingerprint{d: xxhash.New()}
}

// Int writes a signed integer.
func (f *Fingerprint) Int(v int64) *Fingerprint {
	binary.LittleEndian.PutUint64(f.buf[:], uint64(v))
	f.d.Write(f.buf[:])
	return f
}

// Float writes the IEEE-754 bits of v.
func (f *Fingerprint) Float(v float64) *Fingerprint {
	return f.Int(int64(math.Float64bits(v)))
}

// Bool writes a boolean.
func (f *Fingerprint) Bool(v bool) *Fingerprint {
	if v {
		return f.Int(1)
	}
	return f.Int(0)
}

// String writes a length-prefixed string.
func (f *Fingerprint) String(s string) *Fingerprint {
	f.Int(int64(len(s)))
	f.d.WriteString(s)
	return f
}

// Sum64 returns the digest.
func (f *Fingerprint) Sum64() uint64 {
	return f.d.Sum64()
}

const base32Alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ234567"

// Key returns the first 40 bits of the digest as 8 RFC 4648 base32
// characters, short enough for file and URL names.
func (f *Fingerprint) Key() string {
	sum := f.Sum64() >> 24
	var out [8]byte
	for i := 7; i >= 0; i-- {
		out[i] = base32Alphabet[sum&0x1f]
		sum >>= 5
	}
	return string(out[:])
}
