// Package digest provides the 32 byte hash value used to link blocks and
// summarize transactions, along with the hash strategies the ledger supports.
package digest

import (
	"bytes"
	"crypto/sha256"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Size is the number of bytes in a Digest.
const Size = 32

// ErrInvalidLength is returned when decoding a value that is not Size bytes.
var ErrInvalidLength = errors.New("digest must be 32 bytes")

// Digest represents the output of the ledger hash function.
type Digest [Size]byte

// Zero represents a digest of all zeros.
var Zero Digest

// Hash computes the double sha256 digest of the concatenated data. This is
// the hash used for block headers, merkle nodes and leaf payloads.
func Hash(data ...[]byte) Digest {
	h := sha256.New()
	for _, d := range data {
		h.Write(d)
	}

	first := h.Sum(nil)
	return sha256.Sum256(first)
}

// FromBytes copies a 32 byte slice into a Digest.
func FromBytes(b []byte) (Digest, error) {
	if len(b) != Size {
		return Zero, fmt.Errorf("%w: got %d", ErrInvalidLength, len(b))
	}

	var d Digest
	copy(d[:], b)
	return d, nil
}

// FromHex decodes a 0x prefixed hex string into a Digest.
func FromHex(s string) (Digest, error) {
	b, err := hexutil.Decode(s)
	if err != nil {
		return Zero, fmt.Errorf("decoding digest %q: %w", s, err)
	}

	return FromBytes(b)
}

// Bytes returns a copy of the digest as a slice.
func (d Digest) Bytes() []byte {
	b := make([]byte, Size)
	copy(b, d[:])
	return b
}

// String returns the 0x prefixed hex encoding of the digest.
func (d Digest) String() string {
	return hexutil.Encode(d[:])
}

// IsZero reports whether every byte of the digest is zero.
func (d Digest) IsZero() bool {
	return d == Zero
}

// Compare orders two digests byte-wise, returning -1, 0 or +1.
func (d Digest) Compare(other Digest) int {
	return bytes.Compare(d[:], other[:])
}

// Less reports whether d orders before other.
func (d Digest) Less(other Digest) bool {
	return d.Compare(other) < 0
}

// MarshalText implements the encoding.TextMarshaler interface.
func (d Digest) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements the encoding.TextUnmarshaler interface.
func (d *Digest) UnmarshalText(text []byte) error {
	v, err := FromHex(string(text))
	if err != nil {
		return err
	}

	*d = v
	return nil
}
