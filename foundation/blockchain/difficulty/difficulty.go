// Package difficulty implements the proof of work target using the compact
// "bits" encoding made popular by Bitcoin. The high byte is an exponent in
// bytes and the low three bytes are the mantissa, so the threshold is
// mantissa * 256^(exponent-3). Bit 0x00800000 is the sign of the mantissa.
package difficulty

import (
	"errors"
	"fmt"
	"math/big"
	"strconv"

	"github.com/ardanlabs/ledger/foundation/blockchain/digest"
)

// ErrInvalidTarget is returned when a target can never be satisfied.
var ErrInvalidTarget = errors.New("invalid difficulty target")

// MaxLeadingZeroBits is the largest number of leading zero bits a target
// can require of a digest.
const MaxLeadingZeroBits = digest.Size * 8

// Target represents the acceptance threshold for a block hash.
type Target uint32

// FromBig converts a threshold into its compact representation. Precision
// beyond the three byte mantissa is truncated.
func FromBig(n *big.Int) Target {
	if n.Sign() == 0 {
		return 0
	}

	var mantissa uint32
	exponent := uint(len(n.Bytes()))
	if exponent <= 3 {
		mantissa = uint32(n.Bits()[0])
		mantissa <<= 8 * (3 - exponent)
	} else {
		tn := new(big.Int).Set(n)
		mantissa = uint32(tn.Rsh(tn, 8*(exponent-3)).Bits()[0])
	}

	// When the mantissa already has the sign bit set, the number is too
	// large to fit into the available 23 bits, so divide the number by 256
	// and increment the exponent accordingly.
	if mantissa&0x00800000 != 0 {
		mantissa >>= 8
		exponent++
	}

	compact := uint32(exponent<<24) | mantissa
	if n.Sign() < 0 {
		compact |= 0x00800000
	}

	return Target(compact)
}

// FromLeadingZeroBits returns the target that is satisfied by any digest
// with at least the specified number of leading zero bits.
func FromLeadingZeroBits(bits uint) (Target, error) {
	if bits > MaxLeadingZeroBits {
		return 0, fmt.Errorf("%w: %d leading zero bits exceeds %d", ErrInvalidTarget, bits, MaxLeadingZeroBits)
	}

	n := new(big.Int).Lsh(big.NewInt(1), MaxLeadingZeroBits-bits)
	return FromBig(n), nil
}

// Big expands the compact representation into the full threshold.
func (t Target) Big() *big.Int {
	compact := uint32(t)

	mantissa := compact & 0x007fffff
	isNegative := compact&0x00800000 != 0
	exponent := uint(compact >> 24)

	var bn *big.Int
	if exponent <= 3 {
		mantissa >>= 8 * (3 - exponent)
		bn = big.NewInt(int64(mantissa))
	} else {
		bn = big.NewInt(int64(mantissa))
		bn.Lsh(bn, 8*(exponent-3))
	}

	if isNegative {
		bn = bn.Neg(bn)
	}

	return bn
}

// Validate checks the target can be satisfied by at least one digest.
func (t Target) Validate() error {
	if t.Big().Sign() <= 0 {
		return fmt.Errorf("%w: bits %s has no positive threshold", ErrInvalidTarget, t)
	}

	return nil
}

// Satisfied reports whether the digest, read as a big-endian integer, is
// strictly below the threshold.
func (t Target) Satisfied(d digest.Digest) bool {
	threshold := t.Big()
	if threshold.Sign() <= 0 {
		return false
	}

	hash := new(big.Int).SetBytes(d[:])
	return hash.Cmp(threshold) < 0
}

// Cmp compares the thresholds of two targets, returning -1 when t is harder
// than other, 0 when equal, and +1 when t is easier.
func (t Target) Cmp(other Target) int {
	return t.Big().Cmp(other.Big())
}

// Easier reports whether t accepts strictly more digests than other.
func (t Target) Easier(other Target) bool {
	return t.Cmp(other) > 0
}

// Harder reports whether t accepts strictly fewer digests than other.
func (t Target) Harder(other Target) bool {
	return t.Cmp(other) < 0
}

// String returns the target bits in hex.
func (t Target) String() string {
	return fmt.Sprintf("0x%08x", uint32(t))
}

// Parse converts bits written in decimal or 0x prefixed hex into a Target.
func Parse(s string) (Target, error) {
	n, err := strconv.ParseUint(s, 0, 32)
	if err != nil {
		return 0, fmt.Errorf("%w: parsing bits %q: %w", ErrInvalidTarget, s, err)
	}

	return Target(n), nil
}
