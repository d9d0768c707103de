// Package pos implements the proof of stake consensus rule. A validator is
// chosen for each block by a deterministic, stake weighted draw seeded by
// the digest of the previous block.
package pos

import (
	"errors"
	"fmt"
	"math"
	"math/big"
	"sort"

	"github.com/ardanlabs/ledger/foundation/blockchain/database"
	"github.com/ardanlabs/ledger/foundation/blockchain/digest"
)

// Set of errors returned by validator selection.
var (
	ErrEmptyStakeTable   = errors.New("stake table is empty")
	ErrInvalidWeight     = errors.New("invalid stake weight")
	ErrValidatorMismatch = errors.New("validator does not match selection")
)

// =============================================================================

// StakeTable maps a validator id to its stake weight.
type StakeTable map[string]int64

// Copy returns a table that shares no memory with the original.
func (st StakeTable) Copy() StakeTable {
	cp := make(StakeTable, len(st))
	for id, weight := range st {
		cp[id] = weight
	}

	return cp
}

// IDs returns the validator ids in ascending byte order.
func (st StakeTable) IDs() []string {
	ids := make([]string, 0, len(st))
	for id := range st {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	return ids
}

// Total returns the sum of all weights after checking each weight is usable.
func (st StakeTable) Total() (uint64, error) {
	if len(st) == 0 {
		return 0, ErrEmptyStakeTable
	}

	var total uint64
	for _, id := range st.IDs() {
		weight := st[id]
		if weight < 0 {
			return 0, fmt.Errorf("%w: validator %q has weight %d", ErrInvalidWeight, id, weight)
		}

		if uint64(weight) > math.MaxUint64-total {
			return 0, fmt.Errorf("%w: total weight overflows", ErrInvalidWeight)
		}
		total += uint64(weight)
	}

	if total == 0 {
		return 0, fmt.Errorf("%w: all weights are zero", ErrInvalidWeight)
	}

	return total, nil
}

// =============================================================================

// SelectValidator chooses the validator for the specified seed. The seed is
// read as a big-endian integer and reduced modulo the total stake to find a
// point. Walking the ids in ascending order, the validator whose cumulative
// interval [start, start+weight) holds the point is selected.
func SelectValidator(stakes StakeTable, seed digest.Digest) (string, error) {
	total, err := stakes.Total()
	if err != nil {
		return "", err
	}

	n := new(big.Int).SetBytes(seed[:])
	point := n.Mod(n, new(big.Int).SetUint64(total)).Uint64()

	var start uint64
	for _, id := range stakes.IDs() {
		weight := uint64(stakes[id])
		if point < start+weight {
			return id, nil
		}
		start += weight
	}

	// The point is always below the total so the loop returns.
	panic("pos: select: point outside of the stake intervals")
}

// Seed returns the selection seed for a block with the specified parent.
// A genesis block is seeded with the zero digest.
func Seed(prev database.PrevHash) digest.Digest {
	if !prev.Valid {
		return digest.Zero
	}

	return prev.Digest
}

// Check validates the header records the validator the stake table selects
// for its parent.
func Check(header database.BlockHeader, stakes StakeTable, prev database.PrevHash) error {
	expected, err := SelectValidator(stakes, Seed(prev))
	if err != nil {
		return err
	}

	if header.Validator != expected {
		return fmt.Errorf("%w: got %q, exp %q", ErrValidatorMismatch, header.Validator, expected)
	}

	return nil
}

// Verify reports whether the header records the validator the stake table
// selects for its parent. The header must be a consistent proof of stake
// header.
func Verify(header database.BlockHeader, stakes StakeTable, prev database.PrevHash) bool {
	if header.Kind != database.PoS || header.Consistent() != nil {
		return false
	}

	return Check(header, stakes, prev) == nil
}

// Produce stamps the header as a proof of stake header for the selected
// validator.
func Produce(header database.BlockHeader, stakes StakeTable) (database.BlockHeader, error) {
	validator, err := SelectValidator(stakes, Seed(header.Previous))
	if err != nil {
		return database.BlockHeader{}, err
	}

	header.Kind = database.PoS
	header.Nonce = 0
	header.Validator = validator

	return header, nil
}
