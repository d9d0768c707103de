// Copyright 2017 Cameron Bergoon
// https://github.com/cbergoon/merkletree
// Licensed under the MIT License, see LICENCE file for details.
// This code has been cleaned up, refactored, and turned into generics.

// Package merkle provides an implementation of a merkle tree for validation
// support for the blockchain. The tree is stored as flat levels of digests
// instead of linked nodes.
//
// Leaves are the hash of each value's bytes in input order. Each parent is
// the hash of the concatenation of its left and right children. When a level
// has an odd number of nodes, the last node is paired with itself. The root
// of an empty tree is the hash of an empty byte string.
package merkle

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/ardanlabs/ledger/foundation/blockchain/digest"
)

// EmptyRoot is the root of a tree constructed with no values using the
// default hash strategy.
var EmptyRoot = digest.Hash()

// ErrIndexOutOfRange is returned when a proof is requested for a leaf that
// does not exist.
var ErrIndexOutOfRange = errors.New("leaf index out of range")

// Hashable represents the behavior concrete data must exhibit to be used in
// the merkle tree.
type Hashable interface {
	Bytes() []byte
}

// Position identifies which side of the concatenation a proof hash sits on.
type Position uint8

// Set of positions for a proof step.
const (
	Left Position = iota
	Right
)

// String implements the fmt.Stringer interface.
func (p Position) String() string {
	if p == Left {
		return "left"
	}
	return "right"
}

// MarshalText implements the encoding.TextMarshaler interface.
func (p Position) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// ProofStep is a sibling hash along the path from a leaf to the root.
type ProofStep struct {
	Hash     digest.Digest `json:"hash"`
	Position Position      `json:"position"`
}

// =============================================================================

// Root computes the merkle root of the values using the default hash strategy.
func Root[T Hashable](values []T) digest.Digest {
	return root(leafs(values, digest.Hash), digest.Hash)
}

// =============================================================================

// Tree represents a merkle tree that uses data of some type T that exhibits the
// behavior defined by the Hashable constraint.
type Tree[T Hashable] struct {
	Levels       [][]digest.Digest
	values       []T
	hashStrategy digest.Func
}

// WithHashStrategy is used to change the default hash strategy of using double
// sha256 when constructing a new tree.
func WithHashStrategy[T Hashable](hashStrategy digest.Func) func(t *Tree[T]) {
	return func(t *Tree[T]) {
		t.hashStrategy = hashStrategy
	}
}

// NewTree constructs a new merkle tree that uses data of some type T that
// exhibits the behavior defined by the Hashable interface.
func NewTree[T Hashable](values []T, options ...func(t *Tree[T])) *Tree[T] {
	t := Tree[T]{
		hashStrategy: digest.Hash,
	}

	for _, option := range options {
		option(&t)
	}

	t.Generate(values)

	return &t
}

// Generate constructs the levels of the tree from the specified data. If the
// tree has been generated previously, the tree is re-generated from scratch.
func (t *Tree[T]) Generate(values []T) {
	t.values = make([]T, len(values))
	copy(t.values, values)

	t.Levels = levels(leafs(values, t.hashStrategy), t.hashStrategy)
}

// MerkleRoot returns the root digest of the tree.
func (t *Tree[T]) MerkleRoot() digest.Digest {
	if len(t.values) == 0 {
		return t.hashStrategy()
	}

	top := t.Levels[len(t.Levels)-1]
	return top[0]
}

// RootHex converts the merkle root byte hash to a hex encoded string.
func (t *Tree[T]) RootHex() string {
	return t.MerkleRoot().String()
}

// Values returns a copy of the values stored in the tree.
func (t *Tree[T]) Values() []T {
	values := make([]T, len(t.values))
	copy(values, t.values)
	return values
}

// Verify recomputes every level from the values and checks the result
// matches the levels currently held by the tree.
func (t *Tree[T]) Verify() error {
	calculated := levels(leafs(t.values, t.hashStrategy), t.hashStrategy)

	if len(calculated) != len(t.Levels) {
		return fmt.Errorf("tree has %d levels, expected %d", len(t.Levels), len(calculated))
	}

	for lvl := range calculated {
		if len(calculated[lvl]) != len(t.Levels[lvl]) {
			return fmt.Errorf("level %d has %d nodes, expected %d", lvl, len(t.Levels[lvl]), len(calculated[lvl]))
		}

		for i := range calculated[lvl] {
			if calculated[lvl][i] != t.Levels[lvl][i] {
				return fmt.Errorf("node %d at level %d does not match its children", i, lvl)
			}
		}
	}

	return nil
}

// Proof returns the set of hashes and the side of the concatenation for each
// hash required to prove the value at the index is in the tree. This is how
// you can use the information returned by this function.
//
// Hash the data in question and know the merkle tree root hash.
//
//	hash = leaf hash of the data
//
// For each step in the proof, hash the step against the running hash.
//
//	Left:  hash = H(step.Hash || hash)
//	Right: hash = H(hash || step.Hash)
//
// The calculated hash should match the merkle root.
func (t *Tree[T]) Proof(index int) ([]ProofStep, error) {
	if index < 0 || index >= len(t.values) {
		return nil, fmt.Errorf("%w: index %d, leafs %d", ErrIndexOutOfRange, index, len(t.values))
	}

	var proof []ProofStep
	for _, level := range t.Levels[:len(t.Levels)-1] {
		sibling := index ^ 1
		if sibling >= len(level) {
			sibling = index
		}

		pos := Right
		if sibling < index {
			pos = Left
		}

		proof = append(proof, ProofStep{Hash: level[sibling], Position: pos})
		index /= 2
	}

	return proof, nil
}

// ProofOf locates the first leaf holding the same bytes as the value and
// returns its index and proof.
func (t *Tree[T]) ProofOf(value T) (int, []ProofStep, error) {
	data := value.Bytes()
	for i, v := range t.values {
		if !bytes.Equal(v.Bytes(), data) {
			continue
		}

		proof, err := t.Proof(i)
		return i, proof, err
	}

	return -1, nil, errors.New("unable to find data in tree")
}

// VerifyData indicates whether a given piece of data is in the tree and if the
// hashes along its path reproduce the merkle root.
func (t *Tree[T]) VerifyData(value T) error {
	_, proof, err := t.ProofOf(value)
	if err != nil {
		return err
	}

	if !VerifyProof(t.MerkleRoot(), t.hashStrategy(value.Bytes()), proof, t.hashStrategy) {
		return errors.New("merkle root is not equivalent to the merkle root calculated on the critical path")
	}

	return nil
}

// String returns a string representation of the tree. Only leaf nodes are
// included in the output.
func (t *Tree[T]) String() string {
	var b strings.Builder

	if len(t.values) > 0 {
		for i, leaf := range t.Levels[0] {
			fmt.Fprintf(&b, "%d %s %x\n", i, leaf, t.values[i].Bytes())
		}
	}

	return b.String()
}

// MarshalText implements the TextMarshaler interface and produces a panic
// if anyone tries to marshal the Merkle tree. I don't want this to happen.
// Use the Values function to return a slice that can be marshaled.
func (t *Tree[T]) MarshalText() (text []byte, err error) {
	panic("do not marshal the merkle tree, use Values")
}

// =============================================================================

// VerifyProof walks the proof from the leaf hash and reports whether the
// result matches the root. A nil strategy uses the default hash.
func VerifyProof(root digest.Digest, leaf digest.Digest, proof []ProofStep, hashStrategy digest.Func) bool {
	if hashStrategy == nil {
		hashStrategy = digest.Hash
	}

	hash := leaf
	for _, step := range proof {
		switch step.Position {
		case Left:
			hash = hashStrategy(step.Hash[:], hash[:])
		default:
			hash = hashStrategy(hash[:], step.Hash[:])
		}
	}

	return hash == root
}

// =============================================================================

// leafs hashes each value's bytes, preserving input order.
func leafs[T Hashable](values []T, hashStrategy digest.Func) []digest.Digest {
	leafs := make([]digest.Digest, len(values))
	for i, value := range values {
		leafs[i] = hashStrategy(value.Bytes())
	}

	return leafs
}

// levels builds every level of the tree starting with the leafs. The last
// level always holds a single digest unless there are no leafs.
func levels(leafs []digest.Digest, hashStrategy digest.Func) [][]digest.Digest {
	if len(leafs) == 0 {
		return [][]digest.Digest{{hashStrategy()}}
	}

	lvls := [][]digest.Digest{leafs}
	for level := leafs; len(level) > 1; {
		level = parents(level, hashStrategy)
		lvls = append(lvls, level)
	}

	return lvls
}

// parents pairs adjacent nodes left to right and hashes each pair. An odd
// node at the end of the level is paired with itself.
func parents(level []digest.Digest, hashStrategy digest.Func) []digest.Digest {
	next := make([]digest.Digest, 0, (len(level)+1)/2)

	for i := 0; i < len(level); i += 2 {
		left, right := i, i+1
		if right == len(level) {
			right = i
		}

		next = append(next, hashStrategy(level[left][:], level[right][:]))
	}

	return next
}

// root reduces the leafs down to the single root digest.
func root(leafs []digest.Digest, hashStrategy digest.Func) digest.Digest {
	if len(leafs) == 0 {
		return hashStrategy()
	}

	level := leafs
	for len(level) > 1 {
		level = parents(level, hashStrategy)
	}

	return level[0]
}
