package digest

import (
	"crypto/sha256"
	"fmt"
	"sort"

	"github.com/ethereum/go-ethereum/crypto"
	"lukechampine.com/blake3"
)

// Func represents a hash strategy that maps data onto a Digest.
type Func func(data ...[]byte) Digest

// Set of strategy names that can be looked up by Strategy.
const (
	StrategySHA256d   = "sha256d"
	StrategySHA256    = "sha256"
	StrategyBLAKE3    = "blake3"
	StrategyKeccak256 = "keccak256"
)

var strategies = map[string]Func{
	StrategySHA256d:   Hash,
	StrategySHA256:    SHA256,
	StrategyBLAKE3:    BLAKE3,
	StrategyKeccak256: Keccak256,
}

// Strategy returns the hash function registered under the specified name.
func Strategy(name string) (Func, error) {
	fn, exists := strategies[name]
	if !exists {
		return nil, fmt.Errorf("hash strategy %q does not exist", name)
	}

	return fn, nil
}

// Strategies returns the sorted names of the supported hash strategies.
func Strategies() []string {
	names := make([]string, 0, len(strategies))
	for name := range strategies {
		names = append(names, name)
	}
	sort.Strings(names)

	return names
}

// SHA256 computes a single sha256 digest of the concatenated data.
func SHA256(data ...[]byte) Digest {
	h := sha256.New()
	for _, d := range data {
		h.Write(d)
	}

	var out Digest
	copy(out[:], h.Sum(nil))
	return out
}

// BLAKE3 computes a 32 byte blake3 digest of the concatenated data.
func BLAKE3(data ...[]byte) Digest {
	h := blake3.New(Size, nil)
	for _, d := range data {
		h.Write(d)
	}

	var out Digest
	copy(out[:], h.Sum(nil))
	return out
}

// Keccak256 computes the Ethereum keccak256 digest of the concatenated data.
func Keccak256(data ...[]byte) Digest {
	var out Digest
	copy(out[:], crypto.Keccak256(data...))
	return out
}
