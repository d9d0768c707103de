// Package chain maintains the ordered sequence of blocks and enforces the
// linkage, merkle and consensus rules every block must satisfy.
package chain

import (
	"errors"
	"fmt"
	"sync"

	"github.com/ardanlabs/ledger/foundation/blockchain/database"
	"github.com/ardanlabs/ledger/foundation/blockchain/difficulty"
	"github.com/ardanlabs/ledger/foundation/blockchain/digest"
	"github.com/ardanlabs/ledger/foundation/blockchain/merkle"
	"github.com/ardanlabs/ledger/foundation/blockchain/pos"
	lru "github.com/hashicorp/golang-lru/v2"
)

// Set of errors returned when a block is rejected.
var (
	ErrInvalidPreviousHash = errors.New("previous hash does not match chain tip")
	ErrInvalidMerkleRoot   = errors.New("merkle root does not match transactions")
	ErrDifficultyNotMet    = errors.New("block hash does not meet difficulty")
	ErrValidatorMismatch   = pos.ErrValidatorMismatch
	ErrEmptyChainQuery     = errors.New("chain is empty")
	ErrBlockNotFound       = errors.New("block not found")
	ErrUnknownConsensus    = errors.New("unknown consensus kind")
)

// cacheSize is the number of header digests remembered between audits.
const cacheSize = 4096

// =============================================================================

// BlockError identifies the block that failed a check and why.
type BlockError struct {
	Index int
	Err   error
}

// Error implements the error interface.
func (be *BlockError) Error() string {
	return fmt.Sprintf("block[%d]: %s", be.Index, be.Err)
}

// Unwrap provides access to the underlying sentinel error.
func (be *BlockError) Unwrap() error {
	return be.Err
}

// =============================================================================

// Report is the result of validating the whole chain.
type Report struct {
	Valid  bool   `json:"valid"`
	Blocks int    `json:"blocks"`
	Index  int    `json:"index"`
	Reason string `json:"reason,omitempty"`
	Err    error  `json:"-"`
}

// =============================================================================

// Config represents the rules a chain admits blocks under.
type Config struct {
	Stakes    pos.StakeTable
	MinTarget difficulty.Target
	EvHandler func(v string, args ...any)
}

// Blockchain manages an append only sequence of validated blocks.
type Blockchain struct {
	mu        sync.RWMutex
	blocks    []database.Block
	stakes    pos.StakeTable
	minTarget difficulty.Target
	evHandler func(v string, args ...any)
	hashes    *lru.Cache[string, digest.Digest]
}

// New constructs an empty chain for the specified rules.
func New(cfg Config) *Blockchain {
	ev := func(v string, args ...any) {}
	if cfg.EvHandler != nil {
		ev = cfg.EvHandler
	}

	// The only error is for a non-positive size.
	hashes, _ := lru.New[string, digest.Digest](cacheSize)

	return &Blockchain{
		stakes:    cfg.Stakes.Copy(),
		minTarget: cfg.MinTarget,
		evHandler: ev,
		hashes:    hashes,
	}
}

// FromBlocks constructs a chain holding the specified blocks without checking
// them. Use Validate to audit a chain received as a whole.
func FromBlocks(cfg Config, blocks []database.Block) *Blockchain {
	bc := New(cfg)

	bc.blocks = make([]database.Block, len(blocks))
	for i, blk := range blocks {
		bc.blocks[i] = blk.Copy()
	}

	return bc
}

// Append validates the block against the current tip and adds it to the
// chain. On failure the chain is left untouched.
func (bc *Blockchain) Append(block database.Block) error {
	bc.mu.Lock()
	defer bc.mu.Unlock()

	index := len(bc.blocks)
	bc.evHandler("chain: Append: validate: blk[%d]: %s", index, block.Header.Kind)

	var prev database.PrevHash
	if index > 0 {
		tip := bc.blocks[index-1].Header
		if err := tip.Consistent(); err != nil {
			return &BlockError{Index: index, Err: fmt.Errorf("%w: tip is malformed: %w", ErrInvalidPreviousHash, err)}
		}
		prev = database.Prev(bc.hash(tip))
	}

	if err := bc.check(index, prev, block); err != nil {
		bc.evHandler("chain: Append: blk[%d]: REJECTED: %s", index, err)
		return err
	}

	bc.blocks = append(bc.blocks, block.Copy())
	bc.evHandler("chain: Append: blk[%d]: ACCEPTED: hash[%s]", index, bc.hash(block.Header))

	return nil
}

// Validate re-checks every block from genesis and reports the first
// failure found.
func (bc *Blockchain) Validate() Report {
	bc.mu.RLock()
	defer bc.mu.RUnlock()

	var prev database.PrevHash
	for i, blk := range bc.blocks {
		if err := bc.check(i, prev, blk); err != nil {
			return Report{
				Valid:  false,
				Blocks: len(bc.blocks),
				Index:  i,
				Reason: err.Error(),
				Err:    err,
			}
		}

		prev = database.Prev(bc.hash(blk.Header))
	}

	return Report{Valid: true, Blocks: len(bc.blocks), Index: -1}
}

// IsValid reports whether every block in the chain satisfies the rules.
func (bc *Blockchain) IsValid() bool {
	return bc.Validate().Valid
}

// =============================================================================

// Len returns the number of blocks in the chain.
func (bc *Blockchain) Len() int {
	bc.mu.RLock()
	defer bc.mu.RUnlock()

	return len(bc.blocks)
}

// Blocks returns a copy of every block in the chain.
func (bc *Blockchain) Blocks() []database.Block {
	bc.mu.RLock()
	defer bc.mu.RUnlock()

	blocks := make([]database.Block, len(bc.blocks))
	for i, blk := range bc.blocks {
		blocks[i] = blk.Copy()
	}

	return blocks
}

// Block returns a copy of the block at the specified index.
func (bc *Blockchain) Block(index int) (database.Block, error) {
	bc.mu.RLock()
	defer bc.mu.RUnlock()

	if index < 0 || index >= len(bc.blocks) {
		if len(bc.blocks) == 0 {
			return database.Block{}, ErrEmptyChainQuery
		}
		return database.Block{}, fmt.Errorf("%w: index %d, blocks %d", ErrBlockNotFound, index, len(bc.blocks))
	}

	return bc.blocks[index].Copy(), nil
}

// Tip returns a copy of the latest block.
func (bc *Blockchain) Tip() (database.Block, error) {
	bc.mu.RLock()
	defer bc.mu.RUnlock()

	if len(bc.blocks) == 0 {
		return database.Block{}, ErrEmptyChainQuery
	}

	return bc.blocks[len(bc.blocks)-1].Copy(), nil
}

// TipDigest returns the header digest of the latest block.
func (bc *Blockchain) TipDigest() (digest.Digest, error) {
	bc.mu.RLock()
	defer bc.mu.RUnlock()

	if len(bc.blocks) == 0 {
		return digest.Digest{}, ErrEmptyChainQuery
	}

	tip := bc.blocks[len(bc.blocks)-1].Header
	if err := tip.Consistent(); err != nil {
		return digest.Digest{}, fmt.Errorf("tip is malformed: %w", err)
	}

	return bc.hash(tip), nil
}

// NextPrevious returns the previous hash the next appended block must carry.
func (bc *Blockchain) NextPrevious() database.PrevHash {
	d, err := bc.TipDigest()
	if err != nil {
		return database.NoPrev
	}

	return database.Prev(d)
}

// Stakes returns a copy of the stake table used for proof of stake blocks.
func (bc *Blockchain) Stakes() pos.StakeTable {
	return bc.stakes.Copy()
}

// MinTarget returns the easiest target a proof of work block may declare.
// The zero value means there is no floor.
func (bc *Blockchain) MinTarget() difficulty.Target {
	return bc.minTarget
}

// =============================================================================

// check runs the ordered set of rules for the block at the specified index.
func (bc *Blockchain) check(index int, prev database.PrevHash, block database.Block) error {
	h := block.Header

	bc.evHandler("chain: check: blk[%d]: check: previous hash matches chain tip", index)

	if h.Previous != prev {
		return &BlockError{Index: index, Err: fmt.Errorf("%w: got %s, exp %s", ErrInvalidPreviousHash, h.Previous, prev)}
	}

	bc.evHandler("chain: check: blk[%d]: check: merkle root matches transactions", index)

	if root := merkle.Root(block.Trans); h.MerkleRoot != root {
		return &BlockError{Index: index, Err: fmt.Errorf("%w: got %s, exp %s", ErrInvalidMerkleRoot, h.MerkleRoot, root)}
	}

	if err := h.Consistent(); err != nil {
		return &BlockError{Index: index, Err: fmt.Errorf("%w: %w", ErrUnknownConsensus, err)}
	}

	switch h.Kind {
	case database.PoW:
		bc.evHandler("chain: check: blk[%d]: check: block hash has been solved", index)

		if bc.minTarget != 0 && h.Difficulty.Easier(bc.minTarget) {
			return &BlockError{Index: index, Err: fmt.Errorf("%w: target %s is easier than minimum %s", ErrDifficultyNotMet, h.Difficulty, bc.minTarget)}
		}

		if !h.Difficulty.Satisfied(bc.hash(h)) {
			return &BlockError{Index: index, Err: fmt.Errorf("%w: target %s", ErrDifficultyNotMet, h.Difficulty)}
		}

	case database.PoS:
		bc.evHandler("chain: check: blk[%d]: check: validator matches stake selection", index)

		if err := pos.Check(h, bc.stakes, prev); err != nil {
			return &BlockError{Index: index, Err: err}
		}
	}

	return nil
}

// hash returns the digest of the header, using the cache when the same
// encoding has been hashed before. The header must be consistent.
func (bc *Blockchain) hash(h database.BlockHeader) digest.Digest {
	key := string(h.Encode())
	if d, exists := bc.hashes.Get(key); exists {
		return d
	}

	d := digest.Hash([]byte(key))
	bc.hashes.Add(key, d)

	return d
}
