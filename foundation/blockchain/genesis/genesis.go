// Package genesis maintains access to the genesis file.
package genesis

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/ardanlabs/ledger/foundation/blockchain/database"
	"github.com/ardanlabs/ledger/foundation/blockchain/difficulty"
	"github.com/ardanlabs/ledger/foundation/blockchain/pos"
	"github.com/ardanlabs/ledger/foundation/validate"
)

// Genesis represents the genesis file.
type Genesis struct {
	Date          time.Time        `json:"date"`
	ChainID       uint16           `json:"chain_id" validate:"required"`                           // The chain id represents an unique id for this running instance.
	Consensus     string           `json:"consensus" validate:"required,oneof=pow pos"`            // The rule new blocks are produced under.
	Bits          string           `json:"bits" validate:"required_if=Consensus pow"`              // Compact target new proof of work blocks declare.
	MinBits       string           `json:"min_bits"`                                               // Easiest target the chain accepts, empty for no floor.
	TransPerBlock uint16           `json:"trans_per_block" validate:"required,min=1"`              // The maximum number of transactions that can be in a block.
	MiningReward  uint64           `json:"mining_reward"`                                          // Reward for producing a block.
	Stakes        map[string]int64 `json:"stakes" validate:"required_if=Consensus pos,dive,gte=0"` // Validator weights for proof of stake.
}

// =============================================================================

// Load opens and consumes the genesis file.
func Load(path string) (Genesis, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return Genesis{}, err
	}

	var genesis Genesis
	err = json.Unmarshal(content, &genesis)
	if err != nil {
		return Genesis{}, err
	}

	if err := genesis.Validate(); err != nil {
		return Genesis{}, fmt.Errorf("validating genesis %q: %w", path, err)
	}

	return genesis, nil
}

// Validate checks the genesis values describe a usable chain.
func (g Genesis) Validate() error {
	if err := validate.Check(g); err != nil {
		return err
	}

	target, err := g.Target()
	if err != nil {
		return err
	}

	minTarget, err := g.MinTarget()
	if err != nil {
		return err
	}

	// Blocks declaring an easier target than the floor would never be
	// accepted by the chain.
	if target != 0 && minTarget != 0 && target.Easier(minTarget) {
		return fmt.Errorf("%w: bits %s is easier than minimum %s", difficulty.ErrInvalidTarget, target, minTarget)
	}

	if g.Consensus == "pos" {
		if _, err := g.StakeTable().Total(); err != nil {
			return err
		}
	}

	return nil
}

// Kind returns the consensus kind new blocks are produced under.
func (g Genesis) Kind() (database.Kind, error) {
	return database.ParseKind(g.Consensus)
}

// Target returns the target new proof of work blocks declare.
func (g Genesis) Target() (difficulty.Target, error) {
	if g.Bits == "" {
		return 0, nil
	}

	target, err := difficulty.Parse(g.Bits)
	if err != nil {
		return 0, err
	}

	if err := target.Validate(); err != nil {
		return 0, err
	}

	return target, nil
}

// MinTarget returns the easiest target the chain accepts. Zero means
// there is no floor.
func (g Genesis) MinTarget() (difficulty.Target, error) {
	if g.MinBits == "" {
		return 0, nil
	}

	minTarget, err := difficulty.Parse(g.MinBits)
	if err != nil {
		return 0, err
	}

	if err := minTarget.Validate(); err != nil {
		return 0, err
	}

	return minTarget, nil
}

// StakeTable returns a copy of the validator weights.
func (g Genesis) StakeTable() pos.StakeTable {
	return pos.StakeTable(g.Stakes).Copy()
}
