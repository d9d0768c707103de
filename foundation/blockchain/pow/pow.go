// Package pow implements the proof of work consensus rule: search for a nonce
// that makes the header hash fall below the difficulty target.
package pow

import (
	"context"
	"errors"
	"math"

	"github.com/ardanlabs/ledger/foundation/blockchain/database"
	"github.com/ardanlabs/ledger/foundation/blockchain/difficulty"
)

// ErrExhausted is returned when no nonce satisfies the target within the
// allowed attempts.
var ErrExhausted = errors.New("nonce space exhausted")

// checkInterval is the number of attempts between checks of the context.
const checkInterval = 1 << 12

// reportInterval is the number of attempts between progress events.
const reportInterval = 1_000_000

// =============================================================================

type options struct {
	startNonce  uint64
	maxAttempts uint64
	evHandler   func(v string, args ...any)
}

// Option configures a mining operation.
type Option func(o *options)

// WithStartNonce sets the first nonce to try.
func WithStartNonce(nonce uint64) Option {
	return func(o *options) {
		o.startNonce = nonce
	}
}

// WithMaxAttempts caps the number of nonces tried. Zero means no cap.
func WithMaxAttempts(n uint64) Option {
	return func(o *options) {
		o.maxAttempts = n
	}
}

// WithEvHandler sets a function to receive progress events.
func WithEvHandler(evHandler func(v string, args ...any)) Option {
	return func(o *options) {
		o.evHandler = evHandler
	}
}

// =============================================================================

// Mine does the work of finding a nonce that solves the header for the
// specified target. The header is stamped as a proof of work header carrying
// the target before the search begins. The returned header holds the
// winning nonce.
func Mine(ctx context.Context, header database.BlockHeader, target difficulty.Target, opts ...Option) (uint64, database.BlockHeader, error) {
	o := options{
		evHandler: func(v string, args ...any) {},
	}
	for _, opt := range opts {
		opt(&o)
	}
	ev := o.evHandler

	if err := target.Validate(); err != nil {
		return 0, database.BlockHeader{}, err
	}

	header.Kind = database.PoW
	header.Difficulty = target
	header.Validator = ""
	header.Nonce = o.startNonce

	ev("pow: Mine: MINING: started: prevBlk[%s]: bits[%s]", header.Previous, target)
	defer ev("pow: Mine: MINING: completed")

	var attempts uint64
	for {
		if o.maxAttempts > 0 && attempts == o.maxAttempts {
			ev("pow: Mine: MINING: EXHAUSTED: attempts[%d]", attempts)
			return 0, database.BlockHeader{}, ErrExhausted
		}

		attempts++
		if attempts%reportInterval == 0 {
			ev("pow: Mine: MINING: attempts[%d]", attempts)
		}

		// Did we timeout trying to solve the problem.
		if attempts%checkInterval == 0 && ctx.Err() != nil {
			ev("pow: Mine: MINING: CANCELLED")
			return 0, database.BlockHeader{}, ctx.Err()
		}

		hash := header.Hash()
		if target.Satisfied(hash) {
			ev("pow: Mine: MINING: SOLVED: prevBlk[%s]: newBlk[%s]: nonce[%d]", header.Previous, hash, header.Nonce)
			ev("pow: Mine: MINING: attempts[%d]", attempts)
			return header.Nonce, header, nil
		}

		if header.Nonce == math.MaxUint64 {
			ev("pow: Mine: MINING: EXHAUSTED: nonce space: attempts[%d]", attempts)
			return 0, database.BlockHeader{}, ErrExhausted
		}
		header.Nonce++
	}
}

// Verify reports whether the header hash satisfies the target. The header
// must be a consistent proof of work header.
func Verify(header database.BlockHeader, target difficulty.Target) bool {
	if header.Kind != database.PoW || header.Consistent() != nil {
		return false
	}

	return target.Satisfied(header.Hash())
}

// MineBlock mines the header of the block against the target and returns
// the solved block.
func MineBlock(ctx context.Context, block database.Block, target difficulty.Target, opts ...Option) (database.Block, error) {
	_, header, err := Mine(ctx, block.Header, target, opts...)
	if err != nil {
		return database.Block{}, err
	}

	block.Header = header
	return block, nil
}
