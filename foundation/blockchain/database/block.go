package database

import (
	"encoding/binary"
	"fmt"

	"github.com/ardanlabs/ledger/foundation/blockchain/difficulty"
	"github.com/ardanlabs/ledger/foundation/blockchain/digest"
	"github.com/ardanlabs/ledger/foundation/blockchain/merkle"
)

// Version is the header version written by this package.
const Version uint32 = 1

// HeaderSize is the size of an encoded proof of work header. A proof of
// stake header adds the bytes of the validator id.
const HeaderSize = 90

// =============================================================================

// Kind identifies the consensus rule a block was admitted under.
type Kind uint8

// Set of consensus kinds.
const (
	PoW Kind = 1
	PoS Kind = 2
)

// ParseKind converts the name of a consensus kind into its value.
func ParseKind(name string) (Kind, error) {
	switch name {
	case "pow", "POW", "PoW":
		return PoW, nil
	case "pos", "POS", "PoS":
		return PoS, nil
	}

	return 0, fmt.Errorf("unknown consensus kind %q", name)
}

// String implements the fmt.Stringer interface.
func (k Kind) String() string {
	switch k {
	case PoW:
		return "pow"
	case PoS:
		return "pos"
	}

	return fmt.Sprintf("kind(%d)", uint8(k))
}

// MarshalText implements the encoding.TextMarshaler interface.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements the encoding.TextUnmarshaler interface.
func (k *Kind) UnmarshalText(text []byte) error {
	kind, err := ParseKind(string(text))
	if err != nil {
		return err
	}

	*k = kind
	return nil
}

// =============================================================================

// PrevHash is the optional digest of the parent block header. It is only
// absent for the genesis block.
type PrevHash struct {
	Digest digest.Digest `json:"digest"`
	Valid  bool          `json:"valid"`
}

// NoPrev represents the missing parent of a genesis block.
var NoPrev = PrevHash{}

// Prev constructs a present parent hash.
func Prev(d digest.Digest) PrevHash {
	return PrevHash{Digest: d, Valid: true}
}

// String implements the fmt.Stringer interface.
func (p PrevHash) String() string {
	if !p.Valid {
		return "none"
	}
	return p.Digest.String()
}

// =============================================================================

// BlockHeader represents common information required for each block.
type BlockHeader struct {
	Version    uint32            `json:"version"`
	Kind       Kind              `json:"kind"`
	Previous   PrevHash          `json:"previous"`    // Bitcoin: Hash of the previous block in the chain.
	MerkleRoot digest.Digest     `json:"merkle_root"` // Bitcoin: Merkle root of the transactions in this block.
	TimeStamp  uint64            `json:"timestamp"`   // Bitcoin: Time the block was produced.
	Difficulty difficulty.Target `json:"difficulty"`  // Bitcoin: Compact encoding of the target threshold.
	Nonce      uint64            `json:"nonce"`       // Bitcoin: Value identified to solve the hash solution.
	Validator  string            `json:"validator"`   // The stake holder chosen to produce this block.
}

// IsGenesis reports whether the header has no parent.
func (h BlockHeader) IsGenesis() bool {
	return !h.Previous.Valid
}

// Consistent checks the consensus kind agrees with the fields the header
// carries.
func (h BlockHeader) Consistent() error {
	switch h.Kind {
	case PoW:
		if h.Validator != "" {
			return fmt.Errorf("pow header carries validator %q", h.Validator)
		}
	case PoS:
		if h.Nonce != 0 {
			return fmt.Errorf("pos header carries nonce %d", h.Nonce)
		}
	default:
		return fmt.Errorf("unknown consensus %s", h.Kind)
	}

	return nil
}

// Encode produces the canonical byte encoding of the header that is hashed
// by the consensus rules. A header that is not consistent is a programming
// error and causes a panic.
func (h BlockHeader) Encode() []byte {
	if err := h.Consistent(); err != nil {
		panic("database: encode: " + err.Error())
	}

	buf := make([]byte, HeaderSize, HeaderSize+len(h.Validator))

	binary.LittleEndian.PutUint32(buf[0:4], h.Version)
	buf[4] = byte(h.Kind)
	if h.Previous.Valid {
		buf[5] = 1
		copy(buf[6:38], h.Previous.Digest[:])
	}
	copy(buf[38:70], h.MerkleRoot[:])
	binary.LittleEndian.PutUint64(buf[70:78], h.TimeStamp)
	binary.LittleEndian.PutUint32(buf[78:82], uint32(h.Difficulty))

	switch h.Kind {
	case PoW:
		binary.LittleEndian.PutUint64(buf[82:90], h.Nonce)
	case PoS:
		binary.LittleEndian.PutUint64(buf[82:90], uint64(len(h.Validator)))
		buf = append(buf, h.Validator...)
	}

	return buf
}

// Hash returns the unique hash for the header.
func (h BlockHeader) Hash() digest.Digest {

	// CORE NOTE: Hashing the block header and not the whole block so the blockchain
	// can be cryptographically checked by only needing block headers and not full
	// blocks with the transaction data. The merkle root ties the header to the
	// transactions.

	return digest.Hash(h.Encode())
}

// HashHeader returns the digest of the canonical encoding of the header.
func HashHeader(h BlockHeader) digest.Digest {
	return h.Hash()
}

// =============================================================================

// Tx is an opaque transaction payload. The core never inspects its content.
type Tx []byte

// Bytes implements the merkle Hashable interface.
func (tx Tx) Bytes() []byte {
	return tx
}

// Hash returns the leaf digest of the transaction.
func (tx Tx) Hash() digest.Digest {
	return digest.Hash(tx)
}

// MarshalText implements the encoding.TextMarshaler interface.
func (tx Tx) MarshalText() ([]byte, error) {
	return []byte(fmt.Sprintf("%#x", []byte(tx))), nil
}

// UnmarshalText implements the encoding.TextUnmarshaler interface.
func (tx *Tx) UnmarshalText(text []byte) error {
	b, err := decodeHex(string(text))
	if err != nil {
		return err
	}

	*tx = b
	return nil
}

// =============================================================================

// Block represents a group of transactions batched together.
type Block struct {
	Header BlockHeader `json:"header"`
	Trans  []Tx        `json:"trans"`
}

// NewBlock constructs a block that links to the specified parent. The merkle
// root is computed from the transactions. The consensus specific fields are
// left for the pow and pos packages to fill in.
func NewBlock(kind Kind, prev PrevHash, timeStamp uint64, trans []Tx) Block {
	return Block{
		Header: BlockHeader{
			Version:    Version,
			Kind:       kind,
			Previous:   prev,
			MerkleRoot: merkle.Root(trans),
			TimeStamp:  timeStamp,
		},
		Trans: CopyTrans(trans),
	}
}

// Hash returns the unique hash for the Block.
func (b Block) Hash() digest.Digest {
	return b.Header.Hash()
}

// Copy returns a block that shares no memory with the original.
func (b Block) Copy() Block {
	return Block{
		Header: b.Header,
		Trans:  CopyTrans(b.Trans),
	}
}

// Tree constructs the merkle tree for the transactions in the block.
func (b Block) Tree() *merkle.Tree[Tx] {
	return merkle.NewTree(b.Trans)
}

// CopyTrans performs a deep copy of the transactions.
func CopyTrans(trans []Tx) []Tx {
	if trans == nil {
		return nil
	}

	out := make([]Tx, len(trans))
	for i, tx := range trans {
		out[i] = append(Tx(nil), tx...)
	}

	return out
}
