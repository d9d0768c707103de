package database

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/ardanlabs/ledger/foundation/blockchain/digest"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// TxVersion is the transaction version written by this package.
const TxVersion uint32 = 1

// ErrMalformedTx is returned when a payload is not an encoded Transaction.
var ErrMalformedTx = errors.New("malformed transaction")

// =============================================================================

// Transaction is a transfer of value between two parties. It is one way to
// build a Tx payload; the ledger itself never looks inside a payload.
type Transaction struct {
	Version   uint32 `json:"version"`
	From      string `json:"from"`      // Empty for a coinbase transaction.
	To        string `json:"to"`        // Account receiving the value.
	Amount    uint64 `json:"amount"`    // Value transferred.
	TimeStamp uint32 `json:"timestamp"` // Time the transaction was created.
}

// NewTransaction constructs a transfer between two accounts.
func NewTransaction(from string, to string, amount uint64, timeStamp uint32) (Transaction, error) {
	if from == "" {
		return Transaction{}, errors.New("from account is required")
	}
	if to == "" {
		return Transaction{}, errors.New("to account is required")
	}

	tx := Transaction{
		Version:   TxVersion,
		From:      from,
		To:        to,
		Amount:    amount,
		TimeStamp: timeStamp,
	}

	return tx, nil
}

// Coinbase constructs the transaction that rewards the producer of a block.
func Coinbase(to string, amount uint64, timeStamp uint32) Transaction {
	return Transaction{
		Version:   TxVersion,
		To:        to,
		Amount:    amount,
		TimeStamp: timeStamp,
	}
}

// IsCoinbase reports whether the transaction mints new value.
func (tx Transaction) IsCoinbase() bool {
	return tx.From == ""
}

// Encode produces the little endian byte form of the transaction.
//
//	version u32 | len(from) u32 | from | len(to) u32 | to | amount u64 | timestamp u32
func (tx Transaction) Encode() Tx {
	b := make([]byte, 0, 4+4+len(tx.From)+4+len(tx.To)+8+4)

	b = binary.LittleEndian.AppendUint32(b, tx.Version)
	b = binary.LittleEndian.AppendUint32(b, uint32(len(tx.From)))
	b = append(b, tx.From...)
	b = binary.LittleEndian.AppendUint32(b, uint32(len(tx.To)))
	b = append(b, tx.To...)
	b = binary.LittleEndian.AppendUint64(b, tx.Amount)
	b = binary.LittleEndian.AppendUint32(b, tx.TimeStamp)

	return b
}

// TxID returns the digest that identifies the transaction.
func (tx Transaction) TxID() digest.Digest {
	return tx.Encode().Hash()
}

// String implements the fmt.Stringer interface for logging.
func (tx Transaction) String() string {
	from := tx.From
	if tx.IsCoinbase() {
		from = "coinbase"
	}

	return fmt.Sprintf("%s->%s:%d", from, tx.To, tx.Amount)
}

// DecodeTransaction parses a payload produced by Transaction.Encode.
func DecodeTransaction(tx Tx) (Transaction, error) {
	r := reader{b: tx}

	var out Transaction
	out.Version = r.uint32()
	out.From = r.string()
	out.To = r.string()
	out.Amount = r.uint64()
	out.TimeStamp = r.uint32()

	if r.err != nil {
		return Transaction{}, r.err
	}
	if len(r.b) != 0 {
		return Transaction{}, fmt.Errorf("%w: %d trailing bytes", ErrMalformedTx, len(r.b))
	}

	return out, nil
}

// =============================================================================

// reader consumes little endian values, recording the first short read.
type reader struct {
	b   []byte
	err error
}

func (r *reader) take(n uint64) []byte {
	if r.err != nil {
		return nil
	}
	if n > uint64(len(r.b)) {
		r.err = fmt.Errorf("%w: need %d bytes, have %d", ErrMalformedTx, n, len(r.b))
		return nil
	}

	v := r.b[:n]
	r.b = r.b[n:]
	return v
}

func (r *reader) uint32() uint32 {
	v := r.take(4)
	if v == nil {
		return 0
	}
	return binary.LittleEndian.Uint32(v)
}

func (r *reader) uint64() uint64 {
	v := r.take(8)
	if v == nil {
		return 0
	}
	return binary.LittleEndian.Uint64(v)
}

func (r *reader) string() string {
	n := r.uint32()
	if n > math.MaxInt32 {
		r.err = fmt.Errorf("%w: length %d", ErrMalformedTx, n)
		return ""
	}
	return string(r.take(uint64(n)))
}

// =============================================================================

// decodeHex accepts hex with or without the 0x prefix.
func decodeHex(s string) ([]byte, error) {
	if len(s) < 2 || s[:2] != "0x" {
		s = "0x" + s
	}

	if s == "0x" {
		return []byte{}, nil
	}

	return hexutil.Decode(s)
}
