package ledgergrp

import (
	"github.com/ardanlabs/ledger/foundation/blockchain/database"
	"github.com/ardanlabs/ledger/foundation/blockchain/digest"
)

// submitTx is the payload accepted by the submit endpoint. Either a transfer
// or an opaque hex encoded payload is provided.
type submitTx struct {
	From   string      `json:"from" validate:"required_without=Data"`
	To     string      `json:"to" validate:"required_with=From"`
	Amount uint64      `json:"amount"`
	Data   database.Tx `json:"data" validate:"required_without=From,excluded_with=From"`
}

type submitted struct {
	Status string        `json:"status"`
	TxHash digest.Digest `json:"tx_hash"`
	Added  bool          `json:"added"`
}

type block struct {
	Number int                  `json:"number"`
	Hash   digest.Digest        `json:"hash"`
	Header database.BlockHeader `json:"header"`
	Trans  []tx                 `json:"trans"`
}

type tx struct {
	Hash   digest.Digest         `json:"hash"`
	Raw    database.Tx           `json:"raw"`
	Decode *database.Transaction `json:"decoded,omitempty"`
}

type selection struct {
	Seed      digest.Digest `json:"seed"`
	Validator string        `json:"validator"`
}

// toBlock converts a block into the form reported to clients.
func toBlock(number int, blk database.Block) block {
	trans := make([]tx, len(blk.Trans))
	for i, raw := range blk.Trans {
		trans[i] = toTx(raw)
	}

	return block{
		Number: number,
		Hash:   blk.Hash(),
		Header: blk.Header,
		Trans:  trans,
	}
}

// toTx reports the payload and, when it is a ledger transaction, its
// decoded fields.
func toTx(raw database.Tx) tx {
	t := tx{
		Hash: raw.Hash(),
		Raw:  raw,
	}

	if dec, err := database.DecodeTransaction(raw); err == nil {
		t.Decode = &dec
	}

	return t
}
