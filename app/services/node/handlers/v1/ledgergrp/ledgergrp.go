// Package ledgergrp maintains the group of handlers for public access to
// the ledger.
package ledgergrp

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/ardanlabs/ledger/business/web/errs"
	"github.com/ardanlabs/ledger/foundation/blockchain/database"
	"github.com/ardanlabs/ledger/foundation/blockchain/digest"
	"github.com/ardanlabs/ledger/foundation/blockchain/state"
	"github.com/ardanlabs/ledger/foundation/events"
	"github.com/ardanlabs/ledger/foundation/validate"
	"github.com/ardanlabs/ledger/foundation/web"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Handlers manages the set of ledger endpoints.
type Handlers struct {
	Log   *zap.SugaredLogger
	State *state.State
	WS    websocket.Upgrader
	Evts  *events.Events
}

// Events handles a web socket to provide events to a client.
func (h Handlers) Events(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	h.WS.CheckOrigin = func(r *http.Request) bool { return true }

	c, err := h.WS.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	defer c.Close()

	// The upgrade wrote the response.
	web.SetStatusCode(ctx, http.StatusSwitchingProtocols)

	ch := h.Evts.Acquire(v.TraceID)
	defer h.Evts.Release(v.TraceID)

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case msg, wd := <-ch:
			if !wd {
				return nil
			}

			if err := c.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
				return nil
			}

		case <-ticker.C:
			if err := c.WriteMessage(websocket.PingMessage, []byte("ping")); err != nil {
				return nil
			}
		}
	}
}

// Genesis returns the genesis information.
func (h Handlers) Genesis(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	gen := h.State.RetrieveGenesis()
	return web.Respond(ctx, w, gen, http.StatusOK)
}

// Status returns the height and tip of the chain.
func (h Handlers) Status(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	return web.Respond(ctx, w, h.State.RetrieveStatus(), http.StatusOK)
}

// Validate re-checks the chain from genesis and reports the result.
func (h Handlers) Validate(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	report := h.State.Validate()

	resp := struct {
		Valid  bool   `json:"valid"`
		Blocks int    `json:"blocks"`
		Index  int    `json:"index"`
		Reason string `json:"reason,omitempty"`
	}{
		Valid:  report.Valid,
		Blocks: report.Blocks,
		Index:  report.Index,
		Reason: report.Reason,
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// Blocks returns the blocks in the requested range or the whole chain.
func (h Handlers) Blocks(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	from, to := 0, -1

	if s := web.Param(r, "from"); s != "" {
		var err error
		if from, err = strconv.Atoi(s); err != nil {
			return errs.NewTrusted(fmt.Errorf("invalid from %q: %w", s, err), http.StatusBadRequest)
		}
	}
	if s := web.Param(r, "to"); s != "" && s != "latest" {
		var err error
		if to, err = strconv.Atoi(s); err != nil {
			return errs.NewTrusted(fmt.Errorf("invalid to %q: %w", s, err), http.StatusBadRequest)
		}
	}

	dbBlocks, err := h.State.QueryBlocksByNumber(from, to)
	if err != nil {
		if terr := errs.FromLedger(err); errs.IsTrusted(terr) {
			return terr
		}
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	blocks := make([]block, len(dbBlocks))
	for i, blk := range dbBlocks {
		blocks[i] = toBlock(from+i, blk)
	}

	return web.Respond(ctx, w, blocks, http.StatusOK)
}

// Proof returns the merkle inclusion proof for a committed transaction.
func (h Handlers) Proof(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	blk, err := strconv.Atoi(web.Param(r, "block"))
	if err != nil {
		return errs.NewTrusted(fmt.Errorf("invalid block: %w", err), http.StatusBadRequest)
	}

	index, err := strconv.Atoi(web.Param(r, "index"))
	if err != nil {
		return errs.NewTrusted(fmt.Errorf("invalid index: %w", err), http.StatusBadRequest)
	}

	proof, err := h.State.QueryProof(blk, index)
	if err != nil {
		return errs.FromLedger(err)
	}

	return web.Respond(ctx, w, proof, http.StatusOK)
}

// Mempool returns the set of uncommitted transactions.
func (h Handlers) Mempool(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	mempool := h.State.RetrieveMempool()

	trans := make([]tx, len(mempool))
	for i, raw := range mempool {
		trans[i] = toTx(raw)
	}

	return web.Respond(ctx, w, trans, http.StatusOK)
}

// SubmitTransaction adds a new transaction to the mempool.
func (h Handlers) SubmitTransaction(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	var req submitTx
	if err := web.Decode(r, &req); err != nil {
		if validate.IsFieldErrors(err) {
			return err
		}
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	payload := req.Data
	if req.From != "" {
		tran, err := database.NewTransaction(req.From, req.To, req.Amount, uint32(v.Now.Unix()))
		if err != nil {
			return errs.NewTrusted(err, http.StatusBadRequest)
		}
		payload = tran.Encode()
	}

	h.Log.Infow("submit tran", "traceid", v.TraceID, "from", req.From, "to", req.To, "amount", req.Amount, "size", len(payload))

	added, err := h.State.SubmitTransaction(payload)
	if err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	resp := submitted{
		Status: "transaction added to mempool",
		TxHash: payload.Hash(),
		Added:  added,
	}
	if !added {
		resp.Status = "transaction already pending"
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// SelectValidator returns the validator the stake table selects for a seed.
func (h Handlers) SelectValidator(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	seed, err := digest.FromHex(web.Param(r, "seed"))
	if err != nil {
		return errs.NewTrusted(fmt.Errorf("invalid seed: %w", err), http.StatusBadRequest)
	}

	validator, err := h.State.SelectValidator(seed)
	if err != nil {
		return errs.FromLedger(err)
	}

	return web.Respond(ctx, w, selection{Seed: seed, Validator: validator}, http.StatusOK)
}
