// Package v1 contains the full set of handler functions and routes
// supported by the v1 web api.
package v1

import (
	"net/http"

	"github.com/ardanlabs/ledger/app/services/node/handlers/v1/ledgergrp"
	"github.com/ardanlabs/ledger/foundation/blockchain/state"
	"github.com/ardanlabs/ledger/foundation/events"
	"github.com/ardanlabs/ledger/foundation/web"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const version = "v1"

// Config contains all the mandatory systems required by handlers.
type Config struct {
	Log   *zap.SugaredLogger
	State *state.State
	Evts  *events.Events
}

// PublicRoutes binds all the version 1 public routes.
func PublicRoutes(app *web.App, cfg Config) {
	lgh := ledgergrp.Handlers{
		Log:   cfg.Log,
		State: cfg.State,
		WS:    websocket.Upgrader{},
		Evts:  cfg.Evts,
	}

	app.Handle(http.MethodGet, version, "/events", lgh.Events)
	app.Handle(http.MethodGet, version, "/genesis/list", lgh.Genesis)
	app.Handle(http.MethodGet, version, "/chain/status", lgh.Status)
	app.Handle(http.MethodGet, version, "/chain/validate", lgh.Validate)
	app.Handle(http.MethodGet, version, "/blocks/list", lgh.Blocks)
	app.Handle(http.MethodGet, version, "/blocks/list/:from/:to", lgh.Blocks)
	app.Handle(http.MethodGet, version, "/blocks/proof/:block/:index", lgh.Proof)
	app.Handle(http.MethodGet, version, "/tx/uncommitted/list", lgh.Mempool)
	app.Handle(http.MethodPost, version, "/tx/submit", lgh.SubmitTransaction)
	app.Handle(http.MethodGet, version, "/stake/select/:seed", lgh.SelectValidator)
}
