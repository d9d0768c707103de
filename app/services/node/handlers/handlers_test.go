package handlers_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/ardanlabs/ledger/app/services/node/handlers"
	"github.com/ardanlabs/ledger/foundation/blockchain/genesis"
	"github.com/ardanlabs/ledger/foundation/blockchain/state"
	"github.com/ardanlabs/ledger/foundation/events"
	"go.uber.org/zap"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

func newMux(t *testing.T) (http.Handler, *state.State) {
	st, err := state.New(state.Config{
		Producer: "miner1",
		Genesis: genesis.Genesis{
			ChainID:       1,
			Consensus:     "pos",
			TransPerBlock: 10,
			Stakes:        map[string]int64{"miner1": 3, "miner2": 1},
		},
	})
	if err != nil {
		t.Fatalf("\t%s\tShould construct the state: %s", failed, err)
	}

	mux := handlers.PublicMux(handlers.MuxConfig{
		Shutdown:    make(chan os.Signal, 1),
		Log:         zap.NewNop().Sugar(),
		State:       st,
		Evts:        events.New(),
		CORSOrigins: []string{"http://viewer.local"},
	})

	return mux, st
}

func call(mux http.Handler, method string, path string, body string) *httptest.ResponseRecorder {
	r := httptest.NewRequest(method, path, strings.NewReader(body))
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, r)
	return w
}

func Test_PublicAPI(t *testing.T) {
	t.Log("Given the need to serve the ledger over http.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen the chain is empty.", testID)
		{
			mux, _ := newMux(t)

			if w := call(mux, http.MethodGet, "/v1/blocks/list", ""); w.Code != http.StatusNotFound {
				t.Fatalf("\t%s\tTest %d:\tShould report no blocks with a 404: got %d", failed, testID, w.Code)
			}
			t.Logf("\t%s\tTest %d:\tShould report no blocks with a 404.", success, testID)

			if w := call(mux, http.MethodGet, "/v1/stake/select/0x1234", ""); w.Code != http.StatusBadRequest {
				t.Fatalf("\t%s\tTest %d:\tShould reject a short seed: got %d", failed, testID, w.Code)
			}
			t.Logf("\t%s\tTest %d:\tShould reject a short seed.", success, testID)
		}

		testID++
		t.Logf("\tTest %d:\tWhen a browser sends a preflight request.", testID)
		{
			mux, _ := newMux(t)

			r := httptest.NewRequest(http.MethodOptions, "/v1/preflight", nil)
			r.Header.Set("Origin", "http://viewer.local")
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, r)

			if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://viewer.local" {
				t.Fatalf("\t%s\tTest %d:\tShould allow the configured origin: got %q", failed, testID, got)
			}
			t.Logf("\t%s\tTest %d:\tShould allow the configured origin.", success, testID)

			r = httptest.NewRequest(http.MethodOptions, "/v1/preflight", nil)
			r.Header.Set("Origin", "http://elsewhere.local")
			w = httptest.NewRecorder()
			mux.ServeHTTP(w, r)

			if got := w.Header().Get("Access-Control-Allow-Origin"); got != "" {
				t.Fatalf("\t%s\tTest %d:\tShould not allow an unknown origin: got %q", failed, testID, got)
			}
			t.Logf("\t%s\tTest %d:\tShould not allow an unknown origin.", success, testID)
		}

		testID++
		t.Logf("\tTest %d:\tWhen submitting transactions.", testID)
		{
			mux, st := newMux(t)

			w := call(mux, http.MethodPost, "/v1/tx/submit", `{"from":"bill","to":"ed","amount":10}`)
			if w.Code != http.StatusOK {
				t.Fatalf("\t%s\tTest %d:\tShould accept a transfer: got %d %s", failed, testID, w.Code, w.Body)
			}
			w = call(mux, http.MethodPost, "/v1/tx/submit", `{"data":"0xdeadbeef"}`)
			if w.Code != http.StatusOK {
				t.Fatalf("\t%s\tTest %d:\tShould accept raw data: got %d %s", failed, testID, w.Code, w.Body)
			}
			t.Logf("\t%s\tTest %d:\tShould accept both payload forms.", success, testID)

			w = call(mux, http.MethodPost, "/v1/tx/submit", `{"from":"bill"}`)
			if w.Code != http.StatusBadRequest || !strings.Contains(w.Body.String(), "fields") {
				t.Fatalf("\t%s\tTest %d:\tShould report field errors: got %d %s", failed, testID, w.Code, w.Body)
			}
			w = call(mux, http.MethodPost, "/v1/tx/submit", `{"bogus":1}`)
			if w.Code != http.StatusBadRequest {
				t.Fatalf("\t%s\tTest %d:\tShould reject unknown fields: got %d", failed, testID, w.Code)
			}
			t.Logf("\t%s\tTest %d:\tShould reject bad payloads.", success, testID)

			var pending []json.RawMessage
			w = call(mux, http.MethodGet, "/v1/tx/uncommitted/list", "")
			if err := json.Unmarshal(w.Body.Bytes(), &pending); err != nil || len(pending) != 2 {
				t.Fatalf("\t%s\tTest %d:\tShould list 2 pending transactions: %v %s", failed, testID, err, w.Body)
			}
			t.Logf("\t%s\tTest %d:\tShould list 2 pending transactions.", success, testID)

			if _, err := st.ProduceNextBlock(context.Background()); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould produce a block: %s", failed, testID, err)
			}

			var status state.Status
			w = call(mux, http.MethodGet, "/v1/chain/status", "")
			if err := json.Unmarshal(w.Body.Bytes(), &status); err != nil || status.Height != 1 {
				t.Fatalf("\t%s\tTest %d:\tShould report a height of 1: %v %s", failed, testID, err, w.Body)
			}
			t.Logf("\t%s\tTest %d:\tShould report a height of 1.", success, testID)

			var report struct {
				Valid bool `json:"valid"`
			}
			w = call(mux, http.MethodGet, "/v1/chain/validate", "")
			if err := json.Unmarshal(w.Body.Bytes(), &report); err != nil || !report.Valid {
				t.Fatalf("\t%s\tTest %d:\tShould report a valid chain: %v %s", failed, testID, err, w.Body)
			}
			t.Logf("\t%s\tTest %d:\tShould report a valid chain.", success, testID)

			if w := call(mux, http.MethodGet, "/v1/blocks/proof/0/1", ""); w.Code != http.StatusOK {
				t.Fatalf("\t%s\tTest %d:\tShould build a proof: got %d %s", failed, testID, w.Code, w.Body)
			}
			if w := call(mux, http.MethodGet, "/v1/blocks/proof/0/9", ""); w.Code != http.StatusNotFound {
				t.Fatalf("\t%s\tTest %d:\tShould report an unknown index with a 404: got %d", failed, testID, w.Code)
			}
			t.Logf("\t%s\tTest %d:\tShould serve merkle proofs.", success, testID)

			seed := "0x" + strings.Repeat("00", 32)
			if w := call(mux, http.MethodGet, "/v1/stake/select/"+seed, ""); w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "miner1") {
				t.Fatalf("\t%s\tTest %d:\tShould select miner1 for the zero seed: got %d %s", failed, testID, w.Code, w.Body)
			}
			t.Logf("\t%s\tTest %d:\tShould select miner1 for the zero seed.", success, testID)
		}
	}
}
