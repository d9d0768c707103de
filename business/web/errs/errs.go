// Package errs provides types and support related to web v1 functionality.
package errs

import (
	"errors"
	"net/http"

	"github.com/ardanlabs/ledger/foundation/blockchain/chain"
	"github.com/ardanlabs/ledger/foundation/blockchain/database"
	"github.com/ardanlabs/ledger/foundation/blockchain/difficulty"
	"github.com/ardanlabs/ledger/foundation/blockchain/merkle"
	"github.com/ardanlabs/ledger/foundation/blockchain/pos"
)

// Response is the form used for API responses from failures in the API.
type Response struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

// Trusted is used to pass an error during the request through the
// application with web specific context.
type Trusted struct {
	Err    error
	Status int
}

// NewTrusted wraps a provided error with an HTTP status code. This
// function should be used when handlers encounter expected errors.
func NewTrusted(err error, status int) error {
	return &Trusted{err, status}
}

// Error implements the error interface. It uses the default message of the
// wrapped error. This is what will be shown in the services' logs.
func (te *Trusted) Error() string {
	return te.Err.Error()
}

// Unwrap provides access to the wrapped error.
func (te *Trusted) Unwrap() error {
	return te.Err
}

// IsTrusted checks if an error of type Trusted exists.
func IsTrusted(err error) bool {
	var te *Trusted
	return errors.As(err, &te)
}

// GetTrusted returns a copy of the Trusted pointer.
func GetTrusted(err error) *Trusted {
	var te *Trusted
	if !errors.As(err, &te) {
		return nil
	}
	return te
}

// =============================================================================

// FromLedger wraps errors returned by the blockchain packages with the status
// the client should see. Errors that are not known ledger errors are returned
// as is and will be reported as internal errors.
func FromLedger(err error) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, chain.ErrEmptyChainQuery),
		errors.Is(err, chain.ErrBlockNotFound),
		errors.Is(err, merkle.ErrIndexOutOfRange):
		return NewTrusted(err, http.StatusNotFound)

	case errors.Is(err, chain.ErrInvalidPreviousHash),
		errors.Is(err, chain.ErrInvalidMerkleRoot),
		errors.Is(err, chain.ErrDifficultyNotMet),
		errors.Is(err, chain.ErrValidatorMismatch),
		errors.Is(err, chain.ErrUnknownConsensus):
		return NewTrusted(err, http.StatusUnprocessableEntity)

	case errors.Is(err, pos.ErrEmptyStakeTable),
		errors.Is(err, pos.ErrInvalidWeight):
		return NewTrusted(err, http.StatusConflict)

	case errors.Is(err, difficulty.ErrInvalidTarget),
		errors.Is(err, database.ErrMalformedTx):
		return NewTrusted(err, http.StatusBadRequest)
	}

	return err
}
