// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package api holds the HTTP wire types shared by the gateway, the query
// service and their client.
package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/luxfi/ids"
	"github.com/luxfi/log"

	"github.com/luxfi/transform"
	"github.com/luxfi/transform/ledger"
	"github.com/luxfi/transform/payload"
)

const (
	ExecutePath = "/v1/execute"
	NoncePath   = "/v1/nonce/{address}"
	BalancePath = "/v1/balance/{address}"
	BackingPath = "/v1/backing/{address}/{denom}"

	// MaxRequestSize bounds an execute request body
	MaxRequestSize = 2 * payload.MaxMessageSize
)

// ExecuteRequest is the body of an execute call. Sender is the caller the
// wallet owner check is made against.
type ExecuteRequest struct {
	Sender ids.ShortID        `json:"sender"`
	Wallet ids.ShortID        `json:"wallet"`
	Msg    payload.ExecuteMsg `json:"msg"`
}

// Receipt is the wire form of a committed conversion. Amounts are decimal
// strings.
type Receipt struct {
	Op       string      `json:"op"`
	Subject  ids.ShortID `json:"subject"`
	Signer   ids.ShortID `json:"signer"`
	Amount   string      `json:"amount"`
	NewNonce uint64      `json:"new_nonce"`
	Wrapped  string      `json:"wrapped"`
	Backing  string      `json:"backing"`
}

// NewReceipt converts a ledger receipt to its wire form
func NewReceipt(r *ledger.Receipt) *Receipt {
	return &Receipt{
		Op:       r.Op.String(),
		Subject:  r.Subject,
		Signer:   r.Signer,
		Amount:   r.Amount.Dec(),
		NewNonce: r.NewNonce,
		Wrapped:  r.Wrapped.Dec(),
		Backing:  r.Backing.Dec(),
	}
}

// NonceResponse answers a proof nonce query
type NonceResponse struct {
	Address ids.ShortID `json:"address"`
	Nonce   uint64      `json:"nonce"`
}

// BalanceResponse answers a wrapped or backing balance query
type BalanceResponse struct {
	Address ids.ShortID `json:"address"`
	Denom   string      `json:"denom,omitempty"`
	Amount  string      `json:"amount"`
}

// StatusCode maps an error to the HTTP status it is reported with
func StatusCode(err error) int {
	switch {
	case errors.Is(err, transform.ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, transform.ErrInvalidRequest),
		errors.Is(err, transform.ErrInvalidAmount):
		return http.StatusBadRequest
	case errors.Is(err, transform.ErrUnknownDenom):
		return http.StatusNotFound
	case transform.CodeOf(err) != transform.CodeUnknown:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// WriteJSON writes v with the given status
func WriteJSON(logger log.Logger, w http.ResponseWriter, status int, v any) {
	resp, err := json.Marshal(v)
	if err != nil {
		logger.Error("Error marshalling JSON response", log.Err(err))
		WriteJSONError(logger, w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(resp); err != nil {
		logger.Error("Error writing response", log.Err(err))
	}
}

// WriteJSONError writes err as a transform.Error with the status StatusCode
// picks for it.
func WriteJSONError(logger log.Logger, w http.ResponseWriter, err error) {
	resp, mErr := json.Marshal(transform.NewError(err))
	if mErr != nil {
		msg := "Error marshalling JSON error response"
		logger.Error(msg, log.Err(mErr))
		resp = []byte(msg)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(StatusCode(err))
	if _, err := w.Write(resp); err != nil {
		logger.Error("Error writing error response", log.Err(err))
	}
}
