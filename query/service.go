// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package query serves read-only views of the ledger. Every answer reflects
// committed state at the time of the call; nothing is cached.
package query

import (
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/holiman/uint256"
	"github.com/luxfi/ids"
	"github.com/luxfi/log"

	"github.com/luxfi/transform"
	"github.com/luxfi/transform/api"
)

// Reader is the read surface of the ledger
type Reader interface {
	Nonce(addr ids.ShortID) (uint64, error)
	WrappedBalance(addr ids.ShortID) (*uint256.Int, error)
	BackingBalance(addr ids.ShortID, denom string) (*uint256.Int, error)
}

// Service answers nonce and balance queries
type Service struct {
	log    log.Logger
	reader Reader
}

// NewService creates a query service over reader
func NewService(logger log.Logger, reader Reader) *Service {
	if logger == nil {
		logger = log.NewNoOpLogger()
	}
	return &Service{
		log:    logger,
		reader: reader,
	}
}

// RegisterRoutes mounts the query endpoints on r
func (s *Service) RegisterRoutes(r *mux.Router) {
	r.HandleFunc(api.NoncePath, s.handleNonce).Methods(http.MethodGet)
	r.HandleFunc(api.BalancePath, s.handleBalance).Methods(http.MethodGet)
	r.HandleFunc(api.BackingPath, s.handleBacking).Methods(http.MethodGet)
}

func (s *Service) handleNonce(w http.ResponseWriter, r *http.Request) {
	addr, ok := s.address(w, r)
	if !ok {
		return
	}
	nonce, err := s.reader.Nonce(addr)
	if err != nil {
		s.log.Error("Failed to read nonce", log.Stringer("address", addr), log.Err(err))
		api.WriteJSONError(s.log, w, err)
		return
	}
	api.WriteJSON(s.log, w, http.StatusOK, api.NonceResponse{
		Address: addr,
		Nonce:   nonce,
	})
}

func (s *Service) handleBalance(w http.ResponseWriter, r *http.Request) {
	addr, ok := s.address(w, r)
	if !ok {
		return
	}
	balance, err := s.reader.WrappedBalance(addr)
	if err != nil {
		s.log.Error("Failed to read balance", log.Stringer("address", addr), log.Err(err))
		api.WriteJSONError(s.log, w, err)
		return
	}
	api.WriteJSON(s.log, w, http.StatusOK, api.BalanceResponse{
		Address: addr,
		Amount:  balance.Dec(),
	})
}

func (s *Service) handleBacking(w http.ResponseWriter, r *http.Request) {
	addr, ok := s.address(w, r)
	if !ok {
		return
	}
	denom := mux.Vars(r)["denom"]
	balance, err := s.reader.BackingBalance(addr, denom)
	if err != nil {
		s.log.Debug("Failed to read backing balance",
			log.Stringer("address", addr),
			log.String("denom", denom),
			log.Err(err),
		)
		api.WriteJSONError(s.log, w, err)
		return
	}
	api.WriteJSON(s.log, w, http.StatusOK, api.BalanceResponse{
		Address: addr,
		Denom:   denom,
		Amount:  balance.Dec(),
	})
}

func (s *Service) address(w http.ResponseWriter, r *http.Request) (ids.ShortID, bool) {
	raw := mux.Vars(r)["address"]
	addr, err := ids.ShortFromString(raw)
	if err != nil {
		api.WriteJSONError(s.log, w, fmt.Errorf("%w: address %q: %w", transform.ErrInvalidRequest, raw, err))
		return ids.ShortEmpty, false
	}
	return addr, true
}
