// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package gateway is the proxy wallet boundary in front of the ledger. It
// authenticates the caller against the wallet it acts through and passes the
// wallet address on as the conversion subject.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/luxfi/ids"
	"github.com/luxfi/log"

	"github.com/luxfi/transform"
	"github.com/luxfi/transform/ledger"
	"github.com/luxfi/transform/payload"
)

var (
	// ErrUnauthorized is returned when the sender does not own the wallet
	ErrUnauthorized = transform.ErrUnauthorized

	errWalletExists = errors.New("wallet already registered")
	errMissingMsg   = errors.New("missing execute message")
)

var _ Executor = (*Gateway)(nil)

// Ledger is the part of the ledger the gateway forwards to
type Ledger interface {
	Transform(req ledger.TransformRequest) (*ledger.Receipt, error)
	Revert(req ledger.RevertRequest) (*ledger.Receipt, error)
}

// Executor runs execute messages on behalf of wallet owners
type Executor interface {
	Execute(ctx context.Context, req Request) (*ledger.Receipt, error)
}

// Request is an execute message sent by Sender through Wallet
type Request struct {
	Sender ids.ShortID
	Wallet ids.ShortID
	Msg    *payload.ExecuteMsg
}

// Gateway maps proxy wallets to their owners and forwards execute messages
// to the ledger. It never retries.
type Gateway struct {
	log    log.Logger
	ledger Ledger

	lock   sync.RWMutex
	owners map[ids.ShortID]ids.ShortID
}

// New creates a gateway. wallets maps each proxy wallet to its owner.
func New(logger log.Logger, l Ledger, wallets map[ids.ShortID]ids.ShortID) *Gateway {
	if logger == nil {
		logger = log.NewNoOpLogger()
	}
	owners := make(map[ids.ShortID]ids.ShortID, len(wallets))
	for wallet, owner := range wallets {
		owners[wallet] = owner
	}
	return &Gateway{
		log:    logger,
		ledger: l,
		owners: owners,
	}
}

// Register adds a proxy wallet owned by owner
func (g *Gateway) Register(wallet, owner ids.ShortID) error {
	g.lock.Lock()
	defer g.lock.Unlock()

	if _, ok := g.owners[wallet]; ok {
		return fmt.Errorf("%w: %s", errWalletExists, wallet)
	}
	g.owners[wallet] = owner
	return nil
}

// Owner returns the owner of wallet
func (g *Gateway) Owner(wallet ids.ShortID) (ids.ShortID, bool) {
	g.lock.RLock()
	defer g.lock.RUnlock()

	owner, ok := g.owners[wallet]
	return owner, ok
}

// Execute authenticates the sender and forwards the message with the wallet
// as subject.
func (g *Gateway) Execute(ctx context.Context, req Request) (*ledger.Receipt, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if req.Msg == nil {
		return nil, fmt.Errorf("%w: %w", transform.ErrInvalidRequest, errMissingMsg)
	}
	if err := req.Msg.Verify(); err != nil {
		return nil, err
	}

	owner, ok := g.Owner(req.Wallet)
	if !ok || owner != req.Sender {
		g.log.Warn("unauthorized execute",
			log.Stringer("sender", req.Sender),
			log.Stringer("wallet", req.Wallet),
		)
		return nil, fmt.Errorf("%w: sender %s, wallet %s", ErrUnauthorized, req.Sender, req.Wallet)
	}

	switch {
	case req.Msg.Transform != nil:
		return g.ledger.Transform(ledger.TransformRequest{
			Subject: req.Wallet,
			Proof:   req.Msg.Transform.Proof,
			Amount:  req.Msg.Transform.Amount.Uint256(),
		})
	default:
		return g.ledger.Revert(ledger.RevertRequest{
			Subject: req.Wallet,
			Proof:   req.Msg.Burn.Proof,
			Amount:  req.Msg.Burn.Amount.Uint256(),
		})
	}
}
