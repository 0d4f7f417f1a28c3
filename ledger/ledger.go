// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package ledger holds wrapped balances, backing custody and proof nonces, and
// applies transform and revert requests to them as single atomic units.
package ledger

import (
	"errors"
	"fmt"
	"sync"

	"github.com/holiman/uint256"
	"github.com/luxfi/database"
	"github.com/luxfi/database/prefixdb"
	"github.com/luxfi/database/versiondb"
	"github.com/luxfi/ids"
	"github.com/luxfi/log"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/luxfi/transform"
)

// DefaultDenom is the backing asset denomination used when none is configured
const DefaultDenom = "lux"

var (
	ErrUnknownDenom     = transform.ErrUnknownDenom
	ErrDuplicateGenesis = errors.New("duplicate genesis allocation")
	ErrMissingVerifier  = errors.New("missing proof verifier")
	errMissingDatabase  = errors.New("missing database")
	errAlreadyAllocated = errors.New("address already has state")

	noncePrefix   = []byte("nonce")
	wrappedPrefix = []byte("wrapped")
	backingPrefix = []byte("backing")
)

// Config configures a Ledger
type Config struct {
	// Denom names the single backing asset held in custody
	Denom string
	// Verifier checks proofs; required
	Verifier transform.Verifier
	// Genesis seeds balances and nonces when the ledger is created
	Genesis []Allocation
	Log     log.Logger
	// Registerer receives the ledger metrics; nil keeps them in a private registry
	Registerer prometheus.Registerer
}

// Ledger is the transform/revert state machine. Every request moves from
// idle through proof verification and balance checks to commit; a failure at
// any step aborts the pending versioned write set, so nothing is observable.
type Ledger struct {
	// lock serializes writers. Readers hold it shared so they never see the
	// base database mid-commit.
	lock sync.RWMutex

	db       database.Database
	denom    string
	verifier transform.Verifier
	log      log.Logger
	metrics  *metrics

	totalWrapped *uint256.Int
	totalBacking *uint256.Int
}

// New creates a ledger over db and applies the configured genesis.
func New(db database.Database, cfg Config) (*Ledger, error) {
	if db == nil {
		return nil, errMissingDatabase
	}
	if cfg.Verifier == nil {
		return nil, ErrMissingVerifier
	}
	if cfg.Denom == "" {
		cfg.Denom = DefaultDenom
	}
	if cfg.Log == nil {
		cfg.Log = log.NewNoOpLogger()
	}
	registerer := cfg.Registerer
	if registerer == nil {
		registerer = prometheus.NewRegistry()
	}
	m, err := newMetrics(registerer)
	if err != nil {
		return nil, fmt.Errorf("failed to register metrics: %w", err)
	}

	l := &Ledger{
		db:           db,
		denom:        cfg.Denom,
		verifier:     cfg.Verifier,
		log:          cfg.Log,
		metrics:      m,
		totalWrapped: new(uint256.Int),
		totalBacking: new(uint256.Int),
	}
	if err := l.applyGenesis(cfg.Genesis); err != nil {
		return nil, fmt.Errorf("failed to apply genesis: %w", err)
	}
	l.metrics.setTotals(l.totalWrapped, l.totalBacking)
	return l, nil
}

// Transform converts wrapped balance into backing custody.
func (l *Ledger) Transform(req TransformRequest) (*Receipt, error) {
	return l.execute(OpTransform, req.Subject, req.Proof, req.Amount)
}

// Revert converts backing custody back into wrapped balance.
func (l *Ledger) Revert(req RevertRequest) (*Receipt, error) {
	return l.execute(OpRevert, req.Subject, req.Proof, req.Amount)
}

func (l *Ledger) execute(op Op, subject ids.ShortID, proof *transform.Proof, amount *uint256.Int) (*Receipt, error) {
	l.lock.Lock()
	defer l.lock.Unlock()

	receipt, err := l.apply(op, subject, proof, amount)
	if err != nil {
		l.metrics.markRejected(op, err)
		l.log.Debug("rejected conversion",
			log.Stringer("op", op),
			log.Stringer("subject", subject),
			log.Err(err),
		)
		return nil, err
	}

	l.metrics.markCommitted(op, l.totalWrapped, l.totalBacking)
	l.log.Info("committed conversion",
		log.Stringer("op", op),
		log.Stringer("subject", subject),
		log.Stringer("signer", receipt.Signer),
		log.String("amount", amount.Dec()),
		log.Uint64("nonce", receipt.NewNonce),
	)
	return receipt, nil
}

// apply must be called with the write lock held.
func (l *Ledger) apply(op Op, subject ids.ShortID, proof *transform.Proof, amount *uint256.Int) (*Receipt, error) {
	if amount == nil {
		return nil, fmt.Errorf("%w: missing amount", transform.ErrInvalidAmount)
	}

	tx := newTx(l.db)
	defer tx.abort()

	nonce, err := tx.nonces.current(subject)
	if err != nil {
		return nil, err
	}
	signer, err := l.verifier.Verify(proof, subject, nonce)
	if err != nil {
		return nil, err
	}

	from, to := tx.wrapped, tx.backing
	if op == OpRevert {
		from, to = tx.backing, tx.wrapped
	}
	fromBalance, err := from.get(subject)
	if err != nil {
		return nil, err
	}
	if fromBalance.Lt(amount) {
		return nil, fmt.Errorf("%w: %s balance %s < %s", transform.ErrInsufficientBalance, op, fromBalance.Dec(), amount.Dec())
	}
	toBalance, err := to.get(subject)
	if err != nil {
		return nil, err
	}
	newTo, overflow := new(uint256.Int).AddOverflow(toBalance, amount)
	if overflow {
		return nil, fmt.Errorf("%w: %s destination balance", transform.ErrOverflow, op)
	}
	newFrom := new(uint256.Int).Sub(fromBalance, amount)

	if err := from.put(subject, newFrom); err != nil {
		return nil, err
	}
	if err := to.put(subject, newTo); err != nil {
		return nil, err
	}
	newNonce, err := tx.nonces.advance(subject)
	if err != nil {
		return nil, err
	}
	if err := tx.commit(); err != nil {
		return nil, fmt.Errorf("failed to commit %s: %w", op, err)
	}

	var wrapped, backing *uint256.Int
	if op == OpTransform {
		l.totalWrapped.Sub(l.totalWrapped, amount)
		l.totalBacking.Add(l.totalBacking, amount)
		wrapped, backing = newFrom, newTo
	} else {
		l.totalBacking.Sub(l.totalBacking, amount)
		l.totalWrapped.Add(l.totalWrapped, amount)
		wrapped, backing = newTo, newFrom
	}
	return &Receipt{
		Op:       op,
		Subject:  subject,
		Signer:   signer,
		Amount:   new(uint256.Int).Set(amount),
		NewNonce: newNonce,
		Wrapped:  wrapped,
		Backing:  backing,
	}, nil
}

// Nonce returns the nonce the next proof for addr must carry.
func (l *Ledger) Nonce(addr ids.ShortID) (uint64, error) {
	l.lock.RLock()
	defer l.lock.RUnlock()

	return newNonceRegistry(prefixdb.New(noncePrefix, l.db)).current(addr)
}

// WrappedBalance returns the outstanding wrapped balance of addr.
func (l *Ledger) WrappedBalance(addr ids.ShortID) (*uint256.Int, error) {
	l.lock.RLock()
	defer l.lock.RUnlock()

	return newBalanceStore(prefixdb.New(wrappedPrefix, l.db)).get(addr)
}

// BackingBalance returns the backing asset held in custody for addr.
func (l *Ledger) BackingBalance(addr ids.ShortID, denom string) (*uint256.Int, error) {
	if denom != l.denom {
		return nil, fmt.Errorf("%w: %q", ErrUnknownDenom, denom)
	}

	l.lock.RLock()
	defer l.lock.RUnlock()

	return newBalanceStore(prefixdb.New(backingPrefix, l.db)).get(addr)
}

// Denom returns the backing asset denomination.
func (l *Ledger) Denom() string {
	return l.denom
}

// Totals returns the wrapped and backing sums across all addresses.
func (l *Ledger) Totals() (*uint256.Int, *uint256.Int) {
	l.lock.RLock()
	defer l.lock.RUnlock()

	return new(uint256.Int).Set(l.totalWrapped), new(uint256.Int).Set(l.totalBacking)
}

// HealthCheck reports whether the underlying database is readable.
func (l *Ledger) HealthCheck() error {
	l.lock.RLock()
	defer l.lock.RUnlock()

	_, err := l.db.Has(noncePrefix)
	return err
}

func (l *Ledger) applyGenesis(allocations []Allocation) error {
	tx := newTx(l.db)
	defer tx.abort()

	totalWrapped, totalBacking := new(uint256.Int), new(uint256.Int)
	seen := make(map[ids.ShortID]struct{}, len(allocations))
	for _, a := range allocations {
		if _, ok := seen[a.Address]; ok {
			return fmt.Errorf("%w: %s", ErrDuplicateGenesis, a.Address)
		}
		seen[a.Address] = struct{}{}

		wrapped, backing := orZero(a.Wrapped), orZero(a.Backing)
		if _, overflow := totalWrapped.AddOverflow(totalWrapped, wrapped); overflow {
			return fmt.Errorf("%w: total wrapped", transform.ErrOverflow)
		}
		if _, overflow := totalBacking.AddOverflow(totalBacking, backing); overflow {
			return fmt.Errorf("%w: total backing", transform.ErrOverflow)
		}
		if err := tx.allocate(a.Address, wrapped, backing, a.Nonce); err != nil {
			return err
		}
	}
	if err := tx.commit(); err != nil {
		return err
	}

	l.totalWrapped = totalWrapped
	l.totalBacking = totalBacking
	if len(allocations) > 0 {
		l.log.Info("applied genesis",
			log.Int("allocations", len(allocations)),
			log.String("wrapped", totalWrapped.Dec()),
			log.String("backing", totalBacking.Dec()),
		)
	}
	return nil
}

func orZero(v *uint256.Int) *uint256.Int {
	if v == nil {
		return new(uint256.Int)
	}
	return v
}

// tx is a pending write set layered over the ledger database.
type tx struct {
	vdb     *versiondb.Database
	nonces  *nonceRegistry
	wrapped *balanceStore
	backing *balanceStore
}

func newTx(db database.Database) *tx {
	vdb := versiondb.New(db)
	return &tx{
		vdb:     vdb,
		nonces:  newNonceRegistry(prefixdb.New(noncePrefix, vdb)),
		wrapped: newBalanceStore(prefixdb.New(wrappedPrefix, vdb)),
		backing: newBalanceStore(prefixdb.New(backingPrefix, vdb)),
	}
}

func (t *tx) allocate(addr ids.ShortID, wrapped, backing *uint256.Int, nonce uint64) error {
	existing, err := t.nonces.db.Has(addr[:])
	if err != nil {
		return err
	}
	if existing {
		return fmt.Errorf("%w: %s", errAlreadyAllocated, addr)
	}
	if err := t.nonces.set(addr, nonce); err != nil {
		return err
	}
	if err := t.wrapped.put(addr, wrapped); err != nil {
		return err
	}
	return t.backing.put(addr, backing)
}

func (t *tx) commit() error {
	return t.vdb.Commit()
}

// abort drops any uncommitted writes. Safe after commit.
func (t *tx) abort() {
	t.vdb.Abort()
}
