// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package ledger

import (
	"errors"

	"github.com/luxfi/database"
	"github.com/luxfi/ids"

	"github.com/luxfi/transform"
)

// nonceRegistry is the source of truth for the current nonce of each address.
// It is only reachable through a Ledger, which advances it inside the same
// versioned transaction as the balance update it gates.
type nonceRegistry struct {
	db database.Database
}

func newNonceRegistry(db database.Database) *nonceRegistry {
	return &nonceRegistry{db: db}
}

// current returns the stored nonce, or 0 for an unseen address.
func (r *nonceRegistry) current(addr ids.ShortID) (uint64, error) {
	nonce, err := database.GetUInt64(r.db, addr[:])
	if errors.Is(err, database.ErrNotFound) {
		return 0, nil
	}
	return nonce, err
}

// advance increments the nonce of addr by one and returns the new value.
func (r *nonceRegistry) advance(addr ids.ShortID) (uint64, error) {
	nonce, err := r.current(addr)
	if err != nil {
		return 0, err
	}
	next, err := transform.AddUint64(nonce, 1)
	if err != nil {
		return 0, err
	}
	return next, database.PutUInt64(r.db, addr[:], next)
}

func (r *nonceRegistry) set(addr ids.ShortID, nonce uint64) error {
	return database.PutUInt64(r.db, addr[:], nonce)
}
