// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package ledger

import (
	"errors"

	"github.com/holiman/uint256"
	"github.com/luxfi/database"
	"github.com/luxfi/ids"
)

// balanceStore maps an address to an unsigned amount. Unseen addresses hold 0.
type balanceStore struct {
	db database.Database
}

func newBalanceStore(db database.Database) *balanceStore {
	return &balanceStore{db: db}
}

func (s *balanceStore) get(addr ids.ShortID) (*uint256.Int, error) {
	b, err := s.db.Get(addr[:])
	if errors.Is(err, database.ErrNotFound) {
		return new(uint256.Int), nil
	}
	if err != nil {
		return nil, err
	}
	return new(uint256.Int).SetBytes(b), nil
}

func (s *balanceStore) put(addr ids.ShortID, amount *uint256.Int) error {
	b := amount.Bytes32()
	return s.db.Put(addr[:], b[:])
}
