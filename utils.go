// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package transform

import (
	"math"

	"github.com/luxfi/crypto/hash"
)

// AddUint64 adds two uint64 values and returns an error if overflow
func AddUint64(a, b uint64) (uint64, error) {
	if a > math.MaxUint64-b {
		return 0, ErrOverflow
	}
	return a + b, nil
}

// ComputeHash256 computes SHA256 hash
func ComputeHash256(data []byte) []byte {
	return hash.ComputeHash256(data)
}

// ComputeHash256Array computes SHA256 hash as a fixed array
func ComputeHash256Array(data []byte) [32]byte {
	var h [32]byte
	copy(h[:], hash.ComputeHash256(data))
	return h
}
