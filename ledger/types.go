// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package ledger

import (
	"github.com/holiman/uint256"
	"github.com/luxfi/ids"

	"github.com/luxfi/transform"
)

// Op identifies the direction of a conversion
type Op uint8

const (
	// OpTransform moves wrapped balance into backing custody
	OpTransform Op = iota
	// OpRevert moves backing custody back into wrapped balance
	OpRevert
)

func (o Op) String() string {
	switch o {
	case OpTransform:
		return "transform"
	case OpRevert:
		return "revert"
	default:
		return "unknown"
	}
}

// TransformRequest converts Amount of the subject's wrapped balance into
// backing custody. Subject is supplied by the gateway, not by the end user.
type TransformRequest struct {
	Subject ids.ShortID
	Proof   *transform.Proof
	Amount  *uint256.Int
}

// RevertRequest converts Amount of the subject's backing custody back into
// wrapped balance.
type RevertRequest struct {
	Subject ids.ShortID
	Proof   *transform.Proof
	Amount  *uint256.Int
}

// Receipt records a committed conversion. Wrapped and Backing are the
// subject's balances after the commit.
type Receipt struct {
	Op       Op
	Subject  ids.ShortID
	Signer   ids.ShortID
	Amount   *uint256.Int
	NewNonce uint64
	Wrapped  *uint256.Int
	Backing  *uint256.Int
}

// Allocation seeds the ledger at startup.
type Allocation struct {
	Address ids.ShortID
	Wrapped *uint256.Int
	Backing *uint256.Int
	Nonce   uint64
}
