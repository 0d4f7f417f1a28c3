// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package transform

import (
	"github.com/luxfi/crypto/secp256k1"
	"github.com/luxfi/ids"
)

var _ Signer = (*signer)(nil)

// Signer produces proofs. Proof generation happens off the ledger; the ledger
// only ever verifies.
type Signer interface {
	// Address is the signer address embedded in every proof this signer makes
	Address() ids.ShortID

	// Sign authorizes one conversion for subject at nonce
	Sign(subject ids.ShortID, nonce uint64) (*Proof, error)
}

// NewSigner creates a new proof signer
func NewSigner(sk *secp256k1.PrivateKey) Signer {
	return &signer{
		sk:   sk,
		addr: sk.PublicKey().Address(),
	}
}

type signer struct {
	sk   *secp256k1.PrivateKey
	addr ids.ShortID
}

func (s *signer) Address() ids.ShortID {
	return s.addr
}

func (s *signer) Sign(subject ids.ShortID, nonce uint64) (*Proof, error) {
	unsigned := NewUnsignedProof(s.addr, subject, nonce)
	sig, err := s.sk.SignHash(unsigned.Hash())
	if err != nil {
		return nil, err
	}
	return NewProof(unsigned, sig)
}
