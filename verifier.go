// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package transform

import (
	"fmt"

	"github.com/luxfi/crypto/secp256k1"
	"github.com/luxfi/ids"
	"github.com/luxfi/math/set"

	"github.com/luxfi/transform/cache"
)

// DefaultRecoverCacheSize is the number of recovered signer addresses kept by
// a [ProofVerifier] when no size is configured.
const DefaultRecoverCacheSize = 1024

var _ Verifier = (*ProofVerifier)(nil)

// Verifier checks that a proof authorizes a conversion for subject at nonce.
type Verifier interface {
	// Verify returns the proof signer on success. Checks run in order:
	// subject, nonce, then signature; the first failing check decides the
	// error.
	Verify(proof *Proof, expectedSubject ids.ShortID, expectedNonce uint64) (ids.ShortID, error)
}

// ProofVerifier verifies recoverable secp256k1 proofs.
//
// Public key recovery is memoised by (digest, signature). The memo never
// changes a result, so Verify stays deterministic for identical inputs.
type ProofVerifier struct {
	trusted   set.Set[ids.ShortID]
	recovered *cache.LRUCache[[32]byte, ids.ShortID]
}

// NewProofVerifier returns a verifier. If trusted is non-empty, only proofs
// signed by one of those addresses are accepted.
func NewProofVerifier(cacheSize int, trusted ...ids.ShortID) (*ProofVerifier, error) {
	if cacheSize <= 0 {
		cacheSize = DefaultRecoverCacheSize
	}
	recovered, err := cache.NewLRUCache[[32]byte, ids.ShortID](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create recover cache: %w", err)
	}
	return &ProofVerifier{
		trusted:   set.Of(trusted...),
		recovered: recovered,
	}, nil
}

func (v *ProofVerifier) Verify(proof *Proof, expectedSubject ids.ShortID, expectedNonce uint64) (ids.ShortID, error) {
	if proof == nil {
		return ids.ShortEmpty, fmt.Errorf("%w: missing proof", ErrInvalidProof)
	}
	if proof.Subject != expectedSubject {
		return ids.ShortEmpty, fmt.Errorf("%w: expected %s, got %s", ErrSubjectMismatch, expectedSubject, proof.Subject)
	}
	if proof.Nonce != expectedNonce {
		return ids.ShortEmpty, fmt.Errorf("%w: expected %d, got %d", ErrStaleOrFutureNonce, expectedNonce, proof.Nonce)
	}

	digest := proof.Hash()
	signer, err := v.recover(digest, proof.Signature)
	if err != nil {
		return ids.ShortEmpty, fmt.Errorf("%w: %w", ErrInvalidProof, err)
	}
	if signer != proof.Signer {
		return ids.ShortEmpty, fmt.Errorf("%w: signed by %s, claimed %s", ErrInvalidProof, signer, proof.Signer)
	}
	if v.trusted.Len() > 0 && !v.trusted.Contains(signer) {
		return ids.ShortEmpty, fmt.Errorf("%w: untrusted signer %s", ErrInvalidProof, signer)
	}
	return signer, nil
}

func (v *ProofVerifier) recover(digest []byte, sig [SignatureLen]byte) (ids.ShortID, error) {
	key := ComputeHash256Array(append(append([]byte{}, digest...), sig[:]...))
	return v.recovered.Get(key, func([32]byte) (ids.ShortID, error) {
		pk, err := secp256k1.RecoverPublicKeyFromHash(digest, sig[:])
		if err != nil {
			return ids.ShortEmpty, err
		}
		return pk.Address(), nil
	}, false)
}
