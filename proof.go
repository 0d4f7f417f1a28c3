// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package transform

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/luxfi/crypto/secp256k1"
	"github.com/luxfi/geth/common/hexutil"
	"github.com/luxfi/ids"
)

const (
	// SignatureLen is the length of a recoverable secp256k1 signature
	SignatureLen = secp256k1.SignatureLen

	// MaxProofSize bounds the encoded size of a proof
	MaxProofSize = 256
)

var errMalformedProof = errors.New("malformed proof")

// UnsignedProof is the statement a proof signer attests to: that [Subject]
// may perform exactly one conversion at [Nonce].
type UnsignedProof struct {
	Signer  ids.ShortID `serialize:"true"`
	Subject ids.ShortID `serialize:"true"`
	Nonce   uint64      `serialize:"true"`
}

// NewUnsignedProof creates a new unsigned proof
func NewUnsignedProof(signer, subject ids.ShortID, nonce uint64) *UnsignedProof {
	return &UnsignedProof{
		Signer:  signer,
		Subject: subject,
		Nonce:   nonce,
	}
}

// Bytes returns the canonical encoding that is hashed and signed
func (u *UnsignedProof) Bytes() []byte {
	b, _ := Codec.Marshal(CodecVersion, u)
	return b
}

// Hash returns the digest a signature over this proof commits to
func (u *UnsignedProof) Hash() []byte {
	return ComputeHash256(u.Bytes())
}

// ID returns the hash of the unsigned proof
func (u *UnsignedProof) ID() ids.ID {
	return ids.ID(ComputeHash256Array(u.Bytes()))
}

// Proof is an immutable, signed authorization for a single transform or
// revert. It carries no amount.
type Proof struct {
	UnsignedProof `serialize:"true"`
	Signature     [SignatureLen]byte `serialize:"true"`
}

// NewProof attaches a signature to an unsigned proof
func NewProof(unsigned *UnsignedProof, signature []byte) (*Proof, error) {
	if len(signature) != SignatureLen {
		return nil, fmt.Errorf("%w: signature length %d, expected %d", errMalformedProof, len(signature), SignatureLen)
	}
	p := &Proof{UnsignedProof: *unsigned}
	copy(p.Signature[:], signature)
	return p, nil
}

// Bytes returns the byte representation of the proof
func (p *Proof) Bytes() []byte {
	b, _ := Codec.Marshal(CodecVersion, p)
	return b
}

// ParseProof parses a proof from bytes
func ParseProof(b []byte) (*Proof, error) {
	if len(b) > MaxProofSize {
		return nil, fmt.Errorf("%w: size %d exceeds maximum %d", errMalformedProof, len(b), MaxProofSize)
	}
	p := &Proof{}
	if _, err := Codec.Unmarshal(b, p); err != nil {
		return nil, fmt.Errorf("failed to unmarshal proof: %w", err)
	}
	return p, nil
}

// ParseUnsignedProof parses an unsigned proof from bytes
func ParseUnsignedProof(b []byte) (*UnsignedProof, error) {
	u := &UnsignedProof{}
	if _, err := Codec.Unmarshal(b, u); err != nil {
		return nil, fmt.Errorf("failed to unmarshal unsigned proof: %w", err)
	}
	return u, nil
}

// Equal returns true if two proofs are equal
func (p *Proof) Equal(other *Proof) bool {
	if p == nil || other == nil {
		return p == other
	}
	return p.UnsignedProof == other.UnsignedProof && p.Signature == other.Signature
}

type jsonProof struct {
	Signer    ids.ShortID   `json:"signer"`
	Subject   ids.ShortID   `json:"subject"`
	Nonce     json.Number   `json:"nonce"`
	Signature hexutil.Bytes `json:"signature"`
}

// MarshalJSON encodes the signature as 0x prefixed hex.
func (p Proof) MarshalJSON() ([]byte, error) {
	return json.Marshal(jsonProof{
		Signer:    p.Signer,
		Subject:   p.Subject,
		Nonce:     json.Number(strconv.FormatUint(p.Nonce, 10)),
		Signature: p.Signature[:],
	})
}

// UnmarshalJSON accepts the nonce as a JSON number or a decimal string.
func (p *Proof) UnmarshalJSON(b []byte) error {
	var j jsonProof
	if err := json.Unmarshal(b, &j); err != nil {
		return err
	}
	nonce, err := parseNonce(j.Nonce)
	if err != nil {
		return err
	}
	parsed, err := NewProof(NewUnsignedProof(j.Signer, j.Subject, nonce), j.Signature)
	if err != nil {
		return err
	}
	*p = *parsed
	return nil
}

func parseNonce(n json.Number) (uint64, error) {
	nonce, err := strconv.ParseUint(string(n), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: nonce %q", errMalformedProof, n)
	}
	return nonce, nil
}
