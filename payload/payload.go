// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package payload defines the execute messages a proxy wallet forwards to the
// ledger.
package payload

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/holiman/uint256"

	"github.com/luxfi/transform"
)

// MaxMessageSize bounds an encoded execute message
const MaxMessageSize = 4 * 1024

var (
	// ErrInvalidPayload is returned when a message is malformed
	ErrInvalidPayload = fmt.Errorf("%w: invalid payload", transform.ErrInvalidRequest)

	errNoVariant       = errors.New("message has no variant")
	errManyVariants    = errors.New("message has more than one variant")
	errMissingProof    = errors.New("missing proof")
	errMissingAmount   = errors.New("missing amount")
	errNonPositive     = errors.New("amount must be positive")
	errUnquotedAmount  = errors.New("amount must be a decimal string")
	errMessageTooLarge = errors.New("message too large")
)

// Payload is an interface for execute message variants
type Payload interface {
	// Bytes returns the JSON representation of the payload
	Bytes() []byte

	// Verify verifies the payload
	Verify() error
}

// Amount is a uint256 carried as a decimal string
type Amount struct {
	uint256.Int
}

// NewAmount returns an Amount holding v
func NewAmount(v uint64) *Amount {
	a := &Amount{}
	a.SetUint64(v)
	return a
}

// ParseAmount parses a base 10 amount
func ParseAmount(s string) (*Amount, error) {
	v, err := uint256.FromDecimal(s)
	if err != nil {
		return nil, fmt.Errorf("%w: amount %q: %w", ErrInvalidPayload, s, err)
	}
	return &Amount{Int: *v}, nil
}

// Uint256 returns a copy of the amount
func (a *Amount) Uint256() *uint256.Int {
	return new(uint256.Int).Set(&a.Int)
}

// MarshalJSON implements json.Marshaler
func (a Amount) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.Dec())
}

// UnmarshalJSON implements json.Unmarshaler
func (a *Amount) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidPayload, errUnquotedAmount)
	}
	parsed, err := ParseAmount(s)
	if err != nil {
		return err
	}
	*a = *parsed
	return nil
}

// Transform converts wrapped balance of the calling wallet into backing
// custody.
type Transform struct {
	Proof  *transform.Proof `json:"proof"`
	Amount *Amount          `json:"amount"`
}

// NewTransform creates a new transform payload
func NewTransform(proof *transform.Proof, amount *uint256.Int) (*Transform, error) {
	t := &Transform{Proof: proof, Amount: fromUint256(amount)}
	if err := t.Verify(); err != nil {
		return nil, err
	}
	return t, nil
}

// Verify verifies the transform payload
func (t *Transform) Verify() error {
	return verifyFields(t.Proof, t.Amount)
}

// Bytes returns the byte representation of the payload
func (t *Transform) Bytes() []byte {
	return ExecuteMsg{Transform: t}.Bytes()
}

// Burn releases backing custody of the calling wallet back into wrapped
// balance.
type Burn struct {
	Amount *Amount          `json:"amount"`
	Proof  *transform.Proof `json:"proof"`
}

// NewBurn creates a new burn payload
func NewBurn(proof *transform.Proof, amount *uint256.Int) (*Burn, error) {
	b := &Burn{Proof: proof, Amount: fromUint256(amount)}
	if err := b.Verify(); err != nil {
		return nil, err
	}
	return b, nil
}

// Verify verifies the burn payload
func (b *Burn) Verify() error {
	return verifyFields(b.Proof, b.Amount)
}

// Bytes returns the byte representation of the payload
func (b *Burn) Bytes() []byte {
	return ExecuteMsg{Burn: b}.Bytes()
}

// ExecuteMsg is the envelope the gateway accepts. Exactly one field is set.
type ExecuteMsg struct {
	Transform *Transform `json:"transform,omitempty"`
	Burn      *Burn      `json:"burn,omitempty"`
}

// Verify verifies the envelope and its variant
func (m ExecuteMsg) Verify() error {
	switch {
	case m.Transform != nil && m.Burn != nil:
		return fmt.Errorf("%w: %w", ErrInvalidPayload, errManyVariants)
	case m.Transform != nil:
		return m.Transform.Verify()
	case m.Burn != nil:
		return m.Burn.Verify()
	default:
		return fmt.Errorf("%w: %w", ErrInvalidPayload, errNoVariant)
	}
}

// Payload returns the variant that is set, or nil
func (m ExecuteMsg) Payload() Payload {
	switch {
	case m.Transform != nil:
		return m.Transform
	case m.Burn != nil:
		return m.Burn
	default:
		return nil
	}
}

// Bytes returns the JSON encoding of the message
func (m ExecuteMsg) Bytes() []byte {
	b, _ := json.Marshal(m)
	return b
}

// ParseExecuteMsg decodes and verifies an execute message
func ParseExecuteMsg(b []byte) (*ExecuteMsg, error) {
	if len(b) > MaxMessageSize {
		return nil, fmt.Errorf("%w: %w: %d bytes", ErrInvalidPayload, errMessageTooLarge, len(b))
	}
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.DisallowUnknownFields()

	m := &ExecuteMsg{}
	if err := dec.Decode(m); err != nil {
		if errors.Is(err, ErrInvalidPayload) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", ErrInvalidPayload, err)
	}
	if err := m.Verify(); err != nil {
		return nil, err
	}
	return m, nil
}

func verifyFields(proof *transform.Proof, amount *Amount) error {
	if proof == nil {
		return fmt.Errorf("%w: %w", ErrInvalidPayload, errMissingProof)
	}
	if amount == nil {
		return fmt.Errorf("%w: %w", ErrInvalidPayload, errMissingAmount)
	}
	if amount.IsZero() {
		return fmt.Errorf("%w: %w", transform.ErrInvalidAmount, errNonPositive)
	}
	return nil
}

func fromUint256(v *uint256.Int) *Amount {
	if v == nil {
		return nil
	}
	return &Amount{Int: *v}
}
