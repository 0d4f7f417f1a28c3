// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package ledger

import (
	"math/rand"
	"sync"
	"testing"

	"github.com/holiman/uint256"
	"github.com/luxfi/crypto/secp256k1"
	"github.com/luxfi/database/memdb"
	"github.com/luxfi/ids"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/luxfi/transform"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type snapshot struct {
	nonce   uint64
	wrapped *uint256.Int
	backing *uint256.Int
}

type testEnv struct {
	ledger   *Ledger
	signer   transform.Signer
	subject  ids.ShortID
	registry *prometheus.Registry
}

func newTestEnv(t *testing.T, genesis ...Allocation) *testEnv {
	t.Helper()

	sk, err := secp256k1.NewPrivateKey()
	require.NoError(t, err)
	verifier, err := transform.NewProofVerifier(0)
	require.NoError(t, err)

	subject := ids.GenerateTestShortID()
	for i := range genesis {
		if genesis[i].Address == ids.ShortEmpty {
			genesis[i].Address = subject
		}
	}

	registry := prometheus.NewRegistry()
	l, err := New(memdb.New(), Config{
		Denom:      "inj",
		Verifier:   verifier,
		Genesis:    genesis,
		Registerer: registry,
	})
	require.NoError(t, err)

	return &testEnv{
		ledger:   l,
		signer:   transform.NewSigner(sk),
		subject:  subject,
		registry: registry,
	}
}

func (e *testEnv) snapshot(t *testing.T) snapshot {
	t.Helper()

	nonce, err := e.ledger.Nonce(e.subject)
	require.NoError(t, err)
	wrapped, err := e.ledger.WrappedBalance(e.subject)
	require.NoError(t, err)
	backing, err := e.ledger.BackingBalance(e.subject, "inj")
	require.NoError(t, err)
	return snapshot{nonce: nonce, wrapped: wrapped, backing: backing}
}

func (e *testEnv) proof(t *testing.T, nonce uint64) *transform.Proof {
	t.Helper()

	p, err := e.signer.Sign(e.subject, nonce)
	require.NoError(t, err)
	return p
}

func (e *testEnv) transform(t *testing.T, nonce, amount uint64) (*Receipt, error) {
	return e.ledger.Transform(TransformRequest{
		Subject: e.subject,
		Proof:   e.proof(t, nonce),
		Amount:  uint256.NewInt(amount),
	})
}

func (e *testEnv) revert(t *testing.T, nonce, amount uint64) (*Receipt, error) {
	return e.ledger.Revert(RevertRequest{
		Subject: e.subject,
		Proof:   e.proof(t, nonce),
		Amount:  uint256.NewInt(amount),
	})
}

func requireSnapshot(t *testing.T, expected snapshot, actual snapshot) {
	t.Helper()

	require.Equal(t, expected.nonce, actual.nonce)
	require.Equal(t, expected.wrapped.Dec(), actual.wrapped.Dec())
	require.Equal(t, expected.backing.Dec(), actual.backing.Dec())
}

func TestUnseenAddressDefaults(t *testing.T) {
	require := require.New(t)

	env := newTestEnv(t)
	addr := ids.GenerateTestShortID()

	nonce, err := env.ledger.Nonce(addr)
	require.NoError(err)
	require.Zero(nonce)

	wrapped, err := env.ledger.WrappedBalance(addr)
	require.NoError(err)
	require.True(wrapped.IsZero())

	backing, err := env.ledger.BackingBalance(addr, "inj")
	require.NoError(err)
	require.True(backing.IsZero())
}

// Scenario A: a proof for a future nonce is rejected and the nonce stays put.
func TestTransformFutureNonce(t *testing.T) {
	env := newTestEnv(t, Allocation{Wrapped: uint256.NewInt(100), Nonce: 5})
	before := env.snapshot(t)

	_, err := env.transform(t, 15, 30)
	require.ErrorIs(t, err, transform.ErrStaleOrFutureNonce)

	requireSnapshot(t, before, env.snapshot(t))
	require.Equal(t, uint64(5), env.snapshot(t).nonce)
}

// Scenarios B and C: transform then revert with consecutive nonces.
func TestTransformThenRevert(t *testing.T) {
	require := require.New(t)

	env := newTestEnv(t, Allocation{Wrapped: uint256.NewInt(100), Nonce: 5})

	receipt, err := env.transform(t, 5, 30)
	require.NoError(err)
	require.Equal(OpTransform, receipt.Op)
	require.Equal(env.subject, receipt.Subject)
	require.Equal(env.signer.Address(), receipt.Signer)
	require.Equal(uint64(6), receipt.NewNonce)
	require.Equal("30", receipt.Amount.Dec())
	require.Equal("70", receipt.Wrapped.Dec())
	require.Equal("30", receipt.Backing.Dec())
	requireSnapshot(t, snapshot{6, uint256.NewInt(70), uint256.NewInt(30)}, env.snapshot(t))

	receipt, err = env.revert(t, 6, 30)
	require.NoError(err)
	require.Equal(OpRevert, receipt.Op)
	require.Equal(uint64(7), receipt.NewNonce)
	require.Equal("100", receipt.Wrapped.Dec())
	require.Equal("0", receipt.Backing.Dec())
	requireSnapshot(t, snapshot{7, uint256.NewInt(100), uint256.NewInt(0)}, env.snapshot(t))
}

// Scenario D: reverting more than the custody is rejected without effect.
func TestRevertInsufficientCustody(t *testing.T) {
	env := newTestEnv(t, Allocation{Wrapped: uint256.NewInt(100), Backing: uint256.NewInt(10)})
	before := env.snapshot(t)

	_, err := env.revert(t, 0, 11)
	require.ErrorIs(t, err, transform.ErrInsufficientBalance)
	requireSnapshot(t, before, env.snapshot(t))
}

func TestTransformInsufficientBalance(t *testing.T) {
	env := newTestEnv(t, Allocation{Wrapped: uint256.NewInt(29)})
	before := env.snapshot(t)

	_, err := env.transform(t, 0, 30)
	require.ErrorIs(t, err, transform.ErrInsufficientBalance)
	requireSnapshot(t, before, env.snapshot(t))
}

func TestReplayRejected(t *testing.T) {
	require := require.New(t)

	env := newTestEnv(t, Allocation{Wrapped: uint256.NewInt(100)})
	proof := env.proof(t, 0)

	_, err := env.ledger.Transform(TransformRequest{Subject: env.subject, Proof: proof, Amount: uint256.NewInt(1)})
	require.NoError(err)
	before := env.snapshot(t)

	_, err = env.ledger.Transform(TransformRequest{Subject: env.subject, Proof: proof, Amount: uint256.NewInt(1)})
	require.ErrorIs(err, transform.ErrStaleOrFutureNonce)
	_, err = env.ledger.Revert(RevertRequest{Subject: env.subject, Proof: proof, Amount: uint256.NewInt(1)})
	require.ErrorIs(err, transform.ErrStaleOrFutureNonce)
	requireSnapshot(t, before, env.snapshot(t))
}

func TestRejectionsLeaveStateUnchanged(t *testing.T) {
	env := newTestEnv(t, Allocation{Wrapped: uint256.NewInt(50), Backing: uint256.NewInt(50), Nonce: 3})

	otherSubject, err := env.signer.Sign(ids.GenerateTestShortID(), 3)
	require.NoError(t, err)
	badSig := *env.proof(t, 3)
	badSig.Signature[5] ^= 0x01

	tests := []struct {
		name          string
		op            Op
		proof         *transform.Proof
		amount        *uint256.Int
		expectedError error
	}{
		{
			name:          "subject mismatch",
			op:            OpTransform,
			proof:         otherSubject,
			amount:        uint256.NewInt(1),
			expectedError: transform.ErrSubjectMismatch,
		},
		{
			name:          "stale nonce",
			op:            OpRevert,
			proof:         env.proof(t, 2),
			amount:        uint256.NewInt(1),
			expectedError: transform.ErrStaleOrFutureNonce,
		},
		{
			name:          "invalid signature",
			op:            OpTransform,
			proof:         &badSig,
			amount:        uint256.NewInt(1),
			expectedError: transform.ErrInvalidProof,
		},
		{
			name:          "missing proof",
			op:            OpRevert,
			proof:         nil,
			amount:        uint256.NewInt(1),
			expectedError: transform.ErrInvalidProof,
		},
		{
			name:          "missing amount",
			op:            OpTransform,
			proof:         env.proof(t, 3),
			amount:        nil,
			expectedError: transform.ErrInvalidAmount,
		},
		{
			name:          "transform exceeds wrapped",
			op:            OpTransform,
			proof:         env.proof(t, 3),
			amount:        uint256.NewInt(51),
			expectedError: transform.ErrInsufficientBalance,
		},
		{
			name:          "revert exceeds backing",
			op:            OpRevert,
			proof:         env.proof(t, 3),
			amount:        uint256.NewInt(51),
			expectedError: transform.ErrInsufficientBalance,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := env.snapshot(t)
			totalWrapped, totalBacking := env.ledger.Totals()

			var err error
			switch tt.op {
			case OpTransform:
				_, err = env.ledger.Transform(TransformRequest{Subject: env.subject, Proof: tt.proof, Amount: tt.amount})
			case OpRevert:
				_, err = env.ledger.Revert(RevertRequest{Subject: env.subject, Proof: tt.proof, Amount: tt.amount})
			}
			require.ErrorIs(t, err, tt.expectedError)

			requireSnapshot(t, before, env.snapshot(t))
			afterWrapped, afterBacking := env.ledger.Totals()
			require.Equal(t, totalWrapped, afterWrapped)
			require.Equal(t, totalBacking, afterBacking)
		})
	}
}

func TestZeroAmountConsumesNonce(t *testing.T) {
	env := newTestEnv(t)

	receipt, err := env.transform(t, 0, 0)
	require.NoError(t, err)
	require.Equal(t, uint64(1), receipt.NewNonce)
	requireSnapshot(t, snapshot{1, uint256.NewInt(0), uint256.NewInt(0)}, env.snapshot(t))
}

func TestOverflowRejected(t *testing.T) {
	maxAmount := new(uint256.Int).SetAllOne()
	env := newTestEnv(t, Allocation{Wrapped: uint256.NewInt(1), Backing: maxAmount})
	before := env.snapshot(t)

	_, err := env.transform(t, 0, 1)
	require.ErrorIs(t, err, transform.ErrOverflow)
	requireSnapshot(t, before, env.snapshot(t))
}

// Random sequences keep the nonce moving by exactly one per commit, conserve
// wrapped+backing, and never go negative.
func TestConservationProperty(t *testing.T) {
	require := require.New(t)

	const initial = 1_000
	env := newTestEnv(t, Allocation{Wrapped: uint256.NewInt(initial)})
	rng := rand.New(rand.NewSource(1)) //#nosec G404

	for i := 0; i < 200; i++ {
		before := env.snapshot(t)
		amount := uint64(rng.Intn(400))

		var (
			receipt *Receipt
			err     error
		)
		if rng.Intn(2) == 0 {
			receipt, err = env.transform(t, before.nonce, amount)
		} else {
			receipt, err = env.revert(t, before.nonce, amount)
		}
		after := env.snapshot(t)

		if err != nil {
			require.ErrorIs(err, transform.ErrInsufficientBalance)
			requireSnapshot(t, before, after)
			continue
		}

		require.Equal(before.nonce+1, after.nonce)
		require.Equal(after.nonce, receipt.NewNonce)

		// Δwrapped == -Δbacking
		sumBefore := new(uint256.Int).Add(before.wrapped, before.backing)
		sumAfter := new(uint256.Int).Add(after.wrapped, after.backing)
		require.Equal(sumBefore.Dec(), sumAfter.Dec())
		require.Equal(uint64(initial), sumAfter.Uint64())
	}

	totalWrapped, totalBacking := env.ledger.Totals()
	require.Equal(uint64(initial), new(uint256.Int).Add(totalWrapped, totalBacking).Uint64())
}

// Requests built against the same nonce race; exactly one commits.
func TestConcurrentSameNonce(t *testing.T) {
	require := require.New(t)

	env := newTestEnv(t, Allocation{Wrapped: uint256.NewInt(100)})
	proof := env.proof(t, 0)

	const workers = 16
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.ledger.Transform(TransformRequest{
				Subject: env.subject,
				Proof:   proof,
				Amount:  uint256.NewInt(10),
			})
			if err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	require.Equal(1, successes)
	requireSnapshot(t, snapshot{1, uint256.NewInt(90), uint256.NewInt(10)}, env.snapshot(t))
}

func TestSubjectsAreIndependent(t *testing.T) {
	require := require.New(t)

	env := newTestEnv(t, Allocation{Wrapped: uint256.NewInt(10)})
	other := ids.GenerateTestShortID()

	_, err := env.transform(t, 0, 5)
	require.NoError(err)

	nonce, err := env.ledger.Nonce(other)
	require.NoError(err)
	require.Zero(nonce)

	proof, err := env.signer.Sign(other, 0)
	require.NoError(err)
	_, err = env.ledger.Transform(TransformRequest{Subject: other, Proof: proof, Amount: uint256.NewInt(1)})
	require.ErrorIs(err, transform.ErrInsufficientBalance)

	nonce, err = env.ledger.Nonce(other)
	require.NoError(err)
	require.Zero(nonce)
}

func TestBackingBalanceUnknownDenom(t *testing.T) {
	env := newTestEnv(t)
	require.Equal(t, "inj", env.ledger.Denom())

	_, err := env.ledger.BackingBalance(env.subject, "atom")
	require.ErrorIs(t, err, ErrUnknownDenom)
}

func TestGenesis(t *testing.T) {
	verifier, err := transform.NewProofVerifier(0)
	require.NoError(t, err)
	addr := ids.GenerateTestShortID()
	maxAmount := new(uint256.Int).SetAllOne()

	tests := []struct {
		name          string
		genesis       []Allocation
		expectedError error
	}{
		{
			name: "valid",
			genesis: []Allocation{
				{Address: addr, Wrapped: uint256.NewInt(1), Backing: uint256.NewInt(2), Nonce: 3},
				{Address: ids.GenerateTestShortID()},
			},
		},
		{
			name: "duplicate",
			genesis: []Allocation{
				{Address: addr},
				{Address: addr},
			},
			expectedError: ErrDuplicateGenesis,
		},
		{
			name: "total overflow",
			genesis: []Allocation{
				{Address: addr, Wrapped: maxAmount},
				{Address: ids.GenerateTestShortID(), Wrapped: uint256.NewInt(1)},
			},
			expectedError: transform.ErrOverflow,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(memdb.New(), Config{Verifier: verifier, Genesis: tt.genesis})
			require.ErrorIs(t, err, tt.expectedError)
		})
	}
}

func TestNewValidation(t *testing.T) {
	verifier, err := transform.NewProofVerifier(0)
	require.NoError(t, err)

	_, err = New(nil, Config{Verifier: verifier})
	require.ErrorIs(t, err, errMissingDatabase)

	_, err = New(memdb.New(), Config{})
	require.ErrorIs(t, err, ErrMissingVerifier)

	l, err := New(memdb.New(), Config{Verifier: verifier})
	require.NoError(t, err)
	require.Equal(t, DefaultDenom, l.Denom())
	require.NoError(t, l.HealthCheck())
}

func TestMetrics(t *testing.T) {
	require := require.New(t)

	env := newTestEnv(t, Allocation{Wrapped: uint256.NewInt(100)})

	_, err := env.transform(t, 0, 40)
	require.NoError(err)
	_, err = env.transform(t, 0, 40)
	require.ErrorIs(err, transform.ErrStaleOrFutureNonce)
	_, err = env.revert(t, 1, 50)
	require.ErrorIs(err, transform.ErrInsufficientBalance)

	m := env.ledger.metrics
	require.InDelta(1, testutil.ToFloat64(m.committed.WithLabelValues("transform")), 0)
	require.InDelta(1, testutil.ToFloat64(m.rejected.WithLabelValues("transform", "stale_or_future_nonce")), 0)
	require.InDelta(1, testutil.ToFloat64(m.rejected.WithLabelValues("revert", "insufficient_balance")), 0)
	require.InDelta(60, testutil.ToFloat64(m.totalWrapped), 0)
	require.InDelta(40, testutil.ToFloat64(m.totalBacking), 0)
}
