// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package ledger

import (
	"github.com/holiman/uint256"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/luxfi/transform"
)

const reasonLabel = "reason"

type metrics struct {
	committed    *prometheus.CounterVec
	rejected     *prometheus.CounterVec
	totalWrapped prometheus.Gauge
	totalBacking prometheus.Gauge
}

func newMetrics(registerer prometheus.Registerer) (*metrics, error) {
	m := &metrics{
		committed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "committed",
				Help: "Number of committed conversions",
			},
			[]string{"op"},
		),
		rejected: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rejected",
				Help: "Number of rejected conversion requests",
			},
			[]string{"op", reasonLabel},
		),
		totalWrapped: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "total_wrapped",
				Help: "Outstanding wrapped balance across all addresses",
			},
		),
		totalBacking: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "total_backing",
				Help: "Backing asset held in custody across all addresses",
			},
		),
	}
	for _, c := range []prometheus.Collector{m.committed, m.rejected, m.totalWrapped, m.totalBacking} {
		if err := registerer.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *metrics) markCommitted(op Op, wrapped, backing *uint256.Int) {
	m.committed.WithLabelValues(op.String()).Inc()
	m.setTotals(wrapped, backing)
}

func (m *metrics) markRejected(op Op, err error) {
	m.rejected.WithLabelValues(op.String(), reason(err)).Inc()
}

func (m *metrics) setTotals(wrapped, backing *uint256.Int) {
	m.totalWrapped.Set(wrapped.Float64())
	m.totalBacking.Set(backing.Float64())
}

func reason(err error) string {
	switch transform.CodeOf(err) {
	case transform.CodeSubjectMismatch:
		return "subject_mismatch"
	case transform.CodeStaleOrFutureNonce:
		return "stale_or_future_nonce"
	case transform.CodeInvalidProof:
		return "invalid_proof"
	case transform.CodeInsufficientBalance:
		return "insufficient_balance"
	case transform.CodeInvalidAmount:
		return "invalid_amount"
	case transform.CodeOverflow:
		return "overflow"
	default:
		return "internal"
	}
}
