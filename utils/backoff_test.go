// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package utils

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/luxfi/log"
	"github.com/stretchr/testify/require"
)

var errRetryable = errors.New("error")

func TestWithRetriesTimeout(t *testing.T) {
	t.Run("NotEnoughRetry", func(t *testing.T) {
		retryable := newMockRetryableFn(3)
		err := WithRetriesTimeout(
			context.Background(),
			log.NewNoOpLogger(),
			func() (err error) {
				_, err = retryable.Run()
				return err
			},
			// using default values: we want to run max 2 tries.
			624*time.Millisecond,
		)
		require.ErrorIs(t, err, errRetryable)
	})
	t.Run("EnoughRetry", func(t *testing.T) {
		retryable := newMockRetryableFn(2)
		var res bool
		err := WithRetriesTimeout(
			context.Background(),
			log.NewNoOpLogger(),
			func() (err error) {
				res, err = retryable.Run()
				return err
			},
			// using default values we want to run 3 tries.
			2000*time.Millisecond,
		)
		require.NoError(t, err)
		require.True(t, res)
	})
	t.Run("Permanent", func(t *testing.T) {
		var calls int
		permanent := errors.New("permanent")
		err := WithRetriesTimeout(
			context.Background(),
			log.NewNoOpLogger(),
			func() error {
				calls++
				return backoff.Permanent(permanent)
			},
			time.Second,
		)
		require.ErrorIs(t, err, permanent)
		require.Equal(t, 1, calls)
	})
	t.Run("Canceled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		err := WithRetriesTimeout(
			ctx,
			log.NewNoOpLogger(),
			func() error { return errRetryable },
			time.Second,
		)
		require.Error(t, err)
	})
}

type mockRetryableFn struct {
	counter uint64
	trigger uint64
}

func newMockRetryableFn(trigger uint64) mockRetryableFn {
	return mockRetryableFn{
		counter: 0,
		trigger: trigger,
	}
}

func (m *mockRetryableFn) Run() (bool, error) {
	if m.counter >= m.trigger {
		return true, nil
	}
	m.counter++
	return false, errRetryable
}
