// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package cache

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLRUCache(t *testing.T) {
	tests := []struct {
		name          string
		key           string
		invalidate    bool
		expectedValue int
		expectedCount int
	}{
		{
			name:          "fresh cache, fetch",
			key:           "test1",
			expectedValue: 42,
			expectedCount: 1,
		},
		{
			name:          "use cache, no fetch",
			key:           "test1",
			expectedValue: 42,
			expectedCount: 1,
		},
		{
			name:          "invalidate=true, fetch again",
			key:           "test1",
			invalidate:    true,
			expectedValue: 42,
			expectedCount: 2,
		},
		{
			name:          "different key, fetch",
			key:           "test2",
			expectedValue: 42,
			expectedCount: 3,
		},
	}

	cache, err := NewLRUCache[string, int](10)
	require.NoError(t, err)
	fetchCount := 0
	fetch := func(string) (int, error) {
		fetchCount++
		return 42, nil
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			value, err := cache.Get(tt.key, fetch, tt.invalidate)
			require.NoError(t, err)
			require.Equal(t, tt.expectedValue, value)
			require.Equal(t, tt.expectedCount, fetchCount)
		})
	}
}

func TestLRUCacheFetchErrorNotCached(t *testing.T) {
	require := require.New(t)

	cache, err := NewLRUCache[int, string](2)
	require.NoError(err)

	errFetch := errors.New("fetch failed")
	_, err = cache.Get(1, func(int) (string, error) { return "", errFetch }, false)
	require.ErrorIs(err, errFetch)
	require.Zero(cache.Len())

	v, err := cache.Get(1, func(int) (string, error) { return "one", nil }, false)
	require.NoError(err)
	require.Equal("one", v)
	require.Equal(1, cache.Len())
}

func TestLRUCacheEviction(t *testing.T) {
	require := require.New(t)

	cache, err := NewLRUCache[int, int](2)
	require.NoError(err)

	fetches := 0
	fetch := func(k int) (int, error) {
		fetches++
		return k * 10, nil
	}
	for _, k := range []int{1, 2, 3} {
		_, err := cache.Get(k, fetch, false)
		require.NoError(err)
	}
	require.Equal(2, cache.Len())

	v, err := cache.Get(1, fetch, false)
	require.NoError(err)
	require.Equal(10, v)
	require.Equal(4, fetches)
}

func TestNewLRUCacheInvalidSize(t *testing.T) {
	_, err := NewLRUCache[int, int](0)
	require.Error(t, err)
}
