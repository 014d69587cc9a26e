package store

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/mmcdole/marquee/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBucket_MemoryOnly(t *testing.T) {
	s, err := Open("")
	require.NoError(t, err)
	defer s.Close()

	b := s.Bucket(BucketSession)

	_, ok, err := b.Get(domain.KeySessionSnapshot)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, b.Set(domain.KeySessionSnapshot, `{"uid":"u1"}`))
	v, ok, err := b.Get(domain.KeySessionSnapshot)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `{"uid":"u1"}`, v)

	require.NoError(t, b.Remove(domain.KeySessionSnapshot))
	_, ok, err = b.Get(domain.KeySessionSnapshot)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestBucket_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "marquee.db")

	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Bucket(BucketSession).Set(domain.KeyOnboardingFlag, "true"))
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()

	v, ok, err := s.Bucket(BucketSession).Get(domain.KeyOnboardingFlag)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "true", v)
}

func TestBucket_ScopesAreIndependent(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "marquee.db"))
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Bucket(BucketSession).Set("k", "session"))
	require.NoError(t, s.Bucket(BucketCredentials).Set("k", "creds"))

	v, _, _ := s.Bucket(BucketSession).Get("k")
	assert.Equal(t, "session", v)
	v, _, _ = s.Bucket(BucketCredentials).Get("k")
	assert.Equal(t, "creds", v)

	require.NoError(t, s.Bucket(BucketSession).Remove("k"))
	_, ok, _ := s.Bucket(BucketCredentials).Get("k")
	assert.True(t, ok)
}

func TestBucket_WriteAfterCloseIsIOError(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "marquee.db"))
	require.NoError(t, err)
	require.NoError(t, s.Close())

	err = s.Bucket(BucketSession).Set(domain.KeySessionSnapshot, "x")
	require.Error(t, err)

	var ioErr *domain.IOError
	require.True(t, errors.As(err, &ioErr))
	assert.Equal(t, "set", ioErr.Op)

	// A failed write must not be visible through the memory cache
	_, ok, _ := s.Bucket(BucketSession).Get(domain.KeySessionSnapshot)
	assert.False(t, ok)
}
