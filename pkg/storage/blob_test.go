package storage

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryBlobStore struct {
	lock  sync.Mutex
	blobs map[string][]byte
	gets  int
	puts  int
}

func (s *memoryBlobStore) get(ctx context.Context, key string) ([]byte, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	s.gets++

	b, ok := s.blobs[key]
	if !ok {
		return nil, errors.New("no such key")
	}

	return append([]byte{}, b...), nil
}

func (s *memoryBlobStore) put(ctx context.Context, key string, data []byte) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	s.puts++
	s.blobs[key] = append([]byte{}, data...)

	return nil
}

func TestBlobFile_WholeWritesSkipFetch(t *testing.T) {
	store := &memoryBlobStore{blobs: map[string][]byte{"k": {}}}
	f := newBlobFile(context.Background(), store, "k", 0)

	for i := 0; i < 3; i++ {
		n, err := f.WriteAt([]byte("abcd"), 0)
		require.NoError(t, err)
		assert.Equal(t, 4, n)
	}

	assert.Equal(t, 0, store.gets)
	assert.Equal(t, 3, store.puts)

	size, err := f.Size()
	require.NoError(t, err)
	assert.Equal(t, int64(4), size)
}

func TestBlobFile_PartialWriteSplices(t *testing.T) {
	store := &memoryBlobStore{blobs: map[string][]byte{"k": []byte("abcdef")}}
	f := newBlobFile(context.Background(), store, "k", 6)

	_, err := f.WriteAt([]byte("XY"), 2)
	require.NoError(t, err)
	assert.Equal(t, "abXYef", string(store.blobs["k"]))

	_, err = f.WriteAt([]byte("12"), 0)
	require.NoError(t, err)
	assert.Equal(t, "12XYef", string(store.blobs["k"]), "short write at offset 0 keeps the tail")

	_, err = f.WriteAt([]byte("gh"), 8)
	require.NoError(t, err)
	assert.Equal(t, "12XYef\x00\x00gh", string(store.blobs["k"]))

	size, err := f.Size()
	require.NoError(t, err)
	assert.Equal(t, int64(10), size)
}

func TestBlobFile_ReadAt(t *testing.T) {
	store := &memoryBlobStore{blobs: map[string][]byte{"k": []byte("abcdef")}}
	f := newBlobFile(context.Background(), store, "k", 6)

	p := make([]byte, 3)
	n, err := f.ReadAt(p, 2)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, "cde", string(p))

	n, err = f.ReadAt(p, 4)
	assert.Equal(t, 2, n)
	assert.ErrorIs(t, err, io.EOF)

	n, err = f.ReadAt(p, 6)
	assert.Zero(t, n)
	assert.ErrorIs(t, err, io.EOF)
}

func TestBlobFile_ReadMissing(t *testing.T) {
	store := &memoryBlobStore{blobs: map[string][]byte{}}
	f := newBlobFile(context.Background(), store, "k", 0)

	_, err := f.ReadAt(make([]byte, 1), 0)
	assert.Error(t, err)
}
