package storage

import (
	"bytes"
	"context"
	"io"
	"testing"

	"tinygit/pkg/core"
	"tinygit/pkg/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memBackend 只实现测试需要的读路径
type memBackend struct {
	objects map[types.Hash][]byte
	files   map[string][]byte
}

func (m *memBackend) Put(_ context.Context, obj core.Object) error {
	m.objects[obj.ID()] = obj.Bytes()
	return nil
}

func (m *memBackend) Get(_ context.Context, hash types.Hash) (io.ReadCloser, error) {
	data, ok := m.objects[hash]
	if !ok {
		return nil, ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *memBackend) Has(_ context.Context, hash types.Hash) (bool, error) {
	_, ok := m.objects[hash]
	return ok, nil
}

func (m *memBackend) ExpandHash(_ context.Context, prefix types.HashPrefix) (types.Hash, error) {
	return "", ErrNotFound
}

func (m *memBackend) Walk(_ context.Context, fn func(types.Hash) error) error {
	for h := range m.objects {
		if err := fn(h); err != nil {
			return err
		}
	}
	return nil
}

func (m *memBackend) PutFile(_ context.Context, commit types.Hash, path string, data []byte) error {
	m.files[string(commit)+"/"+path] = data
	return nil
}

func (m *memBackend) GetFile(_ context.Context, commit types.Hash, path string) (io.ReadCloser, error) {
	data, ok := m.files[string(commit)+"/"+path]
	if !ok {
		return nil, ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

var _ Backend = (*memBackend)(nil)

func TestReadAll(t *testing.T) {
	ctx := context.Background()
	b := &memBackend{objects: map[types.Hash][]byte{}, files: map[string][]byte{}}

	blob := core.NewBlob([]byte("hello"))
	require.NoError(t, b.Put(ctx, blob))

	data, err := ReadAll(ctx, b, blob.ID())
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), data)

	_, err = ReadAll(ctx, b, types.Hash("ff"))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestReadFile(t *testing.T) {
	ctx := context.Background()
	b := &memBackend{objects: map[types.Hash][]byte{}, files: map[string][]byte{}}
	commit := types.Hash("aaaaaaaaaaaa")

	require.NoError(t, b.PutFile(ctx, commit, "dir/a.txt", []byte("A")))

	data, err := ReadFile(ctx, b, commit, "dir/a.txt")
	require.NoError(t, err)
	assert.Equal(t, []byte("A"), data)

	_, err = ReadFile(ctx, b, commit, "missing.txt")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCheckPrefix(t *testing.T) {
	assert.ErrorIs(t, CheckPrefix("abcde"), ErrPrefixTooShort)
	assert.NoError(t, CheckPrefix("abcdef"))
	assert.ErrorIs(t, CheckPrefix("../../etc"), ErrNotFound)
	assert.ErrorIs(t, CheckPrefix("ABCDEF"), ErrNotFound, "调用方负责先 Normalize")
}
