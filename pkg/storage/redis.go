package storage

import (
	"context"
	"io"
	"io/fs"
	"path"

	"github.com/redis/go-redis/v9"
)

// RedisStorage keeps each file as a string value, using SETRANGE and GETRANGE
// for random access.
type RedisStorage struct {
	client *redis.Client
	prefix string
}

func NewRedisStorage(client *redis.Client, prefix string) *RedisStorage {
	return &RedisStorage{
		client: client,
		prefix: prefix,
	}
}

func (s *RedisStorage) key(name string) string {
	return path.Join(s.prefix, name)
}

func (s *RedisStorage) MkdirAll(ctx context.Context, dir string) error {
	return nil
}

func (s *RedisStorage) Create(ctx context.Context, name string) (File, error) {
	key := s.key(name)
	if err := s.client.Set(ctx, key, "", 0).Err(); err != nil {
		return nil, wrap("create", name, err)
	}

	return &redisFile{ctx, s.client, key}, nil
}

func (s *RedisStorage) Open(ctx context.Context, name string) (File, error) {
	exists, err := s.Exists(ctx, name)
	if err != nil {
		return nil, err
	}

	if !exists {
		return nil, wrap("open", name, fs.ErrNotExist)
	}

	return &redisFile{ctx, s.client, s.key(name)}, nil
}

func (s *RedisStorage) Remove(ctx context.Context, name string) error {
	return wrap("remove", name, s.client.Del(ctx, s.key(name)).Err())
}

func (s *RedisStorage) Exists(ctx context.Context, name string) (bool, error) {
	n, err := s.client.Exists(ctx, s.key(name)).Result()
	if err != nil {
		return false, wrap("stat", name, err)
	}

	return n > 0, nil
}

func (s *RedisStorage) Probe(ctx context.Context, root string, need int64) error {
	return wrap("probe", root, s.client.Ping(ctx).Err())
}

type redisFile struct {
	ctx    context.Context
	client *redis.Client
	key    string
}

func (f *redisFile) ReadAt(p []byte, off int64) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}

	b, err := f.client.GetRange(f.ctx, f.key, off, off+int64(len(p))-1).Bytes()
	if err != nil {
		return 0, err
	}

	n := copy(p, b)
	if n < len(p) {
		return n, io.EOF
	}

	return n, nil
}

func (f *redisFile) WriteAt(p []byte, off int64) (int, error) {
	if err := f.client.SetRange(f.ctx, f.key, off, string(p)).Err(); err != nil {
		return 0, err
	}

	return len(p), nil
}

func (f *redisFile) Size() (int64, error) {
	return f.client.StrLen(f.ctx, f.key).Result()
}

func (f *redisFile) Sync() error {
	return nil
}

func (f *redisFile) Close() error {
	return nil
}
