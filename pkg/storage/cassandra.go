package storage

import (
	"context"
	"errors"
	"io/fs"
	"path"

	"github.com/gocql/gocql"
)

// CassandraStorage keeps each file as one row of a (key text, data blob)
// table.
type CassandraStorage struct {
	session *gocql.Session
	table   string
	prefix  string
}

func NewCassandraStorage(session *gocql.Session, table, prefix string) *CassandraStorage {
	return &CassandraStorage{
		session: session,
		table:   table,
		prefix:  prefix,
	}
}

// EnsureCassandraTable creates the table backing a CassandraStorage.
func EnsureCassandraTable(ctx context.Context, session *gocql.Session, table string) error {
	if err := validateIdentifier("table", table); err != nil {
		return err
	}

	return session.Query(`create table if not exists ` + table + ` (key text primary key, data blob)`).WithContext(ctx).Exec()
}

func (s *CassandraStorage) key(name string) string {
	return path.Join(s.prefix, name)
}

func (s *CassandraStorage) MkdirAll(ctx context.Context, dir string) error {
	return nil
}

func (s *CassandraStorage) Create(ctx context.Context, name string) (File, error) {
	key := s.key(name)
	if err := s.put(ctx, key, []byte{}); err != nil {
		return nil, wrap("create", name, err)
	}

	return newBlobFile(ctx, s, key, 0), nil
}

func (s *CassandraStorage) Open(ctx context.Context, name string) (File, error) {
	key := s.key(name)

	data, err := s.get(ctx, key)
	if err != nil {
		if errors.Is(err, gocql.ErrNotFound) {
			return nil, wrap("open", name, fs.ErrNotExist)
		}

		return nil, wrap("open", name, err)
	}

	return newBlobFile(ctx, s, key, int64(len(data))), nil
}

func (s *CassandraStorage) Remove(ctx context.Context, name string) error {
	return wrap("remove", name, s.session.Query(`delete from `+s.table+` where key = ?`, s.key(name)).WithContext(ctx).Exec())
}

func (s *CassandraStorage) Exists(ctx context.Context, name string) (bool, error) {
	var key string
	if err := s.session.Query(`select key from `+s.table+` where key = ?`, s.key(name)).WithContext(ctx).Scan(&key); err != nil {
		if errors.Is(err, gocql.ErrNotFound) {
			return false, nil
		}

		return false, wrap("stat", name, err)
	}

	return true, nil
}

func (s *CassandraStorage) Probe(ctx context.Context, root string, need int64) error {
	var version string
	if err := s.session.Query(`select release_version from system.local`).WithContext(ctx).Scan(&version); err != nil {
		return wrap("probe", root, err)
	}

	return nil
}

func (s *CassandraStorage) get(ctx context.Context, key string) ([]byte, error) {
	var data []byte
	if err := s.session.Query(`select data from `+s.table+` where key = ?`, key).WithContext(ctx).Scan(&data); err != nil {
		return nil, err
	}

	return data, nil
}

func (s *CassandraStorage) put(ctx context.Context, key string, data []byte) error {
	return s.session.Query(`insert into `+s.table+` (key, data) values (?, ?)`, key, data).WithContext(ctx).Exec()
}
