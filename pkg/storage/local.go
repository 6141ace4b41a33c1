package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/edsrzf/mmap-go"
	"github.com/pojntfx/go-nbd/pkg/backend"
	"github.com/shirou/gopsutil/v4/disk"
)

type LocalOptions struct {
	// Mmap serves reads from a read-only memory mapping of the file.
	Mmap bool
	// DropCache evicts the file's pages from the page cache before each read.
	DropCache bool
}

type LocalStorage struct {
	options *LocalOptions
}

func NewLocalStorage(options *LocalOptions) *LocalStorage {
	if options == nil {
		options = &LocalOptions{}
	}

	return &LocalStorage{options}
}

func (s *LocalStorage) MkdirAll(ctx context.Context, dir string) error {
	return wrap("mkdir", dir, os.MkdirAll(filepath.FromSlash(dir), 0755))
}

func (s *LocalStorage) Create(ctx context.Context, name string) (File, error) {
	f, err := os.OpenFile(filepath.FromSlash(name), os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return nil, wrap("create", name, err)
	}

	return s.newFile(f), nil
}

func (s *LocalStorage) Open(ctx context.Context, name string) (File, error) {
	f, err := os.OpenFile(filepath.FromSlash(name), os.O_RDWR, 0)
	if err != nil {
		return nil, wrap("open", name, err)
	}

	lf := s.newFile(f)
	if !s.options.Mmap {
		return lf, nil
	}

	info, err := f.Stat()
	if err != nil {
		_ = f.Close()

		return nil, wrap("stat", name, err)
	}

	// Empty files can't be mapped
	if info.Size() == 0 {
		return lf, nil
	}

	m, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		_ = f.Close()

		return nil, wrap("mmap", name, err)
	}

	return &mmapFile{localFile: lf, m: m}, nil
}

func (s *LocalStorage) Remove(ctx context.Context, name string) error {
	if err := os.Remove(filepath.FromSlash(name)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return wrap("remove", name, err)
	}

	return nil
}

func (s *LocalStorage) Exists(ctx context.Context, name string) (bool, error) {
	if _, err := os.Stat(filepath.FromSlash(name)); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}

		return false, wrap("stat", name, err)
	}

	return true, nil
}

// Probe checks that the nearest existing ancestor of root is a writable
// directory on a filesystem with at least need bytes free.
func (s *LocalStorage) Probe(ctx context.Context, root string, need int64) error {
	dir, err := existingAncestor(filepath.FromSlash(root))
	if err != nil {
		return wrap("probe", root, err)
	}

	if dir == filepath.Clean(filepath.FromSlash(root)) {
		f, err := os.CreateTemp(dir, ".probe-*")
		if err != nil {
			return wrap("probe", root, err)
		}

		_ = f.Close()

		if err := os.Remove(f.Name()); err != nil {
			return wrap("probe", root, err)
		}
	}

	usage, err := disk.UsageWithContext(ctx, dir)
	if err != nil {
		return wrap("probe", root, err)
	}

	if need > 0 && usage.Free < uint64(need) {
		return wrap("probe", root, fmt.Errorf("%v bytes free, %v bytes needed", usage.Free, need))
	}

	return nil
}

// Capacity returns the total size in bytes of the filesystem holding path.
func Capacity(ctx context.Context, path string) (uint64, error) {
	dir, err := existingAncestor(filepath.FromSlash(path))
	if err != nil {
		return 0, err
	}

	usage, err := disk.UsageWithContext(ctx, dir)
	if err != nil {
		return 0, err
	}

	return usage.Total, nil
}

func existingAncestor(path string) (string, error) {
	dir := filepath.Clean(path)
	for {
		info, err := os.Stat(dir)
		if err == nil {
			if !info.IsDir() {
				return "", fmt.Errorf("%v is not a directory", dir)
			}

			return dir, nil
		}

		if !errors.Is(err, fs.ErrNotExist) {
			return "", err
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", err
		}

		dir = parent
	}
}

func (s *LocalStorage) newFile(f *os.File) *localFile {
	return &localFile{
		FileBackend: backend.NewFileBackend(f),
		file:        f,
		dropCache:   s.options.DropCache,
	}
}

type localFile struct {
	*backend.FileBackend

	file      *os.File
	dropCache bool
}

func (f *localFile) DropCache() error {
	if !f.dropCache {
		return nil
	}

	return dropPageCache(f.file)
}

func (f *localFile) Close() error {
	return f.file.Close()
}
