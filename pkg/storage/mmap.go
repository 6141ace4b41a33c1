package storage

import (
	"io"

	"github.com/edsrzf/mmap-go"
)

type mmapFile struct {
	*localFile

	m mmap.MMap
}

func (f *mmapFile) ReadAt(p []byte, off int64) (int, error) {
	if off >= int64(len(f.m)) {
		return 0, io.EOF
	}

	n := copy(p, f.m[off:])
	if n < len(p) {
		return n, io.EOF
	}

	return n, nil
}

func (f *mmapFile) Close() error {
	if err := f.m.Unmap(); err != nil {
		_ = f.localFile.Close()

		return err
	}

	return f.localFile.Close()
}
