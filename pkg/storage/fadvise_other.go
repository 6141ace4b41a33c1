//go:build !linux

package storage

import "os"

func dropPageCache(f *os.File) error {
	return f.Sync()
}
