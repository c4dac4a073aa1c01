//go:build !unix

package blobstore

import "os"

// mmapReadOnly falls back to a plain read on platforms without the
// unix mmap syscalls wired up.
func mmapReadOnly(path string) (data []byte, closeFn func() error, err error) {
	data, err = os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}
	return data, func() error { return nil }, nil
}
