// Package mmap implements the mmap collaborator Node relies on for its
// memory-mapped storage variant: Open maps a file and returns
// a Region a leaf can bind to without copying.
package mmap

import "os"

// Region is the contract the conduit package's MmapRegion interface
// expects: the mapped bytes, plus msync/close.
type Region interface {
	Bytes() []byte
	Sync() error
	Close() error
}

type region struct {
	f *os.File
	b []byte
}

func (r *region) Bytes() []byte { return r.b }

func (r *region) Sync() error {
	if len(r.b) == 0 {
		return nil
	}
	return msync(r.b)
}

func (r *region) Close() error {
	if len(r.b) > 0 {
		if err := munmap(r.b); err != nil {
			r.f.Close()
			return err
		}
	}
	return r.f.Close()
}

// Open maps path into memory. writable selects PROT_READ|PROT_WRITE
// (backed by a MAP_SHARED mapping) versus a read-only mapping. When
// writable and the file is shorter than size, it is grown to size first
// (used when binding a fresh schema to a new .bin file); otherwise the
// file's current length is mapped.
func Open(path string, writable bool, size int64) (Region, error) {
	flag := os.O_RDONLY
	if writable {
		flag = os.O_RDWR | os.O_CREATE
	}
	f, err := os.OpenFile(path, flag, 0o644)
	if err != nil {
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	if writable && size > info.Size() {
		if err := f.Truncate(size); err != nil {
			f.Close()
			return nil, err
		}
	} else {
		size = info.Size()
	}
	if size == 0 {
		return &region{f: f}, nil
	}
	b, err := mmapFile(f, int(size), writable)
	if err != nil {
		f.Close()
		return nil, err
	}
	return &region{f: f, b: b}, nil
}
