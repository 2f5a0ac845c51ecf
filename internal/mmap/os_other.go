//go:build !unix

package mmap

import (
	"io"
	"os"
)

// Platforms without mmap fall back to heap-backed buffers.

func osMap(f *os.File, size int) ([]byte, func([]byte) error, error) {
	data := make([]byte, size)
	if _, err := io.ReadFull(f, data); err != nil {
		return nil, nil, err
	}
	return data, nil, nil
}

func osMapAnon(size int) ([]byte, func([]byte) error, error) {
	return make([]byte, size), nil, nil
}

func osAdvise(data []byte, pattern AccessPattern) error {
	if pattern == AccessDontNeed {
		clear(data)
	}
	return nil
}
