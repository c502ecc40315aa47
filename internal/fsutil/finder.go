// Package fsutil provides file system utility functions for locating and
// sniffing input files.
package fsutil

import (
	"encoding/binary"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// FindFilesByExtension recursively searches the given root path for all files ending
// with the specified extension. It returns a slice of their full paths,
// sorted for deterministic batch ordering.
func FindFilesByExtension(rootPath string, extension string) ([]string, error) {
	if extension == "" {
		panic("extension must not be empty")
	}

	var files []string
	err := filepath.WalkDir(rootPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(d.Name(), extension) {
			files = append(files, path)
		}
		return nil
	})

	if err != nil {
		return nil, err
	}

	sort.Strings(files)
	return files, nil
}

// SniffMagic reports whether the file at path starts with the given
// little-endian u32 magic number. Short files are simply not a match.
func SniffMagic(path string, magic uint32) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer f.Close()

	var head [4]byte
	n, err := f.Read(head[:])
	if err != nil || n < 4 {
		return false, nil
	}
	return binary.LittleEndian.Uint32(head[:]) == magic, nil
}
