package container

import (
	"fmt"

	"github.com/DataDog/zstd"
	"github.com/pierrec/lz4/v4"
)

// decompressSection returns a section payload according to its
// compression flags. A compressed size of zero in the section header
// means the payload is stored raw regardless of flags.
func decompressSection(data []byte, flags uint32, uncompressedSize uint32) ([]byte, error) {
	switch {
	case flags&FlagZstd != 0:
		out, err := zstd.Decompress(make([]byte, 0, uncompressedSize), data)
		if err != nil {
			return nil, fmt.Errorf("zstd: %w", err)
		}
		return out, nil
	case flags&FlagLZ4 != 0:
		out := make([]byte, uncompressedSize)
		n, err := lz4.UncompressBlock(data, out)
		if err != nil {
			return nil, fmt.Errorf("lz4: %w", err)
		}
		return out[:n], nil
	default:
		return data, nil
	}
}
