package container

import (
	"encoding/binary"
	"fmt"

	"github.com/specialistvlad/gindecomp/internal/bincur"
)

// Magic is the .gin container magic number, "GIN\0" little-endian.
const Magic uint32 = 0x004E4947

// Fixed header geometry.
const (
	MaxPathLen        = 256
	SectionNameLen    = 64
	SectionParamCount = 4
	MainHeaderSize    = 4 + 4 + 8 + 16 + 4 + MaxPathLen + 4 + 16
	SectionHeaderSize = SectionNameLen + 8 + 4 + 4 + 4 + SectionParamCount*4 + 4 + 16 + 16
)

// Section compression flags.
const (
	FlagZstd uint32 = 1 << 0
	FlagLZ4  uint32 = 1 << 1
)

// MainHeader is the fixed 312-byte header at the start of every .gin
// file. Byte-array fields marshal to base64 in the JSON sidecar.
type MainHeader struct {
	Magic        uint32 `json:"magic"`
	Version      uint32 `json:"version"`
	Reserved     []byte `json:"reserved"`
	FileID       []byte `json:"file_id"`
	Reserved2    uint32 `json:"reserved_2"`
	Path         string `json:"path"`
	SectionCount uint32 `json:"section_count"`
	Checksum     []byte `json:"checksum"`
}

// SectionHeader is one 136-byte entry of the section table that follows
// the main header.
type SectionHeader struct {
	Name           string   `json:"name"`
	Offset         uint64   `json:"offset"`
	Size           uint32   `json:"size"`
	CompressedSize uint32   `json:"compressed_size"`
	Flags          uint32   `json:"flags"`
	Params         []uint32 `json:"params"`
	Version        uint32   `json:"section_version"`
	ID             []byte   `json:"section_id"`
	Checksum       []byte   `json:"checksum"`
}

// IsGin reports whether data begins with the .gin magic number.
func IsGin(data []byte) bool {
	return len(data) >= 4 && binary.LittleEndian.Uint32(data) == Magic
}

func parseMainHeader(c *bincur.Cursor) (*MainHeader, error) {
	h := &MainHeader{}
	var err error
	if h.Magic, err = c.ReadU32(); err != nil {
		return nil, fmt.Errorf("main header: %w", err)
	}
	if h.Magic != Magic {
		return nil, fmt.Errorf("not a .gin file: magic 0x%08x", h.Magic)
	}
	if h.Version, err = c.ReadU32(); err != nil {
		return nil, fmt.Errorf("main header: %w", err)
	}
	if h.Reserved, err = c.ReadBytes(8); err != nil {
		return nil, fmt.Errorf("main header: %w", err)
	}
	if h.FileID, err = c.ReadBytes(16); err != nil {
		return nil, fmt.Errorf("main header: %w", err)
	}
	if h.Reserved2, err = c.ReadU32(); err != nil {
		return nil, fmt.Errorf("main header: %w", err)
	}
	if h.Path, err = c.ReadFixedString(MaxPathLen); err != nil {
		return nil, fmt.Errorf("main header: %w", err)
	}
	if h.SectionCount, err = c.ReadU32(); err != nil {
		return nil, fmt.Errorf("main header: %w", err)
	}
	if h.Checksum, err = c.ReadBytes(16); err != nil {
		return nil, fmt.Errorf("main header: %w", err)
	}
	return h, nil
}

func parseSectionHeader(c *bincur.Cursor, index int) (*SectionHeader, error) {
	h := &SectionHeader{}
	var err error
	if h.Name, err = c.ReadFixedString(SectionNameLen); err != nil {
		return nil, fmt.Errorf("section %d header: %w", index, err)
	}
	if h.Offset, err = c.ReadU64(); err != nil {
		return nil, fmt.Errorf("section %d header: %w", index, err)
	}
	if h.Size, err = c.ReadU32(); err != nil {
		return nil, fmt.Errorf("section %d header: %w", index, err)
	}
	if h.CompressedSize, err = c.ReadU32(); err != nil {
		return nil, fmt.Errorf("section %d header: %w", index, err)
	}
	if h.Flags, err = c.ReadU32(); err != nil {
		return nil, fmt.Errorf("section %d header: %w", index, err)
	}
	h.Params = make([]uint32, SectionParamCount)
	for i := range h.Params {
		if h.Params[i], err = c.ReadU32(); err != nil {
			return nil, fmt.Errorf("section %d header: %w", index, err)
		}
	}
	if h.Version, err = c.ReadU32(); err != nil {
		return nil, fmt.Errorf("section %d header: %w", index, err)
	}
	if h.ID, err = c.ReadBytes(16); err != nil {
		return nil, fmt.Errorf("section %d header: %w", index, err)
	}
	if h.Checksum, err = c.ReadBytes(16); err != nil {
		return nil, fmt.Errorf("section %d header: %w", index, err)
	}
	return h, nil
}
