package vm

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// Image file format:
// - Magic: "ICBC" (4 bytes)
// - Version: uint16
// - NumCells: uint32
// - Cells: []int64, little endian

const (
	ImageMagic   = "ICBC"
	ImageVersion = 1
)

var (
	ErrInvalidMagic   = errors.New("invalid image magic")
	ErrInvalidVersion = errors.New("unsupported image version")
)

// SerializeImage encodes a memory image in the binary image format.
func SerializeImage(cells []int64) ([]byte, error) {
	buf := new(bytes.Buffer)

	buf.WriteString(ImageMagic)

	if err := binary.Write(buf, binary.LittleEndian, uint16(ImageVersion)); err != nil {
		return nil, fmt.Errorf("writing version: %w", err)
	}
	if err := binary.Write(buf, binary.LittleEndian, uint32(len(cells))); err != nil {
		return nil, fmt.Errorf("writing cell count: %w", err)
	}
	if err := binary.Write(buf, binary.LittleEndian, cells); err != nil {
		return nil, fmt.Errorf("writing cells: %w", err)
	}

	return buf.Bytes(), nil
}

// DeserializeImage decodes a binary memory image.
func DeserializeImage(data []byte) ([]int64, error) {
	buf := bytes.NewReader(data)

	magic := make([]byte, 4)
	if _, err := io.ReadFull(buf, magic); err != nil {
		return nil, fmt.Errorf("reading magic: %w", err)
	}
	if string(magic) != ImageMagic {
		return nil, ErrInvalidMagic
	}

	var version uint16
	if err := binary.Read(buf, binary.LittleEndian, &version); err != nil {
		return nil, fmt.Errorf("reading version: %w", err)
	}
	if version != ImageVersion {
		return nil, ErrInvalidVersion
	}

	var n uint32
	if err := binary.Read(buf, binary.LittleEndian, &n); err != nil {
		return nil, fmt.Errorf("reading cell count: %w", err)
	}
	if int64(n)*8 > int64(buf.Len()) {
		return nil, fmt.Errorf("reading cells: %w", io.ErrUnexpectedEOF)
	}
	cells := make([]int64, n)
	if err := binary.Read(buf, binary.LittleEndian, cells); err != nil {
		return nil, fmt.Errorf("reading cells: %w", err)
	}

	return cells, nil
}
