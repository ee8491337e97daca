// Package textarchive bundles a whole directory of translator text files
// into one portable blob, so a completed translation pass can be checked
// into version control or shipped as a single artifact instead of one
// .txt per script. It trains a fresh onpair dictionary over the batch and
// stores the token stream plus a small name table ahead of it.
package textarchive

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/seiflotfy/onpair"
)

// Bundle trains a dictionary over texts and serializes names and contents
// together. names and texts must be the same length and share index order.
func Bundle(names, texts []string) ([]byte, error) {
	if len(names) != len(texts) {
		return nil, fmt.Errorf("textarchive: %d names but %d texts", len(names), len(texts))
	}

	model, err := onpair.TrainModel(texts)
	if err != nil {
		return nil, fmt.Errorf("textarchive: train: %w", err)
	}
	archive, err := model.Encode(texts)
	if err != nil {
		return nil, fmt.Errorf("textarchive: encode: %w", err)
	}

	var buf bytes.Buffer
	if err := binary.Write(&buf, binary.LittleEndian, uint32(len(names))); err != nil {
		return nil, err
	}
	for _, name := range names {
		if err := binary.Write(&buf, binary.LittleEndian, uint16(len(name))); err != nil {
			return nil, err
		}
		buf.WriteString(name)
	}
	if _, err := archive.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("textarchive: write archive: %w", err)
	}
	return buf.Bytes(), nil
}

// Unbundle restores the original file names and contents from a Bundle
// blob, in original order.
func Unbundle(blob []byte) (names, texts []string, err error) {
	r := bufio.NewReader(bytes.NewReader(blob))

	var count uint32
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return nil, nil, fmt.Errorf("textarchive: read name count: %w", err)
	}
	names = make([]string, count)
	for i := range names {
		var n uint16
		if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
			return nil, nil, fmt.Errorf("textarchive: read name length %d: %w", i, err)
		}
		nameBytes := make([]byte, n)
		if _, err := io.ReadFull(r, nameBytes); err != nil {
			return nil, nil, fmt.Errorf("textarchive: read name %d: %w", i, err)
		}
		names[i] = string(nameBytes)
	}

	var archive onpair.Archive
	if _, err := archive.ReadFrom(r); err != nil {
		return nil, nil, fmt.Errorf("textarchive: read archive: %w", err)
	}
	if archive.Rows() != len(names) {
		return nil, nil, fmt.Errorf("textarchive: archive has %d rows, expected %d names", archive.Rows(), len(names))
	}

	texts = make([]string, archive.Rows())
	for i := range texts {
		n, err := archive.DecodedLen(i)
		if err != nil {
			return nil, nil, fmt.Errorf("textarchive: decoded length row %d: %w", i, err)
		}
		out := make([]byte, n)
		if _, err := archive.DecompressString(i, out); err != nil {
			return nil, nil, fmt.Errorf("textarchive: decompress row %d: %w", i, err)
		}
		texts[i] = string(out)
	}
	return names, texts, nil
}
