package scip

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/zstd"
	scippb "github.com/sourcegraph/scip/bindings/go/scip"
	"google.golang.org/protobuf/proto"
)

// CompressedSuffix marks zstd-compressed index files.
const CompressedSuffix = ".zst"

// Write serializes idx to w, zstd-compressed when compress is set.
func Write(w io.Writer, idx *scippb.Index, compress bool) error {
	data, err := proto.Marshal(idx)
	if err != nil {
		return fmt.Errorf("scip: marshal: %w", err)
	}
	if !compress {
		_, err := w.Write(data)
		return err
	}
	zw, err := zstd.NewWriter(w)
	if err != nil {
		return fmt.Errorf("scip: zstd: %w", err)
	}
	if _, err := zw.Write(data); err != nil {
		zw.Close()
		return fmt.Errorf("scip: zstd: %w", err)
	}
	return zw.Close()
}

// WriteFile writes idx to path. Paths ending in CompressedSuffix, or any
// path when compress is set, are zstd-compressed.
func WriteFile(path string, idx *scippb.Index, compress bool) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("scip: %w", err)
	}
	if err := Write(f, idx, compress || strings.HasSuffix(path, CompressedSuffix)); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// ReadFile loads an index written by WriteFile.
func ReadFile(path string) (*scippb.Index, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("scip: %w", err)
	}
	return Decode(data)
}

var zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}

// Decode parses a raw or zstd-compressed index.
func Decode(data []byte) (*scippb.Index, error) {
	if bytes.HasPrefix(data, zstdMagic) {
		zr, err := zstd.NewReader(nil)
		if err != nil {
			return nil, fmt.Errorf("scip: zstd: %w", err)
		}
		defer zr.Close()
		if data, err = zr.DecodeAll(data, nil); err != nil {
			return nil, fmt.Errorf("scip: zstd: %w", err)
		}
	}
	var idx scippb.Index
	if err := proto.Unmarshal(data, &idx); err != nil {
		return nil, fmt.Errorf("scip: parse: %w", err)
	}
	return &idx, nil
}
