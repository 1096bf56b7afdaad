package unityfs

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/pierrec/lz4/v4"
	"github.com/ulikunitz/xz/lzma"
)

// Compression is the low 6 bits of the archive and storage block flags.
type Compression uint32

const (
	CompressionNone Compression = iota
	CompressionLZMA
	CompressionLZ4
	CompressionLZ4HC
	CompressionLZHAM
)

func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionLZMA:
		return "lzma"
	case CompressionLZ4:
		return "lz4"
	case CompressionLZ4HC:
		return "lz4hc"
	case CompressionLZHAM:
		return "lzham"
	}
	return fmt.Sprintf("compression(%d)", uint32(c))
}

func decompress(c Compression, src []byte, size int) ([]byte, error) {
	switch c {
	case CompressionNone:
		if len(src) != size {
			return nil, fmt.Errorf("stored block is %d bytes, want %d", len(src), size)
		}
		return src, nil
	case CompressionLZMA:
		return decompressLZMA(src, size)
	case CompressionLZ4, CompressionLZ4HC:
		dst := make([]byte, size)
		n, err := lz4.UncompressBlock(src, dst)
		if err != nil {
			return nil, fmt.Errorf("lz4: %w", err)
		}
		if n != size {
			return nil, fmt.Errorf("lz4: got %d bytes, want %d", n, size)
		}
		return dst, nil
	}
	return nil, fmt.Errorf("%w: %s compression", ErrUnsupported, c)
}

// Unity stores LZMA blocks as the 5 property bytes followed by the raw
// stream, without the 8-byte length of the .lzma container. The length is
// put back so the stock decoder can be used.
func decompressLZMA(src []byte, size int) ([]byte, error) {
	if len(src) < 5 {
		return nil, fmt.Errorf("lzma: block too short (%d bytes)", len(src))
	}
	hdr := make([]byte, 13)
	copy(hdr, src[:5])
	binary.LittleEndian.PutUint64(hdr[5:], uint64(size))

	zr, err := lzma.NewReader(io.MultiReader(bytes.NewReader(hdr), bytes.NewReader(src[5:])))
	if err != nil {
		return nil, fmt.Errorf("lzma: %w", err)
	}
	dst := make([]byte, size)
	if _, err := io.ReadFull(zr, dst); err != nil {
		return nil, fmt.Errorf("lzma: %w", err)
	}
	return dst, nil
}

// compressBlock LZ4-compresses src, falling back to storing it when
// compression does not help.
func compressBlock(src []byte) ([]byte, Compression, error) {
	if len(src) == 0 {
		return src, CompressionNone, nil
	}
	dst := make([]byte, lz4.CompressBlockBound(len(src)))
	n, err := lz4.CompressBlock(src, dst, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("lz4: %w", err)
	}
	if n == 0 || n >= len(src) {
		return src, CompressionNone, nil
	}
	return dst[:n], CompressionLZ4, nil
}
