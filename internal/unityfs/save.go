package unityfs

import (
	"encoding/binary"
	"fmt"

	"github.com/go-restruct/restruct"
	"github.com/golang/glog"

	"github.com/RailyW/manosaba-index-bg-replace/internal/binio"
)

// Unity's own chunk size for LZ4 bundles.
const blockSize = 0x20000

// Bytes packs the bundle: nodes are laid out back to back in directory
// order, cut into LZ4 blocks, and the blocks info is stored right after the
// header. Version strings and the padding flag are kept from the source.
func (b *Bundle) Bytes() ([]byte, error) {
	var total int
	for _, n := range b.Nodes {
		total += len(n.data)
	}
	stream := make([]byte, 0, total)
	for _, n := range b.Nodes {
		stream = append(stream, n.data...)
	}

	var (
		blocks  []blockInfo
		payload [][]byte
	)
	for off := 0; off < len(stream); off += blockSize {
		chunk := stream[off:min(off+blockSize, len(stream))]
		data, c, err := compressBlock(chunk)
		if err != nil {
			return nil, fmt.Errorf("unityfs: block %d: %w", len(blocks), err)
		}
		blocks = append(blocks, blockInfo{
			UncompressedSize: uint32(len(chunk)),
			CompressedSize:   uint32(len(data)),
			Flags:            uint16(c),
		})
		payload = append(payload, data)
	}

	info := binio.NewWriter(binary.BigEndian)
	info.Write(make([]byte, 16))
	info.I32(int32(len(blocks)))
	for i := range blocks {
		p, err := restruct.Pack(binary.BigEndian, &blocks[i])
		if err != nil {
			return nil, fmt.Errorf("unityfs: pack block %d: %w", i, err)
		}
		info.Write(p)
	}
	info.I32(int32(len(b.Nodes)))
	var offset int64
	for _, n := range b.Nodes {
		info.I64(offset)
		info.I64(int64(len(n.data)))
		info.U32(n.Flags)
		info.CString(n.Path)
		offset += int64(len(n.data))
	}

	packedInfo, infoCompression, err := compressBlock(info.Bytes())
	if err != nil {
		return nil, fmt.Errorf("unityfs: blocks info: %w", err)
	}
	flags := b.Flags&^(compressionMask|flagBlocksInfoAtEnd) | flagBlocksAndDirectoryInfo | uint32(infoCompression)

	w := binio.NewWriter(binary.BigEndian)
	w.CString(b.Signature)
	w.U32(b.FormatVersion)
	w.CString(b.UnityVersion)
	w.CString(b.UnityRevision)
	sizeAt := w.Len()
	w.I64(0)
	w.U32(uint32(len(packedInfo)))
	w.U32(uint32(info.Len()))
	w.U32(flags)
	if b.FormatVersion >= 7 {
		w.Align(16)
	}
	w.Write(packedInfo)
	if flags&flagBlockInfoPaddingAtStart != 0 {
		w.Align(16)
	}
	for _, p := range payload {
		w.Write(p)
	}
	w.PutU64At(sizeAt, uint64(w.Len()))

	glog.V(1).Infof("unityfs: packed %d nodes into %d blocks, %d -> %d bytes", len(b.Nodes), len(blocks), total, w.Len())
	return w.Bytes(), nil
}
