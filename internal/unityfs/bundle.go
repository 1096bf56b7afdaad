// Package unityfs reads and writes UnityFS asset bundle containers.
//
// A bundle is a header, a (usually compressed) blocks-info table and a run of
// compressed blocks. Decompressed and concatenated, the blocks form one
// stream that the directory cuts into named nodes: serialized files
// ("CAB-<hash>") and their resource blobs ("CAB-<hash>.resS").
package unityfs

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/go-restruct/restruct"
	"github.com/golang/glog"

	"github.com/RailyW/manosaba-index-bg-replace/internal/binio"
)

const signatureFS = "UnityFS"

// archive flags
const (
	compressionMask             = 0x3F
	flagBlocksAndDirectoryInfo  = 0x40
	flagBlocksInfoAtEnd         = 0x80
	flagOldWebPluginCompat      = 0x100
	flagBlockInfoPaddingAtStart = 0x200
)

const nodeFlagSerializedFile = 0x4

var ErrUnsupported = errors.New("unityfs: unsupported bundle")

// blockInfo is one entry of the storage block table.
type blockInfo struct {
	UncompressedSize uint32
	CompressedSize   uint32
	Flags            uint16
}

const blockInfoSize = 10

type Bundle struct {
	Signature     string
	FormatVersion uint32
	UnityVersion  string
	UnityRevision string
	Flags         uint32
	Nodes         []*Node
}

type Node struct {
	Path  string
	Flags uint32
	data  []byte
}

func (n *Node) Data() []byte { return n.data }

func (n *Node) SetData(b []byte) { n.data = b }

func (n *Node) IsSerializedFile() bool { return n.Flags&nodeFlagSerializedFile != 0 }

// New returns an empty bundle laid out the way Unity 2019.4+ writes them.
func New(unityVersion, unityRevision string) *Bundle {
	return &Bundle{
		Signature:     signatureFS,
		FormatVersion: 8,
		UnityVersion:  unityVersion,
		UnityRevision: unityRevision,
		Flags:         flagBlocksAndDirectoryInfo | flagBlockInfoPaddingAtStart | uint32(CompressionLZ4HC),
	}
}

// AddNode appends a node. serialized marks it as a SerializedFile.
func (b *Bundle) AddNode(path string, serialized bool, data []byte) *Node {
	n := &Node{Path: path, data: data}
	if serialized {
		n.Flags = nodeFlagSerializedFile
	}
	b.Nodes = append(b.Nodes, n)
	return n
}

// Compression reports how the blocks info is compressed.
func (b *Bundle) Compression() Compression { return Compression(b.Flags & compressionMask) }

// Node finds a node by its directory path.
func (b *Bundle) Node(path string) *Node {
	for _, n := range b.Nodes {
		if n.Path == path {
			return n
		}
	}
	return nil
}

func Parse(data []byte) (*Bundle, error) {
	r := binio.NewReader(data, binary.BigEndian)
	b := &Bundle{Signature: r.CString()}
	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("unityfs: read signature: %w", err)
	}
	if b.Signature != signatureFS {
		return nil, fmt.Errorf("%w: signature %q", ErrUnsupported, b.Signature)
	}

	b.FormatVersion = r.U32()
	b.UnityVersion = r.CString()
	b.UnityRevision = r.CString()
	size := r.I64()
	compressedInfoSize := int(r.U32())
	uncompressedInfoSize := int(r.U32())
	b.Flags = r.U32()
	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("unityfs: read header: %w", err)
	}
	if b.FormatVersion < 6 || b.FormatVersion > 8 {
		return nil, fmt.Errorf("%w: format version %d", ErrUnsupported, b.FormatVersion)
	}
	if size != int64(len(data)) {
		glog.Warningf("unityfs: header size %d, file size %d", size, len(data))
	}

	if b.FormatVersion >= 7 {
		r.Align(16)
	}
	var rawInfo []byte
	if b.Flags&flagBlocksInfoAtEnd != 0 {
		start := len(data) - compressedInfoSize
		if start < r.Pos() {
			return nil, fmt.Errorf("unityfs: blocks info (%d bytes) overlaps header", compressedInfoSize)
		}
		rawInfo = data[start:]
	} else {
		rawInfo = r.Bytes(compressedInfoSize)
	}
	if b.Flags&flagBlockInfoPaddingAtStart != 0 {
		r.Align(16)
	}
	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("unityfs: read blocks info: %w", err)
	}

	info, err := decompress(Compression(b.Flags&compressionMask), rawInfo, uncompressedInfoSize)
	if err != nil {
		return nil, fmt.Errorf("unityfs: blocks info: %w", err)
	}
	blocks, ranges, err := b.parseBlocksInfo(info)
	if err != nil {
		return nil, err
	}

	stream, err := readBlocks(r, blocks)
	if err != nil {
		return nil, err
	}
	for i, n := range b.Nodes {
		off, end := ranges[i].off, ranges[i].off+ranges[i].size
		if off < 0 || end > int64(len(stream)) || off > end {
			return nil, fmt.Errorf("unityfs: node %q out of range [%d,%d) of %d", n.Path, off, end, len(stream))
		}
		n.data = stream[off:end]
	}

	glog.V(1).Infof("unityfs: unity %s (%s), %d blocks, %d nodes", b.UnityRevision, b.UnityVersion, len(blocks), len(b.Nodes))
	return b, nil
}

type nodeRange struct{ off, size int64 }

// parseBlocksInfo fills b.Nodes and returns the block table plus each node's
// position in the decompressed stream.
func (b *Bundle) parseBlocksInfo(info []byte) ([]blockInfo, []nodeRange, error) {
	r := binio.NewReader(info, binary.BigEndian)
	r.Skip(16) // uncompressed data hash

	count := int(r.I32())
	if count < 0 || count*blockInfoSize > r.Remaining() {
		return nil, nil, fmt.Errorf("unityfs: bad block count %d", count)
	}
	blocks := make([]blockInfo, count)
	for i := range blocks {
		if err := restruct.Unpack(r.Bytes(blockInfoSize), binary.BigEndian, &blocks[i]); err != nil {
			return nil, nil, fmt.Errorf("unityfs: block %d: %w", i, err)
		}
	}

	nodes := int(r.I32())
	if nodes < 0 || nodes > r.Remaining() {
		return nil, nil, fmt.Errorf("unityfs: bad node count %d", nodes)
	}
	ranges := make([]nodeRange, 0, nodes)
	for i := 0; i < nodes; i++ {
		rg := nodeRange{off: r.I64(), size: r.I64()}
		n := &Node{Flags: r.U32(), Path: r.CString()}
		ranges = append(ranges, rg)
		b.Nodes = append(b.Nodes, n)
	}
	if err := r.Err(); err != nil {
		return nil, nil, fmt.Errorf("unityfs: read directory: %w", err)
	}
	return blocks, ranges, nil
}

func readBlocks(r *binio.Reader, blocks []blockInfo) ([]byte, error) {
	var total int
	for _, bl := range blocks {
		total += int(bl.UncompressedSize)
	}
	stream := make([]byte, 0, total)
	for i, bl := range blocks {
		raw := r.Bytes(int(bl.CompressedSize))
		if err := r.Err(); err != nil {
			return nil, fmt.Errorf("unityfs: block %d: %w", i, err)
		}
		out, err := decompress(Compression(bl.Flags&compressionMask), raw, int(bl.UncompressedSize))
		if err != nil {
			return nil, fmt.Errorf("unityfs: block %d: %w", i, err)
		}
		stream = append(stream, out...)
	}
	return stream, nil
}
