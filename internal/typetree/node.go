// Package typetree decodes and encodes serialized Unity objects using the
// type trees stored alongside them.
package typetree

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/RailyW/manosaba-index-bg-replace/internal/binio"
)

// AlignBytes is the meta flag telling the reader to pad to 4 bytes after the value.
const AlignBytes = 0x4000

const commonStringFlag = 0x80000000

type Node struct {
	Type        string
	Name        string
	ByteSize    int32
	Index       int32
	TypeFlags   uint8
	Version     uint16
	Level       uint8
	MetaFlag    uint32
	RefTypeHash uint64
	Children    []*Node
}

func (n *Node) Aligned() bool { return n.MetaFlag&AlignBytes != 0 }

// Child returns the direct child with the given field name.
func (n *Node) Child(name string) *Node {
	for _, c := range n.Children {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func (n *Node) isArray() bool {
	return len(n.Children) > 0 && n.Children[0].Type == "Array" && len(n.Children[0].Children) == 2
}

// Flatten returns the tree in the pre-order layout used on disk.
func (n *Node) Flatten() []*Node {
	out := []*Node{n}
	for _, c := range n.Children {
		out = append(out, c.Flatten()...)
	}
	return out
}

// Dump prints the tree one field per line, indented by level.
func (n *Node) Dump(w io.Writer) {
	for _, c := range n.Flatten() {
		align := ""
		if c.Aligned() {
			align = " (align)"
		}
		fmt.Fprintf(w, "%s%s %s // %d%s\n", strings.Repeat("  ", int(c.Level)), c.Type, c.Name, c.ByteSize, align)
	}
}

// Build links a pre-order node list into a tree using each node's Level.
func Build(flat []*Node) (*Node, error) {
	if len(flat) == 0 {
		return nil, errors.New("typetree: empty node list")
	}
	root := flat[0]
	stack := []*Node{root}
	for _, n := range flat[1:] {
		for len(stack) > 0 && stack[len(stack)-1].Level >= n.Level {
			stack = stack[:len(stack)-1]
		}
		if len(stack) == 0 {
			return nil, fmt.Errorf("typetree: node %s %s at level %d has no parent", n.Type, n.Name, n.Level)
		}
		parent := stack[len(stack)-1]
		parent.Children = append(parent.Children, n)
		stack = append(stack, n)
	}
	return root, nil
}

// NodeEntrySize is the on-disk size of one blob node for a serialized file version.
func NodeEntrySize(fileVersion uint32) int {
	if fileVersion >= 19 {
		return 32
	}
	return 24
}

// ParseBlob reads a type tree in the blob layout (serialized file version 10
// and 12+): node table, then the local string buffer.
func ParseBlob(r *binio.Reader, fileVersion uint32) (*Node, error) {
	count := int(r.I32())
	strSize := int(r.I32())
	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("typetree: blob header: %w", err)
	}
	if count <= 0 || count*NodeEntrySize(fileVersion) > r.Remaining() || strSize < 0 {
		return nil, fmt.Errorf("typetree: bad blob (%d nodes, %d string bytes)", count, strSize)
	}

	flat := make([]*Node, count)
	typeOffs := make([]uint32, count)
	nameOffs := make([]uint32, count)
	for i := range flat {
		n := &Node{}
		n.Version = r.U16()
		n.Level = r.U8()
		n.TypeFlags = r.U8()
		typeOffs[i] = r.U32()
		nameOffs[i] = r.U32()
		n.ByteSize = r.I32()
		n.Index = r.I32()
		n.MetaFlag = r.U32()
		if fileVersion >= 19 {
			n.RefTypeHash = r.U64()
		}
		flat[i] = n
	}
	local := r.Bytes(strSize)
	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("typetree: blob nodes: %w", err)
	}

	var err error
	for i, n := range flat {
		if n.Type, err = lookupString(local, typeOffs[i]); err != nil {
			return nil, err
		}
		if n.Name, err = lookupString(local, nameOffs[i]); err != nil {
			return nil, err
		}
	}
	return Build(flat)
}

func lookupString(local []byte, off uint32) (string, error) {
	if off&commonStringFlag != 0 {
		s, ok := CommonString(off &^ commonStringFlag)
		if !ok {
			return "", fmt.Errorf("typetree: unknown common string offset %d", off&^commonStringFlag)
		}
		return s, nil
	}
	if int(off) >= len(local) {
		return "", fmt.Errorf("typetree: string offset %d outside %d-byte buffer", off, len(local))
	}
	s := local[off:]
	if i := bytes.IndexByte(s, 0); i >= 0 {
		s = s[:i]
	}
	return string(s), nil
}

// EncodeBlob writes the tree in blob layout. Names found in the common
// string table are referenced from it, the rest go to the local buffer.
func EncodeBlob(w *binio.Writer, root *Node, fileVersion uint32) {
	flat := root.Flatten()
	var local []byte
	localOffs := map[string]uint32{}
	ref := func(s string) uint32 {
		if off, ok := CommonStringOffset(s); ok {
			return off | commonStringFlag
		}
		if off, ok := localOffs[s]; ok {
			return off
		}
		off := uint32(len(local))
		local = append(append(local, s...), 0)
		localOffs[s] = off
		return off
	}

	w.I32(int32(len(flat)))
	sizeAt := w.Len()
	w.I32(0)
	for _, n := range flat {
		w.U16(n.Version)
		w.U8(n.Level)
		w.U8(n.TypeFlags)
		w.U32(ref(n.Type))
		w.U32(ref(n.Name))
		w.I32(n.ByteSize)
		w.I32(n.Index)
		w.U32(n.MetaFlag)
		if fileVersion >= 19 {
			w.U64(n.RefTypeHash)
		}
	}
	w.PutU32At(sizeAt, uint32(len(local)))
	w.Write(local)
}
