package serialized

import (
	"encoding/binary"
	"fmt"
	"sort"

	"github.com/go-restruct/restruct"

	"github.com/RailyW/manosaba-index-bg-replace/internal/binio"
)

// Objects are placed on 8-byte boundaries from the data offset.
const objectAlign = 8

// Bytes returns the file with replaced objects laid out again. Everything
// outside the object table and the data area is copied verbatim, so the
// metadata keeps its size and the data offset does not move.
func (f *File) Bytes() ([]byte, error) {
	if !f.dirty {
		return f.raw, nil
	}

	ordered := make([]*Object, len(f.Objects))
	copy(ordered, f.Objects)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].ByteStart < ordered[j].ByteStart })

	var data []byte
	starts := make(map[*Object]int64, len(ordered))
	for _, o := range ordered {
		for len(data)%objectAlign != 0 {
			data = append(data, 0)
		}
		starts[o] = int64(len(data))
		data = append(data, f.Data(o)...)
	}

	w := binio.NewWriter(f.order)
	w.Write(f.raw[:f.objectsStart])
	w.I32(int32(len(f.Objects)))
	for _, o := range f.Objects {
		f.writeObject(w, o, starts[o], uint32(len(f.Data(o))))
	}
	if w.Len() != f.objectsEnd {
		return nil, fmt.Errorf("serialized: %s: object table moved from %d to %d", f.Name, f.objectsEnd, w.Len())
	}
	w.Write(f.raw[f.objectsEnd:f.dataOffset])
	w.Write(data)
	out := w.Bytes()

	if err := f.patchFileSize(out); err != nil {
		return nil, err
	}

	for _, o := range f.Objects {
		o.ByteSize = uint32(len(f.Data(o)))
		o.ByteStart = f.dataOffset + starts[o]
		o.data = nil
		o.modified = false
	}
	f.raw = out
	f.dirty = false
	return out, nil
}

func (f *File) writeObject(w *binio.Writer, o *Object, start int64, size uint32) {
	w.Align(4)
	w.I64(o.PathID)
	if f.Version >= 22 {
		w.I64(start)
	} else {
		w.U32(uint32(start))
	}
	w.U32(size)
	w.I32(o.TypeID)
	if f.Version < 16 {
		w.U16(uint16(o.ClassID))
	}
	if f.Version < 17 {
		w.I16(o.ScriptTypeIndex)
	}
	if f.Version == 15 || f.Version == 16 {
		w.U8(o.Stripped)
	}
}

func (f *File) patchFileSize(out []byte) error {
	if f.Version >= 22 {
		var lh largeHeader
		if err := restruct.Unpack(out[20:48], binary.BigEndian, &lh); err != nil {
			return fmt.Errorf("serialized: %s: large header: %w", f.Name, err)
		}
		lh.FileSize = int64(len(out))
		p, err := restruct.Pack(binary.BigEndian, &lh)
		if err != nil {
			return fmt.Errorf("serialized: %s: large header: %w", f.Name, err)
		}
		copy(out[20:48], p)
		return nil
	}

	var h header
	if err := restruct.Unpack(out[:16], binary.BigEndian, &h); err != nil {
		return fmt.Errorf("serialized: %s: header: %w", f.Name, err)
	}
	h.FileSize = uint32(len(out))
	p, err := restruct.Pack(binary.BigEndian, &h)
	if err != nil {
		return fmt.Errorf("serialized: %s: header: %w", f.Name, err)
	}
	copy(out[:16], p)
	return nil
}
