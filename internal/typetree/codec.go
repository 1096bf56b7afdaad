package typetree

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/RailyW/manosaba-index-bg-replace/internal/binio"
)

// RefResolver finds the type tree of a [SerializeReference] payload class.
type RefResolver interface {
	ResolveRefType(class, ns, asm string) (*Node, bool)
}

// Codec converts object bytes to and from generic values:
//
//	bool, int8..int64, uint8..uint64, float32, float64, string
//	[]byte          TypelessData and UInt8 arrays
//	[]any           arrays (maps are arrays of {"first", "second"} pairs)
//	map[string]any  everything else
type Codec struct {
	Order binary.ByteOrder
	Refs  RefResolver
}

func (c Codec) Read(root *Node, data []byte) (map[string]any, error) {
	r := binio.NewReader(data, c.Order)
	v, err := c.read(r, root, root.Name)
	if err != nil {
		return nil, fmt.Errorf("typetree: %s: %w", root.Type, err)
	}
	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("typetree: %s: %w", root.Type, err)
	}
	if r.Pos() != len(data) {
		return nil, fmt.Errorf("typetree: %s: consumed %d of %d bytes", root.Type, r.Pos(), len(data))
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("typetree: root %s is not a class", root.Type)
	}
	return m, nil
}

func (c Codec) Write(root *Node, v map[string]any) ([]byte, error) {
	w := binio.NewWriter(c.Order)
	if err := c.write(w, root, v, root.Name); err != nil {
		return nil, fmt.Errorf("typetree: %s: %w", root.Type, err)
	}
	return w.Bytes(), nil
}

func isByteType(t string) bool { return t == "UInt8" || t == "char" }

func (c Codec) read(r *binio.Reader, n *Node, path string) (any, error) {
	align := n.Aligned()
	var v any
	switch n.Type {
	case "bool":
		v = r.Bool()
	case "SInt8":
		v = int8(r.U8())
	case "UInt8", "char":
		v = r.U8()
	case "SInt16", "short":
		v = r.I16()
	case "UInt16", "unsigned short":
		v = r.U16()
	case "SInt32", "int":
		v = r.I32()
	case "UInt32", "unsigned int", "Type*":
		v = r.U32()
	case "SInt64", "long long":
		v = r.I64()
	case "UInt64", "unsigned long long", "FileSize":
		v = r.U64()
	case "float":
		v = r.F32()
	case "double":
		v = r.F64()
	case "string":
		size := int(r.I32())
		if size < 0 || size > r.Remaining() {
			return nil, fmt.Errorf("%s: string length %d", path, size)
		}
		v = string(r.Bytes(size))
		if len(n.Children) > 0 && n.Children[0].Aligned() {
			align = true
		}
	case "TypelessData":
		size := int(r.I32())
		if size < 0 || size > r.Remaining() {
			return nil, fmt.Errorf("%s: data length %d", path, size)
		}
		v = append([]byte{}, r.Bytes(size)...)
	case "ReferencedObject":
		obj, err := c.readReferenced(r, n, path)
		if err != nil {
			return nil, err
		}
		v = obj
	default:
		if n.isArray() {
			arr := n.Children[0]
			if arr.Aligned() {
				align = true
			}
			elem := arr.Children[1]
			size := int(r.I32())
			if size < 0 || size > r.Remaining() {
				return nil, fmt.Errorf("%s: array length %d", path, size)
			}
			if isByteType(elem.Type) && !elem.Aligned() {
				v = append([]byte{}, r.Bytes(size)...)
				break
			}
			items := make([]any, size)
			for i := range items {
				item, err := c.read(r, elem, fmt.Sprintf("%s[%d]", path, i))
				if err != nil {
					return nil, err
				}
				if r.Err() != nil {
					return nil, fmt.Errorf("%s[%d]: %w", path, i, r.Err())
				}
				items[i] = item
			}
			v = items
			break
		}
		obj := make(map[string]any, len(n.Children))
		for _, ch := range n.Children {
			item, err := c.read(r, ch, path+"."+ch.Name)
			if err != nil {
				return nil, err
			}
			obj[ch.Name] = item
		}
		v = obj
	}
	if align {
		r.Align(4)
	}
	return v, nil
}

// readReferenced decodes one ManagedReferencesRegistry entry. Its data field
// has no children in the object's own tree; the layout comes from the ref
// type named by the entry's type field.
func (c Codec) readReferenced(r *binio.Reader, n *Node, path string) (map[string]any, error) {
	obj := make(map[string]any, len(n.Children))
	for _, ch := range n.Children {
		if ch.Type != "ReferencedObjectData" {
			item, err := c.read(r, ch, path+"."+ch.Name)
			if err != nil {
				return nil, err
			}
			obj[ch.Name] = item
			continue
		}
		node, err := c.refNode(obj["type"], path)
		if err != nil {
			return nil, err
		}
		if node == nil {
			obj[ch.Name] = map[string]any{}
			continue
		}
		item, err := c.read(r, node, path+"."+ch.Name)
		if err != nil {
			return nil, err
		}
		obj[ch.Name] = item
	}
	return obj, nil
}

// refNode returns nil for null references, which carry no payload.
func (c Codec) refNode(typ any, path string) (*Node, error) {
	t, _ := typ.(map[string]any)
	class, _ := t["class"].(string)
	ns, _ := t["ns"].(string)
	asm, _ := t["asm"].(string)
	if class == "" {
		return nil, nil
	}
	if c.Refs == nil {
		return nil, fmt.Errorf("%s: no resolver for reference type %s", path, class)
	}
	node, ok := c.Refs.ResolveRefType(class, ns, asm)
	if !ok {
		return nil, fmt.Errorf("%s: reference type %s.%s (%s) not in file", path, ns, class, asm)
	}
	return node, nil
}

func (c Codec) write(w *binio.Writer, n *Node, v any, path string) error {
	align := n.Aligned()
	switch n.Type {
	case "bool":
		b, ok := v.(bool)
		if !ok {
			return typeError(path, n, v)
		}
		w.Bool(b)
	case "SInt8":
		i, err := toInt(v, math.MinInt8, math.MaxInt8, path)
		if err != nil {
			return err
		}
		w.U8(uint8(int8(i)))
	case "UInt8", "char":
		u, err := toUint(v, math.MaxUint8, path)
		if err != nil {
			return err
		}
		w.U8(uint8(u))
	case "SInt16", "short":
		i, err := toInt(v, math.MinInt16, math.MaxInt16, path)
		if err != nil {
			return err
		}
		w.I16(int16(i))
	case "UInt16", "unsigned short":
		u, err := toUint(v, math.MaxUint16, path)
		if err != nil {
			return err
		}
		w.U16(uint16(u))
	case "SInt32", "int":
		i, err := toInt(v, math.MinInt32, math.MaxInt32, path)
		if err != nil {
			return err
		}
		w.I32(int32(i))
	case "UInt32", "unsigned int", "Type*":
		u, err := toUint(v, math.MaxUint32, path)
		if err != nil {
			return err
		}
		w.U32(uint32(u))
	case "SInt64", "long long":
		i, err := toInt(v, math.MinInt64, math.MaxInt64, path)
		if err != nil {
			return err
		}
		w.I64(i)
	case "UInt64", "unsigned long long", "FileSize":
		u, err := toUint(v, math.MaxUint64, path)
		if err != nil {
			return err
		}
		w.U64(u)
	case "float":
		switch f := v.(type) {
		case float32:
			w.F32(f)
		case float64:
			w.F32(float32(f))
		default:
			return typeError(path, n, v)
		}
	case "double":
		switch f := v.(type) {
		case float64:
			w.F64(f)
		case float32:
			w.F64(float64(f))
		default:
			return typeError(path, n, v)
		}
	case "string":
		s, ok := v.(string)
		if !ok {
			return typeError(path, n, v)
		}
		w.I32(int32(len(s)))
		w.Write([]byte(s))
		if len(n.Children) > 0 && n.Children[0].Aligned() {
			align = true
		}
	case "TypelessData":
		b, ok := v.([]byte)
		if !ok {
			return typeError(path, n, v)
		}
		w.I32(int32(len(b)))
		w.Write(b)
	case "ReferencedObject":
		if err := c.writeReferenced(w, n, v, path); err != nil {
			return err
		}
	default:
		if n.isArray() {
			arr := n.Children[0]
			if arr.Aligned() {
				align = true
			}
			elem := arr.Children[1]
			switch items := v.(type) {
			case []byte:
				if !isByteType(elem.Type) {
					return typeError(path, n, v)
				}
				w.I32(int32(len(items)))
				w.Write(items)
			case []any:
				w.I32(int32(len(items)))
				for i, item := range items {
					if err := c.write(w, elem, item, fmt.Sprintf("%s[%d]", path, i)); err != nil {
						return err
					}
				}
			default:
				return typeError(path, n, v)
			}
			break
		}
		obj, ok := v.(map[string]any)
		if !ok {
			return typeError(path, n, v)
		}
		for _, ch := range n.Children {
			item, ok := obj[ch.Name]
			if !ok {
				return fmt.Errorf("%s.%s: field missing", path, ch.Name)
			}
			if err := c.write(w, ch, item, path+"."+ch.Name); err != nil {
				return err
			}
		}
	}
	if align {
		w.Align(4)
	}
	return nil
}

func (c Codec) writeReferenced(w *binio.Writer, n *Node, v any, path string) error {
	obj, ok := v.(map[string]any)
	if !ok {
		return typeError(path, n, v)
	}
	for _, ch := range n.Children {
		item, ok := obj[ch.Name]
		if !ok {
			return fmt.Errorf("%s.%s: field missing", path, ch.Name)
		}
		if ch.Type != "ReferencedObjectData" {
			if err := c.write(w, ch, item, path+"."+ch.Name); err != nil {
				return err
			}
			continue
		}
		node, err := c.refNode(obj["type"], path)
		if err != nil {
			return err
		}
		if node == nil {
			continue
		}
		if err := c.write(w, node, item, path+"."+ch.Name); err != nil {
			return err
		}
	}
	return nil
}

func typeError(path string, n *Node, v any) error {
	return fmt.Errorf("%s: cannot write %T as %s", path, v, n.Type)
}

func toInt(v any, lo, hi int64, path string) (int64, error) {
	var i int64
	switch x := v.(type) {
	case int:
		i = int64(x)
	case int8:
		i = int64(x)
	case int16:
		i = int64(x)
	case int32:
		i = int64(x)
	case int64:
		i = x
	case uint8:
		i = int64(x)
	case uint16:
		i = int64(x)
	case uint32:
		i = int64(x)
	case uint64:
		if x > math.MaxInt64 {
			return 0, fmt.Errorf("%s: %d out of range", path, x)
		}
		i = int64(x)
	case uint:
		if uint64(x) > math.MaxInt64 {
			return 0, fmt.Errorf("%s: %d out of range", path, x)
		}
		i = int64(x)
	default:
		return 0, fmt.Errorf("%s: cannot write %T as integer", path, v)
	}
	if i < lo || i > hi {
		return 0, fmt.Errorf("%s: %d out of range [%d, %d]", path, i, lo, hi)
	}
	return i, nil
}

func toUint(v any, hi uint64, path string) (uint64, error) {
	var u uint64
	switch x := v.(type) {
	case uint:
		u = uint64(x)
	case uint8:
		u = uint64(x)
	case uint16:
		u = uint64(x)
	case uint32:
		u = uint64(x)
	case uint64:
		u = x
	default:
		i, err := toInt(v, 0, math.MaxInt64, path)
		if err != nil {
			return 0, err
		}
		u = uint64(i)
	}
	if u > hi {
		return 0, fmt.Errorf("%s: %d out of range [0, %d]", path, u, hi)
	}
	return u, nil
}
