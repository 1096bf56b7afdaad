package unitytest

import (
	"encoding/binary"
	"testing"

	"github.com/RailyW/manosaba-index-bg-replace/internal/binio"
	"github.com/RailyW/manosaba-index-bg-replace/internal/typetree"
	"github.com/RailyW/manosaba-index-bg-replace/internal/unityfs"
)

const (
	UnityVersion  = "2022.3.21f1"
	BundleVersion = "5.x.x"
)

type Type struct {
	ClassID         int32
	ScriptTypeIndex int16
	Tree            *typetree.Node

	// reference types only
	ClassName, Namespace, Assembly string
}

type Object struct {
	PathID int64
	Type   int // index into File.Types
	Data   []byte
}

// File describes a SerializedFile to assemble. Versions 17 and later are supported.
type File struct {
	Version   uint32
	BigEndian bool
	Types     []Type
	RefTypes  []Type
	Objects   []Object
	Externals []string
}

func (f File) order() binary.ByteOrder {
	if f.BigEndian {
		return binary.BigEndian
	}
	return binary.LittleEndian
}

// Encode encodes v with the tree of Types[typ] in the file's byte order.
func (f File) Encode(t testing.TB, typ int, v map[string]any) []byte {
	t.Helper()
	c := typetree.Codec{Order: f.order(), Refs: refResolver(f.RefTypes)}
	b, err := c.Write(f.Types[typ].Tree, v)
	if err != nil {
		t.Fatalf("unitytest: encode type %d: %v", typ, err)
	}
	return b
}

type refResolver []Type

func (r refResolver) ResolveRefType(class, ns, asm string) (*typetree.Node, bool) {
	for _, t := range r {
		if t.ClassName == class && t.Namespace == ns && t.Assembly == asm {
			return t.Tree, true
		}
	}
	return nil, false
}

func (f File) Bytes() []byte {
	headerSize := 20
	if f.Version >= 22 {
		headerSize = 48
	}
	w := binio.NewWriter(f.order())
	w.Write(make([]byte, headerSize))

	w.CString(UnityVersion)
	w.I32(19) // StandaloneWindows64
	w.Bool(true)

	w.I32(int32(len(f.Types)))
	for _, t := range f.Types {
		f.writeType(w, t, false)
	}

	starts := make([]int64, len(f.Objects))
	var end int64
	for i, o := range f.Objects {
		end = (end + 7) &^ 7
		starts[i] = end
		end += int64(len(o.Data))
	}

	w.I32(int32(len(f.Objects)))
	for i, o := range f.Objects {
		w.Align(4)
		w.I64(o.PathID)
		if f.Version >= 22 {
			w.I64(starts[i])
		} else {
			w.U32(uint32(starts[i]))
		}
		w.U32(uint32(len(o.Data)))
		w.I32(int32(o.Type))
	}

	w.I32(0) // script types

	w.I32(int32(len(f.Externals)))
	for _, p := range f.Externals {
		w.CString("")
		w.Write(make([]byte, 16))
		w.I32(0)
		w.CString(p)
	}

	if f.Version >= 20 {
		w.I32(int32(len(f.RefTypes)))
		for _, t := range f.RefTypes {
			f.writeType(w, t, true)
		}
	}
	w.CString("")

	metaEnd := w.Len()
	w.Align(16)
	dataOffset := w.Len()
	for i, o := range f.Objects {
		for int64(w.Len()-dataOffset) < starts[i] {
			w.U8(0)
		}
		w.Write(o.Data)
	}
	out := w.Bytes()

	be := binary.BigEndian
	be.PutUint32(out[8:], f.Version)
	if f.BigEndian {
		out[16] = 1
	}
	if f.Version >= 22 {
		be.PutUint32(out[20:], uint32(metaEnd-headerSize))
		be.PutUint64(out[24:], uint64(len(out)))
		be.PutUint64(out[32:], uint64(dataOffset))
	} else {
		be.PutUint32(out[0:], uint32(metaEnd-headerSize))
		be.PutUint32(out[4:], uint32(len(out)))
		be.PutUint32(out[12:], uint32(dataOffset))
	}
	return out
}

func (f File) writeType(w *binio.Writer, t Type, isRef bool) {
	w.I32(t.ClassID)
	w.Bool(false)
	w.I16(t.ScriptTypeIndex)
	if (isRef && t.ScriptTypeIndex >= 0) || t.ClassID == 114 {
		w.Write(make([]byte, 16))
	}
	w.Write(make([]byte, 16))
	typetree.EncodeBlob(w, t.Tree, f.Version)
	if f.Version >= 21 {
		if isRef {
			w.CString(t.ClassName)
			w.CString(t.Namespace)
			w.CString(t.Assembly)
		} else {
			w.I32(0)
		}
	}
}

// Node is one entry of a bundle to assemble.
type Node struct {
	Path       string
	Serialized bool
	Data       []byte
}

func Bundle(t testing.TB, nodes ...Node) []byte {
	t.Helper()
	b := unityfs.New(BundleVersion, UnityVersion)
	for _, n := range nodes {
		b.AddNode(n.Path, n.Serialized, n.Data)
	}
	data, err := b.Bytes()
	if err != nil {
		t.Fatalf("unitytest: pack bundle: %v", err)
	}
	return data
}

// TextureFile is a serialized file with one Texture2D per value, path ids from 1.
func TextureFile(t testing.TB, textures ...map[string]any) []byte {
	t.Helper()
	f := File{Version: 22, Types: []Type{{ClassID: 28, ScriptTypeIndex: -1, Tree: Texture2DTree()}}}
	for i, v := range textures {
		f.Objects = append(f.Objects, Object{PathID: int64(i + 1), Data: f.Encode(t, 0, v)})
	}
	return f.Bytes()
}

// ScriptFile is a serialized file holding a GameObject (path id 1) followed
// by one script asset MonoBehaviour per value.
func ScriptFile(t testing.TB, scripts ...map[string]any) []byte {
	t.Helper()
	f := File{
		Version: 22,
		Types: []Type{
			{ClassID: 114, ScriptTypeIndex: 0, Tree: MonoBehaviourTree()},
			{ClassID: 1, ScriptTypeIndex: -1, Tree: Root(Class("GameObject", "Base", Str("m_Name")))},
		},
		RefTypes: []Type{{
			ClassID: 114, ScriptTypeIndex: -1, Tree: LineTree(),
			ClassName: LineClass, Namespace: LineNamespace, Assembly: LineAssembly,
		}},
	}
	f.Objects = append(f.Objects, Object{PathID: 1, Type: 1, Data: f.Encode(t, 1, map[string]any{"m_Name": "Scripts"})})
	for i, v := range scripts {
		f.Objects = append(f.Objects, Object{PathID: int64(i + 2), Data: f.Encode(t, 0, v)})
	}
	return f.Bytes()
}
