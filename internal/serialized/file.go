// Package serialized parses Unity SerializedFile nodes (the "CAB-*" entries
// of a bundle) far enough to locate, decode and replace objects.
package serialized

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/go-restruct/restruct"
	"github.com/golang/glog"

	"github.com/RailyW/manosaba-index-bg-replace/internal/binio"
	"github.com/RailyW/manosaba-index-bg-replace/internal/typetree"
)

// Oldest layout handled: 64-bit aligned path ids and blob type trees (Unity 5.5+).
const minVersion = 14

const classMonoBehaviour = 114

var (
	ErrUnsupported = errors.New("serialized: unsupported file")
	ErrNoTypeTree  = errors.New("serialized: object has no type tree")
)

// header is the big-endian prefix shared by every version.
type header struct {
	MetadataSize uint32
	FileSize     uint32
	Version      uint32
	DataOffset   uint32
}

// largeHeader follows the endianness byte from version 22 on.
type largeHeader struct {
	MetadataSize uint32
	FileSize     int64
	DataOffset   int64
	Unknown      int64
}

type Type struct {
	ClassID         int32
	IsStripped      bool
	ScriptTypeIndex int16
	ScriptID        [16]byte
	OldTypeHash     [16]byte
	Tree            *typetree.Node

	// set for reference types only
	ClassName string
	Namespace string
	Assembly  string

	Dependencies []int32
}

type Object struct {
	PathID          int64
	ByteStart       int64 // from the start of the file
	ByteSize        uint32
	TypeID          int32
	ClassID         int32
	Type            *Type
	ScriptTypeIndex int16
	Stripped        uint8

	data     []byte
	modified bool
}

type External struct {
	TempEmpty string
	GUID      [16]byte
	Type      int32
	PathName  string
}

type File struct {
	Name            string
	Version         uint32
	UnityVersion    string
	TargetPlatform  int32
	EnableTypeTree  bool
	Types           []*Type
	Objects         []*Object
	Externals       []External
	RefTypes        []*Type
	UserInformation string

	order        binary.ByteOrder
	raw          []byte
	dataOffset   int64
	objectsStart int
	objectsEnd   int
	dirty        bool
}

func Parse(name string, data []byte) (*File, error) {
	if len(data) < 20 {
		return nil, fmt.Errorf("serialized: %s: file too short (%d bytes)", name, len(data))
	}
	var h header
	if err := restruct.Unpack(data[:16], binary.BigEndian, &h); err != nil {
		return nil, fmt.Errorf("serialized: %s: header: %w", name, err)
	}
	f := &File{Name: name, Version: h.Version, raw: data}
	if f.Version < minVersion || f.Version > 30 {
		return nil, fmt.Errorf("%w: %s: version %d", ErrUnsupported, name, f.Version)
	}

	r := binio.NewReader(data, binary.BigEndian)
	r.Seek(16)
	endian := r.U8()
	r.Skip(3)
	fileSize := int64(h.FileSize)
	f.dataOffset = int64(h.DataOffset)
	if f.Version >= 22 {
		var lh largeHeader
		if err := restruct.Unpack(r.Bytes(28), binary.BigEndian, &lh); err != nil {
			return nil, fmt.Errorf("serialized: %s: large header: %w", name, err)
		}
		fileSize = lh.FileSize
		f.dataOffset = lh.DataOffset
	}
	if fileSize != int64(len(data)) {
		glog.Warningf("serialized: %s: header size %d, node size %d", name, fileSize, len(data))
	}

	f.order = binary.LittleEndian
	if endian != 0 {
		f.order = binary.BigEndian
	}
	r.SetOrder(f.order)

	f.UnityVersion = r.CString()
	f.TargetPlatform = r.I32()
	f.EnableTypeTree = r.Bool()

	typeCount := int(r.I32())
	if typeCount < 0 || typeCount > r.Remaining() {
		return nil, fmt.Errorf("serialized: %s: bad type count %d", name, typeCount)
	}
	for i := 0; i < typeCount; i++ {
		t, err := f.readType(r, false)
		if err != nil {
			return nil, fmt.Errorf("serialized: %s: type %d: %w", name, i, err)
		}
		f.Types = append(f.Types, t)
	}

	f.objectsStart = r.Pos()
	objectCount := int(r.I32())
	if objectCount < 0 || objectCount > r.Remaining() {
		return nil, fmt.Errorf("serialized: %s: bad object count %d", name, objectCount)
	}
	for i := 0; i < objectCount; i++ {
		o, err := f.readObject(r)
		if err != nil {
			return nil, fmt.Errorf("serialized: %s: object %d: %w", name, i, err)
		}
		f.Objects = append(f.Objects, o)
	}
	f.objectsEnd = r.Pos()

	scriptCount := int(r.I32())
	for i := 0; i < scriptCount && r.Err() == nil; i++ {
		r.I32() // local serialized file index
		r.Align(4)
		r.I64() // local identifier in file
	}

	externalCount := int(r.I32())
	for i := 0; i < externalCount && r.Err() == nil; i++ {
		var e External
		e.TempEmpty = r.CString()
		copy(e.GUID[:], r.Bytes(16))
		e.Type = r.I32()
		e.PathName = r.CString()
		f.Externals = append(f.Externals, e)
	}

	if f.Version >= 20 {
		refCount := int(r.I32())
		if refCount < 0 || refCount > r.Remaining() {
			return nil, fmt.Errorf("serialized: %s: bad ref type count %d", name, refCount)
		}
		for i := 0; i < refCount; i++ {
			t, err := f.readType(r, true)
			if err != nil {
				return nil, fmt.Errorf("serialized: %s: ref type %d: %w", name, i, err)
			}
			f.RefTypes = append(f.RefTypes, t)
		}
	}
	f.UserInformation = r.CString()

	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("serialized: %s: metadata: %w", name, err)
	}
	if int64(r.Pos()) > f.dataOffset || f.dataOffset > int64(len(data)) {
		return nil, fmt.Errorf("serialized: %s: data offset %d inside metadata (ends at %d)", name, f.dataOffset, r.Pos())
	}
	for _, o := range f.Objects {
		if o.ByteStart < f.dataOffset || o.ByteStart+int64(o.ByteSize) > int64(len(data)) {
			return nil, fmt.Errorf("serialized: %s: object %d spans [%d,%d) outside data", name, o.PathID, o.ByteStart, o.ByteStart+int64(o.ByteSize))
		}
	}

	glog.V(1).Infof("serialized: %s: version %d, unity %s, %d types, %d objects, %d ref types",
		name, f.Version, f.UnityVersion, len(f.Types), len(f.Objects), len(f.RefTypes))
	return f, nil
}

func (f *File) readType(r *binio.Reader, isRef bool) (*Type, error) {
	t := &Type{ClassID: r.I32(), ScriptTypeIndex: -1}
	if f.Version >= 16 {
		t.IsStripped = r.Bool()
	}
	if f.Version >= 17 {
		t.ScriptTypeIndex = r.I16()
	}
	if (isRef && t.ScriptTypeIndex >= 0) ||
		(f.Version < 16 && t.ClassID < 0) ||
		(f.Version >= 16 && t.ClassID == classMonoBehaviour) {
		copy(t.ScriptID[:], r.Bytes(16))
	}
	copy(t.OldTypeHash[:], r.Bytes(16))
	if err := r.Err(); err != nil {
		return nil, err
	}

	if !f.EnableTypeTree {
		return t, nil
	}
	tree, err := typetree.ParseBlob(r, f.Version)
	if err != nil {
		return nil, err
	}
	t.Tree = tree
	if f.Version >= 21 {
		if isRef {
			t.ClassName = r.CString()
			t.Namespace = r.CString()
			t.Assembly = r.CString()
		} else {
			n := int(r.I32())
			if n < 0 || n*4 > r.Remaining() {
				return nil, fmt.Errorf("bad dependency count %d", n)
			}
			t.Dependencies = make([]int32, n)
			for i := range t.Dependencies {
				t.Dependencies[i] = r.I32()
			}
		}
	}
	return t, r.Err()
}

func (f *File) readObject(r *binio.Reader) (*Object, error) {
	o := &Object{ScriptTypeIndex: -1}
	r.Align(4)
	o.PathID = r.I64()
	if f.Version >= 22 {
		o.ByteStart = r.I64()
	} else {
		o.ByteStart = int64(r.U32())
	}
	o.ByteStart += f.dataOffset
	o.ByteSize = r.U32()
	o.TypeID = r.I32()
	if f.Version < 16 {
		o.ClassID = int32(r.U16())
		for _, t := range f.Types {
			if t.ClassID == o.TypeID {
				o.Type = t
				break
			}
		}
	} else {
		if o.TypeID < 0 || int(o.TypeID) >= len(f.Types) {
			return nil, fmt.Errorf("type index %d out of %d", o.TypeID, len(f.Types))
		}
		o.Type = f.Types[o.TypeID]
		o.ClassID = o.Type.ClassID
	}
	if f.Version < 17 {
		o.ScriptTypeIndex = r.I16()
	}
	if f.Version == 15 || f.Version == 16 {
		o.Stripped = r.U8()
	}
	return o, r.Err()
}

func (f *File) ByteOrder() binary.ByteOrder { return f.order }

// Dirty reports whether any object was replaced since parsing or the last Bytes call.
func (f *File) Dirty() bool { return f.dirty }

// Data returns the object's current serialized bytes.
func (f *File) Data(o *Object) []byte {
	if o.modified {
		return o.data
	}
	return f.raw[o.ByteStart : o.ByteStart+int64(o.ByteSize)]
}

func (f *File) SetData(o *Object, b []byte) {
	o.data = b
	o.modified = true
	f.dirty = true
}

// Object looks an object up by path id.
func (f *File) Object(pathID int64) *Object {
	for _, o := range f.Objects {
		if o.PathID == pathID {
			return o
		}
	}
	return nil
}

func (f *File) ResolveRefType(class, ns, asm string) (*typetree.Node, bool) {
	for _, t := range f.RefTypes {
		if t.ClassName == class && t.Namespace == ns && t.Assembly == asm && t.Tree != nil {
			return t.Tree, true
		}
	}
	return nil, false
}

func (f *File) codec() typetree.Codec {
	return typetree.Codec{Order: f.order, Refs: f}
}

// Read decodes an object through its type tree.
func (f *File) Read(o *Object) (map[string]any, error) {
	if o.Type == nil || o.Type.Tree == nil {
		return nil, fmt.Errorf("%w: %s path id %d", ErrNoTypeTree, f.Name, o.PathID)
	}
	return f.codec().Read(o.Type.Tree, f.Data(o))
}

// Write encodes tree with the object's type tree and stores it as the object's data.
func (f *File) Write(o *Object, tree map[string]any) error {
	if o.Type == nil || o.Type.Tree == nil {
		return fmt.Errorf("%w: %s path id %d", ErrNoTypeTree, f.Name, o.PathID)
	}
	b, err := f.codec().Write(o.Type.Tree, tree)
	if err != nil {
		return err
	}
	f.SetData(o, b)
	return nil
}

// ObjectName returns the object's m_Name, or "" when it has none or cannot be decoded.
func (f *File) ObjectName(o *Object) string {
	tree, err := f.Read(o)
	if err != nil {
		return ""
	}
	name, _ := tree["m_Name"].(string)
	return name
}
