// Package unitytest builds small synthetic bundles, serialized files and
// type trees for tests.
package unitytest

import "github.com/RailyW/manosaba-index-bg-replace/internal/typetree"

func Prim(typ, name string, size int32) *typetree.Node {
	return &typetree.Node{Type: typ, Name: name, ByteSize: size}
}

// Align marks n as padded to 4 bytes after its value.
func Align(n *typetree.Node) *typetree.Node {
	n.MetaFlag |= typetree.AlignBytes
	return n
}

func Class(typ, name string, children ...*typetree.Node) *typetree.Node {
	return &typetree.Node{Type: typ, Name: name, ByteSize: -1, Children: children}
}

func Str(name string) *typetree.Node {
	n := Class("string", name,
		Align(Class("Array", "Array", Prim("int", "size", 4), Prim("char", "data", 1))))
	n.MetaFlag = 0x8000
	return n
}

// Vector is a vector<elem> field; elem is renamed to "data".
func Vector(name string, elem *typetree.Node) *typetree.Node {
	elem.Name = "data"
	return Class("vector", name, Align(Class("Array", "Array", Prim("int", "size", 4), elem)))
}

func Bytes(name string) *typetree.Node {
	return Align(Class("TypelessData", name, Prim("int", "size", 4), Prim("UInt8", "data", 1)))
}

func PPtr(class, name string) *typetree.Node {
	return Class("PPtr<"+class+">", name, Prim("int", "m_FileID", 4), Prim("SInt64", "m_PathID", 8))
}

// Root fixes Level and Index on every node of a hand-built tree.
func Root(n *typetree.Node) *typetree.Node {
	for i, c := range n.Flatten() {
		c.Index = int32(i)
	}
	var level func(*typetree.Node, uint8)
	level = func(n *typetree.Node, l uint8) {
		n.Level = l
		for _, c := range n.Children {
			level(c, l+1)
		}
	}
	level(n, 0)
	return n
}

// Texture2DTree is the Texture2D layout of Unity 2022.3.
func Texture2DTree() *typetree.Node {
	return Root(Class("Texture2D", "Base",
		Str("m_Name"),
		Prim("int", "m_ForcedFallbackFormat", 4),
		Prim("bool", "m_DownscaleFallback", 1),
		Align(Prim("bool", "m_IsAlphaChannelOptional", 1)),
		Prim("int", "m_Width", 4),
		Prim("int", "m_Height", 4),
		Prim("int", "m_CompleteImageSize", 4),
		Prim("int", "m_MipsStripped", 4),
		Prim("int", "m_TextureFormat", 4),
		Prim("int", "m_MipCount", 4),
		Prim("bool", "m_IsReadable", 1),
		Prim("bool", "m_IsPreProcessed", 1),
		Prim("bool", "m_IgnoreMipmapLimit", 1),
		Align(Prim("bool", "m_StreamingMipmaps", 1)),
		Prim("int", "m_StreamingMipmapsPriority", 4),
		Prim("int", "m_ImageCount", 4),
		Prim("int", "m_TextureDimension", 4),
		Class("GLTextureSettings", "m_TextureSettings",
			Prim("int", "m_FilterMode", 4),
			Prim("int", "m_Aniso", 4),
			Prim("float", "m_MipBias", 4),
			Prim("int", "m_WrapU", 4),
			Prim("int", "m_WrapV", 4),
			Prim("int", "m_WrapW", 4)),
		Prim("int", "m_LightmapFormat", 4),
		Prim("int", "m_ColorSpace", 4),
		Align(Vector("m_PlatformBlob", Prim("UInt8", "data", 1))),
		Bytes("image data"),
		Class("StreamingInfo", "m_StreamData",
			Prim("UInt64", "offset", 8),
			Prim("unsigned int", "size", 4),
			Str("path")),
	))
}

// Texture2D returns a value for Texture2DTree with the pixels inline.
func Texture2D(name string, width, height int, format int32, image []byte) map[string]any {
	return map[string]any{
		"m_Name":                     name,
		"m_ForcedFallbackFormat":     int32(4),
		"m_DownscaleFallback":        false,
		"m_IsAlphaChannelOptional":   false,
		"m_Width":                    int32(width),
		"m_Height":                   int32(height),
		"m_CompleteImageSize":        int32(len(image)),
		"m_MipsStripped":             int32(0),
		"m_TextureFormat":            format,
		"m_MipCount":                 int32(1),
		"m_IsReadable":               false,
		"m_IsPreProcessed":           false,
		"m_IgnoreMipmapLimit":        false,
		"m_StreamingMipmaps":         false,
		"m_StreamingMipmapsPriority": int32(0),
		"m_ImageCount":               int32(1),
		"m_TextureDimension":         int32(2),
		"m_TextureSettings": map[string]any{
			"m_FilterMode": int32(1),
			"m_Aniso":      int32(1),
			"m_MipBias":    float32(0),
			"m_WrapU":      int32(1),
			"m_WrapV":      int32(1),
			"m_WrapW":      int32(1),
		},
		"m_LightmapFormat": int32(0),
		"m_ColorSpace":     int32(1),
		"m_PlatformBlob":   []byte{},
		"image data":       append([]byte{}, image...),
		"m_StreamData": map[string]any{
			"offset": uint64(0),
			"size":   uint32(0),
			"path":   "",
		},
	}
}

// Streamed moves a Texture2D value's pixels out to a resource path.
func Streamed(tex map[string]any, path string, offset, size int) map[string]any {
	tex["image data"] = []byte{}
	tex["m_CompleteImageSize"] = int32(size)
	tex["m_StreamData"] = map[string]any{
		"offset": uint64(offset),
		"size":   uint32(size),
		"path":   path,
	}
	return tex
}

// Script asset identity used by MonoBehaviourTree's reference registry.
const (
	LineClass     = "CommandScriptLine"
	LineNamespace = "Naninovel"
	LineAssembly  = "Elringus.Naninovel.Runtime"
)

// MonoBehaviourTree is a script asset whose lines are [SerializeReference]
// entries kept in a version 2 ManagedReferencesRegistry.
func MonoBehaviourTree() *typetree.Node {
	entry := Class("ReferencedObject", "data",
		Prim("SInt64", "rid", 8),
		Class("ReferencedManagedType", "type", Str("class"), Str("ns"), Str("asm")),
		Class("ReferencedObjectData", "data"))
	return Root(Class("MonoBehaviour", "Base",
		PPtr("GameObject", "m_GameObject"),
		Align(Prim("UInt8", "m_Enabled", 1)),
		PPtr("MonoScript", "m_Script"),
		Str("m_Name"),
		Vector("lines", Class("managedReference", "data", Prim("SInt64", "rid", 8))),
		Class("ManagedReferencesRegistry", "references",
			Prim("int", "version", 4),
			Vector("RefIds", entry)),
	))
}

// LineTree is the payload layout of LineClass.
func LineTree() *typetree.Node {
	return Root(Class(LineClass, "Base",
		Prim("int", "lineIndex", 4),
		Prim("int", "indent", 4),
		Str("lineHash"),
		Str("lineText"),
	))
}

// MonoBehaviour returns a value for MonoBehaviourTree holding one
// LineClass reference per text.
func MonoBehaviour(name string, texts ...string) map[string]any {
	lines := make([]any, 0, len(texts))
	refs := make([]any, 0, len(texts)+1)
	for i, s := range texts {
		rid := int64(1000 + i)
		lines = append(lines, map[string]any{"rid": rid})
		refs = append(refs, map[string]any{
			"rid":  rid,
			"type": map[string]any{"class": LineClass, "ns": LineNamespace, "asm": LineAssembly},
			"data": map[string]any{
				"lineIndex": int32(i),
				"indent":    int32(0),
				"lineHash":  "",
				"lineText":  s,
			},
		})
	}
	// terminator entry with a null type, as Unity writes it
	refs = append(refs, map[string]any{
		"rid":  int64(-2),
		"type": map[string]any{"class": "", "ns": "", "asm": ""},
		"data": map[string]any{},
	})
	return map[string]any{
		"m_GameObject": map[string]any{"m_FileID": int32(0), "m_PathID": int64(0)},
		"m_Enabled":    uint8(1),
		"m_Script":     map[string]any{"m_FileID": int32(1), "m_PathID": int64(11500000)},
		"m_Name":       name,
		"lines":        lines,
		"references": map[string]any{
			"version": int32(2),
			"RefIds":  refs,
		},
	}
}
