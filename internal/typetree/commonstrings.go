package typetree

// Unity's built-in string table. Type tree names with bit 31 set in their
// offset index into this buffer, laid out as NUL-terminated strings in this
// exact order.
var commonStrings = []string{
	"AABB", "AnimationClip", "AnimationCurve", "AnimationState", "Array", "Base",
	"BitField", "bitset", "bool", "char", "ColorRGBA", "Component", "data", "deque",
	"double", "dynamic_array", "FastPropertyName", "first", "float", "Font",
	"GameObject", "Generic Mono", "GradientNEW", "GUID", "GUIStyle", "int", "list",
	"long long", "map", "Matrix4x4f", "MdFour", "MonoBehaviour", "MonoScript",
	"m_ByteSize", "m_Curve", "m_EditorClassIdentifier", "m_EditorHideFlags",
	"m_Enabled", "m_ExtensionPtr", "m_GameObject", "m_Index", "m_IsArray",
	"m_IsStatic", "m_MetaFlag", "m_Name", "m_ObjectHideFlags", "m_PrefabInternal",
	"m_PrefabParentObject", "m_Script", "m_StaticEditorFlags", "m_Type", "m_Version",
	"Object", "pair", "PPtr<Component>", "PPtr<GameObject>", "PPtr<Material>",
	"PPtr<MonoBehaviour>", "PPtr<MonoScript>", "PPtr<Object>", "PPtr<Prefab>",
	"PPtr<Sprite>", "PPtr<TextAsset>", "PPtr<Texture>", "PPtr<Texture2D>",
	"PPtr<Transform>", "Prefab", "Quaternionf", "Rectf", "RectInt", "RectOffset",
	"second", "set", "short", "size", "SInt16", "SInt32", "SInt64", "SInt8",
	"staticvector", "string", "TextAsset", "TextMesh", "Texture", "Texture2D",
	"Transform", "TypelessData", "UInt16", "UInt32", "UInt64", "UInt8",
	"unsigned int", "unsigned long long", "unsigned short", "vector", "Vector2f",
	"Vector3f", "Vector4f", "m_ScriptingClassIdentifier", "Gradient", "Type*",
	"int2_storage", "int3_storage", "BoundsInt", "m_CorrespondingSourceObject",
	"m_PrefabInstance", "m_PrefabAsset", "FileSize", "Hash128",
}

var (
	commonByOffset = map[uint32]string{}
	commonByString = map[string]uint32{}
)

func init() {
	var off uint32
	for _, s := range commonStrings {
		commonByOffset[off] = s
		commonByString[s] = off
		off += uint32(len(s)) + 1
	}
}

func CommonString(off uint32) (string, bool) {
	s, ok := commonByOffset[off]
	return s, ok
}

func CommonStringOffset(s string) (uint32, bool) {
	off, ok := commonByString[s]
	return off, ok
}
