package assets

import "fmt"

// Class ids of the objects these tools touch or commonly meet in bundles.
const (
	ClassGameObject    int32 = 1
	ClassMaterial      int32 = 21
	ClassTexture2D     int32 = 28
	ClassMesh          int32 = 43
	ClassShader        int32 = 48
	ClassTextAsset     int32 = 49
	ClassAudioClip     int32 = 83
	ClassMonoBehaviour int32 = 114
	ClassMonoScript    int32 = 115
	ClassAssetBundle   int32 = 142
	ClassSprite        int32 = 213
	ClassSpriteAtlas   int32 = 687078895
)

var classNames = map[int32]string{
	ClassGameObject:    "GameObject",
	ClassMaterial:      "Material",
	ClassTexture2D:     "Texture2D",
	ClassMesh:          "Mesh",
	ClassShader:        "Shader",
	ClassTextAsset:     "TextAsset",
	ClassAudioClip:     "AudioClip",
	ClassMonoBehaviour: "MonoBehaviour",
	ClassMonoScript:    "MonoScript",
	ClassAssetBundle:   "AssetBundle",
	ClassSprite:        "Sprite",
	ClassSpriteAtlas:   "SpriteAtlas",
}

func ClassName(id int32) string {
	if s, ok := classNames[id]; ok {
		return s
	}
	return fmt.Sprintf("Class%d", id)
}
