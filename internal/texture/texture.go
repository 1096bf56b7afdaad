// Package texture reads and replaces the pixel payload of decoded Texture2D objects.
package texture

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyImage = errors.New("texture: image is empty")
	ErrNotTexture = errors.New("texture: not a Texture2D")
)

// Resources resolves streamed-data paths to bytes; *assets.Env implements it.
type Resources interface {
	Resource(path string) ([]byte, error)
}

type Info struct {
	Name          string
	Width, Height int
	Format        Format
	MipCount      int
	Size          int    // complete image size
	StreamPath    string // empty when the pixels are inline
}

func ReadInfo(tree map[string]any) (Info, error) {
	if _, ok := tree["image data"]; !ok {
		return Info{}, ErrNotTexture
	}
	info := Info{
		Name:     str(tree["m_Name"]),
		Width:    num(tree["m_Width"]),
		Height:   num(tree["m_Height"]),
		Format:   Format(num(tree["m_TextureFormat"])),
		MipCount: num(tree["m_MipCount"]),
		Size:     num(tree["m_CompleteImageSize"]),
	}
	if sd, ok := tree["m_StreamData"].(map[string]any); ok {
		info.StreamPath = str(sd["path"])
	}
	return info, nil
}

// ImageData returns the encoded pixels, inline or from the stream resource.
func ImageData(tree map[string]any, res Resources) ([]byte, error) {
	if b, _ := tree["image data"].([]byte); len(b) > 0 {
		return b, nil
	}
	sd, _ := tree["m_StreamData"].(map[string]any)
	path := str(sd["path"])
	size := num(sd["size"])
	if path == "" || size == 0 {
		return nil, ErrEmptyImage
	}
	if res == nil {
		return nil, fmt.Errorf("texture: %s: no resource resolver", path)
	}
	blob, err := res.Resource(path)
	if err != nil {
		return nil, err
	}
	off := num(sd["offset"])
	if off < 0 || off+size > len(blob) {
		return nil, fmt.Errorf("texture: stream [%d,%d) outside %s (%d bytes)", off, off+size, path, len(blob))
	}
	return blob[off : off+size], nil
}

// Fields that describe the pixel payload and must follow it into the target.
var imageFields = []string{
	"m_Width",
	"m_Height",
	"m_CompleteImageSize",
	"m_MipsStripped",
	"m_TextureFormat",
	"m_MipCount",
	"m_ImageCount",
	"m_TextureDimension",
	"m_ColorSpace",
	"m_PlatformBlob",
}

// CopyImage makes dst show src's image: the describing fields are copied
// where both trees have them, data is stored inline and the stream
// reference is cleared. dst keeps its own name and settings.
func CopyImage(dst, src map[string]any, data []byte) error {
	if _, ok := dst["image data"]; !ok {
		return ErrNotTexture
	}
	if len(data) == 0 {
		return ErrEmptyImage
	}
	for _, f := range imageFields {
		v, ok := src[f]
		if _, has := dst[f]; ok && has {
			dst[f] = v
		}
	}
	dst["image data"] = append([]byte{}, data...)
	if sd, ok := dst["m_StreamData"].(map[string]any); ok {
		sd["offset"] = uint64(0)
		sd["size"] = uint32(0)
		sd["path"] = ""
	}
	return nil
}

func str(v any) string {
	s, _ := v.(string)
	return s
}

func num(v any) int {
	switch x := v.(type) {
	case int:
		return x
	case int32:
		return int(x)
	case uint32:
		return int(x)
	case int64:
		return int(x)
	case uint64:
		return int(x)
	}
	return 0
}
