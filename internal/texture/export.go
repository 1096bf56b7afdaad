package texture

import (
	"fmt"
	"image"
	"path/filepath"
	"strings"

	"github.com/anthonynsimon/bild/imgio"
)

// Export saves img as PNG, or JPEG for .jpg/.jpeg paths.
func Export(path string, img image.Image) error {
	enc := imgio.PNGEncoder()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg":
		enc = imgio.JPEGEncoder(95)
	case ".png":
	default:
		return fmt.Errorf("texture: %s: unknown image type (use .png or .jpg)", path)
	}
	if err := imgio.Save(path, img, enc); err != nil {
		return fmt.Errorf("texture: save %s: %w", path, err)
	}
	return nil
}
