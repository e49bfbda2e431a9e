package thumbnails

import (
	"bytes"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strconv"

	"github.com/pkg/errors"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

const jpegQuality = 85

// Generator renders and stores fixed-height JPEG cover thumbnails, one per
// gallery, as {dir}/{galleryID}.jpg.
type Generator struct {
	dir    string
	height int
}

func NewGenerator(dir string, height int) *Generator {
	return &Generator{dir: dir, height: height}
}

// Path returns the on-disk location of a gallery's thumbnail, whether or not
// it exists yet.
func (g *Generator) Path(galleryID int) string {
	return filepath.Join(g.dir, strconv.Itoa(galleryID)+".jpg")
}

// Exists reports whether a thumbnail has been generated for the gallery.
func (g *Generator) Exists(galleryID int) bool {
	_, err := os.Stat(g.Path(galleryID))
	return err == nil
}

// Generate decodes an image, scales it to the configured height preserving
// aspect ratio, and writes it as a quality-85 JPEG. Drawing onto an RGBA
// canvas flattens alpha and indexed color so the JPEG encode always works.
func (g *Generator) Generate(galleryID int, imageData []byte) (string, error) {
	src, _, err := image.Decode(bytes.NewReader(imageData))
	if err != nil {
		return "", errors.WithStack(err)
	}

	resized := scaleToHeight(src, g.height)

	if err := os.MkdirAll(g.dir, 0755); err != nil {
		return "", errors.WithStack(err)
	}

	path := g.Path(galleryID)
	out, err := os.Create(path)
	if err != nil {
		return "", errors.WithStack(err)
	}
	defer out.Close()

	if err := jpeg.Encode(out, resized, &jpeg.Options{Quality: jpegQuality}); err != nil {
		os.Remove(path)
		return "", errors.WithStack(err)
	}

	return path, nil
}

// Remove deletes a gallery's thumbnail if present.
func (g *Generator) Remove(galleryID int) error {
	err := os.Remove(g.Path(galleryID))
	if err != nil && !os.IsNotExist(err) {
		return errors.WithStack(err)
	}
	return nil
}

func scaleToHeight(src image.Image, height int) *image.RGBA {
	srcBounds := src.Bounds()
	srcW := srcBounds.Dx()
	srcH := srcBounds.Dy()

	if srcH <= 0 {
		return image.NewRGBA(image.Rect(0, 0, 1, height))
	}

	targetW := srcW * height / srcH
	if targetW < 1 {
		targetW = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, targetW, height))
	draw.BiLinear.Scale(dst, dst.Bounds(), src, srcBounds, draw.Over, nil)
	return dst
}
