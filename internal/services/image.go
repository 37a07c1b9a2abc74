package services

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// maxImagePixels bounds the decoded size of an upload.
const maxImagePixels = 40_000_000

type imageFormat struct {
	ext         string
	contentType string
}

var imageFormats = map[string]imageFormat{
	"jpeg": {ext: "jpg", contentType: "image/jpeg"},
	"png":  {ext: "png", contentType: "image/png"},
	"gif":  {ext: "gif", contentType: "image/gif"},
	"bmp":  {ext: "bmp", contentType: "image/bmp"},
	"tiff": {ext: "tiff", contentType: "image/tiff"},
	"webp": {ext: "webp", contentType: "image/webp"},
}

// inspectImage fully decodes data and reports the storage extension and
// content type of its format. The client-supplied filename is never trusted.
func inspectImage(data []byte) (imageFormat, error) {
	if len(data) == 0 {
		return imageFormat{}, fmt.Errorf("%w: empty file", ErrInvalidImage)
	}

	cfg, name, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return imageFormat{}, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	format, ok := imageFormats[name]
	if !ok {
		return imageFormat{}, fmt.Errorf("%w: unsupported format %q", ErrInvalidImage, name)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || cfg.Width*cfg.Height > maxImagePixels {
		return imageFormat{}, fmt.Errorf("%w: bad dimensions %dx%d", ErrInvalidImage, cfg.Width, cfg.Height)
	}

	if _, _, err := image.Decode(bytes.NewReader(data)); err != nil {
		return imageFormat{}, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	return format, nil
}
