package converters

import (
	"bytes"
	"image"
	"image/jpeg"
	_ "image/png"

	"github.com/disintegration/imaging"
)

const (
	// maxImageDimension keeps request payloads within what the extraction
	// endpoint accepts without losing legibility for scanned documents.
	maxImageDimension = 2048
	jpegQuality       = 85
)

// NormalizeImage downscales and re-encodes oversized raster images before
// they are sent to the extraction endpoint. Non-image bytes or already
// small images are returned unchanged.
func NormalizeImage(data []byte) ([]byte, string) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return data, ""
	}

	bounds := img.Bounds()
	if bounds.Dx() <= maxImageDimension && bounds.Dy() <= maxImageDimension {
		return data, format
	}

	resized := imaging.Fit(img, maxImageDimension, maxImageDimension, imaging.Lanczos)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, resized, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return data, format
	}
	return buf.Bytes(), "jpeg"
}
