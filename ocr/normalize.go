package ocr

import (
	"bytes"
	"image"
	"image/png"

	_ "image/jpeg"

	_ "golang.org/x/image/tiff"
)

var pngMagic = []byte("\x89PNG\r\n\x1a\n")

// normalizePNG re-encodes an extracted page image as PNG so every engine sees
// one format. Scanned PDFs commonly embed TIFF (CCITT) or JPEG streams. Data
// that cannot be decoded is returned unchanged and left for the engine to
// reject.
func normalizePNG(data []byte) ([]byte, ImageFormat) {
	if bytes.HasPrefix(data, pngMagic) {
		return data, ImageFormatPNG
	}
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return data, detectFormat(format)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return data, detectFormat(format)
	}
	return buf.Bytes(), ImageFormatPNG
}

func detectFormat(name string) ImageFormat {
	switch name {
	case "png":
		return ImageFormatPNG
	case "jpeg":
		return ImageFormatJPEG
	case "tiff":
		return ImageFormatTIFF
	default:
		return ""
	}
}
