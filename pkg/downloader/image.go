package downloader

import (
	"bytes"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	errs "tisescraper/pkg/errors"
)

// normalizeImage verifies that data decodes, converts WEBP sources to JPEG,
// and downscales anything whose longest edge exceeds maxEdge. Bytes that are
// already a valid, small-enough JPEG/PNG/GIF pass through untouched; nothing
// is ever persisted for data that fails to decode.
func normalizeImage(data []byte, ext string, maxEdge, quality int) ([]byte, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, errs.New(errs.ErrorTypeImageDecode, 0, "image failed to decode: %v", err)
	}

	bounds := img.Bounds()
	needsScale := bounds.Dx() > maxEdge || bounds.Dy() > maxEdge
	needsConvert := format == "webp"

	if !needsScale && !needsConvert {
		return data, nil
	}

	if needsScale {
		img = scaleToFit(img, maxEdge)
	}

	var buf bytes.Buffer
	switch {
	case needsConvert || ext == ".jpg" || ext == ".jpeg":
		err = jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality})
	case ext == ".png":
		err = png.Encode(&buf, img)
	case ext == ".gif":
		err = gif.Encode(&buf, img, nil)
	default:
		err = jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality})
	}
	if err != nil {
		return nil, errs.New(errs.ErrorTypeImageDecode, 0, "image failed to re-encode: %v", err)
	}
	return buf.Bytes(), nil
}

// scaleToFit shrinks img so its longest edge equals maxEdge, preserving
// aspect ratio, using a high-quality filter.
func scaleToFit(img image.Image, maxEdge int) image.Image {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	var outW, outH int
	if w >= h {
		outW = maxEdge
		outH = h * maxEdge / w
	} else {
		outH = maxEdge
		outW = w * maxEdge / h
	}
	if outW < 1 {
		outW = 1
	}
	if outH < 1 {
		outH = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, outW, outH))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
	return dst
}
