package pipeline

import (
	"bytes"
	"image"
	"image/png"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
)

// AnnotateThumbnail renders src scaled to maxDim on its longest edge with
// label burned into the bottom-left corner, grounded in the pack's
// metadata-overlay thumbnail style. It is an optional step image readers may
// call before emitting a segment's thumbnail bytes; it is never required for
// the embedding path itself.
func AnnotateThumbnail(src image.Image, label string, maxDim int) ([]byte, error) {
	bounds := src.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	scale := 1.0
	if w > h && w > maxDim {
		scale = float64(maxDim) / float64(w)
	} else if h >= w && h > maxDim {
		scale = float64(maxDim) / float64(h)
	}
	outW, outH := int(float64(w)*scale), int(float64(h)*scale)
	if outW < 1 {
		outW = 1
	}
	if outH < 1 {
		outH = 1
	}

	dc := gg.NewContext(outW, outH)
	dc.DrawImage(resize(src, outW, outH), 0, 0)

	if label != "" {
		if face, err := annotationFace(14); err == nil {
			dc.SetFontFace(face)
			dc.SetRGBA(0, 0, 0, 0.55)
			dc.DrawRectangle(0, float64(outH-20), float64(outW), 20)
			dc.Fill()
			dc.SetRGB(1, 1, 1)
			dc.DrawStringAnchored(label, 4, float64(outH)-6, 0, 0)
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, dc.Image()); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// annotationFace builds the overlay font once per call from the embedded
// Go-regular face; thumbnails are generated rarely enough that this isn't
// worth caching across calls.
func annotationFace(points float64) (font.Face, error) {
	f, err := truetype.Parse(goregular.TTF)
	if err != nil {
		return nil, err
	}
	return truetype.NewFace(f, &truetype.Options{Size: points}), nil
}

// resize performs nearest-neighbor scaling, sufficient for thumbnail
// generation where the source is already a decoded in-memory bitmap.
func resize(src image.Image, w, h int) image.Image {
	bounds := src.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	sw, sh := bounds.Dx(), bounds.Dy()
	for y := 0; y < h; y++ {
		sy := bounds.Min.Y + y*sh/h
		for x := 0; x < w; x++ {
			sx := bounds.Min.X + x*sw/w
			dst.Set(x, y, src.At(sx, sy))
		}
	}
	return dst
}
