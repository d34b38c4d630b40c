package pipeline

import (
	"context"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

func init() {
	RegisterReader(newImageReader, "png", "jpg", "jpeg", "gif", "bmp", "tiff", "webp")
}

type imageReader struct{}

func newImageReader(cfg TextEmbedConfig) Reader { return &imageReader{} }

func (r *imageReader) Read(ctx context.Context, path string, out chan<- RawSegment) error {
	f, err := os.Open(path)
	if err != nil {
		return NewSourceError(SourceNotFound, path, err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return NewSourceError(SourceDecodeFailed, path, err)
	}

	pixels, width, height := toRGBA(img)
	seg := RawSegment{
		Kind:       SegmentImage,
		Pixels:     pixels,
		Width:      width,
		Height:     height,
		SourcePath: path,
	}
	select {
	case out <- seg:
		return nil
	case <-ctx.Done():
		return ErrCancelled
	}
}

// toRGBA flattens an arbitrary image.Image into row-major RGBA bytes, the
// wire shape RawSegment.Pixels commits to regardless of source codec.
func toRGBA(img image.Image) ([]byte, int, int) {
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	out := make([]byte, 0, width*height*4)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, a := img.At(x, y).RGBA()
			out = append(out, byte(r>>8), byte(g>>8), byte(b>>8), byte(a>>8))
		}
	}
	return out, width, height
}
