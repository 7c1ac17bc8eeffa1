// Package imaging turns uploaded bytes into RGB rasters ready for embedding.
package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	_ "image/gif"  // register GIF decoder
	_ "image/jpeg" // register JPEG decoder
	_ "image/png"  // register PNG decoder
	"io"

	_ "golang.org/x/image/bmp"  // register BMP decoder
	_ "golang.org/x/image/tiff" // register TIFF decoder
	_ "golang.org/x/image/webp" // register WebP decoder

	"github.com/formbricks/zeroshot/internal/huberrors"
)

// MaxPixels caps the decoded raster size. Headers announcing more are rejected
// before any pixel data is allocated.
const MaxPixels = 1 << 26

// Image is a decoded upload in three-channel RGB form.
type Image struct {
	// Format is the name the decoder registered under, e.g. "png".
	Format string
	// RGB holds the pixels with every alpha value forced to opaque.
	RGB *image.RGBA
}

// Decode reads r fully and decodes it as a raster image.
// Every failure is reported as *huberrors.ImageDecodeError.
func Decode(r io.Reader) (*Image, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, huberrors.NewImageDecodeError("failed to read image", err)
	}

	return DecodeBytes(data)
}

// DecodeBytes decodes data as a raster image and converts it to RGB.
func DecodeBytes(data []byte) (*Image, error) {
	if len(data) == 0 {
		return nil, huberrors.NewImageDecodeError("image is empty", nil)
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, huberrors.NewImageDecodeError("", normalizeErr(err))
	}

	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, huberrors.NewImageDecodeError("image has no pixels", nil)
	}

	if int64(cfg.Width)*int64(cfg.Height) > MaxPixels {
		return nil, huberrors.NewImageDecodeError(
			fmt.Sprintf("image is %dx%d, exceeds %d pixels", cfg.Width, cfg.Height, MaxPixels), nil)
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, huberrors.NewImageDecodeError("", normalizeErr(err))
	}

	return &Image{Format: format, RGB: ToRGB(img)}, nil
}

func normalizeErr(err error) error {
	if errors.Is(err, image.ErrFormat) {
		return errors.New("unsupported or unrecognized image format")
	}

	return err
}

// ToRGB copies img into an origin-anchored RGBA raster and discards the alpha
// channel: color values are taken unpremultiplied and every pixel is made opaque.
func ToRGB(img image.Image) *image.RGBA {
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))

	if opaque, ok := img.(interface{ Opaque() bool }); ok && opaque.Opaque() {
		draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
		return dst
	}

	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
			dst.SetRGBA(x-b.Min.X, y-b.Min.Y, color.RGBA{R: c.R, G: c.G, B: c.B, A: 0xff})
		}
	}

	return dst
}
