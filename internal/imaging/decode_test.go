package imaging

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/bmp"

	"github.com/formbricks/zeroshot/internal/huberrors"
)

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))

	return buf.Bytes()
}

func TestDecode_Formats(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 3, 2))
	for y := range 2 {
		for x := range 3 {
			src.SetRGBA(x, y, color.RGBA{R: 200, G: 100, B: 50, A: 255})
		}
	}

	var jpg, bm bytes.Buffer
	require.NoError(t, jpeg.Encode(&jpg, src, &jpeg.Options{Quality: 95}))
	require.NoError(t, bmp.Encode(&bm, src))

	tests := []struct {
		name   string
		data   []byte
		format string
	}{
		{"png", encodePNG(t, src), "png"},
		{"jpeg", jpg.Bytes(), "jpeg"},
		{"bmp", bm.Bytes(), "bmp"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img, err := Decode(bytes.NewReader(tt.data))
			require.NoError(t, err)

			assert.Equal(t, tt.format, img.Format)
			assert.Equal(t, image.Rect(0, 0, 3, 2), img.RGB.Bounds())
			assert.Equal(t, uint8(255), img.RGB.RGBAAt(1, 1).A)
		})
	}
}

func TestDecode_DropsAlpha(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 1, 1))
	src.SetNRGBA(0, 0, color.NRGBA{R: 255, G: 128, B: 0, A: 0})

	img, err := DecodeBytes(encodePNG(t, src))
	require.NoError(t, err)

	assert.Equal(t, color.RGBA{R: 255, G: 128, B: 0, A: 255}, img.RGB.RGBAAt(0, 0))
}

func TestDecode_Grayscale(t *testing.T) {
	src := image.NewGray(image.Rect(0, 0, 2, 2))
	src.SetGray(1, 0, color.Gray{Y: 77})

	img, err := DecodeBytes(encodePNG(t, src))
	require.NoError(t, err)

	assert.Equal(t, color.RGBA{R: 77, G: 77, B: 77, A: 255}, img.RGB.RGBAAt(1, 0))
}

func TestDecode_Failures(t *testing.T) {
	valid := encodePNG(t, image.NewRGBA(image.Rect(0, 0, 4, 4)))

	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"text", []byte("definitely not an image")},
		{"truncated png", valid[:len(valid)/2]},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(bytes.NewReader(tt.data))
			assert.ErrorIs(t, err, huberrors.ErrImageDecode)
		})
	}
}

func TestDecode_UnknownFormatMessage(t *testing.T) {
	_, err := DecodeBytes([]byte(strings.Repeat("x", 64)))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported or unrecognized image format")
}

func TestToRGB_OffsetBounds(t *testing.T) {
	src := image.NewRGBA(image.Rect(10, 10, 12, 12))
	src.SetRGBA(11, 11, color.RGBA{R: 1, G: 2, B: 3, A: 255})

	got := ToRGB(src)

	assert.Equal(t, image.Rect(0, 0, 2, 2), got.Bounds())
	assert.Equal(t, color.RGBA{R: 1, G: 2, B: 3, A: 255}, got.RGBAAt(1, 1))
}
