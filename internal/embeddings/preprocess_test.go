package embeddings

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func uniformImage(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.SetRGBA(x, y, c)
		}
	}

	return img
}

func TestPreprocess(t *testing.T) {
	t.Run("uniform image normalizes to constant planes", func(t *testing.T) {
		cfg := PreprocessConfig{Size: 8, Interpolation: "bicubic", ResizeMode: resizeShortest}
		img := uniformImage(20, 10, color.RGBA{R: 255, G: 0, B: 128, A: 255})

		tensor, err := cfg.Preprocess(img)
		require.NoError(t, err)

		assert.Equal(t, [3]int{3, 8, 8}, tensor.Shape)
		require.Len(t, tensor.Data, 3*8*8)

		wantR := float32((1 - defaultMean[0]) / defaultStd[0])
		wantG := float32((0 - defaultMean[1]) / defaultStd[1])

		for i := range 64 {
			assert.InDelta(t, wantR, tensor.Data[i], 0.02)
			assert.InDelta(t, wantG, tensor.Data[64+i], 0.02)
		}
	})

	t.Run("custom mean and std", func(t *testing.T) {
		d, err := ParseDescriptor([]byte(`{"model_cfg":{"embed_dim":4},
			"preprocess_cfg":{"size":2,"mean":[0.5,0.5,0.5],"std":[0.5,0.5,0.5],"resize_mode":"squash"}}`))
		require.NoError(t, err)

		tensor, err := d.Preprocess.Preprocess(uniformImage(3, 3, color.RGBA{R: 255, G: 255, B: 255, A: 255}))
		require.NoError(t, err)

		for _, v := range tensor.Data {
			assert.InDelta(t, 1.0, v, 0.01)
		}
	})

	t.Run("longest mode pads with fill color", func(t *testing.T) {
		d, err := ParseDescriptor([]byte(`{"model_cfg":{"embed_dim":4},
			"preprocess_cfg":{"size":4,"mean":[0,0,0],"std":[1,1,1],"resize_mode":"longest","interpolation":"nearest"}}`))
		require.NoError(t, err)

		// 4x2 white image, padded to 4x4 with black rows above and below.
		tensor, err := d.Preprocess.Preprocess(uniformImage(4, 2, color.RGBA{R: 255, G: 255, B: 255, A: 255}))
		require.NoError(t, err)

		assert.InDelta(t, 0.0, tensor.Data[0], 1e-6)
		assert.InDelta(t, 1.0, tensor.Data[1*4+0], 1e-6)
		assert.InDelta(t, 1.0, tensor.Data[2*4+3], 1e-6)
		assert.InDelta(t, 0.0, tensor.Data[3*4+3], 1e-6)
	})

	t.Run("empty image", func(t *testing.T) {
		_, err := PreprocessConfig{Size: 4}.Preprocess(image.NewRGBA(image.Rect(0, 0, 0, 0)))
		assert.ErrorIs(t, err, ErrEmptyImage)
	})
}

func TestScaledDims(t *testing.T) {
	tests := []struct {
		name         string
		w, h, size   int
		cover        bool
		wantW, wantH int
	}{
		{"cover landscape", 400, 200, 224, true, 448, 224},
		{"cover portrait", 100, 300, 224, true, 224, 672},
		{"fit landscape", 400, 200, 224, false, 224, 112},
		{"fit square", 50, 50, 224, false, 224, 224},
		{"fit extreme aspect keeps one pixel", 10000, 1, 224, false, 224, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, h := scaledDims(tt.w, tt.h, tt.size, tt.cover)
			assert.Equal(t, tt.wantW, w)
			assert.Equal(t, tt.wantH, h)
		})
	}
}

func TestEncodeFloat32(t *testing.T) {
	// 1.0 is 0x3f800000 little-endian: 00 00 80 3f
	assert.Equal(t, "AACAPw==", encodeFloat32([]float32{1}))
	assert.Empty(t, encodeFloat32(nil))
}
