package embeddings

import (
	"errors"
	"image"
	"image/color"
	"math"

	xdraw "golang.org/x/image/draw"
)

// Resize modes understood in preprocess_cfg.resize_mode.
const (
	resizeShortest = "shortest" // scale the short side to Size, center crop
	resizeLongest  = "longest"  // scale the long side to Size, pad with FillColor
	resizeSquash   = "squash"   // scale both sides to Size, ignoring aspect ratio
)

var interpolators = map[string]xdraw.Interpolator{
	"bicubic":  xdraw.CatmullRom,
	"bilinear": xdraw.BiLinear,
	"nearest":  xdraw.NearestNeighbor,
}

// ErrEmptyImage is returned when an image has no pixels.
var ErrEmptyImage = errors.New("embeddings: image has no pixels")

// Tensor is a dense float32 image tensor in channel, height, width order.
type Tensor struct {
	Shape [3]int
	Data  []float32
}

// Preprocess resizes img to a Size x Size square and returns it normalized
// per channel with the configured mean and std.
func (cfg PreprocessConfig) Preprocess(img image.Image) (Tensor, error) {
	src := img.Bounds()
	if src.Empty() {
		return Tensor{}, ErrEmptyImage
	}

	size := cfg.Size
	if size <= 0 {
		size = defaultImageSize
	}

	interp, ok := interpolators[cfg.Interpolation]
	if !ok {
		interp = xdraw.CatmullRom
	}

	canvas := image.NewRGBA(image.Rect(0, 0, size, size))

	switch cfg.ResizeMode {
	case resizeSquash:
		interp.Scale(canvas, canvas.Bounds(), img, src, xdraw.Src, nil)
	case resizeLongest:
		fill := uint8(cfg.FillColor)
		xdraw.Draw(canvas, canvas.Bounds(), image.NewUniform(color.RGBA{R: fill, G: fill, B: fill, A: 0xff}),
			image.Point{}, xdraw.Src)

		w, h := scaledDims(src.Dx(), src.Dy(), size, false)
		dst := image.Rect(0, 0, w, h).Add(image.Pt((size-w)/2, (size-h)/2))
		interp.Scale(canvas, dst, img, src, xdraw.Src, nil)
	default:
		w, h := scaledDims(src.Dx(), src.Dy(), size, true)
		resized := image.NewRGBA(image.Rect(0, 0, w, h))
		interp.Scale(resized, resized.Bounds(), img, src, xdraw.Src, nil)
		xdraw.Draw(canvas, canvas.Bounds(), resized, image.Pt((w-size)/2, (h-size)/2), xdraw.Src)
	}

	mean, std := cfg.channelStats()
	plane := size * size
	data := make([]float32, 3*plane)

	for y := range size {
		for x := range size {
			px := canvas.RGBAAt(x, y)
			i := y*size + x
			data[i] = float32((float64(px.R)/255 - mean[0]) / std[0])
			data[plane+i] = float32((float64(px.G)/255 - mean[1]) / std[1])
			data[2*plane+i] = float32((float64(px.B)/255 - mean[2]) / std[2])
		}
	}

	return Tensor{Shape: [3]int{3, size, size}, Data: data}, nil
}

// channelStats returns the parsed mean/std, falling back to CLIP defaults for
// configs that did not go through ParseDescriptor.
func (cfg PreprocessConfig) channelStats() (mean, std [3]float64) {
	if !cfg.parsed {
		return defaultMean, defaultStd
	}

	return cfg.mean, cfg.std
}

// scaledDims scales (w, h) so that the short side (cover) or the long side
// (fit) equals size, keeping the aspect ratio.
func scaledDims(w, h, size int, cover bool) (int, int) {
	ref := max(w, h)
	if cover {
		ref = min(w, h)
	}

	scale := float64(size) / float64(ref)
	nw := max(1, int(math.Round(float64(w)*scale)))
	nh := max(1, int(math.Round(float64(h)*scale)))

	if cover {
		nw, nh = max(nw, size), max(nh, size)
	} else {
		nw, nh = min(nw, size), min(nh, size)
	}

	return nw, nh
}
