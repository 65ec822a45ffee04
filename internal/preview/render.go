// Package preview renders match-classification images: the target mesh with
// matched vertices in green and unmatched (inpainted) vertices in red, for
// quick visual inspection of threshold tuning.
package preview

import (
	"image"
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"robust-weight-transfer/internal/mathutil"
)

// Options controls the preview render.
type Options struct {
	Size        int // output edge length in pixels
	Supersample int // render at Size*Supersample then downsample
}

// DefaultOptions matches the renderer defaults.
func DefaultOptions() Options {
	return Options{Size: 512, Supersample: 2}
}

var (
	matchedColor   = [3]float64{80, 200, 110}
	unmatchedColor = [3]float64{225, 70, 60}
	lightDir       = r3.Vec{X: 0.3, Y: 0.6, Z: 0.74}
)

// RenderMatches draws the mesh under a fixed three-quarter view with
// per-vertex classification colors. matched must have one entry per vertex.
func RenderMatches(positions []r3.Vec, triangles [][3]int, matched []bool, opts Options) *image.NRGBA {
	if opts.Size <= 0 {
		opts.Size = 512
	}
	if opts.Supersample <= 0 {
		opts.Supersample = 1
	}
	renderSize := opts.Size * opts.Supersample

	view := mathutil.Mat3Mul(mathutil.RotX(mathutil.Deg2Rad(-20)), mathutil.RotY(mathutil.Deg2Rad(30)))

	// Transform and fit to the frame.
	proj := make([]r3.Vec, len(positions))
	min := r3.Vec{X: math.Inf(1), Y: math.Inf(1), Z: math.Inf(1)}
	max := r3.Vec{X: math.Inf(-1), Y: math.Inf(-1), Z: math.Inf(-1)}
	for i, p := range positions {
		t := view.MulVec(p)
		proj[i] = t
		min.X = math.Min(min.X, t.X)
		min.Y = math.Min(min.Y, t.Y)
		min.Z = math.Min(min.Z, t.Z)
		max.X = math.Max(max.X, t.X)
		max.Y = math.Max(max.Y, t.Y)
		max.Z = math.Max(max.Z, t.Z)
	}

	span := math.Max(max.X-min.X, max.Y-min.Y)
	if span < 1e-3 {
		span = 1e-3
	}
	margin := 16 * opts.Supersample
	scale := float64(renderSize-2*margin) / span
	cx := (min.X + max.X) / 2
	cy := (min.Y + max.Y) / 2

	px := make([]float64, len(proj))
	py := make([]float64, len(proj))
	pz := make([]float64, len(proj))
	half := float64(renderSize) / 2
	for i, t := range proj {
		px[i] = (t.X-cx)*scale + half
		py[i] = half - (t.Y-cy)*scale
		pz[i] = t.Z
	}

	fb := newFrameBuffer(renderSize, renderSize)
	for _, tri := range triangles {
		rasterizeClassified(fb, px, py, pz, proj, tri, matched)
	}

	img := image.NewNRGBA(image.Rect(0, 0, renderSize, renderSize))
	copy(img.Pix, fb.color)
	if opts.Supersample > 1 {
		img = downsample(img, opts.Size)
	}
	return img
}

// rasterizeClassified fills one triangle with barycentrically interpolated
// classification colors, z-buffered and flat-shaded by the face normal.
func rasterizeClassified(fb *frameBuffer, px, py, pz []float64, view []r3.Vec, tri [3]int, matched []bool) {
	i0, i1, i2 := tri[0], tri[1], tri[2]
	x0, y0, z0 := px[i0], py[i0], pz[i0]
	x1, y1, z1 := px[i1], py[i1], pz[i1]
	x2, y2, z2 := px[i2], py[i2], pz[i2]

	area := (x1-x0)*(y2-y0) - (x2-x0)*(y1-y0)
	if math.Abs(area) < 1e-9 {
		return
	}

	fn := mathutil.TriangleNormal(view[i0], view[i1], view[i2])
	shade := 0.45 + 0.55*math.Abs(r3.Dot(fn, lightDir))

	var c [3][3]float64
	for k, vi := range tri {
		if matched[vi] {
			c[k] = matchedColor
		} else {
			c[k] = unmatchedColor
		}
	}

	minX := int(math.Max(0, math.Floor(min3(x0, x1, x2))))
	maxX := int(math.Min(float64(fb.width-1), math.Ceil(max3(x0, x1, x2))))
	minY := int(math.Max(0, math.Floor(min3(y0, y1, y2))))
	maxY := int(math.Min(float64(fb.height-1), math.Ceil(max3(y0, y1, y2))))

	invArea := 1 / area
	for y := minY; y <= maxY; y++ {
		fy := float64(y) + 0.5
		for x := minX; x <= maxX; x++ {
			fx := float64(x) + 0.5
			w0 := ((x1-fx)*(y2-fy) - (x2-fx)*(y1-fy)) * invArea
			w1 := ((x2-fx)*(y0-fy) - (x0-fx)*(y2-fy)) * invArea
			w2 := 1 - w0 - w1
			if w0 < 0 || w1 < 0 || w2 < 0 {
				continue
			}
			z := w0*z0 + w1*z1 + w2*z2
			idx := y*fb.width + x
			if z <= fb.zbuf[idx] {
				continue
			}
			fb.zbuf[idx] = z
			o := idx * 4
			for ch := 0; ch < 3; ch++ {
				v := (w0*c[0][ch] + w1*c[1][ch] + w2*c[2][ch]) * shade
				if v > 255 {
					v = 255
				}
				fb.color[o+ch] = uint8(v)
			}
			fb.color[o+3] = 255
		}
	}
}

func min3(a, b, c float64) float64 { return math.Min(a, math.Min(b, c)) }
func max3(a, b, c float64) float64 { return math.Max(a, math.Max(b, c)) }
