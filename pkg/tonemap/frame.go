package tonemap

import (
	"fmt"
	"image"
	"image/color"

	"github.com/mdouchement/hdr/hdrcolor"
)

// Frame holds linear-light RGBA samples, interleaved, row-major with the
// top row first. Values are unbounded: HDR data routinely exceeds 1.0.
// Implements image.Image and hdr.Image, so it can be handed to the
// reference operators and the RGBE writer.
type Frame struct {
	W, H int
	Pix  []float32
}

func NewFrame(w, h int) *Frame {
	return &Frame{W: w, H: h, Pix: make([]float32, 4*w*h)}
}

// Implement image.Image
func (f *Frame) ColorModel() color.Model { return hdrcolor.RGBModel }
func (f *Frame) Bounds() image.Rectangle { return image.Rect(0, 0, f.W, f.H) }
func (f *Frame) At(x, y int) color.Color { return f.HDRAt(x, y) }

// Implement hdr.Image
func (f *Frame) Size() int { return f.W * f.H }
func (f *Frame) HDRAt(x, y int) hdrcolor.Color {
	r, g, b, _ := f.RGBA(x, y)
	return hdrcolor.RGB{R: float64(r), G: float64(g), B: float64(b)}
}

// Len is the number of pixels, i.e. the size of the dispatch domain.
func (f *Frame) Len() int { return f.W * f.H }

func (f *Frame) Offset(x, y int) int { return 4 * (y*f.W + x) }

func (f *Frame) RGBA(x, y int) (r, g, b, a float32) {
	i := f.Offset(x, y)
	return f.Pix[i], f.Pix[i+1], f.Pix[i+2], f.Pix[i+3]
}

func (f *Frame) SetRGBA(x, y int, r, g, b, a float32) {
	i := f.Offset(x, y)
	f.Pix[i], f.Pix[i+1], f.Pix[i+2], f.Pix[i+3] = r, g, b, a
}

// Clone yields an independent copy; each output variant works on its own.
func (f *Frame) Clone() *Frame {
	out := &Frame{W: f.W, H: f.H, Pix: make([]float32, len(f.Pix))}
	copy(out.Pix, f.Pix)
	return out
}

func (f *Frame) Validate() error {
	if f == nil || f.W <= 0 || f.H <= 0 {
		return fmt.Errorf("%w: empty frame", ErrInvalidFrame)
	}
	if len(f.Pix) != 4*f.W*f.H {
		return fmt.Errorf("%w: %dx%d frame has %d samples, want %d", ErrInvalidFrame, f.W, f.H, len(f.Pix), 4*f.W*f.H)
	}
	return nil
}

func (f *Frame) String() string {
	return fmt.Sprintf("Frame[%dx%d]", f.W, f.H)
}
