package tonemap

import "fmt"

// Transfer is the display encoding applied after clamping.
type Transfer string

const (
	TransferLinear Transfer = "linear" // no gamma correction
	TransferGamma  Transfer = "gamma"  // v^Gamma
	TransferSRGB   Transfer = "srgb"   // piecewise sRGB, linear toe below 0.0031308
)

const DefaultGamma = 1.0 / 2.2

func ParseTransfer(s string) (Transfer, error) {
	switch Transfer(s) {
	case TransferLinear, TransferGamma, TransferSRGB:
		return Transfer(s), nil
	}
	return "", fmt.Errorf("unknown transfer '%s' (want linear, gamma or srgb)", s)
}

// Encoder maps linear [0,1] values to integer samples of BitDepth bits.
type Encoder struct {
	BitDepth int
	Transfer Transfer
	Gamma    float64 // exponent for TransferGamma; 0 means DefaultGamma
}

func (e Encoder) MaxValue() int { return 1<<e.BitDepth - 1 }

func (e Encoder) gamma() float64 {
	if e.Gamma == 0 {
		return DefaultGamma
	}
	return e.Gamma
}

func (e Encoder) Validate() error {
	if e.BitDepth < 1 || e.BitDepth > 16 {
		return fmt.Errorf("%w: bit depth %d", ErrInvalidFrame, e.BitDepth)
	}
	if _, err := ParseTransfer(string(e.Transfer)); err != nil {
		return err
	}
	if e.Transfer == TransferGamma && !(e.gamma() > 0) {
		return fmt.Errorf("gamma exponent %g must be positive", e.Gamma)
	}
	return nil
}

func (e Encoder) String() string {
	return fmt.Sprintf("%dbit/%s", e.BitDepth, e.Transfer)
}

// EncodeValue clamps v to [0,1], applies the transfer and quantizes.
func EncodeValue[F Float](e Encoder, v F) uint16 {
	v = clampUnit(v)
	switch e.Transfer {
	case TransferGamma:
		v = powF(v, F(e.gamma()))
	case TransferSRGB:
		v = srgbF(v)
	}
	return Quantize(v, e.MaxValue())
}

// Quantize is truncation with a 0.999 bias, int(v·(max+0.999)): the
// 255.999 and 1023.999 scale factors at 8 and 10 bits. Values land in
// [0, max] and k/max maps back to k.
func Quantize[F Float](v F, max int) uint16 {
	if !(v > 0) {
		return 0
	}
	s := int(v * (F(max) + 0.999))
	if s > max {
		s = max
	}
	return uint16(s)
}

// Dequantize is the linear inverse of Quantize, up to one step.
func Dequantize(s uint16, max int) float64 {
	return float64(s) / float64(max)
}

// Raster is an encoded image: RGB sample triples, row-major.
type Raster struct {
	W, H     int
	BitDepth int
	Pix      []uint16
}

func NewRaster(w, h, depth int) *Raster {
	return &Raster{W: w, H: h, BitDepth: depth, Pix: make([]uint16, 3*w*h)}
}

func (r *Raster) MaxValue() int { return 1<<r.BitDepth - 1 }

func (r *Raster) At(x, y int) (uint16, uint16, uint16) {
	i := 3 * (y*r.W + x)
	return r.Pix[i], r.Pix[i+1], r.Pix[i+2]
}

func (r *Raster) Set(x, y int, red, green, blue uint16) {
	i := 3 * (y*r.W + x)
	r.Pix[i], r.Pix[i+1], r.Pix[i+2] = red, green, blue
}

func (r *Raster) Validate() error {
	if r == nil || r.W <= 0 || r.H <= 0 {
		return fmt.Errorf("%w: empty raster", ErrInvalidFrame)
	}
	if len(r.Pix) != 3*r.W*r.H {
		return fmt.Errorf("%w: %dx%d raster has %d samples", ErrInvalidFrame, r.W, r.H, len(r.Pix))
	}
	if r.BitDepth < 1 || r.BitDepth > 16 {
		return fmt.Errorf("%w: bit depth %d", ErrInvalidFrame, r.BitDepth)
	}
	return nil
}
