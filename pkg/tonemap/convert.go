package tonemap

import (
	"fmt"

	"github.com/abworrall/hdr-tonemap/pkg/emath"
)

// ColorSpace names how the input channels are to be read.
type ColorSpace string

const (
	ColorSpaceRGB      ColorSpace = "rgb"
	ColorSpaceYCbCr709 ColorSpace = "ycbcr709" // Y, Cb, Cr in R, G, B; chroma offset by 0.5
)

func ParseColorSpace(s string) (ColorSpace, error) {
	switch ColorSpace(s) {
	case "", ColorSpaceRGB:
		return ColorSpaceRGB, nil
	case ColorSpaceYCbCr709:
		return ColorSpaceYCbCr709, nil
	}
	return "", fmt.Errorf("unknown colorspace '%s' (want rgb or ycbcr709)", s)
}

// Convert is the pre-stage ahead of luminance extraction: it rewrites
// the frame into linear RGB. RGB input is left alone.
func (p *Pipeline[F]) Convert(f *Frame, cs ColorSpace) error {
	switch cs {
	case "", ColorSpaceRGB:
		return nil
	case ColorSpaceYCbCr709:
	default:
		return fmt.Errorf("convert: unknown colorspace '%s'", cs)
	}

	var m [9]F
	for i, v := range emath.YCbCr709ToRGB {
		m[i] = F(v)
	}

	err := p.exec().Dispatch(f.Len(), func(_, lo, hi int) {
		for i := lo; i < hi; i++ {
			j := 4 * i
			y, cb, cr := F(f.Pix[j]), F(f.Pix[j+1])-0.5, F(f.Pix[j+2])-0.5
			f.Pix[j] = float32(m[0]*y + m[1]*cb + m[2]*cr)
			f.Pix[j+1] = float32(m[3]*y + m[4]*cb + m[5]*cr)
			f.Pix[j+2] = float32(m[6]*y + m[7]*cb + m[8]*cr)
		}
	})
	if err != nil {
		return fmt.Errorf("convert: %w", err)
	}
	return nil
}
