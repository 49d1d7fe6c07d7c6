package render

import (
	"fmt"

	"github.com/mdouchement/hdr"
	"github.com/mdouchement/hdr/tmo"

	"github.com/abworrall/hdr-tonemap/pkg/tonemap"
)

// Reference operators, global only, from the tmo package. They give
// something to hold the extended Reinhard rendition up against.
const (
	OpLinear     = "linear"
	OpDrago03    = "drago03"
	OpReinhard05 = "reinhard05"
)

func IsReference(op string) bool {
	return op == OpLinear || op == OpDrago03 || op == OpReinhard05
}

func SetupReference(name string, img hdr.Image) (tmo.ToneMappingOperator, error) {
	switch name {
	case OpLinear:
		return tmo.NewLinear(img), nil
	case OpDrago03:
		return tmo.NewDefaultDrago03(img), nil
	case OpReinhard05:
		return tmo.NewDefaultReinhard05(img), nil
	}
	return nil, fmt.Errorf("reference operator %q not recognized", name)
}

// ApplyReference runs a reference operator over f and returns its
// display-referred result as a new frame in [0,1]. Alpha is carried over.
func ApplyReference(name string, f *tonemap.Frame) (*tonemap.Frame, error) {
	op, err := SetupReference(name, f)
	if err != nil {
		return nil, err
	}
	img := op.Perform()

	out := tonemap.NewFrame(f.W, f.H)
	b := img.Bounds()
	for y := 0; y < f.H; y++ {
		for x := 0; x < f.W; x++ {
			r, g, bl, _ := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
			_, _, _, a := f.RGBA(x, y)
			out.SetRGBA(x, y, float32(r)/0xFFFF, float32(g)/0xFFFF, float32(bl)/0xFFFF, a)
		}
	}
	return out, nil
}
