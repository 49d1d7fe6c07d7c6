package tonemap

import "github.com/abworrall/hdr-tonemap/pkg/emath"

// Luminance is the BT.709 relative luminance of a linear RGB triple.
// Alpha plays no part. NaN and Inf propagate.
func Luminance[F Float](r, g, b F) F {
	w := emath.Rec709Luminance
	return F(w[0])*r + F(w[1])*g + F(w[2])*b
}

// WhiteFactor is 1/Lwhite², the extended Reinhard parameter. A scene with
// no positive luminance has no white point and compresses with plain
// Reinhard.
func WhiteFactor[F Float](white F) F {
	if !(white > 0) {
		return 0
	}
	return 1 / (white * white)
}

// CompressLuminance is extended Reinhard: Ld = L'(1 + L'·wf) / (1 + L').
// Ld(0) = 0, Ld(Lwhite) = 1. Ld keeps growing past Lwhite (roughly
// L'/Lwhite²) rather than tending to Lwhite; Encode clamps what lands
// above 1.
func CompressLuminance[F Float](l, wf F) F {
	return l * (1 + l*wf) / (1 + l)
}

// CompressionRatio is Ld/L' with the L' factor cancelled, which makes it
// exactly 1 at L' = 0 instead of 0/0.
func CompressionRatio[F Float](l, wf F) F {
	if l == 0 {
		return 1
	}
	return (1 + l*wf) / (1 + l)
}
