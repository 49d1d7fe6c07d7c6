// Package source turns HDR image files (OpenEXR, Radiance RGBE, PFM) into
// tonemap.Frames.
package source

import (
	"fmt"
	"image"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/mdouchement/hdr"
	"github.com/mdouchement/hdr/codec/pfm"
	"github.com/mdouchement/hdr/codec/rgbe"
	"github.com/mrjoshuak/go-openexr/exr"

	"github.com/abworrall/hdr-tonemap/pkg/tonemap"
)

const (
	FormatEXR  = "exr"
	FormatRGBE = "rgbe"
	FormatPFM  = "pfm"
)

var extensions = map[string]string{
	".exr":  FormatEXR,
	".hdr":  FormatRGBE,
	".pic":  FormatRGBE,
	".rgbe": FormatRGBE,
	".pfm":  FormatPFM,
}

// FormatOf reports the format implied by a filename's extension.
func FormatOf(filename string) (string, bool) {
	f, ok := extensions[strings.ToLower(filepath.Ext(filename))]
	return f, ok
}

// Load decodes an image file, picking the decoder by extension.
func Load(filename string) (*tonemap.Frame, error) {
	format, ok := FormatOf(filename)
	if !ok {
		return nil, decodeErr(filename, fmt.Errorf("unsupported extension '%s'", filepath.Ext(filename)))
	}

	var frame *tonemap.Frame
	var err error
	if format == FormatEXR {
		frame, err = loadEXR(filename)
	} else if reader, oerr := os.Open(filename); oerr != nil {
		err = oerr
	} else {
		defer reader.Close()
		frame, err = decodeStream(reader, format)
	}
	if err != nil {
		return nil, decodeErr(filename, err)
	}

	if err := validate(frame); err != nil {
		return nil, decodeErr(filename, err)
	}
	tonemap.Logger().Debug("loaded", "file", filename, "format", format, "frame", frame.String())
	return frame, nil
}

// Decode reads an image of the given format from a stream, e.g. stdin.
func Decode(r io.Reader, format string) (*tonemap.Frame, error) {
	var frame *tonemap.Frame
	var err error
	if format == FormatEXR {
		frame, err = spoolEXR(r)
	} else {
		frame, err = decodeStream(r, format)
	}
	if err == nil {
		err = validate(frame)
	}
	if err != nil {
		return nil, decodeErr("<"+format+" stream>", err)
	}
	return frame, nil
}

func decodeStream(r io.Reader, format string) (*tonemap.Frame, error) {
	var img image.Image
	var err error
	switch format {
	case FormatRGBE:
		img, err = rgbe.Decode(r)
	case FormatPFM:
		img, err = pfm.Decode(r)
	default:
		return nil, fmt.Errorf("unsupported format '%s'", format)
	}
	if err != nil {
		return nil, err
	}

	hdrImg, ok := img.(hdr.Image)
	if !ok {
		return nil, fmt.Errorf("%s decoder returned a %T, not an HDR image", format, img)
	}
	return fromHDR(hdrImg), nil
}

func fromHDR(img hdr.Image) *tonemap.Frame {
	b := img.Bounds()
	frame := tonemap.NewFrame(b.Dx(), b.Dy())
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			r, g, bl, _ := img.HDRAt(b.Min.X+x, b.Min.Y+y).HDRRGBA()
			frame.SetRGBA(x, y, float32(r), float32(g), float32(bl), 1)
		}
	}
	return frame
}

func loadEXR(filename string) (*tonemap.Frame, error) {
	f, err := exr.OpenFile(filename)
	if err != nil {
		return nil, err
	}
	if c, ok := any(f).(io.Closer); ok {
		defer c.Close()
	}

	rgba, err := exr.NewRGBAInputFile(f)
	if err != nil {
		return nil, err
	}
	img, err := rgba.ReadRGBA()
	if err != nil {
		return nil, err
	}

	w, h := img.Rect.Dx(), img.Rect.Dy()
	frame := tonemap.NewFrame(w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, g, b, a := img.RGBA(x, y)
			frame.SetRGBA(x, y, float32(r), float32(g), float32(b), float32(a))
		}
	}
	return frame, nil
}

// spoolEXR copies an EXR stream to a temp file; the EXR reader wants
// random access.
func spoolEXR(r io.Reader) (*tonemap.Frame, error) {
	tmp, err := os.CreateTemp("", "hdr-tonemap-*.exr")
	if err != nil {
		return nil, err
	}
	defer os.Remove(tmp.Name())

	_, err = io.Copy(tmp, r)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return nil, fmt.Errorf("spool exr: %w", err)
	}
	return loadEXR(tmp.Name())
}

// validate rejects negative infinities, which have no luminance meaning.
// NaN and +Inf pass through and propagate.
func validate(f *tonemap.Frame) error {
	if err := f.Validate(); err != nil {
		return err
	}
	for i, v := range f.Pix {
		if math.IsInf(float64(v), -1) {
			px := i / 4
			return fmt.Errorf("negative infinity at (%d,%d)", px%f.W, px/f.W)
		}
	}
	return nil
}
