// Package pixdump writes encoded rasters as PPM (plain P3 or binary P6)
// or PNG files, and reads PPMs back.
package pixdump

import (
	"bufio"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/mdouchement/hdr"
	"github.com/mdouchement/hdr/codec/rgbe"

	"github.com/abworrall/hdr-tonemap/pkg/tonemap"
)

type Format string

const (
	FormatP3  Format = "p3"  // plain text PPM, any depth
	FormatP6  Format = "p6"  // binary PPM, 8-bit only
	FormatPNG Format = "png" // 16-bit PNG
)

func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatP3, FormatP6, FormatPNG:
		return Format(s), nil
	}
	return "", fmt.Errorf("unknown output format '%s' (want p3, p6 or png)", s)
}

// Ext is the filename extension for files of this format.
func (f Format) Ext() string {
	if f == FormatPNG {
		return ".png"
	}
	return ".ppm"
}

// Supports reports whether the format can carry samples of this depth.
func (f Format) Supports(depth int) error {
	switch f {
	case FormatP6:
		if depth != 8 {
			return fmt.Errorf("P6 output is 8-bit only, not %d-bit", depth)
		}
	case FormatP3, FormatPNG:
		if depth < 1 || depth > 16 {
			return fmt.Errorf("%s output cannot carry %d-bit samples", f, depth)
		}
	default:
		return fmt.Errorf("unknown output format '%s'", f)
	}
	return nil
}

// Encode writes the raster to w. The PPM header is
// "P3\n<w> <h>\n<max>\n" (or P6), then rows top to bottom.
func Encode(w io.Writer, r *tonemap.Raster, f Format) error {
	if err := r.Validate(); err != nil {
		return err
	}
	if err := f.Supports(r.BitDepth); err != nil {
		return err
	}

	if f == FormatPNG {
		return png.Encode(w, Image(r))
	}

	bw := bufio.NewWriter(w)
	magic := "P3"
	if f == FormatP6 {
		magic = "P6"
	}
	fmt.Fprintf(bw, "%s\n%d %d\n%d\n", magic, r.W, r.H, r.MaxValue())

	if f == FormatP6 {
		for _, s := range r.Pix {
			bw.WriteByte(byte(s))
		}
	} else {
		line := make([]byte, 0, 32)
		for i := 0; i < len(r.Pix); i += 3 {
			line = strconv.AppendUint(line[:0], uint64(r.Pix[i]), 10)
			line = append(line, ' ')
			line = strconv.AppendUint(line, uint64(r.Pix[i+1]), 10)
			line = append(line, ' ')
			line = strconv.AppendUint(line, uint64(r.Pix[i+2]), 10)
			line = append(line, '\n')
			bw.Write(line)
		}
	}
	return bw.Flush()
}

// Image presents the raster as a 16-bit image, samples rescaled from the
// raster's depth.
func Image(r *tonemap.Raster) image.Image {
	img := image.NewRGBA64(image.Rect(0, 0, r.W, r.H))
	max := uint32(r.MaxValue())
	scale := func(s uint16) uint16 { return uint16((uint32(s)*0xFFFF + max/2) / max) }
	for y := 0; y < r.H; y++ {
		for x := 0; x < r.W; x++ {
			red, g, b := r.At(x, y)
			img.SetRGBA64(x, y, color.RGBA64{scale(red), scale(g), scale(b), 0xFFFF})
		}
	}
	return img
}

// WriteFile encodes the raster into path. The data goes to a temp file in
// the same directory that is renamed into place once complete; on failure
// the temp file is removed and path is left untouched.
func WriteFile(path string, r *tonemap.Raster, f Format) error {
	if err := f.Supports(r.BitDepth); err != nil {
		return &WriteError{Path: path, Err: err}
	}
	return writeAtomic(path, func(w io.Writer) error { return Encode(w, r, f) })
}

// WriteRGBE dumps a linear HDR image as a Radiance file, for loading into
// HDR viewers.
func WriteRGBE(path string, img hdr.Image) error {
	return writeAtomic(path, func(w io.Writer) error { return rgbe.Encode(w, img) })
}

// OutputMode is the permission outputs are left with; CreateTemp's 0600
// would otherwise survive the rename.
const OutputMode os.FileMode = 0o644

func writeAtomic(path string, encode func(io.Writer) error) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return &WriteError{Path: path, Err: err}
	}

	err = tmp.Chmod(OutputMode)
	if err == nil {
		err = encode(tmp)
	}
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err == nil {
		err = os.Rename(tmp.Name(), path)
	}
	if err != nil {
		os.Remove(tmp.Name())
		return &WriteError{Path: path, Err: err}
	}

	tonemap.Logger().Debug("wrote", "file", path)
	return nil
}
