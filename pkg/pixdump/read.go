package pixdump

import (
	"bufio"
	"fmt"
	"io"
	"math/bits"
	"strconv"

	"github.com/abworrall/hdr-tonemap/pkg/tonemap"
)

// Read parses a P3 or P6 PPM into a raster. The bit depth is the
// smallest that holds the file's max value.
func Read(r io.Reader) (*tonemap.Raster, error) {
	br := bufio.NewReader(r)

	magic, err := token(br)
	if err != nil {
		return nil, fmt.Errorf("ppm magic: %w", err)
	}
	if magic != "P3" && magic != "P6" {
		return nil, fmt.Errorf("ppm magic '%s' is not P3 or P6", magic)
	}

	var header [3]int
	for i := range header {
		tok, err := token(br)
		if err != nil {
			return nil, fmt.Errorf("ppm header: %w", err)
		}
		if header[i], err = strconv.Atoi(tok); err != nil || header[i] <= 0 {
			return nil, fmt.Errorf("ppm header value '%s'", tok)
		}
	}
	w, h, max := header[0], header[1], header[2]
	if max > 0xFFFF {
		return nil, fmt.Errorf("ppm max value %d too large", max)
	}

	out := tonemap.NewRaster(w, h, bits.Len(uint(max)))
	if magic == "P6" {
		if max > 0xFF {
			return nil, fmt.Errorf("P6 with max value %d is not supported", max)
		}
		buf := make([]byte, len(out.Pix))
		if _, err := io.ReadFull(br, buf); err != nil {
			return nil, fmt.Errorf("ppm samples: %w", err)
		}
		for i, b := range buf {
			out.Pix[i] = uint16(b)
		}
		return out, nil
	}

	for i := range out.Pix {
		tok, err := token(br)
		if err != nil {
			return nil, fmt.Errorf("ppm sample %d: %w", i, err)
		}
		v, err := strconv.Atoi(tok)
		if err != nil || v < 0 || v > max {
			return nil, fmt.Errorf("ppm sample %d: bad value '%s'", i, tok)
		}
		out.Pix[i] = uint16(v)
	}
	return out, nil
}

// token returns the next whitespace separated token, skipping comments.
// After a header token it consumes exactly one whitespace byte, which is
// what P6 requires before the raster.
func token(br *bufio.Reader) (string, error) {
	tok := []byte{}
	for {
		c, err := br.ReadByte()
		if err != nil {
			if err == io.EOF && len(tok) > 0 {
				return string(tok), nil
			}
			if err == io.EOF {
				return "", io.ErrUnexpectedEOF
			}
			return "", err
		}
		switch {
		case c == '#' && len(tok) == 0:
			if _, err := br.ReadString('\n'); err != nil {
				return "", io.ErrUnexpectedEOF
			}
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			if len(tok) > 0 {
				return string(tok), nil
			}
		default:
			tok = append(tok, c)
		}
	}
}
