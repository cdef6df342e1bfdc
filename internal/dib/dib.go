// Package dib converts between PNG payloads and packed device-independent
// bitmaps (the CF_DIB clipboard format): a 40-byte BITMAPINFOHEADER followed
// by bottom-up pixel rows — a BMP file with its 14-byte file header stripped.
package dib

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"image"
	"image/color"
	"image/png"
)

const (
	headerSize = 40 // BITMAPINFOHEADER
	biRGB      = 0  // uncompressed
)

// FromPNG decodes a PNG payload and re-encodes it as a packed 24-bpp DIB.
// Transparency is dropped; rows are BGR, bottom-up, padded to 4 bytes.
func FromPNG(data []byte) ([]byte, error) {
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("png decode: %w", err)
	}
	return Encode(img), nil
}

// Encode packs img as a 24-bpp uncompressed DIB.
func Encode(img image.Image) []byte {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	stride := (w*3 + 3) &^ 3

	out := make([]byte, headerSize+stride*h)
	binary.LittleEndian.PutUint32(out[0:], headerSize)
	binary.LittleEndian.PutUint32(out[4:], uint32(w))
	binary.LittleEndian.PutUint32(out[8:], uint32(h)) // positive = bottom-up
	binary.LittleEndian.PutUint16(out[12:], 1)        // planes
	binary.LittleEndian.PutUint16(out[14:], 24)       // bpp
	binary.LittleEndian.PutUint32(out[16:], biRGB)
	binary.LittleEndian.PutUint32(out[20:], uint32(stride*h))

	for y := 0; y < h; y++ {
		row := out[headerSize+(h-1-y)*stride:]
		for x := 0; x < w; x++ {
			r, g, bl, _ := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
			row[x*3+0] = byte(bl >> 8)
			row[x*3+1] = byte(g >> 8)
			row[x*3+2] = byte(r >> 8)
		}
	}
	return out
}

// ToPNG parses a packed DIB (24 or 32 bpp, uncompressed) and encodes it
// as PNG. This is the read path for CF_DIB clipboard data.
func ToPNG(data []byte) ([]byte, error) {
	img, err := Decode(data)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("png encode: %w", err)
	}
	return buf.Bytes(), nil
}

// Decode parses a packed DIB into an image. Only the uncompressed 24-bpp
// and 32-bpp layouts are supported; everything else on the clipboard is
// treated as unrecognizable content by the caller.
func Decode(data []byte) (image.Image, error) {
	if len(data) < headerSize {
		return nil, fmt.Errorf("dib: truncated header (%d bytes)", len(data))
	}
	hdrLen := binary.LittleEndian.Uint32(data[0:])
	if hdrLen < headerSize || int(hdrLen) > len(data) {
		return nil, fmt.Errorf("dib: bad header size %d", hdrLen)
	}
	w := int(int32(binary.LittleEndian.Uint32(data[4:])))
	rawH := int(int32(binary.LittleEndian.Uint32(data[8:])))
	bpp := int(binary.LittleEndian.Uint16(data[14:]))
	comp := binary.LittleEndian.Uint32(data[16:])

	// BI_BITFIELDS (3) with the standard BGRA masks is emitted by some
	// producers for 32-bpp data; the pixel layout is identical to BI_RGB.
	if comp != biRGB && !(comp == 3 && bpp == 32) {
		return nil, fmt.Errorf("dib: unsupported compression %d", comp)
	}
	if bpp != 24 && bpp != 32 {
		return nil, fmt.Errorf("dib: unsupported bit depth %d", bpp)
	}
	if w <= 0 || rawH == 0 {
		return nil, fmt.Errorf("dib: bad dimensions %dx%d", w, rawH)
	}

	bottomUp := rawH > 0
	h := rawH
	if !bottomUp {
		h = -rawH
	}

	stride := (w*(bpp/8) + 3) &^ 3
	pix := data[hdrLen:]
	if comp == 3 {
		// colour masks follow the header
		if len(pix) < 12 {
			return nil, fmt.Errorf("dib: truncated masks")
		}
		pix = pix[12:]
	}
	if len(pix) < stride*h {
		return nil, fmt.Errorf("dib: truncated pixel data")
	}

	// Many 32-bpp clipboard DIBs carry an unused alpha channel of all
	// zeroes; only honour alpha if at least one pixel sets it.
	hasAlpha := false
	if bpp == 32 {
		for y := 0; y < h && !hasAlpha; y++ {
			row := pix[y*stride:]
			for x := 0; x < w; x++ {
				if row[x*4+3] != 0 {
					hasAlpha = true
					break
				}
			}
		}
	}

	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		srcY := y
		if bottomUp {
			srcY = h - 1 - y
		}
		row := pix[srcY*stride:]
		for x := 0; x < w; x++ {
			var c color.NRGBA
			switch bpp {
			case 24:
				c = color.NRGBA{R: row[x*3+2], G: row[x*3+1], B: row[x*3+0], A: 0xff}
			case 32:
				a := row[x*4+3]
				if !hasAlpha {
					a = 0xff
				}
				c = color.NRGBA{R: row[x*4+2], G: row[x*4+1], B: row[x*4+0], A: a}
			}
			img.SetNRGBA(x, y, c)
		}
	}
	return img, nil
}
