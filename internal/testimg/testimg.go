// Package testimg builds small JPEG and PNG fixtures, optionally carrying a
// synthetic EXIF block, so tests do not depend on checked-in binaries.
package testimg

import (
	"bytes"
	"encoding/binary"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
)

// Exif lists the tags written into the APP1 segment.
// Zero values omit the tag.
type Exif struct {
	Orientation      int
	DateTimeOriginal string
}

// Fill is the colour every fixture pixel is painted with.
var Fill = color.RGBA{R: 128, G: 128, B: 128, A: 255}

// Image returns a w x h image painted with Fill.
func Image(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, Fill)
		}
	}
	return img
}

// JPEG encodes a w x h fixture. A nil x produces a file without EXIF.
func JPEG(w, h int, x *Exif) []byte {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, Image(w, h), &jpeg.Options{Quality: 90}); err != nil {
		panic(err)
	}
	b := buf.Bytes()
	if x == nil {
		return b
	}

	seg := app1(tiffBlock(*x))
	out := make([]byte, 0, len(b)+len(seg))
	out = append(out, b[:2]...) // SOI
	out = append(out, seg...)
	out = append(out, b[2:]...)
	return out
}

// PNG encodes a w x h fixture without metadata.
func PNG(w, h int) []byte {
	var buf bytes.Buffer
	if err := png.Encode(&buf, Image(w, h)); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

func app1(tiff []byte) []byte {
	payload := append([]byte("Exif\x00\x00"), tiff...)
	seg := []byte{0xFF, 0xE1, 0, 0}
	binary.BigEndian.PutUint16(seg[2:], uint16(len(payload)+2))
	return append(seg, payload...)
}

type entry struct {
	tag   uint16
	typ   uint16
	count uint32
	value []byte
}

const (
	typeASCII = 2
	typeShort = 3
	typeLong  = 4

	tagOrientation      = 0x0112
	tagExifIFDPointer   = 0x8769
	tagDateTimeOriginal = 0x9003
)

// tiffBlock lays out a little-endian TIFF with IFD0, an optional Exif
// sub-IFD and a trailing data area for values wider than four bytes.
func tiffBlock(x Exif) []byte {
	le := binary.LittleEndian

	var ifd0, sub []entry
	if x.Orientation != 0 {
		v := make([]byte, 2)
		le.PutUint16(v, uint16(x.Orientation))
		ifd0 = append(ifd0, entry{tag: tagOrientation, typ: typeShort, count: 1, value: v})
	}
	if x.DateTimeOriginal != "" {
		v := append([]byte(x.DateTimeOriginal), 0)
		sub = append(sub, entry{tag: tagDateTimeOriginal, typ: typeASCII, count: uint32(len(v)), value: v})
	}

	ifdSize := func(n int) uint32 { return uint32(2 + 12*n + 4) }

	pointerIdx := -1
	if len(sub) > 0 {
		pointerIdx = len(ifd0)
		ifd0 = append(ifd0, entry{tag: tagExifIFDPointer, typ: typeLong, count: 1, value: make([]byte, 4)})
	}

	ifd0Off := uint32(8)
	subOff := ifd0Off + ifdSize(len(ifd0))
	dataOff := subOff
	if len(sub) > 0 {
		dataOff += ifdSize(len(sub))
		le.PutUint32(ifd0[pointerIdx].value, subOff)
	}

	var body, data bytes.Buffer
	u16 := func(v uint16) { _ = binary.Write(&body, le, v) }
	u32 := func(v uint32) { _ = binary.Write(&body, le, v) }

	body.WriteString("II")
	u16(42)
	u32(ifd0Off)

	writeIFD := func(entries []entry) {
		u16(uint16(len(entries)))
		for _, e := range entries {
			u16(e.tag)
			u16(e.typ)
			u32(e.count)
			if len(e.value) <= 4 {
				v := make([]byte, 4)
				copy(v, e.value)
				body.Write(v)
				continue
			}
			u32(dataOff + uint32(data.Len()))
			data.Write(e.value)
			if data.Len()%2 == 1 {
				data.WriteByte(0)
			}
		}
		u32(0)
	}

	writeIFD(ifd0)
	if len(sub) > 0 {
		writeIFD(sub)
	}
	body.Write(data.Bytes())
	return body.Bytes()
}
