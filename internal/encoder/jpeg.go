package encoder

import (
	"bytes"
	"context"
	"image"
	"image/jpeg"

	"github.com/AnyUserName/rowscale/internal/imgerr"
)

// JPEGEncoder encodes images to JPEG using Go's standard library. The
// standard encoder always writes 4:2:0 chroma, so Options.Subsample is
// recorded in the plan but not honored here.
type JPEGEncoder struct{}

func (e *JPEGEncoder) Format() string    { return "jpeg" }
func (e *JPEGEncoder) Extension() string { return "jpg" }
func (e *JPEGEncoder) Available() bool   { return true }

func (e *JPEGEncoder) Encode(_ context.Context, img image.Image, opts Options) ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(256 * 1024)

	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality(opts.Quality)}); err != nil {
		return nil, imgerr.Upstream("encode jpeg", err)
	}
	out := buf.Bytes()
	if len(opts.ICC) > 0 {
		out = insertAfterSOI(out, ICCSegments(opts.ICC))
	}
	return out, nil
}

// ─── ICC embedding ────────────────────────────────────────────

// iccChunkSize is the profile payload one APP2 segment can hold: the
// 16-bit segment length minus itself and the 14-byte chunk header.
const iccChunkSize = 65535 - 2 - 14

// ICCSegments splits an ICC profile into APP2 "ICC_PROFILE" marker
// segments, numbered from 1.
func ICCSegments(profile []byte) [][]byte {
	count := (len(profile) + iccChunkSize - 1) / iccChunkSize
	if count == 0 || count > 255 {
		return nil
	}
	segs := make([][]byte, 0, count)
	for i := range count {
		chunk := profile[i*iccChunkSize : min((i+1)*iccChunkSize, len(profile))]
		n := len(chunk) + 2 + 14
		seg := make([]byte, 0, n+2)
		seg = append(seg, 0xff, 0xe2, byte(n>>8), byte(n))
		seg = append(seg, "ICC_PROFILE\x00"...)
		seg = append(seg, byte(i+1), byte(count))
		seg = append(seg, chunk...)
		segs = append(segs, seg)
	}
	return segs
}

// insertAfterSOI places segs after the SOI marker and any APP0 (JFIF)
// segment that follows it.
func insertAfterSOI(data []byte, segs [][]byte) []byte {
	if len(segs) == 0 || len(data) < 2 {
		return data
	}
	at := 2
	if len(data) >= at+4 && data[at] == 0xff && data[at+1] == 0xe0 {
		at += 2 + (int(data[at+2])<<8 | int(data[at+3]))
	}
	size := len(data)
	for _, s := range segs {
		size += len(s)
	}
	out := make([]byte, 0, size)
	out = append(out, data[:at]...)
	for _, s := range segs {
		out = append(out, s...)
	}
	return append(out, data[at:]...)
}
