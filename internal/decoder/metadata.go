package decoder

import (
	"bytes"
	"encoding/binary"
	"image/gif"
	"time"
)

// Metadata carries the non-pixel records of a file. Records are opaque
// byte payloads keyed by tag; the resize core never interprets them.
type Metadata struct {
	// Records holds "icc" (the assembled ICC profile) and "exif" (the raw
	// TIFF payload of the Exif segment) when the file has them.
	Records   map[string][]byte
	Frames    []FrameInfo
	LoopCount int
}

// FrameInfo is the timing of one animation frame.
type FrameInfo struct {
	Delay    time.Duration
	Disposal string
}

// Record returns the payload stored under tag.
func (m Metadata) Record(tag string) ([]byte, bool) {
	b, ok := m.Records[tag]
	return b, ok
}

func disposalName(d byte) string {
	switch d {
	case gif.DisposalNone:
		return "none"
	case gif.DisposalBackground:
		return "background"
	case gif.DisposalPrevious:
		return "previous"
	}
	return "unspecified"
}

// ─── JPEG APPn segments ───────────────────────────────────────

const (
	markerSOI  = 0xd8
	markerSOS  = 0xda
	markerAPP1 = 0xe1
	markerAPP2 = 0xe2
)

var (
	exifHeader = []byte("Exif\x00\x00")
	iccHeader  = []byte("ICC_PROFILE\x00")
)

// scanJPEG walks the marker segments before the first scan and collects
// the Exif payload and the ICC profile chunks. Malformed segment lengths
// end the scan; metadata is best effort.
func scanJPEG(data []byte) Metadata {
	var m Metadata
	if len(data) < 4 || data[0] != 0xff || data[1] != markerSOI {
		return m
	}
	type chunk struct {
		seq  byte
		data []byte
	}
	var icc []chunk
	for p := 2; p+4 <= len(data); {
		if data[p] != 0xff {
			break
		}
		marker := data[p+1]
		if marker == 0xff {
			p++
			continue
		}
		if marker == markerSOS {
			break
		}
		n := int(binary.BigEndian.Uint16(data[p+2:]))
		if n < 2 || p+2+n > len(data) {
			break
		}
		seg := data[p+4 : p+2+n]
		switch {
		case marker == markerAPP1 && bytes.HasPrefix(seg, exifHeader):
			m.set("exif", seg[len(exifHeader):])
		case marker == markerAPP2 && bytes.HasPrefix(seg, iccHeader) && len(seg) > len(iccHeader)+2:
			icc = append(icc, chunk{seq: seg[len(iccHeader)], data: seg[len(iccHeader)+2:]})
		}
		p += 2 + n
	}
	if len(icc) > 0 {
		var profile []byte
		for seq := byte(1); int(seq) <= len(icc); seq++ {
			for _, c := range icc {
				if c.seq == seq {
					profile = append(profile, c.data...)
				}
			}
		}
		m.set("icc", profile)
	}
	return m
}

func (m *Metadata) set(tag string, b []byte) {
	if m.Records == nil {
		m.Records = map[string][]byte{}
	}
	m.Records[tag] = bytes.Clone(b)
}
