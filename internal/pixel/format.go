// Package pixel defines the pull contract shared by every stage of the
// resize chain, the pixel formats that flow through it and the optional
// capabilities a decoder may expose.
package pixel

// Format identifies the byte layout of one pixel.
type Format int

const (
	FormatUnknown Format = iota
	// Grey8 is one 8-bit sRGB grey channel.
	Grey8
	// Y8 is an 8-bit luma plane of a Y'CbCr image.
	Y8
	// CbCr16 is an interleaved pair of 8-bit chroma samples.
	CbCr16
	// Bgr24 is 8-bit blue, green, red.
	Bgr24
	// Bgra32 is 8-bit blue, green, red and straight (unpremultiplied) alpha.
	Bgra32
	// Rgb24 is 8-bit red, green, blue.
	Rgb24
	// Rgba32 is 8-bit red, green, blue and straight alpha.
	Rgba32
	// Cmyk32 is 8-bit cyan, magenta, yellow, black (Go image.CMYK layout).
	Cmyk32
	// Indexed8 is an 8-bit palette index.
	Indexed8
)

var formatInfo = [...]struct {
	name     string
	bytes    int
	alpha    bool
	colorful bool
}{
	FormatUnknown: {"unknown", 0, false, false},
	Grey8:         {"Grey8", 1, false, false},
	Y8:            {"Y8", 1, false, false},
	CbCr16:        {"CbCr16", 2, false, true},
	Bgr24:         {"Bgr24", 3, false, true},
	Bgra32:        {"Bgra32", 4, true, true},
	Rgb24:         {"Rgb24", 3, false, true},
	Rgba32:        {"Rgba32", 4, true, true},
	Cmyk32:        {"Cmyk32", 4, false, true},
	Indexed8:      {"Indexed8", 1, false, true},
}

func (f Format) valid() bool { return f > FormatUnknown && int(f) < len(formatInfo) }

// BytesPerPixel is the size of one pixel. Unknown formats report 0.
func (f Format) BytesPerPixel() int {
	if !f.valid() {
		return 0
	}
	return formatInfo[f].bytes
}

// Channels is the number of samples per pixel.
func (f Format) Channels() int {
	return f.BytesPerPixel()
}

// HasAlpha reports whether the format carries an alpha channel.
func (f Format) HasAlpha() bool {
	return f.valid() && formatInfo[f].alpha
}

// IsColor reports whether the format carries chroma.
func (f Format) IsColor() bool {
	return f.valid() && formatInfo[f].colorful
}

func (f Format) String() string {
	if !f.valid() {
		return formatInfo[FormatUnknown].name
	}
	return formatInfo[f].name
}
