package resize

import (
	"image/color"
	"maps"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/AnyUserName/rowscale/internal/imgerr"
	"github.com/AnyUserName/rowscale/internal/interp"
	colorful "github.com/lucasb-eyer/go-colorful"
)

var (
	anchorExpr = regexp.MustCompile(`(?i)^(top|middle|bottom)?-?(left|center|right)?$`)
	cropExpr   = regexp.MustCompile(`^\d{1,5},\d{1,5},\d{1,5},\d{1,5}$`)
	hexExpr    = regexp.MustCompile(`^#?([0-9a-fA-F]{3}|[0-9a-fA-F]{6}|[0-9a-fA-F]{8})$`)
)

// ParseOptions builds Settings from a flat option map such as a URL query.
// Keys are case-insensitive and unknown keys are ignored; a recognized key
// with a malformed value is an error. Of keys differing only in case the
// all-lowercase one wins, otherwise the one sorting first.
func ParseOptions(opts map[string]string) (Settings, error) {
	s := DefaultSettings()
	folded := make(map[string]string, len(opts))
	for _, k := range slices.Sorted(maps.Keys(opts)) {
		lk := strings.ToLower(k)
		if _, seen := folded[lk]; !seen || k == lk {
			folded[lk] = opts[k]
		}
	}
	get := func(keys ...string) (string, bool) {
		for _, k := range keys {
			if v, ok := folded[k]; ok {
				return strings.TrimSpace(v), true
			}
		}
		return "", false
	}

	var err error
	if v, ok := get("width", "w"); ok {
		if s.Width, err = parseNonNegative("width", v); err != nil {
			return s, err
		}
	}
	if v, ok := get("height", "h"); ok {
		if s.Height, err = parseNonNegative("height", v); err != nil {
			return s, err
		}
	}
	if v, ok := get("quality", "q"); ok {
		if s.Quality, err = parseNonNegative("quality", v); err != nil {
			return s, err
		}
		if s.Quality > 100 {
			return s, imgerr.Invalid("quality %d out of range 0-100", s.Quality)
		}
	}
	if v, ok := get("frame", "page"); ok {
		if s.Frame, err = parseNonNegative("frame", v); err != nil {
			return s, err
		}
	}
	if v, ok := get("crop"); ok {
		if s.Crop, err = parseCrop(v); err != nil {
			return s, err
		}
	}
	if v, ok := get("anchor"); ok {
		if s.Anchor, err = ParseAnchor(v); err != nil {
			return s, err
		}
	}
	if v, ok := get("mode"); ok {
		if s.Mode, err = ParseMode(v); err != nil {
			return s, err
		}
	}
	if v, ok := get("hybrid"); ok {
		if s.Hybrid, err = ParseHybridMode(v); err != nil {
			return s, err
		}
	}
	if v, ok := get("gamma"); ok {
		switch strings.ToLower(v) {
		case "linear":
			s.Gamma = GammaLinear
		case "companded":
			s.Gamma = GammaCompanded
		default:
			return s, imgerr.Invalid("unknown gamma %q", v)
		}
	}
	if v, ok := get("sharpen"); ok {
		if s.Sharpen, err = strconv.ParseBool(v); err != nil {
			return s, imgerr.Invalid("sharpen %q is not a boolean", v)
		}
	}
	if v, ok := get("format"); ok {
		s.Format = NormalizeFormat(v)
		if !outputFormats[s.Format] {
			return s, imgerr.Invalid("unknown format %q", v)
		}
	}
	if v, ok := get("subsample"); ok {
		switch v {
		case "420":
			s.Subsample = Subsample420
		case "422":
			s.Subsample = Subsample422
		case "444":
			s.Subsample = Subsample444
		default:
			return s, imgerr.Invalid("unknown subsample %q", v)
		}
	}
	if v, ok := get("bgcolor", "bg"); ok && v != "" {
		if s.Matte, err = ParseColor(v); err != nil {
			return s, err
		}
	}
	if v, ok := get("filter"); ok && v != "" {
		if s.Interpolation, err = interp.ByName(v); err != nil {
			return s, err
		}
	}
	if v, ok := get("metadata"); ok && v != "" {
		s.Metadata = parseTags(v)
	}
	return s, nil
}

// parseTags splits a comma list of metadata tags into a sorted set.
func parseTags(v string) []string {
	var tags []string
	for _, t := range strings.Split(v, ",") {
		if t = strings.ToLower(strings.TrimSpace(t)); t != "" {
			tags = append(tags, t)
		}
	}
	slices.Sort(tags)
	return slices.Compact(tags)
}

func parseNonNegative(name, v string) (int, error) {
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, imgerr.Invalid("%s %q must be a non-negative integer", name, v)
	}
	return n, nil
}

func parseCrop(v string) (Rect, error) {
	if !cropExpr.MatchString(v) {
		return Rect{}, imgerr.Invalid("crop %q must be x,y,width,height", v)
	}
	var n [4]int
	for i, p := range strings.Split(v, ",") {
		n[i], _ = strconv.Atoi(p)
	}
	return Rect{X: n[0], Y: n[1], Width: n[2], Height: n[3]}, nil
}

// ParseAnchor parses anchors such as "top-left", "bottom", "right" or
// "middle-center".
func ParseAnchor(v string) (Anchor, error) {
	m := anchorExpr.FindStringSubmatch(v)
	if m == nil {
		return AnchorCenter, imgerr.Invalid("unknown anchor %q", v)
	}
	var a Anchor
	switch strings.ToLower(m[1]) {
	case "top":
		a |= AnchorTop
	case "bottom":
		a |= AnchorBottom
	}
	switch strings.ToLower(m[2]) {
	case "left":
		a |= AnchorLeft
	case "right":
		a |= AnchorRight
	}
	return a, nil
}

// ParseMode parses a resize mode name.
func ParseMode(v string) (Mode, error) {
	for _, m := range []Mode{ModeCrop, ModeMax, ModeStretch} {
		if strings.EqualFold(v, m.String()) {
			return m, nil
		}
	}
	return ModeCrop, imgerr.Invalid("unknown mode %q", v)
}

// ParseHybridMode parses a hybrid mode name.
func ParseHybridMode(v string) (HybridMode, error) {
	for _, h := range []HybridMode{HybridFavorQuality, HybridFavorSpeed, HybridTurbo, HybridOff} {
		if strings.EqualFold(v, h.String()) {
			return h, nil
		}
	}
	return HybridFavorQuality, imgerr.Invalid("unknown hybrid mode %q", v)
}

// ParseColor parses a hex color (#rgb, #rrggbb or #rrggbbaa, '#' optional)
// or the name "transparent".
func ParseColor(v string) (color.NRGBA, error) {
	if strings.EqualFold(v, "transparent") {
		return color.NRGBA{}, nil
	}
	m := hexExpr.FindStringSubmatch(v)
	if m == nil {
		return color.NRGBA{}, imgerr.Invalid("color %q is not a hex color", v)
	}
	hex := m[1]
	alpha := uint8(0xff)
	switch len(hex) {
	case 3:
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	case 8:
		a, _ := strconv.ParseUint(hex[6:], 16, 8)
		alpha = uint8(a)
		hex = hex[:6]
	}
	c, err := colorful.Hex("#" + strings.ToLower(hex))
	if err != nil {
		return color.NRGBA{}, imgerr.Invalid("color %q: %v", v, err)
	}
	r, g, b := c.RGB255()
	return color.NRGBA{R: r, G: g, B: b, A: alpha}, nil
}
