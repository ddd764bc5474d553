// Package profile holds named batch presets: which widths and formats to
// render and which resize options to apply to every variant.
package profile

import (
	"maps"
	"slices"
	"sort"
	"strconv"

	"github.com/AnyUserName/rowscale/internal/resize"
)

// Profile defines image processing parameters for a target platform.
type Profile struct {
	Name    string
	Widths  []int    // target widths for resize
	Formats []string // output formats in priority order
	Quality int      // encoding quality 1-100, 0 for the size-based default
	Retina  bool     // also render 2x variants
	// Options are resize options applied to every variant, in the syntax
	// of resize.ParseOptions.
	Options map[string]string
}

// Built-in profiles.
var profiles = map[string]Profile{
	"web": {
		Name:    "web",
		Widths:  []int{320, 640, 960, 1280},
		Formats: []string{"webp", "jpeg"},
		Retina:  true,
		Options: map[string]string{"hybrid": "favorquality"},
	},
	"web-hq": {
		Name:    "web-hq",
		Widths:  []int{320, 640, 960, 1280, 1920},
		Formats: []string{"avif", "webp", "jpeg"},
		Quality: 90,
		Retina:  true,
		Options: map[string]string{"hybrid": "off", "filter": "lanczos", "metadata": "icc"},
	},
	"fast": {
		Name:    "fast",
		Widths:  []int{320, 640},
		Formats: []string{"jpeg"},
		Quality: 78,
		Options: map[string]string{"hybrid": "turbo", "gamma": "companded"},
	},
	"thumbs": {
		Name:    "thumbs",
		Widths:  []int{96, 192},
		Formats: []string{"jpeg"},
		Options: map[string]string{"mode": "crop", "height": "0", "sharpen": "true"},
	},
	"palette": {
		Name:    "palette",
		Widths:  []int{160, 320},
		Formats: []string{"png8", "gif"},
		Options: map[string]string{"sharpen": "false"},
	},
}

// DefaultName is the profile used when none is requested.
const DefaultName = "web"

// Get returns a profile by name. Falls back to the default if unknown.
func Get(name string) Profile {
	if p, ok := profiles[name]; ok {
		p.Options = maps.Clone(p.Options)
		return p
	}
	p := Get(DefaultName)
	p.Name = name // preserve requested name
	return p
}

// Names lists the built-in profiles.
func Names() []string {
	names := slices.Collect(maps.Keys(profiles))
	sort.Strings(names)
	return names
}

// EffectiveWidths returns all widths including retina variants.
func (p Profile) EffectiveWidths(originalWidth int) []int {
	seen := map[int]bool{}
	var result []int

	for _, w := range p.Widths {
		if w > originalWidth {
			continue // don't upscale
		}
		if !seen[w] {
			seen[w] = true
			result = append(result, w)
		}
		if p.Retina {
			w2 := w * 2
			if w2 <= originalWidth && !seen[w2] {
				seen[w2] = true
				result = append(result, w2)
			}
		}
	}

	// Always include original width if not already present
	// (for cases where original is smaller than smallest target).
	if len(result) == 0 && originalWidth > 0 {
		result = append(result, originalWidth)
	}

	return result
}

// Settings builds the resize request for one variant. extra options are
// applied over the profile's own; width, format and quality always come
// from the arguments and the profile.
func (p Profile) Settings(width int, format string, extra map[string]string) (resize.Settings, error) {
	opts := maps.Clone(p.Options)
	if opts == nil {
		opts = map[string]string{}
	}
	maps.Copy(opts, extra)
	opts["width"] = strconv.Itoa(width)
	opts["format"] = format
	if p.Quality > 0 {
		opts["quality"] = strconv.Itoa(p.Quality)
	}
	return resize.ParseOptions(opts)
}
