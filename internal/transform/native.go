package transform

import (
	"github.com/AnyUserName/rowscale/internal/pixel"
)

// NativeScale asks up for a decoder-side reduction of at most maxRatio. It
// returns the source to continue with and the factor applied; up itself and
// a factor of 1 when the decoder cannot help. When a reduced source is
// returned, up has been closed.
func NativeScale(up pixel.Source, maxRatio int) (pixel.Source, int, error) {
	ns, ok := up.(pixel.NativeScaler)
	if !ok || maxRatio < 2 {
		return up, 1, nil
	}
	scaled, factor, err := ns.NativeScale(maxRatio)
	if err != nil {
		return nil, 0, err
	}
	if scaled == nil || factor <= 1 {
		return up, 1, nil
	}
	if err := up.Close(); err != nil {
		scaled.Close()
		return nil, 0, err
	}
	return scaled, factor, nil
}
