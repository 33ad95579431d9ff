//go:build linux && (386 || arm)

package alsa

// C unsigned long / long on ILP32.
type (
	uframes = uint32
	sframes = int32
)
