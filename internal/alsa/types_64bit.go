//go:build linux && (amd64 || arm64 || riscv64 || ppc64le || loong64)

package alsa

// C unsigned long / long on LP64.
type (
	uframes = uint64
	sframes = int64
)
