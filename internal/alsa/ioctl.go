package alsa

import (
	"unsafe"

	"golang.org/x/sys/unix"
)

// ioctl issues a request on fd with a pointer argument.
func ioctl(fd uintptr, req uintptr, arg unsafe.Pointer) error {
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, fd, req, uintptr(arg))
	if errno != 0 {
		return errno
	}

	return nil
}

// Direction bits of an ioctl request code (asm-generic/ioctl.h).
const (
	iocNone  = 0
	iocWrite = 1
	iocRead  = 2

	iocNrShift   = 0
	iocTypeShift = 8
	iocSizeShift = 16
	iocDirShift  = 30
)

// ioc encodes an ioctl request code.
func ioc(dir, typ, nr, size uintptr) uintptr {
	return dir<<iocDirShift | typ<<iocTypeShift | nr<<iocNrShift | size<<iocSizeShift
}

var (
	ioctlInfo        = ioc(iocRead, 'A', 0x01, unsafe.Sizeof(pcmInfo{}))
	ioctlHwParams    = ioc(iocRead|iocWrite, 'A', 0x11, unsafe.Sizeof(hwParams{}))
	ioctlSwParams    = ioc(iocRead|iocWrite, 'A', 0x13, unsafe.Sizeof(swParams{}))
	ioctlPrepare     = ioc(iocNone, 'A', 0x40, 0)
	ioctlDrop        = ioc(iocNone, 'A', 0x43, 0)
	ioctlDrain       = ioc(iocNone, 'A', 0x44, 0)
	ioctlWriteIFrame = ioc(iocWrite, 'A', 0x50, unsafe.Sizeof(xferi{}))
	ioctlReadIFrames = ioc(iocRead, 'A', 0x51, unsafe.Sizeof(xferi{}))
)
