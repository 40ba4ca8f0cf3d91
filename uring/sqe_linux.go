//go:build linux

package uring

import (
	"unsafe"

	"golang.org/x/sys/unix"
)

// Opcodes, limited to what the reactor drives.
const (
	OpNop         uint8 = 0
	OpReadv       uint8 = 1
	OpWritev      uint8 = 2
	OpAccept      uint8 = 13
	OpLinkTimeout uint8 = 15
	OpRead        uint8 = 22
	OpWrite       uint8 = 23
)

// SQE flags.
const (
	FlagIOLink uint8 = 1 << 2 // links the next SQE to this one
)

// SQE is a submission queue entry, laid out exactly as the kernel expects.
type SQE struct {
	OpCode      uint8
	Flags       uint8
	IoPrio      uint16
	Fd          int32
	Off         uint64
	Addr        uint64
	Len         uint32
	OpcodeFlags uint32
	UserData    uint64
	BufIG       uint16
	Personality uint16
	SpliceFdIn  int32
	Addr3       uint64
	_           [1]uint64
}

func (sqe *SQE) SetUserData(data uint64) {
	sqe.UserData = data
}

func (sqe *SQE) SetFlags(flags uint8) {
	sqe.Flags |= flags
}

func (sqe *SQE) PrepareNop() {
	sqe.prepareRW(OpNop, -1, 0, 0, 0)
}

func (sqe *SQE) PrepareRead(fd int, buf []byte, offset uint64) {
	sqe.prepareRW(OpRead, fd, bufAddr(buf), uint32(len(buf)), offset)
}

func (sqe *SQE) PrepareWrite(fd int, buf []byte, offset uint64) {
	sqe.prepareRW(OpWrite, fd, bufAddr(buf), uint32(len(buf)), offset)
}

func (sqe *SQE) PrepareReadv(fd int, iovecs []unix.Iovec, offset uint64) {
	sqe.prepareRW(OpReadv, fd, uintptr(unsafe.Pointer(&iovecs[0])), uint32(len(iovecs)), offset)
}

func (sqe *SQE) PrepareWritev(fd int, iovecs []unix.Iovec, offset uint64) {
	sqe.prepareRW(OpWritev, fd, uintptr(unsafe.Pointer(&iovecs[0])), uint32(len(iovecs)), offset)
}

func (sqe *SQE) PrepareAccept(fd int, addr *unix.RawSockaddrAny, addrLen *uint32, flags uint32) {
	sqe.prepareRW(OpAccept, fd, uintptr(unsafe.Pointer(addr)), 0, uint64(uintptr(unsafe.Pointer(addrLen))))
	sqe.OpcodeFlags = flags
}

// PrepareLinkTimeout attaches a deadline to the immediately preceding SQE,
// which must carry FlagIOLink.
func (sqe *SQE) PrepareLinkTimeout(ts *unix.Timespec) {
	sqe.prepareRW(OpLinkTimeout, -1, uintptr(unsafe.Pointer(ts)), 1, 0)
}

func (sqe *SQE) prepareRW(opcode uint8, fd int, addr uintptr, length uint32, offset uint64) {
	sqe.OpCode = opcode
	sqe.Fd = int32(fd)
	sqe.Off = offset
	sqe.Addr = uint64(addr)
	sqe.Len = length
}

func bufAddr(buf []byte) uintptr {
	if len(buf) == 0 {
		return 0
	}

	return uintptr(unsafe.Pointer(&buf[0]))
}
