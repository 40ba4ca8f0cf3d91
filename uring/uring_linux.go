//go:build linux

// Package uring is a minimal binding to the Linux io_uring interface: ring
// setup, mmapped submission/completion queues, SQE preparation and
// io_uring_enter. It covers exactly the opcodes the reactor drives.
//
// The ring is owned by a single goroutine; none of the methods are safe for
// concurrent use. Atomics are only used on the head/tail words shared with
// the kernel.
package uring

import (
	"fmt"
	"sync/atomic"
	"unsafe"

	"golang.org/x/sys/unix"
)

// io_uring syscall numbers are identical on every architecture.
const (
	sysSetup = 425
	sysEnter = 426
)

const (
	offSQRing = 0
	offCQRing = 0x8000000
	offSQEs   = 0x10000000
)

const enterGetEvents = 1 << 0

type params struct {
	sqEntries    uint32
	cqEntries    uint32
	flags        uint32
	sqThreadCPU  uint32
	sqThreadIdle uint32
	features     uint32
	wqFd         uint32
	resv         [3]uint32
	sqOff        sqOffsets
	cqOff        cqOffsets
}

type sqOffsets struct {
	head        uint32
	tail        uint32
	ringMask    uint32
	ringEntries uint32
	flags       uint32
	dropped     uint32
	array       uint32
	resv1       uint32
	resv2       uint64
}

type cqOffsets struct {
	head        uint32
	tail        uint32
	ringMask    uint32
	ringEntries uint32
	overflow    uint32
	cqes        uint32
	flags       uint32
	resv1       uint32
	resv2       uint64
}

// CQE is a completion queue entry. Res follows kernel conventions: a
// non-negative result or a negated errno.
type CQE struct {
	UserData uint64
	Res      int32
	Flags    uint32
}

type Ring struct {
	fd int

	sqRingMap []byte
	sqesMap   []byte
	cqRingMap []byte

	sqHead    *uint32
	sqTail    *uint32
	sqMask    uint32
	sqEntries uint32
	sqArray   []uint32
	sqes      []SQE

	// local cursors over SQEs handed out but not yet flushed
	sqeHead uint32
	sqeTail uint32

	cqHead *uint32
	cqTail *uint32
	cqMask uint32
	cqes   []CQE
}

// New initializes a ring with the given submission queue depth.
func New(entries uint32) (*Ring, error) {
	var p params

	fd, _, errno := unix.Syscall(sysSetup, uintptr(entries), uintptr(unsafe.Pointer(&p)), 0)
	if errno != 0 {
		return nil, fmt.Errorf("io_uring_setup: %w", errno)
	}

	r := &Ring{
		fd:        int(fd),
		sqEntries: p.sqEntries,
	}

	sqRingSize := int(p.sqOff.array + p.sqEntries*4)
	sqRing, err := unix.Mmap(r.fd, offSQRing, sqRingSize,
		unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED|unix.MAP_POPULATE)
	if err != nil {
		_ = unix.Close(r.fd)
		return nil, fmt.Errorf("mmap sq ring: %w", err)
	}
	r.sqRingMap = sqRing
	r.sqHead = (*uint32)(unsafe.Pointer(&sqRing[p.sqOff.head]))
	r.sqTail = (*uint32)(unsafe.Pointer(&sqRing[p.sqOff.tail]))
	r.sqMask = *(*uint32)(unsafe.Pointer(&sqRing[p.sqOff.ringMask]))
	r.sqArray = unsafe.Slice((*uint32)(unsafe.Pointer(&sqRing[p.sqOff.array])), p.sqEntries)

	sqesSize := int(p.sqEntries) * int(unsafe.Sizeof(SQE{}))
	sqes, err := unix.Mmap(r.fd, offSQEs, sqesSize,
		unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED|unix.MAP_POPULATE)
	if err != nil {
		r.unmap()
		_ = unix.Close(r.fd)
		return nil, fmt.Errorf("mmap sqes: %w", err)
	}
	r.sqesMap = sqes
	r.sqes = unsafe.Slice((*SQE)(unsafe.Pointer(&sqes[0])), p.sqEntries)

	cqRingSize := int(p.cqOff.cqes + p.cqEntries*uint32(unsafe.Sizeof(CQE{})))
	cqRing, err := unix.Mmap(r.fd, offCQRing, cqRingSize,
		unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED|unix.MAP_POPULATE)
	if err != nil {
		r.unmap()
		_ = unix.Close(r.fd)
		return nil, fmt.Errorf("mmap cq ring: %w", err)
	}
	r.cqRingMap = cqRing
	r.cqHead = (*uint32)(unsafe.Pointer(&cqRing[p.cqOff.head]))
	r.cqTail = (*uint32)(unsafe.Pointer(&cqRing[p.cqOff.tail]))
	r.cqMask = *(*uint32)(unsafe.Pointer(&cqRing[p.cqOff.ringMask]))
	r.cqes = unsafe.Slice((*CQE)(unsafe.Pointer(&cqRing[p.cqOff.cqes])), p.cqEntries)

	return r, nil
}

// GetSQE hands out the next free submission queue entry, zeroed, or nil
// when the queue is full (flush with Submit and retry).
func (r *Ring) GetSQE() *SQE {
	head := atomic.LoadUint32(r.sqHead)
	if r.sqeTail-head >= r.sqEntries {
		return nil
	}

	sqe := &r.sqes[r.sqeTail&r.sqMask]
	*sqe = SQE{}
	r.sqeTail++

	return sqe
}

// SQReady returns how many prepared SQEs await flushing.
func (r *Ring) SQReady() uint32 {
	return r.sqeTail - r.sqeHead
}

// SQSpaceLeft returns how many SQEs can still be handed out before the
// queue must be flushed.
func (r *Ring) SQSpaceLeft() uint32 {
	return r.sqEntries - (r.sqeTail - atomic.LoadUint32(r.sqHead))
}

// flush publishes prepared SQEs to the shared ring and returns the number
// of entries the kernel has not consumed yet.
func (r *Ring) flush() uint32 {
	tail := atomic.LoadUint32(r.sqTail)
	for ; r.sqeHead != r.sqeTail; r.sqeHead++ {
		r.sqArray[tail&r.sqMask] = r.sqeHead & r.sqMask
		tail++
	}
	atomic.StoreUint32(r.sqTail, tail)

	return tail - atomic.LoadUint32(r.sqHead)
}

// Submit flushes prepared SQEs and submits them without waiting.
func (r *Ring) Submit() (int, error) {
	return r.enter(r.flush(), 0, 0)
}

// SubmitAndWait flushes, submits, and blocks until at least waitNr
// completions are available.
func (r *Ring) SubmitAndWait(waitNr uint32) (int, error) {
	return r.enter(r.flush(), waitNr, enterGetEvents)
}

func (r *Ring) enter(toSubmit, waitNr, flags uint32) (int, error) {
	if toSubmit == 0 && waitNr == 0 {
		return 0, nil
	}

	submitted := 0
	for {
		n, _, errno := unix.Syscall6(sysEnter, uintptr(r.fd),
			uintptr(toSubmit), uintptr(waitNr), uintptr(flags), 0, 0)
		submitted += int(n)
		toSubmit -= uint32(n)

		switch errno {
		case 0:
			return submitted, nil
		case unix.EINTR:
			continue
		default:
			return submitted, fmt.Errorf("io_uring_enter: %w", errno)
		}
	}
}

// PeekCQE returns the oldest unseen completion, or nil when none is ready.
// The entry stays valid until SeenCQE.
func (r *Ring) PeekCQE() *CQE {
	head := atomic.LoadUint32(r.cqHead)
	if head == atomic.LoadUint32(r.cqTail) {
		return nil
	}

	return &r.cqes[head&r.cqMask]
}

// SeenCQE hands the oldest completion slot back to the kernel.
func (r *Ring) SeenCQE() {
	atomic.StoreUint32(r.cqHead, atomic.LoadUint32(r.cqHead)+1)
}

func (r *Ring) Close() error {
	r.unmap()
	return unix.Close(r.fd)
}

func (r *Ring) unmap() {
	if r.sqRingMap != nil {
		_ = unix.Munmap(r.sqRingMap)
		r.sqRingMap = nil
	}
	if r.sqesMap != nil {
		_ = unix.Munmap(r.sqesMap)
		r.sqesMap = nil
	}
	if r.cqRingMap != nil {
		_ = unix.Munmap(r.cqRingMap)
		r.cqRingMap = nil
	}
}
