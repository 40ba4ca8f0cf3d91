//go:build linux

package reactor

import (
	"syscall"
	"time"

	"golang.org/x/sys/unix"

	"github.com/ember-web/ember/internal/mpsc"
	"github.com/ember-web/ember/uring"
)

// Result is a completion: the kernel's signed return code plus CQE flags.
// The runtime delivers it uninterpreted.
type Result struct {
	Res   int32
	Flags uint32
}

// Err maps a negative return code onto its errno, or nil.
func (res Result) Err() error {
	if res.Res < 0 {
		return syscall.Errno(-res.Res)
	}

	return nil
}

// Operation describes one ring operation together with its suspension
// state. An Operation is single-shot: construct, optionally wrap in
// LinkTimeout, then Await exactly once.
type Operation struct {
	node      mpsc.Node[*Operation]
	prepareFn func(*uring.SQE)

	linked bool
	ts     unix.Timespec

	result Result
	done   chan struct{}
}

func newOperation(prep func(*uring.SQE)) *Operation {
	return &Operation{
		prepareFn: prep,
		done:      make(chan struct{}, 1),
	}
}

// Await submits the operation to the process-wide reactor and parks the
// calling goroutine until its completion. ok=false means the submission was
// refused (reactor stopping) or, for link-timeout operations, that the
// kernel cancelled the wrapped operation when the timer fired.
func (op *Operation) Await() (res Result, ok bool) {
	return op.AwaitOn(Get())
}

// AwaitOn is Await against an explicit reactor.
func (op *Operation) AwaitOn(r *Reactor) (res Result, ok bool) {
	if !r.Submit(op) {
		return Result{}, false
	}

	<-op.done

	if op.linked && op.result.Res == -int32(unix.ECANCELED) {
		return Result{}, false
	}

	return op.result, true
}

// Read awaits a READ of up to len(buf) bytes from fd at offset. For
// sockets and other streams pass offset 0.
func Read(fd int, buf []byte, offset uint64) *Operation {
	return newOperation(func(sqe *uring.SQE) {
		sqe.PrepareRead(fd, buf, offset)
	})
}

// Write awaits a WRITE of buf to fd at offset.
func Write(fd int, buf []byte, offset uint64) *Operation {
	return newOperation(func(sqe *uring.SQE) {
		sqe.PrepareWrite(fd, buf, offset)
	})
}

// Readv awaits a vectored READV into iovecs.
func Readv(fd int, iovecs []unix.Iovec, offset uint64) *Operation {
	return newOperation(func(sqe *uring.SQE) {
		sqe.PrepareReadv(fd, iovecs, offset)
	})
}

// Writev awaits a vectored WRITEV from iovecs.
func Writev(fd int, iovecs []unix.Iovec, offset uint64) *Operation {
	return newOperation(func(sqe *uring.SQE) {
		sqe.PrepareWritev(fd, iovecs, offset)
	})
}

// Accept awaits an ACCEPT on the listening fd. addr and addrLen must stay
// allocated for the lifetime of the operation; the accepted socket's fd is
// the completion's return code.
func Accept(fd int, addr *unix.RawSockaddrAny, addrLen *uint32, flags uint32) *Operation {
	return newOperation(func(sqe *uring.SQE) {
		sqe.PrepareAccept(fd, addr, addrLen, flags)
	})
}

// Prepared awaits an operation described directly by the callable, which
// the driver invokes exactly once on a zeroed SQE. The reactor stamps the
// user data afterwards, anything else is the callable's business.
func Prepared(prep func(*uring.SQE)) *Operation {
	return newOperation(prep)
}

// LinkTimeout attaches a deadline to the operation: the driver emits the
// operation's SQE with the IO-link flag, followed by a LINK_TIMEOUT SQE
// bearing d. If the timer fires first the kernel cancels the operation and
// Await reports ok=false.
func LinkTimeout(op *Operation, d time.Duration) *Operation {
	op.linked = true
	op.ts = unix.NsecToTimespec(d.Nanoseconds())

	return op
}
